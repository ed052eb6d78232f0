package metrics

import (
	"sort"
	"sync"
	"time"
)

// LatencyTracker keeps a bounded window of recent duration samples and
// computes percentiles over them. Safe for concurrent use.
type LatencyTracker struct {
	mu       sync.RWMutex
	samples  []time.Duration
	capacity int
	next     int
}

// NewLatencyTracker creates a tracker holding up to capacity samples. Once
// full, new samples overwrite the oldest ones.
func NewLatencyTracker(capacity int) *LatencyTracker {
	if capacity <= 0 {
		capacity = 512
	}
	return &LatencyTracker{
		samples:  make([]time.Duration, 0, capacity),
		capacity: capacity,
	}
}

// Observe records a duration sample.
func (t *LatencyTracker) Observe(d time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(t.samples) < t.capacity {
		t.samples = append(t.samples, d)
		return
	}
	t.samples[t.next] = d
	t.next = (t.next + 1) % t.capacity
}

// Count returns the number of samples currently held.
func (t *LatencyTracker) Count() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.samples)
}

// Percentile returns the p-th percentile (0-100) of the held samples, or
// zero when no samples have been recorded.
func (t *LatencyTracker) Percentile(p float64) time.Duration {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if len(t.samples) == 0 {
		return 0
	}

	sorted := append([]time.Duration(nil), t.samples...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	if p < 0 {
		p = 0
	}
	if p > 100 {
		p = 100
	}
	index := int((p / 100.0) * float64(len(sorted)-1))
	return sorted[index]
}
