// Package metrics exposes Prometheus collectors for pipeline runs, retrieval
// activity, and completion token spend.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	// OutcomeCompleted labels runs that produced a synthesized runbook.
	OutcomeCompleted = "completed"
	// OutcomeNoMatch labels runs short-circuited by an empty retrieval.
	OutcomeNoMatch = "no_match"
	// OutcomeError labels runs aborted by a stage failure.
	OutcomeError = "error"
)

var (
	runsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sentinel_slice",
			Name:      "runs_total",
			Help:      "Total number of analysis runs handled, partitioned by outcome.",
		},
		[]string{"outcome"},
	)

	runDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "sentinel_slice",
			Name:      "run_seconds",
			Help:      "End-to-end analysis run latency in seconds.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 4, 6, 10, 15, 30},
		},
	)

	stageDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "sentinel_slice",
			Name:      "stage_seconds",
			Help:      "Per-stage latency in seconds, partitioned by stage name.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 4, 6, 10, 15},
		},
		[]string{"stage"},
	)

	completionTokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sentinel_slice",
			Name:      "completion_tokens_total",
			Help:      "Language-model tokens consumed, partitioned by stage and kind.",
		},
		[]string{"stage", "kind"},
	)

	slicesIngestedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "sentinel_slice",
			Name:      "slices_ingested_total",
			Help:      "Total number of slices written to the store.",
		},
	)

	searchesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "sentinel_slice",
			Name:      "searches_total",
			Help:      "Total number of standalone hybrid searches served.",
		},
	)
)

// Register attaches all collectors to the supplied Prometheus registerer.
func Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		runsTotal,
		runDurationSeconds,
		stageDurationSeconds,
		completionTokensTotal,
		slicesIngestedTotal,
		searchesTotal,
	}

	for _, collector := range collectors {
		if err := reg.Register(collector); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}
			return err
		}
	}
	return nil
}

// ObserveRun records one analysis run with its outcome label and total latency.
func ObserveRun(outcome string, duration time.Duration) {
	switch outcome {
	case OutcomeCompleted, OutcomeNoMatch, OutcomeError:
	default:
		outcome = OutcomeError
	}
	runsTotal.WithLabelValues(outcome).Inc()
	if duration < 0 {
		duration = 0
	}
	runDurationSeconds.Observe(duration.Seconds())
}

// ObserveStage records one stage execution.
func ObserveStage(stage string, seconds float64) {
	if seconds < 0 {
		seconds = 0
	}
	stageDurationSeconds.WithLabelValues(stage).Observe(seconds)
}

// ObserveCompletionTokens records token usage reported by the model for one
// completion call.
func ObserveCompletionTokens(stage string, promptTokens, completionTokens int) {
	if promptTokens > 0 {
		completionTokensTotal.WithLabelValues(stage, "prompt").Add(float64(promptTokens))
	}
	if completionTokens > 0 {
		completionTokensTotal.WithLabelValues(stage, "completion").Add(float64(completionTokens))
	}
}

// ObserveIngest records n slices written to the store.
func ObserveIngest(n int) {
	if n > 0 {
		slicesIngestedTotal.Add(float64(n))
	}
}

// ObserveSearch records one standalone search request.
func ObserveSearch() {
	searchesTotal.Inc()
}
