package cache

import (
	"context"
	"time"
)

// NoopCache implements Cache without storing anything. It backs deployments
// with no Redis configured; rate limiting degrades to allowing all traffic.
type NoopCache struct{}

func (NoopCache) Set(context.Context, string, []byte, time.Duration) error { return nil }

func (NoopCache) Get(context.Context, string) ([]byte, bool, error) { return nil, false, nil }

func (NoopCache) Delete(context.Context, string) error { return nil }

// IncrWithExpiry reports every request as the first in its window.
func (NoopCache) IncrWithExpiry(context.Context, string, time.Duration) (int64, error) {
	return 1, nil
}

func (NoopCache) Ping(context.Context) error { return nil }

func (NoopCache) Close() error { return nil }

var _ Cache = NoopCache{}
