// Package storage provides the dedup store drivers: memory, postgres and redis.
package storage

import (
	"time"

	"github.com/songzhibin97/alertflux/internal/data"
)

var (
	_ data.DedupStore = (*MemoryStorage)(nil)
	_ data.DedupStore = (*PostgresStorage)(nil)
	_ data.DedupStore = (*RedisStorage)(nil)

	_ data.Purger = (*MemoryStorage)(nil)
	_ data.Purger = (*PostgresStorage)(nil)
)

type options struct {
	now func() time.Time
}

type Option func(*options)

// WithClock overrides time.Now for expiry decisions. Redis keeps its own clock.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

func newOptions(opts []Option) options {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
