// Package cache holds upstream responses for a bounded freshness window.
//
// A Cache is built once at startup and handed to every consumer. It lives for
// the lifetime of the process and is never persisted, so a restart starts cold.
//
// Two concurrent misses on the same key may both call their fetch function.
// Both results are valid snapshots; the last write wins.
package cache

import (
	"context"
	"time"

	"github.com/jellydator/ttlcache/v3"

	"github.com/songzhibin97/alertflux/internal/observability"
)

// DefaultFreshnessWindow is how long a cached upstream response is served.
const DefaultFreshnessWindow = 5 * time.Minute

// Entry is a cached payload and the time it was fetched.
type Entry[T any] struct {
	Data        T
	LastUpdated time.Time
}

// Cache maps a cache key (ticker symbol, "global", ...) to its latest Entry.
type Cache[T any] struct {
	name    string
	items   *ttlcache.Cache[string, Entry[T]]
	now     func() time.Time
	metrics *observability.Metrics
}

type options struct {
	capacity uint64
	now      func() time.Time
	metrics  *observability.Metrics
}

type Option func(*options)

// WithCapacity bounds the number of keys; the least recently used key is evicted.
func WithCapacity(n uint64) Option {
	return func(o *options) {
		o.capacity = n
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

func WithMetrics(m *observability.Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// New creates an empty cache. name labels its metrics.
func New[T any](name string, opts ...Option) *Cache[T] {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	var ttlOpts []ttlcache.Option[string, Entry[T]]
	if o.capacity > 0 {
		ttlOpts = append(ttlOpts, ttlcache.WithCapacity[string, Entry[T]](o.capacity))
	}

	return &Cache[T]{
		name:    name,
		items:   ttlcache.New[string, Entry[T]](ttlOpts...),
		now:     o.now,
		metrics: o.metrics,
	}
}

// IsFresh reports whether an entry updated at updated is still inside window at now.
func IsFresh(updated time.Time, window time.Duration, now time.Time) bool {
	if updated.IsZero() {
		return false
	}
	return now.Sub(updated) < window
}

// GetOrFetch returns the cached data for key while it is fresh. Otherwise it
// calls fetch, stores the result stamped with the current time and returns it.
// A fetch error is returned as is and leaves the cache untouched.
func (c *Cache[T]) GetOrFetch(ctx context.Context, key string, window time.Duration, fetch func(ctx context.Context) (T, error)) (T, error) {
	if entry, ok := c.Get(key); ok && IsFresh(entry.LastUpdated, window, c.now()) {
		c.metrics.CacheHit(c.name)
		return entry.Data, nil
	}
	c.metrics.CacheMiss(c.name)

	data, err := fetch(ctx)
	if err != nil {
		var zero T
		return zero, err
	}

	c.items.Set(key, Entry[T]{Data: data, LastUpdated: c.now()}, ttlcache.NoTTL)
	return data, nil
}

// Get returns the stored entry for key regardless of its age.
func (c *Cache[T]) Get(key string) (Entry[T], bool) {
	item := c.items.Get(key)
	if item == nil {
		return Entry[T]{}, false
	}
	return item.Value(), true
}

// Len returns the number of stored keys.
func (c *Cache[T]) Len() int {
	return c.items.Len()
}
