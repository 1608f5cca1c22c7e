package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func countingFetch(calls *int, value string) func(ctx context.Context) (string, error) {
	return func(ctx context.Context) (string, error) {
		*calls++
		return value, nil
	}
}

func TestCache_FreshnessRoundTrip(t *testing.T) {
	clock := &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := New[string]("test", WithClock(clock.Now))
	ctx := context.Background()
	window := 300_000 * time.Millisecond

	calls := 0
	fetch := countingFetch(&calls, "payload")

	got, err := c.GetOrFetch(ctx, "X", window, fetch)
	require.NoError(t, err)
	assert.Equal(t, "payload", got)

	clock.Advance(299_999 * time.Millisecond)
	got, err = c.GetOrFetch(ctx, "X", window, fetch)
	require.NoError(t, err)
	assert.Equal(t, "payload", got)
	assert.Equal(t, 1, calls)

	clock.Advance(2 * time.Millisecond) // 300_001ms after the first fill
	_, err = c.GetOrFetch(ctx, "X", window, fetch)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestCache_BoundaryIsStale(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	c := New[int]("test", WithClock(clock.Now))
	ctx := context.Background()

	calls := 0
	fetch := func(ctx context.Context) (int, error) {
		calls++
		return calls, nil
	}

	_, _ = c.GetOrFetch(ctx, "k", time.Minute, fetch)
	clock.Advance(time.Minute)
	got, err := c.GetOrFetch(ctx, "k", time.Minute, fetch)

	require.NoError(t, err)
	assert.Equal(t, 2, got)
}

func TestCache_KeysAreIndependent(t *testing.T) {
	c := New[string]("test")
	ctx := context.Background()

	calls := 0
	_, _ = c.GetOrFetch(ctx, "BTC", time.Minute, countingFetch(&calls, "btc"))
	got, _ := c.GetOrFetch(ctx, "global", time.Minute, countingFetch(&calls, "global"))

	assert.Equal(t, "global", got)
	assert.Equal(t, 2, calls)
	assert.Equal(t, 2, c.Len())
}

func TestCache_FetchErrorLeavesEntryUntouched(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	c := New[string]("test", WithClock(clock.Now))
	ctx := context.Background()
	boom := errors.New("upstream down")

	_, err := c.GetOrFetch(ctx, "miss", time.Minute, func(ctx context.Context) (string, error) {
		return "", boom
	})
	assert.ErrorIs(t, err, boom)
	_, ok := c.Get("miss")
	assert.False(t, ok)

	_, err = c.GetOrFetch(ctx, "stale", time.Minute, func(ctx context.Context) (string, error) {
		return "old", nil
	})
	require.NoError(t, err)
	filledAt := clock.Now()

	clock.Advance(2 * time.Minute)
	_, err = c.GetOrFetch(ctx, "stale", time.Minute, func(ctx context.Context) (string, error) {
		return "", boom
	})
	assert.ErrorIs(t, err, boom)

	entry, ok := c.Get("stale")
	require.True(t, ok)
	assert.Equal(t, "old", entry.Data)
	assert.Equal(t, filledAt, entry.LastUpdated)
}

func TestCache_Capacity(t *testing.T) {
	c := New[int]("test", WithCapacity(2))
	ctx := context.Background()

	for i, key := range []string{"a", "b", "c"} {
		v := i
		_, _ = c.GetOrFetch(ctx, key, time.Minute, func(ctx context.Context) (int, error) { return v, nil })
	}

	assert.Equal(t, 2, c.Len())
	_, ok := c.Get("a")
	assert.False(t, ok)
}

func TestIsFresh(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)

	tests := []struct {
		name    string
		updated time.Time
		want    bool
	}{
		{name: "zero time", updated: time.Time{}, want: false},
		{name: "just written", updated: now, want: true},
		{name: "inside window", updated: now.Add(-4 * time.Minute), want: true},
		{name: "at window", updated: now.Add(-5 * time.Minute), want: false},
		{name: "past window", updated: now.Add(-time.Hour), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsFresh(tt.updated, DefaultFreshnessWindow, now))
		})
	}
}
