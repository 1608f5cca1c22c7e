package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/songzhibin97/alertflux/internal/data"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time { return c.t }

func TestMemoryStorage_GetPut(t *testing.T) {
	store := NewMemoryStorage()
	ctx := context.Background()

	_, found, err := store.Get(ctx, "token-1")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, store.Put(ctx, "token-1", "1", data.NoExpiry))

	marker, found, err := store.Get(ctx, "token-1")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "1", marker)
}

func TestMemoryStorage_TTLBoundary(t *testing.T) {
	start := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	ctx := context.Background()

	tests := []struct {
		name      string
		elapsed   time.Duration
		wantFound bool
	}{
		{name: "T+3599s present", elapsed: 3599 * time.Second, wantFound: true},
		{name: "T+3600s expired", elapsed: 3600 * time.Second, wantFound: false},
		{name: "T+3601s absent", elapsed: 3601 * time.Second, wantFound: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clock := &fakeClock{t: start}
			store := NewMemoryStorage(WithClock(clock.Now))

			require.NoError(t, store.Put(ctx, "sig", "1", time.Hour))
			clock.t = start.Add(tt.elapsed)

			_, found, err := store.Get(ctx, "sig")
			require.NoError(t, err)
			assert.Equal(t, tt.wantFound, found)
		})
	}
}

func TestMemoryStorage_PermanentMarker(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	store := NewMemoryStorage(WithClock(clock.Now))
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "mint", "1", data.NoExpiry))
	clock.t = clock.t.Add(10 * 365 * 24 * time.Hour)

	_, found, err := store.Get(ctx, "mint")
	require.NoError(t, err)
	assert.True(t, found)
}

func TestMemoryStorage_PurgeExpired(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	store := NewMemoryStorage(WithClock(clock.Now))
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "a", "1", time.Minute))
	require.NoError(t, store.Put(ctx, "b", "1", time.Hour))
	require.NoError(t, store.Put(ctx, "c", "1", data.NoExpiry))

	clock.t = clock.t.Add(2 * time.Minute)
	n, err := store.PurgeExpired(ctx)

	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.Equal(t, 2, store.Len())
}

func TestMemoryStorage_EmptyKey(t *testing.T) {
	store := NewMemoryStorage()
	ctx := context.Background()

	_, _, err := store.Get(ctx, "")
	assert.ErrorIs(t, err, data.ErrInvalidKey)
	assert.ErrorIs(t, store.Put(ctx, "", "1", 0), data.ErrInvalidKey)
}
