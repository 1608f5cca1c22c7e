package storage

import (
	"context"
	"sync"
	"time"

	"github.com/songzhibin97/alertflux/internal/data"
)

type memoryItem struct {
	marker    string
	expiresAt time.Time // zero => never
}

// MemoryStorage is a process local dedup store. Its markers do not survive a restart.
type MemoryStorage struct {
	mu    sync.RWMutex
	items map[string]memoryItem
	now   func() time.Time
}

func NewMemoryStorage(opts ...Option) *MemoryStorage {
	o := newOptions(opts)
	return &MemoryStorage{
		items: make(map[string]memoryItem),
		now:   o.now,
	}
}

func (m *MemoryStorage) Get(ctx context.Context, key string) (string, bool, error) {
	if key == "" {
		return "", false, data.ErrInvalidKey
	}

	m.mu.RLock()
	item, ok := m.items[key]
	m.mu.RUnlock()

	if !ok || m.expired(item) {
		return "", false, nil
	}
	return item.marker, true, nil
}

func (m *MemoryStorage) Put(ctx context.Context, key, marker string, ttl time.Duration) error {
	if key == "" {
		return data.ErrInvalidKey
	}

	item := memoryItem{marker: marker}
	if ttl > 0 {
		item.expiresAt = m.now().Add(ttl)
	}

	m.mu.Lock()
	m.items[key] = item
	m.mu.Unlock()
	return nil
}

func (m *MemoryStorage) PurgeExpired(ctx context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var n int64
	for key, item := range m.items {
		if m.expired(item) {
			delete(m.items, key)
			n++
		}
	}
	return n, nil
}

// Len returns the number of stored markers, expired ones included.
func (m *MemoryStorage) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.items)
}

func (m *MemoryStorage) expired(item memoryItem) bool {
	return !item.expiresAt.IsZero() && !m.now().Before(item.expiresAt)
}
