package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/songzhibin97/alertflux/internal/data"
)

// RedisStorage implements data.DedupStore with SET/GET. Expiry is left to redis.
type RedisStorage struct {
	client *redis.Client
	prefix string
}

func NewRedisStorage(ctx context.Context, opts *redis.Options, prefix string) (*RedisStorage, error) {
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return NewRedisStorageWithClient(client, prefix), nil
}

func NewRedisStorageWithClient(client *redis.Client, prefix string) *RedisStorage {
	return &RedisStorage{client: client, prefix: prefix}
}

func (r *RedisStorage) Get(ctx context.Context, key string) (string, bool, error) {
	if key == "" {
		return "", false, data.ErrInvalidKey
	}

	marker, err := r.client.Get(ctx, r.prefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get marker: %w", err)
	}
	return marker, true, nil
}

func (r *RedisStorage) Put(ctx context.Context, key, marker string, ttl time.Duration) error {
	if key == "" {
		return data.ErrInvalidKey
	}
	if ttl < 0 {
		ttl = data.NoExpiry
	}

	// zero expiration keeps the key forever
	if err := r.client.Set(ctx, r.prefix+key, marker, ttl).Err(); err != nil {
		return fmt.Errorf("failed to put marker: %w", err)
	}
	return nil
}

func (r *RedisStorage) Close() error {
	return r.client.Close()
}
