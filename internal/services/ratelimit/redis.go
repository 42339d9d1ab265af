package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore is a Store backed by Redis, for deployments with more than one
// API replica. Each window is a single counter key: INCR provides the atomic
// increment-and-check and a NX expiry pins the fixed window boundary to the
// first request.
type RedisStore struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedisStore creates a RedisStore using the provided client.
func NewRedisStore(client *redis.Client, keyPrefix string) *RedisStore {
	if keyPrefix == "" {
		keyPrefix = "ratelimit"
	}
	return &RedisStore{client: client, keyPrefix: keyPrefix}
}

// Increment implements Store.
func (r *RedisStore) Increment(ctx context.Context, key string, window time.Duration) (int, error) {
	storageKey := fmt.Sprintf("%s:%s", r.keyPrefix, key)

	pipe := r.client.TxPipeline()
	incr := pipe.Incr(ctx, storageKey)
	pipe.ExpireNX(ctx, storageKey, window)

	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("redis incr: %w", err)
	}

	return int(incr.Val()), nil
}
