package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// KVCache implements ports.KVCache using Redis. It backs the catalog and
// merchant-auth read-through caches.
type KVCache struct {
	client *goredis.Client
}

// NewKVCache creates a new Redis-backed key-value cache.
func NewKVCache(client *goredis.Client) *KVCache {
	return &KVCache{client: client}
}

// Get retrieves a cached value. Returns nil, nil if the key does not exist.
func (c *KVCache) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == goredis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("redis cache get: %w", err)
	}
	return val, nil
}

// Set stores a value with TTL.
func (c *KVCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := c.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("redis cache set: %w", err)
	}
	return nil
}

// Delete removes a key. Deleting an absent key is not an error.
func (c *KVCache) Delete(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis cache delete: %w", err)
	}
	return nil
}
