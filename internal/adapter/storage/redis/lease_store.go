package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// LeaseStore implements ports.LeaseStore using Redis SET NX. A lease keeps
// concurrent requery workers off the same transaction.
type LeaseStore struct {
	client *goredis.Client
}

// NewLeaseStore creates a new Redis-backed lease store.
func NewLeaseStore(client *goredis.Client) *LeaseStore {
	return &LeaseStore{client: client}
}

// Acquire attempts to take the lease. Returns true if the caller now holds
// it, false if someone else already does.
func (s *LeaseStore) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := s.client.SetNX(ctx, key, 1, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis lease acquire: %w", err)
	}
	return ok, nil
}

// Release drops the lease early. The TTL covers the crash case.
func (s *LeaseStore) Release(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis lease release: %w", err)
	}
	return nil
}
