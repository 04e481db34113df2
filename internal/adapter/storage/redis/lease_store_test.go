package redis

import (
	"context"
	"testing"
	"time"

	"vas-gateway/internal/core/ports"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLeaseStore_AcquireOnce(t *testing.T) {
	s := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: s.Addr()})
	store := NewLeaseStore(client)
	ctx := context.Background()

	key := ports.KeyRequeryLease(1001)

	ok, err := store.Acquire(ctx, key, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok, "first acquire should win")

	ok, err = store.Acquire(ctx, key, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok, "second acquire should lose while the lease is held")
}

func TestLeaseStore_TTLExpiry(t *testing.T) {
	s := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: s.Addr()})
	store := NewLeaseStore(client)
	ctx := context.Background()

	key := ports.KeyRequeryLease(1002)

	ok, err := store.Acquire(ctx, key, time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	s.FastForward(2 * time.Minute)

	ok, err = store.Acquire(ctx, key, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok, "lease should be free after TTL expiry")
}

func TestLeaseStore_Release(t *testing.T) {
	s := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: s.Addr()})
	store := NewLeaseStore(client)
	ctx := context.Background()

	key := ports.KeyRequeryLease(1003)

	ok, err := store.Acquire(ctx, key, time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, store.Release(ctx, key))

	ok, err = store.Acquire(ctx, key, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok, "lease should be free after release")
}
