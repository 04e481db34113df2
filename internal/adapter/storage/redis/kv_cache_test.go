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

func TestKVCache_SetAndGet(t *testing.T) {
	s := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: s.Addr()})
	cache := NewKVCache(client)
	ctx := context.Background()

	key := ports.KeyProduct("MTNVTU")
	value := []byte(`{"product_code":"MTNVTU","is_active":true}`)

	// Get before set => nil
	result, err := cache.Get(ctx, key)
	assert.NoError(t, err)
	assert.Nil(t, result)

	// Set
	err = cache.Set(ctx, key, value, time.Hour)
	require.NoError(t, err)

	// Get after set
	result, err = cache.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, value, result)
}

func TestKVCache_TTLExpiry(t *testing.T) {
	s := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: s.Addr()})
	cache := NewKVCache(client)
	ctx := context.Background()

	key := ports.KeyMerchantAuth("2400001")
	err := cache.Set(ctx, key, []byte(`{"id":42}`), 5*time.Minute)
	require.NoError(t, err)

	// Fast-forward time in miniredis
	s.FastForward(6 * time.Minute)

	result, err := cache.Get(ctx, key)
	assert.NoError(t, err)
	assert.Nil(t, result, "expired key should return nil")
}

func TestKVCache_Delete(t *testing.T) {
	s := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: s.Addr()})
	cache := NewKVCache(client)
	ctx := context.Background()

	key := ports.KeyDataBundles("MTNDATA", "MTN")
	err := cache.Set(ctx, key, []byte(`[]`), time.Hour)
	require.NoError(t, err)

	err = cache.Delete(ctx, key)
	require.NoError(t, err)

	result, err := cache.Get(ctx, key)
	assert.NoError(t, err)
	assert.Nil(t, result)

	// Deleting an absent key is fine
	assert.NoError(t, cache.Delete(ctx, key))
}
