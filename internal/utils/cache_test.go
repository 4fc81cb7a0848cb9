package utils

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func TestJSONCacheExpiry(t *testing.T) {
	mr, rdb := newTestRedis(t)
	ctx := context.Background()
	cache := NewJSONCache(rdb, "admin:users:", time.Minute)

	type page struct {
		Names []string `json:"names"`
		Total int      `json:"total"`
	}
	require.NoError(t, cache.Put(ctx, "page=1", page{Names: []string{"a"}, Total: 1}))
	assert.True(t, mr.Exists("admin:users:page=1"))

	var got page
	found, err := cache.Get(ctx, "page=1", &got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, 1, got.Total)

	mr.FastForward(2 * time.Minute)
	found, err = cache.Get(ctx, "page=1", &got)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestJSONCacheUndecodableEntry(t *testing.T) {
	mr, rdb := newTestRedis(t)
	cache := NewJSONCache(rdb, "admin:users:", time.Minute)
	require.NoError(t, mr.Set("admin:users:page=1", "{not json"))

	var got map[string]any
	found, err := cache.Get(context.Background(), "page=1", &got)
	assert.Error(t, err)
	assert.False(t, found)
}

func TestJSONCacheFlush(t *testing.T) {
	mr, rdb := newTestRedis(t)
	ctx := context.Background()
	cache := NewJSONCache(rdb, "admin:users:", time.Minute)

	require.NoError(t, cache.Put(ctx, "page=1", 1))
	require.NoError(t, cache.Put(ctx, "page=2", 2))
	require.NoError(t, mr.Set("other:key", "x"))

	n, err := cache.Flush(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.False(t, mr.Exists("admin:users:page=1"))
	assert.False(t, mr.Exists("admin:users:page=2"))
	assert.True(t, mr.Exists("other:key"))

	n, err = cache.Flush(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestJSONCacheRedisDown(t *testing.T) {
	mr, rdb := newTestRedis(t)
	cache := NewJSONCache(rdb, "admin:users:", time.Minute)
	mr.Close()

	var got int
	_, err := cache.Get(context.Background(), "page=1", &got)
	assert.Error(t, err)
	assert.Error(t, cache.Put(context.Background(), "page=1", 1))
}
