package utils

import (
	"context"       // Context for Redis operations
	"encoding/json" // Cached documents are JSON
	"errors"        // Error comparison
	"time"          // Time durations

	"github.com/redis/go-redis/v9" // Redis client
)

// scanBatch is the SCAN hint used when flushing a namespace
const scanBatch = 100

// JSONCache keeps JSON documents in Redis under one key namespace, so a
// whole family of entries can be dropped at once
type JSONCache struct {
	rdb    *redis.Client // Redis connection
	prefix string        // Namespace, e.g. "admin:users:"
	ttl    time.Duration // Lifetime of every entry
}

// NewJSONCache returns a cache storing entries under prefix for ttl
func NewJSONCache(rdb *redis.Client, prefix string, ttl time.Duration) *JSONCache {
	return &JSONCache{rdb: rdb, prefix: prefix, ttl: ttl}
}

// Key returns the Redis key of an entry
func (c *JSONCache) Key(name string) string { return c.prefix + name }

// Get decodes the entry into dest and reports whether it was present
func (c *JSONCache) Get(ctx context.Context, name string, dest any) (bool, error) {
	raw, err := c.rdb.Get(ctx, c.Key(name)).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		return false, nil // Miss
	case err != nil:
		return false, err
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return false, err // Stale shape, treat as unusable
	}
	return true, nil
}

// Put stores value as an entry
func (c *JSONCache) Put(ctx context.Context, name string, value any) error {
	b, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, c.Key(name), b, c.ttl).Err()
}

// Flush deletes every entry of the namespace and returns how many were removed
func (c *JSONCache) Flush(ctx context.Context) (int, error) {
	iter := c.rdb.Scan(ctx, 0, c.prefix+"*", scanBatch).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return 0, err
	}
	if len(keys) == 0 {
		return 0, nil
	}
	n, err := c.rdb.Del(ctx, keys...).Result()
	return int(n), err
}
