package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/redis/go-redis/v9"
)

// IdempotencyCache stores successful response envelopes keyed by the
// client-supplied Idempotency-Key. Without a redis client it stores nothing.
type IdempotencyCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewIdempotencyCache returns a cache whose entries expire after ttl
// (30 minutes when ttl is not positive).
func NewIdempotencyCache(client *redis.Client, ttl time.Duration) *IdempotencyCache {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &IdempotencyCache{client: client, ttl: ttl}
}

// Enabled reports whether replays can be served.
func (c *IdempotencyCache) Enabled() bool {
	return c != nil && c.client != nil
}

// Get returns the stored response body for key, if any.
func (c *IdempotencyCache) Get(ctx context.Context, key string) ([]byte, bool) {
	if !c.Enabled() || key == "" {
		return nil, false
	}
	data, err := c.client.Get(ctx, c.prefixed(key)).Bytes()
	if err != nil {
		return nil, false
	}
	return data, true
}

// Set stores value under key for the configured TTL.
func (c *IdempotencyCache) Set(ctx context.Context, key string, value []byte) {
	if !c.Enabled() || key == "" || len(value) == 0 {
		return
	}
	c.client.Set(ctx, c.prefixed(key), value, c.ttl)
}

// ScopedKey binds a client key to the route and caller so two endpoints, or
// two callers, reusing the same key never collide.
func ScopedKey(route, caller, key string) string {
	if key == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(route + "\x00" + caller + "\x00" + key))
	return hex.EncodeToString(sum[:])
}

func (c *IdempotencyCache) prefixed(key string) string {
	return "idem:" + key
}
