package limits

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestLimiter(t *testing.T) (*RateLimiter, *miniredis.Miniredis, func()) {
	t.Helper()
	server, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	limiter := NewRateLimiter(client)
	fixed := time.Date(2026, 3, 1, 12, 0, 30, 0, time.UTC)
	limiter.now = func() time.Time { return fixed }
	cleanup := func() {
		client.Close()
		server.Close()
	}
	return limiter, server, cleanup
}

func TestRateLimiterAllowEnforcesParallel(t *testing.T) {
	limiter, _, cleanup := newTestLimiter(t)
	defer cleanup()

	ctx := context.Background()
	cfg := LimitConfig{ParallelRequests: 1}
	key := "parallel:test"

	if err := limiter.Allow(ctx, key, cfg); err != nil {
		t.Fatalf("first request should pass: %v", err)
	}
	if err := limiter.Allow(ctx, key, cfg); err != ErrLimitExceeded {
		t.Fatalf("expected parallel limit error, got %v", err)
	}
	limiter.Release(ctx, key, cfg)
	if err := limiter.Allow(ctx, key, cfg); err != nil {
		t.Fatalf("request after release should pass: %v", err)
	}
}

func TestRateLimiterAllowEnforcesRPM(t *testing.T) {
	limiter, _, cleanup := newTestLimiter(t)
	defer cleanup()

	ctx := context.Background()
	cfg := LimitConfig{RequestsPerMinute: 2}
	key := "rpm:test"

	if err := limiter.Allow(ctx, key, cfg); err != nil {
		t.Fatalf("first request should pass: %v", err)
	}
	if err := limiter.Allow(ctx, key, cfg); err != nil {
		t.Fatalf("second request should pass: %v", err)
	}
	if err := limiter.Allow(ctx, key, cfg); err != ErrLimitExceeded {
		t.Fatalf("expected rpm limit error, got %v", err)
	}
}

func TestAcquireReleasesOnce(t *testing.T) {
	limiter, server, cleanup := newTestLimiter(t)
	defer cleanup()

	ctx := context.Background()
	cfg := LimitConfig{ParallelRequests: 2}

	release, err := limiter.Acquire(ctx, "client:10.0.0.1", cfg)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	release()
	release()

	got, err := server.Get("sem:client:10.0.0.1")
	if err != nil {
		t.Fatalf("read semaphore: %v", err)
	}
	if got != "0" {
		t.Fatalf("expected semaphore back to 0, got %s", got)
	}
}

func TestAcquireBlocksWhenTokensExhausted(t *testing.T) {
	limiter, _, cleanup := newTestLimiter(t)
	defer cleanup()

	ctx := context.Background()
	cfg := LimitConfig{TokensPerMinute: 10}
	key := "client:tokens"

	if _, err := limiter.Acquire(ctx, key, cfg); err != nil {
		t.Fatalf("fresh window should pass: %v", err)
	}
	if err := limiter.ChargeTokens(ctx, key, 6, cfg); err != nil {
		t.Fatalf("charge: %v", err)
	}
	if _, err := limiter.Acquire(ctx, key, cfg); err != nil {
		t.Fatalf("window below budget should pass: %v", err)
	}
	if err := limiter.ChargeTokens(ctx, key, 6, cfg); err != nil {
		t.Fatalf("overrun is still recorded: %v", err)
	}
	if _, err := limiter.Acquire(ctx, key, cfg); err != ErrLimitExceeded {
		t.Fatalf("expected token limit error, got %v", err)
	}
}

func TestNilLimiterAllowsEverything(t *testing.T) {
	var limiter *RateLimiter
	release, err := limiter.Acquire(context.Background(), "k", LimitConfig{RequestsPerMinute: 1})
	if err != nil {
		t.Fatalf("nil limiter should allow: %v", err)
	}
	release()

	limiter = NewRateLimiter(nil)
	if err := limiter.ChargeTokens(context.Background(), "k", 10, LimitConfig{TokensPerMinute: 1}); err != nil {
		t.Fatalf("limiter without client should be a no-op: %v", err)
	}
}
