package limits

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

var ErrLimitExceeded = errors.New("rate limit exceeded")

type LimitConfig struct {
	RequestsPerMinute int
	TokensPerMinute   int
	ParallelRequests  int
}

// Enabled reports whether any limit is configured.
func (c LimitConfig) Enabled() bool {
	return c.RequestsPerMinute > 0 || c.TokensPerMinute > 0 || c.ParallelRequests > 0
}

// RateLimiter enforces fixed-window and concurrency limits in redis. A nil
// limiter, or one without a client, allows everything.
type RateLimiter struct {
	client *redis.Client
	now    func() time.Time
}

func NewRateLimiter(client *redis.Client) *RateLimiter {
	return &RateLimiter{client: client, now: time.Now}
}

// Acquire checks the request window, the token window and the concurrency
// slot for key. The returned release func is safe to call more than once.
func (l *RateLimiter) Acquire(ctx context.Context, key string, cfg LimitConfig) (func(), error) {
	noop := func() {}
	if l == nil || l.client == nil || !cfg.Enabled() {
		return noop, nil
	}
	if cfg.TokensPerMinute > 0 {
		exhausted, err := l.TokensExhausted(ctx, key, cfg)
		if err != nil {
			return noop, err
		}
		if exhausted {
			return noop, ErrLimitExceeded
		}
	}
	if err := l.Allow(ctx, key, cfg); err != nil {
		return noop, err
	}
	var once sync.Once
	return func() {
		once.Do(func() {
			l.Release(context.WithoutCancel(ctx), key, cfg)
		})
	}, nil
}

func (l *RateLimiter) Allow(ctx context.Context, key string, cfg LimitConfig) error {
	if l == nil || l.client == nil {
		return nil
	}

	if cfg.RequestsPerMinute > 0 {
		if err := l.countCheck(ctx, fmt.Sprintf("rpm:%s", key), time.Minute, cfg.RequestsPerMinute); err != nil {
			return err
		}
	}
	if cfg.ParallelRequests > 0 {
		if err := l.semaphoreAcquire(ctx, fmt.Sprintf("sem:%s", key), cfg.ParallelRequests); err != nil {
			return err
		}
	}

	return nil
}

func (l *RateLimiter) Release(ctx context.Context, key string, cfg LimitConfig) {
	if l == nil || l.client == nil {
		return
	}
	if cfg.ParallelRequests > 0 {
		l.semaphoreRelease(ctx, fmt.Sprintf("sem:%s", key))
	}
}

func (l *RateLimiter) countCheck(ctx context.Context, key string, ttl time.Duration, limit int) error {
	window := l.now().UTC().Unix() / int64(ttl.Seconds())
	redisKey := fmt.Sprintf("%s:%d", key, window)

	cnt, err := l.client.Incr(ctx, redisKey).Result()
	if err != nil {
		return err
	}
	if cnt == 1 {
		l.client.Expire(ctx, redisKey, ttl)
	}
	if int(cnt) > limit {
		return ErrLimitExceeded
	}
	return nil
}

func (l *RateLimiter) semaphoreAcquire(ctx context.Context, key string, max int) error {
	ttl := 5 * time.Minute
	cnt, err := l.client.Incr(ctx, key).Result()
	if err != nil {
		return err
	}
	if cnt == 1 {
		l.client.Expire(ctx, key, ttl)
	}
	if int(cnt) > max {
		l.client.Decr(ctx, key)
		return ErrLimitExceeded
	}
	return nil
}

func (l *RateLimiter) semaphoreRelease(ctx context.Context, key string) {
	l.client.Decr(ctx, key)
}

func (l *RateLimiter) tokenKey(key string) string {
	return fmt.Sprintf("tpm:%s:%d", key, l.now().UTC().Unix()/60)
}

// TokensExhausted reports whether the current minute already used the
// configured token budget.
func (l *RateLimiter) TokensExhausted(ctx context.Context, key string, cfg LimitConfig) (bool, error) {
	if l == nil || l.client == nil || cfg.TokensPerMinute <= 0 {
		return false, nil
	}
	used, err := l.client.Get(ctx, l.tokenKey(key)).Int64()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return used >= int64(cfg.TokensPerMinute), nil
}

// ChargeTokens records usage after a successful upstream call. Usage is
// always recorded; the overrun is enforced on the next Acquire.
func (l *RateLimiter) ChargeTokens(ctx context.Context, key string, tokens int, cfg LimitConfig) error {
	if l == nil || l.client == nil || cfg.TokensPerMinute <= 0 || tokens <= 0 {
		return nil
	}
	redisKey := l.tokenKey(key)
	used, err := l.client.IncrBy(ctx, redisKey, int64(tokens)).Result()
	if err != nil {
		return err
	}
	if used == int64(tokens) {
		l.client.Expire(ctx, redisKey, time.Minute)
	}
	return nil
}
