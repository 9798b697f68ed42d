package auth

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/samber/oops"
)

// Counter is the part of *redis.Client the rate limiter uses.
type Counter interface {
	Incr(ctx context.Context, key string) *redis.IntCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
	TTL(ctx context.Context, key string) *redis.DurationCmd
}

// RateLimiter is a fixed-window counter per scope and client key.
type RateLimiter struct {
	Redis    Counter
	Attempts int64
	Window   time.Duration
}

func (r *RateLimiter) key(scope, client string) string {
	return "ratelimit:" + scope + ":" + client
}

// Allow counts one attempt. When the window is exhausted it returns false
// and the time until the window resets.
func (r *RateLimiter) Allow(ctx context.Context, scope, client string) (bool, time.Duration, error) {
	key := r.key(scope, client)

	attempts, err := r.Redis.Incr(ctx, key).Result()
	if err != nil {
		return false, 0, oops.Code("RATE_LIMIT_FAILED").With("scope", scope).Wrap(err)
	}
	if attempts == 1 {
		if err := r.Redis.Expire(ctx, key, r.Window).Err(); err != nil {
			return false, 0, oops.Code("RATE_LIMIT_FAILED").With("scope", scope).Wrap(err)
		}
	}
	if attempts <= r.Attempts {
		return true, 0, nil
	}

	ttl, err := r.Redis.TTL(ctx, key).Result()
	if err != nil || ttl <= 0 {
		// A key without expiry would lock the client out for good.
		_ = r.Redis.Expire(ctx, key, r.Window).Err()
		ttl = r.Window
	}
	return false, ttl, nil
}
