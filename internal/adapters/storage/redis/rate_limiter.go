package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"bundle-storefront/internal/core/ports"
)

// RateLimiterAdapter counts requests per client in fixed Redis windows.
type RateLimiterAdapter struct {
	rdb *redis.Client
}

func NewRateLimiterAdapter(rdb *redis.Client) *RateLimiterAdapter {
	return &RateLimiterAdapter{rdb: rdb}
}

func rateLimitKey(client string) string {
	return keyPrefix + "ratelimit:" + client
}

// Allow increments the client's counter. The window starts with the first request
// and the key's remaining TTL is reported back as RetryAfter once the limit is hit.
func (a *RateLimiterAdapter) Allow(ctx context.Context, client string, limit int, window time.Duration) (ports.RateLimitDecision, error) {
	key := rateLimitKey(client)

	pipe := a.rdb.Pipeline()
	incr := pipe.Incr(ctx, key)
	pttl := pipe.PTTL(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil {
		return ports.RateLimitDecision{}, fmt.Errorf("redis rate limit count failed: %w", err)
	}

	count := incr.Val()
	ttl := pttl.Val()
	// No expiry yet: first request of the window, or an earlier EXPIRE was lost.
	if ttl < 0 {
		if err := a.rdb.PExpire(ctx, key, window).Err(); err != nil {
			return ports.RateLimitDecision{}, fmt.Errorf("redis EXPIRE failed: %w", err)
		}
		ttl = window
	}

	decision := ports.RateLimitDecision{
		Allowed:   count <= int64(limit),
		Remaining: max(limit-int(count), 0),
	}
	if !decision.Allowed {
		decision.RetryAfter = ttl
	}
	return decision, nil
}
