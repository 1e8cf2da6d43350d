package rediscache

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// RateLimiter counts calls per key in fixed windows.
type RateLimiter struct {
	c   *redis.Client
	now func() time.Time
}

func NewRateLimiter(c *redis.Client) *RateLimiter {
	return &RateLimiter{c: c, now: time.Now}
}

// Allow increments the counter of the current window for key and reports whether
// it is still within limit, plus the count so far.
func (rl *RateLimiter) Allow(ctx context.Context, key string, limit int64, window time.Duration) (bool, int64, error) {
	if window <= 0 {
		window = time.Minute
	}
	slot := rl.now().UTC().UnixNano() / int64(window)
	fullKey := fmt.Sprintf("rl:%s:%d", key, slot)

	pipe := rl.c.TxPipeline()
	incr := pipe.Incr(ctx, fullKey)
	pipe.Expire(ctx, fullKey, window+10*time.Second)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, 0, errors.Wrap(err, "redis ratelimit")
	}
	n := incr.Val()
	return n <= limit, n, nil
}
