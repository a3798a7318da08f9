// Package ratelimit implements a fixed-window request limiter backed by
// Redis. Counter errors fail open so a Redis outage never blocks
// registrations.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/minhhungle-offical/chua-dieu-phap-server/pkg/logger"
)

type Limiter struct {
	client redis.UniversalClient
	limit  int
	window time.Duration
}

func New(client redis.UniversalClient, limit int, window time.Duration) *Limiter {
	if limit <= 0 {
		limit = 60
	}
	if window <= 0 {
		window = time.Minute
	}
	return &Limiter{client: client, limit: limit, window: window}
}

// Allow increments the counter for key's current window and reports
// whether the caller is still under the limit.
func (l *Limiter) Allow(ctx context.Context, key string) bool {
	bucket := time.Now().Unix() / int64(l.window.Seconds())
	redisKey := fmt.Sprintf("ratelimit:%s:%d", key, bucket)

	pipe := l.client.TxPipeline()
	incr := pipe.Incr(ctx, redisKey)
	pipe.Expire(ctx, redisKey, l.window)
	if _, err := pipe.Exec(ctx); err != nil {
		logger.Warn("rate limit counter unavailable, allowing request", "key", key, "error", err)
		return true
	}
	return incr.Val() <= int64(l.limit)
}
