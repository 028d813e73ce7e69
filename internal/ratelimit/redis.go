// internal/ratelimit/redis.go
package ratelimit

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisLimiter is a fixed-window rate limiter backed by Redis, for
// deployments running more than one instance behind a load balancer where
// per-process buckets would multiply the effective limit.
//
// It fails open: if Redis is unreachable the request is allowed, since
// throttling is protection, not a correctness requirement.
type RedisLimiter struct {
	client *redis.Client
	max    int
	window time.Duration
	log    *zap.Logger
}

// NewRedisLimiter creates a limiter allowing max requests per window per key.
func NewRedisLimiter(client *redis.Client, max int, window time.Duration, logger *zap.Logger) *RedisLimiter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisLimiter{
		client: client,
		max:    max,
		window: window,
		log:    logger,
	}
}

// Allow increments the key's window counter and reports whether the caller
// is within the limit. The window TTL is set when the counter is created.
func (rl *RedisLimiter) Allow(ctx context.Context, key string) bool {
	redisKey := "ratelimit:" + key

	pipe := rl.client.TxPipeline()
	incr := pipe.Incr(ctx, redisKey)
	pipe.ExpireNX(ctx, redisKey, rl.window)
	if _, err := pipe.Exec(ctx); err != nil {
		rl.log.Warn("redis rate limiter unavailable; allowing request", zap.Error(err))
		return true
	}

	return incr.Val() <= int64(rl.max)
}
