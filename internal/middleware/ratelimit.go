package middleware

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/glowspace/glowspace-backend/pkg/clientip"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	// RateLimitWindow is the fixed window for the shared limiter.
	RateLimitWindow = 60 * time.Second
	// RateLimitMaxRequests is the maximum number of requests per IP in the window.
	RateLimitMaxRequests = 300
	// RateLimitKeyPrefix is the Redis key prefix for rate limiting.
	RateLimitKeyPrefix = "ratelimit:"
)

// RedisRateLimit is a fixed-window per-IP limiter shared by every instance
// through Redis. It fails open when Redis is unavailable or rdb is nil.
func RedisRateLimit(rdb *redis.Client, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if rdb == nil {
				next.ServeHTTP(w, r)
				return
			}

			ctx, cancel := context.WithTimeout(r.Context(), 500*time.Millisecond)
			defer cancel()

			key := RateLimitKeyPrefix + clientip.RealClientIP(r)
			var count *redis.IntCmd
			_, err := rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				count = pipe.Incr(ctx, key)
				pipe.ExpireNX(ctx, key, RateLimitWindow)
				return nil
			})
			if err != nil {
				logger.Warn("redis rate limit unavailable", zap.Error(err))
				next.ServeHTTP(w, r)
				return
			}

			n := int(count.Val())
			remaining := RateLimitMaxRequests - n
			if remaining < 0 {
				remaining = 0
			}
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(RateLimitMaxRequests))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))

			if n > RateLimitMaxRequests {
				w.Header().Set("Retry-After", strconv.Itoa(int(RateLimitWindow.Seconds())))
				tooManyRequests(w, "Rate limit exceeded. Please try again later.")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
