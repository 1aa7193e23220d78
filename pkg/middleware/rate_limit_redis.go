package middleware

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/emojiforge/emojiforge/backend/go-services/pkg/logger"
	"github.com/emojiforge/emojiforge/backend/go-services/pkg/metrics"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// RedisRateLimitMiddleware counts requests per subject in fixed windows shared
// by every replica. A window admits floor(rps*window)+burst requests. When
// Redis cannot be reached the request is judged by the in-process limiter.
func RedisRateLimitMiddleware(client *redis.Client, rps float64, burst int, window time.Duration) gin.HandlerFunc {
	local := RateLimitMiddleware(rps, burst)
	if client == nil {
		return local
	}
	secs := int64(window / time.Second)
	if secs <= 0 {
		secs = 1
	}
	quota := int64(rps*float64(secs)) + int64(burst)

	return func(c *gin.Context) {
		ctx := c.Request.Context()
		key := fmt.Sprintf("rl:%s:%s:%d", c.FullPath(), limitKey(c), time.Now().Unix()/secs)

		pipe := client.TxPipeline()
		incr := pipe.Incr(ctx, key)
		pipe.Expire(ctx, key, time.Duration(secs+1)*time.Second)
		if _, err := pipe.Exec(ctx); err != nil {
			logger.Warnf("rate limit: redis unavailable, using local limiter: %v", err)
			local(c)
			return
		}

		used := incr.Val()
		c.Header("X-RateLimit-Limit", strconv.FormatInt(quota, 10))
		if used > quota {
			c.Header("Retry-After", strconv.FormatInt(secs, 10))
			metrics.RateLimitRejected.WithLabelValues("redis").Inc()
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Rate limit exceeded"})
			return
		}
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(quota-used, 10))
		metrics.RateLimitAllowed.WithLabelValues("redis").Inc()
		c.Next()
	}
}
