package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"

	"github.com/signalworks/email-delivery-service/internal/models"
)

const rateLimitKeyPrefix = "rate_limit:email_api:"

// RateLimitMiddleware enforces a fixed-window request budget per client IP.
// The counter lives in Redis so the budget holds across API replicas; the
// window starts at the client's first request and the key expires with it.
func RateLimitMiddleware(redisClient *redis.Client, limit int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := rateLimitKeyPrefix + c.ClientIP()

		count, err := redisClient.Incr(c, key).Result()
		if err != nil {
			// Throttling is protection, not a dependency: fail open rather
			// than taking the API down with Redis.
			c.Next()
			return
		}
		if count == 1 {
			redisClient.Expire(c, key, window)
		}

		if count > int64(limit) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, models.ResponseEnvelope{
				Message: "rate limit exceeded",
			})
			return
		}

		c.Next()
	}
}
