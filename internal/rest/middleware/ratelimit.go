package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/dinematters/dinematters/internal/config"
)

// RateLimitMiddleware bounds the webhook intake path. The gateway retries
// rejected deliveries with backoff, and dedup makes redelivery safe.
func RateLimitMiddleware(cfg *config.Configuration) gin.HandlerFunc {
	limiter := rate.NewLimiter(
		rate.Limit(cfg.Webhook.RateLimitPerSec),
		cfg.Webhook.RateLimitBurst,
	)

	return func(c *gin.Context) {
		if !limiter.Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"success": false,
				"error":   "rate limit exceeded",
			})
			return
		}
		c.Next()
	}
}
