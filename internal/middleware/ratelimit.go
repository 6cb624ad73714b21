package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"gamehub-chat/internal/observability"
	"gamehub-chat/internal/ratelimit"
)

// RateLimitMiddleware rejects requests over the per-IP budget with 429.
func RateLimitMiddleware(limiter *ratelimit.Limiter, rule ratelimit.Rule) gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := observability.IPFromRequest(c.Request)
		if !limiter.Allow(ip, rule) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}
		c.Next()
	}
}
