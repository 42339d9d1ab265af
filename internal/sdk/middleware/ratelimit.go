package middleware

import (
	"log/slog"
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/philippebeck/links2code-api/internal/services/ratelimit"
)

// RateLimit rejects excess traffic from a single client IP before it
// reaches the validators or the store. A guard store outage fails open
// with a logged warning rather than blocking every client.
func RateLimit(guard *ratelimit.Guard, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		clientKey := c.ClientIP()
		if clientKey == "" {
			c.Next()
			return
		}

		allowed, err := guard.Allow(c.Request.Context(), clientKey)
		if err != nil {
			logger.Warn("rate limit check failed", "client", clientKey, "error", err)
			c.Next()
			return
		}

		if !allowed {
			retryAfter := int(math.Ceil(guard.Window().Seconds()))
			c.Header("Retry-After", strconv.Itoa(retryAfter))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too_many_requests"})
			return
		}

		c.Next()
	}
}
