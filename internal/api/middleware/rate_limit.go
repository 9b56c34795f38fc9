package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"travelsync/internal/services"
)

// RateLimitMiddleware throttles per-client request rates using the
// redis sliding window counter. Authenticated requests are keyed by
// user id, anonymous ones by client IP.
func RateLimitMiddleware(redisService *services.RedisService, limit int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.ClientIP()
		if userID, exists := c.Get("user_id"); exists {
			key = fmt.Sprintf("user:%v", userID)
		}

		allowed, err := redisService.CheckRateLimit(c.Request.Context(), key, limit, window)
		if err != nil {
			// Redis being down should not take the API with it.
			c.Next()
			return
		}

		if !allowed {
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded, please try again later"})
			c.Abort()
			return
		}

		c.Next()
	}
}
