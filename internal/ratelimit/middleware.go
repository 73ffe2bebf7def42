package ratelimit

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// IPMiddleware enforces the global per-IP budget. Limiter failures never
// block requests; abuse protection must not take the service down.
func (l *Limiter) IPMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		result, err := l.AllowIP(c.Request.Context(), c.ClientIP())
		if err != nil {
			slog.Error("Rate limit check failed", "ip", c.ClientIP(), "error", err)
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(result.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))

		if !result.Allowed {
			if l.metrics != nil {
				l.metrics.IncrementRateLimitBlock()
			}
			c.Header("Retry-After", strconv.Itoa(int(result.RetryAfter.Seconds())))
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":       "rate limit exceeded for IP",
				"message":     fmt.Sprintf("You have exceeded the rate limit of %d requests per minute", result.Limit),
				"retry_after": int(result.RetryAfter.Seconds()),
				"reset_at":    result.ResetAt.Unix(),
			})
			c.Abort()
			return
		}

		c.Next()
	}
}

// EndpointMiddleware enforces a tighter per-IP budget on one endpoint,
// used for the admin reload route.
func (l *Limiter) EndpointMiddleware(endpoint string, limit int) gin.HandlerFunc {
	return func(c *gin.Context) {
		result, err := l.AllowEndpoint(c.Request.Context(), endpoint, c.ClientIP(), limit)
		if err != nil {
			slog.Error("Endpoint rate limit check failed", "endpoint", endpoint, "error", err)
			c.Next()
			return
		}

		c.Header("X-RateLimit-Endpoint-Limit", strconv.Itoa(result.Limit))
		c.Header("X-RateLimit-Endpoint-Remaining", strconv.Itoa(result.Remaining))

		if !result.Allowed {
			if l.metrics != nil {
				l.metrics.IncrementRateLimitBlock()
			}
			c.Header("Retry-After", strconv.Itoa(int(result.RetryAfter.Seconds())))
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":       fmt.Sprintf("rate limit exceeded for endpoint: %s", endpoint),
				"retry_after": int(result.RetryAfter.Seconds()),
			})
			c.Abort()
			return
		}

		c.Next()
	}
}
