package monitoring

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RequestIDMiddleware tags every request with a unique identifier, honoring
// an X-Request-ID supplied by the caller.
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Set("request_id", requestID)
		c.Header("X-Request-ID", requestID)
		c.Next()
	}
}

// Middleware records per-request metrics and logs each completed request.
func Middleware(metrics *Metrics, logger *Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		metrics.IncrementRequest()

		c.Next()

		duration := time.Since(start)
		statusCode := c.Writer.Status()

		metrics.RecordResponseTime(duration)
		metrics.RecordRequestByStatus(statusCode)
		if statusCode >= 400 {
			metrics.IncrementError()
		}

		logger.RequestLogger(
			c.Request.Method,
			c.Request.URL.Path,
			c.ClientIP(),
			c.GetString("request_id"),
			statusCode,
			duration,
		)

		if duration > 5*time.Second {
			logger.Warn("Slow request",
				"path", c.Request.URL.Path,
				"duration_ms", duration.Milliseconds(),
			)
		}
	}
}
