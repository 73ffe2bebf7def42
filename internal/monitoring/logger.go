// Package monitoring provides structured logging, in-process metrics, and
// the Gin middleware that feeds both.
package monitoring

import (
	"log/slog"
	"os"
	"time"
)

// Logger wraps slog with helpers for the service's recurring log shapes.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a JSON logger writing to stdout.
func NewLogger(level slog.Level) *Logger {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				return slog.Attr{
					Key:   "timestamp",
					Value: slog.StringValue(a.Value.Time().Format(time.RFC3339)),
				}
			}
			return a
		},
	})
	return &Logger{Logger: slog.New(handler)}
}

// RequestLogger logs one completed HTTP request.
func (l *Logger) RequestLogger(method, path, ip, requestID string, statusCode int, duration time.Duration) {
	l.Info("HTTP Request",
		"method", method,
		"path", path,
		"ip", ip,
		"request_id", requestID,
		"status_code", statusCode,
		"duration_ms", duration.Milliseconds(),
	)
}

// EstimateLogger logs one completed estimator run.
func (l *Logger) EstimateLogger(estimator, category string, score float64, duration time.Duration, cacheHit bool) {
	l.Info("Estimate Completed",
		"estimator", estimator,
		"category", category,
		"score", score,
		"duration_ms", duration.Milliseconds(),
		"cache_hit", cacheHit,
	)
}

// CacheLogger logs a cache operation at debug level.
func (l *Logger) CacheLogger(operation, keyHash string, hit bool, size int) {
	if len(keyHash) > 8 {
		keyHash = keyHash[:8] + "..."
	}
	l.Debug("Cache Operation",
		"operation", operation,
		"key_hash", keyHash,
		"hit", hit,
		"cache_size", size,
	)
}

// SystemLogger logs lifecycle events: startup, shutdown, data reloads.
func (l *Logger) SystemLogger(event, details string) {
	l.Info("System Event",
		"event", event,
		"details", details,
		"uptime", time.Since(startTime).String(),
	)
}

var startTime = time.Now()
