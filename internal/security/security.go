// Package security bundles the request-hardening middleware: input
// validation for brief text, per-IP rate limiting, security headers,
// content-type checks, and request timeouts.
package security

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// Config holds the security middleware configuration.
type Config struct {
	MaxDescriptionLength int           `json:"max_description_length"`
	MaxRequestsPerMin    int           `json:"max_requests_per_min"`
	AllowedOrigins       []string      `json:"allowed_origins"`
	TrustedProxies       []string      `json:"trusted_proxies"`
	RequestTimeout       time.Duration `json:"request_timeout"`
}

// DefaultConfig returns conservative defaults.
func DefaultConfig() Config {
	return Config{
		MaxDescriptionLength: 5000,
		MaxRequestsPerMin:    60,
		AllowedOrigins:       []string{"http://localhost:3000", "http://localhost:5173"},
		TrustedProxies:       []string{"127.0.0.1", "::1", "10.0.0.0/8", "172.16.0.0/12", "192.168.0.0/16"},
		RequestTimeout:       30 * time.Second,
	}
}

// Middleware implements the hardening layers. The per-IP limiters are the
// in-process fallback used when Redis rate limiting is unavailable.
type Middleware struct {
	config     Config
	ipLimiters map[string]*rate.Limiter
	limiterMu  sync.Mutex
}

// NewMiddleware creates a security middleware instance.
func NewMiddleware(config Config) *Middleware {
	return &Middleware{
		config:     config,
		ipLimiters: make(map[string]*rate.Limiter),
	}
}

var (
	scriptPattern  = regexp.MustCompile(`(?i)<script[^>]*>.*?</script>`)
	htmlTagPattern = regexp.MustCompile(`<[^>]+>`)
	spacePattern   = regexp.MustCompile(`\s+`)
)

// suspiciousPatterns flag obvious injection probes in brief text. Brief
// descriptions are free prose, so the list stays short to avoid rejecting
// legitimate projects that mention code.
var suspiciousPatterns = []string{
	"<script", "</script>", "javascript:",
	"union select", "drop table", "alter table",
	"xp_", "sp_",
}

// ValidateDescription checks brief text for size and injection problems.
func (m *Middleware) ValidateDescription(input string) error {
	if len(input) > m.config.MaxDescriptionLength {
		return fmt.Errorf("description exceeds maximum length of %d characters", m.config.MaxDescriptionLength)
	}
	if strings.Contains(input, "\x00") {
		return fmt.Errorf("description contains invalid characters")
	}
	if !utf8.ValidString(input) {
		return fmt.Errorf("description contains invalid UTF-8 encoding")
	}

	inputLower := strings.ToLower(input)
	for _, pattern := range suspiciousPatterns {
		if strings.Contains(inputLower, pattern) {
			return fmt.Errorf("description contains suspicious patterns")
		}
	}
	return nil
}

// SanitizeDescription strips markup and collapses whitespace in brief text.
func (m *Middleware) SanitizeDescription(input string) string {
	input = strings.TrimSpace(input)
	input = scriptPattern.ReplaceAllString(input, "")
	input = htmlTagPattern.ReplaceAllString(input, "")
	input = spacePattern.ReplaceAllString(input, " ")
	return input
}

// RateLimitByIP is the in-process token-bucket limiter keyed by client IP.
func (m *Middleware) RateLimitByIP(c *gin.Context) {
	clientIP := c.ClientIP()

	m.limiterMu.Lock()
	limiter, exists := m.ipLimiters[clientIP]
	if !exists {
		rps := rate.Limit(float64(m.config.MaxRequestsPerMin) / 60.0)
		burst := m.config.MaxRequestsPerMin / 2
		if burst < 5 {
			burst = 5
		}
		limiter = rate.NewLimiter(rps, burst)
		m.ipLimiters[clientIP] = limiter
	}
	m.limiterMu.Unlock()

	if !limiter.Allow() {
		c.JSON(http.StatusTooManyRequests, gin.H{
			"error":       "rate limit exceeded for IP",
			"retry_after": "60",
		})
		c.Abort()
		return
	}

	c.Next()
}

// SecurityHeaders sets the standard hardening headers. The service is
// API-only, so the CSP denies everything but self.
func (m *Middleware) SecurityHeaders(c *gin.Context) {
	c.Header("X-Content-Type-Options", "nosniff")
	c.Header("X-Frame-Options", "DENY")
	c.Header("X-XSS-Protection", "1; mode=block")
	c.Header("Content-Security-Policy", "default-src 'self'")
	c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
	if c.Request.TLS != nil {
		c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
	}
	c.Next()
}

// ValidateContentType rejects non-JSON bodies on mutating requests.
func (m *Middleware) ValidateContentType(c *gin.Context) {
	if c.Request.Method == http.MethodGet || c.Request.ContentLength == 0 {
		c.Next()
		return
	}

	contentType := strings.ToLower(c.GetHeader("Content-Type"))
	if !strings.Contains(contentType, "application/json") {
		c.JSON(http.StatusUnsupportedMediaType, gin.H{
			"error": "unsupported content type",
		})
		c.Abort()
		return
	}
	c.Next()
}

// RequestTimeout bounds each request with a deadline.
func (m *Middleware) RequestTimeout(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), m.config.RequestTimeout)
	defer cancel()

	c.Request = c.Request.WithContext(ctx)
	c.Header("X-Timeout", strconv.Itoa(int(m.config.RequestTimeout.Seconds())))
	c.Next()
}
