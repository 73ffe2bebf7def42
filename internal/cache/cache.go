// Package cache provides a TTL response cache for the estimator endpoints.
// All three estimators are pure functions of the request body, so identical
// bodies can be answered from cache without staleness concerns; the TTL
// exists only to bound memory and to pick up pricing-grid reloads.
package cache

import (
	"bytes"
	"crypto/md5"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/appelspro/brief-engine/internal/monitoring"
	"github.com/gin-gonic/gin"
)

type item struct {
	data      []byte
	expiresAt time.Time
}

func (i *item) expired() bool {
	return time.Now().After(i.expiresAt)
}

// Cache is a thread-safe byte cache with per-item TTL.
type Cache struct {
	mu    sync.RWMutex
	items map[string]*item
	ttl   time.Duration
	stop  chan struct{}
}

// NewCache creates a cache and starts its background cleanup loop.
func NewCache(ttl time.Duration) *Cache {
	c := &Cache{
		items: make(map[string]*item),
		ttl:   ttl,
		stop:  make(chan struct{}),
	}
	go c.cleanup()
	return c
}

func (c *Cache) cleanup() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.mu.Lock()
			for key, it := range c.items {
				if it.expired() {
					delete(c.items, key)
				}
			}
			c.mu.Unlock()
		case <-c.stop:
			return
		}
	}
}

// Close stops the cleanup loop.
func (c *Cache) Close() error {
	close(c.stop)
	return nil
}

// Key derives a stable cache key from the endpoint path and request body.
func Key(path string, body []byte) string {
	hash := md5.Sum(append([]byte(path+"\x00"), body...))
	return fmt.Sprintf("%x", hash)
}

// Get returns the cached bytes for key if present and fresh.
func (c *Cache) Get(key string) ([]byte, bool) {
	c.mu.RLock()
	it, exists := c.items[key]
	c.mu.RUnlock()

	if !exists {
		return nil, false
	}
	if it.expired() {
		c.mu.Lock()
		delete(c.items, key)
		c.mu.Unlock()
		return nil, false
	}
	return it.data, true
}

// Set stores data under key with the cache's TTL.
func (c *Cache) Set(key string, data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = &item{data: data, expiresAt: time.Now().Add(c.ttl)}
}

// Clear drops every entry, used after a pricing-grid reload.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[string]*item)
}

// Size returns the number of entries, expired included.
func (c *Cache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Stats returns cache statistics for the stats endpoint.
func (c *Cache) Stats() map[string]interface{} {
	c.mu.RLock()
	defer c.mu.RUnlock()

	expired := 0
	for _, it := range c.items {
		if it.expired() {
			expired++
		}
	}
	return map[string]interface{}{
		"total_items":   len(c.items),
		"expired_items": expired,
		"active_items":  len(c.items) - expired,
		"ttl_seconds":   c.ttl.Seconds(),
	}
}

// Middleware caches successful responses for the given POST endpoints,
// keyed by request body.
func (c *Cache) Middleware(metrics *monitoring.Metrics, paths ...string) gin.HandlerFunc {
	cacheable := make(map[string]bool, len(paths))
	for _, p := range paths {
		cacheable[p] = true
	}

	return func(ctx *gin.Context) {
		if ctx.Request.Method != http.MethodPost || !cacheable[ctx.Request.URL.Path] {
			ctx.Next()
			return
		}

		body, err := io.ReadAll(ctx.Request.Body)
		if err != nil {
			ctx.Next()
			return
		}
		ctx.Request.Body = io.NopCloser(bytes.NewBuffer(body))

		key := Key(ctx.Request.URL.Path, body)

		if data, found := c.Get(key); found {
			slog.Debug("Cache hit", "key", key[:8]+"...")
			metrics.IncrementCacheHit()
			ctx.Data(http.StatusOK, "application/json", data)
			ctx.Abort()
			return
		}
		metrics.IncrementCacheMiss()

		wrapper := &responseWriter{ResponseWriter: ctx.Writer, body: &bytes.Buffer{}}
		ctx.Writer = wrapper
		ctx.Next()

		if ctx.Writer.Status() == http.StatusOK {
			c.Set(key, wrapper.body.Bytes())
		}
	}
}

type responseWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w *responseWriter) Write(data []byte) (int, error) {
	w.body.Write(data)
	return w.ResponseWriter.Write(data)
}

func (w *responseWriter) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}
