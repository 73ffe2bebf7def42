// Package ratelimit provides distributed rate limiting backed by Redis,
// degrading to an in-process token bucket when Redis is unreachable.
package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisClient wraps the Redis connection with graceful degradation: a
// missing or unreachable Redis never blocks startup.
type RedisClient struct {
	client  *redis.Client
	enabled bool
	addr    string
}

// NewRedisClient connects to Redis at addr. An empty addr or a failed ping
// yields a disabled client and the limiter runs purely in memory.
func NewRedisClient(addr, password string, db int) *RedisClient {
	if addr == "" {
		slog.Warn("Redis not configured, rate limiting runs in-memory")
		return &RedisClient{enabled: false}
	}

	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		slog.Warn("Redis ping failed, rate limiting runs in-memory", "addr", addr, "error", err)
		return &RedisClient{enabled: false, addr: addr}
	}

	slog.Info("Redis connected", "addr", addr)
	return &RedisClient{client: client, enabled: true, addr: addr}
}

// Client returns the underlying Redis client, nil when disabled.
func (r *RedisClient) Client() *redis.Client {
	return r.client
}

// IsEnabled reports whether Redis is usable.
func (r *RedisClient) IsEnabled() bool {
	return r.enabled
}

// PoolStats returns connection pool statistics for the stats endpoint.
func (r *RedisClient) PoolStats() map[string]interface{} {
	if !r.enabled {
		return nil
	}
	stats := r.client.PoolStats()
	return map[string]interface{}{
		"hits":        stats.Hits,
		"misses":      stats.Misses,
		"timeouts":    stats.Timeouts,
		"total_conns": stats.TotalConns,
		"idle_conns":  stats.IdleConns,
	}
}

// Close releases the Redis connection.
func (r *RedisClient) Close() error {
	if !r.enabled || r.client == nil {
		return nil
	}
	if err := r.client.Close(); err != nil {
		return fmt.Errorf("close redis: %w", err)
	}
	return nil
}
