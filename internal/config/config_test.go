package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "data/price_terms.csv", cfg.PricingDataPath)
	assert.Equal(t, 5*time.Minute, cfg.CacheTTL)
	assert.Equal(t, 60, cfg.RateLimitPerMin)
	assert.Equal(t, 5, cfg.ReloadLimitPerMin)
	assert.Empty(t, cfg.RedisAddr)
	assert.Equal(t, 30*time.Second, cfg.RequestTimeout)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
port: 9090
log_level: debug
cache_ttl: 1m
redis_addr: localhost:6379
allowed_origins:
  - https://app.example.com
`), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, time.Minute, cfg.CacheTTL)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
	assert.Equal(t, []string{"https://app.example.com"}, cfg.AllowedOrigins)
	// Unset keys keep defaults.
	assert.Equal(t, 60, cfg.RateLimitPerMin)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("BRIEF_ENGINE_PORT", "7070")
	t.Setenv("BRIEF_ENGINE_ADMIN_JWT_SECRET", "s3cret")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 7070, cfg.Port)
	assert.Equal(t, "s3cret", cfg.AdminJWTSecret)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "bad port", content: "port: -1\n"},
		{name: "bad rate limit", content: "rate_limit_per_min: 0\n"},
		{name: "bad cache ttl", content: "cache_ttl: 0s\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0644))

			_, err := Load(path)
			assert.Error(t, err)
		})
	}
}

func TestLoadMissingFileFails(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
