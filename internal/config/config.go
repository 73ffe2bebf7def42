// Package config loads service configuration from a YAML file and
// BRIEF_ENGINE_* environment variables, with working defaults for local
// development.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the full service configuration.
type Config struct {
	Port     int    `mapstructure:"port"`
	LogLevel string `mapstructure:"log_level"`

	PricingDataPath string `mapstructure:"pricing_data_path"`
	DatabasePath    string `mapstructure:"database_path"`

	CacheTTL time.Duration `mapstructure:"cache_ttl"`

	RateLimitPerMin   int `mapstructure:"rate_limit_per_min"`
	ReloadLimitPerMin int `mapstructure:"reload_limit_per_min"`

	RedisAddr     string `mapstructure:"redis_addr"`
	RedisPassword string `mapstructure:"redis_password"`
	RedisDB       int    `mapstructure:"redis_db"`

	AdminJWTSecret string `mapstructure:"admin_jwt_secret"`

	AllowedOrigins []string      `mapstructure:"allowed_origins"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`

	MaxDescriptionLength int `mapstructure:"max_description_length"`
}

// Load reads configuration. configPath may be empty, in which case only
// defaults and environment variables apply.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	v.SetDefault("port", 8080)
	v.SetDefault("log_level", "info")
	v.SetDefault("pricing_data_path", "data/price_terms.csv")
	v.SetDefault("database_path", "data/estimates.db")
	v.SetDefault("cache_ttl", 5*time.Minute)
	v.SetDefault("rate_limit_per_min", 60)
	v.SetDefault("reload_limit_per_min", 5)
	v.SetDefault("redis_addr", "")
	v.SetDefault("redis_password", "")
	v.SetDefault("redis_db", 0)
	v.SetDefault("admin_jwt_secret", "")
	v.SetDefault("allowed_origins", []string{"http://localhost:3000", "http://localhost:5173"})
	v.SetDefault("request_timeout", 30*time.Second)
	v.SetDefault("max_description_length", 5000)

	v.SetEnvPrefix("BRIEF_ENGINE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", configPath, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.RateLimitPerMin <= 0 {
		return fmt.Errorf("rate_limit_per_min must be positive")
	}
	if c.CacheTTL <= 0 {
		return fmt.Errorf("cache_ttl must be positive")
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("request_timeout must be positive")
	}
	return nil
}
