// Package config loads application configuration from environment
// variables, 12-factor style.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
)

// Config holds all application configuration.
type Config struct {
	// Application settings
	AppEnv  string `env:"APP_ENV" envDefault:"development"`
	AppPort int    `env:"APP_PORT" envDefault:"8080"`

	// Database (PostgreSQL)
	DatabaseURL string `env:"DATABASE_URL,required"`

	// Cache and audit stream (Redis)
	RedisURL string `env:"REDIS_URL,required"`

	// GAM credentials and scope
	GAMKeyFile         string `env:"GAM_KEY_FILE,required"`
	GAMApplicationName string `env:"GAM_APPLICATION_NAME" envDefault:"gamaccess"`
	GAMAPIVersion      string `env:"GAM_API_VERSION" envDefault:"v202411"`

	// GAMNetworks is the comma-separated default network list used
	// when a grant request names none.
	GAMNetworks string `env:"GAM_NETWORKS" envDefault:""`

	// NetworkCacheTTL bounds staleness of the network listing.
	NetworkCacheTTL time.Duration `env:"NETWORK_CACHE_TTL" envDefault:"24h"`

	// ReportSource selects the reporting backend: "gam" or "static".
	ReportSource string `env:"REPORT_SOURCE" envDefault:"gam"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	// Server timeouts. Write is generous because a grant request may
	// wait on several sequential GAM calls.
	ReadTimeout     time.Duration `env:"READ_TIMEOUT" envDefault:"5s"`
	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT" envDefault:"120s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`

	// Rate limiting
	RateLimitAPIEnabled   bool `env:"RATE_LIMIT_API_ENABLED" envDefault:"true"`
	RateLimitGrantEnabled bool `env:"RATE_LIMIT_GRANT_ENABLED" envDefault:"true"`
	RateLimitGrantRPS     int  `env:"RATE_LIMIT_GRANT_RPS" envDefault:"5"`
	RateLimitGrantBurst   int  `env:"RATE_LIMIT_GRANT_BURST" envDefault:"10"`

	// CORS: comma-separated allowed origins.
	CORSAllowedOrigins string `env:"CORS_ALLOWED_ORIGINS" envDefault:""`

	// Request body size limit in bytes (default 1MB)
	MaxRequestBodySize int64 `env:"MAX_REQUEST_BODY_SIZE" envDefault:"1048576"`
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// GetCORSAllowedOrigins parses the comma-separated origins string.
func (c *Config) GetCORSAllowedOrigins() []string {
	return splitCommaList(c.CORSAllowedOrigins)
}

// GetDefaultNetworks parses the comma-separated default network list.
func (c *Config) GetDefaultNetworks() []string {
	return splitCommaList(c.GAMNetworks)
}

func splitCommaList(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

// Load parses environment variables into a Config. Missing required
// variables are an error.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}
