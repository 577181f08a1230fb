// Package config loads the console configuration from environment
// variables.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config is the full environment surface of the console.
type Config struct {
	Addr            string        `env:"ADDR" envDefault:":8080"`
	UpstreamBaseURL string        `env:"UPSTREAM_BASE_URL" envDefault:"https://dummyjson.com"`
	UpstreamTimeout time.Duration `env:"UPSTREAM_TIMEOUT" envDefault:"10s"`
	UpstreamRPS     float64       `env:"UPSTREAM_RPS" envDefault:"20"`

	JWTSecret    string `env:"JWT_SECRET,required"`
	CookieSecure bool   `env:"COOKIE_SECURE" envDefault:"true"`

	// DatabasePath enables session persistence when set; empty keeps the
	// session in memory only.
	DatabasePath string `env:"DATABASE_PATH"`

	CacheKeepUnused  time.Duration `env:"CACHE_KEEP_UNUSED" envDefault:"60s"`
	MutationStrategy string        `env:"MUTATION_STRATEGY" envDefault:"optimistic"`
}

// Load parses and validates configuration from the environment.
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if len(c.JWTSecret) < 32 {
		return fmt.Errorf("JWT_SECRET must be at least 32 characters for HMAC-SHA256 security")
	}
	if c.UpstreamTimeout <= 0 {
		return fmt.Errorf("UPSTREAM_TIMEOUT must be positive")
	}
	if c.CacheKeepUnused <= 0 {
		return fmt.Errorf("CACHE_KEEP_UNUSED must be positive")
	}
	return nil
}
