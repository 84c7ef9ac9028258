package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config captures environment driven configuration values for the booking service.
type Config struct {
	HTTPPort        int           `env:"PINGPONG_HTTP_PORT" envDefault:"8080"`
	SQLiteDSN       string        `env:"PINGPONG_SQLITE_DSN" envDefault:"file:pingpong.db"`
	AdminStudentIDs []string      `env:"PINGPONG_ADMIN_STUDENT_IDS" envSeparator:","`
	AuthRateLimit   float64       `env:"PINGPONG_AUTH_RATE_LIMIT" envDefault:"5"`
	AuthRateBurst   int           `env:"PINGPONG_AUTH_RATE_BURST" envDefault:"10"`
	ShutdownTimeout time.Duration `env:"PINGPONG_SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// Load parses configuration values from the current process environment.
//
// Optional fields fall back to defaults suitable for local development; the
// admin allow-list is empty unless configured.
func Load() (Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects values the server cannot run with.
func (c Config) Validate() error {
	if c.HTTPPort <= 0 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid PINGPONG_HTTP_PORT: %d", c.HTTPPort)
	}
	if c.SQLiteDSN == "" {
		return fmt.Errorf("PINGPONG_SQLITE_DSN must not be empty")
	}
	if c.AuthRateLimit <= 0 {
		return fmt.Errorf("invalid PINGPONG_AUTH_RATE_LIMIT: %v", c.AuthRateLimit)
	}
	if c.AuthRateBurst <= 0 {
		return fmt.Errorf("invalid PINGPONG_AUTH_RATE_BURST: %d", c.AuthRateBurst)
	}
	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("invalid PINGPONG_SHUTDOWN_TIMEOUT: %v", c.ShutdownTimeout)
	}
	return nil
}
