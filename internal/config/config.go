// Package config loads service settings from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	DBPath string `env:"MI_DB_PATH" envDefault:"./message-inserter.db"`
	Port   int    `env:"MI_PORT" envDefault:"8080"`

	// CookieDays is the lifetime of the visit counter cookies.
	CookieDays    int           `env:"MI_COOKIE_DAYS" envDefault:"365"`
	VisitInterval time.Duration `env:"MI_VISIT_INTERVAL" envDefault:"1h"`
	CookieDomain  string        `env:"MI_COOKIE_DOMAIN"`
	SecureCookies bool          `env:"MI_SECURE_COOKIES"`

	// AdminToken fixes the admin API token across restarts.
	AdminToken string `env:"MI_ADMIN_TOKEN"`

	LogLevel string `env:"MI_LOG_LEVEL" envDefault:"info"`
	LogJSON  bool   `env:"MI_LOG_JSON" envDefault:"true"`
}

// Load reads envFile when it exists, then parses the environment. Variables
// already set in the environment win over the file.
func Load(envFile string) (Config, error) {
	var cfg Config

	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return cfg, fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("port %d out of range", c.Port)
	}
	if c.CookieDays <= 0 {
		return fmt.Errorf("cookie days must be positive, got %d", c.CookieDays)
	}
	if c.VisitInterval <= 0 {
		return fmt.Errorf("visit interval must be positive, got %s", c.VisitInterval)
	}
	return nil
}

// CookieMaxAge is CookieDays as a duration.
func (c Config) CookieMaxAge() time.Duration {
	return time.Duration(c.CookieDays) * 24 * time.Hour
}
