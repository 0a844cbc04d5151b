package config

import (
	"fmt"
	"strings"
)

// Validate checks runtime configuration constraints before startup.
// It also normalizes StoreBackend so later consumers can match on the
// canonical lower-case form.
func (c *Config) Validate() error {
	c.StoreBackend = strings.ToLower(strings.TrimSpace(c.StoreBackend))
	switch c.StoreBackend {
	case "memory":
	case "redis":
		if c.RedisURL == "" {
			return fmt.Errorf("redis_url is required when store_backend is 'redis'")
		}
	case "sqlite":
		if c.SQLitePath == "" {
			return fmt.Errorf("sqlite_path is required when store_backend is 'sqlite'")
		}
	default:
		return fmt.Errorf("store_backend must be 'memory', 'redis' or 'sqlite', got %q", c.StoreBackend)
	}

	if c.Port == "" {
		return fmt.Errorf("port must not be empty")
	}
	if c.Market.CLOBBaseURL == "" || c.Market.GammaBaseURL == "" {
		return fmt.Errorf("market base urls must not be empty")
	}
	return nil
}
