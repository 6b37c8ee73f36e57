package linkcache

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"
)

// Config holds cache settings.
type Config struct {
	// TTL is how long an entry lives after it is written. Reads do not extend it.
	TTL time.Duration

	// MaxFieldLength caps caption, description and title, in grapheme clusters.
	MaxFieldLength int

	// RedisURL selects the Redis store when set; otherwise entries stay in process memory.
	RedisURL string
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		TTL:            5 * time.Minute,
		MaxFieldLength: 600,
	}
}

// Validate checks the configuration for invalid values.
func (c Config) Validate() error {
	if c.TTL <= 0 {
		return fmt.Errorf("%w: got %v", ErrInvalidTTL, c.TTL)
	}
	if c.MaxFieldLength <= 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidMaxFieldLength, c.MaxFieldLength)
	}
	return nil
}

// ConfigFromEnv creates a Config from environment variables.
// Uses defaults for any missing or invalid environment variables.
//
// Environment variables:
//   - LINK_CACHE_TTL_SECONDS: entry lifetime (default: 300)
//   - LINK_CACHE_MAX_FIELD_LENGTH: field truncation limit (default: 600)
//   - REDIS_URL: redis:// URL of a shared cache (default: in-memory)
func ConfigFromEnv() Config {
	cfg := DefaultConfig()
	cfg.RedisURL = os.Getenv("REDIS_URL")

	if v := os.Getenv("LINK_CACHE_TTL_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.TTL = time.Duration(n) * time.Second
		} else {
			slog.Warn("[LINK-CACHE] invalid LINK_CACHE_TTL_SECONDS value, using default",
				"value", v,
				"default", cfg.TTL,
				"error", err,
			)
		}
	}

	if v := os.Getenv("LINK_CACHE_MAX_FIELD_LENGTH"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.MaxFieldLength = n
		} else {
			slog.Warn("[LINK-CACHE] invalid LINK_CACHE_MAX_FIELD_LENGTH value, using default",
				"value", v,
				"default", cfg.MaxFieldLength,
				"error", err,
			)
		}
	}

	return cfg
}
