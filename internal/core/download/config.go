package download

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"
)

// Config validation errors
var (
	// ErrInvalidTimeout is returned when HeaderTimeout is not positive
	ErrInvalidTimeout = errors.New("HeaderTimeout must be positive")
	// ErrInvalidMaxSize is returned when MaxSizeMB is not positive
	ErrInvalidMaxSize = errors.New("MaxSizeMB must be positive")
)

// DefaultUserAgent matches the browser agent used by the resolver so CDNs serve the same files.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

// Config holds the download proxy settings.
type Config struct {
	// UserAgent is sent on every upstream media request.
	UserAgent string

	// HeaderTimeout bounds the wait for upstream response headers. The body itself
	// streams for as long as the client keeps reading.
	HeaderTimeout time.Duration

	// MaxSizeMB caps the number of bytes relayed per download.
	MaxSizeMB int64

	// AllowPrivateHosts disables the loopback/private host check. Tests only.
	AllowPrivateHosts bool
}

// DefaultConfig returns a Config with the production defaults.
func DefaultConfig() Config {
	return Config{
		UserAgent:     DefaultUserAgent,
		HeaderTimeout: 20 * time.Second,
		MaxSizeMB:     512,
	}
}

// MaxBytes returns the size cap in bytes.
func (c Config) MaxBytes() int64 {
	return c.MaxSizeMB * 1024 * 1024
}

// Validate checks the configuration for invalid values.
func (c Config) Validate() error {
	if c.HeaderTimeout <= 0 {
		return fmt.Errorf("%w: got %v", ErrInvalidTimeout, c.HeaderTimeout)
	}
	if c.MaxSizeMB <= 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidMaxSize, c.MaxSizeMB)
	}
	return nil
}

// ConfigFromEnv creates a Config from environment variables.
//
// Environment variables:
//   - DOWNLOAD_USER_AGENT: User-Agent for media requests
//   - DOWNLOAD_HEADER_TIMEOUT_SECONDS: upstream header timeout (default: 20)
//   - DOWNLOAD_MAX_SIZE_MB: per-download byte cap (default: 512)
func ConfigFromEnv() Config {
	cfg := DefaultConfig()

	if v := os.Getenv("DOWNLOAD_USER_AGENT"); v != "" {
		cfg.UserAgent = v
	}
	if v := os.Getenv("DOWNLOAD_HEADER_TIMEOUT_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.HeaderTimeout = time.Duration(n) * time.Second
		} else {
			slog.Warn("[DOWNLOAD] invalid DOWNLOAD_HEADER_TIMEOUT_SECONDS value, using default",
				"value", v,
				"default", cfg.HeaderTimeout,
			)
		}
	}
	if v := os.Getenv("DOWNLOAD_MAX_SIZE_MB"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			cfg.MaxSizeMB = n
		} else {
			slog.Warn("[DOWNLOAD] invalid DOWNLOAD_MAX_SIZE_MB value, using default",
				"value", v,
				"default", cfg.MaxSizeMB,
			)
		}
	}

	return cfg
}
