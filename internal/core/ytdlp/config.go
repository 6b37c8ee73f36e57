package ytdlp

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"
)

// ErrInvalidTimeout is returned when Timeout is not positive
var ErrInvalidTimeout = errors.New("Timeout must be positive")

// ErrMissingBinary is returned when Binary is empty
var ErrMissingBinary = errors.New("Binary must not be empty")

// Config holds settings for the extraction tool.
type Config struct {
	// Binary is the executable name or path.
	Binary string

	// Timeout bounds one extraction, including process start-up.
	Timeout time.Duration

	// Proxy is passed through as --proxy when set.
	Proxy string

	// CookiesFile is passed through as --cookies when set and present on disk.
	CookiesFile string
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Binary:  "yt-dlp",
		Timeout: 30 * time.Second,
	}
}

// Validate checks the configuration for invalid values.
func (c Config) Validate() error {
	if c.Binary == "" {
		return ErrMissingBinary
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("%w: got %v", ErrInvalidTimeout, c.Timeout)
	}
	return nil
}

// ConfigFromEnv creates a Config from environment variables.
// Uses defaults for any missing or invalid environment variables.
//
// Environment variables:
//   - YTDLP_BINARY: executable name or path (default: yt-dlp)
//   - YTDLP_TIMEOUT_SECONDS: extraction timeout (default: 30)
//   - YTDLP_PROXY: proxy URL passed to the tool
//   - YTDLP_COOKIES_FILE: Netscape cookies file passed to the tool
func ConfigFromEnv() Config {
	cfg := DefaultConfig()

	if v := os.Getenv("YTDLP_BINARY"); v != "" {
		cfg.Binary = v
	}
	cfg.Proxy = os.Getenv("YTDLP_PROXY")
	cfg.CookiesFile = os.Getenv("YTDLP_COOKIES_FILE")

	if v := os.Getenv("YTDLP_TIMEOUT_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Timeout = time.Duration(n) * time.Second
		} else {
			slog.Warn("[YTDLP] invalid YTDLP_TIMEOUT_SECONDS value, using default",
				"value", v,
				"default", cfg.Timeout,
				"error", err,
			)
		}
	}

	return cfg
}
