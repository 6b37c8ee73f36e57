package resolver

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
	// ErrInvalidHTTPTimeout is returned when HTTPTimeout is not positive
	ErrInvalidHTTPTimeout = errors.New("HTTPTimeout must be positive")
	// ErrInvalidShortLinkTimeout is returned when ShortLinkTimeout is not positive
	ErrInvalidShortLinkTimeout = errors.New("ShortLinkTimeout must be positive")
	// ErrMissingEndpoint is returned when a third-party endpoint URL is empty or not absolute
	ErrMissingEndpoint = errors.New("third-party endpoint URL must be an absolute http(s) URL")
	// ErrInvalidCircuitThreshold is returned when CircuitThreshold is not positive
	ErrInvalidCircuitThreshold = errors.New("CircuitThreshold must be positive")
)

// Default third-party endpoints. Both are private wire contracts that change without notice.
const (
	DefaultPinterestConverterURL = "https://www.expertsphp.com/download.php"
	DefaultTikTokDownloaderURL   = "https://ssstik.io/abc?url=dl"
	DefaultUserAgent             = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"
)

// Config holds the settings shared by the platform strategies and the dispatcher.
type Config struct {
	// UserAgent is sent on every upstream request.
	UserAgent string

	// HTTPTimeout bounds each page or API fetch.
	HTTPTimeout time.Duration

	// ShortLinkTimeout bounds short-link redirect lookups.
	ShortLinkTimeout time.Duration

	// PinterestConverterURL is the conversion page that lists a pin's video files.
	PinterestConverterURL string

	// TikTokDownloaderURL is the AJAX endpoint returning download options.
	TikTokDownloaderURL string

	// CircuitThreshold is the number of consecutive failures that opens a service's circuit.
	CircuitThreshold int

	// CircuitOpenDuration is how long an open circuit rejects requests.
	CircuitOpenDuration time.Duration
}

// DefaultConfig returns a Config with the production defaults.
func DefaultConfig() Config {
	return Config{
		UserAgent:             DefaultUserAgent,
		HTTPTimeout:           15 * time.Second,
		ShortLinkTimeout:      5 * time.Second,
		PinterestConverterURL: DefaultPinterestConverterURL,
		TikTokDownloaderURL:   DefaultTikTokDownloaderURL,
		CircuitThreshold:      5,
		CircuitOpenDuration:   5 * time.Minute,
	}
}

// Validate checks the configuration for invalid values.
func (c Config) Validate() error {
	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("%w: got %v", ErrInvalidHTTPTimeout, c.HTTPTimeout)
	}
	if c.ShortLinkTimeout <= 0 {
		return fmt.Errorf("%w: got %v", ErrInvalidShortLinkTimeout, c.ShortLinkTimeout)
	}
	if !isValidMediaURL(c.PinterestConverterURL) {
		return fmt.Errorf("%w: pinterest converter %q", ErrMissingEndpoint, c.PinterestConverterURL)
	}
	if !isValidMediaURL(c.TikTokDownloaderURL) {
		return fmt.Errorf("%w: tiktok downloader %q", ErrMissingEndpoint, c.TikTokDownloaderURL)
	}
	if c.CircuitThreshold <= 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidCircuitThreshold, c.CircuitThreshold)
	}
	return nil
}

// ConfigFromEnv creates a Config from environment variables.
// Uses defaults for any missing or invalid environment variables.
//
// Environment variables:
//   - RESOLVER_USER_AGENT: User-Agent for upstream requests
//   - RESOLVER_HTTP_TIMEOUT_SECONDS: page/API fetch timeout (default: 15)
//   - RESOLVER_SHORTLINK_TIMEOUT_SECONDS: short-link redirect timeout (default: 5)
//   - PINTEREST_CONVERTER_URL: Pinterest conversion page
//   - TIKTOK_DOWNLOADER_URL: TikTok downloader AJAX endpoint
//   - RESOLVER_CIRCUIT_THRESHOLD: failures before a service circuit opens (default: 5)
//   - RESOLVER_CIRCUIT_OPEN_SECONDS: how long an open circuit stays open (default: 300)
func ConfigFromEnv() Config {
	cfg := DefaultConfig()

	if v := os.Getenv("RESOLVER_USER_AGENT"); v != "" {
		cfg.UserAgent = v
	}
	if v := os.Getenv("PINTEREST_CONVERTER_URL"); v != "" {
		cfg.PinterestConverterURL = v
	}
	if v := os.Getenv("TIKTOK_DOWNLOADER_URL"); v != "" {
		cfg.TikTokDownloaderURL = v
	}

	cfg.HTTPTimeout = secondsFromEnv("RESOLVER_HTTP_TIMEOUT_SECONDS", cfg.HTTPTimeout)
	cfg.ShortLinkTimeout = secondsFromEnv("RESOLVER_SHORTLINK_TIMEOUT_SECONDS", cfg.ShortLinkTimeout)
	cfg.CircuitOpenDuration = secondsFromEnv("RESOLVER_CIRCUIT_OPEN_SECONDS", cfg.CircuitOpenDuration)

	if v := os.Getenv("RESOLVER_CIRCUIT_THRESHOLD"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.CircuitThreshold = n
		} else {
			slog.Warn("[RESOLVE] invalid RESOLVER_CIRCUIT_THRESHOLD value, using default",
				"value", v,
				"default", cfg.CircuitThreshold,
				"error", err,
			)
		}
	}

	return cfg
}

func secondsFromEnv(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		slog.Warn("[RESOLVE] invalid duration value, using default",
			"key", key,
			"value", v,
			"default_seconds", int(def.Seconds()),
			"error", err,
		)
		return def
	}
	return time.Duration(n) * time.Second
}
