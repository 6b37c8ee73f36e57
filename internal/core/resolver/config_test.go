package resolver

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestConfig_Validate(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{"zero http timeout", func(c *Config) { c.HTTPTimeout = 0 }, ErrInvalidHTTPTimeout},
		{"zero short link timeout", func(c *Config) { c.ShortLinkTimeout = 0 }, ErrInvalidShortLinkTimeout},
		{"relative converter", func(c *Config) { c.PinterestConverterURL = "/download.php" }, ErrMissingEndpoint},
		{"empty downloader", func(c *Config) { c.TikTokDownloaderURL = "" }, ErrMissingEndpoint},
		{"zero threshold", func(c *Config) { c.CircuitThreshold = 0 }, ErrInvalidCircuitThreshold},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			assert.ErrorIs(t, cfg.Validate(), tt.wantErr)
		})
	}
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("RESOLVER_HTTP_TIMEOUT_SECONDS", "20")
	t.Setenv("RESOLVER_SHORTLINK_TIMEOUT_SECONDS", "-1")
	t.Setenv("TIKTOK_DOWNLOADER_URL", "https://downloader.example/ajax")
	t.Setenv("RESOLVER_CIRCUIT_THRESHOLD", "zero")
	t.Setenv("RESOLVER_CIRCUIT_OPEN_SECONDS", "60")

	cfg := ConfigFromEnv()
	assert.Equal(t, 20*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, 5*time.Second, cfg.ShortLinkTimeout)
	assert.Equal(t, "https://downloader.example/ajax", cfg.TikTokDownloaderURL)
	assert.Equal(t, DefaultPinterestConverterURL, cfg.PinterestConverterURL)
	assert.Equal(t, 5, cfg.CircuitThreshold)
	assert.Equal(t, time.Minute, cfg.CircuitOpenDuration)
}
