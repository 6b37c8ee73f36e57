package ytdlp

import (
	"errors"
	"strings"
)

var (
	// ErrTimeout is returned when the tool does not finish before the configured timeout.
	ErrTimeout = errors.New("metadata extraction timed out")

	// ErrBinaryNotFound is returned when the configured binary cannot be executed.
	ErrBinaryNotFound = errors.New("metadata extraction binary not found")

	// ErrExtractionFailed is returned when the tool exits non-zero.
	ErrExtractionFailed = errors.New("metadata extraction failed")

	// ErrInvalidOutput is returned when stdout is not a single JSON object.
	ErrInvalidOutput = errors.New("metadata extraction output is not valid JSON")

	// ErrEmptyURL is returned when Extract is called without a URL.
	ErrEmptyURL = errors.New("url is required")

	// Causes read from the tool's stderr. They are joined with ErrExtractionFailed.
	ErrVideoUnavailable = errors.New("video unavailable")
	ErrVideoPrivate     = errors.New("video is private")
	ErrGeoRestricted    = errors.New("video is not available in this region")
	ErrAgeRestricted    = errors.New("video is age restricted")
	ErrLoginRequired    = errors.New("login required")
	ErrUnsupportedURL   = errors.New("url not supported by extractor")
)

// mapStderr picks the most specific cause from the tool's error output, or nil.
func mapStderr(stderr string) error {
	lower := strings.ToLower(stderr)

	switch {
	case strings.Contains(lower, "private video"), strings.Contains(lower, "this video is private"):
		return ErrVideoPrivate
	case strings.Contains(lower, "not available in your country"), strings.Contains(lower, "geo restrict"):
		return ErrGeoRestricted
	case strings.Contains(lower, "age-restricted"), strings.Contains(lower, "confirm your age"):
		return ErrAgeRestricted
	case strings.Contains(lower, "login required"), strings.Contains(lower, "log in"), strings.Contains(lower, "cookies"):
		return ErrLoginRequired
	case strings.Contains(lower, "unsupported url"):
		return ErrUnsupportedURL
	case strings.Contains(lower, "video unavailable"), strings.Contains(lower, "has been removed"),
		strings.Contains(lower, "has been deleted"), strings.Contains(lower, "does not exist"):
		return ErrVideoUnavailable
	case strings.Contains(lower, "timed out"):
		return ErrTimeout
	default:
		return nil
	}
}
