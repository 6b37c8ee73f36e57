package download

import "errors"

var (
	// ErrInvalidURL is returned when a media URL is not an absolute http(s) URL.
	ErrInvalidURL = errors.New("invalid media URL")

	// ErrBlockedHost is returned when a media URL points at a loopback, private or link-local host.
	ErrBlockedHost = errors.New("media host is not allowed")

	// ErrUpstreamFailed is returned when no candidate URL produced a successful response.
	ErrUpstreamFailed = errors.New("failed to fetch media from upstream")

	// ErrTooLarge is returned when the upstream announces a body above the configured limit.
	ErrTooLarge = errors.New("media exceeds size limit")

	// ErrTimeout is returned when the upstream does not answer within the configured timeout.
	ErrTimeout = errors.New("media request timed out")
)
