package resolver

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrNoMedia is returned when an upstream page was parsed but exposed no downloadable media.
	ErrNoMedia = errors.New("no downloadable media found")

	// ErrInvalidMediaURL is returned when a candidate media URL is not an absolute http(s) URL.
	ErrInvalidMediaURL = errors.New("invalid media URL")

	// ErrUnexpectedResponse is returned when an upstream answers with a status we cannot use.
	ErrUnexpectedResponse = errors.New("unexpected upstream response")

	// ErrNilDependency is returned when a required dependency is nil.
	ErrNilDependency = errors.New("required dependency is nil")
)

// UnsupportedLinkError means no strategy accepts the link. It is a client error.
type UnsupportedLinkError struct {
	Link string
}

func (e *UnsupportedLinkError) Error() string {
	return fmt.Sprintf("unsupported link: %q", e.Link)
}

// ServiceAvailabilityError means a platform is unreachable or answered in a shape
// we no longer understand. Detail is for server logs only.
type ServiceAvailabilityError struct {
	Service    ServiceName
	Detail     string
	StatusCode int
}

func (e *ServiceAvailabilityError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("%s is temporarily unavailable", e.Service)
	}
	return fmt.Sprintf("%s is temporarily unavailable: %s", e.Service, e.Detail)
}

// HTTPStatus returns the configured status, defaulting to 503.
func (e *ServiceAvailabilityError) HTTPStatus() int {
	if e.StatusCode == 0 {
		return http.StatusServiceUnavailable
	}
	return e.StatusCode
}

// NewAvailabilityError builds a ServiceAvailabilityError. A zero status means 503.
func NewAvailabilityError(service ServiceName, status int, format string, args ...any) *ServiceAvailabilityError {
	return &ServiceAvailabilityError{
		Service:    service,
		Detail:     fmt.Sprintf(format, args...),
		StatusCode: status,
	}
}

// ResolutionError wraps any other failure raised while a strategy ran.
type ResolutionError struct {
	Service ServiceName
	Err     error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("failed to resolve %s link: %v", e.Service, e.Err)
}

func (e *ResolutionError) Unwrap() error {
	return e.Err
}

// Error type identifiers written to the client next to the message.
const (
	ErrorTypeUnsupportedLink    = "UnsupportedLink"
	ErrorTypeServiceUnavailable = "ServiceUnavailable"
	ErrorTypeResolutionFailed   = "ResolutionFailed"
)

// StatusCode maps a dispatcher error to the HTTP status exposed at the boundary.
func StatusCode(err error) int {
	var unsupported *UnsupportedLinkError
	var unavailable *ServiceAvailabilityError
	switch {
	case err == nil:
		return http.StatusOK
	case errors.As(err, &unsupported):
		return http.StatusBadRequest
	case errors.As(err, &unavailable):
		return unavailable.HTTPStatus()
	default:
		return http.StatusInternalServerError
	}
}

// ErrorType returns the short error identifier for a dispatcher error.
func ErrorType(err error) string {
	var unsupported *UnsupportedLinkError
	var unavailable *ServiceAvailabilityError
	switch {
	case errors.As(err, &unsupported):
		return ErrorTypeUnsupportedLink
	case errors.As(err, &unavailable):
		return ErrorTypeServiceUnavailable
	default:
		return ErrorTypeResolutionFailed
	}
}

// PublicMessage returns the message safe to show end users.
// It never includes availability details or underlying causes.
func PublicMessage(err error) string {
	var unsupported *UnsupportedLinkError
	var unavailable *ServiceAvailabilityError
	switch {
	case errors.As(err, &unsupported):
		return "This link is not supported. Paste a Shopee, Pinterest, TikTok, YouTube, Instagram or Facebook link."
	case errors.As(err, &unavailable):
		return fmt.Sprintf("%s is temporarily unavailable. Please try again later.", unavailable.Service.DisplayName())
	default:
		return "Failed to resolve the link."
	}
}
