package resolver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/publicsuffix"
)

// maxPageBytes caps how much of an upstream page we read.
const maxPageBytes = 10 * 1024 * 1024

// maxRedirects caps redirect chains followed while normalizing short links.
const maxRedirects = 10

// NewHTTPClient returns the client shared by the strategies. It keeps cookies per
// registrable domain because several upstreams set session cookies on the first hop.
func NewHTTPClient(timeout time.Duration) *http.Client {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		jar = nil
	}
	return &http.Client{
		Timeout: timeout,
		Jar:     jar,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return http.ErrUseLastResponse
			}
			return nil
		},
	}
}

// withoutRedirects returns a copy of client that hands 3xx responses back to the caller.
func withoutRedirects(client *http.Client, timeout time.Duration) *http.Client {
	c := *client
	c.Timeout = timeout
	c.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}
	return &c
}

// newRequest builds an upstream request carrying the configured User-Agent.
func newRequest(ctx context.Context, method, target string, body io.Reader, userAgent string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	return req, nil
}

// newFormRequest builds a POST with an urlencoded form body.
func newFormRequest(ctx context.Context, target string, form url.Values, userAgent string) (*http.Request, error) {
	req, err := newRequest(ctx, http.MethodPost, target, strings.NewReader(form.Encode()), userAgent)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded; charset=UTF-8")
	return req, nil
}

// fetchBody executes req and returns the body of a 2xx response.
// Upstream 5xx and 429 answers become availability errors; other statuses are plain failures.
func fetchBody(client *http.Client, req *http.Request, service ServiceName) ([]byte, error) {
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request to %s failed: %w", req.URL.Host, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if err := checkStatus(resp, service); err != nil {
		return nil, err
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	return body, nil
}

func checkStatus(resp *http.Response, service ServiceName) error {
	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusTooManyRequests, resp.StatusCode == http.StatusServiceUnavailable:
		return NewAvailabilityError(service, http.StatusServiceUnavailable,
			"%s answered %d", resp.Request.URL.Host, resp.StatusCode)
	case resp.StatusCode >= 500:
		return NewAvailabilityError(service, http.StatusBadGateway,
			"%s answered %d", resp.Request.URL.Host, resp.StatusCode)
	default:
		return fmt.Errorf("%w: %s answered %d", ErrUnexpectedResponse, resp.Request.URL.Host, resp.StatusCode)
	}
}

// isTimeoutError checks if the error is a timeout-related error.
func isTimeoutError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var te interface{ Timeout() bool }
	if errors.As(err, &te) {
		return te.Timeout()
	}
	return false
}
