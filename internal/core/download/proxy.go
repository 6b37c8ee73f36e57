// Package download relays resolved media files to the client. The resolver only hands out
// CDN URLs; many of them reject browser requests without the right agent, or expire, so the
// server streams the bytes itself and walks the fallback URLs when the primary fails.
package download

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"path"
	"strings"
	"syscall"
	"time"

	"github.com/samber/lo"
)

// Download outcomes reported to the Recorder.
const (
	OutcomeSuccess  = "success"
	OutcomeFallback = "fallback"
	OutcomeRejected = "rejected"
	OutcomeFailed   = "failed"
)

// Recorder receives one outcome per Open call.
type Recorder interface {
	ObserveDownload(outcome string)
}

// Request names the media to relay.
type Request struct {
	URL       string
	Fallbacks []string
	FileName  string
}

// Stream is an open upstream response. The caller must close Body.
type Stream struct {
	Body          io.ReadCloser
	ContentType   string
	ContentLength int64
	FileName      string
	SourceURL     string
}

// Proxy opens upstream media streams.
type Proxy struct {
	client   *http.Client
	recorder Recorder
	cfg      Config
}

// Option configures a Proxy.
type Option func(*Proxy)

// WithHTTPClient replaces the upstream HTTP client. The proxy works on a copy; the
// connect-time host guard is only installed on the default transport.
func WithHTTPClient(c *http.Client) Option {
	return func(p *Proxy) {
		p.client = c
	}
}

// WithRecorder reports download outcomes to r.
func WithRecorder(r Recorder) Option {
	return func(p *Proxy) {
		p.recorder = r
	}
}

// NewProxy creates a Proxy. Redirects are followed only to hosts that pass the same
// host check as the original URL.
func NewProxy(cfg Config, opts ...Option) (*Proxy, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	p := &Proxy{cfg: cfg}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.ResponseHeaderTimeout = cfg.HeaderTimeout
	if !cfg.AllowPrivateHosts {
		// Resolved addresses are checked again at connect time.
		dialer := &net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
			Control:   guardDial,
		}
		transport.DialContext = dialer.DialContext
		transport.Proxy = nil
	}
	p.client = &http.Client{Transport: transport}

	for _, opt := range opts {
		opt(p)
	}
	client := *p.client
	p.client = &client
	p.client.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		if len(via) >= 5 {
			return errors.New("stopped after 5 redirects")
		}
		return p.checkURL(req.URL)
	}
	return p, nil
}

// Open tries the primary URL, then each fallback in order, and returns the first 2xx response.
func (p *Proxy) Open(ctx context.Context, req Request) (*Stream, error) {
	candidates := lo.Compact(lo.Uniq(append([]string{strings.TrimSpace(req.URL)}, req.Fallbacks...)))
	if len(candidates) == 0 {
		p.observe(OutcomeRejected)
		return nil, fmt.Errorf("%w: no URL given", ErrInvalidURL)
	}

	var errs []error
	for i, raw := range candidates {
		u, err := p.parse(raw)
		if err != nil {
			if i == 0 {
				// The primary URL came from the client; a bad one is a bad request.
				p.observe(OutcomeRejected)
				return nil, err
			}
			errs = append(errs, err)
			continue
		}

		stream, err := p.fetch(ctx, u)
		if i == 0 && errors.Is(err, ErrBlockedHost) {
			p.observe(OutcomeRejected)
			return nil, err
		}
		if err == nil {
			stream.FileName = fileName(req.FileName, u)
			p.observe(lo.Ternary(i == 0, OutcomeSuccess, OutcomeFallback))
			if i > 0 {
				slog.Info("[DOWNLOAD] served from fallback",
					"index", i,
					"host", u.Hostname(),
				)
			}
			return stream, nil
		}

		slog.Warn("[DOWNLOAD] upstream attempt failed",
			"index", i,
			"host", u.Hostname(),
			"error", err,
		)
		errs = append(errs, err)
		if ctx.Err() != nil {
			break
		}
	}

	p.observe(OutcomeFailed)
	return nil, fmt.Errorf("%w: %w", ErrUpstreamFailed, errors.Join(errs...))
}

func (p *Proxy) fetch(ctx context.Context, u *url.URL) (*Stream, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	req.Header.Set("User-Agent", p.cfg.UserAgent)
	req.Header.Set("Accept", "*/*")

	resp, err := p.client.Do(req)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded || isTimeoutError(err) {
			return nil, fmt.Errorf("%w: %v", ErrTimeout, err)
		}
		return nil, fmt.Errorf("request failed: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	maxBytes := p.cfg.MaxBytes()
	if resp.ContentLength > maxBytes {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("%w: content length %d exceeds %d", ErrTooLarge, resp.ContentLength, maxBytes)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	return &Stream{
		Body:          &limitedBody{Reader: io.LimitReader(resp.Body, maxBytes), Closer: resp.Body},
		ContentType:   contentType,
		ContentLength: resp.ContentLength,
		SourceURL:     u.String(),
	}, nil
}

func (p *Proxy) parse(raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if err := p.checkURL(u); err != nil {
		return nil, err
	}
	return u, nil
}

// checkURL accepts absolute http(s) URLs whose host is not a local name or a blocked
// literal address. Resolved addresses are checked by guardDial at connect time.
func (p *Proxy) checkURL(u *url.URL) error {
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: scheme %q", ErrInvalidURL, u.Scheme)
	}
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return fmt.Errorf("%w: missing host", ErrInvalidURL)
	}
	if p.cfg.AllowPrivateHosts {
		return nil
	}
	if host == "localhost" || strings.HasSuffix(host, ".localhost") ||
		strings.HasSuffix(host, ".local") || strings.HasSuffix(host, ".internal") {
		return fmt.Errorf("%w: %s", ErrBlockedHost, host)
	}
	if ip := net.ParseIP(host); ip != nil && blockedIP(ip) {
		return fmt.Errorf("%w: %s", ErrBlockedHost, host)
	}
	return nil
}

// guardDial runs after name resolution and refuses connections to blocked addresses.
func guardDial(_, address string, _ syscall.RawConn) error {
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrBlockedHost, address)
	}
	ip := net.ParseIP(host)
	if ip == nil || blockedIP(ip) {
		return fmt.Errorf("%w: %s", ErrBlockedHost, host)
	}
	return nil
}

func blockedIP(ip net.IP) bool {
	return ip.IsLoopback() || ip.IsPrivate() || ip.IsLinkLocalUnicast() ||
		ip.IsLinkLocalMulticast() || ip.IsUnspecified() || ip.IsMulticast()
}

func (p *Proxy) observe(outcome string) {
	if p.recorder != nil {
		p.recorder.ObserveDownload(outcome)
	}
}

// fileName prefers the requested name, then the last URL path segment, then "download".
func fileName(requested string, u *url.URL) string {
	if name := sanitizeFileName(requested); name != "" {
		return name
	}
	if base := path.Base(u.Path); base != "." && base != "/" {
		if name := sanitizeFileName(base); name != "" {
			return name
		}
	}
	return "download"
}

func sanitizeFileName(s string) string {
	s = strings.Map(func(r rune) rune {
		switch {
		case r < 0x20, r == 0x7f:
			return -1
		case strings.ContainsRune(`/\"`, r):
			return '_'
		}
		return r
	}, s)
	s = strings.ReplaceAll(s, "..", "")
	return strings.TrimSpace(s)
}

type limitedBody struct {
	io.Reader
	io.Closer
}

func isTimeoutError(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
