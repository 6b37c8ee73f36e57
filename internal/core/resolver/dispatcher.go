package resolver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"Linkgrab/internal/core/linkcache"
	"Linkgrab/internal/core/ytdlp"
)

// Resolve outcomes reported to the Recorder.
const (
	OutcomeSuccess     = "success"
	OutcomeUnsupported = "unsupported"
	OutcomeUnavailable = "unavailable"
	OutcomeCircuitOpen = "circuit_open"
	OutcomeTimeout     = "timeout"
	OutcomeFailed      = "failed"
)

// Dispatcher picks the first applicable strategy for a link, runs it, classifies failures
// and remembers successful resolves in the link cache.
type Dispatcher struct {
	cache      LinkCache
	recorder   Recorder
	breaker    *circuitBreaker
	strategies []Strategy
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithRecorder reports every resolve outcome to r.
func WithRecorder(r Recorder) DispatcherOption {
	return func(d *Dispatcher) {
		d.recorder = r
	}
}

// WithCircuitBreaker overrides the per-service circuit breaker settings.
func WithCircuitBreaker(threshold int, openDuration time.Duration) DispatcherOption {
	return func(d *Dispatcher) {
		d.breaker = newCircuitBreaker(threshold, openDuration)
	}
}

// DefaultStrategies returns the platform strategies in dispatch order.
// extractor may be nil; YouTube then reports itself unavailable and Meta skips its fallback.
func DefaultStrategies(cfg Config, client *http.Client, extractor MetadataExtractor) []Strategy {
	return []Strategy{
		NewShopeeStrategy(cfg, client),
		NewPinterestStrategy(cfg, client),
		NewTikTokStrategy(cfg, client),
		NewYouTubeStrategy(extractor),
		NewMetaStrategy(cfg, client, extractor),
	}
}

// NewDispatcher creates a Dispatcher trying strategies in the given order.
func NewDispatcher(cache LinkCache, strategies []Strategy, opts ...DispatcherOption) (*Dispatcher, error) {
	if cache == nil {
		return nil, fmt.Errorf("%w: link cache", ErrNilDependency)
	}
	if len(strategies) == 0 {
		return nil, fmt.Errorf("%w: at least one strategy", ErrNilDependency)
	}
	for i, s := range strategies {
		if s == nil {
			return nil, fmt.Errorf("%w: strategy %d", ErrNilDependency, i)
		}
	}

	defaults := DefaultConfig()
	d := &Dispatcher{
		cache:      cache,
		strategies: strategies,
		breaker:    newCircuitBreaker(defaults.CircuitThreshold, defaults.CircuitOpenDuration),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Services returns the strategy names in dispatch order.
func (d *Dispatcher) Services() []ServiceName {
	out := make([]ServiceName, 0, len(d.strategies))
	for _, s := range d.strategies {
		out = append(out, s.Name())
	}
	return out
}

// CircuitStates reports the breaker state of every service that has failed at least once.
func (d *Dispatcher) CircuitStates() map[ServiceName]string {
	return d.breaker.snapshot()
}

// Match returns the first strategy applicable to link, or nil.
func (d *Dispatcher) Match(link string) Strategy {
	for _, s := range d.strategies {
		if s.IsApplicable(link) {
			return s
		}
	}
	return nil
}

// Resolve extracts the first URL from text, resolves it and remembers the caption under
// the returned LinkHash. Errors are *UnsupportedLinkError, *ServiceAvailabilityError
// or *ResolutionError.
func (d *Dispatcher) Resolve(ctx context.Context, text string) (*Resolved, error) {
	start := time.Now()
	link := ExtractLink(text)

	strategy := d.Match(link)
	if strategy == nil {
		slog.Info("[RESOLVE] no strategy for link", "link", link)
		d.observe("", OutcomeUnsupported, start)
		return nil, &UnsupportedLinkError{Link: link}
	}
	service := strategy.Name()

	if err := d.breaker.allow(service); err != nil {
		slog.Warn("[RESOLVE] circuit open, skipping upstream",
			"service", service,
			"link", link,
			"detail", err.Error(),
		)
		d.observe(service, OutcomeCircuitOpen, start)
		return nil, err
	}

	result, err := strategy.Resolve(ctx, link)
	if err == nil {
		err = checkResult(service, result)
	}
	if err != nil {
		return nil, d.fail(ctx, service, link, err, start)
	}
	d.breaker.recordSuccess(service)

	hash := HashLink(link)
	payload := linkcache.Payload{
		Service:     string(service),
		Caption:     captionFor(result),
		Description: result.Description,
		Title:       result.Title,
	}
	if err := d.cache.Remember(ctx, hash, link, payload); err != nil {
		slog.Warn("[RESOLVE] failed to remember resolved link",
			"service", service,
			"hash", hash,
			"error", err,
		)
		if r, ok := d.recorder.(cacheErrorRecorder); ok {
			r.ObserveCacheWriteError()
		}
	}

	slog.Info("[RESOLVE] link resolved",
		"service", service,
		"link", link,
		"hash", hash,
		"has_video", result.Video != nil,
		"has_audio", result.Audio != nil,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	d.observe(service, OutcomeSuccess, start)

	return &Resolved{Result: *result, LinkHash: hash}, nil
}

// Lookup returns the remembered entry for a hash handed out by Resolve.
func (d *Dispatcher) Lookup(ctx context.Context, hash string) (*linkcache.Entry, error) {
	return d.cache.Get(ctx, hash)
}

// fail classifies a strategy error, logs the detail server-side and feeds the breaker.
// Only platform-side failures count against the service.
func (d *Dispatcher) fail(ctx context.Context, service ServiceName, link string, err error, start time.Time) error {
	var unsupported *UnsupportedLinkError
	if errors.As(err, &unsupported) {
		d.breaker.release(service)
		slog.Info("[RESOLVE] strategy rejected link", "service", service, "link", link)
		d.observe(service, OutcomeUnsupported, start)
		return unsupported
	}

	// A cancelled client is not the platform's fault.
	if (ctx.Err() == nil || isTimeoutError(err)) && platformFailure(err) {
		d.breaker.recordFailure(service, err)
	} else {
		d.breaker.release(service)
	}

	var unavailable *ServiceAvailabilityError
	if errors.As(err, &unavailable) {
		slog.Warn("[RESOLVE] service unavailable",
			"service", service,
			"link", link,
			"status", unavailable.HTTPStatus(),
			"detail", unavailable.Detail,
			"error", err,
		)
		d.observe(service, OutcomeUnavailable, start)
		return unavailable
	}

	outcome := OutcomeFailed
	if isTimeoutError(err) {
		outcome = OutcomeTimeout
	}
	slog.Error("[RESOLVE] resolution failed",
		"service", service,
		"link", link,
		"outcome", outcome,
		"error", err,
	)
	d.observe(service, outcome, start)
	return &ResolutionError{Service: service, Err: err}
}

// platformFailure reports whether err says the platform itself is failing, as opposed to
// the link pointing at something that cannot be downloaded.
func platformFailure(err error) bool {
	var unavailable *ServiceAvailabilityError
	switch {
	case errors.As(err, &unavailable), isTimeoutError(err), errors.Is(err, ytdlp.ErrTimeout):
		return true
	case errors.Is(err, ErrNoMedia),
		errors.Is(err, ErrInvalidMediaURL),
		errors.Is(err, ErrUnexpectedResponse),
		errors.Is(err, ytdlp.ErrVideoUnavailable),
		errors.Is(err, ytdlp.ErrVideoPrivate),
		errors.Is(err, ytdlp.ErrGeoRestricted),
		errors.Is(err, ytdlp.ErrAgeRestricted),
		errors.Is(err, ytdlp.ErrUnsupportedURL):
		return false
	default:
		return true
	}
}

// cacheErrorRecorder is optionally implemented by a Recorder that tracks cache write failures.
type cacheErrorRecorder interface {
	ObserveCacheWriteError()
}

func (d *Dispatcher) observe(service ServiceName, outcome string, start time.Time) {
	if d.recorder == nil {
		return
	}
	d.recorder.ObserveResolve(string(service), outcome, time.Since(start))
}

// checkResult rejects results that break the media invariants instead of passing them on.
func checkResult(service ServiceName, r *Result) error {
	if r == nil {
		return fmt.Errorf("%w: strategy returned no result", ErrNoMedia)
	}
	if r.Video == nil && r.Audio == nil {
		return ErrNoMedia
	}
	for _, sel := range []*MediaSelection{r.Video, r.Audio} {
		if sel == nil {
			continue
		}
		if !isValidMediaURL(sel.URL) {
			return fmt.Errorf("%w: %q", ErrInvalidMediaURL, sel.URL)
		}
		for _, fb := range sel.FallbackURLs {
			if fb == sel.URL {
				return fmt.Errorf("%w: fallback repeats primary", ErrInvalidMediaURL)
			}
		}
	}
	r.Service = service
	return nil
}

// captionFor prefers the description, then the nested Shopee caption fields, then the title.
func captionFor(r *Result) string {
	if r.Description != "" {
		return r.Description
	}
	if r.PageProps != nil {
		if c := firstString(r.PageProps, shopeeCaptionPaths...); c != "" {
			return c
		}
	}
	return r.Title
}
