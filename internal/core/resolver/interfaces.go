package resolver

import (
	"context"
	"time"

	"Linkgrab/internal/core/linkcache"
	"Linkgrab/internal/core/ytdlp"
)

// Strategy is one platform resolver. Implementations hold no per-request state.
type Strategy interface {
	// Name returns the service tag written into every Result.
	Name() ServiceName

	// IsApplicable reports whether this strategy handles the link.
	// It must return false, never panic, for malformed input.
	IsApplicable(link string) bool

	// Resolve returns a complete Result or an error. It never returns a partial Result.
	Resolve(ctx context.Context, link string) (*Result, error)
}

// LinkCache remembers resolved links so later requests can look captions up by hash.
type LinkCache interface {
	Remember(ctx context.Context, hash, link string, payload linkcache.Payload) error
	Get(ctx context.Context, hash string) (*linkcache.Entry, error)
}

// MetadataExtractor dumps format metadata for a URL using the external extraction tool.
type MetadataExtractor interface {
	Extract(ctx context.Context, url string) (*ytdlp.Info, error)
}

// Recorder receives resolve outcomes for metrics.
type Recorder interface {
	ObserveResolve(service, outcome string, elapsed time.Duration)
}

// Service is the resolve surface consumed by the HTTP handlers and the CLI. *Dispatcher implements it.
type Service interface {
	Resolve(ctx context.Context, text string) (*Resolved, error)
	Lookup(ctx context.Context, hash string) (*linkcache.Entry, error)
}
