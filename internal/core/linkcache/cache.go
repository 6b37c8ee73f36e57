package linkcache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// Cache remembers recently resolved links by hash so later requests can read the caption
// without resending it. Expiry is lazy: every Remember and Get sweeps first, and nothing
// runs in the background.
type Cache struct {
	store          Store
	now            func() time.Time
	ttl            time.Duration
	maxFieldLength int
}

// Option configures a Cache.
type Option func(*Cache)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		if now != nil {
			c.now = now
		}
	}
}

// WithTTL sets the entry lifetime.
func WithTTL(ttl time.Duration) Option {
	return func(c *Cache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithMaxFieldLength sets the truncation limit for caption, description and title.
func WithMaxFieldLength(n int) Option {
	return func(c *Cache) {
		if n > 0 {
			c.maxFieldLength = n
		}
	}
}

// NewCache creates a Cache over store.
func NewCache(store Store, opts ...Option) (*Cache, error) {
	if store == nil {
		return nil, ErrNilStore
	}
	defaults := DefaultConfig()
	c := &Cache{
		store:          store,
		now:            time.Now,
		ttl:            defaults.TTL,
		maxFieldLength: defaults.MaxFieldLength,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// New builds the store selected by cfg and wraps it in a Cache.
func New(ctx context.Context, cfg Config, opts ...Option) (*Cache, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid link cache config: %w", err)
	}

	var store Store = NewMemoryStore()
	if cfg.RedisURL != "" {
		rs, err := DialRedis(ctx, cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		store = rs
		slog.Info("[LINK-CACHE] using redis store")
	}

	opts = append([]Option{WithTTL(cfg.TTL), WithMaxFieldLength(cfg.MaxFieldLength)}, opts...)
	return NewCache(store, opts...)
}

// Remember stores the payload under hash, overwriting any previous entry.
// It is a no-op when hash or link is empty.
func (c *Cache) Remember(ctx context.Context, hash, link string, p Payload) error {
	if hash == "" || link == "" {
		return nil
	}

	now := c.now()
	c.sweep(ctx, now)

	entry := Entry{
		Link:        link,
		Service:     p.Service,
		Caption:     Truncate(p.Caption, c.maxFieldLength),
		Description: Truncate(p.Description, c.maxFieldLength),
		Title:       Truncate(p.Title, c.maxFieldLength),
		ResolvedAt:  now,
	}
	if err := c.store.Put(ctx, hash, entry, c.ttl); err != nil {
		return fmt.Errorf("failed to remember link: %w", err)
	}
	return nil
}

// Get returns the live entry for hash, or ErrNotFound.
func (c *Cache) Get(ctx context.Context, hash string) (*Entry, error) {
	if hash == "" {
		return nil, ErrNotFound
	}

	now := c.now()
	c.sweep(ctx, now)

	entry, err := c.store.Get(ctx, hash, now)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to read link: %w", err)
	}
	return entry, nil
}

// Close releases the backing store.
func (c *Cache) Close() error {
	return c.store.Close()
}

func (c *Cache) sweep(ctx context.Context, now time.Time) {
	removed, err := c.store.Sweep(ctx, now)
	if err != nil {
		slog.Warn("[LINK-CACHE] sweep failed", "error", err)
		return
	}
	if removed > 0 {
		slog.Debug("[LINK-CACHE] swept expired entries", "removed", removed)
	}
}
