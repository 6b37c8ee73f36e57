package linkcache

import "errors"

var (
	// ErrNotFound is returned when no live entry exists for a hash.
	ErrNotFound = errors.New("resolved link not found")

	// ErrNilStore is returned when NewCache is called without a store.
	ErrNilStore = errors.New("store is required")

	// ErrInvalidTTL is returned when TTL is not positive
	ErrInvalidTTL = errors.New("TTL must be positive")

	// ErrInvalidMaxFieldLength is returned when MaxFieldLength is not positive
	ErrInvalidMaxFieldLength = errors.New("MaxFieldLength must be positive")
)
