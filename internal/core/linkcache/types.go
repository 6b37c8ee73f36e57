package linkcache

import "time"

// Payload is what a successful resolve hands to the cache.
type Payload struct {
	Service     string
	Caption     string
	Description string
	Title       string
}

// Entry is a remembered resolved link.
type Entry struct {
	Link        string    `json:"link"`
	Service     string    `json:"service"`
	Caption     string    `json:"caption,omitempty"`
	Description string    `json:"description,omitempty"`
	Title       string    `json:"title,omitempty"`
	ResolvedAt  time.Time `json:"resolvedAt"`
}
