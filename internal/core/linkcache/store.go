package linkcache

import (
	"context"
	"sync"
	"time"
)

// Store persists entries. Implementations expire an entry ttl after its ResolvedAt.
type Store interface {
	Put(ctx context.Context, hash string, entry Entry, ttl time.Duration) error
	Get(ctx context.Context, hash string, now time.Time) (*Entry, error)

	// Sweep drops expired entries and reports how many were removed.
	Sweep(ctx context.Context, now time.Time) (int, error)

	Close() error
}

type memoryItem struct {
	entry     Entry
	expiresAt time.Time
}

// MemoryStore keeps entries in a process-local map. Contents are lost on restart.
type MemoryStore struct {
	items map[string]memoryItem
	mu    sync.RWMutex
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: make(map[string]memoryItem)}
}

func (s *MemoryStore) Put(_ context.Context, hash string, entry Entry, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items[hash] = memoryItem{entry: entry, expiresAt: entry.ResolvedAt.Add(ttl)}
	return nil
}

func (s *MemoryStore) Get(_ context.Context, hash string, now time.Time) (*Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, ok := s.items[hash]
	if !ok || !now.Before(item.expiresAt) {
		return nil, ErrNotFound
	}
	entry := item.entry
	return &entry, nil
}

func (s *MemoryStore) Sweep(_ context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for hash, item := range s.items {
		if !now.Before(item.expiresAt) {
			delete(s.items, hash)
			removed++
		}
	}
	return removed, nil
}

// Len returns the number of stored entries, expired or not.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = make(map[string]memoryItem)
	return nil
}
