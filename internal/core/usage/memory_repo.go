package usage

import (
	"context"
	"sort"
	"sync"
	"time"
)

type counterKey struct {
	sessionID string
	action    Action
	service   string
}

// MemoryRepository keeps counters in process memory. Used when no database is configured.
type MemoryRepository struct {
	counters map[counterKey]Counter
	now      func() time.Time
	mu       sync.Mutex
}

// NewMemoryRepository creates an empty MemoryRepository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		counters: make(map[counterKey]Counter),
		now:      time.Now,
	}
}

func (r *MemoryRepository) Increment(_ context.Context, sessionID string, action Action, service string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := counterKey{sessionID: sessionID, action: action, service: service}
	c := r.counters[key]
	c.SessionID = sessionID
	c.Action = action
	c.Service = service
	c.Count++
	c.UpdatedAt = r.now()
	r.counters[key] = c
	return nil
}

func (r *MemoryRepository) ListBySession(_ context.Context, sessionID string) ([]Counter, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []Counter
	for key, c := range r.counters {
		if key.sessionID == sessionID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Action != out[j].Action {
			return out[i].Action < out[j].Action
		}
		return out[i].Service < out[j].Service
	})
	return out, nil
}
