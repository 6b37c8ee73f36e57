package usage

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

type usageService struct {
	repo Repository
}

// NewService creates a usage Service backed by repo.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, ErrNilRepository
	}
	return &usageService{repo: repo}, nil
}

func (s *usageService) Record(ctx context.Context, sessionID string, action Action, service string) error {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return ErrMissingSession
	}
	if !action.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidAction, action)
	}
	service = strings.ToLower(strings.TrimSpace(service))
	if service == "" {
		service = "unknown"
	}

	if err := s.repo.Increment(ctx, sessionID, action, service); err != nil {
		return fmt.Errorf("failed to record usage: %w", err)
	}

	slog.Debug("[USAGE] recorded",
		"action", action,
		"service", service,
	)
	return nil
}

func (s *usageService) Stats(ctx context.Context, sessionID string) (*Stats, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, ErrMissingSession
	}

	counters, err := s.repo.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load usage: %w", err)
	}

	stats := &Stats{
		SessionID: sessionID,
		Counters:  counters,
		ByService: make(map[string]int64),
	}
	if stats.Counters == nil {
		stats.Counters = []Counter{}
	}
	for _, c := range counters {
		switch c.Action {
		case ActionResolve:
			stats.Resolves += c.Count
		case ActionDownload:
			stats.Downloads += c.Count
		}
		stats.ByService[c.Service] += c.Count
	}
	return stats, nil
}
