package usage

import "context"

// Service records and reports per-session usage
type Service interface {
	// Record increments the counter for (sessionID, action, service).
	// Callers log the error and carry on; usage never fails a user request.
	Record(ctx context.Context, sessionID string, action Action, service string) error

	// Stats returns every counter for the session, summed per action and per service.
	Stats(ctx context.Context, sessionID string) (*Stats, error)
}

// Repository defines the data access interface for usage counters
type Repository interface {
	// Increment adds one to the counter, creating it at 1 if absent
	Increment(ctx context.Context, sessionID string, action Action, service string) error

	// ListBySession returns the session's counters ordered by action then service
	ListBySession(ctx context.Context, sessionID string) ([]Counter, error)
}
