package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"Linkgrab/internal/core/usage"
)

type postgresUsageRepo struct {
	db *sql.DB
}

// NewUsageRepository creates a new PostgreSQL usage repository
func NewUsageRepository(db *sql.DB) usage.Repository {
	return &postgresUsageRepo{db: db}
}

// Increment upserts the counter row, adding one to an existing count
func (r *postgresUsageRepo) Increment(ctx context.Context, sessionID string, action usage.Action, service string) error {
	query := `
		INSERT INTO usage_counters (session_id, action, service, count, updated_at)
		VALUES ($1, $2, $3, 1, NOW())
		ON CONFLICT (session_id, action, service)
		DO UPDATE SET count = usage_counters.count + 1, updated_at = NOW()
	`

	if _, err := r.db.ExecContext(ctx, query, sessionID, string(action), service); err != nil {
		if strings.Contains(err.Error(), "chk_usage_action") {
			return fmt.Errorf("%w: %q", usage.ErrInvalidAction, action)
		}
		return fmt.Errorf("failed to increment usage counter: %w", err)
	}
	return nil
}

// ListBySession returns every counter of a session
func (r *postgresUsageRepo) ListBySession(ctx context.Context, sessionID string) ([]usage.Counter, error) {
	query := `
		SELECT session_id, action, service, count, updated_at
		FROM usage_counters
		WHERE session_id = $1
		ORDER BY action, service
	`

	rows, err := r.db.QueryContext(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query usage counters: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var counters []usage.Counter
	for rows.Next() {
		var c usage.Counter
		var action string
		if err := rows.Scan(&c.SessionID, &action, &c.Service, &c.Count, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan usage counter: %w", err)
		}
		c.Action = usage.Action(action)
		counters = append(counters, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating usage counters: %w", err)
	}
	return counters, nil
}
