package postgres

import (
	"context"
	"database/sql"
	"os"
	"testing"

	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Linkgrab/internal/core/usage"
)

// setupTestDB opens TEST_DATABASE_URL and runs migrations, or skips when it is unset
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping postgres tests")
	}

	db, err := sql.Open("postgres", dsn)
	require.NoError(t, err, "Failed to connect to test database")

	require.NoError(t, goose.SetDialect("postgres"))
	require.NoError(t, goose.Up(db, "../migrations"), "Failed to run migrations")

	return db
}

func cleanupUsage(t *testing.T, db *sql.DB) {
	_, err := db.Exec("DELETE FROM usage_counters WHERE session_id LIKE 'test-%'")
	require.NoError(t, err, "Failed to cleanup usage counters")
}

func TestUsageRepo_IncrementAndList(t *testing.T) {
	db := setupTestDB(t)
	defer func() { _ = db.Close() }()
	defer cleanupUsage(t, db)

	repo := NewUsageRepository(db)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, repo.Increment(ctx, "test-sess-1", usage.ActionResolve, "tiktok"))
	}
	require.NoError(t, repo.Increment(ctx, "test-sess-1", usage.ActionDownload, "tiktok"))
	require.NoError(t, repo.Increment(ctx, "test-sess-2", usage.ActionResolve, "youtube"))

	counters, err := repo.ListBySession(ctx, "test-sess-1")
	require.NoError(t, err)
	require.Len(t, counters, 2)

	assert.Equal(t, usage.ActionDownload, counters[0].Action)
	assert.Equal(t, int64(1), counters[0].Count)
	assert.Equal(t, usage.ActionResolve, counters[1].Action)
	assert.Equal(t, int64(3), counters[1].Count)
	assert.Equal(t, "tiktok", counters[1].Service)
	assert.False(t, counters[1].UpdatedAt.IsZero())
}

func TestUsageRepo_RejectsUnknownAction(t *testing.T) {
	db := setupTestDB(t)
	defer func() { _ = db.Close() }()
	defer cleanupUsage(t, db)

	repo := NewUsageRepository(db)
	err := repo.Increment(context.Background(), "test-sess-3", usage.Action("upload"), "tiktok")
	assert.ErrorIs(t, err, usage.ErrInvalidAction)
}

func TestUsageRepo_EmptySession(t *testing.T) {
	db := setupTestDB(t)
	defer func() { _ = db.Close() }()

	counters, err := NewUsageRepository(db).ListBySession(context.Background(), "test-nobody")
	require.NoError(t, err)
	assert.Empty(t, counters)
}
