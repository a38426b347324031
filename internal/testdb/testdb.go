// Package testdb provides a migrated Postgres pool for integration tests.
package testdb

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"healthOSAPI/internal/database"
)

// tables in dependency order, children first
var tables = []string{
	"routine_completions",
	"routine_items",
	"routine_cards",
	"routine_versions",
	"routines",
	"habit_streaks",
	"habit_logs",
	"habits",
	"family_memberships",
	"families",
	"users",
}

// Setup connects to TEST_DATABASE_URL, applies migrations and empties every
// table. Tests are skipped when the variable is not set.
func Setup(t *testing.T) *pgxpool.Pool {
	t.Helper()

	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set; skipping database test")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}
	t.Cleanup(pool.Close)

	if err := pool.Ping(ctx); err != nil {
		t.Fatalf("Failed to ping test database: %v", err)
	}

	if _, err := database.NewMigrator(pool, database.Migrations()).Up(ctx); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}

	Truncate(t, pool)
	return pool
}

// Truncate removes all rows from the application tables.
func Truncate(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()
	for _, table := range tables {
		if _, err := pool.Exec(context.Background(), "DELETE FROM "+table); err != nil {
			t.Fatalf("Failed to clean %s: %v", table, err)
		}
	}
}
