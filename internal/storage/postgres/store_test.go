package postgres

import (
	"context"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap/zaptest"

	"fairshare/internal/storage"
	"fairshare/internal/storage/storagetest"
)

// openTestStore connects to FAIRSHARE_TEST_POSTGRES_DSN and empties every
// table. Tests sharing the database must not run in parallel.
func openTestStore(t *testing.T) *Store {
	t.Helper()
	dsn := os.Getenv("FAIRSHARE_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("FAIRSHARE_TEST_POSTGRES_DSN not set")
	}
	ctx := context.Background()

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	s, err := New(ctx, pool, zaptest.NewLogger(t))
	if err != nil {
		pool.Close()
		t.Fatalf("new store: %v", err)
	}
	if _, err := pool.Exec(ctx,
		`TRUNCATE outbox_events, module_updates, modules, members, projects RESTART IDENTITY CASCADE`); err != nil {
		s.Close()
		t.Fatalf("truncate: %v", err)
	}
	return s
}

func TestConformance(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storage.Store {
		return openTestStore(t)
	})
}

func TestMigrateIsIdempotent(t *testing.T) {
	s := openTestStore(t)
	defer s.Close()

	ctx := context.Background()
	if err := s.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	var applied int
	if err := s.db.QueryRow(ctx, `SELECT COUNT(*) FROM schema_migrations`).Scan(&applied); err != nil {
		t.Fatalf("count: %v", err)
	}
	if applied != 1 {
		t.Fatalf("applied = %d, want 1", applied)
	}
}

func TestExtractUp(t *testing.T) {
	t.Parallel()

	if got := extractUp("-- +migrate Up\nSELECT 1;\n-- +migrate Down\nSELECT 2;"); got != "\nSELECT 1;\n" {
		t.Fatalf("extractUp = %q", got)
	}
}
