// Package sqlite implements storage.Store on an embedded SQLite database.
//
// Writers share one connection opened with immediate transactions, so write
// units of work are serialized. Readers use a second pool in WAL mode; each
// View pins one snapshot for its duration.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"fairshare/internal/storage"
	"fairshare/internal/storage/sqlite/migrations"
	"fairshare/pkg/otel"
	"fairshare/pkg/outbox"
)

const (
	basePragmas = "_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	dbSystem    = "sqlite"
)

var _ storage.Store = (*Store)(nil)

type Store struct {
	writeDB *sql.DB
	readDB  *sql.DB
	logger  *zap.Logger
	outbox  *outboxRepo
}

// Open opens the database at path, creating it if needed, and applies the
// embedded migrations.
func Open(ctx context.Context, path string, logger *zap.Logger) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	clean := filepath.Clean(path)

	writeDB, err := sql.Open("sqlite", clean+"?"+basePragmas+"&_txlock=immediate")
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	writeDB.SetMaxOpenConns(1)

	if err := writeDB.PingContext(ctx); err != nil {
		_ = writeDB.Close()
		return nil, mapError("ping sqlite db", err)
	}

	// WAL must be in place before readers attach
	readDB, err := sql.Open("sqlite", clean+"?"+basePragmas+"&_pragma=query_only(1)")
	if err != nil {
		_ = writeDB.Close()
		return nil, fmt.Errorf("open sqlite read handle: %w", err)
	}

	s := &Store{
		writeDB: writeDB,
		readDB:  readDB,
		logger:  logger,
	}
	s.outbox = &outboxRepo{db: writeDB, logger: logger}

	if err := s.Migrate(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}

	logger.Info("SQLite store opened", zap.String("path", clean))
	return s, nil
}

// Migrate applies pending migrations. It is safe to call repeatedly.
func (s *Store) Migrate(ctx context.Context) error {
	if err := applyMigrations(ctx, s.writeDB, migrations.FS); err != nil {
		s.logger.Error("Failed to apply migrations", zap.Error(err))
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

func (s *Store) Update(ctx context.Context, fn func(storage.Tx) error) (err error) {
	ctx, span := otel.DBSpan(ctx, dbSystem, "update")
	defer func() { otel.End(span, err) }()

	sqlTx, err := s.writeDB.BeginTx(ctx, nil)
	if err != nil {
		return mapError("begin update", err)
	}
	defer func() { _ = sqlTx.Rollback() }()

	if err := fn(&tx{q: sqlTx, logger: s.logger}); err != nil {
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return mapError("commit update", err)
	}
	return nil
}

func (s *Store) View(ctx context.Context, fn func(storage.Reader) error) (err error) {
	ctx, span := otel.DBSpan(ctx, dbSystem, "view")
	defer func() { otel.End(span, err) }()

	sqlTx, err := s.readDB.BeginTx(ctx, nil)
	if err != nil {
		return mapError("begin view", err)
	}
	defer func() { _ = sqlTx.Rollback() }()

	if err := fn(&tx{q: sqlTx, logger: s.logger}); err != nil {
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return mapError("end view", err)
	}
	return nil
}

func (s *Store) Outbox() outbox.Repository {
	return s.outbox
}

func (s *Store) Ping(ctx context.Context) error {
	if err := s.readDB.PingContext(ctx); err != nil {
		return mapError("ping", err)
	}
	return nil
}

// Close closes both handles.
func (s *Store) Close() error {
	if s == nil {
		return nil
	}
	var firstErr error
	for _, db := range []*sql.DB{s.readDB, s.writeDB} {
		if db == nil {
			continue
		}
		if err := db.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
