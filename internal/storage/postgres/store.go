// Package postgres implements storage.Store on PostgreSQL through pgx.
//
// Update runs READ COMMITTED and takes FOR KEY SHARE locks on parent rows
// before inserting children, so a concurrent cascade either waits for the
// insert or the insert observes the parent gone. View runs REPEATABLE READ
// READ ONLY, giving every composite read one snapshot.
package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"fairshare/internal/storage"
	"fairshare/internal/storage/postgres/migrations"
	"fairshare/pkg/otel"
	"fairshare/pkg/outbox"
)

const dbSystem = "postgresql"

var (
	_ storage.Store = (*Store)(nil)

	updateOptions = pgx.TxOptions{IsoLevel: pgx.ReadCommitted}
	viewOptions   = pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly}
)

type Store struct {
	db     *pgxpool.Pool
	logger *zap.Logger
	outbox *outboxRepo
}

// New wraps an open pool and applies the embedded migrations. The store
// takes ownership of the pool.
func New(ctx context.Context, db *pgxpool.Pool, logger *zap.Logger) (*Store, error) {
	s := &Store{
		db:     db,
		logger: logger,
		outbox: &outboxRepo{db: db, logger: logger},
	}
	if err := s.Migrate(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) Migrate(ctx context.Context) error {
	if err := applyMigrations(ctx, s.db, migrations.FS); err != nil {
		s.logger.Error("Failed to apply migrations", zap.Error(err))
		return mapError("run migrations", err)
	}
	return nil
}

func (s *Store) Update(ctx context.Context, fn func(storage.Tx) error) (err error) {
	ctx, span := otel.DBSpan(ctx, dbSystem, "update")
	defer func() { otel.End(span, err) }()

	pgTx, err := s.db.BeginTx(ctx, updateOptions)
	if err != nil {
		return mapError("begin update", err)
	}
	defer func() { _ = pgTx.Rollback(ctx) }()

	if err := fn(&tx{q: pgTx, logger: s.logger}); err != nil {
		return err
	}
	if err := pgTx.Commit(ctx); err != nil {
		return mapError("commit update", err)
	}
	return nil
}

func (s *Store) View(ctx context.Context, fn func(storage.Reader) error) (err error) {
	ctx, span := otel.DBSpan(ctx, dbSystem, "view")
	defer func() { otel.End(span, err) }()

	pgTx, err := s.db.BeginTx(ctx, viewOptions)
	if err != nil {
		return mapError("begin view", err)
	}
	defer func() { _ = pgTx.Rollback(ctx) }()

	if err := fn(&tx{q: pgTx, logger: s.logger}); err != nil {
		return err
	}
	if err := pgTx.Commit(ctx); err != nil {
		return mapError("end view", err)
	}
	return nil
}

func (s *Store) Outbox() outbox.Repository {
	return s.outbox
}

func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.Ping(ctx); err != nil {
		return mapError("ping", err)
	}
	return nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	s.db.Close()
	return nil
}
