package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"fairshare/pkg/outbox"
)

type outboxRepo struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

var _ outbox.Repository = (*outboxRepo)(nil)

const eventColumns = `id, aggregate_type, aggregate_id, routing_key, payload, status, retry_count, next_retry_at, created_at, updated_at`

func scanEvent(row pgx.Row) (outbox.Event, error) {
	var (
		e       outbox.Event
		payload []byte
	)
	if err := row.Scan(&e.ID, &e.AggregateType, &e.AggregateID, &e.RoutingKey, &payload,
		&e.Status, &e.RetryCount, &e.NextRetryAt, &e.CreatedAt, &e.UpdatedAt); err != nil {
		return outbox.Event{}, err
	}
	e.Payload = json.RawMessage(payload)
	return e, nil
}

func (r *outboxRepo) PendingEvents(ctx context.Context, limit int) ([]outbox.Event, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+eventColumns+` FROM outbox_events
WHERE status = $1 AND (next_retry_at IS NULL OR next_retry_at <= NOW())
ORDER BY id LIMIT $2`,
		outbox.StatusPending, limit)
	if err != nil {
		r.logger.Error("Failed to get pending events", zap.Error(err))
		return nil, mapError("pending events", err)
	}
	events, err := collect(rows, scanEvent)
	if err != nil {
		return nil, mapError("pending events", err)
	}
	return events, nil
}

func (r *outboxRepo) FailedEvents(ctx context.Context, limit int) ([]outbox.Event, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+eventColumns+` FROM outbox_events WHERE status = $1 ORDER BY id LIMIT $2`,
		outbox.StatusFailed, limit)
	if err != nil {
		r.logger.Error("Failed to get failed events", zap.Error(err))
		return nil, mapError("failed events", err)
	}
	events, err := collect(rows, scanEvent)
	if err != nil {
		return nil, mapError("failed events", err)
	}
	return events, nil
}

func (r *outboxRepo) GetEvent(ctx context.Context, eventID int64) (outbox.Event, error) {
	e, err := scanEvent(r.db.QueryRow(ctx,
		`SELECT `+eventColumns+` FROM outbox_events WHERE id = $1`, eventID))
	if err != nil {
		return outbox.Event{}, mapError(fmt.Sprintf("get event %d", eventID), err)
	}
	return e, nil
}

func (r *outboxRepo) MarkSent(ctx context.Context, eventID int64) error {
	return r.exec(ctx, "mark sent",
		`UPDATE outbox_events SET status = $1, next_retry_at = NULL, updated_at = NOW() WHERE id = $2`,
		outbox.StatusSent, eventID)
}

func (r *outboxRepo) MarkFailed(ctx context.Context, eventID int64, maxRetries int) error {
	var status string
	var retries int
	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		if err := tx.QueryRow(ctx,
			`SELECT retry_count FROM outbox_events WHERE id = $1 FOR UPDATE`, eventID,
		).Scan(&retries); err != nil {
			return err
		}
		retries++
		status = outbox.StatusPending
		if retries >= maxRetries {
			status = outbox.StatusFailed
		}
		_, err := tx.Exec(ctx,
			`UPDATE outbox_events SET status = $1, retry_count = $2, next_retry_at = $3, updated_at = NOW() WHERE id = $4`,
			status, retries, outbox.NextRetry(time.Now().UTC(), retries), eventID)
		return err
	})
	if err != nil {
		r.logger.Error("Failed to mark event failed", zap.Int64("event_id", eventID), zap.Error(err))
		return mapError(fmt.Sprintf("mark failed %d", eventID), err)
	}
	if status == outbox.StatusFailed {
		r.logger.Warn("Outbox event exhausted retries",
			zap.Int64("event_id", eventID),
			zap.Int("retry_count", retries),
		)
	}
	return nil
}

func (r *outboxRepo) ResetEvent(ctx context.Context, eventID int64) error {
	return r.exec(ctx, "reset event",
		`UPDATE outbox_events SET status = $1, retry_count = 0, next_retry_at = NULL, updated_at = NOW() WHERE id = $2`,
		outbox.StatusPending, eventID)
}

func (r *outboxRepo) exec(ctx context.Context, op, query string, args ...any) error {
	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to "+op, zap.Error(err))
		return mapError(op, err)
	}
	if tag.RowsAffected() == 0 {
		return mapError(op, pgx.ErrNoRows)
	}
	return nil
}
