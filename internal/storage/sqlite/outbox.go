package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"fairshare/pkg/outbox"
)

// outboxRepo is the dispatcher side of outbox_events. It runs on the write
// handle so it queues behind business transactions.
type outboxRepo struct {
	db     *sql.DB
	logger *zap.Logger
	now    func() time.Time
}

var _ outbox.Repository = (*outboxRepo)(nil)

const eventColumns = `id, aggregate_type, aggregate_id, routing_key, payload, status, retry_count, next_retry_at, created_at, updated_at`

func (r *outboxRepo) clock() time.Time {
	if r.now != nil {
		return r.now().UTC()
	}
	return time.Now().UTC()
}

func scanEvent(row scanner) (outbox.Event, error) {
	var (
		e           outbox.Event
		aggregateID sql.NullInt64
		payload     string
		nextRetry   sql.NullInt64
		created     int64
		updated     int64
	)
	if err := row.Scan(&e.ID, &e.AggregateType, &aggregateID, &e.RoutingKey, &payload,
		&e.Status, &e.RetryCount, &nextRetry, &created, &updated); err != nil {
		return outbox.Event{}, err
	}
	if aggregateID.Valid {
		id := aggregateID.Int64
		e.AggregateID = &id
	}
	e.Payload = json.RawMessage(payload)
	if nextRetry.Valid {
		at := time.UnixMilli(nextRetry.Int64).UTC()
		e.NextRetryAt = &at
	}
	e.CreatedAt = time.UnixMilli(created).UTC()
	e.UpdatedAt = time.UnixMilli(updated).UTC()
	return e, nil
}

func (r *outboxRepo) queryEvents(ctx context.Context, op, query string, args ...any) ([]outbox.Event, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError(op, err)
	}
	defer rows.Close()

	var events []outbox.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, mapError(op, err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(op, err)
	}
	return events, nil
}

func (r *outboxRepo) PendingEvents(ctx context.Context, limit int) ([]outbox.Event, error) {
	return r.queryEvents(ctx, "pending events",
		`SELECT `+eventColumns+` FROM outbox_events
WHERE status = ? AND (next_retry_at IS NULL OR next_retry_at <= ?)
ORDER BY id LIMIT ?`,
		outbox.StatusPending, r.clock().UnixMilli(), limit)
}

func (r *outboxRepo) FailedEvents(ctx context.Context, limit int) ([]outbox.Event, error) {
	return r.queryEvents(ctx, "failed events",
		`SELECT `+eventColumns+` FROM outbox_events WHERE status = ? ORDER BY id LIMIT ?`,
		outbox.StatusFailed, limit)
}

func (r *outboxRepo) GetEvent(ctx context.Context, eventID int64) (outbox.Event, error) {
	e, err := scanEvent(r.db.QueryRowContext(ctx,
		`SELECT `+eventColumns+` FROM outbox_events WHERE id = ?`, eventID))
	if err != nil {
		return outbox.Event{}, mapError(fmt.Sprintf("get event %d", eventID), err)
	}
	return e, nil
}

func (r *outboxRepo) MarkSent(ctx context.Context, eventID int64) error {
	return r.exec(ctx, "mark sent",
		`UPDATE outbox_events SET status = ?, next_retry_at = NULL, updated_at = ? WHERE id = ?`,
		outbox.StatusSent, r.clock().UnixMilli(), eventID)
}

func (r *outboxRepo) MarkFailed(ctx context.Context, eventID int64, maxRetries int) error {
	sqlTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return mapError("mark failed", err)
	}
	defer func() { _ = sqlTx.Rollback() }()

	var retries int
	if err := sqlTx.QueryRowContext(ctx,
		`SELECT retry_count FROM outbox_events WHERE id = ?`, eventID).Scan(&retries); err != nil {
		return mapError(fmt.Sprintf("mark failed %d", eventID), err)
	}
	retries++

	now := r.clock()
	status := outbox.StatusPending
	if retries >= maxRetries {
		status = outbox.StatusFailed
	}
	if _, err := sqlTx.ExecContext(ctx,
		`UPDATE outbox_events SET status = ?, retry_count = ?, next_retry_at = ?, updated_at = ? WHERE id = ?`,
		status, retries, outbox.NextRetry(now, retries).UnixMilli(), now.UnixMilli(), eventID); err != nil {
		return mapError("mark failed", err)
	}
	if err := sqlTx.Commit(); err != nil {
		return mapError("mark failed", err)
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
		`UPDATE outbox_events SET status = ?, retry_count = 0, next_retry_at = NULL, updated_at = ? WHERE id = ?`,
		outbox.StatusPending, r.clock().UnixMilli(), eventID)
}

func (r *outboxRepo) exec(ctx context.Context, op, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to "+op, zap.Error(err))
		return mapError(op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return mapError(op, err)
	}
	if n == 0 {
		return mapError(op, sql.ErrNoRows)
	}
	return nil
}
