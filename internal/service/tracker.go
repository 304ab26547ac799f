// Package service is the operation surface of fairshare. Every Tracker
// method runs exactly one store unit of work.
package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"fairshare/internal/model"
	"fairshare/internal/storage"
	"fairshare/pkg/logger"
	"fairshare/pkg/metrics"
	"fairshare/pkg/otel"
	"fairshare/pkg/outbox"
	"fairshare/pkg/trace"
)

type Tracker struct {
	store  storage.Store
	logger *zap.Logger
	now    func() time.Time
	events bool
}

type Option func(*Tracker)

// WithClock replaces time.Now as the source of "today".
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) {
		if now != nil {
			t.now = now
		}
	}
}

// WithEvents makes every mutation record an outbox event in its transaction.
func WithEvents(enabled bool) Option {
	return func(t *Tracker) { t.events = enabled }
}

func NewTracker(store storage.Store, logger *zap.Logger, opts ...Option) *Tracker {
	t := &Tracker{
		store:  store,
		logger: logger,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Today is the calendar date urgency is measured against.
func (t *Tracker) Today() model.Date {
	return model.DateOf(t.now())
}

// Ping reports whether the store is reachable.
func (t *Tracker) Ping(ctx context.Context) error {
	return t.store.Ping(ctx)
}

// outcome is the metrics label for err.
func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, model.ErrNotFound):
		return "not_found"
	case errors.Is(err, model.ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, model.ErrConflict):
		return "conflict"
	case errors.Is(err, model.ErrStoreUnavailable):
		return "unavailable"
	}
	return "error"
}

// observe opens a span for op and returns the function that closes it,
// records the latency histogram and logs unexpected failures.
func (t *Tracker) observe(ctx context.Context, op string) (context.Context, func(error) error) {
	ctx, span := otel.StartSpan(ctx, "tracker."+op)
	start := time.Now()
	return ctx, func(err error) error {
		result := outcome(err)
		metrics.RecordOperation(op, result, time.Since(start))
		otel.End(span, err)

		log := logger.WithTrace(ctx, t.logger)
		switch result {
		case "ok":
			log.Debug("Operation completed", zap.String("operation", op))
		case "not_found", "invalid_input":
			log.Debug("Operation rejected", zap.String("operation", op), zap.Error(err))
		default:
			log.Error("Operation failed", zap.String("operation", op), zap.String("outcome", result), zap.Error(err))
		}
		return err
	}
}

// record stores an integration event when events are enabled.
func (t *Tracker) record(ctx context.Context, tx storage.Tx, aggregateType string, aggregateID int64, routingKey string, payload any) error {
	if !t.events {
		return nil
	}
	e, err := outbox.NewEvent(aggregateType, aggregateID, routingKey, payload)
	if err != nil {
		return err
	}
	_, err = tx.RecordEvent(ctx, e)
	return err
}

func traceID(ctx context.Context) string {
	return trace.FromContext(ctx)
}
