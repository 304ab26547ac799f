package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"fairshare/pkg/circuitbreaker"
	"fairshare/pkg/trace"
)

type memRepo struct {
	mu     sync.Mutex
	events map[int64]*Event
}

func newMemRepo(events ...Event) *memRepo {
	r := &memRepo{events: make(map[int64]*Event)}
	for i := range events {
		e := events[i]
		r.events[e.ID] = &e
	}
	return r
}

func (r *memRepo) PendingEvents(_ context.Context, limit int) ([]Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Event
	for id := int64(1); id <= int64(len(r.events)) && len(out) < limit; id++ {
		if e, ok := r.events[id]; ok && e.Status == StatusPending {
			out = append(out, *e)
		}
	}
	return out, nil
}

func (r *memRepo) MarkSent(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.events[id]
	if !ok {
		return fmt.Errorf("event %d missing", id)
	}
	e.Status = StatusSent
	return nil
}

func (r *memRepo) MarkFailed(_ context.Context, id int64, maxRetries int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.events[id]
	if !ok {
		return fmt.Errorf("event %d missing", id)
	}
	e.RetryCount++
	if e.RetryCount >= maxRetries {
		e.Status = StatusFailed
	}
	return nil
}

func (r *memRepo) GetEvent(_ context.Context, id int64) (Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.events[id]
	if !ok {
		return Event{}, fmt.Errorf("event %d missing", id)
	}
	return *e, nil
}

func (r *memRepo) FailedEvents(_ context.Context, limit int) ([]Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Event
	for id := int64(1); id <= int64(len(r.events)) && len(out) < limit; id++ {
		if e, ok := r.events[id]; ok && e.Status == StatusFailed {
			out = append(out, *e)
		}
	}
	return out, nil
}

func (r *memRepo) ResetEvent(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.events[id]
	if !ok {
		return fmt.Errorf("event %d missing", id)
	}
	e.Status = StatusPending
	e.RetryCount = 0
	return nil
}

func (r *memRepo) status(id int64) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.events[id].Status
}

type recordingPublisher struct {
	mu       sync.Mutex
	fail     error
	keys     []string
	traceIDs []string
}

func (p *recordingPublisher) PublishWithContext(ctx context.Context, routingKey string, _ []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail != nil {
		return p.fail
	}
	p.keys = append(p.keys, routingKey)
	p.traceIDs = append(p.traceIDs, trace.FromContext(ctx))
	return nil
}

func pendingEvent(t *testing.T, id int64, key string, payload any) Event {
	t.Helper()
	e, err := NewEvent("project", 7, key, payload)
	if err != nil {
		t.Fatalf("new event: %v", err)
	}
	e.ID = id
	return e
}

func TestDispatcherPublishesPendingEvents(t *testing.T) {
	repo := newMemRepo(
		pendingEvent(t, 1, "project.created", map[string]any{"project_id": 7, "trace_id": "abc"}),
		pendingEvent(t, 2, "member.added", map[string]any{"member_id": 3}),
	)
	pub := &recordingPublisher{}
	d := NewDispatcher(repo, pub, zaptest.NewLogger(t))

	if sent := d.ProcessPending(context.Background()); sent != 2 {
		t.Fatalf("sent = %d, want 2", sent)
	}
	if repo.status(1) != StatusSent || repo.status(2) != StatusSent {
		t.Fatalf("statuses = %s, %s", repo.status(1), repo.status(2))
	}
	if pub.keys[0] != "project.created" || pub.keys[1] != "member.added" {
		t.Fatalf("published keys = %v", pub.keys)
	}
	if pub.traceIDs[0] != "abc" {
		t.Fatalf("trace id = %q, want abc", pub.traceIDs[0])
	}
}

func TestDispatcherMarksFailedAfterMaxRetries(t *testing.T) {
	repo := newMemRepo(pendingEvent(t, 1, "module.completed", map[string]any{"module_id": 1}))
	pub := &recordingPublisher{fail: errors.New("channel closed")}
	d := NewDispatcher(repo, pub, zaptest.NewLogger(t)).
		WithMaxRetries(2).
		WithBreaker(circuitbreaker.NewCircuitBreaker(circuitbreaker.Config{FailureThreshold: 100}))

	d.ProcessPending(context.Background())
	if got := repo.status(1); got != StatusPending {
		t.Fatalf("status after first failure = %s, want pending", got)
	}
	d.ProcessPending(context.Background())
	if got := repo.status(1); got != StatusFailed {
		t.Fatalf("status after second failure = %s, want failed", got)
	}
}

func TestDispatcherDoesNotCountOpenBreaker(t *testing.T) {
	repo := newMemRepo(
		pendingEvent(t, 1, "module.created", map[string]any{}),
		pendingEvent(t, 2, "module.created", map[string]any{}),
	)
	pub := &recordingPublisher{fail: errors.New("broker down")}
	cb := circuitbreaker.NewCircuitBreaker(circuitbreaker.Config{FailureThreshold: 1, Timeout: time.Hour})
	d := NewDispatcher(repo, pub, zaptest.NewLogger(t)).WithMaxRetries(10).WithBreaker(cb)

	d.ProcessPending(context.Background())

	first, _ := repo.GetEvent(context.Background(), 1)
	second, _ := repo.GetEvent(context.Background(), 2)
	if first.RetryCount != 1 {
		t.Fatalf("first retry count = %d, want 1", first.RetryCount)
	}
	if second.RetryCount != 0 {
		t.Fatalf("second retry count = %d, want 0 while breaker open", second.RetryCount)
	}
}

func TestDispatcherRejectsInvalidPayload(t *testing.T) {
	repo := newMemRepo(Event{ID: 1, RoutingKey: "x", Payload: json.RawMessage(`{bad`), Status: StatusPending})
	pub := &recordingPublisher{}
	d := NewDispatcher(repo, pub, zaptest.NewLogger(t)).WithMaxRetries(1)

	if sent := d.ProcessPending(context.Background()); sent != 0 {
		t.Fatalf("sent = %d, want 0", sent)
	}
	if len(pub.keys) != 0 {
		t.Fatalf("published %v", pub.keys)
	}
	if got := repo.status(1); got != StatusFailed {
		t.Fatalf("status = %s, want failed", got)
	}
}

func TestDispatcherStartStopsWithContext(t *testing.T) {
	repo := newMemRepo(pendingEvent(t, 1, "project.deleted", map[string]any{}))
	pub := &recordingPublisher{}
	d := NewDispatcher(repo, pub, zaptest.NewLogger(t)).WithInterval(5 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		d.Start(ctx)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for repo.status(1) != StatusSent {
		select {
		case <-deadline:
			t.Fatal("event not dispatched")
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()
	<-done
}

func TestReplayFailedEvents(t *testing.T) {
	failed := pendingEvent(t, 1, "module.deleted", map[string]any{})
	failed.Status = StatusFailed
	failed.RetryCount = 5
	repo := newMemRepo(failed, pendingEvent(t, 2, "module.created", map[string]any{}))
	pub := &recordingPublisher{}
	svc := NewReplayService(repo, pub, zaptest.NewLogger(t))

	n, err := svc.ReplayFailedEvents(context.Background(), 10)
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if n != 1 {
		t.Fatalf("replayed = %d, want 1", n)
	}
	if got := repo.status(1); got != StatusSent {
		t.Fatalf("status = %s, want sent", got)
	}
	if got := repo.status(2); got != StatusPending {
		t.Fatalf("untouched event status = %s, want pending", got)
	}
}

func TestReplayEventMarksFailedOnPublishError(t *testing.T) {
	e := pendingEvent(t, 1, "module.deleted", map[string]any{})
	e.Status = StatusFailed
	repo := newMemRepo(e)
	pub := &recordingPublisher{fail: errors.New("nope")}
	svc := NewReplayService(repo, pub, zaptest.NewLogger(t))

	if err := svc.ReplayEvent(context.Background(), 1); err == nil {
		t.Fatal("expected publish error")
	}
	got, _ := repo.GetEvent(context.Background(), 1)
	if got.RetryCount != 1 {
		t.Fatalf("retry count = %d, want 1", got.RetryCount)
	}
}

func TestNextRetryIsLinear(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	if got := NextRetry(now, 3).Sub(now); got != 15*time.Second {
		t.Fatalf("backoff = %v, want 15s", got)
	}
}
