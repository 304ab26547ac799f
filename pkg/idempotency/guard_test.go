package idempotency

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap/zaptest"
)

func openGuard(t *testing.T) *Guard {
	t.Helper()
	addr := os.Getenv("FAIRSHARE_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("FAIRSHARE_TEST_REDIS_ADDR not set")
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = rdb.Close() })
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		t.Skipf("redis unavailable: %v", err)
	}
	return NewGuard(rdb, time.Minute, zaptest.NewLogger(t))
}

func TestGuardReplaysCompletedKey(t *testing.T) {
	g := openGuard(t)
	ctx := context.Background()
	key := uuid.NewString()

	first, err := g.Begin(ctx, "projects", key)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if first.Replayed {
		t.Fatal("first claim replayed")
	}

	if _, err := g.Begin(ctx, "projects", key); !errors.Is(err, ErrInFlight) {
		t.Fatalf("concurrent begin error = %v, want %v", err, ErrInFlight)
	}

	g.Complete(ctx, first, 42)

	again, err := g.Begin(ctx, "projects", key)
	if err != nil {
		t.Fatalf("replay begin: %v", err)
	}
	if !again.Replayed || again.ID != 42 {
		t.Fatalf("replay = %+v, want id 42", again)
	}
}

func TestGuardAbortReleasesKey(t *testing.T) {
	g := openGuard(t)
	ctx := context.Background()
	key := uuid.NewString()

	first, err := g.Begin(ctx, "modules", key)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	g.Abort(ctx, first)

	second, err := g.Begin(ctx, "modules", key)
	if err != nil {
		t.Fatalf("begin after abort: %v", err)
	}
	if second.Replayed {
		t.Fatal("aborted key replayed")
	}
	g.Abort(ctx, second)
}

func TestGuardFailsOpenWhenRedisDown(t *testing.T) {
	t.Parallel()

	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 50 * time.Millisecond, MaxRetries: -1})
	t.Cleanup(func() { _ = rdb.Close() })
	g := NewGuard(rdb, time.Minute, zaptest.NewLogger(t))

	c, err := g.Begin(context.Background(), "projects", "k")
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if c.Replayed || c.owned {
		t.Fatalf("claim = %+v, want unguarded pass-through", c)
	}
	// no-ops on an unowned claim
	g.Complete(context.Background(), c, 1)
	g.Abort(context.Background(), c)
}
