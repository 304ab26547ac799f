package db

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestSlowQueryTracerLogsQueriesOverThreshold(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	tracer := NewSlowQueryTracer(zap.New(core), 50*time.Millisecond)

	clock := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	tracer.now = func() time.Time { return clock }

	ctx := tracer.TraceQueryStart(context.Background(), nil, pgx.TraceQueryStartData{SQL: "SELECT 1"})
	clock = clock.Add(10 * time.Millisecond)
	tracer.TraceQueryEnd(ctx, nil, pgx.TraceQueryEndData{CommandTag: pgconn.NewCommandTag("SELECT 1")})
	if logs.Len() != 0 {
		t.Fatalf("fast query logged %d entries", logs.Len())
	}

	ctx = tracer.TraceQueryStart(context.Background(), nil, pgx.TraceQueryStartData{SQL: "SELECT pg_sleep(1)"})
	clock = clock.Add(time.Second)
	tracer.TraceQueryEnd(ctx, nil, pgx.TraceQueryEndData{CommandTag: pgconn.NewCommandTag("SELECT 1")})

	entries := logs.FilterMessage("slow-query").All()
	if len(entries) != 1 {
		t.Fatalf("slow-query entries = %d, want 1", len(entries))
	}
	if got := entries[0].ContextMap()["sql"]; got != "SELECT pg_sleep(1)" {
		t.Fatalf("sql = %v, want SELECT pg_sleep(1)", got)
	}
}

func TestSlowQueryTracerIgnoresForeignContext(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	tracer := NewSlowQueryTracer(zap.New(core), 0)
	tracer.TraceQueryEnd(context.Background(), nil, pgx.TraceQueryEndData{})
	if logs.Len() != 0 {
		t.Fatalf("logged %d entries without a start", logs.Len())
	}
}

func TestTruncateSQL(t *testing.T) {
	t.Parallel()

	if got := truncateSQL(""); got != "unknown" {
		t.Fatalf("truncateSQL(\"\") = %q", got)
	}
	long := strings.Repeat("x", maxLoggedSQL+10)
	got := truncateSQL(long)
	if len(got) != maxLoggedSQL+3 || !strings.HasSuffix(got, "...") {
		t.Fatalf("truncateSQL(long) = %q", got)
	}
}
