package logger

import (
	"context"
	"testing"

	"fairshare/pkg/config"
	"fairshare/pkg/trace"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewLoggerLevel(t *testing.T) {
	t.Parallel()

	l, err := NewLogger(config.LogConfig{Level: "warn"})
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}
	if l.Core().Enabled(zapcore.InfoLevel) {
		t.Fatal("info should be disabled at warn level")
	}
	if !l.Core().Enabled(zapcore.WarnLevel) {
		t.Fatal("warn should be enabled")
	}
}

func TestNewLoggerRejectsUnknownLevel(t *testing.T) {
	t.Parallel()

	if _, err := NewLogger(config.LogConfig{Level: "loud"}); err == nil {
		t.Fatal("expected invalid level error")
	}
}

func TestWithTraceAddsField(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.DebugLevel)
	base := zap.New(core)

	WithTrace(trace.WithContext(context.Background(), "t-1"), base).Info("hello")
	WithTrace(context.Background(), base).Info("plain")

	entries := logs.All()
	if len(entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(entries))
	}
	if got := entries[0].ContextMap()["trace_id"]; got != "t-1" {
		t.Fatalf("trace_id = %v, want t-1", got)
	}
	if _, ok := entries[1].ContextMap()["trace_id"]; ok {
		t.Fatal("plain entry should not carry trace_id")
	}
}
