package util

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"testing"

	"fairshare/pkg/circuitbreaker"
)

func TestClassifyError(t *testing.T) {
	t.Parallel()

	var syntaxErr error
	if err := json.Unmarshal([]byte("{"), &struct{}{}); err != nil {
		syntaxErr = err
	}

	tests := []struct {
		name          string
		err           error
		wantTransient bool
		wantKind      string
	}{
		{"nil", nil, false, ""},
		{"json", syntaxErr, false, "json_decode_error"},
		{"no rows", fmt.Errorf("get: %w", sql.ErrNoRows), false, "not_found"},
		{"conn done", sql.ErrConnDone, true, "db_connection_error"},
		{"deadline", context.DeadlineExceeded, true, "timeout"},
		{"canceled", context.Canceled, false, "context_canceled"},
		{"breaker", circuitbreaker.ErrCircuitBreakerOpen, true, "circuit_open"},
		{"net", &net.OpError{Op: "dial", Err: errors.New("refused")}, true, "network_error"},
		{"refused text", errors.New("dial tcp: connection refused"), true, "network_error"},
		{"unknown", errors.New("boom"), false, "unknown_error"},
	}
	for _, tt := range tests {
		transient, kind := ClassifyError(tt.err)
		if transient != tt.wantTransient || kind != tt.wantKind {
			t.Fatalf("%s: ClassifyError = (%v, %q), want (%v, %q)", tt.name, transient, kind, tt.wantTransient, tt.wantKind)
		}
	}
}
