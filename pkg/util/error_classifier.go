package util

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net"
	"net/url"
	"strings"

	"fairshare/pkg/circuitbreaker"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// ClassifyError 判断错误是否为暂时性故障（连接、超时等）
// Returns: (isTransient, errorType)
func ClassifyError(err error) (bool, string) {
	if err == nil {
		return false, ""
	}

	errStr := err.Error()

	// JSON decode errors - 数据格式错误
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
		return false, "json_decode_error"
	}

	// Database errors
	if errors.Is(err, pgx.ErrNoRows) || errors.Is(err, sql.ErrNoRows) {
		return false, "not_found"
	}
	if errors.Is(err, sql.ErrConnDone) || errors.Is(err, pgx.ErrTxClosed) {
		return true, "db_connection_error"
	}
	var connectErr *pgconn.ConnectError
	if errors.As(err, &connectErr) {
		return true, "db_connection_error"
	}
	if pgconn.Timeout(err) {
		return true, "timeout"
	}

	if errors.Is(err, circuitbreaker.ErrCircuitBreakerOpen) {
		return true, "circuit_open"
	}

	// Context timeout - 可重试
	if errors.Is(err, context.DeadlineExceeded) {
		return true, "timeout"
	}
	if errors.Is(err, context.Canceled) {
		return false, "context_canceled"
	}

	// URL errors（先于 net.Error 判断，*url.Error 也实现了 net.Error）
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		if urlErr.Timeout() {
			return true, "network_timeout"
		}
		return true, "network_error"
	}

	// Network errors - 可重试
	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return true, "network_timeout"
		}
		return true, "network_error"
	}

	if strings.Contains(errStr, "connection refused") || strings.Contains(errStr, "broken pipe") {
		return true, "network_error"
	}

	// 默认：未知错误，保守处理
	return false, "unknown_error"
}
