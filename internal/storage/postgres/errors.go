package postgres

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"fairshare/internal/model"
	"fairshare/pkg/util"
)

// SQLSTATE codes translated into the model taxonomy.
const (
	codeForeignKeyViolation  = "23503"
	codeCheckViolation       = "23514"
	codeNotNullViolation     = "23502"
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
	codeLockNotAvailable     = "55P03"
	codeAdminShutdown        = "57P01"
	codeCannotConnectNow     = "57P03"
)

func mapError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, model.ErrNotFound)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeForeignKeyViolation, codeSerializationFailure, codeDeadlockDetected, codeLockNotAvailable:
			return fmt.Errorf("%s: %w: %w", op, model.ErrConflict, err)
		case codeCheckViolation, codeNotNullViolation:
			return fmt.Errorf("%s: %w: %w", op, model.ErrInvalidInput, err)
		case codeAdminShutdown, codeCannotConnectNow:
			return fmt.Errorf("%s: %w: %w", op, model.ErrStoreUnavailable, err)
		}
		return fmt.Errorf("%s: %w", op, err)
	}

	if transient, _ := util.ClassifyError(err); transient {
		return fmt.Errorf("%s: %w: %w", op, model.ErrStoreUnavailable, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
