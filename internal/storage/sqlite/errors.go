package sqlite

import (
	"database/sql"
	"errors"
	"fmt"

	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"

	"fairshare/internal/model"
	"fairshare/pkg/util"
)

// mapError translates driver errors into the model error taxonomy. The
// original error stays in the chain.
func mapError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, model.ErrNotFound)
	}

	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		code := sqliteErr.Code()
		switch code {
		case sqlite3lib.SQLITE_CONSTRAINT_FOREIGNKEY:
			return fmt.Errorf("%s: %w: %w", op, model.ErrConflict, err)
		case sqlite3lib.SQLITE_CONSTRAINT_CHECK, sqlite3lib.SQLITE_CONSTRAINT_NOTNULL:
			return fmt.Errorf("%s: %w: %w", op, model.ErrInvalidInput, err)
		}
		// primary result code lives in the low byte of extended codes
		switch code & 0xff {
		case sqlite3lib.SQLITE_BUSY, sqlite3lib.SQLITE_LOCKED:
			return fmt.Errorf("%s: %w: %w", op, model.ErrConflict, err)
		case sqlite3lib.SQLITE_IOERR, sqlite3lib.SQLITE_CANTOPEN, sqlite3lib.SQLITE_FULL,
			sqlite3lib.SQLITE_CORRUPT, sqlite3lib.SQLITE_NOTADB, sqlite3lib.SQLITE_READONLY:
			return fmt.Errorf("%s: %w: %w", op, model.ErrStoreUnavailable, err)
		}
	}

	if transient, _ := util.ClassifyError(err); transient {
		return fmt.Errorf("%s: %w: %w", op, model.ErrStoreUnavailable, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
