package model

import "errors"

// Error taxonomy shared by the store, the tracker and the transports.
// Callers match with errors.Is; producers wrap with fmt.Errorf("...: %w", ...).
var (
	ErrNotFound         = errors.New("not found")
	ErrInvalidInput     = errors.New("invalid input")
	ErrConflict         = errors.New("conflict")
	ErrStoreUnavailable = errors.New("store unavailable")
)
