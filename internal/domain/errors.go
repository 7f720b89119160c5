package domain

import "errors"

// Sentinel errors for the three recoverable failure kinds the core can
// produce. Services wrap them with context; handlers map them to HTTP codes
// with errors.Is.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrInvalidInput = errors.New("invalid input")
)
