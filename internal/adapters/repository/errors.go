package repository

import "errors"

// Sentinel kinds for ledger errors.
var (
	ErrNotFound  = errors.New("run not found")
	ErrInvalidID = errors.New("invalid run id")
)
