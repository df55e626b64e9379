package repository

import "errors"

var (
	// ErrNotFound is returned when a requested entity does not exist.
	ErrNotFound = errors.New("entity not found")

	// ErrStoreUnavailable is returned when the backing store is unreachable.
	// Distinct from ErrNotFound: callers must not conflate the two.
	ErrStoreUnavailable = errors.New("store unavailable")
)
