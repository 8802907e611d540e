package repository

import "errors"

var (
	// ErrNotFound is returned when a requested entity doesn't exist
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when a conditional update matched no row in the expected state
	ErrConflict = errors.New("conflict: entity is no longer in the expected state")

	// ErrDuplicate is returned when an insert violates a uniqueness constraint
	ErrDuplicate = errors.New("duplicate: unique constraint violated")

	// ErrAggregation is returned when the daily aggregate write of a checkout fails
	ErrAggregation = errors.New("daily aggregate update failed")
)
