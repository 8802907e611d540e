package operator

import "errors"

var (
	// ErrUnauthorized indicates an unknown or missing API token.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrInvalidInput indicates invalid operator input.
	ErrInvalidInput = errors.New("invalid operator input")
)
