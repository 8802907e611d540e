package report

import "errors"

// ErrInvalidInput indicates invalid report input.
var ErrInvalidInput = errors.New("invalid report input")
