package rate

import (
	"errors"
	"fmt"
)

var (
	// ErrRateNotFound indicates no rule exists for the vehicle type.
	ErrRateNotFound = errors.New("parking rate not found")
	// ErrInvalidInput indicates invalid rate input.
	ErrInvalidInput = errors.New("invalid rate input")
)

// ValidationError names the offending field of a rejected rate update.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Is makes every ValidationError match ErrInvalidInput.
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}
