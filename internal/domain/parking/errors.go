package parking

import (
	"errors"
	"fmt"
)

var (
	// ErrSessionNotFound indicates no session matches, or the matching session
	// is no longer active.
	ErrSessionNotFound = errors.New("parking session not found or already completed")
	// ErrRateNotConfigured indicates the vehicle type has no rate rule.
	ErrRateNotConfigured = errors.New("parking rate not configured")
	// ErrAggregationFailed indicates the daily report update of a checkout
	// failed and the checkout was rolled back.
	ErrAggregationFailed = errors.New("daily report update failed")
	// ErrInvalidTransition indicates a status change the state machine forbids.
	ErrInvalidTransition = errors.New("invalid session status transition")
	// ErrInvalidInput indicates invalid session input.
	ErrInvalidInput = errors.New("invalid parking input")
)

// ValidationError names the offending field of rejected input.
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
