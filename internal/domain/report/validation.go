package report

import (
	"fmt"
	"time"
)

// ValidateCompletion checks a completion before it touches an aggregate.
func ValidateCompletion(c Completion) error {
	if _, err := time.Parse(DateLayout, c.Date); err != nil {
		return fmt.Errorf("%w: date %q", ErrInvalidInput, c.Date)
	}
	if !c.VehicleType.Valid() {
		return fmt.Errorf("%w: vehicle type %q", ErrInvalidInput, c.VehicleType)
	}
	if c.Fee < 0 {
		return fmt.Errorf("%w: negative fee %d", ErrInvalidInput, c.Fee)
	}
	return nil
}

func validateRange(start, end time.Time) error {
	if dateOf(end).Before(dateOf(start)) {
		return fmt.Errorf("%w: end date before start date", ErrInvalidInput)
	}
	return nil
}

func dateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
