package parking

import (
	"strings"
	"unicode/utf8"
)

const (
	// MaxPlateLength is the longest accepted license plate.
	MaxPlateLength = 20
	// MaxNotesLength bounds checkout notes and cancellation reasons.
	MaxNotesLength = 500
)

// NormalizePlate trims and upper-cases a license plate.
func NormalizePlate(plate string) string {
	return strings.ToUpper(strings.TrimSpace(plate))
}

// ValidateCheckIn checks the input of a check-in after plate normalization.
func ValidateCheckIn(req CheckInRequest) error {
	plate := NormalizePlate(req.LicensePlate)
	if plate == "" {
		return &ValidationError{Field: "license_plate", Reason: "is required"}
	}
	if utf8.RuneCountInString(plate) > MaxPlateLength {
		return &ValidationError{Field: "license_plate", Reason: "must be at most 20 characters"}
	}
	if !req.VehicleType.Valid() {
		return &ValidationError{Field: "vehicle_type", Reason: "must be car or motorcycle"}
	}
	if req.OperatorID == "" {
		return &ValidationError{Field: "operator_id", Reason: "is required"}
	}
	return nil
}

// ValidateCheckOut checks the input of a check-out.
func ValidateCheckOut(req CheckOutRequest) error {
	if strings.TrimSpace(req.QRToken) == "" {
		return &ValidationError{Field: "qr_token", Reason: "is required"}
	}
	if !req.PaymentMethod.Valid() {
		return &ValidationError{Field: "payment_method", Reason: "must be one of cash, qris, e-wallet, debit, credit"}
	}
	if err := validateNotes("notes", req.Notes); err != nil {
		return err
	}
	if req.OperatorID == "" {
		return &ValidationError{Field: "operator_id", Reason: "is required"}
	}
	return nil
}

// ValidateCancel checks the input of a cancellation.
func ValidateCancel(req CancelRequest) error {
	if req.ID == "" {
		return &ValidationError{Field: "id", Reason: "is required"}
	}
	if err := validateNotes("reason", req.Reason); err != nil {
		return err
	}
	if req.OperatorID == "" {
		return &ValidationError{Field: "operator_id", Reason: "is required"}
	}
	return nil
}

func validateNotes(field, text string) error {
	if utf8.RuneCountInString(strings.TrimSpace(text)) > MaxNotesLength {
		return &ValidationError{Field: field, Reason: "must be at most 500 characters"}
	}
	return nil
}

// ValidateHistory checks history filters.
func ValidateHistory(f HistoryFilter) error {
	if f.Status != nil && !f.Status.Valid() {
		return &ValidationError{Field: "status", Reason: "must be active, completed or cancelled"}
	}
	if f.StartDate != nil && f.EndDate != nil && f.EndDate.Before(*f.StartDate) {
		return &ValidationError{Field: "end_date", Reason: "must not be before start_date"}
	}
	return nil
}
