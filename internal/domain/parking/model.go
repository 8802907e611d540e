package parking

import (
	"time"

	"github.com/rpggio/parkline/internal/domain/rate"
)

// Status represents the lifecycle status of a parking session.
type Status string

const (
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// AllowedTransitions is the session state machine. Completed and cancelled
// sessions are terminal.
var AllowedTransitions = map[Status][]Status{
	StatusActive: {StatusCompleted, StatusCancelled},
}

// CanTransition reports whether a session may move from one status to another.
func CanTransition(from, to Status) bool {
	for _, s := range AllowedTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// PaymentMethod is how a completed session was paid.
type PaymentMethod string

const (
	PaymentCash    PaymentMethod = "cash"
	PaymentQRIS    PaymentMethod = "qris"
	PaymentEWallet PaymentMethod = "e-wallet"
	PaymentDebit   PaymentMethod = "debit"
	PaymentCredit  PaymentMethod = "credit"
)

// PaymentMethods lists every accepted payment method.
func PaymentMethods() []PaymentMethod {
	return []PaymentMethod{PaymentCash, PaymentQRIS, PaymentEWallet, PaymentDebit, PaymentCredit}
}

// Valid reports whether m is an accepted payment method.
func (m PaymentMethod) Valid() bool {
	for _, known := range PaymentMethods() {
		if m == known {
			return true
		}
	}
	return false
}

// Session is one vehicle visit from check-in to check-out.
type Session struct {
	ID              string           `json:"id"`
	TicketNumber    string           `json:"ticket_number"`
	LicensePlate    string           `json:"license_plate"`
	VehicleType     rate.VehicleType `json:"vehicle_type"`
	QRToken         string           `json:"qr_token"`
	EntryTime       time.Time        `json:"entry_time"`
	ExitTime        *time.Time       `json:"exit_time,omitempty"`
	DurationMinutes *int64           `json:"duration_minutes,omitempty"`
	TotalFee        *int64           `json:"total_fee,omitempty"`
	Status          Status           `json:"status"`
	OperatorInID    string           `json:"operator_in_id"`
	OperatorOutID   *string          `json:"operator_out_id,omitempty"`
	PaymentMethod   *PaymentMethod   `json:"payment_method,omitempty"`
	Notes           *string          `json:"notes,omitempty"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

// Preview is the live state of an active session before checkout.
type Preview struct {
	Session         Session   `json:"session"`
	DurationMinutes int64     `json:"duration_minutes"`
	EstimatedFee    int64     `json:"estimated_fee"`
	AsOf            time.Time `json:"as_of"`
}

// ActiveSession is an active session with its elapsed time.
type ActiveSession struct {
	Session
	ElapsedMinutes int64 `json:"elapsed_minutes"`
}

// HistoryPage is one page of sessions, newest first.
type HistoryPage struct {
	Sessions []Session `json:"sessions"`
	Total    int       `json:"total"`
	Page     int       `json:"page"`
	PerPage  int       `json:"per_page"`
	LastPage int       `json:"last_page"`
}
