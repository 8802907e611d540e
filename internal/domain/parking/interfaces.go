package parking

import (
	"context"
	"time"

	"github.com/rpggio/parkline/internal/domain/rate"
	"github.com/rpggio/parkline/internal/domain/report"
)

// SessionRepository provides persistence for parking sessions.
type SessionRepository interface {
	// Create inserts a session. A ticket number or QR token that is already
	// taken yields repository.ErrDuplicate.
	Create(ctx context.Context, sess *Session) error
	// NextTicketSequence atomically allocates the next ticket sequence of
	// day's calendar date.
	NextTicketSequence(ctx context.Context, day time.Time) (int, error)
	Get(ctx context.Context, id string) (*Session, error)
	GetActiveByToken(ctx context.Context, qrToken string) (*Session, error)
	ListActive(ctx context.Context) ([]Session, error)
	List(ctx context.Context, q HistoryQuery) ([]Session, int, error)
	// Complete stores the exit fields of an active session and applies the
	// completion to its daily aggregate in one transaction. A session that is
	// no longer active yields repository.ErrConflict; a failed aggregate write
	// yields repository.ErrAggregation and leaves the session active.
	Complete(ctx context.Context, sess *Session, completion report.Completion) error
	// Cancel stores a cancelled session if it is still active, otherwise
	// repository.ErrConflict.
	Cancel(ctx context.Context, sess *Session) error
}

// RateSource resolves the rate rule of a vehicle type.
type RateSource interface {
	Get(ctx context.Context, vehicleType rate.VehicleType) (*rate.Rule, error)
}
