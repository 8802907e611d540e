package parking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rpggio/parkline/internal/domain/rate"
	"github.com/rpggio/parkline/internal/domain/report"
	"github.com/rpggio/parkline/internal/domain/ticket"
	"github.com/rpggio/parkline/internal/repository"
)

// MaxAllocationAttempts bounds how often a check-in regenerates its ticket
// number and QR token after a uniqueness collision.
const MaxAllocationAttempts = 5

// Service manages the parking session lifecycle.
type Service struct {
	sessions    SessionRepository
	rates       RateSource
	logger      *slog.Logger
	now         func() time.Time
	location    *time.Location
	tokenLength int
	newToken    func(length int) (string, error)
}

// Option customizes a Service.
type Option func(*Service)

// WithClock replaces the wall clock.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithLocation sets the time zone that decides calendar dates for ticket
// numbers, daily reports and history filters.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) {
		if loc != nil {
			s.location = loc
		}
	}
}

// WithTokenLength sets the QR token length.
func WithTokenLength(n int) Option {
	return func(s *Service) { s.tokenLength = n }
}

// WithTokenGenerator replaces the QR token generator.
func WithTokenGenerator(gen func(length int) (string, error)) Option {
	return func(s *Service) { s.newToken = gen }
}

// NewService creates a new parking service.
func NewService(sessions SessionRepository, rates RateSource, logger *slog.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	s := &Service{
		sessions:    sessions,
		rates:       rates,
		logger:      logger,
		now:         time.Now,
		location:    time.Local,
		tokenLength: ticket.MinTokenLength,
		newToken:    ticket.NewQRToken,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CheckInRequest registers a vehicle entry.
type CheckInRequest struct {
	LicensePlate string
	VehicleType  rate.VehicleType
	OperatorID   string
}

// CheckOutRequest closes the active session of a QR token.
type CheckOutRequest struct {
	QRToken       string
	PaymentMethod PaymentMethod
	Notes         string
	OperatorID    string
}

// CancelRequest administratively cancels an active session.
type CancelRequest struct {
	ID         string
	OperatorID string
	Reason     string
}

// CheckIn creates an active session with a fresh ticket number and QR token.
func (s *Service) CheckIn(ctx context.Context, req CheckInRequest) (*Session, error) {
	if err := ValidateCheckIn(req); err != nil {
		return nil, err
	}

	now := s.now()
	sess := &Session{
		ID:           uuid.NewString(),
		LicensePlate: NormalizePlate(req.LicensePlate),
		VehicleType:  req.VehicleType,
		EntryTime:    now,
		Status:       StatusActive,
		OperatorInID: req.OperatorID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	for attempt := 1; attempt <= MaxAllocationAttempts; attempt++ {
		number, err := s.nextTicketNumber(ctx, now)
		if err != nil {
			return nil, err
		}
		token, err := s.newToken(s.tokenLength)
		if err != nil {
			return nil, fmt.Errorf("generating qr token: %w", err)
		}
		sess.TicketNumber = number
		sess.QRToken = token

		err = s.sessions.Create(ctx, sess)
		if err == nil {
			s.logger.Info("vehicle checked in",
				"ticket_number", sess.TicketNumber,
				"vehicle_type", sess.VehicleType,
				"operator_id", sess.OperatorInID,
			)
			return sess, nil
		}
		if !errors.Is(err, repository.ErrDuplicate) {
			return nil, fmt.Errorf("creating session: %w", err)
		}
		s.logger.Warn("ticket allocation collided", "attempt", attempt, "ticket_number", number)
	}

	return nil, fmt.Errorf("%w: no unique ticket after %d attempts", ticket.ErrGeneration, MaxAllocationAttempts)
}

// Preview returns the elapsed time and estimated fee of an active session.
func (s *Service) Preview(ctx context.Context, qrToken string) (*Preview, error) {
	sess, err := s.activeByToken(ctx, qrToken)
	if err != nil {
		return nil, err
	}

	now := s.now()
	minutes, fee, err := s.quote(ctx, sess, now)
	if err != nil {
		return nil, err
	}

	return &Preview{
		Session:         *sess,
		DurationMinutes: minutes,
		EstimatedFee:    fee,
		AsOf:            now,
	}, nil
}

// CheckOut completes the active session of a QR token. The fee is computed
// from the checkout time, and the session and its daily report are written
// together: if the report update fails the session stays active.
func (s *Service) CheckOut(ctx context.Context, req CheckOutRequest) (*Session, error) {
	if err := ValidateCheckOut(req); err != nil {
		return nil, err
	}

	sess, err := s.activeByToken(ctx, req.QRToken)
	if err != nil {
		return nil, err
	}

	exit := s.now()
	minutes, fee, err := s.quote(ctx, sess, exit)
	if err != nil {
		return nil, err
	}

	closed := *sess
	closed.ExitTime = &exit
	closed.DurationMinutes = &minutes
	closed.TotalFee = &fee
	closed.Status = StatusCompleted
	closed.OperatorOutID = &req.OperatorID
	method := req.PaymentMethod
	closed.PaymentMethod = &method
	closed.Notes = stringPtr(strings.TrimSpace(req.Notes))
	closed.UpdatedAt = exit

	completion := report.Completion{
		Date:        exit.In(s.location).Format(report.DateLayout),
		VehicleType: closed.VehicleType,
		Fee:         fee,
	}
	if err := report.ValidateCompletion(completion); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAggregationFailed, err)
	}

	if err := s.sessions.Complete(ctx, &closed, completion); err != nil {
		switch {
		case errors.Is(err, repository.ErrConflict), errors.Is(err, repository.ErrNotFound):
			return nil, ErrSessionNotFound
		case errors.Is(err, repository.ErrAggregation):
			s.logger.Error("checkout rolled back: daily report update failed",
				"ticket_number", closed.TicketNumber,
				"report_date", completion.Date,
				"error", err,
			)
			return nil, fmt.Errorf("%w: %v", ErrAggregationFailed, err)
		default:
			return nil, fmt.Errorf("completing session: %w", err)
		}
	}

	s.logger.Info("vehicle checked out",
		"ticket_number", closed.TicketNumber,
		"vehicle_type", closed.VehicleType,
		"duration_minutes", minutes,
		"total_fee", fee,
		"payment_method", method,
		"operator_id", req.OperatorID,
	)
	return &closed, nil
}

// Cancel moves an active session to cancelled. Daily reports are untouched.
func (s *Service) Cancel(ctx context.Context, req CancelRequest) (*Session, error) {
	if err := ValidateCancel(req); err != nil {
		return nil, err
	}

	sess, err := s.Get(ctx, req.ID)
	if err != nil {
		return nil, err
	}
	if !CanTransition(sess.Status, StatusCancelled) {
		return nil, fmt.Errorf("%w: %s to %s", ErrInvalidTransition, sess.Status, StatusCancelled)
	}

	now := s.now()
	sess.Status = StatusCancelled
	sess.ExitTime = &now
	sess.OperatorOutID = &req.OperatorID
	sess.Notes = stringPtr(strings.TrimSpace(req.Reason))
	sess.UpdatedAt = now

	if err := s.sessions.Cancel(ctx, sess); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, fmt.Errorf("%w: session is no longer active", ErrInvalidTransition)
		}
		return nil, fmt.Errorf("cancelling session: %w", err)
	}

	s.logger.Info("session cancelled",
		"ticket_number", sess.TicketNumber,
		"operator_id", req.OperatorID,
	)
	return sess, nil
}

// Get returns a session by ID in any status.
func (s *Service) Get(ctx context.Context, id string) (*Session, error) {
	sess, err := s.sessions.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("loading session: %w", err)
	}
	return sess, nil
}

// Active returns the active sessions, latest entry first, with elapsed time.
func (s *Service) Active(ctx context.Context) ([]ActiveSession, error) {
	sessions, err := s.sessions.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing active sessions: %w", err)
	}

	now := s.now()
	active := make([]ActiveSession, 0, len(sessions))
	for _, sess := range sessions {
		active = append(active, ActiveSession{
			Session:        sess,
			ElapsedMinutes: ElapsedMinutes(sess.EntryTime, now),
		})
	}
	return active, nil
}

// History lists sessions newest first. Date bounds apply to the entry date in
// the service time zone and are inclusive.
func (s *Service) History(ctx context.Context, f HistoryFilter) (*HistoryPage, error) {
	if err := ValidateHistory(f); err != nil {
		return nil, err
	}

	page, perPage := f.Page, f.PerPage
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = defaultHistoryPerPage
	}
	if perPage > maxHistoryPerPage {
		perPage = maxHistoryPerPage
	}

	q := HistoryQuery{Limit: perPage, Offset: (page - 1) * perPage}
	if f.Status != nil {
		q.Status = *f.Status
	}
	if f.StartDate != nil {
		from := s.startOfDay(*f.StartDate)
		q.EntryFrom = &from
	}
	if f.EndDate != nil {
		before := s.startOfDay(*f.EndDate).AddDate(0, 0, 1)
		q.EntryBefore = &before
	}

	sessions, total, err := s.sessions.List(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}
	if sessions == nil {
		sessions = []Session{}
	}

	last := 1
	if total > 0 {
		last = (total + perPage - 1) / perPage
	}
	return &HistoryPage{
		Sessions: sessions,
		Total:    total,
		Page:     page,
		PerPage:  perPage,
		LastPage: last,
	}, nil
}

// ElapsedMinutes returns the whole minutes between entry and at, never
// negative.
func ElapsedMinutes(entry, at time.Time) int64 {
	d := at.Sub(entry)
	if d < 0 {
		return 0
	}
	return int64(d / time.Minute)
}

// quote is the single fee path shared by preview and checkout.
func (s *Service) quote(ctx context.Context, sess *Session, at time.Time) (int64, int64, error) {
	rule, err := s.rates.Get(ctx, sess.VehicleType)
	if err != nil {
		if errors.Is(err, rate.ErrRateNotFound) {
			return 0, 0, fmt.Errorf("%w: %s", ErrRateNotConfigured, sess.VehicleType)
		}
		return 0, 0, fmt.Errorf("loading rate: %w", err)
	}
	minutes := ElapsedMinutes(sess.EntryTime, at)
	return minutes, rate.CalculateFee(*rule, minutes), nil
}

func (s *Service) activeByToken(ctx context.Context, qrToken string) (*Session, error) {
	qrToken = strings.TrimSpace(qrToken)
	if qrToken == "" {
		return nil, &ValidationError{Field: "qr_token", Reason: "is required"}
	}
	sess, err := s.sessions.GetActiveByToken(ctx, qrToken)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("loading session: %w", err)
	}
	return sess, nil
}

func (s *Service) nextTicketNumber(ctx context.Context, at time.Time) (string, error) {
	day := at.In(s.location)
	seq, err := s.sessions.NextTicketSequence(ctx, day)
	if err != nil {
		if errors.Is(err, ticket.ErrGeneration) {
			return "", err
		}
		return "", fmt.Errorf("allocating ticket sequence: %w", err)
	}
	return ticket.FormatNumber(day, seq)
}

func (s *Service) startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, s.location)
}

func stringPtr(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}
