package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rpggio/parkline/internal/domain/parking"
	"github.com/rpggio/parkline/internal/domain/rate"
	"github.com/rpggio/parkline/internal/domain/report"
	"github.com/rpggio/parkline/internal/domain/ticket"
	"github.com/rpggio/parkline/internal/repository"
)

const sessionColumns = `
	id, ticket_number, license_plate, vehicle_type, qr_token,
	entry_time, exit_time, duration_minutes, total_fee, status,
	operator_in_id, operator_out_id, payment_method, notes,
	created_at, updated_at
`

// SessionRepository implements parking.SessionRepository for PostgreSQL
type SessionRepository struct {
	db *DB
}

// NewSessionRepository creates a new SessionRepository
func NewSessionRepository(db *DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// Create inserts a new active session
func (r *SessionRepository) Create(ctx context.Context, sess *parking.Session) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO parking_sessions (`+sessionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
		sess.ID,
		sess.TicketNumber,
		sess.LicensePlate,
		string(sess.VehicleType),
		sess.QRToken,
		sess.EntryTime,
		sess.ExitTime,
		sess.DurationMinutes,
		sess.TotalFee,
		string(sess.Status),
		sess.OperatorInID,
		sess.OperatorOutID,
		paymentText(sess.PaymentMethod),
		sess.Notes,
		sess.CreatedAt,
		sess.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return repository.ErrDuplicate
		}
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

// NextTicketSequence allocates the next ticket sequence of day's date. The
// counter is seeded from the highest ticket already stored for that date.
func (r *SessionRepository) NextTicketSequence(ctx context.Context, day time.Time) (int, error) {
	prefix := ticket.DatePrefix(day)

	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var highest *string
	err = tx.QueryRow(ctx,
		`SELECT MAX(ticket_number) FROM parking_sessions WHERE ticket_number LIKE $1`,
		prefix+"%",
	).Scan(&highest)
	if err != nil {
		return 0, fmt.Errorf("failed to find highest ticket: %w", err)
	}

	var existing []string
	if highest != nil {
		existing = append(existing, *highest)
	}
	next, err := ticket.NextNumber(day, existing)
	if err != nil {
		return 0, err
	}
	_, seed, _ := ticket.ParseNumber(next)

	var seq int
	err = tx.QueryRow(ctx, `
		INSERT INTO ticket_sequences (ticket_date, last_seq) VALUES ($1, $2)
		ON CONFLICT (ticket_date) DO UPDATE
		SET last_seq = GREATEST(ticket_sequences.last_seq + 1, EXCLUDED.last_seq)
		RETURNING last_seq`,
		prefix, seed,
	).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("failed to increment ticket sequence: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return seq, nil
}

// Get retrieves a session by ID
func (r *SessionRepository) Get(ctx context.Context, id string) (*parking.Session, error) {
	return r.getOne(ctx, `SELECT `+sessionColumns+` FROM parking_sessions WHERE id = $1`, id)
}

// GetActiveByToken retrieves the active session holding a QR token
func (r *SessionRepository) GetActiveByToken(ctx context.Context, qrToken string) (*parking.Session, error) {
	return r.getOne(ctx, `SELECT `+sessionColumns+` FROM parking_sessions WHERE qr_token = $1 AND status = 'active'`, qrToken)
}

func (r *SessionRepository) getOne(ctx context.Context, query string, arg any) (*parking.Session, error) {
	sess, err := scanSession(r.db.QueryRow(ctx, query, arg))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return sess, nil
}

// ListActive returns every active session, latest entry first
func (r *SessionRepository) ListActive(ctx context.Context) ([]parking.Session, error) {
	return r.query(ctx, `
		SELECT `+sessionColumns+`
		FROM parking_sessions
		WHERE status = 'active'
		ORDER BY entry_time DESC, ticket_number DESC`)
}

// List returns one page of sessions matching q and the total match count
func (r *SessionRepository) List(ctx context.Context, q parking.HistoryQuery) ([]parking.Session, int, error) {
	var conditions []string
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if q.Status != "" {
		conditions = append(conditions, "status = "+arg(string(q.Status)))
	}
	if q.EntryFrom != nil {
		conditions = append(conditions, "entry_time >= "+arg(*q.EntryFrom))
	}
	if q.EntryBefore != nil {
		conditions = append(conditions, "entry_time < "+arg(*q.EntryBefore))
	}

	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM parking_sessions`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count sessions: %w", err)
	}

	query := `SELECT ` + sessionColumns + ` FROM parking_sessions` + where +
		` ORDER BY entry_time DESC, ticket_number DESC`
	if q.Limit > 0 {
		query += " LIMIT " + arg(q.Limit)
		if q.Offset > 0 {
			query += " OFFSET " + arg(q.Offset)
		}
	}

	sessions, err := r.query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	return sessions, total, nil
}

// Complete closes an active session and adds it to its daily report in one transaction
func (r *SessionRepository) Complete(ctx context.Context, sess *parking.Session, completion report.Completion) error {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := closeSession(ctx, tx, sess, parking.StatusCompleted); err != nil {
		return err
	}
	if err := recordCompletion(ctx, tx, completion, sess.UpdatedAt); err != nil {
		return fmt.Errorf("%w: %v", repository.ErrAggregation, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit checkout: %w", err)
	}
	return nil
}

// Cancel stores a cancelled session if it is still active
func (r *SessionRepository) Cancel(ctx context.Context, sess *parking.Session) error {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := closeSession(ctx, tx, sess, parking.StatusCancelled); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit cancel: %w", err)
	}
	return nil
}

func closeSession(ctx context.Context, tx pgx.Tx, sess *parking.Session, status parking.Status) error {
	tag, err := tx.Exec(ctx, `
		UPDATE parking_sessions
		SET exit_time = $1, duration_minutes = $2, total_fee = $3, status = $4,
		    operator_out_id = $5, payment_method = $6, notes = $7, updated_at = $8
		WHERE id = $9 AND status = 'active'`,
		sess.ExitTime,
		sess.DurationMinutes,
		sess.TotalFee,
		string(status),
		sess.OperatorOutID,
		paymentText(sess.PaymentMethod),
		sess.Notes,
		sess.UpdatedAt,
		sess.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to close session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrConflict
	}
	return nil
}

func (r *SessionRepository) query(ctx context.Context, query string, args ...any) ([]parking.Session, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	sessions := []parking.Session{}
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, *sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating session rows: %w", err)
	}
	return sessions, nil
}

func scanSession(row pgx.Row) (*parking.Session, error) {
	var sess parking.Session
	var vehicleType, status string
	var payment *string

	err := row.Scan(
		&sess.ID,
		&sess.TicketNumber,
		&sess.LicensePlate,
		&vehicleType,
		&sess.QRToken,
		&sess.EntryTime,
		&sess.ExitTime,
		&sess.DurationMinutes,
		&sess.TotalFee,
		&status,
		&sess.OperatorInID,
		&sess.OperatorOutID,
		&payment,
		&sess.Notes,
		&sess.CreatedAt,
		&sess.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	sess.VehicleType = rate.VehicleType(vehicleType)
	sess.Status = parking.Status(status)
	if payment != nil {
		method := parking.PaymentMethod(*payment)
		sess.PaymentMethod = &method
	}
	return &sess, nil
}

func paymentText(m *parking.PaymentMethod) *string {
	if m == nil {
		return nil
	}
	s := string(*m)
	return &s
}
