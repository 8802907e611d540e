package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rpggio/parkline/internal/domain/parking"
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

// SessionRepository implements parking.SessionRepository for SQLite
type SessionRepository struct {
	db *DB
}

// NewSessionRepository creates a new SessionRepository
func NewSessionRepository(db *DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// Create inserts a new active session
func (r *SessionRepository) Create(ctx context.Context, sess *parking.Session) error {
	query := `
		INSERT INTO parking_sessions (` + sessionColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, query,
		sess.ID,
		sess.TicketNumber,
		sess.LicensePlate,
		sess.VehicleType,
		sess.QRToken,
		utc(sess.EntryTime),
		utcPtr(sess.ExitTime),
		sess.DurationMinutes,
		sess.TotalFee,
		sess.Status,
		sess.OperatorInID,
		sess.OperatorOutID,
		sess.PaymentMethod,
		sess.Notes,
		utc(sess.CreatedAt),
		utc(sess.UpdatedAt),
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

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var highest sql.NullString
	err = tx.QueryRowContext(ctx,
		`SELECT MAX(ticket_number) FROM parking_sessions WHERE ticket_number LIKE ?`,
		prefix+"%",
	).Scan(&highest)
	if err != nil {
		return 0, fmt.Errorf("failed to find highest ticket: %w", err)
	}

	var existing []string
	if highest.Valid {
		existing = append(existing, highest.String)
	}
	next, err := ticket.NextNumber(day, existing)
	if err != nil {
		return 0, err
	}
	_, seed, _ := ticket.ParseNumber(next)

	var seq int
	err = tx.QueryRowContext(ctx, `
		INSERT INTO ticket_sequences (ticket_date, last_seq) VALUES (?, ?)
		ON CONFLICT(ticket_date) DO UPDATE
		SET last_seq = MAX(ticket_sequences.last_seq + 1, excluded.last_seq)
		RETURNING last_seq
	`, prefix, seed).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("failed to increment ticket sequence: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return seq, nil
}

// Get retrieves a session by ID
func (r *SessionRepository) Get(ctx context.Context, id string) (*parking.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM parking_sessions WHERE id = ?`
	return r.getOne(ctx, query, id)
}

// GetActiveByToken retrieves the active session holding a QR token
func (r *SessionRepository) GetActiveByToken(ctx context.Context, qrToken string) (*parking.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM parking_sessions WHERE qr_token = ? AND status = 'active'`
	return r.getOne(ctx, query, qrToken)
}

func (r *SessionRepository) getOne(ctx context.Context, query string, arg any) (*parking.Session, error) {
	sess, err := scanSession(r.db.QueryRowContext(ctx, query, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return sess, nil
}

// ListActive returns every active session, latest entry first
func (r *SessionRepository) ListActive(ctx context.Context) ([]parking.Session, error) {
	query := `
		SELECT ` + sessionColumns + `
		FROM parking_sessions
		WHERE status = 'active'
		ORDER BY entry_time DESC, ticket_number DESC
	`
	return r.query(ctx, query)
}

// List returns one page of sessions matching q and the total match count
func (r *SessionRepository) List(ctx context.Context, q parking.HistoryQuery) ([]parking.Session, int, error) {
	var conditions []string
	var args []any

	if q.Status != "" {
		conditions = append(conditions, "status = ?")
		args = append(args, q.Status)
	}
	if q.EntryFrom != nil {
		conditions = append(conditions, "entry_time >= ?")
		args = append(args, utc(*q.EntryFrom))
	}
	if q.EntryBefore != nil {
		conditions = append(conditions, "entry_time < ?")
		args = append(args, utc(*q.EntryBefore))
	}

	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM parking_sessions`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count sessions: %w", err)
	}

	query := `SELECT ` + sessionColumns + ` FROM parking_sessions` + where +
		` ORDER BY entry_time DESC, ticket_number DESC`
	if q.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, q.Limit)
		if q.Offset > 0 {
			query += " OFFSET ?"
			args = append(args, q.Offset)
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
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := closeSession(ctx, tx, sess, parking.StatusCompleted); err != nil {
		return err
	}

	if err := recordCompletion(ctx, tx, completion, sess.UpdatedAt); err != nil {
		return fmt.Errorf("%w: %v", repository.ErrAggregation, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit checkout: %w", err)
	}
	return nil
}

// Cancel stores a cancelled session if it is still active
func (r *SessionRepository) Cancel(ctx context.Context, sess *parking.Session) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := closeSession(ctx, tx, sess, parking.StatusCancelled); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit cancel: %w", err)
	}
	return nil
}

func closeSession(ctx context.Context, tx *sql.Tx, sess *parking.Session, status parking.Status) error {
	query := `
		UPDATE parking_sessions
		SET exit_time = ?, duration_minutes = ?, total_fee = ?, status = ?,
		    operator_out_id = ?, payment_method = ?, notes = ?, updated_at = ?
		WHERE id = ? AND status = 'active'
	`

	result, err := tx.ExecContext(ctx, query,
		utcPtr(sess.ExitTime),
		sess.DurationMinutes,
		sess.TotalFee,
		status,
		sess.OperatorOutID,
		sess.PaymentMethod,
		sess.Notes,
		utc(sess.UpdatedAt),
		sess.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to close session: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return repository.ErrConflict
	}
	return nil
}

func (r *SessionRepository) query(ctx context.Context, query string, args ...any) ([]parking.Session, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
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
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating session rows: %w", err)
	}

	return sessions, nil
}

func scanSession(row rowScanner) (*parking.Session, error) {
	var sess parking.Session
	var exitTime sql.NullTime
	var duration, fee sql.NullInt64
	var operatorOut, payment, notes sql.NullString

	err := row.Scan(
		&sess.ID,
		&sess.TicketNumber,
		&sess.LicensePlate,
		&sess.VehicleType,
		&sess.QRToken,
		&sess.EntryTime,
		&exitTime,
		&duration,
		&fee,
		&sess.Status,
		&sess.OperatorInID,
		&operatorOut,
		&payment,
		&notes,
		&sess.CreatedAt,
		&sess.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if exitTime.Valid {
		sess.ExitTime = &exitTime.Time
	}
	if duration.Valid {
		sess.DurationMinutes = &duration.Int64
	}
	if fee.Valid {
		sess.TotalFee = &fee.Int64
	}
	if operatorOut.Valid {
		sess.OperatorOutID = &operatorOut.String
	}
	if payment.Valid {
		method := parking.PaymentMethod(payment.String)
		sess.PaymentMethod = &method
	}
	if notes.Valid {
		sess.Notes = &notes.String
	}

	return &sess, nil
}
