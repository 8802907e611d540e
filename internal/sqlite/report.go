package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rpggio/parkline/internal/domain/report"
	"github.com/rpggio/parkline/internal/repository"
)

const reportColumns = `report_date, total_vehicles, total_motorcycle, total_car, total_revenue`

// ReportRepository implements report.Repository for SQLite
type ReportRepository struct {
	db *DB
}

// NewReportRepository creates a new ReportRepository
func NewReportRepository(db *DB) *ReportRepository {
	return &ReportRepository{db: db}
}

// recordCompletion adds a completion to its day with relative increments.
func recordCompletion(ctx context.Context, tx *sql.Tx, c report.Completion, at time.Time) error {
	if err := report.ValidateCompletion(c); err != nil {
		return err
	}
	d := c.Delta()

	query := `
		INSERT INTO daily_reports (` + reportColumns + `, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(report_date) DO UPDATE SET
			total_vehicles = total_vehicles + excluded.total_vehicles,
			total_motorcycle = total_motorcycle + excluded.total_motorcycle,
			total_car = total_car + excluded.total_car,
			total_revenue = total_revenue + excluded.total_revenue,
			updated_at = excluded.updated_at
	`

	_, err := tx.ExecContext(ctx, query,
		c.Date,
		d.TotalVehicles,
		d.TotalMotorcycle,
		d.TotalCar,
		d.TotalRevenue,
		utc(at),
		utc(at),
	)
	if err != nil {
		return fmt.Errorf("failed to update daily report: %w", err)
	}
	return nil
}

// Get returns the aggregate of one date
func (r *ReportRepository) Get(ctx context.Context, date string) (*report.DailyAggregate, error) {
	query := `SELECT ` + reportColumns + ` FROM daily_reports WHERE report_date = ?`

	agg, err := scanAggregate(r.db.QueryRowContext(ctx, query, date))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get daily report: %w", err)
	}
	return agg, nil
}

// Range returns aggregates between two dates inclusive, oldest first
func (r *ReportRepository) Range(ctx context.Context, startDate, endDate string) ([]report.DailyAggregate, error) {
	query := `
		SELECT ` + reportColumns + `
		FROM daily_reports
		WHERE report_date >= ? AND report_date <= ?
		ORDER BY report_date ASC
	`
	return r.query(ctx, query, startDate, endDate)
}

// List returns one page of aggregates newest first and the total match count
func (r *ReportRepository) List(ctx context.Context, q report.DailyQuery) ([]report.DailyAggregate, int, error) {
	var conditions []string
	var args []any

	if q.StartDate != "" {
		conditions = append(conditions, "report_date >= ?")
		args = append(args, q.StartDate)
	}
	if q.EndDate != "" {
		conditions = append(conditions, "report_date <= ?")
		args = append(args, q.EndDate)
	}

	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM daily_reports`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count daily reports: %w", err)
	}

	query := `SELECT ` + reportColumns + ` FROM daily_reports` + where + ` ORDER BY report_date DESC`
	if q.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, q.Limit)
		if q.Offset > 0 {
			query += " OFFSET ?"
			args = append(args, q.Offset)
		}
	}

	aggs, err := r.query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	return aggs, total, nil
}

func (r *ReportRepository) query(ctx context.Context, query string, args ...any) ([]report.DailyAggregate, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query daily reports: %w", err)
	}
	defer rows.Close()

	aggs := []report.DailyAggregate{}
	for rows.Next() {
		agg, err := scanAggregate(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan daily report: %w", err)
		}
		aggs = append(aggs, *agg)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating daily report rows: %w", err)
	}
	return aggs, nil
}

func scanAggregate(row rowScanner) (*report.DailyAggregate, error) {
	var agg report.DailyAggregate
	err := row.Scan(
		&agg.Date,
		&agg.TotalVehicles,
		&agg.TotalMotorcycle,
		&agg.TotalCar,
		&agg.TotalRevenue,
	)
	if err != nil {
		return nil, err
	}
	return &agg, nil
}
