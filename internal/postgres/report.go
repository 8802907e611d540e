package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rpggio/parkline/internal/domain/report"
	"github.com/rpggio/parkline/internal/repository"
)

const reportColumns = `report_date, total_vehicles, total_motorcycle, total_car, total_revenue`

// ReportRepository implements report.Repository for PostgreSQL
type ReportRepository struct {
	db *DB
}

// NewReportRepository creates a new ReportRepository
func NewReportRepository(db *DB) *ReportRepository {
	return &ReportRepository{db: db}
}

func recordCompletion(ctx context.Context, tx pgx.Tx, c report.Completion, at time.Time) error {
	if err := report.ValidateCompletion(c); err != nil {
		return err
	}
	d := c.Delta()

	_, err := tx.Exec(ctx, `
		INSERT INTO daily_reports (`+reportColumns+`, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6)
		ON CONFLICT (report_date) DO UPDATE SET
			total_vehicles = daily_reports.total_vehicles + EXCLUDED.total_vehicles,
			total_motorcycle = daily_reports.total_motorcycle + EXCLUDED.total_motorcycle,
			total_car = daily_reports.total_car + EXCLUDED.total_car,
			total_revenue = daily_reports.total_revenue + EXCLUDED.total_revenue,
			updated_at = EXCLUDED.updated_at`,
		c.Date, d.TotalVehicles, d.TotalMotorcycle, d.TotalCar, d.TotalRevenue, at,
	)
	if err != nil {
		return fmt.Errorf("failed to update daily report: %w", err)
	}
	return nil
}

// Get returns the aggregate of one date
func (r *ReportRepository) Get(ctx context.Context, date string) (*report.DailyAggregate, error) {
	agg, err := scanAggregate(r.db.QueryRow(ctx,
		`SELECT `+reportColumns+` FROM daily_reports WHERE report_date = $1`, date))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get daily report: %w", err)
	}
	return agg, nil
}

// Range returns aggregates between two dates inclusive, oldest first
func (r *ReportRepository) Range(ctx context.Context, startDate, endDate string) ([]report.DailyAggregate, error) {
	return r.query(ctx, `
		SELECT `+reportColumns+`
		FROM daily_reports
		WHERE report_date >= $1 AND report_date <= $2
		ORDER BY report_date ASC`,
		startDate, endDate)
}

// List returns one page of aggregates newest first and the total match count
func (r *ReportRepository) List(ctx context.Context, q report.DailyQuery) ([]report.DailyAggregate, int, error) {
	var conditions []string
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if q.StartDate != "" {
		conditions = append(conditions, "report_date >= "+arg(q.StartDate))
	}
	if q.EndDate != "" {
		conditions = append(conditions, "report_date <= "+arg(q.EndDate))
	}

	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM daily_reports`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count daily reports: %w", err)
	}

	query := `SELECT ` + reportColumns + ` FROM daily_reports` + where + ` ORDER BY report_date DESC`
	if q.Limit > 0 {
		query += " LIMIT " + arg(q.Limit)
		if q.Offset > 0 {
			query += " OFFSET " + arg(q.Offset)
		}
	}

	aggs, err := r.query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	return aggs, total, nil
}

func (r *ReportRepository) query(ctx context.Context, query string, args ...any) ([]report.DailyAggregate, error) {
	rows, err := r.db.Query(ctx, query, args...)
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
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating daily report rows: %w", err)
	}
	return aggs, nil
}

func scanAggregate(row pgx.Row) (*report.DailyAggregate, error) {
	var agg report.DailyAggregate
	err := row.Scan(&agg.Date, &agg.TotalVehicles, &agg.TotalMotorcycle, &agg.TotalCar, &agg.TotalRevenue)
	if err != nil {
		return nil, err
	}
	return &agg, nil
}
