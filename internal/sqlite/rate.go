package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rpggio/parkline/internal/domain/rate"
	"github.com/rpggio/parkline/internal/repository"
)

const rateColumns = `vehicle_type, first_hour_rate, next_hour_rate, daily_max_rate, created_at, updated_at`

// RateRepository implements rate.Repository for SQLite
type RateRepository struct {
	db *DB
}

// NewRateRepository creates a new RateRepository
func NewRateRepository(db *DB) *RateRepository {
	return &RateRepository{db: db}
}

// Get retrieves the rule of a vehicle type
func (r *RateRepository) Get(ctx context.Context, vehicleType rate.VehicleType) (*rate.Rule, error) {
	query := `SELECT ` + rateColumns + ` FROM parking_rates WHERE vehicle_type = ?`

	rule, err := scanRule(r.db.QueryRowContext(ctx, query, vehicleType))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get rate: %w", err)
	}
	return rule, nil
}

// List returns every rule ordered by vehicle type
func (r *RateRepository) List(ctx context.Context) ([]rate.Rule, error) {
	query := `SELECT ` + rateColumns + ` FROM parking_rates ORDER BY vehicle_type`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list rates: %w", err)
	}
	defer rows.Close()

	rules := []rate.Rule{}
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan rate: %w", err)
		}
		rules = append(rules, *rule)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rate rows: %w", err)
	}
	return rules, nil
}

// Upsert replaces the amounts of a rule, keeping its creation time
func (r *RateRepository) Upsert(ctx context.Context, rule *rate.Rule) error {
	query := `
		INSERT INTO parking_rates (` + rateColumns + `)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(vehicle_type) DO UPDATE SET
			first_hour_rate = excluded.first_hour_rate,
			next_hour_rate = excluded.next_hour_rate,
			daily_max_rate = excluded.daily_max_rate,
			updated_at = excluded.updated_at
	`

	_, err := r.db.ExecContext(ctx, query,
		rule.VehicleType,
		rule.FirstHourRate,
		rule.NextHourRate,
		rule.DailyMaxRate,
		utc(rule.CreatedAt),
		utc(rule.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert rate: %w", err)
	}
	return nil
}

// CreateIfMissing inserts a rule unless one exists for its vehicle type
func (r *RateRepository) CreateIfMissing(ctx context.Context, rule *rate.Rule) (bool, error) {
	query := `
		INSERT INTO parking_rates (` + rateColumns + `)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(vehicle_type) DO NOTHING
	`

	result, err := r.db.ExecContext(ctx, query,
		rule.VehicleType,
		rule.FirstHourRate,
		rule.NextHourRate,
		rule.DailyMaxRate,
		utc(rule.CreatedAt),
		utc(rule.UpdatedAt),
	)
	if err != nil {
		return false, fmt.Errorf("failed to create rate: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rowsAffected > 0, nil
}

func scanRule(row rowScanner) (*rate.Rule, error) {
	var rule rate.Rule
	var dailyMax sql.NullInt64
	err := row.Scan(
		&rule.VehicleType,
		&rule.FirstHourRate,
		&rule.NextHourRate,
		&dailyMax,
		&rule.CreatedAt,
		&rule.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if dailyMax.Valid {
		rule.DailyMaxRate = &dailyMax.Int64
	}
	return &rule, nil
}
