package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/rpggio/parkline/internal/domain/rate"
	"github.com/rpggio/parkline/internal/repository"
)

const rateColumns = `vehicle_type, first_hour_rate, next_hour_rate, daily_max_rate, created_at, updated_at`

// RateRepository implements rate.Repository for PostgreSQL
type RateRepository struct {
	db *DB
}

// NewRateRepository creates a new RateRepository
func NewRateRepository(db *DB) *RateRepository {
	return &RateRepository{db: db}
}

// Get retrieves the rule of a vehicle type
func (r *RateRepository) Get(ctx context.Context, vehicleType rate.VehicleType) (*rate.Rule, error) {
	rule, err := scanRule(r.db.QueryRow(ctx,
		`SELECT `+rateColumns+` FROM parking_rates WHERE vehicle_type = $1`, string(vehicleType)))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get rate: %w", err)
	}
	return rule, nil
}

// List returns every rule ordered by vehicle type
func (r *RateRepository) List(ctx context.Context) ([]rate.Rule, error) {
	rows, err := r.db.Query(ctx, `SELECT `+rateColumns+` FROM parking_rates ORDER BY vehicle_type`)
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
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rate rows: %w", err)
	}
	return rules, nil
}

// Upsert replaces the amounts of a rule, keeping its creation time
func (r *RateRepository) Upsert(ctx context.Context, rule *rate.Rule) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO parking_rates (`+rateColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (vehicle_type) DO UPDATE SET
			first_hour_rate = EXCLUDED.first_hour_rate,
			next_hour_rate = EXCLUDED.next_hour_rate,
			daily_max_rate = EXCLUDED.daily_max_rate,
			updated_at = EXCLUDED.updated_at`,
		string(rule.VehicleType), rule.FirstHourRate, rule.NextHourRate, rule.DailyMaxRate,
		rule.CreatedAt, rule.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert rate: %w", err)
	}
	return nil
}

// CreateIfMissing inserts a rule unless one exists for its vehicle type
func (r *RateRepository) CreateIfMissing(ctx context.Context, rule *rate.Rule) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		INSERT INTO parking_rates (`+rateColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (vehicle_type) DO NOTHING`,
		string(rule.VehicleType), rule.FirstHourRate, rule.NextHourRate, rule.DailyMaxRate,
		rule.CreatedAt, rule.UpdatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("failed to create rate: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func scanRule(row pgx.Row) (*rate.Rule, error) {
	var rule rate.Rule
	var vehicleType string
	err := row.Scan(&vehicleType, &rule.FirstHourRate, &rule.NextHourRate, &rule.DailyMaxRate, &rule.CreatedAt, &rule.UpdatedAt)
	if err != nil {
		return nil, err
	}
	rule.VehicleType = rate.VehicleType(vehicleType)
	return &rule, nil
}
