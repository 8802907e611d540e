package rate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/rpggio/parkline/internal/repository"
)

// Service handles the rate table.
type Service struct {
	repo   Repository
	logger *slog.Logger
	now    func() time.Time
}

// NewService creates a new rate service.
func NewService(repo Repository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Service{repo: repo, logger: logger, now: time.Now}
}

// UpdateRequest replaces the amounts of one rule.
type UpdateRequest struct {
	VehicleType   VehicleType
	FirstHourRate int64
	NextHourRate  int64
	DailyMaxRate  *int64
}

// DefaultRules are installed by SeedDefaults.
func DefaultRules() []Rule {
	carMax := int64(50000)
	motorcycleMax := int64(30000)
	return []Rule{
		{VehicleType: VehicleCar, FirstHourRate: 5000, NextHourRate: 3000, DailyMaxRate: &carMax},
		{VehicleType: VehicleMotorcycle, FirstHourRate: 3000, NextHourRate: 2000, DailyMaxRate: &motorcycleMax},
	}
}

// Get returns the rule for a vehicle type.
func (s *Service) Get(ctx context.Context, vehicleType VehicleType) (*Rule, error) {
	rule, err := s.repo.Get(ctx, vehicleType)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrRateNotFound
		}
		return nil, fmt.Errorf("getting rate: %w", err)
	}
	return rule, nil
}

// List returns every configured rule.
func (s *Service) List(ctx context.Context) ([]Rule, error) {
	rules, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing rates: %w", err)
	}
	return rules, nil
}

// Update replaces the amounts of a rule, creating it on first configuration.
func (s *Service) Update(ctx context.Context, req UpdateRequest) (*Rule, error) {
	if err := ValidateUpdate(req); err != nil {
		return nil, err
	}

	now := s.now()
	rule := &Rule{
		VehicleType:   req.VehicleType,
		FirstHourRate: req.FirstHourRate,
		NextHourRate:  req.NextHourRate,
		DailyMaxRate:  req.DailyMaxRate,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.repo.Upsert(ctx, rule); err != nil {
		return nil, fmt.Errorf("updating rate: %w", err)
	}

	s.logger.Info("rate updated",
		"vehicle_type", rule.VehicleType,
		"first_hour_rate", rule.FirstHourRate,
		"next_hour_rate", rule.NextHourRate,
		"daily_max_rate", maxRateAttr(rule.DailyMaxRate),
	)
	return s.Get(ctx, req.VehicleType)
}

// SeedDefaults installs DefaultRules for categories that have no rule yet and
// returns how many were created.
func (s *Service) SeedDefaults(ctx context.Context) (int, error) {
	created := 0
	now := s.now()
	for _, rule := range DefaultRules() {
		rule := rule
		rule.CreatedAt = now
		rule.UpdatedAt = now
		ok, err := s.repo.CreateIfMissing(ctx, &rule)
		if err != nil {
			return created, fmt.Errorf("seeding %s rate: %w", rule.VehicleType, err)
		}
		if ok {
			created++
		}
	}
	if created > 0 {
		s.logger.Info("default rates seeded", "count", created)
	}
	return created, nil
}

func maxRateAttr(v *int64) any {
	if v == nil {
		return "none"
	}
	return *v
}
