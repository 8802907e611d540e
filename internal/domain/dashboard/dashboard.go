// Package dashboard summarizes the lot for the operator dashboard.
package dashboard

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/rpggio/parkline/internal/domain/parking"
	"github.com/rpggio/parkline/internal/domain/rate"
	"github.com/rpggio/parkline/internal/domain/report"
)

const (
	// DefaultTotalSlots is the lot capacity when none is configured.
	DefaultTotalSlots = 100
	recentLimit       = 5
)

// ActiveSource lists active sessions, latest entry first.
type ActiveSource interface {
	Active(ctx context.Context) ([]parking.ActiveSession, error)
}

// ReportSource answers aggregate queries.
type ReportSource interface {
	Day(ctx context.Context, date time.Time) (report.DailyAggregate, error)
	Month(ctx context.Context, year int, month time.Month) (report.Totals, error)
}

// ActiveCounts are the vehicles currently parked.
type ActiveCounts struct {
	Total      int `json:"total"`
	Car        int `json:"car"`
	Motorcycle int `json:"motorcycle"`
}

// Today is today's completed traffic.
type Today struct {
	Revenue  int64 `json:"revenue"`
	Vehicles int64 `json:"vehicles"`
}

// Stats is the dashboard snapshot.
type Stats struct {
	ActiveVehicles ActiveCounts            `json:"active_vehicles"`
	Today          Today                   `json:"today"`
	MonthlyRevenue int64                   `json:"monthly_revenue"`
	RecentActivity []parking.ActiveSession `json:"recent_activity"`
	TotalSlots     int                     `json:"total_slots"`
	AvailableSlots int                     `json:"available_slots"`
	GeneratedAt    time.Time               `json:"generated_at"`
}

// Service builds dashboard statistics.
type Service struct {
	sessions   ActiveSource
	reports    ReportSource
	totalSlots int
	location   *time.Location
	logger     *slog.Logger
	now        func() time.Time
}

// Option customizes a Service.
type Option func(*Service)

// WithClock replaces the wall clock.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a dashboard service. totalSlots below one falls back to
// DefaultTotalSlots and a nil location to time.Local.
func NewService(sessions ActiveSource, reports ReportSource, totalSlots int, loc *time.Location, logger *slog.Logger, opts ...Option) *Service {
	if totalSlots < 1 {
		totalSlots = DefaultTotalSlots
	}
	if loc == nil {
		loc = time.Local
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	s := &Service{
		sessions:   sessions,
		reports:    reports,
		totalSlots: totalSlots,
		location:   loc,
		logger:     logger,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Stats returns the current dashboard snapshot.
func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	now := s.now().In(s.location)

	active, err := s.sessions.Active(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading active sessions: %w", err)
	}

	var counts ActiveCounts
	for _, sess := range active {
		counts.Total++
		switch sess.VehicleType {
		case rate.VehicleCar:
			counts.Car++
		case rate.VehicleMotorcycle:
			counts.Motorcycle++
		}
	}

	today, err := s.reports.Day(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("loading today's report: %w", err)
	}
	month, err := s.reports.Month(ctx, now.Year(), now.Month())
	if err != nil {
		return nil, fmt.Errorf("loading monthly report: %w", err)
	}

	recent := active
	if len(recent) > recentLimit {
		recent = recent[:recentLimit]
	}
	if recent == nil {
		recent = []parking.ActiveSession{}
	}

	available := s.totalSlots - counts.Total
	if available < 0 {
		s.logger.Warn("active sessions exceed lot capacity", "active", counts.Total, "total_slots", s.totalSlots)
		available = 0
	}

	return &Stats{
		ActiveVehicles: counts,
		Today:          Today{Revenue: today.TotalRevenue, Vehicles: today.TotalVehicles},
		MonthlyRevenue: month.TotalRevenue,
		RecentActivity: recent,
		TotalSlots:     s.totalSlots,
		AvailableSlots: available,
		GeneratedAt:    now,
	}, nil
}
