package report

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/rpggio/parkline/internal/repository"
)

// Service answers reporting queries over daily aggregates.
type Service struct {
	repo   Repository
	logger *slog.Logger
}

// NewService creates a new report service.
func NewService(repo Repository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Service{repo: repo, logger: logger}
}

// Day returns the aggregate of one date, zero-valued when nothing completed.
func (s *Service) Day(ctx context.Context, date time.Time) (DailyAggregate, error) {
	key := date.Format(DateLayout)
	agg, err := s.repo.Get(ctx, key)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return DailyAggregate{Date: key}, nil
		}
		return DailyAggregate{}, fmt.Errorf("getting daily report: %w", err)
	}
	return *agg, nil
}

// Range returns the aggregates between two dates inclusive, oldest first.
// Dates without completions are omitted.
func (s *Service) Range(ctx context.Context, start, end time.Time) ([]DailyAggregate, error) {
	if err := validateRange(start, end); err != nil {
		return nil, err
	}
	aggs, err := s.repo.Range(ctx, start.Format(DateLayout), end.Format(DateLayout))
	if err != nil {
		return nil, fmt.Errorf("querying daily reports: %w", err)
	}
	return aggs, nil
}

// Month returns the summed totals of a calendar month.
func (s *Service) Month(ctx context.Context, year int, month time.Month) (Totals, error) {
	if month < time.January || month > time.December {
		return Totals{}, fmt.Errorf("%w: month %d", ErrInvalidInput, month)
	}
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 1, -1)

	aggs, err := s.Range(ctx, first, last)
	if err != nil {
		return Totals{}, err
	}
	var totals Totals
	for _, agg := range aggs {
		totals.Add(agg.Totals)
	}
	return totals, nil
}

// Year returns per-month totals of a year, for months that have data.
func (s *Service) Year(ctx context.Context, year int) ([]MonthTotals, error) {
	first := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	last := time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC)

	aggs, err := s.Range(ctx, first, last)
	if err != nil {
		return nil, err
	}

	var months []MonthTotals
	for _, agg := range aggs {
		day, err := time.Parse(DateLayout, agg.Date)
		if err != nil {
			return nil, fmt.Errorf("parsing report date %q: %w", agg.Date, err)
		}
		m := int(day.Month())
		if len(months) == 0 || months[len(months)-1].Month != m {
			months = append(months, MonthTotals{Month: m})
		}
		months[len(months)-1].Add(agg.Totals)
	}
	return months, nil
}

// Daily lists aggregates newest first with optional date bounds.
func (s *Service) Daily(ctx context.Context, opts DailyOptions) (*DailyPage, error) {
	if opts.StartDate != nil && opts.EndDate != nil {
		if err := validateRange(*opts.StartDate, *opts.EndDate); err != nil {
			return nil, err
		}
	}
	page, perPage := normalizePage(opts.Page, opts.PerPage)

	q := DailyQuery{Limit: perPage, Offset: (page - 1) * perPage}
	if opts.StartDate != nil {
		q.StartDate = opts.StartDate.Format(DateLayout)
	}
	if opts.EndDate != nil {
		q.EndDate = opts.EndDate.Format(DateLayout)
	}

	aggs, total, err := s.repo.List(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("listing daily reports: %w", err)
	}
	if aggs == nil {
		aggs = []DailyAggregate{}
	}
	return &DailyPage{
		Reports:  aggs,
		Total:    total,
		Page:     page,
		PerPage:  perPage,
		LastPage: lastPage(total, perPage),
	}, nil
}

func normalizePage(page, perPage int) (int, int) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = defaultPerPage
	}
	if perPage > maxPerPage {
		perPage = maxPerPage
	}
	return page, perPage
}

func lastPage(total, perPage int) int {
	if total == 0 {
		return 1
	}
	return (total + perPage - 1) / perPage
}
