package report

import "time"

const (
	defaultPerPage = 30
	maxPerPage     = 100
)

// DailyOptions filters and pages the daily report listing.
type DailyOptions struct {
	StartDate *time.Time
	EndDate   *time.Time
	Page      int
	PerPage   int
}

// DailyQuery is the storage form of DailyOptions.
type DailyQuery struct {
	StartDate string
	EndDate   string
	Limit     int
	Offset    int
}
