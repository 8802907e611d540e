package parking

import "time"

const (
	defaultHistoryPerPage = 20
	maxHistoryPerPage     = 100
)

// HistoryFilter filters and pages the session history.
type HistoryFilter struct {
	Status    *Status
	StartDate *time.Time
	EndDate   *time.Time
	Page      int
	PerPage   int
}

// HistoryQuery is the storage form of HistoryFilter. EntryFrom is inclusive
// and EntryBefore exclusive.
type HistoryQuery struct {
	Status      Status
	EntryFrom   *time.Time
	EntryBefore *time.Time
	Limit       int
	Offset      int
}
