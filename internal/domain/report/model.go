package report

import "github.com/rpggio/parkline/internal/domain/rate"

// DateLayout is the calendar date format of aggregate keys.
const DateLayout = "2006-01-02"

// Totals are summed counters over one or more days.
type Totals struct {
	TotalVehicles   int64 `json:"total_vehicles"`
	TotalMotorcycle int64 `json:"total_motorcycle"`
	TotalCar        int64 `json:"total_car"`
	TotalRevenue    int64 `json:"total_revenue"`
}

// Add accumulates another set of totals.
func (t *Totals) Add(other Totals) {
	t.TotalVehicles += other.TotalVehicles
	t.TotalMotorcycle += other.TotalMotorcycle
	t.TotalCar += other.TotalCar
	t.TotalRevenue += other.TotalRevenue
}

// DailyAggregate holds the running totals of sessions completed on one date.
type DailyAggregate struct {
	Date string `json:"date"`
	Totals
}

// Completion is the contribution of one completed session to its day.
type Completion struct {
	Date        string
	VehicleType rate.VehicleType
	Fee         int64
}

// Delta returns the counter increments the completion applies.
func (c Completion) Delta() Totals {
	d := Totals{TotalVehicles: 1, TotalRevenue: c.Fee}
	if c.VehicleType == rate.VehicleMotorcycle {
		d.TotalMotorcycle = 1
	} else {
		d.TotalCar = 1
	}
	return d
}

// MonthTotals are the totals of one month of a year.
type MonthTotals struct {
	Month int `json:"month"`
	Totals
}

// DailyPage is one page of daily aggregates, newest first.
type DailyPage struct {
	Reports  []DailyAggregate `json:"reports"`
	Total    int              `json:"total"`
	Page     int              `json:"page"`
	PerPage  int              `json:"per_page"`
	LastPage int              `json:"last_page"`
}
