package dashboard

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/rpggio/parkline/internal/domain/parking"
	"github.com/rpggio/parkline/internal/domain/rate"
	"github.com/rpggio/parkline/internal/domain/report"
	"github.com/stretchr/testify/require"
)

type fakeActive struct {
	sessions []parking.ActiveSession
	err      error
}

func (f *fakeActive) Active(context.Context) ([]parking.ActiveSession, error) {
	return f.sessions, f.err
}

type fakeReports struct {
	day      report.DailyAggregate
	month    report.Totals
	dayAsked time.Time
}

func (f *fakeReports) Day(_ context.Context, date time.Time) (report.DailyAggregate, error) {
	f.dayAsked = date
	return f.day, nil
}

func (f *fakeReports) Month(context.Context, int, time.Month) (report.Totals, error) {
	return f.month, nil
}

func activeOf(n int, vt rate.VehicleType) []parking.ActiveSession {
	out := make([]parking.ActiveSession, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, parking.ActiveSession{Session: parking.Session{
			ID:          fmt.Sprintf("%s-%d", vt, i),
			VehicleType: vt,
		}})
	}
	return out
}

func TestStats(t *testing.T) {
	active := append(activeOf(4, rate.VehicleCar), activeOf(3, rate.VehicleMotorcycle)...)
	reports := &fakeReports{
		day:   report.DailyAggregate{Date: "2024-12-06", Totals: report.Totals{TotalVehicles: 12, TotalRevenue: 84000}},
		month: report.Totals{TotalRevenue: 910000},
	}

	svc := NewService(&fakeActive{sessions: active}, reports, 10, time.UTC, nil)
	now := time.Date(2024, 12, 6, 15, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	stats, err := svc.Stats(context.Background())
	require.NoError(t, err)
	require.Equal(t, ActiveCounts{Total: 7, Car: 4, Motorcycle: 3}, stats.ActiveVehicles)
	require.Equal(t, Today{Revenue: 84000, Vehicles: 12}, stats.Today)
	require.Equal(t, int64(910000), stats.MonthlyRevenue)
	require.Len(t, stats.RecentActivity, 5)
	require.Equal(t, "car-0", stats.RecentActivity[0].ID)
	require.Equal(t, 10, stats.TotalSlots)
	require.Equal(t, 3, stats.AvailableSlots)
	require.Equal(t, now, reports.dayAsked)
}

func TestStats_AvailableSlotsFloor(t *testing.T) {
	svc := NewService(&fakeActive{sessions: activeOf(3, rate.VehicleCar)}, &fakeReports{}, 2, time.UTC, nil)

	stats, err := svc.Stats(context.Background())
	require.NoError(t, err)
	require.Equal(t, 0, stats.AvailableSlots)
}

func TestStats_Defaults(t *testing.T) {
	svc := NewService(&fakeActive{}, &fakeReports{}, 0, nil, nil)

	stats, err := svc.Stats(context.Background())
	require.NoError(t, err)
	require.Equal(t, DefaultTotalSlots, stats.TotalSlots)
	require.Equal(t, DefaultTotalSlots, stats.AvailableSlots)
	require.Empty(t, stats.RecentActivity)
}

func TestStats_ActiveError(t *testing.T) {
	boom := errors.New("boom")
	svc := NewService(&fakeActive{err: boom}, &fakeReports{}, 10, time.UTC, nil)

	_, err := svc.Stats(context.Background())
	require.ErrorIs(t, err, boom)
}
