package sqlite

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rpggio/parkline/internal/domain/parking"
	"github.com/rpggio/parkline/internal/domain/rate"
	"github.com/rpggio/parkline/internal/domain/report"
	"github.com/rpggio/parkline/internal/domain/ticket"
	"github.com/rpggio/parkline/internal/repository"
	"github.com/stretchr/testify/require"
)

var testDay = time.Date(2024, 12, 6, 8, 0, 0, 0, time.UTC)

func newSession(id, number string, vehicleType rate.VehicleType, entry time.Time) *parking.Session {
	return &parking.Session{
		ID:           id,
		TicketNumber: number,
		LicensePlate: "B1234XYZ",
		VehicleType:  vehicleType,
		QRToken:      "token-" + id,
		EntryTime:    entry,
		Status:       parking.StatusActive,
		OperatorInID: "op1",
		CreatedAt:    entry,
		UpdatedAt:    entry,
	}
}

func closed(sess *parking.Session, exit time.Time, duration, fee int64) *parking.Session {
	out := *sess
	method := parking.PaymentCash
	operatorOut := "op2"
	out.ExitTime = &exit
	out.DurationMinutes = &duration
	out.TotalFee = &fee
	out.OperatorOutID = &operatorOut
	out.PaymentMethod = &method
	out.UpdatedAt = exit
	return &out
}

func TestSessionRepository_CreateGet(t *testing.T) {
	db := NewTestDB(t)
	ctx := context.Background()
	repo := NewSessionRepository(db)

	sess := newSession("s1", "PRK20241206001", rate.VehicleCar, testDay)
	require.NoError(t, repo.Create(ctx, sess))

	loaded, err := repo.Get(ctx, "s1")
	require.NoError(t, err)
	require.Equal(t, "PRK20241206001", loaded.TicketNumber)
	require.Equal(t, rate.VehicleCar, loaded.VehicleType)
	require.Equal(t, parking.StatusActive, loaded.Status)
	require.True(t, loaded.EntryTime.Equal(testDay))
	require.Nil(t, loaded.ExitTime)
	require.Nil(t, loaded.TotalFee)
	require.Nil(t, loaded.PaymentMethod)

	byToken, err := repo.GetActiveByToken(ctx, "token-s1")
	require.NoError(t, err)
	require.Equal(t, "s1", byToken.ID)

	_, err = repo.Get(ctx, "missing")
	require.ErrorIs(t, err, repository.ErrNotFound)
	_, err = repo.GetActiveByToken(ctx, "missing")
	require.ErrorIs(t, err, repository.ErrNotFound)
}

func TestSessionRepository_CreateDuplicate(t *testing.T) {
	db := NewTestDB(t)
	ctx := context.Background()
	repo := NewSessionRepository(db)

	require.NoError(t, repo.Create(ctx, newSession("s1", "PRK20241206001", rate.VehicleCar, testDay)))

	sameTicket := newSession("s2", "PRK20241206001", rate.VehicleCar, testDay)
	require.ErrorIs(t, repo.Create(ctx, sameTicket), repository.ErrDuplicate)

	sameToken := newSession("s3", "PRK20241206002", rate.VehicleCar, testDay)
	sameToken.QRToken = "token-s1"
	require.ErrorIs(t, repo.Create(ctx, sameToken), repository.ErrDuplicate)
}

func TestSessionRepository_NextTicketSequence(t *testing.T) {
	db := NewTestDB(t)
	ctx := context.Background()
	repo := NewSessionRepository(db)

	for want := 1; want <= 3; want++ {
		seq, err := repo.NextTicketSequence(ctx, testDay)
		require.NoError(t, err)
		require.Equal(t, want, seq)
	}

	seq, err := repo.NextTicketSequence(ctx, testDay.AddDate(0, 0, 1))
	require.NoError(t, err)
	require.Equal(t, 1, seq, "each date starts its own sequence")
}

func TestSessionRepository_NextTicketSequenceSeededFromTickets(t *testing.T) {
	db := NewTestDB(t)
	ctx := context.Background()
	repo := NewSessionRepository(db)

	require.NoError(t, repo.Create(ctx, newSession("s1", "PRK20241206007", rate.VehicleCar, testDay)))
	require.NoError(t, repo.Create(ctx, newSession("s2", "PRK20241205042", rate.VehicleCar, testDay.AddDate(0, 0, -1))))

	seq, err := repo.NextTicketSequence(ctx, testDay)
	require.NoError(t, err)
	require.Equal(t, 8, seq)

	// A ticket stored behind the counter's back is never reissued.
	require.NoError(t, repo.Create(ctx, newSession("s3", "PRK20241206020", rate.VehicleCar, testDay)))
	seq, err = repo.NextTicketSequence(ctx, testDay)
	require.NoError(t, err)
	require.Equal(t, 21, seq)
}

func TestSessionRepository_NextTicketSequenceExhausted(t *testing.T) {
	db := NewTestDB(t)
	ctx := context.Background()
	repo := NewSessionRepository(db)

	require.NoError(t, repo.Create(ctx, newSession("s1", "PRK20241206999", rate.VehicleCar, testDay)))

	_, err := repo.NextTicketSequence(ctx, testDay)
	require.ErrorIs(t, err, ticket.ErrSequenceExhausted)
	require.ErrorIs(t, err, ticket.ErrGeneration)
}

func TestSessionRepository_NextTicketSequenceConcurrent(t *testing.T) {
	db := NewTestDB(t)
	ctx := context.Background()
	repo := NewSessionRepository(db)

	const workers = 20
	var wg sync.WaitGroup
	results := make(chan int, workers)
	errs := make(chan error, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			seq, err := repo.NextTicketSequence(ctx, testDay)
			if err != nil {
				errs <- err
				return
			}
			results <- seq
		}()
	}
	wg.Wait()
	close(results)
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}
	seen := map[int]bool{}
	for seq := range results {
		require.False(t, seen[seq], "sequence %d issued twice", seq)
		seen[seq] = true
	}
	require.Len(t, seen, workers)
	for i := 1; i <= workers; i++ {
		require.True(t, seen[i], "sequence %d missing", i)
	}
}

func TestSessionRepository_Complete(t *testing.T) {
	db := NewTestDB(t)
	ctx := context.Background()
	repo := NewSessionRepository(db)
	reports := NewReportRepository(db)

	car := newSession("s1", "PRK20241206001", rate.VehicleCar, testDay)
	moto := newSession("s2", "PRK20241206002", rate.VehicleMotorcycle, testDay)
	require.NoError(t, repo.Create(ctx, car))
	require.NoError(t, repo.Create(ctx, moto))

	exit := testDay.Add(90 * time.Minute)
	require.NoError(t, repo.Complete(ctx, closed(car, exit, 90, 8000),
		report.Completion{Date: "2024-12-06", VehicleType: rate.VehicleCar, Fee: 8000}))
	require.NoError(t, repo.Complete(ctx, closed(moto, exit, 90, 5000),
		report.Completion{Date: "2024-12-06", VehicleType: rate.VehicleMotorcycle, Fee: 5000}))

	loaded, err := repo.Get(ctx, "s1")
	require.NoError(t, err)
	require.Equal(t, parking.StatusCompleted, loaded.Status)
	require.True(t, loaded.ExitTime.Equal(exit))
	require.Equal(t, int64(90), *loaded.DurationMinutes)
	require.Equal(t, int64(8000), *loaded.TotalFee)
	require.Equal(t, parking.PaymentCash, *loaded.PaymentMethod)
	require.Equal(t, "op2", *loaded.OperatorOutID)

	_, err = repo.GetActiveByToken(ctx, "token-s1")
	require.ErrorIs(t, err, repository.ErrNotFound, "completed sessions are not resolvable by token")

	agg, err := reports.Get(ctx, "2024-12-06")
	require.NoError(t, err)
	require.Equal(t, int64(2), agg.TotalVehicles)
	require.Equal(t, int64(1), agg.TotalCar)
	require.Equal(t, int64(1), agg.TotalMotorcycle)
	require.Equal(t, int64(13000), agg.TotalRevenue)
}

func TestSessionRepository_CompleteTwice(t *testing.T) {
	db := NewTestDB(t)
	ctx := context.Background()
	repo := NewSessionRepository(db)
	reports := NewReportRepository(db)

	sess := newSession("s1", "PRK20241206001", rate.VehicleCar, testDay)
	require.NoError(t, repo.Create(ctx, sess))

	completion := report.Completion{Date: "2024-12-06", VehicleType: rate.VehicleCar, Fee: 5000}
	exit := testDay.Add(30 * time.Minute)
	require.NoError(t, repo.Complete(ctx, closed(sess, exit, 30, 5000), completion))

	err := repo.Complete(ctx, closed(sess, exit, 30, 5000), completion)
	require.ErrorIs(t, err, repository.ErrConflict)

	agg, err := reports.Get(ctx, "2024-12-06")
	require.NoError(t, err)
	require.Equal(t, int64(1), agg.TotalVehicles, "second checkout must not be counted")
	require.Equal(t, int64(5000), agg.TotalRevenue)
}

func TestSessionRepository_CompleteConcurrent(t *testing.T) {
	db := NewTestDB(t)
	ctx := context.Background()
	repo := NewSessionRepository(db)
	reports := NewReportRepository(db)

	sess := newSession("s1", "PRK20241206001", rate.VehicleCar, testDay)
	require.NoError(t, repo.Create(ctx, sess))

	completion := report.Completion{Date: "2024-12-06", VehicleType: rate.VehicleCar, Fee: 5000}
	exit := testDay.Add(30 * time.Minute)

	const attempts = 8
	var wg sync.WaitGroup
	errs := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- repo.Complete(ctx, closed(sess, exit, 30, 5000), completion)
		}()
	}
	wg.Wait()
	close(errs)

	succeeded := 0
	for err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		require.ErrorIs(t, err, repository.ErrConflict)
	}
	require.Equal(t, 1, succeeded)

	agg, err := reports.Get(ctx, "2024-12-06")
	require.NoError(t, err)
	require.Equal(t, int64(1), agg.TotalVehicles)
}

func TestSessionRepository_CompleteAggregationFailure(t *testing.T) {
	db := NewTestDB(t)
	ctx := context.Background()
	repo := NewSessionRepository(db)

	sess := newSession("s1", "PRK20241206001", rate.VehicleCar, testDay)
	require.NoError(t, repo.Create(ctx, sess))

	_, err := db.ExecContext(ctx, `DROP TABLE daily_reports`)
	require.NoError(t, err)

	err = repo.Complete(ctx, closed(sess, testDay.Add(time.Hour), 60, 5000),
		report.Completion{Date: "2024-12-06", VehicleType: rate.VehicleCar, Fee: 5000})
	require.ErrorIs(t, err, repository.ErrAggregation)

	loaded, err := repo.Get(ctx, "s1")
	require.NoError(t, err)
	require.Equal(t, parking.StatusActive, loaded.Status, "session must stay active after rollback")
	require.Nil(t, loaded.ExitTime)
}

func TestSessionRepository_Cancel(t *testing.T) {
	db := NewTestDB(t)
	ctx := context.Background()
	repo := NewSessionRepository(db)
	reports := NewReportRepository(db)

	sess := newSession("s1", "PRK20241206001", rate.VehicleCar, testDay)
	require.NoError(t, repo.Create(ctx, sess))

	exit := testDay.Add(10 * time.Minute)
	reason := "wrong plate"
	operatorOut := "admin"
	cancelled := *sess
	cancelled.Status = parking.StatusCancelled
	cancelled.ExitTime = &exit
	cancelled.Notes = &reason
	cancelled.OperatorOutID = &operatorOut
	cancelled.UpdatedAt = exit

	require.NoError(t, repo.Cancel(ctx, &cancelled))
	require.ErrorIs(t, repo.Cancel(ctx, &cancelled), repository.ErrConflict)

	loaded, err := repo.Get(ctx, "s1")
	require.NoError(t, err)
	require.Equal(t, parking.StatusCancelled, loaded.Status)
	require.Equal(t, "wrong plate", *loaded.Notes)
	require.Nil(t, loaded.TotalFee)

	_, err = reports.Get(ctx, "2024-12-06")
	require.ErrorIs(t, err, repository.ErrNotFound, "cancel never touches aggregates")
}

func TestSessionRepository_ListActive(t *testing.T) {
	db := NewTestDB(t)
	ctx := context.Background()
	repo := NewSessionRepository(db)

	for i := 1; i <= 3; i++ {
		entry := testDay.Add(time.Duration(i) * time.Minute)
		require.NoError(t, repo.Create(ctx, newSession(fmt.Sprintf("s%d", i), fmt.Sprintf("PRK20241206%03d", i), rate.VehicleCar, entry)))
	}
	s2, err := repo.Get(ctx, "s2")
	require.NoError(t, err)
	require.NoError(t, repo.Complete(ctx, closed(s2, testDay.Add(time.Hour), 58, 5000),
		report.Completion{Date: "2024-12-06", VehicleType: rate.VehicleCar, Fee: 5000}))

	active, err := repo.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, active, 2)
	require.Equal(t, "s3", active[0].ID)
	require.Equal(t, "s1", active[1].ID)
}

func TestSessionRepository_List(t *testing.T) {
	db := NewTestDB(t)
	ctx := context.Background()
	repo := NewSessionRepository(db)

	// Five sessions eight hours apart across Dec 5 and Dec 6.
	for i := 1; i <= 5; i++ {
		entry := testDay.AddDate(0, 0, -1).Add(time.Duration(i*8) * time.Hour)
		id := fmt.Sprintf("s%d", i)
		require.NoError(t, repo.Create(ctx, newSession(id, fmt.Sprintf("PRK%s%03d", entry.Format("20060102"), i), rate.VehicleCar, entry)))
	}

	all, total, err := repo.List(ctx, parking.HistoryQuery{Limit: 2})
	require.NoError(t, err)
	require.Equal(t, 5, total)
	require.Len(t, all, 2)
	require.Equal(t, "s5", all[0].ID)
	require.Equal(t, "s4", all[1].ID)

	page2, _, err := repo.List(ctx, parking.HistoryQuery{Limit: 2, Offset: 2})
	require.NoError(t, err)
	require.Equal(t, "s3", page2[0].ID)

	from := time.Date(2024, 12, 6, 0, 0, 0, 0, time.UTC)
	before := from.AddDate(0, 0, 1)
	day, total, err := repo.List(ctx, parking.HistoryQuery{EntryFrom: &from, EntryBefore: &before, Limit: 10})
	require.NoError(t, err)
	require.Equal(t, 3, total)
	for _, sess := range day {
		require.False(t, sess.EntryTime.Before(from))
		require.True(t, sess.EntryTime.Before(before))
	}

	none, total, err := repo.List(ctx, parking.HistoryQuery{Status: parking.StatusCompleted, Limit: 10})
	require.NoError(t, err)
	require.Equal(t, 0, total)
	require.NotNil(t, none)
}
