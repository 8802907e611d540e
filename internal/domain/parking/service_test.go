package parking_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/rpggio/parkline/internal/domain/parking"
	"github.com/rpggio/parkline/internal/domain/rate"
	"github.com/rpggio/parkline/internal/domain/report"
	"github.com/rpggio/parkline/internal/domain/ticket"
	"github.com/rpggio/parkline/internal/repository"
	"github.com/rpggio/parkline/internal/repository/mocks"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var (
	entryTime = time.Date(2024, 12, 6, 8, 0, 0, 0, time.UTC)
	carMax    = int64(50000)
	carRule   = &rate.Rule{VehicleType: rate.VehicleCar, FirstHourRate: 5000, NextHourRate: 3000, DailyMaxRate: &carMax}
)

type fixture struct {
	sessions *mocks.SessionRepository
	rates    *mocks.RateRepository
	now      time.Time
	tokens   []string
	svc      *parking.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		sessions: &mocks.SessionRepository{},
		rates:    &mocks.RateRepository{},
		now:      entryTime,
	}
	counter := 0
	f.svc = parking.NewService(
		f.sessions,
		rate.NewService(f.rates, nil),
		nil,
		parking.WithClock(func() time.Time { return f.now }),
		parking.WithLocation(time.UTC),
		parking.WithTokenGenerator(func(length int) (string, error) {
			counter++
			token := fmt.Sprintf("token-%02d-%s", counter, "xxxxxxxxxxxxxxxxxxxxxxxxx")
			f.tokens = append(f.tokens, token)
			return token, nil
		}),
	)
	return f
}

func activeSession(token string) *parking.Session {
	return &parking.Session{
		ID:           "s1",
		TicketNumber: "PRK20241206001",
		LicensePlate: "B1234XYZ",
		VehicleType:  rate.VehicleCar,
		QRToken:      token,
		EntryTime:    entryTime,
		Status:       parking.StatusActive,
		OperatorInID: "op-in",
	}
}

func TestParkingService_CheckIn(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	f.sessions.On("NextTicketSequence", ctx, entryTime).Return(7, nil)
	f.sessions.On("Create", ctx, mock.AnythingOfType("*parking.Session")).Return(nil)

	sess, err := f.svc.CheckIn(ctx, parking.CheckInRequest{
		LicensePlate: " b 1234 xyz ",
		VehicleType:  rate.VehicleCar,
		OperatorID:   "op-in",
	})
	require.NoError(t, err)
	require.NotEmpty(t, sess.ID)
	require.Equal(t, "PRK20241206007", sess.TicketNumber)
	require.Equal(t, "B 1234 XYZ", sess.LicensePlate)
	require.Equal(t, f.tokens[0], sess.QRToken)
	require.Equal(t, parking.StatusActive, sess.Status)
	require.Equal(t, entryTime, sess.EntryTime)
	require.Nil(t, sess.ExitTime)
	require.Nil(t, sess.TotalFee)
	f.sessions.AssertNumberOfCalls(t, "Create", 1)
}

func TestParkingService_CheckInValidation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	cases := []struct {
		name  string
		req   parking.CheckInRequest
		field string
	}{
		{"empty plate", parking.CheckInRequest{LicensePlate: "  ", VehicleType: rate.VehicleCar, OperatorID: "op"}, "license_plate"},
		{"long plate", parking.CheckInRequest{LicensePlate: "ABCDEFGHIJKLMNOPQRSTU", VehicleType: rate.VehicleCar, OperatorID: "op"}, "license_plate"},
		{"bad type", parking.CheckInRequest{LicensePlate: "B1", VehicleType: "truck", OperatorID: "op"}, "vehicle_type"},
		{"no operator", parking.CheckInRequest{LicensePlate: "B1", VehicleType: rate.VehicleMotorcycle}, "operator_id"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.CheckIn(ctx, tc.req)
			require.ErrorIs(t, err, parking.ErrInvalidInput)
			var verr *parking.ValidationError
			require.ErrorAs(t, err, &verr)
			require.Equal(t, tc.field, verr.Field)
		})
	}
	f.sessions.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	f.sessions.AssertNotCalled(t, "NextTicketSequence", mock.Anything, mock.Anything)
}

func TestParkingService_CheckInRetriesOnCollision(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	f.sessions.On("NextTicketSequence", ctx, entryTime).Return(1, nil).Once()
	f.sessions.On("NextTicketSequence", ctx, entryTime).Return(2, nil).Once()
	f.sessions.On("Create", ctx, mock.Anything).Return(repository.ErrDuplicate).Once()
	f.sessions.On("Create", ctx, mock.Anything).Return(nil).Once()

	sess, err := f.svc.CheckIn(ctx, parking.CheckInRequest{LicensePlate: "B1", VehicleType: rate.VehicleCar, OperatorID: "op"})
	require.NoError(t, err)
	require.Equal(t, "PRK20241206002", sess.TicketNumber)
	require.Equal(t, f.tokens[1], sess.QRToken)
}

func TestParkingService_CheckInGenerationExhausted(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	f.sessions.On("NextTicketSequence", ctx, entryTime).Return(3, nil)
	f.sessions.On("Create", ctx, mock.Anything).Return(repository.ErrDuplicate)

	_, err := f.svc.CheckIn(ctx, parking.CheckInRequest{LicensePlate: "B1", VehicleType: rate.VehicleCar, OperatorID: "op"})
	require.ErrorIs(t, err, ticket.ErrGeneration)
	f.sessions.AssertNumberOfCalls(t, "Create", parking.MaxAllocationAttempts)
}

func TestParkingService_CheckInDailyLimit(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	f.sessions.On("NextTicketSequence", ctx, entryTime).Return(1000, nil)

	_, err := f.svc.CheckIn(ctx, parking.CheckInRequest{LicensePlate: "B1", VehicleType: rate.VehicleCar, OperatorID: "op"})
	require.ErrorIs(t, err, ticket.ErrSequenceExhausted)
	f.sessions.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestParkingService_Preview(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.now = entryTime.Add(61 * time.Minute)

	f.sessions.On("GetActiveByToken", ctx, "tok").Return(activeSession("tok"), nil)
	f.rates.On("Get", ctx, rate.VehicleCar).Return(carRule, nil)

	preview, err := f.svc.Preview(ctx, "tok")
	require.NoError(t, err)
	require.Equal(t, int64(61), preview.DurationMinutes)
	require.Equal(t, int64(8000), preview.EstimatedFee)
	require.Equal(t, f.now, preview.AsOf)
}

func TestParkingService_PreviewErrors(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	f.sessions.On("GetActiveByToken", ctx, "gone").Return(nil, repository.ErrNotFound)
	f.sessions.On("GetActiveByToken", ctx, "moto").Return(&parking.Session{
		VehicleType: rate.VehicleMotorcycle, EntryTime: entryTime, Status: parking.StatusActive,
	}, nil)
	f.rates.On("Get", ctx, rate.VehicleMotorcycle).Return(nil, repository.ErrNotFound)

	_, err := f.svc.Preview(ctx, "gone")
	require.ErrorIs(t, err, parking.ErrSessionNotFound)

	_, err = f.svc.Preview(ctx, "moto")
	require.ErrorIs(t, err, parking.ErrRateNotConfigured)

	_, err = f.svc.Preview(ctx, "")
	require.ErrorIs(t, err, parking.ErrInvalidInput)
}

func TestParkingService_CheckOut(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.now = entryTime.Add(25 * time.Hour)

	f.sessions.On("GetActiveByToken", ctx, "tok").Return(activeSession("tok"), nil)
	f.rates.On("Get", ctx, rate.VehicleCar).Return(carRule, nil)
	f.sessions.On("Complete", ctx, mock.AnythingOfType("*parking.Session"), report.Completion{
		Date:        "2024-12-07",
		VehicleType: rate.VehicleCar,
		Fee:         50000,
	}).Return(nil)

	sess, err := f.svc.CheckOut(ctx, parking.CheckOutRequest{
		QRToken:       "tok",
		PaymentMethod: parking.PaymentQRIS,
		Notes:         " paid ",
		OperatorID:    "op-out",
	})
	require.NoError(t, err)
	require.Equal(t, parking.StatusCompleted, sess.Status)
	require.Equal(t, f.now, *sess.ExitTime)
	require.Equal(t, int64(1500), *sess.DurationMinutes)
	require.Equal(t, int64(50000), *sess.TotalFee)
	require.Equal(t, "op-out", *sess.OperatorOutID)
	require.Equal(t, parking.PaymentQRIS, *sess.PaymentMethod)
	require.Equal(t, "paid", *sess.Notes)
	require.False(t, sess.ExitTime.Before(sess.EntryTime))
	f.sessions.AssertNumberOfCalls(t, "Complete", 1)
}

func TestParkingService_CheckOutFeeMatchesPreview(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	f.sessions.On("GetActiveByToken", ctx, "tok").Return(activeSession("tok"), nil)
	f.rates.On("Get", ctx, rate.VehicleCar).Return(carRule, nil)
	f.sessions.On("Complete", ctx, mock.Anything, mock.Anything).Return(nil)

	for _, minutes := range []int{0, 30, 60, 61, 119, 120, 121, 600, 1439, 2000} {
		f.now = entryTime.Add(time.Duration(minutes) * time.Minute)
		preview, err := f.svc.Preview(ctx, "tok")
		require.NoError(t, err)
		sess, err := f.svc.CheckOut(ctx, parking.CheckOutRequest{QRToken: "tok", PaymentMethod: parking.PaymentCash, OperatorID: "op"})
		require.NoError(t, err)
		require.Equal(t, preview.EstimatedFee, *sess.TotalFee, "minutes=%d", minutes)
	}
}

func TestParkingService_CheckOutAlreadyCompleted(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	// The token no longer resolves to an active session.
	f.sessions.On("GetActiveByToken", ctx, "done").Return(nil, repository.ErrNotFound)
	// A concurrent checkout won the conditional update.
	f.sessions.On("GetActiveByToken", ctx, "raced").Return(activeSession("raced"), nil)
	f.rates.On("Get", ctx, rate.VehicleCar).Return(carRule, nil)
	f.sessions.On("Complete", ctx, mock.Anything, mock.Anything).Return(repository.ErrConflict)

	_, err := f.svc.CheckOut(ctx, parking.CheckOutRequest{QRToken: "done", PaymentMethod: parking.PaymentCash, OperatorID: "op"})
	require.ErrorIs(t, err, parking.ErrSessionNotFound)
	f.sessions.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything, mock.Anything)

	_, err = f.svc.CheckOut(ctx, parking.CheckOutRequest{QRToken: "raced", PaymentMethod: parking.PaymentCash, OperatorID: "op"})
	require.ErrorIs(t, err, parking.ErrSessionNotFound)
}

func TestParkingService_CheckOutAggregationFailure(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	f.sessions.On("GetActiveByToken", ctx, "tok").Return(activeSession("tok"), nil)
	f.rates.On("Get", ctx, rate.VehicleCar).Return(carRule, nil)
	f.sessions.On("Complete", ctx, mock.Anything, mock.Anything).
		Return(fmt.Errorf("%w: disk I/O error", repository.ErrAggregation))

	_, err := f.svc.CheckOut(ctx, parking.CheckOutRequest{QRToken: "tok", PaymentMethod: parking.PaymentCash, OperatorID: "op"})
	require.ErrorIs(t, err, parking.ErrAggregationFailed)
}

func TestParkingService_CheckOutValidation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.svc.CheckOut(ctx, parking.CheckOutRequest{QRToken: "tok", PaymentMethod: "bitcoin", OperatorID: "op"})
	var verr *parking.ValidationError
	require.ErrorAs(t, err, &verr)
	require.Equal(t, "payment_method", verr.Field)
	f.sessions.AssertNotCalled(t, "GetActiveByToken", mock.Anything, mock.Anything)
}

func TestParkingService_NotesLength(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	long := strings.Repeat("é", parking.MaxNotesLength+1)

	_, err := f.svc.CheckOut(ctx, parking.CheckOutRequest{QRToken: "tok", PaymentMethod: parking.PaymentCash, OperatorID: "op", Notes: long})
	var verr *parking.ValidationError
	require.ErrorAs(t, err, &verr)
	require.Equal(t, "notes", verr.Field)

	_, err = f.svc.Cancel(ctx, parking.CancelRequest{ID: "s1", OperatorID: "admin", Reason: long})
	require.ErrorAs(t, err, &verr)
	require.Equal(t, "reason", verr.Field)

	f.sessions.AssertNotCalled(t, "GetActiveByToken", mock.Anything, mock.Anything)
	f.sessions.AssertNotCalled(t, "Get", mock.Anything, mock.Anything)

	require.NoError(t, parking.ValidateCheckOut(parking.CheckOutRequest{
		QRToken:       "tok",
		PaymentMethod: parking.PaymentCash,
		OperatorID:    "op",
		Notes:         strings.Repeat("é", parking.MaxNotesLength),
	}))
}

func TestParkingService_Cancel(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.now = entryTime.Add(10 * time.Minute)

	f.sessions.On("Get", ctx, "s1").Return(activeSession("tok"), nil)
	f.sessions.On("Cancel", ctx, mock.AnythingOfType("*parking.Session")).Return(nil)

	sess, err := f.svc.Cancel(ctx, parking.CancelRequest{ID: "s1", OperatorID: "admin", Reason: "duplicate entry"})
	require.NoError(t, err)
	require.Equal(t, parking.StatusCancelled, sess.Status)
	require.Equal(t, "duplicate entry", *sess.Notes)
	require.Nil(t, sess.TotalFee)
	f.sessions.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything, mock.Anything)
}

func TestParkingService_CancelTerminal(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	done := activeSession("tok")
	done.Status = parking.StatusCompleted
	f.sessions.On("Get", ctx, "s1").Return(done, nil)
	f.sessions.On("Get", ctx, "missing").Return(nil, repository.ErrNotFound)

	_, err := f.svc.Cancel(ctx, parking.CancelRequest{ID: "s1", OperatorID: "admin"})
	require.ErrorIs(t, err, parking.ErrInvalidTransition)

	_, err = f.svc.Cancel(ctx, parking.CancelRequest{ID: "missing", OperatorID: "admin"})
	require.ErrorIs(t, err, parking.ErrSessionNotFound)
	f.sessions.AssertNotCalled(t, "Cancel", mock.Anything, mock.Anything)
}

func TestParkingService_Active(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.now = entryTime.Add(95 * time.Minute)

	f.sessions.On("ListActive", ctx).Return([]parking.Session{*activeSession("a")}, nil)

	active, err := f.svc.Active(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	require.Equal(t, int64(95), active[0].ElapsedMinutes)
}

func TestParkingService_History(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	status := parking.StatusCompleted
	start := time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 12, 6, 0, 0, 0, 0, time.UTC)
	from := start
	before := time.Date(2024, 12, 7, 0, 0, 0, 0, time.UTC)

	f.sessions.On("List", ctx, parking.HistoryQuery{
		Status:      parking.StatusCompleted,
		EntryFrom:   &from,
		EntryBefore: &before,
		Limit:       20,
		Offset:      20,
	}).Return([]parking.Session{*activeSession("a")}, 41, nil)

	page, err := f.svc.History(ctx, parking.HistoryFilter{Status: &status, StartDate: &start, EndDate: &end, Page: 2})
	require.NoError(t, err)
	require.Equal(t, 41, page.Total)
	require.Equal(t, 2, page.Page)
	require.Equal(t, 3, page.LastPage)
	require.Len(t, page.Sessions, 1)

	bad := parking.Status("parked")
	_, err = f.svc.History(ctx, parking.HistoryFilter{Status: &bad})
	require.ErrorIs(t, err, parking.ErrInvalidInput)
}

func TestParkingService_RepositoryErrorsWrapped(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	boom := errors.New("boom")

	f.sessions.On("ListActive", ctx).Return(nil, boom)
	_, err := f.svc.Active(ctx)
	require.ErrorIs(t, err, boom)
}

func TestCanTransition(t *testing.T) {
	require.True(t, parking.CanTransition(parking.StatusActive, parking.StatusCompleted))
	require.True(t, parking.CanTransition(parking.StatusActive, parking.StatusCancelled))
	require.False(t, parking.CanTransition(parking.StatusCompleted, parking.StatusActive))
	require.False(t, parking.CanTransition(parking.StatusCompleted, parking.StatusCancelled))
	require.False(t, parking.CanTransition(parking.StatusCancelled, parking.StatusActive))
}
