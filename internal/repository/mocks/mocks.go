package mocks

import (
	"context"
	"time"

	"github.com/rpggio/parkline/internal/domain/operator"
	"github.com/rpggio/parkline/internal/domain/parking"
	"github.com/rpggio/parkline/internal/domain/rate"
	"github.com/rpggio/parkline/internal/domain/report"
	"github.com/stretchr/testify/mock"
)

// SessionRepository is a mock for parking.SessionRepository.
type SessionRepository struct {
	mock.Mock
}

func (m *SessionRepository) Create(ctx context.Context, sess *parking.Session) error {
	args := m.Called(ctx, sess)
	return args.Error(0)
}

func (m *SessionRepository) NextTicketSequence(ctx context.Context, day time.Time) (int, error) {
	args := m.Called(ctx, day)
	return args.Int(0), args.Error(1)
}

func (m *SessionRepository) Get(ctx context.Context, id string) (*parking.Session, error) {
	args := m.Called(ctx, id)
	if sess, ok := args.Get(0).(*parking.Session); ok {
		return sess, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *SessionRepository) GetActiveByToken(ctx context.Context, qrToken string) (*parking.Session, error) {
	args := m.Called(ctx, qrToken)
	if sess, ok := args.Get(0).(*parking.Session); ok {
		return sess, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *SessionRepository) ListActive(ctx context.Context) ([]parking.Session, error) {
	args := m.Called(ctx)
	if list, ok := args.Get(0).([]parking.Session); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *SessionRepository) List(ctx context.Context, q parking.HistoryQuery) ([]parking.Session, int, error) {
	args := m.Called(ctx, q)
	if list, ok := args.Get(0).([]parking.Session); ok {
		return list, args.Int(1), args.Error(2)
	}
	return nil, args.Int(1), args.Error(2)
}

func (m *SessionRepository) Complete(ctx context.Context, sess *parking.Session, completion report.Completion) error {
	args := m.Called(ctx, sess, completion)
	return args.Error(0)
}

func (m *SessionRepository) Cancel(ctx context.Context, sess *parking.Session) error {
	args := m.Called(ctx, sess)
	return args.Error(0)
}

// RateRepository is a mock for rate.Repository.
type RateRepository struct {
	mock.Mock
}

func (m *RateRepository) Get(ctx context.Context, vehicleType rate.VehicleType) (*rate.Rule, error) {
	args := m.Called(ctx, vehicleType)
	if rule, ok := args.Get(0).(*rate.Rule); ok {
		return rule, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *RateRepository) List(ctx context.Context) ([]rate.Rule, error) {
	args := m.Called(ctx)
	if list, ok := args.Get(0).([]rate.Rule); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *RateRepository) Upsert(ctx context.Context, rule *rate.Rule) error {
	args := m.Called(ctx, rule)
	return args.Error(0)
}

func (m *RateRepository) CreateIfMissing(ctx context.Context, rule *rate.Rule) (bool, error) {
	args := m.Called(ctx, rule)
	return args.Bool(0), args.Error(1)
}

// ReportRepository is a mock for report.Repository.
type ReportRepository struct {
	mock.Mock
}

func (m *ReportRepository) Get(ctx context.Context, date string) (*report.DailyAggregate, error) {
	args := m.Called(ctx, date)
	if agg, ok := args.Get(0).(*report.DailyAggregate); ok {
		return agg, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *ReportRepository) Range(ctx context.Context, startDate, endDate string) ([]report.DailyAggregate, error) {
	args := m.Called(ctx, startDate, endDate)
	if list, ok := args.Get(0).([]report.DailyAggregate); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *ReportRepository) List(ctx context.Context, q report.DailyQuery) ([]report.DailyAggregate, int, error) {
	args := m.Called(ctx, q)
	if list, ok := args.Get(0).([]report.DailyAggregate); ok {
		return list, args.Int(1), args.Error(2)
	}
	return nil, args.Int(1), args.Error(2)
}

// OperatorRepository is a mock for operator.Repository.
type OperatorRepository struct {
	mock.Mock
}

func (m *OperatorRepository) Create(ctx context.Context, op *operator.Operator, keyHash string) error {
	args := m.Called(ctx, op, keyHash)
	return args.Error(0)
}

func (m *OperatorRepository) GetByKeyHash(ctx context.Context, keyHash string) (*operator.Operator, error) {
	args := m.Called(ctx, keyHash)
	if op, ok := args.Get(0).(*operator.Operator); ok {
		return op, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *OperatorRepository) List(ctx context.Context) ([]operator.Operator, error) {
	args := m.Called(ctx)
	if list, ok := args.Get(0).([]operator.Operator); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *OperatorRepository) TouchLastUsed(ctx context.Context, keyHash string, at time.Time) error {
	args := m.Called(ctx, keyHash, at)
	return args.Error(0)
}
