package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/rpggio/parkline/internal/domain/rate"
	"github.com/rpggio/parkline/internal/repository"
	"github.com/stretchr/testify/require"
)

func TestRateRepository_UpsertGet(t *testing.T) {
	db := NewTestDB(t)
	ctx := context.Background()
	repo := NewRateRepository(db)
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	_, err := repo.Get(ctx, rate.VehicleCar)
	require.ErrorIs(t, err, repository.ErrNotFound)

	carMax := int64(50000)
	require.NoError(t, repo.Upsert(ctx, &rate.Rule{
		VehicleType: rate.VehicleCar, FirstHourRate: 5000, NextHourRate: 3000, DailyMaxRate: &carMax,
		CreatedAt: created, UpdatedAt: created,
	}))

	updated := created.AddDate(0, 1, 0)
	require.NoError(t, repo.Upsert(ctx, &rate.Rule{
		VehicleType: rate.VehicleCar, FirstHourRate: 6000, NextHourRate: 3500,
		CreatedAt: updated, UpdatedAt: updated,
	}))

	rule, err := repo.Get(ctx, rate.VehicleCar)
	require.NoError(t, err)
	require.Equal(t, int64(6000), rule.FirstHourRate)
	require.Equal(t, int64(3500), rule.NextHourRate)
	require.Nil(t, rule.DailyMaxRate)
	require.True(t, rule.CreatedAt.Equal(created), "creation time is kept")
	require.True(t, rule.UpdatedAt.Equal(updated))
}

func TestRateRepository_CreateIfMissing(t *testing.T) {
	db := NewTestDB(t)
	ctx := context.Background()
	repo := NewRateRepository(db)
	now := time.Now()

	rule := &rate.Rule{VehicleType: rate.VehicleMotorcycle, FirstHourRate: 3000, NextHourRate: 2000, CreatedAt: now, UpdatedAt: now}
	ok, err := repo.CreateIfMissing(ctx, rule)
	require.NoError(t, err)
	require.True(t, ok)

	rule.FirstHourRate = 9999
	ok, err = repo.CreateIfMissing(ctx, rule)
	require.NoError(t, err)
	require.False(t, ok)

	rules, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, rules, 1)
	require.Equal(t, int64(3000), rules[0].FirstHourRate)
}

func TestRateRepository_RejectsNegative(t *testing.T) {
	db := NewTestDB(t)
	now := time.Now()
	err := NewRateRepository(db).Upsert(context.Background(), &rate.Rule{
		VehicleType: rate.VehicleCar, FirstHourRate: -1, CreatedAt: now, UpdatedAt: now,
	})
	require.Error(t, err)
}
