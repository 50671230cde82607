package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/bharatalert-backend/internal/domain/repository"
	"github.com/ignatzorin/bharatalert-backend/internal/domain/valueobject"
	"github.com/ignatzorin/bharatalert-backend/internal/infrastructure/persistence"
)

func TestSeedService_Idempotent(t *testing.T) {
	store := persistence.NewMemoryStore()
	seed := NewSeedService(store)
	ctx := context.Background()

	first, err := seed.SeedData(ctx)
	require.NoError(t, err)
	assert.Equal(t, &SeedResult{Users: 2, Reports: 3, Sightings: 1}, first)

	second, err := seed.SeedData(ctx)
	require.NoError(t, err)
	assert.Equal(t, &SeedResult{}, second)

	pending, err := store.ListReportsByStatus(ctx, valueobject.ReportStatusPending)
	require.NoError(t, err)
	assert.Len(t, pending, 1)
	active, err := store.ListReportsByStatus(ctx, valueobject.ReportStatusActive)
	require.NoError(t, err)
	assert.Len(t, active, 2)

	// Счётчик демо-пользователя совпадает с числом его подтверждённых наблюдений.
	user, err := store.GetUserByEmail(ctx, SeedUserEmail)
	require.NoError(t, err)
	approved := valueobject.SightingStatusApproved
	sightings, err := store.ListSightings(ctx, repository.SightingFilter{UserID: &user.ID, Status: &approved})
	require.NoError(t, err)
	assert.Equal(t, len(sightings), user.SightingsCount)
}

func TestSeedService_DemoAccountsCanLogin(t *testing.T) {
	store := persistence.NewMemoryStore()
	_, err := NewSeedService(store).SeedData(context.Background())
	require.NoError(t, err)

	auth := NewAuthService(store, NewTokenManager("a", "r", time.Minute, time.Hour), time.Second)
	res, err := auth.Login(context.Background(), LoginInput{Email: SeedAdminEmail, Password: SeedAdminPassword})
	require.NoError(t, err)
	assert.Equal(t, valueobject.RoleAdmin, res.User.Role)

	_, err = auth.Login(context.Background(), LoginInput{Email: SeedUserEmail, Password: SeedUserPassword})
	require.NoError(t, err)
}

func TestSeedService_ExistingUserKeepsCounterInSync(t *testing.T) {
	store := persistence.NewMemoryStore()
	ctx := context.Background()

	// Демо-пользователь зарегистрировался сам до загрузки seed.
	auth := NewAuthService(store, NewTokenManager("a", "r", time.Minute, time.Hour), time.Second)
	_, err := auth.Signup(ctx, SignupInput{Name: "Rajesh", Email: SeedUserEmail, Password: "Password123"})
	require.NoError(t, err)

	seed := NewSeedService(store)
	first, err := seed.SeedData(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, first.Users)
	assert.Equal(t, 1, first.Sightings)

	_, err = seed.SeedData(ctx)
	require.NoError(t, err)

	user, err := store.GetUserByEmail(ctx, SeedUserEmail)
	require.NoError(t, err)
	approved := valueobject.SightingStatusApproved
	sightings, err := store.ListSightings(ctx, repository.SightingFilter{UserID: &user.ID, Status: &approved})
	require.NoError(t, err)
	assert.Len(t, sightings, 1)
	assert.Equal(t, 1, user.SightingsCount)

	// До лимита осталось ровно одно подтверждение.
	assert.True(t, user.CanSubmitSighting(DefaultSightingQuota))
	require.NoError(t, user.RecordApprovedSighting(DefaultSightingQuota))
	assert.False(t, user.CanSubmitSighting(DefaultSightingQuota))
}
