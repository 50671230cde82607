package persistence

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/bharatalert-backend/internal/domain/entity"
	"github.com/ignatzorin/bharatalert-backend/internal/domain/repository"
	"github.com/ignatzorin/bharatalert-backend/internal/domain/valueobject"
)

func newUser(email string) *entity.User {
	return &entity.User{
		ID:        uuid.New(),
		Name:      "Test",
		Email:     email,
		Role:      valueobject.RoleUser,
		CreatedAt: time.Now(),
	}
}

func newReport(owner uuid.UUID, status valueobject.ReportStatus, createdAt time.Time) *entity.Report {
	return &entity.Report{
		ID:         uuid.New(),
		ChildName:  "Child",
		Age:        7,
		ReportedBy: owner,
		Status:     status,
		Photos:     []string{"p/1.jpg"},
		CreatedAt:  createdAt,
	}
}

func TestMemoryStore_UserEmailUnique(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	require.NoError(t, s.CreateUser(ctx, newUser("a@example.com")))
	err := s.CreateUser(ctx, newUser("A@Example.com"))
	assert.ErrorIs(t, err, repository.ErrAlreadyExists)

	u, err := s.GetUserByEmail(ctx, "A@EXAMPLE.COM")
	require.NoError(t, err)
	assert.Equal(t, "a@example.com", u.Email)

	_, err = s.GetUserByEmail(ctx, "missing@example.com")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	r := newReport(uuid.New(), valueobject.ReportStatusPending, time.Now())
	require.NoError(t, s.CreateReport(ctx, r))

	got, err := s.GetReport(ctx, r.ID)
	require.NoError(t, err)
	got.Status = valueobject.ReportStatusSolved
	got.Photos[0] = "changed"

	again, err := s.GetReport(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, valueobject.ReportStatusPending, again.Status)
	assert.Equal(t, "p/1.jpg", again.Photos[0])
}

func TestMemoryStore_ListReportsNewestFirst(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	owner := uuid.New()
	base := time.Now()

	older := newReport(owner, valueobject.ReportStatusActive, base.Add(-time.Hour))
	newer := newReport(owner, valueobject.ReportStatusActive, base)
	pending := newReport(uuid.New(), valueobject.ReportStatusPending, base)
	for _, r := range []*entity.Report{older, newer, pending} {
		require.NoError(t, s.CreateReport(ctx, r))
	}

	active, err := s.ListReportsByStatus(ctx, valueobject.ReportStatusActive)
	require.NoError(t, err)
	require.Len(t, active, 2)
	assert.Equal(t, newer.ID, active[0].ID)
	assert.Equal(t, older.ID, active[1].ID)

	mine, err := s.ListReportsByUser(ctx, owner)
	require.NoError(t, err)
	assert.Len(t, mine, 2)

	solved, err := s.ListReportsByStatus(ctx, valueobject.ReportStatusSolved)
	require.NoError(t, err)
	assert.NotNil(t, solved)
	assert.Empty(t, solved)
}

func TestMemoryStore_UpdateReportRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	r := newReport(uuid.New(), valueobject.ReportStatusPending, time.Now())
	require.NoError(t, s.CreateReport(ctx, r))

	boom := errors.New("boom")
	_, err := s.UpdateReport(ctx, r.ID, func(r *entity.Report) error {
		r.Status = valueobject.ReportStatusActive
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, err := s.GetReport(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, valueobject.ReportStatusPending, got.Status)

	_, err = s.UpdateReport(ctx, uuid.New(), func(*entity.Report) error { return nil })
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestMemoryStore_DeleteReportRespectsCheck(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	r := newReport(uuid.New(), valueobject.ReportStatusActive, time.Now())
	require.NoError(t, s.CreateReport(ctx, r))

	_, err := s.DeleteReport(ctx, r.ID, func(r *entity.Report) error { return r.EnsureRejectable() })
	assert.Error(t, err)

	_, err = s.GetReport(ctx, r.ID)
	assert.NoError(t, err, "заявка не должна удаляться при ошибке проверки")
}

func TestMemoryStore_UpdateSightingAtomic(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	user := newUser("u@example.com")
	require.NoError(t, s.CreateUser(ctx, user))
	report := newReport(uuid.New(), valueobject.ReportStatusActive, time.Now())
	require.NoError(t, s.CreateReport(ctx, report))

	sg := &entity.Sighting{
		ID:         uuid.New(),
		ReportID:   report.ID,
		ReportedBy: user.ID,
		Status:     valueobject.SightingStatusPending,
		CreatedAt:  time.Now(),
	}
	require.NoError(t, s.CreateSighting(ctx, sg))

	// Ошибка после изменения обеих копий не сохраняет ни одну из них.
	_, _, err := s.UpdateSighting(ctx, sg.ID, func(sg *entity.Sighting, u *entity.User) error {
		sg.Status = valueobject.SightingStatusApproved
		u.SightingsCount = 5
		return errors.New("boom")
	})
	require.Error(t, err)

	gotSighting, err := s.GetSighting(ctx, sg.ID)
	require.NoError(t, err)
	assert.Equal(t, valueobject.SightingStatusPending, gotSighting.Status)
	gotUser, err := s.GetUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, gotUser.SightingsCount)

	updated, reporter, err := s.UpdateSighting(ctx, sg.ID, func(sg *entity.Sighting, u *entity.User) error {
		if err := sg.Approve(); err != nil {
			return err
		}
		return u.RecordApprovedSighting(2)
	})
	require.NoError(t, err)
	assert.Equal(t, valueobject.SightingStatusApproved, updated.Status)
	assert.Equal(t, 1, reporter.SightingsCount)

	gotUser, err = s.GetUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, gotUser.SightingsCount)
}

func TestMemoryStore_CreateSightingRequiresReport(t *testing.T) {
	s := NewMemoryStore()
	err := s.CreateSighting(context.Background(), &entity.Sighting{ID: uuid.New(), ReportID: uuid.New()})
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestMemoryStore_ListSightingsFilter(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	r1 := newReport(uuid.New(), valueobject.ReportStatusActive, time.Now())
	r2 := newReport(uuid.New(), valueobject.ReportStatusActive, time.Now())
	require.NoError(t, s.CreateReport(ctx, r1))
	require.NoError(t, s.CreateReport(ctx, r2))

	author := uuid.New()
	add := func(reportID uuid.UUID, status valueobject.SightingStatus) {
		require.NoError(t, s.CreateSighting(ctx, &entity.Sighting{
			ID: uuid.New(), ReportID: reportID, ReportedBy: author, Status: status, CreatedAt: time.Now(),
		}))
	}
	add(r1.ID, valueobject.SightingStatusApproved)
	add(r1.ID, valueobject.SightingStatusPending)
	add(r2.ID, valueobject.SightingStatusApproved)

	approved := valueobject.SightingStatusApproved
	list, err := s.ListSightings(ctx, repository.SightingFilter{ReportID: &r1.ID, Status: &approved})
	require.NoError(t, err)
	assert.Len(t, list, 1)

	list, err = s.ListSightings(ctx, repository.SightingFilter{UserID: &author})
	require.NoError(t, err)
	assert.Len(t, list, 3)

	list, err = s.ListSightings(ctx, repository.SightingFilter{})
	require.NoError(t, err)
	assert.Len(t, list, 3)
}

func TestMemoryStore_SetBanned(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	u := newUser("b@example.com")
	require.NoError(t, s.CreateUser(ctx, u))

	changed, err := s.SetBanned(ctx, u.ID, true)
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = s.SetBanned(ctx, u.ID, true)
	require.NoError(t, err)
	assert.False(t, changed, "повторный бан ничего не меняет")

	got, err := s.GetUser(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, got.Banned)

	ids, err := s.ListBannedUserIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{u.ID}, ids)

	changed, err = s.SetBanned(ctx, u.ID, false)
	require.NoError(t, err)
	assert.True(t, changed)

	_, err = s.SetBanned(ctx, uuid.New(), true)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestMemoryStore_CanceledContext(t *testing.T) {
	s := NewMemoryStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.GetReport(ctx, uuid.New())
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, s.Ping(ctx), context.Canceled)
}
