package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/bharatalert-backend/internal/domain/entity"
	"github.com/ignatzorin/bharatalert-backend/internal/domain/valueobject"
	"github.com/ignatzorin/bharatalert-backend/internal/infrastructure/persistence"
)

type notification struct {
	userID uuid.UUID
	event  string
}

// recordingNotifier запоминает события вместо отправки в вебсокет.
type recordingNotifier struct {
	mu     sync.Mutex
	events []notification
}

func (n *recordingNotifier) Notify(userID uuid.UUID, event string, _ any) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, notification{userID: userID, event: event})
}

func (n *recordingNotifier) has(userID uuid.UUID, event string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, e := range n.events {
		if e.userID == userID && e.event == event {
			return true
		}
	}
	return false
}

type fixture struct {
	store     *persistence.MemoryStore
	notifier  *recordingNotifier
	reports   *ReportService
	sightings *SightingService
	users     *UserService
	admin     Caller
	user      Caller
	other     Caller
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := persistence.NewMemoryStore()
	notifier := &recordingNotifier{}
	opts := Options{SightingQuota: 2, Notifier: notifier}

	f := &fixture{
		store:     store,
		notifier:  notifier,
		reports:   NewReportService(store, opts),
		sightings: NewSightingService(store, opts),
		users:     NewUserService(store, opts),
	}
	f.admin = f.addUser(t, "admin@example.com", valueobject.RoleAdmin)
	f.user = f.addUser(t, "rajesh@example.com", valueobject.RoleUser)
	f.other = f.addUser(t, "priya@example.com", valueobject.RoleUser)
	return f
}

func (f *fixture) addUser(t *testing.T, email string, role valueobject.Role) Caller {
	t.Helper()
	u := &entity.User{
		ID:        uuid.New(),
		Name:      "User " + email,
		Email:     email,
		Role:      role,
		CreatedAt: time.Now(),
	}
	require.NoError(t, f.store.CreateUser(context.Background(), u))
	return Caller{UserID: u.ID, Role: role}
}

func floatPtr(v float64) *float64 { return &v }

func reportDraft(name string) entity.ReportDraft {
	return entity.ReportDraft{
		ChildName:   name,
		Age:         8,
		Description: "Синяя футболка, чёрные шорты",
		ContactInfo: "+91-9876543210",
		Lat:         floatPtr(28.6139),
		Lng:         floatPtr(77.2090),
		Address:     "Connaught Place, New Delhi",
		LastSeenAt:  time.Now().Add(-2 * time.Hour),
	}
}

func sightingDraft() entity.SightingDraft {
	return entity.SightingDraft{
		Lat:         floatPtr(28.6328),
		Lng:         floatPtr(77.2197),
		Address:     "Karol Bagh Market",
		Description: "Видели у продуктового магазина",
		ObservedAt:  time.Now().Add(-time.Hour),
	}
}

// activeReport подаёт заявку от имени user и сразу её одобряет.
func (f *fixture) activeReport(t *testing.T, name string) *entity.Report {
	t.Helper()
	ctx := context.Background()
	r, err := f.reports.SubmitReport(ctx, f.user, reportDraft(name))
	require.NoError(t, err)
	r, err = f.reports.ApproveReport(ctx, f.admin, r.ID)
	require.NoError(t, err)
	return r
}

func (f *fixture) sightingsCount(t *testing.T, userID uuid.UUID) int {
	t.Helper()
	u, err := f.store.GetUser(context.Background(), userID)
	require.NoError(t, err)
	return u.SightingsCount
}
