package persistence

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/ignatzorin/bharatalert-backend/internal/domain/entity"
	"github.com/ignatzorin/bharatalert-backend/internal/domain/repository"
	"github.com/ignatzorin/bharatalert-backend/internal/domain/valueobject"
)

// MemoryStore хранит все сущности в памяти процесса.
// Все изменения выполняются под одной блокировкой, чтение идёт параллельно.
type MemoryStore struct {
	mu        sync.RWMutex
	users     map[uuid.UUID]*entity.User
	reports   map[uuid.UUID]*entity.Report
	sightings map[uuid.UUID]*entity.Sighting
	banned    map[uuid.UUID]struct{}
}

var _ repository.Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:     make(map[uuid.UUID]*entity.User),
		reports:   make(map[uuid.UUID]*entity.Report),
		sightings: make(map[uuid.UUID]*entity.Sighting),
		banned:    make(map[uuid.UUID]struct{}),
	}
}

func (s *MemoryStore) Ping(ctx context.Context) error {
	return ctx.Err()
}

// --- Заявки ---

func (s *MemoryStore) CreateReport(ctx context.Context, report *entity.Report) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.reports[report.ID]; exists {
		return repository.ErrAlreadyExists
	}
	s.reports[report.ID] = cloneReport(report)
	return nil
}

func (s *MemoryStore) GetReport(ctx context.Context, id uuid.UUID) (*entity.Report, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	report, ok := s.reports[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneReport(report), nil
}

func (s *MemoryStore) ListReportsByStatus(ctx context.Context, status valueobject.ReportStatus) ([]*entity.Report, error) {
	return s.listReports(ctx, func(r *entity.Report) bool { return r.Status == status })
}

func (s *MemoryStore) ListReportsByUser(ctx context.Context, userID uuid.UUID) ([]*entity.Report, error) {
	return s.listReports(ctx, func(r *entity.Report) bool { return r.ReportedBy == userID })
}

func (s *MemoryStore) listReports(ctx context.Context, match func(*entity.Report) bool) ([]*entity.Report, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*entity.Report, 0)
	for _, r := range s.reports {
		if match(r) {
			result = append(result, cloneReport(r))
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

func (s *MemoryStore) UpdateReport(ctx context.Context, id uuid.UUID, fn repository.ReportMutation) (*entity.Report, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.reports[id]
	if !ok {
		return nil, repository.ErrNotFound
	}

	working := cloneReport(current)
	if err := fn(working); err != nil {
		return nil, err
	}
	s.reports[id] = working
	return cloneReport(working), nil
}

func (s *MemoryStore) DeleteReport(ctx context.Context, id uuid.UUID, check repository.ReportMutation) (*entity.Report, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.reports[id]
	if !ok {
		return nil, repository.ErrNotFound
	}

	removed := cloneReport(current)
	if err := check(removed); err != nil {
		return nil, err
	}
	delete(s.reports, id)
	return removed, nil
}

// --- Наблюдения ---

func (s *MemoryStore) CreateSighting(ctx context.Context, sighting *entity.Sighting) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.sightings[sighting.ID]; exists {
		return repository.ErrAlreadyExists
	}
	if _, ok := s.reports[sighting.ReportID]; !ok {
		return repository.ErrNotFound
	}
	cp := *sighting
	s.sightings[sighting.ID] = &cp
	return nil
}

func (s *MemoryStore) GetSighting(ctx context.Context, id uuid.UUID) (*entity.Sighting, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	sighting, ok := s.sightings[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *sighting
	return &cp, nil
}

func (s *MemoryStore) ListSightings(ctx context.Context, filter repository.SightingFilter) ([]*entity.Sighting, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*entity.Sighting, 0)
	for _, sg := range s.sightings {
		if filter.ReportID != nil && sg.ReportID != *filter.ReportID {
			continue
		}
		if filter.UserID != nil && sg.ReportedBy != *filter.UserID {
			continue
		}
		if filter.Status != nil && sg.Status != *filter.Status {
			continue
		}
		cp := *sg
		result = append(result, &cp)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

func (s *MemoryStore) UpdateSighting(ctx context.Context, id uuid.UUID, fn repository.SightingMutation) (*entity.Sighting, *entity.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.sightings[id]
	if !ok {
		return nil, nil, repository.ErrNotFound
	}
	owner, ok := s.users[current.ReportedBy]
	if !ok {
		return nil, nil, repository.ErrNotFound
	}

	sighting := *current
	reporter := s.withBan(owner)
	if err := fn(&sighting, reporter); err != nil {
		return nil, nil, err
	}

	// Обе копии подменяются только после успешного fn.
	s.sightings[id] = &sighting
	stored := *reporter
	stored.Banned = false
	s.users[reporter.ID] = &stored

	sightingOut := sighting
	return &sightingOut, s.withBan(&stored), nil
}

func (s *MemoryStore) DeleteSighting(ctx context.Context, id uuid.UUID, check repository.SightingMutation) (*entity.Sighting, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.sightings[id]
	if !ok {
		return nil, repository.ErrNotFound
	}

	removed := *current
	var reporter *entity.User
	if owner, ok := s.users[current.ReportedBy]; ok {
		reporter = s.withBan(owner)
	}
	if err := check(&removed, reporter); err != nil {
		return nil, err
	}
	delete(s.sightings, id)
	return &removed, nil
}

// --- Пользователи ---

func (s *MemoryStore) CreateUser(ctx context.Context, user *entity.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.users[user.ID]; exists {
		return repository.ErrAlreadyExists
	}
	email := strings.ToLower(user.Email)
	for _, u := range s.users {
		if strings.ToLower(u.Email) == email {
			return repository.ErrAlreadyExists
		}
	}

	cp := *user
	cp.Banned = false
	if user.Location != nil {
		loc := *user.Location
		cp.Location = &loc
	}
	s.users[user.ID] = &cp
	if user.Banned {
		s.banned[user.ID] = struct{}{}
	}
	return nil
}

func (s *MemoryStore) GetUser(ctx context.Context, id uuid.UUID) (*entity.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return s.withBan(user), nil
}

func (s *MemoryStore) GetUserByEmail(ctx context.Context, email string) (*entity.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	email = strings.ToLower(email)
	for _, u := range s.users {
		if strings.ToLower(u.Email) == email {
			return s.withBan(u), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *MemoryStore) ListUsers(ctx context.Context) ([]*entity.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*entity.User, 0, len(s.users))
	for _, u := range s.users {
		result = append(result, s.withBan(u))
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

func (s *MemoryStore) SetBanned(ctx context.Context, id uuid.UUID, banned bool) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[id]; !ok {
		return false, repository.ErrNotFound
	}
	_, already := s.banned[id]
	if already == banned {
		return false, nil
	}
	if banned {
		s.banned[id] = struct{}{}
	} else {
		delete(s.banned, id)
	}
	return true, nil
}

func (s *MemoryStore) ListBannedUserIDs(ctx context.Context) ([]uuid.UUID, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]uuid.UUID, 0, len(s.banned))
	for id := range s.banned {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	return ids, nil
}

// withBan возвращает копию пользователя с флагом бана из отдельного индекса.
// Вызывается под блокировкой.
func (s *MemoryStore) withBan(u *entity.User) *entity.User {
	cp := *u
	if u.Location != nil {
		loc := *u.Location
		cp.Location = &loc
	}
	_, cp.Banned = s.banned[u.ID]
	return &cp
}

func cloneReport(r *entity.Report) *entity.Report {
	cp := *r
	cp.Photos = make([]string, len(r.Photos))
	copy(cp.Photos, r.Photos)
	if r.ApprovedAt != nil {
		t := *r.ApprovedAt
		cp.ApprovedAt = &t
	}
	if r.SolvedAt != nil {
		t := *r.SolvedAt
		cp.SolvedAt = &t
	}
	return &cp
}
