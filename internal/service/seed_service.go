package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/ignatzorin/bharatalert-backend/internal/domain/entity"
	"github.com/ignatzorin/bharatalert-backend/internal/domain/repository"
	"github.com/ignatzorin/bharatalert-backend/internal/domain/valueobject"
	"github.com/ignatzorin/bharatalert-backend/internal/logger"
	"github.com/ignatzorin/bharatalert-backend/internal/pkg/apperror"
)

// Демо-учётные записи. Пароли известны, поэтому seed доступен только в development.
const (
	SeedAdminEmail    = "admin@bharatalert.gov.in"
	SeedAdminPassword = "Admin12345"
	SeedUserEmail     = "rajesh@email.com"
	SeedUserPassword  = "User12345"
)

// SeedService загружает демонстрационный набор данных.
type SeedService struct {
	store repository.Store
	now   func() time.Time
	log   *logrus.Entry
}

// SeedResult - сколько записей было создано за вызов.
type SeedResult struct {
	Users     int `json:"users"`
	Reports   int `json:"reports"`
	Sightings int `json:"sightings"`
}

// NewSeedService создаёт новый сервис для генерации данных.
func NewSeedService(store repository.Store) *SeedService {
	return &SeedService{
		store: store,
		now:   time.Now,
		log:   logger.Component("seed_service"),
	}
}

// seedID выдаёт стабильный идентификатор, чтобы повторный seed не плодил дубликаты.
func seedID(name string) uuid.UUID {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("bharatalert:seed:"+name))
}

// SeedData создаёт администратора, пользователя со счётчиком 1, одну заявку на модерации,
// две активные заявки и одно подтверждённое наблюдение. Повторный вызов ничего не меняет.
func (s *SeedService) SeedData(ctx context.Context) (*SeedResult, error) {
	now := s.now().UTC()
	result := &SeedResult{}

	admin, created, err := s.ensureUser(ctx, &entity.User{
		ID:        seedID("admin-1"),
		Name:      "Admin User",
		Email:     SeedAdminEmail,
		Phone:     "+91-9999999999",
		Role:      valueobject.RoleAdmin,
		CreatedAt: now,
	}, SeedAdminPassword)
	if err != nil {
		return nil, err
	}
	if created {
		result.Users++
	}

	user, created, err := s.ensureUser(ctx, &entity.User{
		ID:    seedID("user-1"),
		Name:  "Rajesh Kumar",
		Email: SeedUserEmail,
		Phone: "+91-9876543210",
		Location: &valueobject.Location{
			Lat:     28.6139,
			Lng:     77.2090,
			Address: "New Delhi, India",
		},
		Role:      valueobject.RoleUser,
		CreatedAt: now,
	}, SeedUserPassword)
	if err != nil {
		return nil, err
	}
	if created {
		result.Users++
	}

	approvedAt := now
	reports := []*entity.Report{
		{
			ID:          seedID("pending-1"),
			ChildName:   "Priya Sharma",
			Age:         8,
			Description: "Last seen wearing blue school uniform, carries a red backpack",
			ContactInfo: "+91-9876543211",
			LastSeenLocation: valueobject.Location{
				Lat: 19.0760, Lng: 72.8777, Address: "Andheri, Mumbai, Maharashtra",
			},
			LastSeenAt: time.Date(2024, 6, 3, 14, 30, 0, 0, time.UTC),
			Photos:     []string{},
			ReportedBy: user.ID,
			Status:     valueobject.ReportStatusPending,
			CreatedAt:  now,
		},
		{
			ID:          seedID("active-1"),
			ChildName:   "Arjun Patel",
			Age:         12,
			Description: "Wearing white t-shirt and blue jeans, has a distinctive scar on left hand",
			ContactInfo: "+91-9876543212",
			LastSeenLocation: valueobject.Location{
				Lat: 22.5726, Lng: 88.3639, Address: "Park Street, Kolkata, West Bengal",
			},
			LastSeenAt: time.Date(2024, 6, 4, 9, 15, 0, 0, time.UTC),
			Photos:     []string{},
			ReportedBy: user.ID,
			Status:     valueobject.ReportStatusActive,
			CreatedAt:  now.Add(-24 * time.Hour),
			ApprovedAt: &approvedAt,
		},
		{
			ID:          seedID("active-2"),
			ChildName:   "Kavya Singh",
			Age:         6,
			Description: "Small girl with braided hair, wearing pink dress with flower patterns",
			ContactInfo: "+91-9876543213",
			LastSeenLocation: valueobject.Location{
				Lat: 26.9124, Lng: 75.7873, Address: "Jaipur, Rajasthan",
			},
			LastSeenAt: time.Date(2024, 6, 4, 16, 45, 0, 0, time.UTC),
			Photos:     []string{},
			ReportedBy: user.ID,
			Status:     valueobject.ReportStatusActive,
			CreatedAt:  now.Add(-12 * time.Hour),
			ApprovedAt: &approvedAt,
		},
	}
	for _, r := range reports {
		created, err := s.ensureReport(ctx, r)
		if err != nil {
			return nil, err
		}
		if created {
			result.Reports++
		}
	}

	sightingCreated, err := s.ensureApprovedSighting(ctx, &entity.Sighting{
		ID:         seedID("sighting-1"),
		ReportID:   seedID("active-1"),
		ReportedBy: user.ID,
		Location: valueobject.Location{
			Lat: 22.5726, Lng: 88.3639, Address: "Near Park Street Metro, Kolkata",
		},
		Description: "Saw a boy matching the description near the metro station",
		ObservedAt:  time.Date(2024, 6, 4, 10, 30, 0, 0, time.UTC),
		Status:      valueobject.SightingStatusPending,
		CreatedAt:   now,
	})
	if err != nil {
		return nil, err
	}
	if sightingCreated {
		result.Sightings++
	}

	s.log.WithFields(logrus.Fields{
		"admin_id":  admin.ID,
		"users":     result.Users,
		"reports":   result.Reports,
		"sightings": result.Sightings,
	}).Info("демо-данные загружены")

	return result, nil
}

func (s *SeedService) ensureUser(ctx context.Context, u *entity.User, password string) (*entity.User, bool, error) {
	existing, err := s.store.GetUserByEmail(ctx, u.Email)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, false, fmt.Errorf("seed service: не удалось проверить пользователя %s: %w", u.Email, err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, false, fmt.Errorf("seed service: не удалось захешировать пароль: %w", err)
	}
	u.PasswordHash = string(hash)

	if err := s.store.CreateUser(ctx, u); err != nil {
		return nil, false, fmt.Errorf("seed service: не удалось создать пользователя %s: %w", u.Email, err)
	}
	return u, true, nil
}

func (s *SeedService) ensureReport(ctx context.Context, r *entity.Report) (bool, error) {
	_, err := s.store.GetReport(ctx, r.ID)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return false, fmt.Errorf("seed service: не удалось проверить заявку %s: %w", r.ChildName, err)
	}
	if err := s.store.CreateReport(ctx, r); err != nil {
		return false, fmt.Errorf("seed service: не удалось создать заявку %s: %w", r.ChildName, err)
	}
	return true, nil
}

// ensureApprovedSighting создаёт наблюдение в статусе pending и подтверждает его через
// UpdateSighting, чтобы счётчик автора менялся вместе со статусом.
// Если лимит автора уже исчерпан, наблюдение остаётся на модерации.
func (s *SeedService) ensureApprovedSighting(ctx context.Context, sg *entity.Sighting) (bool, error) {
	created := false
	existing, err := s.store.GetSighting(ctx, sg.ID)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		if err := s.store.CreateSighting(ctx, sg); err != nil {
			return false, fmt.Errorf("seed service: не удалось создать наблюдение: %w", err)
		}
		created = true
	case err != nil:
		return false, fmt.Errorf("seed service: не удалось проверить наблюдение: %w", err)
	case !existing.IsPending():
		return false, nil
	}

	_, reporter, err := s.store.UpdateSighting(ctx, sg.ID, func(cur *entity.Sighting, reporter *entity.User) error {
		if err := cur.Approve(); err != nil {
			return err
		}
		return reporter.RecordApprovedSighting(DefaultSightingQuota)
	})
	if err != nil {
		if apperror.IsQuotaExceeded(err) || apperror.IsInvalidTransition(err) {
			s.log.WithError(err).WithField("sighting_id", sg.ID).Warn("демо-наблюдение оставлено на модерации")
			return created, nil
		}
		return false, fmt.Errorf("seed service: не удалось подтвердить наблюдение: %w", err)
	}

	s.log.WithFields(logrus.Fields{
		"user_id":         reporter.ID,
		"sightings_count": reporter.SightingsCount,
	}).Debug("демо-наблюдение подтверждено")
	return created, nil
}
