package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/ignatzorin/bharatalert-backend/internal/domain/entity"
	"github.com/ignatzorin/bharatalert-backend/internal/domain/valueobject"
)

// Ошибки хранилища. Реализации возвращают их (возможно, обёрнутыми),
// а сервисы переводят в apperror.
var (
	ErrNotFound      = errors.New("entity not found")
	ErrAlreadyExists = errors.New("entity already exists")
	ErrUnavailable   = errors.New("store unavailable")
)

// ReportMutation применяет переход к заблокированной копии заявки.
// Ошибка отменяет изменение целиком.
type ReportMutation func(r *entity.Report) error

// SightingMutation получает наблюдение и его автора под одной блокировкой.
// Изменённые статус наблюдения и счётчик автора сохраняются вместе или не сохраняются вовсе.
type SightingMutation func(s *entity.Sighting, reporter *entity.User) error

// SightingFilter ограничивает выборку наблюдений; nil-поля не фильтруют.
type SightingFilter struct {
	ReportID *uuid.UUID
	UserID   *uuid.UUID
	Status   *valueobject.SightingStatus
}

type ReportStore interface {
	CreateReport(ctx context.Context, report *entity.Report) error
	GetReport(ctx context.Context, id uuid.UUID) (*entity.Report, error)
	ListReportsByStatus(ctx context.Context, status valueobject.ReportStatus) ([]*entity.Report, error)
	ListReportsByUser(ctx context.Context, userID uuid.UUID) ([]*entity.Report, error)
	// UpdateReport сохраняет статус и отметки времени после успешного fn.
	UpdateReport(ctx context.Context, id uuid.UUID, fn ReportMutation) (*entity.Report, error)
	// DeleteReport удаляет заявку, если check не вернул ошибку.
	DeleteReport(ctx context.Context, id uuid.UUID, check ReportMutation) (*entity.Report, error)
}

type SightingStore interface {
	CreateSighting(ctx context.Context, sighting *entity.Sighting) error
	GetSighting(ctx context.Context, id uuid.UUID) (*entity.Sighting, error)
	ListSightings(ctx context.Context, filter SightingFilter) ([]*entity.Sighting, error)
	// UpdateSighting сохраняет статус наблюдения и счётчик автора одной операцией.
	UpdateSighting(ctx context.Context, id uuid.UUID, fn SightingMutation) (*entity.Sighting, *entity.User, error)
	DeleteSighting(ctx context.Context, id uuid.UUID, check SightingMutation) (*entity.Sighting, error)
}

type UserStore interface {
	CreateUser(ctx context.Context, user *entity.User) error
	GetUser(ctx context.Context, id uuid.UUID) (*entity.User, error)
	GetUserByEmail(ctx context.Context, email string) (*entity.User, error)
	ListUsers(ctx context.Context) ([]*entity.User, error)
	// SetBanned возвращает false, если флаг уже имел нужное значение.
	SetBanned(ctx context.Context, id uuid.UUID, banned bool) (bool, error)
	ListBannedUserIDs(ctx context.Context) ([]uuid.UUID, error)
}

// Store - общее хранилище пользователей, заявок и наблюдений.
type Store interface {
	ReportStore
	SightingStore
	UserStore
	Ping(ctx context.Context) error
}
