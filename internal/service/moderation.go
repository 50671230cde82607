package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/bharatalert-backend/internal/domain/entity"
	"github.com/ignatzorin/bharatalert-backend/internal/domain/repository"
	"github.com/ignatzorin/bharatalert-backend/internal/domain/valueobject"
	"github.com/ignatzorin/bharatalert-backend/internal/logger"
	"github.com/ignatzorin/bharatalert-backend/internal/metrics"
	"github.com/ignatzorin/bharatalert-backend/internal/pkg/apperror"
)

const (
	DefaultStoreTimeout  = 5 * time.Second
	DefaultSightingQuota = 2
)

// События, которые получает автор заявки или наблюдения.
const (
	EventReportApproved   = "report.approved"
	EventReportRejected   = "report.rejected"
	EventReportSolved     = "report.solved"
	EventSightingApproved = "sighting.approved"
	EventSightingRejected = "sighting.rejected"
)

// Caller - пользователь, от имени которого выполняется операция.
// Нулевой UserID означает анонимный запрос.
type Caller struct {
	UserID uuid.UUID
	Role   valueobject.Role
}

func (c Caller) Authenticated() bool {
	return c.UserID != uuid.Nil
}

// Notifier доставляет событие пользователю. Ошибки доставки не влияют на операцию.
type Notifier interface {
	Notify(userID uuid.UUID, event string, data any)
}

// Options - общие настройки сервисов модерации.
type Options struct {
	StoreTimeout  time.Duration
	SightingQuota int
	Notifier      Notifier
	Metrics       *metrics.Metrics
	Now           func() time.Time
}

// moderation содержит зависимости, общие для ReportService и SightingService.
type moderation struct {
	store    repository.Store
	timeout  time.Duration
	quota    int
	notifier Notifier
	metrics  *metrics.Metrics
	now      func() time.Time
	log      *logrus.Entry
}

func newModeration(store repository.Store, opts Options, component string) moderation {
	m := moderation{
		store:    store,
		timeout:  opts.StoreTimeout,
		quota:    opts.SightingQuota,
		notifier: opts.Notifier,
		metrics:  opts.Metrics,
		now:      opts.Now,
		log:      logger.Component(component),
	}
	if m.timeout <= 0 {
		m.timeout = DefaultStoreTimeout
	}
	if m.quota <= 0 {
		m.quota = DefaultSightingQuota
	}
	if m.now == nil {
		m.now = time.Now
	}
	return m
}

// storeCtx ограничивает обращение к хранилищу по времени.
func (m *moderation) storeCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, m.timeout)
}

// requireActiveUser возвращает запись вызывающего, если он авторизован и не заблокирован.
func (m *moderation) requireActiveUser(ctx context.Context, caller Caller) (*entity.User, error) {
	if !caller.Authenticated() {
		return nil, apperror.ErrNotAuthenticated
	}
	user, err := m.store.GetUser(ctx, caller.UserID)
	if err != nil {
		return nil, storeError(err, apperror.ErrNotAuthenticated)
	}
	if user.Banned {
		return nil, apperror.ErrUserBanned
	}
	return user, nil
}

// requireModerator проверяет роль по токену и по актуальной записи пользователя.
func (m *moderation) requireModerator(ctx context.Context, caller Caller) (*entity.User, error) {
	if !caller.Authenticated() {
		return nil, apperror.ErrNotAuthenticated
	}
	if !caller.Role.IsModerator() {
		return nil, apperror.ErrForbidden
	}
	user, err := m.store.GetUser(ctx, caller.UserID)
	if err != nil {
		return nil, storeError(err, apperror.ErrForbidden)
	}
	if !user.IsModerator() || user.Banned {
		return nil, apperror.ErrForbidden
	}
	return user, nil
}

func (m *moderation) notify(userID uuid.UUID, event string, data any) {
	if m.notifier == nil || userID == uuid.Nil {
		return
	}
	m.notifier.Notify(userID, event, data)
}

// fail учитывает ошибку в метриках и логах и возвращает её без изменений.
func (m *moderation) fail(op string, caller Caller, err error) error {
	code := apperror.CodeOf(err)
	m.metrics.IncFailure(op, string(code))

	entry := m.log.WithFields(logrus.Fields{
		"operation": op,
		"caller_id": caller.UserID,
		"code":      code,
	})
	switch code {
	case apperror.ErrCodeTransientStore, apperror.ErrCodeInternal:
		entry.WithError(err).Error("операция не выполнена")
	case apperror.ErrCodeQuotaExceeded:
		m.metrics.IncQuotaRejected()
		entry.Info("лимит наблюдений исчерпан")
	default:
		entry.WithError(err).Debug("операция отклонена")
	}
	return err
}

// storeError переводит ошибку хранилища в apperror.
// notFound используется, когда запись отсутствует.
func storeError(err error, notFound *apperror.AppError) error {
	if err == nil {
		return nil
	}

	var appErr *apperror.AppError
	switch {
	case errors.As(err, &appErr):
		return appErr
	case errors.Is(err, repository.ErrNotFound):
		return notFound
	case errors.Is(err, repository.ErrAlreadyExists):
		return apperror.Wrap(err, apperror.ErrCodeConflict, "запись с таким идентификатором уже существует")
	case errors.Is(err, repository.ErrUnavailable),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled):
		return apperror.Wrap(err, apperror.ErrCodeTransientStore, apperror.ErrStoreUnavailable.Message)
	default:
		return apperror.Wrap(err, apperror.ErrCodeInternal, "внутренняя ошибка хранилища")
	}
}
