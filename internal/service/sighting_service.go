package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/bharatalert-backend/internal/domain/entity"
	"github.com/ignatzorin/bharatalert-backend/internal/domain/repository"
	"github.com/ignatzorin/bharatalert-backend/internal/domain/valueobject"
	"github.com/ignatzorin/bharatalert-backend/internal/pkg/apperror"
)

// SightingService принимает наблюдения по активным заявкам и ведёт
// счётчик подтверждённых наблюдений каждого пользователя.
type SightingService struct {
	moderation
}

func NewSightingService(store repository.Store, opts Options) *SightingService {
	return &SightingService{moderation: newModeration(store, opts, "sighting_service")}
}

// Quota возвращает лимит подтверждённых наблюдений на пользователя.
func (s *SightingService) Quota() int {
	return s.quota
}

// CanSubmitSighting сообщает, может ли пользователь отправить ещё одно наблюдение.
// Для неизвестного пользователя ответ false без ошибки.
func (s *SightingService) CanSubmitSighting(ctx context.Context, userID uuid.UUID) (bool, error) {
	ctx, cancel := s.storeCtx(ctx)
	defer cancel()

	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		translated := storeError(err, apperror.ErrUserNotFound)
		if apperror.IsNotFound(translated) {
			return false, nil
		}
		return false, s.fail("can_submit_sighting", Caller{UserID: userID}, translated)
	}
	return user.CanSubmitSighting(s.quota), nil
}

// SubmitSighting создаёт наблюдение в статусе pending по активной заявке.
func (s *SightingService) SubmitSighting(ctx context.Context, caller Caller, reportID uuid.UUID, draft entity.SightingDraft) (*entity.Sighting, error) {
	const op = "submit_sighting"
	defer s.metrics.ObserveOperation(op, time.Now())

	ctx, cancel := s.storeCtx(ctx)
	defer cancel()

	user, err := s.requireActiveUser(ctx, caller)
	if err != nil {
		return nil, s.fail(op, caller, err)
	}
	if !user.CanSubmitSighting(s.quota) {
		return nil, s.fail(op, caller, apperror.ErrQuotaExceeded)
	}

	report, err := s.store.GetReport(ctx, reportID)
	if err != nil {
		return nil, s.fail(op, caller, storeError(err, apperror.ErrReportNotFound))
	}
	if !report.IsActive() {
		return nil, s.fail(op, caller, apperror.New(apperror.ErrCodeInvalidTransition, "наблюдения принимаются только по активным заявкам"))
	}

	sighting, err := entity.NewSighting(report.ID, caller.UserID, draft, s.now())
	if err != nil {
		return nil, s.fail(op, caller, err)
	}

	if err := s.store.CreateSighting(ctx, sighting); err != nil {
		return nil, s.fail(op, caller, storeError(err, apperror.ErrReportNotFound))
	}

	s.metrics.IncSubmission("sighting")
	s.log.WithFields(logrus.Fields{
		"sighting_id": sighting.ID,
		"report_id":   sighting.ReportID,
		"reported_by": sighting.ReportedBy,
	}).Info("наблюдение отправлено на модерацию")

	return sighting, nil
}

// ApproveSighting подтверждает наблюдение и увеличивает счётчик автора.
// Статус и счётчик сохраняются одной операцией хранилища.
func (s *SightingService) ApproveSighting(ctx context.Context, caller Caller, id uuid.UUID) (*entity.Sighting, error) {
	const op = "approve_sighting"
	defer s.metrics.ObserveOperation(op, time.Now())

	ctx, cancel := s.storeCtx(ctx)
	defer cancel()

	if _, err := s.requireModerator(ctx, caller); err != nil {
		return nil, s.fail(op, caller, err)
	}

	sighting, reporter, err := s.store.UpdateSighting(ctx, id, func(sg *entity.Sighting, reporter *entity.User) error {
		if err := sg.Approve(); err != nil {
			return err
		}
		return reporter.RecordApprovedSighting(s.quota)
	})
	if err != nil {
		return nil, s.fail(op, caller, storeError(err, apperror.ErrSightingNotFound))
	}

	s.decided(caller, sighting, "approved")
	s.log.WithFields(logrus.Fields{
		"user_id":         reporter.ID,
		"sightings_count": reporter.SightingsCount,
	}).Debug("счётчик наблюдений обновлён")
	s.notify(sighting.ReportedBy, EventSightingApproved, sighting)
	return sighting, nil
}

// RejectSighting удаляет наблюдение на модерации. Счётчик автора не меняется.
func (s *SightingService) RejectSighting(ctx context.Context, caller Caller, id uuid.UUID) error {
	const op = "reject_sighting"
	defer s.metrics.ObserveOperation(op, time.Now())

	ctx, cancel := s.storeCtx(ctx)
	defer cancel()

	if _, err := s.requireModerator(ctx, caller); err != nil {
		return s.fail(op, caller, err)
	}

	sighting, err := s.store.DeleteSighting(ctx, id, func(sg *entity.Sighting, _ *entity.User) error {
		return sg.EnsureRejectable()
	})
	if err != nil {
		return s.fail(op, caller, storeError(err, apperror.ErrSightingNotFound))
	}

	s.decided(caller, sighting, "rejected")
	s.notify(sighting.ReportedBy, EventSightingRejected, map[string]any{
		"sighting_id": sighting.ID,
		"report_id":   sighting.ReportID,
	})
	return nil
}

// ListSightings возвращает наблюдения по фильтру. Только для модератора.
func (s *SightingService) ListSightings(ctx context.Context, caller Caller, filter repository.SightingFilter) ([]*entity.Sighting, error) {
	const op = "list_sightings"

	if filter.Status != nil && !filter.Status.IsValid() {
		return nil, s.fail(op, caller, apperror.Validation("некорректный статус наблюдения"))
	}

	ctx, cancel := s.storeCtx(ctx)
	defer cancel()

	if _, err := s.requireModerator(ctx, caller); err != nil {
		return nil, s.fail(op, caller, err)
	}

	sightings, err := s.store.ListSightings(ctx, filter)
	if err != nil {
		return nil, s.fail(op, caller, storeError(err, apperror.ErrSightingNotFound))
	}
	return sightings, nil
}

// ListApprovedByReport возвращает подтверждённые наблюдения заявки для публичного показа.
// Заявку на модерации видят только автор и модератор, как и в ReportService.GetReport.
func (s *SightingService) ListApprovedByReport(ctx context.Context, caller Caller, reportID uuid.UUID) ([]*entity.Sighting, error) {
	const op = "list_report_sightings"

	ctx, cancel := s.storeCtx(ctx)
	defer cancel()

	report, err := s.store.GetReport(ctx, reportID)
	if err != nil {
		return nil, s.fail(op, caller, storeError(err, apperror.ErrReportNotFound))
	}
	if report.Status == valueobject.ReportStatusPending &&
		!caller.Role.IsModerator() && !report.IsOwnedBy(caller.UserID) {
		return nil, s.fail(op, caller, apperror.ErrReportNotFound)
	}

	approved := valueobject.SightingStatusApproved
	sightings, err := s.store.ListSightings(ctx, repository.SightingFilter{
		ReportID: &reportID,
		Status:   &approved,
	})
	if err != nil {
		return nil, s.fail(op, caller, storeError(err, apperror.ErrSightingNotFound))
	}
	return sightings, nil
}

// ListMySightings возвращает наблюдения вызывающего пользователя в любом статусе.
func (s *SightingService) ListMySightings(ctx context.Context, caller Caller) ([]*entity.Sighting, error) {
	const op = "list_my_sightings"

	if !caller.Authenticated() {
		return nil, s.fail(op, caller, apperror.ErrNotAuthenticated)
	}

	ctx, cancel := s.storeCtx(ctx)
	defer cancel()

	sightings, err := s.store.ListSightings(ctx, repository.SightingFilter{UserID: &caller.UserID})
	if err != nil {
		return nil, s.fail(op, caller, storeError(err, apperror.ErrSightingNotFound))
	}
	return sightings, nil
}

// GetSighting возвращает наблюдение. Неподтверждённое видят только автор и модератор.
func (s *SightingService) GetSighting(ctx context.Context, caller Caller, id uuid.UUID) (*entity.Sighting, error) {
	const op = "get_sighting"

	ctx, cancel := s.storeCtx(ctx)
	defer cancel()

	sighting, err := s.store.GetSighting(ctx, id)
	if err != nil {
		return nil, s.fail(op, caller, storeError(err, apperror.ErrSightingNotFound))
	}
	if sighting.IsPending() && !caller.Role.IsModerator() && sighting.ReportedBy != caller.UserID {
		return nil, s.fail(op, caller, apperror.ErrSightingNotFound)
	}
	return sighting, nil
}

func (s *SightingService) decided(caller Caller, sighting *entity.Sighting, decision string) {
	s.metrics.IncDecision("sighting", decision)
	s.log.WithFields(logrus.Fields{
		"sighting_id":  sighting.ID,
		"report_id":    sighting.ReportID,
		"moderator_id": caller.UserID,
		"decision":     decision,
	}).Info("решение по наблюдению")
}
