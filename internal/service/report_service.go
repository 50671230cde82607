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

// ReportService ведёт заявку от подачи до закрытия:
// pending -> active -> solved, либо pending -> удалена.
type ReportService struct {
	moderation
}

func NewReportService(store repository.Store, opts Options) *ReportService {
	return &ReportService{moderation: newModeration(store, opts, "report_service")}
}

// SubmitReport создаёт заявку в статусе pending.
func (s *ReportService) SubmitReport(ctx context.Context, caller Caller, draft entity.ReportDraft) (*entity.Report, error) {
	const op = "submit_report"
	defer s.metrics.ObserveOperation(op, time.Now())

	ctx, cancel := s.storeCtx(ctx)
	defer cancel()

	if _, err := s.requireActiveUser(ctx, caller); err != nil {
		return nil, s.fail(op, caller, err)
	}

	report, err := entity.NewReport(caller.UserID, draft, s.now())
	if err != nil {
		return nil, s.fail(op, caller, err)
	}

	if err := s.store.CreateReport(ctx, report); err != nil {
		return nil, s.fail(op, caller, storeError(err, apperror.ErrUserNotFound))
	}

	s.metrics.IncSubmission("report")
	s.log.WithFields(logrus.Fields{
		"report_id":   report.ID,
		"reported_by": report.ReportedBy,
	}).Info("заявка отправлена на модерацию")

	return report, nil
}

// ApproveReport публикует заявку: pending -> active.
func (s *ReportService) ApproveReport(ctx context.Context, caller Caller, id uuid.UUID) (*entity.Report, error) {
	const op = "approve_report"
	defer s.metrics.ObserveOperation(op, time.Now())

	ctx, cancel := s.storeCtx(ctx)
	defer cancel()

	if _, err := s.requireModerator(ctx, caller); err != nil {
		return nil, s.fail(op, caller, err)
	}

	now := s.now()
	report, err := s.store.UpdateReport(ctx, id, func(r *entity.Report) error {
		return r.Approve(now)
	})
	if err != nil {
		return nil, s.fail(op, caller, storeError(err, apperror.ErrReportNotFound))
	}

	s.decided(caller, report, "approved")
	s.notify(report.ReportedBy, EventReportApproved, report)
	return report, nil
}

// RejectReport удаляет заявку, которая ещё на модерации.
func (s *ReportService) RejectReport(ctx context.Context, caller Caller, id uuid.UUID) error {
	const op = "reject_report"
	defer s.metrics.ObserveOperation(op, time.Now())

	ctx, cancel := s.storeCtx(ctx)
	defer cancel()

	if _, err := s.requireModerator(ctx, caller); err != nil {
		return s.fail(op, caller, err)
	}

	report, err := s.store.DeleteReport(ctx, id, func(r *entity.Report) error {
		return r.EnsureRejectable()
	})
	if err != nil {
		return s.fail(op, caller, storeError(err, apperror.ErrReportNotFound))
	}

	s.decided(caller, report, "rejected")
	s.notify(report.ReportedBy, EventReportRejected, map[string]any{
		"report_id":  report.ID,
		"child_name": report.ChildName,
	})
	return nil
}

// MarkSolved закрывает активную заявку: active -> solved.
func (s *ReportService) MarkSolved(ctx context.Context, caller Caller, id uuid.UUID) (*entity.Report, error) {
	const op = "solve_report"
	defer s.metrics.ObserveOperation(op, time.Now())

	ctx, cancel := s.storeCtx(ctx)
	defer cancel()

	if _, err := s.requireModerator(ctx, caller); err != nil {
		return nil, s.fail(op, caller, err)
	}

	now := s.now()
	report, err := s.store.UpdateReport(ctx, id, func(r *entity.Report) error {
		return r.MarkSolved(now)
	})
	if err != nil {
		return nil, s.fail(op, caller, storeError(err, apperror.ErrReportNotFound))
	}

	s.decided(caller, report, "solved")
	s.notify(report.ReportedBy, EventReportSolved, report)
	return report, nil
}

// ListReports возвращает заявки в статусе status, новые первыми.
// Очередь модерации (pending) доступна только модератору.
func (s *ReportService) ListReports(ctx context.Context, caller Caller, status valueobject.ReportStatus) ([]*entity.Report, error) {
	const op = "list_reports"

	if !status.IsValid() {
		return nil, s.fail(op, caller, apperror.Validation("некорректный статус заявки"))
	}

	ctx, cancel := s.storeCtx(ctx)
	defer cancel()

	if status == valueobject.ReportStatusPending {
		if _, err := s.requireModerator(ctx, caller); err != nil {
			return nil, s.fail(op, caller, err)
		}
	}

	reports, err := s.store.ListReportsByStatus(ctx, status)
	if err != nil {
		return nil, s.fail(op, caller, storeError(err, apperror.ErrReportNotFound))
	}
	return reports, nil
}

// GetReport возвращает заявку по id. Заявку на модерации видят только автор и модератор,
// для остальных её не существует.
func (s *ReportService) GetReport(ctx context.Context, caller Caller, id uuid.UUID) (*entity.Report, error) {
	const op = "get_report"

	ctx, cancel := s.storeCtx(ctx)
	defer cancel()

	report, err := s.store.GetReport(ctx, id)
	if err != nil {
		return nil, s.fail(op, caller, storeError(err, apperror.ErrReportNotFound))
	}

	if report.Status == valueobject.ReportStatusPending &&
		!caller.Role.IsModerator() && !report.IsOwnedBy(caller.UserID) {
		return nil, s.fail(op, caller, apperror.ErrReportNotFound)
	}
	return report, nil
}

// ListMyReports возвращает все заявки вызывающего пользователя.
func (s *ReportService) ListMyReports(ctx context.Context, caller Caller) ([]*entity.Report, error) {
	const op = "list_my_reports"

	if !caller.Authenticated() {
		return nil, s.fail(op, caller, apperror.ErrNotAuthenticated)
	}

	ctx, cancel := s.storeCtx(ctx)
	defer cancel()

	reports, err := s.store.ListReportsByUser(ctx, caller.UserID)
	if err != nil {
		return nil, s.fail(op, caller, storeError(err, apperror.ErrUserNotFound))
	}
	return reports, nil
}

func (s *ReportService) decided(caller Caller, report *entity.Report, decision string) {
	s.metrics.IncDecision("report", decision)
	s.log.WithFields(logrus.Fields{
		"report_id":    report.ID,
		"moderator_id": caller.UserID,
		"decision":     decision,
	}).Info("решение по заявке")
}
