package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/bharatalert-backend/internal/domain/entity"
	"github.com/ignatzorin/bharatalert-backend/internal/domain/valueobject"
	"github.com/ignatzorin/bharatalert-backend/internal/dto"
	"github.com/ignatzorin/bharatalert-backend/internal/http/handlers/common"
	"github.com/ignatzorin/bharatalert-backend/internal/pkg/apperror"
	"github.com/ignatzorin/bharatalert-backend/internal/service"
	"github.com/ignatzorin/bharatalert-backend/internal/validation"
)

// PhotoChecker проверяет, что загруженная фотография существует.
type PhotoChecker interface {
	Exists(relativePath string) bool
}

// ReportHandler - HTTP слой заявок о пропавших детях.
type ReportHandler struct {
	reports   *service.ReportService
	sightings *service.SightingService
	photos    PhotoChecker
}

// NewReportHandler создаёт хэндлер. photos может быть nil: тогда наличие файлов не проверяется.
func NewReportHandler(reports *service.ReportService, sightings *service.SightingService, photos PhotoChecker) *ReportHandler {
	return &ReportHandler{reports: reports, sightings: sightings, photos: photos}
}

// Submit обрабатывает POST /api/reports.
func (h *ReportHandler) Submit(c *gin.Context) {
	caller := common.CurrentCaller(c)

	var req dto.SubmitReportRequest
	if err := common.BindJSON(c, &req); err != nil {
		common.RespondAppError(c, err)
		return
	}

	if err := h.validateReport(caller, &req); err != nil {
		common.RespondAppError(c, err)
		return
	}

	report, err := h.reports.SubmitReport(c.Request.Context(), caller, entity.ReportDraft{
		ChildName:   req.ChildName,
		Age:         *req.Age,
		Description: req.Description,
		ContactInfo: req.ContactInfo,
		Lat:         req.LastSeenLocation.Lat,
		Lng:         req.LastSeenLocation.Lng,
		Address:     req.LastSeenLocation.Address,
		LastSeenAt:  req.LastSeenAt,
		Photos:      req.Photos,
	})
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusCreated, report)
}

// validateReport проверяет длины полей и принадлежность фотографий автору.
func (h *ReportHandler) validateReport(caller service.Caller, req *dto.SubmitReportRequest) error {
	checks := []error{
		validation.ValidateLength("имя ребёнка", strings.TrimSpace(req.ChildName), 0, validation.MaxNameLength),
		validation.ValidateLength("описание", strings.TrimSpace(req.Description), 0, validation.MaxDescriptionLength),
		validation.ValidateLength("контактные данные", strings.TrimSpace(req.ContactInfo), 0, validation.MaxContactLength),
		validation.ValidateLength("адрес", strings.TrimSpace(req.LastSeenLocation.Address), 0, validation.MaxAddressLength),
	}
	for _, err := range checks {
		if err != nil {
			return apperror.Validation(err.Error())
		}
	}

	if len(req.Photos) > entity.MaxReportPhotos {
		return apperror.Validation("к заявке можно приложить не более 5 фотографий")
	}
	for _, p := range req.Photos {
		if err := validation.ValidatePhotoPath(p); err != nil {
			return apperror.Validation(err.Error())
		}
		if !strings.HasPrefix(p, caller.UserID.String()+"/") {
			return apperror.Validation("можно прикладывать только свои фотографии")
		}
		if h.photos != nil && !h.photos.Exists(p) {
			return apperror.Validation("фотография " + p + " не найдена")
		}
	}
	return nil
}

// Approve обрабатывает POST /api/admin/reports/:id/approve.
func (h *ReportHandler) Approve(c *gin.Context) {
	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	report, err := h.reports.ApproveReport(c.Request.Context(), common.CurrentCaller(c), id)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// Reject обрабатывает POST /api/admin/reports/:id/reject.
func (h *ReportHandler) Reject(c *gin.Context) {
	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	if err := h.reports.RejectReport(c.Request.Context(), common.CurrentCaller(c), id); err != nil {
		common.RespondAppError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Solve обрабатывает POST /api/admin/reports/:id/solve.
func (h *ReportHandler) Solve(c *gin.Context) {
	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	report, err := h.reports.MarkSolved(c.Request.Context(), common.CurrentCaller(c), id)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// List обрабатывает GET /api/reports?status=active|solved и GET /api/admin/reports?status=pending.
// defaultStatus используется, если параметр не передан.
func (h *ReportHandler) List(defaultStatus valueobject.ReportStatus) gin.HandlerFunc {
	return func(c *gin.Context) {
		status, err := valueobject.NewReportStatus(c.DefaultQuery("status", string(defaultStatus)))
		if err != nil {
			common.RespondAppError(c, err)
			return
		}

		reports, err := h.reports.ListReports(c.Request.Context(), common.CurrentCaller(c), status)
		if err != nil {
			common.RespondAppError(c, err)
			return
		}
		c.JSON(http.StatusOK, reports)
	}
}

// Get обрабатывает GET /api/reports/:id и возвращает заявку вместе с подтверждёнными наблюдениями.
func (h *ReportHandler) Get(c *gin.Context) {
	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	report, err := h.reports.GetReport(c.Request.Context(), common.CurrentCaller(c), id)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	sightings, err := h.sightings.ListApprovedByReport(c.Request.Context(), common.CurrentCaller(c), report.ID)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ReportWithSightings{Report: report, Sightings: sightings})
}

// ListMine обрабатывает GET /api/reports/my.
func (h *ReportHandler) ListMine(c *gin.Context) {
	reports, err := h.reports.ListMyReports(c.Request.Context(), common.CurrentCaller(c))
	if err != nil {
		common.RespondAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, reports)
}
