package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/bharatalert-backend/internal/domain/entity"
	"github.com/ignatzorin/bharatalert-backend/internal/domain/repository"
	"github.com/ignatzorin/bharatalert-backend/internal/domain/valueobject"
	"github.com/ignatzorin/bharatalert-backend/internal/dto"
	"github.com/ignatzorin/bharatalert-backend/internal/http/handlers/common"
	"github.com/ignatzorin/bharatalert-backend/internal/pkg/apperror"
	"github.com/ignatzorin/bharatalert-backend/internal/service"
	"github.com/ignatzorin/bharatalert-backend/internal/validation"
)

// SightingHandler - HTTP слой наблюдений.
type SightingHandler struct {
	sightings *service.SightingService
	users     *service.UserService
}

func NewSightingHandler(sightings *service.SightingService, users *service.UserService) *SightingHandler {
	return &SightingHandler{sightings: sightings, users: users}
}

// Submit обрабатывает POST /api/reports/:id/sightings.
func (h *SightingHandler) Submit(c *gin.Context) {
	reportID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	var req dto.SubmitSightingRequest
	if err := common.BindJSON(c, &req); err != nil {
		common.RespondAppError(c, err)
		return
	}
	if err := validation.ValidateLength("описание", strings.TrimSpace(req.Description), 0, validation.MaxDescriptionLength); err != nil {
		common.RespondAppError(c, apperror.Validation(err.Error()))
		return
	}
	if err := validation.ValidateLength("адрес", strings.TrimSpace(req.Location.Address), 0, validation.MaxAddressLength); err != nil {
		common.RespondAppError(c, apperror.Validation(err.Error()))
		return
	}

	sighting, err := h.sightings.SubmitSighting(c.Request.Context(), common.CurrentCaller(c), reportID, entity.SightingDraft{
		Lat:         req.Location.Lat,
		Lng:         req.Location.Lng,
		Address:     req.Location.Address,
		Description: req.Description,
		ObservedAt:  req.ObservedAt,
	})
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusCreated, sighting)
}

// Approve обрабатывает POST /api/admin/sightings/:id/approve.
func (h *SightingHandler) Approve(c *gin.Context) {
	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	sighting, err := h.sightings.ApproveSighting(c.Request.Context(), common.CurrentCaller(c), id)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, sighting)
}

// Reject обрабатывает POST /api/admin/sightings/:id/reject.
func (h *SightingHandler) Reject(c *gin.Context) {
	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	if err := h.sightings.RejectSighting(c.Request.Context(), common.CurrentCaller(c), id); err != nil {
		common.RespondAppError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ListForReport обрабатывает GET /api/reports/:id/sightings (только подтверждённые).
func (h *SightingHandler) ListForReport(c *gin.Context) {
	reportID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	sightings, err := h.sightings.ListApprovedByReport(c.Request.Context(), common.CurrentCaller(c), reportID)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, sightings)
}

// ListAdmin обрабатывает GET /api/admin/sightings?report_id=&user_id=&status=.
func (h *SightingHandler) ListAdmin(c *gin.Context) {
	var filter repository.SightingFilter

	reportID, err := common.ParseUUIDQuery(c, "report_id")
	if err != nil {
		common.RespondAppError(c, err)
		return
	}
	filter.ReportID = reportID

	userID, err := common.ParseUUIDQuery(c, "user_id")
	if err != nil {
		common.RespondAppError(c, err)
		return
	}
	filter.UserID = userID

	if raw := c.Query("status"); raw != "" {
		status, err := valueobject.NewSightingStatus(raw)
		if err != nil {
			common.RespondAppError(c, err)
			return
		}
		filter.Status = &status
	}

	sightings, err := h.sightings.ListSightings(c.Request.Context(), common.CurrentCaller(c), filter)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, sightings)
}

// ListMine обрабатывает GET /api/sightings/my.
func (h *SightingHandler) ListMine(c *gin.Context) {
	sightings, err := h.sightings.ListMySightings(c.Request.Context(), common.CurrentCaller(c))
	if err != nil {
		common.RespondAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, sightings)
}

// Get обрабатывает GET /api/sightings/:id.
func (h *SightingHandler) Get(c *gin.Context) {
	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	sighting, err := h.sightings.GetSighting(c.Request.Context(), common.CurrentCaller(c), id)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, sighting)
}

// CanSubmit обрабатывает GET /api/sightings/can-submit.
func (h *SightingHandler) CanSubmit(c *gin.Context) {
	caller := common.CurrentCaller(c)

	allowed, err := h.sightings.CanSubmitSighting(c.Request.Context(), caller.UserID)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	user, err := h.users.GetUser(c.Request.Context(), caller.UserID)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.CanSubmitResponse{
		CanSubmit:      allowed,
		SightingsCount: user.SightingsCount,
		Quota:          h.sightings.Quota(),
		Banned:         user.Banned,
	})
}
