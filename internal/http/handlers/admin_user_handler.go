package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/bharatalert-backend/internal/dto"
	"github.com/ignatzorin/bharatalert-backend/internal/http/handlers/common"
	"github.com/ignatzorin/bharatalert-backend/internal/service"
)

// AdminUserHandler - блокировка пользователей и списки для модератора.
type AdminUserHandler struct {
	users *service.UserService
}

func NewAdminUserHandler(users *service.UserService) *AdminUserHandler {
	return &AdminUserHandler{users: users}
}

// Ban обрабатывает POST /api/admin/users/:id/ban.
func (h *AdminUserHandler) Ban(c *gin.Context) {
	h.setBanned(c, true)
}

// Unban обрабатывает DELETE /api/admin/users/:id/ban.
func (h *AdminUserHandler) Unban(c *gin.Context) {
	h.setBanned(c, false)
}

func (h *AdminUserHandler) setBanned(c *gin.Context, banned bool) {
	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	caller := common.CurrentCaller(c)
	var changed bool
	if banned {
		changed, err = h.users.BanUser(c.Request.Context(), caller, id)
	} else {
		changed, err = h.users.UnbanUser(c.Request.Context(), caller, id)
	}
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.BanResponse{UserID: id, Banned: banned, Changed: changed})
}

// List обрабатывает GET /api/admin/users.
func (h *AdminUserHandler) List(c *gin.Context) {
	users, err := h.users.ListUsers(c.Request.Context(), common.CurrentCaller(c))
	if err != nil {
		common.RespondAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, users)
}

// ListBanned обрабатывает GET /api/admin/users/banned.
func (h *AdminUserHandler) ListBanned(c *gin.Context) {
	ids, err := h.users.ListBannedUserIDs(c.Request.Context(), common.CurrentCaller(c))
	if err != nil {
		common.RespondAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.BannedUsersResponse{UserIDs: ids})
}
