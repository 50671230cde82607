package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/bharatalert-backend/internal/http/handlers/common"
	"github.com/ignatzorin/bharatalert-backend/internal/service"
)

// SeedHandler загружает демо-данные (только development).
type SeedHandler struct {
	seedService *service.SeedService
}

// NewSeedHandler создаёт новый seed handler.
func NewSeedHandler(seedService *service.SeedService) *SeedHandler {
	return &SeedHandler{seedService: seedService}
}

// SeedAccountInfo представляет информацию об аккаунте.
type SeedAccountInfo struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// SeedResponse представляет ответ на запрос генерации данных.
type SeedResponse struct {
	Message  string              `json:"message"`
	Created  *service.SeedResult `json:"created"`
	Accounts []SeedAccountInfo   `json:"accounts"`
}

// Seed обрабатывает POST /api/seed.
func (h *SeedHandler) Seed(c *gin.Context) {
	result, err := h.seedService.SeedData(c.Request.Context())
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, SeedResponse{
		Message: "демо-данные загружены",
		Created: result,
		Accounts: []SeedAccountInfo{
			{Email: service.SeedAdminEmail, Password: service.SeedAdminPassword, Role: "admin"},
			{Email: service.SeedUserEmail, Password: service.SeedUserPassword, Role: "user"},
		},
	})
}
