package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ignatzorin/bharatalert-backend/internal/pkg/apperror"
)

// UUIDValidator проверяет, что параметры маршрута являются валидными UUID.
// Использование: router.POST("/admin/reports/:id/approve", UUIDValidator("id"), handler.Approve)
func UUIDValidator(paramNames ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		for _, name := range paramNames {
			idStr := c.Param(name)
			if idStr == "" {
				abortWith(c, apperror.Validation("параметр "+name+" обязателен"))
				return
			}
			if _, err := uuid.Parse(idStr); err != nil {
				abortWith(c, apperror.Validation("параметр "+name+" должен быть валидным UUID"))
				return
			}
		}
		c.Next()
	}
}
