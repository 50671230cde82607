package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/bharatalert-backend/internal/logger"
	"github.com/ignatzorin/bharatalert-backend/internal/pkg/apperror"
)

// ErrorHandler обрабатывает ошибки, добавленные через c.Error, централизованно.
// AppError отдаётся клиенту с кодом, остальные ошибки маскируются как внутренние.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		// Проверяем, не был ли уже отправлен ответ
		if c.Writer.Written() || len(c.Errors) == 0 {
			return
		}

		WriteError(c, c.Errors.Last().Err)
	}
}

// WriteError отправляет ошибку в формате {"error", "code"}.
func WriteError(c *gin.Context, err error) {
	appErr := apperror.From(err)

	if appErr.HTTPStatus >= http.StatusInternalServerError {
		logger.Component("http").WithFields(logrus.Fields{
			"error":  err.Error(),
			"code":   appErr.Code,
			"path":   c.Request.URL.Path,
			"method": c.Request.Method,
		}).Error("ошибка обработки запроса")
	}

	c.AbortWithStatusJSON(appErr.HTTPStatus, gin.H{
		"error": appErr.Message,
		"code":  appErr.Code,
	})
}
