package common

import (
	"errors"
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ignatzorin/bharatalert-backend/internal/domain/valueobject"
	"github.com/ignatzorin/bharatalert-backend/internal/http/middleware"
	"github.com/ignatzorin/bharatalert-backend/internal/pkg/apperror"
	"github.com/ignatzorin/bharatalert-backend/internal/service"
)

var (
	// ErrUserNotInContext is returned when auth middleware did not set the user
	ErrUserNotInContext = errors.New("пользователь не найден в контексте")

	// ErrInvalidUUID is returned when UUID parsing fails
	ErrInvalidUUID = errors.New("неверный формат UUID")
)

// CurrentUserID extracts user ID from Gin context
func CurrentUserID(c *gin.Context) (uuid.UUID, error) {
	raw, exists := c.Get(middleware.ContextUserIDKey)
	if !exists {
		return uuid.Nil, ErrUserNotInContext
	}

	userID, ok := raw.(uuid.UUID)
	if !ok {
		return uuid.Nil, ErrUserNotInContext
	}

	return userID, nil
}

// CurrentUserRole extracts user role from Gin context
func CurrentUserRole(c *gin.Context) (valueobject.Role, error) {
	raw, exists := c.Get(middleware.ContextRoleKey)
	if !exists {
		return "", ErrUserNotInContext
	}

	role, ok := raw.(valueobject.Role)
	if !ok {
		return "", ErrUserNotInContext
	}

	return role, nil
}

// CurrentCaller builds the service caller; anonymous requests get a zero Caller
func CurrentCaller(c *gin.Context) service.Caller {
	userID, err := CurrentUserID(c)
	if err != nil {
		return service.Caller{}
	}
	role, _ := CurrentUserRole(c)
	return service.Caller{UserID: userID, Role: role}
}

// ParseUUIDParam parses UUID from URL parameter
func ParseUUIDParam(c *gin.Context, paramName string) (uuid.UUID, error) {
	param := c.Param(paramName)
	if param == "" {
		return uuid.Nil, apperror.Validation(fmt.Sprintf("параметр %s отсутствует", paramName))
	}

	parsed, err := uuid.Parse(param)
	if err != nil {
		return uuid.Nil, apperror.Wrap(ErrInvalidUUID, apperror.ErrCodeValidation, ErrInvalidUUID.Error())
	}

	return parsed, nil
}

// ParseUUIDQuery parses an optional UUID query parameter
func ParseUUIDQuery(c *gin.Context, key string) (*uuid.UUID, error) {
	raw := c.Query(key)
	if raw == "" {
		return nil, nil
	}
	parsed, err := uuid.Parse(raw)
	if err != nil {
		return nil, apperror.Validation(fmt.Sprintf("параметр %s должен быть валидным UUID", key))
	}
	return &parsed, nil
}

// BindJSON binds JSON request and converts binding errors into validation errors
func BindJSON(c *gin.Context, req interface{}) error {
	if err := c.ShouldBindJSON(req); err != nil {
		return apperror.Wrap(err, apperror.ErrCodeValidation, "некорректное тело запроса: "+err.Error())
	}
	return nil
}

// RespondAppError attaches the error to the context and aborts the chain;
// middleware.ErrorHandler writes it in the {"error", "code"} format
func RespondAppError(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}
