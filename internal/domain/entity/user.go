package entity

import (
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/bharatalert-backend/internal/domain/valueobject"
	"github.com/ignatzorin/bharatalert-backend/internal/pkg/apperror"
)

// User - зарегистрированный пользователь: заявитель или модератор.
type User struct {
	ID             uuid.UUID             `json:"id"`
	Name           string                `json:"name"`
	Email          string                `json:"email"`
	Phone          string                `json:"phone"`
	Location       *valueobject.Location `json:"location,omitempty"`
	Role           valueobject.Role      `json:"role"`
	SightingsCount int                   `json:"sightings_count"`
	Banned         bool                  `json:"banned"`
	PasswordHash   string                `json:"-"`
	CreatedAt      time.Time             `json:"created_at"`
}

func (u *User) IsModerator() bool {
	return u.Role.IsModerator()
}

// CanSubmitSighting проверяет бан и лимит подтверждённых наблюдений.
func (u *User) CanSubmitSighting(quota int) bool {
	return !u.Banned && u.SightingsCount < quota
}

// RecordApprovedSighting засчитывает подтверждённое наблюдение.
// Счётчик не может превысить quota.
func (u *User) RecordApprovedSighting(quota int) error {
	if u.SightingsCount >= quota {
		return apperror.ErrQuotaExceeded
	}
	u.SightingsCount++
	return nil
}
