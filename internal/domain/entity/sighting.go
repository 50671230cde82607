package entity

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/bharatalert-backend/internal/domain/valueobject"
	"github.com/ignatzorin/bharatalert-backend/internal/pkg/apperror"
)

// Sighting - сообщение о том, что ребёнка из заявки видели.
type Sighting struct {
	ID          uuid.UUID                  `json:"id"`
	ReportID    uuid.UUID                  `json:"report_id"`
	ReportedBy  uuid.UUID                  `json:"reported_by"`
	Location    valueobject.Location       `json:"location"`
	Description string                     `json:"description"`
	ObservedAt  time.Time                  `json:"observed_at"`
	Status      valueobject.SightingStatus `json:"status"`
	CreatedAt   time.Time                  `json:"created_at"`
}

type SightingDraft struct {
	Lat         *float64
	Lng         *float64
	Address     string
	Description string
	ObservedAt  time.Time
}

func NewSighting(reportID, reportedBy uuid.UUID, d SightingDraft, now time.Time) (*Sighting, error) {
	description := strings.TrimSpace(d.Description)
	if description == "" {
		return nil, apperror.New(apperror.ErrCodeValidation, "описание наблюдения обязательно")
	}
	location, err := valueobject.NewLocation(d.Lat, d.Lng, d.Address)
	if err != nil {
		return nil, err
	}
	if d.ObservedAt.IsZero() {
		return nil, apperror.New(apperror.ErrCodeValidation, "время наблюдения обязательно")
	}
	if d.ObservedAt.After(now) {
		return nil, apperror.New(apperror.ErrCodeValidation, "время наблюдения не может быть в будущем")
	}

	return &Sighting{
		ID:          uuid.New(),
		ReportID:    reportID,
		ReportedBy:  reportedBy,
		Location:    location,
		Description: description,
		ObservedAt:  d.ObservedAt.UTC(),
		Status:      valueobject.SightingStatusPending,
		CreatedAt:   now.UTC(),
	}, nil
}

func (s *Sighting) Approve() error {
	if s.Status != valueobject.SightingStatusPending {
		return apperror.New(apperror.ErrCodeInvalidTransition, "подтвердить можно только наблюдение на модерации")
	}
	s.Status = valueobject.SightingStatusApproved
	return nil
}

func (s *Sighting) EnsureRejectable() error {
	if s.Status != valueobject.SightingStatusPending {
		return apperror.New(apperror.ErrCodeInvalidTransition, "отклонить можно только наблюдение на модерации")
	}
	return nil
}

func (s *Sighting) IsPending() bool {
	return s.Status == valueobject.SightingStatusPending
}
