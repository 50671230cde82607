package entity

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/bharatalert-backend/internal/domain/valueobject"
	"github.com/ignatzorin/bharatalert-backend/internal/pkg/apperror"
)

const (
	MinChildAge     = 0
	MaxChildAge     = 18
	MaxReportPhotos = 5
)

// Report - заявка о пропавшем ребёнке.
type Report struct {
	ID               uuid.UUID                `json:"id"`
	ChildName        string                   `json:"child_name"`
	Age              int                      `json:"age"`
	Description      string                   `json:"description"`
	ContactInfo      string                   `json:"contact_info"`
	LastSeenLocation valueobject.Location     `json:"last_seen_location"`
	LastSeenAt       time.Time                `json:"last_seen_at"`
	Photos           []string                 `json:"photos"`
	ReportedBy       uuid.UUID                `json:"reported_by"`
	Status           valueobject.ReportStatus `json:"status"`
	CreatedAt        time.Time                `json:"created_at"`
	ApprovedAt       *time.Time               `json:"approved_at,omitempty"`
	SolvedAt         *time.Time               `json:"solved_at,omitempty"`
}

// ReportDraft - поля заявки в том виде, в каком их прислал заявитель.
type ReportDraft struct {
	ChildName   string
	Age         int
	Description string
	ContactInfo string
	Lat         *float64
	Lng         *float64
	Address     string
	LastSeenAt  time.Time
	Photos      []string
}

func NewReport(reportedBy uuid.UUID, d ReportDraft, now time.Time) (*Report, error) {
	childName := strings.TrimSpace(d.ChildName)
	if childName == "" {
		return nil, apperror.New(apperror.ErrCodeValidation, "имя ребёнка обязательно")
	}
	if d.Age < MinChildAge || d.Age > MaxChildAge {
		return nil, apperror.New(apperror.ErrCodeValidation, "возраст должен быть от 0 до 18 лет")
	}
	description := strings.TrimSpace(d.Description)
	if description == "" {
		return nil, apperror.New(apperror.ErrCodeValidation, "описание обязательно")
	}
	contact := strings.TrimSpace(d.ContactInfo)
	if contact == "" {
		return nil, apperror.New(apperror.ErrCodeValidation, "контактные данные обязательны")
	}
	location, err := valueobject.NewLocation(d.Lat, d.Lng, d.Address)
	if err != nil {
		return nil, err
	}
	if d.LastSeenAt.IsZero() {
		return nil, apperror.New(apperror.ErrCodeValidation, "время, когда ребёнка видели последний раз, обязательно")
	}
	if d.LastSeenAt.After(now) {
		return nil, apperror.New(apperror.ErrCodeValidation, "время последнего появления не может быть в будущем")
	}
	if len(d.Photos) > MaxReportPhotos {
		return nil, apperror.New(apperror.ErrCodeValidation, "к заявке можно приложить не более 5 фотографий")
	}

	photos := make([]string, 0, len(d.Photos))
	for _, p := range d.Photos {
		if p = strings.TrimSpace(p); p != "" {
			photos = append(photos, p)
		}
	}

	return &Report{
		ID:               uuid.New(),
		ChildName:        childName,
		Age:              d.Age,
		Description:      description,
		ContactInfo:      contact,
		LastSeenLocation: location,
		LastSeenAt:       d.LastSeenAt.UTC(),
		Photos:           photos,
		ReportedBy:       reportedBy,
		Status:           valueobject.ReportStatusPending,
		CreatedAt:        now.UTC(),
	}, nil
}

func (r *Report) Approve(now time.Time) error {
	if !r.Status.CanTransitionTo(valueobject.ReportStatusActive) {
		return apperror.New(apperror.ErrCodeInvalidTransition, "одобрить можно только заявку на модерации")
	}
	at := now.UTC()
	r.Status = valueobject.ReportStatusActive
	r.ApprovedAt = &at
	return nil
}

func (r *Report) MarkSolved(now time.Time) error {
	if !r.Status.CanTransitionTo(valueobject.ReportStatusSolved) {
		return apperror.New(apperror.ErrCodeInvalidTransition, "закрыть можно только активную заявку")
	}
	at := now.UTC()
	r.Status = valueobject.ReportStatusSolved
	r.SolvedAt = &at
	return nil
}

// EnsureRejectable проверяет, что заявку ещё можно отклонить.
func (r *Report) EnsureRejectable() error {
	if r.Status != valueobject.ReportStatusPending {
		return apperror.New(apperror.ErrCodeInvalidTransition, "отклонить можно только заявку на модерации")
	}
	return nil
}

func (r *Report) IsActive() bool {
	return r.Status == valueobject.ReportStatusActive
}

func (r *Report) IsOwnedBy(userID uuid.UUID) bool {
	return r.ReportedBy == userID
}
