package valueobject

import "github.com/ignatzorin/bharatalert-backend/internal/pkg/apperror"

type ReportStatus string

const (
	ReportStatusPending ReportStatus = "pending"
	ReportStatusActive  ReportStatus = "active"
	ReportStatusSolved  ReportStatus = "solved"
)

func (s ReportStatus) IsValid() bool {
	switch s {
	case ReportStatusPending, ReportStatusActive, ReportStatusSolved:
		return true
	}
	return false
}

// CanTransitionTo описывает допустимые переходы заявки.
// Отклонённая заявка удаляется, поэтому отдельного статуса для неё нет.
func (s ReportStatus) CanTransitionTo(newStatus ReportStatus) bool {
	transitions := map[ReportStatus][]ReportStatus{
		ReportStatusPending: {ReportStatusActive},
		ReportStatusActive:  {ReportStatusSolved},
		ReportStatusSolved:  {},
	}

	allowed, ok := transitions[s]
	if !ok {
		return false
	}

	for _, status := range allowed {
		if status == newStatus {
			return true
		}
	}
	return false
}

func NewReportStatus(status string) (ReportStatus, error) {
	s := ReportStatus(status)
	if !s.IsValid() {
		return "", apperror.New(apperror.ErrCodeValidation, "некорректный статус заявки")
	}
	return s, nil
}

type SightingStatus string

const (
	SightingStatusPending  SightingStatus = "pending"
	SightingStatusApproved SightingStatus = "approved"
)

func (s SightingStatus) IsValid() bool {
	switch s {
	case SightingStatusPending, SightingStatusApproved:
		return true
	}
	return false
}

func NewSightingStatus(status string) (SightingStatus, error) {
	s := SightingStatus(status)
	if !s.IsValid() {
		return "", apperror.New(apperror.ErrCodeValidation, "некорректный статус наблюдения")
	}
	return s, nil
}
