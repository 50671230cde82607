package dto

import (
	"github.com/google/uuid"

	"github.com/ignatzorin/bharatalert-backend/internal/domain/entity"
	"github.com/ignatzorin/bharatalert-backend/internal/service"
)

// ReportWithSightings represents a report together with its public sightings
type ReportWithSightings struct {
	*entity.Report
	Sightings []*entity.Sighting `json:"sightings"`
}

// AuthResponse represents the result of signup or login
type AuthResponse struct {
	User   *entity.User       `json:"user"`
	Tokens *service.TokenPair `json:"tokens"`
}

// CanSubmitResponse tells the client whether the sighting form is available
type CanSubmitResponse struct {
	CanSubmit      bool `json:"can_submit"`
	SightingsCount int  `json:"sightings_count"`
	Quota          int  `json:"quota"`
	Banned         bool `json:"banned"`
}

// BanResponse represents the outcome of a ban or unban
type BanResponse struct {
	UserID  uuid.UUID `json:"user_id"`
	Banned  bool      `json:"banned"`
	Changed bool      `json:"changed"`
}

// BannedUsersResponse lists banned user ids
type BannedUsersResponse struct {
	UserIDs []uuid.UUID `json:"user_ids"`
}

// PhotoUploadResponse represents a stored photo
type PhotoUploadResponse struct {
	Path        string `json:"path"`
	URL         string `json:"url"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
}

// ErrorResponse represents a standard error response
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// SuccessResponse represents a standard success response
type SuccessResponse struct {
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}
