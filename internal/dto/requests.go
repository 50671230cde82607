package dto

import (
	"time"
)

// LocationRequest represents a map point chosen by the user
type LocationRequest struct {
	Lat     *float64 `json:"lat"`
	Lng     *float64 `json:"lng"`
	Address string   `json:"address"`
}

// SubmitReportRequest represents the request to report a missing child
type SubmitReportRequest struct {
	ChildName        string          `json:"child_name" binding:"required"`
	Age              *int            `json:"age" binding:"required"`
	Description      string          `json:"description" binding:"required"`
	ContactInfo      string          `json:"contact_info" binding:"required"`
	LastSeenLocation LocationRequest `json:"last_seen_location"`
	LastSeenAt       time.Time       `json:"last_seen_at" binding:"required"`
	Photos           []string        `json:"photos"`
}

// SubmitSightingRequest represents the request to report a sighting
type SubmitSightingRequest struct {
	Location    LocationRequest `json:"location"`
	Description string          `json:"description" binding:"required"`
	ObservedAt  time.Time       `json:"observed_at" binding:"required"`
}

// SignupRequest represents the request to create an account
type SignupRequest struct {
	Name     string           `json:"name" binding:"required"`
	Email    string           `json:"email" binding:"required"`
	Phone    string           `json:"phone"`
	Password string           `json:"password" binding:"required"`
	Location *LocationRequest `json:"location"`
}

// LoginRequest represents the request to log in
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// RefreshRequest represents the request to exchange a refresh token
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}
