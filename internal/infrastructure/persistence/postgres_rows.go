package persistence

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/ignatzorin/bharatalert-backend/internal/domain/entity"
	"github.com/ignatzorin/bharatalert-backend/internal/domain/valueobject"
)

// Строки таблиц в том виде, в каком их читает sqlx.

type userRow struct {
	ID              uuid.UUID       `db:"id"`
	Name            string          `db:"name"`
	Email           string          `db:"email"`
	Phone           string          `db:"phone"`
	LocationLat     sql.NullFloat64 `db:"location_lat"`
	LocationLng     sql.NullFloat64 `db:"location_lng"`
	LocationAddress sql.NullString  `db:"location_address"`
	Role            string          `db:"role"`
	SightingsCount  int             `db:"sightings_count"`
	PasswordHash    string          `db:"password_hash"`
	CreatedAt       time.Time       `db:"created_at"`
	Banned          bool            `db:"banned"`
}

func (r *userRow) toEntity() *entity.User {
	u := &entity.User{
		ID:             r.ID,
		Name:           r.Name,
		Email:          r.Email,
		Phone:          r.Phone,
		Role:           valueobject.Role(r.Role),
		SightingsCount: r.SightingsCount,
		Banned:         r.Banned,
		PasswordHash:   r.PasswordHash,
		CreatedAt:      r.CreatedAt,
	}
	if r.LocationLat.Valid && r.LocationLng.Valid {
		u.Location = &valueobject.Location{
			Lat:     r.LocationLat.Float64,
			Lng:     r.LocationLng.Float64,
			Address: r.LocationAddress.String,
		}
	}
	return u
}

type reportRow struct {
	ID              uuid.UUID      `db:"id"`
	ChildName       string         `db:"child_name"`
	Age             int            `db:"age"`
	Description     string         `db:"description"`
	ContactInfo     string         `db:"contact_info"`
	LastSeenLat     float64        `db:"last_seen_lat"`
	LastSeenLng     float64        `db:"last_seen_lng"`
	LastSeenAddress string         `db:"last_seen_address"`
	LastSeenAt      time.Time      `db:"last_seen_at"`
	Photos          pq.StringArray `db:"photos"`
	ReportedBy      uuid.UUID      `db:"reported_by"`
	Status          string         `db:"status"`
	CreatedAt       time.Time      `db:"created_at"`
	ApprovedAt      *time.Time     `db:"approved_at"`
	SolvedAt        *time.Time     `db:"solved_at"`
}

func (r *reportRow) toEntity() *entity.Report {
	photos := make([]string, len(r.Photos))
	copy(photos, r.Photos)
	return &entity.Report{
		ID:          r.ID,
		ChildName:   r.ChildName,
		Age:         r.Age,
		Description: r.Description,
		ContactInfo: r.ContactInfo,
		LastSeenLocation: valueobject.Location{
			Lat:     r.LastSeenLat,
			Lng:     r.LastSeenLng,
			Address: r.LastSeenAddress,
		},
		LastSeenAt: r.LastSeenAt,
		Photos:     photos,
		ReportedBy: r.ReportedBy,
		Status:     valueobject.ReportStatus(r.Status),
		CreatedAt:  r.CreatedAt,
		ApprovedAt: r.ApprovedAt,
		SolvedAt:   r.SolvedAt,
	}
}

type sightingRow struct {
	ID          uuid.UUID `db:"id"`
	ReportID    uuid.UUID `db:"report_id"`
	ReportedBy  uuid.UUID `db:"reported_by"`
	Lat         float64   `db:"lat"`
	Lng         float64   `db:"lng"`
	Address     string    `db:"address"`
	Description string    `db:"description"`
	ObservedAt  time.Time `db:"observed_at"`
	Status      string    `db:"status"`
	CreatedAt   time.Time `db:"created_at"`
}

func (r *sightingRow) toEntity() *entity.Sighting {
	return &entity.Sighting{
		ID:         r.ID,
		ReportID:   r.ReportID,
		ReportedBy: r.ReportedBy,
		Location: valueobject.Location{
			Lat:     r.Lat,
			Lng:     r.Lng,
			Address: r.Address,
		},
		Description: r.Description,
		ObservedAt:  r.ObservedAt,
		Status:      valueobject.SightingStatus(r.Status),
		CreatedAt:   r.CreatedAt,
	}
}

func reportsFromRows(rows []reportRow) []*entity.Report {
	result := make([]*entity.Report, 0, len(rows))
	for i := range rows {
		result = append(result, rows[i].toEntity())
	}
	return result
}

func sightingsFromRows(rows []sightingRow) []*entity.Sighting {
	result := make([]*entity.Sighting, 0, len(rows))
	for i := range rows {
		result = append(result, rows[i].toEntity())
	}
	return result
}
