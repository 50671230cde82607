package valueobject

import (
	"strings"

	"github.com/ignatzorin/bharatalert-backend/internal/pkg/apperror"
)

// Location - точка на карте со свободным текстовым адресом.
type Location struct {
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
	Address string  `json:"address"`
}

// NewLocation проверяет координаты и адрес.
// Координаты передаются указателями: nil означает, что точка не была выбрана.
func NewLocation(lat, lng *float64, address string) (Location, error) {
	if lat == nil || lng == nil {
		return Location{}, apperror.New(apperror.ErrCodeValidation, "координаты места обязательны")
	}
	if *lat < -90 || *lat > 90 {
		return Location{}, apperror.New(apperror.ErrCodeValidation, "широта должна быть в диапазоне от -90 до 90")
	}
	if *lng < -180 || *lng > 180 {
		return Location{}, apperror.New(apperror.ErrCodeValidation, "долгота должна быть в диапазоне от -180 до 180")
	}
	address = strings.TrimSpace(address)
	if address == "" {
		return Location{}, apperror.New(apperror.ErrCodeValidation, "адрес обязателен")
	}
	return Location{Lat: *lat, Lng: *lng, Address: address}, nil
}
