package models

import (
	"time"

	"github.com/google/uuid"
)

// LocationSample represents one GPS reading reported by a driver
type LocationSample struct {
	ID         uuid.UUID `json:"id" db:"id"`
	DriverID   string    `json:"driver_id" db:"driver_id"`
	RouteID    string    `json:"route_id,omitempty" db:"route_id"`
	Latitude   float64   `json:"latitude" db:"latitude"`
	Longitude  float64   `json:"longitude" db:"longitude"`
	SpeedKmh   float64   `json:"speed_kmh" db:"speed_kmh"`
	HeadingDeg int       `json:"heading_deg" db:"heading_deg"`
	Geohash    string    `json:"geohash" db:"geohash"`
	Timestamp  time.Time `json:"timestamp" db:"timestamp"`
	CachedAt   time.Time `json:"cached_at" db:"cached_at"`
}

// LocationUpdate is the message published to consumers (dashboards,
// notification dispatchers) after a sample is stored
type LocationUpdate struct {
	DriverID        string         `json:"driver_id"`
	RouteID         string         `json:"route_id,omitempty"`
	Sample          LocationSample `json:"sample"`
	DistanceDeltaKm float64        `json:"distance_delta_km"` // haversine distance from the previous sample
}

// HistoryFilter bounds a location history query
type HistoryFilter struct {
	Start time.Time
	End   time.Time
	Limit int
}
