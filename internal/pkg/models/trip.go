package models

import (
	"time"

	"github.com/google/uuid"
)

// TripStatus represents the current status of a trip
type TripStatus string

const (
	TripStatusStarted  TripStatus = "started"
	TripStatusFinished TripStatus = "finished"
)

// TripType distinguishes outbound runs from return runs
type TripType string

const (
	TripTypeOutbound TripType = "outbound"
	TripTypeReturn   TripType = "return"
)

// Trip represents one transport run by a driver, start to finish
type Trip struct {
	ID                   uuid.UUID  `json:"id" db:"id"`
	DriverID             string     `json:"driver_id" db:"driver_id"`
	RouteID              string     `json:"route_id" db:"route_id"`
	Type                 TripType   `json:"type" db:"type"`
	Status               TripStatus `json:"status" db:"status"`
	ChildIDs             []string   `json:"child_ids" db:"-"`
	StartedAt            time.Time  `json:"started_at" db:"started_at"`
	FinishedAt           *time.Time `json:"finished_at,omitempty" db:"finished_at"`
	TotalDistanceKm      float64    `json:"total_distance_km" db:"total_distance_km"`
	TotalDurationSeconds int        `json:"total_duration_seconds" db:"total_duration_seconds"`
	Notes                string     `json:"notes,omitempty" db:"notes"`
}

// TripMetrics carries the final figures supplied when a trip is finalized
type TripMetrics struct {
	TotalDistanceKm      float64 `json:"total_distance_km"`
	TotalDurationSeconds int     `json:"total_duration_seconds"`
	Notes                string  `json:"notes"`
}

// TripDetail combines a trip with its recorded events
type TripDetail struct {
	Trip
	Events     []TripEvent `json:"events"`
	EventCount int         `json:"event_count"`
}
