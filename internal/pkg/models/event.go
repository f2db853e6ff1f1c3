package models

import (
	"time"

	"github.com/google/uuid"
)

// EventType represents a child transition during a trip
type EventType string

const (
	EventTypeBoarding  EventType = "boarding"
	EventTypeAlighting EventType = "alighting"
)

// Valid reports whether the event type is one of the enumerated values
func (t EventType) Valid() bool {
	return t == EventTypeBoarding || t == EventTypeAlighting
}

// TripEvent records a single boarding or alighting during a trip.
// Events are immutable once appended.
type TripEvent struct {
	ID        uuid.UUID `json:"id" db:"id"`
	TripID    uuid.UUID `json:"trip_id" db:"trip_id"`
	Type      EventType `json:"type" db:"type"`
	ChildID   string    `json:"child_id" db:"child_id"`
	Latitude  float64   `json:"latitude" db:"latitude"`
	Longitude float64   `json:"longitude" db:"longitude"`
	Geohash   string    `json:"geohash" db:"geohash"`
	Timestamp time.Time `json:"timestamp" db:"timestamp"`
}
