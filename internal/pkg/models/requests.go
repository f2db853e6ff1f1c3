package models

import "time"

// LocationRequest is the payload for reporting a driver location.
// Latitude and longitude are pointers so a missing field can be told apart
// from a legitimate zero coordinate.
type LocationRequest struct {
	DriverID   string     `json:"driver_id"`
	RouteID    string     `json:"route_id,omitempty"`
	Latitude   *float64   `json:"latitude"`
	Longitude  *float64   `json:"longitude"`
	SpeedKmh   float64    `json:"speed_kmh,omitempty"`
	HeadingDeg int        `json:"heading_deg,omitempty"`
	Timestamp  *time.Time `json:"timestamp,omitempty"`
}

// TripStartRequest is the payload for starting a trip
type TripStartRequest struct {
	DriverID string   `json:"driver_id"`
	RouteID  string   `json:"route_id"`
	Type     TripType `json:"type,omitempty"`
	ChildIDs []string `json:"child_ids,omitempty"`
}

// TripEventRequest is the payload for recording a boarding or alighting
type TripEventRequest struct {
	Type      EventType  `json:"type"`
	ChildID   string     `json:"child_id"`
	Latitude  *float64   `json:"latitude"`
	Longitude *float64   `json:"longitude"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
}
