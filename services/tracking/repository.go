package tracking

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/kanghoo/kanghoo/internal/pkg/models"
)

// ErrTripFinished is reported by CompleteTrip when the trip has already been
// finished by an earlier call
var ErrTripFinished = errors.New("trip already finished")

// TrackingRepo defines the interface for tracking data access operations.
// Locations, trips and events live in three distinct typed stores; a lookup
// miss is reported as a nil result, not an error.
type TrackingRepo interface {
	// Current location operations
	SetCurrentLocation(ctx context.Context, sample models.LocationSample) error
	GetCurrentLocation(ctx context.Context, driverID string) (*models.LocationSample, error)
	// DeleteCurrentLocationIf removes the driver's sample only while it
	// still carries sampleID, so an eviction decided against a stale read
	// cannot discard a sample stored concurrently. Reports whether a
	// delete happened.
	DeleteCurrentLocationIf(ctx context.Context, driverID string, sampleID uuid.UUID) (bool, error)
	ListCurrentLocations(ctx context.Context) ([]models.LocationSample, error)

	// Trip operations
	CreateTrip(ctx context.Context, trip *models.Trip) error
	GetTrip(ctx context.Context, tripID uuid.UUID) (*models.Trip, error)
	// CompleteTrip atomically flips a started trip to finished, merging the
	// final metrics. Returns nil when the trip does not exist and
	// ErrTripFinished when the transition was already taken.
	CompleteTrip(ctx context.Context, tripID uuid.UUID, finishedAt time.Time, metrics models.TripMetrics) (*models.Trip, error)

	// Event operations
	AppendEvent(ctx context.Context, event models.TripEvent) error
	GetEvents(ctx context.Context, tripID uuid.UUID) ([]models.TripEvent, error)
}

// HistoryRepo defines the interface for the location history store
type HistoryRepo interface {
	AppendLocation(ctx context.Context, sample models.LocationSample) error
	QueryLocations(ctx context.Context, driverID string, filter models.HistoryFilter) ([]models.LocationSample, error)
}
