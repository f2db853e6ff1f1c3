package tracking

import (
	"context"

	"github.com/google/uuid"

	"github.com/kanghoo/kanghoo/internal/pkg/models"
)

// TrackingUC defines the interface for tracking business logic.
// Failures carry an ErrorKind so transports can render a uniform envelope.
type TrackingUC interface {
	// Location operations
	SaveLocation(ctx context.Context, req models.LocationRequest) (*models.LocationSample, error)
	GetCurrentLocation(ctx context.Context, driverID string) (*models.LocationSample, error)
	GetLocationHistory(ctx context.Context, driverID string, filter models.HistoryFilter) ([]models.LocationSample, error)

	// Trip lifecycle operations
	StartTrip(ctx context.Context, req models.TripStartRequest) (*models.Trip, error)
	FinalizeTrip(ctx context.Context, tripID uuid.UUID, metrics models.TripMetrics) (*models.Trip, error)
	GetTripData(ctx context.Context, tripID uuid.UUID) (*models.TripDetail, error)

	// Event recording operations
	RecordBoarding(ctx context.Context, tripID uuid.UUID, req models.TripEventRequest) (*models.TripEvent, error)
	RecordAlighting(ctx context.Context, tripID uuid.UUID, req models.TripEventRequest) (*models.TripEvent, error)

	// Maintenance operations
	SweepStale(ctx context.Context) (int, error)
}
