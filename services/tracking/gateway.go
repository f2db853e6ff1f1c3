package tracking

import (
	"context"

	"github.com/kanghoo/kanghoo/internal/pkg/models"
)

// TrackingGW defines the interface for publishing tracking events to
// downstream consumers (dashboards, notification dispatchers).
type TrackingGW interface {
	PublishLocationUpdate(ctx context.Context, update models.LocationUpdate) error
	PublishTripStarted(ctx context.Context, trip models.Trip) error
	PublishTripFinished(ctx context.Context, trip models.Trip) error
	PublishTripEvent(ctx context.Context, event models.TripEvent) error
}
