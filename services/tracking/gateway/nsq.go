package gateway

import (
	"context"

	"github.com/kanghoo/kanghoo/internal/pkg/models"
	nsqpkg "github.com/kanghoo/kanghoo/internal/pkg/nsq"
	"github.com/kanghoo/kanghoo/services/tracking"
)

// NSQ topics consumed by dashboards and notification dispatchers
const (
	TopicLocationUpdated = "tracking.location.updated"
	TopicTripStarted     = "tracking.trip.started"
	TopicTripFinished    = "tracking.trip.finished"
	TopicTripEvent       = "tracking.trip.event"
)

// trackingGW publishes tracking events to NSQ
type trackingGW struct {
	producer *nsqpkg.Producer
}

// NewTrackingGW creates a new NSQ-backed tracking gateway
func NewTrackingGW(producer *nsqpkg.Producer) tracking.TrackingGW {
	return &trackingGW{producer: producer}
}

func (g *trackingGW) PublishLocationUpdate(ctx context.Context, update models.LocationUpdate) error {
	return g.producer.Publish(TopicLocationUpdated, update)
}

func (g *trackingGW) PublishTripStarted(ctx context.Context, trip models.Trip) error {
	return g.producer.Publish(TopicTripStarted, trip)
}

func (g *trackingGW) PublishTripFinished(ctx context.Context, trip models.Trip) error {
	return g.producer.Publish(TopicTripFinished, trip)
}

func (g *trackingGW) PublishTripEvent(ctx context.Context, event models.TripEvent) error {
	return g.producer.Publish(TopicTripEvent, event)
}
