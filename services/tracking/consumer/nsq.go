package consumer

import (
	"context"
	"fmt"
	"time"

	"github.com/kanghoo/kanghoo/internal/pkg/cache"
	"github.com/kanghoo/kanghoo/internal/pkg/logger"
	"github.com/kanghoo/kanghoo/internal/pkg/models"
	nsqpkg "github.com/kanghoo/kanghoo/internal/pkg/nsq"
	"github.com/kanghoo/kanghoo/services/tracking/gateway"
)

const (
	// Channel is the NSQ channel this service consumes on
	Channel = "tracking-cache"

	// keyDriverPosition prefixes relayed driver positions in the cache
	keyDriverPosition = "driver:position:"

	// TTLDriverPosition bounds how long a relayed position stays cached;
	// matches the freshness window of the ingestion path
	TTLDriverPosition = 5 * time.Minute
)

// TrackingConsumer subscribes to the tracking topics and maintains cached
// views (active trips, latest driver positions) for API consumers, the same
// views a dashboard or notification dispatcher would build on its side.
type TrackingConsumer struct {
	cache     *cache.Manager
	consumers []*nsqpkg.Consumer
}

// NewTrackingConsumer creates a consumer writing into the given cache
func NewTrackingConsumer(cacheManager *cache.Manager) *TrackingConsumer {
	return &TrackingConsumer{cache: cacheManager}
}

// Start connects one NSQ consumer per subscribed topic
func (c *TrackingConsumer) Start(cfg models.NSQConfig) error {
	subscriptions := []struct {
		topic   string
		handler nsqpkg.MessageHandler
	}{
		{gateway.TopicLocationUpdated, c.HandleLocationUpdate},
		{gateway.TopicTripStarted, c.HandleTripStarted},
		{gateway.TopicTripFinished, c.HandleTripFinished},
	}

	for _, sub := range subscriptions {
		consumer, err := nsqpkg.NewConsumer(sub.topic, Channel, cfg.Address, sub.handler)
		if err != nil {
			c.Stop()
			return fmt.Errorf("failed to subscribe to %s: %w", sub.topic, err)
		}
		if len(cfg.LookupdAddresses) > 0 {
			if err := consumer.ConnectToLookupd(cfg.LookupdAddresses); err != nil {
				consumer.Stop()
				c.Stop()
				return err
			}
		}
		c.consumers = append(c.consumers, consumer)

		logger.Info("Subscribed to tracking topic",
			logger.String("topic", sub.topic),
			logger.String("channel", Channel))
	}

	return nil
}

// Stop disconnects every subscribed consumer
func (c *TrackingConsumer) Stop() {
	for _, consumer := range c.consumers {
		consumer.Stop()
	}
	c.consumers = nil
}

// HandleLocationUpdate caches the relayed position as the driver's latest
func (c *TrackingConsumer) HandleLocationUpdate(message []byte) error {
	var update models.LocationUpdate
	if err := nsqpkg.UnmarshalMessage(message, &update); err != nil {
		return err
	}
	if update.DriverID == "" {
		return fmt.Errorf("location update without driver id")
	}

	c.cache.Set(context.Background(), keyDriverPosition+update.DriverID, update.Sample, TTLDriverPosition)
	return nil
}

// HandleTripStarted caches the trip as active
func (c *TrackingConsumer) HandleTripStarted(message []byte) error {
	var trip models.Trip
	if err := nsqpkg.UnmarshalMessage(message, &trip); err != nil {
		return err
	}

	c.cache.SetActiveTrip(context.Background(), trip.ID.String(), trip)
	return nil
}

// HandleTripFinished drops the trip from the active view
func (c *TrackingConsumer) HandleTripFinished(message []byte) error {
	var trip models.Trip
	if err := nsqpkg.UnmarshalMessage(message, &trip); err != nil {
		return err
	}

	c.cache.DeleteActiveTrip(context.Background(), trip.ID.String())
	return nil
}

// GetDriverPosition loads a relayed driver position from the cached view
func (c *TrackingConsumer) GetDriverPosition(ctx context.Context, driverID string) (*models.LocationSample, bool) {
	var sample models.LocationSample
	if !c.cache.Get(ctx, keyDriverPosition+driverID, &sample) {
		return nil, false
	}
	return &sample, true
}
