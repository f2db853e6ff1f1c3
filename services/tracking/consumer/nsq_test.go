package consumer

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/kanghoo/kanghoo/internal/pkg/cache"
	"github.com/kanghoo/kanghoo/internal/pkg/models"
)

func newTestConsumer(t *testing.T) *TrackingConsumer {
	t.Helper()

	m := cache.NewManager(cache.Config{SweepInterval: time.Hour})
	t.Cleanup(m.Close)

	return NewTrackingConsumer(m)
}

func TestHandleLocationUpdate(t *testing.T) {
	c := newTestConsumer(t)
	ctx := context.Background()

	update := models.LocationUpdate{
		DriverID: "driver-001",
		RouteID:  "route-morning",
		Sample: models.LocationSample{
			ID:        uuid.New(),
			DriverID:  "driver-001",
			Latitude:  -6.2088,
			Longitude: 106.8456,
			Timestamp: time.Date(2026, 3, 10, 7, 0, 0, 0, time.UTC),
		},
		DistanceDeltaKm: 0.4,
	}
	payload, err := json.Marshal(update)
	assert.NoError(t, err)

	// Act
	assert.NoError(t, c.HandleLocationUpdate(payload))

	// Assert
	got, found := c.GetDriverPosition(ctx, "driver-001")
	assert.True(t, found)
	assert.Equal(t, update.Sample.ID, got.ID)
	assert.Equal(t, -6.2088, got.Latitude)
}

func TestHandleLocationUpdate_BadPayload(t *testing.T) {
	c := newTestConsumer(t)

	assert.Error(t, c.HandleLocationUpdate([]byte("not json")))
	assert.Error(t, c.HandleLocationUpdate([]byte(`{"sample":{}}`)))
}

func TestHandleTripStartedAndFinished(t *testing.T) {
	c := newTestConsumer(t)
	ctx := context.Background()

	trip := models.Trip{
		ID:        uuid.New(),
		DriverID:  "driver-001",
		RouteID:   "route-morning",
		Type:      models.TripTypeOutbound,
		Status:    models.TripStatusStarted,
		ChildIDs:  []string{"child-1"},
		StartedAt: time.Date(2026, 3, 10, 7, 0, 0, 0, time.UTC),
	}
	startedPayload, err := json.Marshal(trip)
	assert.NoError(t, err)

	assert.NoError(t, c.HandleTripStarted(startedPayload))

	var active models.Trip
	assert.True(t, c.cache.GetActiveTrip(ctx, trip.ID.String(), &active))
	assert.Equal(t, trip.ID, active.ID)
	assert.Equal(t, models.TripStatusStarted, active.Status)

	// Finishing the trip removes it from the active view
	trip.Status = models.TripStatusFinished
	finishedPayload, err := json.Marshal(trip)
	assert.NoError(t, err)

	assert.NoError(t, c.HandleTripFinished(finishedPayload))
	assert.False(t, c.cache.GetActiveTrip(ctx, trip.ID.String(), &active))
}

func TestGetDriverPosition_Miss(t *testing.T) {
	c := newTestConsumer(t)

	got, found := c.GetDriverPosition(context.Background(), "unknown-driver")

	assert.False(t, found)
	assert.Nil(t, got)
}
