package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/kanghoo/kanghoo/internal/pkg/models"
	"github.com/kanghoo/kanghoo/services/tracking"
	"github.com/kanghoo/kanghoo/services/tracking/repository"
)

// recordingGW captures published payloads for assertions
type recordingGW struct {
	mu       sync.Mutex
	updates  []models.LocationUpdate
	started  []models.Trip
	finished []models.Trip
	events   []models.TripEvent
}

func (g *recordingGW) PublishLocationUpdate(ctx context.Context, update models.LocationUpdate) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.updates = append(g.updates, update)
	return nil
}

func (g *recordingGW) PublishTripStarted(ctx context.Context, trip models.Trip) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.started = append(g.started, trip)
	return nil
}

func (g *recordingGW) PublishTripFinished(ctx context.Context, trip models.Trip) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.finished = append(g.finished, trip)
	return nil
}

func (g *recordingGW) PublishTripEvent(ctx context.Context, event models.TripEvent) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.events = append(g.events, event)
	return nil
}

func testConfig() *models.Config {
	return &models.Config{
		Tracking: models.TrackingConfig{
			LocationTTLSeconds:   300,
			SweepIntervalSeconds: 300,
			HistoryLimit:         100,
		},
	}
}

// newTestUC wires a usecase over the in-memory store with a swappable clock
func newTestUC(t *testing.T) (*TrackingUC, *recordingGW, *time.Time) {
	t.Helper()

	repo := repository.NewMemoryRepository()
	history := repository.NewMemoryHistoryRepository(repo)
	gw := &recordingGW{}

	uc := NewTrackingUC(testConfig(), repo, history, gw)

	current := time.Date(2026, 3, 10, 7, 0, 0, 0, time.UTC)
	uc.now = func() time.Time { return current }

	return uc, gw, &current
}

func ptr(v float64) *float64 { return &v }

func TestSaveLocation_RoundTrip(t *testing.T) {
	uc, gw, _ := newTestUC(t)
	ctx := context.Background()

	// Act
	sample, err := uc.SaveLocation(ctx, models.LocationRequest{
		DriverID:  "driver-001",
		RouteID:   "route-morning",
		Latitude:  ptr(-6.2088),
		Longitude: ptr(106.8456),
		SpeedKmh:  32.5,
	})

	// Assert
	assert.NoError(t, err)
	assert.NotNil(t, sample)
	assert.NotEqual(t, uuid.Nil, sample.ID)
	assert.NotEmpty(t, sample.Geohash)

	got, err := uc.GetCurrentLocation(ctx, "driver-001")
	assert.NoError(t, err)
	assert.Equal(t, sample.ID, got.ID)
	assert.Equal(t, -6.2088, got.Latitude)
	assert.Equal(t, 106.8456, got.Longitude)

	assert.Len(t, gw.updates, 1)
	assert.Zero(t, gw.updates[0].DistanceDeltaKm)
}

func TestSaveLocation_Validation(t *testing.T) {
	uc, _, _ := newTestUC(t)
	ctx := context.Background()

	tests := []struct {
		name string
		req  models.LocationRequest
	}{
		{"missing driver id", models.LocationRequest{Latitude: ptr(-6.2), Longitude: ptr(106.8)}},
		{"missing coordinates", models.LocationRequest{DriverID: "driver-001"}},
		{"latitude out of range", models.LocationRequest{DriverID: "driver-001", Latitude: ptr(91), Longitude: ptr(106.8)}},
		{"longitude out of range", models.LocationRequest{DriverID: "driver-001", Latitude: ptr(-6.2), Longitude: ptr(181)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sample, err := uc.SaveLocation(ctx, tt.req)

			assert.Nil(t, sample)
			assert.Equal(t, tracking.KindValidation, tracking.KindOf(err))
		})
	}
}

func TestSaveLocation_SecondSampleCarriesDistanceDelta(t *testing.T) {
	uc, gw, _ := newTestUC(t)
	ctx := context.Background()

	_, err := uc.SaveLocation(ctx, models.LocationRequest{
		DriverID: "driver-001", Latitude: ptr(-6.2088), Longitude: ptr(106.8456),
	})
	assert.NoError(t, err)

	_, err = uc.SaveLocation(ctx, models.LocationRequest{
		DriverID: "driver-001", Latitude: ptr(-6.2188), Longitude: ptr(106.8456),
	})
	assert.NoError(t, err)

	assert.Len(t, gw.updates, 2)
	// 0.01 degrees of latitude is roughly 1.1 km
	assert.InDelta(t, 1.1, gw.updates[1].DistanceDeltaKm, 0.1)
}

func TestGetCurrentLocation_UnknownDriver(t *testing.T) {
	uc, _, _ := newTestUC(t)

	sample, err := uc.GetCurrentLocation(context.Background(), "unknown-driver")

	assert.Nil(t, sample)
	assert.Equal(t, tracking.KindNotFound, tracking.KindOf(err))
}

func TestGetCurrentLocation_ExpiresAfterTTL(t *testing.T) {
	uc, _, clock := newTestUC(t)
	ctx := context.Background()

	_, err := uc.SaveLocation(ctx, models.LocationRequest{
		DriverID: "driver-001", Latitude: ptr(-6.2088), Longitude: ptr(106.8456),
	})
	assert.NoError(t, err)

	// Just inside the freshness window the sample is still served
	*clock = clock.Add(5 * time.Minute)
	got, err := uc.GetCurrentLocation(ctx, "driver-001")
	assert.NoError(t, err)
	assert.NotNil(t, got)

	// One second past the window the sample is expired and evicted
	*clock = clock.Add(time.Second)
	got, err = uc.GetCurrentLocation(ctx, "driver-001")
	assert.Nil(t, got)
	assert.Equal(t, tracking.KindExpired, tracking.KindOf(err))

	// After eviction the driver has no location at all
	got, err = uc.GetCurrentLocation(ctx, "driver-001")
	assert.Nil(t, got)
	assert.Equal(t, tracking.KindNotFound, tracking.KindOf(err))
}

func TestGetLocationHistory(t *testing.T) {
	uc, _, clock := newTestUC(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := uc.SaveLocation(ctx, models.LocationRequest{
			DriverID: "driver-001", Latitude: ptr(-6.2088), Longitude: ptr(106.8456),
		})
		assert.NoError(t, err)
		*clock = clock.Add(time.Minute)
	}

	samples, err := uc.GetLocationHistory(ctx, "driver-001", models.HistoryFilter{})
	assert.NoError(t, err)
	assert.Len(t, samples, 3)

	// Newest first
	assert.True(t, samples[0].Timestamp.After(samples[1].Timestamp))
	assert.True(t, samples[1].Timestamp.After(samples[2].Timestamp))
}

func TestGetLocationHistory_EmptyNotFabricated(t *testing.T) {
	uc, _, _ := newTestUC(t)

	samples, err := uc.GetLocationHistory(context.Background(), "driver-without-history", models.HistoryFilter{})

	assert.NoError(t, err)
	assert.NotNil(t, samples)
	assert.Empty(t, samples)
}

func TestGetLocationHistory_InvalidWindow(t *testing.T) {
	uc, _, _ := newTestUC(t)

	start := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	end := start.Add(-time.Hour)
	_, err := uc.GetLocationHistory(context.Background(), "driver-001", models.HistoryFilter{Start: start, End: end})

	assert.Equal(t, tracking.KindValidation, tracking.KindOf(err))
}

func TestStartTrip(t *testing.T) {
	uc, gw, _ := newTestUC(t)

	trip, err := uc.StartTrip(context.Background(), models.TripStartRequest{
		DriverID: "driver-001",
		RouteID:  "route-morning",
		ChildIDs: []string{"child-1", "child-2"},
	})

	assert.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, trip.ID)
	assert.Equal(t, models.TripStatusStarted, trip.Status)
	assert.Equal(t, models.TripTypeOutbound, trip.Type)
	assert.Nil(t, trip.FinishedAt)
	assert.Len(t, gw.started, 1)
}

func TestStartTrip_Validation(t *testing.T) {
	uc, _, _ := newTestUC(t)
	ctx := context.Background()

	_, err := uc.StartTrip(ctx, models.TripStartRequest{RouteID: "route-morning"})
	assert.Equal(t, tracking.KindValidation, tracking.KindOf(err))

	_, err = uc.StartTrip(ctx, models.TripStartRequest{DriverID: "driver-001"})
	assert.Equal(t, tracking.KindValidation, tracking.KindOf(err))

	_, err = uc.StartTrip(ctx, models.TripStartRequest{
		DriverID: "driver-001", RouteID: "route-morning", Type: "joyride",
	})
	assert.Equal(t, tracking.KindValidation, tracking.KindOf(err))
}

func TestFinalizeTrip(t *testing.T) {
	uc, gw, clock := newTestUC(t)
	ctx := context.Background()

	trip, err := uc.StartTrip(ctx, models.TripStartRequest{DriverID: "driver-001", RouteID: "route-morning"})
	assert.NoError(t, err)

	*clock = clock.Add(25 * time.Minute)
	finished, err := uc.FinalizeTrip(ctx, trip.ID, models.TripMetrics{
		TotalDistanceKm:      12.4,
		TotalDurationSeconds: 1500,
		Notes:                "light traffic",
	})

	assert.NoError(t, err)
	assert.Equal(t, models.TripStatusFinished, finished.Status)
	assert.NotNil(t, finished.FinishedAt)
	assert.Equal(t, 12.4, finished.TotalDistanceKm)
	assert.Equal(t, 1500, finished.TotalDurationSeconds)
	assert.Equal(t, "light traffic", finished.Notes)
	assert.Len(t, gw.finished, 1)
}

func TestFinalizeTrip_UnknownTrip(t *testing.T) {
	uc, _, _ := newTestUC(t)

	_, err := uc.FinalizeTrip(context.Background(), uuid.New(), models.TripMetrics{})

	assert.Equal(t, tracking.KindNotFound, tracking.KindOf(err))
}

func TestFinalizeTrip_AlreadyFinished(t *testing.T) {
	uc, gw, _ := newTestUC(t)
	ctx := context.Background()

	trip, err := uc.StartTrip(ctx, models.TripStartRequest{DriverID: "driver-001", RouteID: "route-morning"})
	assert.NoError(t, err)

	_, err = uc.FinalizeTrip(ctx, trip.ID, models.TripMetrics{})
	assert.NoError(t, err)

	// The started to finished transition is one-way
	_, err = uc.FinalizeTrip(ctx, trip.ID, models.TripMetrics{})
	assert.Equal(t, tracking.KindValidation, tracking.KindOf(err))

	// The rejected call must not publish a second finished message
	assert.Len(t, gw.finished, 1)
}

func TestRecordEvents_OrderAndTypes(t *testing.T) {
	uc, gw, clock := newTestUC(t)
	ctx := context.Background()

	trip, err := uc.StartTrip(ctx, models.TripStartRequest{
		DriverID: "driver-001", RouteID: "route-morning", ChildIDs: []string{"child-1"},
	})
	assert.NoError(t, err)

	boarding, err := uc.RecordBoarding(ctx, trip.ID, models.TripEventRequest{
		ChildID: "child-1", Latitude: ptr(-6.2088), Longitude: ptr(106.8456),
	})
	assert.NoError(t, err)
	assert.Equal(t, models.EventTypeBoarding, boarding.Type)

	*clock = clock.Add(10 * time.Minute)
	alighting, err := uc.RecordAlighting(ctx, trip.ID, models.TripEventRequest{
		ChildID: "child-1", Latitude: ptr(-6.1751), Longitude: ptr(106.8650),
	})
	assert.NoError(t, err)
	assert.Equal(t, models.EventTypeAlighting, alighting.Type)

	detail, err := uc.GetTripData(ctx, trip.ID)
	assert.NoError(t, err)
	assert.Equal(t, 2, detail.EventCount)
	assert.Equal(t, models.EventTypeBoarding, detail.Events[0].Type)
	assert.Equal(t, models.EventTypeAlighting, detail.Events[1].Type)
	assert.True(t, detail.Events[1].Timestamp.After(detail.Events[0].Timestamp))

	assert.Len(t, gw.events, 2)
}

func TestRecordEvent_UnknownTripRejected(t *testing.T) {
	uc, _, _ := newTestUC(t)

	event, err := uc.RecordBoarding(context.Background(), uuid.New(), models.TripEventRequest{
		ChildID: "child-1", Latitude: ptr(-6.2088), Longitude: ptr(106.8456),
	})

	assert.Nil(t, event)
	assert.Equal(t, tracking.KindNotFound, tracking.KindOf(err))
}

func TestRecordEvent_Validation(t *testing.T) {
	uc, _, _ := newTestUC(t)
	ctx := context.Background()

	trip, err := uc.StartTrip(ctx, models.TripStartRequest{DriverID: "driver-001", RouteID: "route-morning"})
	assert.NoError(t, err)

	_, err = uc.RecordBoarding(ctx, trip.ID, models.TripEventRequest{
		Latitude: ptr(-6.2088), Longitude: ptr(106.8456),
	})
	assert.Equal(t, tracking.KindValidation, tracking.KindOf(err))

	_, err = uc.RecordBoarding(ctx, trip.ID, models.TripEventRequest{ChildID: "child-1"})
	assert.Equal(t, tracking.KindValidation, tracking.KindOf(err))
}

func TestGetTripData_UnknownTrip(t *testing.T) {
	uc, _, _ := newTestUC(t)

	detail, err := uc.GetTripData(context.Background(), uuid.New())

	assert.Nil(t, detail)
	assert.Equal(t, tracking.KindNotFound, tracking.KindOf(err))
}

func TestSweepStale(t *testing.T) {
	uc, _, clock := newTestUC(t)
	ctx := context.Background()

	_, err := uc.SaveLocation(ctx, models.LocationRequest{
		DriverID: "driver-stale", Latitude: ptr(-6.2088), Longitude: ptr(106.8456),
	})
	assert.NoError(t, err)

	*clock = clock.Add(4 * time.Minute)
	_, err = uc.SaveLocation(ctx, models.LocationRequest{
		DriverID: "driver-fresh", Latitude: ptr(-6.2090), Longitude: ptr(106.8460),
	})
	assert.NoError(t, err)

	// Two minutes later only the first sample has outlived the window
	*clock = clock.Add(2 * time.Minute)
	removed, err := uc.SweepStale(ctx)

	assert.NoError(t, err)
	assert.Equal(t, 1, removed)

	_, err = uc.GetCurrentLocation(ctx, "driver-stale")
	assert.Equal(t, tracking.KindNotFound, tracking.KindOf(err))

	fresh, err := uc.GetCurrentLocation(ctx, "driver-fresh")
	assert.NoError(t, err)
	assert.NotNil(t, fresh)
}

// interceptingRepo lets a test interleave a write between a read and the
// eviction that follows it
type interceptingRepo struct {
	tracking.TrackingRepo
	afterRead func()
}

func (r *interceptingRepo) GetCurrentLocation(ctx context.Context, driverID string) (*models.LocationSample, error) {
	sample, err := r.TrackingRepo.GetCurrentLocation(ctx, driverID)
	if r.afterRead != nil {
		r.afterRead()
	}
	return sample, err
}

func TestGetCurrentLocation_EvictionKeepsConcurrentlyStoredSample(t *testing.T) {
	base := repository.NewMemoryRepository()
	wrapped := &interceptingRepo{TrackingRepo: base}
	uc := NewTrackingUC(testConfig(), wrapped, repository.NewMemoryHistoryRepository(base), nil)

	current := time.Date(2026, 3, 10, 7, 0, 0, 0, time.UTC)
	uc.now = func() time.Time { return current }
	ctx := context.Background()

	_, err := uc.SaveLocation(ctx, models.LocationRequest{
		DriverID: "driver-001", Latitude: ptr(-6.2088), Longitude: ptr(106.8456),
	})
	assert.NoError(t, err)

	current = current.Add(6 * time.Minute)

	// Another request stores a fresh sample right after the expired one
	// was read but before the eviction runs
	fresh := models.LocationSample{
		ID:        uuid.New(),
		DriverID:  "driver-001",
		Latitude:  -6.2100,
		Longitude: 106.8460,
		Timestamp: current,
		CachedAt:  current,
	}
	wrapped.afterRead = func() {
		wrapped.afterRead = nil
		assert.NoError(t, base.SetCurrentLocation(ctx, fresh))
	}

	_, err = uc.GetCurrentLocation(ctx, "driver-001")
	assert.Equal(t, tracking.KindExpired, tracking.KindOf(err))

	// The fresh sample survived the eviction and is served on the next read
	got, err := uc.GetCurrentLocation(ctx, "driver-001")
	assert.NoError(t, err)
	assert.NotNil(t, got)
	assert.Equal(t, fresh.ID, got.ID)
}

func TestSweeper_EvictsStaleAndStops(t *testing.T) {
	uc, _, clock := newTestUC(t)
	ctx := context.Background()

	_, err := uc.SaveLocation(ctx, models.LocationRequest{
		DriverID: "driver-001", Latitude: ptr(-6.2088), Longitude: ptr(106.8456),
	})
	assert.NoError(t, err)

	*clock = clock.Add(6 * time.Minute)
	uc.StartSweeper(5 * time.Millisecond)

	assert.Eventually(t, func() bool {
		sample, err := uc.repo.GetCurrentLocation(ctx, "driver-001")
		return err == nil && sample == nil
	}, 2*time.Second, 5*time.Millisecond)

	// Stop blocks until the sweeper goroutine exits and tolerates repeats
	uc.Stop()
	uc.Stop()
}

func TestTripScenario_MorningRun(t *testing.T) {
	uc, _, clock := newTestUC(t)
	ctx := context.Background()

	// A driver starts the outbound run with two children assigned
	trip, err := uc.StartTrip(ctx, models.TripStartRequest{
		DriverID: "driver-001",
		RouteID:  "route-morning",
		Type:     models.TripTypeOutbound,
		ChildIDs: []string{"child-1", "child-2"},
	})
	assert.NoError(t, err)

	// Both children board at their stops
	for i, childID := range []string{"child-1", "child-2"} {
		*clock = clock.Add(3 * time.Minute)
		_, err = uc.RecordBoarding(ctx, trip.ID, models.TripEventRequest{
			ChildID:  childID,
			Latitude: ptr(-6.2088 + float64(i)*0.002), Longitude: ptr(106.8456),
		})
		assert.NoError(t, err)
	}

	// Both alight at school
	*clock = clock.Add(15 * time.Minute)
	for _, childID := range []string{"child-1", "child-2"} {
		_, err = uc.RecordAlighting(ctx, trip.ID, models.TripEventRequest{
			ChildID:  childID,
			Latitude: ptr(-6.1751), Longitude: ptr(106.8650),
		})
		assert.NoError(t, err)
	}

	finished, err := uc.FinalizeTrip(ctx, trip.ID, models.TripMetrics{
		TotalDistanceKm:      9.8,
		TotalDurationSeconds: 1260,
	})
	assert.NoError(t, err)

	detail, err := uc.GetTripData(ctx, trip.ID)
	assert.NoError(t, err)
	assert.Equal(t, models.TripStatusFinished, detail.Trip.Status)
	assert.Equal(t, 4, detail.EventCount)
	assert.Equal(t, finished.FinishedAt, detail.Trip.FinishedAt)
}
