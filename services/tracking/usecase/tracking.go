package usecase

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kanghoo/kanghoo/internal/pkg/logger"
	"github.com/kanghoo/kanghoo/internal/pkg/models"
	"github.com/kanghoo/kanghoo/internal/utils"
	"github.com/kanghoo/kanghoo/services/tracking"
)

// TrackingUC implements the tracking.TrackingUC interface
type TrackingUC struct {
	repo    tracking.TrackingRepo
	history tracking.HistoryRepo
	gw      tracking.TrackingGW

	locationTTL  time.Duration
	historyLimit int

	// now is swappable so TTL behavior can be tested without sleeping
	now func() time.Time

	stopOnce sync.Once
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

// NewTrackingUC creates a new tracking use case. history and gw may be nil;
// the corresponding side effects are then skipped.
func NewTrackingUC(cfg *models.Config, repo tracking.TrackingRepo, history tracking.HistoryRepo, gw tracking.TrackingGW) *TrackingUC {
	locationTTL := time.Duration(cfg.Tracking.LocationTTLSeconds) * time.Second
	if locationTTL <= 0 {
		locationTTL = 5 * time.Minute
	}
	historyLimit := cfg.Tracking.HistoryLimit
	if historyLimit <= 0 {
		historyLimit = 100
	}

	return &TrackingUC{
		repo:         repo,
		history:      history,
		gw:           gw,
		locationTTL:  locationTTL,
		historyLimit: historyLimit,
		now:          time.Now,
		stopCh:       make(chan struct{}),
	}
}

// SaveLocation validates and stores a driver's current location, replacing
// any prior sample for that driver
func (uc *TrackingUC) SaveLocation(ctx context.Context, req models.LocationRequest) (*models.LocationSample, error) {
	if req.DriverID == "" {
		return nil, tracking.NewValidationError("driver_id is required")
	}
	if req.Latitude == nil || req.Longitude == nil {
		return nil, tracking.NewValidationError("latitude and longitude are required")
	}
	lat, lng := *req.Latitude, *req.Longitude
	if !utils.ValidCoordinates(lat, lng) {
		return nil, tracking.NewValidationError("invalid location coordinates")
	}

	now := uc.now()
	timestamp := now
	if req.Timestamp != nil && !req.Timestamp.IsZero() {
		timestamp = *req.Timestamp
	}

	sample := models.LocationSample{
		ID:         uuid.New(),
		DriverID:   req.DriverID,
		RouteID:    req.RouteID,
		Latitude:   lat,
		Longitude:  lng,
		SpeedKmh:   req.SpeedKmh,
		HeadingDeg: req.HeadingDeg,
		Geohash:    utils.EncodePoint(lat, lng),
		Timestamp:  timestamp,
		CachedAt:   now,
	}

	// Previous sample feeds the distance delta on the published update
	prev, err := uc.repo.GetCurrentLocation(ctx, req.DriverID)
	if err != nil {
		logger.Warn("Failed to read previous location",
			logger.String("driver_id", req.DriverID),
			logger.Err(err))
		prev = nil
	}

	if err := uc.repo.SetCurrentLocation(ctx, sample); err != nil {
		return nil, tracking.NewInternalError("failed to store location", err)
	}

	if uc.history != nil {
		if err := uc.history.AppendLocation(ctx, sample); err != nil {
			logger.Warn("Failed to store location history",
				logger.String("driver_id", req.DriverID),
				logger.Err(err))
		}
	}

	if uc.gw != nil {
		update := models.LocationUpdate{
			DriverID: sample.DriverID,
			RouteID:  sample.RouteID,
			Sample:   sample,
		}
		if prev != nil {
			update.DistanceDeltaKm = utils.CalculateDistance(
				utils.GeoPoint{Latitude: prev.Latitude, Longitude: prev.Longitude},
				utils.GeoPoint{Latitude: sample.Latitude, Longitude: sample.Longitude},
			)
		}
		if err := uc.gw.PublishLocationUpdate(ctx, update); err != nil {
			logger.Warn("Failed to publish location update",
				logger.String("driver_id", req.DriverID),
				logger.Err(err))
		}
	}

	logger.Info("Stored driver location",
		logger.String("driver_id", sample.DriverID),
		logger.String("route_id", sample.RouteID),
		logger.Float64("latitude", sample.Latitude),
		logger.Float64("longitude", sample.Longitude))

	return &sample, nil
}

// GetCurrentLocation returns the driver's latest sample, evicting it when
// it has outlived the freshness window
func (uc *TrackingUC) GetCurrentLocation(ctx context.Context, driverID string) (*models.LocationSample, error) {
	if driverID == "" {
		return nil, tracking.NewValidationError("driver_id is required")
	}

	sample, err := uc.repo.GetCurrentLocation(ctx, driverID)
	if err != nil {
		return nil, tracking.NewInternalError("failed to read location", err)
	}
	if sample == nil {
		return nil, tracking.NewNotFoundError("no location found for driver " + driverID)
	}

	if uc.now().Sub(sample.CachedAt) > uc.locationTTL {
		// Conditional on the sample id: a fresh sample stored between the
		// read and the eviction must survive
		if _, err := uc.repo.DeleteCurrentLocationIf(ctx, driverID, sample.ID); err != nil {
			logger.Warn("Failed to evict stale location",
				logger.String("driver_id", driverID),
				logger.Err(err))
		}
		return nil, tracking.NewExpiredError("location for driver " + driverID + " has expired")
	}

	return sample, nil
}

// GetLocationHistory returns a bounded, newest-first sequence of samples.
// An empty slice, not fabricated data, is returned when no history exists.
func (uc *TrackingUC) GetLocationHistory(ctx context.Context, driverID string, filter models.HistoryFilter) ([]models.LocationSample, error) {
	if driverID == "" {
		return nil, tracking.NewValidationError("driver_id is required")
	}
	if !filter.Start.IsZero() && !filter.End.IsZero() && filter.Start.After(filter.End) {
		return nil, tracking.NewValidationError("start must be before end")
	}
	if filter.Limit <= 0 || filter.Limit > uc.historyLimit {
		filter.Limit = uc.historyLimit
	}

	if uc.history == nil {
		return []models.LocationSample{}, nil
	}

	samples, err := uc.history.QueryLocations(ctx, driverID, filter)
	if err != nil {
		return nil, tracking.NewInternalError("failed to query location history", err)
	}
	return samples, nil
}

// StartTrip creates a trip in the started state
func (uc *TrackingUC) StartTrip(ctx context.Context, req models.TripStartRequest) (*models.Trip, error) {
	if req.DriverID == "" {
		return nil, tracking.NewValidationError("driver_id is required")
	}
	if req.RouteID == "" {
		return nil, tracking.NewValidationError("route_id is required")
	}

	tripType := req.Type
	if tripType == "" {
		tripType = models.TripTypeOutbound
	}
	if tripType != models.TripTypeOutbound && tripType != models.TripTypeReturn {
		return nil, tracking.NewValidationError("invalid trip type: " + string(tripType))
	}

	childIDs := req.ChildIDs
	if childIDs == nil {
		childIDs = []string{}
	}

	trip := &models.Trip{
		ID:        uuid.New(),
		DriverID:  req.DriverID,
		RouteID:   req.RouteID,
		Type:      tripType,
		Status:    models.TripStatusStarted,
		ChildIDs:  childIDs,
		StartedAt: uc.now(),
	}

	if err := uc.repo.CreateTrip(ctx, trip); err != nil {
		return nil, tracking.NewInternalError("failed to create trip", err)
	}

	if uc.gw != nil {
		if err := uc.gw.PublishTripStarted(ctx, *trip); err != nil {
			logger.Warn("Failed to publish trip started event",
				logger.String("trip_id", trip.ID.String()),
				logger.Err(err))
		}
	}

	logger.Info("Started trip",
		logger.String("trip_id", trip.ID.String()),
		logger.String("driver_id", trip.DriverID),
		logger.String("route_id", trip.RouteID),
		logger.Int("children", len(trip.ChildIDs)))

	return trip, nil
}

// FinalizeTrip flips a started trip to finished and merges the final metrics.
// The transition is one-way; finalizing twice is rejected.
func (uc *TrackingUC) FinalizeTrip(ctx context.Context, tripID uuid.UUID, metrics models.TripMetrics) (*models.Trip, error) {
	trip, err := uc.repo.CompleteTrip(ctx, tripID, uc.now(), metrics)
	if err != nil {
		if errors.Is(err, tracking.ErrTripFinished) {
			return nil, tracking.NewValidationError("trip already finalized: " + tripID.String())
		}
		return nil, tracking.NewInternalError("failed to update trip", err)
	}
	if trip == nil {
		return nil, tracking.NewNotFoundError("trip not found: " + tripID.String())
	}

	if uc.gw != nil {
		if err := uc.gw.PublishTripFinished(ctx, *trip); err != nil {
			logger.Warn("Failed to publish trip finished event",
				logger.String("trip_id", trip.ID.String()),
				logger.Err(err))
		}
	}

	logger.Info("Finalized trip",
		logger.String("trip_id", trip.ID.String()),
		logger.Float64("total_distance_km", trip.TotalDistanceKm),
		logger.Int("total_duration_seconds", trip.TotalDurationSeconds))

	return trip, nil
}

// RecordBoarding records a child boarding during a trip
func (uc *TrackingUC) RecordBoarding(ctx context.Context, tripID uuid.UUID, req models.TripEventRequest) (*models.TripEvent, error) {
	return uc.recordEvent(ctx, tripID, models.EventTypeBoarding, req)
}

// RecordAlighting records a child alighting during a trip
func (uc *TrackingUC) RecordAlighting(ctx context.Context, tripID uuid.UUID, req models.TripEventRequest) (*models.TripEvent, error) {
	return uc.recordEvent(ctx, tripID, models.EventTypeAlighting, req)
}

func (uc *TrackingUC) recordEvent(ctx context.Context, tripID uuid.UUID, eventType models.EventType, req models.TripEventRequest) (*models.TripEvent, error) {
	if req.ChildID == "" {
		return nil, tracking.NewValidationError("child_id is required")
	}
	if req.Latitude == nil || req.Longitude == nil {
		return nil, tracking.NewValidationError("latitude and longitude are required")
	}
	lat, lng := *req.Latitude, *req.Longitude
	if !utils.ValidCoordinates(lat, lng) {
		return nil, tracking.NewValidationError("invalid location coordinates")
	}

	// Events against unknown trips are rejected rather than silently
	// creating an orphaned event list
	trip, err := uc.repo.GetTrip(ctx, tripID)
	if err != nil {
		return nil, tracking.NewInternalError("failed to read trip", err)
	}
	if trip == nil {
		return nil, tracking.NewNotFoundError("trip not found: " + tripID.String())
	}

	timestamp := uc.now()
	if req.Timestamp != nil && !req.Timestamp.IsZero() {
		timestamp = *req.Timestamp
	}

	event := models.TripEvent{
		ID:        uuid.New(),
		TripID:    tripID,
		Type:      eventType,
		ChildID:   req.ChildID,
		Latitude:  lat,
		Longitude: lng,
		Geohash:   utils.EncodePoint(lat, lng),
		Timestamp: timestamp,
	}

	if err := uc.repo.AppendEvent(ctx, event); err != nil {
		return nil, tracking.NewInternalError("failed to append event", err)
	}

	if uc.gw != nil {
		if err := uc.gw.PublishTripEvent(ctx, event); err != nil {
			logger.Warn("Failed to publish trip event",
				logger.String("trip_id", tripID.String()),
				logger.String("event_type", string(eventType)),
				logger.Err(err))
		}
	}

	logger.Info("Recorded trip event",
		logger.String("trip_id", tripID.String()),
		logger.String("event_id", event.ID.String()),
		logger.String("event_type", string(eventType)),
		logger.String("child_id", event.ChildID))

	return &event, nil
}

// GetTripData returns a trip together with its ordered event log
func (uc *TrackingUC) GetTripData(ctx context.Context, tripID uuid.UUID) (*models.TripDetail, error) {
	trip, err := uc.repo.GetTrip(ctx, tripID)
	if err != nil {
		return nil, tracking.NewInternalError("failed to read trip", err)
	}
	if trip == nil {
		return nil, tracking.NewNotFoundError("trip not found: " + tripID.String())
	}

	events, err := uc.repo.GetEvents(ctx, tripID)
	if err != nil {
		return nil, tracking.NewInternalError("failed to read trip events", err)
	}

	return &models.TripDetail{
		Trip:       *trip,
		Events:     events,
		EventCount: len(events),
	}, nil
}

// SweepStale removes current-location samples that outlived the freshness
// window. Trips and events live in their own stores and are never swept.
func (uc *TrackingUC) SweepStale(ctx context.Context) (int, error) {
	samples, err := uc.repo.ListCurrentLocations(ctx)
	if err != nil {
		return 0, tracking.NewInternalError("failed to list locations", err)
	}

	now := uc.now()
	removed := 0
	for _, sample := range samples {
		if now.Sub(sample.CachedAt) <= uc.locationTTL {
			continue
		}
		deleted, err := uc.repo.DeleteCurrentLocationIf(ctx, sample.DriverID, sample.ID)
		if err != nil {
			logger.Warn("Failed to evict stale location",
				logger.String("driver_id", sample.DriverID),
				logger.Err(err))
			continue
		}
		if deleted {
			removed++
		}
	}

	if removed > 0 {
		logger.Info("Swept stale locations", logger.Int("removed", removed))
	}
	return removed, nil
}

// StartSweeper runs SweepStale on the given interval until Stop is called.
// The sweep is advisory; expiry is re-checked on every read.
func (uc *TrackingUC) StartSweeper(interval time.Duration) {
	if interval <= 0 {
		interval = 5 * time.Minute
	}

	uc.wg.Add(1)
	go func() {
		defer uc.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				if _, err := uc.SweepStale(context.Background()); err != nil {
					logger.Warn("Stale location sweep failed", logger.Err(err))
				}
			case <-uc.stopCh:
				return
			}
		}
	}()
}

// Stop terminates the background sweeper and waits for it to exit
func (uc *TrackingUC) Stop() {
	uc.stopOnce.Do(func() {
		close(uc.stopCh)
	})
	uc.wg.Wait()
}
