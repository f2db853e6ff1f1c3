package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kanghoo/kanghoo/internal/pkg/models"
	"github.com/kanghoo/kanghoo/services/tracking"
)

const (
	// maxHistoryPerDriver bounds the in-memory history ring so a chatty
	// driver cannot grow the process without limit
	maxHistoryPerDriver = 500
)

// memoryRepo keeps locations, trips and events in three typed maps, each
// guarded by the same mutex. It backs the service when no durable store is
// configured and is the fixture store in tests.
type memoryRepo struct {
	mu        sync.RWMutex
	locations map[string]models.LocationSample
	trips     map[uuid.UUID]*models.Trip
	events    map[uuid.UUID][]models.TripEvent
	history   map[string][]models.LocationSample
}

// NewMemoryRepository creates an in-memory tracking repository
func NewMemoryRepository() tracking.TrackingRepo {
	return &memoryRepo{
		locations: make(map[string]models.LocationSample),
		trips:     make(map[uuid.UUID]*models.Trip),
		events:    make(map[uuid.UUID][]models.TripEvent),
		history:   make(map[string][]models.LocationSample),
	}
}

// NewMemoryHistoryRepository exposes the same store through the history
// interface so a single instance can serve both roles.
func NewMemoryHistoryRepository(repo tracking.TrackingRepo) tracking.HistoryRepo {
	if m, ok := repo.(*memoryRepo); ok {
		return m
	}
	return nil
}

func (m *memoryRepo) SetCurrentLocation(ctx context.Context, sample models.LocationSample) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.locations[sample.DriverID] = sample
	return nil
}

func (m *memoryRepo) GetCurrentLocation(ctx context.Context, driverID string) (*models.LocationSample, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sample, ok := m.locations[driverID]
	if !ok {
		return nil, nil
	}
	return &sample, nil
}

func (m *memoryRepo) DeleteCurrentLocationIf(ctx context.Context, driverID string, sampleID uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	current, ok := m.locations[driverID]
	if !ok || current.ID != sampleID {
		// A newer sample replaced the one the caller saw; leave it alone
		return false, nil
	}
	delete(m.locations, driverID)
	return true, nil
}

func (m *memoryRepo) ListCurrentLocations(ctx context.Context) ([]models.LocationSample, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	samples := make([]models.LocationSample, 0, len(m.locations))
	for _, sample := range m.locations {
		samples = append(samples, sample)
	}
	return samples, nil
}

func (m *memoryRepo) CreateTrip(ctx context.Context, trip *models.Trip) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := *trip
	stored.ChildIDs = append([]string(nil), trip.ChildIDs...)
	m.trips[trip.ID] = &stored
	return nil
}

func (m *memoryRepo) GetTrip(ctx context.Context, tripID uuid.UUID) (*models.Trip, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	trip, ok := m.trips[tripID]
	if !ok {
		return nil, nil
	}
	out := *trip
	out.ChildIDs = append([]string(nil), trip.ChildIDs...)
	return &out, nil
}

func (m *memoryRepo) CompleteTrip(ctx context.Context, tripID uuid.UUID, finishedAt time.Time, metrics models.TripMetrics) (*models.Trip, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	trip, ok := m.trips[tripID]
	if !ok {
		return nil, nil
	}
	// The status check and the transition share the lock so two callers
	// cannot both take the started to finished edge
	if trip.Status == models.TripStatusFinished {
		return nil, tracking.ErrTripFinished
	}

	trip.Status = models.TripStatusFinished
	trip.FinishedAt = &finishedAt
	trip.TotalDistanceKm = metrics.TotalDistanceKm
	trip.TotalDurationSeconds = metrics.TotalDurationSeconds
	trip.Notes = metrics.Notes

	out := *trip
	out.ChildIDs = append([]string(nil), trip.ChildIDs...)
	return &out, nil
}

func (m *memoryRepo) AppendEvent(ctx context.Context, event models.TripEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events[event.TripID] = append(m.events[event.TripID], event)
	return nil
}

func (m *memoryRepo) GetEvents(ctx context.Context, tripID uuid.UUID) ([]models.TripEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]models.TripEvent(nil), m.events[tripID]...), nil
}

func (m *memoryRepo) AppendLocation(ctx context.Context, sample models.LocationSample) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	entries := append(m.history[sample.DriverID], sample)
	if len(entries) > maxHistoryPerDriver {
		entries = entries[len(entries)-maxHistoryPerDriver:]
	}
	m.history[sample.DriverID] = entries
	return nil
}

func (m *memoryRepo) QueryLocations(ctx context.Context, driverID string, filter models.HistoryFilter) ([]models.LocationSample, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	matched := make([]models.LocationSample, 0)
	for _, sample := range m.history[driverID] {
		if !filter.Start.IsZero() && sample.Timestamp.Before(filter.Start) {
			continue
		}
		if !filter.End.IsZero() && sample.Timestamp.After(filter.End) {
			continue
		}
		matched = append(matched, sample)
	}

	// Newest first
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].Timestamp.After(matched[j].Timestamp)
	})

	if filter.Limit > 0 && len(matched) > filter.Limit {
		matched = matched[:filter.Limit]
	}
	return matched, nil
}
