package cache

import (
	"context"
	"time"
)

// Intended cache lifetimes per data class
const (
	TTLResource   = 30 * time.Minute
	TTLUserData   = 1 * time.Hour
	TTLActiveTrip = 2 * time.Minute
	TTLStatistics = 10 * time.Minute
)

// SetResource caches a rarely changing resource (route definitions, plan
// descriptions) for 30 minutes
func (m *Manager) SetResource(ctx context.Context, name string, value interface{}) {
	m.Set(ctx, "resource:"+name, value, TTLResource)
}

// GetResource loads a cached resource
func (m *Manager) GetResource(ctx context.Context, name string, dest interface{}) bool {
	return m.Get(ctx, "resource:"+name, dest)
}

// SetUserData caches a user profile for one hour. User keys are
// persist-eligible and survive restarts.
func (m *Manager) SetUserData(ctx context.Context, userID string, value interface{}) {
	m.Set(ctx, "user:"+userID, value, TTLUserData)
}

// GetUserData loads cached user data
func (m *Manager) GetUserData(ctx context.Context, userID string, dest interface{}) bool {
	return m.Get(ctx, "user:"+userID, dest)
}

// SetActiveTrip caches active-trip data for two minutes; trip state changes
// quickly so the window is short
func (m *Manager) SetActiveTrip(ctx context.Context, tripID string, value interface{}) {
	m.Set(ctx, "trip:active:"+tripID, value, TTLActiveTrip)
}

// GetActiveTrip loads cached active-trip data
func (m *Manager) GetActiveTrip(ctx context.Context, tripID string, dest interface{}) bool {
	return m.Get(ctx, "trip:active:"+tripID, dest)
}

// DeleteActiveTrip drops cached active-trip data once the trip ends
func (m *Manager) DeleteActiveTrip(ctx context.Context, tripID string) {
	m.Delete(ctx, "trip:active:"+tripID)
}

// SetStatistics caches computed statistics for ten minutes. Stats keys are
// persist-eligible and survive restarts.
func (m *Manager) SetStatistics(ctx context.Context, name string, value interface{}) {
	m.Set(ctx, "stats:"+name, value, TTLStatistics)
}

// GetStatistics loads cached statistics
func (m *Manager) GetStatistics(ctx context.Context, name string, dest interface{}) bool {
	return m.Get(ctx, "stats:"+name, dest)
}
