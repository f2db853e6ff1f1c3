package repository

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kanghoo/kanghoo/internal/pkg/database"
	"github.com/kanghoo/kanghoo/internal/pkg/models"
	"github.com/kanghoo/kanghoo/services/tracking"
)

const (
	// keyDriverLocation is the hash holding a driver's latest sample
	keyDriverLocation = "tracking:driver:%s:location"

	// RetentionTTL is how long a sample stays in Redis at all. Staleness
	// for serving reads is decided by the usecase; this only caps storage.
	RetentionTTL = 24 * time.Hour
)

const (
	fieldID        = "id"
	fieldRouteID   = "route_id"
	fieldLatitude  = "latitude"
	fieldLongitude = "longitude"
	fieldSpeed     = "speed_kmh"
	fieldHeading   = "heading_deg"
	fieldGeohash   = "geohash"
	fieldTimestamp = "timestamp"
	fieldCachedAt  = "cached_at"
)

// redisRepo stores current driver locations in Redis hashes and delegates
// trip and event storage to a base repository.
type redisRepo struct {
	tracking.TrackingRepo
	redisClient *database.RedisClient
}

// NewRedisRepository creates a tracking repository that keeps current
// locations in Redis so they survive a process restart
func NewRedisRepository(redisClient *database.RedisClient, base tracking.TrackingRepo) tracking.TrackingRepo {
	return &redisRepo{
		TrackingRepo: base,
		redisClient:  redisClient,
	}
}

func (r *redisRepo) SetCurrentLocation(ctx context.Context, sample models.LocationSample) error {
	locationKey := fmt.Sprintf(keyDriverLocation, sample.DriverID)
	locationData := map[string]interface{}{
		fieldID:        sample.ID.String(),
		fieldRouteID:   sample.RouteID,
		fieldLatitude:  strconv.FormatFloat(sample.Latitude, 'f', -1, 64),
		fieldLongitude: strconv.FormatFloat(sample.Longitude, 'f', -1, 64),
		fieldSpeed:     strconv.FormatFloat(sample.SpeedKmh, 'f', -1, 64),
		fieldHeading:   strconv.Itoa(sample.HeadingDeg),
		fieldGeohash:   sample.Geohash,
		fieldTimestamp: strconv.FormatInt(sample.Timestamp.Unix(), 10),
		fieldCachedAt:  strconv.FormatInt(sample.CachedAt.Unix(), 10),
	}

	if err := r.redisClient.HMSet(ctx, locationKey, locationData); err != nil {
		return fmt.Errorf("failed to store location update: %w", err)
	}

	if err := r.redisClient.Expire(ctx, locationKey, RetentionTTL); err != nil {
		return fmt.Errorf("failed to set location TTL: %w", err)
	}

	return nil
}

func (r *redisRepo) GetCurrentLocation(ctx context.Context, driverID string) (*models.LocationSample, error) {
	locationKey := fmt.Sprintf(keyDriverLocation, driverID)

	values, err := r.redisClient.HGetAll(ctx, locationKey)
	if err != nil {
		return nil, fmt.Errorf("failed to get location data: %w", err)
	}
	if len(values) == 0 {
		return nil, nil
	}

	return parseLocationHash(driverID, values)
}

// deleteIfSampleScript deletes the location hash only while it still holds
// the given sample id, so the eviction cannot race a concurrent store
const deleteIfSampleScript = `
if redis.call("HGET", KEYS[1], "id") == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`

func (r *redisRepo) DeleteCurrentLocationIf(ctx context.Context, driverID string, sampleID uuid.UUID) (bool, error) {
	locationKey := fmt.Sprintf(keyDriverLocation, driverID)
	result, err := r.redisClient.Eval(ctx, deleteIfSampleScript, []string{locationKey}, sampleID.String())
	if err != nil {
		return false, fmt.Errorf("failed to delete location: %w", err)
	}
	deleted, ok := result.(int64)
	return ok && deleted > 0, nil
}

func (r *redisRepo) ListCurrentLocations(ctx context.Context) ([]models.LocationSample, error) {
	keys, err := r.redisClient.Keys(ctx, fmt.Sprintf(keyDriverLocation, "*"))
	if err != nil {
		return nil, fmt.Errorf("failed to list location keys: %w", err)
	}

	samples := make([]models.LocationSample, 0, len(keys))
	for _, key := range keys {
		driverID := driverIDFromKey(key)
		sample, err := r.GetCurrentLocation(ctx, driverID)
		if err != nil {
			return nil, err
		}
		if sample != nil {
			samples = append(samples, *sample)
		}
	}
	return samples, nil
}

func driverIDFromKey(key string) string {
	trimmed := strings.TrimPrefix(key, "tracking:driver:")
	return strings.TrimSuffix(trimmed, ":location")
}

func parseLocationHash(driverID string, values map[string]string) (*models.LocationSample, error) {
	lat, err := strconv.ParseFloat(values[fieldLatitude], 64)
	if err != nil {
		return nil, fmt.Errorf("invalid latitude: %w", err)
	}

	lng, err := strconv.ParseFloat(values[fieldLongitude], 64)
	if err != nil {
		return nil, fmt.Errorf("invalid longitude: %w", err)
	}

	speed, err := strconv.ParseFloat(values[fieldSpeed], 64)
	if err != nil {
		speed = 0
	}

	heading, err := strconv.Atoi(values[fieldHeading])
	if err != nil {
		heading = 0
	}

	ts, err := strconv.ParseInt(values[fieldTimestamp], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid timestamp: %w", err)
	}

	cachedAt, err := strconv.ParseInt(values[fieldCachedAt], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid cached_at: %w", err)
	}

	id, err := uuid.Parse(values[fieldID])
	if err != nil {
		id = uuid.Nil
	}

	return &models.LocationSample{
		ID:         id,
		DriverID:   driverID,
		RouteID:    values[fieldRouteID],
		Latitude:   lat,
		Longitude:  lng,
		SpeedKmh:   speed,
		HeadingDeg: heading,
		Geohash:    values[fieldGeohash],
		Timestamp:  time.Unix(ts, 0),
		CachedAt:   time.Unix(cachedAt, 0),
	}, nil
}
