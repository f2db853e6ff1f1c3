package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/kanghoo/kanghoo/internal/pkg/models"
	"github.com/kanghoo/kanghoo/services/tracking"
)

// historyRepo persists location history in PostgreSQL so history queries
// survive restarts and can be filtered server-side.
type historyRepo struct {
	db *sqlx.DB
}

// NewHistoryRepository creates a Postgres-backed location history repository
func NewHistoryRepository(db *sqlx.DB) tracking.HistoryRepo {
	return &historyRepo{db: db}
}

func (r *historyRepo) AppendLocation(ctx context.Context, sample models.LocationSample) error {
	query := `
		INSERT INTO location_history (
			id, driver_id, route_id, latitude, longitude,
			speed_kmh, heading_deg, geohash, timestamp, cached_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.db.ExecContext(
		ctx,
		query,
		sample.ID,
		sample.DriverID,
		sample.RouteID,
		sample.Latitude,
		sample.Longitude,
		sample.SpeedKmh,
		sample.HeadingDeg,
		sample.Geohash,
		sample.Timestamp,
		sample.CachedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert location history: %w", err)
	}
	return nil
}

func (r *historyRepo) QueryLocations(ctx context.Context, driverID string, filter models.HistoryFilter) ([]models.LocationSample, error) {
	query := `
		SELECT id, driver_id, route_id, latitude, longitude,
		       speed_kmh, heading_deg, geohash, timestamp, cached_at
		FROM location_history
		WHERE driver_id = $1
	`
	args := []interface{}{driverID}

	if !filter.Start.IsZero() {
		args = append(args, filter.Start)
		query += fmt.Sprintf(" AND timestamp >= $%d", len(args))
	}
	if !filter.End.IsZero() {
		args = append(args, filter.End)
		query += fmt.Sprintf(" AND timestamp <= $%d", len(args))
	}

	query += " ORDER BY timestamp DESC"

	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	samples := make([]models.LocationSample, 0)
	if err := r.db.SelectContext(ctx, &samples, query, args...); err != nil {
		return nil, fmt.Errorf("failed to query location history: %w", err)
	}
	return samples, nil
}
