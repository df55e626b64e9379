package redis

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"hail/internal/geo"
	"hail/internal/location"
)

const (
	driverLocationKey = "drivers:locations"
	driverLastSeenKey = "drivers:last_seen"
)

// LocationStore implements location.Store on Redis GEO commands. Positions
// live in a geo set; report times live in a hash keyed by driver so queries
// can exclude stale drivers without purging them.
type LocationStore struct {
	client    *redis.Client
	freshness time.Duration
}

// NewLocationStore creates a LocationStore with the given freshness window.
func NewLocationStore(client *redis.Client, freshness time.Duration) *LocationStore {
	if freshness <= 0 {
		freshness = location.DefaultFreshness
	}
	return &LocationStore{client: client, freshness: freshness}
}

var _ location.Store = (*LocationStore)(nil)

// Upsert stores a driver's position using GEOADD and records the report time.
func (s *LocationStore) Upsert(ctx context.Context, driverID string, pos geo.Point) error {
	if !pos.IsValid() {
		return location.ErrInvalidCenter
	}

	pipe := s.client.TxPipeline()
	pipe.GeoAdd(ctx, driverLocationKey, &redis.GeoLocation{
		Name:      driverID,
		Longitude: pos.Lng,
		Latitude:  pos.Lat,
	})
	pipe.HSet(ctx, driverLastSeenKey, driverID, strconv.FormatInt(time.Now().UnixMilli(), 10))
	_, err := pipe.Exec(ctx)
	return err
}

// Query returns fresh drivers within radiusKm of center, nearest first.
func (s *LocationStore) Query(ctx context.Context, center geo.Point, radiusKm float64) ([]location.DriverLocation, error) {
	if !center.IsValid() {
		return nil, location.ErrInvalidCenter
	}

	results, err := s.client.GeoRadius(ctx, driverLocationKey, center.Lng, center.Lat, &redis.GeoRadiusQuery{
		Radius:    radiusKm,
		Unit:      "km",
		WithCoord: true,
		Sort:      "ASC",
	}).Result()
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, nil
	}

	ids := make([]string, len(results))
	for i, r := range results {
		ids[i] = r.Name
	}
	lastSeen, err := s.client.HMGet(ctx, driverLastSeenKey, ids...).Result()
	if err != nil {
		return nil, err
	}

	cutoff := time.Now().Add(-s.freshness).UnixMilli()
	locations := make([]location.DriverLocation, 0, len(results))
	for i, r := range results {
		raw, ok := lastSeen[i].(string)
		if !ok {
			continue
		}
		ms, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || ms < cutoff {
			continue
		}
		locations = append(locations, location.DriverLocation{
			DriverID:   r.Name,
			Position:   geo.Point{Lat: r.Latitude, Lng: r.Longitude},
			ReportedAt: time.UnixMilli(ms),
		})
	}

	return locations, nil
}

// Remove deletes a driver's position from the geo index.
func (s *LocationStore) Remove(ctx context.Context, driverID string) error {
	pipe := s.client.TxPipeline()
	pipe.ZRem(ctx, driverLocationKey, driverID)
	pipe.HDel(ctx, driverLastSeenKey, driverID)
	_, err := pipe.Exec(ctx)
	return err
}
