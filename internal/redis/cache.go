package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

// CacheStore caches ride snapshots in Redis so status polls do not hit
// Postgres on every request.
type CacheStore struct {
	client *redis.Client
}

// NewCacheStore creates a new CacheStore.
func NewCacheStore(client *redis.Client) *CacheStore {
	return &CacheStore{client: client}
}

// RideCacheTTL is short: ride status changes quickly around acceptance.
const RideCacheTTL = 10 * time.Second

const rideCachePrefix = "cache:ride:"

// CachedRide is the cached public view of a ride. The OTP is deliberately
// not part of this struct.
type CachedRide struct {
	ID                 string    `json:"id"`
	RiderID            string    `json:"rider_id"`
	DriverID           string    `json:"driver_id,omitempty"`
	PickupAddress      string    `json:"pickup_address"`
	PickupLat          float64   `json:"pickup_lat"`
	PickupLng          float64   `json:"pickup_lng"`
	DestinationAddress string    `json:"destination_address"`
	DestinationLat     float64   `json:"destination_lat"`
	DestinationLng     float64   `json:"destination_lng"`
	VehicleClass       string    `json:"vehicle_class"`
	PaymentMethod      string    `json:"payment_method"`
	Status             string    `json:"status"`
	PaymentStatus      string    `json:"payment_status"`
	Fare               float64   `json:"fare"`
	DistanceKm         float64   `json:"distance_km"`
	CreatedAt          time.Time `json:"created_at"`
}

// GetRide retrieves a ride snapshot from cache. A miss returns (nil, nil).
func (s *CacheStore) GetRide(ctx context.Context, rideID string) (*CachedRide, error) {
	data, err := s.client.Get(ctx, rideCachePrefix+rideID).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}

	var ride CachedRide
	if err := json.Unmarshal(data, &ride); err != nil {
		return nil, err
	}
	return &ride, nil
}

// SetRide stores a ride snapshot in cache.
func (s *CacheStore) SetRide(ctx context.Context, ride *CachedRide) error {
	data, err := json.Marshal(ride)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, rideCachePrefix+ride.ID, data, RideCacheTTL).Err()
}

// InvalidateRide removes a ride snapshot from cache. Every lifecycle
// transition invalidates so polls never see a stale status for long.
func (s *CacheStore) InvalidateRide(ctx context.Context, rideID string) error {
	return s.client.Del(ctx, rideCachePrefix+rideID).Err()
}
