package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

// RideCacheTTL is short because ride status changes quickly while a
// confirmation race is in flight.
const RideCacheTTL = 10 * time.Second

const rideCachePrefix = "cache:ride:"

// CachedRide represents a cached ride entity for the read path. One-time
// codes are deliberately never cached.
type CachedRide struct {
	ID           string    `json:"id"`
	RiderID      string    `json:"rider_id"`
	CaptainID    string    `json:"captain_id"`
	Pickup       string    `json:"pickup"`
	Destination  string    `json:"destination"`
	Status       string    `json:"status"`
	Fare         float64   `json:"fare"`
	VehicleClass string    `json:"vehicle_class"`
	CreatedAt    time.Time `json:"created_at"`
	CancelledAt  time.Time `json:"cancelled_at,omitempty"`
	CancelReason string    `json:"cancel_reason,omitempty"`
}

// CacheStore handles entity caching in Redis.
type CacheStore struct {
	client *redis.Client
}

// NewCacheStore creates a new CacheStore.
func NewCacheStore(client *redis.Client) *CacheStore {
	return &CacheStore{client: client}
}

// GetRide retrieves a ride from cache. A cache miss returns (nil, nil).
func (s *CacheStore) GetRide(ctx context.Context, rideID string) (*CachedRide, error) {
	key := rideCachePrefix + rideID
	data, err := s.client.Get(ctx, key).Bytes()
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

// SetRide stores a ride in cache.
func (s *CacheStore) SetRide(ctx context.Context, ride *CachedRide) error {
	key := rideCachePrefix + ride.ID
	data, err := json.Marshal(ride)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, key, data, RideCacheTTL).Err()
}

// InvalidateRide removes a ride from cache.
func (s *CacheStore) InvalidateRide(ctx context.Context, rideID string) error {
	key := rideCachePrefix + rideID
	return s.client.Del(ctx, key).Err()
}
