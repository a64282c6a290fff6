package redis

import (
	"context"
	"time"
)

// LocationStoreInterface defines the interface for captain location operations.
type LocationStoreInterface interface {
	UpdateLocation(ctx context.Context, captainID string, lat, lng float64) error
	FindNearbyCaptains(ctx context.Context, lat, lng, radiusKm float64) ([]CaptainLocation, error)
	RemoveLocation(ctx context.Context, captainID string) error
}

// LockStoreInterface defines the interface for per-ride distributed locking.
type LockStoreInterface interface {
	AcquireRideLock(ctx context.Context, rideID string, ttl time.Duration) (bool, error)
	ReleaseRideLock(ctx context.Context, rideID string) error
}

// Ensure concrete types implement interfaces.
var (
	_ LocationStoreInterface = (*LocationStore)(nil)
	_ LockStoreInterface     = (*LockStore)(nil)
)
