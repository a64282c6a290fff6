package repository

import (
	"context"
	"time"

	"hail/internal/domain"
)

// RideStatusUpdate describes the fields committed together with a status
// transition. Either the whole set applies or none of it does.
type RideStatusUpdate struct {
	Status           domain.RideStatus
	CaptainID        string // assigned when non-empty
	ClearPickupOTP   bool
	ClearDeliveryOTP bool
	CancelledAt      time.Time
	CancelReason     string
}

// RideRepository defines the persistence operations for rides.
type RideRepository interface {
	// Create persists a new ride.
	Create(ctx context.Context, ride *domain.Ride) error

	// GetByID retrieves a ride by ID.
	GetByID(ctx context.Context, id string) (*domain.Ride, error)

	// GetAll retrieves all rides.
	GetAll(ctx context.Context) ([]*domain.Ride, error)

	// CompareAndUpdateStatus applies update only if the ride is currently in
	// the expected status. Returns ErrConflict when another writer moved the
	// ride first, ErrNotFound when the ride does not exist.
	CompareAndUpdateStatus(ctx context.Context, id string, expected domain.RideStatus, update RideStatusUpdate) error
}
