package service

import (
	"context"
	"strings"

	"hail/internal/domain"
	"hail/internal/events"
	redisstore "hail/internal/redis"
)

// Geocoder resolves free-form address text to coordinates.
type Geocoder interface {
	ResolveCoordinates(ctx context.Context, address string) (lat, lng float64, err error)
}

// Notifier delivers an event to a connected principal's session.
// Delivery is best-effort: callers log failures and never retry or block.
type Notifier interface {
	Send(recipientID, event string, payload any) error
}

// EventPublisher emits ride lifecycle events to the event stream.
type EventPublisher interface {
	Publish(ctx context.Context, event events.RideEvent) error
}

// Broadcaster fans a newly created ride out to nearby captains.
type Broadcaster interface {
	Broadcast(ctx context.Context, ride *domain.Ride)
}

// RideCache is the read-path cache for rides.
type RideCache interface {
	GetRide(ctx context.Context, rideID string) (*redisstore.CachedRide, error)
	SetRide(ctx context.Context, ride *redisstore.CachedRide) error
	InvalidateRide(ctx context.Context, rideID string) error
}

// ParseVehicleClass validates a vehicle class string. Matching is
// case-insensitive; an empty class is rejected rather than defaulted.
func ParseVehicleClass(class string) (domain.VehicleClass, error) {
	switch domain.VehicleClass(strings.ToUpper(strings.TrimSpace(class))) {
	case domain.VehicleClassStandard:
		return domain.VehicleClassStandard, nil
	case domain.VehicleClassPremium:
		return domain.VehicleClassPremium, nil
	case domain.VehicleClassXL:
		return domain.VehicleClassXL, nil
	default:
		return "", ErrInvalidVehicleClass
	}
}
