package domain

import "time"

// RideStatus represents the current status of a ride.
type RideStatus string

const (
	RideStatusRequested RideStatus = "REQUESTED"
	RideStatusAccepted  RideStatus = "ACCEPTED"
	RideStatusOngoing   RideStatus = "ONGOING"
	RideStatusCompleted RideStatus = "COMPLETED"
	RideStatusCancelled RideStatus = "CANCELLED"
)

// VehicleClass represents the vehicle category requested for a ride.
type VehicleClass string

const (
	VehicleClassStandard VehicleClass = "STANDARD"
	VehicleClassPremium  VehicleClass = "PREMIUM"
	VehicleClassXL       VehicleClass = "XL"
)

// CanTransition reports whether a ride may move from one status to another.
// Progression is strictly forward with no skips; CANCELLED is reachable from
// any non-terminal status.
func CanTransition(from, to RideStatus) bool {
	switch to {
	case RideStatusAccepted:
		return from == RideStatusRequested
	case RideStatusOngoing:
		return from == RideStatusAccepted
	case RideStatusCompleted:
		return from == RideStatusOngoing
	case RideStatusCancelled:
		return from == RideStatusRequested || from == RideStatusAccepted || from == RideStatusOngoing
	default:
		return false
	}
}

// Terminal reports whether a status admits no further transitions.
func Terminal(status RideStatus) bool {
	return status == RideStatusCompleted || status == RideStatusCancelled
}

// Ride represents a ride request in the system.
type Ride struct {
	ID           string
	RiderID      string
	CaptainID    string // empty until a captain confirms
	Pickup       string
	Destination  string
	VehicleClass VehicleClass
	Fare         float64 // computed once at creation, never recomputed
	PickupOTP    string  // cleared when the ride starts
	DeliveryOTP  string  // cleared when the ride ends
	Status       RideStatus
	CreatedAt    time.Time
	CancelledAt  time.Time
	CancelReason string
}
