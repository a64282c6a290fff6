package domain

import "time"

// CaptainStatus represents the current status of a captain.
type CaptainStatus string

const (
	CaptainStatusOnline  CaptainStatus = "ONLINE"
	CaptainStatusOffline CaptainStatus = "OFFLINE"
	CaptainStatusOnRide  CaptainStatus = "ON_RIDE"
)

// Captain represents a driver account eligible to accept ride offers.
type Captain struct {
	ID           string
	Name         string
	Phone        string
	Status       CaptainStatus
	VehicleClass VehicleClass
	CreatedAt    time.Time
}

// OfferState represents the state of a ride offer on a captain's worklist.
type OfferState string

const (
	OfferStateOffered  OfferState = "OFFERED"
	OfferStateAccepted OfferState = "ACCEPTED"
	OfferStateExpired  OfferState = "EXPIRED"
)

// Offer is one (captain, ride) entry on a captain's worklist. Offers carry an
// explicit state rather than being an append-only list so that entries for
// captains who lost the confirmation race can be expired.
type Offer struct {
	CaptainID string
	RideID    string
	State     OfferState
	OfferedAt time.Time
	UpdatedAt time.Time
}
