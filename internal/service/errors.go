package service

import "errors"

var (
	// ErrRiderRequired is returned when rider ID is empty.
	ErrRiderRequired = errors.New("rider id is required")

	// ErrPickupRequired is returned when the pickup address is empty.
	ErrPickupRequired = errors.New("pickup address is required")

	// ErrDestinationRequired is returned when the destination address is empty.
	ErrDestinationRequired = errors.New("destination address is required")

	// ErrInvalidVehicleClass is returned when the vehicle class is missing or unknown.
	ErrInvalidVehicleClass = errors.New("invalid vehicle class")

	// ErrRideIDRequired is returned when ride ID is empty.
	ErrRideIDRequired = errors.New("ride id is required")

	// ErrOTPRequired is returned when the one-time code is missing from the request.
	ErrOTPRequired = errors.New("otp is required")

	// ErrCaptainRequired is returned when captain identity is missing.
	ErrCaptainRequired = errors.New("captain id is required")

	// ErrCaptainUnknown is returned when the acting captain does not exist.
	ErrCaptainUnknown = errors.New("unknown captain")

	// ErrCaptainNotAssigned is returned when the acting captain is not the
	// captain assigned to the ride.
	ErrCaptainNotAssigned = errors.New("captain not assigned to this ride")

	// ErrRideAlreadyAccepted is returned when confirming a ride that is no
	// longer in REQUESTED state, including losing a confirmation race.
	ErrRideAlreadyAccepted = errors.New("ride already accepted")

	// ErrRideNotAccepted is returned when starting a ride that is not in
	// ACCEPTED state.
	ErrRideNotAccepted = errors.New("ride not accepted")

	// ErrRideNotOngoing is returned when ending a ride that is not in
	// ONGOING state.
	ErrRideNotOngoing = errors.New("ride not ongoing")

	// ErrRideNotCancellable is returned when cancelling a ride in a terminal state.
	ErrRideNotCancellable = errors.New("ride cannot be cancelled in current state")

	// ErrInvalidOTP is returned when the supplied one-time code does not
	// match the stored code, or the code was already consumed.
	ErrInvalidOTP = errors.New("invalid otp")

	// ErrLocationNotFound is returned when an address cannot be resolved to coordinates.
	ErrLocationNotFound = errors.New("location not found")

	// ErrGeoUnavailable is returned when the geocoding dependency is unreachable.
	ErrGeoUnavailable = errors.New("geocoding service unavailable")

	// ErrInvalidCoordinates is returned when a latitude/longitude pair is out of range.
	ErrInvalidCoordinates = errors.New("invalid coordinates")
)
