package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"hail/internal/domain"
	"hail/internal/events"
	"hail/internal/observability"
	redisstore "hail/internal/redis"
	"hail/internal/repository"
	"hail/internal/ws"
)

// Events pushed to rider sessions.
const (
	EventRideConfirmed = "ride-confirmed"
	EventRideEnded     = "ride-ended"
	EventRideCancelled = "ride-cancelled"
	// EventRideTaken tells a losing captain that the ride went to someone else.
	EventRideTaken = "ride-taken"
)

const rideLockTTL = 10 * time.Second

// RideServiceDeps contains the collaborators of the lifecycle manager.
// Locks, Cache and Events may be nil; the service degrades gracefully.
type RideServiceDeps struct {
	Rides      repository.RideRepository
	Captains   repository.CaptainRepository
	Fare       *FareService
	OTP        *OTPGenerator
	Dispatcher Broadcaster
	Notifier   Notifier
	Locks      redisstore.LockStoreInterface
	Cache      RideCache
	Events     EventPublisher
	Logger     *slog.Logger

	// NotifyLosers controls whether captains whose offer expired are told
	// the ride was taken.
	NotifyLosers bool
	// NotifyRideEnded enables the rider notification on completion.
	NotifyRideEnded bool
}

// RideService owns the ride lifecycle: creation, fare, and the
// REQUESTED → ACCEPTED → ONGOING → COMPLETED transitions, with CANCELLED
// reachable from any non-terminal state. Every transition commits through a
// single conditional update on the current status, so no two concurrent
// writers can both succeed.
type RideService struct {
	deps RideServiceDeps
}

// NewRideService creates a new RideService.
func NewRideService(deps RideServiceDeps) *RideService {
	return &RideService{deps: deps}
}

// CreateRideRequest contains the parameters for creating a ride.
type CreateRideRequest struct {
	RiderID      string
	Pickup       string
	Destination  string
	VehicleClass string
}

// CreateRide validates the request, prices it, issues the one-time codes and
// persists the ride in REQUESTED state. The captain broadcast runs on a
// detached goroutine with a background context: it can neither delay nor
// fail the creation result.
func (s *RideService) CreateRide(ctx context.Context, req CreateRideRequest) (*domain.Ride, error) {
	if req.RiderID == "" {
		return nil, ErrRiderRequired
	}
	if req.Pickup == "" {
		return nil, ErrPickupRequired
	}
	if req.Destination == "" {
		return nil, ErrDestinationRequired
	}
	class, err := ParseVehicleClass(req.VehicleClass)
	if err != nil {
		return nil, err
	}

	fare, err := s.deps.Fare.Estimate(ctx, req.Pickup, req.Destination, class)
	if err != nil {
		return nil, err
	}

	pickupOTP, deliveryOTP, err := s.deps.OTP.GeneratePair()
	if err != nil {
		return nil, err
	}

	ride := &domain.Ride{
		ID:           uuid.New().String(),
		RiderID:      req.RiderID,
		Pickup:       req.Pickup,
		Destination:  req.Destination,
		VehicleClass: class,
		Fare:         fare,
		PickupOTP:    pickupOTP,
		DeliveryOTP:  deliveryOTP,
		Status:       domain.RideStatusRequested,
		CreatedAt:    time.Now(),
	}

	if err := s.deps.Rides.Create(ctx, ride); err != nil {
		return nil, err
	}

	observability.RidesCreatedTotal.Inc()
	s.deps.Logger.Info("ride created",
		"ride_id", ride.ID, "rider_id", ride.RiderID, "class", ride.VehicleClass, "fare", ride.Fare)
	s.publish(ctx, events.TypeRideCreated, ride)

	if s.deps.Dispatcher != nil {
		broadcast := *ride
		go s.deps.Dispatcher.Broadcast(context.Background(), &broadcast)
	}

	return ride, nil
}

// GetFare estimates the fare without creating anything. The value equals
// what CreateRide would store for the same inputs.
func (s *RideService) GetFare(ctx context.Context, pickup, destination, vehicleClass string) (float64, error) {
	if pickup == "" {
		return 0, ErrPickupRequired
	}
	if destination == "" {
		return 0, ErrDestinationRequired
	}
	class, err := ParseVehicleClass(vehicleClass)
	if err != nil {
		return 0, err
	}

	return s.deps.Fare.Estimate(ctx, pickup, destination, class)
}

// ConfirmRide transitions REQUESTED → ACCEPTED and assigns the captain.
// First writer wins: the loser of a concurrent confirmation observes
// ErrRideAlreadyAccepted, never a crash or a second assignment.
func (s *RideService) ConfirmRide(ctx context.Context, rideID, captainID string) (*domain.Ride, error) {
	if rideID == "" {
		return nil, ErrRideIDRequired
	}
	if captainID == "" {
		return nil, ErrCaptainRequired
	}

	if _, err := s.deps.Captains.GetByID(ctx, captainID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrCaptainUnknown
		}
		return nil, err
	}

	// Optional short lock to keep concurrent confirms from racing to the
	// database; the conditional update below is the real arbiter.
	if s.deps.Locks != nil {
		locked, err := s.deps.Locks.AcquireRideLock(ctx, rideID, rideLockTTL)
		if err != nil {
			return nil, err
		}
		if !locked {
			observability.ConfirmConflictsTotal.Inc()
			return nil, ErrRideAlreadyAccepted
		}
		defer func() { _ = s.deps.Locks.ReleaseRideLock(ctx, rideID) }()
	}

	ride, err := s.deps.Rides.GetByID(ctx, rideID)
	if err != nil {
		return nil, err
	}

	if !domain.CanTransition(ride.Status, domain.RideStatusAccepted) {
		return nil, ErrRideAlreadyAccepted
	}

	err = s.deps.Rides.CompareAndUpdateStatus(ctx, rideID, domain.RideStatusRequested, repository.RideStatusUpdate{
		Status:    domain.RideStatusAccepted,
		CaptainID: captainID,
	})
	if err != nil {
		if errors.Is(err, repository.ErrConflict) {
			observability.ConfirmConflictsTotal.Inc()
			observability.RideTransitionsTotal.WithLabelValues(string(domain.RideStatusAccepted), "conflict").Inc()
			return nil, ErrRideAlreadyAccepted
		}
		return nil, err
	}

	ride.Status = domain.RideStatusAccepted
	ride.CaptainID = captainID

	s.settleOffers(ctx, ride)

	if err := s.deps.Captains.UpdateStatus(ctx, captainID, domain.CaptainStatusOnRide); err != nil {
		s.deps.Logger.Warn("failed to mark captain on ride", "captain_id", captainID, "error", err)
	}

	s.invalidateCache(ctx, rideID)
	s.notifyRider(ride, EventRideConfirmed)
	s.publish(ctx, events.TypeRideConfirmed, ride)

	observability.RideTransitionsTotal.WithLabelValues(string(domain.RideStatusAccepted), "ok").Inc()
	s.deps.Logger.Info("ride confirmed", "ride_id", ride.ID, "captain_id", captainID)

	return ride, nil
}

// StartRide transitions ACCEPTED → ONGOING after the assigned captain
// presents the pickup code. The code is consumed by the same update that
// moves the status, so it cannot be replayed.
func (s *RideService) StartRide(ctx context.Context, rideID, otp, captainID string) (*domain.Ride, error) {
	if rideID == "" {
		return nil, ErrRideIDRequired
	}
	if captainID == "" {
		return nil, ErrCaptainRequired
	}
	if otp == "" {
		return nil, ErrOTPRequired
	}

	ride, err := s.deps.Rides.GetByID(ctx, rideID)
	if err != nil {
		return nil, err
	}

	if !domain.CanTransition(ride.Status, domain.RideStatusOngoing) {
		return nil, ErrRideNotAccepted
	}
	if ride.CaptainID != captainID {
		return nil, ErrCaptainNotAssigned
	}
	if ride.PickupOTP == "" || ride.PickupOTP != otp {
		return nil, ErrInvalidOTP
	}

	err = s.deps.Rides.CompareAndUpdateStatus(ctx, rideID, domain.RideStatusAccepted, repository.RideStatusUpdate{
		Status:         domain.RideStatusOngoing,
		ClearPickupOTP: true,
	})
	if err != nil {
		if errors.Is(err, repository.ErrConflict) {
			observability.RideTransitionsTotal.WithLabelValues(string(domain.RideStatusOngoing), "conflict").Inc()
			return nil, ErrRideNotAccepted
		}
		return nil, err
	}

	ride.Status = domain.RideStatusOngoing
	ride.PickupOTP = ""

	s.invalidateCache(ctx, rideID)
	s.publish(ctx, events.TypeRideStarted, ride)

	observability.RideTransitionsTotal.WithLabelValues(string(domain.RideStatusOngoing), "ok").Inc()
	s.deps.Logger.Info("ride started", "ride_id", ride.ID, "captain_id", captainID)

	return ride, nil
}

// EndRide transitions ONGOING → COMPLETED after the assigned captain
// presents the delivery code. The rider notification on completion is an
// extension point, enabled by configuration.
func (s *RideService) EndRide(ctx context.Context, rideID, deliveryOTP, captainID string) (*domain.Ride, error) {
	if rideID == "" {
		return nil, ErrRideIDRequired
	}
	if captainID == "" {
		return nil, ErrCaptainRequired
	}
	if deliveryOTP == "" {
		return nil, ErrOTPRequired
	}

	ride, err := s.deps.Rides.GetByID(ctx, rideID)
	if err != nil {
		return nil, err
	}

	if !domain.CanTransition(ride.Status, domain.RideStatusCompleted) {
		return nil, ErrRideNotOngoing
	}
	if ride.CaptainID != captainID {
		return nil, ErrCaptainNotAssigned
	}
	if ride.DeliveryOTP == "" || ride.DeliveryOTP != deliveryOTP {
		return nil, ErrInvalidOTP
	}

	err = s.deps.Rides.CompareAndUpdateStatus(ctx, rideID, domain.RideStatusOngoing, repository.RideStatusUpdate{
		Status:           domain.RideStatusCompleted,
		ClearDeliveryOTP: true,
	})
	if err != nil {
		if errors.Is(err, repository.ErrConflict) {
			observability.RideTransitionsTotal.WithLabelValues(string(domain.RideStatusCompleted), "conflict").Inc()
			return nil, ErrRideNotOngoing
		}
		return nil, err
	}

	ride.Status = domain.RideStatusCompleted
	ride.DeliveryOTP = ""

	if err := s.deps.Captains.UpdateStatus(ctx, captainID, domain.CaptainStatusOnline); err != nil {
		s.deps.Logger.Warn("failed to mark captain online", "captain_id", captainID, "error", err)
	}

	s.invalidateCache(ctx, rideID)
	if s.deps.NotifyRideEnded {
		s.notifyRider(ride, EventRideEnded)
	}
	s.publish(ctx, events.TypeRideCompleted, ride)

	observability.RideTransitionsTotal.WithLabelValues(string(domain.RideStatusCompleted), "ok").Inc()
	s.deps.Logger.Info("ride completed", "ride_id", ride.ID, "captain_id", captainID)

	return ride, nil
}

// CancelRide moves any non-terminal ride to CANCELLED.
func (s *RideService) CancelRide(ctx context.Context, rideID, cancelledBy, reason string) (*domain.Ride, error) {
	if rideID == "" {
		return nil, ErrRideIDRequired
	}

	ride, err := s.deps.Rides.GetByID(ctx, rideID)
	if err != nil {
		return nil, err
	}

	if domain.Terminal(ride.Status) {
		return nil, ErrRideNotCancellable
	}

	now := time.Now()
	err = s.deps.Rides.CompareAndUpdateStatus(ctx, rideID, ride.Status, repository.RideStatusUpdate{
		Status:       domain.RideStatusCancelled,
		CancelledAt:  now,
		CancelReason: reason,
	})
	if err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, ErrRideNotCancellable
		}
		return nil, err
	}

	ride.Status = domain.RideStatusCancelled
	ride.CancelledAt = now
	ride.CancelReason = reason

	s.invalidateCache(ctx, rideID)

	// Tell the party that did not cancel, when one is known.
	if ride.CaptainID != "" && cancelledBy == ride.RiderID {
		if err := s.deps.Notifier.Send(ride.CaptainID, EventRideCancelled, rideView(ride)); err != nil {
			s.deps.Logger.Debug("captain not notified of cancellation", "ride_id", ride.ID, "error", err)
		}
	} else if cancelledBy != ride.RiderID {
		s.notifyRider(ride, EventRideCancelled)
	}
	s.publish(ctx, events.TypeRideCancelled, ride)

	s.deps.Logger.Info("ride cancelled", "ride_id", ride.ID, "cancelled_by", cancelledBy, "reason", reason)

	return ride, nil
}

// GetRide retrieves a ride, serving repeat reads from the short-lived cache.
// Cached rides never carry one-time codes.
func (s *RideService) GetRide(ctx context.Context, rideID string) (*domain.Ride, error) {
	if rideID == "" {
		return nil, ErrRideIDRequired
	}

	if s.deps.Cache != nil {
		if cached, err := s.deps.Cache.GetRide(ctx, rideID); err == nil && cached != nil {
			return &domain.Ride{
				ID:           cached.ID,
				RiderID:      cached.RiderID,
				CaptainID:    cached.CaptainID,
				Pickup:       cached.Pickup,
				Destination:  cached.Destination,
				VehicleClass: domain.VehicleClass(cached.VehicleClass),
				Fare:         cached.Fare,
				Status:       domain.RideStatus(cached.Status),
				CreatedAt:    cached.CreatedAt,
				CancelledAt:  cached.CancelledAt,
				CancelReason: cached.CancelReason,
			}, nil
		}
	}

	ride, err := s.deps.Rides.GetByID(ctx, rideID)
	if err != nil {
		return nil, err
	}

	if s.deps.Cache != nil {
		_ = s.deps.Cache.SetRide(ctx, &redisstore.CachedRide{
			ID:           ride.ID,
			RiderID:      ride.RiderID,
			CaptainID:    ride.CaptainID,
			Pickup:       ride.Pickup,
			Destination:  ride.Destination,
			VehicleClass: string(ride.VehicleClass),
			Fare:         ride.Fare,
			Status:       string(ride.Status),
			CreatedAt:    ride.CreatedAt,
			CancelledAt:  ride.CancelledAt,
			CancelReason: ride.CancelReason,
		})
	}

	return ride, nil
}

func (s *RideService) invalidateCache(ctx context.Context, rideID string) {
	if s.deps.Cache == nil {
		return
	}
	if err := s.deps.Cache.InvalidateRide(ctx, rideID); err != nil {
		s.deps.Logger.Warn("failed to invalidate ride cache", "ride_id", rideID, "error", err)
	}
}

// settleOffers reconciles the offer worklists after a confirm: the winner's
// entry becomes ACCEPTED and every other still-open entry is expired.
func (s *RideService) settleOffers(ctx context.Context, ride *domain.Ride) {
	if err := s.deps.Captains.MarkOfferAccepted(ctx, ride.CaptainID, ride.ID); err != nil {
		s.deps.Logger.Warn("failed to mark offer accepted", "ride_id", ride.ID, "error", err)
	}

	losers, err := s.deps.Captains.ExpireOffers(ctx, ride.ID, ride.CaptainID)
	if err != nil {
		s.deps.Logger.Warn("failed to expire losing offers", "ride_id", ride.ID, "error", err)
		return
	}

	if !s.deps.NotifyLosers {
		return
	}
	for _, captainID := range losers {
		if err := s.deps.Notifier.Send(captainID, EventRideTaken, map[string]string{"ride_id": ride.ID}); err != nil {
			s.deps.Logger.Debug("losing captain not notified", "ride_id", ride.ID, "captain_id", captainID, "error", err)
		}
	}
}

// notifyRider pushes an event to the rider's session. A rider without an
// active session is logged and otherwise ignored.
func (s *RideService) notifyRider(ride *domain.Ride, event string) {
	if err := s.deps.Notifier.Send(ride.RiderID, event, rideView(ride)); err != nil {
		if errors.Is(err, ws.ErrNoSession) {
			s.deps.Logger.Info("rider has no active session", "ride_id", ride.ID, "rider_id", ride.RiderID, "event", event)
		} else {
			s.deps.Logger.Warn("rider notification failed", "ride_id", ride.ID, "rider_id", ride.RiderID, "event", event, "error", err)
		}
		observability.NotifyFailuresTotal.Inc()
	}
}

func (s *RideService) publish(ctx context.Context, eventType string, ride *domain.Ride) {
	if s.deps.Events == nil {
		return
	}
	err := s.deps.Events.Publish(ctx, events.RideEvent{
		Type:      eventType,
		RideID:    ride.ID,
		RiderID:   ride.RiderID,
		CaptainID: ride.CaptainID,
		Status:    ride.Status,
		At:        time.Now(),
	})
	if err != nil {
		s.deps.Logger.Warn("failed to publish ride event", "ride_id", ride.ID, "type", eventType, "error", err)
	}
}

// rideView builds the notification payload for riders and captains: the
// ride without its one-time codes.
func rideView(ride *domain.Ride) map[string]any {
	return map[string]any{
		"ride_id":       ride.ID,
		"rider_id":      ride.RiderID,
		"captain_id":    ride.CaptainID,
		"pickup":        ride.Pickup,
		"destination":   ride.Destination,
		"vehicle_class": ride.VehicleClass,
		"fare":          ride.Fare,
		"status":        ride.Status,
	}
}
