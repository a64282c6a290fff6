package service

import (
	"context"
	"log/slog"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"hail/internal/domain"
	"hail/internal/observability"
	"hail/internal/redis"
	"hail/internal/repository"
)

// EventNewRide is pushed to each captain found in radius of a new ride.
const EventNewRide = "new-ride"

// RideOffer is the payload delivered to captains with a new-ride event.
// One-time codes are never part of the offer.
type RideOffer struct {
	RideID       string              `json:"ride_id"`
	Pickup       string              `json:"pickup"`
	Destination  string              `json:"destination"`
	VehicleClass domain.VehicleClass `json:"vehicle_class"`
	Fare         float64             `json:"fare"`
	Rider        *domain.Rider       `json:"rider,omitempty"`
}

// DispatchService fans newly created rides out to captains near the pickup
// point. It performs no locking: every captain in radius gets the offer, and
// the lifecycle manager's first-writer-wins confirm is the sole arbiter of
// who gets the ride.
type DispatchService struct {
	geocoder      Geocoder
	locationStore redis.LocationStoreInterface
	captainRepo   repository.CaptainRepository
	riderRepo     repository.RiderRepository
	notifier      Notifier
	logger        *slog.Logger
	radiusKm      float64
}

// NewDispatchService creates a new DispatchService.
func NewDispatchService(
	geocoder Geocoder,
	locationStore redis.LocationStoreInterface,
	captainRepo repository.CaptainRepository,
	riderRepo repository.RiderRepository,
	notifier Notifier,
	logger *slog.Logger,
	radiusKm float64,
) *DispatchService {
	return &DispatchService{
		geocoder:      geocoder,
		locationStore: locationStore,
		captainRepo:   captainRepo,
		riderRepo:     riderRepo,
		notifier:      notifier,
		logger:        logger,
		radiusKm:      radiusKm,
	}
}

// Broadcast offers the ride to every captain within radius of the pickup.
// It never returns an error: the ride has already been created and returned
// to the rider, so every failure here is logged and swallowed. A broadcast
// that finds no usable coordinates or no captains leaves the ride REQUESTED
// and awaiting other matching.
func (s *DispatchService) Broadcast(ctx context.Context, ride *domain.Ride) {
	timer := prometheus.NewTimer(observability.BroadcastDuration)
	defer timer.ObserveDuration()

	lat, lng, err := s.geocoder.ResolveCoordinates(ctx, ride.Pickup)
	if err != nil {
		s.logger.Warn("broadcast abandoned: pickup could not be resolved",
			"ride_id", ride.ID, "pickup", ride.Pickup, "error", err)
		observability.BroadcastsTotal.WithLabelValues("geocode_failed").Inc()
		return
	}

	captains, err := s.locationStore.FindNearbyCaptains(ctx, lat, lng, s.radiusKm)
	if err != nil {
		s.logger.Warn("broadcast abandoned: captain lookup failed",
			"ride_id", ride.ID, "error", err)
		observability.BroadcastsTotal.WithLabelValues("geo_query_failed").Inc()
		return
	}

	if len(captains) == 0 {
		s.logger.Info("no captains in radius", "ride_id", ride.ID, "radius_km", s.radiusKm)
		observability.BroadcastsTotal.WithLabelValues("no_captains").Inc()
		return
	}

	offer := s.buildOffer(ctx, ride)

	// Each captain is offered independently; one failed append or send must
	// not affect delivery to any other captain.
	var wg sync.WaitGroup
	for _, captain := range captains {
		wg.Add(1)
		go func(captainID string) {
			defer wg.Done()
			s.offerToCaptain(ctx, captainID, ride.ID, offer)
		}(captain.CaptainID)
	}
	wg.Wait()

	s.logger.Info("ride broadcast", "ride_id", ride.ID, "captains", len(captains))
	observability.BroadcastsTotal.WithLabelValues("ok").Inc()
}

func (s *DispatchService) offerToCaptain(ctx context.Context, captainID, rideID string, offer RideOffer) {
	if err := s.captainRepo.AppendOffer(ctx, captainID, rideID); err != nil {
		s.logger.Warn("failed to record offer",
			"ride_id", rideID, "captain_id", captainID, "error", err)
	} else {
		observability.OffersSentTotal.Inc()
	}

	if err := s.notifier.Send(captainID, EventNewRide, offer); err != nil {
		s.logger.Debug("captain not notified",
			"ride_id", rideID, "captain_id", captainID, "error", err)
		observability.NotifyFailuresTotal.Inc()
	}
}

// buildOffer attaches rider details to the offer payload when available.
func (s *DispatchService) buildOffer(ctx context.Context, ride *domain.Ride) RideOffer {
	offer := RideOffer{
		RideID:       ride.ID,
		Pickup:       ride.Pickup,
		Destination:  ride.Destination,
		VehicleClass: ride.VehicleClass,
		Fare:         ride.Fare,
	}

	if s.riderRepo != nil {
		if rider, err := s.riderRepo.GetByID(ctx, ride.RiderID); err == nil {
			offer.Rider = rider
		}
	}

	return offer
}
