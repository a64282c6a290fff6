package service

import (
	"context"
	"errors"
	"fmt"
	"math"

	"hail/internal/domain"
	"hail/internal/maps"
)

// RateCard holds the pricing parameters for one vehicle class.
type RateCard struct {
	Base      float64 // flag-fall charged on every ride
	PerKm     float64
	PerMinute float64
	Minimum   float64
}

// averageSpeedKmh converts distance into an estimated trip duration for the
// per-minute component.
const averageSpeedKmh = 30.0

func defaultRateCards() map[domain.VehicleClass]RateCard {
	return map[domain.VehicleClass]RateCard{
		domain.VehicleClassStandard: {Base: 2.50, PerKm: 1.10, PerMinute: 0.25, Minimum: 4.00},
		domain.VehicleClassPremium:  {Base: 4.00, PerKm: 1.80, PerMinute: 0.40, Minimum: 7.00},
		domain.VehicleClassXL:       {Base: 3.50, PerKm: 1.50, PerMinute: 0.35, Minimum: 6.00},
	}
}

// FareService computes ride fares. The fare is a deterministic function of
// the geocoded distance, the estimated duration and the per-class rate card;
// an optional surge service scales it by local supply and demand.
type FareService struct {
	geocoder Geocoder
	surge    *SurgeService
	rates    map[domain.VehicleClass]RateCard
}

// NewFareService creates a new FareService. surge may be nil.
func NewFareService(geocoder Geocoder, surge *SurgeService) *FareService {
	return &FareService{
		geocoder: geocoder,
		surge:    surge,
		rates:    defaultRateCards(),
	}
}

// Estimate returns the fare for a trip between the two addresses in the given
// vehicle class. Both CreateRide and GetFare go through this single path, so
// the two always agree for identical inputs.
func (s *FareService) Estimate(ctx context.Context, pickup, destination string, class domain.VehicleClass) (float64, error) {
	rate, ok := s.rates[class]
	if !ok {
		return 0, ErrInvalidVehicleClass
	}

	pickupLat, pickupLng, err := s.resolve(ctx, pickup)
	if err != nil {
		return 0, err
	}
	destLat, destLng, err := s.resolve(ctx, destination)
	if err != nil {
		return 0, err
	}

	distanceKm := haversineKm(pickupLat, pickupLng, destLat, destLng)
	durationMin := distanceKm / averageSpeedKmh * 60

	fare := rate.Base + rate.PerKm*distanceKm + rate.PerMinute*durationMin

	if s.surge != nil {
		fare *= s.surge.GetMultiplier(ctx, pickupLat, pickupLng)
	}

	if fare < rate.Minimum {
		fare = rate.Minimum
	}

	return math.Round(fare*100) / 100, nil
}

func (s *FareService) resolve(ctx context.Context, address string) (lat, lng float64, err error) {
	lat, lng, err = s.geocoder.ResolveCoordinates(ctx, address)
	if err != nil {
		if errors.Is(err, maps.ErrNotFound) {
			return 0, 0, ErrLocationNotFound
		}
		return 0, 0, fmt.Errorf("%w: %v", ErrGeoUnavailable, err)
	}
	return lat, lng, nil
}

const earthRadiusKm = 6371.0

// haversineKm returns the great-circle distance in kilometres between two
// points specified in decimal degrees.
func haversineKm(lat1, lng1, lat2, lng2 float64) float64 {
	dLat := degreesToRadians(lat2 - lat1)
	dLng := degreesToRadians(lng2 - lng1)

	rLat1 := degreesToRadians(lat1)
	rLat2 := degreesToRadians(lat2)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(rLat1)*math.Cos(rLat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusKm * c
}

func degreesToRadians(deg float64) float64 {
	return deg * math.Pi / 180.0
}
