package service

import (
	"context"

	"hail/internal/domain"
	"hail/internal/redis"
	"hail/internal/repository"
)

// SurgeService calculates a fare multiplier from supply and demand around
// the pickup point.
type SurgeService struct {
	locationStore redis.LocationStoreInterface
	rideRepo      repository.RideRepository
}

// NewSurgeService creates a new SurgeService.
func NewSurgeService(
	locationStore redis.LocationStoreInterface,
	rideRepo repository.RideRepository,
) *SurgeService {
	return &SurgeService{
		locationStore: locationStore,
		rideRepo:      rideRepo,
	}
}

// SurgeConfig contains surge pricing configuration.
type SurgeConfig struct {
	RadiusKm       float64 // radius to check for captain supply
	LowSurgeRatio  float64 // demand/supply ratio for 1.25x surge
	MedSurgeRatio  float64 // demand/supply ratio for 1.5x surge
	HighSurgeRatio float64 // demand/supply ratio for 2.0x surge
	MaxSurge       float64 // maximum surge multiplier
}

// DefaultSurgeConfig returns the default surge configuration.
func DefaultSurgeConfig() SurgeConfig {
	return SurgeConfig{
		RadiusKm:       5.0,
		LowSurgeRatio:  1.2,
		MedSurgeRatio:  1.5,
		HighSurgeRatio: 2.0,
		MaxSurge:       2.0,
	}
}

// GetMultiplier calculates the surge multiplier for a given location.
// Returns 1.0 when there is no surge, up to MaxSurge under high demand.
func (s *SurgeService) GetMultiplier(ctx context.Context, lat, lng float64) float64 {
	config := DefaultSurgeConfig()

	supply := s.countCaptainsInArea(ctx, lat, lng, config.RadiusKm)
	demand := s.countOpenRequests(ctx)

	return calculateSurgeMultiplier(supply, demand, config)
}

func (s *SurgeService) countCaptainsInArea(ctx context.Context, lat, lng, radiusKm float64) int {
	captains, err := s.locationStore.FindNearbyCaptains(ctx, lat, lng, radiusKm)
	if err != nil {
		return 0
	}
	return len(captains)
}

// countOpenRequests uses the recent unassigned rides as the demand signal.
// Rides store address text rather than coordinates, so demand is counted
// across the recent window instead of per area.
func (s *SurgeService) countOpenRequests(ctx context.Context) int {
	rides, err := s.rideRepo.GetAll(ctx)
	if err != nil {
		return 0
	}

	count := 0
	for _, ride := range rides {
		if ride.Status == domain.RideStatusRequested {
			count++
		}
	}
	return count
}

func calculateSurgeMultiplier(supply, demand int, config SurgeConfig) float64 {
	if supply == 0 {
		if demand > 0 {
			return config.MaxSurge
		}
		return 1.0
	}

	ratio := float64(demand) / float64(supply)

	switch {
	case ratio >= config.HighSurgeRatio:
		return config.MaxSurge
	case ratio >= config.MedSurgeRatio:
		return 1.5
	case ratio >= config.LowSurgeRatio:
		return 1.25
	default:
		return 1.0
	}
}
