package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"hail/internal/domain"
	"hail/internal/redis"
	"hail/internal/repository"
)

// CaptainService handles captain registration, presence and worklists.
type CaptainService struct {
	locationStore redis.LocationStoreInterface
	captainRepo   repository.CaptainRepository
	logger        *slog.Logger
}

// NewCaptainService creates a new CaptainService.
func NewCaptainService(
	locationStore redis.LocationStoreInterface,
	captainRepo repository.CaptainRepository,
	logger *slog.Logger,
) *CaptainService {
	return &CaptainService{
		locationStore: locationStore,
		captainRepo:   captainRepo,
		logger:        logger,
	}
}

// RegisterCaptainRequest contains the parameters for registering a captain.
type RegisterCaptainRequest struct {
	Name         string
	Phone        string
	VehicleClass string
}

// Register creates a new captain in OFFLINE state.
func (s *CaptainService) Register(ctx context.Context, req RegisterCaptainRequest) (*domain.Captain, error) {
	class, err := ParseVehicleClass(req.VehicleClass)
	if err != nil {
		return nil, err
	}

	captain := &domain.Captain{
		ID:           uuid.New().String(),
		Name:         req.Name,
		Phone:        req.Phone,
		Status:       domain.CaptainStatusOffline,
		VehicleClass: class,
		CreatedAt:    time.Now(),
	}

	if err := s.captainRepo.Create(ctx, captain); err != nil {
		return nil, err
	}

	s.logger.Info("captain registered", "captain_id", captain.ID, "class", captain.VehicleClass)
	return captain, nil
}

// UpdateLocation records the captain's position in the geo index and marks
// an offline captain online. Only captains in the index are reachable by
// dispatch broadcasts.
func (s *CaptainService) UpdateLocation(ctx context.Context, captainID string, lat, lng float64) error {
	if captainID == "" {
		return ErrCaptainRequired
	}
	if !isValidLatitude(lat) || !isValidLongitude(lng) {
		return ErrInvalidCoordinates
	}

	captain, err := s.captainRepo.GetByID(ctx, captainID)
	if err != nil {
		return err
	}

	if err := s.locationStore.UpdateLocation(ctx, captainID, lat, lng); err != nil {
		return err
	}

	if captain.Status == domain.CaptainStatusOffline {
		if err := s.captainRepo.UpdateStatus(ctx, captainID, domain.CaptainStatusOnline); err != nil {
			return err
		}
	}

	return nil
}

// GoOffline removes the captain from the geo index so dispatch stops
// offering rides to them.
func (s *CaptainService) GoOffline(ctx context.Context, captainID string) error {
	if captainID == "" {
		return ErrCaptainRequired
	}

	if err := s.locationStore.RemoveLocation(ctx, captainID); err != nil {
		return err
	}

	return s.captainRepo.UpdateStatus(ctx, captainID, domain.CaptainStatusOffline)
}

// Offers returns the captain's worklist, most recent first.
func (s *CaptainService) Offers(ctx context.Context, captainID string) ([]*domain.Offer, error) {
	if captainID == "" {
		return nil, ErrCaptainRequired
	}

	if _, err := s.captainRepo.GetByID(ctx, captainID); err != nil {
		return nil, err
	}

	return s.captainRepo.ListOffers(ctx, captainID)
}

func isValidLatitude(lat float64) bool {
	return lat >= -90 && lat <= 90
}

func isValidLongitude(lng float64) bool {
	return lng >= -180 && lng <= 180
}
