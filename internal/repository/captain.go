package repository

import (
	"context"

	"hail/internal/domain"
)

// CaptainRepository defines the persistence operations for captains and
// their ride-offer worklists.
type CaptainRepository interface {
	// Create adds a new captain.
	Create(ctx context.Context, captain *domain.Captain) error

	// GetByID retrieves a captain by ID.
	GetByID(ctx context.Context, id string) (*domain.Captain, error)

	// GetAll retrieves all captains.
	GetAll(ctx context.Context) ([]*domain.Captain, error)

	// UpdateStatus updates the status of a captain.
	UpdateStatus(ctx context.Context, id string, status domain.CaptainStatus) error

	// AppendOffer records a ride as OFFERED on a captain's worklist.
	// Re-offering the same ride to the same captain is a no-op.
	AppendOffer(ctx context.Context, captainID, rideID string) error

	// MarkOfferAccepted moves the (captain, ride) offer to ACCEPTED.
	MarkOfferAccepted(ctx context.Context, captainID, rideID string) error

	// ExpireOffers moves every still-OFFERED entry for the ride, except the
	// winning captain's, to EXPIRED. Returns the losing captain IDs.
	ExpireOffers(ctx context.Context, rideID, winnerCaptainID string) ([]string, error)

	// ListOffers returns a captain's worklist, most recent first.
	ListOffers(ctx context.Context, captainID string) ([]*domain.Offer, error)
}
