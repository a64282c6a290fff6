package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"hail/internal/domain"
	"hail/internal/repository"
)

// CaptainRepository is a PostgreSQL implementation of repository.CaptainRepository.
type CaptainRepository struct {
	q Querier
}

// NewCaptainRepository creates a new PostgreSQL captain repository.
func NewCaptainRepository(db *sql.DB) *CaptainRepository {
	return &CaptainRepository{q: db}
}

// NewCaptainRepositoryWithTx creates a captain repository using a transaction.
func NewCaptainRepositoryWithTx(tx *sql.Tx) *CaptainRepository {
	return &CaptainRepository{q: tx}
}

// Create adds a new captain.
func (r *CaptainRepository) Create(ctx context.Context, captain *domain.Captain) error {
	query := `
		INSERT INTO captains (id, name, phone, status, vehicle_class, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.q.ExecContext(ctx, query,
		captain.ID,
		captain.Name,
		captain.Phone,
		captain.Status,
		captain.VehicleClass,
		captain.CreatedAt,
	)

	return err
}

// GetByID retrieves a captain by ID.
func (r *CaptainRepository) GetByID(ctx context.Context, id string) (*domain.Captain, error) {
	query := `
		SELECT id, name, phone, status, vehicle_class, created_at
		FROM captains WHERE id = $1
	`

	var captain domain.Captain
	err := r.q.QueryRowContext(ctx, query, id).Scan(
		&captain.ID,
		&captain.Name,
		&captain.Phone,
		&captain.Status,
		&captain.VehicleClass,
		&captain.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}

	return &captain, nil
}

// GetAll retrieves all captains.
func (r *CaptainRepository) GetAll(ctx context.Context) ([]*domain.Captain, error) {
	query := `
		SELECT id, name, phone, status, vehicle_class, created_at
		FROM captains ORDER BY created_at DESC
	`

	rows, err := r.q.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var captains []*domain.Captain
	for rows.Next() {
		var captain domain.Captain
		if err := rows.Scan(
			&captain.ID,
			&captain.Name,
			&captain.Phone,
			&captain.Status,
			&captain.VehicleClass,
			&captain.CreatedAt,
		); err != nil {
			return nil, err
		}
		captains = append(captains, &captain)
	}
	return captains, rows.Err()
}

// UpdateStatus updates the status of a captain.
func (r *CaptainRepository) UpdateStatus(ctx context.Context, id string, status domain.CaptainStatus) error {
	query := `UPDATE captains SET status = $1 WHERE id = $2`

	result, err := r.q.ExecContext(ctx, query, status, id)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// AppendOffer records a ride as OFFERED on a captain's worklist. A repeated
// offer for the same (captain, ride) pair is a no-op.
func (r *CaptainRepository) AppendOffer(ctx context.Context, captainID, rideID string) error {
	query := `
		INSERT INTO captain_offers (captain_id, ride_id, state, offered_at, updated_at)
		VALUES ($1, $2, $3, $4, $4)
		ON CONFLICT (captain_id, ride_id) DO NOTHING
	`

	_, err := r.q.ExecContext(ctx, query, captainID, rideID, domain.OfferStateOffered, time.Now())
	return err
}

// MarkOfferAccepted moves the (captain, ride) offer to ACCEPTED. The winning
// captain may not have an offer row when the ride was confirmed through an
// out-of-band channel, so the row is upserted.
func (r *CaptainRepository) MarkOfferAccepted(ctx context.Context, captainID, rideID string) error {
	query := `
		INSERT INTO captain_offers (captain_id, ride_id, state, offered_at, updated_at)
		VALUES ($1, $2, $3, $4, $4)
		ON CONFLICT (captain_id, ride_id)
		DO UPDATE SET state = EXCLUDED.state, updated_at = EXCLUDED.updated_at
	`

	_, err := r.q.ExecContext(ctx, query, captainID, rideID, domain.OfferStateAccepted, time.Now())
	return err
}

// ExpireOffers expires every still-OFFERED entry for the ride except the
// winner's, returning the losing captain IDs.
func (r *CaptainRepository) ExpireOffers(ctx context.Context, rideID, winnerCaptainID string) ([]string, error) {
	query := `
		UPDATE captain_offers
		SET state = $1, updated_at = $2
		WHERE ride_id = $3 AND captain_id <> $4 AND state = $5
		RETURNING captain_id
	`

	rows, err := r.q.QueryContext(ctx, query,
		domain.OfferStateExpired, time.Now(), rideID, winnerCaptainID, domain.OfferStateOffered)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var losers []string
	for rows.Next() {
		var captainID string
		if err := rows.Scan(&captainID); err != nil {
			return nil, err
		}
		losers = append(losers, captainID)
	}
	return losers, rows.Err()
}

// ListOffers returns a captain's worklist, most recent first.
func (r *CaptainRepository) ListOffers(ctx context.Context, captainID string) ([]*domain.Offer, error) {
	query := `
		SELECT captain_id, ride_id, state, offered_at, updated_at
		FROM captain_offers WHERE captain_id = $1 ORDER BY offered_at DESC
	`

	rows, err := r.q.QueryContext(ctx, query, captainID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var offers []*domain.Offer
	for rows.Next() {
		var offer domain.Offer
		if err := rows.Scan(
			&offer.CaptainID,
			&offer.RideID,
			&offer.State,
			&offer.OfferedAt,
			&offer.UpdatedAt,
		); err != nil {
			return nil, err
		}
		offers = append(offers, &offer)
	}
	return offers, rows.Err()
}
