package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"hail/internal/domain"
	"hail/internal/repository"
)

// RideRepository is a PostgreSQL implementation of repository.RideRepository.
type RideRepository struct {
	q Querier
}

// NewRideRepository creates a new PostgreSQL ride repository.
func NewRideRepository(db *sql.DB) *RideRepository {
	return &RideRepository{q: db}
}

// NewRideRepositoryWithTx creates a ride repository using a transaction.
func NewRideRepositoryWithTx(tx *sql.Tx) *RideRepository {
	return &RideRepository{q: tx}
}

const rideColumns = `id, rider_id, captain_id, pickup, destination, vehicle_class, fare, pickup_otp, delivery_otp, status, cancelled_at, cancel_reason, created_at`

// Create persists a new ride.
func (r *RideRepository) Create(ctx context.Context, ride *domain.Ride) error {
	query := `
		INSERT INTO rides (` + rideColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	_, err := r.q.ExecContext(ctx, query,
		ride.ID,
		ride.RiderID,
		nullString(ride.CaptainID),
		ride.Pickup,
		ride.Destination,
		ride.VehicleClass,
		ride.Fare,
		nullString(ride.PickupOTP),
		nullString(ride.DeliveryOTP),
		ride.Status,
		nullTime(ride.CancelledAt),
		nullString(ride.CancelReason),
		ride.CreatedAt,
	)

	return err
}

// GetByID retrieves a ride by ID.
func (r *RideRepository) GetByID(ctx context.Context, id string) (*domain.Ride, error) {
	query := `SELECT ` + rideColumns + ` FROM rides WHERE id = $1`

	ride, err := scanRide(r.q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}

	return ride, nil
}

// GetAll retrieves recent rides, newest first.
func (r *RideRepository) GetAll(ctx context.Context) ([]*domain.Ride, error) {
	query := `SELECT ` + rideColumns + ` FROM rides ORDER BY created_at DESC LIMIT 100`

	rows, err := r.q.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rides []*domain.Ride
	for rows.Next() {
		ride, err := scanRide(rows)
		if err != nil {
			return nil, err
		}
		rides = append(rides, ride)
	}
	return rides, rows.Err()
}

// CompareAndUpdateStatus applies the transition in a single conditional
// UPDATE so that status, captain assignment and OTP invalidation commit
// together or not at all.
func (r *RideRepository) CompareAndUpdateStatus(ctx context.Context, id string, expected domain.RideStatus, update repository.RideStatusUpdate) error {
	query := `
		UPDATE rides
		SET status = $1,
		    captain_id = COALESCE($2, captain_id),
		    pickup_otp = CASE WHEN $3 THEN NULL ELSE pickup_otp END,
		    delivery_otp = CASE WHEN $4 THEN NULL ELSE delivery_otp END,
		    cancelled_at = COALESCE($5, cancelled_at),
		    cancel_reason = COALESCE($6, cancel_reason)
		WHERE id = $7 AND status = $8
	`

	result, err := r.q.ExecContext(ctx, query,
		update.Status,
		nullString(update.CaptainID),
		update.ClearPickupOTP,
		update.ClearDeliveryOTP,
		nullTime(update.CancelledAt),
		nullString(update.CancelReason),
		id,
		expected,
	)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		// Distinguish a missing ride from a lost race.
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
		return repository.ErrConflict
	}

	return nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRide(row rowScanner) (*domain.Ride, error) {
	var ride domain.Ride
	var captainID, pickupOTP, deliveryOTP, cancelReason sql.NullString
	var cancelledAt sql.NullTime

	err := row.Scan(
		&ride.ID,
		&ride.RiderID,
		&captainID,
		&ride.Pickup,
		&ride.Destination,
		&ride.VehicleClass,
		&ride.Fare,
		&pickupOTP,
		&deliveryOTP,
		&ride.Status,
		&cancelledAt,
		&cancelReason,
		&ride.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	ride.CaptainID = captainID.String
	ride.PickupOTP = pickupOTP.String
	ride.DeliveryOTP = deliveryOTP.String
	ride.CancelReason = cancelReason.String
	if cancelledAt.Valid {
		ride.CancelledAt = cancelledAt.Time
	}

	return &ride, nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullTime(t time.Time) sql.NullTime {
	if t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t, Valid: true}
}
