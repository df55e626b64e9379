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

const rideColumns = `id, rider_id, driver_id, pickup_address, pickup_lat, pickup_lng,
	destination_address, destination_lat, destination_lng, vehicle_class,
	payment_method, otp, status, payment_status, fare, distance_km,
	cancelled_at, cancel_reason, created_at`

// Create persists a new ride.
func (r *RideRepository) Create(ctx context.Context, ride *domain.Ride) error {
	query := `
		INSERT INTO rides (` + rideColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
	`

	var driverID sql.NullString
	if ride.DriverID != "" {
		driverID = sql.NullString{String: ride.DriverID, Valid: true}
	}

	var cancelledAt sql.NullTime
	if !ride.CancelledAt.IsZero() {
		cancelledAt = sql.NullTime{Time: ride.CancelledAt, Valid: true}
	}

	var cancelReason sql.NullString
	if ride.CancelReason != "" {
		cancelReason = sql.NullString{String: ride.CancelReason, Valid: true}
	}

	_, err := r.q.ExecContext(ctx, query,
		ride.ID,
		ride.RiderID,
		driverID,
		ride.PickupAddress,
		ride.Pickup.Lat,
		ride.Pickup.Lng,
		ride.DestinationAddress,
		ride.Destination.Lat,
		ride.Destination.Lng,
		ride.VehicleClass,
		ride.PaymentMethod,
		ride.OTP,
		ride.Status,
		ride.PaymentStatus,
		ride.Fare,
		ride.DistanceKm,
		cancelledAt,
		cancelReason,
		ride.CreatedAt,
	)

	return storeErr(err)
}

func scanRide(row interface{ Scan(...any) error }) (*domain.Ride, error) {
	var ride domain.Ride
	var driverID sql.NullString
	var cancelledAt sql.NullTime
	var cancelReason sql.NullString

	err := row.Scan(
		&ride.ID,
		&ride.RiderID,
		&driverID,
		&ride.PickupAddress,
		&ride.Pickup.Lat,
		&ride.Pickup.Lng,
		&ride.DestinationAddress,
		&ride.Destination.Lat,
		&ride.Destination.Lng,
		&ride.VehicleClass,
		&ride.PaymentMethod,
		&ride.OTP,
		&ride.Status,
		&ride.PaymentStatus,
		&ride.Fare,
		&ride.DistanceKm,
		&cancelledAt,
		&cancelReason,
		&ride.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if driverID.Valid {
		ride.DriverID = driverID.String
	}
	if cancelledAt.Valid {
		ride.CancelledAt = cancelledAt.Time
	}
	if cancelReason.Valid {
		ride.CancelReason = cancelReason.String
	}

	return &ride, nil
}

// GetByID retrieves a ride by ID.
func (r *RideRepository) GetByID(ctx context.Context, id string) (*domain.Ride, error) {
	query := `SELECT ` + rideColumns + ` FROM rides WHERE id = $1`

	ride, err := scanRide(r.q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, storeErr(err)
	}
	return ride, nil
}

// GetActiveByDriverID retrieves the driver's accepted or ongoing ride.
func (r *RideRepository) GetActiveByDriverID(ctx context.Context, driverID string) (*domain.Ride, error) {
	query := `
		SELECT ` + rideColumns + ` FROM rides
		WHERE driver_id = $1 AND status IN ('accepted', 'ongoing')
		ORDER BY created_at DESC LIMIT 1
	`

	ride, err := scanRide(r.q.QueryRowContext(ctx, query, driverID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, storeErr(err)
	}
	return ride, nil
}

// GetAll retrieves recent rides.
func (r *RideRepository) GetAll(ctx context.Context) ([]*domain.Ride, error) {
	query := `SELECT ` + rideColumns + ` FROM rides ORDER BY created_at DESC LIMIT 100`

	rows, err := r.q.QueryContext(ctx, query)
	if err != nil {
		return nil, storeErr(err)
	}
	defer rows.Close()

	var rides []*domain.Ride
	for rows.Next() {
		ride, err := scanRide(rows)
		if err != nil {
			return nil, storeErr(err)
		}
		rides = append(rides, ride)
	}
	return rides, storeErr(rows.Err())
}

// AssignDriver is the acceptance compare-and-set. The WHERE clause is the
// whole contention story: only one competing accept can match a requested,
// unassigned row.
func (r *RideRepository) AssignDriver(ctx context.Context, rideID, driverID string) (bool, error) {
	query := `
		UPDATE rides SET driver_id = $2, status = 'accepted'
		WHERE id = $1 AND status = 'requested' AND driver_id IS NULL
	`

	res, err := r.q.ExecContext(ctx, query, rideID, driverID)
	if err != nil {
		return false, storeErr(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, storeErr(err)
	}
	return n == 1, nil
}

// UpdateStatusFrom moves from → to iff the ride is still in from.
func (r *RideRepository) UpdateStatusFrom(ctx context.Context, rideID string, from, to domain.RideStatus) (bool, error) {
	query := `UPDATE rides SET status = $3 WHERE id = $1 AND status = $2`

	res, err := r.q.ExecContext(ctx, query, rideID, from, to)
	if err != nil {
		return false, storeErr(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, storeErr(err)
	}
	return n == 1, nil
}

// Complete enforces the payment gate atomically with the status write.
func (r *RideRepository) Complete(ctx context.Context, rideID string, distanceKm float64) (bool, error) {
	query := `
		UPDATE rides SET status = 'completed', distance_km = $2
		WHERE id = $1 AND status = 'ongoing'
		  AND (payment_method = 'cash' OR payment_status = 'completed')
	`

	res, err := r.q.ExecContext(ctx, query, rideID, distanceKm)
	if err != nil {
		return false, storeErr(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, storeErr(err)
	}
	return n == 1, nil
}

// Cancel moves requested|accepted → cancelled.
func (r *RideRepository) Cancel(ctx context.Context, rideID, reason string, at time.Time) (bool, error) {
	query := `
		UPDATE rides SET status = 'cancelled', cancelled_at = $2, cancel_reason = $3
		WHERE id = $1 AND status IN ('requested', 'accepted')
	`

	res, err := r.q.ExecContext(ctx, query, rideID, at, reason)
	if err != nil {
		return false, storeErr(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, storeErr(err)
	}
	return n == 1, nil
}

// UpdatePaymentStatus updates the payment status field only.
func (r *RideRepository) UpdatePaymentStatus(ctx context.Context, rideID string, status domain.PaymentStatus) error {
	query := `UPDATE rides SET payment_status = $2 WHERE id = $1`

	res, err := r.q.ExecContext(ctx, query, rideID, status)
	if err != nil {
		return storeErr(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return storeErr(err)
	}
	if n == 0 {
		return repository.ErrNotFound
	}
	return nil
}
