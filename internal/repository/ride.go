package repository

import (
	"context"
	"time"

	"hail/internal/domain"
)

// RideRepository defines the persistence operations for rides. The
// conditional updates are compare-and-set: they mutate only when the ride is
// still in the expected state and report whether the write happened, so
// racing lifecycle calls resolve to exactly one winner at the store.
type RideRepository interface {
	// Create persists a new ride.
	Create(ctx context.Context, ride *domain.Ride) error

	// GetByID retrieves a ride by ID.
	GetByID(ctx context.Context, id string) (*domain.Ride, error)

	// GetActiveByDriverID retrieves the driver's ride in accepted or
	// ongoing state, or nil if there is none.
	GetActiveByDriverID(ctx context.Context, driverID string) (*domain.Ride, error)

	// GetAll retrieves recent rides.
	GetAll(ctx context.Context) ([]*domain.Ride, error)

	// AssignDriver sets the driver and moves requested → accepted iff the
	// ride is still requested with no driver. Returns false when the
	// compare-and-set lost.
	AssignDriver(ctx context.Context, rideID, driverID string) (bool, error)

	// UpdateStatusFrom moves from → to iff the ride is still in from.
	UpdateStatusFrom(ctx context.Context, rideID string, from, to domain.RideStatus) (bool, error)

	// Complete moves ongoing → completed and records the distance, iff the
	// ride is ongoing and the payment gate holds (cash method or settled
	// online payment). The gate is enforced in the same write as the
	// status change.
	Complete(ctx context.Context, rideID string, distanceKm float64) (bool, error)

	// Cancel moves requested|accepted → cancelled with a reason.
	Cancel(ctx context.Context, rideID, reason string, at time.Time) (bool, error)

	// UpdatePaymentStatus updates the payment status field only.
	UpdatePaymentStatus(ctx context.Context, rideID string, status domain.PaymentStatus) error
}
