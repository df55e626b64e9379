package location

import (
	"context"
	"errors"
	"time"

	"hail/internal/geo"
)

// ErrInvalidCenter is returned when a query center has non-finite or
// out-of-range coordinates.
var ErrInvalidCenter = errors.New("invalid query center")

// DefaultFreshness is the window within which a driver's last report is
// considered live. Stale drivers are excluded from queries but never purged
// automatically; an external sweep may remove them.
const DefaultFreshness = 90 * time.Second

// DriverLocation is a driver's last reported position.
type DriverLocation struct {
	DriverID   string
	Position   geo.Point
	ReportedAt time.Time
}

// Store holds the last-known position of every active driver.
type Store interface {
	// Upsert replaces the stored position for a driver, creating the record
	// if absent. Repeated identical reports are idempotent.
	Upsert(ctx context.Context, driverID string, pos geo.Point) error

	// Query returns the drivers whose stored position lies within radiusKm
	// great-circle distance of center, excluding drivers whose last report
	// is older than the store's freshness window. Results are ordered
	// nearest first.
	Query(ctx context.Context, center geo.Point, radiusKm float64) ([]DriverLocation, error)

	// Remove deletes a driver's position, if present.
	Remove(ctx context.Context, driverID string) error
}
