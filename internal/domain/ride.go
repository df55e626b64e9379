package domain

import (
	"time"

	"hail/internal/geo"
)

// RideStatus represents the current status of a ride.
type RideStatus string

const (
	RideStatusRequested RideStatus = "requested"
	RideStatusAccepted  RideStatus = "accepted"
	RideStatusOngoing   RideStatus = "ongoing"
	RideStatusCompleted RideStatus = "completed"
	RideStatusCancelled RideStatus = "cancelled"
)

// Terminal reports whether the status permits no further transitions.
func (s RideStatus) Terminal() bool {
	return s == RideStatusCompleted || s == RideStatusCancelled
}

// CanTransitionTo reports whether the state machine allows moving to next.
// Legal path: requested → accepted → ongoing → completed, with cancelled
// reachable from requested or accepted.
func (s RideStatus) CanTransitionTo(next RideStatus) bool {
	switch next {
	case RideStatusAccepted:
		return s == RideStatusRequested
	case RideStatusOngoing:
		return s == RideStatusAccepted
	case RideStatusCompleted:
		return s == RideStatusOngoing
	case RideStatusCancelled:
		return s == RideStatusRequested || s == RideStatusAccepted
	default:
		return false
	}
}

// VehicleClass represents the requested vehicle category.
type VehicleClass string

const (
	VehicleClassAuto VehicleClass = "auto"
	VehicleClassCar  VehicleClass = "car"
	VehicleClassMoto VehicleClass = "moto"
)

// PaymentMethod represents how a ride is paid for.
type PaymentMethod string

const (
	PaymentMethodCash   PaymentMethod = "cash"
	PaymentMethodOnline PaymentMethod = "online"
)

// PaymentStatus tracks settlement independently of the ride status; an online
// payment may complete before or after the driver asks to finish the ride.
type PaymentStatus string

const (
	PaymentStatusNone      PaymentStatus = "none"
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
)

// Ride represents a single requested transport session.
type Ride struct {
	ID      string
	RiderID string

	// DriverID is empty until acceptance and permanent once set.
	DriverID string

	PickupAddress      string
	Pickup             geo.Point
	DestinationAddress string
	Destination        geo.Point

	VehicleClass  VehicleClass
	PaymentMethod PaymentMethod

	// OTP is generated at creation and immutable thereafter. It is revealed
	// only to the rider and never appears in offers broadcast to drivers.
	OTP string

	Status        RideStatus
	PaymentStatus PaymentStatus

	// Fare is computed once at creation. DistanceKm is recorded at completion.
	Fare       float64
	DistanceKm float64

	CreatedAt    time.Time
	CancelledAt  time.Time
	CancelReason string
}

// SettledForCompletion reports whether the payment-gate invariant allows the
// ongoing → completed transition.
func (r *Ride) SettledForCompletion() bool {
	return r.PaymentMethod == PaymentMethodCash || r.PaymentStatus == PaymentStatusCompleted
}
