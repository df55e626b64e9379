package domain

import "time"

// Receipt summarizes a completed ride for the rider-facing completion event.
type Receipt struct {
	ID            string
	RideID        string
	RiderID       string
	DriverID      string
	Fare          float64
	DistanceKm    float64
	Duration      time.Duration
	PaymentMethod PaymentMethod
	PaymentStatus PaymentStatus
	CreatedAt     time.Time
}
