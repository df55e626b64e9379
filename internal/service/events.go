package service

import (
	"hail/internal/domain"
	"hail/internal/geo"
)

// Event names on the real-time surface.
const (
	EventNewRideOffer         = "new-ride-offer"
	EventRideConfirmed        = "ride-confirmed"
	EventRideStarted          = "ride-started"
	EventRideEnded            = "ride-ended"
	EventRideCancelled        = "ride-cancelled"
	EventCaptainLocation      = "captain-location-update"
	EventPaymentStatusUpdated = "payment-status-updated"
	EventReceiptReady         = "receipt-ready"
)

// RideView is the public payload of a ride. OTP is carried only in the
// rider-facing ride-confirmed payload and blanked everywhere else; a driver
// offer never contains it.
type RideView struct {
	ID                 string    `json:"id"`
	RiderID            string    `json:"rider_id"`
	DriverID           string    `json:"driver_id,omitempty"`
	PickupAddress      string    `json:"pickup_address"`
	Pickup             geo.Point `json:"pickup"`
	DestinationAddress string    `json:"destination_address"`
	Destination        geo.Point `json:"destination"`
	VehicleClass       string    `json:"vehicle_class"`
	PaymentMethod      string    `json:"payment_method"`
	Status             string    `json:"status"`
	PaymentStatus      string    `json:"payment_status"`
	Fare               float64   `json:"fare"`
	DistanceKm         float64   `json:"distance_km,omitempty"`
	OTP                string    `json:"otp,omitempty"`
}

// PublicRideView builds the OTP-free view broadcast to drivers.
func PublicRideView(ride *domain.Ride) RideView {
	return RideView{
		ID:                 ride.ID,
		RiderID:            ride.RiderID,
		DriverID:           ride.DriverID,
		PickupAddress:      ride.PickupAddress,
		Pickup:             ride.Pickup,
		DestinationAddress: ride.DestinationAddress,
		Destination:        ride.Destination,
		VehicleClass:       string(ride.VehicleClass),
		PaymentMethod:      string(ride.PaymentMethod),
		Status:             string(ride.Status),
		PaymentStatus:      string(ride.PaymentStatus),
		Fare:               ride.Fare,
		DistanceKm:         ride.DistanceKm,
	}
}

// RiderRideView builds the rider-facing view. The OTP appears exactly here,
// once, after driver assignment.
func RiderRideView(ride *domain.Ride) RideView {
	view := PublicRideView(ride)
	view.OTP = ride.OTP
	return view
}
