package service

import "errors"

var (
	// ErrAlreadyAccepted is returned when an accept loses the acceptance
	// race. Expected contention, not a fault: callers show "ride already
	// taken" and move on.
	ErrAlreadyAccepted = errors.New("ride already accepted")

	// ErrOtpMismatch is returned when a start attempt carries the wrong
	// code. The stored value is never revealed.
	ErrOtpMismatch = errors.New("incorrect otp")

	// ErrInvalidStateTransition is returned for any transition attempted
	// from a state that does not permit it, including duplicate calls on an
	// already-transitioned ride.
	ErrInvalidStateTransition = errors.New("invalid state transition")

	// ErrPaymentNotSettled is returned when an online ride asks to complete
	// before its payment has settled.
	ErrPaymentNotSettled = errors.New("payment not settled")

	// ErrAddressNotFound is returned when the geocoder cannot resolve an
	// address.
	ErrAddressNotFound = errors.New("address not found")

	// ErrNotAssignedDriver is returned when a driver acts on a ride that is
	// assigned to someone else.
	ErrNotAssignedDriver = errors.New("driver not assigned to this ride")

	// ErrNotRideParty is returned when a cancel comes from an actor who is
	// neither the rider nor the assigned driver.
	ErrNotRideParty = errors.New("actor is not a party to this ride")

	// ErrRideBusy is returned when another lifecycle call holds the
	// per-ride lock.
	ErrRideBusy = errors.New("ride is being updated, retry")

	// ErrInvalidRiderID is returned when rider ID is empty.
	ErrInvalidRiderID = errors.New("invalid rider id")

	// ErrInvalidRideID is returned when ride ID is empty.
	ErrInvalidRideID = errors.New("invalid ride id")

	// ErrInvalidDriverID is returned when driver ID is empty.
	ErrInvalidDriverID = errors.New("invalid driver id")

	// ErrInvalidAddress is returned when a pickup or destination address is
	// missing or too short.
	ErrInvalidAddress = errors.New("invalid address")

	// ErrInvalidLocation is returned when location coordinates are invalid.
	ErrInvalidLocation = errors.New("invalid location")

	// ErrInvalidVehicleClass is returned when the vehicle class is unknown.
	ErrInvalidVehicleClass = errors.New("invalid vehicle class")

	// ErrInvalidPaymentMethod is returned when the payment method is unknown.
	ErrInvalidPaymentMethod = errors.New("invalid payment method")

	// ErrInvalidAmount is returned when a payment amount is not positive.
	ErrInvalidAmount = errors.New("invalid payment amount")
)
