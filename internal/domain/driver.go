package domain

import "time"

// DriverStatus represents the current status of a driver.
type DriverStatus string

const (
	DriverStatusOnline  DriverStatus = "online"
	DriverStatusOffline DriverStatus = "offline"
)

// Driver represents a driver in the system.
type Driver struct {
	ID           string
	Name         string
	Phone        string
	VehicleClass VehicleClass
	VehiclePlate string
	Status       DriverStatus
	CreatedAt    time.Time
}
