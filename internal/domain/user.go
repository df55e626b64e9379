package domain

import "time"

// Rider represents a rider in the system.
type Rider struct {
	ID        string
	Name      string
	Phone     string
	CreatedAt time.Time
}
