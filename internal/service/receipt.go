package service

import (
	"time"

	"github.com/google/uuid"

	"hail/internal/domain"
)

// ReceiptService builds rider-facing summaries of completed rides.
type ReceiptService struct{}

// NewReceiptService creates a new ReceiptService.
func NewReceiptService() *ReceiptService {
	return &ReceiptService{}
}

// Generate builds a receipt for a completed ride. Returns nil for rides in
// any other state.
func (s *ReceiptService) Generate(ride *domain.Ride) *domain.Receipt {
	if ride == nil || ride.Status != domain.RideStatusCompleted {
		return nil
	}

	now := time.Now()
	return &domain.Receipt{
		ID:            uuid.New().String(),
		RideID:        ride.ID,
		RiderID:       ride.RiderID,
		DriverID:      ride.DriverID,
		Fare:          ride.Fare,
		DistanceKm:    ride.DistanceKm,
		Duration:      now.Sub(ride.CreatedAt),
		PaymentMethod: ride.PaymentMethod,
		PaymentStatus: ride.PaymentStatus,
		CreatedAt:     now,
	}
}
