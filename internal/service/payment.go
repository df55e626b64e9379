package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"hail/internal/domain"
	"hail/internal/redis"
	"hail/internal/repository"
)

// PaymentGateway is the external payment capture collaborator. The intent
// is confirmed client-side; settlement comes back through MarkCompleted.
type PaymentGateway interface {
	CreateIntent(ctx context.Context, amount float64) (clientSecret string, err error)
}

// MockGateway is a gateway stand-in for development and tests.
type MockGateway struct{}

// NewMockGateway creates a new mock gateway.
func NewMockGateway() *MockGateway {
	return &MockGateway{}
}

// CreateIntent returns a fabricated client secret.
func (g *MockGateway) CreateIntent(ctx context.Context, amount float64) (string, error) {
	return fmt.Sprintf("pi_%s_secret", uuid.New().String()), nil
}

var _ PaymentGateway = (*MockGateway)(nil)

// PaymentService synchronizes payment outcomes onto rides. It writes the
// payment status field only and never touches ride status; settlement and
// completion are driven by different actors and must stay separate writes.
type PaymentService struct {
	rideRepo    repository.RideRepository
	gateway     PaymentGateway
	cacheStore  *redis.CacheStore
	broadcaster Publisher
	log         *zap.Logger
}

// NewPaymentService creates a new PaymentService.
func NewPaymentService(
	rideRepo repository.RideRepository,
	gateway PaymentGateway,
	cacheStore *redis.CacheStore,
	broadcaster Publisher,
	log *zap.Logger,
) *PaymentService {
	if log == nil {
		log = zap.NewNop()
	}
	return &PaymentService{
		rideRepo:    rideRepo,
		gateway:     gateway,
		cacheStore:  cacheStore,
		broadcaster: broadcaster,
		log:         log,
	}
}

// CreateIntent opens a payment intent with the gateway for an online ride
// and marks the ride's payment pending.
func (s *PaymentService) CreateIntent(ctx context.Context, rideID string, amount float64) (string, error) {
	if rideID == "" {
		return "", ErrInvalidRideID
	}
	if amount <= 0 {
		return "", ErrInvalidAmount
	}

	if _, err := s.rideRepo.GetByID(ctx, rideID); err != nil {
		return "", err
	}

	secret, err := s.gateway.CreateIntent(ctx, amount)
	if err != nil {
		return "", err
	}

	if err := s.MarkPending(ctx, rideID); err != nil {
		return "", err
	}

	return secret, nil
}

// MarkPending records that a payment is in flight for the ride.
func (s *PaymentService) MarkPending(ctx context.Context, rideID string) error {
	if rideID == "" {
		return ErrInvalidRideID
	}

	if err := s.rideRepo.UpdatePaymentStatus(ctx, rideID, domain.PaymentStatusPending); err != nil {
		return err
	}
	s.invalidate(ctx, rideID)
	return nil
}

// MarkCompleted records settlement. When the ride is ongoing with an online
// payment method, the driver is told so the driver-side UI can unblock the
// complete call.
func (s *PaymentService) MarkCompleted(ctx context.Context, rideID string) error {
	if rideID == "" {
		return ErrInvalidRideID
	}

	ride, err := s.rideRepo.GetByID(ctx, rideID)
	if err != nil {
		return err
	}

	if err := s.rideRepo.UpdatePaymentStatus(ctx, rideID, domain.PaymentStatusCompleted); err != nil {
		return err
	}
	s.invalidate(ctx, rideID)

	if ride.Status == domain.RideStatusOngoing && ride.PaymentMethod == domain.PaymentMethodOnline && ride.DriverID != "" {
		s.broadcaster.Publish(ride.DriverID, EventPaymentStatusUpdated, map[string]any{
			"ride_id":        ride.ID,
			"payment_status": string(domain.PaymentStatusCompleted),
		})
	}

	s.log.Info("payment settled", zap.String("ride_id", rideID))
	return nil
}

func (s *PaymentService) invalidate(ctx context.Context, rideID string) {
	if s.cacheStore == nil {
		return
	}
	_ = s.cacheStore.InvalidateRide(ctx, rideID)
}
