package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"hail/internal/domain"
	"hail/internal/geo"
	"hail/internal/location"
	"hail/internal/repository"
)

// DriverService handles driver-side operations: position reports and
// presence-adjacent status changes. A position report flows into the
// location store and is relayed best-effort to the rider of the driver's
// active ride; the same contract serves both the HTTP and the websocket
// delivery mechanism.
type DriverService struct {
	locationStore location.Store
	driverRepo    repository.DriverRepository
	rideRepo      repository.RideRepository
	broadcaster   Publisher
	log           *zap.Logger
}

// NewDriverService creates a new DriverService.
func NewDriverService(
	locationStore location.Store,
	driverRepo repository.DriverRepository,
	rideRepo repository.RideRepository,
	broadcaster Publisher,
	log *zap.Logger,
) *DriverService {
	if log == nil {
		log = zap.NewNop()
	}
	return &DriverService{
		locationStore: locationStore,
		driverRepo:    driverRepo,
		rideRepo:      rideRepo,
		broadcaster:   broadcaster,
		log:           log,
	}
}

// ReportLocation upserts the driver's position, flips the driver online, and
// relays the update to the rider bound to the driver's active ride, if any.
func (s *DriverService) ReportLocation(ctx context.Context, driverID, rideID string, pos geo.Point) error {
	if driverID == "" {
		return ErrInvalidDriverID
	}
	if !pos.IsValid() {
		return ErrInvalidLocation
	}

	if err := s.locationStore.Upsert(ctx, driverID, pos); err != nil {
		return err
	}

	if err := s.driverRepo.UpdateStatus(ctx, driverID, domain.DriverStatusOnline); err != nil && !errors.Is(err, repository.ErrNotFound) {
		return err
	}

	ride, err := s.activeRide(ctx, driverID, rideID)
	if err != nil || ride == nil {
		return nil // relay is best effort
	}

	s.broadcaster.Publish(ride.RiderID, EventCaptainLocation, map[string]any{
		"ride_id":  ride.ID,
		"location": pos,
	})
	return nil
}

// activeRide resolves the ride whose rider should see this driver's
// position: the named ride if it belongs to the driver and is live, else
// the driver's current accepted/ongoing ride.
func (s *DriverService) activeRide(ctx context.Context, driverID, rideID string) (*domain.Ride, error) {
	if rideID != "" {
		ride, err := s.rideRepo.GetByID(ctx, rideID)
		if err != nil {
			return nil, err
		}
		if ride.DriverID != driverID || ride.Status.Terminal() || ride.Status == domain.RideStatusRequested {
			return nil, nil
		}
		return ride, nil
	}
	return s.rideRepo.GetActiveByDriverID(ctx, driverID)
}

// SetOffline takes a driver out of dispatch: status offline and position
// removed from the index. The presence binding is independent and untouched.
func (s *DriverService) SetOffline(ctx context.Context, driverID string) error {
	if driverID == "" {
		return ErrInvalidDriverID
	}

	if err := s.driverRepo.UpdateStatus(ctx, driverID, domain.DriverStatusOffline); err != nil {
		return err
	}

	if err := s.locationStore.Remove(ctx, driverID); err != nil {
		s.log.Warn("failed to remove driver location",
			zap.String("driver_id", driverID), zap.Error(err))
	}

	return nil
}
