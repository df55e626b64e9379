package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"hail/internal/domain"
	"hail/internal/geo"
	"hail/internal/location"
	"hail/internal/realtime"
	"hail/internal/repository"
)

const defaultSearchRadiusKm = 2.0

// MatchingService is the dispatch matcher: it decides who gets notified of a
// new ride. It is deliberately stateless; acceptance contention is resolved
// entirely by the ride lifecycle, never here, so the fan-out step needs no
// distributed lock.
type MatchingService struct {
	locationStore location.Store
	driverRepo    repository.DriverRepository
	registry      *realtime.Registry
	broadcaster   *realtime.Broadcaster
	searchRadius  float64
	log           *zap.Logger
}

// NewMatchingService creates a new MatchingService. searchRadiusKm is the
// radius used when a request does not supply one; zero or negative falls back
// to defaultSearchRadiusKm.
func NewMatchingService(
	locationStore location.Store,
	driverRepo repository.DriverRepository,
	registry *realtime.Registry,
	broadcaster *realtime.Broadcaster,
	searchRadiusKm float64,
	log *zap.Logger,
) *MatchingService {
	if searchRadiusKm <= 0 {
		searchRadiusKm = defaultSearchRadiusKm
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &MatchingService{
		locationStore: locationStore,
		driverRepo:    driverRepo,
		registry:      registry,
		broadcaster:   broadcaster,
		searchRadius:  searchRadiusKm,
		log:           log,
	}
}

// MatchingServiceInterface defines the matching contract for testing.
type MatchingServiceInterface interface {
	FindCandidates(ctx context.Context, pickup geo.Point, radiusKm float64, class domain.VehicleClass) ([]string, error)
	Offer(ctx context.Context, ride *domain.Ride, candidates []string)
}

var _ MatchingServiceInterface = (*MatchingService)(nil)

// FindCandidates returns the connected drivers within radiusKm of pickup
// whose vehicle class matches the request (empty class matches any),
// nearest first. Stale and disconnected drivers are excluded.
func (s *MatchingService) FindCandidates(ctx context.Context, pickup geo.Point, radiusKm float64, class domain.VehicleClass) ([]string, error) {
	if !pickup.IsValid() {
		return nil, ErrInvalidLocation
	}
	if radiusKm <= 0 {
		radiusKm = s.searchRadius
	}

	nearby, err := s.locationStore.Query(ctx, pickup, radiusKm)
	if err != nil {
		if errors.Is(err, location.ErrInvalidCenter) {
			return nil, ErrInvalidLocation
		}
		return nil, err
	}

	candidates := make([]string, 0, len(nearby))
	for _, loc := range nearby {
		if !s.registry.Connected(loc.DriverID) {
			continue
		}

		driver, err := s.driverRepo.GetByID(ctx, loc.DriverID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				continue
			}
			return nil, err
		}
		if driver.Status != domain.DriverStatusOnline {
			continue
		}
		if class != "" && driver.VehicleClass != class {
			continue
		}

		candidates = append(candidates, loc.DriverID)
	}

	return candidates, nil
}

// Offer fans the new-ride-offer event out to every candidate. Fire and
// forget: no acknowledgment is tracked, and the payload never carries the
// OTP.
func (s *MatchingService) Offer(ctx context.Context, ride *domain.Ride, candidates []string) {
	view := PublicRideView(ride)
	for _, driverID := range candidates {
		s.broadcaster.Publish(driverID, EventNewRideOffer, view)
	}

	s.log.Info("ride offered",
		zap.String("ride_id", ride.ID),
		zap.Int("candidates", len(candidates)))
}
