package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"hail/internal/domain"
	"hail/internal/geo"
	"hail/internal/redis"
	"hail/internal/repository"
)

const (
	rideLockTTL      = 10 * time.Second
	rideLockRetry    = 25 * time.Millisecond
	rideLockDeadline = 2 * time.Second
)

// RideService owns the ride state machine. Every mutation of a ride goes
// through a transition method here; each transition is a store-level
// compare-and-set executed under a per-ride lock, so competing calls on the
// same ride serialize and events reach subscribers in commit order.
// Unrelated rides never contend.
type RideService struct {
	rideRepo    repository.RideRepository
	riderRepo   repository.RiderRepository
	driverRepo  repository.DriverRepository
	geocoder    Geocoder
	fares       FareEstimator
	matching    MatchingServiceInterface
	lockStore   redis.LockStoreInterface
	cacheStore  *redis.CacheStore
	broadcaster Publisher
	receipts    *ReceiptService
	log         *zap.Logger
}

// Publisher is the broadcaster surface the lifecycle needs.
type Publisher interface {
	Publish(actorID, event string, payload any)
}

// NewRideService creates a new RideService. lockStore and cacheStore may be
// nil; the compare-and-set writes alone keep transitions correct, the lock
// additionally pins event order to commit order.
func NewRideService(
	rideRepo repository.RideRepository,
	riderRepo repository.RiderRepository,
	driverRepo repository.DriverRepository,
	geocoder Geocoder,
	fares FareEstimator,
	matching MatchingServiceInterface,
	lockStore redis.LockStoreInterface,
	cacheStore *redis.CacheStore,
	broadcaster Publisher,
	receipts *ReceiptService,
	log *zap.Logger,
) *RideService {
	if log == nil {
		log = zap.NewNop()
	}
	return &RideService{
		rideRepo:    rideRepo,
		riderRepo:   riderRepo,
		driverRepo:  driverRepo,
		geocoder:    geocoder,
		fares:       fares,
		matching:    matching,
		lockStore:   lockStore,
		cacheStore:  cacheStore,
		broadcaster: broadcaster,
		receipts:    receipts,
		log:         log,
	}
}

// withRideLock runs fn while holding the per-ride lock. Contending callers
// spin briefly; the lock exists so a transition's commit and its publish are
// not interleaved with another transition on the same ride.
func (s *RideService) withRideLock(ctx context.Context, rideID string, fn func() error) error {
	if s.lockStore == nil {
		return fn()
	}

	deadline := time.Now().Add(rideLockDeadline)
	for {
		locked, err := s.lockStore.AcquireRideLock(ctx, rideID, rideLockTTL)
		if err != nil {
			return err
		}
		if locked {
			break
		}
		if time.Now().After(deadline) {
			return ErrRideBusy
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(rideLockRetry):
		}
	}
	defer func() { _ = s.lockStore.ReleaseRideLock(ctx, rideID) }()

	return fn()
}

// CreateRideRequest contains the parameters for creating a ride.
type CreateRideRequest struct {
	RiderID       string
	Pickup        string
	Destination   string
	VehicleClass  domain.VehicleClass
	PaymentMethod domain.PaymentMethod
	RadiusKm      float64 // 0 uses the matcher default
}

// Create creates a ride in requested state and fans the offer out to nearby
// connected drivers. The returned ride still carries its OTP; callers expose
// it to the rider only.
func (s *RideService) Create(ctx context.Context, req CreateRideRequest) (*domain.Ride, error) {
	if err := s.validateCreateRequest(req); err != nil {
		return nil, err
	}

	method, err := ValidatePaymentMethod(string(req.PaymentMethod))
	if err != nil {
		return nil, err
	}

	if _, err := s.riderRepo.GetByID(ctx, req.RiderID); err != nil {
		return nil, err
	}

	pickup, err := s.geocoder.Resolve(ctx, req.Pickup)
	if err != nil {
		return nil, err
	}
	destination, err := s.geocoder.Resolve(ctx, req.Destination)
	if err != nil {
		return nil, err
	}

	estimate, err := s.fares.Estimate(ctx, pickup, destination, req.VehicleClass)
	if err != nil {
		return nil, err
	}

	otp, err := generateOTP()
	if err != nil {
		return nil, err
	}

	ride := &domain.Ride{
		ID:                 uuid.New().String(),
		RiderID:            req.RiderID,
		PickupAddress:      req.Pickup,
		Pickup:             pickup,
		DestinationAddress: req.Destination,
		Destination:        destination,
		VehicleClass:       req.VehicleClass,
		PaymentMethod:      method,
		OTP:                otp,
		Status:             domain.RideStatusRequested,
		PaymentStatus:      domain.PaymentStatusNone,
		Fare:               estimate.Fare,
		CreatedAt:          time.Now(),
	}

	if err := s.rideRepo.Create(ctx, ride); err != nil {
		return nil, err
	}

	// Fan-out is best effort; a ride with no reachable drivers stays
	// requested and can be offered again by a later sweep.
	candidates, err := s.matching.FindCandidates(ctx, pickup, req.RadiusKm, req.VehicleClass)
	if err != nil {
		s.log.Warn("candidate lookup failed",
			zap.String("ride_id", ride.ID), zap.Error(err))
	} else {
		s.matching.Offer(ctx, ride, candidates)
	}

	return ride, nil
}

// Accept assigns the ride to the first driver whose compare-and-set lands.
// Everyone else gets ErrAlreadyAccepted, which callers treat as expected
// contention. On success the rider receives ride-confirmed, carrying the OTP
// for the one and only time.
func (s *RideService) Accept(ctx context.Context, rideID, driverID string) (*domain.Ride, error) {
	if rideID == "" {
		return nil, ErrInvalidRideID
	}
	if driverID == "" {
		return nil, ErrInvalidDriverID
	}

	if _, err := s.driverRepo.GetByID(ctx, driverID); err != nil {
		return nil, err
	}

	var ride *domain.Ride
	err := s.withRideLock(ctx, rideID, func() error {
		won, err := s.rideRepo.AssignDriver(ctx, rideID, driverID)
		if err != nil {
			return err
		}

		current, err := s.rideRepo.GetByID(ctx, rideID)
		if err != nil {
			return err
		}

		if !won {
			if current.DriverID != "" && current.DriverID != driverID {
				return ErrAlreadyAccepted
			}
			return ErrInvalidStateTransition
		}

		ride = current
		s.invalidateCache(ctx, rideID)
		s.broadcaster.Publish(ride.RiderID, EventRideConfirmed, RiderRideView(ride))
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("ride accepted",
		zap.String("ride_id", rideID), zap.String("driver_id", driverID))
	return ride, nil
}

// Start moves accepted → ongoing, gated on an exact OTP match by the
// assigned driver. A mismatch mutates nothing and never reveals the stored
// value.
func (s *RideService) Start(ctx context.Context, rideID, driverID, otp string) (*domain.Ride, error) {
	if rideID == "" {
		return nil, ErrInvalidRideID
	}
	if driverID == "" {
		return nil, ErrInvalidDriverID
	}

	var ride *domain.Ride
	err := s.withRideLock(ctx, rideID, func() error {
		current, err := s.rideRepo.GetByID(ctx, rideID)
		if err != nil {
			return err
		}
		if current.DriverID != driverID {
			return ErrNotAssignedDriver
		}
		if current.Status != domain.RideStatusAccepted {
			return ErrInvalidStateTransition
		}
		if current.OTP != otp {
			return ErrOtpMismatch
		}

		moved, err := s.rideRepo.UpdateStatusFrom(ctx, rideID, domain.RideStatusAccepted, domain.RideStatusOngoing)
		if err != nil {
			return err
		}
		if !moved {
			return ErrInvalidStateTransition
		}

		current.Status = domain.RideStatusOngoing
		ride = current
		s.invalidateCache(ctx, rideID)
		s.broadcaster.Publish(ride.RiderID, EventRideStarted, PublicRideView(ride))
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("ride started", zap.String("ride_id", rideID))
	return ride, nil
}

// Complete moves ongoing → completed and records the distance travelled. The
// payment gate (settled online payment, or cash method) is enforced in the
// same store write as the status change.
func (s *RideService) Complete(ctx context.Context, rideID, driverID string, distanceKm float64) (*domain.Ride, error) {
	if rideID == "" {
		return nil, ErrInvalidRideID
	}
	if driverID == "" {
		return nil, ErrInvalidDriverID
	}

	var ride *domain.Ride
	err := s.withRideLock(ctx, rideID, func() error {
		current, err := s.rideRepo.GetByID(ctx, rideID)
		if err != nil {
			return err
		}
		if current.DriverID != driverID {
			return ErrNotAssignedDriver
		}
		if current.Status != domain.RideStatusOngoing {
			return ErrInvalidStateTransition
		}

		done, err := s.rideRepo.Complete(ctx, rideID, distanceKm)
		if err != nil {
			return err
		}
		if !done {
			// The conditional write refused: either the payment gate
			// failed or a racing call moved the status first.
			if !current.SettledForCompletion() {
				return ErrPaymentNotSettled
			}
			return ErrInvalidStateTransition
		}

		current.Status = domain.RideStatusCompleted
		current.DistanceKm = distanceKm
		ride = current
		s.invalidateCache(ctx, rideID)

		payload := PublicRideView(ride)
		s.broadcaster.Publish(ride.DriverID, EventRideEnded, payload)
		s.broadcaster.Publish(ride.RiderID, EventRideEnded, payload)

		if s.receipts != nil {
			if receipt := s.receipts.Generate(ride); receipt != nil {
				s.broadcaster.Publish(ride.RiderID, EventReceiptReady, receipt)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("ride completed",
		zap.String("ride_id", rideID), zap.Float64("distance_km", distanceKm))
	return ride, nil
}

// Cancel moves a pre-start ride to cancelled and notifies whichever party
// did not cancel.
func (s *RideService) Cancel(ctx context.Context, rideID, actorID, reason string) (*domain.Ride, error) {
	if rideID == "" {
		return nil, ErrInvalidRideID
	}

	var ride *domain.Ride
	err := s.withRideLock(ctx, rideID, func() error {
		current, err := s.rideRepo.GetByID(ctx, rideID)
		if err != nil {
			return err
		}
		if actorID != current.RiderID && actorID != current.DriverID {
			return ErrNotRideParty
		}
		if !current.Status.CanTransitionTo(domain.RideStatusCancelled) {
			return ErrInvalidStateTransition
		}

		now := time.Now()
		moved, err := s.rideRepo.Cancel(ctx, rideID, reason, now)
		if err != nil {
			return err
		}
		if !moved {
			return ErrInvalidStateTransition
		}

		current.Status = domain.RideStatusCancelled
		current.CancelledAt = now
		current.CancelReason = reason
		ride = current
		s.invalidateCache(ctx, rideID)

		// Notify the other party, if there is one to notify.
		other := current.RiderID
		if actorID == current.RiderID {
			other = current.DriverID
		}
		if other != "" {
			s.broadcaster.Publish(other, EventRideCancelled, PublicRideView(ride))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("ride cancelled",
		zap.String("ride_id", rideID), zap.String("by", actorID))
	return ride, nil
}

// Get retrieves a ride, serving the short-lived cache when warm. Rides served
// from cache carry no OTP; transition methods always read the store directly.
func (s *RideService) Get(ctx context.Context, rideID string) (*domain.Ride, error) {
	if rideID == "" {
		return nil, ErrInvalidRideID
	}

	if s.cacheStore != nil {
		if cached, err := s.cacheStore.GetRide(ctx, rideID); err == nil && cached != nil {
			return rideFromCache(cached), nil
		}
	}

	ride, err := s.rideRepo.GetByID(ctx, rideID)
	if err != nil {
		return nil, err
	}

	if s.cacheStore != nil {
		_ = s.cacheStore.SetRide(ctx, rideToCache(ride))
	}
	return ride, nil
}

func rideToCache(r *domain.Ride) *redis.CachedRide {
	return &redis.CachedRide{
		ID:                 r.ID,
		RiderID:            r.RiderID,
		DriverID:           r.DriverID,
		PickupAddress:      r.PickupAddress,
		PickupLat:          r.Pickup.Lat,
		PickupLng:          r.Pickup.Lng,
		DestinationAddress: r.DestinationAddress,
		DestinationLat:     r.Destination.Lat,
		DestinationLng:     r.Destination.Lng,
		VehicleClass:       string(r.VehicleClass),
		PaymentMethod:      string(r.PaymentMethod),
		Status:             string(r.Status),
		PaymentStatus:      string(r.PaymentStatus),
		Fare:               r.Fare,
		DistanceKm:         r.DistanceKm,
		CreatedAt:          r.CreatedAt,
	}
}

func rideFromCache(c *redis.CachedRide) *domain.Ride {
	return &domain.Ride{
		ID:                 c.ID,
		RiderID:            c.RiderID,
		DriverID:           c.DriverID,
		PickupAddress:      c.PickupAddress,
		Pickup:             geo.Point{Lat: c.PickupLat, Lng: c.PickupLng},
		DestinationAddress: c.DestinationAddress,
		Destination:        geo.Point{Lat: c.DestinationLat, Lng: c.DestinationLng},
		VehicleClass:       domain.VehicleClass(c.VehicleClass),
		PaymentMethod:      domain.PaymentMethod(c.PaymentMethod),
		Status:             domain.RideStatus(c.Status),
		PaymentStatus:      domain.PaymentStatus(c.PaymentStatus),
		Fare:               c.Fare,
		DistanceKm:         c.DistanceKm,
		CreatedAt:          c.CreatedAt,
	}
}

func (s *RideService) invalidateCache(ctx context.Context, rideID string) {
	if s.cacheStore == nil {
		return
	}
	_ = s.cacheStore.InvalidateRide(ctx, rideID)
}

func (s *RideService) validateCreateRequest(req CreateRideRequest) error {
	if req.RiderID == "" {
		return ErrInvalidRiderID
	}
	if len(req.Pickup) < 3 || len(req.Destination) < 3 {
		return ErrInvalidAddress
	}
	if _, err := ValidateVehicleClass(string(req.VehicleClass)); err != nil {
		return err
	}
	if _, err := ValidatePaymentMethod(string(req.PaymentMethod)); err != nil {
		return err
	}
	return nil
}

// ValidateVehicleClass validates a vehicle class string.
func ValidateVehicleClass(class string) (domain.VehicleClass, error) {
	switch domain.VehicleClass(class) {
	case domain.VehicleClassAuto, domain.VehicleClassCar, domain.VehicleClassMoto:
		return domain.VehicleClass(class), nil
	default:
		return "", ErrInvalidVehicleClass
	}
}

// ValidatePaymentMethod validates a payment method string.
func ValidatePaymentMethod(method string) (domain.PaymentMethod, error) {
	switch domain.PaymentMethod(method) {
	case domain.PaymentMethodCash, domain.PaymentMethodOnline:
		return domain.PaymentMethod(method), nil
	case "":
		return domain.PaymentMethodCash, nil // Default to cash
	default:
		return "", ErrInvalidPaymentMethod
	}
}
