package tests

import (
	"context"
	"errors"
	"sync"
	"testing"

	"hail/internal/domain"
	"hail/internal/geo"
	"hail/internal/location"
	"hail/internal/realtime"
	"hail/internal/service"
)

// ──────────────────────────────────────────────
// DRIVER MATCHING
// ──────────────────────────────────────────────

// recordChannel is an in-memory realtime.Channel for tests.
type recordChannel struct {
	mu     sync.Mutex
	events []PublishedEvent
	closed bool
}

func (c *recordChannel) Send(event string, payload any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return realtime.ErrChannelClosed
	}
	c.events = append(c.events, PublishedEvent{Event: event, Payload: payload})
	return nil
}

func (c *recordChannel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *recordChannel) Events() []PublishedEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	result := make([]PublishedEvent, len(c.events))
	copy(result, c.events)
	return result
}

// matchFixture wires a real matcher over an in-memory location store.
type matchFixture struct {
	store      *location.MemoryStore
	driverRepo *MockDriverRepository
	registry   *realtime.Registry
	matcher    *service.MatchingService
}

func newMatchFixture() *matchFixture {
	f := &matchFixture{
		store:      location.NewMemoryStore(0),
		driverRepo: NewMockDriverRepository(),
		registry:   realtime.NewRegistry(),
	}
	f.matcher = service.NewMatchingService(
		f.store,
		f.driverRepo,
		f.registry,
		realtime.NewBroadcaster(f.registry, nil),
		0,
		nil,
	)
	return f
}

// newMatchFixtureWithRadius builds a fixture whose matcher falls back to the
// given radius when a request omits one.
func newMatchFixtureWithRadius(radiusKm float64) *matchFixture {
	f := &matchFixture{
		store:      location.NewMemoryStore(0),
		driverRepo: NewMockDriverRepository(),
		registry:   realtime.NewRegistry(),
	}
	f.matcher = service.NewMatchingService(
		f.store,
		f.driverRepo,
		f.registry,
		realtime.NewBroadcaster(f.registry, nil),
		radiusKm,
		nil,
	)
	return f
}

// connectDriver registers a driver as online, positioned, and connected.
func (f *matchFixture) connectDriver(id string, class domain.VehicleClass, pos geo.Point) *recordChannel {
	f.driverRepo.AddDriver(&domain.Driver{ID: id, VehicleClass: class, Status: domain.DriverStatusOnline})
	_ = f.store.Upsert(context.Background(), id, pos)
	ch := &recordChannel{}
	f.registry.Register(id, ch)
	return ch
}

// Pickup at MG Road, Bengaluru. driverNear is roughly 1 km away,
// driverFar roughly 25 km.
var (
	pickup     = geo.Point{Lat: 12.9756, Lng: 77.6066}
	nearPoint  = geo.Point{Lat: 12.9846, Lng: 77.6066}
	closePoint = geo.Point{Lat: 12.9786, Lng: 77.6066}
	farPoint   = geo.Point{Lat: 13.1989, Lng: 77.7068}
)

func TestMatching_FiltersByRadius(t *testing.T) {
	t.Parallel()

	f := newMatchFixture()
	f.connectDriver("driver-near", domain.VehicleClassCar, nearPoint)
	f.connectDriver("driver-far", domain.VehicleClassCar, farPoint)

	candidates, err := f.matcher.FindCandidates(context.Background(), pickup, 2.0, domain.VehicleClassCar)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(candidates) != 1 || candidates[0] != "driver-near" {
		t.Errorf("expected [driver-near], got %v", candidates)
	}
}

func TestMatching_ConfiguredRadiusFallback(t *testing.T) {
	t.Parallel()

	f := newMatchFixtureWithRadius(30.0)
	f.connectDriver("driver-near", domain.VehicleClassCar, nearPoint)
	f.connectDriver("driver-far", domain.VehicleClassCar, farPoint)

	candidates, err := f.matcher.FindCandidates(context.Background(), pickup, 0, domain.VehicleClassCar)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(candidates) != 2 {
		t.Fatalf("expected both drivers within the configured 30km fallback, got %v", candidates)
	}

	tight := newMatchFixture()
	tight.connectDriver("driver-near", domain.VehicleClassCar, nearPoint)
	tight.connectDriver("driver-far", domain.VehicleClassCar, farPoint)

	candidates, err = tight.matcher.FindCandidates(context.Background(), pickup, 0, domain.VehicleClassCar)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(candidates) != 1 || candidates[0] != "driver-near" {
		t.Errorf("expected only driver-near under the 2km default, got %v", candidates)
	}
}

func TestMatching_NearestFirst(t *testing.T) {
	t.Parallel()

	f := newMatchFixture()
	f.connectDriver("driver-1km", domain.VehicleClassCar, nearPoint)
	f.connectDriver("driver-300m", domain.VehicleClassCar, closePoint)

	candidates, err := f.matcher.FindCandidates(context.Background(), pickup, 2.0, domain.VehicleClassCar)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(candidates) != 2 {
		t.Fatalf("expected 2 candidates, got %v", candidates)
	}
	if candidates[0] != "driver-300m" || candidates[1] != "driver-1km" {
		t.Errorf("expected nearest first, got %v", candidates)
	}
}

func TestMatching_ExcludesDisconnectedAndOffline(t *testing.T) {
	t.Parallel()

	f := newMatchFixture()
	f.connectDriver("driver-connected", domain.VehicleClassCar, nearPoint)

	// Positioned but never connected.
	f.driverRepo.AddDriver(&domain.Driver{ID: "driver-silent", VehicleClass: domain.VehicleClassCar, Status: domain.DriverStatusOnline})
	_ = f.store.Upsert(context.Background(), "driver-silent", closePoint)

	// Connected but offline.
	ch := f.connectDriver("driver-offline", domain.VehicleClassCar, closePoint)
	f.driverRepo.GetDriver("driver-offline").Status = domain.DriverStatusOffline
	defer ch.Close()

	candidates, err := f.matcher.FindCandidates(context.Background(), pickup, 2.0, domain.VehicleClassCar)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(candidates) != 1 || candidates[0] != "driver-connected" {
		t.Errorf("expected [driver-connected], got %v", candidates)
	}
}

func TestMatching_FiltersByVehicleClass(t *testing.T) {
	t.Parallel()

	f := newMatchFixture()
	f.connectDriver("driver-car", domain.VehicleClassCar, nearPoint)
	f.connectDriver("driver-moto", domain.VehicleClassMoto, closePoint)

	candidates, err := f.matcher.FindCandidates(context.Background(), pickup, 2.0, domain.VehicleClassCar)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(candidates) != 1 || candidates[0] != "driver-car" {
		t.Errorf("expected [driver-car], got %v", candidates)
	}

	// Empty class matches any.
	all, err := f.matcher.FindCandidates(context.Background(), pickup, 2.0, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("expected both drivers for empty class, got %v", all)
	}
}

func TestMatching_RejectsInvalidCenter(t *testing.T) {
	t.Parallel()

	f := newMatchFixture()
	_, err := f.matcher.FindCandidates(context.Background(), geo.Point{Lat: 91, Lng: 0}, 2.0, domain.VehicleClassCar)
	if !errors.Is(err, service.ErrInvalidLocation) {
		t.Errorf("expected ErrInvalidLocation, got %v", err)
	}
}

func TestMatching_OfferCarriesNoOTP(t *testing.T) {
	t.Parallel()

	f := newMatchFixture()
	ch := f.connectDriver("driver-1", domain.VehicleClassCar, nearPoint)

	ride := &domain.Ride{
		ID:      "ride-1",
		RiderID: "rider-1",
		OTP:     "987654",
		Status:  domain.RideStatusRequested,
	}
	f.matcher.Offer(context.Background(), ride, []string{"driver-1", "driver-gone"})

	events := ch.Events()
	if len(events) != 1 {
		t.Fatalf("expected one offer, got %d", len(events))
	}
	if events[0].Event != service.EventNewRideOffer {
		t.Errorf("expected new-ride-offer, got %s", events[0].Event)
	}
	view, ok := events[0].Payload.(service.RideView)
	if !ok {
		t.Fatalf("unexpected payload type %T", events[0].Payload)
	}
	if view.OTP != "" {
		t.Error("driver offer must never carry the OTP")
	}
}

func TestMatching_OfferToDisconnectedDriverIsDropped(t *testing.T) {
	t.Parallel()

	f := newMatchFixture()
	ride := &domain.Ride{ID: "ride-1", RiderID: "rider-1", Status: domain.RideStatusRequested}

	// No channels registered at all; must not panic or error.
	f.matcher.Offer(context.Background(), ride, []string{"driver-a", "driver-b"})
}
