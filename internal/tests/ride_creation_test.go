package tests

import (
	"context"
	"errors"
	"testing"

	"hail/internal/domain"
	"hail/internal/geo"
	"hail/internal/service"
)

// ──────────────────────────────────────────────
// RIDE CREATION
// ──────────────────────────────────────────────

// rideFixture bundles a wired RideService with its mocks.
type rideFixture struct {
	rideRepo   *MockRideRepository
	riderRepo  *MockRiderRepository
	driverRepo *MockDriverRepository
	geocoder   *MockGeocoder
	matcher    *StubMatcher
	locks      *MockLockStore
	publisher  *RecordingPublisher
	service    *service.RideService
}

func newRideFixture() *rideFixture {
	f := &rideFixture{
		rideRepo:   NewMockRideRepository(),
		riderRepo:  NewMockRiderRepository(),
		driverRepo: NewMockDriverRepository(),
		geocoder:   NewMockGeocoder(),
		matcher:    &StubMatcher{},
		locks:      NewMockLockStore(),
		publisher:  NewRecordingPublisher(),
	}
	f.service = service.NewRideService(
		f.rideRepo,
		f.riderRepo,
		f.driverRepo,
		f.geocoder,
		service.NewRateCardEstimator(),
		f.matcher,
		f.locks,
		nil,
		f.publisher,
		service.NewReceiptService(),
		nil,
	)

	f.riderRepo.AddRider(&domain.Rider{ID: "rider-1", Name: "Asha", Phone: "+911234567890"})
	f.geocoder.AddAddress("MG Road", geo.Point{Lat: 12.9756, Lng: 77.6066})
	f.geocoder.AddAddress("Airport", geo.Point{Lat: 13.1989, Lng: 77.7068})
	return f
}

func TestRideCreate_GeneratesOTPAndFare(t *testing.T) {
	t.Parallel()

	f := newRideFixture()
	ride, err := f.service.Create(context.Background(), service.CreateRideRequest{
		RiderID:       "rider-1",
		Pickup:        "MG Road",
		Destination:   "Airport",
		VehicleClass:  domain.VehicleClassCar,
		PaymentMethod: domain.PaymentMethodOnline,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if ride.Status != domain.RideStatusRequested {
		t.Errorf("expected status %s, got %s", domain.RideStatusRequested, ride.Status)
	}
	if len(ride.OTP) != 6 {
		t.Errorf("expected 6-digit OTP, got %q", ride.OTP)
	}
	for _, c := range ride.OTP {
		if c < '0' || c > '9' {
			t.Errorf("OTP contains non-digit: %q", ride.OTP)
		}
	}
	if ride.Fare <= 0 {
		t.Errorf("expected positive fare, got %f", ride.Fare)
	}
	if ride.DriverID != "" {
		t.Errorf("new ride must have no driver, got %q", ride.DriverID)
	}
	if f.rideRepo.CountRides() != 1 {
		t.Errorf("expected 1 persisted ride, got %d", f.rideRepo.CountRides())
	}
}

func TestRideCreate_DefaultsToCashPayment(t *testing.T) {
	t.Parallel()

	f := newRideFixture()
	ride, err := f.service.Create(context.Background(), service.CreateRideRequest{
		RiderID:      "rider-1",
		Pickup:       "MG Road",
		Destination:  "Airport",
		VehicleClass: domain.VehicleClassAuto,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if ride.PaymentMethod != domain.PaymentMethodCash {
		t.Errorf("expected cash default, got %s", ride.PaymentMethod)
	}
}

func TestRideCreate_RejectsBadInput(t *testing.T) {
	t.Parallel()

	f := newRideFixture()
	ctx := context.Background()

	cases := []struct {
		name    string
		req     service.CreateRideRequest
		wantErr error
	}{
		{
			name:    "missing rider",
			req:     service.CreateRideRequest{Pickup: "MG Road", Destination: "Airport", VehicleClass: domain.VehicleClassCar},
			wantErr: service.ErrInvalidRiderID,
		},
		{
			name:    "short pickup address",
			req:     service.CreateRideRequest{RiderID: "rider-1", Pickup: "ab", Destination: "Airport", VehicleClass: domain.VehicleClassCar},
			wantErr: service.ErrInvalidAddress,
		},
		{
			name:    "unknown vehicle class",
			req:     service.CreateRideRequest{RiderID: "rider-1", Pickup: "MG Road", Destination: "Airport", VehicleClass: "boat"},
			wantErr: service.ErrInvalidVehicleClass,
		},
		{
			name:    "unknown payment method",
			req:     service.CreateRideRequest{RiderID: "rider-1", Pickup: "MG Road", Destination: "Airport", VehicleClass: domain.VehicleClassCar, PaymentMethod: "barter"},
			wantErr: service.ErrInvalidPaymentMethod,
		},
	}

	for _, tc := range cases {
		_, err := f.service.Create(ctx, tc.req)
		if !errors.Is(err, tc.wantErr) {
			t.Errorf("%s: expected %v, got %v", tc.name, tc.wantErr, err)
		}
	}

	if f.rideRepo.CountRides() != 0 {
		t.Errorf("invalid requests must not persist rides, got %d", f.rideRepo.CountRides())
	}
}

func TestRideCreate_UnknownRiderRejected(t *testing.T) {
	t.Parallel()

	f := newRideFixture()
	_, err := f.service.Create(context.Background(), service.CreateRideRequest{
		RiderID:      "ghost",
		Pickup:       "MG Road",
		Destination:  "Airport",
		VehicleClass: domain.VehicleClassCar,
	})
	if err == nil {
		t.Fatal("expected error for unknown rider")
	}
}

func TestRideCreate_GeocodeFailurePersistsNothing(t *testing.T) {
	t.Parallel()

	f := newRideFixture()
	_, err := f.service.Create(context.Background(), service.CreateRideRequest{
		RiderID:      "rider-1",
		Pickup:       "MG Road",
		Destination:  "Nowhere Lane",
		VehicleClass: domain.VehicleClassCar,
	})
	if err == nil {
		t.Fatal("expected geocode error")
	}
	if f.rideRepo.CountRides() != 0 {
		t.Errorf("failed create must not persist, got %d rides", f.rideRepo.CountRides())
	}
}

func TestRideCreate_MatcherFailureIsNotFatal(t *testing.T) {
	t.Parallel()

	f := newRideFixture()
	f.matcher.FindError = ErrMockStoreDown

	ride, err := f.service.Create(context.Background(), service.CreateRideRequest{
		RiderID:      "rider-1",
		Pickup:       "MG Road",
		Destination:  "Airport",
		VehicleClass: domain.VehicleClassCar,
	})
	if err != nil {
		t.Fatalf("fan-out failure must not fail creation: %v", err)
	}
	if ride.Status != domain.RideStatusRequested {
		t.Errorf("ride should stay requested, got %s", ride.Status)
	}
}

func TestRideCreate_OffersToCandidates(t *testing.T) {
	t.Parallel()

	f := newRideFixture()
	f.matcher.Candidates = []string{"driver-1", "driver-2"}

	_, err := f.service.Create(context.Background(), service.CreateRideRequest{
		RiderID:      "rider-1",
		Pickup:       "MG Road",
		Destination:  "Airport",
		VehicleClass: domain.VehicleClassCar,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if f.matcher.OfferCallCount != 1 {
		t.Errorf("expected one offer call, got %d", f.matcher.OfferCallCount)
	}
}

func TestFareEstimate_RespectsClassMinimum(t *testing.T) {
	t.Parallel()

	estimator := service.NewRateCardEstimator()
	near := geo.Point{Lat: 12.9756, Lng: 77.6066}
	alsoNear := geo.Point{Lat: 12.9757, Lng: 77.6067}

	estimate, err := estimator.Estimate(context.Background(), near, alsoNear, domain.VehicleClassCar)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if estimate.Fare != 80 {
		t.Errorf("short trip should hit the car minimum fare 80, got %f", estimate.Fare)
	}

	_, err = estimator.Estimate(context.Background(), near, alsoNear, "boat")
	if !errors.Is(err, service.ErrInvalidVehicleClass) {
		t.Errorf("expected ErrInvalidVehicleClass, got %v", err)
	}
}
