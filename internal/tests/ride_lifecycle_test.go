package tests

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"hail/internal/domain"
	"hail/internal/service"
)

// ──────────────────────────────────────────────
// RIDE LIFECYCLE
// ──────────────────────────────────────────────

func addRequestedRide(f *rideFixture, id string) *domain.Ride {
	ride := &domain.Ride{
		ID:            id,
		RiderID:       "rider-1",
		PickupAddress: "MG Road",
		VehicleClass:  domain.VehicleClassCar,
		PaymentMethod: domain.PaymentMethodCash,
		OTP:           "421337",
		Status:        domain.RideStatusRequested,
		PaymentStatus: domain.PaymentStatusNone,
		Fare:          180,
	}
	f.rideRepo.AddRide(ride)
	return ride
}

func addOnlineDriver(f *rideFixture, id string) {
	f.driverRepo.AddDriver(&domain.Driver{
		ID:           id,
		VehicleClass: domain.VehicleClassCar,
		Status:       domain.DriverStatusOnline,
	})
}

func TestRideAccept_FirstDriverWins(t *testing.T) {
	t.Parallel()

	f := newRideFixture()
	addRequestedRide(f, "ride-1")
	addOnlineDriver(f, "driver-1")
	addOnlineDriver(f, "driver-2")

	ctx := context.Background()

	ride, err := f.service.Accept(ctx, "ride-1", "driver-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ride.Status != domain.RideStatusAccepted {
		t.Errorf("expected accepted, got %s", ride.Status)
	}
	if ride.DriverID != "driver-1" {
		t.Errorf("expected driver-1, got %s", ride.DriverID)
	}

	_, err = f.service.Accept(ctx, "ride-1", "driver-2")
	if !errors.Is(err, service.ErrAlreadyAccepted) {
		t.Errorf("expected ErrAlreadyAccepted, got %v", err)
	}

	// Assignment is permanent: the loser never appears on the ride.
	stored := f.rideRepo.GetRide("ride-1")
	if stored.DriverID != "driver-1" {
		t.Errorf("assignment changed after losing accept: %s", stored.DriverID)
	}
}

func TestRideAccept_ConcurrentDriversExactlyOneWins(t *testing.T) {
	t.Parallel()

	f := newRideFixture()
	addRequestedRide(f, "ride-1")

	const drivers = 20
	for i := 0; i < drivers; i++ {
		addOnlineDriver(f, fmt.Sprintf("driver-%d", i))
	}

	var wg sync.WaitGroup
	errs := make([]error, drivers)
	for i := 0; i < drivers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.service.Accept(context.Background(), "ride-1", fmt.Sprintf("driver-%d", i))
		}(i)
	}
	wg.Wait()

	wins, rejections := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, service.ErrAlreadyAccepted):
			rejections++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}

	if wins != 1 {
		t.Fatalf("expected exactly one winner, got %d", wins)
	}
	if rejections != drivers-1 {
		t.Errorf("expected %d rejections, got %d", drivers-1, rejections)
	}

	// Exactly one confirmation, addressed to the rider, carrying the OTP.
	confirmed := f.publisher.EventsFor("rider-1")
	if len(confirmed) != 1 || confirmed[0].Event != service.EventRideConfirmed {
		t.Fatalf("expected one ride-confirmed to rider, got %+v", confirmed)
	}
	view, ok := confirmed[0].Payload.(service.RideView)
	if !ok {
		t.Fatalf("unexpected payload type %T", confirmed[0].Payload)
	}
	if view.OTP != "421337" {
		t.Errorf("rider confirmation must carry the OTP, got %q", view.OTP)
	}
}

func TestRideAccept_UnknownDriverRejected(t *testing.T) {
	t.Parallel()

	f := newRideFixture()
	addRequestedRide(f, "ride-1")

	_, err := f.service.Accept(context.Background(), "ride-1", "ghost")
	if err == nil {
		t.Fatal("expected error for unknown driver")
	}
}

func TestRideStart_RequiresExactOTP(t *testing.T) {
	t.Parallel()

	f := newRideFixture()
	addRequestedRide(f, "ride-1")
	addOnlineDriver(f, "driver-1")

	ctx := context.Background()
	if _, err := f.service.Accept(ctx, "ride-1", "driver-1"); err != nil {
		t.Fatalf("accept failed: %v", err)
	}

	_, err := f.service.Start(ctx, "ride-1", "driver-1", "000000")
	if !errors.Is(err, service.ErrOtpMismatch) {
		t.Fatalf("expected ErrOtpMismatch, got %v", err)
	}

	// A failed check mutates nothing.
	stored := f.rideRepo.GetRide("ride-1")
	if stored.Status != domain.RideStatusAccepted {
		t.Errorf("ride moved on OTP mismatch: %s", stored.Status)
	}
	if stored.OTP != "421337" {
		t.Errorf("OTP changed on mismatch: %s", stored.OTP)
	}

	ride, err := f.service.Start(ctx, "ride-1", "driver-1", "421337")
	if err != nil {
		t.Fatalf("start with correct OTP failed: %v", err)
	}
	if ride.Status != domain.RideStatusOngoing {
		t.Errorf("expected ongoing, got %s", ride.Status)
	}

	// The rider is told, and the started payload never carries the OTP.
	events := f.publisher.EventsFor("rider-1")
	last := events[len(events)-1]
	if last.Event != service.EventRideStarted {
		t.Errorf("expected ride-started, got %s", last.Event)
	}
	if view, ok := last.Payload.(service.RideView); ok && view.OTP != "" {
		t.Error("ride-started payload must not carry the OTP")
	}
}

func TestRideStart_OnlyAssignedDriver(t *testing.T) {
	t.Parallel()

	f := newRideFixture()
	addRequestedRide(f, "ride-1")
	addOnlineDriver(f, "driver-1")
	addOnlineDriver(f, "driver-2")

	ctx := context.Background()
	if _, err := f.service.Accept(ctx, "ride-1", "driver-1"); err != nil {
		t.Fatalf("accept failed: %v", err)
	}

	_, err := f.service.Start(ctx, "ride-1", "driver-2", "421337")
	if !errors.Is(err, service.ErrNotAssignedDriver) {
		t.Errorf("expected ErrNotAssignedDriver, got %v", err)
	}
}

func TestRideComplete_OnlinePaymentGate(t *testing.T) {
	t.Parallel()

	f := newRideFixture()
	ride := addRequestedRide(f, "ride-1")
	ride.PaymentMethod = domain.PaymentMethodOnline
	f.rideRepo.AddRide(ride)
	addOnlineDriver(f, "driver-1")

	ctx := context.Background()
	if _, err := f.service.Accept(ctx, "ride-1", "driver-1"); err != nil {
		t.Fatalf("accept failed: %v", err)
	}
	if _, err := f.service.Start(ctx, "ride-1", "driver-1", "421337"); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	// Payment still pending: the gate refuses and nothing moves.
	if err := f.rideRepo.UpdatePaymentStatus(ctx, "ride-1", domain.PaymentStatusPending); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, err := f.service.Complete(ctx, "ride-1", "driver-1", 12.4)
	if !errors.Is(err, service.ErrPaymentNotSettled) {
		t.Fatalf("expected ErrPaymentNotSettled, got %v", err)
	}
	if stored := f.rideRepo.GetRide("ride-1"); stored.Status != domain.RideStatusOngoing {
		t.Errorf("refused completion moved the ride: %s", stored.Status)
	}

	// Settle, then complete.
	if err := f.rideRepo.UpdatePaymentStatus(ctx, "ride-1", domain.PaymentStatusCompleted); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	done, err := f.service.Complete(ctx, "ride-1", "driver-1", 12.4)
	if err != nil {
		t.Fatalf("complete after settlement failed: %v", err)
	}
	if done.Status != domain.RideStatusCompleted {
		t.Errorf("expected completed, got %s", done.Status)
	}
	if done.DistanceKm != 12.4 {
		t.Errorf("expected distance 12.4, got %f", done.DistanceKm)
	}

	// Both parties hear ride-ended; the rider also gets a receipt.
	if f.publisher.CountEvents(service.EventRideEnded) != 2 {
		t.Errorf("expected ride-ended for both parties")
	}
	if f.publisher.CountEvents(service.EventReceiptReady) != 1 {
		t.Errorf("expected one receipt-ready event")
	}
}

func TestRideComplete_CashNeedsNoSettlement(t *testing.T) {
	t.Parallel()

	f := newRideFixture()
	addRequestedRide(f, "ride-1")
	addOnlineDriver(f, "driver-1")

	ctx := context.Background()
	if _, err := f.service.Accept(ctx, "ride-1", "driver-1"); err != nil {
		t.Fatalf("accept failed: %v", err)
	}
	if _, err := f.service.Start(ctx, "ride-1", "driver-1", "421337"); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	ride, err := f.service.Complete(ctx, "ride-1", "driver-1", 8.0)
	if err != nil {
		t.Fatalf("cash completion failed: %v", err)
	}
	if ride.Status != domain.RideStatusCompleted {
		t.Errorf("expected completed, got %s", ride.Status)
	}
}

func TestRideComplete_BeforeStartRejected(t *testing.T) {
	t.Parallel()

	f := newRideFixture()
	addRequestedRide(f, "ride-1")
	addOnlineDriver(f, "driver-1")

	ctx := context.Background()
	if _, err := f.service.Accept(ctx, "ride-1", "driver-1"); err != nil {
		t.Fatalf("accept failed: %v", err)
	}

	_, err := f.service.Complete(ctx, "ride-1", "driver-1", 5.0)
	if !errors.Is(err, service.ErrInvalidStateTransition) {
		t.Errorf("expected ErrInvalidStateTransition, got %v", err)
	}
}

func TestRideCancel_PartyChecksAndNotification(t *testing.T) {
	t.Parallel()

	f := newRideFixture()
	addRequestedRide(f, "ride-1")
	addOnlineDriver(f, "driver-1")

	ctx := context.Background()

	// A stranger cannot cancel.
	_, err := f.service.Cancel(ctx, "ride-1", "stranger", "changed my mind")
	if !errors.Is(err, service.ErrNotRideParty) {
		t.Fatalf("expected ErrNotRideParty, got %v", err)
	}

	if _, err := f.service.Accept(ctx, "ride-1", "driver-1"); err != nil {
		t.Fatalf("accept failed: %v", err)
	}

	// The rider cancels; the driver is told.
	ride, err := f.service.Cancel(ctx, "ride-1", "rider-1", "waited too long")
	if err != nil {
		t.Fatalf("cancel failed: %v", err)
	}
	if ride.Status != domain.RideStatusCancelled {
		t.Errorf("expected cancelled, got %s", ride.Status)
	}
	if ride.CancelReason != "waited too long" {
		t.Errorf("reason lost: %q", ride.CancelReason)
	}

	driverEvents := f.publisher.EventsFor("driver-1")
	last := driverEvents[len(driverEvents)-1]
	if last.Event != service.EventRideCancelled {
		t.Errorf("driver not notified of cancellation, last event %s", last.Event)
	}
}

func TestRideCancel_AfterStartRejected(t *testing.T) {
	t.Parallel()

	f := newRideFixture()
	addRequestedRide(f, "ride-1")
	addOnlineDriver(f, "driver-1")

	ctx := context.Background()
	if _, err := f.service.Accept(ctx, "ride-1", "driver-1"); err != nil {
		t.Fatalf("accept failed: %v", err)
	}
	if _, err := f.service.Start(ctx, "ride-1", "driver-1", "421337"); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	_, err := f.service.Cancel(ctx, "ride-1", "rider-1", "too late")
	if !errors.Is(err, service.ErrInvalidStateTransition) {
		t.Errorf("expected ErrInvalidStateTransition, got %v", err)
	}

	if stored := f.rideRepo.GetRide("ride-1"); stored.Status != domain.RideStatusOngoing {
		t.Errorf("rejected cancel moved the ride: %s", stored.Status)
	}
}
