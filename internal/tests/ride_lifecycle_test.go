package tests

import (
	"context"
	"errors"
	"testing"
	"time"

	"hail/internal/domain"
	"hail/internal/service"
)

// seedRide stores a ride in the given status with codes "111111"/"222222".
func seedRide(f *rideFixture, id string, status domain.RideStatus) *domain.Ride {
	ride := &domain.Ride{
		ID:           id,
		RiderID:      "rider-1",
		Pickup:       "1 Main St",
		Destination:  "9 Dock Rd",
		VehicleClass: domain.VehicleClassStandard,
		Fare:         12.40,
		PickupOTP:    "111111",
		DeliveryOTP:  "222222",
		Status:       status,
		CreatedAt:    time.Now(),
	}
	f.rides.AddRide(ride)
	return ride
}

func seedCaptain(f *rideFixture, id string, status domain.CaptainStatus) *domain.Captain {
	captain := &domain.Captain{
		ID:           id,
		Name:         "Captain " + id,
		Phone:        "+920000000",
		Status:       status,
		VehicleClass: domain.VehicleClassStandard,
		CreatedAt:    time.Now(),
	}
	f.captains.AddCaptain(captain)
	return captain
}

// ──────────────────────────────────────────────
// CONFIRM
// ──────────────────────────────────────────────

func TestConfirmRide_Success(t *testing.T) {
	t.Parallel()

	f := newRideFixture()
	seedRide(f, "ride-1", domain.RideStatusRequested)
	seedCaptain(f, "captain-1", domain.CaptainStatusOnline)

	ride, err := f.service.ConfirmRide(context.Background(), "ride-1", "captain-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if ride.Status != domain.RideStatusAccepted {
		t.Errorf("expected status %s, got %s", domain.RideStatusAccepted, ride.Status)
	}
	if ride.CaptainID != "captain-1" {
		t.Errorf("expected captain-1 assigned, got %q", ride.CaptainID)
	}

	stored := f.rides.GetRide("ride-1")
	if stored.Status != domain.RideStatusAccepted || stored.CaptainID != "captain-1" {
		t.Errorf("stored ride not updated: status=%s captain=%q", stored.Status, stored.CaptainID)
	}
	if got := f.captains.GetCaptain("captain-1").Status; got != domain.CaptainStatusOnRide {
		t.Errorf("expected captain ON_RIDE, got %s", got)
	}
}

func TestConfirmRide_NotifiesRider(t *testing.T) {
	t.Parallel()

	f := newRideFixture()
	seedRide(f, "ride-1", domain.RideStatusRequested)
	seedCaptain(f, "captain-1", domain.CaptainStatusOnline)

	if _, err := f.service.ConfirmRide(context.Background(), "ride-1", "captain-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	sent := f.notifier.SentTo("rider-1")
	if len(sent) != 1 {
		t.Fatalf("expected 1 rider notification, got %d", len(sent))
	}
	if sent[0].Event != service.EventRideConfirmed {
		t.Errorf("expected event %s, got %s", service.EventRideConfirmed, sent[0].Event)
	}

	// The payload must never leak the one-time codes.
	payload, ok := sent[0].Payload.(map[string]any)
	if !ok {
		t.Fatalf("unexpected payload type %T", sent[0].Payload)
	}
	for _, key := range []string{"pickup_otp", "delivery_otp"} {
		if _, present := payload[key]; present {
			t.Errorf("payload must not contain %s", key)
		}
	}
}

func TestConfirmRide_SettlesOffers(t *testing.T) {
	t.Parallel()

	f := newRideFixture()
	seedRide(f, "ride-1", domain.RideStatusRequested)
	seedCaptain(f, "captain-1", domain.CaptainStatusOnline)
	seedCaptain(f, "captain-2", domain.CaptainStatusOnline)

	ctx := context.Background()
	_ = f.captains.AppendOffer(ctx, "captain-1", "ride-1")
	_ = f.captains.AppendOffer(ctx, "captain-2", "ride-1")

	if _, err := f.service.ConfirmRide(ctx, "ride-1", "captain-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := f.captains.GetOffer("captain-1", "ride-1").State; got != domain.OfferStateAccepted {
		t.Errorf("expected winner offer ACCEPTED, got %s", got)
	}
	if got := f.captains.GetOffer("captain-2", "ride-1").State; got != domain.OfferStateExpired {
		t.Errorf("expected loser offer EXPIRED, got %s", got)
	}

	// NotifyLosers is on in the fixture, so the losing captain hears about it.
	loserEvents := f.notifier.SentTo("captain-2")
	if len(loserEvents) != 1 || loserEvents[0].Event != service.EventRideTaken {
		t.Errorf("expected one %s event for captain-2, got %v", service.EventRideTaken, loserEvents)
	}
}

func TestConfirmRide_UnknownCaptain(t *testing.T) {
	t.Parallel()

	f := newRideFixture()
	seedRide(f, "ride-1", domain.RideStatusRequested)

	_, err := f.service.ConfirmRide(context.Background(), "ride-1", "ghost")
	if !errors.Is(err, service.ErrCaptainUnknown) {
		t.Errorf("expected ErrCaptainUnknown, got %v", err)
	}
}

func TestConfirmRide_AlreadyAccepted(t *testing.T) {
	t.Parallel()

	f := newRideFixture()
	ride := seedRide(f, "ride-1", domain.RideStatusAccepted)
	ride.CaptainID = "captain-1"
	seedCaptain(f, "captain-2", domain.CaptainStatusOnline)

	_, err := f.service.ConfirmRide(context.Background(), "ride-1", "captain-2")
	if !errors.Is(err, service.ErrRideAlreadyAccepted) {
		t.Errorf("expected ErrRideAlreadyAccepted, got %v", err)
	}
	if got := f.rides.GetRide("ride-1").CaptainID; got != "captain-1" {
		t.Errorf("assignment must not change, got %q", got)
	}
}

func TestConfirmRide_MissingRide(t *testing.T) {
	t.Parallel()

	f := newRideFixture()
	seedCaptain(f, "captain-1", domain.CaptainStatusOnline)

	_, err := f.service.ConfirmRide(context.Background(), "ride-404", "captain-1")
	if err == nil {
		t.Fatal("expected error for missing ride")
	}
}

// ──────────────────────────────────────────────
// START
// ──────────────────────────────────────────────

func TestStartRide_Success(t *testing.T) {
	t.Parallel()

	f := newRideFixture()
	ride := seedRide(f, "ride-1", domain.RideStatusAccepted)
	ride.CaptainID = "captain-1"
	seedCaptain(f, "captain-1", domain.CaptainStatusOnRide)

	started, err := f.service.StartRide(context.Background(), "ride-1", "111111", "captain-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if started.Status != domain.RideStatusOngoing {
		t.Errorf("expected status %s, got %s", domain.RideStatusOngoing, started.Status)
	}

	stored := f.rides.GetRide("ride-1")
	if stored.PickupOTP != "" {
		t.Error("pickup code must be consumed with the transition")
	}
	if stored.DeliveryOTP == "" {
		t.Error("delivery code must survive the start")
	}
}

func TestStartRide_WrongOTP(t *testing.T) {
	t.Parallel()

	f := newRideFixture()
	ride := seedRide(f, "ride-1", domain.RideStatusAccepted)
	ride.CaptainID = "captain-1"

	_, err := f.service.StartRide(context.Background(), "ride-1", "999999", "captain-1")
	if !errors.Is(err, service.ErrInvalidOTP) {
		t.Errorf("expected ErrInvalidOTP, got %v", err)
	}
	if got := f.rides.GetRide("ride-1").Status; got != domain.RideStatusAccepted {
		t.Errorf("failed start must not move the ride, got %s", got)
	}
}

func TestStartRide_DeliveryCodeDoesNotOpenPickup(t *testing.T) {
	t.Parallel()

	f := newRideFixture()
	ride := seedRide(f, "ride-1", domain.RideStatusAccepted)
	ride.CaptainID = "captain-1"

	_, err := f.service.StartRide(context.Background(), "ride-1", "222222", "captain-1")
	if !errors.Is(err, service.ErrInvalidOTP) {
		t.Errorf("expected ErrInvalidOTP, got %v", err)
	}
}

func TestStartRide_WrongCaptain(t *testing.T) {
	t.Parallel()

	f := newRideFixture()
	ride := seedRide(f, "ride-1", domain.RideStatusAccepted)
	ride.CaptainID = "captain-1"

	_, err := f.service.StartRide(context.Background(), "ride-1", "111111", "captain-2")
	if !errors.Is(err, service.ErrCaptainNotAssigned) {
		t.Errorf("expected ErrCaptainNotAssigned, got %v", err)
	}
}

func TestStartRide_NotAccepted(t *testing.T) {
	t.Parallel()

	for _, status := range []domain.RideStatus{
		domain.RideStatusRequested,
		domain.RideStatusOngoing,
		domain.RideStatusCompleted,
		domain.RideStatusCancelled,
	} {
		status := status
		t.Run(string(status), func(t *testing.T) {
			t.Parallel()

			f := newRideFixture()
			ride := seedRide(f, "ride-1", status)
			ride.CaptainID = "captain-1"

			_, err := f.service.StartRide(context.Background(), "ride-1", "111111", "captain-1")
			if !errors.Is(err, service.ErrRideNotAccepted) {
				t.Errorf("expected ErrRideNotAccepted, got %v", err)
			}
		})
	}
}

func TestStartRide_Validation(t *testing.T) {
	t.Parallel()

	f := newRideFixture()
	ctx := context.Background()

	if _, err := f.service.StartRide(ctx, "", "111111", "captain-1"); !errors.Is(err, service.ErrRideIDRequired) {
		t.Errorf("expected ErrRideIDRequired, got %v", err)
	}
	if _, err := f.service.StartRide(ctx, "ride-1", "", "captain-1"); !errors.Is(err, service.ErrOTPRequired) {
		t.Errorf("expected ErrOTPRequired, got %v", err)
	}
	if _, err := f.service.StartRide(ctx, "ride-1", "111111", ""); !errors.Is(err, service.ErrCaptainRequired) {
		t.Errorf("expected ErrCaptainRequired, got %v", err)
	}
}

// ──────────────────────────────────────────────
// END
// ──────────────────────────────────────────────

func TestEndRide_Success(t *testing.T) {
	t.Parallel()

	f := newRideFixture()
	ride := seedRide(f, "ride-1", domain.RideStatusOngoing)
	ride.CaptainID = "captain-1"
	ride.PickupOTP = "" // consumed at start
	seedCaptain(f, "captain-1", domain.CaptainStatusOnRide)

	ended, err := f.service.EndRide(context.Background(), "ride-1", "222222", "captain-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if ended.Status != domain.RideStatusCompleted {
		t.Errorf("expected status %s, got %s", domain.RideStatusCompleted, ended.Status)
	}

	stored := f.rides.GetRide("ride-1")
	if stored.DeliveryOTP != "" {
		t.Error("delivery code must be consumed with the transition")
	}
	if got := f.captains.GetCaptain("captain-1").Status; got != domain.CaptainStatusOnline {
		t.Errorf("captain should be back ONLINE, got %s", got)
	}

	// NotifyRideEnded is on in the fixture.
	sent := f.notifier.SentTo("rider-1")
	if len(sent) != 1 || sent[0].Event != service.EventRideEnded {
		t.Errorf("expected one %s event for the rider, got %v", service.EventRideEnded, sent)
	}
}

func TestEndRide_WrongOTP(t *testing.T) {
	t.Parallel()

	f := newRideFixture()
	ride := seedRide(f, "ride-1", domain.RideStatusOngoing)
	ride.CaptainID = "captain-1"

	_, err := f.service.EndRide(context.Background(), "ride-1", "000000", "captain-1")
	if !errors.Is(err, service.ErrInvalidOTP) {
		t.Errorf("expected ErrInvalidOTP, got %v", err)
	}
}

func TestEndRide_ReplayAfterCompletionFails(t *testing.T) {
	t.Parallel()

	f := newRideFixture()
	ride := seedRide(f, "ride-1", domain.RideStatusOngoing)
	ride.CaptainID = "captain-1"
	seedCaptain(f, "captain-1", domain.CaptainStatusOnRide)

	ctx := context.Background()
	if _, err := f.service.EndRide(ctx, "ride-1", "222222", "captain-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// The same code presented again cannot complete anything: the ride is
	// terminal and the code was consumed.
	_, err := f.service.EndRide(ctx, "ride-1", "222222", "captain-1")
	if !errors.Is(err, service.ErrRideNotOngoing) {
		t.Errorf("expected ErrRideNotOngoing, got %v", err)
	}
}

func TestEndRide_NotOngoing(t *testing.T) {
	t.Parallel()

	f := newRideFixture()
	ride := seedRide(f, "ride-1", domain.RideStatusAccepted)
	ride.CaptainID = "captain-1"

	_, err := f.service.EndRide(context.Background(), "ride-1", "222222", "captain-1")
	if !errors.Is(err, service.ErrRideNotOngoing) {
		t.Errorf("expected ErrRideNotOngoing, got %v", err)
	}
}

func TestEndRide_WrongCaptain(t *testing.T) {
	t.Parallel()

	f := newRideFixture()
	ride := seedRide(f, "ride-1", domain.RideStatusOngoing)
	ride.CaptainID = "captain-1"

	_, err := f.service.EndRide(context.Background(), "ride-1", "222222", "captain-2")
	if !errors.Is(err, service.ErrCaptainNotAssigned) {
		t.Errorf("expected ErrCaptainNotAssigned, got %v", err)
	}
}

// ──────────────────────────────────────────────
// FULL LIFECYCLE
// ──────────────────────────────────────────────

func TestRideLifecycle_EndToEnd(t *testing.T) {
	t.Parallel()

	f := newRideFixture()
	seedCaptain(f, "captain-1", domain.CaptainStatusOnline)

	ctx := context.Background()
	created, err := f.service.CreateRide(ctx, defaultCreateRequest())
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := f.service.ConfirmRide(ctx, created.ID, "captain-1"); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if _, err := f.service.StartRide(ctx, created.ID, created.PickupOTP, "captain-1"); err != nil {
		t.Fatalf("start: %v", err)
	}
	ended, err := f.service.EndRide(ctx, created.ID, created.DeliveryOTP, "captain-1")
	if err != nil {
		t.Fatalf("end: %v", err)
	}

	if ended.Status != domain.RideStatusCompleted {
		t.Errorf("expected COMPLETED, got %s", ended.Status)
	}
	stored := f.rides.GetRide(created.ID)
	if stored.PickupOTP != "" || stored.DeliveryOTP != "" {
		t.Error("both codes must be consumed by the end of the ride")
	}
	if got := f.captains.GetCaptain("captain-1").Status; got != domain.CaptainStatusOnline {
		t.Errorf("captain should be ONLINE after completion, got %s", got)
	}
}
