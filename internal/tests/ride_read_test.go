package tests

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"hail/internal/domain"
	"hail/internal/repository"
)

func TestGetRide_CachesOnMiss(t *testing.T) {
	t.Parallel()

	f := newRideFixture()
	seedRide(f, "ride-1", domain.RideStatusRequested)

	ctx := context.Background()
	ride, err := f.service.GetRide(ctx, "ride-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ride.ID != "ride-1" {
		t.Errorf("wrong ride returned: %s", ride.ID)
	}

	cached := f.cache.Cached("ride-1")
	if cached == nil {
		t.Fatal("expected the ride to be cached after a miss")
	}
	if cached.Status != string(domain.RideStatusRequested) {
		t.Errorf("cached status wrong: %s", cached.Status)
	}
}

func TestGetRide_CachedRideNeverCarriesOTPs(t *testing.T) {
	t.Parallel()

	f := newRideFixture()
	seedRide(f, "ride-1", domain.RideStatusRequested)

	ctx := context.Background()
	if _, err := f.service.GetRide(ctx, "ride-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Reads served from cache come back without codes even though the
	// stored ride still holds them.
	ride, err := f.service.GetRide(ctx, "ride-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ride.PickupOTP != "" || ride.DeliveryOTP != "" {
		t.Error("cache-served rides must not expose one-time codes")
	}
}

func TestGetRide_ServesFromCache(t *testing.T) {
	t.Parallel()

	f := newRideFixture()
	seedRide(f, "ride-1", domain.RideStatusRequested)

	ctx := context.Background()
	if _, err := f.service.GetRide(ctx, "ride-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := f.service.GetRide(ctx, "ride-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// One store population, two cache reads.
	if got := atomic.LoadInt32(&f.cache.SetCallCount); got != 1 {
		t.Errorf("expected 1 cache write, got %d", got)
	}
	if got := atomic.LoadInt32(&f.cache.GetCallCount); got != 2 {
		t.Errorf("expected 2 cache reads, got %d", got)
	}
}

func TestGetRide_TransitionInvalidatesCache(t *testing.T) {
	t.Parallel()

	f := newRideFixture()
	seedRide(f, "ride-1", domain.RideStatusRequested)
	seedCaptain(f, "captain-1", domain.CaptainStatusOnline)

	ctx := context.Background()
	if _, err := f.service.GetRide(ctx, "ride-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := f.service.ConfirmRide(ctx, "ride-1", "captain-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if f.cache.Cached("ride-1") != nil {
		t.Error("a status transition must invalidate the cached ride")
	}

	ride, err := f.service.GetRide(ctx, "ride-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ride.Status != domain.RideStatusAccepted {
		t.Errorf("read after confirm must see ACCEPTED, got %s", ride.Status)
	}
}

func TestGetRide_NotFound(t *testing.T) {
	t.Parallel()

	f := newRideFixture()
	_, err := f.service.GetRide(context.Background(), "ride-404")
	if !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
