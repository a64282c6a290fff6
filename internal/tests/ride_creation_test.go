package tests

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"hail/internal/domain"
	"hail/internal/events"
	"hail/internal/service"
)

// testLogger returns a logger that discards everything.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// rideFixture wires a RideService over mocks. The geocoder knows two
// addresses so the default create request succeeds.
type rideFixture struct {
	rides       *MockRideRepository
	captains    *MockCaptainRepository
	geocoder    *MockGeocoder
	notifier    *MockNotifier
	broadcaster *MockBroadcaster
	locks       *MockLockStore
	cache       *MockRideCache
	publisher   *MockPublisher
	service     *service.RideService
}

func newRideFixture() *rideFixture {
	f := &rideFixture{
		rides:       NewMockRideRepository(),
		captains:    NewMockCaptainRepository(),
		geocoder:    NewMockGeocoder(),
		notifier:    NewMockNotifier(),
		broadcaster: NewMockBroadcaster(),
		locks:       NewMockLockStore(),
		cache:       NewMockRideCache(),
		publisher:   NewMockPublisher(),
	}
	f.geocoder.SetCoordinates("1 Main St", 24.8607, 67.0011)
	f.geocoder.SetCoordinates("9 Dock Rd", 24.9056, 67.0822)

	f.service = service.NewRideService(service.RideServiceDeps{
		Rides:           f.rides,
		Captains:        f.captains,
		Fare:            service.NewFareService(f.geocoder, nil),
		OTP:             service.NewOTPGenerator(0),
		Dispatcher:      f.broadcaster,
		Notifier:        f.notifier,
		Locks:           f.locks,
		Cache:           f.cache,
		Events:          f.publisher,
		Logger:          testLogger(),
		NotifyLosers:    true,
		NotifyRideEnded: true,
	})
	return f
}

func defaultCreateRequest() service.CreateRideRequest {
	return service.CreateRideRequest{
		RiderID:      "rider-1",
		Pickup:       "1 Main St",
		Destination:  "9 Dock Rd",
		VehicleClass: "STANDARD",
	}
}

// waitForBroadcast polls until the dispatcher has been invoked or the
// deadline passes. Creation hands the broadcast to a detached goroutine.
func waitForBroadcast(t *testing.T, b *MockBroadcaster, want int32) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if atomic.LoadInt32(&b.CallCount) >= want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("broadcast not observed within deadline (want %d, got %d)", want, atomic.LoadInt32(&b.CallCount))
}

// ──────────────────────────────────────────────
// RIDE CREATION
// ──────────────────────────────────────────────

func TestCreateRide_Success(t *testing.T) {
	t.Parallel()

	f := newRideFixture()
	ride, err := f.service.CreateRide(context.Background(), defaultCreateRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if ride.Status != domain.RideStatusRequested {
		t.Errorf("expected status %s, got %s", domain.RideStatusRequested, ride.Status)
	}
	if ride.ID == "" {
		t.Error("expected a generated ride ID")
	}
	if ride.Fare <= 0 {
		t.Errorf("expected positive fare, got %f", ride.Fare)
	}
	if ride.CaptainID != "" {
		t.Errorf("expected no captain at creation, got %q", ride.CaptainID)
	}
	if f.rides.CountRides() != 1 {
		t.Errorf("expected 1 stored ride, got %d", f.rides.CountRides())
	}

	waitForBroadcast(t, f.broadcaster, 1)
	ids := f.broadcaster.BroadcastRideIDs()
	if len(ids) != 1 || ids[0] != ride.ID {
		t.Errorf("expected broadcast of ride %s, got %v", ride.ID, ids)
	}
}

func TestCreateRide_IssuesDistinctOTPs(t *testing.T) {
	t.Parallel()

	f := newRideFixture()
	ride, err := f.service.CreateRide(context.Background(), defaultCreateRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(ride.PickupOTP) != 6 {
		t.Errorf("expected 6-digit pickup code, got %q", ride.PickupOTP)
	}
	if len(ride.DeliveryOTP) != 6 {
		t.Errorf("expected 6-digit delivery code, got %q", ride.DeliveryOTP)
	}
	if ride.PickupOTP == ride.DeliveryOTP {
		t.Error("pickup and delivery codes must differ")
	}
	for _, c := range ride.PickupOTP + ride.DeliveryOTP {
		if c < '0' || c > '9' {
			t.Errorf("expected numeric codes, got %q and %q", ride.PickupOTP, ride.DeliveryOTP)
		}
	}
}

func TestCreateRide_Validation(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		mutate  func(*service.CreateRideRequest)
		wantErr error
	}{
		{
			name:    "missing rider",
			mutate:  func(r *service.CreateRideRequest) { r.RiderID = "" },
			wantErr: service.ErrRiderRequired,
		},
		{
			name:    "missing pickup",
			mutate:  func(r *service.CreateRideRequest) { r.Pickup = "" },
			wantErr: service.ErrPickupRequired,
		},
		{
			name:    "missing destination",
			mutate:  func(r *service.CreateRideRequest) { r.Destination = "" },
			wantErr: service.ErrDestinationRequired,
		},
		{
			name:    "empty vehicle class",
			mutate:  func(r *service.CreateRideRequest) { r.VehicleClass = "" },
			wantErr: service.ErrInvalidVehicleClass,
		},
		{
			name:    "unknown vehicle class",
			mutate:  func(r *service.CreateRideRequest) { r.VehicleClass = "ROCKET" },
			wantErr: service.ErrInvalidVehicleClass,
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			f := newRideFixture()
			req := defaultCreateRequest()
			tc.mutate(&req)

			_, err := f.service.CreateRide(context.Background(), req)
			if !errors.Is(err, tc.wantErr) {
				t.Errorf("expected %v, got %v", tc.wantErr, err)
			}
			if f.rides.CountRides() != 0 {
				t.Error("invalid request must not create a ride")
			}
		})
	}
}

func TestCreateRide_VehicleClassIsCaseInsensitive(t *testing.T) {
	t.Parallel()

	f := newRideFixture()
	req := defaultCreateRequest()
	req.VehicleClass = "premium"

	ride, err := f.service.CreateRide(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ride.VehicleClass != domain.VehicleClassPremium {
		t.Errorf("expected %s, got %s", domain.VehicleClassPremium, ride.VehicleClass)
	}
}

func TestCreateRide_UnresolvableAddress(t *testing.T) {
	t.Parallel()

	f := newRideFixture()
	req := defaultCreateRequest()
	req.Pickup = "nowhere at all"

	_, err := f.service.CreateRide(context.Background(), req)
	if !errors.Is(err, service.ErrLocationNotFound) {
		t.Errorf("expected ErrLocationNotFound, got %v", err)
	}
}

func TestCreateRide_GeocoderDown(t *testing.T) {
	t.Parallel()

	f := newRideFixture()
	f.geocoder.ResolveError = ErrMockTimeout

	_, err := f.service.CreateRide(context.Background(), defaultCreateRequest())
	if !errors.Is(err, service.ErrGeoUnavailable) {
		t.Errorf("expected ErrGeoUnavailable, got %v", err)
	}
}

func TestCreateRide_PublishesCreatedEvent(t *testing.T) {
	t.Parallel()

	f := newRideFixture()
	ride, err := f.service.CreateRide(context.Background(), defaultCreateRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	published := f.publisher.Published()
	if len(published) != 1 {
		t.Fatalf("expected 1 published event, got %d", len(published))
	}
	if published[0].Type != events.TypeRideCreated {
		t.Errorf("expected %s, got %s", events.TypeRideCreated, published[0].Type)
	}
	if published[0].RideID != ride.ID {
		t.Errorf("expected ride %s in event, got %s", ride.ID, published[0].RideID)
	}
}

// ──────────────────────────────────────────────
// FARE ESTIMATION
// ──────────────────────────────────────────────

func TestGetFare_MatchesCreatedRideFare(t *testing.T) {
	t.Parallel()

	f := newRideFixture()
	req := defaultCreateRequest()

	estimate, err := f.service.GetFare(context.Background(), req.Pickup, req.Destination, req.VehicleClass)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ride, err := f.service.CreateRide(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if ride.Fare != estimate {
		t.Errorf("estimate %f and stored fare %f must agree", estimate, ride.Fare)
	}
}

func TestGetFare_ClassesArePricedDifferently(t *testing.T) {
	t.Parallel()

	f := newRideFixture()
	ctx := context.Background()

	standard, err := f.service.GetFare(ctx, "1 Main St", "9 Dock Rd", "STANDARD")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	premium, err := f.service.GetFare(ctx, "1 Main St", "9 Dock Rd", "PREMIUM")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if premium <= standard {
		t.Errorf("premium fare %f should exceed standard fare %f", premium, standard)
	}
}

func TestGetFare_MinimumApplies(t *testing.T) {
	t.Parallel()

	f := newRideFixture()
	// Zero-distance trip: both endpoints resolve to the same point.
	f.geocoder.SetCoordinates("here", 24.8607, 67.0011)
	f.geocoder.SetCoordinates("also here", 24.8607, 67.0011)

	fare, err := f.service.GetFare(context.Background(), "here", "also here", "STANDARD")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// The STANDARD minimum is 4.00 and the base alone is below it.
	if fare != 4.00 {
		t.Errorf("expected minimum fare 4.00, got %f", fare)
	}
}

func TestGetFare_MonotonicInDistance(t *testing.T) {
	t.Parallel()

	f := newRideFixture()
	ctx := context.Background()

	// Destinations at increasing distance from the pickup, all far enough
	// that the per-class minimum does not flatten the comparison.
	f.geocoder.SetCoordinates("corner shop", 24.8700, 67.0100)
	f.geocoder.SetCoordinates("airport", 25.0000, 67.2000)

	short, err := f.service.GetFare(ctx, "1 Main St", "corner shop", "STANDARD")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	mid, err := f.service.GetFare(ctx, "1 Main St", "9 Dock Rd", "STANDARD")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	long, err := f.service.GetFare(ctx, "1 Main St", "airport", "STANDARD")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !(short < mid && mid < long) {
		t.Errorf("fare must grow with distance, got %f, %f, %f", short, mid, long)
	}
}

func TestCreateRide_FareMatchesQuoteAfterDemandShift(t *testing.T) {
	t.Parallel()

	f := newRideFixture()
	ctx := context.Background()
	req := defaultCreateRequest()

	quote, err := f.service.GetFare(ctx, req.Pickup, req.Destination, req.VehicleClass)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Another rider's request lands between the quote and the booking.
	other := defaultCreateRequest()
	other.RiderID = "rider-2"
	if _, err := f.service.CreateRide(ctx, other); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ride, err := f.service.CreateRide(ctx, req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ride.Fare != quote {
		t.Errorf("quote %f and stored fare %f must agree after demand shifts", quote, ride.Fare)
	}
}

func TestFareService_SurgeMultiplierAppliesWhenWired(t *testing.T) {
	t.Parallel()

	rides := NewMockRideRepository()
	locations := NewMockLocationStore()
	geocoder := NewMockGeocoder()
	geocoder.SetCoordinates("1 Main St", 24.8607, 67.0011)
	geocoder.SetCoordinates("9 Dock Rd", 24.9056, 67.0822)

	fares := service.NewFareService(geocoder, service.NewSurgeService(locations, rides))
	ctx := context.Background()

	baseline, err := fares.Estimate(ctx, "1 Main St", "9 Dock Rd", domain.VehicleClassStandard)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// An open request with no captains nearby pushes the multiplier up.
	err = rides.Create(ctx, &domain.Ride{
		ID:      "ride-demand",
		RiderID: "rider-9",
		Status:  domain.RideStatusRequested,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	surged, err := fares.Estimate(ctx, "1 Main St", "9 Dock Rd", domain.VehicleClassStandard)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if surged <= baseline {
		t.Errorf("expected surge to raise the fare, got baseline %f and surged %f", baseline, surged)
	}
}

func TestGetFare_Validation(t *testing.T) {
	t.Parallel()

	f := newRideFixture()
	ctx := context.Background()

	if _, err := f.service.GetFare(ctx, "", "9 Dock Rd", "STANDARD"); !errors.Is(err, service.ErrPickupRequired) {
		t.Errorf("expected ErrPickupRequired, got %v", err)
	}
	if _, err := f.service.GetFare(ctx, "1 Main St", "", "STANDARD"); !errors.Is(err, service.ErrDestinationRequired) {
		t.Errorf("expected ErrDestinationRequired, got %v", err)
	}
	if _, err := f.service.GetFare(ctx, "1 Main St", "9 Dock Rd", "WARP"); !errors.Is(err, service.ErrInvalidVehicleClass) {
		t.Errorf("expected ErrInvalidVehicleClass, got %v", err)
	}
}
