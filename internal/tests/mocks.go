package tests

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"hail/internal/domain"
	"hail/internal/events"
	"hail/internal/maps"
	"hail/internal/redis"
	"hail/internal/repository"
)

// ──────────────────────────────────────────────
// MOCK RIDE REPOSITORY
// ──────────────────────────────────────────────

// MockRideRepository is a mock implementation of RideRepository. Its
// CompareAndUpdateStatus carries the same first-writer-wins semantics as the
// Postgres implementation, so concurrency tests exercise the real contract.
type MockRideRepository struct {
	mu    sync.RWMutex
	rides map[string]*domain.Ride

	// Counters for verification
	CreateCallCount int32
	CASCallCount    int32

	// Error injection
	CreateError error
	CASError    error
}

// NewMockRideRepository creates a new mock ride repository.
func NewMockRideRepository() *MockRideRepository {
	return &MockRideRepository{
		rides: make(map[string]*domain.Ride),
	}
}

// AddRide adds a ride to the mock repository.
func (m *MockRideRepository) AddRide(ride *domain.Ride) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rides[ride.ID] = ride
}

func (m *MockRideRepository) Create(ctx context.Context, ride *domain.Ride) error {
	atomic.AddInt32(&m.CreateCallCount, 1)
	if m.CreateError != nil {
		return m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rides[ride.ID] = ride
	return nil
}

func (m *MockRideRepository) GetByID(ctx context.Context, id string) (*domain.Ride, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ride, ok := m.rides[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	// Return a copy to avoid mutation issues.
	copy := *ride
	return &copy, nil
}

func (m *MockRideRepository) GetAll(ctx context.Context) ([]*domain.Ride, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]*domain.Ride, 0, len(m.rides))
	for _, r := range m.rides {
		copy := *r
		result = append(result, &copy)
	}
	return result, nil
}

func (m *MockRideRepository) CompareAndUpdateStatus(ctx context.Context, id string, expected domain.RideStatus, update repository.RideStatusUpdate) error {
	atomic.AddInt32(&m.CASCallCount, 1)
	if m.CASError != nil {
		return m.CASError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	ride, ok := m.rides[id]
	if !ok {
		return repository.ErrNotFound
	}
	if ride.Status != expected {
		return repository.ErrConflict
	}
	ride.Status = update.Status
	if update.CaptainID != "" {
		ride.CaptainID = update.CaptainID
	}
	if update.ClearPickupOTP {
		ride.PickupOTP = ""
	}
	if update.ClearDeliveryOTP {
		ride.DeliveryOTP = ""
	}
	if !update.CancelledAt.IsZero() {
		ride.CancelledAt = update.CancelledAt
	}
	if update.CancelReason != "" {
		ride.CancelReason = update.CancelReason
	}
	return nil
}

// GetRide returns the ride by ID (for test assertions).
func (m *MockRideRepository) GetRide(id string) *domain.Ride {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.rides[id]
}

// CountRides returns the number of rides.
func (m *MockRideRepository) CountRides() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.rides)
}

// ──────────────────────────────────────────────
// MOCK CAPTAIN REPOSITORY
// ──────────────────────────────────────────────

// MockCaptainRepository is a mock implementation of CaptainRepository.
type MockCaptainRepository struct {
	mu       sync.RWMutex
	captains map[string]*domain.Captain
	// offers is keyed by captain ID, then ride ID.
	offers map[string]map[string]*domain.Offer

	// Counters for verification
	CreateCallCount       int32
	UpdateStatusCallCount int32
	AppendOfferCallCount  int32

	// Error injection
	CreateError       error
	UpdateStatusError error
	AppendOfferError  error
	ExpireOffersError error
}

// NewMockCaptainRepository creates a new mock captain repository.
func NewMockCaptainRepository() *MockCaptainRepository {
	return &MockCaptainRepository{
		captains: make(map[string]*domain.Captain),
		offers:   make(map[string]map[string]*domain.Offer),
	}
}

// AddCaptain adds a captain to the mock repository.
func (m *MockCaptainRepository) AddCaptain(captain *domain.Captain) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.captains[captain.ID] = captain
}

func (m *MockCaptainRepository) Create(ctx context.Context, captain *domain.Captain) error {
	atomic.AddInt32(&m.CreateCallCount, 1)
	if m.CreateError != nil {
		return m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.captains[captain.ID] = captain
	return nil
}

func (m *MockCaptainRepository) GetByID(ctx context.Context, id string) (*domain.Captain, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	captain, ok := m.captains[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copy := *captain
	return &copy, nil
}

func (m *MockCaptainRepository) GetAll(ctx context.Context) ([]*domain.Captain, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]*domain.Captain, 0, len(m.captains))
	for _, c := range m.captains {
		copy := *c
		result = append(result, &copy)
	}
	return result, nil
}

func (m *MockCaptainRepository) UpdateStatus(ctx context.Context, id string, status domain.CaptainStatus) error {
	atomic.AddInt32(&m.UpdateStatusCallCount, 1)
	if m.UpdateStatusError != nil {
		return m.UpdateStatusError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	captain, ok := m.captains[id]
	if !ok {
		return repository.ErrNotFound
	}
	captain.Status = status
	return nil
}

func (m *MockCaptainRepository) AppendOffer(ctx context.Context, captainID, rideID string) error {
	atomic.AddInt32(&m.AppendOfferCallCount, 1)
	if m.AppendOfferError != nil {
		return m.AppendOfferError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.offers[captainID] == nil {
		m.offers[captainID] = make(map[string]*domain.Offer)
	}
	// Re-offering the same ride is a no-op, like ON CONFLICT DO NOTHING.
	if _, exists := m.offers[captainID][rideID]; exists {
		return nil
	}
	now := time.Now()
	m.offers[captainID][rideID] = &domain.Offer{
		CaptainID: captainID,
		RideID:    rideID,
		State:     domain.OfferStateOffered,
		OfferedAt: now,
		UpdatedAt: now,
	}
	return nil
}

func (m *MockCaptainRepository) MarkOfferAccepted(ctx context.Context, captainID, rideID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.offers[captainID] == nil {
		m.offers[captainID] = make(map[string]*domain.Offer)
	}
	now := time.Now()
	offer, exists := m.offers[captainID][rideID]
	if !exists {
		m.offers[captainID][rideID] = &domain.Offer{
			CaptainID: captainID,
			RideID:    rideID,
			State:     domain.OfferStateAccepted,
			OfferedAt: now,
			UpdatedAt: now,
		}
		return nil
	}
	offer.State = domain.OfferStateAccepted
	offer.UpdatedAt = now
	return nil
}

func (m *MockCaptainRepository) ExpireOffers(ctx context.Context, rideID, winnerCaptainID string) ([]string, error) {
	if m.ExpireOffersError != nil {
		return nil, m.ExpireOffersError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var losers []string
	for captainID, byRide := range m.offers {
		if captainID == winnerCaptainID {
			continue
		}
		if offer, ok := byRide[rideID]; ok && offer.State == domain.OfferStateOffered {
			offer.State = domain.OfferStateExpired
			offer.UpdatedAt = time.Now()
			losers = append(losers, captainID)
		}
	}
	return losers, nil
}

func (m *MockCaptainRepository) ListOffers(ctx context.Context, captainID string) ([]*domain.Offer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]*domain.Offer, 0, len(m.offers[captainID]))
	for _, offer := range m.offers[captainID] {
		copy := *offer
		result = append(result, &copy)
	}
	return result, nil
}

// GetOffer returns the (captain, ride) offer for test assertions.
func (m *MockCaptainRepository) GetOffer(captainID, rideID string) *domain.Offer {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if byRide, ok := m.offers[captainID]; ok {
		return byRide[rideID]
	}
	return nil
}

// GetCaptain returns the captain for test assertions.
func (m *MockCaptainRepository) GetCaptain(id string) *domain.Captain {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.captains[id]
}

// ──────────────────────────────────────────────
// MOCK RIDER REPOSITORY
// ──────────────────────────────────────────────

// MockRiderRepository is a mock implementation of RiderRepository.
type MockRiderRepository struct {
	mu     sync.RWMutex
	riders map[string]*domain.Rider

	CreateCallCount int32
	CreateError     error
}

// NewMockRiderRepository creates a new mock rider repository.
func NewMockRiderRepository() *MockRiderRepository {
	return &MockRiderRepository{
		riders: make(map[string]*domain.Rider),
	}
}

// AddRider adds a rider to the mock repository.
func (m *MockRiderRepository) AddRider(rider *domain.Rider) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.riders[rider.ID] = rider
}

func (m *MockRiderRepository) Create(ctx context.Context, rider *domain.Rider) error {
	atomic.AddInt32(&m.CreateCallCount, 1)
	if m.CreateError != nil {
		return m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.riders[rider.ID] = rider
	return nil
}

func (m *MockRiderRepository) GetByID(ctx context.Context, id string) (*domain.Rider, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rider, ok := m.riders[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copy := *rider
	return &copy, nil
}

func (m *MockRiderRepository) GetAll(ctx context.Context) ([]*domain.Rider, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]*domain.Rider, 0, len(m.riders))
	for _, r := range m.riders {
		copy := *r
		result = append(result, &copy)
	}
	return result, nil
}

// ──────────────────────────────────────────────
// MOCK LOCATION STORE
// ──────────────────────────────────────────────

// MockLocationStore is a mock implementation of LocationStoreInterface.
type MockLocationStore struct {
	mu        sync.RWMutex
	locations []redis.CaptainLocation

	// Counters
	UpdateLocationCallCount int32

	// Error injection
	UpdateLocationError     error
	FindNearbyCaptainsError error
}

// NewMockLocationStore creates a new mock location store.
func NewMockLocationStore() *MockLocationStore {
	return &MockLocationStore{
		locations: make([]redis.CaptainLocation, 0),
	}
}

// AddCaptainLocation adds a captain location to the mock store.
func (m *MockLocationStore) AddCaptainLocation(loc redis.CaptainLocation) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.locations = append(m.locations, loc)
}

func (m *MockLocationStore) UpdateLocation(ctx context.Context, captainID string, lat, lng float64) error {
	atomic.AddInt32(&m.UpdateLocationCallCount, 1)
	if m.UpdateLocationError != nil {
		return m.UpdateLocationError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, loc := range m.locations {
		if loc.CaptainID == captainID {
			m.locations[i].Lat = lat
			m.locations[i].Lng = lng
			return nil
		}
	}
	m.locations = append(m.locations, redis.CaptainLocation{
		CaptainID: captainID,
		Lat:       lat,
		Lng:       lng,
	})
	return nil
}

func (m *MockLocationStore) FindNearbyCaptains(ctx context.Context, lat, lng, radiusKm float64) ([]redis.CaptainLocation, error) {
	if m.FindNearbyCaptainsError != nil {
		return nil, m.FindNearbyCaptainsError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	// The mock does no real geo filtering; it returns everything it holds.
	result := make([]redis.CaptainLocation, len(m.locations))
	copy(result, m.locations)
	return result, nil
}

func (m *MockLocationStore) RemoveLocation(ctx context.Context, captainID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, loc := range m.locations {
		if loc.CaptainID == captainID {
			m.locations = append(m.locations[:i], m.locations[i+1:]...)
			return nil
		}
	}
	return nil
}

// HasLocation checks if a captain location exists.
func (m *MockLocationStore) HasLocation(captainID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, loc := range m.locations {
		if loc.CaptainID == captainID {
			return true
		}
	}
	return false
}

// ──────────────────────────────────────────────
// MOCK LOCK STORE
// ──────────────────────────────────────────────

// MockLockStore is a mock implementation of LockStoreInterface.
type MockLockStore struct {
	mu    sync.Mutex
	locks map[string]time.Time

	// Counters
	AcquireCallCount int32
	ReleaseCallCount int32

	// Error injection
	AcquireError error

	// Force lock failure
	ForceAcquireFailure bool
}

// NewMockLockStore creates a new mock lock store.
func NewMockLockStore() *MockLockStore {
	return &MockLockStore{
		locks: make(map[string]time.Time),
	}
}

func (m *MockLockStore) AcquireRideLock(ctx context.Context, rideID string, ttl time.Duration) (bool, error) {
	atomic.AddInt32(&m.AcquireCallCount, 1)
	if m.AcquireError != nil {
		return false, m.AcquireError
	}
	if m.ForceAcquireFailure {
		return false, nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	key := "lock:ride:" + rideID
	if expiry, exists := m.locks[key]; exists {
		if time.Now().Before(expiry) {
			return false, nil // Lock still held.
		}
	}

	m.locks[key] = time.Now().Add(ttl)
	return true, nil
}

func (m *MockLockStore) ReleaseRideLock(ctx context.Context, rideID string) error {
	atomic.AddInt32(&m.ReleaseCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.locks, "lock:ride:"+rideID)
	return nil
}

// IsLocked checks if a ride is locked (for test assertions).
func (m *MockLockStore) IsLocked(rideID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	expiry, exists := m.locks["lock:ride:"+rideID]
	return exists && time.Now().Before(expiry)
}

// ──────────────────────────────────────────────
// MOCK GEOCODER
// ──────────────────────────────────────────────

// MockGeocoder resolves addresses from a fixed table. Unknown addresses
// return maps.ErrNotFound, matching the real geocoder's contract.
type MockGeocoder struct {
	mu     sync.RWMutex
	coords map[string][2]float64

	// Counters
	ResolveCallCount int32

	// Error injection
	ResolveError error
}

// NewMockGeocoder creates a new mock geocoder.
func NewMockGeocoder() *MockGeocoder {
	return &MockGeocoder{
		coords: make(map[string][2]float64),
	}
}

// SetCoordinates registers an address resolution.
func (m *MockGeocoder) SetCoordinates(address string, lat, lng float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.coords[address] = [2]float64{lat, lng}
}

func (m *MockGeocoder) ResolveCoordinates(ctx context.Context, address string) (float64, float64, error) {
	atomic.AddInt32(&m.ResolveCallCount, 1)
	if m.ResolveError != nil {
		return 0, 0, m.ResolveError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.coords[address]
	if !ok {
		return 0, 0, maps.ErrNotFound
	}
	return c[0], c[1], nil
}

// ──────────────────────────────────────────────
// MOCK NOTIFIER
// ──────────────────────────────────────────────

// SentEvent records one delivery through the mock notifier.
type SentEvent struct {
	RecipientID string
	Event       string
	Payload     any
}

// MockNotifier records every event it is asked to deliver.
type MockNotifier struct {
	mu   sync.Mutex
	sent []SentEvent

	// Error injection
	SendError error
	// FailFor makes Send fail only for the given recipient.
	FailFor string
}

// NewMockNotifier creates a new mock notifier.
func NewMockNotifier() *MockNotifier {
	return &MockNotifier{}
}

func (m *MockNotifier) Send(recipientID, event string, payload any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SendError != nil && (m.FailFor == "" || m.FailFor == recipientID) {
		return m.SendError
	}
	m.sent = append(m.sent, SentEvent{RecipientID: recipientID, Event: event, Payload: payload})
	return nil
}

// Sent returns a copy of everything delivered so far.
func (m *MockNotifier) Sent() []SentEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]SentEvent, len(m.sent))
	copy(result, m.sent)
	return result
}

// SentTo returns the events delivered to one recipient.
func (m *MockNotifier) SentTo(recipientID string) []SentEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []SentEvent
	for _, e := range m.sent {
		if e.RecipientID == recipientID {
			result = append(result, e)
		}
	}
	return result
}

// CountSent returns the total number of delivered events.
func (m *MockNotifier) CountSent() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

// ──────────────────────────────────────────────
// MOCK BROADCASTER
// ──────────────────────────────────────────────

// MockBroadcaster records the rides handed to it for fan-out.
type MockBroadcaster struct {
	mu        sync.Mutex
	rideIDs   []string
	CallCount int32
}

// NewMockBroadcaster creates a new mock broadcaster.
func NewMockBroadcaster() *MockBroadcaster {
	return &MockBroadcaster{}
}

func (m *MockBroadcaster) Broadcast(ctx context.Context, ride *domain.Ride) {
	atomic.AddInt32(&m.CallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rideIDs = append(m.rideIDs, ride.ID)
}

// BroadcastRideIDs returns the IDs of rides broadcast so far.
func (m *MockBroadcaster) BroadcastRideIDs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]string, len(m.rideIDs))
	copy(result, m.rideIDs)
	return result
}

// ──────────────────────────────────────────────
// MOCK EVENT PUBLISHER
// ──────────────────────────────────────────────

// MockPublisher records published ride events.
type MockPublisher struct {
	mu        sync.Mutex
	published []events.RideEvent

	PublishError error
}

// NewMockPublisher creates a new mock publisher.
func NewMockPublisher() *MockPublisher {
	return &MockPublisher{}
}

func (m *MockPublisher) Publish(ctx context.Context, event events.RideEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.PublishError != nil {
		return m.PublishError
	}
	m.published = append(m.published, event)
	return nil
}

// Published returns a copy of the published events.
func (m *MockPublisher) Published() []events.RideEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]events.RideEvent, len(m.published))
	copy(result, m.published)
	return result
}

// ──────────────────────────────────────────────
// MOCK RIDE CACHE
// ──────────────────────────────────────────────

// MockRideCache is an in-memory implementation of the ride read cache.
type MockRideCache struct {
	mu    sync.RWMutex
	rides map[string]*redis.CachedRide

	// Counters
	GetCallCount        int32
	SetCallCount        int32
	InvalidateCallCount int32
}

// NewMockRideCache creates a new mock ride cache.
func NewMockRideCache() *MockRideCache {
	return &MockRideCache{
		rides: make(map[string]*redis.CachedRide),
	}
}

func (m *MockRideCache) GetRide(ctx context.Context, rideID string) (*redis.CachedRide, error) {
	atomic.AddInt32(&m.GetCallCount, 1)
	m.mu.RLock()
	defer m.mu.RUnlock()
	ride, ok := m.rides[rideID]
	if !ok {
		return nil, nil
	}
	copy := *ride
	return &copy, nil
}

func (m *MockRideCache) SetRide(ctx context.Context, ride *redis.CachedRide) error {
	atomic.AddInt32(&m.SetCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	copy := *ride
	m.rides[ride.ID] = &copy
	return nil
}

func (m *MockRideCache) InvalidateRide(ctx context.Context, rideID string) error {
	atomic.AddInt32(&m.InvalidateCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rides, rideID)
	return nil
}

// Cached returns the cached entry for test assertions.
func (m *MockRideCache) Cached(rideID string) *redis.CachedRide {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.rides[rideID]
}

// ──────────────────────────────────────────────
// HELPER ERRORS
// ──────────────────────────────────────────────

var (
	ErrMockDBConstraint = errors.New("mock: unique constraint violation")
	ErrMockTimeout      = errors.New("mock: operation timeout")
)
