package tracking

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// memStore is an in-memory Store for service tests. WithinOwner rolls back
// on error and records overlapping units of work for the same owner.
type memStore struct {
	mu     sync.Mutex
	trips  map[string]Trip
	pings  []Ping
	nextID int64

	active   map[string]int
	overlaps int

	insertErr    error
	incrementErr error
	lastLimit    int
}

func newMemStore() *memStore {
	return &memStore{trips: map[string]Trip{}, active: map[string]int{}}
}

func (m *memStore) WithinOwner(ctx context.Context, ownerID string, fn func(Repository) error) error {
	m.mu.Lock()
	if m.active[ownerID] > 0 {
		m.overlaps++
	}
	m.active[ownerID]++
	tripsSnap := make(map[string]Trip, len(m.trips))
	for k, v := range m.trips {
		tripsSnap[k] = v
	}
	pingsSnap := append([]Ping(nil), m.pings...)
	m.mu.Unlock()

	err := fn(m)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.active[ownerID]--
	if err != nil {
		m.trips = tripsSnap
		m.pings = pingsSnap
	}
	return err
}

func (m *memStore) FindOpenTrip(_ context.Context, ownerID string) (Trip, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.trips {
		if t.OwnerID == ownerID && t.IsOpen() {
			return t, true, nil
		}
	}
	return Trip{}, false, nil
}

func (m *memStore) CreateTrip(_ context.Context, ownerID string, startedAt, calendarDate time.Time) (Trip, error) {
	// widen the check-then-create window so unserialized callers would collide
	time.Sleep(time.Millisecond)

	m.mu.Lock()
	defer m.mu.Unlock()
	t := Trip{
		ID:           uuid.NewString(),
		OwnerID:      ownerID,
		CalendarDate: calendarDate,
		StartedAt:    startedAt,
		EndedAt:      OpenEndedAt,
	}
	m.trips[t.ID] = t
	return t, nil
}

func (m *memStore) InsertClosedTrip(_ context.Context, t Trip) (Trip, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t.ID = uuid.NewString()
	m.trips[t.ID] = t
	return t, nil
}

func (m *memStore) CloseTrip(_ context.Context, tripID string, endedAt time.Time, durationSeconds int64) (Trip, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.trips[tripID]
	if !ok {
		return Trip{}, ErrTripNotFound
	}
	t.EndedAt = endedAt
	t.DurationSeconds = durationSeconds
	m.trips[tripID] = t
	return t, nil
}

func (m *memStore) GetTrip(_ context.Context, tripID string) (Trip, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.trips[tripID]
	return t, ok, nil
}

func (m *memStore) InsertPing(_ context.Context, p Ping) (Ping, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.insertErr != nil {
		return Ping{}, m.insertErr
	}
	m.nextID++
	p.ID = m.nextID
	p.CreatedAt = time.Now()
	m.pings = append(m.pings, p)
	return p, nil
}

func (m *memStore) LastInsertedPing(_ context.Context, tripID string, excludingID int64) (Ping, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.pings) - 1; i >= 0; i-- {
		p := m.pings[i]
		if p.TripID == tripID && p.ID != excludingID {
			return p, true, nil
		}
	}
	return Ping{}, false, nil
}

func (m *memStore) IncrementDistance(_ context.Context, tripID string, deltaM float64) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.incrementErr != nil {
		return 0, m.incrementErr
	}
	t, ok := m.trips[tripID]
	if !ok {
		return 0, ErrTripNotFound
	}
	t.DistanceM += deltaM
	m.trips[tripID] = t
	return t.DistanceM, nil
}

func (m *memStore) FirstPing(_ context.Context, tripID string) (Ping, bool, error) {
	pings := m.tripPings(tripID)
	if len(pings) == 0 {
		return Ping{}, false, nil
	}
	return pings[0], true, nil
}

func (m *memStore) LastPing(ctx context.Context, tripID string) (Ping, bool, error) {
	return m.LastInsertedPing(ctx, tripID, 0)
}

func (m *memStore) TripPings(_ context.Context, tripID string) ([]Ping, error) {
	return m.tripPings(tripID), nil
}

func (m *memStore) tripPings(tripID string) []Ping {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Ping
	for _, p := range m.pings {
		if p.TripID == tripID {
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ObservedAt.Before(out[j].ObservedAt) })
	return out
}

func (m *memStore) LatestUserPing(_ context.Context, userID string) (Ping, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var best Ping
	found := false
	for _, p := range m.pings {
		t, ok := m.trips[p.TripID]
		if !ok || t.OwnerID != userID {
			continue
		}
		if !found || p.ObservedAt.After(best.ObservedAt) {
			best, found = p, true
		}
	}
	best.UserID = userID
	return best, found, nil
}

func (m *memStore) LatestDevicePing(_ context.Context, deviceID string) (Ping, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var best Ping
	found := false
	for _, p := range m.pings {
		if p.DeviceID != deviceID {
			continue
		}
		if !found || p.ObservedAt.After(best.ObservedAt) {
			best, found = p, true
		}
	}
	return best, found, nil
}

func (m *memStore) LatestPings(_ context.Context, limit int) ([]Ping, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastLimit = limit
	out := append([]Ping(nil), m.pings...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].ObservedAt.After(out[j].ObservedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memStore) PingsBetween(_ context.Context, from, to time.Time) ([]Ping, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []Ping{}
	for _, p := range m.pings {
		if p.ObservedAt.Before(from) || p.ObservedAt.After(to) {
			continue
		}
		if t, ok := m.trips[p.TripID]; ok {
			p.UserID = t.OwnerID
		}
		out = append(out, p)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ObservedAt.Before(out[j].ObservedAt) })
	return out, nil
}

func (m *memStore) PurgeUnassigned(_ context.Context, olderThan time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.pings[:0]
	var n int64
	for _, p := range m.pings {
		if p.TripID == "" && p.ObservedAt.Before(olderThan) {
			n++
			continue
		}
		kept = append(kept, p)
	}
	m.pings = kept
	return n, nil
}

func (m *memStore) openTrips(ownerID string) []Trip {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Trip
	for _, t := range m.trips {
		if t.OwnerID == ownerID && t.IsOpen() {
			out = append(out, t)
		}
	}
	return out
}

func (m *memStore) pingCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pings)
}

type fakeUsers struct {
	known map[string]bool
	err   error
}

func (f fakeUsers) UserExists(_ context.Context, userID string) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	return f.known[userID], nil
}

type recordingNotifier struct {
	mu     sync.Mutex
	pings  []IngestResult
	opened []Trip
	closed []Trip
}

func (r *recordingNotifier) PingRecorded(_ context.Context, result IngestResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pings = append(r.pings, result)
}

func (r *recordingNotifier) TripOpened(_ context.Context, trip Trip) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.opened = append(r.opened, trip)
}

func (r *recordingNotifier) TripClosed(_ context.Context, trip Trip) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = append(r.closed, trip)
}
