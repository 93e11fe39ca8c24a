package tracking

import (
	"context"
	"time"
)

// Repository is the persistence collaborator. Lookups that may legitimately
// find nothing report it through the boolean instead of an error.
type Repository interface {
	FindOpenTrip(ctx context.Context, ownerID string) (Trip, bool, error)
	CreateTrip(ctx context.Context, ownerID string, startedAt, calendarDate time.Time) (Trip, error)
	CloseTrip(ctx context.Context, tripID string, endedAt time.Time, durationSeconds int64) (Trip, error)
	GetTrip(ctx context.Context, tripID string) (Trip, bool, error)
	// InsertClosedTrip stores t as given, assigning its id.
	InsertClosedTrip(ctx context.Context, t Trip) (Trip, error)

	// InsertPing stores p; an empty TripID stores it unassigned.
	InsertPing(ctx context.Context, p Ping) (Ping, error)
	// LastInsertedPing returns the trip's most recently inserted ping other
	// than excludingID.
	LastInsertedPing(ctx context.Context, tripID string, excludingID int64) (Ping, bool, error)
	// IncrementDistance adds deltaM to the trip total and returns the new total.
	IncrementDistance(ctx context.Context, tripID string, deltaM float64) (float64, error)
	FirstPing(ctx context.Context, tripID string) (Ping, bool, error)
	LastPing(ctx context.Context, tripID string) (Ping, bool, error)
	TripPings(ctx context.Context, tripID string) ([]Ping, error)

	LatestUserPing(ctx context.Context, userID string) (Ping, bool, error)
	LatestDevicePing(ctx context.Context, deviceID string) (Ping, bool, error)
	LatestPings(ctx context.Context, limit int) ([]Ping, error)
	// PingsBetween lists every ping observed within [from, to], oldest first.
	PingsBetween(ctx context.Context, from, to time.Time) ([]Ping, error)
	PurgeUnassigned(ctx context.Context, olderThan time.Time) (int64, error)
}

// Store is a Repository that can run a unit of work exclusively for one
// owner. Everything fn does through the given Repository commits together or
// not at all, and no other WithinOwner call for the same owner overlaps it.
type Store interface {
	Repository
	WithinOwner(ctx context.Context, ownerID string, fn func(Repository) error) error
}

// UserResolver answers whether a user id refers to a known identity.
type UserResolver interface {
	UserExists(ctx context.Context, userID string) (bool, error)
}

// Notifier observes committed changes. Implementations must not block.
type Notifier interface {
	PingRecorded(ctx context.Context, result IngestResult)
	TripOpened(ctx context.Context, trip Trip)
	TripClosed(ctx context.Context, trip Trip)
}
