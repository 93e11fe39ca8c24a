package trip

import (
	"context"
	"time"

	"backend-routetracker/internal/tracking"
)

// HistoryQuery filters a user's completed trips. Zero dates leave that end
// of the calendar range open.
type HistoryQuery struct {
	From  time.Time
	To    time.Time
	Limit int
	Page  int
}

type HistoryEntry struct {
	ID              string    `json:"id"`
	CalendarDate    time.Time `json:"date"`
	StartedAt       time.Time `json:"start_time"`
	EndedAt         time.Time `json:"end_time"`
	DurationSeconds int64     `json:"duration"`
	DistanceM       float64   `json:"distance"`
	PingCount       int64     `json:"location_count"`
}

type Pagination struct {
	Total int64 `json:"total"`
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Pages int   `json:"pages"`
}

type HistoryPage struct {
	Data       []HistoryEntry `json:"data"`
	Pagination Pagination     `json:"pagination"`
}

// Reader loads single trips and their pings; *tracking.PostgresStore
// satisfies it.
type Reader interface {
	GetTrip(ctx context.Context, tripID string) (tracking.Trip, bool, error)
	TripPings(ctx context.Context, tripID string) ([]tracking.Ping, error)
}
