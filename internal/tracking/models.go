package tracking

import (
	"time"

	"backend-routetracker/internal/shared/geo"
)

// OpenEndedAt is stored as a route's end time while it is still in progress.
var OpenEndedAt = time.Date(2099, 12, 31, 23, 59, 59, 0, time.UTC)

// maxTimestampMs is 9999-12-31T23:59:59.999Z, the latest accepted
// observation time.
const maxTimestampMs = 253402300799999

// OpenThreshold is the earliest end time still treated as open. Queries
// for completed trips compare against it rather than OpenEndedAt.
var OpenThreshold = time.Date(2099, 1, 1, 0, 0, 0, 0, time.UTC)

type Trip struct {
	ID              string    `json:"id"`
	OwnerID         string    `json:"user_id"`
	CalendarDate    time.Time `json:"date"`
	StartedAt       time.Time `json:"start_time"`
	EndedAt         time.Time `json:"end_time"`
	DurationSeconds int64     `json:"duration"`
	DistanceM       float64   `json:"distance"`
	Pings           []Ping    `json:"locations,omitempty"`
}

// IsOpen reports whether the trip still accepts pings.
func (t Trip) IsOpen() bool {
	return !t.EndedAt.Before(OpenThreshold)
}

type Ping struct {
	ID         int64     `json:"id"`
	TripID     string    `json:"route_id,omitempty"`
	DeviceID   string    `json:"device_id,omitempty"`
	UserID     string    `json:"user_id,omitempty"`
	Lat        float64   `json:"latitude"`
	Lng        float64   `json:"longitude"`
	AltitudeM  *float64  `json:"altitude,omitempty"`
	SpeedMps   *float64  `json:"speed,omitempty"`
	ObservedAt time.Time `json:"timestamp"`
	CreatedAt  time.Time `json:"created_at"`
}

func (p Ping) Coordinate() geo.Coordinate {
	return geo.Coordinate{Lat: p.Lat, Lng: p.Lng}
}

// Unassigned reports whether the ping was stored without a trip.
func (p Ping) Unassigned() bool {
	return p.TripID == ""
}

// RawReport is a position report as submitted by a device or app. Required
// values are pointers so that a missing field is distinguishable from zero.
type RawReport struct {
	Latitude  *float64 `json:"latitude" validate:"required,gte=-90,lte=90"`
	Longitude *float64 `json:"longitude" validate:"required,gte=-180,lte=180"`
	Altitude  *float64 `json:"altitude,omitempty"`
	Speed     *float64 `json:"speed,omitempty" validate:"omitempty,gte=0"`
	// Timestamp is the observation time in Unix milliseconds, no later than
	// 9999-12-31T23:59:59.999Z.
	Timestamp *int64 `json:"timestamp" validate:"required,gt=0,lte=253402300799999"`
	DeviceID  string `json:"deviceId,omitempty" validate:"omitempty,max=128"`
}

// TripImport describes a route recorded elsewhere that is stored already
// completed. Times are Unix milliseconds.
type TripImport struct {
	UserID string `json:"userId" validate:"required,max=64"`
	// Date is the route's calendar date as YYYY-MM-DD; it defaults to the
	// UTC date of StartTime.
	Date      string      `json:"date,omitempty"`
	StartTime *int64      `json:"startTime" validate:"required,gt=0,lte=253402300799999"`
	EndTime   *int64      `json:"endTime" validate:"required,gt=0,lte=253402300799999"`
	Locations []RawReport `json:"locations,omitempty" validate:"dive"`
}

// Identity names who a report belongs to. At least one field must be set.
type Identity struct {
	UserID   string
	DeviceID string
}

type IngestResult struct {
	Ping   Ping   `json:"location"`
	TripID string `json:"routeId,omitempty"`
	// Trip is the owning trip after the distance update; nil for unassigned pings.
	Trip   *Trip `json:"route,omitempty"`
	Opened bool  `json:"routeOpened"`
}

type NavigationInfo struct {
	DistanceToStart  float64        `json:"distanceToStart"`
	BearingToStart   float64        `json:"bearingToStart"`
	StartCoordinates geo.Coordinate `json:"startCoordinates"`
}

type Navigation struct {
	StartingPoint Ping           `json:"startingPoint"`
	CurrentPoint  Ping           `json:"currentPoint"`
	Info          NavigationInfo `json:"navigationInfo"`
}
