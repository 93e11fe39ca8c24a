package tracking

import (
	"context"
	"fmt"
	"time"

	"backend-routetracker/internal/shared/geo"
)

// ImportTrip stores a route that was recorded elsewhere as already
// completed, together with its pings, in one unit of work for the owner.
// The distance is recomputed from the pings in the order given and the
// duration from the start and end times. Imports never touch the owner's
// open trip and send no notifications.
func (s *Service) ImportTrip(ctx context.Context, in TripImport) (Trip, error) {
	if err := s.validateInput(in); err != nil {
		return Trip{}, err
	}
	startedAt := time.UnixMilli(*in.StartTime).UTC()
	endedAt := time.UnixMilli(*in.EndTime).UTC()
	if endedAt.Before(startedAt) {
		return Trip{}, invalid("endTime must not be before startTime")
	}
	if !endedAt.Before(OpenThreshold) {
		return Trip{}, invalid("endTime must be before " + OpenThreshold.Format("2006-01-02"))
	}

	calendarDate := time.Date(startedAt.Year(), startedAt.Month(), startedAt.Day(), 0, 0, 0, 0, time.UTC)
	if in.Date != "" {
		d, err := time.Parse("2006-01-02", in.Date)
		if err != nil {
			return Trip{}, invalid("date must be formatted as YYYY-MM-DD")
		}
		calendarDate = d
	}

	if err := s.requireUser(ctx, in.UserID); err != nil {
		return Trip{}, err
	}

	pings := make([]Ping, 0, len(in.Locations))
	var distance float64
	for i, loc := range in.Locations {
		p := Ping{
			Lat:        *loc.Latitude,
			Lng:        *loc.Longitude,
			AltitudeM:  loc.Altitude,
			SpeedMps:   loc.Speed,
			DeviceID:   loc.DeviceID,
			ObservedAt: time.UnixMilli(*loc.Timestamp).UTC(),
		}
		if i > 0 {
			distance += geo.DistanceMeters(pings[i-1].Coordinate(), p.Coordinate())
		}
		pings = append(pings, p)
	}

	trip := Trip{
		OwnerID:         in.UserID,
		CalendarDate:    calendarDate,
		StartedAt:       startedAt,
		EndedAt:         endedAt,
		DurationSeconds: durationSeconds(startedAt, endedAt),
		DistanceM:       distance,
	}

	err := s.withOwner(ctx, in.UserID, func(repo Repository) error {
		stored, err := repo.InsertClosedTrip(ctx, trip)
		if err != nil {
			return fmt.Errorf("insert route: %w", err)
		}
		stored.Pings = make([]Ping, 0, len(pings))
		for _, p := range pings {
			p.TripID = stored.ID
			saved, err := repo.InsertPing(ctx, p)
			if err != nil {
				return fmt.Errorf("insert ping: %w", err)
			}
			saved.UserID = in.UserID
			stored.Pings = append(stored.Pings, saved)
		}
		trip = stored
		return nil
	})
	if err != nil {
		return Trip{}, err
	}
	return trip, nil
}
