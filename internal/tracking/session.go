package tracking

import (
	"context"
	"fmt"
	"time"
)

// getOrOpenTrip returns the owner's open trip, creating one that starts at
// observedAt when none exists. Callers must hold the owner's unit of work.
func (s *Service) getOrOpenTrip(ctx context.Context, repo Repository, ownerID string, observedAt time.Time) (Trip, bool, error) {
	trip, found, err := repo.FindOpenTrip(ctx, ownerID)
	if err != nil {
		return Trip{}, false, fmt.Errorf("find open route: %w", err)
	}
	if found {
		return trip, false, nil
	}

	now := s.now().UTC()
	calendarDate := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	trip, err = repo.CreateTrip(ctx, ownerID, observedAt, calendarDate)
	if err != nil {
		return Trip{}, false, fmt.Errorf("create route: %w", err)
	}
	return trip, true, nil
}

// CloseTrip completes the owner's open trip, stamping its end time and
// duration, and returns it with its pings in observation order.
func (s *Service) CloseTrip(ctx context.Context, ownerID string) (Trip, error) {
	if ownerID == "" {
		return Trip{}, invalid("userId is required")
	}
	if err := s.requireUser(ctx, ownerID); err != nil {
		return Trip{}, err
	}

	var closed Trip
	err := s.withOwner(ctx, ownerID, func(repo Repository) error {
		open, found, err := repo.FindOpenTrip(ctx, ownerID)
		if err != nil {
			return fmt.Errorf("find open route: %w", err)
		}
		if !found {
			return ErrNoActiveTrip
		}

		endedAt := s.now().UTC()
		closed, err = repo.CloseTrip(ctx, open.ID, endedAt, durationSeconds(open.StartedAt, endedAt))
		if err != nil {
			return fmt.Errorf("close route: %w", err)
		}

		closed.Pings, err = repo.TripPings(ctx, open.ID)
		if err != nil {
			return fmt.Errorf("load route pings: %w", err)
		}
		return nil
	})
	if err != nil {
		return Trip{}, err
	}

	if s.notifier != nil {
		s.notifier.TripClosed(ctx, closed)
	}
	return closed, nil
}

// durationSeconds truncates to whole seconds. A device clock running ahead
// of the server yields zero rather than a negative duration.
func durationSeconds(startedAt, endedAt time.Time) int64 {
	d := endedAt.Sub(startedAt)
	if d < 0 {
		return 0
	}
	return int64(d / time.Second)
}
