package tracking

import (
	"context"
	"fmt"

	"backend-routetracker/internal/shared/geo"
)

// ReturnToStart reports how far, and in which direction, the trip's first
// ping lies from its most recently inserted one.
func (s *Service) ReturnToStart(ctx context.Context, tripID string) (Navigation, error) {
	if tripID == "" {
		return Navigation{}, invalid("routeId is required")
	}

	_, found, err := s.store.GetTrip(ctx, tripID)
	if err != nil {
		return Navigation{}, fmt.Errorf("get route: %w", err)
	}
	if !found {
		return Navigation{}, ErrTripNotFound
	}

	start, found, err := s.store.FirstPing(ctx, tripID)
	if err != nil {
		return Navigation{}, fmt.Errorf("first ping: %w", err)
	}
	if !found {
		return Navigation{}, ErrEmptyTrip
	}

	current, found, err := s.store.LastPing(ctx, tripID)
	if err != nil {
		return Navigation{}, fmt.Errorf("last ping: %w", err)
	}
	if !found {
		return Navigation{}, ErrEmptyTrip
	}

	return Navigation{
		StartingPoint: start,
		CurrentPoint:  current,
		Info: NavigationInfo{
			DistanceToStart:  geo.DistanceMeters(current.Coordinate(), start.Coordinate()),
			BearingToStart:   geo.InitialBearingDegrees(current.Coordinate(), start.Coordinate()),
			StartCoordinates: start.Coordinate(),
		},
	}, nil
}
