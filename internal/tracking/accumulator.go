package tracking

import (
	"context"
	"fmt"

	"backend-routetracker/internal/shared/geo"
)

// accumulate adds the distance between the trip's previously inserted ping
// and newPing to the trip total, returning the resulting total.
//
// Pings are paired in arrival order, not by observation time: a report that
// arrives late is measured against whatever was inserted just before it.
func accumulate(ctx context.Context, repo Repository, trip Trip, newPing Ping) (float64, error) {
	prior, found, err := repo.LastInsertedPing(ctx, trip.ID, newPing.ID)
	if err != nil {
		return 0, fmt.Errorf("find previous ping: %w", err)
	}
	if !found {
		return trip.DistanceM, nil
	}

	delta := geo.DistanceMeters(prior.Coordinate(), newPing.Coordinate())
	total, err := repo.IncrementDistance(ctx, trip.ID, delta)
	if err != nil {
		return 0, fmt.Errorf("increment distance: %w", err)
	}
	return total, nil
}
