package tracking

import (
	"context"
	"fmt"
	"time"
)

const (
	defaultLatestLimit = 10
	maxLatestLimit     = 100
)

func (s *Service) LatestUserPing(ctx context.Context, userID string) (Ping, error) {
	if userID == "" {
		return Ping{}, invalid("userId is required")
	}
	if err := s.requireUser(ctx, userID); err != nil {
		return Ping{}, err
	}
	p, found, err := s.store.LatestUserPing(ctx, userID)
	if err != nil {
		return Ping{}, fmt.Errorf("latest user ping: %w", err)
	}
	if !found {
		return Ping{}, ErrPingNotFound
	}
	return p, nil
}

func (s *Service) LatestDevicePing(ctx context.Context, deviceID string) (Ping, error) {
	if deviceID == "" {
		return Ping{}, invalid("deviceId is required")
	}
	p, found, err := s.store.LatestDevicePing(ctx, deviceID)
	if err != nil {
		return Ping{}, fmt.Errorf("latest device ping: %w", err)
	}
	if !found {
		return Ping{}, ErrPingNotFound
	}
	return p, nil
}

// LatestPings lists the most recent pings across all identities. Limits
// outside (0, 100] fall back to the default or are capped.
func (s *Service) LatestPings(ctx context.Context, limit int) ([]Ping, error) {
	if limit <= 0 {
		limit = defaultLatestLimit
	}
	if limit > maxLatestLimit {
		limit = maxLatestLimit
	}
	pings, err := s.store.LatestPings(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("latest pings: %w", err)
	}
	return pings, nil
}

// PurgeUnassigned deletes unassigned pings observed before olderThan. Pings
// that belong to a trip are never removed.
func (s *Service) PurgeUnassigned(ctx context.Context, olderThan time.Time) (int64, error) {
	if olderThan.IsZero() {
		return 0, invalid("olderThan is required")
	}
	n, err := s.store.PurgeUnassigned(ctx, olderThan)
	if err != nil {
		return 0, fmt.Errorf("purge unassigned pings: %w", err)
	}
	return n, nil
}

// PingsBetween lists pings of every identity observed within [from, to],
// oldest first.
func (s *Service) PingsBetween(ctx context.Context, from, to time.Time) ([]Ping, error) {
	if from.IsZero() || to.IsZero() {
		return nil, invalid("startTime and endTime are required")
	}
	if to.Before(from) {
		return nil, invalid("endTime must not be before startTime")
	}
	pings, err := s.store.PingsBetween(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("pings between: %w", err)
	}
	return pings, nil
}
