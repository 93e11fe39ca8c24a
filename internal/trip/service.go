package trip

import (
	"context"
	"fmt"
	"time"

	"backend-routetracker/internal/db"
	"backend-routetracker/internal/tracking"
)

const (
	defaultPageLimit = 10
	maxPageLimit     = 100
	// keeps (page-1)*limit well inside int range
	maxPage = 1_000_000
)

type Service struct {
	db     db.Querier
	reader Reader
	users  tracking.UserResolver
}

func NewService(q db.Querier, reader Reader, users tracking.UserResolver) *Service {
	return &Service{db: q, reader: reader, users: users}
}

// History pages through the user's completed trips, newest calendar date
// first. Trips still in progress are never listed.
func (s *Service) History(ctx context.Context, userID string, q HistoryQuery) (HistoryPage, error) {
	if userID == "" {
		return HistoryPage{}, &tracking.ValidationError{Problems: []string{"userId is required"}}
	}
	exists, err := s.users.UserExists(ctx, userID)
	if err != nil {
		return HistoryPage{}, fmt.Errorf("resolve user: %w", err)
	}
	if !exists {
		return HistoryPage{}, tracking.ErrIdentityNotFound
	}

	if q.Limit <= 0 {
		q.Limit = defaultPageLimit
	}
	if q.Limit > maxPageLimit {
		q.Limit = maxPageLimit
	}
	if q.Page <= 0 {
		q.Page = 1
	}
	if q.Page > maxPage {
		q.Page = maxPage
	}
	from, to := datePtr(q.From), datePtr(q.To)

	var total int64
	err = s.db.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM routes
		WHERE owner_id=$1 AND ended_at < $2
		  AND ($3::date IS NULL OR calendar_date >= $3)
		  AND ($4::date IS NULL OR calendar_date <= $4)
	`, userID, tracking.OpenThreshold, from, to).Scan(&total)
	if err != nil {
		return HistoryPage{}, fmt.Errorf("count routes: %w", err)
	}

	rows, err := s.db.Query(ctx, `
		SELECT r.id, r.calendar_date, r.started_at, r.ended_at, r.duration_seconds, r.distance_m, COUNT(p.id)
		FROM routes r
		LEFT JOIN pings p ON p.route_id = r.id
		WHERE r.owner_id=$1 AND r.ended_at < $2
		  AND ($3::date IS NULL OR r.calendar_date >= $3)
		  AND ($4::date IS NULL OR r.calendar_date <= $4)
		GROUP BY r.id
		ORDER BY r.calendar_date DESC, r.started_at DESC
		LIMIT $5 OFFSET $6
	`, userID, tracking.OpenThreshold, from, to, q.Limit, (q.Page-1)*q.Limit)
	if err != nil {
		return HistoryPage{}, fmt.Errorf("list routes: %w", err)
	}
	defer rows.Close()

	entries := []HistoryEntry{}
	for rows.Next() {
		var e HistoryEntry
		if err := rows.Scan(&e.ID, &e.CalendarDate, &e.StartedAt, &e.EndedAt, &e.DurationSeconds, &e.DistanceM, &e.PingCount); err != nil {
			return HistoryPage{}, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return HistoryPage{}, err
	}

	return HistoryPage{
		Data: entries,
		Pagination: Pagination{
			Total: total,
			Page:  q.Page,
			Limit: q.Limit,
			Pages: int((total + int64(q.Limit) - 1) / int64(q.Limit)),
		},
	}, nil
}

// Details returns the trip with its pings in observation order.
func (s *Service) Details(ctx context.Context, tripID string) (tracking.Trip, error) {
	if tripID == "" {
		return tracking.Trip{}, &tracking.ValidationError{Problems: []string{"routeId is required"}}
	}
	t, found, err := s.reader.GetTrip(ctx, tripID)
	if err != nil {
		return tracking.Trip{}, fmt.Errorf("get route: %w", err)
	}
	if !found {
		return tracking.Trip{}, tracking.ErrTripNotFound
	}
	t.Pings, err = s.reader.TripPings(ctx, tripID)
	if err != nil {
		return tracking.Trip{}, fmt.Errorf("load route pings: %w", err)
	}
	return t, nil
}

// ByDate lists every trip whose calendar date is the given day, open or not,
// each with its ordered pings.
func (s *Service) ByDate(ctx context.Context, date time.Time) ([]tracking.Trip, error) {
	if date.IsZero() {
		return nil, &tracking.ValidationError{Problems: []string{"date is required"}}
	}
	day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)

	rows, err := s.db.Query(ctx, `
		SELECT id, owner_id, calendar_date, started_at, ended_at, duration_seconds, distance_m
		FROM routes
		WHERE calendar_date=$1
		ORDER BY started_at
	`, day)
	if err != nil {
		return nil, fmt.Errorf("list routes: %w", err)
	}

	trips := []tracking.Trip{}
	for rows.Next() {
		var t tracking.Trip
		if err := rows.Scan(&t.ID, &t.OwnerID, &t.CalendarDate, &t.StartedAt, &t.EndedAt, &t.DurationSeconds, &t.DistanceM); err != nil {
			rows.Close()
			return nil, err
		}
		trips = append(trips, t)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range trips {
		trips[i].Pings, err = s.reader.TripPings(ctx, trips[i].ID)
		if err != nil {
			return nil, fmt.Errorf("load route pings: %w", err)
		}
	}
	return trips, nil
}

func datePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
