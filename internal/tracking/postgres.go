package tracking

import (
	"context"
	"errors"
	"time"

	"backend-routetracker/internal/db"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const (
	tripColumns = `id, owner_id, calendar_date, started_at, ended_at, duration_seconds, distance_m`
	pingColumns = `id, route_id, device_id, latitude, longitude, altitude_m, speed_mps, observed_at, created_at`
)

// PostgresStore keeps trips in the routes table and pings in the pings table.
type PostgresStore struct {
	pgRepository
	pool db.TxQuerier
}

func NewPostgresStore(pool db.TxQuerier) *PostgresStore {
	return &PostgresStore{pgRepository: pgRepository{q: pool}, pool: pool}
}

// WithinOwner runs fn in a transaction holding a transaction-scoped advisory
// lock on the owner, so replicas sharing the database also serialize.
func (s *PostgresStore) WithinOwner(ctx context.Context, ownerID string, fn func(Repository) error) error {
	return db.InTx(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, ownerID); err != nil {
			return err
		}
		return fn(pgRepository{q: tx})
	})
}

type pgRepository struct {
	q db.Querier
}

func (r pgRepository) FindOpenTrip(ctx context.Context, ownerID string) (Trip, bool, error) {
	row := r.q.QueryRow(ctx, `
		SELECT `+tripColumns+`
		FROM routes
		WHERE owner_id=$1 AND ended_at >= $2
		LIMIT 1
	`, ownerID, OpenThreshold)
	return scanTrip(row)
}

func (r pgRepository) CreateTrip(ctx context.Context, ownerID string, startedAt, calendarDate time.Time) (Trip, error) {
	trip := Trip{
		ID:           uuid.NewString(),
		OwnerID:      ownerID,
		CalendarDate: calendarDate,
		StartedAt:    startedAt,
		EndedAt:      OpenEndedAt,
	}
	_, err := r.q.Exec(ctx, `
		INSERT INTO routes (id, owner_id, calendar_date, started_at, ended_at, duration_seconds, distance_m)
		VALUES ($1,$2,$3,$4,$5,0,0)
	`, trip.ID, trip.OwnerID, trip.CalendarDate, trip.StartedAt, trip.EndedAt)
	if err != nil {
		return Trip{}, err
	}
	return trip, nil
}

func (r pgRepository) InsertClosedTrip(ctx context.Context, t Trip) (Trip, error) {
	t.ID = uuid.NewString()
	_, err := r.q.Exec(ctx, `
		INSERT INTO routes (id, owner_id, calendar_date, started_at, ended_at, duration_seconds, distance_m)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`, t.ID, t.OwnerID, t.CalendarDate, t.StartedAt, t.EndedAt, t.DurationSeconds, t.DistanceM)
	if err != nil {
		return Trip{}, err
	}
	return t, nil
}

func (r pgRepository) CloseTrip(ctx context.Context, tripID string, endedAt time.Time, durationSeconds int64) (Trip, error) {
	row := r.q.QueryRow(ctx, `
		UPDATE routes
		SET ended_at=$2, duration_seconds=$3
		WHERE id=$1
		RETURNING `+tripColumns+`
	`, tripID, endedAt, durationSeconds)
	trip, found, err := scanTrip(row)
	if err != nil {
		return Trip{}, err
	}
	if !found {
		return Trip{}, ErrTripNotFound
	}
	return trip, nil
}

func (r pgRepository) GetTrip(ctx context.Context, tripID string) (Trip, bool, error) {
	row := r.q.QueryRow(ctx, `SELECT `+tripColumns+` FROM routes WHERE id=$1`, tripID)
	return scanTrip(row)
}

func (r pgRepository) InsertPing(ctx context.Context, p Ping) (Ping, error) {
	row := r.q.QueryRow(ctx, `
		INSERT INTO pings (route_id, device_id, latitude, longitude, altitude_m, speed_mps, observed_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		RETURNING id, created_at
	`, nullString(p.TripID), nullString(p.DeviceID), p.Lat, p.Lng, p.AltitudeM, p.SpeedMps, p.ObservedAt)
	if err := row.Scan(&p.ID, &p.CreatedAt); err != nil {
		return Ping{}, err
	}
	return p, nil
}

func (r pgRepository) LastInsertedPing(ctx context.Context, tripID string, excludingID int64) (Ping, bool, error) {
	row := r.q.QueryRow(ctx, `
		SELECT `+pingColumns+`
		FROM pings
		WHERE route_id=$1 AND id <> $2
		ORDER BY id DESC
		LIMIT 1
	`, tripID, excludingID)
	return scanPing(row)
}

func (r pgRepository) IncrementDistance(ctx context.Context, tripID string, deltaM float64) (float64, error) {
	var total float64
	err := r.q.QueryRow(ctx, `
		UPDATE routes
		SET distance_m = distance_m + $2
		WHERE id=$1
		RETURNING distance_m
	`, tripID, deltaM).Scan(&total)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrTripNotFound
	}
	return total, err
}

func (r pgRepository) FirstPing(ctx context.Context, tripID string) (Ping, bool, error) {
	row := r.q.QueryRow(ctx, `
		SELECT `+pingColumns+`
		FROM pings
		WHERE route_id=$1
		ORDER BY observed_at ASC, id ASC
		LIMIT 1
	`, tripID)
	return scanPing(row)
}

func (r pgRepository) LastPing(ctx context.Context, tripID string) (Ping, bool, error) {
	row := r.q.QueryRow(ctx, `
		SELECT `+pingColumns+`
		FROM pings
		WHERE route_id=$1
		ORDER BY id DESC
		LIMIT 1
	`, tripID)
	return scanPing(row)
}

func (r pgRepository) TripPings(ctx context.Context, tripID string) ([]Ping, error) {
	rows, err := r.q.Query(ctx, `
		SELECT `+pingColumns+`
		FROM pings
		WHERE route_id=$1
		ORDER BY observed_at, id
	`, tripID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	pings := []Ping{}
	for rows.Next() {
		p, _, err := scanPing(rows)
		if err != nil {
			return nil, err
		}
		pings = append(pings, p)
	}
	return pings, rows.Err()
}

func (r pgRepository) LatestUserPing(ctx context.Context, userID string) (Ping, bool, error) {
	row := r.q.QueryRow(ctx, `
		SELECT p.id, p.route_id, p.device_id, p.latitude, p.longitude, p.altitude_m, p.speed_mps, p.observed_at, p.created_at
		FROM pings p
		JOIN routes r ON r.id = p.route_id
		WHERE r.owner_id=$1
		ORDER BY p.observed_at DESC, p.id DESC
		LIMIT 1
	`, userID)
	p, found, err := scanPing(row)
	if found {
		p.UserID = userID
	}
	return p, found, err
}

func (r pgRepository) LatestDevicePing(ctx context.Context, deviceID string) (Ping, bool, error) {
	row := r.q.QueryRow(ctx, `
		SELECT `+pingColumns+`
		FROM pings
		WHERE device_id=$1
		ORDER BY observed_at DESC, id DESC
		LIMIT 1
	`, deviceID)
	return scanPing(row)
}

func (r pgRepository) LatestPings(ctx context.Context, limit int) ([]Ping, error) {
	rows, err := r.q.Query(ctx, `
		SELECT p.id, p.route_id, p.device_id, p.latitude, p.longitude, p.altitude_m, p.speed_mps, p.observed_at, p.created_at, r.owner_id
		FROM pings p
		LEFT JOIN routes r ON r.id = p.route_id
		ORDER BY p.observed_at DESC, p.id DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	return scanOwnedPings(rows)
}

func (r pgRepository) PingsBetween(ctx context.Context, from, to time.Time) ([]Ping, error) {
	rows, err := r.q.Query(ctx, `
		SELECT p.id, p.route_id, p.device_id, p.latitude, p.longitude, p.altitude_m, p.speed_mps, p.observed_at, p.created_at, r.owner_id
		FROM pings p
		LEFT JOIN routes r ON r.id = p.route_id
		WHERE p.observed_at BETWEEN $1 AND $2
		ORDER BY p.observed_at, p.id
	`, from, to)
	if err != nil {
		return nil, err
	}
	return scanOwnedPings(rows)
}

// scanOwnedPings reads pings selected with the owning route's owner_id as a
// trailing column.
func scanOwnedPings(rows pgx.Rows) ([]Ping, error) {
	defer rows.Close()

	pings := []Ping{}
	for rows.Next() {
		var p Ping
		var routeID, deviceID, ownerID *string
		if err := rows.Scan(&p.ID, &routeID, &deviceID, &p.Lat, &p.Lng, &p.AltitudeM, &p.SpeedMps, &p.ObservedAt, &p.CreatedAt, &ownerID); err != nil {
			return nil, err
		}
		p.TripID = deref(routeID)
		p.DeviceID = deref(deviceID)
		p.UserID = deref(ownerID)
		pings = append(pings, p)
	}
	return pings, rows.Err()
}

func (r pgRepository) PurgeUnassigned(ctx context.Context, olderThan time.Time) (int64, error) {
	tag, err := r.q.Exec(ctx, `
		DELETE FROM pings
		WHERE route_id IS NULL AND observed_at < $1
	`, olderThan)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func scanTrip(row pgx.Row) (Trip, bool, error) {
	var t Trip
	err := row.Scan(&t.ID, &t.OwnerID, &t.CalendarDate, &t.StartedAt, &t.EndedAt, &t.DurationSeconds, &t.DistanceM)
	if errors.Is(err, pgx.ErrNoRows) {
		return Trip{}, false, nil
	}
	if err != nil {
		return Trip{}, false, err
	}
	return t, true, nil
}

func scanPing(row pgx.Row) (Ping, bool, error) {
	var p Ping
	var routeID, deviceID *string
	err := row.Scan(&p.ID, &routeID, &deviceID, &p.Lat, &p.Lng, &p.AltitudeM, &p.SpeedMps, &p.ObservedAt, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Ping{}, false, nil
	}
	if err != nil {
		return Ping{}, false, err
	}
	p.TripID = deref(routeID)
	p.DeviceID = deref(deviceID)
	return p, true, nil
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
