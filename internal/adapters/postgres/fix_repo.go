package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/mbeltza/tripscribe/internal/core/domain"
)

// FixRepo implements ports.FixRepository.
type FixRepo struct {
	db *DB
}

func NewFixRepo(db *DB) *FixRepo {
	return &FixRepo{db: db}
}

func (r *FixRepo) Insert(ctx context.Context, fix *domain.LocationFix) error {
	_, err := r.db.Pool.Exec(ctx, `
		INSERT INTO location_fixes (trip_id, time, location, accuracy_m, altitude_m, speed_mps, heading_deg, activity, battery_level)
		VALUES ($1, $2, ST_SetSRID(ST_MakePoint($3, $4), 4326)::geography, $5, $6, $7, $8, $9, $10)
	`, fix.TripID, fix.Time, fix.Point.Lon, fix.Point.Lat,
		fix.AccuracyM, fix.AltitudeM, fix.SpeedMps, fix.HeadingDeg,
		string(fix.Activity), fix.BatteryLevel)
	return err
}

func (r *FixRepo) ListByTrip(ctx context.Context, tripID string, from, to time.Time, limit int) ([]domain.LocationFix, error) {
	if limit <= 0 {
		limit = 1000
	}
	rows, err := r.db.Pool.Query(ctx, `
		SELECT trip_id, time,
			ST_Y(location::geometry) as lat,
			ST_X(location::geometry) as lon,
			accuracy_m, altitude_m, speed_mps, heading_deg, activity, battery_level
		FROM location_fixes
		WHERE trip_id = $1 AND time >= $2 AND time <= $3
		ORDER BY time ASC
		LIMIT $4
	`, tripID, from, to, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var fixes []domain.LocationFix
	for rows.Next() {
		fix, err := scanFix(rows)
		if err != nil {
			return nil, err
		}
		fixes = append(fixes, fix)
	}
	return fixes, rows.Err()
}

func (r *FixRepo) Latest(ctx context.Context, tripID string) (*domain.LocationFix, error) {
	row := r.db.Pool.QueryRow(ctx, `
		SELECT trip_id, time,
			ST_Y(location::geometry) as lat,
			ST_X(location::geometry) as lon,
			accuracy_m, altitude_m, speed_mps, heading_deg, activity, battery_level
		FROM location_fixes
		WHERE trip_id = $1
		ORDER BY time DESC
		LIMIT 1
	`, tripID)

	fix, err := scanFix(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &fix, nil
}

func scanFix(row pgx.Row) (domain.LocationFix, error) {
	var fix domain.LocationFix
	var activity string
	err := row.Scan(&fix.TripID, &fix.Time, &fix.Point.Lat, &fix.Point.Lon,
		&fix.AccuracyM, &fix.AltitudeM, &fix.SpeedMps, &fix.HeadingDeg,
		&activity, &fix.BatteryLevel)
	fix.Activity = domain.MotionState(activity)
	return fix, err
}
