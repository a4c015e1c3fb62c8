package postgres

import (
	"context"
	"time"

	"github.com/mbeltza/tripscribe/internal/core/domain"
)

// DwellRepo implements ports.DwellRepository.
type DwellRepo struct {
	db *DB
}

func NewDwellRepo(db *DB) *DwellRepo {
	return &DwellRepo{db: db}
}

func (r *DwellRepo) Insert(ctx context.Context, dwell *domain.DwellEvent) error {
	_, err := r.db.Pool.Exec(ctx, `
		INSERT INTO dwell_events (trip_id, center, started_at, duration_ms)
		VALUES ($1, ST_SetSRID(ST_MakePoint($2, $3), 4326)::geography, $4, $5)
	`, dwell.TripID, dwell.Center.Lon, dwell.Center.Lat,
		dwell.StartedAt, dwell.Duration.Milliseconds())
	return err
}

func (r *DwellRepo) ListByTrip(ctx context.Context, tripID string) ([]domain.DwellEvent, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT trip_id,
			ST_Y(center::geometry) as lat,
			ST_X(center::geometry) as lon,
			started_at, duration_ms
		FROM dwell_events
		WHERE trip_id = $1
		ORDER BY started_at ASC
	`, tripID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var dwells []domain.DwellEvent
	for rows.Next() {
		var d domain.DwellEvent
		var durationMs int64
		if err := rows.Scan(&d.TripID, &d.Center.Lat, &d.Center.Lon,
			&d.StartedAt, &durationMs); err != nil {
			return nil, err
		}
		d.Duration = time.Duration(durationMs) * time.Millisecond
		dwells = append(dwells, d)
	}
	return dwells, rows.Err()
}
