package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/mbeltza/tripscribe/internal/core/domain"
)

// PhotoRepo implements ports.PhotoRepository.
type PhotoRepo struct {
	db *DB
}

func NewPhotoRepo(db *DB) *PhotoRepo {
	return &PhotoRepo{db: db}
}

func (r *PhotoRepo) UpsertBatch(ctx context.Context, photos []domain.PhotoRecord) error {
	batch := &pgx.Batch{}
	for _, p := range photos {
		var lon, lat interface{}
		if p.Location != nil {
			lon, lat = p.Location.Lon, p.Location.Lat
		}
		batch.Queue(`
			INSERT INTO photos (id, trip_id, time, location, quality_score, is_junk, width, height)
			VALUES ($1, $2, $3,
				CASE WHEN $4::float8 IS NULL THEN NULL
				     ELSE ST_SetSRID(ST_MakePoint($4, $5), 4326)::geography END,
				$6, $7, $8, $9)
			ON CONFLICT (id) DO UPDATE
			SET quality_score = EXCLUDED.quality_score,
			    is_junk = EXCLUDED.is_junk,
			    location = EXCLUDED.location
		`, p.ID, p.TripID, p.Time, lon, lat, p.QualityScore, p.IsJunk, p.Width, p.Height)
	}
	return r.db.Pool.SendBatch(ctx, batch).Close()
}

func (r *PhotoRepo) ListByTrip(ctx context.Context, tripID string) ([]domain.PhotoRecord, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT id, trip_id, time,
			ST_Y(location::geometry) as lat,
			ST_X(location::geometry) as lon,
			quality_score, is_junk, width, height
		FROM photos
		WHERE trip_id = $1
		ORDER BY time ASC
	`, tripID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var photos []domain.PhotoRecord
	for rows.Next() {
		var p domain.PhotoRecord
		var lat, lon *float64
		if err := rows.Scan(&p.ID, &p.TripID, &p.Time, &lat, &lon,
			&p.QualityScore, &p.IsJunk, &p.Width, &p.Height); err != nil {
			return nil, err
		}
		if lat != nil && lon != nil {
			p.Location = &domain.GeoPoint{Lat: *lat, Lon: *lon}
		}
		photos = append(photos, p)
	}
	return photos, rows.Err()
}
