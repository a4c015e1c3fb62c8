package postgres

import (
	"context"

	"github.com/mbeltza/tripscribe/internal/core/domain"
)

// TripRepo implements ports.TripRepository.
type TripRepo struct {
	db *DB
}

func NewTripRepo(db *DB) *TripRepo {
	return &TripRepo{db: db}
}

func (r *TripRepo) Create(ctx context.Context, trip *domain.Trip) error {
	return r.db.Pool.QueryRow(ctx, `
		INSERT INTO trips (id, title, started_at, ended_at)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at
	`, trip.ID, trip.Title, trip.StartedAt, trip.EndedAt).Scan(&trip.CreatedAt)
}

func (r *TripRepo) GetByID(ctx context.Context, id string) (*domain.Trip, error) {
	trip := &domain.Trip{}
	err := r.db.Pool.QueryRow(ctx, `
		SELECT id, COALESCE(title, ''), started_at, ended_at, created_at
		FROM trips WHERE id = $1
	`, id).Scan(&trip.ID, &trip.Title, &trip.StartedAt, &trip.EndedAt, &trip.CreatedAt)
	if err != nil {
		return nil, err
	}
	return trip, nil
}

func (r *TripRepo) List(ctx context.Context) ([]domain.Trip, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT id, COALESCE(title, ''), started_at, ended_at, created_at
		FROM trips ORDER BY started_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var trips []domain.Trip
	for rows.Next() {
		var t domain.Trip
		if err := rows.Scan(&t.ID, &t.Title, &t.StartedAt, &t.EndedAt, &t.CreatedAt); err != nil {
			return nil, err
		}
		trips = append(trips, t)
	}
	return trips, rows.Err()
}
