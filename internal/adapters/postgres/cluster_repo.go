package postgres

import (
	"context"
	"encoding/json"

	"github.com/mbeltza/tripscribe/internal/core/domain"
)

// ClusterRepo implements ports.ClusterRepository. The member photos are
// stored denormalized as JSONB next to the cluster row; clusters are
// rebuilt wholesale on every curation run, so there is nothing to join.
type ClusterRepo struct {
	db *DB
}

func NewClusterRepo(db *DB) *ClusterRepo {
	return &ClusterRepo{db: db}
}

func (r *ClusterRepo) Insert(ctx context.Context, cluster *domain.PhotoCluster) error {
	photos, err := json.Marshal(cluster.Photos)
	if err != nil {
		return err
	}
	_, err = r.db.Pool.Exec(ctx, `
		INSERT INTO photo_clusters (id, trip_id, photos, center, start_time, end_time, assigned_step_id)
		VALUES ($1, $2, $3, ST_SetSRID(ST_MakePoint($4, $5), 4326)::geography, $6, $7, $8)
	`, cluster.ID, cluster.TripID, photos,
		cluster.CenterLocation.Lon, cluster.CenterLocation.Lat,
		cluster.StartTime, cluster.EndTime, cluster.AssignedStepID)
	return err
}

func (r *ClusterRepo) ListByTrip(ctx context.Context, tripID string) ([]domain.PhotoCluster, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT id, trip_id, photos,
			ST_Y(center::geometry) as lat,
			ST_X(center::geometry) as lon,
			start_time, end_time, assigned_step_id
		FROM photo_clusters
		WHERE trip_id = $1
		ORDER BY start_time ASC
	`, tripID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var clusters []domain.PhotoCluster
	for rows.Next() {
		var c domain.PhotoCluster
		var photos []byte
		if err := rows.Scan(&c.ID, &c.TripID, &photos,
			&c.CenterLocation.Lat, &c.CenterLocation.Lon,
			&c.StartTime, &c.EndTime, &c.AssignedStepID); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(photos, &c.Photos); err != nil {
			return nil, err
		}
		clusters = append(clusters, c)
	}
	return clusters, rows.Err()
}

func (r *ClusterRepo) AssignStep(ctx context.Context, clusterID, stepID string) error {
	_, err := r.db.Pool.Exec(ctx, `
		UPDATE photo_clusters SET assigned_step_id = $2 WHERE id = $1
	`, clusterID, stepID)
	return err
}

func (r *ClusterRepo) DeleteByTrip(ctx context.Context, tripID string) error {
	_, err := r.db.Pool.Exec(ctx, `
		DELETE FROM photo_clusters WHERE trip_id = $1
	`, tripID)
	return err
}
