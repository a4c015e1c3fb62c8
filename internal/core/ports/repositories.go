package ports

import (
	"context"
	"time"

	"github.com/mbeltza/tripscribe/internal/core/domain"
)

// TripRepository persists journal trips.
type TripRepository interface {
	Create(ctx context.Context, trip *domain.Trip) error
	GetByID(ctx context.Context, id string) (*domain.Trip, error)
	List(ctx context.Context) ([]domain.Trip, error)
}

// FixRepository persists location fixes.
type FixRepository interface {
	Insert(ctx context.Context, fix *domain.LocationFix) error
	ListByTrip(ctx context.Context, tripID string, from, to time.Time, limit int) ([]domain.LocationFix, error)
	Latest(ctx context.Context, tripID string) (*domain.LocationFix, error)
}

// PhotoRepository persists externally scored photo metadata.
type PhotoRepository interface {
	UpsertBatch(ctx context.Context, photos []domain.PhotoRecord) error
	ListByTrip(ctx context.Context, tripID string) ([]domain.PhotoRecord, error)
}

// ClusterRepository persists photo clusters.
type ClusterRepository interface {
	Insert(ctx context.Context, cluster *domain.PhotoCluster) error
	ListByTrip(ctx context.Context, tripID string) ([]domain.PhotoCluster, error)
	AssignStep(ctx context.Context, clusterID, stepID string) error
	DeleteByTrip(ctx context.Context, tripID string) error
}

// DwellRepository persists confirmed dwell events.
type DwellRepository interface {
	Insert(ctx context.Context, dwell *domain.DwellEvent) error
	ListByTrip(ctx context.Context, tripID string) ([]domain.DwellEvent, error)
}
