package ports

import (
	"context"

	"github.com/mbeltza/tripscribe/internal/core/domain"
)

// LocationProvider is the device-side location capability. CurrentFix is
// invoked once per sampling tick; a nil sample means no position was
// available for the tick.
type LocationProvider interface {
	CurrentFix(ctx context.Context) (*domain.RawSample, error)
	HasPermission(ctx context.Context) bool
}

// JournalSink receives finalized fix records. Ownership of a fix
// transfers to the sink on a successful append; appends go through the
// retry scheduler.
type JournalSink interface {
	AppendFix(ctx context.Context, fix *domain.LocationFix) error
}

// StepAssigner maps curated clusters and dwell events to user-facing trip
// steps. Step semantics live entirely on the collaborator's side.
type StepAssigner interface {
	AssignCluster(ctx context.Context, cluster *domain.PhotoCluster) (stepID string, err error)
	NotifyDwell(ctx context.Context, dwell *domain.DwellEvent) error
}

// EventPublisher publishes journal events to a message broker.
type EventPublisher interface {
	PublishFix(ctx context.Context, fix *domain.LocationFix) error
	PublishDwell(ctx context.Context, dwell *domain.DwellEvent) error
	PublishCluster(ctx context.Context, cluster *domain.PhotoCluster) error
}

// CacheService provides read-through caching.
type CacheService interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttlSeconds int) error
	Delete(ctx context.Context, key string) error
}
