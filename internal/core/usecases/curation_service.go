package usecases

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/mbeltza/tripscribe/internal/core/domain"
	"github.com/mbeltza/tripscribe/internal/core/ports"
	"github.com/mbeltza/tripscribe/internal/pkg/metrics"
	"github.com/mbeltza/tripscribe/internal/pkg/retry"
)

// CurationService turns a trip's scored photo metadata into curated,
// persisted clusters and hands them to the step-assignment collaborator.
// Invocations are independent and safe to run for different trips in
// parallel; each call is a pure function of the trip's photo set.
type CurationService struct {
	photos    ports.PhotoRepository
	clusters  ports.ClusterRepository
	engine    *ClusterEngine
	gate      *QualityGate
	assigner  ports.StepAssigner   // optional
	publisher ports.EventPublisher // optional
	cache     ports.CacheService   // optional
	retrier   *retry.Scheduler
}

// NewCurationService creates a CurationService. assigner, publisher, and
// cache may be nil.
func NewCurationService(
	photos ports.PhotoRepository,
	clusters ports.ClusterRepository,
	engine *ClusterEngine,
	gate *QualityGate,
	retrier *retry.Scheduler,
	assigner ports.StepAssigner,
	publisher ports.EventPublisher,
	cache ports.CacheService,
) *CurationService {
	return &CurationService{
		photos:    photos,
		clusters:  clusters,
		engine:    engine,
		gate:      gate,
		assigner:  assigner,
		publisher: publisher,
		cache:     cache,
		retrier:   retrier,
	}
}

// AddPhotos stores a batch of externally scored photo metadata for a
// trip. Scores arrive populated; nothing here computes them.
func (s *CurationService) AddPhotos(ctx context.Context, tripID string, photos []domain.PhotoRecord) error {
	if len(photos) == 0 {
		return nil
	}
	for i := range photos {
		photos[i].TripID = tripID
		if photos[i].Location != nil && !photos[i].Location.Valid() {
			return fmt.Errorf("photo %s: %w", photos[i].ID, domain.ErrInvalidCoordinate)
		}
	}
	if err := s.photos.UpsertBatch(ctx, photos); err != nil {
		return fmt.Errorf("store photos: %w", err)
	}
	metrics.PhotosIngested.Add(float64(len(photos)))
	if s.cache != nil {
		_ = s.cache.Delete(ctx, "clusters:"+tripID)
	}
	return nil
}

// CurateTrip rebuilds the trip's clusters from scratch: quality-gate the
// photo set, chain-cluster what survives, persist each cluster through
// the retry scheduler, and assign steps. Previous clusters for the trip
// are replaced so re-curation stays idempotent.
func (s *CurationService) CurateTrip(ctx context.Context, tripID string) ([]domain.PhotoCluster, error) {
	if tripID == "" {
		return nil, fmt.Errorf("trip id is required")
	}

	start := time.Now()
	defer func() { metrics.CurationDuration.Observe(time.Since(start).Seconds()) }()

	photos, err := s.photos.ListByTrip(ctx, tripID)
	if err != nil {
		return nil, fmt.Errorf("load photos: %w", err)
	}

	kept := s.gate.Filter(photos)
	clusters := s.engine.Cluster(kept, tripID)
	if len(clusters) == 0 {
		return nil, nil
	}

	if err := s.clusters.DeleteByTrip(ctx, tripID); err != nil {
		return nil, fmt.Errorf("clear previous clusters: %w", err)
	}

	for i := range clusters {
		cluster := &clusters[i]

		err := s.retrier.Execute(ctx, func(ctx context.Context) error {
			return s.clusters.Insert(ctx, cluster)
		})
		if err != nil {
			return nil, fmt.Errorf("persist cluster %s: %w", cluster.ID, err)
		}

		if s.assigner != nil {
			stepID, err := s.assigner.AssignCluster(ctx, cluster)
			if err != nil {
				slog.Warn("step assignment failed", "cluster_id", cluster.ID, "error", err)
			} else if stepID != "" {
				cluster.AssignedStepID = &stepID
				if err := s.clusters.AssignStep(ctx, cluster.ID, stepID); err != nil {
					slog.Warn("step reassignment persist failed",
						"cluster_id", cluster.ID, "error", err)
				}
			}
		}

		if s.publisher != nil {
			_ = s.publisher.PublishCluster(ctx, cluster)
		}
	}

	if s.cache != nil {
		if data, err := json.Marshal(clusters); err == nil {
			_ = s.cache.Set(ctx, "clusters:"+tripID, data, 600)
		}
	}

	metrics.ClustersBuilt.Add(float64(len(clusters)))
	slog.Info("trip curated", "trip_id", tripID,
		"photos", len(photos), "kept", len(kept), "clusters", len(clusters))
	return clusters, nil
}

// ClustersByTrip returns the stored clusters, cached for ten minutes.
func (s *CurationService) ClustersByTrip(ctx context.Context, tripID string) ([]domain.PhotoCluster, error) {
	cacheKey := "clusters:" + tripID
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, cacheKey); err == nil {
			var clusters []domain.PhotoCluster
			if err := json.Unmarshal(data, &clusters); err == nil {
				metrics.CacheHits.WithLabelValues("clusters").Inc()
				return clusters, nil
			}
		}
		metrics.CacheMisses.WithLabelValues("clusters").Inc()
	}

	clusters, err := s.clusters.ListByTrip(ctx, tripID)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if data, err := json.Marshal(clusters); err == nil {
			_ = s.cache.Set(ctx, cacheKey, data, 600)
		}
	}
	return clusters, nil
}

// StepPhotos returns a cluster's photos capped to the per-step maximum,
// chronological order preserved, plus the featured subset.
func (s *CurationService) StepPhotos(cluster *domain.PhotoCluster) (capped, featured []domain.PhotoRecord) {
	capped = s.gate.CapPerStep(cluster.Photos)
	featured = s.gate.SelectFeatured(cluster.Photos, 0)
	return capped, featured
}
