package workflows

import (
	"context"
	"fmt"
	"log"

	"github.com/mbeltza/tripscribe/internal/core/ports"
	"github.com/mbeltza/tripscribe/internal/core/usecases"
)

// CurationActivities holds the activity implementations for the curation workflow.
type CurationActivities struct {
	CurationService *usecases.CurationService
	Clusters        ports.ClusterRepository
	Publisher       ports.EventPublisher
}

// CurateTrip rebuilds the trip's clusters and returns how many were built.
func (a *CurationActivities) CurateTrip(ctx context.Context, tripID string) (int, error) {
	clusters, err := a.CurationService.CurateTrip(ctx, tripID)
	if err != nil {
		return 0, fmt.Errorf("curate trip %s: %w", tripID, err)
	}
	return len(clusters), nil
}

// PublishCurationSummary announces the finished curation on the event bus.
func (a *CurationActivities) PublishCurationSummary(ctx context.Context, tripID string, count int) error {
	if a.Publisher == nil {
		log.Printf("curated trip %s: %d clusters (no publisher configured)", tripID, count)
		return nil
	}
	clusters, err := a.Clusters.ListByTrip(ctx, tripID)
	if err != nil {
		return fmt.Errorf("list clusters %s: %w", tripID, err)
	}
	for i := range clusters {
		if err := a.Publisher.PublishCluster(ctx, &clusters[i]); err != nil {
			return fmt.Errorf("publish cluster %s: %w", clusters[i].ID, err)
		}
	}
	return nil
}

// RollbackClusters removes the trip's clusters (saga compensation / rollback).
func (a *CurationActivities) RollbackClusters(ctx context.Context, tripID string) error {
	if err := a.Clusters.DeleteByTrip(ctx, tripID); err != nil {
		return fmt.Errorf("rollback clusters %s: %w", tripID, err)
	}
	log.Printf("Clusters for trip %s deleted (saga compensation)", tripID)
	return nil
}
