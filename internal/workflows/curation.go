package workflows

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

// CurationInput is the input for the curation workflow.
type CurationInput struct {
	TripID string
}

// CurationWorkflow orchestrates a trip re-curation: rebuild the clusters,
// then announce them on the event bus. If the announcement fails the
// freshly built clusters are rolled back (saga compensation) so consumers
// never observe clusters that were not broadcast.
func CurationWorkflow(ctx workflow.Context, input CurationInput) error {
	logger := workflow.GetLogger(ctx)
	logger.Info("Starting curation workflow", "tripID", input.TripID)

	actOpts := workflow.ActivityOptions{
		StartToCloseTimeout: 60 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts: 3,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, actOpts)

	// Step 1: rebuild the clusters
	var count int
	err := workflow.ExecuteActivity(ctx, "CurateTrip", input.TripID).Get(ctx, &count)
	if err != nil {
		return err
	}
	if count == 0 {
		logger.Info("Nothing to curate", "tripID", input.TripID)
		return nil
	}

	// Step 2: broadcast the result
	err = workflow.ExecuteActivity(ctx, "PublishCurationSummary", input.TripID, count).Get(ctx, nil)
	if err != nil {
		logger.Warn("curation broadcast failed, compensating", "error", err)
		// Compensate: remove the clusters that were never announced
		_ = workflow.ExecuteActivity(ctx, "RollbackClusters", input.TripID).Get(ctx, nil)
		return err
	}

	logger.Info("Trip curated", "tripID", input.TripID, "clusters", count)
	return nil
}
