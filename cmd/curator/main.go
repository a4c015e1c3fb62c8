package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"

	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"

	natsadapter "github.com/mbeltza/tripscribe/internal/adapters/nats"
	"github.com/mbeltza/tripscribe/internal/adapters/postgres"
	"github.com/mbeltza/tripscribe/internal/core/domain"
	"github.com/mbeltza/tripscribe/internal/core/ports"
	"github.com/mbeltza/tripscribe/internal/core/usecases"
	"github.com/mbeltza/tripscribe/internal/pkg/config"
	"github.com/mbeltza/tripscribe/internal/pkg/logging"
	"github.com/mbeltza/tripscribe/internal/pkg/retry"
	"github.com/mbeltza/tripscribe/internal/workflows"
)

func main() {
	cfg, err := config.Load("tripscribe-curator")
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}
	logging.Setup(logLevel, "json")

	ctx := context.Background()

	db, err := postgres.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	publisher, err := natsadapter.NewPublisher(cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats unavailable", "error", err)
	} else {
		defer publisher.Close()
	}
	var pub ports.EventPublisher
	if publisher != nil {
		pub = publisher
	}

	photoRepo := postgres.NewPhotoRepo(db)
	clusterRepo := postgres.NewClusterRepo(db)
	retrier := retry.New(cfg.Retry.MaxRetries, cfg.Retry.BaseDelay())

	curation := usecases.NewCurationService(photoRepo, clusterRepo,
		usecases.NewClusterEngine(cfg.Curation), usecases.NewQualityGate(cfg.Curation),
		retrier, nil, nil, nil)

	// Connect to Temporal
	c, err := client.Dial(client.Options{
		HostPort: cfg.Temporal.HostPort,
	})
	if err != nil {
		log.Fatalf("temporal client: %v", err)
	}
	defer c.Close()

	// Confirmed dwells trigger a re-curation of their trip. The workflow
	// ID folds in the dwell start so repeat deliveries of the same event
	// dedupe instead of stacking runs.
	subscriber, err := natsadapter.NewSubscriber(cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats subscriber unavailable", "error", err)
	} else {
		defer subscriber.Close()
		err = subscriber.SubscribeDwells(ctx, func(ctx context.Context, dwell *domain.DwellEvent) error {
			_, err := c.ExecuteWorkflow(ctx, client.StartWorkflowOptions{
				ID:        fmt.Sprintf("curation-%s-%d", dwell.TripID, dwell.StartedAt.Unix()),
				TaskQueue: cfg.Temporal.TaskQueue,
			}, workflows.CurationWorkflow, workflows.CurationInput{TripID: dwell.TripID})
			return err
		})
		if err != nil {
			slog.Warn("dwell subscription failed", "error", err)
		}
	}

	w := worker.New(c, cfg.Temporal.TaskQueue, worker.Options{})

	// Register workflow & activities
	w.RegisterWorkflow(workflows.CurationWorkflow)
	w.RegisterActivity(&workflows.CurationActivities{
		CurationService: curation,
		Clusters:        clusterRepo,
		Publisher:       pub,
	})

	log.Println("curator worker started")
	if err := w.Run(worker.InterruptCh()); err != nil {
		log.Fatalf("worker: %v", err)
	}
}
