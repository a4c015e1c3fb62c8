package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/mbeltza/tripscribe/internal/adapters/device"
	"github.com/mbeltza/tripscribe/internal/adapters/http"
	natsadapter "github.com/mbeltza/tripscribe/internal/adapters/nats"
	"github.com/mbeltza/tripscribe/internal/adapters/postgres"
	"github.com/mbeltza/tripscribe/internal/adapters/valkey"
	"github.com/mbeltza/tripscribe/internal/core/domain"
	"github.com/mbeltza/tripscribe/internal/core/ports"
	"github.com/mbeltza/tripscribe/internal/core/usecases"
	"github.com/mbeltza/tripscribe/internal/pkg/config"
	"github.com/mbeltza/tripscribe/internal/pkg/logging"
	"github.com/mbeltza/tripscribe/internal/pkg/metrics"
	"github.com/mbeltza/tripscribe/internal/pkg/retry"
	"github.com/mbeltza/tripscribe/internal/pkg/telemetry"
)

func main() {
	cfg, err := config.Load("tripscribe-api")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	// Structured logging
	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}
	logging.Setup(logLevel, "json")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Telemetry
	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.TempoAddr)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown()
		}
	}

	// Database
	db, err := postgres.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	// Cache
	cache, err := valkey.New(cfg.Valkey.Addr)
	if err != nil {
		slog.Warn("valkey unavailable", "error", err)
	} else {
		defer cache.Close()
	}

	// NATS
	publisher, err := natsadapter.NewPublisher(cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats unavailable", "error", err)
	} else {
		defer publisher.Close()
	}

	// Raw NATS connection for WebSocket relay
	natsConn, err := natsadapter.RawConn(cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats ws conn unavailable", "error", err)
	}

	// Repos
	tripRepo := postgres.NewTripRepo(db)
	fixRepo := postgres.NewFixRepo(db)
	photoRepo := postgres.NewPhotoRepo(db)
	clusterRepo := postgres.NewClusterRepo(db)
	dwellRepo := postgres.NewDwellRepo(db)
	journal := postgres.NewJournalSink(fixRepo)

	retrier := retry.New(cfg.Retry.MaxRetries, cfg.Retry.BaseDelay())

	// Optional collaborators degrade to nil when their backend is down
	var pub ports.EventPublisher
	if publisher != nil {
		pub = publisher
	}
	var cacheSvc ports.CacheService
	if cache != nil {
		cacheSvc = cache
	}

	// Use cases
	source := device.NewSource()
	tracker := usecases.NewTracker(cfg.Tracking, source, journal, retrier,
		pub, nil, dwellRepo, cacheSvc)
	curation := usecases.NewCurationService(photoRepo, clusterRepo,
		usecases.NewClusterEngine(cfg.Curation), usecases.NewQualityGate(cfg.Curation),
		retrier, nil, pub, cacheSvc)

	deps := &http.Dependencies{
		Tracker:  tracker,
		Curation: curation,
		Trips:    tripRepo,
		Fixes:    fixRepo,
		Dwells:   dwellRepo,
		Device:   source,
		NATS:     natsConn,
		DB:       db,
		Cache:    cache,
	}

	// Fiber
	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    1024 * 1024, // 1 MB max request body
		AppName:      "TripScribe API",
	})
	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     "http://localhost:3000, http://localhost:5173, https://*.tripscribe.app",
		AllowMethods:     "GET,POST,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: false,
		MaxAge:           3600,
	}))

	http.SetupRoutes(app, deps)

	// Database pool gauges
	go func() {
		ticker := time.NewTicker(15 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				metrics.UpdateDBPoolMetrics(db.Pool.Stat())
			}
		}
	}()

	// Graceful shutdown
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		slog.Info("API server starting", "addr", addr)
		if err := app.Listen(addr); err != nil {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	slog.Info("shutdown signal received, draining connections...", "signal", sig.String())

	// Stop the tracker first so buffered fixes get a flush opportunity
	if err := tracker.Stop(ctx); err != nil && !errors.Is(err, domain.ErrNoActiveSession) {
		slog.Warn("tracker stop", "error", err)
	}

	// Give in-flight requests up to 10s to complete
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "error", err)
	}

	slog.Info("server stopped")
}
