package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/fiber/v2/middleware/timeout"
	"github.com/gofiber/websocket/v2"

	"github.com/mbeltza/tripscribe/internal/pkg/metrics"
)

// SetupRoutes registers all REST, GraphQL, and WebSocket routes.
func SetupRoutes(app *fiber.App, deps *Dependencies) {
	// Prometheus metrics
	app.Use(metrics.Middleware())
	app.Get("/metrics", metrics.Handler())

	// Response compression (gzip)
	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))

	// Request ID
	app.Use(requestid.New())

	// Propagate request ID into slog context
	app.Use(RequestIDLogMiddleware())

	// Access logs (structured HTTP request logging)
	app.Use(AccessLogMiddleware())

	// Rate limiting: 240 requests per minute per IP. Device fix pushes
	// arrive at most every 30s, so this leaves plenty of headroom.
	app.Use(limiter.New(limiter.Config{
		Max:        240,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(429).JSON(fiber.Map{
				"error":   "rate limit exceeded",
				"message": "too many requests, please try again later",
			})
		},
		SkipFailedRequests: false,
	}))

	// Security headers + API version
	app.Use(func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		c.Set("X-XSS-Protection", "1; mode=block")
		c.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Set("X-API-Version", "1.0.0")
		return c.Next()
	})

	// ETag for conditional caching
	app.Use(ETagMiddleware())

	// Default Cache-Control headers
	app.Use(CachingMiddleware())

	// Health & readiness, no timeout
	app.Get("/v1/health", HealthHandler(deps))
	app.Get("/v1/ready", ReadyHandler(deps))

	// REST API v1, 15s per-request timeout
	v1 := app.Group("/v1")

	// Tracking session lifecycle
	v1.Post("/sessions", timeout.NewWithContext(StartSessionHandler(deps), 15*time.Second))
	v1.Delete("/sessions", timeout.NewWithContext(StopSessionHandler(deps), 15*time.Second))
	v1.Post("/sessions/pause", timeout.NewWithContext(PauseSessionHandler(deps), 15*time.Second))
	v1.Post("/sessions/resume", timeout.NewWithContext(ResumeSessionHandler(deps), 15*time.Second))
	v1.Get("/sessions", timeout.NewWithContext(GetSessionHandler(deps), 15*time.Second))

	// Device fix push
	v1.Post("/fixes", timeout.NewWithContext(PushFixHandler(deps), 15*time.Second))

	// Trips and their journal data
	v1.Post("/trips", timeout.NewWithContext(CreateTripHandler(deps), 15*time.Second))
	v1.Get("/trips", timeout.NewWithContext(ListTripsHandler(deps), 15*time.Second))
	v1.Get("/trips/:id", timeout.NewWithContext(GetTripHandler(deps), 15*time.Second))
	v1.Get("/trips/:id/fixes", timeout.NewWithContext(TripFixesHandler(deps), 15*time.Second))
	v1.Get("/trips/:id/dwells", timeout.NewWithContext(TripDwellsHandler(deps), 15*time.Second))

	// Photo curation
	v1.Post("/trips/:id/photos", timeout.NewWithContext(AddPhotosHandler(deps), 15*time.Second))
	v1.Post("/trips/:id/curate", timeout.NewWithContext(CurateTripHandler(deps), 30*time.Second))
	v1.Get("/trips/:id/clusters", timeout.NewWithContext(TripClustersHandler(deps), 15*time.Second))
	v1.Get("/trips/:id/steps", timeout.NewWithContext(TripStepsHandler(deps), 15*time.Second))

	// GraphQL
	app.Post("/graphql", GraphQLHandler(deps))

	// WebSocket
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws", websocket.New(WebSocketHandler(deps.NATS)))
}
