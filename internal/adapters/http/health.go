package http

import (
	"context"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
)

// HealthHandler returns a basic liveness check plus the tracker's flush
// backlog, so probes can spot a wedged journal without the full
// readiness round-trip.
func HealthHandler(deps *Dependencies) fiber.Handler {
	startedAt := time.Now()

	return func(c *fiber.Ctx) error {
		resp := fiber.Map{
			"status":  "healthy",
			"uptime":  time.Since(startedAt).String(),
			"version": "dev",
		}
		if deps.Tracker != nil {
			resp["pending_fixes"] = deps.Tracker.PendingFixes()
		}
		return c.JSON(resp)
	}
}

// ReadyHandler checks DB, NATS, cache connectivity, and the journal
// flush backlog.
func ReadyHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.Context(), 3*time.Second)
		defer cancel()

		checks := make(map[string]string)
		allOK := true

		// Database
		if deps.DB != nil {
			if err := deps.DB.Pool.Ping(ctx); err != nil {
				checks["database"] = "error: " + err.Error()
				allOK = false
			} else {
				checks["database"] = "ok"
			}
		} else {
			checks["database"] = "not configured"
			allOK = false
		}

		// NATS
		if deps.NATS != nil {
			if deps.NATS.IsConnected() {
				checks["nats"] = "ok"
			} else {
				checks["nats"] = "disconnected"
				allOK = false
			}
		} else {
			checks["nats"] = "not configured"
		}

		// Valkey cache
		if deps.Cache != nil {
			_, err := deps.Cache.Get(ctx, "__health_check__")
			// "valkey nil message" is expected for a missing key
			if err != nil && err.Error() != "valkey nil message" {
				checks["cache"] = "error: " + err.Error()
				allOK = false
			} else {
				checks["cache"] = "ok"
			}
		} else {
			checks["cache"] = "not configured"
		}

		// Device location capability. Informational only: a revoked
		// grant blocks new sessions but the API itself is fine.
		if deps.Device != nil {
			if deps.Device.HasPermission(ctx) {
				checks["device"] = "ok"
			} else {
				checks["device"] = "location permission revoked"
			}
		}

		// Journal flush backlog. Pending fixes are normal while the sink
		// retries; they only gate readiness once the buffer is full and
		// pushes start bouncing.
		if deps.Tracker != nil {
			if pending := deps.Tracker.PendingFixes(); pending > 0 {
				checks["journal"] = fmt.Sprintf("flushing: %d pending fixes", pending)
			} else {
				checks["journal"] = "ok"
			}
		}

		status := "ready"
		code := 200
		if !allOK {
			status = "not ready"
			code = 503
		}

		return c.Status(code).JSON(fiber.Map{
			"status": status,
			"checks": checks,
		})
	}
}
