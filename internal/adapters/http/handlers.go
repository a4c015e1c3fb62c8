package http

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/mbeltza/tripscribe/internal/core/domain"
)

// startSessionRequest is the body for POST /v1/sessions.
type startSessionRequest struct {
	TripID string `json:"trip_id"`
}

// StartSessionHandler begins tracking for a trip.
func StartSessionHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req startSessionRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid JSON body")
		}
		if req.TripID == "" {
			return errBadRequest(c, "trip_id is required")
		}

		err := deps.Tracker.Start(c.Context(), req.TripID)
		switch {
		case errors.Is(err, domain.ErrPermissionDenied):
			return errForbidden(c, "location permission not granted")
		case errors.Is(err, domain.ErrSessionExists):
			return errConflict(c, "a tracking session is already running")
		case err != nil:
			return errBadRequest(c, err.Error())
		}

		return c.Status(fiber.StatusCreated).JSON(deps.Tracker.Session())
	}
}

// StopSessionHandler ends the running session, flushing buffered fixes.
func StopSessionHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		err := deps.Tracker.Stop(c.Context())
		switch {
		case errors.Is(err, domain.ErrNoActiveSession):
			return errNotFound(c, "no tracking session")
		case errors.Is(err, domain.ErrFlushIncomplete):
			// The session is stopped; the caller should know some fixes
			// are still waiting for connectivity.
			return c.JSON(fiber.Map{
				"status":        "stopped",
				"flush_pending": deps.Tracker.PendingFixes(),
			})
		case err != nil:
			return errInternal(c, err.Error())
		}
		return c.JSON(fiber.Map{"status": "stopped", "flush_pending": 0})
	}
}

// PauseSessionHandler suspends sampling.
func PauseSessionHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := deps.Tracker.Pause(); err != nil {
			if errors.Is(err, domain.ErrNoActiveSession) {
				return errNotFound(c, "no tracking session")
			}
			return errInternal(c, err.Error())
		}
		return c.JSON(deps.Tracker.Session())
	}
}

// ResumeSessionHandler re-activates a paused session.
func ResumeSessionHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := deps.Tracker.Resume(); err != nil {
			if errors.Is(err, domain.ErrNoActiveSession) {
				return errNotFound(c, "no tracking session")
			}
			return errInternal(c, err.Error())
		}
		return c.JSON(deps.Tracker.Session())
	}
}

// GetSessionHandler returns the live session state.
func GetSessionHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		session := deps.Tracker.Session()
		if session == nil {
			return errNotFound(c, "no tracking session")
		}
		return c.JSON(fiber.Map{
			"session":       session,
			"next_interval": deps.Tracker.NextInterval().String(),
			"flush_pending": deps.Tracker.PendingFixes(),
		})
	}
}

// PushFixHandler ingests one raw device sample. Pushed samples go
// straight to the tracker; the device source stays reserved for
// timer-driven polling so a sample is never processed twice.
func PushFixHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var raw domain.RawSample
		if err := c.BodyParser(&raw); err != nil {
			return errBadRequest(c, "invalid JSON body")
		}

		fix, err := deps.Tracker.Ingest(c.Context(), &raw)
		switch {
		case errors.Is(err, domain.ErrNoActiveSession):
			return errConflict(c, "no active tracking session")
		case errors.Is(err, domain.ErrInvalidCoordinate):
			return errBadRequest(c, "coordinates out of range")
		case err != nil:
			var exhausted *domain.RetryExhaustedError
			if errors.As(err, &exhausted) {
				return newError(c, fiber.StatusServiceUnavailable,
					"buffer_full", "fix buffer full and journal unreachable")
			}
			return errInternal(c, err.Error())
		}

		return c.Status(fiber.StatusCreated).JSON(fix)
	}
}

// createTripRequest is the body for POST /v1/trips.
type createTripRequest struct {
	Title     string     `json:"title"`
	StartedAt *time.Time `json:"started_at,omitempty"`
}

// CreateTripHandler creates a journal trip.
func CreateTripHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req createTripRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid JSON body")
		}
		if req.Title == "" {
			return errBadRequest(c, "title is required")
		}

		startedAt := time.Now().UTC()
		if req.StartedAt != nil {
			startedAt = *req.StartedAt
		}
		trip := &domain.Trip{
			ID:        uuid.NewString(),
			Title:     req.Title,
			StartedAt: startedAt,
		}
		if err := deps.Trips.Create(c.Context(), trip); err != nil {
			return errInternal(c, err.Error())
		}
		return c.Status(fiber.StatusCreated).JSON(trip)
	}
}

// ListTripsHandler returns all trips, paginated.
func ListTripsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		trips, err := deps.Trips.List(c.Context())
		if err != nil {
			return errInternal(c, err.Error())
		}

		offset := c.QueryInt("offset", 0)
		limit := c.QueryInt("limit", 100)
		if offset < 0 {
			offset = 0
		}
		if limit <= 0 || limit > 200 {
			limit = 100
		}

		total := len(trips)
		if offset >= total {
			trips = nil
		} else {
			end := offset + limit
			if end > total {
				end = total
			}
			trips = trips[offset:end]
		}

		pg := Pagination{Offset: offset, Limit: limit, Total: total}
		SetLinkHeaders(c, pg)
		return c.JSON(PaginatedResponse{Data: trips, Pagination: pg})
	}
}

// GetTripHandler returns a single trip by ID.
func GetTripHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		trip, err := deps.Trips.GetByID(c.Context(), id)
		if err != nil {
			return errNotFound(c, "trip not found")
		}
		return c.JSON(trip)
	}
}

// TripFixesHandler returns a trip's recorded fixes in a time range.
func TripFixesHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tripID := c.Params("id")
		limit := c.QueryInt("limit", 1000)
		if limit <= 0 || limit > 5000 {
			limit = 1000
		}

		from := time.Time{}
		to := time.Now().UTC()
		if v := c.Query("from"); v != "" {
			t, err := time.Parse(time.RFC3339, v)
			if err != nil {
				return errBadRequest(c, "from must be RFC3339")
			}
			from = t
		}
		if v := c.Query("to"); v != "" {
			t, err := time.Parse(time.RFC3339, v)
			if err != nil {
				return errBadRequest(c, "to must be RFC3339")
			}
			to = t
		}

		fixes, err := deps.Fixes.ListByTrip(c.Context(), tripID, from, to, limit)
		if err != nil {
			return errInternal(c, err.Error())
		}
		c.Set("Cache-Control", "public, max-age=60")
		return c.JSON(fixes)
	}
}

// TripDwellsHandler returns a trip's confirmed dwell events.
func TripDwellsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		dwells, err := deps.Dwells.ListByTrip(c.Context(), c.Params("id"))
		if err != nil {
			return errInternal(c, err.Error())
		}
		return c.JSON(dwells)
	}
}

// AddPhotosHandler stores scored photo metadata for a trip.
func AddPhotosHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var photos []domain.PhotoRecord
		if err := c.BodyParser(&photos); err != nil {
			return errBadRequest(c, "invalid JSON body")
		}
		if len(photos) == 0 {
			return errBadRequest(c, "at least one photo is required")
		}

		err := deps.Curation.AddPhotos(c.Context(), c.Params("id"), photos)
		if err != nil {
			if errors.Is(err, domain.ErrInvalidCoordinate) {
				return errBadRequest(c, err.Error())
			}
			return errInternal(c, err.Error())
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"stored": len(photos)})
	}
}

// CurateTripHandler rebuilds a trip's photo clusters.
func CurateTripHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		clusters, err := deps.Curation.CurateTrip(c.Context(), c.Params("id"))
		if err != nil {
			return errInternal(c, err.Error())
		}
		return c.JSON(fiber.Map{"clusters": clusters, "count": len(clusters)})
	}
}

// TripClustersHandler returns a trip's stored clusters.
func TripClustersHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		clusters, err := deps.Curation.ClustersByTrip(c.Context(), c.Params("id"))
		if err != nil {
			return errInternal(c, err.Error())
		}
		c.Set("Cache-Control", "public, max-age=60")
		return c.JSON(clusters)
	}
}

// stepView is the per-cluster journal step payload.
type stepView struct {
	ClusterID string               `json:"cluster_id"`
	StepID    *string              `json:"step_id,omitempty"`
	Center    domain.GeoPoint      `json:"center"`
	StartTime time.Time            `json:"start_time"`
	EndTime   time.Time            `json:"end_time"`
	Photos    []domain.PhotoRecord `json:"photos"`
	Featured  []domain.PhotoRecord `json:"featured"`
}

// TripStepsHandler renders clusters as journal steps: photos capped per
// step, featured picks on top.
func TripStepsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		clusters, err := deps.Curation.ClustersByTrip(c.Context(), c.Params("id"))
		if err != nil {
			return errInternal(c, err.Error())
		}

		steps := make([]stepView, 0, len(clusters))
		for i := range clusters {
			cluster := &clusters[i]
			capped, featured := deps.Curation.StepPhotos(cluster)
			steps = append(steps, stepView{
				ClusterID: cluster.ID,
				StepID:    cluster.AssignedStepID,
				Center:    cluster.CenterLocation,
				StartTime: cluster.StartTime,
				EndTime:   cluster.EndTime,
				Photos:    capped,
				Featured:  featured,
			})
		}
		return c.JSON(steps)
	}
}
