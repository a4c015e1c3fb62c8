package usecases

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/mbeltza/tripscribe/internal/core/domain"
	"github.com/mbeltza/tripscribe/internal/core/ports"
	"github.com/mbeltza/tripscribe/internal/pkg/config"
	"github.com/mbeltza/tripscribe/internal/pkg/geospatial"
	"github.com/mbeltza/tripscribe/internal/pkg/metrics"
	"github.com/mbeltza/tripscribe/internal/pkg/retry"
)

// Tracker owns the tracking lifecycle state machine, the adaptive
// sampling cadence, and the fix ingest pipeline for one tracking session
// at a time. Session state is mutated only under the tracker's own lock:
// the timer loop, device pushes, and control transitions all serialize
// through it, which makes cancellation on Pause/Stop race-free against an
// in-flight tick.
type Tracker struct {
	mu sync.Mutex

	cfg       config.TrackingConfig
	provider  ports.LocationProvider
	sink      ports.JournalSink
	publisher ports.EventPublisher  // optional
	assigner  ports.StepAssigner    // optional
	dwells    ports.DwellRepository // optional
	cache     ports.CacheService    // optional
	retrier   *retry.Scheduler

	now func() time.Time

	session *domain.TrackingSession
	pending []domain.LocationFix

	// dwell candidate state
	dwellAnchor     *domain.GeoPoint
	stationarySince *time.Time
	dwellNotified   bool

	// last position published to the event bus (displacement throttle)
	lastPublished *domain.GeoPoint

	loopCancel context.CancelFunc
	loopDone   chan struct{}
}

// NewTracker creates a Tracker. publisher, assigner, dwells, and cache
// may be nil; the sink and retrier are required.
func NewTracker(
	cfg config.TrackingConfig,
	provider ports.LocationProvider,
	sink ports.JournalSink,
	retrier *retry.Scheduler,
	publisher ports.EventPublisher,
	assigner ports.StepAssigner,
	dwells ports.DwellRepository,
	cache ports.CacheService,
) *Tracker {
	return &Tracker{
		cfg:       cfg,
		provider:  provider,
		sink:      sink,
		publisher: publisher,
		assigner:  assigner,
		dwells:    dwells,
		cache:     cache,
		retrier:   retrier,
		now:       time.Now,
	}
}

// Start transitions Stopped -> Active for the given trip. Fails with
// domain.ErrPermissionDenied when the location capability is not granted;
// the lifecycle stays Stopped in that case.
func (t *Tracker) Start(ctx context.Context, tripID string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.session != nil && t.session.Lifecycle != domain.SessionStopped {
		return domain.ErrSessionExists
	}
	if tripID == "" {
		return fmt.Errorf("trip id is required")
	}
	if !t.provider.HasPermission(ctx) {
		return domain.ErrPermissionDenied
	}

	t.session = &domain.TrackingSession{
		TripID:          tripID,
		Lifecycle:       domain.SessionActive,
		CurrentActivity: domain.MotionStationary,
		StartedAt:       t.now(),
	}
	t.resetDwellLocked()
	t.lastPublished = nil

	loopCtx, cancel := context.WithCancel(context.Background())
	t.loopCancel = cancel
	t.loopDone = make(chan struct{})
	go t.run(loopCtx)

	slog.Info("tracking session started", "trip_id", tripID)
	return nil
}

// Pause suspends sampling while preserving lastFix and currentActivity.
func (t *Tracker) Pause() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.session == nil || t.session.Lifecycle == domain.SessionStopped {
		return domain.ErrNoActiveSession
	}
	t.session.Lifecycle = domain.SessionPaused
	slog.Info("tracking session paused", "trip_id", t.session.TripID)
	return nil
}

// Resume re-activates a paused session.
func (t *Tracker) Resume() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.session == nil || t.session.Lifecycle == domain.SessionStopped {
		return domain.ErrNoActiveSession
	}
	t.session.Lifecycle = domain.SessionActive
	slog.Info("tracking session resumed", "trip_id", t.session.TripID)
	return nil
}

// Stop cancels the timer loop, flushes pending fixes through the retry
// scheduler bounded by the flush timeout, and destroys the session. When
// the flush cannot drain in time the session still stops and
// domain.ErrFlushIncomplete is returned as a warning; the remaining fixes
// stay buffered for the next session's flush opportunity.
func (t *Tracker) Stop(ctx context.Context) error {
	t.mu.Lock()
	if t.session == nil || t.session.Lifecycle == domain.SessionStopped {
		t.mu.Unlock()
		return domain.ErrNoActiveSession
	}
	// An in-flight tick that grabs the lock after this sees Stopped and
	// no-ops.
	t.session.Lifecycle = domain.SessionStopped
	tripID := t.session.TripID
	cancel, done := t.loopCancel, t.loopDone
	t.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	flushCtx, cancelFlush := context.WithTimeout(ctx, t.cfg.StopFlushTimeout())
	defer cancelFlush()
	t.flushLocked(flushCtx)

	remaining := len(t.pending)
	t.session = nil
	t.resetDwellLocked()
	t.loopCancel = nil
	t.loopDone = nil

	if t.cache != nil {
		_ = t.cache.Delete(ctx, "session:"+tripID)
	}

	if remaining > 0 {
		slog.Warn("tracking session stopped with unsynced fixes",
			"trip_id", tripID, "pending", remaining)
		return domain.ErrFlushIncomplete
	}
	slog.Info("tracking session stopped", "trip_id", tripID)
	return nil
}

// Session returns a snapshot of the live session, or nil when stopped.
func (t *Tracker) Session() *domain.TrackingSession {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.session == nil {
		return nil
	}
	snapshot := *t.session
	return &snapshot
}

// PendingFixes returns the number of buffered, un-synced fixes.
func (t *Tracker) PendingFixes() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.pending)
}

// NextInterval returns the sampling interval implied by the current
// activity. Battery saver forces the stationary interval once the last
// reported battery level drops under the threshold, trading sampling
// density for battery life.
func (t *Tracker) NextInterval() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.nextIntervalLocked()
}

func (t *Tracker) nextIntervalLocked() time.Duration {
	if t.session == nil {
		return t.cfg.StationaryInterval()
	}
	if t.session.LastFix != nil && t.session.LastFix.BatteryLevel != nil &&
		*t.session.LastFix.BatteryLevel < t.cfg.BatterySaverThreshold {
		return t.cfg.StationaryInterval()
	}
	if t.session.CurrentActivity == domain.MotionStationary {
		return t.cfg.StationaryInterval()
	}
	return t.cfg.ActiveInterval()
}

// run is the single timer-driven loop for the session. Each wake-up,
// while Active, performs one capture -> classify -> ingest cycle and then
// re-arms the timer at the recomputed interval.
func (t *Tracker) run(ctx context.Context) {
	defer close(t.loopDone)

	timer := time.NewTimer(t.NextInterval())
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			t.Tick(ctx)
			timer.Reset(t.NextInterval())
		}
	}
}

// Tick performs one sampling cycle: pull a sample from the location
// capability and run it through the ingest pipeline. No-ops unless the
// session is Active.
func (t *Tracker) Tick(ctx context.Context) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.session == nil || t.session.Lifecycle != domain.SessionActive {
		return
	}
	if !t.provider.HasPermission(ctx) {
		slog.Warn("sampling tick skipped: location permission revoked",
			"trip_id", t.session.TripID)
		return
	}

	raw, err := t.provider.CurrentFix(ctx)
	if err != nil {
		slog.Warn("location capability error", "error", err)
		return
	}
	if raw == nil {
		return
	}

	if _, err := t.ingestLocked(ctx, raw); err != nil {
		slog.Warn("tick ingest failed", "error", err)
	}
}

// Ingest runs one raw device sample through the pipeline: validate,
// compute speed against the previous fix, classify, update the session,
// and enqueue for the sink. Fixes are processed in arrival order and are
// never dropped silently; a full buffer forces a retried flush of the
// oldest fix before the new one is accepted.
func (t *Tracker) Ingest(ctx context.Context, raw *domain.RawSample) (*domain.LocationFix, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.ingestLocked(ctx, raw)
}

func (t *Tracker) ingestLocked(ctx context.Context, raw *domain.RawSample) (*domain.LocationFix, error) {
	if t.session == nil || t.session.Lifecycle != domain.SessionActive {
		return nil, domain.ErrNoActiveSession
	}
	if !raw.Point.Valid() {
		slog.Warn("fix discarded: invalid coordinates",
			"lat", raw.Point.Lat, "lon", raw.Point.Lon)
		metrics.FixesRejected.WithLabelValues("invalid_coordinate").Inc()
		return nil, domain.ErrInvalidCoordinate
	}

	sampleTime := raw.Time
	if sampleTime.IsZero() {
		sampleTime = t.now()
	}

	speed := 0.0
	if prev := t.session.LastFix; prev != nil {
		speed = geospatial.SpeedMps(prev.Point, raw.Point, prev.Time, sampleTime)
	} else if raw.SpeedMps != nil {
		speed = *raw.SpeedMps
	}

	fix := domain.LocationFix{
		TripID:       t.session.TripID,
		Point:        raw.Point,
		Time:         sampleTime,
		AccuracyM:    raw.AccuracyM,
		AltitudeM:    raw.AltitudeM,
		SpeedMps:     speed,
		HeadingDeg:   raw.HeadingDeg,
		Activity:     ClassifySpeed(speed),
		BatteryLevel: raw.BatteryLevel,
	}

	// Backpressure: with a full buffer the oldest un-synced fix must be
	// flushed (with retries) before this one is accepted.
	if len(t.pending) >= t.cfg.PendingBufferSize {
		if err := t.retrier.Execute(ctx, func(ctx context.Context) error {
			return t.sink.AppendFix(ctx, &t.pending[0])
		}); err != nil {
			metrics.FixesRejected.WithLabelValues("buffer_full").Inc()
			return nil, fmt.Errorf("pending buffer full: %w", err)
		}
		t.pending = t.pending[1:]
	}

	t.pending = append(t.pending, fix)
	t.session.LastFix = &fix
	t.session.CurrentActivity = fix.Activity
	metrics.FixesIngested.WithLabelValues(string(fix.Activity)).Inc()

	t.updateDwellLocked(ctx, fix)
	t.flushLocked(ctx)
	t.publishLocked(ctx, fix)
	t.snapshotLocked(ctx)

	return &fix, nil
}

// flushLocked drains the pending buffer to the sink in strict arrival
// order. On the first failed append it stops and leaves the remainder
// buffered for the next opportunity.
func (t *Tracker) flushLocked(ctx context.Context) {
	defer func() { metrics.PendingFixes.Set(float64(len(t.pending))) }()

	for len(t.pending) > 0 {
		fix := t.pending[0]
		err := t.retrier.Execute(ctx, func(ctx context.Context) error {
			return t.sink.AppendFix(ctx, &fix)
		})
		if err != nil {
			slog.Warn("fix flush stalled", "pending", len(t.pending), "error", err)
			return
		}
		t.pending = t.pending[1:]
	}
}

// publishLocked emits a live fix event, throttled by displacement: the
// fix is always buffered and persisted, but the event bus only sees
// movements of at least MinDisplacementM.
func (t *Tracker) publishLocked(ctx context.Context, fix domain.LocationFix) {
	if t.publisher == nil {
		return
	}
	if t.lastPublished != nil &&
		geospatial.DistanceMeters(*t.lastPublished, fix.Point) < t.cfg.MinDisplacementM {
		return
	}
	if err := t.publisher.PublishFix(ctx, &fix); err != nil {
		slog.Warn("fix publish failed", "error", err)
		return
	}
	point := fix.Point
	t.lastPublished = &point
}

// updateDwellLocked advances the dwell candidate state. A candidate is
// anchored at the first stationary fix; moving past the stationary radius
// restarts it, any non-stationary classification clears it. The candidate
// becomes visible on the session after the short-stop threshold and is
// confirmed (and notified exactly once) after the minimum dwell.
func (t *Tracker) updateDwellLocked(ctx context.Context, fix domain.LocationFix) {
	if fix.Activity != domain.MotionStationary {
		t.resetDwellLocked()
		return
	}

	if t.dwellAnchor == nil {
		anchor := fix.Point
		since := fix.Time
		t.dwellAnchor = &anchor
		t.stationarySince = &since
		return
	}

	if geospatial.DistanceMeters(*t.dwellAnchor, fix.Point) > t.cfg.StationaryRadiusM {
		anchor := fix.Point
		since := fix.Time
		t.dwellAnchor = &anchor
		t.stationarySince = &since
		t.dwellNotified = false
		t.session.DwellStartedAt = nil
		return
	}

	elapsed := fix.Time.Sub(*t.stationarySince)

	if elapsed >= t.cfg.ShortStop() && t.session.DwellStartedAt == nil {
		t.session.DwellStartedAt = t.stationarySince
	}

	if elapsed >= t.cfg.MinDwell() && !t.dwellNotified {
		t.dwellNotified = true
		metrics.DwellsConfirmed.Inc()
		dwell := domain.DwellEvent{
			TripID:    t.session.TripID,
			Center:    *t.dwellAnchor,
			StartedAt: *t.stationarySince,
			Duration:  elapsed,
		}
		slog.Info("dwell confirmed", "trip_id", dwell.TripID,
			"lat", dwell.Center.Lat, "lon", dwell.Center.Lon,
			"duration", dwell.Duration.String())

		if t.dwells != nil {
			if err := t.dwells.Insert(ctx, &dwell); err != nil {
				slog.Warn("dwell persist failed", "error", err)
			}
		}
		if t.assigner != nil {
			if err := t.assigner.NotifyDwell(ctx, &dwell); err != nil {
				slog.Warn("dwell notify failed", "error", err)
			}
		}
		if t.publisher != nil {
			_ = t.publisher.PublishDwell(ctx, &dwell)
		}
	}
}

func (t *Tracker) resetDwellLocked() {
	t.dwellAnchor = nil
	t.stationarySince = nil
	t.dwellNotified = false
	if t.session != nil {
		t.session.DwellStartedAt = nil
	}
}

// snapshotLocked caches the session state so read endpoints don't need
// the tracker lock. Best-effort.
func (t *Tracker) snapshotLocked(ctx context.Context) {
	if t.cache == nil || t.session == nil {
		return
	}
	if data, err := json.Marshal(t.session); err == nil {
		_ = t.cache.Set(ctx, "session:"+t.session.TripID, data, 3600)
	}
}
