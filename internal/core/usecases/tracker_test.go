package usecases_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/mbeltza/tripscribe/internal/core/domain"
	"github.com/mbeltza/tripscribe/internal/core/ports"
	"github.com/mbeltza/tripscribe/internal/core/usecases"
	"github.com/mbeltza/tripscribe/internal/pkg/config"
	"github.com/mbeltza/tripscribe/internal/pkg/retry"
)

// --- Mocks ---

type mockProvider struct {
	permission bool
	sample     *domain.RawSample
	err        error
}

func (m *mockProvider) CurrentFix(ctx context.Context) (*domain.RawSample, error) {
	return m.sample, m.err
}
func (m *mockProvider) HasPermission(ctx context.Context) bool { return m.permission }

type mockSink struct {
	mu          sync.Mutex
	fixes       []domain.LocationFix
	appendFixFn func(ctx context.Context, fix *domain.LocationFix) error
}

func (m *mockSink) AppendFix(ctx context.Context, fix *domain.LocationFix) error {
	if m.appendFixFn != nil {
		if err := m.appendFixFn(ctx, fix); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fixes = append(m.fixes, *fix)
	return nil
}

func (m *mockSink) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.fixes)
}

type mockAssigner struct {
	mu       sync.Mutex
	dwells   []domain.DwellEvent
	assignFn func(ctx context.Context, cluster *domain.PhotoCluster) (string, error)
}

func (m *mockAssigner) AssignCluster(ctx context.Context, cluster *domain.PhotoCluster) (string, error) {
	if m.assignFn != nil {
		return m.assignFn(ctx, cluster)
	}
	return "", nil
}

func (m *mockAssigner) NotifyDwell(ctx context.Context, dwell *domain.DwellEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dwells = append(m.dwells, *dwell)
	return nil
}

func (m *mockAssigner) dwellCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.dwells)
}

// --- Helpers ---

func testTrackingConfig() config.TrackingConfig {
	return config.TrackingConfig{
		ActiveIntervalMs:      30_000,
		StationaryIntervalMs:  600_000,
		MinDisplacementM:      25.0,
		StationaryRadiusM:     100.0,
		MinDwellMs:            1_800_000,
		ShortStopMs:           300_000,
		BatterySaverThreshold: 0.20,
		PendingBufferSize:     3,
		StopFlushTimeoutMs:    1_000,
	}
}

func newTestTracker(sink *mockSink, assigner *mockAssigner) *usecases.Tracker {
	provider := &mockProvider{permission: true}
	var stepAssigner ports.StepAssigner
	if assigner != nil {
		stepAssigner = assigner
	}
	return usecases.NewTracker(
		testTrackingConfig(), provider, sink,
		retry.New(0, time.Millisecond),
		nil, stepAssigner, nil, nil,
	)
}

func sampleAt(lat, lon float64, at time.Time) *domain.RawSample {
	return &domain.RawSample{Point: domain.GeoPoint{Lat: lat, Lon: lon}, Time: at}
}

// --- Tests ---

func TestTracker_StartWithoutPermission(t *testing.T) {
	provider := &mockProvider{permission: false}
	tracker := usecases.NewTracker(
		testTrackingConfig(), provider, &mockSink{},
		retry.New(0, time.Millisecond), nil, nil, nil, nil,
	)

	err := tracker.Start(context.Background(), "trip-1")
	if !errors.Is(err, domain.ErrPermissionDenied) {
		t.Fatalf("expected ErrPermissionDenied, got %v", err)
	}
	if tracker.Session() != nil {
		t.Error("session should not exist after a denied start")
	}
}

func TestTracker_Lifecycle(t *testing.T) {
	tracker := newTestTracker(&mockSink{}, nil)
	ctx := context.Background()

	if err := tracker.Resume(); !errors.Is(err, domain.ErrNoActiveSession) {
		t.Errorf("resume without session: expected ErrNoActiveSession, got %v", err)
	}
	if err := tracker.Pause(); !errors.Is(err, domain.ErrNoActiveSession) {
		t.Errorf("pause without session: expected ErrNoActiveSession, got %v", err)
	}

	if err := tracker.Start(ctx, "trip-1"); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := tracker.Start(ctx, "trip-2"); !errors.Is(err, domain.ErrSessionExists) {
		t.Errorf("double start: expected ErrSessionExists, got %v", err)
	}

	s := tracker.Session()
	if s == nil || s.Lifecycle != domain.SessionActive || s.TripID != "trip-1" {
		t.Fatalf("unexpected session after start: %+v", s)
	}

	if err := tracker.Pause(); err != nil {
		t.Fatalf("pause: %v", err)
	}
	if got := tracker.Session().Lifecycle; got != domain.SessionPaused {
		t.Errorf("expected paused, got %s", got)
	}

	if err := tracker.Resume(); err != nil {
		t.Fatalf("resume: %v", err)
	}
	if got := tracker.Session().Lifecycle; got != domain.SessionActive {
		t.Errorf("expected active, got %s", got)
	}

	if err := tracker.Stop(ctx); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if tracker.Session() != nil {
		t.Error("session should be destroyed after stop")
	}
	if err := tracker.Stop(ctx); !errors.Is(err, domain.ErrNoActiveSession) {
		t.Errorf("double stop: expected ErrNoActiveSession, got %v", err)
	}
}

func TestTracker_IngestClassifiesSpeed(t *testing.T) {
	sink := &mockSink{}
	tracker := newTestTracker(sink, nil)
	ctx := context.Background()

	if err := tracker.Start(ctx, "trip-1"); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer tracker.Stop(ctx)

	t0 := time.Date(2025, 7, 10, 9, 0, 0, 0, time.UTC)

	first, err := tracker.Ingest(ctx, sampleAt(43.2630, -2.9350, t0))
	if err != nil {
		t.Fatalf("first ingest: %v", err)
	}
	if first.SpeedMps != 0 || first.Activity != domain.MotionStationary {
		t.Errorf("first fix should be stationary with speed 0, got %f %s",
			first.SpeedMps, first.Activity)
	}

	// ~450 m north in 30 s -> ~15 m/s -> driving.
	second, err := tracker.Ingest(ctx, sampleAt(43.26705, -2.9350, t0.Add(30*time.Second)))
	if err != nil {
		t.Fatalf("second ingest: %v", err)
	}
	if second.Activity != domain.MotionDriving {
		t.Errorf("expected driving at ~15 m/s, got %s (speed %f)", second.Activity, second.SpeedMps)
	}
	if second.SpeedMps < 14 || second.SpeedMps > 16 {
		t.Errorf("expected ~15 m/s, got %f", second.SpeedMps)
	}

	if got := tracker.Session().CurrentActivity; got != domain.MotionDriving {
		t.Errorf("session activity not updated: %s", got)
	}

	// Interval policy: moving -> active interval.
	if got := tracker.NextInterval(); got != 30*time.Second {
		t.Errorf("expected 30s interval while driving, got %s", got)
	}
}

func TestTracker_IngestRejectsInvalidCoordinates(t *testing.T) {
	tracker := newTestTracker(&mockSink{}, nil)
	ctx := context.Background()

	if err := tracker.Start(ctx, "trip-1"); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer tracker.Stop(ctx)

	_, err := tracker.Ingest(ctx, sampleAt(91.0, 0, time.Now()))
	if !errors.Is(err, domain.ErrInvalidCoordinate) {
		t.Fatalf("expected ErrInvalidCoordinate, got %v", err)
	}
	if tracker.Session().LastFix != nil {
		t.Error("invalid fix must not touch the session")
	}
}

func TestTracker_IngestWithoutSession(t *testing.T) {
	tracker := newTestTracker(&mockSink{}, nil)

	_, err := tracker.Ingest(context.Background(), sampleAt(43.263, -2.935, time.Now()))
	if !errors.Is(err, domain.ErrNoActiveSession) {
		t.Fatalf("expected ErrNoActiveSession, got %v", err)
	}
}

func TestTracker_BatterySaverForcesStationaryInterval(t *testing.T) {
	tracker := newTestTracker(&mockSink{}, nil)
	ctx := context.Background()

	if err := tracker.Start(ctx, "trip-1"); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer tracker.Stop(ctx)

	t0 := time.Date(2025, 7, 10, 9, 0, 0, 0, time.UTC)
	low := 0.1

	if _, err := tracker.Ingest(ctx, sampleAt(43.2630, -2.9350, t0)); err != nil {
		t.Fatalf("ingest: %v", err)
	}
	fast := sampleAt(43.26705, -2.9350, t0.Add(30*time.Second))
	fast.BatteryLevel = &low
	fix, err := tracker.Ingest(ctx, fast)
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if fix.Activity != domain.MotionDriving {
		t.Fatalf("expected driving, got %s", fix.Activity)
	}

	// Driving would normally keep the 30s cadence; low battery wins.
	if got := tracker.NextInterval(); got != 600*time.Second {
		t.Errorf("expected stationary interval under battery saver, got %s", got)
	}
}

func TestTracker_DwellConfirmedOnce(t *testing.T) {
	assigner := &mockAssigner{}
	tracker := newTestTracker(&mockSink{}, assigner)
	ctx := context.Background()

	if err := tracker.Start(ctx, "trip-1"); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer tracker.Stop(ctx)

	t0 := time.Date(2025, 7, 10, 9, 0, 0, 0, time.UTC)
	at := func(d time.Duration) *domain.RawSample { return sampleAt(43.2630, -2.9350, t0.Add(d)) }

	if _, err := tracker.Ingest(ctx, at(0)); err != nil {
		t.Fatalf("ingest: %v", err)
	}

	// 10 minutes in: past the short-stop threshold, candidate visible.
	if _, err := tracker.Ingest(ctx, at(10*time.Minute)); err != nil {
		t.Fatalf("ingest: %v", err)
	}
	s := tracker.Session()
	if s.DwellStartedAt == nil || !s.DwellStartedAt.Equal(t0) {
		t.Fatalf("expected dwell candidate anchored at t0, got %v", s.DwellStartedAt)
	}
	if assigner.dwellCount() != 0 {
		t.Fatal("dwell must not be confirmed before the minimum dwell threshold")
	}

	// 31 minutes in: confirmed.
	if _, err := tracker.Ingest(ctx, at(31*time.Minute)); err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if assigner.dwellCount() != 1 {
		t.Fatalf("expected exactly 1 dwell notification, got %d", assigner.dwellCount())
	}
	dwell := assigner.dwells[0]
	if !dwell.StartedAt.Equal(t0) || dwell.Duration != 31*time.Minute {
		t.Errorf("unexpected dwell event: %+v", dwell)
	}

	// Still stationary: no duplicate notification.
	if _, err := tracker.Ingest(ctx, at(45*time.Minute)); err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if assigner.dwellCount() != 1 {
		t.Errorf("dwell notified again, got %d notifications", assigner.dwellCount())
	}
}

func TestTracker_DwellResetOnMovement(t *testing.T) {
	assigner := &mockAssigner{}
	tracker := newTestTracker(&mockSink{}, assigner)
	ctx := context.Background()

	if err := tracker.Start(ctx, "trip-1"); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer tracker.Stop(ctx)

	t0 := time.Date(2025, 7, 10, 9, 0, 0, 0, time.UTC)

	if _, err := tracker.Ingest(ctx, sampleAt(43.2630, -2.9350, t0)); err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if _, err := tracker.Ingest(ctx, sampleAt(43.2630, -2.9350, t0.Add(10*time.Minute))); err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if tracker.Session().DwellStartedAt == nil {
		t.Fatal("expected dwell candidate after 10 stationary minutes")
	}

	// Drive away: candidate cleared.
	if _, err := tracker.Ingest(ctx, sampleAt(43.2700, -2.9350, t0.Add(11*time.Minute))); err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if tracker.Session().DwellStartedAt != nil {
		t.Error("dwell candidate should reset when motion resumes")
	}
	if assigner.dwellCount() != 0 {
		t.Errorf("no dwell should be confirmed, got %d", assigner.dwellCount())
	}
}

func TestTracker_BackpressureOnFullBuffer(t *testing.T) {
	sinkErr := errors.New("sink down")
	sink := &mockSink{appendFixFn: func(ctx context.Context, fix *domain.LocationFix) error {
		return sinkErr
	}}
	tracker := newTestTracker(sink, nil)
	ctx := context.Background()

	if err := tracker.Start(ctx, "trip-1"); err != nil {
		t.Fatalf("start: %v", err)
	}

	t0 := time.Date(2025, 7, 10, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		if _, err := tracker.Ingest(ctx, sampleAt(43.2630, -2.9350, t0.Add(time.Duration(i)*time.Minute))); err != nil {
			t.Fatalf("ingest %d: %v", i, err)
		}
	}
	if got := tracker.PendingFixes(); got != 3 {
		t.Fatalf("expected 3 buffered fixes, got %d", got)
	}

	// Buffer is full and the sink still fails: the fix is rejected, not
	// silently dropped, and the buffer is unchanged.
	_, err := tracker.Ingest(ctx, sampleAt(43.2630, -2.9350, t0.Add(4*time.Minute)))
	var exhausted *domain.RetryExhaustedError
	if !errors.As(err, &exhausted) {
		t.Fatalf("expected RetryExhaustedError on full buffer, got %v", err)
	}
	if got := tracker.PendingFixes(); got != 3 {
		t.Errorf("buffer should be unchanged, got %d", got)
	}

	// Stop cannot drain either: warning, but the session still stops.
	if err := tracker.Stop(ctx); !errors.Is(err, domain.ErrFlushIncomplete) {
		t.Fatalf("expected ErrFlushIncomplete, got %v", err)
	}
	if tracker.Session() != nil {
		t.Error("session should be stopped despite the incomplete flush")
	}
	if got := tracker.PendingFixes(); got != 3 {
		t.Errorf("unsynced fixes must stay buffered after stop, got %d", got)
	}
}

func TestTracker_FixesFlushedInArrivalOrder(t *testing.T) {
	sink := &mockSink{}
	tracker := newTestTracker(sink, nil)
	ctx := context.Background()

	if err := tracker.Start(ctx, "trip-1"); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer tracker.Stop(ctx)

	t0 := time.Date(2025, 7, 10, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		if _, err := tracker.Ingest(ctx, sampleAt(43.2630, -2.9350, t0.Add(time.Duration(i)*time.Minute))); err != nil {
			t.Fatalf("ingest %d: %v", i, err)
		}
	}

	if sink.count() != 5 {
		t.Fatalf("expected 5 flushed fixes, got %d", sink.count())
	}
	for i := 1; i < len(sink.fixes); i++ {
		if sink.fixes[i].Time.Before(sink.fixes[i-1].Time) {
			t.Fatalf("fixes flushed out of order at index %d", i)
		}
	}
	if tracker.PendingFixes() != 0 {
		t.Errorf("buffer should be drained, got %d", tracker.PendingFixes())
	}
}

func TestTracker_TickUsesProvider(t *testing.T) {
	sink := &mockSink{}
	provider := &mockProvider{
		permission: true,
		sample:     sampleAt(43.2630, -2.9350, time.Date(2025, 7, 10, 9, 0, 0, 0, time.UTC)),
	}
	tracker := usecases.NewTracker(
		testTrackingConfig(), provider, sink,
		retry.New(0, time.Millisecond), nil, nil, nil, nil,
	)
	ctx := context.Background()

	if err := tracker.Start(ctx, "trip-1"); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer tracker.Stop(ctx)

	tracker.Tick(ctx)
	if sink.count() != 1 {
		t.Fatalf("expected 1 fix after tick, got %d", sink.count())
	}

	// Paused ticks are no-ops.
	if err := tracker.Pause(); err != nil {
		t.Fatalf("pause: %v", err)
	}
	tracker.Tick(ctx)
	if sink.count() != 1 {
		t.Errorf("paused tick should not sample, got %d fixes", sink.count())
	}
}
