package usecases_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mbeltza/tripscribe/internal/core/domain"
	"github.com/mbeltza/tripscribe/internal/core/ports"
	"github.com/mbeltza/tripscribe/internal/core/usecases"
	"github.com/mbeltza/tripscribe/internal/pkg/retry"
)

type mockPhotoRepo struct {
	photos        []domain.PhotoRecord
	upsertBatchFn func(ctx context.Context, photos []domain.PhotoRecord) error
	listByTripFn  func(ctx context.Context, tripID string) ([]domain.PhotoRecord, error)
}

func (m *mockPhotoRepo) UpsertBatch(ctx context.Context, photos []domain.PhotoRecord) error {
	if m.upsertBatchFn != nil {
		return m.upsertBatchFn(ctx, photos)
	}
	m.photos = append(m.photos, photos...)
	return nil
}

func (m *mockPhotoRepo) ListByTrip(ctx context.Context, tripID string) ([]domain.PhotoRecord, error) {
	if m.listByTripFn != nil {
		return m.listByTripFn(ctx, tripID)
	}
	var out []domain.PhotoRecord
	for _, p := range m.photos {
		if p.TripID == tripID {
			out = append(out, p)
		}
	}
	return out, nil
}

type mockClusterRepo struct {
	clusters     []domain.PhotoCluster
	assignments  map[string]string
	deletedTrips []string
}

func (m *mockClusterRepo) Insert(ctx context.Context, cluster *domain.PhotoCluster) error {
	m.clusters = append(m.clusters, *cluster)
	return nil
}

func (m *mockClusterRepo) ListByTrip(ctx context.Context, tripID string) ([]domain.PhotoCluster, error) {
	var out []domain.PhotoCluster
	for _, c := range m.clusters {
		if c.TripID == tripID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *mockClusterRepo) AssignStep(ctx context.Context, clusterID, stepID string) error {
	if m.assignments == nil {
		m.assignments = map[string]string{}
	}
	m.assignments[clusterID] = stepID
	return nil
}

func (m *mockClusterRepo) DeleteByTrip(ctx context.Context, tripID string) error {
	m.deletedTrips = append(m.deletedTrips, tripID)
	kept := m.clusters[:0]
	for _, c := range m.clusters {
		if c.TripID != tripID {
			kept = append(kept, c)
		}
	}
	m.clusters = kept
	return nil
}

func newTestCurationService(photos *mockPhotoRepo, clusters ports.ClusterRepository, assigner *mockAssigner) *usecases.CurationService {
	cfg := testCurationConfig()
	var stepAssigner ports.StepAssigner
	if assigner != nil {
		stepAssigner = assigner
	}
	return usecases.NewCurationService(
		photos, clusters,
		usecases.NewClusterEngine(cfg),
		usecases.NewQualityGate(cfg),
		retry.New(0, time.Millisecond),
		stepAssigner, nil, nil,
	)
}

func TestCurationService_AddPhotos(t *testing.T) {
	photos := &mockPhotoRepo{}
	svc := newTestCurationService(photos, &mockClusterRepo{}, nil)
	ctx := context.Background()

	t0 := time.Date(2025, 7, 10, 9, 0, 0, 0, time.UTC)
	batch := []domain.PhotoRecord{
		photoAt("p1", t0, &domain.GeoPoint{Lat: 43.263, Lon: -2.935}),
		photoAt("p2", t0.Add(time.Minute), nil),
	}

	if err := svc.AddPhotos(ctx, "trip-1", batch); err != nil {
		t.Fatalf("add photos: %v", err)
	}
	if len(photos.photos) != 2 {
		t.Fatalf("expected 2 stored photos, got %d", len(photos.photos))
	}
	for _, p := range photos.photos {
		if p.TripID != "trip-1" {
			t.Errorf("photo %s missing trip id", p.ID)
		}
	}
}

func TestCurationService_AddPhotos_InvalidLocation(t *testing.T) {
	svc := newTestCurationService(&mockPhotoRepo{}, &mockClusterRepo{}, nil)

	bad := []domain.PhotoRecord{
		photoAt("p1", time.Now(), &domain.GeoPoint{Lat: 120, Lon: 0}),
	}
	err := svc.AddPhotos(context.Background(), "trip-1", bad)
	if !errors.Is(err, domain.ErrInvalidCoordinate) {
		t.Fatalf("expected ErrInvalidCoordinate, got %v", err)
	}
}

func TestCurationService_CurateTrip(t *testing.T) {
	photos := &mockPhotoRepo{}
	clusters := &mockClusterRepo{}
	assigner := &mockAssigner{assignFn: func(ctx context.Context, cluster *domain.PhotoCluster) (string, error) {
		return "step-" + cluster.ID, nil
	}}
	svc := newTestCurationService(photos, clusters, assigner)
	ctx := context.Background()

	t0 := time.Date(2025, 7, 10, 9, 0, 0, 0, time.UTC)
	loc := &domain.GeoPoint{Lat: 43.263, Lon: -2.935}

	batch := []domain.PhotoRecord{
		photoAt("p1", t0, loc),
		photoAt("p2", t0.Add(20*time.Minute), loc),
		photoAt("p3", t0.Add(4*time.Hour), loc), // separate stop
		{ID: "junk", Time: t0.Add(time.Minute), Location: loc, QualityScore: 0.9, IsJunk: true},
		{ID: "low", Time: t0.Add(2*time.Minute), Location: loc, QualityScore: 0.1},
	}
	if err := svc.AddPhotos(ctx, "trip-1", batch); err != nil {
		t.Fatalf("add photos: %v", err)
	}

	got, err := svc.CurateTrip(ctx, "trip-1")
	if err != nil {
		t.Fatalf("curate: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 clusters, got %d", len(got))
	}
	if len(got[0].Photos) != 2 || len(got[1].Photos) != 1 {
		t.Errorf("expected sizes [2 1], got [%d %d]", len(got[0].Photos), len(got[1].Photos))
	}
	for _, c := range got {
		for _, p := range c.Photos {
			if p.IsJunk || p.QualityScore < 0.5 {
				t.Errorf("gated photo %s leaked into a cluster", p.ID)
			}
		}
		if c.AssignedStepID == nil || *c.AssignedStepID != "step-"+c.ID {
			t.Errorf("cluster %s missing step assignment", c.ID)
		}
	}
	stored, err := clusters.ListByTrip(ctx, "trip-1")
	if err != nil {
		t.Fatalf("list clusters: %v", err)
	}
	if len(stored) != 2 {
		t.Errorf("expected 2 persisted clusters, got %d", len(stored))
	}
}

func TestCurationService_CurateTrip_Idempotent(t *testing.T) {
	photos := &mockPhotoRepo{}
	clusters := &mockClusterRepo{}
	svc := newTestCurationService(photos, clusters, nil)
	ctx := context.Background()

	t0 := time.Date(2025, 7, 10, 9, 0, 0, 0, time.UTC)
	loc := &domain.GeoPoint{Lat: 43.263, Lon: -2.935}
	if err := svc.AddPhotos(ctx, "trip-1", []domain.PhotoRecord{
		photoAt("p1", t0, loc),
		photoAt("p2", t0.Add(10*time.Minute), loc),
	}); err != nil {
		t.Fatalf("add photos: %v", err)
	}

	first, err := svc.CurateTrip(ctx, "trip-1")
	if err != nil {
		t.Fatalf("first curation: %v", err)
	}
	second, err := svc.CurateTrip(ctx, "trip-1")
	if err != nil {
		t.Fatalf("second curation: %v", err)
	}

	if len(first) != len(second) {
		t.Fatalf("re-curation changed the cluster count: %d vs %d", len(first), len(second))
	}
	if len(clusters.deletedTrips) != 2 {
		t.Errorf("each curation should replace previous clusters, got %d deletes",
			len(clusters.deletedTrips))
	}
}

func TestCurationService_CurateTrip_EmptyTrip(t *testing.T) {
	svc := newTestCurationService(&mockPhotoRepo{}, &mockClusterRepo{}, nil)

	got, err := svc.CurateTrip(context.Background(), "trip-1")
	if err != nil {
		t.Fatalf("curate empty trip: %v", err)
	}
	if got != nil {
		t.Errorf("expected no clusters for an empty trip, got %d", len(got))
	}
}

func TestCurationService_CurateTrip_InsertFailure(t *testing.T) {
	photos := &mockPhotoRepo{}
	insertErr := errors.New("cluster store down")
	failing := &failingClusterRepo{err: insertErr}
	svc := usecases.NewCurationService(
		photos, failing,
		usecases.NewClusterEngine(testCurationConfig()),
		usecases.NewQualityGate(testCurationConfig()),
		retry.New(2, time.Millisecond),
		nil, nil, nil,
	)
	ctx := context.Background()

	t0 := time.Date(2025, 7, 10, 9, 0, 0, 0, time.UTC)
	if err := svc.AddPhotos(ctx, "trip-1", []domain.PhotoRecord{photoAt("p1", t0, nil)}); err != nil {
		t.Fatalf("add photos: %v", err)
	}

	_, err := svc.CurateTrip(ctx, "trip-1")
	var exhausted *domain.RetryExhaustedError
	if !errors.As(err, &exhausted) {
		t.Fatalf("expected RetryExhaustedError, got %v", err)
	}
	if exhausted.Attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", exhausted.Attempts)
	}
	if failing.calls != 3 {
		t.Errorf("expected 3 insert calls, got %d", failing.calls)
	}
}

// failingClusterRepo fails every Insert while counting attempts.
type failingClusterRepo struct {
	mockClusterRepo
	err   error
	calls int
}

func (f *failingClusterRepo) Insert(ctx context.Context, cluster *domain.PhotoCluster) error {
	f.calls++
	return f.err
}

func TestCurationService_StepPhotos(t *testing.T) {
	svc := newTestCurationService(&mockPhotoRepo{}, &mockClusterRepo{}, nil)
	t0 := time.Date(2025, 7, 10, 9, 0, 0, 0, time.UTC)

	cluster := &domain.PhotoCluster{TripID: "trip-1"}
	for i := 0; i < 12; i++ {
		p := photoAt("p", t0.Add(time.Duration(i)*time.Minute), nil)
		p.QualityScore = 0.5 + float64(i)*0.04
		cluster.Photos = append(cluster.Photos, p)
	}

	capped, featured := svc.StepPhotos(cluster)
	if len(capped) != 10 {
		t.Errorf("expected 10 capped photos, got %d", len(capped))
	}
	if len(featured) != 3 {
		t.Errorf("expected 3 featured photos, got %d", len(featured))
	}
	// Featured picks by score, cap preserves chronology.
	if featured[0].QualityScore < featured[1].QualityScore {
		t.Errorf("featured photos not ordered by score")
	}
	for i := 1; i < len(capped); i++ {
		if capped[i].Time.Before(capped[i-1].Time) {
			t.Fatalf("capped photos out of chronological order at %d", i)
		}
	}
}
