package device_test

import (
	"context"
	"testing"
	"time"

	"github.com/mbeltza/tripscribe/internal/adapters/device"
	"github.com/mbeltza/tripscribe/internal/core/domain"
)

func TestSource_ConsumeOnce(t *testing.T) {
	source := device.NewSource()
	ctx := context.Background()

	if got, _ := source.CurrentFix(ctx); got != nil {
		t.Fatalf("empty source returned a sample: %+v", got)
	}

	sample := &domain.RawSample{
		Point: domain.GeoPoint{Lat: 43.263, Lon: -2.935},
		Time:  time.Date(2025, 7, 10, 9, 0, 0, 0, time.UTC),
	}
	source.Push(sample)

	got, err := source.CurrentFix(ctx)
	if err != nil {
		t.Fatalf("current fix: %v", err)
	}
	if got != sample {
		t.Fatalf("expected the pushed sample back, got %+v", got)
	}

	if got, _ := source.CurrentFix(ctx); got != nil {
		t.Errorf("sample handed out twice: %+v", got)
	}
}

func TestSource_LatestWins(t *testing.T) {
	source := device.NewSource()

	t0 := time.Date(2025, 7, 10, 9, 0, 0, 0, time.UTC)
	source.Push(&domain.RawSample{Point: domain.GeoPoint{Lat: 43.0, Lon: -2.0}, Time: t0})
	newer := &domain.RawSample{Point: domain.GeoPoint{Lat: 43.1, Lon: -2.1}, Time: t0.Add(time.Minute)}
	source.Push(newer)

	got, _ := source.CurrentFix(context.Background())
	if got != newer {
		t.Errorf("expected the newest sample, got %+v", got)
	}
}

func TestSource_Permission(t *testing.T) {
	source := device.NewSource()
	ctx := context.Background()

	if !source.HasPermission(ctx) {
		t.Error("new source should start with permission granted")
	}
	source.SetPermission(false)
	if source.HasPermission(ctx) {
		t.Error("revoked permission still reported granted")
	}
}
