package geospatial_test

import (
	"math"
	"testing"
	"time"

	"github.com/mbeltza/tripscribe/internal/core/domain"
	"github.com/mbeltza/tripscribe/internal/pkg/geospatial"
)

func TestDistanceMeters_Zero(t *testing.T) {
	p := domain.GeoPoint{Lat: 43.263, Lon: -2.935}
	if d := geospatial.DistanceMeters(p, p); d != 0 {
		t.Errorf("expected 0 for identical points, got %f", d)
	}
}

func TestDistanceMeters_Symmetric(t *testing.T) {
	a := domain.GeoPoint{Lat: 43.263, Lon: -2.935}
	b := domain.GeoPoint{Lat: 40.4168, Lon: -3.7038}

	ab := geospatial.DistanceMeters(a, b)
	ba := geospatial.DistanceMeters(b, a)
	if ab != ba {
		t.Errorf("distance not symmetric: %f vs %f", ab, ba)
	}
}

func TestDistanceMeters_KnownDistance(t *testing.T) {
	// Bilbao -> Madrid, roughly 323 km great-circle.
	bilbao := domain.GeoPoint{Lat: 43.263, Lon: -2.935}
	madrid := domain.GeoPoint{Lat: 40.4168, Lon: -3.7038}

	d := geospatial.DistanceMeters(bilbao, madrid)
	if d < 318000 || d > 328000 {
		t.Errorf("Bilbao-Madrid distance out of range: %f m", d)
	}
}

func TestDistanceMeters_Antipodal(t *testing.T) {
	a := domain.GeoPoint{Lat: 0, Lon: 0}
	b := domain.GeoPoint{Lat: 0, Lon: 180}

	d := geospatial.DistanceMeters(a, b)
	if math.IsNaN(d) || math.IsInf(d, 0) {
		t.Fatalf("antipodal distance not finite: %f", d)
	}

	// Half the Earth's circumference, ~20015 km.
	if d < 20000000 || d > 20030000 {
		t.Errorf("antipodal distance out of range: %f m", d)
	}
}

func TestDistanceMeters_TinySeparation(t *testing.T) {
	a := domain.GeoPoint{Lat: 43.2630000, Lon: -2.9350000}
	b := domain.GeoPoint{Lat: 43.2630001, Lon: -2.9350001}

	d := geospatial.DistanceMeters(a, b)
	if math.IsNaN(d) || d < 0 {
		t.Fatalf("tiny separation distance invalid: %f", d)
	}
	if d > 1 {
		t.Errorf("expected sub-meter distance, got %f", d)
	}
}

func TestSpeedMps(t *testing.T) {
	a := domain.GeoPoint{Lat: 43.263, Lon: -2.935}
	b := domain.GeoPoint{Lat: 43.272, Lon: -2.935} // ~1001 m north

	t0 := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	t1 := t0.Add(100 * time.Second)

	v := geospatial.SpeedMps(a, b, t0, t1)
	if v < 9.5 || v > 10.5 {
		t.Errorf("expected ~10 m/s, got %f", v)
	}
}

func TestBoundingBox(t *testing.T) {
	center := domain.GeoPoint{Lat: 43.263, Lon: -2.935}
	box := geospatial.BoundingBox(center, 500)

	if box.MinLat >= center.Lat || box.MaxLat <= center.Lat {
		t.Errorf("latitude bounds do not bracket the center: %+v", box)
	}
	if box.MinLon >= center.Lon || box.MaxLon <= center.Lon {
		t.Errorf("longitude bounds do not bracket the center: %+v", box)
	}

	// A point 400 m north of the center must fall inside the box.
	north := domain.GeoPoint{Lat: center.Lat + 400.0/111320.0, Lon: center.Lon}
	if north.Lat > box.MaxLat {
		t.Errorf("point 400 m north escaped the 500 m box")
	}

	// The box must not be wildly oversized: its edge sits within a few
	// percent of the requested radius.
	edge := domain.GeoPoint{Lat: box.MaxLat, Lon: center.Lon}
	d := geospatial.DistanceMeters(center, edge)
	if d < 450 || d > 550 {
		t.Errorf("box edge %f m from center, wanted ~500", d)
	}
}

func TestSpeedMps_NonPositiveInterval(t *testing.T) {
	a := domain.GeoPoint{Lat: 43.263, Lon: -2.935}
	b := domain.GeoPoint{Lat: 43.272, Lon: -2.935}
	t0 := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	if v := geospatial.SpeedMps(a, b, t0, t0); v != 0 {
		t.Errorf("expected 0 for equal timestamps, got %f", v)
	}
	if v := geospatial.SpeedMps(a, b, t0, t0.Add(-time.Second)); v != 0 {
		t.Errorf("expected 0 for reversed timestamps, got %f", v)
	}
}
