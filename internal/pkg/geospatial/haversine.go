package geospatial

import (
	"math"
	"time"

	"github.com/mbeltza/tripscribe/internal/core/domain"
)

const earthRadiusM = 6371000.0

// DistanceMeters calculates the great-circle distance in meters between
// two points using the haversine formula. The square-root argument is
// clamped to [0,1] so the result stays finite for near-antipodal and
// near-identical points.
func DistanceMeters(a, b domain.GeoPoint) float64 {
	dLat := toRad(b.Lat - a.Lat)
	dLon := toRad(b.Lon - a.Lon)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(a.Lat))*math.Cos(toRad(b.Lat))*
			math.Sin(dLon/2)*math.Sin(dLon/2)

	if h < 0 {
		h = 0
	} else if h > 1 {
		h = 1
	}

	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return earthRadiusM * c
}

// SpeedMps returns the average speed in m/s between two timestamped
// points. Returns 0 when tB is not after tA.
func SpeedMps(a, b domain.GeoPoint, tA, tB time.Time) float64 {
	dt := tB.Sub(tA).Seconds()
	if dt <= 0 {
		return 0
	}
	return DistanceMeters(a, b) / dt
}

// BoundingBox returns a bounding box around a point with the given radius
// in meters.
func BoundingBox(p domain.GeoPoint, radiusMeters float64) domain.Bounds {
	latDelta := radiusMeters / 111320.0
	lonDelta := radiusMeters / (111320.0 * math.Cos(toRad(p.Lat)))

	return domain.Bounds{
		MinLat: p.Lat - latDelta,
		MinLon: p.Lon - lonDelta,
		MaxLat: p.Lat + latDelta,
		MaxLon: p.Lon + lonDelta,
	}
}

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}
