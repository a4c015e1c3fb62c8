package usecases

import (
	"crypto/rand"
	"encoding/hex"
	"sort"
	"time"

	"github.com/mbeltza/tripscribe/internal/core/domain"
	"github.com/mbeltza/tripscribe/internal/pkg/config"
	"github.com/mbeltza/tripscribe/internal/pkg/geospatial"
)

// ClusterEngine groups time-ordered photo metadata into spatio-temporal
// clusters with a greedy single pass. Each photo is compared against the
// last photo appended to the current cluster, not the centroid, so a
// slowly drifting sequence chains into one large cluster.
type ClusterEngine struct {
	window  time.Duration
	radiusM float64
}

// NewClusterEngine creates a ClusterEngine from the curation thresholds.
func NewClusterEngine(cfg config.CurationConfig) *ClusterEngine {
	return &ClusterEngine{
		window:  cfg.TimeClusterWindow(),
		radiusM: cfg.LocationClusterRadiusM,
	}
}

// Cluster sorts photos by timestamp (stable, ties keep input order) and
// walks them once, emitting a cluster whenever the time window or, for
// located photo pairs, the distance radius is exceeded. The trailing
// cluster is always emitted. O(n log n).
func (e *ClusterEngine) Cluster(photos []domain.PhotoRecord, tripID string) []domain.PhotoCluster {
	if len(photos) == 0 {
		return nil
	}

	sorted := make([]domain.PhotoRecord, len(photos))
	copy(sorted, photos)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Time.Before(sorted[j].Time)
	})

	var clusters []domain.PhotoCluster
	current := []domain.PhotoRecord{sorted[0]}

	for _, photo := range sorted[1:] {
		if e.chains(current[len(current)-1], photo) {
			current = append(current, photo)
			continue
		}
		clusters = append(clusters, e.finalize(current, tripID))
		current = []domain.PhotoRecord{photo}
	}
	clusters = append(clusters, e.finalize(current, tripID))

	return clusters
}

// chains reports whether next belongs to the same cluster as prev. The
// spatial test only applies when both photos carry a location.
func (e *ClusterEngine) chains(prev, next domain.PhotoRecord) bool {
	if next.Time.Sub(prev.Time) > e.window {
		return false
	}
	if prev.Location != nil && next.Location != nil {
		return geospatial.DistanceMeters(*prev.Location, *next.Location) <= e.radiusM
	}
	return true
}

func (e *ClusterEngine) finalize(photos []domain.PhotoRecord, tripID string) domain.PhotoCluster {
	return domain.PhotoCluster{
		ID:             newClusterID(),
		TripID:         tripID,
		Photos:         photos,
		CenterLocation: centroid(photos),
		StartTime:      photos[0].Time,
		EndTime:        photos[len(photos)-1].Time,
	}
}

// centroid is the arithmetic mean over photos that carry a location,
// {0,0} when none do. Journal output depends on the exact fallback.
func centroid(photos []domain.PhotoRecord) domain.GeoPoint {
	var sumLat, sumLon float64
	located := 0
	for _, p := range photos {
		if p.Location != nil {
			sumLat += p.Location.Lat
			sumLon += p.Location.Lon
			located++
		}
	}
	if located == 0 {
		return domain.GeoPoint{}
	}
	return domain.GeoPoint{Lat: sumLat / float64(located), Lon: sumLon / float64(located)}
}

func newClusterID() string {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return "cl-00000000"
	}
	return "cl-" + hex.EncodeToString(b)
}
