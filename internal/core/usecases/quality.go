package usecases

import (
	"sort"

	"github.com/mbeltza/tripscribe/internal/core/domain"
	"github.com/mbeltza/tripscribe/internal/pkg/config"
)

// QualityGate filters photos by externally supplied scores and selects
// featured subsets. All methods are pure and total; empty input yields
// empty output.
type QualityGate struct {
	minScore        float64
	featuredPerStep int
	maxPerStep      int
}

// NewQualityGate creates a QualityGate from the curation thresholds.
func NewQualityGate(cfg config.CurationConfig) *QualityGate {
	return &QualityGate{
		minScore:        cfg.MinQualityScore,
		featuredPerStep: cfg.FeaturedPerStep,
		maxPerStep:      cfg.MaxPhotosPerStep,
	}
}

// Passes reports whether a photo clears the junk flag and the minimum
// quality score.
func (g *QualityGate) Passes(p domain.PhotoRecord) bool {
	return !p.IsJunk && p.QualityScore >= g.minScore
}

// Filter returns the photos that pass the gate, preserving order.
func (g *QualityGate) Filter(photos []domain.PhotoRecord) []domain.PhotoRecord {
	var kept []domain.PhotoRecord
	for _, p := range photos {
		if g.Passes(p) {
			kept = append(kept, p)
		}
	}
	return kept
}

// SelectFeatured returns the top k photos by quality score, descending.
// The sort is stable so score ties keep their input order. k <= 0 falls
// back to the configured featured count.
func (g *QualityGate) SelectFeatured(photos []domain.PhotoRecord, k int) []domain.PhotoRecord {
	if k <= 0 {
		k = g.featuredPerStep
	}
	if len(photos) == 0 {
		return nil
	}

	ranked := make([]domain.PhotoRecord, len(photos))
	copy(ranked, photos)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].QualityScore > ranked[j].QualityScore
	})

	if k > len(ranked) {
		k = len(ranked)
	}
	return ranked[:k]
}

// CapPerStep truncates to the configured per-step maximum. Ordering is
// the caller's choice; the default flow hands photos in chronologically.
func (g *QualityGate) CapPerStep(photos []domain.PhotoRecord) []domain.PhotoRecord {
	if len(photos) <= g.maxPerStep {
		return photos
	}
	return photos[:g.maxPerStep]
}
