package usecases_test

import (
	"testing"

	"github.com/mbeltza/tripscribe/internal/core/domain"
	"github.com/mbeltza/tripscribe/internal/core/usecases"
)

func TestQualityGate_Passes(t *testing.T) {
	gate := usecases.NewQualityGate(testCurationConfig())

	cases := []struct {
		name  string
		photo domain.PhotoRecord
		want  bool
	}{
		{"good", domain.PhotoRecord{QualityScore: 0.8}, true},
		{"exactly threshold", domain.PhotoRecord{QualityScore: 0.5}, true},
		{"below threshold", domain.PhotoRecord{QualityScore: 0.49}, false},
		{"junk", domain.PhotoRecord{QualityScore: 0.9, IsJunk: true}, false},
	}

	for _, tc := range cases {
		if got := gate.Passes(tc.photo); got != tc.want {
			t.Errorf("%s: Passes = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestQualityGate_SelectFeatured(t *testing.T) {
	gate := usecases.NewQualityGate(testCurationConfig())

	photos := []domain.PhotoRecord{
		{ID: "a", QualityScore: 0.9},
		{ID: "b", QualityScore: 0.95},
		{ID: "c", QualityScore: 0.5},
	}

	featured := gate.SelectFeatured(photos, 2)
	if len(featured) != 2 {
		t.Fatalf("expected 2 featured, got %d", len(featured))
	}
	if featured[0].ID != "b" || featured[1].ID != "a" {
		t.Errorf("expected [b a], got [%s %s]", featured[0].ID, featured[1].ID)
	}
}

func TestQualityGate_SelectFeatured_StableOnTies(t *testing.T) {
	gate := usecases.NewQualityGate(testCurationConfig())

	photos := []domain.PhotoRecord{
		{ID: "a", QualityScore: 0.9},
		{ID: "b", QualityScore: 0.9},
		{ID: "c", QualityScore: 0.9},
	}

	featured := gate.SelectFeatured(photos, 3)
	if featured[0].ID != "a" || featured[1].ID != "b" || featured[2].ID != "c" {
		t.Errorf("score ties should keep input order, got [%s %s %s]",
			featured[0].ID, featured[1].ID, featured[2].ID)
	}
}

func TestQualityGate_SelectFeatured_Empty(t *testing.T) {
	gate := usecases.NewQualityGate(testCurationConfig())
	if got := gate.SelectFeatured(nil, 3); got != nil {
		t.Errorf("expected nil for empty input, got %v", got)
	}
}

func TestQualityGate_CapPerStep(t *testing.T) {
	gate := usecases.NewQualityGate(testCurationConfig())

	photos := make([]domain.PhotoRecord, 15)
	capped := gate.CapPerStep(photos)
	if len(capped) != 10 {
		t.Errorf("expected cap at 10, got %d", len(capped))
	}

	short := make([]domain.PhotoRecord, 4)
	if got := gate.CapPerStep(short); len(got) != 4 {
		t.Errorf("expected short input untouched, got %d", len(got))
	}
}

func TestQualityGate_Filter(t *testing.T) {
	gate := usecases.NewQualityGate(testCurationConfig())

	photos := []domain.PhotoRecord{
		{ID: "keep1", QualityScore: 0.7},
		{ID: "junk", QualityScore: 0.9, IsJunk: true},
		{ID: "low", QualityScore: 0.2},
		{ID: "keep2", QualityScore: 0.5},
	}

	kept := gate.Filter(photos)
	if len(kept) != 2 || kept[0].ID != "keep1" || kept[1].ID != "keep2" {
		t.Errorf("unexpected filter result: %v", kept)
	}
}
