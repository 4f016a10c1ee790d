package heuristics

import (
	"math"
	"strings"
	"testing"
	"time"

	"NewsLens/internal/domain"
)

var now = time.Date(2025, 5, 10, 12, 0, 0, 0, time.UTC)

func near(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestEvaluateFreshItem(t *testing.T) {
	t.Parallel()

	h := Evaluate(Input{
		Title:        "Central Bank Raises Rates",
		Summary:      "The central bank raised rates again.",
		SourceWeight: 1,
		PublishedAt:  now,
	}, now)

	if !near(*h.Hype, 1) {
		t.Fatalf("fresh item should have hype 1, got %f", *h.Hype)
	}
	if !near(*h.Quality, 1) {
		t.Fatalf("quality should follow source weight, got %f", *h.Quality)
	}
	// 4 capitalized words: 0.7 + 0.3*4/6.
	if !near(*h.Prominence, 0.9) {
		t.Fatalf("unexpected prominence %f", *h.Prominence)
	}
	// unique terms: central bank raises rates the raised again = 7.
	if !near(*h.Novelty, 0.14) {
		t.Fatalf("unexpected novelty %f", *h.Novelty)
	}
	// 0.6 + 0.3*25/120 + 0.1.
	if !near(*h.Importance, 0.7625) {
		t.Fatalf("unexpected importance %f", *h.Importance)
	}
}

func TestEvaluateDecaysAndBounds(t *testing.T) {
	t.Parallel()

	h := Evaluate(Input{
		Title:        strings.Repeat("Word ", 100),
		SourceWeight: 5,
		PublishedAt:  now.Add(-12 * time.Hour),
	}, now)

	if !near(*h.Hype, math.Exp(-1)) {
		t.Fatalf("hype after 12h should be e^-1, got %f", *h.Hype)
	}
	for name, v := range map[string]*float64{
		"importance": h.Importance, "hype": h.Hype, "prominence": h.Prominence,
		"novelty": h.Novelty, "quality": h.Quality,
	} {
		if *v < 0 || *v > 1 {
			t.Fatalf("%s out of range: %f", name, *v)
		}
	}

	future := Evaluate(Input{Title: "x", SourceWeight: 0.5, PublishedAt: now.Add(time.Hour)}, now)
	if !near(*future.Hype, 1) {
		t.Fatalf("future timestamps should not exceed 1, got %f", *future.Hype)
	}
}

func TestFillKeepsExistingScores(t *testing.T) {
	t.Parallel()

	item := domain.Item{
		Title:       "Markets",
		PublishedAt: now,
		Heuristics:  domain.Heuristics{Importance: domain.Float(0.11)},
	}
	Fill(&item, now)

	if !item.Heuristics.Complete() {
		t.Fatal("heuristics should be complete after Fill")
	}
	if *item.Heuristics.Importance != 0.11 {
		t.Fatalf("existing score overwritten: %f", *item.Heuristics.Importance)
	}
	if item.SourceWeight != DefaultSourceWeight || *item.Heuristics.Quality != DefaultSourceWeight {
		t.Fatalf("default source weight not applied: %f", item.SourceWeight)
	}
}
