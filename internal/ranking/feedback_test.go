package ranking

import (
	"testing"

	"NewsLens/internal/domain"
)

func tagged(tags ...domain.TopicTag) *domain.Features {
	return &domain.Features{Topics: tags}
}

func TestBuildPreferenceVector(t *testing.T) {
	t.Parallel()

	entries := []domain.FeedbackEntry{
		{Vote: domain.VoteUp, Features: tagged(domain.TopicTag{Tag: "ai", Score: 0.8, Family: "Tech"})},
		{Vote: domain.VoteDown, Features: tagged(domain.TopicTag{Tag: "sports", Score: 0.4})},
		{Vote: domain.VoteUp, Features: tagged(domain.TopicTag{Tag: "tech", Score: 0.4})},
		{Vote: domain.VoteNeutral, Features: tagged(domain.TopicTag{Tag: "sports", Score: 1})},
		{Vote: domain.VoteUp, Features: nil},
	}

	vec := BuildPreferenceVector(entries)
	if len(vec) != 2 {
		t.Fatalf("expected 2 families, got %v", vec)
	}
	if !approx(vec["tech"], 1) {
		t.Fatalf("tech should be normalized to 1, got %f", vec["tech"])
	}
	if !approx(vec["sports"], -1.0/3) {
		t.Fatalf("sports should be -1/3, got %f", vec["sports"])
	}
	for k, v := range vec {
		if v < -1 || v > 1 {
			t.Fatalf("value for %q out of range: %f", k, v)
		}
	}
}

func TestBuildPreferenceVectorEmpty(t *testing.T) {
	t.Parallel()

	cases := [][]domain.FeedbackEntry{
		nil,
		{{Vote: domain.VoteNeutral, Features: tagged(domain.TopicTag{Tag: "ai", Score: 1})}},
		{{Vote: domain.VoteUp, Features: tagged(domain.TopicTag{Tag: "ai", Score: 0})}},
		{
			{Vote: domain.VoteUp, Features: tagged(domain.TopicTag{Tag: "ai", Score: 0.5})},
			{Vote: domain.VoteDown, Features: tagged(domain.TopicTag{Tag: "ai", Score: 0.5})},
		},
	}

	for i, entries := range cases {
		vec := BuildPreferenceVector(entries)
		if vec == nil || len(vec) != 0 {
			t.Fatalf("case %d: expected empty non-nil map, got %v", i, vec)
		}
	}
}

func TestLatentQualityPreference(t *testing.T) {
	t.Parallel()

	half := domain.Float(0.5)
	entries := []domain.FeedbackEntry{
		{Vote: domain.VoteUp, Features: &domain.Features{EvidenceStrength: domain.Float(1)}},
		{Vote: domain.VoteDown, Features: &domain.Features{
			EvidenceStrength: half, FactDensity: half, Actionability: half,
			TimeCriticality: half, HarmSeverity: half, GeoScope: half,
		}},
		{Vote: domain.VoteNeutral, Features: &domain.Features{EvidenceStrength: domain.Float(0)}},
	}

	if got := LatentQualityPreference(entries); !approx(got, 1.0/6-0.5) {
		t.Fatalf("unexpected latent preference %f", got)
	}
	if got := LatentQualityPreference(nil); got != 0 {
		t.Fatalf("no feedback should be neutral, got %f", got)
	}
}
