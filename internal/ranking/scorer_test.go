package ranking

import (
	"math"
	"testing"

	"NewsLens/internal/domain"
)

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestQualityComposite(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		features *domain.Features
		want     float64
	}{
		{name: "not enriched", features: nil, want: 0},
		{name: "no scalars", features: &domain.Features{Genre: domain.GenreAnalysis}, want: 0},
		{
			name: "mixed",
			features: &domain.Features{
				EvidenceStrength: domain.Float(0.8),
				FactDensity:      domain.Float(0.6),
				Uncertainty:      domain.Float(0.2),
			},
			want: 0.78,
		},
		{
			name:     "positives only",
			features: &domain.Features{EvidenceStrength: domain.Float(1), GeoScope: domain.Float(1)},
			want:     1,
		},
		{
			name:     "negatives only",
			features: &domain.Features{Sensationalism: domain.Float(1), BiasRisk: domain.Float(1)},
			want:     0.15,
		},
		{
			name:     "out of range inputs are clamped",
			features: &domain.Features{EvidenceStrength: domain.Float(3), Uncertainty: domain.Float(-2)},
			want:     1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := QualityComposite(tt.features); !approx(got, tt.want) {
				t.Fatalf("QualityComposite = %f, want %f", got, tt.want)
			}
		})
	}
}

func TestBaseHeuristic(t *testing.T) {
	t.Parallel()

	h := domain.Heuristics{Importance: domain.Float(0.5), Hype: domain.Float(0.5)}
	if got := BaseHeuristic(h); !approx(got, 0.2) {
		t.Fatalf("missing scores should count as zero, got %f", got)
	}

	full := domain.Heuristics{
		Importance: domain.Float(1), Hype: domain.Float(1), Prominence: domain.Float(1),
		Novelty: domain.Float(1), Quality: domain.Float(1),
	}
	if got := BaseHeuristic(full); !approx(got, 1) {
		t.Fatalf("expected 1, got %f", got)
	}
}
