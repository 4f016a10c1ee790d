// Package ranking scores candidate items for a user and selects a
// topic-diversified digest from them. Nothing here performs I/O.
package ranking

import "NewsLens/internal/domain"

const negativePenalty = 0.7

// QualityComposite maps analysis features to [0,1]. Items without features,
// or with no scalar feature set at all, score 0. Missing features are left out
// of their group's average.
func QualityComposite(f *domain.Features) float64 {
	if f == nil {
		return 0
	}

	pos, posN := sumPresent(f.Positive())
	neg, negN := sumPresent(f.Negative())
	if posN == 0 && negN == 0 {
		return 0
	}

	raw := mean(pos, posN) - negativePenalty*mean(neg, negN)
	return clamp01(0.5 + raw/2)
}

// BaseHeuristic averages the five legacy heuristic scores; missing ones count as 0.
func BaseHeuristic(h domain.Heuristics) float64 {
	var sum float64
	for _, v := range []*float64{h.Importance, h.Hype, h.Prominence, h.Novelty, h.Quality} {
		if v != nil {
			sum += clamp01(*v)
		}
	}
	return sum / 5
}

func sumPresent(values []*float64) (float64, int) {
	var (
		sum float64
		n   int
	)
	for _, v := range values {
		if v == nil {
			continue
		}
		sum += clamp01(*v)
		n++
	}
	return sum, n
}

func mean(sum float64, n int) float64 {
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

func clamp01(x float64) float64 {
	return clamp(x, 0, 1)
}

func clamp(x, lo, hi float64) float64 {
	switch {
	case x < lo:
		return lo
	case x > hi:
		return hi
	}
	return x
}
