package ranking

import (
	"math"
	"strings"

	"NewsLens/internal/domain"
)

// PreferenceVector maps a topic family to a learned preference in [-1,1].
type PreferenceVector map[string]float64

// BuildPreferenceVector folds a user's votes into a per-family preference.
// Each tag contributes sign(vote)*score under its family; values are then
// scaled by the largest magnitude. Nothing accumulated yields an empty map.
func BuildPreferenceVector(entries []domain.FeedbackEntry) PreferenceVector {
	acc := make(PreferenceVector)
	for _, e := range entries {
		sign := voteSign(e.Vote)
		if sign == 0 || e.Features == nil {
			continue
		}
		for _, t := range e.Features.Topics {
			key := familyKey(t)
			score := clamp01(t.Score)
			if key == "" || score <= 0 {
				continue
			}
			acc[key] += sign * score
		}
	}

	var maxAbs float64
	for _, v := range acc {
		maxAbs = math.Max(maxAbs, math.Abs(v))
	}
	if maxAbs == 0 {
		return PreferenceVector{}
	}

	for k, v := range acc {
		acc[k] = clamp(v/maxAbs, -1, 1)
	}
	return acc
}

// LatentQualityPreference measures whether a user likes well-sourced,
// consequential items: the mean positive-feature level over liked items minus
// the same over disliked items. The result lies in [-1,1].
func LatentQualityPreference(entries []domain.FeedbackEntry) float64 {
	var liked, disliked []*domain.Features
	for _, e := range entries {
		switch voteSign(e.Vote) {
		case 1:
			liked = append(liked, e.Features)
		case -1:
			disliked = append(disliked, e.Features)
		}
	}
	return positiveLevel(liked) - positiveLevel(disliked)
}

// positiveLevel averages each positive feature over the items that carry it,
// then averages the six per-feature means (a feature nobody has counts as 0).
func positiveLevel(items []*domain.Features) float64 {
	const features = 6
	var sums, counts [features]float64

	for _, f := range items {
		if f == nil {
			continue
		}
		for i, v := range f.Positive() {
			if v == nil {
				continue
			}
			sums[i] += clamp01(*v)
			counts[i]++
		}
	}

	var total float64
	for i := range sums {
		if counts[i] > 0 {
			total += sums[i] / counts[i]
		}
	}
	return total / features
}

func voteSign(v domain.Vote) float64 {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}

func familyKey(t domain.TopicTag) string {
	return strings.ToLower(strings.TrimSpace(t.FamilyOrSelf()))
}

func tagKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
