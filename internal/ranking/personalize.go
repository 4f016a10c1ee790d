package ranking

import (
	"math"

	"NewsLens/internal/domain"
)

const familyMatchFactor = 0.9

// ProfileRelevance measures how well an item's tags cover the user's declared
// interests. Each interest is matched directly by tag or synonym (full tag
// score) or through the item tag's family (0.9 of its score); the covered
// weight over total weight is returned, capped at 1.
func ProfileRelevance(tags []domain.TopicTag, interests []domain.InterestTopic) float64 {
	if len(tags) == 0 || len(interests) == 0 {
		return 0
	}

	byTag := make(map[string]float64, len(tags))
	byFamily := make(map[string]float64, len(tags))
	for _, t := range tags {
		score := clamp01(t.Score)
		if k := tagKey(t.Tag); k != "" {
			byTag[k] = math.Max(byTag[k], score)
		}
		if k := familyKey(t); k != "" {
			byFamily[k] = math.Max(byFamily[k], score)
		}
	}

	var covered, total float64
	for _, it := range interests {
		key := tagKey(it.Tag)
		if key == "" {
			continue
		}
		w := clamp01(it.Weight)

		direct := byTag[key]
		for _, syn := range it.Synonyms {
			direct = math.Max(direct, byTag[tagKey(syn)])
		}
		match := math.Max(direct, familyMatchFactor*byFamily[key])

		covered += math.Min(w, match)
		total += w
	}

	if total == 0 {
		return 0
	}
	return math.Min(1, covered/total)
}

// FeedbackRelevance is the score-weighted mean of the preference vector over
// the item's tag families, in [-1,1]. No overlap yields 0.
func FeedbackRelevance(tags []domain.TopicTag, pref PreferenceVector) float64 {
	if len(tags) == 0 || len(pref) == 0 {
		return 0
	}

	var num, denom float64
	for _, t := range tags {
		key := familyKey(t)
		score := clamp01(t.Score)
		if key == "" || score <= 0 {
			continue
		}
		num += score * pref[key]
		denom += score
	}

	if denom == 0 {
		return 0
	}
	return clamp(num/denom, -1, 1)
}
