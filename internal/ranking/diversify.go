package ranking

import (
	"cmp"
	"math"
	"slices"
	"strings"

	"NewsLens/internal/domain"
)

const substringMatchFactor = 0.6

// DiversityConfig controls topic-quota selection.
type DiversityConfig struct {
	Enabled        bool
	TopK           int
	MinAssignScore float64
	MinPerTopic    int
	MaxShare       float64
}

// DefaultDiversityConfig returns the production defaults.
func DefaultDiversityConfig() DiversityConfig {
	return DiversityConfig{
		Enabled:        true,
		TopK:           4,
		MinAssignScore: 0.05,
		MinPerTopic:    1,
		MaxShare:       0.5,
	}
}

// WeightedTopic is a normalized interest used for bucketing.
type WeightedTopic struct {
	Tag    string
	Weight float64
}

// Bucket holds the candidates led by one interest topic, best first.
type Bucket struct {
	Topic WeightedTopic
	Items []domain.RankedCandidate
}

// Buckets is the result of grouping candidates by leading interest.
type Buckets struct {
	Topics []Bucket
	Misc   []domain.RankedCandidate
}

// Available counts all grouped candidates.
func (b Buckets) Available() int {
	n := len(b.Misc)
	for _, t := range b.Topics {
		n += len(t.Items)
	}
	return n
}

// Allocation assigns a quota to each topic bucket (parallel to Buckets.Topics)
// and the remainder to misc.
type Allocation struct {
	Topics []int
	Misc   int
}

// Sum is the total number of reserved slots.
func (a Allocation) Sum() int {
	n := a.Misc
	for _, q := range a.Topics {
		n += q
	}
	return n
}

// TopTopics returns up to k interests ordered by weight, ties kept in declared
// order. Tags are lower-cased and deduplicated; weights are clamped to [0,1].
func TopTopics(interests []domain.InterestTopic, k int) []WeightedTopic {
	seen := make(map[string]struct{}, len(interests))
	out := make([]WeightedTopic, 0, len(interests))
	for _, it := range interests {
		tag := tagKey(it.Tag)
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, WeightedTopic{Tag: tag, Weight: clamp01(it.Weight)})
	}

	slices.SortStableFunc(out, func(a, b WeightedTopic) int {
		return cmp.Compare(b.Weight, a.Weight)
	})
	if k > 0 && len(out) > k {
		out = out[:k]
	}
	return out
}

// LeadingTopic returns the index of the interest that best matches the tags
// and the match strength. Exact tag or family equality counts fully, substring
// containment either way at 0.6; both are scaled by the interest weight.
// The index is -1 when nothing matches.
func LeadingTopic(tags []domain.TopicTag, topics []WeightedTopic) (int, float64) {
	best, bestScore := -1, 0.0
	for i, pt := range topics {
		var match float64
		for _, t := range tags {
			tag := tagKey(t.Tag)
			if tag == "" {
				continue
			}
			strength := clamp01(t.Score) * pt.Weight
			switch {
			case tag == pt.Tag || familyKey(t) == pt.Tag:
				match = math.Max(match, strength)
			case strings.Contains(tag, pt.Tag) || strings.Contains(pt.Tag, tag):
				match = math.Max(match, substringMatchFactor*strength)
			}
		}
		if match > bestScore {
			best, bestScore = i, match
		}
	}
	return best, bestScore
}

// GroupByTopic puts every candidate into the bucket of its leading interest,
// or misc when the match is not above minAssign.
func GroupByTopic(cands []domain.RankedCandidate, topics []WeightedTopic, minAssign float64) Buckets {
	b := Buckets{Topics: make([]Bucket, len(topics))}
	for i, t := range topics {
		b.Topics[i].Topic = t
	}

	for _, c := range cands {
		idx, strength := LeadingTopic(c.Item.Tags(), topics)
		if idx < 0 || strength <= minAssign {
			b.Misc = append(b.Misc, c)
			continue
		}
		b.Topics[idx].Items = append(b.Topics[idx].Items, c)
	}

	for i := range b.Topics {
		slices.SortStableFunc(b.Topics[i].Items, compareCandidates)
	}
	slices.SortStableFunc(b.Misc, compareCandidates)
	return b
}

// ComputeQuotas splits limit slots across non-empty topic buckets in
// proportion to weight, clamped to [min(avail, minPerTopic), min(avail, cap)]
// with cap = max(1, floor(limit*maxShare)). Overshoot is taken from the
// largest quota, shortfall goes to the topic with the best weight/(quota+1);
// ties go to the earlier topic. Whatever topics cannot absorb is given to
// misc so the total equals min(limit, available).
func ComputeQuotas(b Buckets, limit int, cfg DiversityConfig) Allocation {
	alloc := Allocation{Topics: make([]int, len(b.Topics))}
	if limit <= 0 {
		return alloc
	}

	var sumW float64
	active := 0
	for _, t := range b.Topics {
		if len(t.Items) > 0 {
			sumW += t.Topic.Weight
			active++
		}
	}
	target := min(limit, b.Available())
	if active == 0 {
		alloc.Misc = target
		return alloc
	}

	maxCap := max(1, int(math.Floor(float64(limit)*cfg.MaxShare)))
	upper := make([]int, len(b.Topics))

	sum := 0
	for i, t := range b.Topics {
		avail := len(t.Items)
		if avail == 0 {
			continue
		}
		share := 1 / float64(active)
		if sumW > 0 {
			share = t.Topic.Weight / sumW
		}
		upper[i] = min(avail, maxCap)
		lower := min(avail, cfg.MinPerTopic, upper[i])

		q := int(math.Round(share * float64(limit)))
		alloc.Topics[i] = max(lower, min(q, upper[i]))
		sum += alloc.Topics[i]
	}

	for sum > limit {
		largest := -1
		for i, q := range alloc.Topics {
			if q > 0 && (largest < 0 || q > alloc.Topics[largest]) {
				largest = i
			}
		}
		if largest < 0 {
			break
		}
		alloc.Topics[largest]--
		sum--
	}

	for sum < limit {
		pick, bestRatio := -1, 0.0
		for i, t := range b.Topics {
			q := alloc.Topics[i]
			if q >= upper[i] {
				continue
			}
			ratio := t.Topic.Weight / float64(q+1)
			if pick < 0 || ratio > bestRatio {
				pick, bestRatio = i, ratio
			}
		}
		if pick < 0 {
			break
		}
		alloc.Topics[pick]++
		sum++
	}

	alloc.Misc = max(0, target-sum)
	return alloc
}

// Diversify re-selects limit candidates from score-sorted cands so that the
// user's top interests share the list according to their quotas. It returns
// the plain top-limit when diversification does not apply.
func Diversify(cands []domain.RankedCandidate, interests []domain.InterestTopic, limit int, cfg DiversityConfig) []domain.RankedCandidate {
	limit = min(limit, len(cands))
	if limit <= 0 {
		return nil
	}
	topics := TopTopics(interests, cfg.TopK)
	if !cfg.Enabled || len(topics) == 0 || limit <= 1 {
		return topN(cands, limit)
	}

	buckets := GroupByTopic(cands, topics, cfg.MinAssignScore)
	alloc := ComputeQuotas(buckets, limit, cfg)
	return pickDiversified(buckets, alloc, limit)
}

func pickDiversified(b Buckets, alloc Allocation, limit int) []domain.RankedCandidate {
	lists := make([][]domain.RankedCandidate, 0, len(b.Topics)+1)
	remaining := make([]int, 0, len(b.Topics)+1)
	for i, t := range b.Topics {
		lists = append(lists, t.Items)
		remaining = append(remaining, alloc.Topics[i])
	}
	lists = append(lists, b.Misc)
	remaining = append(remaining, alloc.Misc)

	next := make([]int, len(lists))
	picked := make([]domain.RankedCandidate, 0, min(limit, b.Available()))

	for len(picked) < limit {
		progressed := false
		for i, list := range lists {
			if remaining[i] <= 0 || next[i] >= len(list) {
				continue
			}
			picked = append(picked, list[next[i]])
			next[i]++
			remaining[i]--
			progressed = true
			if len(picked) == limit {
				break
			}
		}
		if !progressed {
			break
		}
	}

	if len(picked) < limit {
		var rest []domain.RankedCandidate
		for i, list := range lists {
			rest = append(rest, list[next[i]:]...)
		}
		slices.SortStableFunc(rest, compareCandidates)
		picked = append(picked, rest[:min(len(rest), limit-len(picked))]...)
	}
	return picked
}

func topN(cands []domain.RankedCandidate, n int) []domain.RankedCandidate {
	if len(cands) <= n {
		return cands
	}
	return cands[:n]
}

// compareCandidates orders by final score, then recency, then ID.
func compareCandidates(a, b domain.RankedCandidate) int {
	if c := cmp.Compare(b.FinalScore, a.FinalScore); c != 0 {
		return c
	}
	if c := b.Item.PublishedAt.Compare(a.Item.PublishedAt); c != 0 {
		return c
	}
	return cmp.Compare(a.Item.ID, b.Item.ID)
}
