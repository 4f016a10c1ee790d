package ranking

import (
	"slices"

	"NewsLens/internal/domain"
)

const (
	enrichedBaseScale   = 0.2
	feedbackTopicShare  = 0.6
	feedbackLatentShare = 0.4
)

// Weights combine the signals into the final score.
type Weights struct {
	Profile  float64
	Quality  float64
	Feedback float64
	Base     float64
}

// DefaultWeights returns the production weights.
func DefaultWeights() Weights {
	return Weights{Profile: 0.8, Quality: 0.6, Feedback: 0.2, Base: 0.05}
}

// Signals are the per-user inputs of a ranking request.
type Signals struct {
	Interests  []domain.InterestTopic
	Preference PreferenceVector
	// Latent is the user's learned preference for high-quality items, in [-1,1].
	Latent float64
}

// Engine scores and selects candidates. It is safe for concurrent use.
type Engine struct {
	weights   Weights
	diversity DiversityConfig
}

// NewEngine builds an engine with fixed weights and diversity settings.
func NewEngine(weights Weights, diversity DiversityConfig) *Engine {
	return &Engine{weights: weights, diversity: diversity}
}

// ScoreItem computes all derived signals for one item.
func (e *Engine) ScoreItem(item domain.Item, s Signals) domain.RankedCandidate {
	tags := item.Tags()
	quality := QualityComposite(item.Features)
	profile := ProfileRelevance(tags, s.Interests)

	feedback := feedbackTopicShare*FeedbackRelevance(tags, s.Preference) +
		feedbackLatentShare*(clamp(s.Latent, -1, 1)*(quality-0.5))

	scale := 1.0
	if item.Enriched() {
		scale = enrichedBaseScale
	}
	base := BaseHeuristic(item.Heuristics) * scale

	final := e.weights.Profile*profile +
		e.weights.Quality*quality +
		e.weights.Feedback*feedback +
		e.weights.Base*base

	return domain.RankedCandidate{
		Item:               item,
		ProfileRelevance:   profile,
		QualityComposite:   quality,
		FeedbackAdjustment: feedback,
		BaseTerm:           base,
		FinalScore:         final,
	}
}

// Score ranks all items, best first.
func (e *Engine) Score(items []domain.Item, s Signals) []domain.RankedCandidate {
	out := make([]domain.RankedCandidate, 0, len(items))
	for _, it := range items {
		out = append(out, e.ScoreItem(it, s))
	}
	slices.SortStableFunc(out, compareCandidates)
	return out
}

// Diversifies reports whether Rank would apply topic quotas for these signals.
func (e *Engine) Diversifies(s Signals, limit int) bool {
	return e.diversity.Enabled && limit > 1 && len(TopTopics(s.Interests, e.diversity.TopK)) > 0
}

// Rank scores items and returns up to limit of them, diversified across the
// user's interests when applicable.
func (e *Engine) Rank(items []domain.Item, s Signals, limit int) []domain.RankedCandidate {
	scored := e.Score(items, s)
	return Diversify(scored, s.Interests, limit, e.diversity)
}
