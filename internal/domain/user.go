package domain

// UserProfile captures everything a user declared explicitly.
type UserProfile struct {
	UserID    int64
	Weights   ScoreWeights
	Interests InterestProfile
	Paused    bool
}

// ScoreWeights are the declared weights for the heuristic scores. They are
// stored and served back to the user; ranking does not read them and always
// uses the unweighted heuristic mean.
type ScoreWeights struct {
	Importance float64 `json:"I"`
	Hype       float64 `json:"H"`
	Prominence float64 `json:"P"`
	Novelty    float64 `json:"N"`
	Quality    float64 `json:"Q"`
}

// DefaultScoreWeights mirrors the weights new users start with.
func DefaultScoreWeights() ScoreWeights {
	return ScoreWeights{Importance: 0.35, Hype: 0.2, Prominence: 0.2, Novelty: 0.15, Quality: 0.1}
}

// InterestProfile lists the topics a user cares about.
type InterestProfile struct {
	Topics []InterestTopic `json:"topics"`
}

// Empty reports whether no interest topics are declared.
func (p InterestProfile) Empty() bool {
	return len(p.Topics) == 0
}

// InterestTopic is a declared interest with its weight in [0,1].
type InterestTopic struct {
	Tag      string   `json:"tag"`
	Weight   float64  `json:"weight"`
	Family   string   `json:"family,omitempty"`
	Synonyms []string `json:"synonyms,omitempty"`
}

// Vote is a user's reaction to an item.
type Vote int

const (
	VoteDown    Vote = -1
	VoteNeutral Vote = 0
	VoteUp      Vote = 1
)

// Valid reports whether v is one of -1, 0, 1.
func (v Vote) Valid() bool {
	return v >= VoteDown && v <= VoteUp
}

// FeedbackRecord is the live vote of one user for one item.
type FeedbackRecord struct {
	UserID int64
	ItemID string
	Vote   Vote
}

// FeedbackEntry is a vote joined with the voted item's analysis features.
type FeedbackEntry struct {
	Vote     Vote
	Features *Features
}
