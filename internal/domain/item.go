package domain

import "time"

// Genre enumerates the editorial form reported by the analysis service.
type Genre string

const (
	GenreHardNews     Genre = "hard_news"
	GenreLiveUpdate   Genre = "live_update"
	GenreAnalysis     Genre = "analysis"
	GenreOpinion      Genre = "opinion"
	GenreInterview    Genre = "interview"
	GenrePressRelease Genre = "press_release"
	GenreFeature      Genre = "feature"
	GenreOther        Genre = "other"
)

// Valid reports whether g is one of the known genres.
func (g Genre) Valid() bool {
	switch g {
	case GenreHardNews, GenreLiveUpdate, GenreAnalysis, GenreOpinion,
		GenreInterview, GenrePressRelease, GenreFeature, GenreOther:
		return true
	}
	return false
}

// EvidenceType names a kind of source backing an item's claims.
type EvidenceType string

const (
	EvidenceOfficial   EvidenceType = "official"
	EvidenceCompany    EvidenceType = "company"
	EvidenceCourt      EvidenceType = "court"
	EvidenceAcademic   EvidenceType = "academic"
	EvidenceDataset    EvidenceType = "dataset"
	EvidenceEyewitness EvidenceType = "eyewitness"
	EvidenceLeak       EvidenceType = "leak"
	EvidenceMedia      EvidenceType = "media"
	EvidenceUnknown    EvidenceType = "unknown"
)

// Valid reports whether e is on the evidence allow-list.
func (e EvidenceType) Valid() bool {
	switch e {
	case EvidenceOfficial, EvidenceCompany, EvidenceCourt, EvidenceAcademic,
		EvidenceDataset, EvidenceEyewitness, EvidenceLeak, EvidenceMedia, EvidenceUnknown:
		return true
	}
	return false
}

// Item is a single ingested piece of content.
type Item struct {
	ID           string
	URL          string
	Source       string
	Title        string
	Summary      string
	PublishedAt  time.Time
	SourceWeight float64
	Heuristics   Heuristics
	// Features is nil until enrichment has run for the item.
	Features *Features
}

// Enriched reports whether analysis features were attached.
func (i Item) Enriched() bool {
	return i.Features != nil
}

// Tags returns the item's canonical topic tags, if any.
func (i Item) Tags() []TopicTag {
	if i.Features == nil {
		return nil
	}
	return i.Features.Topics
}

// Heuristics holds the legacy content scores computed at ingestion, each in [0,1].
type Heuristics struct {
	Importance *float64
	Hype       *float64
	Prominence *float64
	Novelty    *float64
	Quality    *float64
}

// Complete reports whether all five scores are set.
func (h Heuristics) Complete() bool {
	return h.Importance != nil && h.Hype != nil && h.Prominence != nil &&
		h.Novelty != nil && h.Quality != nil
}

// Features are the analysis-service outputs attached to an item.
type Features struct {
	EvidenceStrength  *float64
	FactDensity       *float64
	Uncertainty       *float64
	BiasRisk          *float64
	Sensationalism    *float64
	GeoScope          *float64
	HarmSeverity      *float64
	PolarizationRisk  *float64
	TimeCriticality   *float64
	Actionability     *float64
	FollowupPotential *float64

	Genre         Genre
	EvidenceTypes []EvidenceType
	KeyEntities   []string
	GeoTargets    []string
	Topics        []TopicTag
	ShortSummary  string
}

// Positive returns the quality-raising signals in a fixed order.
func (f *Features) Positive() []*float64 {
	return []*float64{
		f.EvidenceStrength, f.FactDensity, f.Actionability,
		f.TimeCriticality, f.HarmSeverity, f.GeoScope,
	}
}

// Negative returns the quality-lowering signals in a fixed order.
func (f *Features) Negative() []*float64 {
	return []*float64{f.Uncertainty, f.Sensationalism, f.BiasRisk, f.PolarizationRisk}
}

// TopicTag is a canonical topic attached to an item with its relevance score.
type TopicTag struct {
	Tag    string  `json:"tag"`
	Score  float64 `json:"score"`
	Family string  `json:"family,omitempty"`
}

// FamilyOrSelf returns the family, defaulting to the tag itself.
func (t TopicTag) FamilyOrSelf() string {
	if t.Family != "" {
		return t.Family
	}
	return t.Tag
}

// Float returns a pointer to v, for optional score fields.
func Float(v float64) *float64 {
	return &v
}
