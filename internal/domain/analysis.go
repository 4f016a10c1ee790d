package domain

// RawAnalysis is the unsanitized analysis-service response.
type RawAnalysis struct {
	EvidenceStrength  *float64 `json:"evidence_strength"`
	FactDensity       *float64 `json:"fact_density"`
	Uncertainty       *float64 `json:"uncertainty"`
	BiasRisk          *float64 `json:"bias_risk"`
	Sensationalism    *float64 `json:"sensationalism"`
	GeoScope          *float64 `json:"geo_scope_score"`
	HarmSeverity      *float64 `json:"harm_severity"`
	PolarizationRisk  *float64 `json:"polarization_risk"`
	TimeCriticality   *float64 `json:"time_criticality"`
	Actionability     *float64 `json:"actionability"`
	FollowupPotential *float64 `json:"followup_potential"`

	Genre         string     `json:"genre"`
	EvidenceTypes []string   `json:"evidence_types"`
	KeyEntities   []string   `json:"key_entities"`
	GeoTargets    []string   `json:"geo_targets"`
	Topics        []TopicTag `json:"topics"`
	Summary       string     `json:"summary_2sents"`
}
