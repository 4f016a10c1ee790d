// Package analysis turns untrusted analysis-service output into bounded item features.
package analysis

import (
	"strings"
	"unicode/utf8"

	"NewsLens/internal/domain"
)

const (
	maxEvidenceTypes = 6
	maxKeyEntities   = 8
	maxGeoTargets    = 5
	maxTopics        = 8
	maxTagRunes      = 40
	maxEntityRunes   = 80
	maxSummaryRunes  = 400
)

// Sanitize clamps every scalar to [0,1], filters evidence types against the
// allow-list, caps list lengths and truncates strings. Missing scalars stay nil.
// Topic tags are lower-cased and deduplicated but not yet canonicalized.
func Sanitize(raw domain.RawAnalysis) domain.Features {
	return domain.Features{
		EvidenceStrength:  clampPtr(raw.EvidenceStrength),
		FactDensity:       clampPtr(raw.FactDensity),
		Uncertainty:       clampPtr(raw.Uncertainty),
		BiasRisk:          clampPtr(raw.BiasRisk),
		Sensationalism:    clampPtr(raw.Sensationalism),
		GeoScope:          clampPtr(raw.GeoScope),
		HarmSeverity:      clampPtr(raw.HarmSeverity),
		PolarizationRisk:  clampPtr(raw.PolarizationRisk),
		TimeCriticality:   clampPtr(raw.TimeCriticality),
		Actionability:     clampPtr(raw.Actionability),
		FollowupPotential: clampPtr(raw.FollowupPotential),

		Genre:         sanitizeGenre(raw.Genre),
		EvidenceTypes: sanitizeEvidence(raw.EvidenceTypes),
		KeyEntities:   sanitizeStrings(raw.KeyEntities, maxKeyEntities),
		GeoTargets:    sanitizeStrings(raw.GeoTargets, maxGeoTargets),
		Topics:        sanitizeTopics(raw.Topics),
		ShortSummary:  truncateRunes(strings.TrimSpace(raw.Summary), maxSummaryRunes),
	}
}

func clampPtr(v *float64) *float64 {
	if v == nil {
		return nil
	}
	x := *v
	switch {
	case x != x: // NaN
		x = 0
	case x < 0:
		x = 0
	case x > 1:
		x = 1
	}
	return &x
}

func sanitizeGenre(s string) domain.Genre {
	g := domain.Genre(strings.ToLower(strings.TrimSpace(s)))
	switch {
	case g == "":
		return ""
	case g.Valid():
		return g
	}
	return domain.GenreOther
}

func sanitizeEvidence(in []string) []domain.EvidenceType {
	seen := make(map[domain.EvidenceType]struct{}, len(in))
	out := make([]domain.EvidenceType, 0, min(len(in), maxEvidenceTypes))
	for _, s := range in {
		e := domain.EvidenceType(strings.ToLower(strings.TrimSpace(s)))
		if !e.Valid() {
			continue
		}
		if _, ok := seen[e]; ok {
			continue
		}
		seen[e] = struct{}{}
		out = append(out, e)
		if len(out) == maxEvidenceTypes {
			break
		}
	}
	return out
}

func sanitizeStrings(in []string, limit int) []string {
	out := make([]string, 0, min(len(in), limit))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		out = append(out, truncateRunes(s, maxEntityRunes))
		if len(out) == limit {
			break
		}
	}
	return out
}

func sanitizeTopics(in []domain.TopicTag) []domain.TopicTag {
	seen := make(map[string]struct{}, len(in))
	out := make([]domain.TopicTag, 0, min(len(in), maxTopics))
	for _, t := range in {
		tag := truncateRunes(strings.ToLower(strings.TrimSpace(t.Tag)), maxTagRunes)
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		score := *clampPtr(&t.Score)
		out = append(out, domain.TopicTag{Tag: tag, Score: score})
		if len(out) == maxTopics {
			break
		}
	}
	return out
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return strings.TrimSpace(string(r[:n]))
}
