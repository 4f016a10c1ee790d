// Package profile parses user interest profiles at the system boundary.
//
// One strict document shape is accepted by Parse. Older shapes are converted
// by dedicated adapters, each handling exactly one layout.
package profile

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"

	"NewsLens/internal/domain"
)

// ErrInvalidProfile is returned for documents that do not match the schema.
var ErrInvalidProfile = errors.New("invalid interest profile")

const (
	// DefaultWeight is assigned to interests declared without a weight.
	DefaultWeight = 0.6

	maxTopics   = 24
	maxSynonyms = 8
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Document is the strict wire form of an interest profile.
type Document struct {
	Topics []TopicDocument `json:"topics" validate:"max=24,dive"`
}

// TopicDocument is one declared interest.
type TopicDocument struct {
	Tag      string   `json:"tag" validate:"required,min=2,max=40"`
	Weight   float64  `json:"weight" validate:"gte=0,lte=1"`
	Family   string   `json:"family,omitempty" validate:"max=40"`
	Synonyms []string `json:"synonyms,omitempty" validate:"max=8,dive,required,max=40"`
}

// Parse decodes and validates a profile document. Unknown fields are rejected.
func Parse(data []byte) (domain.InterestProfile, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()

	var doc Document
	if err := dec.Decode(&doc); err != nil {
		return domain.InterestProfile{}, fmt.Errorf("%w: %v", ErrInvalidProfile, err)
	}
	if err := validate.Struct(doc); err != nil {
		return domain.InterestProfile{}, fmt.Errorf("%w: %v", ErrInvalidProfile, err)
	}

	topics := make([]domain.InterestTopic, 0, len(doc.Topics))
	for _, t := range doc.Topics {
		topics = append(topics, domain.InterestTopic{
			Tag:      t.Tag,
			Weight:   t.Weight,
			Family:   t.Family,
			Synonyms: t.Synonyms,
		})
	}
	return Normalize(domain.InterestProfile{Topics: topics}), nil
}

// Encode renders a profile in the strict document form.
func Encode(p domain.InterestProfile) ([]byte, error) {
	doc := Document{Topics: make([]TopicDocument, 0, len(p.Topics))}
	for _, t := range p.Topics {
		doc.Topics = append(doc.Topics, TopicDocument{
			Tag:      t.Tag,
			Weight:   t.Weight,
			Family:   t.Family,
			Synonyms: t.Synonyms,
		})
	}
	return json.Marshal(doc)
}

// FromTagList builds a profile from a plain list of interest tags, each at
// DefaultWeight.
func FromTagList(tags []string) domain.InterestProfile {
	topics := make([]domain.InterestTopic, 0, len(tags))
	for _, tag := range tags {
		topics = append(topics, domain.InterestTopic{Tag: tag, Weight: DefaultWeight})
	}
	return Normalize(domain.InterestProfile{Topics: topics})
}

type legacyDocument struct {
	Interests []struct {
		Name    string   `json:"name"`
		Score   *float64 `json:"score"`
		Aliases []string `json:"aliases"`
	} `json:"interests"`
}

// FromLegacyInterests converts the older {"interests":[{"name","score","aliases"}]}
// layout. A missing score becomes DefaultWeight.
func FromLegacyInterests(data []byte) (domain.InterestProfile, error) {
	var doc legacyDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return domain.InterestProfile{}, fmt.Errorf("%w: %v", ErrInvalidProfile, err)
	}

	topics := make([]domain.InterestTopic, 0, len(doc.Interests))
	for _, it := range doc.Interests {
		w := DefaultWeight
		if it.Score != nil {
			w = *it.Score
		}
		topics = append(topics, domain.InterestTopic{Tag: it.Name, Weight: w, Synonyms: it.Aliases})
	}
	return Normalize(domain.InterestProfile{Topics: topics}), nil
}

// Normalize lower-cases tags and synonyms, drops blanks and duplicates, clamps
// weights and caps list sizes. The first occurrence of a tag wins.
func Normalize(p domain.InterestProfile) domain.InterestProfile {
	seen := make(map[string]struct{}, len(p.Topics))
	out := make([]domain.InterestTopic, 0, min(len(p.Topics), maxTopics))

	for _, t := range p.Topics {
		tag := clean(t.Tag)
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}

		out = append(out, domain.InterestTopic{
			Tag:      tag,
			Weight:   clampWeight(t.Weight),
			Family:   clean(t.Family),
			Synonyms: cleanSynonyms(t.Synonyms, tag),
		})
		if len(out) == maxTopics {
			break
		}
	}
	return domain.InterestProfile{Topics: out}
}

func cleanSynonyms(in []string, tag string) []string {
	if len(in) == 0 {
		return nil
	}
	seen := map[string]struct{}{tag: {}}
	out := make([]string, 0, min(len(in), maxSynonyms))
	for _, s := range in {
		s = clean(s)
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
		if len(out) == maxSynonyms {
			break
		}
	}
	return out
}

func clean(s string) string {
	return strings.ToLower(strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(s), "#")))
}

func clampWeight(w float64) float64 {
	switch {
	case w != w, w < 0:
		return 0
	case w > 1:
		return 1
	}
	return w
}
