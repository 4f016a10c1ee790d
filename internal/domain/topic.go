package domain

import "time"

// CanonicalTopic is one entry of the controlled topic vocabulary.
type CanonicalTopic struct {
	Name      string
	Parent    string
	Embedding []float64
	Aliases   []string
	UpdatedAt time.Time
}

// Family returns the parent topic or the topic itself.
func (c CanonicalTopic) Family() string {
	if c.Parent != "" {
		return c.Parent
	}
	return c.Name
}

// AliasMapping maps a normalized surface form to a canonical topic.
type AliasMapping struct {
	Alias      string
	Canonical  string
	Confidence float64
}

// Resolution is the outcome of canonicalizing one surface tag.
type Resolution struct {
	Canonical  string
	Family     string
	Confidence float64
}

// Disambiguation is the LLM proposal for an unknown tag.
type Disambiguation struct {
	Canonical string   `json:"canonical"`
	Parent    string   `json:"parent"`
	Synonyms  []string `json:"synonyms"`
}
