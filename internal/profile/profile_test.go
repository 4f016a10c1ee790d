package profile

import (
	"errors"
	"testing"
)

func TestParseStrictDocument(t *testing.T) {
	t.Parallel()

	p, err := Parse([]byte(`{"topics":[
		{"tag":"Economy","weight":0.9,"synonyms":["Markets","economy"]},
		{"tag":"#AI","weight":0.5,"family":"Technology"},
		{"tag":"economy","weight":0.1}
	]}`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if len(p.Topics) != 2 {
		t.Fatalf("expected duplicates dropped, got %+v", p.Topics)
	}
	first := p.Topics[0]
	if first.Tag != "economy" || first.Weight != 0.9 || len(first.Synonyms) != 1 || first.Synonyms[0] != "markets" {
		t.Fatalf("unexpected first topic: %+v", first)
	}
	if p.Topics[1].Tag != "ai" || p.Topics[1].Family != "technology" {
		t.Fatalf("unexpected second topic: %+v", p.Topics[1])
	}
}

func TestParseRejectsInvalid(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"unknown field":    `{"topics":[],"entities":{}}`,
		"unknown in topic": `{"topics":[{"tag":"ai","weight":0.5,"score":1}]}`,
		"weight too high":  `{"topics":[{"tag":"ai","weight":1.5}]}`,
		"missing tag":      `{"topics":[{"weight":0.5}]}`,
		"short tag":        `{"topics":[{"tag":"a","weight":0.5}]}`,
		"not json":         `topics: ai`,
		"wrong type":       `{"topics":"ai"}`,
	}

	for name, body := range cases {
		if _, err := Parse([]byte(body)); !errors.Is(err, ErrInvalidProfile) {
			t.Fatalf("%s: expected ErrInvalidProfile, got %v", name, err)
		}
	}
}

func TestEncodeRoundTrip(t *testing.T) {
	t.Parallel()

	in := FromTagList([]string{"Science", "space"})
	data, err := Encode(in)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	out, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse encoded profile: %v", err)
	}
	if len(out.Topics) != 2 || out.Topics[0].Tag != "science" || out.Topics[1].Weight != DefaultWeight {
		t.Fatalf("unexpected profile after round trip: %+v", out)
	}
}

func TestFromTagList(t *testing.T) {
	t.Parallel()

	p := FromTagList([]string{"Sports", " ", "sports", "#Music"})
	if len(p.Topics) != 2 || p.Topics[0].Tag != "sports" || p.Topics[1].Tag != "music" {
		t.Fatalf("unexpected topics: %+v", p.Topics)
	}
	if p.Topics[0].Weight != DefaultWeight {
		t.Fatalf("expected default weight, got %f", p.Topics[0].Weight)
	}
}

func TestFromLegacyInterests(t *testing.T) {
	t.Parallel()

	p, err := FromLegacyInterests([]byte(`{"interests":[
		{"name":"Esports","score":1.4,"aliases":["e-sports","Esports"]},
		{"name":"Cinema"}
	]}`))
	if err != nil {
		t.Fatalf("FromLegacyInterests: %v", err)
	}
	if len(p.Topics) != 2 {
		t.Fatalf("unexpected topics: %+v", p.Topics)
	}
	if p.Topics[0].Weight != 1 || len(p.Topics[0].Synonyms) != 1 || p.Topics[0].Synonyms[0] != "e-sports" {
		t.Fatalf("unexpected first topic: %+v", p.Topics[0])
	}
	if p.Topics[1].Weight != DefaultWeight {
		t.Fatalf("missing score should default, got %f", p.Topics[1].Weight)
	}

	if _, err := FromLegacyInterests([]byte(`[`)); !errors.Is(err, ErrInvalidProfile) {
		t.Fatalf("expected ErrInvalidProfile, got %v", err)
	}
}
