package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"NewsLens/internal/domain"
)

const disambiguationPrompt = `You maintain a controlled vocabulary of news topics.
Given a raw topic tag, return the canonical topic name it belongs to, an optional broader parent topic, and up to 8 common synonyms.
Use short lower-case names without hashtags. Leave parent empty when the topic has no natural broader category.
Answer with JSON only.`

const analysisPrompt = `You are a news analyst. Judge the item only by its title and short description.
Score every numeric field from 0 to 1. Return up to 8 short topic tags without hashtags or duplicates, each with a relevance score from 0 to 1.
Answer with JSON only.`

var disambiguationSchema = jsonSchema{
	Name:   "TopicDisambiguation",
	Strict: true,
	Schema: map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"canonical": map[string]any{"type": "string", "minLength": 1, "maxLength": 60},
			"parent":    map[string]any{"type": "string", "maxLength": 60},
			"synonyms": map[string]any{
				"type": "array", "maxItems": 8,
				"items": map[string]any{"type": "string"},
			},
		},
		"required": []string{"canonical", "parent", "synonyms"},
	},
}

// Disambiguate asks the model for a canonical name, parent and synonyms.
// A response without a canonical name is an error.
func (c *Client) Disambiguate(ctx context.Context, tag string) (domain.Disambiguation, error) {
	var out domain.Disambiguation
	if err := c.complete(ctx, disambiguationPrompt, "Tag: "+tag, disambiguationSchema, &out); err != nil {
		return domain.Disambiguation{}, fmt.Errorf("disambiguate %q: %w", tag, err)
	}
	if strings.TrimSpace(out.Canonical) == "" {
		return domain.Disambiguation{}, fmt.Errorf("disambiguate %q: %w", tag, errors.New("empty canonical"))
	}
	return out, nil
}

func unitNumber() map[string]any {
	return map[string]any{"type": "number", "minimum": 0, "maximum": 1}
}

func stringArray(maxItems int, enum ...string) map[string]any {
	items := map[string]any{"type": "string"}
	if len(enum) > 0 {
		items["enum"] = enum
	}
	return map[string]any{"type": "array", "maxItems": maxItems, "items": items}
}

var scalarFields = []string{
	"evidence_strength", "fact_density", "uncertainty", "bias_risk", "sensationalism",
	"geo_scope_score", "harm_severity", "polarization_risk", "time_criticality",
	"actionability", "followup_potential",
}

var analysisSchema = func() jsonSchema {
	props := map[string]any{
		"genre": map[string]any{"type": "string", "enum": []string{
			"hard_news", "live_update", "analysis", "opinion", "interview", "press_release", "feature", "other",
		}},
		"evidence_types": stringArray(6,
			"official", "company", "court", "academic", "dataset", "eyewitness", "leak", "media", "unknown"),
		"key_entities": stringArray(8),
		"geo_targets":  stringArray(5),
		"topics": map[string]any{
			"type": "array", "maxItems": 8,
			"items": map[string]any{
				"type":                 "object",
				"additionalProperties": false,
				"properties": map[string]any{
					"tag":   map[string]any{"type": "string", "minLength": 2, "maxLength": 40},
					"score": unitNumber(),
				},
				"required": []string{"tag", "score"},
			},
		},
		"summary_2sents": map[string]any{"type": "string", "maxLength": 400},
	}
	required := []string{"genre", "evidence_types", "key_entities", "geo_targets", "topics", "summary_2sents"}
	for _, f := range scalarFields {
		props[f] = unitNumber()
		required = append(required, f)
	}

	return jsonSchema{
		Name:   "NewsItemFeatures",
		Strict: true,
		Schema: map[string]any{
			"type":                 "object",
			"additionalProperties": false,
			"properties":           props,
			"required":             required,
		},
	}
}()

// Analyze extracts item features with the chat model. It is used when no
// dedicated analysis service is configured.
func (c *Client) Analyze(ctx context.Context, title, summary string) (domain.RawAnalysis, error) {
	user := "Title: " + title + "\nDescription: " + summary

	var out domain.RawAnalysis
	system := analysisPrompt
	if c != nil {
		system = safePrompt(c.systemPrompt, analysisPrompt)
	}
	if err := c.complete(ctx, system, user, analysisSchema, &out); err != nil {
		return domain.RawAnalysis{}, fmt.Errorf("analyze: %w", err)
	}
	return out, nil
}
