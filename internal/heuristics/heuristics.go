// Package heuristics computes the legacy content scores an item gets at ingestion.
package heuristics

import (
	"math"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"NewsLens/internal/domain"
)

const (
	// DefaultSourceWeight is assumed when a source has no declared weight.
	DefaultSourceWeight = 0.8

	recencyHalfLifeHours = 12.0
	titleLengthNorm      = 120.0
	capitalizedNorm      = 6.0
	termNovelty          = 0.02
)

// Input describes the item being scored.
type Input struct {
	Title        string
	Summary      string
	SourceWeight float64
	PublishedAt  time.Time
}

// Evaluate returns all five heuristic scores in [0,1] as of now.
func Evaluate(in Input, now time.Time) domain.Heuristics {
	sw := clamp01(in.SourceWeight)

	hours := math.Max(0, now.Sub(in.PublishedAt).Hours())
	recency := math.Exp(-hours / recencyHalfLifeHours)

	terms := make(map[string]struct{})
	for _, tok := range tokenize(in.Title + " " + in.Summary) {
		terms[tok] = struct{}{}
	}
	novelty := math.Min(1, termNovelty*float64(len(terms)))

	titleLen := float64(utf8.RuneCountInString(in.Title))
	importance := math.Min(1, 0.6*sw+0.3*math.Min(1, titleLen/titleLengthNorm)+0.1*recency)

	caps := float64(capitalizedWords(in.Title))
	prominence := math.Min(1, 0.7*sw+0.3*math.Min(1, caps/capitalizedNorm))

	return domain.Heuristics{
		Importance: domain.Float(importance),
		Hype:       domain.Float(recency),
		Prominence: domain.Float(prominence),
		Novelty:    domain.Float(novelty),
		Quality:    domain.Float(sw),
	}
}

// Fill computes heuristics for an item that arrived without a complete set,
// keeping any score already present.
func Fill(item *domain.Item, now time.Time) {
	if item.Heuristics.Complete() {
		return
	}
	if item.SourceWeight <= 0 {
		item.SourceWeight = DefaultSourceWeight
	}
	h := Evaluate(Input{
		Title:        item.Title,
		Summary:      item.Summary,
		SourceWeight: item.SourceWeight,
		PublishedAt:  item.PublishedAt,
	}, now)

	keep := func(cur, computed *float64) *float64 {
		if cur != nil {
			return cur
		}
		return computed
	}
	item.Heuristics = domain.Heuristics{
		Importance: keep(item.Heuristics.Importance, h.Importance),
		Hype:       keep(item.Heuristics.Hype, h.Hype),
		Prominence: keep(item.Heuristics.Prominence, h.Prominence),
		Novelty:    keep(item.Heuristics.Novelty, h.Novelty),
		Quality:    keep(item.Heuristics.Quality, h.Quality),
	}
}

func tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// capitalizedWords counts words of two or more characters starting with an
// upper-case letter.
func capitalizedWords(title string) int {
	n := 0
	for _, w := range strings.FieldsFunc(title, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '-'
	}) {
		first, size := utf8.DecodeRuneInString(w)
		if unicode.IsUpper(first) && len(w) > size {
			n++
		}
	}
	return n
}

func clamp01(x float64) float64 {
	return math.Max(0, math.Min(1, x))
}
