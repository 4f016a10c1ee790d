package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"NewsLens/internal/domain"
)

func TestEnrichmentPass(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newStore(t)
	catalog := NewCatalog(store, store, quietLogger())
	addItem(t, catalog, "ok", "Chip export rules", baseTime)
	addItem(t, catalog, "bad", "broken feed entry", baseTime)

	analyzer := &stubAnalyzer{byHead: map[string]domain.RawAnalysis{
		"Chip export rules": {
			EvidenceStrength: domain.Float(1.4),
			Genre:            "hard_news",
			Topics: []domain.TopicTag{
				{Tag: "AI", Score: 0.9},
				{Tag: "  ", Score: 0.5},
				{Tag: "Trade", Score: 0.4},
			},
		},
	}}
	resolver := mapResolver{
		"ai": {Canonical: "artificial intelligence", Family: "technology", Confidence: 0.9},
	}

	e := NewEnrichment(EnrichmentDeps{
		Items:    store,
		Queue:    store,
		Analyzer: analyzer,
		Topics:   resolver,
		Logger:   quietLogger(),
	}, EnrichmentOptions{Concurrency: 4, BatchLimit: 10})

	report, err := e.RunPass(ctx)
	if err != nil {
		t.Fatalf("run pass: %v", err)
	}
	if report.RunID == "" || report.Queued != 2 || report.Enriched != 1 || report.Failed != 1 ||
		report.Backlog != 1 || report.Retrying != 1 {
		t.Fatalf("unexpected report %+v", report)
	}

	item, err := store.GetItem(ctx, "ok")
	if err != nil {
		t.Fatalf("get item: %v", err)
	}
	if !item.Enriched() || *item.Features.EvidenceStrength != 1 || item.Features.Genre != domain.GenreHardNews {
		t.Fatalf("features not sanitized: %+v", item.Features)
	}
	tags := item.Tags()
	if len(tags) != 2 || tags[0].Tag != "artificial intelligence" || tags[0].Family != "technology" || tags[1].Tag != "trade" {
		t.Fatalf("topics not canonicalized: %+v", tags)
	}

	pending, err := store.Pending(ctx, 10)
	if err != nil || len(pending) != 1 || pending[0] != "bad" {
		t.Fatalf("pending after pass = %v, %v", pending, err)
	}

	// The second pass retries only the failed item.
	report, err = e.RunPass(ctx)
	if err != nil || report.Queued != 1 || report.Failed != 1 {
		t.Fatalf("second pass = %+v, %v", report, err)
	}
	if analyzer.Calls() != 3 {
		t.Fatalf("analyzer calls = %d, want 3", analyzer.Calls())
	}
}

func TestEnrichItemSkipsEnrichedItems(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newStore(t)
	catalog := NewCatalog(store, store, quietLogger())
	addItem(t, catalog, "done", "Already analyzed", baseTime)
	enrich(t, store, "done")
	if err := store.Enqueue(ctx, "done"); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	analyzer := &stubAnalyzer{}
	e := NewEnrichment(EnrichmentDeps{Items: store, Queue: store, Analyzer: analyzer, Logger: quietLogger()},
		EnrichmentOptions{Concurrency: 1, BatchLimit: 10})

	created, err := e.EnrichItem(ctx, "done")
	if err != nil || created {
		t.Fatalf("enrich = %v, %v", created, err)
	}
	if analyzer.Calls() != 0 {
		t.Fatalf("enriched item was analyzed again")
	}
	if pending, _ := store.Pending(ctx, 10); len(pending) != 0 {
		t.Fatalf("queue not drained: %v", pending)
	}
}

func TestEnrichmentRequeuesWindow(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newStore(t)
	catalog := NewCatalog(store, store, quietLogger())
	addItem(t, catalog, "recent", "Recent story", baseTime)
	addItem(t, catalog, "stale", "Stale story", baseTime.Add(-72*time.Hour))
	for _, id := range []string{"recent", "stale"} {
		if err := store.Complete(ctx, id); err != nil {
			t.Fatalf("complete: %v", err)
		}
	}

	e := NewEnrichment(EnrichmentDeps{Items: store, Queue: store, Analyzer: &stubAnalyzer{}, Logger: quietLogger()},
		EnrichmentOptions{Concurrency: 2, BatchLimit: 10, Window: 48 * time.Hour})
	e.now = func() time.Time { return baseTime }

	report, err := e.RunPass(ctx)
	if err != nil {
		t.Fatalf("run pass: %v", err)
	}
	if report.Queued != 1 || report.Enriched != 1 {
		t.Fatalf("unexpected report %+v", report)
	}
	if item, _ := store.GetItem(ctx, "stale"); item.Enriched() {
		t.Fatalf("item outside the window was enriched")
	}
}

func TestEnrichmentWithoutAnalyzer(t *testing.T) {
	t.Parallel()

	store := newStore(t)
	e := NewEnrichment(EnrichmentDeps{Items: store, Queue: store}, EnrichmentOptions{})
	if _, err := e.RunPass(context.Background()); !errors.Is(err, ErrAnalyzerUnavailable) {
		t.Fatalf("expected ErrAnalyzerUnavailable, got %v", err)
	}
}
