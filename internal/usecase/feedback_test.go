package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"NewsLens/internal/domain"
)

func TestFeedbackVote(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newStore(t)
	catalog := NewCatalog(store, store, quietLogger())
	addItem(t, catalog, "a", "Story", baseTime)
	enrich(t, store, "a", domain.TopicTag{Tag: "economy", Score: 1})

	fb := NewFeedback(store, store)
	if err := fb.Vote(ctx, 5, "a", domain.Vote(2)); !errors.Is(err, domain.ErrInvalidVote) {
		t.Fatalf("expected ErrInvalidVote, got %v", err)
	}
	if err := fb.Vote(ctx, 5, "missing", domain.VoteUp); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := fb.Vote(ctx, 5, "a", domain.VoteDown); err != nil {
		t.Fatalf("vote: %v", err)
	}
	entries, err := store.FeedbackEntries(ctx, 5)
	if err != nil || len(entries) != 1 || entries[0].Vote != domain.VoteDown {
		t.Fatalf("entries = %+v, %v", entries, err)
	}

	if err := fb.Undo(ctx, 5, "a"); err != nil {
		t.Fatalf("undo: %v", err)
	}
	if err := fb.Undo(ctx, 5, "a"); err != nil {
		t.Fatalf("second undo: %v", err)
	}
	if entries, _ := store.FeedbackEntries(ctx, 5); len(entries) != 0 {
		t.Fatalf("vote survived undo: %+v", entries)
	}
}

func TestProfilesCanonicalizeInterests(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newStore(t)
	resolver := mapResolver{
		"ai": {Canonical: "artificial intelligence", Family: "technology", Confidence: 0.7},
	}
	p := NewProfiles(store, resolver, quietLogger())

	out, err := p.SetInterests(ctx, 3, domain.InterestProfile{Topics: []domain.InterestTopic{
		{Tag: "AI", Weight: 0.9},
		{Tag: "a.i.", Weight: 0.4},
		{Tag: "Economy", Weight: 1.7},
	}})
	if err != nil {
		t.Fatalf("set interests: %v", err)
	}
	if len(out.Topics) != 2 {
		t.Fatalf("expected duplicates to merge, got %+v", out.Topics)
	}
	ai := out.Topics[0]
	if ai.Tag != "artificial intelligence" || ai.Family != "technology" || ai.Weight != 0.9 || ai.Synonyms[0] != "ai" {
		t.Fatalf("unexpected canonical interest %+v", ai)
	}
	if econ := out.Topics[1]; econ.Tag != "economy" || econ.Weight != 1 || econ.Family != "" {
		t.Fatalf("unexpected interest %+v", econ)
	}

	u, err := p.Get(ctx, 3)
	if err != nil || len(u.Interests.Topics) != 2 {
		t.Fatalf("stored profile = %+v, %v", u, err)
	}

	if err := p.SetPaused(ctx, 3, true); err != nil {
		t.Fatalf("pause: %v", err)
	}
	if err := p.ClearInterests(ctx, 3); err != nil {
		t.Fatalf("clear: %v", err)
	}
	u, err = p.Get(ctx, 3)
	if err != nil || !u.Paused || !u.Interests.Empty() {
		t.Fatalf("after clear = %+v, %v", u, err)
	}

	// Unknown users are created on read with default weights.
	if u, err := p.Get(ctx, 4); err != nil || u.Weights != domain.DefaultScoreWeights() {
		t.Fatalf("new user = %+v, %v", u, err)
	}
}

func TestCatalogAddItem(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newStore(t)
	c := NewCatalog(store, store, quietLogger())

	item, err := c.AddItem(ctx, ItemInput{
		Title:      "<b>Markets</b> rally",
		Summary:    "<p>Stocks rose.</p><script>x()</script>",
		Heuristics: &HeuristicsInput{Importance: domain.Float(0.2)},
	})
	if err != nil {
		t.Fatalf("add item: %v", err)
	}
	if item.ID == "" || item.Title != "Markets rally" || item.Summary != "Stocks rose." {
		t.Fatalf("unexpected item %+v", item)
	}
	if !item.Heuristics.Complete() || *item.Heuristics.Importance != 0.2 || item.PublishedAt.IsZero() {
		t.Fatalf("heuristics not filled: %+v", item.Heuristics)
	}
	if pending, _ := store.Pending(ctx, 10); len(pending) != 1 || pending[0] != item.ID {
		t.Fatalf("item not queued: %v", pending)
	}

	for _, in := range []ItemInput{
		{Title: ""},
		{Title: "<br/>"},
		{Title: "x", URL: "not a url"},
		{Title: "x", SourceWeight: domain.Float(2)},
	} {
		if _, err := c.AddItem(ctx, in); !errors.Is(err, ErrInvalidItem) {
			t.Fatalf("AddItem(%+v) = %v, want ErrInvalidItem", in, err)
		}
	}
}

func TestCatalogImport(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newStore(t)
	c := NewCatalog(store, store, quietLogger())

	payload := `[
		{"id": "n1", "title": "First", "url": "https://example.org/1", "published_at": "2025-03-01T10:00:00Z"},
		{"id": "n2", "title": ""},
		{"id": "n3", "title": "Third", "source_weight": 0.5}
	]`
	added, err := c.Import(ctx, strings.NewReader(payload))
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if added != 2 {
		t.Fatalf("added = %d, want 2", added)
	}

	item, err := store.GetItem(ctx, "n1")
	if err != nil || !item.PublishedAt.Equal(baseTime.Add(-2*time.Hour)) {
		t.Fatalf("n1 = %+v, %v", item, err)
	}
	if _, err := store.GetItem(ctx, "n2"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("invalid item stored: %v", err)
	}

	if _, err := c.Import(ctx, strings.NewReader("{")); err == nil {
		t.Fatalf("expected decode error")
	}
}
