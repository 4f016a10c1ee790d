package usecase

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"NewsLens/internal/domain"
	"NewsLens/internal/infrastructure/storage"
	"NewsLens/internal/topics"
)

var baseTime = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func newStore(t *testing.T) *storage.Store {
	t.Helper()

	dsn := "file:" + filepath.Join(t.TempDir(), "usecase.db") + "?_foreign_keys=on"
	s, err := storage.Open(context.Background(), "sqlite3", dsn)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// stubAnalyzer answers from a table keyed by title and fails for titles
// containing "broken".
type stubAnalyzer struct {
	mu     sync.Mutex
	calls  int
	byHead map[string]domain.RawAnalysis
}

func (s *stubAnalyzer) Analyze(_ context.Context, title, _ string) (domain.RawAnalysis, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()

	if strings.Contains(title, "broken") {
		return domain.RawAnalysis{}, errors.New("analysis timeout")
	}
	return s.byHead[title], nil
}

func (s *stubAnalyzer) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// mapResolver canonicalizes through a fixed table; unknown tags map to their
// normalized form.
type mapResolver map[string]domain.Resolution

func (m mapResolver) Resolve(_ context.Context, tag string) domain.Resolution {
	surface := topics.Normalize(tag)
	if surface == "" {
		return domain.Resolution{}
	}
	if res, ok := m[surface]; ok {
		return res
	}
	return domain.Resolution{Canonical: surface, Family: surface, Confidence: 0.3}
}

func (m mapResolver) ResolveBatch(ctx context.Context, tags []domain.TopicTag) []domain.TopicTag {
	out := make([]domain.TopicTag, 0, len(tags))
	for _, t := range tags {
		res := m.Resolve(ctx, t.Tag)
		if res.Canonical == "" {
			continue
		}
		out = append(out, domain.TopicTag{Tag: res.Canonical, Score: t.Score, Family: res.Family})
	}
	return out
}

func addItem(t *testing.T, c *Catalog, id, title string, published time.Time) {
	t.Helper()

	if _, err := c.AddItem(context.Background(), ItemInput{ID: id, Title: title, PublishedAt: published}); err != nil {
		t.Fatalf("add item %s: %v", id, err)
	}
}

func enrich(t *testing.T, s *storage.Store, id string, tags ...domain.TopicTag) {
	t.Helper()

	if _, err := s.SaveFeatures(context.Background(), id, domain.Features{
		EvidenceStrength: domain.Float(0.8),
		FactDensity:      domain.Float(0.8),
		Topics:           tags,
	}); err != nil {
		t.Fatalf("save features %s: %v", id, err)
	}
	if err := s.Complete(context.Background(), id); err != nil {
		t.Fatalf("complete %s: %v", id, err)
	}
}
