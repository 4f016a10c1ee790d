package topics

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"NewsLens/internal/domain"
)

func TestAliasCacheConcurrentAccess(t *testing.T) {
	t.Parallel()

	cache := NewAliasCache()
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			cache.Put("ai", domain.Resolution{Canonical: "artificial intelligence", Family: "technology", Confidence: 0.7})
			cache.Get("ai")
		}()
	}
	wg.Wait()

	res, ok := cache.Get("ai")
	if !ok || res.Canonical != "artificial intelligence" {
		t.Fatalf("unexpected cache entry: %+v ok=%v", res, ok)
	}
	if cache.Len() != 1 {
		t.Fatalf("expected 1 entry, got %d", cache.Len())
	}
}

func TestEmbeddingIndexTTL(t *testing.T) {
	t.Parallel()

	loads := 0
	idx := NewEmbeddingIndex(func(context.Context) ([]domain.CanonicalTopic, error) {
		loads++
		return []domain.CanonicalTopic{
			{Name: "economy", Embedding: []float64{1, 0}},
			{Name: "no vector"},
		}, nil
	}, time.Minute)

	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	idx.now = func() time.Time { return now }

	ctx := context.Background()
	if _, _, err := idx.Nearest(ctx, []float64{1, 0}); err != nil {
		t.Fatalf("Nearest: %v", err)
	}
	if _, _, err := idx.Nearest(ctx, []float64{1, 0}); err != nil {
		t.Fatalf("Nearest: %v", err)
	}
	if loads != 1 {
		t.Fatalf("expected 1 load within TTL, got %d", loads)
	}

	now = now.Add(2 * time.Minute)
	if _, _, err := idx.Nearest(ctx, []float64{1, 0}); err != nil {
		t.Fatalf("Nearest: %v", err)
	}
	if loads != 2 {
		t.Fatalf("expected reload after TTL, got %d loads", loads)
	}

	idx.Invalidate()
	if _, _, err := idx.Nearest(ctx, []float64{1, 0}); err != nil {
		t.Fatalf("Nearest: %v", err)
	}
	if loads != 3 {
		t.Fatalf("expected reload after Invalidate, got %d loads", loads)
	}
}

func TestEmbeddingIndexNearest(t *testing.T) {
	t.Parallel()

	idx := NewEmbeddingIndex(func(context.Context) ([]domain.CanonicalTopic, error) {
		return []domain.CanonicalTopic{
			{Name: "sports", Embedding: []float64{0, 1}},
			{Name: "inflation", Parent: "economy", Embedding: []float64{1, 0}},
			{Name: "inflation twin", Embedding: []float64{1, 0}},
		}, nil
	}, 0)

	match, found, err := idx.Nearest(context.Background(), []float64{0.9, 0.1})
	if err != nil || !found {
		t.Fatalf("expected a match, err=%v found=%v", err, found)
	}
	if match.Canonical != "inflation" || match.Parent != "economy" {
		t.Fatalf("expected first of tied entries, got %+v", match)
	}
}

func TestEmbeddingIndexEmptyAndError(t *testing.T) {
	t.Parallel()

	empty := NewEmbeddingIndex(func(context.Context) ([]domain.CanonicalTopic, error) {
		return []domain.CanonicalTopic{{Name: "plain"}}, nil
	}, 0)
	if _, found, err := empty.Nearest(context.Background(), []float64{1}); err != nil || found {
		t.Fatalf("expected no match without embeddings, found=%v err=%v", found, err)
	}

	failing := NewEmbeddingIndex(func(context.Context) ([]domain.CanonicalTopic, error) {
		return nil, errors.New("db down")
	}, 0)
	if _, _, err := failing.Nearest(context.Background(), []float64{1}); err == nil {
		t.Fatal("expected load error")
	}
}
