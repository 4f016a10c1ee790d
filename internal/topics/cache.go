package topics

import (
	"context"
	"fmt"
	"sync"
	"time"

	"NewsLens/internal/domain"
	"NewsLens/internal/metrics"
)

// AliasCache is the in-process surface -> resolution map. It lives for the
// whole process and never evicts.
type AliasCache struct {
	mu      sync.RWMutex
	entries map[string]domain.Resolution
}

// NewAliasCache builds an empty cache.
func NewAliasCache() *AliasCache {
	return &AliasCache{entries: map[string]domain.Resolution{}}
}

// Get returns the cached resolution for a normalized surface.
func (c *AliasCache) Get(surface string) (domain.Resolution, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	res, ok := c.entries[surface]
	return res, ok
}

// Put stores a resolution, replacing any previous one.
func (c *AliasCache) Put(surface string, res domain.Resolution) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[surface] = res
}

// Len reports the number of cached surfaces.
func (c *AliasCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// CanonicalLoader reads every canonical topic from the durable store.
type CanonicalLoader func(ctx context.Context) ([]domain.CanonicalTopic, error)

// DefaultIndexTTL is how long a loaded embedding list is trusted.
const DefaultIndexTTL = 5 * time.Minute

// Match is the nearest canonical topic for an embedding.
type Match struct {
	Canonical  string
	Parent     string
	Similarity float64
}

type indexEntry struct {
	name      string
	parent    string
	embedding []float64
}

// EmbeddingIndex caches the embeddings of all canonical topics. The list is
// reloaded once the TTL expires or after Invalidate; readers between an
// invalidation and the next reload may see the previous list.
type EmbeddingIndex struct {
	load CanonicalLoader
	ttl  time.Duration
	now  func() time.Time

	mu       sync.Mutex
	entries  []indexEntry
	loadedAt time.Time
	loaded   bool
}

// NewEmbeddingIndex wires a loader; ttl <= 0 falls back to DefaultIndexTTL.
func NewEmbeddingIndex(load CanonicalLoader, ttl time.Duration) *EmbeddingIndex {
	if ttl <= 0 {
		ttl = DefaultIndexTTL
	}
	return &EmbeddingIndex{load: load, ttl: ttl, now: time.Now}
}

// Invalidate forces the next lookup to reload from the store.
func (x *EmbeddingIndex) Invalidate() {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.loaded = false
}

// Refresh reloads the canonical list unconditionally.
func (x *EmbeddingIndex) Refresh(ctx context.Context) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.refreshLocked(ctx)
}

func (x *EmbeddingIndex) refreshLocked(ctx context.Context) error {
	topics, err := x.load(ctx)
	if err != nil {
		return fmt.Errorf("load canonical topics: %w", err)
	}

	entries := make([]indexEntry, 0, len(topics))
	for _, t := range topics {
		if len(t.Embedding) == 0 {
			continue
		}
		entries = append(entries, indexEntry{name: t.Name, parent: t.Parent, embedding: t.Embedding})
	}

	x.entries = entries
	x.loadedAt = x.now()
	x.loaded = true
	metrics.EmbeddingIndexRefreshes.Inc()
	return nil
}

func (x *EmbeddingIndex) snapshot(ctx context.Context) ([]indexEntry, error) {
	x.mu.Lock()
	defer x.mu.Unlock()

	if !x.loaded || x.now().Sub(x.loadedAt) >= x.ttl {
		if err := x.refreshLocked(ctx); err != nil {
			return nil, err
		}
	}
	return x.entries, nil
}

// Nearest returns the most similar canonical topic. The boolean is false when
// no canonical topic has an embedding. Ties keep the earlier entry.
func (x *EmbeddingIndex) Nearest(ctx context.Context, vec []float64) (Match, bool, error) {
	entries, err := x.snapshot(ctx)
	if err != nil {
		return Match{}, false, err
	}

	var (
		best  Match
		found bool
	)
	for _, e := range entries {
		sim := CosineSimilarity(vec, e.embedding)
		if !found || sim > best.Similarity {
			best = Match{Canonical: e.name, Parent: e.parent, Similarity: sim}
			found = true
		}
	}
	return best, found, nil
}
