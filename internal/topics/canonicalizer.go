package topics

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"NewsLens/internal/domain"
	"NewsLens/internal/metrics"
	"NewsLens/internal/ports"
)

const (
	confidenceStoredDefault = 0.9
	confidenceDisambiguated = 0.7
	confidenceFallback      = 0.3
	confidenceSelf          = 1.0
	maxSynonyms             = 8

	// DefaultResolveTimeout bounds one shared resolution flight.
	DefaultResolveTimeout = time.Minute
)

// Config tunes the resolution pipeline.
type Config struct {
	// SimilarityThreshold is the minimum cosine similarity to reuse a canonical topic.
	SimilarityThreshold float64
	// VocabularyCap stops LLM disambiguation once the vocabulary grows past it.
	VocabularyCap int
	// Disambiguation enables the LLM fallback.
	Disambiguation bool
	// SynonymConfidence is stored for synonyms proposed by the LLM.
	SynonymConfidence float64
	// ResolveTimeout bounds the external calls of one shared flight. The flight
	// does not inherit the cancellation of whichever caller started it.
	ResolveTimeout time.Duration
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		SimilarityThreshold: 0.82,
		VocabularyCap:       5000,
		Disambiguation:      true,
		SynonymConfidence:   0.6,
		ResolveTimeout:      DefaultResolveTimeout,
	}
}

// Deps are the collaborators of a Canonicalizer. Embedder and Disambiguator may
// be nil, in which case the corresponding step is skipped.
type Deps struct {
	Store         ports.TopicRepository
	Embedder      ports.Embedder
	Disambiguator ports.Disambiguator
	Aliases       *AliasCache
	Index         *EmbeddingIndex
	Logger        *slog.Logger
}

// Canonicalizer resolves surface tags to canonical topics.
type Canonicalizer struct {
	store         ports.TopicRepository
	embedder      ports.Embedder
	disambiguator ports.Disambiguator
	aliases       *AliasCache
	index         *EmbeddingIndex
	cfg           Config
	logger        *slog.Logger
	flights       singleflight.Group
}

// New builds a Canonicalizer, creating an empty alias cache and a store-backed
// embedding index when none are supplied.
func New(deps Deps, cfg Config) *Canonicalizer {
	c := &Canonicalizer{
		store:         deps.Store,
		embedder:      deps.Embedder,
		disambiguator: deps.Disambiguator,
		aliases:       deps.Aliases,
		index:         deps.Index,
		cfg:           cfg,
		logger:        deps.Logger,
	}
	if c.aliases == nil {
		c.aliases = NewAliasCache()
	}
	if c.index == nil {
		c.index = NewEmbeddingIndex(deps.Store.ListCanonicals, DefaultIndexTTL)
	}
	if c.logger == nil {
		c.logger = slog.New(slog.DiscardHandler)
	}
	if c.cfg.ResolveTimeout <= 0 {
		c.cfg.ResolveTimeout = DefaultResolveTimeout
	}
	return c
}

// Index exposes the embedding index so callers can refresh it explicitly.
func (c *Canonicalizer) Index() *EmbeddingIndex {
	return c.index
}

// Resolve maps a surface tag to its canonical topic. It never fails: external
// errors degrade to the normalized surface with low confidence.
func (c *Canonicalizer) Resolve(ctx context.Context, tag string) domain.Resolution {
	surface := Normalize(tag)
	if surface == "" {
		metrics.TopicResolutions.WithLabelValues(metrics.PathEmpty).Inc()
		return domain.Resolution{}
	}

	if res, ok := c.aliases.Get(surface); ok {
		metrics.TopicResolutions.WithLabelValues(metrics.PathMemory).Inc()
		return res
	}

	ch := c.flights.DoChan(surface, func() (any, error) {
		flightCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.cfg.ResolveTimeout)
		defer cancel()
		return c.resolveMiss(flightCtx, surface), nil
	})
	select {
	case r := <-ch:
		return r.Val.(domain.Resolution)
	case <-ctx.Done():
		// The flight keeps running for other waiters and fills the cache.
		return c.fallback(surface, false)
	}
}

// ResolveBatch canonicalizes a list of tags, resolving each distinct surface
// once. Output keeps input order and scores; tags that normalize to nothing
// are dropped.
func (c *Canonicalizer) ResolveBatch(ctx context.Context, tags []domain.TopicTag) []domain.TopicTag {
	surfaces := make([]string, len(tags))
	resolved := make(map[string]domain.Resolution, len(tags))

	for i, t := range tags {
		s := Normalize(t.Tag)
		surfaces[i] = s
		if s == "" {
			continue
		}
		if _, ok := resolved[s]; !ok {
			resolved[s] = c.Resolve(ctx, s)
		}
	}

	out := make([]domain.TopicTag, 0, len(tags))
	for i, t := range tags {
		res, ok := resolved[surfaces[i]]
		if !ok || res.Canonical == "" {
			continue
		}
		out = append(out, domain.TopicTag{Tag: res.Canonical, Score: t.Score, Family: res.Family})
	}
	return out
}

func (c *Canonicalizer) resolveMiss(ctx context.Context, surface string) domain.Resolution {
	// A concurrent flight may have filled the cache since the first check.
	if res, ok := c.aliases.Get(surface); ok {
		return res
	}

	if res, ok := c.lookupStored(ctx, surface); ok {
		c.remember(surface, res)
		metrics.TopicResolutions.WithLabelValues(metrics.PathStore).Inc()
		return res
	}

	embedding, res, ok := c.matchByEmbedding(ctx, surface)
	if ok {
		c.remember(surface, res)
		metrics.TopicResolutions.WithLabelValues(metrics.PathEmbedding).Inc()
		return res
	}

	return c.disambiguate(ctx, surface, embedding)
}

func (c *Canonicalizer) lookupStored(ctx context.Context, surface string) (domain.Resolution, bool) {
	mapping, err := c.store.GetAlias(ctx, surface)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			c.logger.Warn("alias lookup failed", "surface", surface, "error", err)
		}
		return domain.Resolution{}, false
	}
	if mapping.Canonical == "" {
		return domain.Resolution{}, false
	}

	family := mapping.Canonical
	if topic, err := c.store.GetCanonical(ctx, mapping.Canonical); err == nil {
		family = topic.Family()
	} else if !errors.Is(err, domain.ErrNotFound) {
		c.logger.Warn("canonical lookup failed", "canonical", mapping.Canonical, "error", err)
	}

	confidence := mapping.Confidence
	if confidence <= 0 {
		confidence = confidenceStoredDefault
	}

	return domain.Resolution{
		Canonical:  mapping.Canonical,
		Family:     family,
		Confidence: clamp01(confidence),
	}, true
}

// matchByEmbedding returns the surface embedding (nil when unavailable) and,
// if a canonical topic is close enough, its resolution.
func (c *Canonicalizer) matchByEmbedding(ctx context.Context, surface string) ([]float64, domain.Resolution, bool) {
	embedding := c.embed(ctx, surface)
	if embedding == nil {
		return nil, domain.Resolution{}, false
	}

	match, found, err := c.index.Nearest(ctx, embedding)
	if err != nil {
		c.logger.Warn("embedding index unavailable", "surface", surface, "error", err)
		return embedding, domain.Resolution{}, false
	}
	if !found || match.Similarity < c.cfg.SimilarityThreshold {
		c.logger.Debug("no close canonical topic", "surface", surface,
			"best", match.Canonical, "similarity", match.Similarity)
		return embedding, domain.Resolution{}, false
	}

	confidence := clamp01(match.Similarity)
	err = c.store.PutAlias(ctx, domain.AliasMapping{
		Alias:      surface,
		Canonical:  match.Canonical,
		Confidence: confidence,
	})
	if err != nil {
		c.logger.Warn("persist alias failed", "surface", surface, "canonical", match.Canonical, "error", err)
	}

	family := match.Parent
	if family == "" {
		family = match.Canonical
	}
	return embedding, domain.Resolution{Canonical: match.Canonical, Family: family, Confidence: confidence}, true
}

func (c *Canonicalizer) disambiguate(ctx context.Context, surface string, surfaceEmbedding []float64) domain.Resolution {
	if !c.cfg.Disambiguation || c.disambiguator == nil {
		return c.fallback(surface, false)
	}

	count, err := c.store.CountCanonicals(ctx)
	if err != nil {
		c.logger.Warn("count canonical topics failed", "error", err)
		return c.fallback(surface, false)
	}
	if count > c.cfg.VocabularyCap {
		c.logger.Info("vocabulary cap reached, using surface as canonical",
			"surface", surface, "vocabulary", count, "cap", c.cfg.VocabularyCap)
		return c.fallback(surface, true)
	}

	proposal, err := c.disambiguator.Disambiguate(ctx, surface)
	if err != nil {
		metrics.TopicExternalCalls.WithLabelValues("disambiguation", "error").Inc()
		c.logger.Warn("disambiguation failed", "surface", surface, "error", err)
		return c.fallback(surface, false)
	}
	metrics.TopicExternalCalls.WithLabelValues("disambiguation", "ok").Inc()

	canonical := Normalize(proposal.Canonical)
	if canonical == "" {
		c.logger.Warn("disambiguation returned empty canonical", "surface", surface)
		return c.fallback(surface, false)
	}
	parent := Normalize(proposal.Parent)
	if parent == canonical {
		parent = ""
	}
	synonyms := normalizeSynonyms(proposal.Synonyms, canonical)

	embedding := surfaceEmbedding
	if canonical != surface || embedding == nil {
		embedding = c.embed(ctx, canonical)
	}

	aliases := append([]string{surface}, synonyms...)
	topic, err := c.mergeCanonical(ctx, canonical, parent, embedding, aliases)
	if err != nil {
		c.logger.Warn("persist canonical failed", "canonical", canonical, "error", err)
		return c.fallback(surface, false)
	}
	c.index.Invalidate()

	c.putAlias(ctx, surface, canonical, confidenceDisambiguated)
	for _, syn := range synonyms {
		if syn != surface {
			c.putAlias(ctx, syn, canonical, c.cfg.SynonymConfidence)
		}
	}
	c.putAlias(ctx, canonical, canonical, confidenceSelf)

	res := domain.Resolution{Canonical: canonical, Family: topic.Family(), Confidence: confidenceDisambiguated}
	c.remember(surface, res)
	metrics.TopicResolutions.WithLabelValues(metrics.PathDisambiguation).Inc()
	c.logger.Debug("topic disambiguated", "surface", surface, "canonical", canonical,
		"parent", parent, "synonyms", len(synonyms))
	return res
}

// mergeCanonical inserts or updates a canonical topic, unioning its alias set.
func (c *Canonicalizer) mergeCanonical(ctx context.Context, name, parent string, embedding []float64, aliases []string) (domain.CanonicalTopic, error) {
	topic, err := c.store.GetCanonical(ctx, name)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		topic = domain.CanonicalTopic{Name: name}
	case err != nil:
		return domain.CanonicalTopic{}, err
	}

	if parent != "" {
		topic.Parent = parent
	}
	if len(embedding) > 0 {
		topic.Embedding = embedding
	}
	topic.Aliases = unionStrings(topic.Aliases, aliases)

	if err := c.store.PutCanonical(ctx, topic); err != nil {
		return domain.CanonicalTopic{}, err
	}
	return topic, nil
}

func (c *Canonicalizer) putAlias(ctx context.Context, alias, canonical string, confidence float64) {
	err := c.store.PutAlias(ctx, domain.AliasMapping{
		Alias:      alias,
		Canonical:  canonical,
		Confidence: clamp01(confidence),
	})
	if err != nil {
		c.logger.Warn("persist alias failed", "alias", alias, "canonical", canonical, "error", err)
	}
}

func (c *Canonicalizer) embed(ctx context.Context, text string) []float64 {
	if c.embedder == nil {
		return nil
	}
	vec, err := c.embedder.Embed(ctx, text)
	if err != nil || len(vec) == 0 {
		metrics.TopicExternalCalls.WithLabelValues("embedding", "error").Inc()
		c.logger.Warn("embedding failed", "text", text, "error", err)
		return nil
	}
	metrics.TopicExternalCalls.WithLabelValues("embedding", "ok").Inc()
	return vec
}

func (c *Canonicalizer) remember(surface string, res domain.Resolution) {
	c.aliases.Put(surface, res)
	metrics.AliasCacheEntries.Set(float64(c.aliases.Len()))
}

// fallback uses the surface itself as canonical. Only deterministic fallbacks
// are cached; transient failures are retried on the next resolve.
func (c *Canonicalizer) fallback(surface string, cache bool) domain.Resolution {
	res := domain.Resolution{Canonical: surface, Family: surface, Confidence: confidenceFallback}
	if cache {
		c.remember(surface, res)
	}
	metrics.TopicResolutions.WithLabelValues(metrics.PathFallback).Inc()
	return res
}

func normalizeSynonyms(raw []string, canonical string) []string {
	seen := map[string]struct{}{canonical: {}}
	out := make([]string, 0, len(raw))
	for _, s := range raw {
		n := Normalize(s)
		if n == "" {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
		if len(out) == maxSynonyms {
			break
		}
	}
	return out
}

func unionStrings(base, extra []string) []string {
	seen := make(map[string]struct{}, len(base)+len(extra))
	out := make([]string, 0, len(base)+len(extra))
	for _, list := range [][]string{base, extra} {
		for _, s := range list {
			if _, ok := seen[s]; ok || s == "" {
				continue
			}
			seen[s] = struct{}{}
			out = append(out, s)
		}
	}
	return out
}

func clamp01(x float64) float64 {
	switch {
	case x < 0:
		return 0
	case x > 1:
		return 1
	}
	return x
}
