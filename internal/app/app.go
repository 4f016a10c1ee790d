package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"NewsLens/internal/api"
	"NewsLens/internal/config"
	"NewsLens/internal/infrastructure/llm"
	"NewsLens/internal/infrastructure/ml"
	"NewsLens/internal/infrastructure/scheduler"
	"NewsLens/internal/infrastructure/storage"
	"NewsLens/internal/logging"
	"NewsLens/internal/ports"
	"NewsLens/internal/ranking"
	"NewsLens/internal/topics"
	"NewsLens/internal/usecase"
)

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg    config.Config
	logger *slog.Logger
	store  *storage.Store

	Topics     *topics.Canonicalizer
	Catalog    *usecase.Catalog
	Enrichment *usecase.Enrichment
	Ranking    *usecase.Ranking
	Feedback   *usecase.Feedback
	Profiles   *usecase.Profiles

	scheduler *usecase.Scheduler
	server    *api.Server
}

// New opens the store and builds every component from cfg.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level, cfg.Logging.Format)
	}

	store, err := storage.Open(ctx, cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return nil, err
	}

	var (
		embedder      ports.Embedder
		disambiguator ports.Disambiguator
		analyzer      ports.Analyzer
	)
	llmClient := llm.NewClient(cfg.LLM, cfg.Resilience, baseLogger.With("component", "llm"))
	if llmClient != nil {
		embedder = llmClient
		disambiguator = llmClient
	}
	switch cfg.Analysis.Provider {
	case "llm":
		if llmClient != nil {
			analyzer = llmClient
		}
	default:
		if mlClient := ml.NewClient(cfg.Analysis, cfg.Resilience, baseLogger.With("component", "analysis")); mlClient != nil {
			analyzer = mlClient
		}
	}
	if analyzer == nil {
		baseLogger.Warn("no analysis service configured; enrichment is disabled", "provider", cfg.Analysis.Provider)
	}

	canonicalizer := topics.New(topics.Deps{
		Store:         store,
		Embedder:      embedder,
		Disambiguator: disambiguator,
		Aliases:       topics.NewAliasCache(),
		Index:         topics.NewEmbeddingIndex(store.ListCanonicals, cfg.Topics.IndexTTL),
		Logger:        baseLogger.With("component", "topics"),
	}, topics.Config{
		SimilarityThreshold: cfg.Topics.SimilarityThreshold,
		VocabularyCap:       cfg.Topics.VocabularyCap,
		Disambiguation:      cfg.Topics.Disambiguation,
		SynonymConfidence:   cfg.Topics.SynonymConfidence,
		ResolveTimeout:      cfg.Topics.ResolveTimeout,
	})

	if err := canonicalizer.Index().Refresh(ctx); err != nil {
		baseLogger.Warn("initial embedding index load failed", "error", err)
	}

	engine := ranking.NewEngine(rankingWeights(cfg.Ranking.Weights), diversityConfig(cfg.Ranking.Diversity))

	a := &Application{
		cfg:    cfg,
		logger: baseLogger,
		store:  store,
		Topics: canonicalizer,
	}
	a.Catalog = usecase.NewCatalog(store, store, baseLogger.With("component", "catalog"))
	a.Enrichment = usecase.NewEnrichment(usecase.EnrichmentDeps{
		Items:    store,
		Queue:    store,
		Analyzer: analyzer,
		Topics:   canonicalizer,
		Logger:   baseLogger.With("component", "enrichment"),
	}, usecase.EnrichmentOptions{
		Concurrency: cfg.Enrichment.Concurrency,
		BatchLimit:  cfg.Enrichment.BatchLimit,
		Window:      hours(cfg.Enrichment.WindowHours),
	})
	a.Ranking = usecase.NewRanking(usecase.RankingDeps{
		Items:    store,
		Users:    store,
		Feedback: store,
		Engine:   engine,
		Logger:   baseLogger.With("component", "ranking"),
	}, usecase.RankingOptions{
		Window:          hours(cfg.Ranking.WindowHours),
		CandidateLimit:  cfg.Ranking.CandidateLimit,
		DefaultLimit:    cfg.Ranking.DefaultLimit,
		MaxLimit:        cfg.Ranking.MaxLimit,
		RequireEnriched: cfg.Ranking.RequireEnriched,
	})
	a.Feedback = usecase.NewFeedback(store, store)
	a.Profiles = usecase.NewProfiles(store, canonicalizer, baseLogger.With("component", "profiles"))

	a.scheduler = usecase.NewScheduler(
		scheduler.NewIntervalScheduler(cfg.Enrichment.Interval, cfg.Enrichment.RunOnStart),
		a.Enrichment,
		baseLogger.With("component", "scheduler"),
	)
	a.server = api.NewServer(api.Deps{
		Catalog:  a.Catalog,
		Ranking:  a.Ranking,
		Feedback: a.Feedback,
		Profiles: a.Profiles,
		Topics:   canonicalizer,
		Health:   store,
		Logger:   baseLogger.With("component", "api"),
	}, cfg.Server)

	return a, nil
}

// Serve runs the HTTP API until ctx is cancelled.
func (a *Application) Serve(ctx context.Context) error {
	return a.server.Run(ctx)
}

// Run starts the enrichment scheduler next to the HTTP API and stops both
// when ctx is cancelled or either fails.
func (a *Application) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	if err := a.scheduler.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	g.Go(func() error {
		<-ctx.Done()
		stopCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
		defer cancel()
		return a.scheduler.Stop(stopCtx)
	})
	g.Go(func() error {
		return a.server.Run(ctx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// Close releases the store.
func (a *Application) Close() error {
	return a.store.Close()
}

func rankingWeights(w config.WeightsConfig) ranking.Weights {
	return ranking.Weights{Profile: w.Profile, Quality: w.Quality, Feedback: w.Feedback, Base: w.Base}
}

func diversityConfig(d config.DiversityConfig) ranking.DiversityConfig {
	return ranking.DiversityConfig{
		Enabled:        d.Enabled,
		TopK:           d.TopK,
		MinAssignScore: d.MinAssignScore,
		MinPerTopic:    d.MinPerTopic,
		MaxShare:       d.MaxShare,
	}
}

func hours(n int) time.Duration {
	return time.Duration(n) * time.Hour
}
