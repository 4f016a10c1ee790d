package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"NewsLens/internal/analysis"
	"NewsLens/internal/domain"
	"NewsLens/internal/metrics"
	"NewsLens/internal/ports"
)

// ErrAnalyzerUnavailable is returned when no analysis service is configured.
var ErrAnalyzerUnavailable = errors.New("analysis service not configured")

// TopicResolver canonicalizes topic tags. The topics.Canonicalizer satisfies it.
type TopicResolver interface {
	Resolve(ctx context.Context, tag string) domain.Resolution
	ResolveBatch(ctx context.Context, tags []domain.TopicTag) []domain.TopicTag
}

// EnrichmentDeps wires the adapters used by enrichment passes.
type EnrichmentDeps struct {
	Items    ports.ItemRepository
	Queue    ports.WorkQueue
	Analyzer ports.Analyzer
	Topics   TopicResolver
	Logger   *slog.Logger
}

// EnrichmentOptions size a pass.
type EnrichmentOptions struct {
	Concurrency int
	BatchLimit  int
	// Window re-queues un-enriched items published within it before each pass.
	Window time.Duration
}

// EnrichReport summarizes one pass.
type EnrichReport struct {
	RunID    string
	Started  time.Time
	Duration time.Duration
	Queued   int
	Enriched int
	Skipped  int
	Failed   int
	// Backlog and Retrying describe the queue after the pass.
	Backlog  int
	Retrying int
}

// Enrichment attaches analysis features and canonical topics to queued items.
type Enrichment struct {
	items    ports.ItemRepository
	queue    ports.WorkQueue
	analyzer ports.Analyzer
	topics   TopicResolver
	opts     EnrichmentOptions
	logger   *slog.Logger
	now      func() time.Time
}

// NewEnrichment constructs the enrichment use case.
func NewEnrichment(deps EnrichmentDeps, opts EnrichmentOptions) *Enrichment {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Enrichment{
		items:    deps.Items,
		queue:    deps.Queue,
		analyzer: deps.Analyzer,
		topics:   deps.Topics,
		opts:     opts,
		logger:   logger,
		now:      time.Now,
	}
}

// RunPass enriches up to BatchLimit pending items with a bounded worker pool.
// Item failures are recorded on the queue and do not fail the pass.
func (e *Enrichment) RunPass(ctx context.Context) (EnrichReport, error) {
	report := EnrichReport{RunID: uuid.NewString(), Started: e.now()}
	if e.analyzer == nil {
		return report, ErrAnalyzerUnavailable
	}
	logger := e.logger.With("run_id", report.RunID)

	if e.opts.Window > 0 {
		if err := e.requeueWindow(ctx, report.Started.Add(-e.opts.Window)); err != nil {
			logger.Warn("requeue window failed", "error", err)
		}
	}

	ids, err := e.queue.Pending(ctx, e.opts.BatchLimit)
	if err != nil {
		return report, fmt.Errorf("load pending items: %w", err)
	}
	report.Queued = len(ids)

	var enriched, skipped, failed atomic.Int64
	var g errgroup.Group
	g.SetLimit(e.opts.Concurrency)

	for _, id := range ids {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			created, err := e.EnrichItem(ctx, id)
			switch {
			case err != nil:
				failed.Add(1)
				metrics.EnrichmentItems.WithLabelValues("failed").Inc()
				logger.Warn("enrich item failed", "item_id", id, "error", err)
				if qErr := e.queue.Fail(ctx, id, err); qErr != nil {
					logger.Error("record enrichment failure", "item_id", id, "error", qErr)
				}
			case created:
				enriched.Add(1)
				metrics.EnrichmentItems.WithLabelValues("ok").Inc()
			default:
				skipped.Add(1)
				metrics.EnrichmentItems.WithLabelValues("skipped").Inc()
			}
			return nil
		})
	}
	_ = g.Wait()

	report.Enriched = int(enriched.Load())
	report.Skipped = int(skipped.Load())
	report.Failed = int(failed.Load())
	report.Duration = e.now().Sub(report.Started)
	metrics.EnrichmentPassDuration.Observe(report.Duration.Seconds())

	if pending, retrying, err := e.queue.QueueStats(ctx); err != nil {
		logger.Warn("queue stats failed", "error", err)
	} else {
		report.Backlog, report.Retrying = pending, retrying
		metrics.EnrichQueueDepth.WithLabelValues("pending").Set(float64(pending))
		metrics.EnrichQueueDepth.WithLabelValues("failed").Set(float64(retrying))
	}

	logger.Info("enrichment pass finished",
		"queued", report.Queued,
		"enriched", report.Enriched,
		"skipped", report.Skipped,
		"failed", report.Failed,
		"backlog", report.Backlog,
		"duration", report.Duration,
	)
	return report, ctx.Err()
}

// EnrichItem analyzes one item, canonicalizes its topics and stores the
// features. It reports whether new features were written. Items that vanished
// or already carry features are removed from the queue without analysis.
func (e *Enrichment) EnrichItem(ctx context.Context, itemID string) (bool, error) {
	if e.analyzer == nil {
		return false, ErrAnalyzerUnavailable
	}

	item, err := e.items.GetItem(ctx, itemID)
	if errors.Is(err, domain.ErrNotFound) {
		return false, e.complete(ctx, itemID)
	}
	if err != nil {
		return false, fmt.Errorf("load item: %w", err)
	}
	if item.Enriched() {
		return false, e.complete(ctx, itemID)
	}

	raw, err := e.analyzer.Analyze(ctx, analysis.PlainText(item.Title), analysis.PlainText(item.Summary))
	if err != nil {
		return false, fmt.Errorf("analyze: %w", err)
	}

	features := analysis.Sanitize(raw)
	if e.topics != nil {
		features.Topics = e.topics.ResolveBatch(ctx, features.Topics)
	}

	created, err := e.items.SaveFeatures(ctx, itemID, features)
	if err != nil {
		return false, fmt.Errorf("save features: %w", err)
	}
	if err := e.complete(ctx, itemID); err != nil {
		return created, err
	}

	e.logger.Debug("item enriched",
		"item_id", itemID,
		"genre", features.Genre,
		"topics", len(features.Topics),
	)
	return created, nil
}

func (e *Enrichment) complete(ctx context.Context, itemID string) error {
	if err := e.queue.Complete(ctx, itemID); err != nil {
		return fmt.Errorf("complete queue entry: %w", err)
	}
	return nil
}

func (e *Enrichment) requeueWindow(ctx context.Context, since time.Time) error {
	items, err := e.items.ItemsSince(ctx, since, 0)
	if err != nil {
		return err
	}
	for _, it := range items {
		if it.Enriched() {
			continue
		}
		if err := e.queue.Enqueue(ctx, it.ID); err != nil {
			return err
		}
	}
	return nil
}
