package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"NewsLens/internal/domain"
	"NewsLens/internal/metrics"
	"NewsLens/internal/ports"
	"NewsLens/internal/ranking"
)

// RankingDeps wires the repositories read by ranking requests.
type RankingDeps struct {
	Items    ports.ItemRepository
	Users    ports.UserRepository
	Feedback ports.FeedbackRepository
	Engine   *ranking.Engine
	Logger   *slog.Logger
}

// RankingOptions bound the candidate set.
type RankingOptions struct {
	Window          time.Duration
	CandidateLimit  int
	DefaultLimit    int
	MaxLimit        int
	RequireEnriched bool
}

// Ranking produces personalized, diversified item lists.
type Ranking struct {
	items    ports.ItemRepository
	users    ports.UserRepository
	feedback ports.FeedbackRepository
	engine   *ranking.Engine
	opts     RankingOptions
	logger   *slog.Logger
	now      func() time.Time
}

// NewRanking constructs the ranking use case.
func NewRanking(deps RankingDeps, opts RankingOptions) *Ranking {
	if opts.DefaultLimit <= 0 {
		opts.DefaultLimit = 10
	}
	if opts.MaxLimit <= 0 {
		opts.MaxLimit = 100
	}
	opts.MaxLimit = max(opts.MaxLimit, opts.DefaultLimit)
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Ranking{
		items:    deps.Items,
		users:    deps.Users,
		feedback: deps.Feedback,
		engine:   deps.Engine,
		opts:     opts,
		logger:   logger,
		now:      time.Now,
	}
}

// RankForUser scores the recent candidates for a user and returns up to limit
// of them. A non-positive limit selects the configured default and a limit
// above MaxLimit fails with domain.ErrLimitTooLarge. Failures to
// read the user's profile or feedback degrade to unpersonalized ranking.
func (r *Ranking) RankForUser(ctx context.Context, userID int64, limit int) ([]domain.RankedCandidate, error) {
	started := r.now()
	defer func() { metrics.RankingDuration.Observe(r.now().Sub(started).Seconds()) }()

	if limit <= 0 {
		limit = r.opts.DefaultLimit
	}
	if limit > r.opts.MaxLimit {
		return nil, fmt.Errorf("%w: %d > %d", domain.ErrLimitTooLarge, limit, r.opts.MaxLimit)
	}

	items, err := r.candidates(ctx, started)
	if err != nil {
		return nil, err
	}
	metrics.RankingCandidates.Observe(float64(len(items)))

	signals := r.signals(ctx, userID)
	mode := "plain"
	if r.engine.Diversifies(signals, limit) {
		mode = "diversified"
	}
	metrics.DiversifiedRankings.WithLabelValues(mode).Inc()

	ranked := r.engine.Rank(items, signals, limit)
	r.logger.Debug("ranked items",
		"user_id", userID,
		"candidates", len(items),
		"returned", len(ranked),
		"mode", mode,
	)
	return ranked, nil
}

// Digest returns the compact delivery list for a user. Paused users get
// domain.ErrUserPaused.
func (r *Ranking) Digest(ctx context.Context, userID int64, limit int) ([]domain.DeliveryItem, error) {
	u, err := r.users.GetUser(ctx, userID)
	switch {
	case err == nil && u.Paused:
		return nil, domain.ErrUserPaused
	case err != nil && !errors.Is(err, domain.ErrNotFound):
		r.logger.Warn("load user for digest", "user_id", userID, "error", err)
	}

	ranked, err := r.RankForUser(ctx, userID, limit)
	if err != nil {
		return nil, err
	}
	return domain.ToDelivery(ranked), nil
}

func (r *Ranking) candidates(ctx context.Context, now time.Time) ([]domain.Item, error) {
	var since time.Time
	if r.opts.Window > 0 {
		since = now.Add(-r.opts.Window)
	}
	items, err := r.items.ItemsSince(ctx, since, r.opts.CandidateLimit)
	if err != nil {
		return nil, fmt.Errorf("load candidates: %w", err)
	}
	if !r.opts.RequireEnriched {
		return items, nil
	}

	enriched := items[:0]
	for _, it := range items {
		if it.Enriched() {
			enriched = append(enriched, it)
		}
	}
	return enriched, nil
}

func (r *Ranking) signals(ctx context.Context, userID int64) ranking.Signals {
	var s ranking.Signals

	u, err := r.users.GetUser(ctx, userID)
	switch {
	case err == nil:
		s.Interests = u.Interests.Topics
	case !errors.Is(err, domain.ErrNotFound):
		r.logger.Warn("load interest profile", "user_id", userID, "error", err)
	}

	entries, err := r.feedback.FeedbackEntries(ctx, userID)
	if err != nil {
		r.logger.Warn("load feedback", "user_id", userID, "error", err)
		return s
	}
	s.Preference = ranking.BuildPreferenceVector(entries)
	s.Latent = ranking.LatentQualityPreference(entries)
	return s
}
