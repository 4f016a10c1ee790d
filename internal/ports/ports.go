package ports

import (
	"context"
	"time"

	"NewsLens/internal/domain"
)

// ItemRepository stores items and their analysis features.
type ItemRepository interface {
	SaveItem(ctx context.Context, item domain.Item) error
	GetItem(ctx context.Context, id string) (domain.Item, error)
	// SaveFeatures attaches features once; it reports false when features already existed.
	SaveFeatures(ctx context.Context, itemID string, features domain.Features) (bool, error)
	ItemsSince(ctx context.Context, since time.Time, limit int) ([]domain.Item, error)
}

// TopicRepository is the durable side of the topic vocabulary.
type TopicRepository interface {
	GetAlias(ctx context.Context, alias string) (domain.AliasMapping, error)
	PutAlias(ctx context.Context, mapping domain.AliasMapping) error
	GetCanonical(ctx context.Context, name string) (domain.CanonicalTopic, error)
	PutCanonical(ctx context.Context, topic domain.CanonicalTopic) error
	ListCanonicals(ctx context.Context) ([]domain.CanonicalTopic, error)
	CountCanonicals(ctx context.Context) (int, error)
}

// UserRepository persists explicit user settings.
type UserRepository interface {
	GetUser(ctx context.Context, userID int64) (domain.UserProfile, error)
	EnsureUser(ctx context.Context, userID int64) error
	SetInterests(ctx context.Context, userID int64, profile domain.InterestProfile) error
	ClearInterests(ctx context.Context, userID int64) error
	SetPaused(ctx context.Context, userID int64, paused bool) error
	SetWeights(ctx context.Context, userID int64, weights domain.ScoreWeights) error
}

// FeedbackRepository upserts votes and reads them back with item features.
type FeedbackRepository interface {
	UpsertFeedback(ctx context.Context, record domain.FeedbackRecord) error
	FeedbackEntries(ctx context.Context, userID int64) ([]domain.FeedbackEntry, error)
}

// WorkQueue tracks items still waiting for enrichment.
type WorkQueue interface {
	// Enqueue is idempotent: re-submitting a pending item is a no-op.
	Enqueue(ctx context.Context, itemID string) error
	Pending(ctx context.Context, limit int) ([]string, error)
	Complete(ctx context.Context, itemID string) error
	Fail(ctx context.Context, itemID string, cause error) error
	// QueueStats counts waiting items and those among them that failed before.
	QueueStats(ctx context.Context) (pending, failed int, err error)
}

// Analyzer extracts quality features and raw topic tags from item text.
type Analyzer interface {
	Analyze(ctx context.Context, title, summary string) (domain.RawAnalysis, error)
}

// Embedder turns text into a fixed-length vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
}

// Disambiguator proposes a canonical name, parent and synonyms for an unknown tag.
type Disambiguator interface {
	Disambiguate(ctx context.Context, tag string) (domain.Disambiguation, error)
}

// Scheduler controls when enrichment passes execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
