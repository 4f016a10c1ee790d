package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"NewsLens/internal/analysis"
	"NewsLens/internal/domain"
	"NewsLens/internal/heuristics"
	"NewsLens/internal/ports"
)

// ErrInvalidItem rejects items that fail validation.
var ErrInvalidItem = errors.New("invalid item")

var validate = validator.New(validator.WithRequiredStructEnabled())

// ItemInput is the wire form of a new item.
type ItemInput struct {
	ID           string           `json:"id" validate:"max=128"`
	URL          string           `json:"url" validate:"omitempty,url"`
	Source       string           `json:"source" validate:"max=200"`
	Title        string           `json:"title" validate:"required,max=1000"`
	Summary      string           `json:"summary" validate:"max=20000"`
	PublishedAt  time.Time        `json:"published_at"`
	SourceWeight *float64         `json:"source_weight" validate:"omitempty,gte=0,lte=1"`
	Heuristics   *HeuristicsInput `json:"heuristics"`
}

// HeuristicsInput carries precomputed scores; absent ones are computed.
type HeuristicsInput struct {
	Importance *float64 `json:"importance" validate:"omitempty,gte=0,lte=1"`
	Hype       *float64 `json:"hype" validate:"omitempty,gte=0,lte=1"`
	Prominence *float64 `json:"prominence" validate:"omitempty,gte=0,lte=1"`
	Novelty    *float64 `json:"novelty" validate:"omitempty,gte=0,lte=1"`
	Quality    *float64 `json:"quality" validate:"omitempty,gte=0,lte=1"`
}

// Catalog ingests items and queues them for enrichment.
type Catalog struct {
	items  ports.ItemRepository
	queue  ports.WorkQueue
	logger *slog.Logger
	now    func() time.Time
}

// NewCatalog constructs the catalog use case.
func NewCatalog(items ports.ItemRepository, queue ports.WorkQueue, logger *slog.Logger) *Catalog {
	if logger == nil {
		logger = slog.Default()
	}
	return &Catalog{items: items, queue: queue, logger: logger, now: time.Now}
}

// AddItem validates and stores an item, fills missing heuristic scores and
// queues it for enrichment. Items without an ID get a random one.
func (c *Catalog) AddItem(ctx context.Context, in ItemInput) (domain.Item, error) {
	if err := validate.Struct(in); err != nil {
		return domain.Item{}, fmt.Errorf("%w: %v", ErrInvalidItem, err)
	}

	now := c.now()
	item := domain.Item{
		ID:          strings.TrimSpace(in.ID),
		URL:         strings.TrimSpace(in.URL),
		Source:      strings.TrimSpace(in.Source),
		Title:       analysis.PlainText(in.Title),
		Summary:     analysis.PlainText(in.Summary),
		PublishedAt: in.PublishedAt.UTC(),
	}
	if item.Title == "" {
		return domain.Item{}, fmt.Errorf("%w: title is empty", ErrInvalidItem)
	}
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	if item.PublishedAt.IsZero() {
		item.PublishedAt = now.UTC()
	}
	if in.SourceWeight != nil {
		item.SourceWeight = *in.SourceWeight
	}
	if h := in.Heuristics; h != nil {
		item.Heuristics = domain.Heuristics{
			Importance: h.Importance,
			Hype:       h.Hype,
			Prominence: h.Prominence,
			Novelty:    h.Novelty,
			Quality:    h.Quality,
		}
	}
	heuristics.Fill(&item, now)

	if err := c.items.SaveItem(ctx, item); err != nil {
		return domain.Item{}, err
	}
	if err := c.queue.Enqueue(ctx, item.ID); err != nil {
		return domain.Item{}, err
	}
	return item, nil
}

// Import reads a JSON array of items and adds each one. Invalid entries are
// logged and skipped; storage errors abort the import.
func (c *Catalog) Import(ctx context.Context, r io.Reader) (int, error) {
	var inputs []ItemInput
	if err := json.NewDecoder(r).Decode(&inputs); err != nil {
		return 0, fmt.Errorf("decode items: %w", err)
	}

	added := 0
	for i, in := range inputs {
		if _, err := c.AddItem(ctx, in); err != nil {
			if errors.Is(err, ErrInvalidItem) {
				c.logger.Warn("skip invalid item", "index", i, "id", in.ID, "error", err)
				continue
			}
			return added, fmt.Errorf("import item %d: %w", i, err)
		}
		added++
	}
	c.logger.Info("items imported", "added", added, "total", len(inputs))
	return added, nil
}
