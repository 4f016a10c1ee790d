package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/goccy/go-json"

	"NewsLens/internal/domain"
)

var itemColumns = []string{
	"i.id", "i.url", "i.source", "i.title", "i.summary", "i.published_ts", "i.source_weight",
	"i.importance", "i.hype", "i.prominence", "i.novelty", "i.quality",
}

var featureColumns = []string{
	"f.item_id",
	"f.evidence_strength", "f.fact_density", "f.uncertainty", "f.bias_risk", "f.sensationalism",
	"f.geo_scope_score", "f.harm_severity", "f.polarization_risk", "f.time_criticality",
	"f.actionability", "f.followup_potential",
	"f.genre", "f.evidence_types", "f.key_entities", "f.geo_targets", "f.topics", "f.short_summary",
}

type rowScanner interface {
	Scan(dest ...any) error
}

// SaveItem inserts an item or refreshes its descriptive fields. Heuristic
// scores already stored are kept.
func (s *Store) SaveItem(ctx context.Context, item domain.Item) error {
	h := item.Heuristics
	_, err := s.sb.Insert("items").
		Columns("id", "url", "source", "title", "summary", "published_ts", "source_weight",
			"importance", "hype", "prominence", "novelty", "quality", "created_ts").
		Values(item.ID, item.URL, item.Source, item.Title, item.Summary, item.PublishedAt.Unix(), item.SourceWeight,
			nullFloat(h.Importance), nullFloat(h.Hype), nullFloat(h.Prominence), nullFloat(h.Novelty), nullFloat(h.Quality),
			s.unixNow()).
		Suffix(`ON CONFLICT (id) DO UPDATE SET
			url = excluded.url,
			source = excluded.source,
			title = excluded.title,
			summary = excluded.summary,
			importance = COALESCE(items.importance, excluded.importance),
			hype = COALESCE(items.hype, excluded.hype),
			prominence = COALESCE(items.prominence, excluded.prominence),
			novelty = COALESCE(items.novelty, excluded.novelty),
			quality = COALESCE(items.quality, excluded.quality)`).
		ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("save item %s: %w", item.ID, err)
	}
	return nil
}

// GetItem loads one item with its features, if any.
func (s *Store) GetItem(ctx context.Context, id string) (domain.Item, error) {
	row := s.itemQuery().Where(sq.Eq{"i.id": id}).QueryRowContext(ctx)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Item{}, fmt.Errorf("item %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return domain.Item{}, fmt.Errorf("get item %s: %w", id, err)
	}
	return item, nil
}

// SaveFeatures stores features for an item unless some already exist.
func (s *Store) SaveFeatures(ctx context.Context, itemID string, f domain.Features) (bool, error) {
	evidence, err := json.Marshal(nonNil(f.EvidenceTypes))
	if err != nil {
		return false, fmt.Errorf("encode evidence types: %w", err)
	}
	entities, err := json.Marshal(nonNil(f.KeyEntities))
	if err != nil {
		return false, fmt.Errorf("encode entities: %w", err)
	}
	geo, err := json.Marshal(nonNil(f.GeoTargets))
	if err != nil {
		return false, fmt.Errorf("encode geo targets: %w", err)
	}
	topics, err := json.Marshal(nonNil(f.Topics))
	if err != nil {
		return false, fmt.Errorf("encode topics: %w", err)
	}

	res, err := s.sb.Insert("item_features").
		Columns("item_id",
			"evidence_strength", "fact_density", "uncertainty", "bias_risk", "sensationalism",
			"geo_scope_score", "harm_severity", "polarization_risk", "time_criticality",
			"actionability", "followup_potential",
			"genre", "evidence_types", "key_entities", "geo_targets", "topics", "short_summary", "created_ts").
		Values(itemID,
			nullFloat(f.EvidenceStrength), nullFloat(f.FactDensity), nullFloat(f.Uncertainty),
			nullFloat(f.BiasRisk), nullFloat(f.Sensationalism), nullFloat(f.GeoScope),
			nullFloat(f.HarmSeverity), nullFloat(f.PolarizationRisk), nullFloat(f.TimeCriticality),
			nullFloat(f.Actionability), nullFloat(f.FollowupPotential),
			string(f.Genre), string(evidence), string(entities), string(geo), string(topics), f.ShortSummary,
			s.unixNow()).
		Suffix("ON CONFLICT (item_id) DO NOTHING").
		ExecContext(ctx)
	if err != nil {
		return false, fmt.Errorf("save features %s: %w", itemID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("save features %s: %w", itemID, err)
	}
	return n > 0, nil
}

// ItemsSince returns items published at or after since, newest first.
func (s *Store) ItemsSince(ctx context.Context, since time.Time, limit int) ([]domain.Item, error) {
	q := s.itemQuery().
		Where(sq.GtOrEq{"i.published_ts": since.Unix()}).
		OrderBy("i.published_ts DESC", "i.id ASC")
	if limit > 0 {
		q = q.Limit(uint64(limit))
	}

	rows, err := q.QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("query items: %w", err)
	}

	var items []domain.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, closeRows(rows, fmt.Errorf("scan item: %w", err))
		}
		items = append(items, item)
	}
	if err := closeRows(rows, nil); err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) itemQuery() sq.SelectBuilder {
	cols := append(append([]string{}, itemColumns...), featureColumns...)
	return s.sb.Select(cols...).
		From("items i").
		LeftJoin("item_features f ON f.item_id = i.id")
}

func scanItem(row rowScanner) (domain.Item, error) {
	var (
		item      domain.Item
		published int64
		h         [5]sql.NullFloat64
		featureID sql.NullString
	)
	fs := &featureScan{}

	dest := []any{
		&item.ID, &item.URL, &item.Source, &item.Title, &item.Summary, &published, &item.SourceWeight,
		&h[0], &h[1], &h[2], &h[3], &h[4],
		&featureID,
	}
	dest = append(dest, fs.dest()...)
	if err := row.Scan(dest...); err != nil {
		return domain.Item{}, err
	}

	item.PublishedAt = time.Unix(published, 0).UTC()
	item.Heuristics = domain.Heuristics{
		Importance: floatPtr(h[0]),
		Hype:       floatPtr(h[1]),
		Prominence: floatPtr(h[2]),
		Novelty:    floatPtr(h[3]),
		Quality:    floatPtr(h[4]),
	}
	if featureID.Valid {
		f, err := fs.features()
		if err != nil {
			return domain.Item{}, err
		}
		item.Features = f
	}
	return item, nil
}

// featureScan holds nullable destinations for the feature columns after item_id.
type featureScan struct {
	scores [11]sql.NullFloat64

	genre, evidence, entities, geo, topics, summary sql.NullString
}

func (fs *featureScan) dest() []any {
	out := make([]any, 0, 17)
	for i := range fs.scores {
		out = append(out, &fs.scores[i])
	}
	return append(out, &fs.genre, &fs.evidence, &fs.entities, &fs.geo, &fs.topics, &fs.summary)
}

func (fs *featureScan) features() (*domain.Features, error) {
	f := &domain.Features{
		EvidenceStrength:  floatPtr(fs.scores[0]),
		FactDensity:       floatPtr(fs.scores[1]),
		Uncertainty:       floatPtr(fs.scores[2]),
		BiasRisk:          floatPtr(fs.scores[3]),
		Sensationalism:    floatPtr(fs.scores[4]),
		GeoScope:          floatPtr(fs.scores[5]),
		HarmSeverity:      floatPtr(fs.scores[6]),
		PolarizationRisk:  floatPtr(fs.scores[7]),
		TimeCriticality:   floatPtr(fs.scores[8]),
		Actionability:     floatPtr(fs.scores[9]),
		FollowupPotential: floatPtr(fs.scores[10]),
		Genre:             domain.Genre(fs.genre.String),
		ShortSummary:      fs.summary.String,
	}
	if err := decodeList(fs.evidence, &f.EvidenceTypes); err != nil {
		return nil, fmt.Errorf("decode evidence types: %w", err)
	}
	if err := decodeList(fs.entities, &f.KeyEntities); err != nil {
		return nil, fmt.Errorf("decode entities: %w", err)
	}
	if err := decodeList(fs.geo, &f.GeoTargets); err != nil {
		return nil, fmt.Errorf("decode geo targets: %w", err)
	}
	if err := decodeList(fs.topics, &f.Topics); err != nil {
		return nil, fmt.Errorf("decode topics: %w", err)
	}
	return f, nil
}

func decodeList[T any](raw sql.NullString, out *[]T) error {
	if !raw.Valid || raw.String == "" {
		return nil
	}
	return json.Unmarshal([]byte(raw.String), out)
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
