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

// GetAlias looks up a normalized surface form.
func (s *Store) GetAlias(ctx context.Context, alias string) (domain.AliasMapping, error) {
	m := domain.AliasMapping{Alias: alias}
	err := s.sb.Select("canonical", "confidence").
		From("topic_map").
		Where(sq.Eq{"alias": alias}).
		QueryRowContext(ctx).
		Scan(&m.Canonical, &m.Confidence)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.AliasMapping{}, fmt.Errorf("alias %q: %w", alias, domain.ErrNotFound)
	}
	if err != nil {
		return domain.AliasMapping{}, fmt.Errorf("get alias %q: %w", alias, err)
	}
	return m, nil
}

// PutAlias inserts or replaces an alias mapping.
func (s *Store) PutAlias(ctx context.Context, m domain.AliasMapping) error {
	_, err := s.sb.Insert("topic_map").
		Columns("alias", "canonical", "confidence", "updated_ts").
		Values(m.Alias, m.Canonical, m.Confidence, s.unixNow()).
		Suffix(`ON CONFLICT (alias) DO UPDATE SET
			canonical = excluded.canonical,
			confidence = excluded.confidence,
			updated_ts = excluded.updated_ts`).
		ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("put alias %q: %w", m.Alias, err)
	}
	return nil
}

// GetCanonical loads one vocabulary entry.
func (s *Store) GetCanonical(ctx context.Context, name string) (domain.CanonicalTopic, error) {
	row := s.canonicalQuery().Where(sq.Eq{"name": name}).QueryRowContext(ctx)
	t, err := scanCanonical(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.CanonicalTopic{}, fmt.Errorf("canonical %q: %w", name, domain.ErrNotFound)
	}
	if err != nil {
		return domain.CanonicalTopic{}, fmt.Errorf("get canonical %q: %w", name, err)
	}
	return t, nil
}

// PutCanonical inserts or replaces a vocabulary entry.
func (s *Store) PutCanonical(ctx context.Context, t domain.CanonicalTopic) error {
	aliases, err := json.Marshal(nonNil(t.Aliases))
	if err != nil {
		return fmt.Errorf("encode aliases: %w", err)
	}
	var embedding sql.NullString
	if len(t.Embedding) > 0 {
		raw, err := json.Marshal(t.Embedding)
		if err != nil {
			return fmt.Errorf("encode embedding: %w", err)
		}
		embedding = sql.NullString{String: string(raw), Valid: true}
	}

	updated := t.UpdatedAt
	if updated.IsZero() {
		updated = s.now()
	}

	_, err = s.sb.Insert("topic_vocab").
		Columns("name", "parent", "embedding", "aliases", "updated_ts").
		Values(t.Name, t.Parent, embedding, string(aliases), updated.Unix()).
		Suffix(`ON CONFLICT (name) DO UPDATE SET
			parent = excluded.parent,
			embedding = excluded.embedding,
			aliases = excluded.aliases,
			updated_ts = excluded.updated_ts`).
		ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("put canonical %q: %w", t.Name, err)
	}
	return nil
}

// ListCanonicals returns the whole vocabulary ordered by name.
func (s *Store) ListCanonicals(ctx context.Context) ([]domain.CanonicalTopic, error) {
	rows, err := s.canonicalQuery().OrderBy("name").QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("query canonicals: %w", err)
	}

	var out []domain.CanonicalTopic
	for rows.Next() {
		t, err := scanCanonical(rows)
		if err != nil {
			return nil, closeRows(rows, fmt.Errorf("scan canonical: %w", err))
		}
		out = append(out, t)
	}
	if err := closeRows(rows, nil); err != nil {
		return nil, err
	}
	return out, nil
}

// CountCanonicals returns the vocabulary size.
func (s *Store) CountCanonicals(ctx context.Context) (int, error) {
	var n int
	if err := s.sb.Select("COUNT(*)").From("topic_vocab").QueryRowContext(ctx).Scan(&n); err != nil {
		return 0, fmt.Errorf("count canonicals: %w", err)
	}
	return n, nil
}

func (s *Store) canonicalQuery() sq.SelectBuilder {
	return s.sb.Select("name", "parent", "embedding", "aliases", "updated_ts").From("topic_vocab")
}

func scanCanonical(row rowScanner) (domain.CanonicalTopic, error) {
	var (
		t         domain.CanonicalTopic
		embedding sql.NullString
		aliases   sql.NullString
		updated   int64
	)
	if err := row.Scan(&t.Name, &t.Parent, &embedding, &aliases, &updated); err != nil {
		return domain.CanonicalTopic{}, err
	}
	t.UpdatedAt = time.Unix(updated, 0).UTC()
	if err := decodeList(embedding, &t.Embedding); err != nil {
		return domain.CanonicalTopic{}, fmt.Errorf("decode embedding: %w", err)
	}
	if err := decodeList(aliases, &t.Aliases); err != nil {
		return domain.CanonicalTopic{}, fmt.Errorf("decode aliases: %w", err)
	}
	return t, nil
}
