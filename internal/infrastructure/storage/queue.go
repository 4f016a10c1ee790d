package storage

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
)

const maxErrorLength = 500

// Enqueue adds an item to the enrichment queue; pending items are left as is.
func (s *Store) Enqueue(ctx context.Context, itemID string) error {
	now := s.unixNow()
	_, err := s.sb.Insert("enrich_queue").
		Columns("item_id", "enqueued_ts", "updated_ts").
		Values(itemID, now, now).
		Suffix("ON CONFLICT (item_id) DO NOTHING").
		ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("enqueue %s: %w", itemID, err)
	}
	return nil
}

// Pending returns queued item IDs, least-attempted and oldest first.
func (s *Store) Pending(ctx context.Context, limit int) ([]string, error) {
	q := s.sb.Select("item_id").
		From("enrich_queue").
		OrderBy("attempts ASC", "enqueued_ts ASC", "item_id ASC")
	if limit > 0 {
		q = q.Limit(uint64(limit))
	}
	rows, err := q.QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("query queue: %w", err)
	}

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, closeRows(rows, fmt.Errorf("scan queue: %w", err))
		}
		ids = append(ids, id)
	}
	if err := closeRows(rows, nil); err != nil {
		return nil, err
	}
	return ids, nil
}

// Complete removes an item from the queue.
func (s *Store) Complete(ctx context.Context, itemID string) error {
	_, err := s.sb.Delete("enrich_queue").Where(sq.Eq{"item_id": itemID}).ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("complete %s: %w", itemID, err)
	}
	return nil
}

// Fail keeps the item queued and records the attempt.
func (s *Store) Fail(ctx context.Context, itemID string, cause error) error {
	msg := ""
	if cause != nil {
		msg = cause.Error()
		if r := []rune(msg); len(r) > maxErrorLength {
			msg = string(r[:maxErrorLength])
		}
	}
	_, err := s.sb.Update("enrich_queue").
		Set("attempts", sq.Expr("attempts + 1")).
		Set("last_error", msg).
		Set("updated_ts", s.unixNow()).
		Where(sq.Eq{"item_id": itemID}).
		ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("fail %s: %w", itemID, err)
	}
	return nil
}

// QueueStats reports how many items wait and how many of them failed before.
func (s *Store) QueueStats(ctx context.Context) (pending, failed int, err error) {
	err = s.sb.Select("COUNT(*)", "COALESCE(SUM(CASE WHEN attempts > 0 THEN 1 ELSE 0 END), 0)").
		From("enrich_queue").
		QueryRowContext(ctx).
		Scan(&pending, &failed)
	if err != nil {
		return 0, 0, fmt.Errorf("queue stats: %w", err)
	}
	return pending, failed, nil
}
