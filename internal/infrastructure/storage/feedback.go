package storage

import (
	"context"
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"NewsLens/internal/domain"
)

// UpsertFeedback records the user's latest vote for an item. A neutral vote
// keeps the row so undo is idempotent.
func (s *Store) UpsertFeedback(ctx context.Context, r domain.FeedbackRecord) error {
	if err := s.EnsureUser(ctx, r.UserID); err != nil {
		return err
	}
	_, err := s.sb.Insert("feedback").
		Columns("user_id", "item_id", "vote", "updated_ts").
		Values(r.UserID, r.ItemID, int(r.Vote), s.unixNow()).
		Suffix(`ON CONFLICT (user_id, item_id) DO UPDATE SET
			vote = excluded.vote,
			updated_ts = excluded.updated_ts`).
		ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("upsert feedback %d/%s: %w", r.UserID, r.ItemID, err)
	}
	return nil
}

// FeedbackEntries returns the user's non-neutral votes joined with the voted
// items' features. Features is nil for items that were never enriched.
func (s *Store) FeedbackEntries(ctx context.Context, userID int64) ([]domain.FeedbackEntry, error) {
	rows, err := s.sb.Select(append([]string{"fb.vote"}, featureColumns...)...).
		From("feedback fb").
		LeftJoin("item_features f ON f.item_id = fb.item_id").
		Where(sq.Eq{"fb.user_id": userID}).
		Where(sq.NotEq{"fb.vote": 0}).
		OrderBy("fb.updated_ts", "fb.item_id").
		QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("query feedback of user %d: %w", userID, err)
	}

	var out []domain.FeedbackEntry
	for rows.Next() {
		var (
			vote      int
			featureID sql.NullString
			fs        featureScan
		)
		dest := append([]any{&vote, &featureID}, fs.dest()...)
		if err := rows.Scan(dest...); err != nil {
			return nil, closeRows(rows, fmt.Errorf("scan feedback: %w", err))
		}
		entry := domain.FeedbackEntry{Vote: domain.Vote(vote)}
		if featureID.Valid {
			f, err := fs.features()
			if err != nil {
				return nil, closeRows(rows, err)
			}
			entry.Features = f
		}
		out = append(out, entry)
	}
	if err := closeRows(rows, nil); err != nil {
		return nil, err
	}
	return out, nil
}
