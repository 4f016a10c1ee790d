package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/goccy/go-json"

	"NewsLens/internal/domain"
)

// GetUser loads a user's explicit settings. Missing weights fall back to the
// defaults; a cleared profile yields an empty interest list.
func (s *Store) GetUser(ctx context.Context, userID int64) (domain.UserProfile, error) {
	var (
		weights   string
		interests sql.NullString
		u         = domain.UserProfile{UserID: userID}
	)
	err := s.sb.Select("weights", "interests", "paused").
		From("users").
		Where(sq.Eq{"user_id": userID}).
		QueryRowContext(ctx).
		Scan(&weights, &interests, &u.Paused)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.UserProfile{}, fmt.Errorf("user %d: %w", userID, domain.ErrNotFound)
	}
	if err != nil {
		return domain.UserProfile{}, fmt.Errorf("get user %d: %w", userID, err)
	}

	u.Weights = domain.DefaultScoreWeights()
	if weights != "" {
		if err := json.Unmarshal([]byte(weights), &u.Weights); err != nil {
			return domain.UserProfile{}, fmt.Errorf("decode weights of user %d: %w", userID, err)
		}
	}
	if interests.Valid && interests.String != "" {
		if err := json.Unmarshal([]byte(interests.String), &u.Interests); err != nil {
			return domain.UserProfile{}, fmt.Errorf("decode interests of user %d: %w", userID, err)
		}
	}
	return u, nil
}

// EnsureUser creates the user row when missing.
func (s *Store) EnsureUser(ctx context.Context, userID int64) error {
	now := s.unixNow()
	_, err := s.sb.Insert("users").
		Columns("user_id", "created_ts", "updated_ts").
		Values(userID, now, now).
		Suffix("ON CONFLICT (user_id) DO NOTHING").
		ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("ensure user %d: %w", userID, err)
	}
	return nil
}

// SetInterests replaces the user's interest profile.
func (s *Store) SetInterests(ctx context.Context, userID int64, profile domain.InterestProfile) error {
	raw, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("encode interests: %w", err)
	}
	return s.upsertUserColumn(ctx, userID, "interests", string(raw))
}

// ClearInterests removes the user's interest profile.
func (s *Store) ClearInterests(ctx context.Context, userID int64) error {
	return s.upsertUserColumn(ctx, userID, "interests", sql.NullString{})
}

// SetPaused toggles digest delivery for the user.
func (s *Store) SetPaused(ctx context.Context, userID int64, paused bool) error {
	return s.upsertUserColumn(ctx, userID, "paused", paused)
}

// SetWeights stores the user's heuristic score weights.
func (s *Store) SetWeights(ctx context.Context, userID int64, weights domain.ScoreWeights) error {
	raw, err := json.Marshal(weights)
	if err != nil {
		return fmt.Errorf("encode weights: %w", err)
	}
	return s.upsertUserColumn(ctx, userID, "weights", string(raw))
}

// upsertUserColumn writes one column, creating the user row if needed.
// column is always a constant from this file.
func (s *Store) upsertUserColumn(ctx context.Context, userID int64, column string, value any) error {
	now := s.unixNow()
	_, err := s.sb.Insert("users").
		Columns("user_id", column, "created_ts", "updated_ts").
		Values(userID, value, now, now).
		Suffix(fmt.Sprintf(`ON CONFLICT (user_id) DO UPDATE SET
			%[1]s = excluded.%[1]s,
			updated_ts = excluded.updated_ts`, column)).
		ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("update %s of user %d: %w", column, userID, err)
	}
	return nil
}
