package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"NewsLens/internal/domain"
	"NewsLens/internal/ports"
	"NewsLens/internal/profile"
)

// Profiles manages explicit user settings.
type Profiles struct {
	users    ports.UserRepository
	resolver TopicResolver
	logger   *slog.Logger
}

// NewProfiles constructs the profile use case. A nil resolver stores tags as declared.
func NewProfiles(users ports.UserRepository, resolver TopicResolver, logger *slog.Logger) *Profiles {
	if logger == nil {
		logger = slog.Default()
	}
	return &Profiles{users: users, resolver: resolver, logger: logger}
}

// Get returns the user's settings, creating the user when unknown.
func (p *Profiles) Get(ctx context.Context, userID int64) (domain.UserProfile, error) {
	u, err := p.users.GetUser(ctx, userID)
	if errors.Is(err, domain.ErrNotFound) {
		if err := p.users.EnsureUser(ctx, userID); err != nil {
			return domain.UserProfile{}, err
		}
		return p.users.GetUser(ctx, userID)
	}
	return u, err
}

// SetInterests canonicalizes the declared topics and stores the profile.
// A tag that resolves to a different canonical keeps its original surface as
// a synonym.
func (p *Profiles) SetInterests(ctx context.Context, userID int64, in domain.InterestProfile) (domain.InterestProfile, error) {
	out := p.canonicalize(ctx, profile.Normalize(in))
	if err := p.users.SetInterests(ctx, userID, out); err != nil {
		return domain.InterestProfile{}, fmt.Errorf("store interests: %w", err)
	}
	p.logger.Info("interest profile updated", "user_id", userID, "topics", len(out.Topics))
	return out, nil
}

// ClearInterests drops the user's interest profile.
func (p *Profiles) ClearInterests(ctx context.Context, userID int64) error {
	return p.users.ClearInterests(ctx, userID)
}

// SetPaused pauses or resumes digests for the user.
func (p *Profiles) SetPaused(ctx context.Context, userID int64, paused bool) error {
	return p.users.SetPaused(ctx, userID, paused)
}

// SetWeights stores the user's heuristic score weights.
func (p *Profiles) SetWeights(ctx context.Context, userID int64, w domain.ScoreWeights) error {
	return p.users.SetWeights(ctx, userID, w)
}

func (p *Profiles) canonicalize(ctx context.Context, in domain.InterestProfile) domain.InterestProfile {
	if p.resolver == nil {
		return in
	}

	topics := make([]domain.InterestTopic, 0, len(in.Topics))
	for _, t := range in.Topics {
		res := p.resolver.Resolve(ctx, t.Tag)
		if res.Canonical != "" && res.Canonical != t.Tag {
			t.Synonyms = append([]string{t.Tag}, t.Synonyms...)
			t.Tag = res.Canonical
		}
		if t.Family == "" && res.Family != "" && res.Family != t.Tag {
			t.Family = res.Family
		}
		topics = append(topics, t)
	}
	return profile.Normalize(domain.InterestProfile{Topics: topics})
}
