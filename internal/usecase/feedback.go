package usecase

import (
	"context"
	"fmt"

	"NewsLens/internal/domain"
	"NewsLens/internal/ports"
)

// Feedback records user votes.
type Feedback struct {
	items    ports.ItemRepository
	feedback ports.FeedbackRepository
}

// NewFeedback constructs the feedback use case.
func NewFeedback(items ports.ItemRepository, feedback ports.FeedbackRepository) *Feedback {
	return &Feedback{items: items, feedback: feedback}
}

// Vote stores the user's vote for an item, replacing any earlier one.
// Vote 0 withdraws it.
func (f *Feedback) Vote(ctx context.Context, userID int64, itemID string, vote domain.Vote) error {
	if !vote.Valid() {
		return domain.ErrInvalidVote
	}
	if _, err := f.items.GetItem(ctx, itemID); err != nil {
		return fmt.Errorf("vote on %s: %w", itemID, err)
	}
	return f.feedback.UpsertFeedback(ctx, domain.FeedbackRecord{UserID: userID, ItemID: itemID, Vote: vote})
}

// Undo withdraws the user's vote for an item.
func (f *Feedback) Undo(ctx context.Context, userID int64, itemID string) error {
	return f.Vote(ctx, userID, itemID, domain.VoteNeutral)
}
