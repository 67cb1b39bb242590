package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/stemsi/course-review-backend/internal/model"
	"github.com/stemsi/course-review-backend/internal/store"
)

// VoteRepository handles review vote data access.
type VoteRepository struct {
	store store.DocumentStore
}

// NewVoteRepository creates a new VoteRepository.
func NewVoteRepository(s store.DocumentStore) *VoteRepository {
	return &VoteRepository{store: s}
}

// ListByReview returns the votes cast on one review.
func (r *VoteRepository) ListByReview(ctx context.Context, reviewID string) ([]model.Vote, error) {
	recs, err := r.store.List(ctx, store.ReviewVotes, store.Query{
		Filters: []store.Filter{store.Eq("review_id", reviewID)},
	})
	if err != nil {
		return nil, fmt.Errorf("list votes: %w", err)
	}
	out := make([]model.Vote, len(recs))
	for i, rec := range recs {
		out[i] = model.Vote{
			ID:        str(rec, "id"),
			ReviewID:  str(rec, "review_id"),
			UserID:    str(rec, "user_id"),
			IsUpvote:  boolean(rec, "is_upvote"),
			CreatedAt: timestamp(rec, "created_at"),
		}
	}
	return out, nil
}

// Create records a vote.
func (r *VoteRepository) Create(ctx context.Context, v *model.Vote) error {
	stored, err := r.store.Create(ctx, store.ReviewVotes, store.Record{
		"review_id": v.ReviewID,
		"user_id":   v.UserID,
		"is_upvote": v.IsUpvote,
	})
	if err != nil {
		return fmt.Errorf("create vote: %w", err)
	}
	v.ID = str(stored, "id")
	v.CreatedAt = timestamp(stored, "created_at")
	return nil
}

// Delete removes one vote. A vote that is already gone is not an error.
func (r *VoteRepository) Delete(ctx context.Context, id string) error {
	if err := r.store.Delete(ctx, store.ReviewVotes, id); err != nil && !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("delete vote: %w", err)
	}
	return nil
}
