package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/stemsi/course-review-backend/internal/model"
	"github.com/stemsi/course-review-backend/internal/store"
)

// ErrReviewNotFound is returned by Get when no review has the id.
var ErrReviewNotFound = errors.New("review not found")

// Batch is a capped review fetch. Skipped counts records dropped because
// their instructor details could not be decoded.
type Batch struct {
	Reviews   []model.Review
	Truncated bool
	Skipped   int
}

// ReviewRepository handles review data access.
type ReviewRepository struct {
	store store.DocumentStore
	log   zerolog.Logger
}

// NewReviewRepository creates a new ReviewRepository.
func NewReviewRepository(s store.DocumentStore, log zerolog.Logger) *ReviewRepository {
	return &ReviewRepository{
		store: s,
		log:   log.With().Str("component", "review_repository").Logger(),
	}
}

// ListAll fetches up to limit reviews in one round trip.
func (r *ReviewRepository) ListAll(ctx context.Context, limit int) (Batch, error) {
	return r.batch(ctx, store.Query{OrderBy: "created_at", Limit: probeLimit(limit)}, limit)
}

// ListByCourse fetches up to limit reviews of one course, newest first.
func (r *ReviewRepository) ListByCourse(ctx context.Context, courseCode string, limit int) (Batch, error) {
	return r.batch(ctx, store.Query{
		Filters: []store.Filter{store.Eq("course_code", courseCode)},
		OrderBy: "created_at",
		Desc:    true,
		Limit:   probeLimit(limit),
	}, limit)
}

func (r *ReviewRepository) batch(ctx context.Context, q store.Query, limit int) (Batch, error) {
	recs, err := r.store.List(ctx, store.Reviews, q)
	if err != nil {
		return Batch{}, fmt.Errorf("list reviews: %w", err)
	}
	recs, truncated := capped(recs, limit)
	if truncated {
		r.log.Warn().Int("cap", limit).Msg("Review fetch hit its record cap")
	}
	reviews, skipped := r.decodeAll(recs)
	return Batch{Reviews: reviews, Truncated: truncated, Skipped: skipped}, nil
}

// MaxUserReviews caps per-user fetches that are not bounded by a policy limit.
const MaxUserReviews = 1000

// CountByUserAndTerm counts a user's reviews in one term, stopping at limit.
func (r *ReviewRepository) CountByUserAndTerm(ctx context.Context, userID, termCode string, limit int) (int, error) {
	recs, err := r.store.List(ctx, store.Reviews, store.Query{
		Filters: []store.Filter{store.Eq("user_id", userID), store.Eq("term_code", termCode)},
		Limit:   limit,
		Fields:  []string{"id"},
	})
	if err != nil {
		return 0, fmt.Errorf("count reviews by term: %w", err)
	}
	return len(recs), nil
}

// ListByUserAndCourse returns up to limit of a user's reviews of one course
// in any term, oldest first.
func (r *ReviewRepository) ListByUserAndCourse(ctx context.Context, userID, courseCode string, limit int) ([]model.Review, error) {
	recs, err := r.store.List(ctx, store.Reviews, store.Query{
		Filters: []store.Filter{store.Eq("user_id", userID), store.Eq("course_code", courseCode)},
		OrderBy: "created_at",
		Limit:   limit,
		Fields:  []string{"id", "user_id", "course_code", "term_code", "grade", "created_at"},
	})
	if err != nil {
		return nil, fmt.Errorf("list reviews by course: %w", err)
	}
	reviews, _ := r.decodeAll(recs)
	return reviews, nil
}

// ListByUser returns the reviews written by userID, oldest first, up to
// MaxUserReviews.
func (r *ReviewRepository) ListByUser(ctx context.Context, userID string) ([]model.Review, error) {
	recs, err := r.store.List(ctx, store.Reviews, store.Query{
		Filters: []store.Filter{store.Eq("user_id", userID)},
		OrderBy: "created_at",
		Limit:   probeLimit(MaxUserReviews),
	})
	if err != nil {
		return nil, fmt.Errorf("list reviews by user: %w", err)
	}
	recs, truncated := capped(recs, MaxUserReviews)
	if truncated {
		r.log.Warn().Str("user_id", userID).Int("cap", MaxUserReviews).Msg("User review fetch hit its record cap")
	}
	reviews, _ := r.decodeAll(recs)
	return reviews, nil
}

// Get returns the review with id.
func (r *ReviewRepository) Get(ctx context.Context, id string) (*model.Review, error) {
	recs, err := r.store.List(ctx, store.Reviews, store.Query{
		Filters: []store.Filter{store.Eq("id", id)},
		Limit:   1,
	})
	if err != nil {
		return nil, fmt.Errorf("get review: %w", err)
	}
	if len(recs) == 0 {
		return nil, ErrReviewNotFound
	}
	rev, err := decodeReview(recs[0])
	if err != nil {
		return nil, err
	}
	return &rev, nil
}

// Create inserts rev and fills in its id and creation time.
func (r *ReviewRepository) Create(ctx context.Context, rev *model.Review) error {
	details, err := encodeJSON(rev.InstructorDetails)
	if err != nil {
		return fmt.Errorf("encode instructor details: %w", err)
	}
	rec := store.Record{
		"user_id":            rev.UserID,
		"is_anonymous":       rev.IsAnonymous,
		"display_name":       rev.DisplayName,
		"course_code":        rev.CourseCode,
		"term_code":          rev.TermCode,
		"workload":           int(rev.Workload),
		"difficulty":         int(rev.Difficulty),
		"usefulness":         int(rev.Usefulness),
		"grade":              rev.Grade,
		"comments":           rev.Comments,
		"instructor_details": details,
	}
	if !rev.CreatedAt.IsZero() {
		rec["created_at"] = rev.CreatedAt
	}

	stored, err := r.store.Create(ctx, store.Reviews, rec)
	if err != nil {
		return fmt.Errorf("create review: %w", err)
	}
	rev.ID = str(stored, "id")
	rev.CreatedAt = timestamp(stored, "created_at")
	return nil
}

// Delete removes the review with id.
func (r *ReviewRepository) Delete(ctx context.Context, id string) error {
	if err := r.store.Delete(ctx, store.Reviews, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrReviewNotFound
		}
		return fmt.Errorf("delete review: %w", err)
	}
	return nil
}

// UpdateDisplayName sets name on all of the user's non-anonymous reviews
// and returns how many were updated.
func (r *ReviewRepository) UpdateDisplayName(ctx context.Context, userID, name string) (int, error) {
	recs, err := r.store.List(ctx, store.Reviews, store.Query{
		Filters: []store.Filter{store.Eq("user_id", userID), store.Eq("is_anonymous", false)},
		Limit:   probeLimit(MaxUserReviews),
		Fields:  []string{"id"},
	})
	if err != nil {
		return 0, fmt.Errorf("list reviews for rename: %w", err)
	}
	recs, truncated := capped(recs, MaxUserReviews)
	if truncated {
		r.log.Warn().Str("user_id", userID).Int("cap", MaxUserReviews).Msg("Rename hit its record cap")
	}
	updated := 0
	for _, rec := range recs {
		if _, err := r.store.Update(ctx, store.Reviews, str(rec, "id"), store.Record{"display_name": name}); err != nil {
			return updated, fmt.Errorf("update display name: %w", err)
		}
		updated++
	}
	return updated, nil
}

func (r *ReviewRepository) decodeAll(recs []store.Record) ([]model.Review, int) {
	reviews := make([]model.Review, 0, len(recs))
	skipped := 0
	for _, rec := range recs {
		rev, err := decodeReview(rec)
		if err != nil {
			skipped++
			r.log.Warn().Err(err).Str("review_id", str(rec, "id")).Msg("Skipping malformed review")
			continue
		}
		reviews = append(reviews, rev)
	}
	return reviews, skipped
}

func decodeReview(rec store.Record) (model.Review, error) {
	rev := model.Review{
		ID:          str(rec, "id"),
		UserID:      str(rec, "user_id"),
		IsAnonymous: boolean(rec, "is_anonymous"),
		DisplayName: str(rec, "display_name"),
		CourseCode:  str(rec, "course_code"),
		TermCode:    str(rec, "term_code"),
		Workload:    rating(rec, "workload"),
		Difficulty:  rating(rec, "difficulty"),
		Usefulness:  rating(rec, "usefulness"),
		Grade:       str(rec, "grade"),
		Comments:    str(rec, "comments"),
		CreatedAt:   timestamp(rec, "created_at"),
	}
	if err := decodeJSON(rec, "instructor_details", &rev.InstructorDetails); err != nil {
		return model.Review{}, fmt.Errorf("review %s: %w", rev.ID, err)
	}
	return rev, nil
}

// rating reads a rating column; absent values are not applicable.
func rating(rec store.Record, key string) model.Rating {
	if rec[key] == nil {
		return model.RatingNotApplicable
	}
	return model.Rating(integer(rec, key))
}
