package service

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"github.com/stemsi/course-review-backend/internal/eligibility"
	"github.com/stemsi/course-review-backend/internal/grade"
	"github.com/stemsi/course-review-backend/internal/model"
	"github.com/stemsi/course-review-backend/internal/repository"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Domain Errors
var (
	ErrNotEligible     = errors.New("not eligible to submit this review")
	ErrReviewNotFound  = repository.ErrReviewNotFound
	ErrNotReviewAuthor = errors.New("not the author of this review")
	ErrUnknownGrade    = errors.New("unknown grade")
)

// submitLockStripes bounds the per-user lock table.
const submitLockStripes = 64

// ReviewService handles the write side: submission, deletion and author
// renames.
type ReviewService struct {
	reviews *repository.ReviewRepository
	votes   *repository.VoteRepository
	engine  *eligibility.Engine
	stats   *StatsService
	log     zerolog.Logger

	// locks serialize check-then-create per user on this instance.
	locks [submitLockStripes]sync.Mutex
}

// NewReviewService creates a new ReviewService.
func NewReviewService(
	reviews *repository.ReviewRepository,
	votes *repository.VoteRepository,
	engine *eligibility.Engine,
	stats *StatsService,
	log zerolog.Logger,
) *ReviewService {
	return &ReviewService{
		reviews: reviews,
		votes:   votes,
		engine:  engine,
		stats:   stats,
		log:     log.With().Str("component", "review_service").Logger(),
	}
}

func (s *ReviewService) userLock(userID string) *sync.Mutex {
	h := fnv.New32a()
	_, _ = h.Write([]byte(userID))
	return &s.locks[h.Sum32()%submitLockStripes]
}

func normalizeCourseCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// CheckEligibility evaluates the submission policy against live data.
func (s *ReviewService) CheckEligibility(ctx context.Context, userID, courseCode, termCode string) eligibility.Decision {
	ctx, span := tracer.Start(ctx, "ReviewService.CheckEligibility",
		trace.WithAttributes(
			attribute.String("course_code", courseCode),
			attribute.String("term_code", termCode),
		))
	defer span.End()

	d := s.engine.Check(ctx, userID, normalizeCourseCode(courseCode), strings.TrimSpace(termCode))
	span.SetAttributes(attribute.String("reason", string(d.Reason)))
	return d
}

// Submit stores a new review after a live eligibility check. On denial it
// returns ErrNotEligible together with the decision.
func (s *ReviewService) Submit(ctx context.Context, userID, displayName string, req *model.CreateReviewRequest) (*model.Review, eligibility.Decision, error) {
	if !grade.IsKnown(req.Grade) {
		return nil, eligibility.Decision{}, fmt.Errorf("%w: %q", ErrUnknownGrade, req.Grade)
	}

	courseCode := normalizeCourseCode(req.CourseCode)
	termCode := strings.TrimSpace(req.TermCode)

	mu := s.userLock(userID)
	mu.Lock()
	defer mu.Unlock()

	d := s.CheckEligibility(ctx, userID, courseCode, termCode)
	if !d.Allowed {
		return nil, d, ErrNotEligible
	}

	details := make([]model.InstructorDetail, len(req.InstructorDetails))
	for i, dr := range req.InstructorDetails {
		details[i] = dr.Detail()
	}
	rev := &model.Review{
		UserID:            userID,
		IsAnonymous:       req.IsAnonymous,
		CourseCode:        courseCode,
		TermCode:          termCode,
		Workload:          req.Workload,
		Difficulty:        req.Difficulty,
		Usefulness:        req.Usefulness,
		Grade:             strings.TrimSpace(req.Grade),
		Comments:          req.Comments,
		InstructorDetails: details,
	}
	if !req.IsAnonymous {
		rev.DisplayName = displayName
	}

	if err := s.reviews.Create(ctx, rev); err != nil {
		return nil, d, err
	}
	s.stats.InvalidateReviewStats(ctx)

	s.log.Info().
		Str("review_id", rev.ID).
		Str("course_code", courseCode).
		Str("term_code", termCode).
		Str("reason", string(d.Reason)).
		Msg("Review submitted")
	return rev, d, nil
}

// Delete removes the caller's own review and its votes.
func (s *ReviewService) Delete(ctx context.Context, userID, reviewID string) error {
	rev, err := s.reviews.Get(ctx, reviewID)
	if err != nil {
		return err
	}
	if rev.UserID != userID {
		return ErrNotReviewAuthor
	}

	votes, err := s.votes.ListByReview(ctx, reviewID)
	if err != nil {
		return err
	}
	for _, v := range votes {
		if err := s.votes.Delete(ctx, v.ID); err != nil {
			return err
		}
	}
	if err := s.reviews.Delete(ctx, reviewID); err != nil {
		return err
	}
	s.stats.InvalidateReviewStats(ctx)

	s.log.Info().Str("review_id", reviewID).Int("votes", len(votes)).Msg("Review deleted")
	return nil
}

// RenameAuthor backfills name onto the user's non-anonymous reviews.
func (s *ReviewService) RenameAuthor(ctx context.Context, userID, name string) (int, error) {
	n, err := s.reviews.UpdateDisplayName(ctx, userID, strings.TrimSpace(name))
	if err != nil {
		return n, err
	}
	s.log.Info().Str("user_id", userID).Int("reviews", n).Msg("Author name backfilled")
	return n, nil
}
