package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/course-review-backend/internal/cache"
	"github.com/stemsi/course-review-backend/internal/config"
	"github.com/stemsi/course-review-backend/internal/model"
	"github.com/stemsi/course-review-backend/internal/repository"
	"github.com/stemsi/course-review-backend/internal/stats"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

// ErrCourseNotFound is returned when a course is unknown.
var ErrCourseNotFound = errors.New("course not found")

// errDegraded marks a composed result built with at least one failed
// lookup. Such results are returned but never cached.
var errDegraded = errors.New("degraded result")

const (
	defaultTopN = 10
	maxTopN     = 100
)

var tracer = otel.Tracer("course-review.service")

// StatsOptions tunes the aggregation facade.
type StatsOptions struct {
	CurrentTerm        string
	StatsTTL           time.Duration
	MembershipTTL      time.Duration
	ReferenceTTL       time.Duration
	MaxReviewRecords   int
	MaxTeachingRecords int
	TopMinSample       int
}

// StatsOptionsFromConfig copies the facade settings out of cfg.
func StatsOptionsFromConfig(cfg *config.Config) StatsOptions {
	return StatsOptions{
		CurrentTerm:        cfg.CurrentTerm,
		StatsTTL:           cfg.StatsCacheTTL,
		MembershipTTL:      cfg.MembershipCacheTTL,
		ReferenceTTL:       cfg.ReferenceCacheTTL,
		MaxReviewRecords:   cfg.MaxReviewRecords,
		MaxTeachingRecords: cfg.MaxTeachingRecords,
		TopMinSample:       cfg.TopMinSample,
	}
}

// teachingBadges are the badge maps derived from all teaching records.
type teachingBadges struct {
	Courses     map[string]stats.Badges `json:"courses"`
	Instructors map[string]stats.Badges `json:"instructors"`
	Truncated   bool                    `json:"truncated"`
}

// StatsService answers the read-side questions about courses and
// instructors. Values it returns may be shared with the cache and must not
// be modified by callers.
type StatsService struct {
	reviews     *repository.ReviewRepository
	teaching    *repository.TeachingRepository
	courses     *repository.CourseRepository
	instructors *repository.InstructorRepository
	cache       *cache.TTL
	mirror      *cache.Mirror
	opts        StatsOptions
	log         zerolog.Logger
}

// NewStatsService creates a new StatsService. mirror may be nil.
func NewStatsService(
	reviews *repository.ReviewRepository,
	teaching *repository.TeachingRepository,
	courses *repository.CourseRepository,
	instructors *repository.InstructorRepository,
	c *cache.TTL,
	mirror *cache.Mirror,
	opts StatsOptions,
	log zerolog.Logger,
) *StatsService {
	return &StatsService{
		reviews:     reviews,
		teaching:    teaching,
		courses:     courses,
		instructors: instructors,
		cache:       c,
		mirror:      mirror,
		opts:        opts,
		log:         log.With().Str("component", "stats_service").Logger(),
	}
}

// cached serves key from the local cache, then the mirror, then compute.
// A compute error skips both writes; the computed value is still returned
// so degraded results reach the caller.
func cached[T any](ctx context.Context, s *StatsService, key string, ttl time.Duration, compute func(context.Context) (T, error)) (T, error) {
	if v, ok := cache.GetAs[T](s.cache, key); ok {
		return v, nil
	}
	var v T
	if remaining, ok := s.mirror.Load(ctx, key, &v); ok {
		s.cache.Set(key, v, remaining)
		return v, nil
	}

	v, err := compute(ctx)
	if err != nil {
		return v, err
	}
	s.cache.Set(key, v, ttl)
	s.mirror.Store(context.WithoutCancel(ctx), key, v, ttl)
	return v, nil
}

func (s *StatsService) degrade(lookup string, err error) {
	if err == nil {
		return
	}
	degradedTotal.WithLabelValues(lookup).Inc()
	s.log.Warn().Err(err).Str("lookup", lookup).Msg("Lookup failed, serving defaults")
}

func (s *StatsService) noteBatch(source string, truncated bool, skipped int) {
	if truncated {
		truncatedTotal.WithLabelValues(source).Inc()
	}
	if skipped > 0 {
		skippedRecordsTotal.Add(float64(skipped))
	}
}

func (s *StatsService) termOrCurrent(term string) string {
	if term == "" {
		return s.opts.CurrentTerm
	}
	return term
}

// ─── Cached building blocks ───────────────────────────────────────────

func (s *StatsService) courseSnapshot(ctx context.Context) (stats.Result[model.ReviewStats], error) {
	return cached(ctx, s, config.CacheKey.CourseStatsSnapshotKey(), s.opts.StatsTTL,
		func(ctx context.Context) (stats.Result[model.ReviewStats], error) {
			batch, err := s.reviews.ListAll(ctx, s.opts.MaxReviewRecords)
			if err != nil {
				return stats.Result[model.ReviewStats]{}, err
			}
			s.noteBatch("course_reviews", batch.Truncated, batch.Skipped)
			return stats.Result[model.ReviewStats]{
				Stats:     stats.AggregateCourses(batch.Reviews),
				Truncated: batch.Truncated,
				Skipped:   batch.Skipped,
			}, nil
		})
}

func (s *StatsService) instructorSnapshot(ctx context.Context) (stats.Result[model.InstructorReviewStats], error) {
	return cached(ctx, s, config.CacheKey.InstructorStatsSnapshotKey(), s.opts.StatsTTL,
		func(ctx context.Context) (stats.Result[model.InstructorReviewStats], error) {
			batch, err := s.reviews.ListAll(ctx, s.opts.MaxReviewRecords)
			if err != nil {
				return stats.Result[model.InstructorReviewStats]{}, err
			}
			s.noteBatch("instructor_reviews", batch.Truncated, batch.Skipped)
			return stats.Result[model.InstructorReviewStats]{
				Stats:     stats.AggregateInstructors(batch.Reviews),
				Truncated: batch.Truncated,
				Skipped:   batch.Skipped,
			}, nil
		})
}

func (s *StatsService) badges(ctx context.Context) (teachingBadges, error) {
	return cached(ctx, s, config.CacheKey.TeachingBadgesKey(), s.opts.MembershipTTL,
		func(ctx context.Context) (teachingBadges, error) {
			batch, err := s.teaching.ListAll(ctx, s.opts.MaxTeachingRecords)
			if err != nil {
				return teachingBadges{}, err
			}
			s.noteBatch("teaching_records", batch.Truncated, 0)
			return teachingBadges{
				Courses:     stats.CourseBadges(batch.Records),
				Instructors: stats.InstructorBadges(batch.Records),
				Truncated:   batch.Truncated,
			}, nil
		})
}

func (s *StatsService) membership(ctx context.Context, key, term string, pick func(stats.Membership) map[string]struct{}) (map[string]struct{}, error) {
	return cached(ctx, s, key, s.opts.MembershipTTL,
		func(ctx context.Context) (map[string]struct{}, error) {
			if term == "" {
				return map[string]struct{}{}, nil
			}
			batch, err := s.teaching.ListByTerm(ctx, term, s.opts.MaxTeachingRecords)
			if err != nil {
				return nil, err
			}
			s.noteBatch("term_teaching_records", batch.Truncated, 0)
			return pick(stats.MembershipOf(term, batch.Records)), nil
		})
}

func (s *StatsService) courseMembership(ctx context.Context, term string) (map[string]struct{}, error) {
	return s.membership(ctx, config.CacheKey.CourseMembershipKey(term), term,
		func(m stats.Membership) map[string]struct{} { return m.Courses })
}

func (s *StatsService) instructorMembership(ctx context.Context, term string) (map[string]struct{}, error) {
	return s.membership(ctx, config.CacheKey.InstructorMembershipKey(term), term,
		func(m stats.Membership) map[string]struct{} { return m.Instructors })
}

func (s *StatsService) courseRefs(ctx context.Context) ([]model.Course, error) {
	return cached(ctx, s, config.CacheKey.CourseReferenceKey(), s.opts.ReferenceTTL, s.courses.ListAll)
}

func (s *StatsService) instructorRefs(ctx context.Context) ([]model.Instructor, error) {
	return cached(ctx, s, config.CacheKey.InstructorReferenceKey(), s.opts.ReferenceTTL, s.instructors.ListAll)
}

// ─── Composed views ───────────────────────────────────────────────────

func (s *StatsService) courseView(ctx context.Context, term string) (model.CourseList, error) {
	return cached(ctx, s, config.CacheKey.CourseViewKey(term), s.opts.StatsTTL,
		func(ctx context.Context) (model.CourseList, error) {
			return s.composeCourses(ctx, term)
		})
}

func (s *StatsService) composeCourses(ctx context.Context, term string) (model.CourseList, error) {
	var (
		refs     Enrichment[[]model.Course]
		snapshot Enrichment[stats.Result[model.ReviewStats]]
		offered  Enrichment[map[string]struct{}]
		badges   Enrichment[teachingBadges]
	)

	// Siblings must keep running when one fails, so no shared context.
	var g errgroup.Group
	g.Go(func() error {
		v, err := s.courseRefs(ctx)
		refs = enrich(v, err)
		return err
	})
	g.Go(func() error {
		v, err := s.courseSnapshot(ctx)
		snapshot = enrich(v, err)
		return err
	})
	g.Go(func() error {
		v, err := s.courseMembership(ctx, term)
		offered = enrich(v, err)
		return err
	})
	g.Go(func() error {
		v, err := s.badges(ctx)
		badges = enrich(v, err)
		return err
	})
	failed := g.Wait()

	s.degrade("course_refs", refs.Err)
	s.degrade("course_stats", snapshot.Err)
	s.degrade("course_membership", offered.Err)
	s.degrade("teaching_badges", badges.Err)

	snap := snapshot.OrDefault(stats.Result[model.ReviewStats]{})
	badgeSet := badges.OrDefault(teachingBadges{})
	inTerm := offered.OrDefault(nil)

	courses := refs.OrDefault(nil)
	if !refs.OK() {
		courses = coursesFromStats(snap.Stats)
	}

	out := make([]model.CourseWithStats, 0, len(courses))
	for _, c := range courses {
		b := badgeSet.Courses[c.Code]
		_, offeredNow := inTerm[c.Code]
		out = append(out, model.CourseWithStats{
			Course:            c,
			Stats:             snap.Stats[c.Code],
			OfferedInTerm:     offeredNow,
			TeachingLanguages: orEmpty(b.Languages),
			ServiceLearning:   orEmpty(b.ServiceLearning),
		})
	}

	list := model.CourseList{
		Term:      term,
		Courses:   out,
		Truncated: snap.Truncated || badgeSet.Truncated,
	}
	if failed != nil {
		return list, errDegraded
	}
	return list, nil
}

func (s *StatsService) instructorView(ctx context.Context, term string) (model.InstructorList, error) {
	return cached(ctx, s, config.CacheKey.InstructorViewKey(term), s.opts.StatsTTL,
		func(ctx context.Context) (model.InstructorList, error) {
			return s.composeInstructors(ctx, term)
		})
}

func (s *StatsService) composeInstructors(ctx context.Context, term string) (model.InstructorList, error) {
	var (
		refs     Enrichment[[]model.Instructor]
		snapshot Enrichment[stats.Result[model.InstructorReviewStats]]
		teaching Enrichment[map[string]struct{}]
		badges   Enrichment[teachingBadges]
	)

	var g errgroup.Group
	g.Go(func() error {
		v, err := s.instructorRefs(ctx)
		refs = enrich(v, err)
		return err
	})
	g.Go(func() error {
		v, err := s.instructorSnapshot(ctx)
		snapshot = enrich(v, err)
		return err
	})
	g.Go(func() error {
		v, err := s.instructorMembership(ctx, term)
		teaching = enrich(v, err)
		return err
	})
	g.Go(func() error {
		v, err := s.badges(ctx)
		badges = enrich(v, err)
		return err
	})
	failed := g.Wait()

	s.degrade("instructor_refs", refs.Err)
	s.degrade("instructor_stats", snapshot.Err)
	s.degrade("instructor_membership", teaching.Err)
	s.degrade("teaching_badges", badges.Err)

	snap := snapshot.OrDefault(stats.Result[model.InstructorReviewStats]{})
	badgeSet := badges.OrDefault(teachingBadges{})
	inTerm := teaching.OrDefault(nil)

	instructors := refs.OrDefault(nil)
	if !refs.OK() {
		instructors = instructorsFromStats(snap.Stats)
	}

	out := make([]model.InstructorWithStats, 0, len(instructors))
	for _, in := range instructors {
		_, teachingNow := inTerm[in.Name]
		out = append(out, model.InstructorWithStats{
			Instructor:        in,
			Stats:             snap.Stats[in.Name],
			TeachingInTerm:    teachingNow,
			TeachingLanguages: orEmpty(badgeSet.Instructors[in.Name].Languages),
		})
	}

	list := model.InstructorList{
		Term:        term,
		Instructors: out,
		Truncated:   snap.Truncated || badgeSet.Truncated,
	}
	if failed != nil {
		return list, errDegraded
	}
	return list, nil
}

// ─── Public queries ───────────────────────────────────────────────────

// GetCoursesWithStats returns every course with its statistics and badges.
// An empty term means the current term. Store failures yield a degraded
// list rather than an error; only cancellation is reported.
func (s *StatsService) GetCoursesWithStats(ctx context.Context, term string) (model.CourseList, error) {
	term = s.termOrCurrent(term)
	ctx, span := tracer.Start(ctx, "StatsService.GetCoursesWithStats",
		trace.WithAttributes(attribute.String("term", term)))
	defer span.End()

	list, err := s.courseView(ctx, term)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return model.CourseList{}, ctxErr
	}
	span.SetAttributes(
		attribute.Bool("degraded", errors.Is(err, errDegraded)),
		attribute.Int("courses", len(list.Courses)),
	)
	return list, nil
}

// GetInstructorsWithStats returns every instructor with statistics.
func (s *StatsService) GetInstructorsWithStats(ctx context.Context, term string) (model.InstructorList, error) {
	term = s.termOrCurrent(term)
	ctx, span := tracer.Start(ctx, "StatsService.GetInstructorsWithStats",
		trace.WithAttributes(attribute.String("term", term)))
	defer span.End()

	list, err := s.instructorView(ctx, term)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return model.InstructorList{}, ctxErr
	}
	span.SetAttributes(
		attribute.Bool("degraded", errors.Is(err, errDegraded)),
		attribute.Int("instructors", len(list.Instructors)),
	)
	return list, nil
}

// topParams fills in defaults: n in [1, 100], minSample from options when
// not positive.
func (s *StatsService) topParams(n, minSample int) (int, int) {
	if n <= 0 {
		n = defaultTopN
	}
	if n > maxTopN {
		n = maxTopN
	}
	if minSample <= 0 {
		minSample = s.opts.TopMinSample
	}
	return n, minSample
}

// GetTopCoursesByGPA ranks courses of the current term view by average GPA.
// Courses with fewer than minSample graded reviews are excluded.
func (s *StatsService) GetTopCoursesByGPA(ctx context.Context, n, minSample int) ([]model.CourseWithStats, error) {
	n, minSample = s.topParams(n, minSample)
	ctx, span := tracer.Start(ctx, "StatsService.GetTopCoursesByGPA",
		trace.WithAttributes(attribute.Int("n", n), attribute.Int("min_sample", minSample)))
	defer span.End()

	top, _ := cached(ctx, s, config.CacheKey.TopCoursesKey(n, minSample), s.opts.StatsTTL,
		func(ctx context.Context) ([]model.CourseWithStats, error) {
			list, err := s.courseView(ctx, s.opts.CurrentTerm)
			return stats.TopCoursesByGPA(list.Courses, n, minSample), err
		})
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return top, nil
}

// GetTopInstructorsByGPA ranks instructors by average GPA.
func (s *StatsService) GetTopInstructorsByGPA(ctx context.Context, n, minSample int) ([]model.InstructorWithStats, error) {
	n, minSample = s.topParams(n, minSample)
	ctx, span := tracer.Start(ctx, "StatsService.GetTopInstructorsByGPA",
		trace.WithAttributes(attribute.Int("n", n), attribute.Int("min_sample", minSample)))
	defer span.End()

	top, _ := cached(ctx, s, config.CacheKey.TopInstructorsKey(n, minSample), s.opts.StatsTTL,
		func(ctx context.Context) ([]model.InstructorWithStats, error) {
			list, err := s.instructorView(ctx, s.opts.CurrentTerm)
			return stats.TopInstructorsByGPA(list.Instructors, n, minSample), err
		})
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return top, nil
}

// IsCourseOfferedInTerm reports whether any teaching record places code in
// term. A failed lookup reports false.
func (s *StatsService) IsCourseOfferedInTerm(ctx context.Context, code, term string) bool {
	set, err := s.courseMembership(ctx, s.termOrCurrent(term))
	if err != nil {
		s.degrade("course_membership", err)
		return false
	}
	_, ok := set[code]
	return ok
}

// IsInstructorTeachingInTerm reports whether name teaches anything in term.
func (s *StatsService) IsInstructorTeachingInTerm(ctx context.Context, name, term string) bool {
	set, err := s.instructorMembership(ctx, s.termOrCurrent(term))
	if err != nil {
		s.degrade("instructor_membership", err)
		return false
	}
	_, ok := set[name]
	return ok
}

// GetCourseDetail returns one course view together with its reviews,
// newest first. Anonymous authors are hidden.
func (s *StatsService) GetCourseDetail(ctx context.Context, code, term string) (*model.CourseDetail, error) {
	term = s.termOrCurrent(term)
	ctx, span := tracer.Start(ctx, "StatsService.GetCourseDetail",
		trace.WithAttributes(attribute.String("course_code", code), attribute.String("term", term)))
	defer span.End()

	list, _ := s.courseView(ctx, term)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	i := slices.IndexFunc(list.Courses, func(c model.CourseWithStats) bool { return c.Code == code })
	if i < 0 {
		return nil, ErrCourseNotFound
	}

	batch, err := s.reviews.ListByCourse(ctx, code, s.opts.MaxReviewRecords)
	if err != nil {
		s.degrade("course_reviews", err)
	}
	reviews := make([]model.Review, 0, len(batch.Reviews))
	for _, r := range batch.Reviews {
		reviews = append(reviews, r.Public())
	}

	return &model.CourseDetail{
		CourseWithStats: list.Courses[i],
		Reviews:         reviews,
		Truncated:       list.Truncated || batch.Truncated,
	}, nil
}

// InvalidateCache drops every cached entry on this instance and orphans
// the shared mirror.
func (s *StatsService) InvalidateCache(ctx context.Context) {
	s.cache.InvalidateAll()
	s.mirror.InvalidateAll(context.WithoutCancel(ctx))
	s.log.Info().Msg("Statistics cache invalidated")
}

// InvalidateReviewStats drops the entries derived from review content.
// Membership and reference entries stay on this instance.
func (s *StatsService) InvalidateReviewStats(ctx context.Context) {
	n := 0
	for _, prefix := range []string{config.StatsKeyPrefix, config.TopKeyPrefix, config.ViewKeyPrefix} {
		n += s.cache.DeletePrefix(prefix)
	}
	s.mirror.InvalidateAll(context.WithoutCancel(ctx))
	s.log.Debug().Int("entries", n).Msg("Review statistics invalidated")
}

// Prewarm computes the current-term views so the first requests are served
// from cache. Degraded views are not cached and leave nothing behind.
func (s *StatsService) Prewarm(ctx context.Context) error {
	var g errgroup.Group
	g.Go(func() error {
		_, err := s.GetCoursesWithStats(ctx, "")
		return err
	})
	g.Go(func() error {
		_, err := s.GetInstructorsWithStats(ctx, "")
		return err
	})
	if err := g.Wait(); err != nil {
		return fmt.Errorf("prewarm statistics: %w", err)
	}
	s.log.Info().Int("entries", s.cache.Len()).Msg("Statistics cache prewarmed")
	return nil
}

// CacheStatus reports the local entry count and the shared mirror generation.
func (s *StatsService) CacheStatus(ctx context.Context) model.CacheStatus {
	st := model.CacheStatus{Entries: s.cache.Len(), MirrorEnabled: s.mirror != nil}
	gen, err := s.mirror.Generation(ctx)
	if err != nil {
		st.MirrorError = err.Error()
	}
	st.MirrorGeneration = gen
	return st
}

func coursesFromStats(m map[string]model.ReviewStats) []model.Course {
	out := make([]model.Course, 0, len(m))
	for code := range m {
		out = append(out, model.Course{Code: code})
	}
	slices.SortFunc(out, func(a, b model.Course) int { return strings.Compare(a.Code, b.Code) })
	return out
}

func instructorsFromStats(m map[string]model.InstructorReviewStats) []model.Instructor {
	out := make([]model.Instructor, 0, len(m))
	for name := range m {
		out = append(out, model.Instructor{Name: name})
	}
	slices.SortFunc(out, func(a, b model.Instructor) int { return strings.Compare(a.Name, b.Name) })
	return out
}

func orEmpty[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
