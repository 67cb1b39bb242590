package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/course-review-backend/internal/cache"
	"github.com/stemsi/course-review-backend/internal/eligibility"
	"github.com/stemsi/course-review-backend/internal/model"
	"github.com/stemsi/course-review-backend/internal/repository"
	"github.com/stemsi/course-review-backend/internal/store"
	"github.com/stretchr/testify/require"
)

const currentTerm = "2024-25 Term 1"

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fixture struct {
	store   *store.MemoryStore
	clock   *clock
	cache   *cache.TTL
	reviews *repository.ReviewRepository
	votes   *repository.VoteRepository
	stats   *StatsService
	review  *ReviewService
}

func testOptions() StatsOptions {
	return StatsOptions{
		CurrentTerm:        currentTerm,
		StatsTTL:           5 * time.Minute,
		MembershipTTL:      time.Hour,
		ReferenceTTL:       time.Hour,
		MaxReviewRecords:   1000,
		MaxTeachingRecords: 1000,
		TopMinSample:       2,
	}
}

func newFixture(t *testing.T, mirror *cache.Mirror) *fixture {
	t.Helper()
	s := store.NewMemoryStore()
	clk := &clock{now: time.Date(2024, 9, 1, 9, 0, 0, 0, time.UTC)}
	c := cache.New(cache.WithClock(clk.Now))
	log := zerolog.Nop()

	reviews := repository.NewReviewRepository(s, log)
	votes := repository.NewVoteRepository(s)
	statsSvc := NewStatsService(
		reviews,
		repository.NewTeachingRepository(s, log),
		repository.NewCourseRepository(s, log),
		repository.NewInstructorRepository(s, log),
		c, mirror, testOptions(), log,
	)
	engine := eligibility.NewEngine(reviews, eligibility.DefaultPolicy(), log)

	return &fixture{
		store:   s,
		clock:   clk,
		cache:   c,
		reviews: reviews,
		votes:   votes,
		stats:   statsSvc,
		review:  NewReviewService(reviews, votes, engine, statsSvc, log),
	}
}

func (f *fixture) seedReference(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	for _, rec := range []store.Record{
		{"code": "CS101", "titles": []byte(`{"en":"Intro to Programming"}`), "department": "CS"},
		{"code": "CS102", "titles": []byte(`{"en":"Data Structures"}`), "department": "CS"},
		{"code": "MA101", "titles": []byte(`{"en":"Calculus"}`), "department": "MA"},
	} {
		_, err := f.store.Create(ctx, store.Courses, rec)
		require.NoError(t, err)
	}
	for _, name := range []string{"Dr. Chan", "Dr. Lee"} {
		_, err := f.store.Create(ctx, store.Instructors, store.Record{"name": name, "department": "CS"})
		require.NoError(t, err)
	}
	for _, rec := range []store.Record{
		{"course_code": "CS101", "term_code": "2023-24 Term 2", "instructor_name": "Dr. Chan", "teaching_language": "zh", "service_learning": "optional"},
		{"course_code": "CS101", "term_code": currentTerm, "instructor_name": "Dr. Chan", "teaching_language": "en"},
		{"course_code": "CS102", "term_code": "2023-24 Term 1", "instructor_name": "Dr. Lee", "teaching_language": "en", "service_learning": "compulsory"},
	} {
		_, err := f.store.Create(ctx, store.TeachingRecords, rec)
		require.NoError(t, err)
	}
}

func (f *fixture) addReview(t *testing.T, user, course, term, grade string, anonymous bool, instructors ...string) *model.Review {
	t.Helper()
	details := make([]model.InstructorDetail, 0, len(instructors))
	for _, name := range instructors {
		details = append(details, model.InstructorDetail{InstructorName: name, SessionType: "Lecture", Teaching: 4, Grading: 3})
	}
	rev := &model.Review{
		UserID:            user,
		DisplayName:       "Student " + user,
		IsAnonymous:       anonymous,
		CourseCode:        course,
		TermCode:          term,
		Workload:          3,
		Difficulty:        4,
		Usefulness:        5,
		Grade:             grade,
		InstructorDetails: details,
	}
	require.NoError(t, f.reviews.Create(context.Background(), rev))
	return rev
}
