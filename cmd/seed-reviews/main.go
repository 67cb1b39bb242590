package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/stemsi/course-review-backend/internal/cache"
	"github.com/stemsi/course-review-backend/internal/config"
	"github.com/stemsi/course-review-backend/internal/database"
	"github.com/stemsi/course-review-backend/internal/eligibility"
	"github.com/stemsi/course-review-backend/internal/logger"
	"github.com/stemsi/course-review-backend/internal/model"
	"github.com/stemsi/course-review-backend/internal/repository"
	"github.com/stemsi/course-review-backend/internal/service"
	"github.com/stemsi/course-review-backend/internal/store"
)

type course struct {
	code, title, dept string
	instructors       []string
}

var courses = []course{
	{"CSCI1130", "Introduction to Computing Using Java", "CSE", []string{"Dr. Chan Tai Man", "Prof. Wong Siu Ming"}},
	{"CSCI2100", "Data Structures", "CSE", []string{"Prof. Lee Ka Wai"}},
	{"CSCI3100", "Software Engineering", "CSE", []string{"Dr. Chan Tai Man"}},
	{"MATH1510", "Calculus for Engineers", "MATH", []string{"Dr. Ho Mei Ling", "Dr. Cheung Wing"}},
	{"MATH2040", "Linear Algebra II", "MATH", []string{"Dr. Ho Mei Ling"}},
	{"ENGG1110", "Problem Solving by Programming", "ENGG", []string{"Prof. Wong Siu Ming", "Prof. Lee Ka Wai"}},
	{"UGFN1000", "In Dialogue with Nature", "UGFN", []string{"Dr. Yip Hoi"}},
	{"GEOG2030", "Urban Geography", "GEOG", []string{"Dr. Yip Hoi"}},
}

var terms = []string{"2023-24 Term 1", "2023-24 Term 2", "2024-25 Term 1"}

var grades = []string{"A", "A-", "B+", "B", "B-", "C+", "C", "D", "F", "F", "W", "P"}

var languages = []string{"en", "zh", "en+zh"}

func main() {
	var users int
	var seed uint64
	flag.IntVar(&users, "users", 50, "Number of students to submit reviews for")
	flag.Uint64Var(&seed, "seed", 1, "Random seed")
	flag.Parse()

	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()
	docs := store.NewPostgresStore(pool)

	fmt.Println("=== Seeding reference data ===")
	if err := seedReference(ctx, docs); err != nil {
		log.Fatal().Err(err).Msg("Failed to seed reference data")
	}

	policy, err := config.LoadPolicy(cfg.PolicyFile, cfg.Policy)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid eligibility policy")
	}

	reviewRepo := repository.NewReviewRepository(docs, log)
	statsService := service.NewStatsService(
		reviewRepo,
		repository.NewTeachingRepository(docs, log),
		repository.NewCourseRepository(docs, log),
		repository.NewInstructorRepository(docs, log),
		cache.New(), nil,
		service.StatsOptionsFromConfig(cfg),
		log,
	)
	reviewService := service.NewReviewService(
		reviewRepo,
		repository.NewVoteRepository(docs),
		eligibility.NewEngine(reviewRepo, policy, log),
		statsService,
		log,
	)

	fmt.Printf("=== Seeding reviews for %d students ===\n", users)
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	created, denied := 0, map[eligibility.Reason]int{}
	for i := range users {
		userID := fmt.Sprintf("seed-student-%03d", i+1)
		name := fmt.Sprintf("Student %03d", i+1)

		for range 1 + rng.IntN(6) {
			req := randomReview(rng)
			_, d, err := reviewService.Submit(ctx, userID, name, req)
			switch {
			case err == nil:
				created++
			case errors.Is(err, service.ErrNotEligible):
				denied[d.Reason]++
			default:
				log.Fatal().Err(err).Str("user_id", userID).Msg("Failed to submit review")
			}
		}
		if (i+1)%10 == 0 {
			fmt.Printf("Processed %d students...\n", i+1)
		}
	}

	fmt.Printf("\nSeed completed! Created %d reviews.\n", created)
	for reason, n := range denied {
		fmt.Printf("  denied (%s): %d\n", reason, n)
	}
}

// seedReference inserts courses, instructors and teaching records. Rows that
// already exist are left untouched, so the command can be re-run.
func seedReference(ctx context.Context, docs store.DocumentStore) error {
	seen := map[string]bool{}
	for ci, c := range courses {
		err := create(ctx, docs, store.Courses, store.Record{
			"code":       c.code,
			"titles":     []byte(fmt.Sprintf(`{"en":%q}`, c.title)),
			"department": c.dept,
		})
		if err != nil {
			return err
		}

		for _, name := range c.instructors {
			if !seen[name] {
				seen[name] = true
				if err := create(ctx, docs, store.Instructors, store.Record{"name": name, "department": c.dept}); err != nil {
					return err
				}
			}
		}

		for ti, term := range terms {
			if (ci+ti)%3 == 2 {
				continue // not offered every term
			}
			for ii, name := range c.instructors {
				rec := store.Record{
					"id":                fmt.Sprintf("seed-%s-%d-%d", c.code, ti, ii),
					"course_code":       c.code,
					"term_code":         term,
					"instructor_name":   name,
					"session_type":      "Lecture",
					"teaching_language": languages[(ci+ii)%len(languages)],
				}
				if c.dept == "UGFN" {
					rec["service_learning"] = string(model.ServiceLearningOptional)
				}
				if err := create(ctx, docs, store.TeachingRecords, rec); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func create(ctx context.Context, docs store.DocumentStore, collection string, rec store.Record) error {
	_, err := docs.Create(ctx, collection, rec)
	if err != nil && !errors.Is(err, store.ErrConflict) {
		return fmt.Errorf("seed %s: %w", collection, err)
	}
	return nil
}

func rating(rng *rand.Rand) model.Rating {
	if rng.IntN(10) == 0 {
		return model.RatingNotApplicable
	}
	return model.Rating(1 + rng.IntN(5))
}

func randomReview(rng *rand.Rand) *model.CreateReviewRequest {
	c := courses[rng.IntN(len(courses))]
	details := make([]model.InstructorDetailRequest, 0, len(c.instructors))
	for _, name := range c.instructors {
		details = append(details, model.InstructorDetailRequest{
			InstructorName: name,
			SessionType:    "Lecture",
			Teaching:       rating(rng),
			Grading:        rating(rng),
			HasMidterm:     rng.IntN(2) == 0,
			HasFinal:       rng.IntN(4) != 0,
			HasQuiz:        rng.IntN(3) == 0,
		})
	}
	return &model.CreateReviewRequest{
		CourseCode:        c.code,
		TermCode:          terms[rng.IntN(len(terms))],
		IsAnonymous:       rng.IntN(4) == 0,
		Workload:          rating(rng),
		Difficulty:        rating(rng),
		Usefulness:        rating(rng),
		Grade:             grades[rng.IntN(len(grades))],
		InstructorDetails: details,
	}
}
