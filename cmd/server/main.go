package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/course-review-backend/internal/cache"
	"github.com/stemsi/course-review-backend/internal/config"
	"github.com/stemsi/course-review-backend/internal/database"
	"github.com/stemsi/course-review-backend/internal/eligibility"
	"github.com/stemsi/course-review-backend/internal/handler"
	"github.com/stemsi/course-review-backend/internal/logger"
	"github.com/stemsi/course-review-backend/internal/repository"
	"github.com/stemsi/course-review-backend/internal/router"
	"github.com/stemsi/course-review-backend/internal/service"
	"github.com/stemsi/course-review-backend/internal/store"
	"github.com/stemsi/course-review-backend/internal/telemetry"
	"github.com/stemsi/course-review-backend/internal/validator"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Str("log_level", cfg.LogLevel).
		Str("store", cfg.StoreDriver).
		Str("current_term", cfg.CurrentTerm).
		Msg("Starting Course Review Backend")

	// ─── Initialize Validator ──────────────────────────────────────────
	validator.Setup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ─── Tracing ───────────────────────────────────────────────────────
	shutdownTracing, err := telemetry.Init(ctx, "course-review-backend", cfg.TracesExporter)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize tracing")
	}

	// ─── Eligibility Policy ────────────────────────────────────────────
	policy, err := config.LoadPolicy(cfg.PolicyFile, cfg.Policy)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid eligibility policy")
	}
	cfg.Policy = policy
	log.Info().
		Int("term_limit", policy.TermLimit).
		Int("course_limit", policy.CourseLimit).
		Str("fail_grade", policy.FailGrade).
		Msg("Eligibility policy loaded")

	// ─── Document Store ────────────────────────────────────────────────
	var docs store.DocumentStore
	switch cfg.StoreDriver {
	case "memory":
		log.Warn().Msg("In-memory store selected, data is lost on restart")
		docs = store.NewMemoryStore()
	case "postgres":
		pool, err := database.NewPostgresPool(ctx, cfg, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
		}
		defer pool.Close()
		docs = store.NewPostgresStore(pool)
	default:
		log.Fatal().Str("store", cfg.StoreDriver).Msg("Unknown STORE_DRIVER")
	}

	// ─── Connect to Redis (optional) ───────────────────────────────────
	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	var mirror *cache.Mirror
	if rdb != nil {
		defer rdb.Close()
		mirror = cache.NewMirror(rdb, log)
	}

	// ─── Initialize Repositories ───────────────────────────────────────
	reviewRepo := repository.NewReviewRepository(docs, log)
	teachingRepo := repository.NewTeachingRepository(docs, log)
	courseRepo := repository.NewCourseRepository(docs, log)
	instructorRepo := repository.NewInstructorRepository(docs, log)
	voteRepo := repository.NewVoteRepository(docs)

	// ─── Initialize Services ──────────────────────────────────────────
	authService := service.NewAuthService(cfg)
	statsService := service.NewStatsService(
		reviewRepo, teachingRepo, courseRepo, instructorRepo,
		cache.New(), mirror,
		service.StatsOptionsFromConfig(cfg),
		log,
	)
	engine := eligibility.NewEngine(reviewRepo, policy, log)
	reviewService := service.NewReviewService(reviewRepo, voteRepo, engine, statsService, log)

	// ─── Initialize Handlers ──────────────────────────────────────────
	handlers := &router.Handlers{
		Stats:  handler.NewStatsHandler(statsService),
		Review: handler.NewReviewHandler(reviewService, log),
		Admin:  handler.NewAdminHandler(statsService, policy, log),
	}

	// ─── Prewarm Caches ───────────────────────────────────────────────
	// Compute the current term views before accepting traffic.
	if err := statsService.Prewarm(ctx); err != nil {
		log.Warn().Err(err).Msg("Cache prewarm failed")
	}

	// ─── Setup Router ──────────────────────────────────────────────────
	r := router.SetupRouter(authService, handlers, cfg)

	// ─── Create HTTP Server ────────────────────────────────────────────
	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// ─── Start Server in Goroutine ─────────────────────────────────────
	go func() {
		log.Info().Str("addr", ":"+cfg.ServerPort).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	// ─── Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("Shutting down gracefully...")

	// 1. Stop accepting new HTTP requests (5s timeout).
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	// 2. Flush pending spans.
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Tracer shutdown error")
	}

	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
