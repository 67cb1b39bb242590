package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stemsi/course-review-backend/internal/config"
	"github.com/stemsi/course-review-backend/internal/handler"
	"github.com/stemsi/course-review-backend/internal/middleware"
	"github.com/stemsi/course-review-backend/internal/response"
	"github.com/stemsi/course-review-backend/internal/service"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Stats  *handler.StatsHandler
	Review *handler.ReviewHandler
	Admin  *handler.AdminHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(
	authService *service.AuthService,
	handlers *Handlers,
	cfg *config.Config,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.Default()

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID", "Traceparent", "Tracestate"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// One server span per request; probes and scrapes are not traced.
	router.Use(otelgin.Middleware("course-review-backend", otelgin.WithFilter(func(r *http.Request) bool {
		return r.URL.Path != "/health" && r.URL.Path != "/metrics"
	})))

	router.Use(response.RequestIDMiddleware())

	router.Use(middleware.BrotliWithConfig(middleware.BrotliConfig{
		Quality: middleware.DefaultBrotliConfig.Quality,
		Skipper: middleware.SkipPaths("/metrics"),
	}))

	router.NoRoute(func(c *gin.Context) {
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
	})

	router.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api/v1")

	// ─── 1. Public Statistics (No Auth) ────────────────────────────────
	public := api.Group("")
	public.Use(middleware.CacheControl(int(cfg.StatsCacheTTL.Seconds())))
	{
		public.GET("/courses", handlers.Stats.GetCourses)
		public.GET("/courses/top", handlers.Stats.GetTopCourses)
		public.GET("/courses/:code", handlers.Stats.GetCourse)
		public.GET("/courses/:code/offered", handlers.Stats.IsCourseOffered)
		public.GET("/instructors", handlers.Stats.GetInstructors)
		public.GET("/instructors/top", handlers.Stats.GetTopInstructors)
		public.GET("/instructors/:name/teaching", handlers.Stats.IsInstructorTeaching)
	}

	// ─── 2. Student Group (Student JWT) ────────────────────────────────
	// Submissions are limited per user (falls back to client IP).
	submitLimiter := middleware.NewKeyedRateLimiter(cfg.SubmitRateLimit, time.Minute, middleware.ClaimsUserOrIP)

	student := api.Group("")
	student.Use(middleware.RequireStudentJWT(authService), middleware.CacheControl(0))
	{
		student.GET("/reviews/eligibility", handlers.Review.CheckEligibility)
		student.POST("/reviews", submitLimiter.Middleware(), handlers.Review.Submit)
		student.DELETE("/reviews/:id", handlers.Review.Delete)
		student.PUT("/me/display-name", handlers.Review.UpdateDisplayName)
	}

	// ─── 3. Admin Group (Admin JWT) ────────────────────────────────────
	admin := api.Group("/admin")
	admin.Use(middleware.RequireAdminJWT(authService), middleware.CacheControl(0))
	{
		admin.POST("/cache/invalidate", handlers.Admin.InvalidateCache)
		admin.GET("/system", handlers.Admin.Status)
	}

	return router
}
