package handler

import (
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/course-review-backend/internal/eligibility"
	"github.com/stemsi/course-review-backend/internal/middleware"
	"github.com/stemsi/course-review-backend/internal/model"
	"github.com/stemsi/course-review-backend/internal/response"
	"github.com/stemsi/course-review-backend/internal/service"
)

// AdminHandler handles operator endpoints.
type AdminHandler struct {
	statsService *service.StatsService
	policy       eligibility.Policy
	startTime    time.Time
	log          zerolog.Logger
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(statsService *service.StatsService, policy eligibility.Policy, log zerolog.Logger) *AdminHandler {
	return &AdminHandler{
		statsService: statsService,
		policy:       policy,
		startTime:    time.Now(),
		log:          log.With().Str("component", "admin_handler").Logger(),
	}
}

// InvalidateCache godoc
// POST /api/v1/admin/cache/invalidate
func (h *AdminHandler) InvalidateCache(c *gin.Context) {
	h.statsService.InvalidateCache(c.Request.Context())

	actor := ""
	if claims := middleware.GetClaims(c); claims != nil {
		actor = claims.UserID
	}
	h.log.Info().Str("actor", actor).Msg("Cache invalidated by admin")
	response.Success(c, http.StatusOK, gin.H{"message": "cache invalidated"})
}

type systemStatus struct {
	Uptime     string             `json:"uptime"`
	Goroutines int                `json:"goroutines"`
	HeapAlloc  uint64             `json:"heap_alloc"`
	NumGC      uint32             `json:"num_gc"`
	GoVersion  string             `json:"go_version"`
	Cache      model.CacheStatus  `json:"cache"`
	Policy     eligibility.Policy `json:"policy"`
}

// Status godoc
// GET /api/v1/admin/system
func (h *AdminHandler) Status(c *gin.Context) {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	response.Success(c, http.StatusOK, systemStatus{
		Uptime:     time.Since(h.startTime).Round(time.Second).String(),
		Goroutines: runtime.NumGoroutine(),
		HeapAlloc:  mem.HeapAlloc,
		NumGC:      mem.NumGC,
		GoVersion:  runtime.Version(),
		Cache:      h.statsService.CacheStatus(c.Request.Context()),
		Policy:     h.policy,
	})
}
