package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/course-review-backend/internal/logger"
	"github.com/stemsi/course-review-backend/internal/middleware"
	"github.com/stemsi/course-review-backend/internal/model"
	"github.com/stemsi/course-review-backend/internal/response"
	"github.com/stemsi/course-review-backend/internal/service"
	"github.com/stemsi/course-review-backend/internal/validator"
)

// ReviewHandler serves the student-facing review endpoints.
type ReviewHandler struct {
	reviewService *service.ReviewService
	log           zerolog.Logger
}

func NewReviewHandler(reviewService *service.ReviewService, log zerolog.Logger) *ReviewHandler {
	return &ReviewHandler{
		reviewService: reviewService,
		log:           log.With().Str("component", "review_handler").Logger(),
	}
}

// CheckEligibility godoc
// GET /api/v1/reviews/eligibility?course_code=&term_code=
func (h *ReviewHandler) CheckEligibility(c *gin.Context) {
	claims := middleware.GetClaims(c)

	var q model.EligibilityQuery
	if fields := validator.BindQuery(c, &q); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrInvalidQuery, fields)
		return
	}

	d := h.reviewService.CheckEligibility(c.Request.Context(), claims.UserID, q.CourseCode, q.TermCode)
	response.Success(c, http.StatusOK, gin.H{"eligibility": d})
}

// Submit godoc
// POST /api/v1/reviews
func (h *ReviewHandler) Submit(c *gin.Context) {
	claims := middleware.GetClaims(c)

	var req model.CreateReviewRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	rev, d, err := h.reviewService.Submit(c.Request.Context(), claims.UserID, claims.DisplayName, &req)
	switch {
	case err == nil:
		response.Success(c, http.StatusCreated, gin.H{"review": rev, "eligibility": d})
	case errors.Is(err, service.ErrNotEligible):
		response.FailWithData(c, http.StatusConflict, response.ErrNotEligible, gin.H{"eligibility": d})
	case errors.Is(err, service.ErrUnknownGrade):
		response.Fail(c, http.StatusBadRequest, response.ErrUnknownGrade)
	default:
		log := logger.WithTrace(c.Request.Context(), h.log)
		log.Error().Err(err).Str("user_id", claims.UserID).Msg("Failed to submit review")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}

// Delete godoc
// DELETE /api/v1/reviews/:id
func (h *ReviewHandler) Delete(c *gin.Context) {
	claims := middleware.GetClaims(c)

	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidQuery)
		return
	}

	err := h.reviewService.Delete(c.Request.Context(), claims.UserID, id)
	switch {
	case err == nil:
		response.Success(c, http.StatusOK, gin.H{"message": "review deleted successfully"})
	case errors.Is(err, service.ErrReviewNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrReviewNotFound)
	case errors.Is(err, service.ErrNotReviewAuthor):
		response.Fail(c, http.StatusForbidden, response.ErrNotReviewAuthor)
	default:
		log := logger.WithTrace(c.Request.Context(), h.log)
		log.Error().Err(err).Str("review_id", id).Msg("Failed to delete review")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}

// UpdateDisplayName godoc
// PUT /api/v1/me/display-name
func (h *ReviewHandler) UpdateDisplayName(c *gin.Context) {
	claims := middleware.GetClaims(c)

	var req model.UpdateDisplayNameRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	n, err := h.reviewService.RenameAuthor(c.Request.Context(), claims.UserID, req.DisplayName)
	if err != nil {
		log := logger.WithTrace(c.Request.Context(), h.log)
		log.Error().Err(err).Str("user_id", claims.UserID).Msg("Failed to update display name")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"updated_reviews": n})
}
