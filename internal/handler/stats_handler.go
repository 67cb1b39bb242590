package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/course-review-backend/internal/model"
	"github.com/stemsi/course-review-backend/internal/response"
	"github.com/stemsi/course-review-backend/internal/service"
	"github.com/stemsi/course-review-backend/internal/validator"
)

// StatsHandler serves the public course and instructor statistics.
type StatsHandler struct {
	statsService *service.StatsService
}

func NewStatsHandler(statsService *service.StatsService) *StatsHandler {
	return &StatsHandler{statsService: statsService}
}

func courseCodeParam(c *gin.Context) string {
	return strings.ToUpper(strings.TrimSpace(c.Param("code")))
}

func bindTerm(c *gin.Context) (string, bool) {
	var q model.TermQuery
	if fields := validator.BindQuery(c, &q); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrInvalidQuery, fields)
		return "", false
	}
	return strings.TrimSpace(q.Term), true
}

func bindTop(c *gin.Context) (model.TopQuery, bool) {
	var q model.TopQuery
	if fields := validator.BindQuery(c, &q); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrInvalidQuery, fields)
		return q, false
	}
	return q, true
}

// GetCourses godoc
// GET /api/v1/courses?term=
func (h *StatsHandler) GetCourses(c *gin.Context) {
	term, ok := bindTerm(c)
	if !ok {
		return
	}

	list, err := h.statsService.GetCoursesWithStats(c.Request.Context(), term)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusOK, list)
}

// GetTopCourses godoc
// GET /api/v1/courses/top?n=&min_sample=
func (h *StatsHandler) GetTopCourses(c *gin.Context) {
	q, ok := bindTop(c)
	if !ok {
		return
	}

	top, err := h.statsService.GetTopCoursesByGPA(c.Request.Context(), q.N, q.MinSample)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"courses": top})
}

// GetCourse godoc
// GET /api/v1/courses/:code?term=
func (h *StatsHandler) GetCourse(c *gin.Context) {
	term, ok := bindTerm(c)
	if !ok {
		return
	}

	detail, err := h.statsService.GetCourseDetail(c.Request.Context(), courseCodeParam(c), term)
	if errors.Is(err, service.ErrCourseNotFound) {
		response.Fail(c, http.StatusNotFound, response.ErrCourseNotFound)
		return
	}
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusOK, detail)
}

// IsCourseOffered godoc
// GET /api/v1/courses/:code/offered?term=
func (h *StatsHandler) IsCourseOffered(c *gin.Context) {
	term, ok := bindTerm(c)
	if !ok {
		return
	}

	code := courseCodeParam(c)
	offered := h.statsService.IsCourseOfferedInTerm(c.Request.Context(), code, term)
	response.Success(c, http.StatusOK, gin.H{"course_code": code, "term": term, "offered": offered})
}

// GetInstructors godoc
// GET /api/v1/instructors?term=
func (h *StatsHandler) GetInstructors(c *gin.Context) {
	term, ok := bindTerm(c)
	if !ok {
		return
	}

	list, err := h.statsService.GetInstructorsWithStats(c.Request.Context(), term)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusOK, list)
}

// GetTopInstructors godoc
// GET /api/v1/instructors/top?n=&min_sample=
func (h *StatsHandler) GetTopInstructors(c *gin.Context) {
	q, ok := bindTop(c)
	if !ok {
		return
	}

	top, err := h.statsService.GetTopInstructorsByGPA(c.Request.Context(), q.N, q.MinSample)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"instructors": top})
}

// IsInstructorTeaching godoc
// GET /api/v1/instructors/:name/teaching?term=
func (h *StatsHandler) IsInstructorTeaching(c *gin.Context) {
	term, ok := bindTerm(c)
	if !ok {
		return
	}

	name := strings.TrimSpace(c.Param("name"))
	teaching := h.statsService.IsInstructorTeachingInTerm(c.Request.Context(), name, term)
	response.Success(c, http.StatusOK, gin.H{"instructor_name": name, "term": term, "teaching": teaching})
}
