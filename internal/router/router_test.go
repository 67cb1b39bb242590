package router

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/http/httputil"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/course-review-backend/internal/cache"
	"github.com/stemsi/course-review-backend/internal/config"
	"github.com/stemsi/course-review-backend/internal/eligibility"
	"github.com/stemsi/course-review-backend/internal/handler"
	"github.com/stemsi/course-review-backend/internal/repository"
	"github.com/stemsi/course-review-backend/internal/service"
	"github.com/stemsi/course-review-backend/internal/store"
	"github.com/stemsi/course-review-backend/internal/validator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const term = "2024-25 Term 1"

type server struct {
	t      *testing.T
	engine http.Handler
	store  *store.MemoryStore
	auth   *service.AuthService
}

func testConfig() *config.Config {
	return &config.Config{
		GinMode:         "test",
		JWTSecret:       "router-test-secret",
		JWTExpiry:       time.Hour,
		CurrentTerm:     term,
		StatsCacheTTL:   time.Minute,
		SubmitRateLimit: 100,
		Policy:          eligibility.DefaultPolicy(),
	}
}

func newServer(t *testing.T, mutate ...func(*config.Config)) *server {
	t.Helper()
	validator.Setup()

	cfg := testConfig()
	for _, m := range mutate {
		m(cfg)
	}

	log := zerolog.Nop()
	s := store.NewMemoryStore()
	reviews := repository.NewReviewRepository(s, log)
	votes := repository.NewVoteRepository(s)

	statsSvc := service.NewStatsService(
		reviews,
		repository.NewTeachingRepository(s, log),
		repository.NewCourseRepository(s, log),
		repository.NewInstructorRepository(s, log),
		cache.New(), nil,
		service.StatsOptions{
			CurrentTerm:        term,
			StatsTTL:           time.Minute,
			MembershipTTL:      time.Hour,
			ReferenceTTL:       time.Hour,
			MaxReviewRecords:   1000,
			MaxTeachingRecords: 1000,
			TopMinSample:       1,
		},
		log,
	)
	engine := eligibility.NewEngine(reviews, cfg.Policy, log)
	reviewSvc := service.NewReviewService(reviews, votes, engine, statsSvc, log)
	auth := service.NewAuthService(cfg)

	r := SetupRouter(auth, &Handlers{
		Stats:  handler.NewStatsHandler(statsSvc),
		Review: handler.NewReviewHandler(reviewSvc, log),
		Admin:  handler.NewAdminHandler(statsSvc, cfg.Policy, log),
	}, cfg)

	srv := &server{t: t, engine: r, store: s, auth: auth}
	srv.seed()
	return srv
}

func (s *server) seed() {
	ctx := context.Background()
	for _, rec := range []store.Record{
		{"code": "CS101", "titles": []byte(`{"en":"Intro to Programming"}`), "department": "CS"},
		{"code": "MA101", "titles": []byte(`{"en":"Calculus"}`), "department": "MA"},
	} {
		_, err := s.store.Create(ctx, store.Courses, rec)
		require.NoError(s.t, err)
	}
	_, err := s.store.Create(ctx, store.Instructors, store.Record{"name": "Dr. Chan", "department": "CS"})
	require.NoError(s.t, err)
	_, err = s.store.Create(ctx, store.TeachingRecords, store.Record{
		"course_code": "CS101", "term_code": term, "instructor_name": "Dr. Chan", "teaching_language": "en",
	})
	require.NoError(s.t, err)
}

func (s *server) token(userID string, tt service.TokenType) string {
	tok, err := s.auth.GenerateToken(userID, "Student "+userID, tt)
	require.NoError(s.t, err)
	return tok
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code   string            `json:"code"`
		Fields map[string]string `json:"fields"`
	} `json:"error"`
}

func (s *server) do(method, path, token string, body any) (*httptest.ResponseRecorder, envelope) {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(s.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)

	var env envelope
	if w.Header().Get("Content-Type") == "application/json; charset=utf-8" {
		require.NoError(s.t, json.Unmarshal(w.Body.Bytes(), &env), "%s", dump(w))
	}
	return w, env
}

func dump(w *httptest.ResponseRecorder) string {
	b, _ := httputil.DumpResponse(w.Result(), true)
	return string(b)
}

func reviewBody(course, grade string) map[string]any {
	return map[string]any{
		"course_code": course,
		"term_code":   term,
		"workload":    3,
		"difficulty":  4,
		"usefulness":  5,
		"grade":       grade,
		"comments":    "solid course",
		"instructor_details": []map[string]any{{
			"instructor_name": "Dr. Chan",
			"session_type":    "Lecture",
			"teaching":        4,
			"grading":         -1,
		}},
	}
}

func TestHealthAndMetrics(t *testing.T) {
	s := newServer(t)

	w, _ := s.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = s.do(http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "go_goroutines")

	w, _ = s.do(http.MethodGet, "/api/v1/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "NOT_FOUND")
}

func TestPublicCourses(t *testing.T) {
	s := newServer(t)

	w, env := s.do(http.MethodGet, "/api/v1/courses", "", nil)
	require.Equal(t, http.StatusOK, w.Code, dump(w))
	assert.Equal(t, "public, max-age=60", w.Header().Get("Cache-Control"))

	var list struct {
		Term    string `json:"term"`
		Courses []struct {
			Code          string `json:"code"`
			OfferedInTerm bool   `json:"offered_in_term"`
		} `json:"courses"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &list))
	assert.Equal(t, term, list.Term)
	require.Len(t, list.Courses, 2)
	assert.Equal(t, "CS101", list.Courses[0].Code)
	assert.True(t, list.Courses[0].OfferedInTerm)
	assert.False(t, list.Courses[1].OfferedInTerm)
}

func TestCourseLookups(t *testing.T) {
	s := newServer(t)

	w, env := s.do(http.MethodGet, "/api/v1/courses/cs101/offered", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"course_code":"CS101","term":"","offered":true}`, string(env.Data))

	w, env = s.do(http.MethodGet, "/api/v1/courses/NOPE999", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "COURSE_NOT_FOUND", env.Error.Code)

	w, env = s.do(http.MethodGet, "/api/v1/instructors/Dr.%20Chan/teaching?term=2019-20%20Term%201", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"instructor_name":"Dr. Chan","term":"2019-20 Term 1","teaching":false}`, string(env.Data))
}

func TestTopRejectsBadQuery(t *testing.T) {
	s := newServer(t)

	for _, q := range []string{"n=abc", "n=101", "min_sample=-2"} {
		w, env := s.do(http.MethodGet, "/api/v1/courses/top?"+q, "", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code, q)
		require.NotNil(t, env.Error, q)
		assert.Equal(t, "INVALID_QUERY", env.Error.Code, q)
	}

	w, _ := s.do(http.MethodGet, "/api/v1/instructors/top?n=5", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestStudentRoutesRequireStudentToken(t *testing.T) {
	s := newServer(t)
	path := "/api/v1/reviews/eligibility?course_code=CS101&term_code=" + "2024-25%20Term%201"

	w, env := s.do(http.MethodGet, path, "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "TOKEN_REQUIRED", env.Error.Code)

	w, env = s.do(http.MethodGet, path, "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "TOKEN_INVALID", env.Error.Code)

	w, env = s.do(http.MethodGet, path, s.token("admin-1", service.TokenTypeAdmin), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "STUDENT_ACCESS_ONLY", env.Error.Code)

	w, env = s.do(http.MethodGet, path, s.token("u1", service.TokenTypeStudent), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
	assert.JSONEq(t, `{"eligibility":{"allowed":true,"reason":"allowed"}}`, string(env.Data))
}

func TestEligibilityRequiresQuery(t *testing.T) {
	s := newServer(t)

	w, env := s.do(http.MethodGet, "/api/v1/reviews/eligibility?course_code=CS101", s.token("u1", service.TokenTypeStudent), nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_QUERY", env.Error.Code)
	assert.Contains(t, env.Error.Fields, "term_code")
}

func TestSubmitFlow(t *testing.T) {
	s := newServer(t)
	tok := s.token("u1", service.TokenTypeStudent)

	w, env := s.do(http.MethodPost, "/api/v1/reviews", tok, reviewBody("cs101", "B+"))
	require.Equal(t, http.StatusCreated, w.Code, dump(w))
	var created struct {
		Review struct {
			ID          string `json:"id"`
			CourseCode  string `json:"course_code"`
			DisplayName string `json:"display_name"`
		} `json:"review"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &created))
	assert.NotEmpty(t, created.Review.ID)
	assert.Equal(t, "CS101", created.Review.CourseCode)
	assert.Equal(t, "Student u1", created.Review.DisplayName)

	// Stats reflect the new review immediately.
	w, env = s.do(http.MethodGet, "/api/v1/courses/CS101", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var detail struct {
		Stats struct {
			ReviewCount int     `json:"review_count"`
			AverageGPA  float64 `json:"average_gpa"`
		} `json:"stats"`
		Reviews []json.RawMessage `json:"reviews"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &detail))
	assert.Equal(t, 1, detail.Stats.ReviewCount)
	assert.InDelta(t, 3.3, detail.Stats.AverageGPA, 1e-9)
	assert.Len(t, detail.Reviews, 1)

	// A passed course cannot be reviewed again.
	w, env = s.do(http.MethodPost, "/api/v1/reviews", tok, reviewBody("CS101", "A"))
	assert.Equal(t, http.StatusConflict, w.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "NOT_ELIGIBLE", env.Error.Code)
	assert.JSONEq(t, `{"eligibility":{"allowed":false,"reason":"limit-reached-with-pass"}}`, string(env.Data))
}

func TestSubmitRetryAfterFail(t *testing.T) {
	s := newServer(t)
	tok := s.token("u1", service.TokenTypeStudent)

	w, _ := s.do(http.MethodPost, "/api/v1/reviews", tok, reviewBody("MA101", "F"))
	require.Equal(t, http.StatusCreated, w.Code, dump(w))

	w, env := s.do(http.MethodPost, "/api/v1/reviews", tok, reviewBody("MA101", "C"))
	require.Equal(t, http.StatusCreated, w.Code, dump(w))
	assert.Contains(t, string(env.Data), `"reason":"retry-after-fail"`)

	w, env = s.do(http.MethodPost, "/api/v1/reviews", tok, reviewBody("MA101", "C"))
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, string(env.Data), `"reason":"course-limit-exceeded"`)
}

func TestSubmitValidation(t *testing.T) {
	s := newServer(t)
	tok := s.token("u1", service.TokenTypeStudent)

	body := reviewBody("CS101", "Z")
	body["workload"] = 0
	w, env := s.do(http.MethodPost, "/api/v1/reviews", tok, body)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)
	assert.Contains(t, env.Error.Fields, "workload")
	assert.Contains(t, env.Error.Fields, "grade")

	body = reviewBody("CS101", "A")
	body["instructor_details"] = []map[string]any{}
	w, env = s.do(http.MethodPost, "/api/v1/reviews", tok, body)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, env.Error.Fields, "instructor_details")
}

func TestSubmitRateLimited(t *testing.T) {
	s := newServer(t, func(c *config.Config) { c.SubmitRateLimit = 1 })
	tok := s.token("u1", service.TokenTypeStudent)

	w, _ := s.do(http.MethodPost, "/api/v1/reviews", tok, reviewBody("CS101", "A"))
	require.Equal(t, http.StatusCreated, w.Code, dump(w))

	w, env := s.do(http.MethodPost, "/api/v1/reviews", tok, reviewBody("MA101", "A"))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "RATE_LIMIT_EXCEEDED", env.Error.Code)

	// Buckets are per user.
	w, _ = s.do(http.MethodPost, "/api/v1/reviews", s.token("u2", service.TokenTypeStudent), reviewBody("MA101", "A"))
	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestDeleteReview(t *testing.T) {
	s := newServer(t)
	owner := s.token("u1", service.TokenTypeStudent)

	w, env := s.do(http.MethodPost, "/api/v1/reviews", owner, reviewBody("CS101", "A"))
	require.Equal(t, http.StatusCreated, w.Code, dump(w))
	var created struct {
		Review struct {
			ID string `json:"id"`
		} `json:"review"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &created))
	path := "/api/v1/reviews/" + created.Review.ID

	w, env = s.do(http.MethodDelete, path, s.token("u2", service.TokenTypeStudent), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "NOT_REVIEW_AUTHOR", env.Error.Code)

	w, _ = s.do(http.MethodDelete, path, owner, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, env = s.do(http.MethodDelete, path, owner, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "REVIEW_NOT_FOUND", env.Error.Code)

	// The deleted review no longer counts towards the course limit.
	w, _ = s.do(http.MethodPost, "/api/v1/reviews", owner, reviewBody("CS101", "A"))
	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestUpdateDisplayName(t *testing.T) {
	s := newServer(t)
	tok := s.token("u1", service.TokenTypeStudent)

	anon := reviewBody("MA101", "F")
	anon["is_anonymous"] = true
	for _, body := range []map[string]any{reviewBody("CS101", "A"), anon} {
		w, _ := s.do(http.MethodPost, "/api/v1/reviews", tok, body)
		require.Equal(t, http.StatusCreated, w.Code, dump(w))
	}

	w, env := s.do(http.MethodPut, "/api/v1/me/display-name", tok, map[string]string{"display_name": "New Name"})
	require.Equal(t, http.StatusOK, w.Code, dump(w))
	assert.JSONEq(t, `{"updated_reviews":1}`, string(env.Data))

	w, env = s.do(http.MethodPut, "/api/v1/me/display-name", tok, map[string]string{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, env.Error.Fields, "display_name")
}

func TestAdminRoutes(t *testing.T) {
	s := newServer(t)

	w, env := s.do(http.MethodPost, "/api/v1/admin/cache/invalidate", s.token("u1", service.TokenTypeStudent), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "ADMIN_ACCESS_ONLY", env.Error.Code)

	admin := s.token("ops", service.TokenTypeAdmin)
	s.do(http.MethodGet, "/api/v1/courses", "", nil)

	w, env = s.do(http.MethodGet, "/api/v1/admin/system", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var status struct {
		Cache struct {
			Entries       int  `json:"entries"`
			MirrorEnabled bool `json:"mirror_enabled"`
		} `json:"cache"`
		Policy struct {
			TermLimit int `json:"term_limit"`
		} `json:"policy"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &status))
	assert.Positive(t, status.Cache.Entries)
	assert.False(t, status.Cache.MirrorEnabled)
	assert.Equal(t, 7, status.Policy.TermLimit)

	w, _ = s.do(http.MethodPost, "/api/v1/admin/cache/invalidate", admin, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, env = s.do(http.MethodGet, "/api/v1/admin/system", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(env.Data, &status))
	assert.Zero(t, status.Cache.Entries)
}
