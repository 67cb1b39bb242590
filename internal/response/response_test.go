package response

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func serve(t *testing.T, h gin.HandlerFunc, header string) (*httptest.ResponseRecorder, Response) {
	t.Helper()
	r := gin.New()
	r.Use(RequestIDMiddleware())
	r.GET("/", h)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set("X-Request-ID", header)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var body Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return w, body
}

func TestRequestIDReusedWhenWellFormed(t *testing.T) {
	w, body := serve(t, func(c *gin.Context) { Success(c, http.StatusOK, gin.H{"ok": true}) }, "req-123")
	assert.Equal(t, "req-123", w.Header().Get("X-Request-ID"))
	assert.Equal(t, "req-123", body.Metadata.RequestID)
	assert.Nil(t, body.Error)
}

func TestRequestIDReplacedWhenMalformed(t *testing.T) {
	for _, id := range []string{"has space", strings.Repeat("x", maxRequestIDLen+1), "tab\tid"} {
		w, body := serve(t, func(c *gin.Context) { Success(c, http.StatusOK, nil) }, id)
		got := w.Header().Get("X-Request-ID")
		assert.NotEqual(t, id, got)
		assert.Len(t, got, 36)
		assert.Equal(t, got, body.Metadata.RequestID)
	}
}

func TestFailWithDataKeepsPayload(t *testing.T) {
	w, body := serve(t, func(c *gin.Context) {
		FailWithData(c, http.StatusConflict, ErrNotEligible, gin.H{"reason": "limit-reached-with-pass"})
	}, "")
	assert.Equal(t, http.StatusConflict, w.Code)
	require.NotNil(t, body.Error)
	assert.Equal(t, ErrNotEligible, body.Error.Code)
	assert.Equal(t, GetMessage(ErrNotEligible), body.Error.Message)
	assert.Equal(t, map[string]any{"reason": "limit-reached-with-pass"}, body.Data)
}

func TestFailWithFields(t *testing.T) {
	_, body := serve(t, func(c *gin.Context) {
		FailWithFields(c, http.StatusBadRequest, ErrValidation, map[string]string{"grade": "grade is not a recognised grade"})
	}, "")
	require.NotNil(t, body.Error)
	assert.Equal(t, ErrValidation, body.Error.Code)
	assert.Contains(t, body.Error.Fields, "grade")
}

func TestEveryCodeHasMessage(t *testing.T) {
	codes := []ErrCode{
		ErrTokenRequired, ErrTokenInvalid, ErrStudentAccessOnly, ErrAdminAccessOnly,
		ErrValidation, ErrInvalidQuery, ErrNotFound, ErrCourseNotFound,
		ErrNotEligible, ErrReviewNotFound, ErrNotReviewAuthor, ErrUnknownGrade,
		ErrRateLimitExceeded, ErrInternal,
	}
	fallback := GetMessage("SOMETHING_ELSE")
	for _, code := range codes {
		assert.NotEqual(t, fallback, GetMessage(code), code)
	}
}
