// Package eligibility decides whether a student may submit another review
// for a course in a term. Decisions are always derived from live counts.
package eligibility

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/stemsi/course-review-backend/internal/grade"
	"github.com/stemsi/course-review-backend/internal/model"
)

// Reason is a machine-readable decision code.
type Reason string

const (
	ReasonAllowed            Reason = "allowed"
	ReasonRetryAfterFail     Reason = "retry-after-fail"
	ReasonUnverified         Reason = "eligibility-unverified"
	ReasonTermLimitExceeded  Reason = "term-limit-exceeded"
	ReasonCourseLimitReached Reason = "course-limit-exceeded"
	ReasonLimitWithPass      Reason = "limit-reached-with-pass"
)

var decisionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "review_eligibility_decisions_total",
	Help: "Eligibility decisions by reason.",
}, []string{"reason"})

// Policy holds the submission limits.
type Policy struct {
	// TermLimit caps reviews per (user, term).
	TermLimit int `yaml:"term_limit" json:"term_limit"`
	// CourseLimit caps reviews per (user, course) across all terms.
	CourseLimit int `yaml:"course_limit" json:"course_limit"`
	// FailGrade is the grade token that unlocks a retry review.
	FailGrade string `yaml:"fail_grade" json:"fail_grade"`
}

// DefaultPolicy is seven courses per term and two attempts per course.
func DefaultPolicy() Policy {
	return Policy{TermLimit: 7, CourseLimit: 2, FailGrade: grade.Fail}
}

// Validate rejects policies that would deny everything.
func (p Policy) Validate() error {
	if p.TermLimit < 1 {
		return fmt.Errorf("term limit must be at least 1, got %d", p.TermLimit)
	}
	if p.CourseLimit < 1 {
		return fmt.Errorf("course limit must be at least 1, got %d", p.CourseLimit)
	}
	if p.FailGrade == "" {
		return fmt.Errorf("fail grade must not be empty")
	}
	return nil
}

// Decision is the outcome of a check.
type Decision struct {
	Allowed bool   `json:"allowed"`
	Reason  Reason `json:"reason"`
}

// ReviewLookup is the live read path. Implementations must not cache.
// Both reads may stop at limit; the checks only compare against the limit.
// ListByUserAndCourse returns reviews oldest first.
type ReviewLookup interface {
	CountByUserAndTerm(ctx context.Context, userID, termCode string, limit int) (int, error)
	ListByUserAndCourse(ctx context.Context, userID, courseCode string, limit int) ([]model.Review, error)
}

// Engine evaluates the policy against live review counts.
type Engine struct {
	reviews ReviewLookup
	policy  Policy
	log     zerolog.Logger
}

// NewEngine creates an Engine.
func NewEngine(reviews ReviewLookup, policy Policy, log zerolog.Logger) *Engine {
	return &Engine{
		reviews: reviews,
		policy:  policy,
		log:     log.With().Str("component", "eligibility").Logger(),
	}
}

// Policy returns the active policy.
func (e *Engine) Policy() Policy {
	return e.policy
}

// Check decides whether userID may review courseCode in termCode.
// Rules apply in order: the term ceiling first, then the per-course limit
// with its retry-after-fail exception. A failed read allows the submission.
func (e *Engine) Check(ctx context.Context, userID, courseCode, termCode string) Decision {
	d := e.check(ctx, userID, courseCode, termCode)
	decisionsTotal.WithLabelValues(string(d.Reason)).Inc()
	return d
}

func (e *Engine) check(ctx context.Context, userID, courseCode, termCode string) Decision {
	inTerm, err := e.reviews.CountByUserAndTerm(ctx, userID, termCode, e.policy.TermLimit)
	if err != nil {
		return e.failOpen(err, userID, courseCode, termCode)
	}
	if inTerm >= e.policy.TermLimit {
		return Decision{Allowed: false, Reason: ReasonTermLimitExceeded}
	}

	previous, err := e.reviews.ListByUserAndCourse(ctx, userID, courseCode, e.policy.CourseLimit)
	if err != nil {
		return e.failOpen(err, userID, courseCode, termCode)
	}
	switch n := len(previous); {
	case n == 0:
		return Decision{Allowed: true, Reason: ReasonAllowed}
	case n >= e.policy.CourseLimit:
		return Decision{Allowed: false, Reason: ReasonCourseLimitReached}
	}

	// Below the course limit but already reviewed: only a failed latest
	// attempt unlocks another review.
	latest := previous[len(previous)-1]
	if grade.IsFail(latest.Grade, e.policy.FailGrade) {
		return Decision{Allowed: true, Reason: ReasonRetryAfterFail}
	}
	return Decision{Allowed: false, Reason: ReasonLimitWithPass}
}

func (e *Engine) failOpen(err error, userID, courseCode, termCode string) Decision {
	e.log.Warn().Err(err).
		Str("user_id", userID).
		Str("course_code", courseCode).
		Str("term_code", termCode).
		Msg("Eligibility read failed, allowing submission")
	return Decision{Allowed: true, Reason: ReasonUnverified}
}
