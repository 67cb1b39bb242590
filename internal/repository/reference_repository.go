package repository

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/stemsi/course-review-backend/internal/model"
	"github.com/stemsi/course-review-backend/internal/store"
)

// CourseRepository reads course reference data.
type CourseRepository struct {
	store store.DocumentStore
	log   zerolog.Logger
}

// NewCourseRepository creates a new CourseRepository.
func NewCourseRepository(s store.DocumentStore, log zerolog.Logger) *CourseRepository {
	return &CourseRepository{store: s, log: log.With().Str("component", "course_repository").Logger()}
}

// ListAll returns every course ordered by code.
func (r *CourseRepository) ListAll(ctx context.Context) ([]model.Course, error) {
	recs, err := r.store.List(ctx, store.Courses, store.Query{OrderBy: "code"})
	if err != nil {
		return nil, fmt.Errorf("list courses: %w", err)
	}
	out := make([]model.Course, 0, len(recs))
	for _, rec := range recs {
		c := model.Course{Code: str(rec, "code"), Department: str(rec, "department")}
		if err := decodeJSON(rec, "titles", &c.Titles); err != nil {
			// Titles are display-only; keep the course.
			r.log.Warn().Err(err).Str("course_code", c.Code).Msg("Course titles are malformed")
		}
		out = append(out, c)
	}
	return out, nil
}

// InstructorRepository reads instructor reference data.
type InstructorRepository struct {
	store store.DocumentStore
	log   zerolog.Logger
}

// NewInstructorRepository creates a new InstructorRepository.
func NewInstructorRepository(s store.DocumentStore, log zerolog.Logger) *InstructorRepository {
	return &InstructorRepository{store: s, log: log.With().Str("component", "instructor_repository").Logger()}
}

// ListAll returns every instructor ordered by name.
func (r *InstructorRepository) ListAll(ctx context.Context) ([]model.Instructor, error) {
	recs, err := r.store.List(ctx, store.Instructors, store.Query{OrderBy: "name"})
	if err != nil {
		return nil, fmt.Errorf("list instructors: %w", err)
	}
	out := make([]model.Instructor, 0, len(recs))
	for _, rec := range recs {
		in := model.Instructor{Name: str(rec, "name"), Department: str(rec, "department")}
		if err := decodeJSON(rec, "names", &in.Names); err != nil {
			r.log.Warn().Err(err).Str("instructor", in.Name).Msg("Instructor names are malformed")
		}
		out = append(out, in)
	}
	return out, nil
}
