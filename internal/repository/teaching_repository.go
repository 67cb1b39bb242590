package repository

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/stemsi/course-review-backend/internal/model"
	"github.com/stemsi/course-review-backend/internal/store"
)

// TeachingBatch is a capped teaching-record fetch.
type TeachingBatch struct {
	Records   []model.TeachingRecord
	Truncated bool
}

// TeachingRepository reads teaching records. They are reference data and
// never written by the service.
type TeachingRepository struct {
	store store.DocumentStore
	log   zerolog.Logger
}

// NewTeachingRepository creates a new TeachingRepository.
func NewTeachingRepository(s store.DocumentStore, log zerolog.Logger) *TeachingRepository {
	return &TeachingRepository{
		store: s,
		log:   log.With().Str("component", "teaching_repository").Logger(),
	}
}

// ListAll fetches up to limit teaching records.
func (r *TeachingRepository) ListAll(ctx context.Context, limit int) (TeachingBatch, error) {
	return r.list(ctx, store.Query{Limit: probeLimit(limit)}, limit)
}

// ListByTerm fetches up to limit teaching records of one term.
func (r *TeachingRepository) ListByTerm(ctx context.Context, termCode string, limit int) (TeachingBatch, error) {
	return r.list(ctx, store.Query{
		Filters: []store.Filter{store.Eq("term_code", termCode)},
		Fields:  []string{"id", "course_code", "term_code", "instructor_name"},
		Limit:   probeLimit(limit),
	}, limit)
}

func (r *TeachingRepository) list(ctx context.Context, q store.Query, limit int) (TeachingBatch, error) {
	recs, err := r.store.List(ctx, store.TeachingRecords, q)
	if err != nil {
		return TeachingBatch{}, fmt.Errorf("list teaching records: %w", err)
	}
	recs, truncated := capped(recs, limit)
	if truncated {
		r.log.Warn().Int("cap", limit).Msg("Teaching record fetch hit its record cap")
	}

	out := make([]model.TeachingRecord, len(recs))
	for i, rec := range recs {
		out[i] = model.TeachingRecord{
			ID:              str(rec, "id"),
			CourseCode:      str(rec, "course_code"),
			TermCode:        str(rec, "term_code"),
			InstructorName:  str(rec, "instructor_name"),
			SessionType:     str(rec, "session_type"),
			TeachingLang:    str(rec, "teaching_language"),
			ServiceLearning: model.ServiceLearning(str(rec, "service_learning")),
		}
	}
	return TeachingBatch{Records: out, Truncated: truncated}, nil
}
