package stats

import (
	"slices"

	"github.com/stemsi/course-review-backend/internal/model"
)

// Badges holds the derived teaching-record badges of one entity.
type Badges struct {
	Languages       []string
	ServiceLearning []model.ServiceLearning
}

// sortChronologically orders records by term, breaking ties by language and
// service-learning value so the outcome does not depend on input order.
func sortChronologically(records []model.TeachingRecord) []model.TeachingRecord {
	sorted := slices.Clone(records)
	slices.SortStableFunc(sorted, func(a, b model.TeachingRecord) int {
		if c := model.CompareTerms(a.TermCode, b.TermCode); c != 0 {
			return c
		}
		if a.TeachingLang != b.TeachingLang {
			if a.TeachingLang < b.TeachingLang {
				return -1
			}
			return 1
		}
		switch {
		case a.ServiceLearning < b.ServiceLearning:
			return -1
		case a.ServiceLearning > b.ServiceLearning:
			return 1
		}
		return 0
	})
	return sorted
}

// badgesBy extracts first-seen, deduplicated badges per key.
func badgesBy(records []model.TeachingRecord, key func(model.TeachingRecord) string) map[string]Badges {
	out := make(map[string]Badges)
	for _, rec := range sortChronologically(records) {
		k := key(rec)
		if k == "" {
			continue
		}
		b := out[k]
		if rec.TeachingLang != "" && !slices.Contains(b.Languages, rec.TeachingLang) {
			b.Languages = append(b.Languages, rec.TeachingLang)
		}
		if rec.ServiceLearning != model.ServiceLearningNone && !slices.Contains(b.ServiceLearning, rec.ServiceLearning) {
			b.ServiceLearning = append(b.ServiceLearning, rec.ServiceLearning)
		}
		out[k] = b
	}
	return out
}

// CourseBadges extracts teaching languages and service-learning classes
// per course code.
func CourseBadges(records []model.TeachingRecord) map[string]Badges {
	return badgesBy(records, func(r model.TeachingRecord) string { return r.CourseCode })
}

// InstructorBadges extracts teaching languages and service-learning classes
// per instructor name.
func InstructorBadges(records []model.TeachingRecord) map[string]Badges {
	return badgesBy(records, func(r model.TeachingRecord) string { return r.InstructorName })
}

// Membership is the set of course codes and instructor names active in one
// term.
type Membership struct {
	Courses     map[string]struct{}
	Instructors map[string]struct{}
}

// MembershipOf builds the membership set of term from records. Records of
// other terms are ignored.
func MembershipOf(term string, records []model.TeachingRecord) Membership {
	m := Membership{
		Courses:     make(map[string]struct{}),
		Instructors: make(map[string]struct{}),
	}
	for _, r := range records {
		if r.TermCode != term {
			continue
		}
		if r.CourseCode != "" {
			m.Courses[r.CourseCode] = struct{}{}
		}
		if r.InstructorName != "" {
			m.Instructors[r.InstructorName] = struct{}{}
		}
	}
	return m
}

// HasCourse reports whether code is offered in the membership's term.
func (m Membership) HasCourse(code string) bool {
	_, ok := m.Courses[code]
	return ok
}

// HasInstructor reports whether name teaches in the membership's term.
func (m Membership) HasInstructor(name string) bool {
	_, ok := m.Instructors[name]
	return ok
}
