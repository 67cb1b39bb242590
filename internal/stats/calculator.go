// Package stats computes review statistics for courses and instructors.
package stats

import (
	"github.com/stemsi/course-review-backend/internal/grade"
	"github.com/stemsi/course-review-backend/internal/model"
)

// mean accumulates valid ratings.
type mean struct {
	sum   float64
	count int
}

func (m *mean) add(r model.Rating) {
	if !r.Valid() {
		return
	}
	m.sum += float64(r)
	m.count++
}

// value returns nil when nothing valid was added.
func (m mean) value() *float64 {
	if m.count == 0 {
		return nil
	}
	v := m.sum / float64(m.count)
	return &v
}

// CourseStats computes the metrics of a set of reviews.
func CourseStats(reviews []model.Review) model.ReviewStats {
	var workload, difficulty, usefulness mean
	students := make(map[string]struct{}, len(reviews))
	grades := make([]string, 0, len(reviews))

	for i := range reviews {
		r := &reviews[i]
		workload.add(r.Workload)
		difficulty.add(r.Difficulty)
		usefulness.add(r.Usefulness)
		students[r.UserID] = struct{}{}
		grades = append(grades, r.Grade)
	}

	gpa, gpaCount := grade.Mean(grades)
	return model.ReviewStats{
		ReviewCount:       len(reviews),
		StudentCount:      len(students),
		AverageWorkload:   workload.value(),
		AverageDifficulty: difficulty.value(),
		AverageUsefulness: usefulness.value(),
		AverageGPA:        gpa,
		AverageGPACount:   gpaCount,
	}
}

// InstructorStats computes the metrics of one instructor over reviews that
// mention them. Reviews that do not mention the instructor are ignored, so
// the full review set may be passed. A review listing the instructor for
// several sessions counts once; every matching detail feeds the teaching and
// grading scores.
func InstructorStats(name string, reviews []model.Review) model.InstructorReviewStats {
	var teaching, grading mean
	matched := make([]model.Review, 0, len(reviews))

	for i := range reviews {
		found := false
		for _, d := range reviews[i].InstructorDetails {
			if d.InstructorName != name {
				continue
			}
			found = true
			teaching.add(d.Teaching)
			grading.add(d.Grading)
		}
		if found {
			matched = append(matched, reviews[i])
		}
	}

	return model.InstructorReviewStats{
		ReviewStats:     CourseStats(matched),
		TeachingScore:   teaching.value(),
		GradingFairness: grading.value(),
	}
}
