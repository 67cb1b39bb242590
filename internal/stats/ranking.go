package stats

import (
	"slices"

	"github.com/stemsi/course-review-backend/internal/model"
)

// TopCoursesByGPA returns the n courses with the highest average GPA among
// those with at least minSample graded reviews. Ties go to the higher review
// count and then keep their input order.
func TopCoursesByGPA(courses []model.CourseWithStats, n, minSample int) []model.CourseWithStats {
	eligible := make([]model.CourseWithStats, 0, len(courses))
	for _, c := range courses {
		if c.Stats.AverageGPACount > 0 && c.Stats.AverageGPACount >= minSample {
			eligible = append(eligible, c)
		}
	}
	slices.SortStableFunc(eligible, func(a, b model.CourseWithStats) int {
		return compareByGPA(a.Stats, b.Stats)
	})
	return head(eligible, n)
}

// TopInstructorsByGPA is the instructor counterpart of TopCoursesByGPA.
func TopInstructorsByGPA(instructors []model.InstructorWithStats, n, minSample int) []model.InstructorWithStats {
	eligible := make([]model.InstructorWithStats, 0, len(instructors))
	for _, in := range instructors {
		if in.Stats.AverageGPACount > 0 && in.Stats.AverageGPACount >= minSample {
			eligible = append(eligible, in)
		}
	}
	slices.SortStableFunc(eligible, func(a, b model.InstructorWithStats) int {
		return compareByGPA(a.Stats.ReviewStats, b.Stats.ReviewStats)
	})
	return head(eligible, n)
}

// compareByGPA sorts descending by GPA, then descending by review count.
func compareByGPA(a, b model.ReviewStats) int {
	switch {
	case a.AverageGPA > b.AverageGPA:
		return -1
	case a.AverageGPA < b.AverageGPA:
		return 1
	case a.ReviewCount > b.ReviewCount:
		return -1
	case a.ReviewCount < b.ReviewCount:
		return 1
	}
	return 0
}

func head[T any](items []T, n int) []T {
	if n >= 0 && len(items) > n {
		return items[:n]
	}
	return items
}
