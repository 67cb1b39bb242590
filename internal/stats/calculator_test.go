package stats

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stemsi/course-review-backend/internal/model"
)

const na = model.RatingNotApplicable

func review(user, course, grade string, workload, difficulty, usefulness model.Rating, details ...model.InstructorDetail) model.Review {
	return model.Review{
		ID:                user + "-" + course,
		UserID:            user,
		CourseCode:        course,
		TermCode:          "2023-24 Term 1",
		Workload:          workload,
		Difficulty:        difficulty,
		Usefulness:        usefulness,
		Grade:             grade,
		InstructorDetails: details,
	}
}

func detail(name string, teaching, grading model.Rating) model.InstructorDetail {
	return model.InstructorDetail{InstructorName: name, SessionType: "Lecture", Teaching: teaching, Grading: grading}
}

func TestCourseStats(t *testing.T) {
	t.Run("empty input yields zero counts and no data", func(t *testing.T) {
		s := CourseStats(nil)
		assert.Zero(t, s.ReviewCount)
		assert.Zero(t, s.StudentCount)
		assert.Nil(t, s.AverageWorkload)
		assert.Nil(t, s.AverageDifficulty)
		assert.Nil(t, s.AverageUsefulness)
		assert.Zero(t, s.AverageGPA)
		assert.Zero(t, s.AverageGPACount)
	})

	t.Run("averages skip not applicable ratings", func(t *testing.T) {
		s := CourseStats([]model.Review{
			review("u1", "CSCI1130", "A", 4, na, 5),
			review("u2", "CSCI1130", "B", 2, na, 3),
			review("u1", "CSCI1130", "W", na, na, 4),
		})
		assert.Equal(t, 3, s.ReviewCount)
		assert.Equal(t, 2, s.StudentCount)
		require.NotNil(t, s.AverageWorkload)
		assert.InDelta(t, 3.0, *s.AverageWorkload, 1e-9)
		assert.Nil(t, s.AverageDifficulty)
		require.NotNil(t, s.AverageUsefulness)
		assert.InDelta(t, 4.0, *s.AverageUsefulness, 1e-9)
		assert.InDelta(t, 3.5, s.AverageGPA, 1e-9)
		assert.Equal(t, 2, s.AverageGPACount)
	})

	t.Run("only non-grade tokens give zero gpa with zero count", func(t *testing.T) {
		s := CourseStats([]model.Review{
			review("u1", "X", "Pass/Fail", 3, 3, 3),
			review("u2", "X", "Withdrawn", 3, 3, 3),
		})
		assert.Equal(t, 2, s.ReviewCount)
		assert.Zero(t, s.AverageGPACount)
		assert.Zero(t, s.AverageGPA)
	})

	t.Run("gpa count never exceeds review count", func(t *testing.T) {
		for _, set := range [][]model.Review{
			nil,
			{review("u1", "X", "A", 1, 1, 1)},
			{review("u1", "X", "Z", 1, 1, 1), review("u2", "X", "F", 1, 1, 1)},
		} {
			s := CourseStats(set)
			assert.LessOrEqual(t, s.AverageGPACount, s.ReviewCount)
			if s.AverageGPACount == 0 {
				assert.Zero(t, s.AverageGPA)
			}
		}
	})
}

func TestInstructorStats(t *testing.T) {
	reviews := []model.Review{
		review("u1", "CSCI1130", "A", 4, 3, 5, detail("Prof. Lee", 5, 4), detail("Prof. Wong", 3, 3)),
		review("u2", "CSCI2100", "B", 2, 4, 3, detail("Prof. Lee", 3, na)),
		review("u3", "CSCI3100", "C", 5, 5, 1, detail("Prof. Chan", 1, 1)),
	}

	s := InstructorStats("Prof. Lee", reviews)
	assert.Equal(t, 2, s.ReviewCount)
	assert.Equal(t, 2, s.StudentCount)
	require.NotNil(t, s.TeachingScore)
	assert.InDelta(t, 4.0, *s.TeachingScore, 1e-9)
	require.NotNil(t, s.GradingFairness)
	assert.InDelta(t, 4.0, *s.GradingFairness, 1e-9)
	assert.InDelta(t, 3.5, s.AverageGPA, 1e-9)
	assert.Equal(t, 2, s.AverageGPACount)

	t.Run("same instructor in two sessions counts one review", func(t *testing.T) {
		r := review("u9", "CSCI1130", "A", 3, 3, 3, detail("Prof. Lee", 5, 5), detail("Prof. Lee", 3, 1))
		r.InstructorDetails[1].SessionType = "Tutorial"
		s := InstructorStats("Prof. Lee", []model.Review{r})
		assert.Equal(t, 1, s.ReviewCount)
		require.NotNil(t, s.TeachingScore)
		assert.InDelta(t, 4.0, *s.TeachingScore, 1e-9)
		assert.InDelta(t, 3.0, *s.GradingFairness, 1e-9)
	})

	t.Run("unknown instructor", func(t *testing.T) {
		s := InstructorStats("Nobody", reviews)
		assert.Zero(t, s.ReviewCount)
		assert.Nil(t, s.TeachingScore)
		assert.Nil(t, s.GradingFairness)
	})
}
