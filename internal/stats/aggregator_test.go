package stats

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stemsi/course-review-backend/internal/model"
)

func sampleReviews() []model.Review {
	return []model.Review{
		review("u1", "CSCI1130", "A", 4, 3, 5, detail("Prof. Lee", 5, 4), detail("Prof. Wong", 3, 3)),
		review("u2", "CSCI1130", "B", 2, 4, 3, detail("Prof. Lee", 3, 2)),
		review("u3", "MATH1010", "C", 5, 5, 1, detail("Prof. Wong", 1, 1)),
		review("u4", "", "A", 5, 5, 1),
	}
}

func TestAggregateCourses(t *testing.T) {
	got := AggregateCourses(sampleReviews())
	require.Len(t, got, 2)
	assert.Equal(t, 2, got["CSCI1130"].ReviewCount)
	assert.InDelta(t, 3.5, got["CSCI1130"].AverageGPA, 1e-9)
	assert.Equal(t, 1, got["MATH1010"].ReviewCount)

	t.Run("idempotent", func(t *testing.T) {
		assert.Equal(t, got, AggregateCourses(sampleReviews()))
	})
}

func TestAggregateInstructorsFansOut(t *testing.T) {
	got := AggregateInstructors(sampleReviews())
	require.Len(t, got, 2)

	lee := got["Prof. Lee"]
	assert.Equal(t, 2, lee.ReviewCount)
	require.NotNil(t, lee.TeachingScore)
	assert.InDelta(t, 4.0, *lee.TeachingScore, 1e-9)

	wong := got["Prof. Wong"]
	assert.Equal(t, 2, wong.ReviewCount)
	require.NotNil(t, wong.GradingFairness)
	assert.InDelta(t, 2.0, *wong.GradingFairness, 1e-9)

	assert.Equal(t, got, AggregateInstructors(sampleReviews()))
}

func TestByInstructorDeduplicates(t *testing.T) {
	r := review("u1", "X", "A", 1, 1, 1, detail("A", 1, 1), detail("B", 1, 1), detail("A", 2, 2), detail("", 1, 1))
	assert.Equal(t, []string{"A", "B"}, ByInstructor(&r))
}

func TestPartitionPreservesOrder(t *testing.T) {
	reviews := sampleReviews()
	parts := Partition(reviews, ByCourse)
	require.Len(t, parts["CSCI1130"], 2)
	assert.Equal(t, "u1", parts["CSCI1130"][0].UserID)
	assert.Equal(t, "u2", parts["CSCI1130"][1].UserID)
	assert.NotContains(t, parts, "")
}
