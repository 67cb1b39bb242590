package stats

import "github.com/stemsi/course-review-backend/internal/model"

// KeyFunc emits the partition keys one review contributes to. Returning
// several keys fans the review out into several partitions; returning none
// drops it.
type KeyFunc func(r *model.Review) []string

// ByCourse partitions reviews by course code.
func ByCourse(r *model.Review) []string {
	if r.CourseCode == "" {
		return nil
	}
	return []string{r.CourseCode}
}

// ByInstructor partitions reviews by every distinct instructor named in the
// review's instructor details.
func ByInstructor(r *model.Review) []string {
	var keys []string
	for _, d := range r.InstructorDetails {
		if d.InstructorName == "" || contains(keys, d.InstructorName) {
			continue
		}
		keys = append(keys, d.InstructorName)
	}
	return keys
}

func contains(keys []string, k string) bool {
	for _, existing := range keys {
		if existing == k {
			return true
		}
	}
	return false
}

// Partition groups reviews by key in one pass, preserving input order inside
// each partition.
func Partition(reviews []model.Review, keyFn KeyFunc) map[string][]model.Review {
	parts := make(map[string][]model.Review)
	for i := range reviews {
		for _, k := range keyFn(&reviews[i]) {
			parts[k] = append(parts[k], reviews[i])
		}
	}
	return parts
}

// Aggregate partitions reviews with keyFn and applies calc once per
// partition.
func Aggregate[S any](reviews []model.Review, keyFn KeyFunc, calc func(key string, part []model.Review) S) map[string]S {
	parts := Partition(reviews, keyFn)
	out := make(map[string]S, len(parts))
	for k, part := range parts {
		out[k] = calc(k, part)
	}
	return out
}

// Result is an aggregation together with the completeness of its source.
type Result[S any] struct {
	Stats     map[string]S
	Truncated bool
	Skipped   int
}

// AggregateCourses computes course statistics for every course in the batch.
func AggregateCourses(reviews []model.Review) map[string]model.ReviewStats {
	return Aggregate(reviews, ByCourse, func(_ string, part []model.Review) model.ReviewStats {
		return CourseStats(part)
	})
}

// AggregateInstructors computes instructor statistics for every instructor
// mentioned in the batch.
func AggregateInstructors(reviews []model.Review) map[string]model.InstructorReviewStats {
	return Aggregate(reviews, ByInstructor, InstructorStats)
}
