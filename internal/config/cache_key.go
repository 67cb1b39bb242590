package config

import (
	"fmt"
)

// Key prefixes for selective invalidation. Review-derived entries live
// under the first three; membership and reference data survive a new
// review.
const (
	StatsKeyPrefix = "stats:"
	TopKeyPrefix   = "top:"
	ViewKeyPrefix  = "view:"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// CourseStatsSnapshotKey returns the cache key for the batched course statistics
func (r *CacheKeyStruct) CourseStatsSnapshotKey() string {
	return "stats:courses:snapshot"
}

// InstructorStatsSnapshotKey returns the cache key for the batched instructor statistics
func (r *CacheKeyStruct) InstructorStatsSnapshotKey() string {
	return "stats:instructors:snapshot"
}

// TopCoursesKey returns the cache key for a top-N course ranking
func (r *CacheKeyStruct) TopCoursesKey(n, minSample int) string {
	return fmt.Sprintf("top:courses:gpa:%d:%d", n, minSample)
}

// TopInstructorsKey returns the cache key for a top-N instructor ranking
func (r *CacheKeyStruct) TopInstructorsKey(n, minSample int) string {
	return fmt.Sprintf("top:instructors:gpa:%d:%d", n, minSample)
}

// CourseMembershipKey returns the cache key for the courses offered in a term
func (r *CacheKeyStruct) CourseMembershipKey(term string) string {
	return fmt.Sprintf("membership:courses:%s", term)
}

// InstructorMembershipKey returns the cache key for the instructors teaching in a term
func (r *CacheKeyStruct) InstructorMembershipKey(term string) string {
	return fmt.Sprintf("membership:instructors:%s", term)
}

// CourseReferenceKey returns the cache key for course reference data
func (r *CacheKeyStruct) CourseReferenceKey() string {
	return "ref:courses"
}

// InstructorReferenceKey returns the cache key for instructor reference data
func (r *CacheKeyStruct) InstructorReferenceKey() string {
	return "ref:instructors"
}

// TeachingBadgesKey returns the cache key for teaching-language and service-learning badges
func (r *CacheKeyStruct) TeachingBadgesKey() string {
	return "badges:teaching"
}

// CourseViewKey returns the cache key for the composed course list of a term
func (r *CacheKeyStruct) CourseViewKey(term string) string {
	return fmt.Sprintf("view:courses:%s", term)
}

// InstructorViewKey returns the cache key for the composed instructor list of a term
func (r *CacheKeyStruct) InstructorViewKey(term string) string {
	return fmt.Sprintf("view:instructors:%s", term)
}

var CacheKey = NewCacheKeyStruct()
