package model

// ReviewStats are the metrics derived from a set of reviews.
// Averages are nil when no entry carried a valid value. AverageGPA is only
// meaningful together with AverageGPACount and is 0 when the count is 0.
type ReviewStats struct {
	ReviewCount       int      `json:"review_count"`
	StudentCount      int      `json:"student_count"`
	AverageWorkload   *float64 `json:"average_workload"`
	AverageDifficulty *float64 `json:"average_difficulty"`
	AverageUsefulness *float64 `json:"average_usefulness"`
	AverageGPA        float64  `json:"average_gpa"`
	AverageGPACount   int      `json:"average_gpa_count"`
}

// InstructorReviewStats adds the per-instructor scores.
type InstructorReviewStats struct {
	ReviewStats
	TeachingScore   *float64 `json:"teaching_score"`
	GradingFairness *float64 `json:"grading_fairness"`
}

// CourseWithStats is the composed view of a course.
type CourseWithStats struct {
	Course
	Stats             ReviewStats       `json:"stats"`
	OfferedInTerm     bool              `json:"offered_in_term"`
	TeachingLanguages []string          `json:"teaching_languages"`
	ServiceLearning   []ServiceLearning `json:"service_learning"`
}

// InstructorWithStats is the composed view of an instructor.
type InstructorWithStats struct {
	Instructor
	Stats             InstructorReviewStats `json:"stats"`
	TeachingInTerm    bool                  `json:"teaching_in_term"`
	TeachingLanguages []string              `json:"teaching_languages"`
}

// CourseList is a composed list together with completeness information.
// Truncated is set when a source fetch hit its record cap.
type CourseList struct {
	Term      string            `json:"term,omitempty"`
	Courses   []CourseWithStats `json:"courses"`
	Truncated bool              `json:"truncated"`
}

// InstructorList is the instructor counterpart of CourseList.
type InstructorList struct {
	Term        string                `json:"term,omitempty"`
	Instructors []InstructorWithStats `json:"instructors"`
	Truncated   bool                  `json:"truncated"`
}

// CourseDetail is a single course view with its reviews.
type CourseDetail struct {
	CourseWithStats
	Reviews   []Review `json:"reviews"`
	Truncated bool     `json:"truncated"`
}

// CacheStatus describes the statistics cache of one instance.
type CacheStatus struct {
	Entries          int    `json:"entries"`
	MirrorEnabled    bool   `json:"mirror_enabled"`
	MirrorGeneration int64  `json:"mirror_generation"`
	MirrorError      string `json:"mirror_error,omitempty"`
}
