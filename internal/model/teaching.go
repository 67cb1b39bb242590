package model

// TeachingRecord states that an instructor taught a course in a term.
// Team-taught offerings have one record per instructor.
type TeachingRecord struct {
	ID              string          `json:"id"`
	CourseCode      string          `json:"course_code"`
	TermCode        string          `json:"term_code"`
	InstructorName  string          `json:"instructor_name"`
	SessionType     string          `json:"session_type"`
	TeachingLang    string          `json:"teaching_language"`
	ServiceLearning ServiceLearning `json:"service_learning,omitempty"`
}
