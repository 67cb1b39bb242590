package model

// TermQuery selects the term a stats view is computed for. Empty means the
// current term.
type TermQuery struct {
	Term string `form:"term" binding:"max=40"`
}

// TopQuery parameterises the GPA rankings.
type TopQuery struct {
	N         int `form:"n" binding:"omitempty,min=1,max=100"`
	MinSample int `form:"min_sample" binding:"omitempty,min=1"`
}

// EligibilityQuery names the course offering a student wants to review.
type EligibilityQuery struct {
	CourseCode string `form:"course_code" binding:"required,min=2,max=20"`
	TermCode   string `form:"term_code" binding:"required,min=2,max=40"`
}
