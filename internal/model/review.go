package model

import "time"

// Rating is a 1-5 ordinal score. RatingNotApplicable marks an answer the
// student chose not to give.
type Rating int

const (
	RatingNotApplicable Rating = -1
	RatingMin           Rating = 1
	RatingMax           Rating = 5
)

// Valid reports whether r is a usable 1-5 score.
func (r Rating) Valid() bool {
	return r >= RatingMin && r <= RatingMax
}

// ServiceLearning classifies a session's service-learning component.
type ServiceLearning string

const (
	ServiceLearningNone       ServiceLearning = ""
	ServiceLearningCompulsory ServiceLearning = "compulsory"
	ServiceLearningOptional   ServiceLearning = "optional"
)

// InstructorDetail is one instructor's part of a review. It is embedded in
// the review document; instructors are matched by name only.
type InstructorDetail struct {
	InstructorName  string          `json:"instructor_name"`
	SessionType     string          `json:"session_type"`
	Teaching        Rating          `json:"teaching"`
	Grading         Rating          `json:"grading"`
	HasMidterm      bool            `json:"has_midterm"`
	HasFinal        bool            `json:"has_final"`
	HasQuiz         bool            `json:"has_quiz"`
	HasGroupProject bool            `json:"has_group_project"`
	HasPresentation bool            `json:"has_presentation"`
	HasReading      bool            `json:"has_reading"`
	HasAttendance   bool            `json:"has_attendance"`
	ServiceLearning ServiceLearning `json:"service_learning,omitempty"`
	Comments        string          `json:"comments"`
}

// Review is one student's evaluation of one course offering.
type Review struct {
	ID                string             `json:"id"`
	UserID            string             `json:"user_id"`
	IsAnonymous       bool               `json:"is_anonymous"`
	DisplayName       string             `json:"display_name,omitempty"`
	CourseCode        string             `json:"course_code"`
	TermCode          string             `json:"term_code"`
	Workload          Rating             `json:"workload"`
	Difficulty        Rating             `json:"difficulty"`
	Usefulness        Rating             `json:"usefulness"`
	Grade             string             `json:"grade"`
	Comments          string             `json:"comments"`
	InstructorDetails []InstructorDetail `json:"instructor_details"`
	CreatedAt         time.Time          `json:"created_at"`
}

// Public returns a copy safe to show to other users. The author's user id
// is always removed; anonymous reviews also lose the display name.
func (r Review) Public() Review {
	r.UserID = ""
	if r.IsAnonymous {
		r.DisplayName = ""
	}
	return r
}

// CreateReviewRequest is the payload for submitting a review.
type CreateReviewRequest struct {
	CourseCode        string                    `json:"course_code" binding:"required,min=2,max=20"`
	TermCode          string                    `json:"term_code" binding:"required,min=2,max=40"`
	IsAnonymous       bool                      `json:"is_anonymous"`
	Workload          Rating                    `json:"workload" binding:"rating"`
	Difficulty        Rating                    `json:"difficulty" binding:"rating"`
	Usefulness        Rating                    `json:"usefulness" binding:"rating"`
	Grade             string                    `json:"grade" binding:"required,grade_token"`
	Comments          string                    `json:"comments" binding:"max=5000"`
	InstructorDetails []InstructorDetailRequest `json:"instructor_details" binding:"required,min=1,max=10,dive"`
}

// InstructorDetailRequest is one instructor entry of CreateReviewRequest.
type InstructorDetailRequest struct {
	InstructorName  string          `json:"instructor_name" binding:"required,max=100"`
	SessionType     string          `json:"session_type" binding:"required,max=40"`
	Teaching        Rating          `json:"teaching" binding:"rating"`
	Grading         Rating          `json:"grading" binding:"rating"`
	HasMidterm      bool            `json:"has_midterm"`
	HasFinal        bool            `json:"has_final"`
	HasQuiz         bool            `json:"has_quiz"`
	HasGroupProject bool            `json:"has_group_project"`
	HasPresentation bool            `json:"has_presentation"`
	HasReading      bool            `json:"has_reading"`
	HasAttendance   bool            `json:"has_attendance"`
	ServiceLearning ServiceLearning `json:"service_learning" binding:"omitempty,oneof=compulsory optional"`
	Comments        string          `json:"comments" binding:"max=2000"`
}

// Detail converts the request entry into the stored form.
func (d InstructorDetailRequest) Detail() InstructorDetail {
	return InstructorDetail{
		InstructorName:  d.InstructorName,
		SessionType:     d.SessionType,
		Teaching:        d.Teaching,
		Grading:         d.Grading,
		HasMidterm:      d.HasMidterm,
		HasFinal:        d.HasFinal,
		HasQuiz:         d.HasQuiz,
		HasGroupProject: d.HasGroupProject,
		HasPresentation: d.HasPresentation,
		HasReading:      d.HasReading,
		HasAttendance:   d.HasAttendance,
		ServiceLearning: d.ServiceLearning,
		Comments:        d.Comments,
	}
}

// UpdateDisplayNameRequest is the payload for renaming a user.
type UpdateDisplayNameRequest struct {
	DisplayName string `json:"display_name" binding:"required,min=1,max=60"`
}
