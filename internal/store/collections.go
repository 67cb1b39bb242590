package store

import (
	"fmt"
	"slices"
)

// Collection names.
const (
	Reviews         = "reviews"
	TeachingRecords = "teaching_records"
	Courses         = "courses"
	Instructors     = "instructors"
	ReviewVotes     = "review_votes"
)

// Collection is the whitelist for one table.
type Collection struct {
	Name    string
	Key     string
	Columns []string
	// GeneratedKey means Create assigns a UUID when the key is absent.
	GeneratedKey bool
}

// Has reports whether field is a column of c.
func (c *Collection) Has(field string) bool {
	return slices.Contains(c.Columns, field)
}

var collections = map[string]*Collection{
	Reviews: {
		Name: Reviews,
		Key:  "id",
		Columns: []string{
			"id", "user_id", "is_anonymous", "display_name", "course_code", "term_code",
			"workload", "difficulty", "usefulness", "grade", "comments",
			"instructor_details", "created_at",
		},
		GeneratedKey: true,
	},
	TeachingRecords: {
		Name: TeachingRecords,
		Key:  "id",
		Columns: []string{
			"id", "course_code", "term_code", "instructor_name", "session_type",
			"teaching_language", "service_learning",
		},
		GeneratedKey: true,
	},
	Courses: {
		Name:    Courses,
		Key:     "code",
		Columns: []string{"code", "titles", "department"},
	},
	Instructors: {
		Name:    Instructors,
		Key:     "name",
		Columns: []string{"name", "names", "department"},
	},
	ReviewVotes: {
		Name:         ReviewVotes,
		Key:          "id",
		Columns:      []string{"id", "review_id", "user_id", "is_upvote", "created_at"},
		GeneratedKey: true,
	},
}

// Lookup returns the collection named name.
func Lookup(name string) (*Collection, error) {
	c, ok := collections[name]
	if !ok {
		return nil, fmt.Errorf("%q: %w", name, ErrUnknownCollection)
	}
	return c, nil
}
