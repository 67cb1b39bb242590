// Package grade converts letter-grade tokens into grade points.
//
// This is the only place that decides whether a grade token carries a
// numeric value. Every average in the system goes through Points so that
// non-substantive tokens (withdrawn, pass/fail, not graded) are excluded
// from averages instead of being counted as zero.
package grade

import "strings"

// Fail is the single letter grade that permits a second review of a course.
const Fail = "F"

// scale maps substantive letter grades to grade points.
var scale = map[string]float64{
	"A+": 4.3,
	"A":  4.0,
	"A-": 3.7,
	"B+": 3.3,
	"B":  3.0,
	"B-": 2.7,
	"C+": 2.3,
	"C":  2.0,
	"C-": 1.7,
	"D+": 1.3,
	"D":  1.0,
	"F":  0.0,
}

// nonGrades are recognised tokens that never contribute to a GPA.
var nonGrades = map[string]struct{}{
	"W":           {},
	"WITHDRAWN":   {},
	"P":           {},
	"PASS":        {},
	"P/F":         {},
	"PASS/FAIL":   {},
	"I":           {},
	"INCOMPLETE":  {},
	"NA":          {},
	"N/A":         {},
	"NOT GRADED":  {},
	"NOT YET":     {},
	"AU":          {},
	"AUDIT":       {},
	"CR":          {},
	"NC":          {},
}

func normalize(token string) string {
	return strings.ToUpper(strings.TrimSpace(token))
}

// Points returns the grade points for a letter grade. ok is false for
// non-grade and unrecognised tokens; callers must skip those entries.
func Points(token string) (points float64, ok bool) {
	points, ok = scale[normalize(token)]
	return points, ok
}

// IsKnown reports whether token is any recognised grade or non-grade token.
func IsKnown(token string) bool {
	t := normalize(token)
	if _, ok := scale[t]; ok {
		return true
	}
	_, ok := nonGrades[t]
	return ok
}

// IsFail reports whether token is the fail grade.
func IsFail(token, failGrade string) bool {
	return normalize(token) == normalize(failGrade)
}

// Mean averages the valid grade points among tokens and returns the number
// of tokens that contributed. With no valid tokens it returns 0, 0.
func Mean(tokens []string) (mean float64, count int) {
	var sum float64
	for _, t := range tokens {
		if p, ok := Points(t); ok {
			sum += p
			count++
		}
	}
	if count == 0 {
		return 0, 0
	}
	return sum / float64(count), count
}
