package model

import (
	"strconv"
	"strings"
)

// CompareTerms orders term codes chronologically. Codes look like
// "2023-24 Term 1", "2023-24 Term 2" or "2023-24 Summer Term". Codes that
// do not parse sort after every parsed code, in plain string order.
func CompareTerms(a, b string) int {
	ya, sa, okA := parseTerm(a)
	yb, sb, okB := parseTerm(b)
	switch {
	case !okA && !okB:
		return strings.Compare(a, b)
	case !okA:
		return 1
	case !okB:
		return -1
	}
	switch {
	case ya != yb:
		if ya < yb {
			return -1
		}
		return 1
	case sa != sb:
		if sa < sb {
			return -1
		}
		return 1
	}
	return 0
}

func parseTerm(code string) (year, season int, ok bool) {
	fields := strings.Fields(code)
	if len(fields) < 2 {
		return 0, 0, false
	}
	start, _, found := strings.Cut(fields[0], "-")
	if !found {
		return 0, 0, false
	}
	year, err := strconv.Atoi(start)
	if err != nil {
		return 0, 0, false
	}

	rest := strings.ToLower(strings.Join(fields[1:], " "))
	switch {
	case strings.HasPrefix(rest, "summer"):
		return year, 100, true
	case strings.HasPrefix(rest, "term "):
		n, err := strconv.Atoi(strings.TrimPrefix(rest, "term "))
		if err != nil {
			return 0, 0, false
		}
		return year, n, true
	}
	return 0, 0, false
}
