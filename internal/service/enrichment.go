package service

// Enrichment is the outcome of a best-effort lookup. A failed lookup keeps
// its error next to the zero value so callers merge a default explicitly.
type Enrichment[T any] struct {
	Value T
	Err   error
}

func enrich[T any](v T, err error) Enrichment[T] {
	return Enrichment[T]{Value: v, Err: err}
}

// OK reports whether the lookup succeeded.
func (e Enrichment[T]) OK() bool {
	return e.Err == nil
}

// OrDefault returns the value, or def when the lookup failed.
func (e Enrichment[T]) OrDefault(def T) T {
	if e.Err != nil {
		return def
	}
	return e.Value
}
