// Package store is the remote document store the review engine reads from
// and writes to. Collections are flat records addressed by a key column;
// queries support equality and set-membership filters, a single sort field,
// a row limit and a field projection.
package store

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrNotFound          = errors.New("record not found")
	ErrUnknownCollection = errors.New("unknown collection")
	ErrUnknownField      = errors.New("unknown field")
)

// Record is one document. Values are plain Go scalars, time.Time, or
// decoded JSON for structured columns.
type Record map[string]any

// Clone returns a shallow copy of r.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Op is a filter operator.
type Op int

const (
	OpEq Op = iota
	OpIn
)

// Filter restricts a query on one field.
type Filter struct {
	Field  string
	Op     Op
	Value  any   // OpEq
	Values []any // OpIn
}

// Eq matches records whose field equals value.
func Eq(field string, value any) Filter {
	return Filter{Field: field, Op: OpEq, Value: value}
}

// In matches records whose field is one of values. An empty set matches
// nothing.
func In(field string, values ...any) Filter {
	return Filter{Field: field, Op: OpIn, Values: values}
}

// Query describes a List call. Limit <= 0 means no limit; an empty Fields
// selects every column.
type Query struct {
	Filters []Filter
	OrderBy string
	Desc    bool
	Limit   int
	Fields  []string
}

// DocumentStore is implemented by PostgresStore and MemoryStore.
type DocumentStore interface {
	List(ctx context.Context, collection string, q Query) ([]Record, error)
	Create(ctx context.Context, collection string, rec Record) (Record, error)
	Update(ctx context.Context, collection, id string, patch Record) (Record, error)
	Delete(ctx context.Context, collection, id string) error
}

// validate checks q against the collection whitelist and returns the
// projected field list.
func validate(c *Collection, q Query) ([]string, error) {
	for _, f := range q.Filters {
		if !c.Has(f.Field) {
			return nil, fmt.Errorf("%s.%s: %w", c.Name, f.Field, ErrUnknownField)
		}
	}
	if q.OrderBy != "" && !c.Has(q.OrderBy) {
		return nil, fmt.Errorf("%s.%s: %w", c.Name, q.OrderBy, ErrUnknownField)
	}
	if len(q.Fields) == 0 {
		return c.Columns, nil
	}
	for _, f := range q.Fields {
		if !c.Has(f) {
			return nil, fmt.Errorf("%s.%s: %w", c.Name, f, ErrUnknownField)
		}
	}
	return q.Fields, nil
}

func validateRecord(c *Collection, rec Record) error {
	for k := range rec {
		if !c.Has(k) {
			return fmt.Errorf("%s.%s: %w", c.Name, k, ErrUnknownField)
		}
	}
	return nil
}
