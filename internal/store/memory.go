package store

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore keeps collections in process memory. Queries follow the same
// filter, order, limit and projection rules as PostgresStore. Rows without
// an explicit order are returned in insertion order.
type MemoryStore struct {
	mu   sync.RWMutex
	rows map[string][]Record
	// failures holds injected per-collection errors; see SetFailure.
	failures map[string]error
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		rows:     make(map[string][]Record),
		failures: make(map[string]error),
	}
}

// SetFailure makes every subsequent call on collection return err until
// cleared with a nil err.
func (s *MemoryStore) SetFailure(collection string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.failures, collection)
		return
	}
	s.failures[collection] = err
}

func (s *MemoryStore) failure(collection string) error {
	if err := s.failures[collection]; err != nil {
		return fmt.Errorf("%s: %w", collection, err)
	}
	return nil
}

// List runs q against collection.
func (s *MemoryStore) List(ctx context.Context, collection string, q Query) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c, err := Lookup(collection)
	if err != nil {
		return nil, err
	}
	fields, err := validate(c, q)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.failure(collection); err != nil {
		return nil, err
	}

	var matched []Record
	for _, rec := range s.rows[collection] {
		if matches(rec, q.Filters) {
			matched = append(matched, rec)
		}
	}
	if q.OrderBy != "" {
		slices.SortStableFunc(matched, func(a, b Record) int {
			n := compareValues(a[q.OrderBy], b[q.OrderBy])
			if q.Desc {
				return -n
			}
			return n
		})
	}
	if q.Limit > 0 && len(matched) > q.Limit {
		matched = matched[:q.Limit]
	}

	out := make([]Record, len(matched))
	for i, rec := range matched {
		proj := make(Record, len(fields))
		for _, f := range fields {
			proj[f] = rec[f]
		}
		out[i] = proj
	}
	return out, nil
}

// Create stores rec. Missing generated keys get a UUID and a missing
// created_at is set to the current time.
func (s *MemoryStore) Create(ctx context.Context, collection string, rec Record) (Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c, err := Lookup(collection)
	if err != nil {
		return nil, err
	}
	if err := validateRecord(c, rec); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failure(collection); err != nil {
		return nil, err
	}

	stored := make(Record, len(c.Columns))
	for _, col := range c.Columns {
		stored[col] = nil
	}
	for k, v := range rec {
		stored[k] = v
	}
	if stored[c.Key] == nil && c.GeneratedKey {
		stored[c.Key] = uuid.NewString()
	}
	if c.Has("created_at") && stored["created_at"] == nil {
		stored["created_at"] = time.Now().UTC()
	}
	key := fmt.Sprint(stored[c.Key])
	if s.indexOf(collection, c.Key, key) >= 0 {
		return nil, ErrConflict
	}

	s.rows[collection] = append(s.rows[collection], stored)
	return stored.Clone(), nil
}

// Update merges patch into the record keyed by id.
func (s *MemoryStore) Update(ctx context.Context, collection, id string, patch Record) (Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c, err := Lookup(collection)
	if err != nil {
		return nil, err
	}
	if err := validateRecord(c, patch); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failure(collection); err != nil {
		return nil, err
	}

	i := s.indexOf(collection, c.Key, id)
	if i < 0 {
		return nil, ErrNotFound
	}
	// Records handed out by List are projections, so replacing the stored
	// map keeps earlier results unchanged.
	updated := s.rows[collection][i].Clone()
	for k, v := range patch {
		updated[k] = v
	}
	s.rows[collection][i] = updated
	return updated.Clone(), nil
}

// Delete removes the record keyed by id.
func (s *MemoryStore) Delete(ctx context.Context, collection, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c, err := Lookup(collection)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failure(collection); err != nil {
		return err
	}

	i := s.indexOf(collection, c.Key, id)
	if i < 0 {
		return ErrNotFound
	}
	s.rows[collection] = slices.Delete(s.rows[collection], i, i+1)
	return nil
}

func (s *MemoryStore) indexOf(collection, key, id string) int {
	return slices.IndexFunc(s.rows[collection], func(r Record) bool {
		return r[key] != nil && fmt.Sprint(r[key]) == id
	})
}

func matches(rec Record, filters []Filter) bool {
	for _, f := range filters {
		v := rec[f.Field]
		switch f.Op {
		case OpEq:
			if !equalValues(v, f.Value) {
				return false
			}
		case OpIn:
			if !slices.ContainsFunc(f.Values, func(want any) bool { return equalValues(v, want) }) {
				return false
			}
		default:
			return false
		}
	}
	return true
}

func equalValues(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if x, ok := asFloat(a); ok {
		if y, ok := asFloat(b); ok {
			return x == y
		}
	}
	return fmt.Sprint(a) == fmt.Sprint(b)
}

func compareValues(a, b any) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}
	if x, ok := asFloat(a); ok {
		if y, ok := asFloat(b); ok {
			return cmp.Compare(x, y)
		}
	}
	if x, ok := a.(time.Time); ok {
		if y, ok := b.(time.Time); ok {
			return x.Compare(y)
		}
	}
	if x, ok := a.(bool); ok {
		if y, ok := b.(bool); ok {
			switch {
			case x == y:
				return 0
			case !x:
				return -1
			default:
				return 1
			}
		}
	}
	return cmp.Compare(fmt.Sprint(a), fmt.Sprint(b))
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}
