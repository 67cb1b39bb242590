package store

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// ErrConflict is returned when a write violates a unique constraint.
var ErrConflict = errors.New("record already exists")

var tracer = otel.Tracer("course-review.store")

var sb = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

// PostgresStore maps each collection to a table of the same name.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a PostgresStore over pool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func isDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// BuildSelect renders q against collection as a SELECT statement.
func BuildSelect(collection string, q Query) (string, []any, error) {
	c, err := Lookup(collection)
	if err != nil {
		return "", nil, err
	}
	fields, err := validate(c, q)
	if err != nil {
		return "", nil, err
	}

	stmt := sb.Select(fields...).From(c.Name)
	for _, f := range q.Filters {
		switch f.Op {
		case OpEq:
			stmt = stmt.Where(squirrel.Eq{f.Field: f.Value})
		case OpIn:
			// squirrel renders an empty slice as (1=0).
			vals := f.Values
			if vals == nil {
				vals = []any{}
			}
			stmt = stmt.Where(squirrel.Eq{f.Field: vals})
		default:
			return "", nil, fmt.Errorf("filter on %s: unsupported operator %d", f.Field, f.Op)
		}
	}
	if q.OrderBy != "" {
		dir := "ASC"
		if q.Desc {
			dir = "DESC"
		}
		stmt = stmt.OrderBy(q.OrderBy + " " + dir)
	}
	if q.Limit > 0 {
		stmt = stmt.Limit(uint64(q.Limit))
	}
	return stmt.ToSql()
}

func startSpan(ctx context.Context, op, collection string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "store."+op,
		trace.WithAttributes(
			attribute.String("db.system", "postgresql"),
			attribute.String("store.collection", collection),
		),
	)
}

func endSpan(span trace.Span, err error) {
	if err != nil && !errors.Is(err, ErrNotFound) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// List runs q and returns the matching rows.
func (s *PostgresStore) List(ctx context.Context, collection string, q Query) (out []Record, err error) {
	ctx, span := startSpan(ctx, "List", collection)
	defer func() { endSpan(span, err) }()

	query, args, err := BuildSelect(collection, q)
	if err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", collection, err)
	}
	out, err = collectRecords(rows)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", collection, err)
	}
	span.SetAttributes(attribute.Int("store.rows", len(out)))
	return out, nil
}

// Create inserts rec and returns the stored row.
func (s *PostgresStore) Create(ctx context.Context, collection string, rec Record) (out Record, err error) {
	ctx, span := startSpan(ctx, "Create", collection)
	defer func() { endSpan(span, err) }()

	c, err := Lookup(collection)
	if err != nil {
		return nil, err
	}
	if err := validateRecord(c, rec); err != nil {
		return nil, err
	}
	rec = rec.Clone()
	if _, ok := rec[c.Key]; !ok && c.GeneratedKey {
		rec[c.Key] = uuid.NewString()
	}

	cols := sortedKeys(rec)
	vals := make([]any, len(cols))
	for i, col := range cols {
		vals[i] = rec[col]
	}

	query, args, err := sb.Insert(c.Name).
		Columns(cols...).
		Values(vals...).
		Suffix("RETURNING " + strings.Join(c.Columns, ", ")).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build insert %s: %w", collection, err)
	}

	out, err = s.queryOne(ctx, query, args)
	if err != nil {
		if isDuplicateKeyError(err) {
			return nil, ErrConflict
		}
		return nil, fmt.Errorf("create %s: %w", collection, err)
	}
	return out, nil
}

// Update applies patch to the row keyed by id.
func (s *PostgresStore) Update(ctx context.Context, collection, id string, patch Record) (out Record, err error) {
	ctx, span := startSpan(ctx, "Update", collection)
	defer func() { endSpan(span, err) }()

	c, err := Lookup(collection)
	if err != nil {
		return nil, err
	}
	if err := validateRecord(c, patch); err != nil {
		return nil, err
	}
	if len(patch) == 0 {
		return nil, fmt.Errorf("update %s: empty patch", collection)
	}

	query, args, err := sb.Update(c.Name).
		SetMap(map[string]any(patch)).
		Where(squirrel.Eq{c.Key: id}).
		Suffix("RETURNING " + strings.Join(c.Columns, ", ")).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build update %s: %w", collection, err)
	}

	out, err = s.queryOne(ctx, query, args)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update %s: %w", collection, err)
	}
	return out, nil
}

// Delete removes the row keyed by id.
func (s *PostgresStore) Delete(ctx context.Context, collection, id string) (err error) {
	ctx, span := startSpan(ctx, "Delete", collection)
	defer func() { endSpan(span, err) }()

	c, err := Lookup(collection)
	if err != nil {
		return err
	}
	query, args, err := sb.Delete(c.Name).Where(squirrel.Eq{c.Key: id}).ToSql()
	if err != nil {
		return fmt.Errorf("build delete %s: %w", collection, err)
	}

	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("delete %s: %w", collection, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) queryOne(ctx context.Context, query string, args []any) (Record, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	recs, err := collectRecords(rows)
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, pgx.ErrNoRows
	}
	return recs[0], nil
}

// collectRecords scans rows into records keyed by column name.
func collectRecords(rows pgx.Rows) ([]Record, error) {
	defer rows.Close()

	fields := rows.FieldDescriptions()
	var out []Record
	for rows.Next() {
		vals, err := rows.Values()
		if err != nil {
			return nil, err
		}
		rec := make(Record, len(fields))
		for i, fd := range fields {
			rec[fd.Name] = vals[i]
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func sortedKeys(rec Record) []string {
	keys := make([]string, 0, len(rec))
	for k := range rec {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
