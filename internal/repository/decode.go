package repository

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/stemsi/course-review-backend/internal/store"
)

// Record field readers. Missing or mistyped scalar fields decode to their
// zero value; only structured columns report errors.

func str(rec store.Record, key string) string {
	switch v := rec[key].(type) {
	case string:
		return v
	case []byte:
		return string(v)
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

func integer(rec store.Record, key string) int {
	switch v := rec[key].(type) {
	case int:
		return v
	case int16:
		return int(v)
	case int32:
		return int(v)
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return 0
}

func boolean(rec store.Record, key string) bool {
	v, _ := rec[key].(bool)
	return v
}

func timestamp(rec store.Record, key string) time.Time {
	v, _ := rec[key].(time.Time)
	return v
}

// decodeJSON unmarshals a structured column. The store yields raw bytes
// or already-decoded JSON depending on the backend.
func decodeJSON(rec store.Record, key string, dst any) error {
	var data []byte
	switch v := rec[key].(type) {
	case nil:
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	case json.RawMessage:
		data = v
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("re-encode %s: %w", key, err)
		}
		data = b
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

func encodeJSON(v any) ([]byte, error) {
	return json.Marshal(v)
}

// capped applies the limit+1 probe: it trims recs to limit and reports
// whether the source had more.
func capped(recs []store.Record, limit int) ([]store.Record, bool) {
	if limit > 0 && len(recs) > limit {
		return recs[:limit], true
	}
	return recs, false
}

func probeLimit(limit int) int {
	if limit <= 0 {
		return 0
	}
	return limit + 1
}
