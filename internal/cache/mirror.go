package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// generationKey holds the mirror generation. Invalidation bumps it, which
// orphans every key written under the previous generation.
const generationKey = "review:cache:generation"

// RedisCmdable is the subset of *redis.Client used by the mirror.
type RedisCmdable interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Incr(ctx context.Context, key string) *redis.IntCmd
}

// Mirror writes computed results to Redis so other instances can reuse them.
// Every failure is logged and swallowed: the mirror is never a source of
// truth and a failed read is treated as a miss.
type Mirror struct {
	rdb RedisCmdable
	log zerolog.Logger
}

// NewMirror creates a Mirror. A nil client yields a nil Mirror, and all
// methods on a nil Mirror are no-ops.
func NewMirror(rdb RedisCmdable, log zerolog.Logger) *Mirror {
	if rdb == nil {
		return nil
	}
	return &Mirror{
		rdb: rdb,
		log: log.With().Str("component", "cache_mirror").Logger(),
	}
}

func (m *Mirror) generation(ctx context.Context) (int64, error) {
	v, err := m.rdb.Get(ctx, generationKey).Result()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return strconv.ParseInt(v, 10, 64)
}

func versionedKey(gen int64, key string) string {
	return fmt.Sprintf("review:cache:%d:%s", gen, key)
}

// envelope carries the absolute expiry so a reader only inherits the
// remaining lifetime of an entry.
type envelope struct {
	ExpiresAt time.Time       `json:"expires_at"`
	Value     json.RawMessage `json:"value"`
}

// Load decodes the mirrored value of key into dst. It returns the time the
// entry has left to live and whether it was found.
func (m *Mirror) Load(ctx context.Context, key string, dst any) (time.Duration, bool) {
	if m == nil {
		return 0, false
	}
	gen, err := m.generation(ctx)
	if err != nil {
		mirrorErrorsTotal.WithLabelValues("generation").Inc()
		m.log.Warn().Err(err).Msg("Mirror generation read failed")
		return 0, false
	}

	data, err := m.rdb.Get(ctx, versionedKey(gen, key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return 0, false
	}
	if err != nil {
		mirrorErrorsTotal.WithLabelValues("load").Inc()
		m.log.Warn().Err(err).Str("key", key).Msg("Mirror load failed")
		return 0, false
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err == nil {
		err = json.Unmarshal(env.Value, dst)
	}
	if err != nil {
		mirrorErrorsTotal.WithLabelValues("decode").Inc()
		m.log.Warn().Err(err).Str("key", key).Msg("Mirror entry is corrupt, ignoring")
		return 0, false
	}
	remaining := time.Until(env.ExpiresAt)
	if remaining <= 0 {
		return 0, false
	}
	return remaining, true
}

// Store writes value under key with ttl.
func (m *Mirror) Store(ctx context.Context, key string, value any, ttl time.Duration) {
	if m == nil || ttl <= 0 {
		return
	}
	raw, err := json.Marshal(value)
	if err == nil {
		raw, err = json.Marshal(envelope{ExpiresAt: time.Now().Add(ttl), Value: raw})
	}
	if err != nil {
		mirrorErrorsTotal.WithLabelValues("encode").Inc()
		m.log.Warn().Err(err).Str("key", key).Msg("Mirror encode failed")
		return
	}
	gen, err := m.generation(ctx)
	if err != nil {
		mirrorErrorsTotal.WithLabelValues("generation").Inc()
		m.log.Warn().Err(err).Msg("Mirror generation read failed")
		return
	}
	if err := m.rdb.Set(ctx, versionedKey(gen, key), raw, ttl).Err(); err != nil {
		mirrorErrorsTotal.WithLabelValues("store").Inc()
		m.log.Warn().Err(err).Str("key", key).Msg("Mirror store failed")
	}
}

// InvalidateAll orphans every mirrored entry across all instances.
func (m *Mirror) InvalidateAll(ctx context.Context) {
	if m == nil {
		return
	}
	if err := m.rdb.Incr(ctx, generationKey).Err(); err != nil {
		mirrorErrorsTotal.WithLabelValues("invalidate").Inc()
		m.log.Warn().Err(err).Msg("Mirror invalidation failed")
	}
}

// Generation reports the current mirror generation. A nil Mirror reports 0.
func (m *Mirror) Generation(ctx context.Context) (int64, error) {
	if m == nil {
		return 0, nil
	}
	return m.generation(ctx)
}
