package cache

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockRedis keeps string values in memory and can fail on demand.
type mockRedis struct {
	mu   sync.Mutex
	data map[string]string
	ttls map[string]time.Duration
	err  error
}

func newMockRedis() *mockRedis {
	return &mockRedis{data: make(map[string]string), ttls: make(map[string]time.Duration)}
}

func (m *mockRedis) Get(ctx context.Context, key string) *redis.StringCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	cmd := redis.NewStringCmd(ctx, "get", key)
	if m.err != nil {
		cmd.SetErr(m.err)
		return cmd
	}
	v, ok := m.data[key]
	if !ok {
		cmd.SetErr(redis.Nil)
		return cmd
	}
	cmd.SetVal(v)
	return cmd
}

func (m *mockRedis) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	cmd := redis.NewStatusCmd(ctx, "set", key, value)
	if m.err != nil {
		cmd.SetErr(m.err)
		return cmd
	}
	switch v := value.(type) {
	case []byte:
		m.data[key] = string(v)
	case string:
		m.data[key] = v
	}
	m.ttls[key] = expiration
	cmd.SetVal("OK")
	return cmd
}

func (m *mockRedis) Incr(ctx context.Context, key string) *redis.IntCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	cmd := redis.NewIntCmd(ctx, "incr", key)
	if m.err != nil {
		cmd.SetErr(m.err)
		return cmd
	}
	n, _ := strconv.ParseInt(m.data[key], 10, 64)
	n++
	m.data[key] = strconv.FormatInt(n, 10)
	cmd.SetVal(n)
	return cmd
}

type payload struct {
	Count int    `json:"count"`
	Name  string `json:"name"`
}

func TestMirrorStoreLoad(t *testing.T) {
	ctx := context.Background()
	rdb := newMockRedis()
	m := NewMirror(rdb, zerolog.Nop())

	m.Store(ctx, "stats:courses:snapshot", payload{Count: 3, Name: "x"}, time.Minute)
	assert.Equal(t, time.Minute, rdb.ttls["review:cache:0:stats:courses:snapshot"])

	var got payload
	remaining, ok := m.Load(ctx, "stats:courses:snapshot", &got)
	require.True(t, ok)
	assert.Equal(t, payload{Count: 3, Name: "x"}, got)
	assert.True(t, remaining > 0 && remaining <= time.Minute)

	_, ok = m.Load(ctx, "missing", &got)
	assert.False(t, ok)
}

func TestMirrorInvalidateAll(t *testing.T) {
	ctx := context.Background()
	m := NewMirror(newMockRedis(), zerolog.Nop())

	m.Store(ctx, "k", payload{Count: 1}, time.Minute)
	m.InvalidateAll(ctx)

	var got payload
	_, ok := m.Load(ctx, "k", &got)
	assert.False(t, ok)

	m.Store(ctx, "k", payload{Count: 2}, time.Minute)
	_, ok = m.Load(ctx, "k", &got)
	require.True(t, ok)
	assert.Equal(t, 2, got.Count)
}

func TestMirrorFailuresAreMisses(t *testing.T) {
	ctx := context.Background()
	rdb := newMockRedis()
	m := NewMirror(rdb, zerolog.Nop())

	rdb.err = errors.New("connection refused")
	m.Store(ctx, "k", payload{Count: 1}, time.Minute)
	m.InvalidateAll(ctx)

	var got payload
	_, ok := m.Load(ctx, "k", &got)
	assert.False(t, ok)

	rdb.err = nil
	rdb.data["review:cache:0:corrupt"] = "{not json"
	_, ok = m.Load(ctx, "corrupt", &got)
	assert.False(t, ok)

	rdb.data["review:cache:0:expired"] = `{"expires_at":"2000-01-01T00:00:00Z","value":{"count":1}}`
	_, ok = m.Load(ctx, "expired", &got)
	assert.False(t, ok)
}

func TestNilMirrorIsNoop(t *testing.T) {
	var m *Mirror
	assert.Nil(t, NewMirror(nil, zerolog.Nop()))

	var got payload
	m.Store(context.Background(), "k", payload{}, time.Minute)
	m.InvalidateAll(context.Background())
	_, ok := m.Load(context.Background(), "k", &got)
	assert.False(t, ok)
}
