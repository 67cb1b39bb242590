package cache

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	cacheHitsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "review_cache_hits_total",
		Help: "TTL cache hits by key kind",
	}, []string{"kind"})

	cacheMissesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "review_cache_misses_total",
		Help: "TTL cache misses by key kind",
	}, []string{"kind"})

	cacheEvictionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "review_cache_evictions_total",
		Help: "Expired entries evicted on read, by key kind",
	}, []string{"kind"})

	mirrorErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "review_cache_mirror_errors_total",
		Help: "Failed Redis mirror operations by operation",
	}, []string{"op"})
)

// kindOf labels a key by its first segment, e.g. "stats" for
// "stats:courses:snapshot", keeping label cardinality bounded.
func kindOf(key string) string {
	kind, _, _ := strings.Cut(key, ":")
	return kind
}

func recordHit(key string)      { cacheHitsTotal.WithLabelValues(kindOf(key)).Inc() }
func recordMiss(key string)     { cacheMissesTotal.WithLabelValues(kindOf(key)).Inc() }
func recordEviction(key string) { cacheEvictionsTotal.WithLabelValues(kindOf(key)).Inc() }
