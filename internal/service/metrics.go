package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	degradedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "review_stats_degraded_total",
		Help: "Lookups that failed and were replaced by empty defaults.",
	}, []string{"lookup"})

	truncatedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "review_stats_truncated_total",
		Help: "Aggregations computed from a source fetch that hit its record cap.",
	}, []string{"source"})

	skippedRecordsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "review_stats_skipped_records_total",
		Help: "Malformed review records excluded from aggregation.",
	})
)
