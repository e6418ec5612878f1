package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheHits tracks cache hits by layer (memory, redis)
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "woprog_cache_hits_total",
			Help: "Total number of snapshot cache hits",
		},
		[]string{"layer"}, // "memory", "redis"
	)

	// CacheMisses tracks cache misses
	CacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "woprog_cache_misses_total",
			Help: "Total number of snapshot cache misses",
		},
	)

	// CacheSize tracks cache size in bytes by layer
	CacheSize = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "woprog_cache_size_bytes",
			Help: "Current size of snapshot cache in bytes",
		},
		[]string{"layer"}, // "redis"
	)

	// CacheCoalescedCallers tracks callers served by an in-flight fetch
	CacheCoalescedCallers = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "woprog_cache_coalesced_callers_total",
			Help: "Total number of callers coalesced into an in-flight fetch",
		},
	)

	// CacheStaleServes tracks stale snapshots served after a refresh failure
	CacheStaleServes = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "woprog_cache_stale_serves_total",
			Help: "Total number of stale snapshots served after a refresh failure",
		},
	)

	// CacheErrors tracks cache operation errors
	CacheErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "woprog_cache_errors_total",
			Help: "Total number of cache operation errors",
		},
		[]string{"operation"}, // "get", "set", "delete", "fetch"
	)
)
