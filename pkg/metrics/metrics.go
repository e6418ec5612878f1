// Package metrics provides the centralized Prometheus registry reference for
// the progress aggregation engine. All metrics are defined in their respective
// packages (fetch, pagination, cache, ratelimit) to maintain modularity and
// avoid circular dependencies.
//
// This package provides documentation and reference for all available metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry is the default Prometheus registry used by the engine.
// All metrics are automatically registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// Metrics Documentation
//
// Fetch Metrics (pkg/fetch):
//   - woprog_fetch_requests_total{collection, status} (Counter): Collection API requests by collection and HTTP status
//   - woprog_fetch_request_duration_seconds{collection} (Histogram): Page fetch duration by collection
//   - woprog_fetch_errors_total{class} (Counter): Errors by class (client, server, network, envelope)
//
// Pagination Metrics (pkg/pagination):
//   - woprog_page_retries_total{error_class} (Counter): Page retry attempts by error class
//   - woprog_page_retry_backoff_seconds{error_class} (Histogram): Backoff duration by error class
//   - woprog_page_retry_exhausted_total{error_class} (Counter): Pages that exhausted max retries
//
// Cache Metrics (pkg/cache):
//   - woprog_cache_hits_total{layer} (Counter): Snapshot hits by layer (memory, redis)
//   - woprog_cache_misses_total (Counter): Snapshot misses
//   - woprog_cache_size_bytes{layer} (Gauge): Serialized size of the last stored snapshot
//   - woprog_cache_coalesced_callers_total (Counter): Callers that joined an in-flight fetch
//   - woprog_cache_stale_serves_total (Counter): Stale snapshots served after refresh failure
//   - woprog_cache_errors_total{operation} (Counter): Snapshot store operation errors
//
// Error Budget Metrics (pkg/ratelimit):
//   - woprog_error_budget_remaining (Gauge): Errors remaining in the current budget window
//   - woprog_error_budget_blocks_total (Counter): Requests blocked on a critical budget
//   - woprog_error_budget_throttles_total (Counter): Requests throttled on a low budget
//
// Example Prometheus Queries:
//
//   # Cache Hit Rate
//   sum(rate(woprog_cache_hits_total[5m])) /
//   (sum(rate(woprog_cache_hits_total[5m])) + sum(rate(woprog_cache_misses_total[5m])))
//
//   # Error Budget Status
//   woprog_error_budget_remaining < 20
//
//   # Fetch Error Rate
//   rate(woprog_fetch_errors_total[5m])
//
//   # P95 Page Fetch Latency
//   histogram_quantile(0.95, rate(woprog_fetch_request_duration_seconds_bucket[5m]))
//
//   # Retry Exhaustion Rate
//   rate(woprog_page_retry_exhausted_total[5m])
