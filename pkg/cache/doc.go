// Package cache provides TTL caching of raw collection snapshots with
// single-flight coalescing of concurrent fetches.
//
// Dashboards tend to trigger the same collection fetch from several views
// within a short window. The FetchCache collapses those into one underlying
// fetch: the first caller becomes the leader, later callers block until the
// in-flight fetch completes and all of them receive the same result. No
// polling is involved; waiters resume exactly when the fetch finishes.
//
// # Basic Usage
//
//	fc := cache.NewFetchCache(5 * time.Minute)
//
//	records, err := fc.GetOrFetch(ctx, "workorders", func(ctx context.Context) ([]model.RawRecord, error) {
//		result, err := paginator.FetchAll(ctx, "workorders", 100)
//		if err != nil {
//			return nil, err
//		}
//		return result.Items, nil
//	})
//
// # Failure Semantics
//
// A failed fetch propagates its error to every coalesced caller and leaves
// the previous valid entry untouched. Callers that prefer slightly old data
// over an error use GetOrFetchStale.
//
// # Snapshot Sharing
//
// With WithSnapshotStore, snapshots are written through to Redis so other
// processes hitting the same backend can reuse them within the TTL window:
//
//	store := cache.NewSnapshotStore(redisClient)
//	fc := cache.NewFetchCache(5*time.Minute, cache.WithSnapshotStore(store))
//
// # Metrics
//
// The package exports Prometheus metrics:
//
//   - woprog_cache_hits_total{layer} - Cache hits by layer (memory, redis)
//   - woprog_cache_misses_total - Cache misses
//   - woprog_cache_size_bytes{layer="redis"} - Stored snapshot bytes
//   - woprog_cache_coalesced_callers_total - Callers served by an in-flight fetch
//   - woprog_cache_stale_serves_total - Stale snapshots served on refresh failure
//   - woprog_cache_errors_total{operation} - Cache operation errors
package cache
