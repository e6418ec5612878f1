// Package pagination drives the page fetcher across every page of a remote
// collection.
//
// The backend reports total pages in its pagination metadata; pages beyond
// the first are fetched in bounded-concurrency batches with a short pause
// between batches so a large collection does not overwhelm the backend.
//
// Example usage:
//
//	config := pagination.DefaultConfig()
//	paginator := pagination.NewPaginator(fetchClient, config)
//	result, err := paginator.FetchAll(ctx, "workorders", 100)
//
// The paginator:
//   - Fetches the first page to determine the total page count
//   - Fetches remaining pages in batches (default 5 pages at a time)
//   - Retries transient page failures with exponential backoff
//   - Records pages that still fail in Result.FailedPages instead of
//     aborting, so partial data can be aggregated
//
// Callers decide whether a non-empty FailedPages surfaces as a warning.
package pagination
