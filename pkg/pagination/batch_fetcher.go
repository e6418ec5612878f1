// Package pagination drives the page fetcher across all pages of a remote
// collection using bounded-concurrency batches
package pagination

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/fieldops/workorder-progress/pkg/fetch"
	"github.com/fieldops/workorder-progress/pkg/model"
)

// Config holds paginator configuration
type Config struct {
	// BatchSize is the number of pages fetched concurrently per batch.
	// Kept small to avoid overwhelming the backend.
	BatchSize int
	// BatchDelay is the pause inserted between batches, applied only
	// when more batches remain.
	BatchDelay time.Duration
	// PageTimeout bounds a single page fetch.
	PageTimeout time.Duration
	// Retry configures per-page retry behavior.
	Retry RetryConfig
}

// DefaultConfig returns safe default configuration
func DefaultConfig() Config {
	return Config{
		BatchSize:   5,
		BatchDelay:  200 * time.Millisecond,
		PageTimeout: 30 * time.Second,
		Retry:       DefaultRetryConfig(),
	}
}

// PageFetcher is the interface the fetch client implements for single-page fetching
type PageFetcher interface {
	// FetchPage fetches a single page and returns items + total page count
	FetchPage(ctx context.Context, collection string, page, pageSize int) (fetch.PageResult, error)
}

// Result is the outcome of fetching all pages of a collection.
type Result struct {
	// Items are all fetched records, concatenated in page order.
	// In-page order is whatever the source returned.
	Items []model.RawRecord

	// FailedPages lists the page numbers that still failed after retries,
	// ascending. A failed page contributes zero items and never aborts
	// the overall fetch.
	FailedPages []int

	// TotalPages is the page count reported by the backend.
	TotalPages int
}

// Incomplete reports whether some pages could not be fetched.
func (r Result) Incomplete() bool {
	return len(r.FailedPages) > 0
}

// Paginator fetches all pages of a collection in bounded batches
type Paginator struct {
	fetcher PageFetcher
	config  Config
}

// NewPaginator creates a new paginator
func NewPaginator(fetcher PageFetcher, config Config) *Paginator {
	if config.BatchSize <= 0 {
		config.BatchSize = 5
	}
	if config.BatchDelay < 0 {
		config.BatchDelay = 200 * time.Millisecond
	}
	if config.PageTimeout <= 0 {
		config.PageTimeout = 30 * time.Second
	}
	if config.Retry.MaxAttempts <= 0 {
		config.Retry = DefaultRetryConfig()
	}

	return &Paginator{
		fetcher: fetcher,
		config:  config,
	}
}

// FetchAll fetches every page of a collection. The first page establishes
// the total page count; remaining pages are fetched in batches of
// Config.BatchSize with Config.BatchDelay between batches. A page that
// fails after retries is recorded in Result.FailedPages rather than
// aborting the fetch. A hard error is returned only for invalid input,
// a failed first page (no page count means nothing to salvage), or
// context cancellation.
func (p *Paginator) FetchAll(ctx context.Context, collection string, pageSize int) (Result, error) {
	if collection == "" {
		return Result{}, fmt.Errorf("%w: empty collection name", fetch.ErrInvalidInput)
	}
	if pageSize < 1 {
		return Result{}, fmt.Errorf("%w: page size %d (must be >= 1)", fetch.ErrInvalidInput, pageSize)
	}

	start := time.Now()

	firstPage, err := p.fetchPageWithRetry(ctx, collection, 1, pageSize)
	if err != nil {
		return Result{}, fmt.Errorf("fetch first page of %q: %w", collection, err)
	}
	totalPages := firstPage.TotalPages
	if totalPages < 1 {
		totalPages = 1
	}

	log.Info().
		Str("collection", collection).
		Int("total_pages", totalPages).
		Msg("Starting paginated fetch")

	// Single page optimization
	if totalPages == 1 {
		log.Info().
			Str("collection", collection).
			Int("pages", 1).
			Dur("duration", time.Since(start)).
			Msg("Fetch complete (single page)")
		return Result{Items: firstPage.Items, TotalPages: 1}, nil
	}

	pages := make(map[int][]model.RawRecord, totalPages)
	pages[1] = firstPage.Items
	var failedPages []int
	var mu sync.Mutex

	// Fetch remaining pages in bounded batches.
	for batchStart := 2; batchStart <= totalPages; batchStart += p.config.BatchSize {
		if err := ctx.Err(); err != nil {
			return Result{}, fmt.Errorf("fetch %q cancelled: %w", collection, err)
		}

		batchEnd := batchStart + p.config.BatchSize - 1
		if batchEnd > totalPages {
			batchEnd = totalPages
		}

		var wg sync.WaitGroup
		for page := batchStart; page <= batchEnd; page++ {
			wg.Add(1)
			go func(page int) {
				defer wg.Done()

				result, err := p.fetchPageWithRetry(ctx, collection, page, pageSize)

				mu.Lock()
				defer mu.Unlock()
				if err != nil {
					log.Warn().
						Err(err).
						Str("collection", collection).
						Int("page", page).
						Msg("Page fetch failed")
					failedPages = append(failedPages, page)
					return
				}
				pages[page] = result.Items
			}(page)
		}
		wg.Wait()

		// Small pause between batches, skipped after the last one.
		if batchEnd < totalPages && p.config.BatchDelay > 0 {
			select {
			case <-ctx.Done():
				return Result{}, fmt.Errorf("fetch %q cancelled: %w", collection, ctx.Err())
			case <-time.After(p.config.BatchDelay):
			}
		}
	}

	sort.Ints(failedPages)

	// Concatenate in page order.
	var items []model.RawRecord
	for page := 1; page <= totalPages; page++ {
		items = append(items, pages[page]...)
	}

	log.Info().
		Str("collection", collection).
		Int("pages", totalPages-len(failedPages)).
		Int("total", totalPages).
		Int("failed", len(failedPages)).
		Dur("duration", time.Since(start)).
		Msg("Fetch complete")

	return Result{
		Items:       items,
		FailedPages: failedPages,
		TotalPages:  totalPages,
	}, nil
}

// fetchPageWithRetry fetches one page under the configured timeout,
// retrying transient failures with backoff.
func (p *Paginator) fetchPageWithRetry(ctx context.Context, collection string, page, pageSize int) (fetch.PageResult, error) {
	var result fetch.PageResult

	err := retryWithBackoff(ctx, p.config.Retry, func() error {
		pageCtx, cancel := context.WithTimeout(ctx, p.config.PageTimeout)
		defer cancel()

		var fetchErr error
		result, fetchErr = p.fetcher.FetchPage(pageCtx, collection, page, pageSize)
		return fetchErr
	})
	return result, err
}
