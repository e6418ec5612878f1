// Package engine wires the fetch, pagination, cache and aggregation layers
// into the one-call refresh the dashboard and export paths use.
package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/fieldops/workorder-progress/pkg/aggregate"
	"github.com/fieldops/workorder-progress/pkg/cache"
	"github.com/fieldops/workorder-progress/pkg/model"
	"github.com/fieldops/workorder-progress/pkg/pagination"
	"github.com/fieldops/workorder-progress/pkg/reconcile"
)

// CollectionFetcher fetches every page of a remote collection.
// *pagination.Paginator implements it.
type CollectionFetcher interface {
	FetchAll(ctx context.Context, collection string, pageSize int) (pagination.Result, error)
}

// Collections names the remote collections the engine reads.
type Collections struct {
	Orders      string
	Progress    string
	Providers   string
	Supervisors string
}

// DefaultCollections returns the collection names of the standard backend.
func DefaultCollections() Collections {
	return Collections{
		Orders:      "workorders",
		Progress:    "progress",
		Providers:   "providers",
		Supervisors: "supervisors",
	}
}

// Config holds engine configuration.
type Config struct {
	// Collections are the remote collection names.
	Collections Collections

	// PageSize is the page size requested from the backend.
	PageSize int

	// StaleFallback serves the last valid snapshot when a refresh fails.
	StaleFallback bool
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig() Config {
	return Config{
		Collections:   DefaultCollections(),
		PageSize:      100,
		StaleFallback: true,
	}
}

// Result is the outcome of one engine run.
type Result struct {
	Report aggregate.Report

	// FailedPages maps collection name to the pages that could not be
	// fetched this run. Empty for collections served from cache.
	FailedPages map[string][]int

	// Elapsed is the wall time of the run.
	Elapsed time.Duration
}

// Incomplete reports whether any collection was fetched partially.
func (r Result) Incomplete() bool {
	for _, pages := range r.FailedPages {
		if len(pages) > 0 {
			return true
		}
	}
	return false
}

// Engine runs the full snapshot-to-report pipeline.
type Engine struct {
	fetcher CollectionFetcher
	cache   *cache.FetchCache
	config  Config
	logger  zerolog.Logger
}

// New creates an engine over a collection fetcher and a snapshot cache.
func New(fetcher CollectionFetcher, snapshots *cache.FetchCache, cfg Config) (*Engine, error) {
	if fetcher == nil {
		return nil, fmt.Errorf("collection fetcher is required")
	}
	if snapshots == nil {
		return nil, fmt.Errorf("snapshot cache is required")
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = 100
	}
	if cfg.Collections.Orders == "" {
		cfg.Collections = DefaultCollections()
	}

	return &Engine{
		fetcher: fetcher,
		cache:   snapshots,
		config:  cfg,
		logger:  log.With().Str("component", "engine").Logger(),
	}, nil
}

// Run fetches (or reuses) the four collection snapshots and aggregates them
// into a report. Collections are fetched concurrently; a partially failed
// collection still contributes its fetched records, with the failed pages
// reported in Result.FailedPages.
func (e *Engine) Run(ctx context.Context, opts aggregate.Options) (Result, error) {
	start := time.Now()

	snaps, failed, err := e.loadSnapshots(ctx)
	if err != nil {
		return Result{}, err
	}

	orders := model.DecodeWorkOrders(snaps[e.config.Collections.Orders])
	entries := model.DecodeProgressEntries(snaps[e.config.Collections.Progress])
	opts.Providers = decodeParties(snaps[e.config.Collections.Providers])
	opts.Supervisors = decodeParties(snaps[e.config.Collections.Supervisors])

	report, err := aggregate.Aggregate(orders, entries, opts)
	if err != nil {
		return Result{}, fmt.Errorf("aggregate: %w", err)
	}

	result := Result{
		Report:      report,
		FailedPages: failed,
		Elapsed:     time.Since(start),
	}

	e.logger.Info().
		Int("orders", len(orders)).
		Int("entries", len(entries)).
		Bool("incomplete", result.Incomplete()).
		Dur("duration", result.Elapsed).
		Msg("Aggregation run complete")

	return result, nil
}

// loadSnapshots loads all collections through the cache, concurrently.
// The orders and progress collections are required; the provider and
// supervisor reference collections are optional and a failure there only
// degrades name resolution.
func (e *Engine) loadSnapshots(ctx context.Context) (map[string][]model.RawRecord, map[string][]int, error) {
	required := map[string]bool{
		e.config.Collections.Orders:   true,
		e.config.Collections.Progress: true,
	}
	names := []string{
		e.config.Collections.Orders,
		e.config.Collections.Progress,
	}
	if e.config.Collections.Providers != "" {
		names = append(names, e.config.Collections.Providers)
	}
	if e.config.Collections.Supervisors != "" {
		names = append(names, e.config.Collections.Supervisors)
	}

	snaps := make(map[string][]model.RawRecord, len(names))
	failed := make(map[string][]int, len(names))
	var firstErr error
	var mu sync.Mutex
	var wg sync.WaitGroup

	for _, name := range names {
		wg.Add(1)
		go func(name string) {
			defer wg.Done()

			records, pages, err := e.loadCollection(ctx, name)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if required[name] && firstErr == nil {
					firstErr = fmt.Errorf("load %q: %w", name, err)
				}
				if !required[name] {
					e.logger.Warn().
						Err(err).
						Str("collection", name).
						Msg("Reference collection unavailable, names unresolved")
				}
				return
			}
			snaps[name] = records
			if len(pages) > 0 {
				failed[name] = pages
			}
		}(name)
	}
	wg.Wait()

	if firstErr != nil {
		return nil, nil, firstErr
	}
	return snaps, failed, nil
}

// loadCollection loads one collection through the cache. The failed-pages
// list is populated only when this call performed the actual fetch; cache
// hits and coalesced callers see an empty list.
func (e *Engine) loadCollection(ctx context.Context, name string) ([]model.RawRecord, []int, error) {
	var failedPages []int
	fn := func(ctx context.Context) ([]model.RawRecord, error) {
		result, err := e.fetcher.FetchAll(ctx, name, e.config.PageSize)
		if err != nil {
			return nil, err
		}
		failedPages = result.FailedPages
		return result.Items, nil
	}

	var records []model.RawRecord
	var err error
	if e.config.StaleFallback {
		records, err = e.cache.GetOrFetchStale(ctx, name, fn)
	} else {
		records, err = e.cache.GetOrFetch(ctx, name, fn)
	}
	return records, failedPages, err
}

// decodeParties converts a reference-collection snapshot into parties.
func decodeParties(records []model.RawRecord) []reconcile.Party {
	if len(records) == 0 {
		return nil
	}
	parties := make([]reconcile.Party, 0, len(records))
	for _, raw := range records {
		p := reconcile.Party{
			ID:   stringField(raw, "id", "_id"),
			Name: stringField(raw, "name", "displayName", "fullName"),
		}
		if p.ID == "" && p.Name == "" {
			continue
		}
		parties = append(parties, p)
	}
	return parties
}

func stringField(raw model.RawRecord, keys ...string) string {
	for _, key := range keys {
		switch v := raw[key].(type) {
		case string:
			if v != "" {
				return v
			}
		case float64:
			if v == float64(int64(v)) {
				return fmt.Sprintf("%d", int64(v))
			}
		}
	}
	return ""
}
