package cache

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"github.com/fieldops/workorder-progress/pkg/model"
)

// DefaultTTL is the fallback TTL for cached collection snapshots.
const DefaultTTL = 5 * time.Minute

// FetchFunc produces a fresh snapshot of a collection.
type FetchFunc func(ctx context.Context) ([]model.RawRecord, error)

// memEntry is one cached collection snapshot.
type memEntry struct {
	records   []model.RawRecord
	fetchedAt time.Time
	expires   time.Time
}

// Inspection exposes per-collection cache state for diagnostics and tests.
type Inspection struct {
	LastFetchTime time.Time
	IsStale       bool
	InFlight      bool
}

// FetchCache is a TTL cache of collection snapshots keyed by collection
// name. Concurrent callers for the same uncached collection are coalesced
// into a single underlying fetch via singleflight; waiters block until the
// in-flight fetch completes instead of polling.
//
// A failed fetch never poisons the cache: the previous valid entry (if any)
// stays untouched and the error propagates to every coalesced waiter.
type FetchCache struct {
	mu       sync.RWMutex
	entries  map[string]*memEntry
	inFlight map[string]bool
	group    singleflight.Group

	ttl    time.Duration
	now    func() time.Time
	store  *SnapshotStore
	logger zerolog.Logger
}

// Option configures a FetchCache.
type Option func(*FetchCache)

// WithClock injects a clock, used by tests to control TTL expiry.
func WithClock(now func() time.Time) Option {
	return func(c *FetchCache) {
		c.now = now
	}
}

// WithSnapshotStore adds a write-through Redis snapshot store so several
// processes can reuse one fetched snapshot within the TTL window.
func WithSnapshotStore(store *SnapshotStore) Option {
	return func(c *FetchCache) {
		c.store = store
	}
}

// NewFetchCache creates a fetch cache with the given TTL.
// A non-positive TTL falls back to DefaultTTL.
func NewFetchCache(ttl time.Duration, opts ...Option) *FetchCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	c := &FetchCache{
		entries:  make(map[string]*memEntry),
		inFlight: make(map[string]bool),
		ttl:      ttl,
		now:      time.Now,
		logger:   log.With().Str("component", "fetch-cache").Logger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetOrFetch returns the cached snapshot of a collection, fetching it via
// fn when absent or expired. A fetch failure is propagated to every
// coalesced caller; the previous entry stays valid for callers using
// GetOrFetchStale.
func (c *FetchCache) GetOrFetch(ctx context.Context, collection string, fn FetchFunc) ([]model.RawRecord, error) {
	if records, ok := c.getFresh(collection); ok {
		CacheHits.WithLabelValues("memory").Inc()
		return records, nil
	}

	records, err := c.fetchShared(ctx, collection, fn)
	if err != nil {
		return nil, err
	}
	return records, nil
}

// GetOrFetchStale behaves like GetOrFetch but falls back to the last valid
// snapshot when the refresh fails, so dashboards can keep rendering
// slightly old numbers instead of nothing.
func (c *FetchCache) GetOrFetchStale(ctx context.Context, collection string, fn FetchFunc) ([]model.RawRecord, error) {
	records, err := c.GetOrFetch(ctx, collection, fn)
	if err == nil {
		return records, nil
	}

	c.mu.RLock()
	entry, ok := c.entries[collection]
	c.mu.RUnlock()
	if !ok {
		return nil, err
	}

	c.logger.Warn().
		Err(err).
		Str("collection", collection).
		Time("fetched_at", entry.fetchedAt).
		Msg("Refresh failed, serving stale snapshot")
	CacheStaleServes.Inc()

	return entry.records, nil
}

// Inspect reports the cache state of a collection.
func (c *FetchCache) Inspect(collection string) Inspection {
	c.mu.RLock()
	defer c.mu.RUnlock()

	insp := Inspection{
		IsStale:  true,
		InFlight: c.inFlight[collection],
	}
	if entry, ok := c.entries[collection]; ok {
		insp.LastFetchTime = entry.fetchedAt
		insp.IsStale = c.now().After(entry.expires)
	}
	return insp
}

// Invalidate drops the cached snapshot of a collection.
func (c *FetchCache) Invalidate(collection string) {
	c.mu.Lock()
	delete(c.entries, collection)
	c.mu.Unlock()
}

// fetchShared coalesces concurrent fetches for the same collection.
func (c *FetchCache) fetchShared(ctx context.Context, collection string, fn FetchFunc) ([]model.RawRecord, error) {
	v, err, shared := c.group.Do(collection, func() (any, error) {
		// A coalesced waiter may arrive just after the leader stored a
		// fresh snapshot.
		if records, ok := c.getFresh(collection); ok {
			CacheHits.WithLabelValues("memory").Inc()
			return records, nil
		}
		CacheMisses.Inc()

		c.setInFlight(collection, true)
		defer c.setInFlight(collection, false)

		// Another process may have stored a usable snapshot.
		if records, ok := c.loadFromStore(ctx, collection); ok {
			return records, nil
		}

		records, err := fn(ctx)
		if err != nil {
			CacheErrors.WithLabelValues("fetch").Inc()
			return nil, err
		}

		c.put(ctx, collection, records)
		return records, nil
	})
	if err != nil {
		return nil, err
	}
	if shared {
		CacheCoalescedCallers.Inc()
	}
	return v.([]model.RawRecord), nil
}

// getFresh returns the cached records while the entry is within TTL.
func (c *FetchCache) getFresh(collection string) ([]model.RawRecord, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[collection]
	if !ok || c.now().After(entry.expires) {
		return nil, false
	}
	return entry.records, true
}

// put stores a snapshot in memory and writes it through to the snapshot
// store when one is configured.
func (c *FetchCache) put(ctx context.Context, collection string, records []model.RawRecord) {
	now := c.now()
	entry := &memEntry{
		records:   records,
		fetchedAt: now,
		expires:   now.Add(c.ttl),
	}

	c.mu.Lock()
	c.entries[collection] = entry
	c.mu.Unlock()

	if c.store != nil {
		snap := &SnapshotEntry{
			Records:   records,
			FetchedAt: now,
			Expires:   entry.expires,
		}
		if err := c.store.Set(ctx, SnapshotKey{Collection: collection}, snap); err != nil {
			c.logger.Warn().Err(err).Str("collection", collection).Msg("Snapshot store write failed")
		}
	}

	c.logger.Debug().
		Str("collection", collection).
		Int("records", len(records)).
		Time("expires", entry.expires).
		Msg("Cached collection snapshot")
}

// loadFromStore pulls a shared snapshot written by another process.
func (c *FetchCache) loadFromStore(ctx context.Context, collection string) ([]model.RawRecord, bool) {
	if c.store == nil {
		return nil, false
	}

	snap, err := c.store.Get(ctx, SnapshotKey{Collection: collection})
	if err != nil {
		if err != ErrCacheMiss {
			c.logger.Warn().Err(err).Str("collection", collection).Msg("Snapshot store read failed")
		}
		return nil, false
	}

	c.mu.Lock()
	c.entries[collection] = &memEntry{
		records:   snap.Records,
		fetchedAt: snap.FetchedAt,
		expires:   snap.Expires,
	}
	c.mu.Unlock()

	return snap.Records, true
}

func (c *FetchCache) setInFlight(collection string, v bool) {
	c.mu.Lock()
	if v {
		c.inFlight[collection] = true
	} else {
		delete(c.inFlight, collection)
	}
	c.mu.Unlock()
}
