package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrCacheMiss indicates the requested key was not found in cache
	ErrCacheMiss = errors.New("cache miss")

	// ErrInvalidEntry indicates the cache entry is invalid or corrupted
	ErrInvalidEntry = errors.New("invalid cache entry")
)

// SnapshotStore persists collection snapshots in Redis so several
// aggregator processes can share one fetch within the TTL window.
type SnapshotStore struct {
	redis *redis.Client
}

// NewSnapshotStore creates a snapshot store with Redis backend.
func NewSnapshotStore(redisClient *redis.Client) *SnapshotStore {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	return &SnapshotStore{
		redis: redisClient,
	}
}

// Get retrieves a snapshot by key.
// Returns ErrCacheMiss if the key doesn't exist or the snapshot is expired.
func (s *SnapshotStore) Get(ctx context.Context, key SnapshotKey) (*SnapshotEntry, error) {
	data, err := s.redis.Get(ctx, key.String()).Bytes()
	if err != nil {
		if err == redis.Nil {
			CacheMisses.Inc()
			return nil, ErrCacheMiss
		}
		CacheErrors.WithLabelValues("get").Inc()
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var entry SnapshotEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		CacheErrors.WithLabelValues("get").Inc()
		return nil, fmt.Errorf("%w: %v", ErrInvalidEntry, err)
	}

	if entry.IsExpired() {
		_ = s.Delete(ctx, key)
		CacheMisses.Inc()
		return nil, ErrCacheMiss
	}

	CacheHits.WithLabelValues("redis").Inc()
	CacheSize.WithLabelValues("redis").Add(float64(len(data)))

	return &entry, nil
}

// Set stores a snapshot with TTL derived from the entry's Expires field.
// The snapshot is automatically removed from Redis when it expires.
func (s *SnapshotStore) Set(ctx context.Context, key SnapshotKey, entry *SnapshotEntry) error {
	if entry == nil {
		return fmt.Errorf("snapshot entry cannot be nil")
	}

	ttl := entry.TTL()
	if ttl <= 0 {
		// Already expired, don't cache
		return nil
	}

	data, err := json.Marshal(entry)
	if err != nil {
		CacheErrors.WithLabelValues("set").Inc()
		return fmt.Errorf("marshal snapshot entry: %w", err)
	}

	if err := s.redis.Set(ctx, key.String(), data, ttl).Err(); err != nil {
		CacheErrors.WithLabelValues("set").Inc()
		return fmt.Errorf("redis set: %w", err)
	}

	CacheSize.WithLabelValues("redis").Add(float64(len(data)))

	return nil
}

// Delete removes a snapshot.
func (s *SnapshotStore) Delete(ctx context.Context, key SnapshotKey) error {
	if err := s.redis.Del(ctx, key.String()).Err(); err != nil {
		CacheErrors.WithLabelValues("delete").Inc()
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}
