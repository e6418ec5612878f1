package cache

import (
	"time"

	"github.com/fieldops/workorder-progress/pkg/model"
)

// SnapshotEntry is a cached collection snapshot as stored in Redis.
type SnapshotEntry struct {
	// Records is the full raw snapshot of the collection.
	Records []model.RawRecord `json:"records"`

	// FetchedAt is when the snapshot was fetched from the backend.
	FetchedAt time.Time `json:"fetched_at"`

	// Expires is when the snapshot becomes stale.
	Expires time.Time `json:"expires"`
}

// IsExpired returns true if the snapshot has expired.
func (e *SnapshotEntry) IsExpired() bool {
	return time.Now().After(e.Expires)
}

// TTL returns the time until expiration.
// Returns 0 if already expired.
func (e *SnapshotEntry) TTL() time.Duration {
	ttl := time.Until(e.Expires)
	if ttl < 0 {
		return 0
	}
	return ttl
}
