package cache

import "strings"

// SnapshotKey identifies a cached collection snapshot.
type SnapshotKey struct {
	// Collection is the remote collection name (e.g. "workorders").
	Collection string

	// Tenant scopes the snapshot when one backend serves several
	// organizations. Empty for single-tenant deployments.
	Tenant string
}

// String generates a deterministic Redis key.
// Format: woprog:snapshot[:tenant]:collection
//
// Example:
//
//	woprog:snapshot:workorders
//	woprog:snapshot:northern-region:progress
func (k SnapshotKey) String() string {
	parts := []string{"woprog", "snapshot"}
	if k.Tenant != "" {
		parts = append(parts, k.Tenant)
	}
	parts = append(parts, strings.TrimSpace(k.Collection))
	return strings.Join(parts, ":")
}
