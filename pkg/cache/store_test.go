package cache

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

// setupTestRedis creates a test Redis client for testing.
// For unit tests we use a local Redis and skip when unavailable; the
// end-to-end coverage with a containerized Redis lives in tests/integration.
func setupTestRedis(t *testing.T) *redis.Client {
	t.Helper()

	client := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
		DB:   15, // Use a separate DB for tests
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available for testing: %v", err)
	}

	if err := client.FlushDB(ctx).Err(); err != nil {
		t.Fatalf("Failed to flush test DB: %v", err)
	}

	t.Cleanup(func() {
		client.FlushDB(context.Background())
		client.Close()
	})

	return client
}

func TestNewSnapshotStore_Panic(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("NewSnapshotStore should panic with nil redis client")
		}
	}()
	NewSnapshotStore(nil)
}

func TestSnapshotStore_SetAndGet(t *testing.T) {
	client := setupTestRedis(t)
	store := NewSnapshotStore(client)
	ctx := context.Background()

	key := SnapshotKey{Collection: "workorders"}
	entry := &SnapshotEntry{
		Records:   testRecords("A1", "A2"),
		FetchedAt: time.Now(),
		Expires:   time.Now().Add(5 * time.Minute),
	}

	if err := store.Set(ctx, key, entry); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	retrieved, err := store.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}

	if len(retrieved.Records) != 2 {
		t.Errorf("Records = %d, want 2", len(retrieved.Records))
	}
	if id, _ := retrieved.Records[0]["id"].(string); id != "A1" {
		t.Errorf("first record id = %q, want %q", id, "A1")
	}
}

func TestSnapshotStore_Get_CacheMiss(t *testing.T) {
	client := setupTestRedis(t)
	store := NewSnapshotStore(client)

	_, err := store.Get(context.Background(), SnapshotKey{Collection: "nonexistent"})
	if err != ErrCacheMiss {
		t.Errorf("Expected ErrCacheMiss, got %v", err)
	}
}

func TestSnapshotStore_ExpiredEntry(t *testing.T) {
	client := setupTestRedis(t)
	store := NewSnapshotStore(client)
	ctx := context.Background()

	key := SnapshotKey{Collection: "workorders"}
	entry := &SnapshotEntry{
		Records:   testRecords("A1"),
		FetchedAt: time.Now().Add(-2 * time.Hour),
		Expires:   time.Now().Add(-1 * time.Hour), // Already expired
	}

	// Set should not cache already expired entries.
	if err := store.Set(ctx, key, entry); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	_, err := store.Get(ctx, key)
	if err != ErrCacheMiss {
		t.Errorf("Expected ErrCacheMiss for expired entry, got %v", err)
	}
}

func TestSnapshotStore_Delete(t *testing.T) {
	client := setupTestRedis(t)
	store := NewSnapshotStore(client)
	ctx := context.Background()

	key := SnapshotKey{Collection: "workorders"}
	entry := &SnapshotEntry{
		Records:   testRecords("A1"),
		FetchedAt: time.Now(),
		Expires:   time.Now().Add(5 * time.Minute),
	}

	if err := store.Set(ctx, key, entry); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := store.Delete(ctx, key); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	if _, err := store.Get(ctx, key); err != ErrCacheMiss {
		t.Errorf("Expected ErrCacheMiss after Delete, got %v", err)
	}
}
