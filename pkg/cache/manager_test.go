package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

// setupTestRedis creates a test Redis client, skipping when unavailable.
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

func TestManager_SetAndGet(t *testing.T) {
	redisClient := setupTestRedis(t)
	manager := NewManager(redisClient)
	ctx := context.Background()

	key := Key{
		Service: "chunkedgraph",
		Path:    "/segmentation/api/v1/table/minnie3_v1/node/123/leaves",
	}
	entry := &Entry{
		Data:    []byte(`[1, 2, 3]`),
		ETag:    `"abc"`,
		Expires: time.Now().Add(1 * time.Hour),
	}

	if err := manager.Set(ctx, key, entry); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	got, err := manager.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if string(got.Data) != string(entry.Data) {
		t.Errorf("Data = %s, want %s", got.Data, entry.Data)
	}
	if got.ETag != entry.ETag {
		t.Errorf("ETag = %v, want %v", got.ETag, entry.ETag)
	}
}

func TestManager_GetMiss(t *testing.T) {
	redisClient := setupTestRedis(t)
	manager := NewManager(redisClient)

	_, err := manager.Get(context.Background(), Key{Service: "schema", Path: "/missing"})
	if !errors.Is(err, ErrCacheMiss) {
		t.Errorf("Get() error = %v, want ErrCacheMiss", err)
	}
}

func TestManager_ExpiredEntryNotCached(t *testing.T) {
	redisClient := setupTestRedis(t)
	manager := NewManager(redisClient)
	ctx := context.Background()

	key := Key{Service: "state", Path: "/nglstate/api/v1/1"}
	entry := &Entry{
		Data:    []byte("{}"),
		Expires: time.Now().Add(-1 * time.Minute),
	}

	if err := manager.Set(ctx, key, entry); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	if _, err := manager.Get(ctx, key); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("Get() after expired Set = %v, want ErrCacheMiss", err)
	}
}

func TestManager_Delete(t *testing.T) {
	redisClient := setupTestRedis(t)
	manager := NewManager(redisClient)
	ctx := context.Background()

	key := Key{Service: "l2cache", Path: "/l2cache/api/v1/table/t/attributes"}
	entry := &Entry{
		Data:    []byte("{}"),
		Expires: time.Now().Add(1 * time.Hour),
	}

	if err := manager.Set(ctx, key, entry); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if err := manager.Delete(ctx, key); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := manager.Get(ctx, key); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("Get() after Delete = %v, want ErrCacheMiss", err)
	}
}

func TestManager_UpdateTTL(t *testing.T) {
	redisClient := setupTestRedis(t)
	manager := NewManager(redisClient)
	ctx := context.Background()

	key := Key{Service: "materialize", Path: "/materialize/api/v3/versions"}
	entry := &Entry{
		Data:    []byte(`[943]`),
		Expires: time.Now().Add(10 * time.Minute),
	}

	if err := manager.Set(ctx, key, entry); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	newExpires := time.Now().Add(2 * time.Hour)
	if err := manager.UpdateTTL(ctx, key, newExpires); err != nil {
		t.Fatalf("UpdateTTL() error = %v", err)
	}

	got, err := manager.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.TTL() < 1*time.Hour {
		t.Errorf("TTL = %v, want > 1h after update", got.TTL())
	}
}
