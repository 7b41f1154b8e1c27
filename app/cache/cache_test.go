package cache

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	store := NewRedisStoreFromClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { store.Close() })

	return store, mr
}

func TestRedisStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store, mr := newTestRedisStore(t)

	if err := store.Set(ctx, "plain", "value", time.Minute); err != nil {
		t.Fatal(err)
	}
	if err := store.Set(ctx, "json", map[string]string{"latest": "1.3.0"}, time.Minute); err != nil {
		t.Fatal(err)
	}

	got, err := store.Get(ctx, "plain")
	if err != nil {
		t.Fatal(err)
	}
	if got != "value" {
		t.Errorf("Expected 'value', got '%s'", got)
	}

	got, err = store.Get(ctx, "json")
	if err != nil {
		t.Fatal(err)
	}
	if got != `{"latest":"1.3.0"}` {
		t.Errorf("Expected JSON encoded value, got '%s'", got)
	}

	mr.FastForward(2 * time.Minute)

	got, err = store.Get(ctx, "plain")
	if err != nil {
		t.Fatal(err)
	}
	if got != "" {
		t.Errorf("Expected expired key to read empty, got '%s'", got)
	}
}

func TestRedisStoreDelete(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestRedisStore(t)

	key := PresentationKey(42)
	if err := store.Set(ctx, key, ".a{color:red}", 0); err != nil {
		t.Fatal(err)
	}
	if err := store.Delete(ctx, key); err != nil {
		t.Fatal(err)
	}

	got, err := store.Get(ctx, key)
	if err != nil {
		t.Fatal(err)
	}
	if got != "" {
		t.Errorf("Expected deleted key to read empty, got '%s'", got)
	}

	// Deleting a missing key is not an error
	if err := store.Delete(ctx, "missing"); err != nil {
		t.Errorf("Expected no error deleting missing key, got %v", err)
	}
}

func TestRedisStoreUnavailable(t *testing.T) {
	ctx := context.Background()
	store, mr := newTestRedisStore(t)
	mr.Close()

	if _, err := store.Get(ctx, "key"); err == nil {
		t.Error("Expected error when Redis is unavailable")
	}
}

func TestNewRedisStoreConnectionError(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if _, err := NewRedisStore(ctx, "127.0.0.1:1"); err == nil {
		t.Error("Expected connection error")
	}
}

func TestMemoryStoreExpiry(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	if err := store.Set(ctx, "short", "v", time.Hour); err != nil {
		t.Fatal(err)
	}
	if err := store.Set(ctx, "forever", []byte("v"), 0); err != nil {
		t.Fatal(err)
	}

	if got, _ := store.Get(ctx, "short"); got != "v" {
		t.Errorf("Expected 'v' before expiry, got '%s'", got)
	}

	now = now.Add(time.Hour)

	if got, _ := store.Get(ctx, "short"); got != "" {
		t.Errorf("Expected expired entry to read empty, got '%s'", got)
	}
	if got, _ := store.Get(ctx, "forever"); got != "v" {
		t.Errorf("Expected entry without TTL to survive, got '%s'", got)
	}

	if err := store.Delete(ctx, "forever"); err != nil {
		t.Fatal(err)
	}
	if got, _ := store.Get(ctx, "forever"); got != "" {
		t.Errorf("Expected deleted entry to read empty, got '%s'", got)
	}
}

func TestMemoryStoreRejectsUnencodable(t *testing.T) {
	store := NewMemoryStore()
	if err := store.Set(context.Background(), "bad", make(chan int), 0); err == nil {
		t.Error("Expected marshal error for channel value")
	}
}

func TestKeys(t *testing.T) {
	if got := PresentationKey(12); got != "elementor:css:12" {
		t.Errorf("Expected 'elementor:css:12', got '%s'", got)
	}

	key1 := ReleaseKey("https://github.com/a/b/releases.atom")
	key2 := ReleaseKey("https://github.com/a/b/releases.atom")
	key3 := ReleaseKey("https://github.com/c/d/releases.atom")

	if key1 != key2 {
		t.Errorf("Expected same key for same URL, got %s != %s", key1, key2)
	}
	if key1 == key3 {
		t.Errorf("Expected different keys for different URLs, got %s", key1)
	}
	if !strings.HasPrefix(key1, "release:") {
		t.Errorf("Expected key to start with 'release:', got %s", key1)
	}
}
