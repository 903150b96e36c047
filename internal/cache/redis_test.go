// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package cache

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"
)

// skipIfNoRedis skips the test if Redis is not configured.
func skipIfNoRedis(t *testing.T) string {
	t.Helper()
	url := os.Getenv("OBLOG_TEST_REDIS_URL")
	if url == "" {
		t.Skip("Skipping Redis tests: OBLOG_TEST_REDIS_URL not set")
	}
	return url
}

func newTestRedisCache(t *testing.T, prefix string) *RedisCache {
	t.Helper()
	url := skipIfNoRedis(t)

	cache, err := NewRedisCache(RedisCacheOptions{URL: url, Prefix: prefix, DefaultTTL: time.Minute})
	if err != nil {
		t.Fatalf("failed to create Redis cache: %v", err)
	}
	t.Cleanup(func() {
		_ = cache.Clear(context.Background())
		_ = cache.Close()
	})
	_ = cache.Clear(context.Background())
	return cache
}

func TestRedisCache_Basic(t *testing.T) {
	cache := newTestRedisCache(t, "oblog-test:")
	ctx := context.Background()

	if err := cache.Set(ctx, "key", []byte("value"), time.Minute); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	got, err := cache.Get(ctx, "key")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(got) != "value" {
		t.Errorf("Get returned %q, want %q", got, "value")
	}

	if err := cache.Delete(ctx, "key"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := cache.Get(ctx, "key"); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("Get after Delete returned error %v, want ErrCacheMiss", err)
	}
}

func TestRedisCache_TTL(t *testing.T) {
	cache := newTestRedisCache(t, "oblog-ttl-test:")
	ctx := context.Background()

	if err := cache.Set(ctx, "key", []byte("value"), 100*time.Millisecond); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	time.Sleep(200 * time.Millisecond)

	if _, err := cache.Get(ctx, "key"); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("Get after TTL expiration returned %v, want ErrCacheMiss", err)
	}
}

func TestRedisCache_DeleteByPrefix(t *testing.T) {
	cache := newTestRedisCache(t, "oblog-prefix-test:")
	ctx := context.Background()

	_ = cache.Set(ctx, RenderKey("a", "one"), []byte("a"), time.Minute)
	_ = cache.Set(ctx, RenderKey("b", "two"), []byte("b"), time.Minute)
	_ = cache.Set(ctx, "other", []byte("o"), time.Minute)

	if err := cache.DeleteByPrefix(ctx, RenderedPrefix); err != nil {
		t.Fatalf("DeleteByPrefix failed: %v", err)
	}

	if _, err := cache.Get(ctx, RenderKey("a", "one")); !errors.Is(err, ErrCacheMiss) {
		t.Error("rendered key a should be deleted")
	}
	if _, err := cache.Get(ctx, "other"); err != nil {
		t.Errorf("other should still exist, got error: %v", err)
	}
}

func TestRedisCache_ClearSpansScanBatches(t *testing.T) {
	cache := newTestRedisCache(t, "oblog-clear-test:")
	other := newTestRedisCache(t, "oblog-other-test:")
	ctx := context.Background()

	for i := range redisScanBatch + 5 {
		_ = cache.Set(ctx, fmt.Sprintf("k%d", i), []byte("v"), time.Minute)
	}
	_ = other.Set(ctx, "kept", []byte("v"), time.Minute)

	if got := cache.Stats().Items; got != redisScanBatch+5 {
		t.Errorf("Items = %d, want %d", got, redisScanBatch+5)
	}
	if err := cache.Clear(ctx); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if got := cache.Stats().Items; got != 0 {
		t.Errorf("Items after Clear = %d, want 0", got)
	}
	if _, err := other.Get(ctx, "kept"); err != nil {
		t.Errorf("key under another prefix was removed: %v", err)
	}
}

func TestRedisCache_Stats(t *testing.T) {
	cache := newTestRedisCache(t, "oblog-stats-test:")
	ctx := context.Background()
	cache.ResetStats()

	_ = cache.Set(ctx, "key1", []byte("value1"), time.Minute)
	_ = cache.Set(ctx, "key2", []byte("value2"), time.Minute)
	_, _ = cache.Get(ctx, "key1")
	_, _ = cache.Get(ctx, "key3")

	stats := cache.Stats()
	if stats.Sets != 2 || stats.Hits != 1 || stats.Misses != 1 {
		t.Errorf("Stats = %+v, want 2 sets, 1 hit, 1 miss", stats)
	}
	if stats.Items != 2 {
		t.Errorf("Items = %d, want 2", stats.Items)
	}
	if stats.ResetAt == nil {
		t.Error("ResetAt not set after ResetStats")
	}
}

func TestRedisCache_Close(t *testing.T) {
	cache := newTestRedisCache(t, "oblog-close-test:")
	ctx := context.Background()

	if err := cache.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}
	if _, err := cache.Get(ctx, "key"); !errors.Is(err, ErrCacheClosed) {
		t.Errorf("Get after Close returned %v, want ErrCacheClosed", err)
	}
	if err := cache.Ping(ctx); !errors.Is(err, ErrCacheClosed) {
		t.Errorf("Ping after Close returned %v, want ErrCacheClosed", err)
	}
}

func TestNewRedisCache_InvalidOptions(t *testing.T) {
	if _, err := NewRedisCache(RedisCacheOptions{}); err == nil {
		t.Error("expected error with empty URL, got nil")
	}
	if _, err := NewRedisCache(RedisCacheOptions{URL: "invalid-url"}); err == nil {
		t.Error("expected error with invalid URL, got nil")
	}
}
