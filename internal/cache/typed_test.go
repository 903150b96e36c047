// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package cache

import (
	"context"
	"errors"
	"testing"
	"time"
)

type testRendering struct {
	HTML       string    `json:"html"`
	RenderedAt time.Time `json:"rendered_at"`
}

func newTestTypedCache(t *testing.T) (*TypedCache[testRendering], *MemoryCache) {
	t.Helper()
	mem := newTestMemoryCache(t, 0, nil)
	return NewTypedCache[testRendering](mem, time.Hour), mem
}

func TestTypedCache_BasicOperations(t *testing.T) {
	cache, _ := newTestTypedCache(t)
	ctx := context.Background()

	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	value := &testRendering{HTML: "<p>hi</p>", RenderedAt: at}

	if err := cache.Set(ctx, "render:a:1", value); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	got, found := cache.Get(ctx, "render:a:1")
	if !found {
		t.Fatal("expected to find render:a:1")
	}
	if got.HTML != value.HTML || !got.RenderedAt.Equal(at) {
		t.Errorf("got %+v, want %+v", got, value)
	}

	if err := cache.Delete(ctx, "render:a:1"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, found := cache.Get(ctx, "render:a:1"); found {
		t.Error("expected key to be deleted")
	}
}

func TestTypedCache_CorruptEntryDropped(t *testing.T) {
	cache, mem := newTestTypedCache(t)
	ctx := context.Background()

	_ = mem.Set(ctx, "render:a:1", []byte("{not json"), 0)

	if _, found := cache.Get(ctx, "render:a:1"); found {
		t.Error("corrupt entry should not decode")
	}
	if _, err := mem.Get(ctx, "render:a:1"); !errors.Is(err, ErrCacheMiss) {
		t.Error("corrupt entry should be removed")
	}
}

func TestTypedCache_GetOrSet(t *testing.T) {
	cache, _ := newTestTypedCache(t)
	ctx := context.Background()

	calls := 0
	loader := func() (*testRendering, error) {
		calls++
		return &testRendering{HTML: "<p>x</p>"}, nil
	}

	for range 3 {
		got, err := cache.GetOrSet(ctx, "render:x:1", loader)
		if err != nil {
			t.Fatalf("GetOrSet failed: %v", err)
		}
		if got.HTML != "<p>x</p>" {
			t.Errorf("HTML = %q", got.HTML)
		}
	}
	if calls != 1 {
		t.Errorf("expected loader to be called once, got %d", calls)
	}
}

func TestTypedCache_GetOrSetError(t *testing.T) {
	cache, mem := newTestTypedCache(t)
	ctx := context.Background()

	expectedErr := errors.New("render failed")
	_, err := cache.GetOrSet(ctx, "render:x:1", func() (*testRendering, error) {
		return nil, expectedErr
	})
	if !errors.Is(err, expectedErr) {
		t.Errorf("expected %v, got %v", expectedErr, err)
	}

	if _, err := mem.Get(ctx, "render:x:1"); !errors.Is(err, ErrCacheMiss) {
		t.Error("expected key to not be cached after error")
	}
}

func TestTypedCache_ClosedBackendStillComputes(t *testing.T) {
	cache, mem := newTestTypedCache(t)
	ctx := context.Background()
	_ = mem.Close()

	got, err := cache.GetOrSet(ctx, "render:x:1", func() (*testRendering, error) {
		return &testRendering{HTML: "ok"}, nil
	})
	if err != nil || got.HTML != "ok" {
		t.Errorf("GetOrSet = %+v, %v; want computed value", got, err)
	}
}
