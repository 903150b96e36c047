// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package watcher

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olegiv/oblog/internal/testutil"
)

func startWatcher(t *testing.T, dir string, debounce time.Duration) (*Watcher, *atomic.Int64) {
	t.Helper()
	var calls atomic.Int64
	w := New(dir, []string{".txt"}, debounce, func() { calls.Add(1) }, testutil.TestLoggerSilent())
	require.NoError(t, w.Start(context.Background()))
	t.Cleanup(func() { _ = w.Stop() })
	return w, &calls
}

func TestWatcher_DebouncesBurst(t *testing.T) {
	dir := t.TempDir()
	_, calls := startWatcher(t, dir, 100*time.Millisecond)

	for i := range 5 {
		testutil.WritePost(t, dir, fmt.Sprintf("post-%d.txt", i), "body")
	}

	require.Eventually(t, func() bool { return calls.Load() >= 1 }, 2*time.Second, 10*time.Millisecond)
	time.Sleep(300 * time.Millisecond)
	assert.Equal(t, int64(1), calls.Load())
}

func TestWatcher_IgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	_, calls := startWatcher(t, dir, 50*time.Millisecond)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.md"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".hidden.txt"), []byte("x"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0o755))

	assert.Never(t, func() bool { return calls.Load() > 0 }, 300*time.Millisecond, 20*time.Millisecond)
}

func TestWatcher_ReportsRemoval(t *testing.T) {
	dir := t.TempDir()
	path := testutil.WritePost(t, dir, "gone.txt", "body")
	_, calls := startWatcher(t, dir, 50*time.Millisecond)

	require.NoError(t, os.Remove(path))

	require.Eventually(t, func() bool { return calls.Load() == 1 }, 2*time.Second, 10*time.Millisecond)
}

func TestWatcher_Stop(t *testing.T) {
	dir := t.TempDir()
	w, calls := startWatcher(t, dir, 50*time.Millisecond)

	require.NoError(t, w.Stop())
	require.NoError(t, w.Stop())

	testutil.WritePost(t, dir, "late.txt", "body")
	assert.Never(t, func() bool { return calls.Load() > 0 }, 200*time.Millisecond, 20*time.Millisecond)
}

func TestWatcher_LogsStartOnce(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	w := New(t.TempDir(), []string{".txt"}, 0, func() {}, logger)
	require.NoError(t, w.Start(context.Background()))
	t.Cleanup(func() { _ = w.Stop() })

	assert.Equal(t, 1, strings.Count(buf.String(), `level=INFO msg="watching posts directory"`))
}

func TestWatcher_StartTwice(t *testing.T) {
	w, _ := startWatcher(t, t.TempDir(), 0)
	assert.ErrorIs(t, w.Start(context.Background()), ErrAlreadyStarted)
	assert.Equal(t, DefaultDebounce, w.debounce)
}

func TestWatcher_MissingDir(t *testing.T) {
	w := New(filepath.Join(t.TempDir(), "missing"), []string{".txt"}, 0, func() {}, testutil.TestLoggerSilent())
	assert.Error(t, w.Start(context.Background()))
	assert.NoError(t, w.Stop())
}

func TestWatcher_ContextCancel(t *testing.T) {
	dir := t.TempDir()
	var calls atomic.Int64
	w := New(dir, []string{".txt"}, 50*time.Millisecond, func() { calls.Add(1) }, testutil.TestLoggerSilent())

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, w.Start(ctx))
	cancel()

	// Stop still releases the fsnotify watcher after the loop exited.
	require.Eventually(t, func() bool {
		select {
		case <-w.done:
			return true
		default:
			return false
		}
	}, time.Second, 10*time.Millisecond)
	assert.NoError(t, w.Stop())
}

func TestRelevant(t *testing.T) {
	w := New(".", []string{".txt", ".md"}, 0, func() {}, testutil.TestLoggerSilent())

	tests := []struct {
		event fsnotify.Event
		want  bool
	}{
		{fsnotify.Event{Name: "/p/a.txt", Op: fsnotify.Write}, true},
		{fsnotify.Event{Name: "/p/a.MD", Op: fsnotify.Create}, true},
		{fsnotify.Event{Name: "/p/a.txt", Op: fsnotify.Remove}, true},
		{fsnotify.Event{Name: "/p/a.txt", Op: fsnotify.Rename}, true},
		{fsnotify.Event{Name: "/p/a.txt", Op: fsnotify.Chmod}, true},
		{fsnotify.Event{Name: "/p/a.html", Op: fsnotify.Write}, false},
		{fsnotify.Event{Name: "/p/.a.txt", Op: fsnotify.Write}, false},
		{fsnotify.Event{Name: "/p/a", Op: fsnotify.Write}, false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, w.relevant(tt.event), tt.event.String())
	}
}
