// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package testutil provides shared test helpers for the oBlog project.
package testutil

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// TestLogger creates a silent test logger that only outputs warnings and errors.
func TestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))
}

// TestLoggerSilent creates a completely silent test logger (error level only).
func TestLoggerSilent() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))
}

// WritePost writes a post file into dir and returns its full path.
func WritePost(t *testing.T, dir, name, content string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing post %s: %v", name, err)
	}
	return path
}

// WritePostAt writes a post file and sets its modification time.
func WritePostAt(t *testing.T, dir, name, content string, mtime time.Time) string {
	t.Helper()

	path := WritePost(t, dir, name, content)
	if err := os.Chtimes(path, mtime, mtime); err != nil {
		t.Fatalf("setting mtime on %s: %v", name, err)
	}
	return path
}

// Touch moves the modification time of an existing file forward by d.
func Touch(t *testing.T, path string, d time.Duration) {
	t.Helper()

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat %s: %v", path, err)
	}
	mtime := info.ModTime().Add(d)
	if err := os.Chtimes(path, mtime, mtime); err != nil {
		t.Fatalf("chtimes %s: %v", path, err)
	}
}

// PostHeader builds a "[key: value]" header line from alternating key/value pairs.
func PostHeader(pairs ...string) string {
	var s string
	for i := 0; i+1 < len(pairs); i += 2 {
		s += "[" + pairs[i] + ": " + pairs[i+1] + "]"
	}
	return s
}
