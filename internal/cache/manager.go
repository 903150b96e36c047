// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package cache

import (
	"context"
	"log/slog"
	"time"
)

// CacheType identifies a specific cache.
type CacheType string

// Cache types.
const (
	CacheTypePosts    CacheType = "posts"
	CacheTypeRendered CacheType = "rendered"
)

// RenderedPrefix is the key prefix of rendered post bodies.
const RenderedPrefix = "render:"

// CacheStats holds statistics for a specific cache.
type CacheStats struct {
	Name    string          `json:"name"`
	Type    CacheType       `json:"type"`
	Stats   Stats           `json:"stats"`
	Posts   *PostCacheStats `json:"posts,omitempty"`
	Backend *Info           `json:"backend,omitempty"`
}

// Manager owns the post cache and the rendered content cache.
type Manager struct {
	Posts    *PostCache
	Rendered Cacher

	renderedInfo Info
	logger       *slog.Logger
}

// NewManager creates a new cache manager.
func NewManager(posts *PostCache, rendered Cacher, renderedInfo Info, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		Posts:        posts,
		Rendered:     rendered,
		renderedInfo: renderedInfo,
		logger:       logger,
	}
}

// InvalidateContent marks the post snapshot stale and drops rendered bodies.
// Call this when post files change.
func (m *Manager) InvalidateContent() {
	m.Posts.Invalidate()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := m.Rendered.DeleteByPrefix(ctx, RenderedPrefix); err != nil {
		m.logger.Warn("failed to clear rendered cache", "error", err)
	}
}

// ClearAll clears all caches and resets statistics.
func (m *Manager) ClearAll(ctx context.Context) error {
	m.Posts.Clear()
	m.Posts.ResetStats()

	if err := m.Rendered.Clear(ctx); err != nil {
		return err
	}
	if sp, ok := m.Rendered.(StatsProvider); ok {
		sp.ResetStats()
	}

	m.logger.Info("cache stats reset")
	return nil
}

// AllStats returns statistics for all caches.
func (m *Manager) AllStats() []CacheStats {
	postStats := m.Posts.Stats()
	info := m.renderedInfo

	return []CacheStats{
		{
			Name:  "Posts",
			Type:  CacheTypePosts,
			Stats: postStats.asStats(),
			Posts: &postStats,
		},
		{
			Name:    "Rendered Content",
			Type:    CacheTypeRendered,
			Stats:   m.renderedStats(),
			Backend: &info,
		},
	}
}

// TotalStats returns aggregated statistics across all caches.
func (m *Manager) TotalStats() Stats {
	posts := m.Posts.Stats().asStats()
	rendered := m.renderedStats()

	total := Stats{
		Hits:   posts.Hits + rendered.Hits,
		Misses: posts.Misses + rendered.Misses,
		Sets:   posts.Sets + rendered.Sets,
		Items:  posts.Items + rendered.Items,
		Size:   rendered.Size,
	}
	total.HitRate = hitRate(total.Hits, total.Misses)

	// Use the most recent reset time from any cache
	total.ResetAt = posts.ResetAt
	if rendered.ResetAt != nil && (total.ResetAt == nil || rendered.ResetAt.After(*total.ResetAt)) {
		total.ResetAt = rendered.ResetAt
	}

	return total
}

// HealthCheck pings the rendered cache backend when it supports pinging.
func (m *Manager) HealthCheck(ctx context.Context) error {
	if p, ok := m.Rendered.(interface{ Ping(context.Context) error }); ok {
		return p.Ping(ctx)
	}
	return nil
}

// Backend describes the rendered cache backend.
func (m *Manager) Backend() Info {
	return m.renderedInfo
}

// Close releases the rendered cache backend.
func (m *Manager) Close() error {
	return m.Rendered.Close()
}

func (m *Manager) renderedStats() Stats {
	if sp, ok := m.Rendered.(StatsProvider); ok {
		return sp.Stats()
	}
	return Stats{}
}

// asStats maps post cache statistics onto the common shape. Each rebuild
// counts as a set.
func (s PostCacheStats) asStats() Stats {
	return Stats{
		Hits:    s.Hits,
		Misses:  s.Misses,
		Sets:    s.Misses,
		Items:   s.EntryCount,
		HitRate: s.HitRate,
		ResetAt: s.ResetAt,
	}
}
