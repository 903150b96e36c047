// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package cache

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/olegiv/oblog/internal/model"
	"github.com/olegiv/oblog/internal/posts"
)

// PostCache limits and defaults.
const (
	MinPostTTL      = 60 * time.Second
	DefaultPostTTL  = 5 * time.Minute
	MinMaxPosts     = 100
	DefaultMaxPosts = 1000
)

// PostCacheOptions configures a PostCache.
type PostCacheOptions struct {
	Dir        string
	Extensions []string
	TTL        time.Duration // clamped to MinPostTTL
	MaxPosts   int           // clamped to MinMaxPosts
	Logger     *slog.Logger
	Now        func() time.Time
}

// PostCacheStats holds post cache statistics.
type PostCacheStats struct {
	Hits             int64      `json:"hits"`
	Misses           int64      `json:"misses"`
	Invalidations    int64      `json:"invalidations"`
	HitRate          float64    `json:"hit_rate"`
	EntryCount       int        `json:"entry_count"`
	IndexKeys        int        `json:"index_keys"`
	Tags             int        `json:"tags"`
	CapacityExceeded int64      `json:"capacity_exceeded"`
	Fingerprint      string     `json:"fingerprint,omitempty"`
	SnapshotID       string     `json:"snapshot_id,omitempty"`
	BuiltAt          *time.Time `json:"built_at,omitempty"`
	LastError        string     `json:"last_error,omitempty"`
	ResetAt          *time.Time `json:"reset_at,omitempty"`
}

// PostCache serves posts, tag counts and key lookups from an in-memory
// snapshot of the posts directory.
//
// With no snapshot the cache is cold and the first read builds one. A
// snapshot is served while it is younger than the TTL and the directory
// fingerprint still matches; otherwise, or after Invalidate, the next read
// rebuilds it synchronously. A failed build publishes an empty snapshot.
//
// A single mutex guards the snapshot pointer, the fingerprint and the
// counters. Rebuilds run under it, so at most one is in flight. Published
// snapshots are never modified and may be used after the lock is released.
type PostCache struct {
	repo     *posts.Repository
	ttl      time.Duration
	maxPosts int
	logger   *slog.Logger
	now      func() time.Time

	mu    sync.Mutex
	snap  *snapshot
	stale bool

	hits             int64
	misses           int64
	invalidations    int64
	capacityExceeded int64
	lastErr          error
	statsResetAt     *time.Time
}

// NewPostCache creates a cold post cache.
func NewPostCache(opts PostCacheOptions) *PostCache {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.TTL == 0 {
		opts.TTL = DefaultPostTTL
	}
	if opts.MaxPosts == 0 {
		opts.MaxPosts = DefaultMaxPosts
	}

	return &PostCache{
		repo:     posts.NewRepository(opts.Dir, opts.Extensions, opts.Logger),
		ttl:      max(opts.TTL, MinPostTTL),
		maxPosts: max(opts.MaxPosts, MinMaxPosts),
		logger:   opts.Logger,
		now:      opts.Now,
	}
}

// TTL returns the effective snapshot TTL.
func (c *PostCache) TTL() time.Duration {
	return c.ttl
}

// MaxPosts returns the effective post capacity.
func (c *PostCache) MaxPosts() int {
	return c.maxPosts
}

// GetPosts returns the posts sorted by date descending. The returned slice
// is a copy; the posts themselves are shared and must not be modified.
func (c *PostCache) GetPosts(forceRefresh bool) []*model.Post {
	c.mu.Lock()
	defer c.mu.Unlock()

	return slices.Clone(c.acquireLocked(forceRefresh).posts)
}

// GetPostBySlug resolves key as a slug, id, filename or filename stem.
func (c *PostCache) GetPostBySlug(key string) (*model.Post, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.acquireLocked(false).lookup(key, c.repo.Extensions())
}

// GetTags returns a copy of the tag counts.
func (c *PostCache) GetTags(forceRefresh bool) map[string]int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return maps.Clone(c.acquireLocked(forceRefresh).tags)
}

// PostsByTag returns the cached posts carrying tag.
func (c *PostCache) PostsByTag(tag string) []*model.Post {
	c.mu.Lock()
	defer c.mu.Unlock()

	return posts.FilterByTag(c.acquireLocked(false).posts, tag)
}

// Series returns the cached posts of the named series ordered by part.
func (c *PostCache) Series(name string) []*model.Post {
	c.mu.Lock()
	defer c.mu.Unlock()

	return posts.FilterSeries(c.acquireLocked(false).posts, name)
}

// Adjacent returns the cached posts immediately newer (prev) and older
// (next) than post.
func (c *PostCache) Adjacent(post *model.Post) (prev, next *model.Post) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return posts.FindAdjacent(c.acquireLocked(false).posts, post)
}

// Invalidate forces the next read to rebuild regardless of TTL.
func (c *PostCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stale = true
	c.invalidations++
	c.logger.Debug("post cache invalidated")
}

// Clear drops the snapshot. The next read builds a new one.
func (c *PostCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.snap = nil
	c.stale = false
}

// Stats returns current cache statistics.
func (c *PostCache) Stats() PostCacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats := PostCacheStats{
		Hits:             c.hits,
		Misses:           c.misses,
		Invalidations:    c.invalidations,
		HitRate:          hitRate(c.hits, c.misses),
		CapacityExceeded: c.capacityExceeded,
		ResetAt:          c.statsResetAt,
	}
	if c.lastErr != nil {
		stats.LastError = c.lastErr.Error()
	}
	if s := c.snap; s != nil {
		builtAt := s.createdAt
		stats.EntryCount = len(s.posts)
		stats.IndexKeys = len(s.index)
		stats.Tags = len(s.tags)
		stats.Fingerprint = s.fingerprint
		stats.SnapshotID = s.id
		stats.BuiltAt = &builtAt
	}
	return stats
}

// ResetStats resets the counters. The snapshot is kept.
func (c *PostCache) ResetStats() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	c.hits = 0
	c.misses = 0
	c.invalidations = 0
	c.capacityExceeded = 0
	c.statsResetAt = &now
}

// acquireLocked returns a current snapshot, rebuilding it when cold or
// stale. c.mu must be held.
func (c *PostCache) acquireLocked(forceRefresh bool) *snapshot {
	if forceRefresh {
		c.stale = true
	}

	if c.snap == nil || c.stale {
		return c.rebuildLocked()
	}
	if c.now().Sub(c.snap.createdAt) >= c.ttl {
		c.logger.Debug("post cache expired", "snapshot", c.snap.id)
		return c.rebuildLocked()
	}

	fp, err := c.fingerprintLocked()
	if err != nil || fp != c.snap.fingerprint {
		c.logger.Debug("post directory changed", "snapshot", c.snap.id, "error", err)
		return c.rebuildLocked()
	}

	c.hits++
	return c.snap
}

func (c *PostCache) fingerprintLocked() (string, error) {
	entries, err := c.repo.Entries()
	if err != nil {
		return "", err
	}
	return Fingerprint(entries), nil
}

// rebuildLocked scans the directory and publishes a new snapshot.
// c.mu must be held.
func (c *PostCache) rebuildLocked() *snapshot {
	start := c.now()
	c.misses++
	c.stale = false

	// Fingerprint before listing: a change landing in between only costs
	// one extra rebuild. An empty fingerprint never matches.
	fp, fpErr := c.fingerprintLocked()
	if fpErr != nil {
		fp = ""
	}

	list, err := c.repo.List("")
	if err != nil {
		err = fmt.Errorf("rebuilding post cache: %w", err)
		// Repeats of the same failure go to debug
		level := slog.LevelError
		if c.lastErr != nil && c.lastErr.Error() == err.Error() {
			level = slog.LevelDebug
		}
		c.lastErr = err
		c.snap = emptySnapshot(err, start)
		c.logger.Log(context.Background(), level, "post cache rebuild failed", "dir", c.repo.Dir(), "error", err)
		return c.snap
	}

	if len(list) > c.maxPosts {
		c.capacityExceeded++
		c.logger.Warn("post cache capacity exceeded, dropping oldest posts",
			"posts", len(list), "max_posts", c.maxPosts, "dropped", len(list)-c.maxPosts)
		list = list[:c.maxPosts:c.maxPosts]
	}

	tags := posts.CountTags(list)
	if maxTags := c.maxPosts / 2; len(tags) > maxTags {
		c.capacityExceeded++
		c.logger.Warn("post cache tag capacity exceeded, keeping most used tags",
			"tags", len(tags), "max_tags", maxTags)
		tags = limitTags(tags, maxTags)
	}

	c.lastErr = nil
	c.snap = newSnapshot(list, tags, fp, start)
	c.logger.Debug("post cache rebuilt",
		"snapshot", c.snap.id,
		"posts", len(list),
		"tags", len(tags),
		"keys", len(c.snap.index),
		"duration", c.now().Sub(start))

	return c.snap
}
