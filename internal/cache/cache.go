// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package cache provides the caching layer for oBlog: the post index
// snapshot and a byte-value cache (memory or Redis) for rendered content.
package cache

import "time"

// Stats holds cache statistics.
type Stats struct {
	Hits    int64      `json:"hits"`
	Misses  int64      `json:"misses"`
	Sets    int64      `json:"sets"`
	Items   int        `json:"items"`
	HitRate float64    `json:"hit_rate"`
	Size    int64      `json:"size_bytes,omitempty"` // Approximate size in bytes
	ResetAt *time.Time `json:"reset_at,omitempty"`   // when stats were last reset (nil if never reset)
}

// hitRate returns hits as a percentage of all reads.
func hitRate(hits, misses int64) float64 {
	total := hits + misses
	if total == 0 {
		return 0
	}
	return float64(hits) / float64(total) * 100
}
