// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package model defines domain models and types used throughout the application.
package model

import (
	"slices"
	"time"
)

// Post field limits
const (
	MaxTagLength       = 50
	MaxChangelogLength = 200
	MaxSeriesPart      = 999
)

// Post represents a single text post parsed from the posts directory.
// Posts are constructed once per directory scan and never mutated afterwards.
type Post struct {
	ID          string            `json:"id"`
	Slug        string            `json:"slug"`
	Filename    string            `json:"filename"`
	Title       string            `json:"title"`
	Body        string            `json:"body"`
	Description string            `json:"description"`
	Author      string            `json:"author,omitempty"`
	Tags        []string          `json:"tags"`
	Series      string            `json:"series,omitempty"`
	SeriesPart  int               `json:"series_part,omitempty"` // 0 when absent
	Date        time.Time         `json:"date"`
	Changelog   []string          `json:"changelog,omitempty"`
	UpdatedAt   time.Time         `json:"updated_at"`
	Meta        map[string]string `json:"meta,omitempty"`
}

// HasTag returns true if the post carries tag (exact, case-sensitive match).
func (p *Post) HasTag(tag string) bool {
	return slices.Contains(p.Tags, tag)
}

// InSeries returns true if the post belongs to a series.
func (p *Post) InSeries() bool {
	return p.Series != ""
}

// PostSummary is the list view of a post, without body and changelog.
type PostSummary struct {
	ID          string    `json:"id"`
	Slug        string    `json:"slug"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Author      string    `json:"author,omitempty"`
	Tags        []string  `json:"tags"`
	Series      string    `json:"series,omitempty"`
	SeriesPart  int       `json:"series_part,omitempty"`
	Date        time.Time `json:"date"`
}

// Summary returns the list view of the post.
func (p *Post) Summary() PostSummary {
	return PostSummary{
		ID:          p.ID,
		Slug:        p.Slug,
		Title:       p.Title,
		Description: p.Description,
		Author:      p.Author,
		Tags:        p.Tags,
		Series:      p.Series,
		SeriesPart:  p.SeriesPart,
		Date:        p.Date,
	}
}
