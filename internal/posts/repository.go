// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package posts

import (
	"errors"
	"fmt"
	"html"
	"io"
	"log/slog"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/olegiv/oblog/internal/model"
	"github.com/olegiv/oblog/internal/util"
)

// MaxFiles is the number of accepted filenames read per directory scan.
// Names beyond it are ignored.
const MaxFiles = 1000

const readDirBatch = 256

// Entry is the directory metadata of one candidate post file.
type Entry struct {
	Name    string
	ModTime time.Time
	Size    int64
}

// Repository lists posts from a single directory.
type Repository struct {
	dir    string
	exts   []string
	logger *slog.Logger
}

// NewRepository creates a repository over dir accepting the given extensions.
// Extensions default to DefaultExtension and are normalized to a lowercase
// form with a leading dot.
func NewRepository(dir string, exts []string, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{
		dir:    dir,
		exts:   NormalizeExtensions(exts),
		logger: logger,
	}
}

// NormalizeExtensions lowercases extensions, adds the leading dot and drops
// duplicates. An empty input yields DefaultExtension.
func NormalizeExtensions(exts []string) []string {
	var out []string
	for _, e := range exts {
		e = strings.ToLower(strings.TrimSpace(e))
		if e == "" || e == "." {
			continue
		}
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		if !slices.Contains(out, e) {
			out = append(out, e)
		}
	}
	if len(out) == 0 {
		return []string{DefaultExtension}
	}
	return out
}

// Dir returns the posts directory.
func (r *Repository) Dir() string {
	return r.dir
}

// Extensions returns the accepted extensions. The first one is the default.
func (r *Repository) Extensions() []string {
	return slices.Clone(r.exts)
}

// Entries returns the candidate post files in directory order, capped at
// MaxFiles. Subdirectories and names without an accepted extension are skipped.
func (r *Repository) Entries() ([]Entry, error) {
	f, err := os.Open(r.dir)
	if err != nil {
		return nil, fmt.Errorf("opening posts directory: %w", err)
	}
	defer func() { _ = f.Close() }()

	var entries []Entry
	for len(entries) < MaxFiles {
		batch, err := f.ReadDir(readDirBatch)
		for _, de := range batch {
			if len(entries) >= MaxFiles {
				break
			}
			if de.IsDir() || !util.HasExtension(de.Name(), r.exts) {
				continue
			}
			info, infoErr := de.Info()
			if infoErr != nil {
				// Removed between ReadDir and Info.
				continue
			}
			entries = append(entries, Entry{
				Name:    de.Name(),
				ModTime: info.ModTime(),
				Size:    info.Size(),
			})
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading posts directory: %w", err)
		}
	}

	return entries, nil
}

// List parses every candidate file and returns the valid posts sorted by date
// descending. Files that do not parse are skipped. A non-empty tag keeps only
// posts carrying that tag.
func (r *Repository) List(tag string) ([]*model.Post, error) {
	entries, err := r.Entries()
	if err != nil {
		return nil, err
	}

	result := make([]*model.Post, 0, len(entries))
	for _, e := range entries {
		res := ParseFile(r.dir, e.Name, r.exts)
		if !res.OK() {
			r.logger.Debug("skipping post file", "file", e.Name, "reason", res.Reason.String(), "error", res.Err)
			continue
		}
		result = append(result, res.Post)
	}

	if tag != "" {
		result = FilterByTag(result, tag)
	}
	SortByDate(result)

	return result, nil
}

// TagsCount scans the directory and counts tag usage across all posts.
func (r *Repository) TagsCount() (map[string]int, error) {
	all, err := r.List("")
	if err != nil {
		return nil, err
	}
	return CountTags(all), nil
}

// Series scans the directory and returns the posts of the named series.
func (r *Repository) Series(name string) ([]*model.Post, error) {
	all, err := r.List("")
	if err != nil {
		return nil, err
	}
	return FilterSeries(all, name), nil
}

// Adjacent scans the directory and returns the posts immediately newer (prev)
// and older (next) than post.
func (r *Repository) Adjacent(post *model.Post) (prev, next *model.Post, err error) {
	all, err := r.List("")
	if err != nil {
		return nil, nil, err
	}
	prev, next = FindAdjacent(all, post)
	return prev, next, nil
}

// SortByDate sorts posts by date descending. Ties keep their order.
func SortByDate(posts []*model.Post) {
	slices.SortStableFunc(posts, func(a, b *model.Post) int {
		return b.Date.Compare(a.Date)
	})
}

// CountTags returns the number of posts carrying each tag.
func CountTags(posts []*model.Post) map[string]int {
	counts := make(map[string]int)
	for _, p := range posts {
		for _, t := range p.Tags {
			counts[t]++
		}
	}
	return counts
}

// FilterByTag returns the posts carrying tag, preserving order.
func FilterByTag(posts []*model.Post, tag string) []*model.Post {
	out := make([]*model.Post, 0)
	for _, p := range posts {
		if p.HasTag(tag) {
			out = append(out, p)
		}
	}
	return out
}

// FilterSeries returns the posts of the named series ordered by part
// ascending. Posts without a part come last, in their original order.
// Series names are stored escaped; name may be given in either form.
func FilterSeries(posts []*model.Post, name string) []*model.Post {
	out := make([]*model.Post, 0)
	if name == "" {
		return out
	}
	escaped := html.EscapeString(name)
	for _, p := range posts {
		if p.Series == name || p.Series == escaped {
			out = append(out, p)
		}
	}
	slices.SortStableFunc(out, func(a, b *model.Post) int {
		return seriesKey(a) - seriesKey(b)
	})
	return out
}

func seriesKey(p *model.Post) int {
	if p.SeriesPart <= 0 {
		return model.MaxSeriesPart + 1
	}
	return p.SeriesPart
}

// FindAdjacent locates post in a date-descending list and returns its
// neighbours: prev is the newer one, next the older one.
func FindAdjacent(posts []*model.Post, post *model.Post) (prev, next *model.Post) {
	if post == nil {
		return nil, nil
	}
	i := slices.IndexFunc(posts, func(p *model.Post) bool {
		return p.ID == post.ID
	})
	if i < 0 {
		return nil, nil
	}
	if i > 0 {
		prev = posts[i-1]
	}
	if i < len(posts)-1 {
		next = posts[i+1]
	}
	return prev, next
}
