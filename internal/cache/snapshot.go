// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package cache

import (
	"cmp"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/olegiv/oblog/internal/model"
	"github.com/olegiv/oblog/internal/util"
)

// snapshot is one published, immutable build of the post index.
// Every post reachable through index is in posts and vice versa.
type snapshot struct {
	id          string
	posts       []*model.Post // date descending
	tags        map[string]int
	index       map[string]*model.Post
	fingerprint string
	createdAt   time.Time
	err         error // set when the build failed and the snapshot is empty
}

func newSnapshot(list []*model.Post, tags map[string]int, fingerprint string, createdAt time.Time) *snapshot {
	return &snapshot{
		id:          uuid.NewString(),
		posts:       list,
		tags:        tags,
		index:       buildIndex(list),
		fingerprint: fingerprint,
		createdAt:   createdAt,
	}
}

func emptySnapshot(err error, createdAt time.Time) *snapshot {
	return &snapshot{
		id:        uuid.NewString(),
		posts:     []*model.Post{},
		tags:      map[string]int{},
		index:     map[string]*model.Post{},
		createdAt: createdAt,
		err:       err,
	}
}

// buildIndex maps slug, id, filename and filename stem of every post to the
// post. Keys are inserted kind by kind so a slug always wins over another
// post's id or filename; within a kind the newer post wins.
func buildIndex(list []*model.Post) map[string]*model.Post {
	index := make(map[string]*model.Post, len(list)*4)
	keyFuncs := []func(*model.Post) string{
		func(p *model.Post) string { return p.Slug },
		func(p *model.Post) string { return p.ID },
		func(p *model.Post) string { return p.Filename },
		func(p *model.Post) string { return util.StripExtension(p.Filename) },
	}
	for _, key := range keyFuncs {
		for _, p := range list {
			k := key(p)
			if k == "" {
				continue
			}
			if _, exists := index[k]; !exists {
				index[k] = p
			}
		}
	}
	return index
}

// lookup resolves key using the ordered key generators.
func (s *snapshot) lookup(key string, exts []string) (*model.Post, bool) {
	for _, k := range lookupKeys(key, exts) {
		if p, ok := s.index[k]; ok {
			return p, true
		}
	}
	return nil, false
}

// lookupKeys returns the candidate index keys for key in precedence order:
// the key itself, the key without an accepted extension, the key with the
// default extension. Keys with traversal sequences or separators have none.
func lookupKeys(key string, exts []string) []string {
	if key == "" || util.ContainsPathTraversal(key) || util.HasPathSeparator(key) {
		return nil
	}
	keys := []string{key}
	if util.HasExtension(key, exts) {
		if stripped := util.StripExtension(key); stripped != key {
			keys = append(keys, stripped)
		}
	}
	if len(exts) > 0 && !util.HasExtension(key, exts) {
		keys = append(keys, key+exts[0])
	}
	return keys
}

// limitTags keeps the limit most used tags, breaking ties by name.
func limitTags(tags map[string]int, limit int) map[string]int {
	if len(tags) <= limit {
		return tags
	}
	names := make([]string, 0, len(tags))
	for name := range tags {
		names = append(names, name)
	}
	slices.SortFunc(names, func(a, b string) int {
		if c := cmp.Compare(tags[b], tags[a]); c != 0 {
			return c
		}
		return cmp.Compare(a, b)
	})
	kept := make(map[string]int, limit)
	for _, name := range names[:limit] {
		kept[name] = tags[name]
	}
	return kept
}
