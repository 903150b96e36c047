// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package posts

import (
	"fmt"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/olegiv/oblog/internal/model"
)

var tagPool = []string{"go", "cache", "travel", "Go", "notes"}

// genPosts builds post lists with random dates, tags and series parts. Each
// seed packs a day offset, a series part and a tag bitmask.
func genPosts() gopter.Gen {
	return gen.SliceOf(gen.IntRange(0, 1<<20)).Map(func(seeds []int) []*model.Post {
		base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		out := make([]*model.Post, len(seeds))
		for i, seed := range seeds {
			p := &model.Post{
				ID:         fmt.Sprintf("p%d", i),
				Date:       base.AddDate(0, 0, seed%31),
				Series:     "S",
				SeriesPart: (seed / 31) % 6,
				Tags:       []string{},
			}
			mask := seed / 186
			for bit, tag := range tagPool {
				if mask&(1<<bit) != 0 {
					p.Tags = append(p.Tags, tag)
				}
			}
			out[i] = p
		}
		return out
	})
}

func TestRepositoryProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("sort orders dates descending", prop.ForAll(
		func(list []*model.Post) bool {
			SortByDate(list)
			for i := 1; i < len(list); i++ {
				if list[i-1].Date.Before(list[i].Date) {
					return false
				}
			}
			return true
		},
		genPosts(),
	))

	properties.Property("sort keeps enumeration order for equal dates", prop.ForAll(
		func(list []*model.Post) bool {
			pos := make(map[*model.Post]int, len(list))
			for i, p := range list {
				pos[p] = i
			}
			SortByDate(list)
			for i := 1; i < len(list); i++ {
				if list[i-1].Date.Equal(list[i].Date) && pos[list[i-1]] > pos[list[i]] {
					return false
				}
			}
			return true
		},
		genPosts(),
	))

	properties.Property("tag counts equal number of posts carrying the tag", prop.ForAll(
		func(list []*model.Post) bool {
			counts := CountTags(list)
			for tag, n := range counts {
				if len(FilterByTag(list, tag)) != n {
					return false
				}
			}
			for _, p := range list {
				for _, tag := range p.Tags {
					if counts[tag] == 0 {
						return false
					}
				}
			}
			return true
		},
		genPosts(),
	))

	properties.Property("series parts ascend with absent parts last", prop.ForAll(
		func(list []*model.Post) bool {
			series := FilterSeries(list, "S")
			if len(series) != len(list) {
				return false
			}
			for i := 1; i < len(series); i++ {
				if seriesKey(series[i-1]) > seriesKey(series[i]) {
					return false
				}
			}
			return true
		},
		genPosts(),
	))

	properties.Property("adjacent posts are neighbours in the sorted list", prop.ForAll(
		func(list []*model.Post) bool {
			SortByDate(list)
			for i, p := range list {
				prev, next := FindAdjacent(list, p)
				if (i == 0) != (prev == nil) || (i == len(list)-1) != (next == nil) {
					return false
				}
				if prev != nil && prev != list[i-1] {
					return false
				}
				if next != nil && next != list[i+1] {
					return false
				}
			}
			return true
		},
		genPosts(),
	))

	properties.TestingRun(t)
}
