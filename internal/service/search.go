// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"cmp"
	"html"
	"regexp"
	"slices"
	"strings"

	"github.com/olegiv/oblog/internal/cache"
	"github.com/olegiv/oblog/internal/model"
)

// Search limits.
const (
	DefaultSearchLimit = 20
	MaxSearchLimit     = 100
	MaxSearchTerms     = 10
	excerptLength      = 200
)

// Term weights.
const (
	titleWeight = 5
	tagWeight   = 3
	descWeight  = 2
	bodyWeight  = 1
)

var (
	searchStripRe = regexp.MustCompile(`[^\p{L}\p{N}\s_-]`)
	embedMarkupRe = regexp.MustCompile(`\[[^\[\]\n]*\]`)
)

// SearchService provides full-text search over the cached posts.
type SearchService struct {
	posts *cache.PostCache
}

// SearchResult represents a single search result with match highlight.
type SearchResult struct {
	Post      model.PostSummary `json:"post"`
	Excerpt   string            `json:"excerpt"`
	Highlight string            `json:"highlight"`
	Rank      int               `json:"rank"`
}

// SearchParams holds search parameters.
type SearchParams struct {
	Query  string
	Tag    string
	Limit  int
	Offset int
}

// NewSearchService creates a new search service.
func NewSearchService(posts *cache.PostCache) *SearchService {
	return &SearchService{posts: posts}
}

// Search returns the posts matching any query term, best match first, and
// the total number of matches. Ties keep the newest post first.
func (s *SearchService) Search(params SearchParams) ([]SearchResult, int) {
	terms := queryTerms(params.Query)
	if len(terms) == 0 {
		return []SearchResult{}, 0
	}

	limit := params.Limit
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	limit = min(limit, MaxSearchLimit)
	offset := max(params.Offset, 0)

	var list []*model.Post
	if params.Tag != "" {
		list = s.posts.PostsByTag(params.Tag)
	} else {
		list = s.posts.GetPosts(false)
	}

	var results []SearchResult
	for _, p := range list {
		rank := rankPost(p, terms)
		if rank == 0 {
			continue
		}
		excerpt := generateExcerpt(plainText(p.Body), terms, excerptLength)
		results = append(results, SearchResult{
			Post:      p.Summary(),
			Excerpt:   excerpt,
			Highlight: highlight(excerpt, terms),
			Rank:      rank,
		})
	}

	// Stable sort keeps the date order of the post list for equal ranks.
	slices.SortStableFunc(results, func(a, b SearchResult) int {
		return cmp.Compare(b.Rank, a.Rank)
	})

	total := len(results)
	if offset >= total {
		return []SearchResult{}, total
	}
	return results[offset:min(offset+limit, total)], total
}

// queryTerms lowercases the query, drops punctuation and duplicate words
// and caps the term count.
func queryTerms(query string) []string {
	query = searchStripRe.ReplaceAllString(strings.ToLower(strings.TrimSpace(query)), " ")

	var terms []string
	for _, word := range strings.Fields(query) {
		if slices.Contains(terms, word) {
			continue
		}
		terms = append(terms, word)
		if len(terms) == MaxSearchTerms {
			break
		}
	}
	return terms
}

func rankPost(p *model.Post, terms []string) int {
	title := strings.ToLower(html.UnescapeString(p.Title))
	desc := strings.ToLower(html.UnescapeString(p.Description))
	body := strings.ToLower(p.Body)

	rank := 0
	for _, term := range terms {
		if strings.Contains(title, term) {
			rank += titleWeight
		}
		if slices.ContainsFunc(p.Tags, func(tag string) bool { return strings.EqualFold(tag, term) }) {
			rank += tagWeight
		}
		if strings.Contains(desc, term) {
			rank += descWeight
		}
		rank += min(strings.Count(body, term), 10) * bodyWeight
	}
	return rank
}

// plainText drops embed markup and markdown punctuation from a body and
// collapses whitespace.
func plainText(body string) string {
	body = embedMarkupRe.ReplaceAllString(body, " ")
	body = strings.NewReplacer("#", " ", "*", " ", "`", " ", ">", " ", "_", " ").Replace(body)
	return strings.Join(strings.Fields(body), " ")
}

// generateExcerpt cuts up to maxLen runes of text around the first term
// match, or from the start when no term matches.
func generateExcerpt(text string, terms []string, maxLen int) string {
	if text == "" {
		return ""
	}
	runes := []rune(text)
	lower := []rune(strings.ToLower(text))

	firstMatch := -1
	if len(lower) == len(runes) {
		lowerText := string(lower)
		for _, term := range terms {
			if idx := strings.Index(lowerText, term); idx != -1 {
				// Convert the byte offset into a rune offset.
				runeIdx := len([]rune(lowerText[:idx]))
				if firstMatch == -1 || runeIdx < firstMatch {
					firstMatch = runeIdx
				}
			}
		}
	}

	if len(runes) <= maxLen {
		return text
	}

	start := 0
	if firstMatch > 0 {
		start = max(firstMatch-maxLen/3, 0)
	}
	end := min(start+maxLen, len(runes))

	excerpt := string(runes[start:end])
	if start > 0 {
		excerpt = "..." + excerpt
	}
	if end < len(runes) {
		excerpt += "..."
	}
	return excerpt
}

// highlight escapes text and wraps case-insensitive term matches in <mark>.
func highlight(text string, terms []string) string {
	if text == "" {
		return ""
	}
	quoted := make([]string, 0, len(terms))
	for _, term := range terms {
		quoted = append(quoted, regexp.QuoteMeta(term))
	}
	re, err := regexp.Compile(`(?i)` + strings.Join(quoted, "|"))
	if err != nil {
		return html.EscapeString(text)
	}

	var sb strings.Builder
	last := 0
	for _, loc := range re.FindAllStringIndex(text, -1) {
		sb.WriteString(html.EscapeString(text[last:loc[0]]))
		sb.WriteString("<mark>")
		sb.WriteString(html.EscapeString(text[loc[0]:loc[1]]))
		sb.WriteString("</mark>")
		last = loc[1]
	}
	sb.WriteString(html.EscapeString(text[last:]))
	return sb.String()
}
