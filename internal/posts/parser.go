// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package posts parses text post files and lists them from a directory.
package posts

import (
	"errors"
	"fmt"
	"html"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/olegiv/oblog/internal/model"
	"github.com/olegiv/oblog/internal/util"
)

// Parser limits
const (
	MaxFileSize      = 5 << 20
	MaxKeyLength     = 50
	MaxValueLength   = 500
	DescriptionLimit = 200
	DefaultExtension = ".txt"
)

// Reason explains why a file did or did not produce a post.
type Reason int

// Parse outcomes
const (
	ReasonOK Reason = iota
	ReasonPathTraversal
	ReasonOutsideDir
	ReasonInvalidFilename
	ReasonBadExtension
	ReasonTooLarge
	ReasonUnreadable
	ReasonNotUTF8
	ReasonEmptyID
	ReasonInvalidSlug
)

var reasonNames = map[Reason]string{
	ReasonOK:              "ok",
	ReasonPathTraversal:   "path traversal",
	ReasonOutsideDir:      "outside directory",
	ReasonInvalidFilename: "invalid filename",
	ReasonBadExtension:    "unsupported extension",
	ReasonTooLarge:        "file too large",
	ReasonUnreadable:      "unreadable",
	ReasonNotUTF8:         "not utf-8",
	ReasonEmptyID:         "empty id",
	ReasonInvalidSlug:     "invalid slug",
}

func (r Reason) String() string {
	if s, ok := reasonNames[r]; ok {
		return s
	}
	return "reason(" + strconv.Itoa(int(r)) + ")"
}

// Result is the outcome of parsing one file. Post is nil unless Reason is ReasonOK.
type Result struct {
	Post   *model.Post
	Reason Reason
	Err    error
}

// OK returns true if a post was produced.
func (r Result) OK() bool {
	return r.Reason == ReasonOK && r.Post != nil
}

func reject(reason Reason, err error) Result {
	return Result{Reason: reason, Err: err}
}

var (
	// headerLineRe matches a line made up entirely of [key: value] groups.
	headerLineRe = regexp.MustCompile(`^\s*(?:\[\s*[A-Za-z0-9_-]+\s*:[^\[\]]*\]\s*)+$`)
	headerPairRe = regexp.MustCompile(`\[\s*([A-Za-z0-9_-]+)\s*:([^\[\]]*)\]`)
	tagRe        = regexp.MustCompile(`^[\p{L}\p{N}][\p{L}\p{N} _.+#-]*$`)
)

// embedKinds are bracket prefixes owned by the content renderer. A line using
// one of them is body content, never header.
var embedKinds = map[string]bool{
	"youtube":   true,
	"vimeo":     true,
	"twitter":   true,
	"x":         true,
	"instagram": true,
	"mastodon":  true,
	"image":     true,
	"file":      true,
	"audio":     true,
	"video":     true,
	"callout":   true,
	"quote":     true,
}

// ParseFile validates name, reads it from dir and parses it.
// Name checks run before any file I/O.
func ParseFile(dir, name string, exts []string) Result {
	if r, ok := checkName(name); !ok {
		return r
	}
	if !util.HasExtension(name, exts) {
		return reject(ReasonBadExtension, fmt.Errorf("extension not accepted: %q", name))
	}

	path, err := util.SafeJoinPath(dir, name)
	if err != nil {
		return reject(ReasonOutsideDir, err)
	}

	f, err := os.Open(path)
	if err != nil {
		return reject(ReasonUnreadable, fmt.Errorf("opening post: %w", err))
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil {
		return reject(ReasonUnreadable, fmt.Errorf("stat post: %w", err))
	}
	if !info.Mode().IsRegular() {
		return reject(ReasonUnreadable, fmt.Errorf("not a regular file: %q", name))
	}
	if info.Size() > MaxFileSize {
		return reject(ReasonTooLarge, fmt.Errorf("post is %d bytes, limit %d", info.Size(), MaxFileSize))
	}

	// The file may grow between Stat and Read.
	data, err := io.ReadAll(io.LimitReader(f, MaxFileSize+1))
	if err != nil {
		return reject(ReasonUnreadable, fmt.Errorf("reading post: %w", err))
	}

	return Parse(name, data, info.ModTime())
}

// Parse builds a post from file content. name is the on-disk filename and
// modTime its modification time.
func Parse(name string, data []byte, modTime time.Time) Result {
	if r, ok := checkName(name); !ok {
		return r
	}
	if len(data) > MaxFileSize {
		return reject(ReasonTooLarge, fmt.Errorf("post is %d bytes, limit %d", len(data), MaxFileSize))
	}
	if !utf8.Valid(data) {
		return reject(ReasonNotUTF8, errors.New("post is not valid utf-8"))
	}

	id := util.StripExtension(name)
	if id == "" {
		return reject(ReasonEmptyID, fmt.Errorf("no id derivable from %q", name))
	}

	text := strings.TrimPrefix(string(data), "\ufeff")
	text = strings.ReplaceAll(text, "\r\n", "\n")
	lines := strings.Split(text, "\n")

	meta, n := parseHeader(lines)
	bodyLines := lines[n:]

	post := &model.Post{
		ID:        id,
		Slug:      id,
		Filename:  name,
		Date:      time.Now(),
		UpdatedAt: modTime,
	}

	rawTitle := ""
	for _, kv := range meta {
		switch kv.key {
		case "title":
			rawTitle = kv.value
		case "description":
			post.Description = html.EscapeString(kv.value)
		case "author":
			post.Author = html.EscapeString(kv.value)
		case "slug":
			slug := util.Slugify(kv.value)
			if !util.IsValidSlug(slug) {
				return reject(ReasonInvalidSlug, fmt.Errorf("slug %q does not normalize to a valid slug", kv.value))
			}
			post.Slug = slug
		case "date":
			if d, err := time.Parse("2006-01-02", kv.value); err == nil {
				post.Date = d
			}
		case "tags":
			post.Tags = parseTags(kv.value)
		case "series":
			post.Series = html.EscapeString(kv.value)
		case "series-part":
			post.SeriesPart = parseSeriesPart(kv.value)
		case "changelog":
			post.Changelog = parseChangelog(kv.value)
		default:
			if post.Meta == nil {
				post.Meta = make(map[string]string)
			}
			post.Meta[kv.key] = html.EscapeString(kv.value)
		}
	}

	bodyLines = adjustBody(bodyLines, n > 0, rawTitle)
	post.Body = strings.TrimSpace(strings.Join(bodyLines, "\n"))

	if rawTitle == "" {
		rawTitle = firstHeading(bodyLines)
	}
	if rawTitle == "" {
		rawTitle = id
	}
	post.Title = html.EscapeString(rawTitle)

	if post.Description == "" {
		post.Description = html.EscapeString(extractSnippet(bodyLines, DescriptionLimit))
	}
	if post.Tags == nil {
		post.Tags = []string{}
	}

	return Result{Post: post, Reason: ReasonOK}
}

func checkName(name string) (Result, bool) {
	if name == "" {
		return reject(ReasonInvalidFilename, errors.New("empty filename")), false
	}
	if util.ContainsPathTraversal(name) || util.HasPathSeparator(name) {
		return reject(ReasonPathTraversal, fmt.Errorf("path traversal in %q", name)), false
	}
	if util.SecureFilename(name) != name {
		return reject(ReasonInvalidFilename, fmt.Errorf("filename %q is not secure", name)), false
	}
	return Result{}, true
}

type headerPair struct {
	key   string
	value string
}

// parseHeader consumes header lines from the top and returns the accepted
// pairs in order together with the number of lines consumed.
func parseHeader(lines []string) ([]headerPair, int) {
	var pairs []headerPair
	n := 0
	for _, line := range lines {
		if !headerLineRe.MatchString(line) {
			break
		}
		matches := headerPairRe.FindAllStringSubmatch(line, -1)
		if hasEmbedKey(matches) {
			break
		}
		for _, m := range matches {
			key := strings.ToLower(strings.TrimSpace(m[1]))
			value := strings.TrimSpace(m[2])
			if utf8.RuneCountInString(key) > MaxKeyLength || utf8.RuneCountInString(value) > MaxValueLength {
				continue
			}
			pairs = append(pairs, headerPair{key: key, value: value})
		}
		n++
	}
	return pairs, n
}

func hasEmbedKey(matches [][]string) bool {
	for _, m := range matches {
		if embedKinds[strings.ToLower(strings.TrimSpace(m[1]))] {
			return true
		}
	}
	return false
}

// adjustBody applies the plain-text heuristics: a first line repeating the
// title is dropped, and a headerless post without headings gets its first
// line promoted to a heading.
func adjustBody(lines []string, hasHeader bool, title string) []string {
	first := -1
	for i, line := range lines {
		if strings.TrimSpace(line) != "" {
			first = i
			break
		}
	}
	if first < 0 {
		return lines
	}

	firstText := strings.TrimSpace(lines[first])
	if title != "" && strings.TrimSpace(strings.TrimLeft(firstText, "#")) == title {
		out := make([]string, 0, len(lines)-1)
		out = append(out, lines[:first]...)
		return append(out, lines[first+1:]...)
	}

	// An embed is never promoted.
	if !hasHeader && !hasHeading(lines) && !strings.HasPrefix(firstText, "[") {
		out := make([]string, len(lines))
		copy(out, lines)
		out[first] = "## " + firstText
		return out
	}
	return lines
}

func hasHeading(lines []string) bool {
	for _, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "#") {
			return true
		}
	}
	return false
}

func firstHeading(lines []string) string {
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "#") {
			if text := strings.TrimSpace(strings.TrimLeft(trimmed, "#")); text != "" {
				return text
			}
		}
	}
	return ""
}

func parseTags(value string) []string {
	tags := []string{}
	seen := make(map[string]bool)
	for _, raw := range strings.Split(value, ",") {
		tag := strings.Join(strings.Fields(raw), " ")
		if tag == "" || utf8.RuneCountInString(tag) > model.MaxTagLength || !tagRe.MatchString(tag) {
			continue
		}
		if seen[tag] {
			continue
		}
		seen[tag] = true
		tags = append(tags, tag)
	}
	return tags
}

func parseSeriesPart(value string) int {
	part, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 1
	}
	return min(max(part, 1), model.MaxSeriesPart)
}

func parseChangelog(value string) []string {
	var entries []string
	for _, raw := range strings.Split(value, ",") {
		entry := strings.TrimSpace(raw)
		if entry == "" || utf8.RuneCountInString(entry) > model.MaxChangelogLength {
			continue
		}
		entries = append(entries, html.EscapeString(entry))
	}
	return entries
}

// extractSnippet returns the first paragraph of the body as plain text,
// cut at a word boundary when longer than limit.
func extractSnippet(lines []string, limit int) string {
	var paragraph []string
	inFence := false

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)

		if strings.HasPrefix(trimmed, "```") {
			inFence = !inFence
			if len(paragraph) > 0 {
				break
			}
			continue
		}
		if inFence {
			continue
		}

		if trimmed == "" {
			if len(paragraph) > 0 {
				break
			}
			continue
		}

		if strings.HasPrefix(trimmed, "#") ||
			strings.HasPrefix(trimmed, "---") ||
			strings.HasPrefix(trimmed, "- ") ||
			strings.HasPrefix(trimmed, "* ") ||
			strings.HasPrefix(trimmed, ">") ||
			strings.HasPrefix(trimmed, "[") {
			if len(paragraph) > 0 {
				break
			}
			continue
		}

		paragraph = append(paragraph, trimmed)
	}

	snippet := strings.Join(paragraph, " ")
	if utf8.RuneCountInString(snippet) <= limit {
		return snippet
	}

	runes := []rune(snippet)
	snippet = string(runes[:limit])
	if lastSpace := strings.LastIndexAny(snippet, " \t"); lastSpace > 0 {
		snippet = snippet[:lastSpace]
	}
	return snippet + "..."
}
