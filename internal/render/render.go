// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package render converts post bodies with embed markup into sanitized HTML.
package render

import (
	"bytes"
	"fmt"
	"html"
	"html/template"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer"
	gmhtml "github.com/yuin/goldmark/renderer/html"
	gmutil "github.com/yuin/goldmark/util"
)

var (
	embedClassRe = regexp.MustCompile(`^[a-z0-9 -]{1,100}$`)
	iframeSrcRe  = regexp.MustCompile(`^https://(www\.youtube-nocookie\.com/embed/[A-Za-z0-9_-]{11}|player\.vimeo\.com/video/[0-9]{1,12})$`)
	lazyRe       = regexp.MustCompile(`^lazy$`)
	preloadRe    = regexp.MustCompile(`^(none|metadata|auto)$`)

	containerLeadRe = regexp.MustCompile(`^[ \t]*(?:>[ \t]*)*(?:(?:[-*+]|[0-9]{1,9}[.)])[ \t]+)?$`)
)

// Renderer turns post bodies into HTML. It is safe for concurrent use.
type Renderer struct {
	media  MediaURLs
	md     goldmark.Markdown
	policy *bluemonday.Policy
}

// New creates a Renderer resolving local media against media. Empty fields
// fall back to DefaultMediaURLs.
func New(media MediaURLs) *Renderer {
	return &Renderer{
		media: media.withDefaults(),
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithRendererOptions(
				gmhtml.WithHardWraps(),
				renderer.WithNodeRenderers(gmutil.Prioritized(rawHTMLEscaper{}, rawHTMLPriority)),
			),
		),
		policy: newPolicy(),
	}
}

// newPolicy extends the UGC policy with the elements and attributes embeds
// produce.
func newPolicy() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.AllowElements("div", "span", "figure", "figcaption", "blockquote", "footer", "cite")
	p.AllowAttrs("class").Matching(embedClassRe).Globally()

	p.AllowAttrs("src").Matching(iframeSrcRe).OnElements("iframe")
	p.AllowAttrs("title", "allowfullscreen").OnElements("iframe")
	p.AllowAttrs("loading").Matching(lazyRe).OnElements("iframe", "img")

	p.AllowAttrs("download").OnElements("a")

	p.AllowAttrs("src", "controls").OnElements("audio", "video")
	p.AllowAttrs("preload").Matching(preloadRe).OnElements("audio", "video")
	return p
}

// Render converts body to sanitized HTML. HTML typed into the body is
// escaped and shown as text.
func (r *Renderer) Render(body string) template.HTML {
	prepared, embeds := r.isolate(body)

	var buf bytes.Buffer
	if err := r.md.Convert([]byte(prepared), &buf); err != nil {
		return template.HTML(r.policy.Sanitize("<p>" + html.EscapeString(body) + "</p>"))
	}

	return template.HTML(r.policy.Sanitize(restore(buf.String(), embeds)))
}

// placeholder is an embed cut out of the body and the HTML it resolves to.
type placeholder struct {
	token string
	html  string
}

// isolate replaces every embed outside fenced code and code spans with an
// alphanumeric token that does not occur in body.
func (r *Renderer) isolate(body string) (string, []placeholder) {
	body = strings.ReplaceAll(body, "\r\n", "\n")
	prefix := tokenPrefix(body)

	var embeds []placeholder
	add := func(out string, block bool) string {
		token := fmt.Sprintf("%sn%dz", prefix, len(embeds))
		embeds = append(embeds, placeholder{token: token, html: out})
		if block {
			return "\n\n" + token + "\n\n"
		}
		return token
	}

	// Code spans are masked while embeds are matched and put back afterwards.
	var spans []placeholder
	mask := func(text string) string {
		var sb strings.Builder
		last := 0
		for _, loc := range codeSpans(text) {
			token := fmt.Sprintf("%sc%dz", prefix, len(spans))
			spans = append(spans, placeholder{token: token, html: text[loc[0]:loc[1]]})
			sb.WriteString(text[last:loc[0]])
			sb.WriteString(token)
			last = loc[1]
		}
		sb.WriteString(text[last:])
		return sb.String()
	}
	codeToken := prefix + "c"

	// A block embed after a list or quote marker stays inside that container.
	blocks := func(re *regexp.Regexp, text string, render func(attr, body string) string) string {
		var sb strings.Builder
		last := 0
		for _, loc := range re.FindAllStringSubmatchIndex(text, -1) {
			lead := text[strings.LastIndexByte(text[:loc[0]], '\n')+1 : loc[0]]
			var attr string
			if loc[2] >= 0 {
				attr = text[loc[2]:loc[3]]
			}
			sb.WriteString(text[last:loc[0]])
			sb.WriteString(add(render(attr, text[loc[4]:loc[5]]), !inContainer(lead)))
			last = loc[1]
		}
		sb.WriteString(text[last:])
		return sb.String()
	}

	replace := func(text string) string {
		text = blocks(calloutRe, text, renderCallout)
		text = blocks(quoteRe, text, renderQuote)
		return inlineEmbedRe.ReplaceAllStringFunc(text, func(m string) string {
			if strings.Contains(m, codeToken) {
				return m
			}
			sub := inlineEmbedRe.FindStringSubmatch(m)
			kind := strings.ToLower(sub[1])
			out, ok := r.resolveInline(kind, sub[2])
			if !ok {
				out = embedError(kind)
			}
			return add(out, false)
		})
	}

	var sb strings.Builder
	for _, seg := range splitFences(body) {
		if seg.code {
			sb.WriteString(seg.text)
			continue
		}
		sb.WriteString(replace(mask(seg.text)))
	}

	out := sb.String()
	for _, span := range spans {
		out = strings.ReplaceAll(out, span.token, span.html)
		for i := range embeds {
			embeds[i].html = strings.ReplaceAll(embeds[i].html, span.token, html.EscapeString(span.html))
		}
	}
	return out, embeds
}

// codeSpans returns the byte ranges of inline code spans in text: a run of
// backticks up to the next run of the same length. Spans do not cross a
// blank line and an unmatched run is plain text.
func codeSpans(text string) [][2]int {
	var locs [][2]int
	for i := 0; i < len(text); {
		if text[i] != '`' {
			i++
			continue
		}
		n := backtickRun(text, i)
		end := closingRun(text, i+n, n)
		if end < 0 {
			i += n
			continue
		}
		locs = append(locs, [2]int{i, end})
		i = end
	}
	return locs
}

func backtickRun(s string, i int) int {
	n := 0
	for i+n < len(s) && s[i+n] == '`' {
		n++
	}
	return n
}

// closingRun returns the end of the first run of exactly n backticks at or
// after from, or -1 when a blank line or the end of s comes first.
func closingRun(s string, from, n int) int {
	for j := from; j < len(s); {
		switch s[j] {
		case '`':
			m := backtickRun(s, j)
			if m == n {
				return j + m
			}
			j += m
		case '\n':
			next, _, _ := strings.Cut(s[j+1:], "\n")
			if strings.TrimSpace(next) == "" {
				return -1
			}
			j++
		default:
			j++
		}
	}
	return -1
}

// inContainer reports whether lead, the text before an embed on its line, is
// only list item or block quote markers.
func inContainer(lead string) bool {
	return strings.TrimSpace(lead) != "" && containerLeadRe.MatchString(lead)
}

// restore substitutes embed HTML for tokens, unwrapping tokens that ended up
// alone in a paragraph.
func restore(out string, embeds []placeholder) string {
	for _, e := range embeds {
		out = strings.ReplaceAll(out, "<p>"+e.token+"</p>", e.html)
		out = strings.ReplaceAll(out, e.token, e.html)
	}
	return out
}

func tokenPrefix(body string) string {
	for {
		prefix := "embed" + strings.ReplaceAll(uuid.NewString(), "-", "")
		if !strings.Contains(body, prefix) {
			return prefix
		}
	}
}

type segment struct {
	text string
	code bool
}

// splitFences cuts body into alternating prose and fenced code segments. An
// unterminated fence runs to the end of the body.
func splitFences(body string) []segment {
	var (
		segs  []segment
		cur   strings.Builder
		fence string
	)
	flush := func(code bool) {
		if cur.Len() > 0 {
			segs = append(segs, segment{text: cur.String(), code: code})
			cur.Reset()
		}
	}

	for line := range strings.SplitAfterSeq(body, "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case fence == "" && (strings.HasPrefix(trimmed, "```") || strings.HasPrefix(trimmed, "~~~")):
			flush(false)
			fence = trimmed[:3]
			cur.WriteString(line)
		case fence != "" && strings.HasPrefix(trimmed, fence):
			cur.WriteString(line)
			flush(true)
			fence = ""
		default:
			cur.WriteString(line)
		}
	}
	flush(fence != "")
	return segs
}
