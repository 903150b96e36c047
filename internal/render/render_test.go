// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package render

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRender_Embeds(t *testing.T) {
	r := New(MediaURLs{})

	tests := []struct {
		name     string
		body     string
		contains []string
		excludes []string
	}{
		{
			name:     "youtube id",
			body:     "[youtube:dQw4w9WgXcQ]",
			contains: []string{`<iframe src="https://www.youtube-nocookie.com/embed/dQw4w9WgXcQ"`, `class="embed embed-video embed-youtube"`},
			excludes: []string{"<p><div"},
		},
		{
			name:     "youtube watch url",
			body:     "[youtube:https://www.youtube.com/watch?v=dQw4w9WgXcQ&t=10]",
			contains: []string{"youtube-nocookie.com/embed/dQw4w9WgXcQ"},
		},
		{
			name:     "youtube short url",
			body:     "[youtube:https://youtu.be/dQw4w9WgXcQ]",
			contains: []string{"youtube-nocookie.com/embed/dQw4w9WgXcQ"},
		},
		{
			name:     "vimeo url",
			body:     "[vimeo:https://vimeo.com/76979871]",
			contains: []string{`src="https://player.vimeo.com/video/76979871"`},
		},
		{
			name:     "twitter status",
			body:     "[twitter:https://twitter.com/golang/status/123456]",
			contains: []string{`href="https://x.com/golang/status/123456"`, "@golang"},
		},
		{
			name:     "x status",
			body:     "[x:https://x.com/golang/status/42]",
			contains: []string{`href="https://x.com/golang/status/42"`},
		},
		{
			name:     "instagram post",
			body:     "[instagram:https://www.instagram.com/p/AbC_123/]",
			contains: []string{`href="https://www.instagram.com/p/AbC_123/"`},
		},
		{
			name:     "mastodon status",
			body:     "[mastodon:https://mastodon.social/@alice/1099]",
			contains: []string{`href="https://mastodon.social/@alice/1099"`, "@alice@mastodon.social"},
		},
		{
			name:     "image with alt",
			body:     "[image:cat.jpg|A sleepy cat]",
			contains: []string{`src="/media/images/cat.jpg"`, `alt="A sleepy cat"`, "<figcaption>A sleepy cat</figcaption>"},
		},
		{
			name:     "file download",
			body:     "[file:report.pdf|Annual report]",
			contains: []string{`href="/media/files/report.pdf"`, "download", "Annual report"},
		},
		{
			name:     "audio",
			body:     "[audio:song.mp3]",
			contains: []string{"<audio", `src="/media/audio/song.mp3"`, "controls"},
		},
		{
			name:     "video",
			body:     "[video:clip.mp4]",
			contains: []string{"<video", `src="/media/video/clip.mp4"`},
		},
		{
			name:     "inline within text",
			body:     "Watch [youtube:dQw4w9WgXcQ] now",
			contains: []string{"Watch", "youtube-nocookie.com/embed/dQw4w9WgXcQ", "now"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := string(r.Render(tt.body))
			for _, want := range tt.contains {
				assert.Contains(t, out, want)
			}
			for _, unwanted := range tt.excludes {
				assert.NotContains(t, out, unwanted)
			}
			assert.NotContains(t, out, "embed-error")
		})
	}
}

func TestRender_InvalidEmbeds(t *testing.T) {
	r := New(MediaURLs{})

	tests := []struct {
		name string
		body string
		kind string
	}{
		{"youtube garbage", "[youtube:not a video]", "youtube"},
		{"youtube foreign host", "[youtube:https://evil.example.com/watch?v=dQw4w9WgXcQ]", "youtube"},
		{"vimeo non numeric", "[vimeo:abc]", "vimeo"},
		{"twitter wrong host", "[twitter:https://evil.com/golang/status/1]", "twitter"},
		{"instagram profile", "[instagram:https://www.instagram.com/someone/]", "instagram"},
		{"mastodon without status", "[mastodon:https://mastodon.social/@alice]", "mastodon"},
		{"image traversal", "[image:../../etc/passwd]", "image"},
		{"image subdirectory", "[image:a/b.jpg]", "image"},
		{"file with spaces", "[file:my report.pdf]", "file"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := string(r.Render(tt.body))
			assert.Contains(t, out, `<span class="embed-error">Invalid `+tt.kind+` embed</span>`)
			assert.NotContains(t, out, "<iframe")
			assert.NotContains(t, out, "passwd\"")
		})
	}
}

func TestRender_BlockEmbeds(t *testing.T) {
	r := New(MediaURLs{})

	t.Run("callout with type", func(t *testing.T) {
		out := string(r.Render("Intro\n\n[callout:warning]\nBe careful <now>\n\nSecond\n[/callout]\n\nAfter"))
		assert.Contains(t, out, `<div class="embed callout callout-warning">`)
		assert.Contains(t, out, "<p>Be careful &lt;now&gt;</p><p>Second</p>")
		assert.Contains(t, out, "<p>Intro</p>")
		assert.Contains(t, out, "<p>After</p>")
	})

	t.Run("callout defaults to note", func(t *testing.T) {
		out := string(r.Render("[callout]Plain[/callout]"))
		assert.Contains(t, out, "callout-note")
	})

	t.Run("callout with odd type", func(t *testing.T) {
		out := string(r.Render(`[callout:"><script>]x[/callout]`))
		assert.Contains(t, out, "callout-note")
		assert.NotContains(t, out, "<script")
	})

	t.Run("quote with author", func(t *testing.T) {
		out := string(r.Render("[quote:Ada <Lovelace>]\nThat brain of mine\n[/quote]"))
		assert.Contains(t, out, `<blockquote class="embed embed-quote">`)
		assert.Contains(t, out, "That brain of mine")
		assert.Contains(t, out, "<cite>Ada &lt;Lovelace&gt;</cite>")
	})

	t.Run("quote without author", func(t *testing.T) {
		out := string(r.Render("[quote]Words[/quote]"))
		assert.Contains(t, out, "Words")
		assert.NotContains(t, out, "<cite>")
	})
}

func TestRender_Structure(t *testing.T) {
	r := New(MediaURLs{})

	out := string(r.Render("## Heading\n\n- one\n- two\n\n1. first\n\n---\n\nline one\nline two"))
	assert.Contains(t, out, "<h2>Heading</h2>")
	assert.Contains(t, out, "<li>one</li>")
	assert.Contains(t, out, "<ol>")
	assert.Contains(t, out, "<hr")
	assert.Contains(t, out, "line one<br")
}

func TestRender_EscapesUserContent(t *testing.T) {
	r := New(MediaURLs{})

	out := string(r.Render("<script>alert(1)</script>\n\nHello <b onclick=\"x()\">there</b>\n\n[image:cat.jpg|<img src=x onerror=alert(1)>]"))
	assert.NotContains(t, out, "<script")
	assert.NotContains(t, out, "<b onclick")
	assert.NotContains(t, out, "<img src=x")
	assert.Contains(t, out, "&lt;script&gt;alert(1)&lt;/script&gt;")
	assert.Contains(t, out, "Hello &lt;b onclick=")
	assert.Contains(t, out, "&lt;img src=x")
}

func TestRender_KeepsHTMLAsText(t *testing.T) {
	r := New(MediaURLs{})

	out := string(r.Render("a <b>bold</b> c\n\n<script>x</script>"))
	assert.Contains(t, out, "<p>a &lt;b&gt;bold&lt;/b&gt; c</p>")
	assert.Contains(t, out, "<p>&lt;script&gt;x&lt;/script&gt;</p>")
	assert.NotContains(t, out, "<b>")

	out = string(r.Render("<div>\nuse <em> here\n</div>"))
	assert.Contains(t, out, "&lt;div&gt;<br")
	assert.Contains(t, out, "use &lt;em&gt; here")
	assert.Contains(t, out, "&lt;/div&gt;")
}

func TestRender_SkipsFencedCode(t *testing.T) {
	r := New(MediaURLs{})

	out := string(r.Render("```\n[youtube:dQw4w9WgXcQ]\n```\n\n~~~\n[callout]kept[/callout]\n~~~"))
	assert.Contains(t, out, "[youtube:dQw4w9WgXcQ]")
	assert.Contains(t, out, "[callout]kept[/callout]")
	assert.NotContains(t, out, "<iframe")
	assert.NotContains(t, out, "callout-note")
}

func TestRender_SkipsCodeSpans(t *testing.T) {
	r := New(MediaURLs{})

	t.Run("embed in code span", func(t *testing.T) {
		out := string(r.Render("use `[image:a.png]` syntax"))
		assert.Contains(t, out, "<code>[image:a.png]</code>")
		assert.NotContains(t, out, "<figure")
	})

	t.Run("double backticks", func(t *testing.T) {
		out := string(r.Render("``[youtube:dQw4w9WgXcQ] and ` tick`` then [youtube:dQw4w9WgXcQ]"))
		assert.Equal(t, 1, strings.Count(out, "<iframe"))
	})

	t.Run("unmatched backtick", func(t *testing.T) {
		out := string(r.Render("a ` b [youtube:dQw4w9WgXcQ]"))
		assert.Equal(t, 1, strings.Count(out, "<iframe"))
	})

	t.Run("span does not cross paragraphs", func(t *testing.T) {
		out := string(r.Render("a `b\n\n[youtube:dQw4w9WgXcQ] c`"))
		assert.Equal(t, 1, strings.Count(out, "<iframe"))
	})

	t.Run("code span inside callout", func(t *testing.T) {
		out := string(r.Render("[callout]run `make <all>`[/callout]"))
		assert.Contains(t, out, "callout-note")
		assert.Contains(t, out, "run `make &lt;all&gt;`")
	})
}

func TestRender_BlockEmbedInList(t *testing.T) {
	r := New(MediaURLs{})

	out := string(r.Render("- item\n- [callout]hi[/callout]\n- last"))
	assert.Equal(t, 1, strings.Count(out, "<ul>"))
	assert.Equal(t, 3, strings.Count(out, "<li>"))
	assert.NotContains(t, out, "<li></li>")
	assert.Contains(t, out, `<li><div class="embed callout callout-note">`)

	out = string(r.Render("1. [quote:Ada]Words[/quote]\n2. next"))
	assert.Equal(t, 1, strings.Count(out, "<ol>"))
	assert.Contains(t, out, `<li><blockquote class="embed embed-quote">`)

	out = string(r.Render("Intro\n[callout]own block[/callout]\nOutro"))
	assert.Contains(t, out, "<p>Intro</p>")
	assert.Contains(t, out, "<p>Outro</p>")
}

func TestRender_UnterminatedFence(t *testing.T) {
	r := New(MediaURLs{})

	out := string(r.Render("before [youtube:dQw4w9WgXcQ]\n```\n[youtube:dQw4w9WgXcQ]"))
	assert.Equal(t, 1, strings.Count(out, "<iframe"))
}

func TestRender_TokenLikeText(t *testing.T) {
	r := New(MediaURLs{})

	out := string(r.Render("embedn0z and embed0 [youtube:dQw4w9WgXcQ]"))
	assert.Contains(t, out, "embedn0z and embed0")
	assert.Equal(t, 1, strings.Count(out, "<iframe"))
}

func TestRender_CustomMediaURLs(t *testing.T) {
	r := New(MediaURLs{Audio: "https://cdn.example.com/audio/"})

	out := string(r.Render("[audio:song.mp3]\n\n[image:a.png]"))
	assert.Contains(t, out, `src="https://cdn.example.com/audio/song.mp3"`)
	assert.Contains(t, out, `src="/media/images/a.png"`)
}

func TestRender_Empty(t *testing.T) {
	r := New(MediaURLs{})
	assert.Empty(t, strings.TrimSpace(string(r.Render(""))))
}

func TestYouTubeID(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"https://www.youtube.com/watch?v=dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"https://m.youtube.com/watch?v=dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"https://youtu.be/dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"https://www.youtube.com/embed/dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"https://www.youtube.com/shorts/dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"https://www.youtube.com/watch?v=short", ""},
		{"javascript:alert(1)", ""},
		{"", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, youtubeID(tt.in), tt.in)
	}
}

func TestSplitFences(t *testing.T) {
	segs := splitFences("a\n```go\ncode\n```\nb\n")
	require.Len(t, segs, 3)
	assert.Equal(t, segment{text: "a\n"}, segs[0])
	assert.Equal(t, segment{text: "```go\ncode\n```\n", code: true}, segs[1])
	assert.Equal(t, segment{text: "b\n"}, segs[2])
}
