// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package render

import (
	"fmt"
	"html"
	"net/url"
	"regexp"
	"strings"

	"github.com/olegiv/oblog/internal/util"
)

// Embed kinds.
const (
	KindYouTube   = "youtube"
	KindVimeo     = "vimeo"
	KindTwitter   = "twitter"
	KindX         = "x"
	KindInstagram = "instagram"
	KindMastodon  = "mastodon"
	KindImage     = "image"
	KindFile      = "file"
	KindAudio     = "audio"
	KindVideo     = "video"
	KindCallout   = "callout"
	KindQuote     = "quote"
)

var (
	inlineEmbedRe = regexp.MustCompile(`\[(youtube|vimeo|twitter|x|instagram|mastodon|image|file|audio|video)\s*:\s*([^\[\]\n]+?)\s*\]`)
	calloutRe     = regexp.MustCompile(`(?s)\[callout(?::([^\]\n]*))?\](.*?)\[/callout\]`)
	quoteRe       = regexp.MustCompile(`(?s)\[quote(?::([^\]\n]*))?\](.*?)\[/quote\]`)

	youtubeIDRe   = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)
	vimeoIDRe     = regexp.MustCompile(`^[0-9]{1,12}$`)
	twitterPathRe = regexp.MustCompile(`^/([A-Za-z0-9_]{1,15})/status(?:es)?/([0-9]{1,20})/?$`)
	instagramRe   = regexp.MustCompile(`^/(p|reel|tv)/([A-Za-z0-9_-]{1,64})/?$`)
	mastodonRe    = regexp.MustCompile(`^/@([A-Za-z0-9_]{1,30})(?:@[A-Za-z0-9.-]+)?/([0-9]{1,20})/?$`)
	hostRe        = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]*[a-z0-9])?(\.[a-z0-9]([a-z0-9-]*[a-z0-9])?)+$`)
	calloutTypeRe = regexp.MustCompile(`^[a-z]{1,20}$`)
)

// MediaURLs holds the base URLs local media embeds resolve against.
type MediaURLs struct {
	Images string
	Files  string
	Audio  string
	Video  string
}

// DefaultMediaURLs returns the media locations used when none are configured.
func DefaultMediaURLs() MediaURLs {
	return MediaURLs{
		Images: "/media/images",
		Files:  "/media/files",
		Audio:  "/media/audio",
		Video:  "/media/video",
	}
}

func (m MediaURLs) withDefaults() MediaURLs {
	d := DefaultMediaURLs()
	if m.Images == "" {
		m.Images = d.Images
	}
	if m.Files == "" {
		m.Files = d.Files
	}
	if m.Audio == "" {
		m.Audio = d.Audio
	}
	if m.Video == "" {
		m.Video = d.Video
	}
	return m
}

// resolveInline turns one inline embed into HTML. The bool result is false
// when the value cannot be resolved.
func (r *Renderer) resolveInline(kind, value string) (string, bool) {
	switch kind {
	case KindYouTube:
		id := youtubeID(value)
		if id == "" {
			return "", false
		}
		return fmt.Sprintf(`<div class="embed embed-video embed-youtube"><iframe src="https://www.youtube-nocookie.com/embed/%s" title="YouTube video" loading="lazy" allowfullscreen></iframe></div>`, id), true
	case KindVimeo:
		id := vimeoID(value)
		if id == "" {
			return "", false
		}
		return fmt.Sprintf(`<div class="embed embed-video embed-vimeo"><iframe src="https://player.vimeo.com/video/%s" title="Vimeo video" loading="lazy" allowfullscreen></iframe></div>`, id), true
	case KindTwitter, KindX:
		user, id, ok := twitterStatus(value)
		if !ok {
			return "", false
		}
		return fmt.Sprintf(`<blockquote class="embed embed-social embed-twitter"><a href="https://x.com/%s/status/%s">View post by @%s</a></blockquote>`, user, id, user), true
	case KindInstagram:
		kindPath, code, ok := instagramPost(value)
		if !ok {
			return "", false
		}
		return fmt.Sprintf(`<blockquote class="embed embed-social embed-instagram"><a href="https://www.instagram.com/%s/%s/">View on Instagram</a></blockquote>`, kindPath, code), true
	case KindMastodon:
		host, user, id, ok := mastodonStatus(value)
		if !ok {
			return "", false
		}
		return fmt.Sprintf(`<blockquote class="embed embed-social embed-mastodon"><a href="https://%s/@%s/%s">View post by @%s@%s</a></blockquote>`, host, user, id, user, host), true
	case KindImage:
		name, alt := splitLabel(value)
		src, ok := mediaURL(r.media.Images, name)
		if !ok {
			return "", false
		}
		if alt == "" {
			return fmt.Sprintf(`<figure class="embed embed-image"><img src="%s" alt="" loading="lazy"></figure>`, src), true
		}
		alt = html.EscapeString(alt)
		return fmt.Sprintf(`<figure class="embed embed-image"><img src="%s" alt="%s" loading="lazy"><figcaption>%s</figcaption></figure>`, src, alt, alt), true
	case KindFile:
		name, label := splitLabel(value)
		href, ok := mediaURL(r.media.Files, name)
		if !ok {
			return "", false
		}
		if label == "" {
			label = name
		}
		return fmt.Sprintf(`<a class="embed embed-file" href="%s" download>%s</a>`, href, html.EscapeString(label)), true
	case KindAudio:
		name, _ := splitLabel(value)
		src, ok := mediaURL(r.media.Audio, name)
		if !ok {
			return "", false
		}
		return fmt.Sprintf(`<audio class="embed embed-audio" controls preload="metadata" src="%s"></audio>`, src), true
	case KindVideo:
		name, _ := splitLabel(value)
		src, ok := mediaURL(r.media.Video, name)
		if !ok {
			return "", false
		}
		return fmt.Sprintf(`<video class="embed embed-local-video" controls preload="metadata" src="%s"></video>`, src), true
	}
	return "", false
}

func renderCallout(kind, body string) string {
	kind = strings.ToLower(strings.TrimSpace(kind))
	if !calloutTypeRe.MatchString(kind) {
		kind = "note"
	}
	return fmt.Sprintf(`<div class="embed callout callout-%s">%s</div>`, kind, textBlock(body))
}

func renderQuote(author, body string) string {
	author = strings.TrimSpace(author)
	var sb strings.Builder
	sb.WriteString(`<blockquote class="embed embed-quote">`)
	sb.WriteString(textBlock(body))
	if author != "" {
		sb.WriteString(`<footer><cite>`)
		sb.WriteString(html.EscapeString(author))
		sb.WriteString(`</cite></footer>`)
	}
	sb.WriteString(`</blockquote>`)
	return sb.String()
}

// textBlock escapes free text, keeping blank-line separated paragraphs and
// single line breaks.
func textBlock(s string) string {
	var sb strings.Builder
	for para := range strings.SplitSeq(strings.TrimSpace(s), "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		lines := strings.Split(para, "\n")
		for i, line := range lines {
			lines[i] = html.EscapeString(strings.TrimSpace(line))
		}
		sb.WriteString("<p>")
		sb.WriteString(strings.Join(lines, "<br>"))
		sb.WriteString("</p>")
	}
	return sb.String()
}

func embedError(kind string) string {
	return fmt.Sprintf(`<span class="embed-error">Invalid %s embed</span>`, html.EscapeString(kind))
}

func splitLabel(value string) (string, string) {
	name, label, _ := strings.Cut(value, "|")
	return strings.TrimSpace(name), strings.TrimSpace(label)
}

// mediaURL joins a bare, secure filename onto base.
func mediaURL(base, name string) (string, bool) {
	if !util.IsSecureFilename(name) {
		return "", false
	}
	return html.EscapeString(strings.TrimRight(base, "/") + "/" + url.PathEscape(name)), true
}

func parseHTTPURL(value string) (*url.URL, bool) {
	u, err := url.Parse(value)
	if err != nil || (u.Scheme != "https" && u.Scheme != "http") || u.Host == "" {
		return nil, false
	}
	return u, true
}

func youtubeID(value string) string {
	if youtubeIDRe.MatchString(value) {
		return value
	}
	u, ok := parseHTTPURL(value)
	if !ok {
		return ""
	}

	var id string
	switch strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.") {
	case "youtu.be":
		id = strings.Trim(u.Path, "/")
	case "youtube.com", "m.youtube.com", "youtube-nocookie.com":
		switch {
		case u.Path == "/watch":
			id = u.Query().Get("v")
		case strings.HasPrefix(u.Path, "/embed/"):
			id = strings.TrimPrefix(u.Path, "/embed/")
		case strings.HasPrefix(u.Path, "/shorts/"):
			id = strings.TrimPrefix(u.Path, "/shorts/")
		}
	}
	if !youtubeIDRe.MatchString(id) {
		return ""
	}
	return id
}

func vimeoID(value string) string {
	if vimeoIDRe.MatchString(value) {
		return value
	}
	u, ok := parseHTTPURL(value)
	if !ok {
		return ""
	}

	var id string
	switch strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.") {
	case "vimeo.com":
		id = strings.Trim(u.Path, "/")
	case "player.vimeo.com":
		id = strings.TrimPrefix(u.Path, "/video/")
	}
	if !vimeoIDRe.MatchString(id) {
		return ""
	}
	return id
}

func twitterStatus(value string) (string, string, bool) {
	u, ok := parseHTTPURL(value)
	if !ok {
		return "", "", false
	}
	switch strings.ToLower(u.Hostname()) {
	case "twitter.com", "www.twitter.com", "mobile.twitter.com", "x.com", "www.x.com":
	default:
		return "", "", false
	}
	m := twitterPathRe.FindStringSubmatch(u.Path)
	if m == nil {
		return "", "", false
	}
	return m[1], m[2], true
}

func instagramPost(value string) (string, string, bool) {
	u, ok := parseHTTPURL(value)
	if !ok {
		return "", "", false
	}
	switch strings.ToLower(u.Hostname()) {
	case "instagram.com", "www.instagram.com":
	default:
		return "", "", false
	}
	m := instagramRe.FindStringSubmatch(u.Path)
	if m == nil {
		return "", "", false
	}
	return m[1], m[2], true
}

func mastodonStatus(value string) (string, string, string, bool) {
	u, ok := parseHTTPURL(value)
	if !ok || u.Port() != "" {
		return "", "", "", false
	}
	host := strings.ToLower(u.Hostname())
	if !hostRe.MatchString(host) {
		return "", "", "", false
	}
	m := mastodonRe.FindStringSubmatch(u.Path)
	if m == nil {
		return "", "", "", false
	}
	return host, m[1], m[2], true
}
