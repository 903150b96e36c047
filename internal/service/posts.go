// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"errors"
	"html/template"
	"log/slog"
	"time"

	"github.com/olegiv/oblog/internal/cache"
	"github.com/olegiv/oblog/internal/model"
)

// ErrPostNotFound is returned when a key resolves to no post.
var ErrPostNotFound = errors.New("post not found")

// BodyRenderer converts a post body into HTML.
type BodyRenderer interface {
	Render(body string) template.HTML
}

// RenderedBody is the cached HTML of a post body.
type RenderedBody struct {
	HTML       string    `json:"html"`
	RenderedAt time.Time `json:"rendered_at"`
}

// PostView is a single post ready for display.
type PostView struct {
	Post   *model.Post         `json:"post"`
	HTML   template.HTML       `json:"html"`
	Prev   *model.PostSummary  `json:"prev,omitempty"`
	Next   *model.PostSummary  `json:"next,omitempty"`
	Series []model.PostSummary `json:"series,omitempty"`
}

// PostService serves posts from the post cache and renders bodies through
// the rendered content cache.
type PostService struct {
	posts    *cache.PostCache
	renderer BodyRenderer
	rendered *cache.TypedCache[RenderedBody]
	logger   *slog.Logger
}

// NewPostService creates a PostService. Rendered bodies are stored in
// rendered for renderTTL.
func NewPostService(posts *cache.PostCache, renderer BodyRenderer, rendered cache.Cacher, renderTTL time.Duration, logger *slog.Logger) *PostService {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostService{
		posts:    posts,
		renderer: renderer,
		rendered: cache.NewTypedCache[RenderedBody](rendered, renderTTL),
		logger:   logger,
	}
}

// List returns post summaries, newest first. An empty tag lists every post.
func (s *PostService) List(tag string) []model.PostSummary {
	var list []*model.Post
	if tag == "" {
		list = s.posts.GetPosts(false)
	} else {
		list = s.posts.PostsByTag(tag)
	}
	return summaries(list)
}

// Get resolves key to a post and returns it with its rendered body, its
// neighbours and the rest of its series.
func (s *PostService) Get(ctx context.Context, key string) (*PostView, error) {
	post, ok := s.posts.GetPostBySlug(key)
	if !ok {
		return nil, ErrPostNotFound
	}

	view := &PostView{
		Post: post,
		HTML: s.renderBody(ctx, post),
	}

	prev, next := s.posts.Adjacent(post)
	if prev != nil {
		sum := prev.Summary()
		view.Prev = &sum
	}
	if next != nil {
		sum := next.Summary()
		view.Next = &sum
	}

	if post.InSeries() {
		view.Series = summaries(s.posts.Series(post.Series))
	}

	return view, nil
}

// Tags returns post counts per tag.
func (s *PostService) Tags() map[string]int {
	return s.posts.GetTags(false)
}

// Series returns the summaries of the named series ordered by part.
func (s *PostService) Series(name string) []model.PostSummary {
	return summaries(s.posts.Series(name))
}

// renderBody returns the cached HTML for post, rendering on a miss. A
// failing cache backend only costs a re-render.
func (s *PostService) renderBody(ctx context.Context, post *model.Post) template.HTML {
	key := cache.RenderKey(post.ID, post.Body)

	body, err := s.rendered.GetOrSet(ctx, key, func() (*RenderedBody, error) {
		return &RenderedBody{
			HTML:       string(s.renderer.Render(post.Body)),
			RenderedAt: time.Now(),
		}, nil
	})
	if err != nil {
		s.logger.Warn("rendering post failed", "post", post.ID, "error", err)
		return s.renderer.Render(post.Body)
	}

	return template.HTML(body.HTML)
}

func summaries(list []*model.Post) []model.PostSummary {
	out := make([]model.PostSummary, 0, len(list))
	for _, p := range list {
		out = append(out, p.Summary())
	}
	return out
}
