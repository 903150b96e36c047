// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/olegiv/oblog/internal/service"
)

// PostsHandler serves post, tag, series and search routes.
type PostsHandler struct {
	posts  *service.PostService
	search *service.SearchService
	logger *slog.Logger
}

// NewPostsHandler creates a new PostsHandler.
func NewPostsHandler(posts *service.PostService, search *service.SearchService, logger *slog.Logger) *PostsHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostsHandler{posts: posts, search: search, logger: logger}
}

// List handles GET /api/posts. The optional tag parameter filters by tag.
func (h *PostsHandler) List(w http.ResponseWriter, r *http.Request) {
	list := h.posts.List(strings.TrimSpace(r.URL.Query().Get("tag")))
	WriteSuccess(w, list, &Meta{Total: len(list)})
}

// Get handles GET /api/posts/{key}. The key may be a slug, id or filename.
func (h *PostsHandler) Get(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")

	view, err := h.posts.Get(r.Context(), key)
	if err != nil {
		if errors.Is(err, service.ErrPostNotFound) {
			WriteNotFound(w, "Post not found")
			return
		}
		h.logger.Error("failed to load post", "key", key, "error", err)
		WriteInternalError(w, "Failed to load post")
		return
	}

	WriteSuccess(w, view, nil)
}

// Tags handles GET /api/tags.
func (h *PostsHandler) Tags(w http.ResponseWriter, _ *http.Request) {
	tags := h.posts.Tags()
	WriteSuccess(w, tags, &Meta{Total: len(tags)})
}

// Series handles GET /api/series/{name}.
func (h *PostsHandler) Series(w http.ResponseWriter, r *http.Request) {
	list := h.posts.Series(chi.URLParam(r, "name"))
	if len(list) == 0 {
		WriteNotFound(w, "Series not found")
		return
	}
	WriteSuccess(w, list, &Meta{Total: len(list)})
}

// Search handles GET /api/search?q=&tag=&limit=&offset=.
func (h *PostsHandler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := strings.TrimSpace(q.Get("q"))
	if query == "" {
		WriteBadRequest(w, "Missing search query", map[string]string{"q": "required"})
		return
	}

	limit, ok := queryInt(r, "limit", service.DefaultSearchLimit)
	if !ok {
		WriteBadRequest(w, "Invalid limit", map[string]string{"limit": "must be a non-negative integer"})
		return
	}
	offset, ok := queryInt(r, "offset", 0)
	if !ok {
		WriteBadRequest(w, "Invalid offset", map[string]string{"offset": "must be a non-negative integer"})
		return
	}
	limit = min(limit, service.MaxSearchLimit)

	results, total := h.search.Search(service.SearchParams{
		Query:  query,
		Tag:    strings.TrimSpace(q.Get("tag")),
		Limit:  limit,
		Offset: offset,
	})

	WriteSuccess(w, results, &Meta{Total: total, Limit: limit, Offset: offset})
}
