// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/olegiv/oblog/internal/cache"
	"github.com/olegiv/oblog/internal/middleware"
	"github.com/olegiv/oblog/internal/service"
	"github.com/olegiv/oblog/internal/version"
)

// Route paths
const (
	RouteHealth          = "/health"
	RouteHealthLive      = "/health/live"
	RoutePosts           = "/api/posts"
	RoutePostByKey       = "/api/posts/{key}"
	RouteTags            = "/api/tags"
	RouteSeries          = "/api/series/{name}"
	RouteSearch          = "/api/search"
	RouteCacheStats      = "/api/cache/stats"
	RouteCacheInvalidate = "/api/cache/invalidate"
	RouteCacheClear      = "/api/cache/clear"
	RouteEvents          = "/api/events"
)

// readMaxAge is the Cache-Control max-age of post routes in seconds.
const readMaxAge = 60

// RouterConfig holds everything the router wires together.
type RouterConfig struct {
	Manager         *cache.Manager
	Posts           *service.PostService
	Search          *service.SearchService
	Events          *service.EventService
	PostsDir        string
	Version         version.Info
	Logger          *slog.Logger
	IsDevelopment   bool
	RequestTimeout  time.Duration
	InvalidateRPS   float64
	InvalidateBurst int
}

// NewRouter builds the HTTP API.
func NewRouter(cfg RouterConfig) http.Handler {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}

	posts := NewPostsHandler(cfg.Posts, cfg.Search, cfg.Logger)
	caches := NewCacheHandler(cfg.Manager, cfg.Events, cfg.Logger)
	events := NewEventsHandler(cfg.Events)
	health := NewHealthHandler(cfg.Manager, cfg.PostsDir, cfg.Version)
	limiter := middleware.NewRateLimiter(cfg.InvalidateRPS, max(cfg.InvalidateBurst, 1))

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Compress(5))
	r.Use(chimw.GetHead)
	r.Use(middleware.Timeout(cfg.RequestTimeout))
	r.Use(middleware.SecurityHeaders(middleware.DefaultSecurityHeadersConfig(cfg.IsDevelopment)))

	r.Get(RouteHealth, health.Health)
	r.Get(RouteHealthLive, health.Liveness)

	r.Group(func(r chi.Router) {
		r.Use(middleware.CacheControl(readMaxAge))
		r.Get(RoutePosts, posts.List)
		r.Get(RoutePostByKey, posts.Get)
		r.Get(RouteTags, posts.Tags)
		r.Get(RouteSeries, posts.Series)
		r.Get(RouteSearch, posts.Search)
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.CacheControl(0))
		r.Get(RouteCacheStats, caches.Stats)
		r.Get(RouteEvents, events.List)
		r.With(limiter.Middleware()).Post(RouteCacheInvalidate, caches.Invalidate)
		r.With(limiter.Middleware()).Post(RouteCacheClear, caches.Clear)
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		WriteNotFound(w, "Route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		WriteError(w, http.StatusMethodNotAllowed, "method_not_allowed", "Method not allowed", nil)
	})

	return r
}
