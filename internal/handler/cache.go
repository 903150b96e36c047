// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"log/slog"
	"net/http"

	"github.com/olegiv/oblog/internal/cache"
	"github.com/olegiv/oblog/internal/model"
	"github.com/olegiv/oblog/internal/service"
)

// CacheHandler handles cache management routes.
type CacheHandler struct {
	manager *cache.Manager
	events  *service.EventService
	logger  *slog.Logger
}

// NewCacheHandler creates a new CacheHandler.
func NewCacheHandler(manager *cache.Manager, events *service.EventService, logger *slog.Logger) *CacheHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &CacheHandler{manager: manager, events: events, logger: logger}
}

// CacheStatsData is the body of GET /api/cache/stats.
type CacheStatsData struct {
	Caches []cache.CacheStats `json:"caches"`
	Total  cache.Stats        `json:"total"`
}

// Stats handles GET /api/cache/stats.
func (h *CacheHandler) Stats(w http.ResponseWriter, _ *http.Request) {
	WriteSuccess(w, CacheStatsData{
		Caches: h.manager.AllStats(),
		Total:  h.manager.TotalStats(),
	}, nil)
}

// Invalidate handles POST /api/cache/invalidate. The next read rebuilds the
// post snapshot.
func (h *CacheHandler) Invalidate(w http.ResponseWriter, r *http.Request) {
	h.manager.InvalidateContent()
	h.logger.Info("post cache invalidated", "remote", r.RemoteAddr)
	h.record(r, "Post cache invalidated")

	w.WriteHeader(http.StatusNoContent)
}

// Clear handles POST /api/cache/clear. It drops every cache and resets
// statistics.
func (h *CacheHandler) Clear(w http.ResponseWriter, r *http.Request) {
	if err := h.manager.ClearAll(r.Context()); err != nil {
		h.logger.Error("failed to clear caches", "error", err)
		WriteInternalError(w, "Failed to clear caches")
		return
	}
	h.logger.Info("caches cleared", "remote", r.RemoteAddr)
	h.record(r, "All caches cleared")

	w.WriteHeader(http.StatusNoContent)
}

func (h *CacheHandler) record(r *http.Request, message string) {
	if h.events == nil {
		return
	}
	_ = h.events.LogCacheEvent(r.Context(), model.EventLevelInfo, message, map[string]string{
		"remote": r.RemoteAddr,
	})
}
