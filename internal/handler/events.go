// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"net/http"

	"github.com/olegiv/oblog/internal/service"
)

// Event list limits
const (
	DefaultEventLimit = 50
	MaxEventLimit     = 500
)

// EventsHandler serves the recent event log.
type EventsHandler struct {
	events *service.EventService
}

// NewEventsHandler creates a new EventsHandler.
func NewEventsHandler(events *service.EventService) *EventsHandler {
	return &EventsHandler{events: events}
}

// List handles GET /api/events?limit=, newest first.
func (h *EventsHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, ok := queryInt(r, "limit", DefaultEventLimit)
	if !ok || limit == 0 {
		WriteBadRequest(w, "Invalid limit", map[string]string{"limit": "must be a positive integer"})
		return
	}
	limit = min(limit, MaxEventLimit)

	events := h.events.Recent(limit)
	WriteSuccess(w, events, &Meta{Total: h.events.Count(), Limit: limit})
}
