// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package logging provides a custom slog handler that integrates with the event log.
// It forwards logs at WARN level and above to the in-memory event log served by the API.
package logging

import (
	"context"
	"log/slog"
	"strings"

	"github.com/olegiv/oblog/internal/model"
)

// EventRecorder stores events forwarded by EventLogHandler.
type EventRecorder interface {
	LogEvent(ctx context.Context, level, category, message string, metadata map[string]string) error
}

// EventLogHandler is a slog.Handler that wraps another handler and also
// records WARN and ERROR level logs as events.
type EventLogHandler struct {
	inner    slog.Handler
	recorder EventRecorder
	level    slog.Level // Minimum level to forward (default: WARN)
	attrs    []slog.Attr
	group    string
}

// NewEventLogHandler creates a new EventLogHandler that wraps the given handler.
func NewEventLogHandler(inner slog.Handler, recorder EventRecorder) *EventLogHandler {
	return NewEventLogHandlerWithLevel(inner, recorder, slog.LevelWarn)
}

// NewEventLogHandlerWithLevel creates a new EventLogHandler with a custom minimum level.
func NewEventLogHandlerWithLevel(inner slog.Handler, recorder EventRecorder, level slog.Level) *EventLogHandler {
	return &EventLogHandler{
		inner:    inner,
		recorder: recorder,
		level:    level,
	}
}

// Enabled implements slog.Handler.
func (h *EventLogHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level) || level >= h.level
}

// Handle implements slog.Handler.
func (h *EventLogHandler) Handle(ctx context.Context, r slog.Record) error {
	var err error
	if h.inner.Enabled(ctx, r.Level) {
		err = h.inner.Handle(ctx, r)
	}

	if r.Level >= h.level && h.recorder != nil {
		h.record(r)
	}

	return err
}

// WithAttrs implements slog.Handler.
func (h *EventLogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.inner = h.inner.WithAttrs(attrs)
	clone.attrs = append(clone.attrs[:len(clone.attrs):len(clone.attrs)], h.qualify(attrs)...)
	return &clone
}

// WithGroup implements slog.Handler.
func (h *EventLogHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	clone.inner = h.inner.WithGroup(name)
	clone.group = joinKey(h.group, name)
	return &clone
}

// record converts a log record into an event. A background context keeps the
// event even when the request context is cancelled.
func (h *EventLogHandler) record(r slog.Record) {
	attrs := make([]slog.Attr, 0, len(h.attrs)+r.NumAttrs())
	attrs = append(attrs, h.attrs...)
	r.Attrs(func(a slog.Attr) bool {
		attrs = append(attrs, h.qualify([]slog.Attr{a})...)
		return true
	})

	_ = h.recorder.LogEvent(context.Background(),
		slogLevelToEventLevel(r.Level),
		extractCategory(r.Message, attrs),
		r.Message,
		extractMetadata(attrs),
	)
}

func (h *EventLogHandler) qualify(attrs []slog.Attr) []slog.Attr {
	if h.group == "" {
		return attrs
	}
	out := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		out[i] = slog.Attr{Key: joinKey(h.group, a.Key), Value: a.Value}
	}
	return out
}

func joinKey(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "." + key
}

// slogLevelToEventLevel converts a slog.Level to an event level.
func slogLevelToEventLevel(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return model.EventLevelError
	case level >= slog.LevelWarn:
		return model.EventLevelWarning
	default:
		return model.EventLevelInfo
	}
}

// extractCategory uses a "category" attribute when present and otherwise
// infers one from the message.
func extractCategory(message string, attrs []slog.Attr) string {
	for _, a := range attrs {
		if a.Key == "category" {
			if c := a.Value.String(); c != "" {
				return c
			}
		}
	}

	msg := strings.ToLower(message)
	switch {
	case strings.Contains(msg, "cache") || strings.Contains(msg, "snapshot") || strings.Contains(msg, "redis"):
		return model.EventCategoryCache
	case strings.Contains(msg, "post") || strings.Contains(msg, "parse") || strings.Contains(msg, "slug"):
		return model.EventCategoryPost
	case strings.Contains(msg, "config") || strings.Contains(msg, "setting"):
		return model.EventCategoryConfig
	default:
		return model.EventCategorySystem
	}
}

// extractMetadata flattens attributes into string metadata. Group values
// become dotted keys.
func extractMetadata(attrs []slog.Attr) map[string]string {
	if len(attrs) == 0 {
		return nil
	}
	md := make(map[string]string, len(attrs))
	var add func(prefix string, a slog.Attr)
	add = func(prefix string, a slog.Attr) {
		key := joinKey(prefix, a.Key)
		if key == "category" {
			return
		}
		v := a.Value.Resolve()
		if v.Kind() == slog.KindGroup {
			for _, ga := range v.Group() {
				add(key, ga)
			}
			return
		}
		md[key] = v.String()
	}
	for _, a := range attrs {
		add("", a)
	}
	if len(md) == 0 {
		return nil
	}
	return md
}
