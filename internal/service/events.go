// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package service provides the read services behind the HTTP API: post views
// with rendered bodies and the recent event log.
package service

import (
	"context"
	"maps"
	"sync"
	"time"

	"github.com/olegiv/oblog/internal/model"
)

// DefaultEventCapacity is the number of events kept when no capacity is given.
const DefaultEventCapacity = 200

// EventService keeps the most recent events in a bounded ring.
type EventService struct {
	mu     sync.Mutex
	events []model.Event
	next   int
	full   bool
	lastID int64
	now    func() time.Time
}

// NewEventService creates an EventService holding up to capacity events.
func NewEventService(capacity int) *EventService {
	if capacity <= 0 {
		capacity = DefaultEventCapacity
	}
	return &EventService{
		events: make([]model.Event, capacity),
		now:    time.Now,
	}
}

// LogEvent records an event, overwriting the oldest one when the ring is full.
func (s *EventService) LogEvent(_ context.Context, level, category, message string, metadata map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastID++
	s.events[s.next] = model.Event{
		ID:        s.lastID,
		Level:     level,
		Category:  category,
		Message:   message,
		Metadata:  maps.Clone(metadata),
		CreatedAt: s.now(),
	}
	s.next = (s.next + 1) % len(s.events)
	if s.next == 0 {
		s.full = true
	}
	return nil
}

// LogInfo logs an info-level event.
func (s *EventService) LogInfo(ctx context.Context, category, message string, metadata map[string]string) error {
	return s.LogEvent(ctx, model.EventLevelInfo, category, message, metadata)
}

// LogWarning logs a warning-level event.
func (s *EventService) LogWarning(ctx context.Context, category, message string, metadata map[string]string) error {
	return s.LogEvent(ctx, model.EventLevelWarning, category, message, metadata)
}

// LogError logs an error-level event.
func (s *EventService) LogError(ctx context.Context, category, message string, metadata map[string]string) error {
	return s.LogEvent(ctx, model.EventLevelError, category, message, metadata)
}

// LogPostEvent logs a post-related event.
func (s *EventService) LogPostEvent(ctx context.Context, level, message string, metadata map[string]string) error {
	return s.LogEvent(ctx, level, model.EventCategoryPost, message, metadata)
}

// LogCacheEvent logs a cache-related event.
func (s *EventService) LogCacheEvent(ctx context.Context, level, message string, metadata map[string]string) error {
	return s.LogEvent(ctx, level, model.EventCategoryCache, message, metadata)
}

// Recent returns up to limit events, newest first. A limit of zero or less
// returns every retained event.
func (s *EventService) Recent(limit int) []model.Event {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := s.countLocked()
	if limit <= 0 || limit > n {
		limit = n
	}

	out := make([]model.Event, 0, limit)
	for i := range limit {
		idx := (s.next - 1 - i + len(s.events)) % len(s.events)
		e := s.events[idx]
		e.Metadata = maps.Clone(e.Metadata)
		out = append(out, e)
	}
	return out
}

// Count returns the number of retained events.
func (s *EventService) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.countLocked()
}

// DeleteOldEvents drops events older than the specified duration.
func (s *EventService) DeleteOldEvents(_ context.Context, olderThan time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-olderThan)
	n := s.countLocked()
	kept := make([]model.Event, 0, n)
	for i := n - 1; i >= 0; i-- {
		e := s.events[(s.next-1-i+len(s.events))%len(s.events)]
		if !e.CreatedAt.Before(cutoff) {
			kept = append(kept, e)
		}
	}

	clear(s.events)
	copy(s.events, kept)
	s.next = len(kept) % len(s.events)
	s.full = len(kept) == len(s.events)
	return nil
}

func (s *EventService) countLocked() int {
	if s.full {
		return len(s.events)
	}
	return s.next
}
