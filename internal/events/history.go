// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package events

import (
	"sync"
	"time"
)

const (
	defaultHistoryMaxEvents = 10000
	defaultHistoryMaxAge    = time.Hour
)

// History retains recently published events.
type History struct {
	mu        sync.RWMutex
	events    []Event
	maxEvents int
	maxAge    time.Duration
}

// NewHistory creates a history bounded by count and age.
func NewHistory(maxEvents int, maxAge time.Duration) *History {
	if maxEvents <= 0 {
		maxEvents = defaultHistoryMaxEvents
	}
	if maxAge <= 0 {
		maxAge = defaultHistoryMaxAge
	}
	return &History{
		maxEvents: maxEvents,
		maxAge:    maxAge,
	}
}

// Add appends an event, dropping the oldest past maxEvents.
func (h *History) Add(event Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.events = append(h.events, event)
	if over := len(h.events) - h.maxEvents; over > 0 {
		h.events = append(h.events[:0:0], h.events[over:]...)
	}
}

// Query returns events matching filter in publish order.
func (h *History) Query(filter EventFilter) []Event {
	h.mu.RLock()
	defer h.mu.RUnlock()

	result := make([]Event, 0)
	for _, event := range h.events {
		if matchesFilter(event, filter) {
			result = append(result, event)
		}
	}

	if filter.Limit > 0 && len(result) > filter.Limit {
		result = result[len(result)-filter.Limit:]
	}
	return result
}

// Len returns the number of retained events.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.events)
}

// Prune drops events older than maxAge.
func (h *History) Prune() {
	h.mu.Lock()
	defer h.mu.Unlock()

	cutoff := time.Now().Add(-h.maxAge)
	kept := h.events[:0]
	for _, event := range h.events {
		if event.Timestamp.After(cutoff) {
			kept = append(kept, event)
		}
	}
	// Clear the tail so dropped payloads can be collected.
	for i := len(kept); i < len(h.events); i++ {
		h.events[i] = Event{}
	}
	h.events = kept
}

// Reset drops everything.
func (h *History) Reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = nil
}

func matchesFilter(event Event, filter EventFilter) bool {
	if len(filter.Types) > 0 && !MatchAny(event.Type, filter.Types) {
		return false
	}
	if filter.Project != "" && event.Project != filter.Project {
		return false
	}
	if !filter.Since.IsZero() && event.Timestamp.Before(filter.Since) {
		return false
	}
	if !filter.Until.IsZero() && event.Timestamp.After(filter.Until) {
		return false
	}
	return true
}
