// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package logs

import (
	"context"
	"log"
	"sort"
	"strings"
	"sync"

	"github.com/wingedpig/devdock/internal/events"
)

// DefaultCapacity is the per-project entry limit.
const DefaultCapacity = 500

const subscriberBuffer = 100

// ring is a fixed-capacity FIFO of entries.
type ring struct {
	entries []Entry
	head    int // next write position
	size    int
}

func newRing(capacity int) *ring {
	return &ring{entries: make([]Entry, capacity)}
}

func (r *ring) push(e Entry) {
	r.entries[r.head] = e
	r.head = (r.head + 1) % len(r.entries)
	if r.size < len(r.entries) {
		r.size++
	}
}

// each visits entries oldest first until fn returns false.
func (r *ring) each(fn func(Entry) bool) {
	start := r.head - r.size
	if start < 0 {
		start += len(r.entries)
	}
	for i := 0; i < r.size; i++ {
		if !fn(r.entries[(start+i)%len(r.entries)]) {
			return
		}
	}
}

func (r *ring) snapshot() []Entry {
	out := make([]Entry, 0, r.size)
	r.each(func(e Entry) bool {
		out = append(out, e)
		return true
	})
	return out
}

// Buffer keeps a bounded stream of entries per project.
type Buffer struct {
	mu       sync.RWMutex
	rings    map[string]*ring
	capacity int

	subMu sync.RWMutex
	subs  map[chan LogEvent]string // channel -> project filter ("" = all)

	bus events.EventBus
}

// NewBuffer creates a buffer holding at most capacity entries per project.
// bus may be nil.
func NewBuffer(capacity int, bus events.EventBus) *Buffer {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Buffer{
		rings:    make(map[string]*ring),
		capacity: capacity,
		subs:     make(map[chan LogEvent]string),
		bus:      bus,
	}
}

// Capacity returns the per-project limit.
func (b *Buffer) Capacity() int {
	return b.capacity
}

// Append adds an entry, evicting the project's oldest entry when full.
func (b *Buffer) Append(projectID string, entry Entry) {
	b.mu.Lock()
	r, ok := b.rings[projectID]
	if !ok {
		r = newRing(b.capacity)
		b.rings[projectID] = r
	}
	r.push(entry)
	// Broadcasting under the write lock keeps subscribers in Get's order.
	b.broadcast(LogEvent{Kind: EventEntry, ProjectID: projectID, Entry: &entry})
	b.mu.Unlock()
}

// Get returns a copy of the project's entries, oldest first.
func (b *Buffer) Get(projectID string) []Entry {
	b.mu.RLock()
	defer b.mu.RUnlock()

	r, ok := b.rings[projectID]
	if !ok {
		return []Entry{}
	}
	return r.snapshot()
}

// Clear drops the project's entries and notifies viewers.
func (b *Buffer) Clear(projectID string) {
	b.mu.Lock()
	delete(b.rings, projectID)
	b.broadcast(LogEvent{Kind: EventCleared, ProjectID: projectID})
	b.mu.Unlock()

	b.publishCleared(projectID)
}

// ClearAll drops every project's entries and notifies viewers.
func (b *Buffer) ClearAll() {
	b.mu.Lock()
	b.rings = make(map[string]*ring)
	b.broadcast(LogEvent{Kind: EventCleared})
	b.mu.Unlock()

	b.publishCleared("")
}

// Remove drops the project's entries without notifying anyone. Used when a
// project is deleted.
func (b *Buffer) Remove(projectID string) {
	b.mu.Lock()
	delete(b.rings, projectID)
	b.mu.Unlock()
}

// Projects returns the IDs that currently hold entries.
func (b *Buffer) Projects() []string {
	b.mu.RLock()
	ids := make([]string, 0, len(b.rings))
	for id := range b.rings {
		ids = append(ids, id)
	}
	b.mu.RUnlock()

	sort.Strings(ids)
	return ids
}

// Stats counts the project's entries by level.
func (b *Buffer) Stats(projectID string) Stats {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var s Stats
	r, ok := b.rings[projectID]
	if !ok {
		return s
	}
	r.each(func(e Entry) bool {
		s.Total++
		switch e.Level {
		case LevelError:
			s.Errors++
		case LevelWarn:
			s.Warnings++
		}
		return true
	})
	return s
}

// Search returns entries whose message contains query, ignoring case.
// An empty level matches every level; an empty query matches every message.
func (b *Buffer) Search(projectID, query string, level Level) []Entry {
	needle := strings.ToLower(query)

	b.mu.RLock()
	defer b.mu.RUnlock()

	result := []Entry{}
	r, ok := b.rings[projectID]
	if !ok {
		return result
	}
	r.each(func(e Entry) bool {
		if level != "" && e.Level != level {
			return true
		}
		if needle != "" && !strings.Contains(strings.ToLower(e.Message), needle) {
			return true
		}
		result = append(result, e)
		return true
	})
	return result
}

// RecentErrors returns the newest limit error entries, oldest first.
func (b *Buffer) RecentErrors(projectID string, limit int) []Entry {
	if limit <= 0 {
		limit = 10
	}
	errs := b.Search(projectID, "", LevelError)
	if len(errs) > limit {
		errs = errs[len(errs)-limit:]
	}
	return errs
}

// Usage reports an estimate of the memory held by all buffers.
func (b *Buffer) Usage() Usage {
	b.mu.RLock()
	defer b.mu.RUnlock()

	u := Usage{Projects: len(b.rings)}
	for id, r := range b.rings {
		u.Entries += r.size
		u.EstimatedBytes += len(id)
		r.each(func(e Entry) bool {
			u.EstimatedBytes += e.approxSize()
			return true
		})
	}
	return u
}

// Subscribe returns a channel receiving events for projectID, or for every
// project when projectID is empty. Events are dropped for slow readers.
func (b *Buffer) Subscribe(projectID string) chan LogEvent {
	ch := make(chan LogEvent, subscriberBuffer)
	b.subMu.Lock()
	b.subs[ch] = projectID
	b.subMu.Unlock()
	return ch
}

// SubscribeWithSnapshot subscribes and returns the project's current
// entries in one step: every entry is either in the snapshot or delivered
// on the channel, never both.
func (b *Buffer) SubscribeWithSnapshot(projectID string) ([]Entry, chan LogEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	entries := []Entry{}
	if r, ok := b.rings[projectID]; ok {
		entries = r.snapshot()
	}
	return entries, b.Subscribe(projectID)
}

// Unsubscribe stops delivery and closes the channel.
func (b *Buffer) Unsubscribe(ch chan LogEvent) {
	b.subMu.Lock()
	defer b.subMu.Unlock()
	if _, ok := b.subs[ch]; ok {
		delete(b.subs, ch)
		close(ch)
	}
}

func (b *Buffer) broadcast(ev LogEvent) {
	b.subMu.RLock()
	defer b.subMu.RUnlock()

	for ch, filter := range b.subs {
		// A clear-all reaches every subscriber.
		if filter != "" && ev.ProjectID != "" && filter != ev.ProjectID {
			continue
		}
		select {
		case ch <- ev:
		default:
		}
	}
}

func (b *Buffer) publishCleared(projectID string) {
	if b.bus == nil {
		return
	}
	err := b.bus.Publish(context.Background(), events.Event{
		Type:    events.EventLogsCleared,
		Project: projectID,
	})
	if err != nil {
		log.Printf("Logs: failed to publish clear for %q: %v", projectID, err)
	}
}
