// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package events

import (
	"context"
	"errors"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrBusClosed is returned when operating on a closed bus.
	ErrBusClosed = errors.New("event bus is closed")

	// ErrSubscriptionNotFound is returned when unsubscribing an unknown ID.
	ErrSubscriptionNotFound = errors.New("subscription not found")
)

const defaultAsyncBuffer = 100

// BusConfig configures a MemoryBus.
type BusConfig struct {
	HistoryMaxEvents int
	HistoryMaxAge    time.Duration
}

// MemoryBus is the in-process EventBus implementation.
type MemoryBus struct {
	mu      sync.RWMutex
	subs    map[SubscriptionID]*subscription
	order   []SubscriptionID
	history *History
	closed  atomic.Bool
	wg      sync.WaitGroup
	stop    chan struct{}
}

type subscription struct {
	id      SubscriptionID
	pattern Pattern
	handler EventHandler
	ch      chan Event    // nil for synchronous subscriptions
	done    chan struct{} // closed on unsubscribe
}

// NewMemoryBus creates a bus and starts its history pruner.
func NewMemoryBus(cfg BusConfig) *MemoryBus {
	bus := &MemoryBus{
		subs:    make(map[SubscriptionID]*subscription),
		history: NewHistory(cfg.HistoryMaxEvents, cfg.HistoryMaxAge),
		stop:    make(chan struct{}),
	}

	interval := bus.history.maxAge / 10
	if interval < time.Minute {
		interval = time.Minute
	}

	bus.wg.Add(1)
	go func() {
		defer bus.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-bus.stop:
				return
			case <-ticker.C:
				bus.history.Prune()
			}
		}
	}()

	return bus
}

// Publish stamps the event, records it and delivers it.
// Synchronous handlers run in subscription order on the caller's goroutine;
// async subscribers whose buffer is full miss the event.
func (bus *MemoryBus) Publish(ctx context.Context, event Event) error {
	if bus.closed.Load() {
		return ErrBusClosed
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	bus.history.Add(event)

	bus.mu.RLock()
	targets := make([]*subscription, 0, len(bus.order))
	for _, id := range bus.order {
		if sub, ok := bus.subs[id]; ok && sub.pattern.Match(event.Type) {
			targets = append(targets, sub)
		}
	}
	bus.mu.RUnlock()

	for _, sub := range targets {
		if sub.ch != nil {
			select {
			case sub.ch <- event:
			default:
				log.Printf("EventBus: dropped %s for %s, subscriber buffer full", event.Type, sub.id)
			}
			continue
		}
		invoke(ctx, sub.handler, event)
	}
	return nil
}

// Subscribe registers a synchronous handler.
func (bus *MemoryBus) Subscribe(pattern string, handler EventHandler) (SubscriptionID, error) {
	return bus.add(pattern, handler, 0)
}

// SubscribeAsync registers a handler drained by a dedicated goroutine.
func (bus *MemoryBus) SubscribeAsync(pattern string, handler EventHandler, bufferSize int) (SubscriptionID, error) {
	if bufferSize <= 0 {
		bufferSize = defaultAsyncBuffer
	}
	return bus.add(pattern, handler, bufferSize)
}

func (bus *MemoryBus) add(pattern string, handler EventHandler, buffer int) (SubscriptionID, error) {
	if bus.closed.Load() {
		return "", ErrBusClosed
	}
	compiled, err := CompilePattern(pattern)
	if err != nil {
		return "", err
	}

	sub := &subscription{
		id:      SubscriptionID(uuid.NewString()),
		pattern: compiled,
		handler: handler,
		done:    make(chan struct{}),
	}
	if buffer > 0 {
		sub.ch = make(chan Event, buffer)
	}

	bus.mu.Lock()
	bus.subs[sub.id] = sub
	bus.order = append(bus.order, sub.id)
	bus.mu.Unlock()

	if sub.ch != nil {
		bus.wg.Add(1)
		go func() {
			defer bus.wg.Done()
			for {
				select {
				case <-sub.done:
					return
				case event := <-sub.ch:
					invoke(context.Background(), sub.handler, event)
				}
			}
		}()
	}

	return sub.id, nil
}

// Unsubscribe removes a subscription and stops its goroutine, if any.
func (bus *MemoryBus) Unsubscribe(id SubscriptionID) error {
	bus.mu.Lock()
	sub, ok := bus.subs[id]
	if !ok {
		bus.mu.Unlock()
		return ErrSubscriptionNotFound
	}
	delete(bus.subs, id)
	for i, existing := range bus.order {
		if existing == id {
			bus.order = append(bus.order[:i], bus.order[i+1:]...)
			break
		}
	}
	bus.mu.Unlock()

	close(sub.done)
	return nil
}

// History returns retained events matching filter.
func (bus *MemoryBus) History(filter EventFilter) ([]Event, error) {
	if bus.closed.Load() {
		return nil, ErrBusClosed
	}
	return bus.history.Query(filter), nil
}

// Close stops the pruner and all async subscribers. Safe to call twice.
func (bus *MemoryBus) Close() error {
	if bus.closed.Swap(true) {
		return nil
	}
	close(bus.stop)

	bus.mu.Lock()
	for _, sub := range bus.subs {
		close(sub.done)
	}
	bus.subs = make(map[SubscriptionID]*subscription)
	bus.order = nil
	bus.mu.Unlock()

	bus.wg.Wait()
	bus.history.Reset()
	return nil
}

func invoke(ctx context.Context, handler EventHandler, event Event) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("EventBus: handler panic for %s: %v", event.Type, r)
		}
	}()
	if err := handler(ctx, event); err != nil {
		log.Printf("EventBus: handler error for %s: %v", event.Type, err)
	}
}
