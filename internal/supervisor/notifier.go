// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package supervisor

import (
	"context"
	"log"
	"sync"

	"github.com/wingedpig/devdock/internal/events"
	"github.com/wingedpig/devdock/internal/output"
)

// Listener receives lifecycle notifications. Implementations must tolerate
// repeated StatusStopped calls for the same project.
type Listener interface {
	OnStatusChange(projectID string, status Status)
	OnEndpointDetected(projectID string, endpoint output.Endpoint)
}

// ListenerFuncs adapts plain functions to Listener. Nil fields are skipped.
type ListenerFuncs struct {
	StatusChange     func(projectID string, status Status)
	EndpointDetected func(projectID string, endpoint output.Endpoint)
}

func (f ListenerFuncs) OnStatusChange(projectID string, status Status) {
	if f.StatusChange != nil {
		f.StatusChange(projectID, status)
	}
}

func (f ListenerFuncs) OnEndpointDetected(projectID string, endpoint output.Endpoint) {
	if f.EndpointDetected != nil {
		f.EndpointDetected(projectID, endpoint)
	}
}

// Notifier relays supervisor transitions to registered listeners and, when
// a bus is set, to the event bus.
type Notifier struct {
	mu        sync.RWMutex
	listeners []*listenerEntry
	bus       events.EventBus
}

type listenerEntry struct {
	l Listener
}

// NewNotifier creates a notifier. bus may be nil.
func NewNotifier(bus events.EventBus) *Notifier {
	return &Notifier{bus: bus}
}

// Register adds l and returns a function removing it.
func (n *Notifier) Register(l Listener) (unregister func()) {
	entry := &listenerEntry{l: l}

	n.mu.Lock()
	n.listeners = append(n.listeners, entry)
	n.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			n.mu.Lock()
			defer n.mu.Unlock()
			for i, e := range n.listeners {
				if e == entry {
					n.listeners = append(n.listeners[:i], n.listeners[i+1:]...)
					return
				}
			}
		})
	}
}

// StatusChanged delivers a status transition.
func (n *Notifier) StatusChanged(projectID string, status Status) {
	for _, l := range n.snapshot() {
		n.safely("status", func() { l.OnStatusChange(projectID, status) })
	}

	eventType := events.EventProjectStatus
	if status == StatusStopped {
		eventType = events.EventProjectStopped
	}
	n.publish(events.Event{
		Type:    eventType,
		Project: projectID,
		Payload: map[string]interface{}{"status": string(status)},
	})
}

// EndpointDetected delivers a detected dev-server address.
func (n *Notifier) EndpointDetected(projectID string, ep output.Endpoint) {
	for _, l := range n.snapshot() {
		n.safely("endpoint", func() { l.OnEndpointDetected(projectID, ep) })
	}

	payload := map[string]interface{}{"url": ep.URL}
	if ep.Port != 0 {
		payload["port"] = ep.Port
	}
	n.publish(events.Event{
		Type:    events.EventProjectEndpoint,
		Project: projectID,
		Payload: payload,
	})
}

func (n *Notifier) snapshot() []Listener {
	n.mu.RLock()
	defer n.mu.RUnlock()
	out := make([]Listener, len(n.listeners))
	for i, e := range n.listeners {
		out[i] = e.l
	}
	return out
}

func (n *Notifier) safely(kind string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Supervisor: %s listener panic: %v", kind, r)
		}
	}()
	fn()
}

func (n *Notifier) publish(event events.Event) {
	if n.bus == nil {
		return
	}
	if err := n.bus.Publish(context.Background(), event); err != nil {
		log.Printf("Supervisor: failed to publish %s for %s: %v", event.Type, event.Project, err)
	}
}
