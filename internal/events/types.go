// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package events provides the in-process event bus that relays project
// lifecycle changes to the API layer and any other listeners.
package events

import (
	"context"
	"time"
)

// Event is an immutable notification record.
type Event struct {
	ID        string                 `json:"id"`
	Type      string                 `json:"type"`
	Project   string                 `json:"project,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	Payload   map[string]interface{} `json:"payload,omitempty"`
}

// EventHandler processes a delivered event.
type EventHandler func(ctx context.Context, event Event) error

// SubscriptionID identifies a subscription.
type SubscriptionID string

// EventFilter selects events from history.
type EventFilter struct {
	Types   []string // patterns, wildcards allowed
	Project string
	Since   time.Time
	Until   time.Time
	Limit   int // newest N after filtering
}

// EventBus is the pub/sub surface used by the rest of devdock.
type EventBus interface {
	// Publish delivers the event to every matching subscriber.
	Publish(ctx context.Context, event Event) error

	// Subscribe registers a handler that runs on the publisher's goroutine.
	Subscribe(pattern string, handler EventHandler) (SubscriptionID, error)

	// SubscribeAsync registers a handler fed through a buffered channel.
	SubscribeAsync(pattern string, handler EventHandler, bufferSize int) (SubscriptionID, error)

	Unsubscribe(id SubscriptionID) error

	// History returns retained events matching the filter, oldest first.
	History(filter EventFilter) ([]Event, error)

	Close() error
}

// Event types.
const (
	EventProjectStarted  = "project.started"
	EventProjectStopped  = "project.stopped"
	EventProjectEndpoint = "project.endpoint"
	EventProjectCreated  = "project.created"
	EventProjectUpdated  = "project.updated"
	EventProjectDeleted  = "project.deleted"
	EventProjectStatus   = "project.status"

	EventLogsCleared = "logs.cleared"

	EventConfigReloaded = "config.reloaded"
)
