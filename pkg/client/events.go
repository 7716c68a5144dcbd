// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/gorilla/websocket"
)

// EventClient reads the event history and streams live events.
type EventClient struct {
	c *Client
}

// ListOptions configures event listing.
type ListOptions struct {
	// Limit keeps only the newest N matching events.
	Limit int

	// Types filters by event type; wildcards such as "project.*" work.
	Types []string

	// Project filters to events about one project.
	Project string

	Since time.Time
	Until time.Time
}

// List returns events from the server's history, oldest first.
func (e *EventClient) List(ctx context.Context, opts *ListOptions) ([]Event, error) {
	path := "/api/v1/events"

	if opts != nil {
		params := url.Values{}
		if opts.Limit > 0 {
			params.Set("limit", fmt.Sprintf("%d", opts.Limit))
		}
		for _, t := range opts.Types {
			params.Add("type", t)
		}
		if opts.Project != "" {
			params.Set("project", opts.Project)
		}
		if !opts.Since.IsZero() {
			params.Set("since", opts.Since.Format(time.RFC3339))
		}
		if !opts.Until.IsZero() {
			params.Set("until", opts.Until.Format(time.RFC3339))
		}
		if len(params) > 0 {
			path += "?" + params.Encode()
		}
	}

	data, err := e.c.get(ctx, path)
	if err != nil {
		return nil, err
	}
	return decode[[]Event](data, "events")
}

// Watch streams live events matching pattern ("" means all) to fn until ctx
// is done, the server closes the stream, or fn returns an error.
func (e *EventClient) Watch(ctx context.Context, pattern string, fn func(Event) error) error {
	path := "/api/v1/events/ws"
	if pattern != "" {
		path += "?pattern=" + url.QueryEscape(pattern)
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, e.c.wsURL(path), e.c.wsHeader())
	if err != nil {
		return fmt.Errorf("connect event stream: %w", err)
	}
	return readLoop(ctx, conn, func(ev *Event) error { return fn(*ev) })
}
