// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/gorilla/websocket"
)

// LogClient reads, clears and streams project output.
type LogClient struct {
	c *Client
}

// LogQuery filters Get. Query is a case-insensitive substring.
type LogQuery struct {
	Query string
	Level string
}

type logsResponse struct {
	Project string     `json:"project"`
	Entries []LogEntry `json:"entries"`
}

// Get returns a project's buffered entries, oldest first.
func (l *LogClient) Get(ctx context.Context, projectID string, q *LogQuery) ([]LogEntry, error) {
	path := projectPath(projectID) + "/logs"
	if q != nil {
		params := url.Values{}
		if q.Query != "" {
			params.Set("q", q.Query)
		}
		if q.Level != "" {
			params.Set("level", q.Level)
		}
		if len(params) > 0 {
			path += "?" + params.Encode()
		}
	}

	data, err := l.c.get(ctx, path)
	if err != nil {
		return nil, err
	}
	resp, err := decode[logsResponse](data, "logs")
	if err != nil {
		return nil, err
	}
	return resp.Entries, nil
}

// Errors returns up to limit recent error entries. A limit of 0 uses the
// server default.
func (l *LogClient) Errors(ctx context.Context, projectID string, limit int) ([]LogEntry, error) {
	path := projectPath(projectID) + "/logs/errors"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	data, err := l.c.get(ctx, path)
	if err != nil {
		return nil, err
	}
	resp, err := decode[logsResponse](data, "errors")
	if err != nil {
		return nil, err
	}
	return resp.Entries, nil
}

// Stats returns entry counts by level.
func (l *LogClient) Stats(ctx context.Context, projectID string) (*LogStats, error) {
	data, err := l.c.get(ctx, projectPath(projectID)+"/logs/stats")
	if err != nil {
		return nil, err
	}
	stats, err := decode[LogStats](data, "stats")
	if err != nil {
		return nil, err
	}
	return &stats, nil
}

// Usage reports buffer memory across all projects.
func (l *LogClient) Usage(ctx context.Context) (*LogUsage, error) {
	data, err := l.c.get(ctx, "/api/v1/logs/usage")
	if err != nil {
		return nil, err
	}
	usage, err := decode[LogUsage](data, "usage")
	if err != nil {
		return nil, err
	}
	return &usage, nil
}

// Clear empties a project's buffer.
func (l *LogClient) Clear(ctx context.Context, projectID string) error {
	_, err := l.c.delete(ctx, projectPath(projectID)+"/logs")
	return err
}

// ClearAll empties every project's buffer.
func (l *LogClient) ClearAll(ctx context.Context) error {
	_, err := l.c.delete(ctx, "/api/v1/logs")
	return err
}

// Stream connects to a project's log stream and calls fn for each message,
// starting with a snapshot of the buffer. It returns when ctx is done, the
// server closes the stream, or fn returns an error.
func (l *LogClient) Stream(ctx context.Context, projectID string, fn func(LogMessage) error) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, l.c.wsURL(projectPath(projectID)+"/logs/ws"), l.c.wsHeader())
	if err != nil {
		return fmt.Errorf("connect log stream: %w", err)
	}
	return readLoop(ctx, conn, func(msg *LogMessage) error { return fn(*msg) })
}

// readLoop decodes JSON frames until ctx ends or fn fails. A normal close
// from either side returns nil.
func readLoop[T any](ctx context.Context, conn *websocket.Conn, fn func(*T) error) error {
	defer conn.Close()

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			conn.Close()
		case <-stop:
		}
	}()

	for {
		var msg T
		if err := conn.ReadJSON(&msg); err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return fmt.Errorf("read stream: %w", err)
		}
		if err := fn(&msg); err != nil {
			return err
		}
	}
}
