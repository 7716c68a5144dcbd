// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package logs holds the bounded per-project output streams of supervised
// dev servers and fans new lines out to live viewers.
package logs

import (
	"strings"
	"time"
)

// Level is the severity assigned to a captured line.
type Level string

const (
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// ParseLevel maps a user-supplied filter value to a Level.
// Unknown or empty values yield "" which matches every level.
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "info":
		return LevelInfo
	case "warn", "warning":
		return LevelWarn
	case "error", "err":
		return LevelError
	default:
		return ""
	}
}

// Entry is a single captured line. Entries are values; once appended they
// are never modified.
type Entry struct {
	Timestamp string `json:"timestamp"` // RFC 3339, UTC
	Level     Level  `json:"level"`
	Message   string `json:"message"`
}

// NewEntry stamps a message with the current time.
func NewEntry(level Level, message string) Entry {
	return Entry{
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		Level:     level,
		Message:   message,
	}
}

// Time parses the entry timestamp. The zero time is returned when the
// timestamp is malformed.
func (e Entry) Time() time.Time {
	t, err := time.Parse(time.RFC3339Nano, e.Timestamp)
	if err != nil {
		return time.Time{}
	}
	return t
}

// approxSize estimates the in-memory footprint of an entry.
func (e Entry) approxSize() int {
	// field names, quotes and separators of the JSON form
	const overhead = 40
	return len(e.Timestamp) + len(e.Level) + len(e.Message) + overhead
}

// EventKind distinguishes stream events.
type EventKind string

const (
	EventEntry   EventKind = "entry"
	EventCleared EventKind = "cleared"
)

// LogEvent is delivered to subscribers. For EventCleared with an empty
// ProjectID every project was cleared.
type LogEvent struct {
	Kind      EventKind `json:"kind"`
	ProjectID string    `json:"project_id,omitempty"`
	Entry     *Entry    `json:"entry,omitempty"`
}

// Stats summarizes a project's buffer.
type Stats struct {
	Total    int `json:"total"`
	Errors   int `json:"errors"`
	Warnings int `json:"warnings"`
}

// Usage summarizes the whole buffer.
type Usage struct {
	Projects       int `json:"projects"`
	Entries        int `json:"entries"`
	EstimatedBytes int `json:"estimated_bytes"`
}
