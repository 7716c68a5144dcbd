// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package client

import "time"

// Project is a registered dev-server project.
type Project struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Path           string    `json:"path"`
	PackageManager string    `json:"package_manager"`
	StartCommand   string    `json:"start_command"`
	Status         string    `json:"status"` // running, stopped, error
	PID            int       `json:"pid,omitempty"`
	URL            string    `json:"url,omitempty"`
	Port           int       `json:"port,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// CreateProjectRequest registers a project. Only Path is required.
type CreateProjectRequest struct {
	ID             string `json:"id,omitempty"`
	Name           string `json:"name,omitempty"`
	Path           string `json:"path"`
	PackageManager string `json:"package_manager,omitempty"`
	StartCommand   string `json:"start_command,omitempty"`
}

// UpdateProjectRequest changes the non-nil fields of a project.
type UpdateProjectRequest struct {
	Name           *string `json:"name,omitempty"`
	Path           *string `json:"path,omitempty"`
	PackageManager *string `json:"package_manager,omitempty"`
	StartCommand   *string `json:"start_command,omitempty"`
}

// ProcessInfo describes a process the server is supervising.
type ProcessInfo struct {
	ProjectID string    `json:"project_id"`
	PID       int       `json:"pid"`
	Command   string    `json:"command"`
	StartedAt time.Time `json:"started_at"`
	Stopping  bool      `json:"stopping"`
}

// LogEntry is one captured line of output or a supervisor message.
type LogEntry struct {
	Timestamp string `json:"timestamp"` // RFC 3339, UTC
	Level     string `json:"level"`     // info, warn, error
	Message   string `json:"message"`
}

// Time parses the entry's timestamp, returning the zero time if malformed.
func (e LogEntry) Time() time.Time {
	t, err := time.Parse(time.RFC3339Nano, e.Timestamp)
	if err != nil {
		return time.Time{}
	}
	return t
}

// LogStats counts a project's buffered entries.
type LogStats struct {
	Total    int `json:"total"`
	Errors   int `json:"errors"`
	Warnings int `json:"warnings"`
}

// LogUsage summarizes buffer memory across projects.
type LogUsage struct {
	Projects       int `json:"projects"`
	Entries        int `json:"entries"`
	EstimatedBytes int `json:"estimated_bytes"`
}

// LogMessage is a frame received from a log stream.
type LogMessage struct {
	Type      string     `json:"type"` // snapshot, entry, cleared
	ProjectID string     `json:"project_id,omitempty"`
	Entries   []LogEntry `json:"entries,omitempty"`
	Entry     *LogEntry  `json:"entry,omitempty"`
}

// Event is a devdock event.
type Event struct {
	ID        string                 `json:"id"`
	Type      string                 `json:"type"`
	Project   string                 `json:"project,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	Payload   map[string]interface{} `json:"payload,omitempty"`
}
