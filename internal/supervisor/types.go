// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package supervisor spawns dev-server processes, streams their output into
// the log buffer and drives graceful-then-forced termination.
package supervisor

import (
	"errors"
	"time"

	"github.com/wingedpig/devdock/internal/output"
)

var (
	// ErrAlreadyRunning is returned by Start when the project has a live process.
	ErrAlreadyRunning = errors.New("project is already running")

	// ErrSpawnFailed wraps the OS error returned when a process cannot be created.
	ErrSpawnFailed = errors.New("failed to start process")

	// ErrEmptyCommand is returned when a start command resolves to nothing.
	ErrEmptyCommand = errors.New("empty start command")

	// ErrProcessGone is returned by a Terminator when the target no longer exists.
	ErrProcessGone = errors.New("process already exited")
)

// Status is the lifecycle state reported to listeners.
type Status string

const (
	StatusStopped Status = "stopped"
	StatusRunning Status = "running"
	StatusError   Status = "error"
)

// Package managers understood by ResolveCommand.
const (
	PackageManagerNPM  = "npm"
	PackageManagerPNPM = "pnpm"
	PackageManagerYarn = "yarn"
)

// ProjectHandle is what the supervisor needs to launch a project. It is
// owned by the registry and never stored by the supervisor.
type ProjectHandle struct {
	ID             string
	Path           string
	PackageManager string
	StartCommand   string
}

// StartResult reports the outcome of Start. Err is nil on success.
type StartResult struct {
	Success bool
	PID     int
	Err     error
}

// ProcessInfo describes a tracked process.
type ProcessInfo struct {
	ProjectID string    `json:"project_id"`
	PID       int       `json:"pid"`
	Command   string    `json:"command"`
	StartedAt time.Time `json:"started_at"`
	Stopping  bool      `json:"stopping"`
}

const (
	DefaultStopTimeout = 5 * time.Second
	DefaultForceGrace  = time.Second
)

// Options configures a Supervisor. Zero values select defaults.
type Options struct {
	StopTimeout time.Duration // wait after the graceful signal
	ForceGrace  time.Duration // wait after the kill signal before giving up
	ForceColor  bool
	AugmentPath bool

	Detector    *output.Detector
	Terminator  Terminator
	Environment *Environment
}
