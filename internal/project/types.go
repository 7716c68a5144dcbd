// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package project keeps the set of known dev-server projects and their
// last reported runtime state.
package project

import (
	"errors"
	"time"

	"github.com/wingedpig/devdock/internal/supervisor"
)

var (
	// ErrNotFound is returned for unknown project IDs.
	ErrNotFound = errors.New("project not found")

	// ErrInvalidPath is returned when a path holds no package.json.
	ErrInvalidPath = errors.New("not a node project: package.json missing")

	// ErrInvalidProject is returned for malformed create or update requests.
	ErrInvalidProject = errors.New("invalid project")
)

// Project is a registered dev-server project.
type Project struct {
	ID             string            `json:"id"`
	Name           string            `json:"name"`
	Path           string            `json:"path"`
	PackageManager string            `json:"package_manager"`
	StartCommand   string            `json:"start_command"`
	Status         supervisor.Status `json:"status"`
	PID            int               `json:"pid,omitempty"`
	URL            string            `json:"url,omitempty"`
	Port           int               `json:"port,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
}

// Handle returns what the supervisor needs to launch the project.
func (p Project) Handle() supervisor.ProjectHandle {
	return supervisor.ProjectHandle{
		ID:             p.ID,
		Path:           p.Path,
		PackageManager: p.PackageManager,
		StartCommand:   p.StartCommand,
	}
}

// CreateRequest describes a new project. Empty fields are detected from the
// project directory.
type CreateRequest struct {
	ID             string `json:"id,omitempty"`
	Name           string `json:"name"`
	Path           string `json:"path"`
	PackageManager string `json:"package_manager,omitempty"`
	StartCommand   string `json:"start_command,omitempty"`
}

// UpdateRequest changes the non-nil fields of a project.
type UpdateRequest struct {
	Name           *string `json:"name,omitempty"`
	Path           *string `json:"path,omitempty"`
	PackageManager *string `json:"package_manager,omitempty"`
	StartCommand   *string `json:"start_command,omitempty"`
}

func validPackageManager(pm string) bool {
	switch pm {
	case supervisor.PackageManagerNPM, supervisor.PackageManagerPNPM, supervisor.PackageManagerYarn:
		return true
	}
	return false
}
