// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package project

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wingedpig/devdock/internal/events"
	"github.com/wingedpig/devdock/internal/logs"
	"github.com/wingedpig/devdock/internal/output"
	"github.com/wingedpig/devdock/internal/supervisor"
)

// Registry is the in-memory project store. It implements supervisor.Listener
// so runtime fields follow the supervisor's notifications.
type Registry struct {
	mu       sync.RWMutex
	projects map[string]*Project

	logs *logs.Buffer
	bus  events.EventBus
	now  func() time.Time
}

// NewRegistry creates an empty registry. buf and bus may be nil.
func NewRegistry(buf *logs.Buffer, bus events.EventBus) *Registry {
	return &Registry{
		projects: make(map[string]*Project),
		logs:     buf,
		bus:      bus,
		now:      time.Now,
	}
}

// Create registers a project. The path must hold a package.json; the
// package manager, start script and name are detected when not given.
func (r *Registry) Create(req CreateRequest) (Project, error) {
	p, err := r.build(req)
	if err != nil {
		return Project{}, err
	}

	r.mu.Lock()
	if _, exists := r.projects[p.ID]; exists {
		r.mu.Unlock()
		return Project{}, fmt.Errorf("%w: id %q already exists", ErrInvalidProject, p.ID)
	}
	r.projects[p.ID] = &p
	r.mu.Unlock()

	log.Printf("Projects: created %s (%s) at %s", p.ID, p.Name, p.Path)
	r.publish(events.EventProjectCreated, p)
	return p, nil
}

func (r *Registry) build(req CreateRequest) (Project, error) {
	path := strings.TrimSpace(req.Path)
	if err := ValidatePath(path); err != nil {
		return Project{}, err
	}
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}

	pm := req.PackageManager
	if pm == "" {
		pm = DetectPackageManager(path)
	} else if !validPackageManager(pm) {
		return Project{}, fmt.Errorf("%w: unknown package manager %q", ErrInvalidProject, pm)
	}

	name := strings.TrimSpace(req.Name)
	startCommand := strings.TrimSpace(req.StartCommand)

	info, err := ReadPackageInfo(path)
	if err != nil {
		log.Printf("Projects: %v", err)
	}
	if startCommand == "" {
		startCommand = info.StartScript
		if startCommand == "" {
			startCommand = DefaultStartScript
		}
	}
	if name == "" {
		name = info.Name
		if name == "" {
			name = filepath.Base(path)
		}
	}

	id := req.ID
	if id == "" {
		id = uuid.NewString()
	}

	now := r.now()
	return Project{
		ID:             id,
		Name:           name,
		Path:           path,
		PackageManager: pm,
		StartCommand:   startCommand,
		Status:         supervisor.StatusStopped,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

// Get returns a copy of the project.
func (r *Registry) Get(id string) (Project, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.projects[id]
	if !ok {
		return Project{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return *p, nil
}

// List returns all projects ordered by creation time, then name.
func (r *Registry) List() []Project {
	r.mu.RLock()
	out := make([]Project, 0, len(r.projects))
	for _, p := range r.projects {
		out = append(out, *p)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// Update applies the non-nil fields of req.
func (r *Registry) Update(id string, req UpdateRequest) (Project, error) {
	if req.PackageManager != nil && !validPackageManager(*req.PackageManager) {
		return Project{}, fmt.Errorf("%w: unknown package manager %q", ErrInvalidProject, *req.PackageManager)
	}
	if req.Path != nil {
		if err := ValidatePath(*req.Path); err != nil {
			return Project{}, err
		}
	}
	if req.StartCommand != nil && strings.TrimSpace(*req.StartCommand) == "" {
		return Project{}, fmt.Errorf("%w: empty start command", ErrInvalidProject)
	}

	updated, err := r.mutate(id, func(p *Project) {
		if req.Name != nil {
			p.Name = strings.TrimSpace(*req.Name)
		}
		if req.Path != nil {
			p.Path = *req.Path
		}
		if req.PackageManager != nil {
			p.PackageManager = *req.PackageManager
		}
		if req.StartCommand != nil {
			p.StartCommand = strings.TrimSpace(*req.StartCommand)
		}
	})
	if err != nil {
		return Project{}, err
	}
	r.publish(events.EventProjectUpdated, updated)
	return updated, nil
}

// Delete removes the project and drops its logs.
func (r *Registry) Delete(id string) error {
	r.mu.Lock()
	p, ok := r.projects[id]
	if !ok {
		r.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	delete(r.projects, id)
	r.mu.Unlock()

	if r.logs != nil {
		r.logs.Remove(id)
	}
	log.Printf("Projects: deleted %s", id)
	r.publish(events.EventProjectDeleted, *p)
	return nil
}

// Declaration is a project defined in the config file.
type Declaration struct {
	ID             string
	Name           string
	Path           string
	PackageManager string
	StartCommand   string
}

// Sync merges config declarations into the registry. New IDs are created
// and known IDs have their definition fields refreshed; runtime state is
// kept. Projects missing from decls are left alone. Invalid declarations
// are logged and skipped.
func (r *Registry) Sync(decls []Declaration) (created, updated int) {
	for _, d := range decls {
		if _, err := r.Get(d.ID); err != nil {
			if _, err := r.Create(CreateRequest(d)); err != nil {
				log.Printf("Projects: skipping declared project %q: %v", d.ID, err)
				continue
			}
			created++
			continue
		}

		req := UpdateRequest{}
		if d.Name != "" {
			req.Name = &d.Name
		}
		if d.Path != "" {
			req.Path = &d.Path
		}
		if d.PackageManager != "" {
			req.PackageManager = &d.PackageManager
		}
		if d.StartCommand != "" {
			req.StartCommand = &d.StartCommand
		}
		if _, err := r.Update(d.ID, req); err != nil {
			log.Printf("Projects: skipping declared project %q: %v", d.ID, err)
			continue
		}
		updated++
	}
	return created, updated
}

// MarkRunning records a successful start.
func (r *Registry) MarkRunning(id string, pid int) (Project, error) {
	return r.mutate(id, func(p *Project) {
		p.Status = supervisor.StatusRunning
		p.PID = pid
	})
}

// MarkStopped clears the runtime fields. Calling it repeatedly is harmless.
func (r *Registry) MarkStopped(id string) (Project, error) {
	return r.mutate(id, func(p *Project) {
		p.Status = supervisor.StatusStopped
		p.PID = 0
		p.URL = ""
		p.Port = 0
	})
}

// ResetAllToStopped clears runtime state left over from a previous run and
// returns how many projects changed.
func (r *Registry) ResetAllToStopped() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for _, p := range r.projects {
		if p.Status == supervisor.StatusStopped && p.PID == 0 && p.URL == "" && p.Port == 0 {
			continue
		}
		p.Status = supervisor.StatusStopped
		p.PID = 0
		p.URL = ""
		p.Port = 0
		p.UpdatedAt = r.now()
		n++
	}
	if n > 0 {
		log.Printf("Projects: reset %d project(s) to stopped", n)
	}
	return n
}

// OnStatusChange implements supervisor.Listener.
func (r *Registry) OnStatusChange(projectID string, status supervisor.Status) {
	if status != supervisor.StatusStopped {
		return
	}
	if _, err := r.MarkStopped(projectID); err != nil {
		// The project may have been deleted while running.
		log.Printf("Projects: stop notification for %s: %v", projectID, err)
	}
}

// OnEndpointDetected implements supervisor.Listener.
func (r *Registry) OnEndpointDetected(projectID string, ep output.Endpoint) {
	if _, err := r.mutate(projectID, func(p *Project) {
		p.URL = ep.URL
		p.Port = ep.Port
	}); err != nil {
		log.Printf("Projects: endpoint notification for %s: %v", projectID, err)
	}
}

func (r *Registry) mutate(id string, fn func(*Project)) (Project, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.projects[id]
	if !ok {
		return Project{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	fn(p)
	p.UpdatedAt = r.now()
	return *p, nil
}

func (r *Registry) publish(eventType string, p Project) {
	if r.bus == nil {
		return
	}
	err := r.bus.Publish(context.Background(), events.Event{
		Type:    eventType,
		Project: p.ID,
		Payload: map[string]interface{}{
			"name": p.Name,
			"path": p.Path,
		},
	})
	if err != nil {
		log.Printf("Projects: failed to publish %s: %v", eventType, err)
	}
}
