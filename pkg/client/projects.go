// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"context"
	"net/url"
)

// ProjectClient manages projects and their dev servers.
type ProjectClient struct {
	c *Client
}

func projectPath(id string) string {
	return "/api/v1/projects/" + url.PathEscape(id)
}

// List returns all projects.
func (p *ProjectClient) List(ctx context.Context) ([]Project, error) {
	data, err := p.c.get(ctx, "/api/v1/projects")
	if err != nil {
		return nil, err
	}
	return decode[[]Project](data, "projects")
}

// Get returns a single project.
func (p *ProjectClient) Get(ctx context.Context, id string) (*Project, error) {
	data, err := p.c.get(ctx, projectPath(id))
	if err != nil {
		return nil, err
	}
	proj, err := decode[Project](data, "project")
	if err != nil {
		return nil, err
	}
	return &proj, nil
}

// Create registers a project.
func (p *ProjectClient) Create(ctx context.Context, req CreateProjectRequest) (*Project, error) {
	data, err := p.c.postJSON(ctx, "/api/v1/projects", req)
	if err != nil {
		return nil, err
	}
	proj, err := decode[Project](data, "project")
	if err != nil {
		return nil, err
	}
	return &proj, nil
}

// Update changes a project's definition.
func (p *ProjectClient) Update(ctx context.Context, id string, req UpdateProjectRequest) (*Project, error) {
	data, err := p.c.patchJSON(ctx, projectPath(id), req)
	if err != nil {
		return nil, err
	}
	proj, err := decode[Project](data, "project")
	if err != nil {
		return nil, err
	}
	return &proj, nil
}

// Delete stops and removes a project.
func (p *ProjectClient) Delete(ctx context.Context, id string) error {
	_, err := p.c.delete(ctx, projectPath(id))
	return err
}

// Start launches a project's dev server and returns the updated project.
func (p *ProjectClient) Start(ctx context.Context, id string) (*Project, error) {
	return p.action(ctx, id, "start")
}

// Stop terminates a project's dev server and returns the updated project.
func (p *ProjectClient) Stop(ctx context.Context, id string) (*Project, error) {
	return p.action(ctx, id, "stop")
}

func (p *ProjectClient) action(ctx context.Context, id, action string) (*Project, error) {
	data, err := p.c.post(ctx, projectPath(id)+"/"+action)
	if err != nil {
		return nil, err
	}
	proj, err := decode[Project](data, "project")
	if err != nil {
		return nil, err
	}
	return &proj, nil
}

// StopAll stops every running dev server and returns the IDs that were
// running.
func (p *ProjectClient) StopAll(ctx context.Context) ([]string, error) {
	data, err := p.c.post(ctx, "/api/v1/projects/stop-all")
	if err != nil {
		return nil, err
	}
	resp, err := decode[struct {
		Stopped []string `json:"stopped"`
	}](data, "stop-all response")
	if err != nil {
		return nil, err
	}
	return resp.Stopped, nil
}

// Running lists the supervised processes.
func (p *ProjectClient) Running(ctx context.Context) ([]ProcessInfo, error) {
	data, err := p.c.get(ctx, "/api/v1/running")
	if err != nil {
		return nil, err
	}
	return decode[[]ProcessInfo](data, "running processes")
}
