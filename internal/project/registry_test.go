// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package project

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wingedpig/devdock/internal/events"
	"github.com/wingedpig/devdock/internal/logs"
	"github.com/wingedpig/devdock/internal/output"
	"github.com/wingedpig/devdock/internal/supervisor"
)

// newNodeProject creates a directory with the given package.json and
// optional lockfile.
func newNodeProject(t *testing.T, packageJSON string, lockfile string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "package.json"), []byte(packageJSON), 0o644))
	if lockfile != "" {
		require.NoError(t, os.WriteFile(filepath.Join(dir, lockfile), []byte(""), 0o644))
	}
	return dir
}

func TestDetectPackageManager(t *testing.T) {
	assert.Equal(t, "pnpm", DetectPackageManager(newNodeProject(t, `{}`, "pnpm-lock.yaml")))
	assert.Equal(t, "yarn", DetectPackageManager(newNodeProject(t, `{}`, "yarn.lock")))
	assert.Equal(t, "npm", DetectPackageManager(newNodeProject(t, `{}`, "package-lock.json")))
	assert.Equal(t, "npm", DetectPackageManager(t.TempDir()))

	both := newNodeProject(t, `{}`, "pnpm-lock.yaml")
	require.NoError(t, os.WriteFile(filepath.Join(both, "yarn.lock"), nil, 0o644))
	assert.Equal(t, "pnpm", DetectPackageManager(both))
}

func TestValidatePath(t *testing.T) {
	assert.NoError(t, ValidatePath(newNodeProject(t, `{}`, "")))
	assert.ErrorIs(t, ValidatePath(t.TempDir()), ErrInvalidPath)
	assert.ErrorIs(t, ValidatePath(""), ErrInvalidPath)
}

func TestReadPackageInfo(t *testing.T) {
	tests := []struct {
		name   string
		json   string
		script string
	}{
		{"dev wins", `{"name":"site","scripts":{"start":"node .","dev":"vite","serve":"x"}}`, "dev"},
		{"start before serve", `{"name":"site","scripts":{"serve":"vue-cli-service serve","start":"node ."}}`, "start"},
		{"serve only", `{"name":"site","scripts":{"serve":"x"}}`, "serve"},
		{"none", `{"name":"site","scripts":{"build":"tsc"}}`, ""},
		{"no scripts", `{"name":"site"}`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info, err := ReadPackageInfo(newNodeProject(t, tt.json, ""))
			require.NoError(t, err)
			assert.Equal(t, "site", info.Name)
			assert.Equal(t, tt.script, info.StartScript)
		})
	}

	_, err := ReadPackageInfo(newNodeProject(t, `{not json`, ""))
	assert.Error(t, err)
}

func TestRegistry_CreateDetectsDefaults(t *testing.T) {
	reg := NewRegistry(nil, nil)
	dir := newNodeProject(t, `{"name":"shop","scripts":{"start":"next start"}}`, "yarn.lock")

	p, err := reg.Create(CreateRequest{Path: dir})
	require.NoError(t, err)

	assert.NotEmpty(t, p.ID)
	assert.Equal(t, "shop", p.Name)
	assert.Equal(t, "yarn", p.PackageManager)
	assert.Equal(t, "start", p.StartCommand)
	assert.Equal(t, supervisor.StatusStopped, p.Status)
	assert.False(t, p.CreatedAt.IsZero())

	got, err := reg.Get(p.ID)
	require.NoError(t, err)
	assert.Equal(t, p, got)
}

func TestRegistry_CreateExplicitFields(t *testing.T) {
	reg := NewRegistry(nil, nil)
	dir := newNodeProject(t, `{"scripts":{"dev":"vite"}}`, "yarn.lock")

	p, err := reg.Create(CreateRequest{
		ID:             "web",
		Name:           "Web",
		Path:           dir,
		PackageManager: "pnpm",
		StartCommand:   "node server.js",
	})
	require.NoError(t, err)
	assert.Equal(t, "web", p.ID)
	assert.Equal(t, "Web", p.Name)
	assert.Equal(t, "pnpm", p.PackageManager)
	assert.Equal(t, "node server.js", p.StartCommand)

	_, err = reg.Create(CreateRequest{ID: "web", Path: dir})
	assert.ErrorIs(t, err, ErrInvalidProject)
}

func TestRegistry_CreateFallbacks(t *testing.T) {
	reg := NewRegistry(nil, nil)
	dir := newNodeProject(t, `{"scripts":{"build":"tsc"}}`, "")

	p, err := reg.Create(CreateRequest{Path: dir})
	require.NoError(t, err)
	assert.Equal(t, DefaultStartScript, p.StartCommand)
	assert.Equal(t, filepath.Base(dir), p.Name)
	assert.Equal(t, "npm", p.PackageManager)
}

func TestRegistry_CreateRejectsInvalid(t *testing.T) {
	reg := NewRegistry(nil, nil)

	_, err := reg.Create(CreateRequest{Path: t.TempDir()})
	assert.ErrorIs(t, err, ErrInvalidPath)

	_, err = reg.Create(CreateRequest{Path: newNodeProject(t, `{}`, ""), PackageManager: "bun"})
	assert.ErrorIs(t, err, ErrInvalidProject)

	assert.Empty(t, reg.List())
}

func TestRegistry_Update(t *testing.T) {
	reg := NewRegistry(nil, nil)
	p, err := reg.Create(CreateRequest{ID: "web", Path: newNodeProject(t, `{}`, "")})
	require.NoError(t, err)

	name, cmd := "Renamed", "start"
	updated, err := reg.Update("web", UpdateRequest{Name: &name, StartCommand: &cmd})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Name)
	assert.Equal(t, "start", updated.StartCommand)
	assert.Equal(t, p.Path, updated.Path)
	assert.False(t, updated.UpdatedAt.Before(p.UpdatedAt))

	bad := "bun"
	_, err = reg.Update("web", UpdateRequest{PackageManager: &bad})
	assert.ErrorIs(t, err, ErrInvalidProject)

	empty := " "
	_, err = reg.Update("web", UpdateRequest{StartCommand: &empty})
	assert.ErrorIs(t, err, ErrInvalidProject)

	_, err = reg.Update("missing", UpdateRequest{Name: &name})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRegistry_DeleteDropsLogs(t *testing.T) {
	buf := logs.NewBuffer(10, nil)
	reg := NewRegistry(buf, nil)
	_, err := reg.Create(CreateRequest{ID: "web", Path: newNodeProject(t, `{}`, "")})
	require.NoError(t, err)

	buf.Append("web", logs.NewEntry(logs.LevelInfo, "hello"))
	require.NoError(t, reg.Delete("web"))

	assert.Empty(t, buf.Get("web"))
	_, err = reg.Get("web")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, reg.Delete("web"), ErrNotFound)
}

func TestRegistry_ListenerUpdatesRuntimeFields(t *testing.T) {
	reg := NewRegistry(nil, nil)
	_, err := reg.Create(CreateRequest{ID: "web", Path: newNodeProject(t, `{}`, "")})
	require.NoError(t, err)

	_, err = reg.MarkRunning("web", 4242)
	require.NoError(t, err)
	reg.OnEndpointDetected("web", output.Endpoint{URL: "http://localhost:5173/", Port: 5173})

	p, _ := reg.Get("web")
	assert.Equal(t, supervisor.StatusRunning, p.Status)
	assert.Equal(t, 4242, p.PID)
	assert.Equal(t, "http://localhost:5173/", p.URL)
	assert.Equal(t, 5173, p.Port)

	// Duplicate stop notifications are harmless.
	reg.OnStatusChange("web", supervisor.StatusStopped)
	reg.OnStatusChange("web", supervisor.StatusStopped)

	p, _ = reg.Get("web")
	assert.Equal(t, supervisor.StatusStopped, p.Status)
	assert.Zero(t, p.PID)
	assert.Empty(t, p.URL)
	assert.Zero(t, p.Port)

	// Notifications for unknown projects are ignored.
	reg.OnStatusChange("gone", supervisor.StatusStopped)
	reg.OnEndpointDetected("gone", output.Endpoint{URL: "http://localhost:1/"})
}

func TestRegistry_ResetAllToStopped(t *testing.T) {
	reg := NewRegistry(nil, nil)
	for _, id := range []string{"a", "b", "c"} {
		_, err := reg.Create(CreateRequest{ID: id, Path: newNodeProject(t, `{}`, "")})
		require.NoError(t, err)
	}
	reg.MarkRunning("a", 10)
	reg.OnEndpointDetected("b", output.Endpoint{URL: "http://localhost:3000/", Port: 3000})

	assert.Equal(t, 2, reg.ResetAllToStopped())
	assert.Equal(t, 0, reg.ResetAllToStopped())

	for _, p := range reg.List() {
		assert.Equal(t, supervisor.StatusStopped, p.Status)
		assert.Zero(t, p.PID)
		assert.Empty(t, p.URL)
	}
}

func TestRegistry_Sync(t *testing.T) {
	reg := NewRegistry(nil, nil)
	dir := newNodeProject(t, `{"scripts":{"dev":"vite"}}`, "")

	created, updated := reg.Sync([]Declaration{
		{ID: "web", Name: "Web", Path: dir},
		{ID: "broken", Path: t.TempDir()},
	})
	assert.Equal(t, 1, created)
	assert.Equal(t, 0, updated)

	reg.MarkRunning("web", 99)

	created, updated = reg.Sync([]Declaration{
		{ID: "web", Name: "Web App", Path: dir, StartCommand: "start"},
	})
	assert.Equal(t, 0, created)
	assert.Equal(t, 1, updated)

	p, err := reg.Get("web")
	require.NoError(t, err)
	assert.Equal(t, "Web App", p.Name)
	assert.Equal(t, "start", p.StartCommand)
	assert.Equal(t, 99, p.PID, "runtime state survives a reload")
	assert.Len(t, reg.List(), 1)
}

func TestRegistry_PublishesLifecycleEvents(t *testing.T) {
	bus := events.NewMemoryBus(events.BusConfig{})
	defer bus.Close()

	var mu sync.Mutex
	var types []string
	_, err := bus.Subscribe("project.*", func(ctx context.Context, e events.Event) error {
		mu.Lock()
		types = append(types, e.Type)
		mu.Unlock()
		return nil
	})
	require.NoError(t, err)

	reg := NewRegistry(nil, bus)
	_, err = reg.Create(CreateRequest{ID: "web", Path: newNodeProject(t, `{}`, "")})
	require.NoError(t, err)
	name := "x"
	_, err = reg.Update("web", UpdateRequest{Name: &name})
	require.NoError(t, err)
	require.NoError(t, reg.Delete("web"))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{events.EventProjectCreated, events.EventProjectUpdated, events.EventProjectDeleted}, types)
}
