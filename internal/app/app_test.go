// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package app

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wingedpig/devdock/internal/events"
	"github.com/wingedpig/devdock/internal/supervisor"
)

func writeProject(t *testing.T, dir string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "package.json"), []byte(`{"name":"site","scripts":{"start":"node ."}}`), 0o644))
}

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "devdock.hjson")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestNew_RegistersDeclaredProjects(t *testing.T) {
	dir := t.TempDir()
	writeProject(t, filepath.Join(dir, "site"))
	path := writeConfig(t, dir, `{
		projects: [
			{ id: "site", path: "site" }
			{ id: "broken", path: "nowhere" }
		]
	}`)

	a, err := New(Options{ConfigPath: path, Port: -1, NoWatch: true})
	require.NoError(t, err)
	defer a.Shutdown(context.Background())

	projects := a.Controller().Registry().List()
	require.Len(t, projects, 1)
	p := projects[0]
	assert.Equal(t, "site", p.ID)
	assert.Equal(t, "site", p.Name)
	assert.Equal(t, "start", p.StartCommand)
	assert.Equal(t, filepath.Join(dir, "site"), p.Path)
	assert.Equal(t, supervisor.StatusStopped, p.Status)
}

func TestNew_Errors(t *testing.T) {
	_, err := New(Options{ConfigPath: filepath.Join(t.TempDir(), "missing.hjson")})
	assert.Error(t, err)

	path := writeConfig(t, t.TempDir(), `{ supervisor: { stop_timeout: "soon" } }`)
	_, err = New(Options{ConfigPath: path})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "supervisor.stop_timeout")
}

func TestNew_Defaults(t *testing.T) {
	a, err := New(Options{Host: "127.0.0.1", Port: 9999})
	require.NoError(t, err)
	defer a.Shutdown(context.Background())

	cfg := a.Config()
	assert.Equal(t, 9999, cfg.Server.Port)
	assert.Equal(t, 500, cfg.Logging.BufferSize)
	assert.Empty(t, a.Controller().Registry().List())
}

func TestReload_MergesNewDeclarations(t *testing.T) {
	dir := t.TempDir()
	writeProject(t, filepath.Join(dir, "one"))
	writeProject(t, filepath.Join(dir, "two"))
	path := writeConfig(t, dir, `{ projects: [ { id: "one", path: "one" } ] }`)

	a, err := New(Options{ConfigPath: path, Port: -1, NoWatch: true})
	require.NoError(t, err)
	defer a.Shutdown(context.Background())

	reloaded := make(chan events.Event, 1)
	_, err = a.EventBus().Subscribe(events.EventConfigReloaded, func(ctx context.Context, e events.Event) error {
		reloaded <- e
		return nil
	})
	require.NoError(t, err)

	writeConfig(t, dir, `{ projects: [ { id: "one", path: "one", name: "First" }, { id: "two", path: "two" } ] }`)
	require.NoError(t, a.Reload(context.Background()))

	reg := a.Controller().Registry()
	assert.Len(t, reg.List(), 2)
	one, err := reg.Get("one")
	require.NoError(t, err)
	assert.Equal(t, "First", one.Name)

	select {
	case e := <-reloaded:
		assert.Equal(t, 1, e.Payload["created"])
		assert.Equal(t, 1, e.Payload["updated"])
	case <-time.After(time.Second):
		t.Fatal("no config.reloaded event")
	}

	writeConfig(t, dir, `{ projects: [ { id: "one" } ] }`)
	assert.Error(t, a.Reload(context.Background()))
	assert.Len(t, reg.List(), 2)
}

func TestRun_WatchesConfigAndStops(t *testing.T) {
	dir := t.TempDir()
	writeProject(t, filepath.Join(dir, "one"))
	writeProject(t, filepath.Join(dir, "two"))
	path := writeConfig(t, dir, `{
		watch: { debounce: "50ms" }
		projects: [ { id: "one", path: "one" } ]
	}`)

	a, err := New(Options{ConfigPath: path, Host: "127.0.0.1", Port: -1})
	require.NoError(t, err)

	errCh := make(chan error, 1)
	go func() { errCh <- a.Run(context.Background()) }()

	select {
	case <-a.Ready():
	case err := <-errCh:
		t.Fatalf("Run failed: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("app never became ready")
	}

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + a.Addr() + "/api/v1/projects")
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		var body struct {
			Data []json.RawMessage `json:"data"`
		}
		return json.NewDecoder(resp.Body).Decode(&body) == nil && len(body.Data) == 1
	}, 5*time.Second, 50*time.Millisecond)

	writeConfig(t, dir, `{
		watch: { debounce: "50ms" }
		projects: [ { id: "one", path: "one" }, { id: "two", path: "two" } ]
	}`)
	require.Eventually(t, func() bool {
		_, err := a.Controller().Registry().Get("two")
		return err == nil
	}, 5*time.Second, 50*time.Millisecond)

	a.Stop()
	a.Stop()
	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("Run did not return")
	}
}
