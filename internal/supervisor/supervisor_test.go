// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package supervisor

import (
	"context"
	"errors"
	"runtime"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wingedpig/devdock/internal/logs"
	"github.com/wingedpig/devdock/internal/output"
)

type recorder struct {
	mu        sync.Mutex
	statuses  []Status
	endpoints []output.Endpoint
}

func (r *recorder) OnStatusChange(projectID string, status Status) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statuses = append(r.statuses, status)
}

func (r *recorder) OnEndpointDetected(projectID string, ep output.Endpoint) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.endpoints = append(r.endpoints, ep)
}

func (r *recorder) stoppedCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, s := range r.statuses {
		if s == StatusStopped {
			n++
		}
	}
	return n
}

func (r *recorder) endpointList() []output.Endpoint {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]output.Endpoint(nil), r.endpoints...)
}

func skipOnWindows(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("process tests use POSIX shell commands")
	}
}

func newTestSupervisor(t *testing.T, opts Options) (*Supervisor, *logs.Buffer, *recorder) {
	t.Helper()
	buf := logs.NewBuffer(0, nil)
	rec := &recorder{}
	n := NewNotifier(nil)
	n.Register(rec)
	s := New(buf, n, opts)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.StopAllAndWait(ctx)
	})
	return s, buf, rec
}

func handle(id, command string) ProjectHandle {
	return ProjectHandle{ID: id, Path: "", PackageManager: PackageManagerNPM, StartCommand: command}
}

func hasMessage(buf *logs.Buffer, id, fragment string) bool {
	for _, e := range buf.Get(id) {
		if strings.Contains(e.Message, fragment) {
			return true
		}
	}
	return false
}

func findEntry(buf *logs.Buffer, id, fragment string) (logs.Entry, bool) {
	for _, e := range buf.Get(id) {
		if strings.Contains(e.Message, fragment) {
			return e, true
		}
	}
	return logs.Entry{}, false
}

// exactEntry finds the entry whose message is exactly msg, so the
// "Starting project:" line echoing the command does not match.
func exactEntry(buf *logs.Buffer, id, msg string) (logs.Entry, bool) {
	for _, e := range buf.Get(id) {
		if e.Message == msg {
			return e, true
		}
	}
	return logs.Entry{}, false
}

func TestResolveCommand(t *testing.T) {
	tests := []struct {
		name    string
		pm      string
		command string
		wantCmd string
		wantArg []string
	}{
		{"pnpm script", PackageManagerPNPM, "dev", "pnpm", []string{"run", "dev"}},
		{"npm script", PackageManagerNPM, "dev", "npm", []string{"run", "dev"}},
		{"yarn script", PackageManagerYarn, "dev", "yarn", []string{"dev"}},
		{"unknown manager", "bun", "start", "npm", []string{"run", "start"}},
		{"custom command", PackageManagerPNPM, "node server.js", "node", []string{"server.js"}},
		{"quoted args", PackageManagerNPM, `sh -c "echo hi; sleep 1"`, "sh", []string{"-c", "echo hi; sleep 1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, args, err := ResolveCommand(tt.pm, tt.command)
			require.NoError(t, err)
			assert.Equal(t, tt.wantCmd, cmd)
			assert.Equal(t, tt.wantArg, args)
		})
	}

	_, _, err := ResolveCommand(PackageManagerNPM, "   ")
	assert.ErrorIs(t, err, ErrEmptyCommand)
}

func TestSplitCommand(t *testing.T) {
	tests := []struct {
		input    string
		expected []string
	}{
		{"cmd arg1 arg2", []string{"cmd", "arg1", "arg2"}},
		{"cmd\targ", []string{"cmd", "arg"}},
		{`"/path/to/my tool" --flag`, []string{"/path/to/my tool", "--flag"}},
		{`echo 'a "b" c'`, []string{"echo", `a "b" c`}},
		{`echo a\ b`, []string{"echo", "a b"}},
		{`echo ""`, []string{"echo", ""}},
		{"   ", nil},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, splitCommand(tt.input), tt.input)
	}
}

func TestStart_AlreadyRunning(t *testing.T) {
	skipOnWindows(t)
	s, _, _ := newTestSupervisor(t, Options{})

	first := s.Start(context.Background(), handle("web", "sleep 30"))
	require.NoError(t, first.Err)
	require.True(t, first.Success)
	assert.Greater(t, first.PID, 0)

	second := s.Start(context.Background(), handle("web", "sleep 30"))
	assert.False(t, second.Success)
	assert.ErrorIs(t, second.Err, ErrAlreadyRunning)

	assert.Equal(t, []string{"web"}, s.ListRunning())
	info, ok := s.Info("web")
	require.True(t, ok)
	assert.Equal(t, first.PID, info.PID)
	assert.Equal(t, "sleep 30", info.Command)
}

func TestStart_ConcurrentOnlyOneWins(t *testing.T) {
	skipOnWindows(t)
	s, _, _ := newTestSupervisor(t, Options{})

	var wg sync.WaitGroup
	results := make([]StartResult, 5)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = s.Start(context.Background(), handle("web", "sleep 30"))
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, r := range results {
		if r.Success {
			wins++
		} else {
			assert.ErrorIs(t, r.Err, ErrAlreadyRunning)
		}
	}
	assert.Equal(t, 1, wins)
	assert.Len(t, s.ListRunning(), 1)
}

func TestStop_NotRunningIsIdempotent(t *testing.T) {
	s, _, rec := newTestSupervisor(t, Options{})

	assert.True(t, s.Stop("missing"))
	assert.True(t, s.Stop("missing"))
	assert.Equal(t, 0, rec.stoppedCount())
}

func TestStart_CapturesOutputAndExit(t *testing.T) {
	skipOnWindows(t)
	s, buf, rec := newTestSupervisor(t, Options{})

	res := s.Start(context.Background(), handle("app", `sh -c "echo hello; echo 'Error: cannot find module x' >&2; echo 'warning: deprecated API' >&2; exit 3"`))
	require.True(t, res.Success)

	require.Eventually(t, func() bool { return rec.stoppedCount() > 0 }, 5*time.Second, 20*time.Millisecond)
	assert.False(t, s.IsRunning("app"))

	entries := buf.Get("app")
	require.NotEmpty(t, entries)
	assert.Equal(t, "Logs cleared before project start", entries[0].Message)
	assert.True(t, hasMessage(buf, "app", "Starting project: sh -c"))

	e, ok := exactEntry(buf, "app", "hello")
	require.True(t, ok)
	assert.Equal(t, logs.LevelInfo, e.Level)

	e, ok = exactEntry(buf, "app", "Error: cannot find module x")
	require.True(t, ok)
	assert.Equal(t, logs.LevelError, e.Level)

	e, ok = exactEntry(buf, "app", "warning: deprecated API")
	require.True(t, ok)
	assert.Equal(t, logs.LevelWarn, e.Level)

	e, ok = findEntry(buf, "app", "Process exited with code 3")
	require.True(t, ok)
	assert.Equal(t, logs.LevelError, e.Level)
}

func TestTruncateLine(t *testing.T) {
	assert.Equal(t, "short", truncateLine("short", 10))
	assert.Equal(t, "abcd... [truncated]", truncateLine("abcdefgh", 4))

	// "é" is two bytes; a cut at byte 2 would split it.
	got := truncateLine("aé€z", 2)
	assert.Equal(t, "a... [truncated]", got)
	assert.True(t, utf8.ValidString(got))

	got = truncateLine("€€€", 4)
	assert.Equal(t, "€... [truncated]", got)
	assert.True(t, utf8.ValidString(got))
}

func TestStart_CleanExitLogsInfo(t *testing.T) {
	skipOnWindows(t)
	s, buf, rec := newTestSupervisor(t, Options{})

	require.True(t, s.Start(context.Background(), handle("ok", "true now")).Success)
	require.Eventually(t, func() bool { return rec.stoppedCount() > 0 }, 5*time.Second, 20*time.Millisecond)

	e, ok := findEntry(buf, "ok", "Process exited with code 0")
	require.True(t, ok)
	assert.Equal(t, logs.LevelInfo, e.Level)
}

func TestStart_ClearsPreviousLogs(t *testing.T) {
	skipOnWindows(t)
	s, buf, _ := newTestSupervisor(t, Options{})

	buf.Append("web", logs.NewEntry(logs.LevelInfo, "stale line"))
	require.True(t, s.Start(context.Background(), handle("web", "sleep 30")).Success)

	assert.False(t, hasMessage(buf, "web", "stale line"))
}

func TestStart_SetsForceColor(t *testing.T) {
	skipOnWindows(t)
	s, buf, rec := newTestSupervisor(t, Options{ForceColor: true})

	require.True(t, s.Start(context.Background(), handle("env", `sh -c "echo color=$FORCE_COLOR"`)).Success)
	require.Eventually(t, func() bool { return rec.stoppedCount() > 0 }, 5*time.Second, 20*time.Millisecond)

	assert.True(t, hasMessage(buf, "env", "color=1"))
}

func TestStart_DetectsEndpoint(t *testing.T) {
	skipOnWindows(t)
	s, buf, rec := newTestSupervisor(t, Options{})

	res := s.Start(context.Background(), handle("vite", `sh -c "printf '\\033[32mLocal:\\033[0m   http://localhost:5173\\n'; sleep 30"`))
	require.True(t, res.Success)

	require.Eventually(t, func() bool { return len(rec.endpointList()) > 0 }, 5*time.Second, 20*time.Millisecond)
	ep := rec.endpointList()[0]
	assert.Equal(t, "http://localhost:5173/", ep.URL)
	assert.Equal(t, 5173, ep.Port)

	assert.True(t, hasMessage(buf, "vite", "Dev server available at http://localhost:5173/"))
	e, ok := findEntry(buf, "vite", "Local:")
	require.True(t, ok)
	assert.NotContains(t, e.Message, "\x1b")
}

func TestStart_SpawnFailed(t *testing.T) {
	s, buf, rec := newTestSupervisor(t, Options{})

	res := s.Start(context.Background(), handle("bad", "devdock-no-such-binary --port 1"))
	assert.False(t, res.Success)
	assert.ErrorIs(t, res.Err, ErrSpawnFailed)
	assert.False(t, s.IsRunning("bad"))
	assert.Equal(t, 0, rec.stoppedCount())

	e, ok := findEntry(buf, "bad", "Failed to start project")
	require.True(t, ok)
	assert.Equal(t, logs.LevelError, e.Level)

	// The failed attempt must not block a later start.
	res = s.Start(context.Background(), handle("bad", "devdock-no-such-binary --port 1"))
	assert.ErrorIs(t, res.Err, ErrSpawnFailed)
}

func TestStart_BadWorkingDirectory(t *testing.T) {
	skipOnWindows(t)
	s, _, _ := newTestSupervisor(t, Options{})

	h := handle("nodir", "sleep 1")
	h.Path = "/nonexistent/devdock/project"
	res := s.Start(context.Background(), h)
	assert.ErrorIs(t, res.Err, ErrSpawnFailed)
}

func TestStop_Graceful(t *testing.T) {
	skipOnWindows(t)
	s, buf, rec := newTestSupervisor(t, Options{})

	require.True(t, s.Start(context.Background(), handle("web", "sleep 30")).Success)

	start := time.Now()
	assert.True(t, s.Stop("web"))
	assert.Less(t, time.Since(start), 3*time.Second)

	assert.False(t, s.IsRunning("web"))
	assert.Empty(t, s.ListRunning())
	assert.GreaterOrEqual(t, rec.stoppedCount(), 1)

	assert.True(t, hasMessage(buf, "web", "Stopping project..."))
	assert.True(t, hasMessage(buf, "web", "Project stopped (code: -1, signal: SIGTERM)"))
	assert.False(t, hasMessage(buf, "web", "force killed"))
}

func TestStop_EscalatesWhenSignalIgnored(t *testing.T) {
	skipOnWindows(t)
	s, buf, rec := newTestSupervisor(t, Options{
		StopTimeout: 300 * time.Millisecond,
		ForceGrace:  300 * time.Millisecond,
	})

	require.True(t, s.Start(context.Background(), handle("stubborn", `sh -c "trap '' TERM; echo ready; sleep 30"`)).Success)
	require.Eventually(t, func() bool { return hasMessage(buf, "stubborn", "ready") }, 5*time.Second, 20*time.Millisecond)

	start := time.Now()
	assert.True(t, s.Stop("stubborn"))
	elapsed := time.Since(start)

	assert.GreaterOrEqual(t, elapsed, 300*time.Millisecond)
	assert.Less(t, elapsed, 3*time.Second)
	assert.False(t, s.IsRunning("stubborn"))
	assert.GreaterOrEqual(t, rec.stoppedCount(), 1)

	e, ok := findEntry(buf, "stubborn", "Process force killed after timeout")
	require.True(t, ok)
	assert.Equal(t, logs.LevelWarn, e.Level)
	assert.True(t, hasMessage(buf, "stubborn", "signal: SIGKILL"))
}

func TestStop_ConcurrentCallsAllSucceed(t *testing.T) {
	skipOnWindows(t)
	s, _, rec := newTestSupervisor(t, Options{})

	require.True(t, s.Start(context.Background(), handle("web", "sleep 30")).Success)

	var wg sync.WaitGroup
	results := make([]bool, 4)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = s.Stop("web")
		}(i)
	}
	wg.Wait()

	for _, r := range results {
		assert.True(t, r)
	}
	assert.False(t, s.IsRunning("web"))
	assert.GreaterOrEqual(t, rec.stoppedCount(), 1)
}

// fakeTerminator lets tests control signal delivery.
type fakeTerminator struct {
	terminateErr error
	alive        bool

	mu     sync.Mutex
	killed []int
}

func (f *fakeTerminator) Terminate(pid int) error { return f.terminateErr }

func (f *fakeTerminator) Kill(pid int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.killed = append(f.killed, pid)
	return nil
}

func (f *fakeTerminator) Alive(pid int) bool { return f.alive }

func TestStop_SignalFailureReturnsFalse(t *testing.T) {
	skipOnWindows(t)
	term := &fakeTerminator{terminateErr: errors.New("operation not permitted")}
	s, buf, _ := newTestSupervisor(t, Options{Terminator: term})

	res := s.Start(context.Background(), handle("web", "sleep 30"))
	require.True(t, res.Success)
	t.Cleanup(func() { NewTerminator().Kill(res.PID) })

	assert.False(t, s.Stop("web"))
	assert.False(t, s.IsRunning("web"), "record must be released even when the signal fails")

	e, ok := findEntry(buf, "web", "Failed to stop project")
	require.True(t, ok)
	assert.Equal(t, logs.LevelError, e.Level)
}

func TestStop_ForceResolvesWhenExitNeverConfirmed(t *testing.T) {
	skipOnWindows(t)
	term := &fakeTerminator{alive: true}
	s, buf, rec := newTestSupervisor(t, Options{
		Terminator:  term,
		StopTimeout: 100 * time.Millisecond,
		ForceGrace:  100 * time.Millisecond,
	})

	res := s.Start(context.Background(), handle("zombie", "sleep 30"))
	require.True(t, res.Success)
	t.Cleanup(func() { NewTerminator().Kill(res.PID) })

	start := time.Now()
	assert.True(t, s.Stop("zombie"))
	assert.Less(t, time.Since(start), 2*time.Second)

	assert.False(t, s.IsRunning("zombie"))
	assert.Equal(t, 1, rec.stoppedCount())
	assert.True(t, hasMessage(buf, "zombie", "Process force killed after timeout"))
	assert.True(t, hasMessage(buf, "zombie", "Project stopped (forced)"))

	term.mu.Lock()
	assert.Equal(t, []int{res.PID}, term.killed)
	term.mu.Unlock()
}

func TestStopAll(t *testing.T) {
	skipOnWindows(t)
	s, _, _ := newTestSupervisor(t, Options{})

	for _, id := range []string{"a", "b", "c"} {
		require.True(t, s.Start(context.Background(), handle(id, "sleep 30")).Success)
	}
	assert.Equal(t, []string{"a", "b", "c"}, s.ListRunning())

	s.StopAll()
	require.Eventually(t, func() bool { return len(s.ListRunning()) == 0 }, 5*time.Second, 20*time.Millisecond)
}

func TestStopAllAndWait(t *testing.T) {
	skipOnWindows(t)
	s, _, _ := newTestSupervisor(t, Options{})

	for _, id := range []string{"a", "b"} {
		require.True(t, s.Start(context.Background(), handle(id, "sleep 30")).Success)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, s.StopAllAndWait(ctx))
	assert.Empty(t, s.ListRunning())
}

func TestRestartAfterStop(t *testing.T) {
	skipOnWindows(t)
	s, _, _ := newTestSupervisor(t, Options{})

	first := s.Start(context.Background(), handle("web", "sleep 30"))
	require.True(t, first.Success)
	require.True(t, s.Stop("web"))

	second := s.Start(context.Background(), handle("web", "sleep 30"))
	require.True(t, second.Success)
	assert.NotEqual(t, first.PID, second.PID)
	assert.True(t, s.IsRunning("web"))
}
