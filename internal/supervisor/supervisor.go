// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package supervisor

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/wingedpig/devdock/internal/logs"
	"github.com/wingedpig/devdock/internal/output"
)

const (
	// Lines longer than this are truncated.
	maxLineLen = 1024 * 1024

	// How long the exit waiter lets the output pumps finish after the
	// process is reaped. Grandchildren may hold the pipes open forever.
	drainTimeout = 500 * time.Millisecond
)

// record exists while a process is tracked.
type record struct {
	projectID string
	cmd       *exec.Cmd
	pid       int
	command   string
	startedAt time.Time

	done chan struct{} // closed once the process has been reaped
	exit exitResult    // valid after done is closed

	// Set by the first Stop; later Stops wait on stopped.
	stopping   bool
	stopped    chan struct{}
	stopResult bool
}

type exitResult struct {
	code   int
	signal string
	err    error // non-nil for errors other than a normal exit status
}

// Supervisor owns the running dev-server processes. At most one process is
// tracked per project.
type Supervisor struct {
	logs     *logs.Buffer
	notifier *Notifier
	detector *output.Detector
	term     Terminator
	env      *Environment

	stopTimeout time.Duration
	forceGrace  time.Duration
	forceColor  bool
	augmentPath bool

	mu       sync.Mutex
	records  map[string]*record
	starting map[string]bool
}

// New creates a supervisor writing output to buf and reporting through n.
func New(buf *logs.Buffer, n *Notifier, opts Options) *Supervisor {
	if n == nil {
		n = NewNotifier(nil)
	}
	s := &Supervisor{
		logs:        buf,
		notifier:    n,
		detector:    opts.Detector,
		term:        opts.Terminator,
		env:         opts.Environment,
		stopTimeout: opts.StopTimeout,
		forceGrace:  opts.ForceGrace,
		forceColor:  opts.ForceColor,
		augmentPath: opts.AugmentPath,
		records:     make(map[string]*record),
		starting:    make(map[string]bool),
	}
	if s.detector == nil {
		s.detector = output.NewDetector()
	}
	if s.term == nil {
		s.term = NewTerminator()
	}
	if s.env == nil {
		s.env = HostEnvironment()
	}
	if s.stopTimeout <= 0 {
		s.stopTimeout = DefaultStopTimeout
	}
	if s.forceGrace <= 0 {
		s.forceGrace = DefaultForceGrace
	}
	return s
}

// Notifier returns the notifier used for lifecycle callbacks.
func (s *Supervisor) Notifier() *Notifier {
	return s.notifier
}

// Start launches the project's dev server. It returns as soon as the OS has
// created the process.
func (s *Supervisor) Start(ctx context.Context, h ProjectHandle) StartResult {
	s.mu.Lock()
	if _, ok := s.records[h.ID]; ok || s.starting[h.ID] {
		s.mu.Unlock()
		return StartResult{Err: ErrAlreadyRunning}
	}
	s.starting[h.ID] = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.starting, h.ID)
		s.mu.Unlock()
	}()

	s.logs.Clear(h.ID)
	s.append(h.ID, logs.LevelInfo, "Logs cleared before project start")

	rec, err := s.spawn(ctx, h)
	if err != nil {
		s.append(h.ID, logs.LevelError, fmt.Sprintf("Failed to start project: %v", err))
		log.Printf("Supervisor: failed to start %s: %v", h.ID, err)
		return StartResult{Err: err}
	}

	log.Printf("Supervisor: started %s (pid %d): %s", h.ID, rec.pid, rec.command)
	return StartResult{Success: true, PID: rec.pid}
}

func (s *Supervisor) spawn(ctx context.Context, h ProjectHandle) (*record, error) {
	name, args, err := ResolveCommand(h.PackageManager, h.StartCommand)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSpawnFailed, err)
	}

	pathValue := os.Getenv("PATH")
	if s.augmentPath {
		pathValue = AugmentPath(pathValue, s.env)
	}

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSpawnFailed, err)
	}

	// Not CommandContext: the process must outlive the request that started it.
	cmd := exec.Command(lookPath(name, pathValue, s.env), args...)
	cmd.Dir = h.Path
	cmd.Env = buildEnv(os.Environ(), pathValue, s.forceColor)
	configureCommand(cmd)

	// The child gets the write ends directly so Wait does not depend on
	// pipe closure.
	stdoutR, stdoutW, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("%w: stdout pipe: %v", ErrSpawnFailed, err)
	}
	stderrR, stderrW, err := os.Pipe()
	if err != nil {
		stdoutR.Close()
		stdoutW.Close()
		return nil, fmt.Errorf("%w: stderr pipe: %v", ErrSpawnFailed, err)
	}
	cmd.Stdout = stdoutW
	cmd.Stderr = stderrW

	stdin, err := cmd.StdinPipe()
	if err != nil {
		closeAll(stdoutR, stdoutW, stderrR, stderrW)
		return nil, fmt.Errorf("%w: stdin pipe: %v", ErrSpawnFailed, err)
	}

	if err := cmd.Start(); err != nil {
		closeAll(stdoutR, stdoutW, stderrR, stderrW, stdin)
		return nil, fmt.Errorf("%w: %v", ErrSpawnFailed, err)
	}
	// The child holds its own copies now.
	stdoutW.Close()
	stderrW.Close()

	if cmd.Process == nil || cmd.Process.Pid <= 0 {
		closeAll(stdoutR, stderrR, stdin)
		return nil, ErrSpawnFailed
	}

	rec := &record{
		projectID: h.ID,
		cmd:       cmd,
		pid:       cmd.Process.Pid,
		command:   commandLine(name, args),
		startedAt: time.Now(),
		done:      make(chan struct{}),
		stopped:   make(chan struct{}),
	}

	s.mu.Lock()
	s.records[h.ID] = rec
	s.mu.Unlock()

	s.append(h.ID, logs.LevelInfo, "Starting project: "+rec.command)

	var pumps sync.WaitGroup
	pumps.Add(2)
	go s.pump(h.ID, output.Stdout, stdoutR, &pumps)
	go s.pump(h.ID, output.Stderr, stderrR, &pumps)
	go s.waitForExit(rec, &pumps)

	return rec, nil
}

func closeAll(closers ...io.Closer) {
	for _, c := range closers {
		c.Close()
	}
}

// pump turns one output stream into log entries.
func (s *Supervisor) pump(projectID string, stream output.Stream, r io.ReadCloser, wg *sync.WaitGroup) {
	defer wg.Done()
	defer r.Close()

	br := bufio.NewReader(r)
	for {
		line, err := br.ReadString('\n')
		if len(line) > 0 {
			s.handleLine(projectID, stream, line)
		}
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, os.ErrClosed) {
				log.Printf("Supervisor: %s %s read error: %v", projectID, stream, err)
			}
			return
		}
	}
}

func (s *Supervisor) handleLine(projectID string, stream output.Stream, raw string) {
	line := strings.TrimSpace(output.StripControlCodes(raw))
	if line == "" {
		return
	}
	line = truncateLine(line, maxLineLen)

	if ep, ok := s.detector.Detect(line); ok {
		s.notifier.EndpointDetected(projectID, ep)
		s.append(projectID, logs.LevelInfo, output.Announcement(ep))
	}
	s.append(projectID, output.Classify(stream, line), line)
}

// truncateLine caps line at limit bytes without splitting a UTF-8 sequence.
func truncateLine(line string, limit int) string {
	if len(line) <= limit {
		return line
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(line[cut]) {
		cut--
	}
	return line[:cut] + "... [truncated]"
}

// waitForExit reaps the process, reports how it ended and releases Stop
// callers waiting on rec.done.
func (s *Supervisor) waitForExit(rec *record, pumps *sync.WaitGroup) {
	err := rec.cmd.Wait()

	drained := make(chan struct{})
	go func() {
		pumps.Wait()
		close(drained)
	}()
	select {
	case <-drained:
	case <-time.After(drainTimeout):
	}

	res := exitResult{code: -1}
	var exitErr *exec.ExitError
	switch {
	case err == nil, errors.As(err, &exitErr):
		if state := rec.cmd.ProcessState; state != nil {
			res.code = state.ExitCode()
			res.signal = exitSignal(state)
		}
	default:
		res.err = err
	}
	rec.exit = res

	removed := s.remove(rec)

	if res.err != nil {
		level := logs.LevelError
		if output.IsTransportAnomaly(res.err.Error()) {
			level = logs.LevelInfo
		}
		s.append(rec.projectID, level, fmt.Sprintf("Process error: %v", res.err))
	} else {
		level := logs.LevelInfo
		if res.code != 0 {
			level = logs.LevelError
		}
		msg := fmt.Sprintf("Process exited with code %d", res.code)
		if res.signal != "" {
			msg += fmt.Sprintf(" (%s)", res.signal)
		}
		s.append(rec.projectID, level, msg)
	}
	log.Printf("Supervisor: %s (pid %d) exited: code=%d signal=%q err=%v",
		rec.projectID, rec.pid, res.code, res.signal, res.err)

	if removed {
		s.notifier.StatusChanged(rec.projectID, StatusStopped)
	}
	close(rec.done)
}

// remove drops rec if it is still the project's current record.
func (s *Supervisor) remove(rec *record) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.records[rec.projectID]; ok && cur == rec {
		delete(s.records, rec.projectID)
		return true
	}
	return false
}

// Stop terminates the project's process. It returns true once the process
// is gone or the forced path has completed, and false only when the stop
// signal could not be sent. Stopping an untracked project returns true.
// Worst-case latency is StopTimeout plus ForceGrace.
func (s *Supervisor) Stop(projectID string) bool {
	s.mu.Lock()
	rec, ok := s.records[projectID]
	if !ok {
		s.mu.Unlock()
		return true
	}
	if rec.stopping {
		s.mu.Unlock()
		<-rec.stopped
		return rec.stopResult
	}
	rec.stopping = true
	s.mu.Unlock()

	result := s.drive(rec)

	rec.stopResult = result
	close(rec.stopped)
	return result
}

func (s *Supervisor) drive(rec *record) bool {
	id := rec.projectID
	s.append(id, logs.LevelInfo, "Stopping project...")

	if err := s.term.Terminate(rec.pid); err != nil && !errors.Is(err, ErrProcessGone) {
		s.append(id, logs.LevelError, fmt.Sprintf("Failed to stop project: %v", err))
		log.Printf("Supervisor: failed to signal %s (pid %d): %v", id, rec.pid, err)
		s.remove(rec)
		return false
	}

	timer := time.NewTimer(s.stopTimeout)
	defer timer.Stop()

	select {
	case <-rec.done:
		s.finishStop(rec)
		return true
	case <-timer.C:
	}

	if s.term.Alive(rec.pid) {
		if err := s.term.Kill(rec.pid); err != nil && !errors.Is(err, ErrProcessGone) {
			log.Printf("Supervisor: force kill of %s (pid %d) failed: %v", id, rec.pid, err)
		} else {
			s.append(id, logs.LevelWarn, "Process force killed after timeout")
		}
	}

	grace := time.NewTimer(s.forceGrace)
	defer grace.Stop()

	select {
	case <-rec.done:
		s.finishStop(rec)
	case <-grace.C:
		log.Printf("Supervisor: %s (pid %d) did not confirm exit, resolving stop", id, rec.pid)
		if s.remove(rec) {
			s.append(id, logs.LevelInfo, "Project stopped (forced)")
			s.notifier.StatusChanged(id, StatusStopped)
		}
	}
	return true
}

// finishStop records how a stopped process ended.
func (s *Supervisor) finishStop(rec *record) {
	id := rec.projectID
	res := rec.exit

	switch {
	case res.err != nil && output.IsTransportAnomaly(res.err.Error()):
		s.append(id, logs.LevelInfo, "Project stopped (WebSocket connection closed)")
	case res.err != nil:
		s.append(id, logs.LevelWarn, fmt.Sprintf("Process error during stop: %v", res.err))
	default:
		signal := res.signal
		if signal == "" {
			signal = "none"
		}
		s.append(id, logs.LevelInfo, fmt.Sprintf("Project stopped (code: %d, signal: %s)", res.code, signal))
	}

	if !s.IsRunning(id) {
		s.notifier.StatusChanged(id, StatusStopped)
	}
}

// StopAll signals every tracked project without waiting.
func (s *Supervisor) StopAll() {
	for _, id := range s.ListRunning() {
		go s.Stop(id)
	}
}

// StopAllAndWait stops every tracked project concurrently and waits until
// they resolve or ctx ends.
func (s *Supervisor) StopAllAndWait(ctx context.Context) error {
	ids := s.ListRunning()
	if len(ids) == 0 {
		return nil
	}

	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			s.Stop(id)
		}(id)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// IsRunning reports whether the project has a tracked process.
func (s *Supervisor) IsRunning(projectID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.records[projectID]
	return ok
}

// ListRunning returns the tracked project IDs, sorted.
func (s *Supervisor) ListRunning() []string {
	s.mu.Lock()
	ids := make([]string, 0, len(s.records))
	for id := range s.records {
		ids = append(ids, id)
	}
	s.mu.Unlock()

	sort.Strings(ids)
	return ids
}

// Info describes the project's tracked process.
func (s *Supervisor) Info(projectID string) (ProcessInfo, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[projectID]
	if !ok {
		return ProcessInfo{}, false
	}
	return ProcessInfo{
		ProjectID: rec.projectID,
		PID:       rec.pid,
		Command:   rec.command,
		StartedAt: rec.startedAt,
		Stopping:  rec.stopping,
	}, true
}

func (s *Supervisor) append(projectID string, level logs.Level, msg string) {
	s.logs.Append(projectID, logs.NewEntry(level, msg))
}
