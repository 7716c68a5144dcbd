// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

//go:build !windows

package supervisor

import (
	"os"
	"os/exec"
	"syscall"

	"golang.org/x/sys/unix"
)

// configureCommand puts the child in its own process group.
func configureCommand(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

// exitSignal names the signal that ended the process, if any.
func exitSignal(state *os.ProcessState) string {
	if state == nil {
		return ""
	}
	ws, ok := state.Sys().(syscall.WaitStatus)
	if !ok || !ws.Signaled() {
		return ""
	}
	return unix.SignalName(unix.Signal(ws.Signal()))
}
