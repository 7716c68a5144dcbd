// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

//go:build !windows

package supervisor

import (
	"errors"
	"fmt"

	"golang.org/x/sys/unix"
)

// groupTerminator signals the process group led by the child. Children are
// started with Setpgid, so the group holds the bundler workers too.
type groupTerminator struct{}

// NewTerminator returns the platform terminator.
func NewTerminator() Terminator {
	return groupTerminator{}
}

func (groupTerminator) Terminate(pid int) error {
	return signalTree(pid, unix.SIGTERM)
}

func (groupTerminator) Kill(pid int) error {
	return signalTree(pid, unix.SIGKILL)
}

func (groupTerminator) Alive(pid int) bool {
	if ok, err := processExists(pid); err == nil {
		return ok
	}
	return unix.Kill(pid, 0) == nil
}

func signalTree(pid int, sig unix.Signal) error {
	if pid <= 0 {
		return fmt.Errorf("invalid pid %d", pid)
	}

	err := unix.Kill(-pid, sig)
	if err == nil {
		return nil
	}

	// No such group: fall back to the process alone.
	if err := unix.Kill(pid, sig); err != nil {
		if errors.Is(err, unix.ESRCH) {
			return ErrProcessGone
		}
		return fmt.Errorf("send %s to %d: %w", unix.SignalName(sig), pid, err)
	}
	return nil
}
