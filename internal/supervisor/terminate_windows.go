// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

//go:build windows

package supervisor

import (
	"errors"
	"fmt"
	"log"
	"os"
	"os/exec"
	"strconv"
)

// treeTerminator uses taskkill to end the whole process tree since Windows
// has no process groups to signal.
type treeTerminator struct{}

// NewTerminator returns the platform terminator.
func NewTerminator() Terminator {
	return treeTerminator{}
}

func (t treeTerminator) Terminate(pid int) error {
	return t.Kill(pid)
}

func (treeTerminator) Kill(pid int) error {
	out, err := exec.Command("taskkill", "/pid", strconv.Itoa(pid), "/T", "/F").CombinedOutput()
	if err == nil {
		return nil
	}
	log.Printf("Supervisor: taskkill %d failed: %v (%s)", pid, err, out)

	p, ferr := os.FindProcess(pid)
	if ferr != nil {
		return ErrProcessGone
	}
	if kerr := p.Kill(); kerr != nil {
		if errors.Is(kerr, os.ErrProcessDone) {
			return ErrProcessGone
		}
		return fmt.Errorf("kill %d: %w", pid, kerr)
	}
	return nil
}

func (treeTerminator) Alive(pid int) bool {
	ok, err := processExists(pid)
	return err == nil && ok
}
