// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package supervisor

import (
	ps "github.com/mitchellh/go-ps"
)

// Terminator ends a process together with everything it spawned.
type Terminator interface {
	// Terminate asks the process tree to exit.
	Terminate(pid int) error
	// Kill forcibly ends the process tree.
	Kill(pid int) error
	// Alive reports whether pid still exists.
	Alive(pid int) bool
}

// processExists consults the process table.
func processExists(pid int) (bool, error) {
	p, err := ps.FindProcess(pid)
	if err != nil {
		return false, err
	}
	return p != nil, nil
}
