// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package output turns raw dev-server output into log entries: it strips
// terminal control sequences, assigns levels and spots readiness URLs.
package output

import (
	"regexp"
	"strings"
)

// controlSeq matches CSI sequences (colors, cursor movement), OSC sequences
// (window titles, hyperlinks) terminated by BEL or ST, and two-byte escapes.
var controlSeq = regexp.MustCompile(`\x1b\[[0-?]*[ -/]*[@-~]|\x1b\][^\x07\x1b]*(?:\x07|\x1b\\)|\x1b[@-Z\\-_]`)

// StripControlCodes removes ANSI escape sequences from s.
func StripControlCodes(s string) string {
	if !strings.ContainsRune(s, '\x1b') {
		return s
	}
	return controlSeq.ReplaceAllString(s, "")
}
