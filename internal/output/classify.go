// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package output

import (
	"strings"

	"github.com/wingedpig/devdock/internal/logs"
)

// Stream identifies which pipe a line arrived on.
type Stream int

const (
	Stdout Stream = iota
	Stderr
)

func (s Stream) String() string {
	if s == Stderr {
		return "stderr"
	}
	return "stdout"
}

// ErrorKeywords promote a stderr line to error level.
var ErrorKeywords = []string{"error", "failed", "exception", "cannot", "unable"}

// Classify assigns a level to a line. Stdout is always info. Many tools
// write progress to stderr, so stderr is warn unless the line looks like
// an error.
func Classify(stream Stream, line string) logs.Level {
	if stream != Stderr {
		return logs.LevelInfo
	}
	if IsErrorText(line) {
		return logs.LevelError
	}
	return logs.LevelWarn
}

// IsErrorText reports whether line contains one of ErrorKeywords,
// ignoring case.
func IsErrorText(line string) bool {
	lower := strings.ToLower(line)
	for _, kw := range ErrorKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// TransportAnomalies are fragments of process error messages raised by
// dev-server tooling when its sockets are torn down during shutdown.
var TransportAnomalies = []string{"WebSocket", "RSV1"}

// IsTransportAnomaly reports whether msg is a socket teardown artifact
// rather than a real failure.
func IsTransportAnomaly(msg string) bool {
	for _, frag := range TransportAnomalies {
		if strings.Contains(msg, frag) {
			return true
		}
	}
	return false
}
