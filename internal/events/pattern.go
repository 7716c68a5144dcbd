// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package events

import (
	"errors"
	"strings"
)

// ErrEmptyPattern is returned when subscribing with an empty pattern.
var ErrEmptyPattern = errors.New("empty pattern")

// Pattern is a compiled event-type pattern.
//
// Supported forms:
//   - "*" matches every type
//   - "project.*" matches "project.started", "project.stopped", ...
//   - "*.cleared" matches "logs.cleared"
//   - anything else must match exactly
type Pattern struct {
	raw    string
	prefix string
	suffix string
	any    bool
}

// CompilePattern validates and compiles a pattern.
func CompilePattern(raw string) (Pattern, error) {
	if raw == "" {
		return Pattern{}, ErrEmptyPattern
	}
	p := Pattern{raw: raw}
	switch {
	case raw == "*":
		p.any = true
	case strings.HasSuffix(raw, ".*"):
		p.prefix = strings.TrimSuffix(raw, "*")
	case strings.HasPrefix(raw, "*."):
		p.suffix = strings.TrimPrefix(raw, "*")
	}
	return p, nil
}

// Match reports whether eventType satisfies the pattern.
func (p Pattern) Match(eventType string) bool {
	if eventType == "" {
		return false
	}
	switch {
	case p.any:
		return true
	case p.prefix != "":
		return strings.HasPrefix(eventType, p.prefix)
	case p.suffix != "":
		return strings.HasSuffix(eventType, p.suffix)
	default:
		return eventType == p.raw
	}
}

// String returns the source pattern.
func (p Pattern) String() string {
	return p.raw
}

// MatchAny reports whether eventType satisfies any of the raw patterns.
// Invalid patterns never match.
func MatchAny(eventType string, patterns []string) bool {
	for _, raw := range patterns {
		p, err := CompilePattern(raw)
		if err != nil {
			continue
		}
		if p.Match(eventType) {
			return true
		}
	}
	return false
}
