// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package supervisor

import (
	"strings"
)

// ResolveCommand turns a start command into an executable and arguments.
// A command containing whitespace is used as written; a bare word is a
// package.json script run through the project's package manager.
func ResolveCommand(packageManager, startCommand string) (string, []string, error) {
	startCommand = strings.TrimSpace(startCommand)
	if startCommand == "" {
		return "", nil, ErrEmptyCommand
	}

	if strings.ContainsAny(startCommand, " \t") {
		parts := splitCommand(startCommand)
		if len(parts) == 0 {
			return "", nil, ErrEmptyCommand
		}
		return parts[0], parts[1:], nil
	}

	switch packageManager {
	case PackageManagerPNPM:
		return "pnpm", []string{"run", startCommand}, nil
	case PackageManagerYarn:
		return "yarn", []string{startCommand}, nil
	default:
		return "npm", []string{"run", startCommand}, nil
	}
}

// commandLine renders name and args for log messages.
func commandLine(name string, args []string) string {
	if len(args) == 0 {
		return name
	}
	return name + " " + strings.Join(args, " ")
}

// splitCommand splits a command string on whitespace, respecting single and
// double quotes and backslash escapes.
func splitCommand(cmd string) []string {
	var result []string
	var current strings.Builder
	var inQuote rune
	var escape, quoted bool

	flush := func() {
		if current.Len() > 0 || quoted {
			result = append(result, current.String())
			current.Reset()
		}
		quoted = false
	}

	for _, r := range cmd {
		switch {
		case escape:
			current.WriteRune(r)
			escape = false
		case r == '\\' && inQuote != '\'':
			escape = true
		case inQuote != 0:
			if r == inQuote {
				inQuote = 0
			} else {
				current.WriteRune(r)
			}
		case r == '"' || r == '\'':
			inQuote = r
			quoted = true
		case r == ' ' || r == '\t':
			flush()
		default:
			current.WriteRune(r)
		}
	}
	flush()

	return result
}
