// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package supervisor

import (
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
)

// Environment is the host view used to locate package-manager executables.
type Environment struct {
	GOOS   string
	Home   string
	Getenv func(string) string
	// Exists reports whether dir is an existing directory.
	Exists func(dir string) bool
}

// HostEnvironment describes the running process.
func HostEnvironment() *Environment {
	home, _ := os.UserHomeDir()
	return &Environment{
		GOOS:   runtime.GOOS,
		Home:   home,
		Getenv: os.Getenv,
		Exists: isDir,
	}
}

func isDir(dir string) bool {
	fi, err := os.Stat(dir)
	return err == nil && fi.IsDir()
}

func (e *Environment) listSeparator() string {
	if e.GOOS == "windows" {
		return ";"
	}
	return ":"
}

func (e *Environment) getenv(key string) string {
	if e.Getenv == nil {
		return ""
	}
	return e.Getenv(key)
}

// AugmentPath appends well-known Node.js install locations to current.
// The result holds only existing directories, without duplicates. When no
// location is found current is returned unchanged.
func AugmentPath(current string, env *Environment) string {
	if env == nil {
		return current
	}
	exists := env.Exists
	if exists == nil {
		exists = isDir
	}

	sep := env.listSeparator()
	seen := make(map[string]bool)
	var parts []string
	for _, p := range strings.Split(current, sep) {
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		if exists(p) {
			parts = append(parts, p)
		}
	}

	added := false
	for _, dir := range candidateDirs(env) {
		if dir == "" || seen[dir] || !exists(dir) {
			continue
		}
		seen[dir] = true
		parts = append(parts, dir)
		added = true
	}

	if !added {
		return current
	}
	return strings.Join(parts, sep)
}

func candidateDirs(env *Environment) []string {
	home := env.Home
	if h := env.getenv("HOME"); h != "" && env.GOOS != "windows" {
		home = h
	}

	if env.GOOS == "windows" {
		programFiles := orDefault(env.getenv("ProgramFiles"), `C:\Program Files`)
		programFilesX86 := orDefault(env.getenv("ProgramFiles(x86)"), `C:\Program Files (x86)`)
		appData := orDefault(env.getenv("APPDATA"), filepath.Join(home, "AppData", "Roaming"))
		localAppData := orDefault(env.getenv("LOCALAPPDATA"), filepath.Join(home, "AppData", "Local"))
		voltaHome := orDefault(env.getenv("VOLTA_HOME"), filepath.Join(home, ".volta"))

		return []string{
			filepath.Join(programFiles, "nodejs"),
			filepath.Join(programFilesX86, "nodejs"),
			filepath.Join(appData, "npm"),
			filepath.Join(localAppData, "npm"),
			env.getenv("NVM_HOME"),
			filepath.Join(voltaHome, "bin"),
		}
	}

	dirs := []string{"/usr/local/bin", "/opt/homebrew/bin", "/usr/bin", "/bin"}
	if home == "" {
		return dirs
	}
	dirs = append(dirs, globDirs(filepath.Join(home, ".nvm", "versions", "node", "*", "bin"))...)
	dirs = append(dirs, filepath.Join(home, ".volta", "bin"))
	dirs = append(dirs, globDirs(filepath.Join(home, ".fnm", "node-versions", "*", "installation", "bin"))...)
	return dirs
}

// globDirs expands pattern; a malformed pattern yields nothing.
func globDirs(pattern string) []string {
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return nil
	}
	sort.Strings(matches)
	return matches
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// lookPath finds name in the given PATH value. It returns name unchanged
// when nothing matches so exec can report the failure.
func lookPath(name, pathValue string, env *Environment) string {
	if name == "" || strings.ContainsAny(name, `/\`) {
		return name
	}

	exts := []string{""}
	if env != nil && env.GOOS == "windows" {
		exts = []string{".cmd", ".exe", ".bat", ""}
	}

	sep := ":"
	if env != nil {
		sep = env.listSeparator()
	}
	for _, dir := range strings.Split(pathValue, sep) {
		if dir == "" {
			continue
		}
		for _, ext := range exts {
			candidate := filepath.Join(dir, name+ext)
			if isExecutable(candidate) {
				return candidate
			}
		}
	}
	return name
}

func isExecutable(path string) bool {
	fi, err := os.Stat(path)
	if err != nil || fi.IsDir() {
		return false
	}
	if runtime.GOOS == "windows" {
		return true
	}
	return fi.Mode()&0o111 != 0
}

// buildEnv returns base with PATH replaced and FORCE_COLOR set as requested.
func buildEnv(base []string, pathValue string, forceColor bool) []string {
	env := make([]string, 0, len(base)+2)
	pathSet := false
	for _, kv := range base {
		key, _, _ := strings.Cut(kv, "=")
		switch {
		case strings.EqualFold(key, "PATH"):
			if pathSet {
				continue
			}
			env = append(env, key+"="+pathValue)
			pathSet = true
		case forceColor && key == "FORCE_COLOR":
			continue
		default:
			env = append(env, kv)
		}
	}
	if !pathSet && pathValue != "" {
		env = append(env, "PATH="+pathValue)
	}
	if forceColor {
		env = append(env, "FORCE_COLOR=1")
	}
	return env
}
