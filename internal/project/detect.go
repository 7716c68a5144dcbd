// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package project

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/tidwall/gjson"

	"github.com/wingedpig/devdock/internal/supervisor"
)

// DefaultStartScript is used when package.json names none of the known scripts.
const DefaultStartScript = "dev"

// scriptPriority lists the scripts tried, most preferred first.
var scriptPriority = []string{"dev", "start", "serve"}

// DetectPackageManager picks the package manager from the lockfile.
func DetectPackageManager(dir string) string {
	switch {
	case fileExists(filepath.Join(dir, "pnpm-lock.yaml")):
		return supervisor.PackageManagerPNPM
	case fileExists(filepath.Join(dir, "yarn.lock")):
		return supervisor.PackageManagerYarn
	default:
		return supervisor.PackageManagerNPM
	}
}

// ValidatePath checks that dir holds a package.json.
func ValidatePath(dir string) error {
	if dir == "" {
		return fmt.Errorf("%w: empty path", ErrInvalidPath)
	}
	if !fileExists(filepath.Join(dir, "package.json")) {
		return fmt.Errorf("%w: %s", ErrInvalidPath, dir)
	}
	return nil
}

// PackageInfo is what devdock reads from package.json.
type PackageInfo struct {
	Name        string
	StartScript string // "" when none of the known scripts exist
}

// ReadPackageInfo parses dir/package.json.
func ReadPackageInfo(dir string) (PackageInfo, error) {
	data, err := os.ReadFile(filepath.Join(dir, "package.json"))
	if err != nil {
		return PackageInfo{}, fmt.Errorf("read package.json: %w", err)
	}
	if !gjson.ValidBytes(data) {
		return PackageInfo{}, fmt.Errorf("parse package.json in %s: invalid JSON", dir)
	}

	info := PackageInfo{Name: gjson.GetBytes(data, "name").String()}
	scripts := gjson.GetBytes(data, "scripts")
	for _, name := range scriptPriority {
		if scripts.Get(name).String() != "" {
			info.StartScript = name
			break
		}
	}
	return info, nil
}

func fileExists(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && !fi.IsDir()
}
