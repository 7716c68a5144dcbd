// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/wingedpig/devdock/internal/project"
)

const configFile = "devdock.hjson"

var configTemplate = template.Must(template.New("config").Parse(`// devdock configuration
{
  server: {
    host: 127.0.0.1
    port: {{.Port}}
  }

  supervisor: {
    // Wait this long after SIGTERM before killing the process group.
    stop_timeout: 5s
    // Wait this long after the kill before giving up on the process.
    force_grace: 1s
    // Set FORCE_COLOR=1 so dev servers keep their colours.
    force_color: true
    // Add nvm, volta, fnm and Homebrew locations to PATH.
    augment_path: true
  }

  logging: {
    // Entries kept per project; oldest are dropped first.
    buffer_size: 500
  }

  projects: [
{{- range .Projects}}
    {
      id: {{printf "%q" .ID}}
      name: {{printf "%q" .Name}}
      path: {{printf "%q" .Path}}
      package_manager: {{printf "%q" .PackageManager}}
      start_command: {{printf "%q" .StartCommand}}
    }
{{- end}}
  ]
}
`))

type initProject struct {
	ID             string
	Name           string
	Path           string
	PackageManager string
	StartCommand   string
}

// runInit handles "devdock init": it writes a commented config file and
// declares every node project found in the directory and its children.
func runInit(args []string) error {
	initFlags := flag.NewFlagSet("init", flag.ExitOnError)
	port := initFlags.Int("port", 7733, "API port to write into the config")
	force := initFlags.Bool("force", false, "Overwrite an existing config file")
	initFlags.Parse(args)

	dir := "."
	if initFlags.NArg() > 0 {
		dir = initFlags.Arg(0)
	}

	target := filepath.Join(dir, configFile)
	if _, err := os.Stat(target); err == nil && !*force {
		return fmt.Errorf("%s already exists; use -force to overwrite", target)
	}

	projects, err := discoverProjects(dir)
	if err != nil {
		return err
	}

	f, err := os.Create(target)
	if err != nil {
		return fmt.Errorf("create %s: %w", target, err)
	}
	defer f.Close()

	if err := writeConfig(f, *port, projects); err != nil {
		return err
	}

	fmt.Printf("Wrote %s with %d project(s)\n", target, len(projects))
	return nil
}

// discoverProjects looks at dir itself and its immediate subdirectories.
func discoverProjects(dir string) ([]initProject, error) {
	candidates := []string{"."}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", dir, err)
	}
	for _, e := range entries {
		if e.IsDir() && !strings.HasPrefix(e.Name(), ".") && e.Name() != "node_modules" {
			candidates = append(candidates, e.Name())
		}
	}

	var projects []initProject
	for _, rel := range candidates {
		full := filepath.Join(dir, rel)
		if project.ValidatePath(full) != nil {
			continue
		}

		info, err := project.ReadPackageInfo(full)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		}

		name := info.Name
		if name == "" {
			name = filepath.Base(mustAbs(full))
		}
		script := info.StartScript
		if script == "" {
			script = project.DefaultStartScript
		}

		projects = append(projects, initProject{
			ID:             projectID(name),
			Name:           name,
			Path:           filepath.ToSlash(filepath.Join(".", rel)),
			PackageManager: project.DetectPackageManager(full),
			StartCommand:   script,
		})
	}
	return projects, nil
}

func writeConfig(w io.Writer, port int, projects []initProject) error {
	return configTemplate.Execute(w, struct {
		Port     int
		Projects []initProject
	}{port, projects})
}

// projectID turns a package name such as "@acme/web-app" into "acme-web-app".
func projectID(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		case b.Len() > 0:
			b.WriteRune('-')
		}
	}
	return strings.Trim(b.String(), "-")
}

func mustAbs(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return p
}
