// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// devdock runs local Node.js dev servers and serves an API to control them.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/wingedpig/devdock/internal/app"
	"github.com/wingedpig/devdock/internal/config"
)

var (
	version = "0.3.0"
)

func main() {
	// Check for subcommands before flag parsing
	if len(os.Args) > 1 && os.Args[1] == "init" {
		if err := runInit(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		os.Exit(0)
	}

	var (
		configPath  string
		host        string
		port        int
		noWatch     bool
		showVersion bool
	)

	flag.StringVar(&configPath, "config", "", "Path to config file (default: auto-detect in the current directory)")
	flag.StringVar(&configPath, "c", "", "Path to config file (short)")
	flag.StringVar(&host, "host", "", "HTTP server host (overrides config)")
	flag.IntVar(&port, "port", 0, "HTTP server port (overrides config)")
	flag.BoolVar(&noWatch, "no-watch", false, "Do not reload the config file when it changes")
	flag.BoolVar(&showVersion, "version", false, "Show version")
	flag.BoolVar(&showVersion, "v", false, "Show version (short)")
	flag.Parse()

	if showVersion {
		fmt.Printf("devdock %s\n", version)
		os.Exit(0)
	}

	// A missing config is fine; built-in defaults apply.
	if configPath == "" {
		if found, err := config.NewLoader().FindConfig("."); err == nil {
			configPath = found
		}
	}
	if configPath != "" {
		log.Printf("Using config: %s", configPath)
	} else {
		log.Printf("No config file found, using defaults")
	}

	application, err := app.New(app.Options{
		ConfigPath: configPath,
		Host:       host,
		Port:       port,
		NoWatch:    noWatch,
		Version:    version,
	})
	if err != nil {
		log.Fatalf("Failed to create app: %v", err)
	}

	if err := application.Run(context.Background()); err != nil {
		log.Fatalf("App error: %v", err)
	}
}
