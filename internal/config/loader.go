// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hjson/hjson-go/v4"
	"gopkg.in/yaml.v3"
)

// Candidate file names searched by FindConfig, in order.
var configNames = []string{
	"devdock.hjson",
	"devdock.json",
	"devdock.yaml",
	"devdock.yml",
}

// Loader handles configuration file loading.
type Loader struct{}

// NewLoader creates a new config loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load reads and parses the configuration from the given path. Files ending
// in .yaml or .yml are read as YAML, everything else as HJSON (which
// accepts plain JSON too).
func (l *Loader) Load(ctx context.Context, path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return l.Parse(data, filepath.Ext(path))
}

// Parse decodes config data. ext selects the syntax as in Load.
func (l *Loader) Parse(data []byte, ext string) (*Config, error) {
	// Decode to an intermediate map, then go through JSON so both syntaxes
	// share the struct tags.
	var raw map[string]interface{}
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("parse yaml: %w", err)
		}
	default:
		if err := hjson.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("parse hjson: %w", err)
		}
	}
	if raw == nil {
		raw = map[string]interface{}{}
	}

	jsonData, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("convert to json: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(jsonData, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return &cfg, nil
}

// LoadWithDefaults loads config with default values applied.
func (l *Loader) LoadWithDefaults(ctx context.Context, path string) (*Config, error) {
	cfg, err := l.Load(ctx, path)
	if err != nil {
		return nil, err
	}

	ApplyDefaults(cfg, filepath.Dir(path))
	return cfg, nil
}

// FindConfig searches dir for a config file.
func (l *Loader) FindConfig(dir string) (string, error) {
	for _, name := range configNames {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			abs, err := filepath.Abs(path)
			if err != nil {
				return path, nil
			}
			return abs, nil
		}
	}

	return "", fmt.Errorf("config file not found (looked for %s)", strings.Join(configNames, ", "))
}

// Default returns a config with every default applied, for running
// without a config file.
func Default() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg, ".")
	return cfg
}

// ApplyDefaults sets default values for missing config fields. Relative
// project paths are resolved against baseDir.
func ApplyDefaults(cfg *Config, baseDir string) {
	if cfg.Version == "" {
		cfg.Version = "1"
	}

	// Server defaults
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 7733
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "127.0.0.1"
	}

	// Supervisor defaults
	if cfg.Supervisor.StopTimeout == "" {
		cfg.Supervisor.StopTimeout = "5s"
	}
	if cfg.Supervisor.ForceGrace == "" {
		cfg.Supervisor.ForceGrace = "1s"
	}

	if cfg.Logging.BufferSize == 0 {
		cfg.Logging.BufferSize = 500
	}

	// Events defaults
	if cfg.Events.History.MaxEvents == 0 {
		cfg.Events.History.MaxEvents = 10000
	}
	if cfg.Events.History.MaxAge == "" {
		cfg.Events.History.MaxAge = "1h"
	}

	if cfg.Watch.Debounce == "" {
		cfg.Watch.Debounce = "250ms"
	}

	for i := range cfg.Projects {
		p := &cfg.Projects[i]
		if p.Path != "" && !filepath.IsAbs(p.Path) {
			p.Path = filepath.Join(baseDir, p.Path)
		}
	}
}
