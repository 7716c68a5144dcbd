// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package config handles devdock configuration loading.
package config

import (
	"time"
)

// Config is the root configuration structure for devdock.
type Config struct {
	Version    string           `json:"version"`
	Server     ServerConfig     `json:"server"`
	Supervisor SupervisorConfig `json:"supervisor"`
	Logging    LoggingConfig    `json:"logging"`
	Events     EventsConfig     `json:"events"`
	Watch      WatchConfig      `json:"watch"`
	Projects   []ProjectConfig  `json:"projects"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port int    `json:"port"`
	Host string `json:"host"`
}

// SupervisorConfig tunes process handling.
type SupervisorConfig struct {
	StopTimeout string `json:"stop_timeout"` // wait after SIGTERM before killing
	ForceGrace  string `json:"force_grace"`  // wait after SIGKILL before giving up
	ForceColor  *bool  `json:"force_color"`
	AugmentPath *bool  `json:"augment_path"`
}

// GetStopTimeout returns the graceful stop window.
func (s SupervisorConfig) GetStopTimeout() time.Duration {
	return ParseDuration(s.StopTimeout, 5*time.Second)
}

// GetForceGrace returns how long to wait after a forced kill.
func (s SupervisorConfig) GetForceGrace() time.Duration {
	return ParseDuration(s.ForceGrace, time.Second)
}

// IsForceColor reports whether FORCE_COLOR=1 is set for children. Defaults to true.
func (s SupervisorConfig) IsForceColor() bool {
	return s.ForceColor == nil || *s.ForceColor
}

// IsAugmentPath reports whether PATH gets well-known Node.js locations. Defaults to true.
func (s SupervisorConfig) IsAugmentPath() bool {
	return s.AugmentPath == nil || *s.AugmentPath
}

// LoggingConfig configures project log buffers.
type LoggingConfig struct {
	BufferSize int `json:"buffer_size"` // entries kept per project
}

// EventsConfig configures the event bus.
type EventsConfig struct {
	History HistoryConfig `json:"history"`
}

// HistoryConfig configures event history retention.
type HistoryConfig struct {
	MaxEvents int    `json:"max_events"`
	MaxAge    string `json:"max_age"`
}

// WatchConfig configures reloading of the config file.
type WatchConfig struct {
	Debounce string `json:"debounce"`
	Disabled bool   `json:"disabled"`
}

// ProjectConfig declares a project to register at startup.
type ProjectConfig struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Path           string `json:"path"`
	PackageManager string `json:"package_manager"`
	StartCommand   string `json:"start_command"`
}

// ParseDuration parses a duration string, returning defaultVal if empty or invalid.
func ParseDuration(s string, defaultVal time.Duration) time.Duration {
	if s == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return defaultVal
	}
	return d
}
