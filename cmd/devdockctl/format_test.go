// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/wingedpig/devdock/pkg/client"
)

func TestPrinterProjectsPlain(t *testing.T) {
	var buf bytes.Buffer
	p := &printer{w: &buf, styles: newStyles(false)}

	p.projects([]client.Project{
		{ID: "web", Name: "Web App", Status: "running", PID: 4242, URL: "http://localhost:5173/"},
		{ID: "api", Name: "API", Status: "stopped"},
	})

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	assert.Len(t, lines, 4)
	assert.True(t, strings.HasPrefix(lines[0], "ID"))
	assert.Contains(t, lines[2], "running")
	assert.Contains(t, lines[2], "4242")
	assert.Contains(t, lines[2], "http://localhost:5173/")
	assert.Contains(t, lines[3], "stopped")
	assert.NotContains(t, buf.String(), "\x1b[", "plain output must not carry escape codes")

	// Status column stays aligned without colour.
	assert.Equal(t, strings.Index(lines[2], "running"), strings.Index(lines[3], "stopped"))
}

func TestPrinterEntry(t *testing.T) {
	var buf bytes.Buffer
	p := &printer{w: &buf, styles: newStyles(false)}

	ts := time.Date(2026, 10, 18, 9, 30, 15, 0, time.UTC)
	p.entry(client.LogEntry{Timestamp: ts.Format(time.RFC3339Nano), Level: "error", Message: "Failed to compile"})
	p.entry(client.LogEntry{Timestamp: "garbage", Level: "info", Message: "ready"})

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	assert.Equal(t, ts.Local().Format("15:04:05")+" ERROR Failed to compile", lines[0])
	assert.Equal(t, "--:--:-- INFO  ready", lines[1])
}

func TestPrinterEvent(t *testing.T) {
	var buf bytes.Buffer
	p := &printer{w: &buf, styles: newStyles(false)}

	p.event(client.Event{
		Type:      "project.endpoint",
		Project:   "web",
		Timestamp: time.Now(),
		Payload:   map[string]interface{}{"url": "http://localhost:3000/", "port": 3000},
	})

	assert.Contains(t, buf.String(), "project.endpoint")
	assert.Contains(t, buf.String(), "port=3000 url=http://localhost:3000/")
}

func TestStylesDisabledPassThrough(t *testing.T) {
	s := newStyles(false)
	assert.Equal(t, "ERROR", s.level("error", "ERROR"))
	assert.Equal(t, "running", s.status("running", "running"))
}

func TestEntryFilter(t *testing.T) {
	entries := []client.LogEntry{
		{Level: "info", Message: "Compiled successfully"},
		{Level: "error", Message: "Failed to COMPILE"},
		{Level: "warn", Message: "deprecated"},
	}

	count := func(f func(client.LogEntry) bool) int {
		n := 0
		for _, e := range entries {
			if f(e) {
				n++
			}
		}
		return n
	}

	assert.Equal(t, 3, count(entryFilter("", "")))
	assert.Equal(t, 2, count(entryFilter("", "compile")))
	assert.Equal(t, 1, count(entryFilter("error", "compile")))
	assert.Equal(t, 1, count(entryFilter("Warning", "")))
}

func TestFormatUptime(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{-time.Second, "-"},
		{42 * time.Second, "42s"},
		{3*time.Minute + 5*time.Second, "3m5s"},
		{2*time.Hour + 7*time.Minute, "2h7m"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, formatUptime(tt.d), tt.d.String())
	}
}

func TestFormatBytes(t *testing.T) {
	assert.Equal(t, "512 B", formatBytes(512))
	assert.Equal(t, "1.5 KiB", formatBytes(1536))
	assert.Equal(t, "2.0 MiB", formatBytes(2*1024*1024))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcdefg...", truncate("abcdefghijklmnop", 10))
	assert.Equal(t, "ab", truncate("abcdef", 2))
}
