// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package output

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wingedpig/devdock/internal/logs"
)

func TestStripControlCodes(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain", "hello world", "hello world"},
		{"color", "\x1b[32mready\x1b[0m in 300ms", "ready in 300ms"},
		{"bold and color", "\x1b[1m\x1b[36mVITE\x1b[39m\x1b[22m v5.0.0", "VITE v5.0.0"},
		{"cursor", "\x1b[2K\x1b[1Gbuilding", "building"},
		{"osc title", "\x1b]0;vite\x07done", "done"},
		{"osc hyperlink", "\x1b]8;;http://x\x1b\\link\x1b]8;;\x1b\\", "link"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StripControlCodes(tt.input))
		})
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		stream Stream
		line   string
		want   logs.Level
	}{
		{Stderr, "Error: cannot find module 'x'", logs.LevelError},
		{Stderr, "warning: deprecated API", logs.LevelWarn},
		{Stderr, "Build FAILED", logs.LevelError},
		{Stderr, "Unable to bind port", logs.LevelError},
		{Stderr, "compiling...", logs.LevelWarn},
		{Stdout, "Error: this goes to stdout", logs.LevelInfo},
		{Stdout, "ready", logs.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.stream.String()+"/"+tt.line, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.stream, tt.line))
		})
	}
}

func TestIsTransportAnomaly(t *testing.T) {
	assert.True(t, IsTransportAnomaly("Invalid WebSocket frame: RSV1 must be clear"))
	assert.True(t, IsTransportAnomaly("RSV1 must be clear"))
	assert.False(t, IsTransportAnomaly("spawn EACCES"))
}

func TestDetect(t *testing.T) {
	d := NewDetector()

	tests := []struct {
		name string
		line string
		url  string
		port int
	}{
		{"vite", "  ➜  Local:   http://localhost:5173/", "http://localhost:5173/", 5173},
		{"no trailing slash", "Local:   http://localhost:5173", "http://localhost:5173/", 5173},
		{"cra", "  Local:            http://localhost:3000", "http://localhost:3000/", 3000},
		{"next", "ready - started server on 0.0.0.0:3000, url: http://localhost:3000", "http://localhost:3000/", 3000},
		{"bare localhost", "Listening on http://localhost:8080", "http://localhost:8080/", 8080},
		{"bare loopback", "serving at https://127.0.0.1:4443/", "https://127.0.0.1:4443/", 4443},
		{"network ip via local label", "Local: http://192.168.1.5:5173/", "http://192.168.1.5:5173/", 5173},
		{"colored", "\x1b[32m  ➜\x1b[39m  \x1b[1mLocal\x1b[22m:   \x1b[36mhttp://localhost:\x1b[1m5173\x1b[22m/\x1b[39m", "http://localhost:5173/", 5173},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ep, ok := d.Detect(tt.line)
			require.True(t, ok)
			assert.Equal(t, tt.url, ep.URL)
			assert.Equal(t, tt.port, ep.Port)
		})
	}
}

func TestDetectNoMatch(t *testing.T) {
	d := NewDetector()
	for _, line := range []string{
		"",
		"compiled successfully",
		"see https://vitejs.dev/config for details",
		"localhost is fine",
	} {
		_, ok := d.Detect(line)
		assert.False(t, ok, line)
	}
}

func TestDetectFirstMatchWins(t *testing.T) {
	d := NewDetector()
	ep, ok := d.Detect("Local: http://localhost:5173/ Network: http://127.0.0.1:5173/")
	require.True(t, ok)
	assert.Equal(t, "http://localhost:5173/", ep.URL)
}

func TestDetectCustomMatchers(t *testing.T) {
	astro := RegexpMatcher(regexp.MustCompile(`https?://\[::1\]:\d+/?`))

	d := WithMatchers(astro)
	ep, ok := d.Detect("astro ready on http://[::1]:4321")
	require.True(t, ok)
	assert.Equal(t, "http://[::1]:4321/", ep.URL)
	assert.Equal(t, 4321, ep.Port)

	_, ok = d.Detect("Local: http://localhost:5173")
	assert.False(t, ok)

	base := NewDetector()
	custom := base.Prepend(RegexpMatcher(regexp.MustCompile(`https?://devbox:\d+`)))
	ep, ok = custom.Detect("url: http://localhost:1 then http://devbox:9000")
	require.True(t, ok)
	assert.Equal(t, "http://devbox:9000/", ep.URL)

	ep, ok = base.Detect("url: http://localhost:1 then http://devbox:9000")
	require.True(t, ok)
	assert.Equal(t, "http://localhost:1/", ep.URL)
}

func TestAnnouncement(t *testing.T) {
	assert.Equal(t, "Dev server available at http://localhost:5173/",
		Announcement(Endpoint{URL: "http://localhost:5173/", Port: 5173}))
}
