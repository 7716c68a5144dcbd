// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/wingedpig/devdock/pkg/client"
)

type styles struct {
	enabled bool

	errorLevel lipgloss.Style
	warnLevel  lipgloss.Style
	infoLevel  lipgloss.Style
	running    lipgloss.Style
	stopped    lipgloss.Style
	failed     lipgloss.Style
	dim        lipgloss.Style
	header     lipgloss.Style
}

func newStyles(enabled bool) styles {
	return styles{
		enabled:    enabled,
		errorLevel: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("203")),
		warnLevel:  lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		infoLevel:  lipgloss.NewStyle().Foreground(lipgloss.Color("244")),
		running:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42")),
		stopped:    lipgloss.NewStyle().Foreground(lipgloss.Color("244")),
		failed:     lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("203")),
		dim:        lipgloss.NewStyle().Foreground(lipgloss.Color("240")),
		header:     lipgloss.NewStyle().Bold(true),
	}
}

func (s styles) render(st lipgloss.Style, text string) string {
	if !s.enabled {
		return text
	}
	return st.Render(text)
}

func (s styles) level(level, text string) string {
	switch level {
	case "error":
		return s.render(s.errorLevel, text)
	case "warn":
		return s.render(s.warnLevel, text)
	default:
		return s.render(s.infoLevel, text)
	}
}

func (s styles) status(status, text string) string {
	switch status {
	case "running":
		return s.render(s.running, text)
	case "error":
		return s.render(s.failed, text)
	default:
		return s.render(s.stopped, text)
	}
}

// printer writes human-readable output. Padding is applied before styling
// so escape codes never break column alignment.
type printer struct {
	w      io.Writer
	styles styles
}

func (p *printer) projects(projects []client.Project) {
	fmt.Fprintln(p.w, p.styles.render(p.styles.header,
		fmt.Sprintf("%-20s %-24s %-10s %-8s %s", "ID", "NAME", "STATUS", "PID", "URL")))
	fmt.Fprintln(p.w, strings.Repeat("-", 80))
	for _, proj := range projects {
		pid := "-"
		if proj.PID > 0 {
			pid = strconv.Itoa(proj.PID)
		}
		url := proj.URL
		if url == "" {
			url = "-"
		}
		fmt.Fprintf(p.w, "%-20s %-24s %s %-8s %s\n",
			truncate(proj.ID, 20),
			truncate(proj.Name, 24),
			p.styles.status(proj.Status, fmt.Sprintf("%-10s", proj.Status)),
			pid,
			url,
		)
	}
}

func (p *printer) project(proj *client.Project) {
	rows := [][2]string{
		{"ID", proj.ID},
		{"Name", proj.Name},
		{"Path", proj.Path},
		{"Package manager", proj.PackageManager},
		{"Start command", proj.StartCommand},
		{"Status", p.styles.status(proj.Status, proj.Status)},
	}
	if proj.PID > 0 {
		rows = append(rows, [2]string{"PID", strconv.Itoa(proj.PID)})
	}
	if proj.URL != "" {
		rows = append(rows, [2]string{"URL", proj.URL})
	}
	for _, r := range rows {
		fmt.Fprintf(p.w, "%-16s %s\n", r[0]+":", r[1])
	}
}

func (p *printer) running(procs []client.ProcessInfo) {
	fmt.Fprintln(p.w, p.styles.render(p.styles.header,
		fmt.Sprintf("%-20s %-8s %-10s %-9s %s", "PROJECT", "PID", "UPTIME", "STOPPING", "COMMAND")))
	fmt.Fprintln(p.w, strings.Repeat("-", 80))
	for _, proc := range procs {
		stopping := "no"
		if proc.Stopping {
			stopping = "yes"
		}
		fmt.Fprintf(p.w, "%-20s %-8d %-10s %-9s %s\n",
			truncate(proc.ProjectID, 20),
			proc.PID,
			formatUptime(time.Since(proc.StartedAt)),
			stopping,
			proc.Command,
		)
	}
}

// entry formats a log line as "15:04:05 LEVEL message" in local time.
func (p *printer) entry(e client.LogEntry) {
	ts := "--:--:--"
	if t := e.Time(); !t.IsZero() {
		ts = t.Local().Format("15:04:05")
	}
	fmt.Fprintf(p.w, "%s %s %s\n",
		p.styles.render(p.styles.dim, ts),
		p.styles.level(e.Level, fmt.Sprintf("%-5s", strings.ToUpper(e.Level))),
		e.Message,
	)
}

func (p *printer) event(e client.Event) {
	project := e.Project
	if project == "" {
		project = "-"
	}
	fmt.Fprintf(p.w, "%s %-22s %-20s %s\n",
		p.styles.render(p.styles.dim, e.Timestamp.Local().Format("15:04:05")),
		e.Type,
		truncate(project, 20),
		formatPayload(e.Payload),
	)
}

// formatPayload renders a payload as sorted key=value pairs.
func formatPayload(payload map[string]interface{}) string {
	if len(payload) == 0 {
		return ""
	}
	keys := make([]string, 0, len(payload))
	for k := range payload {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, payload[k]))
	}
	return strings.Join(parts, " ")
}

func formatUptime(d time.Duration) string {
	switch {
	case d < 0:
		return "-"
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	default:
		return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
	}
}

func formatBytes(n int) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := unit, 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGT"[exp])
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	if n <= 3 {
		return s[:n]
	}
	return s[:n-3] + "..."
}

// entryFilter matches entries the way the server's log query does: exact
// level, case-insensitive substring.
func entryFilter(level, query string) func(client.LogEntry) bool {
	level = strings.ToLower(strings.TrimSpace(level))
	if level == "warning" {
		level = "warn"
	}
	query = strings.ToLower(query)
	return func(e client.LogEntry) bool {
		if level != "" && e.Level != level {
			return false
		}
		return query == "" || strings.Contains(strings.ToLower(e.Message), query)
	}
}
