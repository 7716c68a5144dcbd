// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/wingedpig/devdock/pkg/client"
)

// logsConfig holds parsed command-line options for the logs command
type logsConfig struct {
	level  string
	query  string
	follow bool
	errors int
	clear  bool
	stats  bool
	all    bool
}

var logsOpts logsConfig

var cmdLogs = &cobra.Command{
	Use:   "logs <id>",
	Short: "Show, follow or clear a project's buffered output",
	Long: `Show a project's buffered output.

  devdockctl logs web                  all buffered lines
  devdockctl logs web --level error    only errors
  devdockctl logs web -q compiled      lines containing "compiled"
  devdockctl logs web -f               print buffered lines, then follow
  devdockctl logs web --errors 5       the five most recent errors
  devdockctl logs web --stats          line counts by level
  devdockctl logs web --clear          drop the buffered lines
  devdockctl logs --clear --all        drop every project's lines`,
	Args: func(cmd *cobra.Command, args []string) error {
		if logsOpts.all {
			return cobra.NoArgs(cmd, args)
		}
		return cobra.ExactArgs(1)(cmd, args)
	},
	RunE: runLogs,
}

var cmdUsage = &cobra.Command{
	Use:   "usage",
	Short: "Show log buffer memory usage",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		usage, err := apiClient.Logs.Usage(cmd.Context())
		if err != nil {
			return err
		}
		if jsonOutput {
			printJSON(cmd.OutOrStdout(), usage)
			return nil
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Projects: %d\nEntries:  %d\nMemory:   ~%s\n",
			usage.Projects, usage.Entries, formatBytes(usage.EstimatedBytes))
		return nil
	},
}

func init() {
	f := cmdLogs.Flags()
	f.StringVar(&logsOpts.level, "level", "", "Only show entries at this level (info, warn, error)")
	f.StringVarP(&logsOpts.query, "query", "q", "", "Only show entries containing this text")
	f.BoolVarP(&logsOpts.follow, "follow", "f", false, "Keep streaming new entries")
	f.IntVar(&logsOpts.errors, "errors", 0, "Show the N most recent errors")
	f.BoolVar(&logsOpts.clear, "clear", false, "Clear buffered entries")
	f.BoolVar(&logsOpts.stats, "stats", false, "Show entry counts by level")
	f.BoolVar(&logsOpts.all, "all", false, "With --clear, clear every project")

	rootCmd.AddCommand(cmdLogs, cmdUsage)
}

func runLogs(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	if logsOpts.all {
		if !logsOpts.clear {
			return fmt.Errorf("--all is only valid with --clear")
		}
		if err := apiClient.Logs.ClearAll(ctx); err != nil {
			return err
		}
		fmt.Fprintln(out, "Cleared all logs")
		return nil
	}

	id := args[0]
	switch {
	case logsOpts.clear:
		if err := apiClient.Logs.Clear(ctx, id); err != nil {
			return err
		}
		fmt.Fprintf(out, "Cleared logs for %s\n", id)
		return nil

	case logsOpts.stats:
		stats, err := apiClient.Logs.Stats(ctx, id)
		if err != nil {
			return err
		}
		if jsonOutput {
			printJSON(out, stats)
			return nil
		}
		fmt.Fprintf(out, "Total:    %d\nErrors:   %d\nWarnings: %d\n", stats.Total, stats.Errors, stats.Warnings)
		return nil

	case logsOpts.errors > 0:
		entries, err := apiClient.Logs.Errors(ctx, id, logsOpts.errors)
		if err != nil {
			return err
		}
		return printEntries(cmd, entries)

	case logsOpts.follow:
		return followLogs(cmd, id)
	}

	entries, err := apiClient.Logs.Get(ctx, id, &client.LogQuery{Query: logsOpts.query, Level: logsOpts.level})
	if err != nil {
		return err
	}
	return printEntries(cmd, entries)
}

func printEntries(cmd *cobra.Command, entries []client.LogEntry) error {
	if jsonOutput {
		printJSON(cmd.OutOrStdout(), entries)
		return nil
	}
	p := newPrinter(cmd)
	for _, e := range entries {
		p.entry(e)
	}
	return nil
}

// followLogs streams until interrupted. The level and query filters are
// applied locally since the stream carries every entry.
func followLogs(cmd *cobra.Command, id string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	filter := entryFilter(logsOpts.level, logsOpts.query)
	p := newPrinter(cmd)
	emit := func(e client.LogEntry) {
		if !filter(e) {
			return
		}
		if jsonOutput {
			printJSON(p.w, e)
			return
		}
		p.entry(e)
	}

	return apiClient.Logs.Stream(ctx, id, func(msg client.LogMessage) error {
		switch msg.Type {
		case "snapshot":
			for _, e := range msg.Entries {
				emit(e)
			}
		case "entry":
			if msg.Entry != nil {
				emit(*msg.Entry)
			}
		case "cleared":
			if !jsonOutput {
				fmt.Fprintln(p.w, p.styles.render(p.styles.dim, "--- logs cleared ---"))
			}
		}
		return nil
	})
}
