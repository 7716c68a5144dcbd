// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wingedpig/devdock/pkg/client"
)

var eventsOpts struct {
	limit   int
	types   []string
	project string
	since   time.Duration
	watch   string
}

var cmdEvents = &cobra.Command{
	Use:   "events",
	Short: "Show recent events, or watch them live with --watch",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Flags().Changed("watch") {
			return watchEvents(cmd)
		}

		opts := &client.ListOptions{
			Limit:   eventsOpts.limit,
			Types:   eventsOpts.types,
			Project: eventsOpts.project,
		}
		if eventsOpts.since > 0 {
			opts.Since = time.Now().Add(-eventsOpts.since)
		}
		evts, err := apiClient.Events.List(cmd.Context(), opts)
		if err != nil {
			return err
		}
		if jsonOutput {
			printJSON(cmd.OutOrStdout(), evts)
			return nil
		}
		p := newPrinter(cmd)
		for _, e := range evts {
			p.event(e)
		}
		return nil
	},
}

func watchEvents(cmd *cobra.Command) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pattern := eventsOpts.watch
	if pattern == "" {
		pattern = "*"
	}
	p := newPrinter(cmd)
	return apiClient.Events.Watch(ctx, pattern, func(e client.Event) error {
		if eventsOpts.project != "" && e.Project != eventsOpts.project {
			return nil
		}
		if jsonOutput {
			printJSON(p.w, e)
			return nil
		}
		p.event(e)
		return nil
	})
}

var cmdVersion = &cobra.Command{
	Use:   "version",
	Short: "Show client and API versions",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "devdockctl %s (API %s)\n", version, apiClient.Version())
	},
}

func init() {
	f := cmdEvents.Flags()
	f.IntVarP(&eventsOpts.limit, "limit", "n", 50, "Show at most N events")
	f.StringSliceVarP(&eventsOpts.types, "type", "t", nil, "Filter by event type; wildcards such as project.* work")
	f.StringVarP(&eventsOpts.project, "project", "p", "", "Only events about this project")
	f.DurationVar(&eventsOpts.since, "since", 0, "Only events newer than this, e.g. 10m")
	f.StringVarP(&eventsOpts.watch, "watch", "w", "", "Stream live events matching a pattern (--watch=project.*)")
	f.Lookup("watch").NoOptDefVal = "*"

	rootCmd.AddCommand(cmdEvents, cmdVersion)
}
