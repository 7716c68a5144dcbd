// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wingedpig/devdock/pkg/client"
)

var cmdList = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls", "status"},
	Short:   "List projects and their dev server status",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		projects, err := apiClient.Projects.List(cmd.Context())
		if err != nil {
			return err
		}
		if jsonOutput {
			printJSON(cmd.OutOrStdout(), projects)
			return nil
		}
		if len(projects) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No projects registered")
			return nil
		}
		newPrinter(cmd).projects(projects)
		return nil
	},
}

var cmdShow = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one project",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		proj, err := apiClient.Projects.Get(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return printProject(cmd, proj)
	},
}

var addOpts client.CreateProjectRequest

var cmdAdd = &cobra.Command{
	Use:   "add [path]",
	Short: "Register a project directory (defaults to the current directory)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := "."
		if len(args) == 1 {
			dir = args[0]
		}
		// The server resolves paths against its own working directory.
		abs, err := filepath.Abs(dir)
		if err != nil {
			return err
		}
		req := addOpts
		req.Path = abs

		proj, err := apiClient.Projects.Create(cmd.Context(), req)
		if err != nil {
			return err
		}
		if !jsonOutput {
			fmt.Fprintf(cmd.OutOrStdout(), "Registered %s\n", proj.ID)
		}
		return printProject(cmd, proj)
	},
}

var updateOpts struct {
	name, path, packageManager, startCommand string
}

var cmdUpdate = &cobra.Command{
	Use:   "update <id>",
	Short: "Change a project's name, path, package manager or start command",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var req client.UpdateProjectRequest
		flags := cmd.Flags()
		if flags.Changed("name") {
			req.Name = &updateOpts.name
		}
		if flags.Changed("path") {
			abs, err := filepath.Abs(updateOpts.path)
			if err != nil {
				return err
			}
			req.Path = &abs
		}
		if flags.Changed("package-manager") {
			req.PackageManager = &updateOpts.packageManager
		}
		if flags.Changed("command") {
			req.StartCommand = &updateOpts.startCommand
		}
		if req == (client.UpdateProjectRequest{}) {
			return fmt.Errorf("nothing to update; pass at least one of --name, --path, --package-manager, --command")
		}

		proj, err := apiClient.Projects.Update(cmd.Context(), args[0], req)
		if err != nil {
			return err
		}
		return printProject(cmd, proj)
	},
}

var cmdRemove = &cobra.Command{
	Use:     "rm <id>",
	Aliases: []string{"remove"},
	Short:   "Stop a project if running and unregister it",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := apiClient.Projects.Delete(cmd.Context(), args[0]); err != nil {
			return err
		}
		if !jsonOutput {
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", args[0])
		}
		return nil
	},
}

var cmdStart = &cobra.Command{
	Use:   "start <id>",
	Short: "Start a project's dev server",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		proj, err := apiClient.Projects.Start(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if jsonOutput {
			printJSON(cmd.OutOrStdout(), proj)
			return nil
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Started %s (pid %d)\n", proj.ID, proj.PID)
		return nil
	},
}

var cmdStop = &cobra.Command{
	Use:   "stop <id>",
	Short: "Stop a project's dev server",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		proj, err := apiClient.Projects.Stop(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if jsonOutput {
			printJSON(cmd.OutOrStdout(), proj)
			return nil
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Stopped %s\n", proj.ID)
		return nil
	},
}

var cmdRestart = &cobra.Command{
	Use:   "restart <id>",
	Short: "Stop a project's dev server if running, then start it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		proj, err := apiClient.Projects.Get(ctx, args[0])
		if err != nil {
			return err
		}
		if proj.Status == "running" {
			if _, err := apiClient.Projects.Stop(ctx, proj.ID); err != nil {
				return fmt.Errorf("stop: %w", err)
			}
		}
		proj, err = apiClient.Projects.Start(ctx, proj.ID)
		if err != nil {
			return fmt.Errorf("start: %w", err)
		}
		if jsonOutput {
			printJSON(cmd.OutOrStdout(), proj)
			return nil
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Restarted %s (pid %d)\n", proj.ID, proj.PID)
		return nil
	},
}

var cmdStopAll = &cobra.Command{
	Use:   "stop-all",
	Short: "Stop every running dev server",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		stopped, err := apiClient.Projects.StopAll(cmd.Context())
		if err != nil {
			return err
		}
		if jsonOutput {
			printJSON(cmd.OutOrStdout(), map[string][]string{"stopped": stopped})
			return nil
		}
		if len(stopped) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "Nothing was running")
			return nil
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Stopped %s\n", strings.Join(stopped, ", "))
		return nil
	},
}

var cmdRunning = &cobra.Command{
	Use:   "running",
	Short: "List supervised processes",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		procs, err := apiClient.Projects.Running(cmd.Context())
		if err != nil {
			return err
		}
		if jsonOutput {
			printJSON(cmd.OutOrStdout(), procs)
			return nil
		}
		if len(procs) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No dev servers running")
			return nil
		}
		newPrinter(cmd).running(procs)
		return nil
	},
}

func printProject(cmd *cobra.Command, proj *client.Project) error {
	if jsonOutput {
		printJSON(cmd.OutOrStdout(), proj)
		return nil
	}
	newPrinter(cmd).project(proj)
	return nil
}

func init() {
	cmdAdd.Flags().StringVar(&addOpts.ID, "id", "", "Project ID (default: generated)")
	cmdAdd.Flags().StringVar(&addOpts.Name, "name", "", "Display name (default: package.json name)")
	cmdAdd.Flags().StringVar(&addOpts.PackageManager, "package-manager", "", "npm, yarn or pnpm (default: detected from the lockfile)")
	cmdAdd.Flags().StringVar(&addOpts.StartCommand, "command", "", "Script name or full command (default: dev, start or serve)")

	cmdUpdate.Flags().StringVar(&updateOpts.name, "name", "", "Display name")
	cmdUpdate.Flags().StringVar(&updateOpts.path, "path", "", "Project directory")
	cmdUpdate.Flags().StringVar(&updateOpts.packageManager, "package-manager", "", "npm, yarn or pnpm")
	cmdUpdate.Flags().StringVar(&updateOpts.startCommand, "command", "", "Script name or full command")

	rootCmd.AddCommand(cmdList, cmdShow, cmdAdd, cmdUpdate, cmdRemove,
		cmdStart, cmdStop, cmdRestart, cmdStopAll, cmdRunning)
}
