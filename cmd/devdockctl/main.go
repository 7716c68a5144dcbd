// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// devdockctl is the command-line client for a running devdock server.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wingedpig/devdock/pkg/client"
)

var (
	version    = "0.3.0"
	apiURL     = "http://127.0.0.1:7733"
	jsonOutput = false
	noColor    = false

	// API client instance, built once flags are parsed
	apiClient *client.Client
)

var rootCmd = &cobra.Command{
	Use:   "devdockctl",
	Short: "Control local dev servers managed by devdock",
	Long: `devdockctl talks to a running devdock server.

It registers Node.js projects, starts and stops their dev servers,
reads and follows their logs, and watches the event stream.

The server address comes from --api or the DEVDOCK_API environment variable.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		apiClient = client.New(strings.TrimSuffix(apiURL, "/"))
	},
}

func init() {
	if env := os.Getenv("DEVDOCK_API"); env != "" {
		apiURL = env
	}
	rootCmd.PersistentFlags().StringVar(&apiURL, "api", apiURL, "devdock server URL")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Print raw JSON")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable coloured output")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// printJSON outputs any value as formatted JSON
func printJSON(w io.Writer, v interface{}) {
	out, _ := json.MarshalIndent(v, "", "  ")
	fmt.Fprintln(w, string(out))
}

func newPrinter(cmd *cobra.Command) *printer {
	return &printer{w: cmd.OutOrStdout(), styles: newStyles(!noColor)}
}
