// Package main is the entry point for the eventboard CLI.
//
// Usage:
//
//	eventboard serve -c config.yaml    # Start the dashboard
//	eventboard validate -c config.yaml # Validate configuration
//	eventboard version                 # Show version info
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Set at build time via ldflags, e.g. -X main.version=1.0.0.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "eventboard",
	Short: "A live dashboard for audit event streams",
	Long: `EventBoard polls a statistics endpoint and one audit event endpoint per
category, and shows the latest results in a live web dashboard.

Every poll round fetches the statistics and, for each category, the event
at a random index. Results are pushed to the browser over Server-Sent Events.

Quick start:
  1. Create a config file (eventboard.yaml)
  2. Run: eventboard serve -c eventboard.yaml
  3. Open http://localhost:8080 in your browser

Example config:
  poll_interval: 5s
  stats:
    url: http://localhost:8100/stats
  events:
    - category: sensor-data
      url: http://localhost:8110/sensor_data
    - category: user-command
      url: http://localhost:8110/user_command`,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		// cobra has already printed the error
		os.Exit(1)
	}
}

func main() {
	Execute()
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "eventboard %s\n", version)
		fmt.Fprintf(out, "  commit: %s\n", commit)
		fmt.Fprintf(out, "  built:  %s\n", date)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
