// Package main is the entry point for the raceday CLI.
//
// raceday can be run either as a library (SDK) or as a standalone binary
// with YAML configuration. This CLI provides the standalone binary approach.
//
// Usage:
//
//	raceday serve -c config.yaml    # Start the dashboard
//	raceday validate -c config.yaml # Validate configuration
//	raceday version                 # Show version info
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information - set by GoReleaser at build time via ldflags.
// Example: go build -ldflags "-X main.version=1.0.0"
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// rootCmd is the base command when called without subcommands.
// It just displays help - actual functionality is in subcommands.
var rootCmd = &cobra.Command{
	Use:   "raceday",
	Short: "A real-time racing dashboard",
	Long: `raceday is a real-time horse and greyhound racing dashboard.

It polls race-data feeds at configurable intervals, stores the race cards
they return, and displays races, pools, and results in a web UI with
Server-Sent Events for live updates. A developer monitor tracks polling
health across all feeds.

Quick start:
  1. Create a config file (raceday.yaml)
  2. Run: raceday serve -c raceday.yaml
  3. Open http://localhost:8080 in your browser

Example config:
  port: 8080
  poll_interval: 30s
  data_dir: ./racedata
  feeds:
    - name: NZ Harness
      url: https://api.example.com/meetings/nz-harness/card
      probe: freshness:generated_at:90s`,
	// No Run/RunE means this just shows help when called without subcommands
}

// Execute runs the root command.
// This is the main entry point called from main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		// Cobra already prints the error, just exit with code 1
		os.Exit(1)
	}
}

func main() {
	Execute()
}

// versionCmd prints version information.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Print the version, commit hash, and build date of this raceday binary.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("raceday %s\n", version)
		fmt.Printf("  commit: %s\n", commit)
		fmt.Printf("  built:  %s\n", date)
	},
}

func init() {
	// Register subcommands with root
	rootCmd.AddCommand(versionCmd)
}
