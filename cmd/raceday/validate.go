package main

import (
	"fmt"

	"github.com/WarrickSmith/raceday/config"
	"github.com/spf13/cobra"
)

// validateCmd validates a config file without starting the server.
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a config file",
	Long: `Validate a raceday configuration file without starting the server.

This command parses the YAML, expands environment variables, and validates
all fields. It's useful for CI/CD pipelines or pre-deployment checks.

Exit codes:
  0 - Config is valid
  1 - Config is invalid (error details printed to stderr)

Example:
  raceday validate -c config.yaml
  raceday validate --config /etc/raceday/config.yaml`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringP("config", "c", "", "path to config file (required)")
	_ = validateCmd.MarkFlagRequired("config")
}

func runValidate(cmd *cobra.Command, args []string) error {
	configFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	// count total feeds (direct + expanded from meeting feed sets)
	directFeeds := len(cfg.Feeds)
	meetingFeeds := 0
	for _, mf := range cfg.MeetingFeeds {
		meetingFeeds += len(mf.Meetings)
	}

	fmt.Printf("Config is valid!\n")
	fmt.Printf("  Port:          %d\n", cfg.Port)
	fmt.Printf("  Poll interval: %s\n", cfg.PollInterval.Duration())
	if cfg.DataDir != "" {
		fmt.Printf("  Data dir:      %s\n", cfg.DataDir)
	}
	if cfg.Upstream.BaseURL != "" {
		fmt.Printf("  Upstream:      %s\n", cfg.Upstream.BaseURL)
	}
	fmt.Printf("  Feeds:         %d direct + %d from meeting feeds = %d total\n",
		directFeeds, meetingFeeds, directFeeds+meetingFeeds)

	return nil
}
