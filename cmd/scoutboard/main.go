// Package main is the entry point for the scoutboard CLI.
//
// ScoutBoard can be run either as a library (SDK) or as a standalone binary
// with YAML configuration. This CLI provides the standalone binary approach.
//
// Usage:
//
//	scoutboard serve -c config.yaml    # Start the dashboard
//	scoutboard validate -c config.yaml # Validate configuration
//	scoutboard check -c config.yaml    # Verify URL and API key, list mailboxes
//	scoutboard poll -c config.yaml     # Run one poll cycle and print it
//	scoutboard arrivals -c config.yaml # List journaled new conversations
//	scoutboard version                 # Show version info
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jpalmerr/scoutboard/config"
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
	Use:   "scoutboard",
	Short: "A live ticket dashboard for FreeScout",
	Long: `ScoutBoard polls a FreeScout helpdesk and shows its ticket counts
in a web UI with Server-Sent Events for live updates. New conversations
are reported once each, to the dashboard and any configured notifier.

Quick start:
  1. Create a config file (scoutboard.yaml)
  2. Run: scoutboard check -c scoutboard.yaml
  3. Run: scoutboard serve -c scoutboard.yaml
  4. Open http://localhost:8080 in your browser

Example config:
  poll_interval: 60s
  freescout:
    base_url: https://support.example.com
    api_key: ${FREESCOUT_API_KEY}
    mailboxes: [5, 9]`,
	SilenceUsage: true,
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
	Long:  `Print the version, commit hash, and build date of this scoutboard binary.`,
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "scoutboard %s\n", version)
		fmt.Fprintf(out, "  commit: %s\n", commit)
		fmt.Fprintf(out, "  built:  %s\n", date)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

// addConfigFlag registers the required -c/--config flag on cmd.
func addConfigFlag(cmd *cobra.Command) {
	cmd.Flags().StringP("config", "c", "", "path to config file (required)")
	_ = cmd.MarkFlagRequired("config")
}

// loadConfig reads the file named by the --config flag.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	configFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}
