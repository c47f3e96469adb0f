package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jpalmerr/scoutboard/config"
)

// validateCmd validates a config file without starting the server.
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a config file",
	Long: `Validate a ScoutBoard configuration file without starting the server.

This command parses the YAML, expands environment variables, and validates
all fields. It does not contact FreeScout; use "check" for that.

Exit codes:
  0 - Config is valid
  1 - Config is invalid (error details printed to stderr)

Example:
  scoutboard validate -c config.yaml`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
	addConfigFlag(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	configFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	mailboxes := "all"
	if n := len(cfg.FreeScout.Mailboxes); n > 0 {
		mailboxes = fmt.Sprintf("%v", cfg.FreeScout.Mailboxes)
	}
	agent := "disabled"
	if cfg.FreeScout.AgentID != 0 {
		agent = fmt.Sprintf("%d", cfg.FreeScout.AgentID)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Config is valid!\n")
	fmt.Fprintf(out, "  FreeScout:     %s\n", cfg.FreeScout.BaseURL)
	fmt.Fprintf(out, "  Port:          %d\n", cfg.Port)
	fmt.Fprintf(out, "  Poll interval: %s\n", cfg.PollInterval.Duration())
	fmt.Fprintf(out, "  Mailboxes:     %s\n", mailboxes)
	fmt.Fprintf(out, "  My tickets:    %s\n", agent)
	fmt.Fprintf(out, "  Slack:         %t\n", cfg.SlackEnabled())
	fmt.Fprintf(out, "  Journal:       %t\n", cfg.JournalEnabled())

	return nil
}
