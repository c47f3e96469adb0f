package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jpalmerr/scoutboard"
	"github.com/jpalmerr/scoutboard/config"
	"github.com/jpalmerr/scoutboard/internal/display"
)

// pollCmd runs a single poll cycle and prints the snapshot.
var pollCmd = &cobra.Command{
	Use:   "poll",
	Short: "Run one poll cycle and print the metrics",
	Long: `Run exactly one poll cycle against FreeScout and print the resulting
ticket counts. The new-conversation count is always 0 for a single cycle,
because there is no earlier cycle to compare against.

Example:
  scoutboard poll -c config.yaml`,
	RunE: runPoll,
}

func init() {
	rootCmd.AddCommand(pollCmd)
	addConfigFlag(pollCmd)
}

func runPoll(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	sb, err := config.Build(cfg, discardLogger())
	if err != nil {
		return fmt.Errorf("failed to create ScoutBoard: %w", err)
	}
	defer sb.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	snap, _, err := sb.Poll(ctx)
	if err != nil {
		return fmt.Errorf("poll failed: %w", err)
	}

	title := cfg.Title
	if title == "" {
		title = sb.BaseURL()
	}
	display.Metrics(cmd.OutOrStdout(), title, snapshotRows(snap, sb.CustomFolders()), snap.CollectedAt)
	return nil
}

// snapshotRows lays out the fixed metrics followed by custom folders in
// registry order.
func snapshotRows(snap scoutboard.Snapshot, folders []string) []display.Row {
	rows := []display.Row{
		{Label: "Open", Value: &snap.Open},
		{Label: "Unassigned", Value: &snap.Unassigned},
		{Label: "Pending", Value: &snap.Pending},
		{Label: "Snoozed", Value: &snap.Snoozed},
		{Label: "New", Value: &snap.New},
		{Label: "My tickets", Value: snap.MyTickets},
	}
	for _, name := range folders {
		n := snap.Folders[name]
		rows = append(rows, display.Row{Label: name, Value: &n})
	}
	return rows
}
