package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jpalmerr/scoutboard/internal/display"
	"github.com/jpalmerr/scoutboard/internal/notify"
)

const defaultArrivalsLimit = 20

// errNoJournal is returned when notify.journal.path is not configured.
var errNoJournal = errors.New("notify.journal.path is not configured")

// arrivalsCmd lists journaled new conversations.
var arrivalsCmd = &cobra.Command{
	Use:   "arrivals",
	Short: "List recent new conversations from the journal",
	Long: `List the most recent new-conversation events recorded by a running
"serve" in the SQLite journal (notify.journal.path), newest first.

Example:
  scoutboard arrivals -c config.yaml
  scoutboard arrivals -c config.yaml --limit 50`,
	RunE: runArrivals,
}

func init() {
	rootCmd.AddCommand(arrivalsCmd)
	addConfigFlag(arrivalsCmd)
	arrivalsCmd.Flags().IntP("limit", "n", defaultArrivalsLimit, "maximum number of events to list")
}

func runArrivals(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if !cfg.JournalEnabled() {
		return errNoJournal
	}

	limit, _ := cmd.Flags().GetInt("limit")
	if limit < 1 {
		return errors.New("--limit must be positive")
	}

	journal, err := notify.OpenJournal(cfg.Notify.Journal.Path)
	if err != nil {
		return err
	}
	defer journal.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	arrivals, err := journal.Recent(ctx, limit)
	if err != nil {
		return fmt.Errorf("failed to read journal: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, display.Bold.Render("New conversations"))
	display.Arrivals(out, arrivals)
	return nil
}
