package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/jpalmerr/scoutboard"
	"github.com/jpalmerr/scoutboard/config"
	"github.com/jpalmerr/scoutboard/internal/display"
)

// checkCmd verifies the FreeScout URL and API key.
var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check the FreeScout connection",
	Long: `Check that the configured FreeScout URL is reachable and the API key
is accepted, then list the mailboxes the key can see so their ids can be
copied into freescout.mailboxes.

A rejected key and an unreachable instance are reported separately.

Example:
  scoutboard check -c config.yaml`,
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
	addConfigFlag(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
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
	out := cmd.OutOrStdout()

	problem, err := sb.CheckSetup(ctx)
	if err != nil {
		display.ErrorMsg(out, "%s: %s", sb.BaseURL(), problem.Description())
		return fmt.Errorf("setup check failed (%s): %w", problem, err)
	}
	display.SuccessMsg(out, "connected to %s", sb.BaseURL())

	mailboxes, err := sb.Mailboxes(ctx)
	if err != nil {
		display.WarnMsg(out, "could not list mailboxes: %v", err)
		return nil
	}
	if len(mailboxes) == 0 {
		display.WarnMsg(out, "the API key cannot see any mailboxes")
		return nil
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, display.Bold.Render("Mailboxes"))
	display.Mailboxes(out, mailboxes)
	reportUnknownMailboxes(out, cfg.FreeScout.Mailboxes, mailboxes)
	return nil
}

// reportUnknownMailboxes warns about configured ids the key cannot see.
func reportUnknownMailboxes(w io.Writer, configured []int, visible []scoutboard.Mailbox) {
	known := make(map[int]struct{}, len(visible))
	for _, mb := range visible {
		known[mb.ID] = struct{}{}
	}
	for _, id := range configured {
		if _, ok := known[id]; !ok {
			display.WarnMsg(w, "configured mailbox %d is not visible to this API key", id)
		}
	}
}

// discardLogger keeps one-shot commands quiet; their output is the report.
func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
