package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jpalmerr/scoutboard/config"
)

const (
	shutdownTimeout = 10 * time.Second
)

// serveCmd starts the ScoutBoard dashboard server.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the dashboard server",
	Long: `Start the ScoutBoard dashboard server.

The server will:
  - Load configuration from the specified YAML file
  - Poll FreeScout immediately, then at the configured interval
  - Serve the dashboard UI on the configured port
  - Send new conversations to the configured notifiers

The server runs until interrupted (Ctrl+C) or receives SIGTERM.

Example:
  scoutboard serve -c config.yaml
  scoutboard serve --config /etc/scoutboard/config.yaml`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	addConfigFlag(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := config.NewLogger(cfg.Log, os.Stderr)

	logger.Info("config loaded",
		"base_url", cfg.FreeScout.BaseURL,
		"mailboxes", len(cfg.FreeScout.Mailboxes),
		"slack", cfg.SlackEnabled(),
		"journal", cfg.JournalEnabled(),
	)
	logger.Info("starting server",
		"port", cfg.Port,
		"poll_interval", cfg.PollInterval.Duration().String(),
	)

	sb, err := config.Build(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to create ScoutBoard: %w", err)
	}
	defer sb.Close()

	// set up context with signal handling - cancel on SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// start server - blocks until context cancelled
	errChan := make(chan error, 1)
	go func() {
		errChan <- sb.Start(ctx)
	}()

	// wait for server to finish
	select {
	case err := <-errChan:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		logger.Info("shutdown complete")
		return nil

	case <-ctx.Done():
		// signal received, wait for graceful shutdown with timeout
		select {
		case err := <-errChan:
			if err != nil {
				return fmt.Errorf("server error: %w", err)
			}
			logger.Info("shutdown complete")
			return nil
		case <-time.After(shutdownTimeout):
			logger.Warn("shutdown timed out",
				"timeout", shutdownTimeout.String(),
				"action", "forcing exit",
			)
			return nil
		}
	}
}
