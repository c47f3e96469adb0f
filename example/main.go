package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jpalmerr/scoutboard"
)

func main() {
	// start mock FreeScout (see mock_server.go)
	go StartMockFreeScout(":9999", "demo-key")
	time.Sleep(100 * time.Millisecond)

	sb, err := scoutboard.New("http://localhost:9999", "demo-key",
		scoutboard.WithTitle("Support Demo"),
		scoutboard.WithAgentID(3),
		scoutboard.WithPollingInterval(10*time.Second),
		scoutboard.WithPort(8080),
		scoutboard.WithConversationCallback(func(ev scoutboard.ConversationEvent) {
			slog.Info("new conversation", "number", ev.Number, "subject", ev.Subject, "url", ev.URL)
		}),
		scoutboard.WithCycleErrorCallback(func(err error) {
			slog.Warn("poll failed", "error", err)
		}),
	)
	if err != nil {
		slog.Error("failed to create scoutboard", "error", err)
		os.Exit(1)
	}

	fmt.Println()
	fmt.Println("  ╔═══════════════════════════════════════════════════════╗")
	fmt.Println("  ║                                                       ║")
	fmt.Println("  ║   ScoutBoard Demo                                     ║")
	fmt.Println("  ║                                                       ║")
	fmt.Println("  ║   Open http://localhost:8080 in your browser          ║")
	fmt.Println("  ║                                                       ║")
	fmt.Println("  ║   Mock FreeScout on :9999, 2 mailboxes                ║")
	fmt.Println("  ║   A new conversation arrives every 20-60s             ║")
	fmt.Println("  ║                                                       ║")
	fmt.Println("  ║   Press Ctrl+C to stop                                ║")
	fmt.Println("  ║                                                       ║")
	fmt.Println("  ╚═══════════════════════════════════════════════════════╝")
	fmt.Println()

	// set up context with signal handling for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := sb.Start(ctx); err != nil {
		slog.Error("scoutboard error", "error", err)
		os.Exit(1)
	}
}
