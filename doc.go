// Package scoutboard polls a FreeScout helpdesk and turns its REST API into
// a small set of live ticket metrics plus new-conversation events.
//
// Each poll cycle asks FreeScout for the open, pending and (optionally)
// agent-assigned conversation counts, sums the unassigned, snoozed and
// custom folders of every polled mailbox, and scans the most recent
// conversations for ids it has not seen before. A cycle either produces a
// complete [Snapshot] or fails as a whole; a failed cycle never replaces
// the last good metrics.
//
// # Quick Start
//
//	sb, _ := scoutboard.New("https://support.example.com", os.Getenv("FREESCOUT_API_KEY"))
//
//	// Set up graceful shutdown on SIGINT/SIGTERM
//	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
//	defer stop()
//
//	sb.Start(ctx) // blocks until context is cancelled
//
// # Configuration
//
// ScoutBoard uses the functional options pattern for configuration:
//
//	sb, err := scoutboard.New(baseURL, apiKey,
//	    scoutboard.WithMailboxes(5, 9),
//	    scoutboard.WithAgentID(3),
//	    scoutboard.WithPollingInterval(30 * time.Second),
//	    scoutboard.WithPort(9090),
//	    scoutboard.WithSlackWebhook(webhookURL, 0, 0),
//	)
//
// # New Conversations
//
// The first successful cycle after start records every conversation it can
// see without reporting any of them. Later cycles report conversations whose
// ids were absent from the previous successful cycle, once each, through
// [WithConversationCallback], the dashboard's /api/arrivals and /api/sse,
// and any configured notifier.
//
// # Architecture
//
// ScoutBoard consists of several internal packages (under internal/):
//
//   - internal/freescout: REST client and error taxonomy
//   - internal/engine: Poll cycle, aggregation and new-arrival detection
//   - internal/poller: Fixed-period scheduler driving the engine
//   - internal/store: In-memory board state with pub/sub for real-time updates
//   - internal/server: HTTP server with REST API and Server-Sent Events
//   - internal/notify: Slack and SQLite journal notifiers
//   - internal/htmlstrip, internal/display: text rendering for humans
//   - dashboard: Embedded web UI assets
//
// The internal packages are not part of the public API and may change
// without notice.
package scoutboard
