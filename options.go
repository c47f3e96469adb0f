package scoutboard

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// sbConfig holds mutable state during ScoutBoard construction.
type sbConfig struct {
	title               string
	agentID             int
	mailboxIDs          []int
	pollingInterval     time.Duration
	port                int
	maxConcurrency      int
	requestTimeout      time.Duration
	httpClient          *http.Client
	logger              *slog.Logger
	snapshotCallbacks   []func(Snapshot)
	conversationHandler []func(ConversationEvent)
	errorCallbacks      []func(error)
	slack               *slackConfig
	journalPath         string
}

type slackConfig struct {
	webhookURL    string
	timeout       time.Duration
	retryAttempts int
}

// Option is a function that configures a [ScoutBoard] instance during construction.
//
// Option implements the functional options pattern, allowing optional
// configuration to be passed to [New] in a type-safe, extensible way.
// Options return an error if validation fails.
type Option func(*sbConfig) error

// WithAgentID enables the my_tickets metric for the given FreeScout user.
//
// Zero disables the metric, which is the default.
//
// Returns an error if id is negative.
func WithAgentID(id int) Option {
	return func(cfg *sbConfig) error {
		if id < 0 {
			return fmt.Errorf("agent id cannot be negative, got %d", id)
		}
		cfg.agentID = id
		return nil
	}
}

// WithMailboxes restricts polling to the given mailbox ids.
//
// Without this option every mailbox the API key can see is polled.
// Duplicate ids are collapsed; order is kept.
//
// Example:
//
//	sb, err := scoutboard.New(url, key,
//	    scoutboard.WithMailboxes(5, 9),
//	)
//
// Returns an error if any id is zero or negative.
func WithMailboxes(ids ...int) Option {
	return func(cfg *sbConfig) error {
		for _, id := range ids {
			if id <= 0 {
				return fmt.Errorf("mailbox ids must be positive, got %d", id)
			}
		}
		cfg.mailboxIDs = append(cfg.mailboxIDs, ids...)
		return nil
	}
}

// WithPollingInterval sets how often a poll cycle runs.
//
// Defaults to 60 seconds if not specified.
//
// Returns an error wrapping [ErrIntervalTooShort] if d is below 10 seconds.
func WithPollingInterval(d time.Duration) Option {
	return func(cfg *sbConfig) error {
		if d < MinPollingInterval {
			return fmt.Errorf("%w, got %s", ErrIntervalTooShort, d)
		}
		cfg.pollingInterval = d
		return nil
	}
}

// WithPort sets the HTTP port for the dashboard server.
//
// The dashboard UI and API will be available at http://localhost:<port>.
// Defaults to 8080 if not specified.
//
// Returns an error if the port is outside the valid range (1-65535).
func WithPort(port int) Option {
	return func(cfg *sbConfig) error {
		if port < 1 || port > 65535 {
			return errors.New("port must be between 1 and 65535")
		}
		cfg.port = port
		return nil
	}
}

// WithMaxConcurrency bounds how many mailboxes are queried at once during
// folder enumeration and count fan-out. Defaults to 10.
//
// Returns an error if the value is zero or negative.
func WithMaxConcurrency(n int) Option {
	return func(cfg *sbConfig) error {
		if n <= 0 {
			return errors.New("max concurrency must be positive")
		}
		cfg.maxConcurrency = n
		return nil
	}
}

// WithRequestTimeout sets the timeout applied to each FreeScout request.
// Defaults to 10 seconds.
//
// Returns an error if the duration is zero or negative.
func WithRequestTimeout(d time.Duration) Option {
	return func(cfg *sbConfig) error {
		if d <= 0 {
			return errors.New("request timeout must be positive")
		}
		cfg.requestTimeout = d
		return nil
	}
}

// WithHTTPClient replaces the HTTP client used to reach FreeScout.
//
// Returns an error if the client is nil.
func WithHTTPClient(hc *http.Client) Option {
	return func(cfg *sbConfig) error {
		if hc == nil {
			return errors.New("http client cannot be nil")
		}
		cfg.httpClient = hc
		return nil
	}
}

// WithLogger sets a custom [slog.Logger] for the ScoutBoard instance.
//
// If not specified, [slog.Default] is used.
//
// Returns an error if the logger is nil.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *sbConfig) error {
		if logger == nil {
			return errors.New("logger cannot be nil")
		}
		cfg.logger = logger
		return nil
	}
}

// WithTitle sets the dashboard title displayed in the browser tab and header.
//
// If not specified, defaults to "ScoutBoard".
func WithTitle(title string) Option {
	return func(cfg *sbConfig) error {
		cfg.title = title
		return nil
	}
}

// WithSnapshotCallback registers a function called with every successful
// cycle's [Snapshot].
//
// Multiple callbacks may be registered; they execute in registration order.
//
// IMPORTANT: Callbacks must be non-blocking. Long-running operations should
// dispatch work to a separate goroutine. Blocking callbacks delay the next
// cycle's results.
//
// Callbacks are invoked synchronously from a single goroutine. Panics within
// callbacks are recovered and logged.
//
// Nil callbacks are silently ignored.
func WithSnapshotCallback(cb func(Snapshot)) Option {
	return func(cfg *sbConfig) error {
		if cb == nil {
			return nil
		}
		cfg.snapshotCallbacks = append(cfg.snapshotCallbacks, cb)
		return nil
	}
}

// WithConversationCallback registers a function called once per newly
// detected conversation.
//
// No events are delivered for the first successful cycle after start; every
// conversation visible then is treated as already known.
//
// Example:
//
//	sb, err := scoutboard.New(url, key,
//	    scoutboard.WithConversationCallback(func(ev scoutboard.ConversationEvent) {
//	        log.Printf("new conversation #%d: %s", ev.Number, ev.Subject)
//	    }),
//	)
//
// Same delivery rules as [WithSnapshotCallback]. Nil callbacks are ignored.
func WithConversationCallback(cb func(ConversationEvent)) Option {
	return func(cfg *sbConfig) error {
		if cb == nil {
			return nil
		}
		cfg.conversationHandler = append(cfg.conversationHandler, cb)
		return nil
	}
}

// WithCycleErrorCallback registers a function called when a poll cycle fails.
// Nil callbacks are ignored.
func WithCycleErrorCallback(cb func(error)) Option {
	return func(cfg *sbConfig) error {
		if cb == nil {
			return nil
		}
		cfg.errorCallbacks = append(cfg.errorCallbacks, cb)
		return nil
	}
}

// WithSlackWebhook posts every new conversation to a Slack incoming webhook.
//
// A zero timeout or retry count keeps the notifier default (10 seconds,
// 3 attempts).
//
// Returns an error if the URL is empty or either value is negative.
func WithSlackWebhook(webhookURL string, timeout time.Duration, retryAttempts int) Option {
	return func(cfg *sbConfig) error {
		if webhookURL == "" {
			return errors.New("slack webhook url cannot be empty")
		}
		if timeout < 0 {
			return errors.New("slack timeout cannot be negative")
		}
		if retryAttempts < 0 {
			return errors.New("slack retry attempts cannot be negative")
		}
		cfg.slack = &slackConfig{
			webhookURL:    webhookURL,
			timeout:       timeout,
			retryAttempts: retryAttempts,
		}
		return nil
	}
}

// WithJournal appends every new conversation to a SQLite file at path.
//
// The journal is an audit log; it is never used to seed detection, so the
// first cycle after a restart still reports no arrivals.
//
// Returns an error if the path is empty.
func WithJournal(path string) Option {
	return func(cfg *sbConfig) error {
		if path == "" {
			return errors.New("journal path cannot be empty")
		}
		cfg.journalPath = path
		return nil
	}
}
