package scoutboard

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jpalmerr/scoutboard/dashboard"
	"github.com/jpalmerr/scoutboard/internal/engine"
	"github.com/jpalmerr/scoutboard/internal/freescout"
	"github.com/jpalmerr/scoutboard/internal/notify"
	"github.com/jpalmerr/scoutboard/internal/poller"
	"github.com/jpalmerr/scoutboard/internal/server"
	"github.com/jpalmerr/scoutboard/internal/store"
)

const (
	defaultPort           = 8080
	defaultMaxConcurrency = 10

	// MinPollingInterval is the shortest accepted polling interval.
	MinPollingInterval = engine.MinInterval

	// DefaultPollingInterval is used when no interval is configured.
	DefaultPollingInterval = engine.DefaultInterval
)

var (
	// ErrIntervalTooShort is returned for polling intervals below
	// [MinPollingInterval].
	ErrIntervalTooShort = engine.ErrIntervalTooShort

	// ErrCycleInProgress is returned by [ScoutBoard.Poll] while another
	// cycle is running on the same board.
	ErrCycleInProgress = engine.ErrCycleInProgress
)

// Mailbox is a FreeScout mailbox as listed by [ScoutBoard.Mailboxes].
type Mailbox = freescout.Mailbox

// SetupProblem classifies a failed [ScoutBoard.CheckSetup].
type SetupProblem = freescout.SetupProblem

const (
	SetupOK            = freescout.SetupOK
	SetupInvalidAuth   = freescout.SetupInvalidAuth
	SetupCannotConnect = freescout.SetupCannotConnect
)

// ScoutBoard polls a FreeScout instance, serves a live dashboard of its
// ticket counts and reports newly arrived conversations.
//
// ScoutBoard is created using [New] with functional options and started
// with [ScoutBoard.Start]. The typical lifecycle is:
//
//	sb, err := scoutboard.New("https://support.example.com", apiKey,
//	    scoutboard.WithMailboxes(5, 9),
//	)
//	if err != nil {
//	    slog.Error("failed to create scoutboard", "error", err)
//	    os.Exit(1)
//	}
//
//	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
//	defer cancel()
//
//	sb.Start(ctx) // blocks until context cancelled
type ScoutBoard struct {
	title                 string
	port                  int
	logger                *slog.Logger
	client                *freescout.Client
	engine                *engine.Engine
	snapshotCallbacks     []func(Snapshot)
	conversationCallbacks []func(ConversationEvent)
	errorCallbacks        []func(error)
	slack                 *slackConfig
	journalPath           string

	mu        sync.Mutex
	scheduler *poller.Scheduler
}

// New creates a new [ScoutBoard] for the FreeScout instance at baseURL.
//
// baseURL must use http or https; a trailing slash is stripped. apiKey must
// be non-empty. Other options have sensible defaults:
//   - Polling interval: 60 seconds
//   - Port: 8080
//   - Max concurrency: 10
//   - Request timeout: 10 seconds
//
// New does not contact FreeScout; use [ScoutBoard.CheckSetup] to validate
// credentials up front.
func New(baseURL, apiKey string, opts ...Option) (*ScoutBoard, error) {
	cfg := &sbConfig{
		pollingInterval: DefaultPollingInterval,
		port:            defaultPort,
		maxConcurrency:  defaultMaxConcurrency,
		requestTimeout:  freescout.DefaultTimeout,
	}

	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	// default to slog.Default() if no logger provided
	logger := cfg.logger
	if logger == nil {
		logger = slog.Default()
	}

	clientOpts := []freescout.ClientOption{freescout.WithTimeout(cfg.requestTimeout)}
	if cfg.httpClient != nil {
		clientOpts = append(clientOpts, freescout.WithHTTPClient(cfg.httpClient))
	}
	client := freescout.NewClient(baseURL, apiKey, clientOpts...)

	eng, err := engine.New(client, engine.Config{
		BaseURL:    baseURL,
		APIKey:     apiKey,
		AgentID:    cfg.agentID,
		MailboxIDs: cfg.mailboxIDs,
		Interval:   cfg.pollingInterval,
	},
		engine.WithLogger(logger),
		engine.WithMaxConcurrency(cfg.maxConcurrency),
	)
	if err != nil {
		client.Close()
		return nil, err
	}

	return &ScoutBoard{
		title:                 cfg.title,
		port:                  cfg.port,
		logger:                logger,
		client:                client,
		engine:                eng,
		snapshotCallbacks:     cfg.snapshotCallbacks,
		conversationCallbacks: cfg.conversationHandler,
		errorCallbacks:        cfg.errorCallbacks,
		slack:                 cfg.slack,
		journalPath:           cfg.journalPath,
	}, nil
}

// Start begins polling FreeScout and serving the dashboard.
//
// Start is a blocking call that runs until the provided context is cancelled.
// During execution:
//
//   - A poll cycle runs immediately, then at the configured interval
//   - The HTTP server starts on the configured port
//   - Callbacks and notifiers receive each cycle's outcome
//   - The dashboard is available at http://localhost:<port>
//
// Returns nil on graceful shutdown. Returns an error if the journal cannot
// be opened or the HTTP server fails to start.
func (sb *ScoutBoard) Start(ctx context.Context) error {
	cfg := sb.engine.Config()
	sb.logger.Info("scoutboard starting",
		"base_url", cfg.BaseURL,
		"mailboxes", len(cfg.MailboxIDs),
		"agent_id", cfg.AgentID,
	)
	sb.logger.Info("polling configured", "interval", cfg.Interval.String())
	sb.logger.Info("dashboard available", "url", fmt.Sprintf("http://localhost:%d", sb.port))

	// check if context already cancelled
	if ctx.Err() != nil {
		return nil
	}

	sinks, closeSinks, err := sb.openSinks()
	if err != nil {
		return err
	}
	dispatcher := notify.NewDispatcher(sb.logger, sinks...)

	boardStore := store.NewMemoryStore(sb.title, store.DefaultArrivalCapacity)

	scheduler := poller.NewScheduler(sb.engine, cfg.Interval, sb.logger)
	sb.setScheduler(scheduler)
	scheduler.Start(ctx)

	// track the results consumer goroutine to ensure clean shutdown
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for res := range scheduler.Results() {
			sb.handleResult(ctx, boardStore, dispatcher, res)
		}
	}()

	// cleanup function ensures scheduler is stopped and all results are processed
	cleanup := func() {
		scheduler.Stop() // closes results channel
		wg.Wait()        // wait for all results to be processed
		sb.setScheduler(nil)
		closeSinks()
	}

	httpServer := server.NewServer(boardStore, sb.port, dashboard.Assets, sb.title, sb.logger)
	if err := httpServer.Start(ctx); err != nil {
		cleanup()
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}

	<-ctx.Done()
	cleanup()
	sb.logger.Info("scoutboard stopped")
	return nil
}

// handleResult publishes one cycle. The store is updated first so callbacks
// and notifiers fire after the dashboard has the data.
func (sb *ScoutBoard) handleResult(ctx context.Context, st store.Store, d *notify.Dispatcher, res poller.CycleResult) {
	if res.Err != nil {
		st.RecordFailure(res.Err.Error())
		for _, cb := range sb.errorCallbacks {
			invokeCallbackSafe(cb, res.Err, sb.logger, "cycle error")
		}
		return
	}

	snapshot := toSnapshot(res.Result.Snapshot)
	events := toEvents(sb.client.BaseURL(), res.Result.Arrivals, snapshot.CollectedAt)

	collectedAt := snapshot.CollectedAt
	st.RecordSuccess(store.Status{
		Metrics:          snapshot.Metrics(),
		CustomFolders:    sb.engine.CustomFolders(),
		CollectedAt:      &collectedAt,
		SkippedMailboxes: res.Result.SkippedMailboxes,
	})

	arrivals := make([]store.Arrival, len(events))
	for i, ev := range events {
		arrivals[i] = ev.toStore()
	}
	st.AddArrivals(arrivals)

	if len(events) > 0 {
		sb.logger.Info("new conversations detected",
			"cycle_id", res.CycleID,
			"count", len(events),
		)
	}

	for _, ev := range events {
		for _, cb := range sb.conversationCallbacks {
			invokeCallbackSafe(cb, ev, sb.logger, "conversation")
		}
	}
	for _, cb := range sb.snapshotCallbacks {
		invokeCallbackSafe(cb, snapshot.clone(), sb.logger, "snapshot")
	}

	d.Dispatch(ctx, arrivals)
}

// openSinks builds the configured notifiers. The returned func closes them.
func (sb *ScoutBoard) openSinks() ([]notify.Sink, func(), error) {
	var sinks []notify.Sink
	var journal *notify.Journal

	if sb.journalPath != "" {
		j, err := notify.OpenJournal(sb.journalPath)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open journal: %w", err)
		}
		journal = j
		sinks = append(sinks, j)
	}

	if sb.slack != nil {
		sinks = append(sinks, notify.NewSlack(sb.slack.webhookURL,
			notify.WithSlackTimeout(sb.slack.timeout),
			notify.WithRetryAttempts(sb.slack.retryAttempts),
		))
	}

	closeAll := func() {
		if journal == nil {
			return
		}
		if err := journal.Close(); err != nil {
			sb.logger.Warn("failed to close journal", "path", journal.Path(), "error", err)
		}
	}
	return sinks, closeAll, nil
}

// Poll runs exactly one cycle on the board's engine and returns its
// snapshot and arrivals.
//
// The first successful cycle of a board reports no arrivals. Poll does not
// invoke callbacks or notifiers.
func (sb *ScoutBoard) Poll(ctx context.Context) (Snapshot, []ConversationEvent, error) {
	res, err := sb.engine.RunCycle(ctx)
	if err != nil {
		return Snapshot{}, nil, err
	}
	snapshot := toSnapshot(res.Snapshot)
	return snapshot, toEvents(sb.client.BaseURL(), res.Arrivals, snapshot.CollectedAt), nil
}

// Reconfigure replaces the mailbox filter and the polling interval.
//
// An empty filter polls every mailbox; a zero interval restores the default.
// The filter applies from the next cycle. A running scheduler switches to
// the new interval without waiting for the current period to elapse.
//
// Returns an error wrapping [ErrIntervalTooShort] for intervals below
// [MinPollingInterval].
func (sb *ScoutBoard) Reconfigure(mailboxIDs []int, interval time.Duration) error {
	cfg := sb.engine.Config()
	cfg.MailboxIDs = mailboxIDs
	cfg.Interval = interval
	if err := sb.engine.Configure(cfg); err != nil {
		return err
	}

	applied := sb.engine.Config()
	sb.mu.Lock()
	scheduler := sb.scheduler
	sb.mu.Unlock()
	if scheduler != nil {
		scheduler.SetInterval(applied.Interval)
	}

	sb.logger.Info("configuration updated",
		"mailboxes", applied.MailboxIDs,
		"interval", applied.Interval.String(),
	)
	return nil
}

func (sb *ScoutBoard) setScheduler(s *poller.Scheduler) {
	sb.mu.Lock()
	sb.scheduler = s
	sb.mu.Unlock()
}

// CheckSetup verifies that the base URL is reachable and the API key is
// accepted. On failure the [SetupProblem] says which of the two is wrong.
func (sb *ScoutBoard) CheckSetup(ctx context.Context) (SetupProblem, error) {
	err := sb.client.Ping(ctx)
	return freescout.Classify(err), err
}

// Mailboxes lists every mailbox visible to the API key.
func (sb *ScoutBoard) Mailboxes(ctx context.Context) ([]Mailbox, error) {
	return engine.ListMailboxes(ctx, sb.client)
}

// CustomFolders returns the custom folder names discovered on the first
// successful cycle, sorted. Empty until then.
func (sb *ScoutBoard) CustomFolders() []string {
	return sb.engine.CustomFolders()
}

// BaseURL returns the normalised FreeScout base URL.
func (sb *ScoutBoard) BaseURL() string {
	return sb.client.BaseURL()
}

// MailboxFilter returns a copy of the configured mailbox filter.
func (sb *ScoutBoard) MailboxFilter() []int {
	return sb.engine.Config().MailboxIDs
}

// Port returns the configured HTTP port for the dashboard server.
func (sb *ScoutBoard) Port() int {
	return sb.port
}

// PollingInterval returns the configured interval between poll cycles.
func (sb *ScoutBoard) PollingInterval() time.Duration {
	return sb.engine.Config().Interval
}

// AgentID returns the agent whose tickets are counted, or 0 when disabled.
func (sb *ScoutBoard) AgentID() int {
	return sb.engine.Config().AgentID
}

// Close releases idle connections to FreeScout.
func (sb *ScoutBoard) Close() {
	sb.client.Close()
}

// invokeCallbackSafe calls a callback with panic recovery.
// Panics are logged but do not propagate.
func invokeCallbackSafe[T any](cb func(T), v T, logger *slog.Logger, kind string) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("callback panicked",
				"callback", kind,
				"panic", r,
			)
		}
	}()
	cb(v)
}
