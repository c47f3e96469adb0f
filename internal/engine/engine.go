package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/jpalmerr/scoutboard/internal/freescout"
)

const defaultMaxConcurrency = 10

// ErrCycleInProgress is returned when RunCycle is called while another cycle
// on the same engine has not finished.
var ErrCycleInProgress = errors.New("a poll cycle is already running")

// API is the subset of the FreeScout client the engine calls.
// [*freescout.Client] implements it.
type API interface {
	Mailboxes(ctx context.Context, page int) (freescout.MailboxPage, error)
	Folders(ctx context.Context, mailboxID, page int) (freescout.FolderPage, error)
	Conversations(ctx context.Context, q freescout.ConversationQuery) (freescout.ConversationPage, error)
}

// Snapshot is the complete set of metrics produced by one successful cycle.
type Snapshot struct {
	Open       int
	Unassigned int
	Pending    int
	Snoozed    int
	New        int

	// MyTickets is nil when the agent feature is disabled.
	MyTickets *int

	// Folders maps custom folder names to active counts. Every registered
	// name is present, with 0 when it was not reported this cycle.
	Folders map[string]int

	CollectedAt time.Time
}

// Arrival is one newly detected conversation.
type Arrival struct {
	ConversationID int
	Number         int
	Subject        string
	Status         string
	MailboxID      int
	AssigneeID     *int
	CreatedAt      string
	Preview        string
}

// Result is the outcome of a successful cycle.
type Result struct {
	Snapshot Snapshot

	// Arrivals are in the order the conversations appeared in the merged
	// recent-conversation list. Empty on the first cycle.
	Arrivals []Arrival

	// SkippedMailboxes lists mailboxes whose folders could not be fetched
	// and were counted as empty.
	SkippedMailboxes []int
}

// Engine runs fetch-aggregate-diff cycles against one FreeScout instance.
//
// The engine owns two pieces of cross-cycle state: the set of known
// conversation ids and the custom folder registry. Both are updated only
// when a cycle succeeds. The caller owns snapshot replacement.
type Engine struct {
	api            API
	logger         *slog.Logger
	tracer         trace.Tracer
	maxConcurrency int
	now            func() time.Time

	cfgMu sync.RWMutex
	cfg   Config

	cycleMu  sync.Mutex
	detector detector
	registry FolderRegistry
}

// Option configures an [Engine].
type Option func(*Engine)

// WithLogger sets the engine logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithMaxConcurrency bounds concurrent requests within each per-mailbox
// fan-out. Non-positive values are ignored.
func WithMaxConcurrency(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxConcurrency = n
		}
	}
}

// WithTracerProvider sets the provider used for cycle spans. Defaults to the
// global provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(e *Engine) {
		if tp != nil {
			e.tracer = tp.Tracer(tracerName)
		}
	}
}

const tracerName = "github.com/jpalmerr/scoutboard/internal/engine"

// New creates an [Engine]. The config is normalised and validated; nothing
// is fetched until [Engine.RunCycle].
func New(api API, cfg Config, opts ...Option) (*Engine, error) {
	if api == nil {
		return nil, errors.New("api client is required")
	}

	cfg = cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	e := &Engine{
		api:            api,
		logger:         slog.Default(),
		tracer:         otel.Tracer(tracerName),
		maxConcurrency: defaultMaxConcurrency,
		now:            time.Now,
		cfg:            cfg.clone(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Configure validates cfg and applies its mailbox filter and interval. The
// change takes effect from the next cycle. Changing the base URL, API key or
// agent id returns [ErrImmutableField].
func (e *Engine) Configure(cfg Config) error {
	cfg = cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return err
	}

	e.cfgMu.Lock()
	defer e.cfgMu.Unlock()

	if cfg.BaseURL != e.cfg.BaseURL || cfg.APIKey != e.cfg.APIKey || cfg.AgentID != e.cfg.AgentID {
		return ErrImmutableField
	}
	e.cfg.MailboxIDs = cfg.clone().MailboxIDs
	e.cfg.Interval = cfg.Interval
	return nil
}

// Config returns a copy of the current configuration.
func (e *Engine) Config() Config {
	e.cfgMu.RLock()
	defer e.cfgMu.RUnlock()
	return e.cfg.clone()
}

// CustomFolders returns the registered custom folder names.
func (e *Engine) CustomFolders() []string {
	return e.registry.Names()
}

// Primed reports whether a cycle has succeeded, so that later cycles report
// arrivals.
func (e *Engine) Primed() bool {
	e.cycleMu.Lock()
	defer e.cycleMu.Unlock()
	return e.detector.primed
}

// RunCycle performs one poll cycle.
//
// Folder enumeration, the open/pending/agent counts and the recent
// conversation scan run concurrently. A failure in any count query, the
// recent scan or a transport failure listing mailboxes aborts the cycle and
// leaves the engine state untouched. Per-mailbox folder failures are soft.
func (e *Engine) RunCycle(ctx context.Context) (res Result, err error) {
	if !e.cycleMu.TryLock() {
		return Result{}, ErrCycleInProgress
	}
	defer e.cycleMu.Unlock()

	cfg := e.Config()

	ctx, span := e.tracer.Start(ctx, "scoutboard.cycle", trace.WithAttributes(
		attribute.Int("scoutboard.mailbox_filter", len(cfg.MailboxIDs)),
		attribute.Bool("scoutboard.agent_enabled", cfg.AgentID != 0),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetAttributes(
				attribute.Int("scoutboard.new_arrivals", len(res.Arrivals)),
				attribute.Int("scoutboard.skipped_mailboxes", len(res.SkippedMailboxes)),
			)
		}
		span.End()
	}()

	var (
		folders   []folderFetch
		open      int
		pending   int
		myTickets *int
		recent    []freescout.Conversation
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		folders, err = e.fetchFolders(gctx, cfg.MailboxIDs)
		return err
	})
	g.Go(func() error {
		var err error
		open, err = e.count(gctx, cfg.MailboxIDs, freescout.ConversationQuery{Status: freescout.StatusActive})
		if err != nil {
			return fmt.Errorf("open count: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		pending, err = e.count(gctx, cfg.MailboxIDs, freescout.ConversationQuery{Status: freescout.StatusPending})
		if err != nil {
			return fmt.Errorf("pending count: %w", err)
		}
		return nil
	})
	if cfg.AgentID != 0 {
		g.Go(func() error {
			n, err := e.count(gctx, cfg.MailboxIDs, freescout.ConversationQuery{
				Status:     freescout.StatusActive,
				AssignedTo: cfg.AgentID,
			})
			if err != nil {
				return fmt.Errorf("agent count: %w", err)
			}
			myTickets = &n
			return nil
		})
	}
	g.Go(func() error {
		var err error
		recent, err = e.fetchRecent(gctx, cfg.MailboxIDs)
		if err != nil {
			return fmt.Errorf("recent conversations: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return Result{}, err
	}
	// the group may finish cleanly just as the parent is cancelled
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	totals := Aggregate(flattenFolders(folders))
	newConvs, currentIDs := e.detector.diff(recent)

	// success path: commit cross-cycle state
	e.detector.commit(currentIDs)
	if e.registry.Populate(mapKeys(totals.Custom)) {
		e.logger.Info("custom folders discovered", "folders", e.registry.Names())
	}

	snap := Snapshot{
		Open:        open,
		Unassigned:  totals.Unassigned,
		Pending:     pending,
		Snoozed:     totals.Snoozed,
		New:         len(newConvs),
		MyTickets:   myTickets,
		Folders:     make(map[string]int, len(totals.Custom)),
		CollectedAt: e.now(),
	}
	for _, name := range e.registry.Names() {
		snap.Folders[name] = 0
	}
	for name, n := range totals.Custom {
		snap.Folders[name] = n
	}

	arrivals := make([]Arrival, 0, len(newConvs))
	for _, c := range newConvs {
		arrivals = append(arrivals, toArrival(c))
		e.logger.Debug("new conversation detected", "conversation_id", c.ID, "mailbox_id", c.MailboxID)
	}

	return Result{
		Snapshot:         snap,
		Arrivals:         arrivals,
		SkippedMailboxes: skippedMailboxes(folders),
	}, nil
}

func toArrival(c freescout.Conversation) Arrival {
	return Arrival{
		ConversationID: c.ID,
		Number:         c.Number,
		Subject:        c.Subject,
		Status:         c.Status,
		MailboxID:      c.MailboxID,
		AssigneeID:     c.AssigneeID(),
		CreatedAt:      c.CreatedAt,
		Preview:        c.Preview,
	}
}

func mapKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	return keys
}
