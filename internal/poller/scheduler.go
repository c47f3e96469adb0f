package poller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jpalmerr/scoutboard/internal/engine"
)

// Runner runs a single poll cycle. [*engine.Engine] implements it.
type Runner interface {
	RunCycle(ctx context.Context) (engine.Result, error)
}

// CycleResult holds the outcome of one scheduled cycle.
type CycleResult struct {
	// CycleID correlates log lines and results for one cycle.
	CycleID string

	// Result is only meaningful when Err is nil.
	Result engine.Result

	// Err is the cycle failure, including recovered panics.
	Err error

	StartedAt time.Time
	Duration  time.Duration
}

// State is the scheduler's view of cycle history.
type State struct {
	// Snapshot is the last successful snapshot, nil until one succeeds.
	// A failed cycle never clears it.
	Snapshot *engine.Snapshot

	LastSuccess         time.Time
	LastError           error
	ConsecutiveFailures int
	Cycles              int
}

// Scheduler drives a [Runner] at a fixed period.
//
// The first cycle runs immediately on Start. Cycles run on the scheduler's
// own goroutine, one after another, so they never overlap: a cycle that
// outlasts the interval delays the next tick instead of stacking.
//
// All lifecycle methods (Start, Stop) are safe for concurrent use.
type Scheduler struct {
	runner     Runner
	logger     *slog.Logger
	results    chan CycleResult
	intervalCh chan time.Duration
	ctx        context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup

	mu        sync.Mutex
	interval  time.Duration
	started   bool
	stopped   bool
	closeOnce sync.Once

	stateMu sync.RWMutex
	state   State
}

// NewScheduler creates a [Scheduler] that runs runner every interval.
//
// The scheduler must be started with [Scheduler.Start] and stopped with
// [Scheduler.Stop]. Results are available via [Scheduler.Results]; the
// loop waits for each result to be received before scheduling the next
// cycle.
func NewScheduler(runner Runner, interval time.Duration, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		runner:     runner,
		logger:     logger,
		results:    make(chan CycleResult, 1),
		intervalCh: make(chan time.Duration, 1),
		interval:   interval,
	}
}

// Results returns a receive-only channel that emits one [CycleResult] per
// cycle. The channel is closed when the scheduler stops.
func (s *Scheduler) Results() <-chan CycleResult {
	return s.results
}

// Interval returns the current period.
func (s *Scheduler) Interval() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.interval
}

// SetInterval changes the period. A running loop resets its ticker; the
// cycle in flight, if any, is unaffected. Non-positive values are ignored.
func (s *Scheduler) SetInterval(d time.Duration) {
	if d <= 0 {
		return
	}

	s.mu.Lock()
	s.interval = d
	s.mu.Unlock()

	// keep only the newest pending change
	for {
		select {
		case s.intervalCh <- d:
			return
		default:
		}
		select {
		case <-s.intervalCh:
		default:
		}
	}
}

// State returns a copy of the cycle history.
func (s *Scheduler) State() State {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	st := s.state
	if st.Snapshot != nil {
		snap := *st.Snapshot
		st.Snapshot = &snap
	}
	return st
}

// Start begins the polling loop in a background goroutine.
//
// If ctx is nil, context.Background() is used as the parent context.
// Start is idempotent; subsequent calls after the first are no-ops.
// If Stop was called before Start, Start is a no-op.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	if s.started || s.stopped {
		s.mu.Unlock()
		return
	}
	s.started = true

	if ctx == nil {
		ctx = context.Background()
	}
	s.ctx, s.cancel = context.WithCancel(ctx)
	pollCtx := s.ctx // capture under lock to avoid race
	interval := s.interval
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		defer s.closeOnce.Do(func() { close(s.results) })

		if !s.cycle(pollCtx) {
			return
		}

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-pollCtx.Done():
				return
			case d := <-s.intervalCh:
				ticker.Reset(d)
				s.logger.Info("polling interval changed", "interval", d.String())
			case <-ticker.C:
				if !s.cycle(pollCtx) {
					return
				}
			}
		}
	}()
}

// Stop halts the scheduler and waits for the loop to exit. In-flight
// requests are abandoned through context cancellation.
//
// Stop is idempotent and safe to call multiple times. Calling Stop before
// Start is a safe no-op.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.stopped {
		s.stopped = true
		if s.cancel != nil {
			s.cancel()
		}
	}
	s.mu.Unlock()

	s.wg.Wait()

	// ensure channel is closed even if Start() was never called
	s.closeOnce.Do(func() { close(s.results) })
}

// cycle runs one cycle, records it and emits the result. It reports false
// when the loop should exit.
func (s *Scheduler) cycle(ctx context.Context) bool {
	res := s.runOnce(ctx)
	if ctx.Err() != nil {
		// teardown: the result of an abandoned cycle is not recorded
		return false
	}
	if errors.Is(res.Err, engine.ErrCycleInProgress) {
		s.logger.Debug("cycle skipped, another cycle is running", "cycle_id", res.CycleID)
		return true
	}

	s.record(res)

	select {
	case s.results <- res:
		return true
	case <-ctx.Done():
		return false
	}
}

// runOnce calls the runner with panic recovery. A panic is logged with its
// stack under a correlation id and reported as a failed cycle.
func (s *Scheduler) runOnce(ctx context.Context) (res CycleResult) {
	res = CycleResult{
		CycleID:   uuid.NewString(),
		StartedAt: time.Now(),
	}

	defer func() {
		if r := recover(); r != nil {
			correlationID := uuid.NewString()
			stack := debug.Stack()

			// log full context server-side for debugging
			s.logger.Error("poll cycle panic",
				"cycle_id", res.CycleID,
				"correlation_id", correlationID,
				"panic", fmt.Sprintf("%v", r),
				"stack", string(stack),
			)

			res.Result = engine.Result{}
			res.Err = fmt.Errorf("poll cycle panic (correlation_id: %s)", correlationID)
		}
		res.Duration = time.Since(res.StartedAt)
	}()

	res.Result, res.Err = s.runner.RunCycle(ctx)
	return res
}

func (s *Scheduler) record(res CycleResult) {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()

	s.state.Cycles++
	if res.Err != nil {
		s.state.ConsecutiveFailures++
		s.state.LastError = res.Err
		s.logger.Warn("poll cycle failed",
			"cycle_id", res.CycleID,
			"duration_ms", res.Duration.Milliseconds(),
			"consecutive_failures", s.state.ConsecutiveFailures,
			"error", res.Err.Error(),
		)
		return
	}

	snap := res.Result.Snapshot
	s.state.Snapshot = &snap
	s.state.LastSuccess = res.StartedAt.Add(res.Duration)
	s.state.LastError = nil
	s.state.ConsecutiveFailures = 0
	s.logger.Debug("poll cycle completed",
		"cycle_id", res.CycleID,
		"duration_ms", res.Duration.Milliseconds(),
		"new_arrivals", len(res.Result.Arrivals),
		"skipped_mailboxes", len(res.Result.SkippedMailboxes),
	)
}
