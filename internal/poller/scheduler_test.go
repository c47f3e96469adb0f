package poller

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jpalmerr/scoutboard/internal/engine"
)

// testLogger returns a logger that discards all output for clean test output.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeRunner returns results from fn, counting calls.
type fakeRunner struct {
	calls atomic.Int32
	fn    func(ctx context.Context, n int) (engine.Result, error)
}

func (f *fakeRunner) RunCycle(ctx context.Context) (engine.Result, error) {
	n := int(f.calls.Add(1))
	if f.fn == nil {
		return engine.Result{Snapshot: engine.Snapshot{Open: n}}, nil
	}
	return f.fn(ctx, n)
}

func receive(t *testing.T, s *Scheduler) CycleResult {
	t.Helper()
	select {
	case res, ok := <-s.Results():
		if !ok {
			t.Fatal("results channel closed early")
		}
		return res
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for cycle result")
	}
	return CycleResult{}
}

// TestScheduler_StopBeforeStart verifies that calling Stop() on a scheduler
// that was never started does not panic and is a safe no-op.
func TestScheduler_StopBeforeStart(t *testing.T) {
	scheduler := NewScheduler(&fakeRunner{}, time.Minute, testLogger())

	// this must not panic
	scheduler.Stop()
}

// TestScheduler_StopTwice verifies that Stop() is idempotent.
func TestScheduler_StopTwice(t *testing.T) {
	scheduler := NewScheduler(&fakeRunner{}, time.Minute, testLogger())
	scheduler.Start(context.Background())

	go func() {
		for range scheduler.Results() {
		}
	}()

	// both calls must complete without panic or deadlock
	scheduler.Stop()
	scheduler.Stop()
}

// TestScheduler_StopAfterStart verifies the normal lifecycle: Start followed
// by Stop results in clean shutdown with the results channel closed.
func TestScheduler_StopAfterStart(t *testing.T) {
	scheduler := NewScheduler(&fakeRunner{}, time.Minute, testLogger())
	scheduler.Start(context.Background())

	receive(t, scheduler)
	scheduler.Stop()

	select {
	case _, ok := <-scheduler.Results():
		if ok {
			t.Error("expected results channel to be closed after Stop()")
		}
	case <-time.After(time.Second):
		t.Error("timeout waiting for results channel to close")
	}
}

// TestScheduler_ConcurrentStartStop verifies that calling Start() and Stop()
// concurrently does not cause a race condition or panic.
// Run with: go test -race ./internal/poller/...
func TestScheduler_ConcurrentStartStop(t *testing.T) {
	for i := 0; i < 100; i++ {
		scheduler := NewScheduler(&fakeRunner{}, time.Minute, testLogger())

		var wg sync.WaitGroup
		wg.Add(2)

		go func() {
			defer wg.Done()
			scheduler.Start(context.Background())
		}()

		go func() {
			defer wg.Done()
			scheduler.Stop()
		}()

		wg.Wait()
		scheduler.Stop()

		for range scheduler.Results() {
		}
	}
}

// TestScheduler_StartTwice verifies that Start() is idempotent and calling
// it multiple times does not spawn multiple polling goroutines.
func TestScheduler_StartTwice(t *testing.T) {
	runner := &fakeRunner{}
	scheduler := NewScheduler(runner, time.Hour, testLogger())

	scheduler.Start(context.Background())
	scheduler.Start(context.Background())

	receive(t, scheduler)
	time.Sleep(50 * time.Millisecond)
	scheduler.Stop()

	if got := runner.calls.Load(); got != 1 {
		t.Errorf("RunCycle calls = %d, want 1", got)
	}
}

// TestScheduler_StopBeforeStartThenStart verifies that Start() after Stop()
// does not run any cycle.
func TestScheduler_StopBeforeStartThenStart(t *testing.T) {
	runner := &fakeRunner{}
	scheduler := NewScheduler(runner, time.Minute, testLogger())

	scheduler.Stop()
	scheduler.Start(context.TODO())
	scheduler.Stop()

	if got := runner.calls.Load(); got != 0 {
		t.Errorf("RunCycle calls = %d, want 0", got)
	}
}

// TestScheduler_ContextCancellation verifies that cancelling the parent
// context abandons the in-flight cycle and stops the loop.
func TestScheduler_ContextCancellation(t *testing.T) {
	entered := make(chan struct{})
	runner := &fakeRunner{fn: func(ctx context.Context, n int) (engine.Result, error) {
		close(entered)
		<-ctx.Done()
		return engine.Result{}, ctx.Err()
	}}

	ctx, cancel := context.WithCancel(context.Background())
	scheduler := NewScheduler(runner, time.Minute, testLogger())
	scheduler.Start(ctx)

	<-entered
	cancel()

	done := make(chan struct{})
	go func() {
		scheduler.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop() did not complete after parent context cancellation")
	}

	if _, ok := <-scheduler.Results(); ok {
		t.Error("abandoned cycle emitted a result")
	}
	if st := scheduler.State(); st.Cycles != 0 {
		t.Errorf("State().Cycles = %d, want 0", st.Cycles)
	}
}

func TestScheduler_FirstCycleImmediate(t *testing.T) {
	scheduler := NewScheduler(&fakeRunner{}, time.Hour, testLogger())
	start := time.Now()
	scheduler.Start(context.Background())
	defer scheduler.Stop()

	res := receive(t, scheduler)
	if time.Since(start) > time.Second {
		t.Errorf("first cycle took %s, want immediate", time.Since(start))
	}
	if res.CycleID == "" {
		t.Error("CycleID is empty")
	}
	if res.Err != nil {
		t.Errorf("Err = %v", res.Err)
	}
}

func TestScheduler_RunsPeriodically(t *testing.T) {
	scheduler := NewScheduler(&fakeRunner{}, 20*time.Millisecond, testLogger())
	scheduler.Start(context.Background())
	defer scheduler.Stop()

	ids := map[string]bool{}
	for i := 0; i < 3; i++ {
		res := receive(t, scheduler)
		if res.Result.Snapshot.Open != i+1 {
			t.Errorf("cycle %d Open = %d, want %d", i+1, res.Result.Snapshot.Open, i+1)
		}
		ids[res.CycleID] = true
	}
	if len(ids) != 3 {
		t.Errorf("distinct cycle ids = %d, want 3", len(ids))
	}
}

func TestScheduler_CyclesNeverOverlap(t *testing.T) {
	var active, maxActive atomic.Int32
	runner := &fakeRunner{fn: func(ctx context.Context, n int) (engine.Result, error) {
		cur := active.Add(1)
		for {
			old := maxActive.Load()
			if cur <= old || maxActive.CompareAndSwap(old, cur) {
				break
			}
		}
		// outlast the interval
		time.Sleep(30 * time.Millisecond)
		active.Add(-1)
		return engine.Result{}, nil
	}}

	scheduler := NewScheduler(runner, 5*time.Millisecond, testLogger())
	scheduler.Start(context.Background())

	for i := 0; i < 4; i++ {
		receive(t, scheduler)
	}
	scheduler.Stop()

	if got := maxActive.Load(); got != 1 {
		t.Errorf("max concurrent cycles = %d, want 1", got)
	}
}

func TestScheduler_FailureKeepsLastSnapshot(t *testing.T) {
	boom := errors.New("pending count: FreeScout API error 500")
	runner := &fakeRunner{fn: func(ctx context.Context, n int) (engine.Result, error) {
		if n == 1 {
			return engine.Result{Snapshot: engine.Snapshot{Open: 7}}, nil
		}
		return engine.Result{}, boom
	}}

	scheduler := NewScheduler(runner, 10*time.Millisecond, testLogger())
	scheduler.Start(context.Background())
	defer scheduler.Stop()

	receive(t, scheduler)
	for i := 0; i < 2; i++ {
		if res := receive(t, scheduler); !errors.Is(res.Err, boom) {
			t.Errorf("cycle %d Err = %v, want %v", i+2, res.Err, boom)
		}
	}

	st := scheduler.State()
	if st.Snapshot == nil || st.Snapshot.Open != 7 {
		t.Fatalf("State().Snapshot = %+v, want last successful snapshot (Open 7)", st.Snapshot)
	}
	if st.ConsecutiveFailures < 2 {
		t.Errorf("ConsecutiveFailures = %d, want >= 2", st.ConsecutiveFailures)
	}
	if !errors.Is(st.LastError, boom) {
		t.Errorf("LastError = %v, want %v", st.LastError, boom)
	}
	if st.LastSuccess.IsZero() {
		t.Error("LastSuccess is zero")
	}
}

func TestScheduler_SuccessResetsFailures(t *testing.T) {
	runner := &fakeRunner{fn: func(ctx context.Context, n int) (engine.Result, error) {
		if n == 1 {
			return engine.Result{}, errors.New("down")
		}
		return engine.Result{Snapshot: engine.Snapshot{Open: n}}, nil
	}}

	scheduler := NewScheduler(runner, 10*time.Millisecond, testLogger())
	scheduler.Start(context.Background())

	receive(t, scheduler)
	receive(t, scheduler)
	scheduler.Stop()

	st := scheduler.State()
	if st.ConsecutiveFailures != 0 || st.LastError != nil {
		t.Errorf("after success ConsecutiveFailures = %d, LastError = %v", st.ConsecutiveFailures, st.LastError)
	}
}

func TestScheduler_SetInterval(t *testing.T) {
	scheduler := NewScheduler(&fakeRunner{}, time.Hour, testLogger())
	scheduler.Start(context.Background())
	defer scheduler.Stop()

	receive(t, scheduler)
	scheduler.SetInterval(10 * time.Millisecond)
	if got := scheduler.Interval(); got != 10*time.Millisecond {
		t.Errorf("Interval() = %s, want 10ms", got)
	}

	// with the hour-long ticker still in place this would time out
	receive(t, scheduler)
}

func TestScheduler_SetIntervalIgnoresNonPositive(t *testing.T) {
	scheduler := NewScheduler(&fakeRunner{}, time.Minute, testLogger())
	scheduler.SetInterval(0)
	scheduler.SetInterval(-time.Second)
	if got := scheduler.Interval(); got != time.Minute {
		t.Errorf("Interval() = %s, want 1m", got)
	}
}

func TestScheduler_SetIntervalBeforeStartDoesNotBlock(t *testing.T) {
	scheduler := NewScheduler(&fakeRunner{}, time.Minute, testLogger())
	done := make(chan struct{})
	go func() {
		scheduler.SetInterval(20 * time.Second)
		scheduler.SetInterval(30 * time.Second)
		scheduler.SetInterval(40 * time.Second)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("SetInterval blocked without a running loop")
	}
}

// TestScheduler_CyclePanicRecovery verifies that a panicking cycle does not
// crash the scheduler and is reported with a correlation id.
func TestScheduler_CyclePanicRecovery(t *testing.T) {
	runner := &fakeRunner{fn: func(ctx context.Context, n int) (engine.Result, error) {
		if n == 1 {
			panic("simulated failure")
		}
		return engine.Result{Snapshot: engine.Snapshot{Open: 1}}, nil
	}}

	scheduler := NewScheduler(runner, 10*time.Millisecond, testLogger())
	scheduler.Start(context.Background())
	defer scheduler.Stop()

	res := receive(t, scheduler)
	if res.Err == nil {
		t.Fatal("Err = nil, want error describing panic")
	}
	if !strings.Contains(res.Err.Error(), "poll cycle panic") {
		t.Errorf("Err = %q, want to contain 'poll cycle panic'", res.Err)
	}
	if !strings.Contains(res.Err.Error(), "correlation_id") {
		t.Errorf("Err = %q, want to contain 'correlation_id'", res.Err)
	}

	// the loop survives
	if res := receive(t, scheduler); res.Err != nil {
		t.Errorf("second cycle Err = %v, want nil", res.Err)
	}
}

func TestScheduler_SkipsCycleInProgress(t *testing.T) {
	runner := &fakeRunner{fn: func(ctx context.Context, n int) (engine.Result, error) {
		if n == 1 {
			return engine.Result{}, engine.ErrCycleInProgress
		}
		return engine.Result{}, nil
	}}

	scheduler := NewScheduler(runner, 10*time.Millisecond, testLogger())
	scheduler.Start(context.Background())

	res := receive(t, scheduler)
	scheduler.Stop()

	if res.Err != nil {
		t.Errorf("first emitted Err = %v, want the skipped cycle to be dropped", res.Err)
	}
	if st := scheduler.State(); st.ConsecutiveFailures != 0 {
		t.Errorf("ConsecutiveFailures = %d, want 0", st.ConsecutiveFailures)
	}
}
