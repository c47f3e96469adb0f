// Package notify delivers new-conversation events to external sinks.
//
// Sinks are best effort: a failing sink is logged and never fails the poll
// cycle that produced the events.
package notify

import (
	"context"
	"log/slog"
	"time"

	"github.com/jpalmerr/scoutboard/internal/store"
)

// Sink receives batches of arrivals, oldest first.
type Sink interface {
	Name() string
	Send(ctx context.Context, arrivals []store.Arrival) error
}

// Dispatcher fans arrivals out to its sinks in order.
type Dispatcher struct {
	sinks  []Sink
	logger *slog.Logger
}

// NewDispatcher creates a [Dispatcher]. Nil sinks are skipped.
func NewDispatcher(logger *slog.Logger, sinks ...Sink) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	d := &Dispatcher{logger: logger}
	for _, s := range sinks {
		if s != nil {
			d.sinks = append(d.sinks, s)
		}
	}
	return d
}

// Len returns the number of sinks.
func (d *Dispatcher) Len() int {
	return len(d.sinks)
}

// Dispatch sends arrivals to every sink and returns how many sinks failed.
func (d *Dispatcher) Dispatch(ctx context.Context, arrivals []store.Arrival) int {
	if len(arrivals) == 0 {
		return 0
	}

	failed := 0
	for _, s := range d.sinks {
		start := time.Now()
		if err := s.Send(ctx, arrivals); err != nil {
			failed++
			d.logger.Warn("notification sink failed",
				"sink", s.Name(),
				"arrivals", len(arrivals),
				"error", err.Error(),
			)
			continue
		}
		d.logger.Debug("notification sink delivered",
			"sink", s.Name(),
			"arrivals", len(arrivals),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}
	return failed
}
