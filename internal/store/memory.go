package store

import (
	"maps"
	"slices"
	"sync"
)

// DefaultArrivalCapacity is the number of arrival events kept in memory.
const DefaultArrivalCapacity = 100

const subscriberBuffer = 100

// MemoryStore is an in-memory implementation of [Store].
//
// Subscribers receive updates via buffered channels (buffer size 100). Updates
// are sent non-blocking; if a subscriber's buffer is full, the update is dropped
// for that subscriber to prevent blocking the entire system.
type MemoryStore struct {
	mu     sync.RWMutex
	status Status

	// arrivals is a ring; next is the slot the following event goes into.
	arrivals []Arrival
	next     int
	full     bool

	subscribers map[chan Update]struct{}
	subMu       sync.RWMutex
}

// NewMemoryStore creates a [MemoryStore] keeping up to arrivalCapacity
// arrival events. A non-positive capacity uses [DefaultArrivalCapacity].
func NewMemoryStore(title string, arrivalCapacity int) *MemoryStore {
	if arrivalCapacity <= 0 {
		arrivalCapacity = DefaultArrivalCapacity
	}
	return &MemoryStore{
		status: Status{
			Title:     title,
			Metrics:   map[string]*int{},
			Freshness: FreshnessPending,
		},
		arrivals:    make([]Arrival, arrivalCapacity),
		subscribers: make(map[chan Update]struct{}),
	}
}

// RecordSuccess replaces the stored metrics, custom folders and skipped
// mailboxes from status and marks the board fresh. The title is kept.
func (m *MemoryStore) RecordSuccess(status Status) {
	m.mu.Lock()
	status.Title = m.status.Title
	status.Freshness = FreshnessFresh
	status.LastError = nil
	status.ConsecutiveFailures = 0
	m.status = cloneStatus(status)
	snapshot := cloneStatus(m.status)
	m.mu.Unlock()

	m.notifySubscribers(Update{Type: UpdateStatus, Status: &snapshot})
}

// RecordFailure records a failed cycle without touching the metrics.
func (m *MemoryStore) RecordFailure(errMsg string) {
	m.mu.Lock()
	m.status.LastError = &errMsg
	m.status.ConsecutiveFailures++
	if m.status.Freshness != FreshnessPending {
		m.status.Freshness = FreshnessStale
	}
	snapshot := cloneStatus(m.status)
	m.mu.Unlock()

	m.notifySubscribers(Update{Type: UpdateStatus, Status: &snapshot})
}

// Status returns a copy of the current board state.
func (m *MemoryStore) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return cloneStatus(m.status)
}

// AddArrivals appends arrivals to the ring, overwriting the oldest once
// full, and publishes each in order.
func (m *MemoryStore) AddArrivals(arrivals []Arrival) {
	if len(arrivals) == 0 {
		return
	}

	m.mu.Lock()
	for _, a := range arrivals {
		m.arrivals[m.next] = a
		m.next = (m.next + 1) % len(m.arrivals)
		if m.next == 0 {
			m.full = true
		}
	}
	m.mu.Unlock()

	for _, a := range arrivals {
		m.notifySubscribers(Update{Type: UpdateArrival, Arrival: &a})
	}
}

// Arrivals returns up to limit events, newest first.
func (m *MemoryStore) Arrivals(limit int) []Arrival {
	m.mu.RLock()
	defer m.mu.RUnlock()

	n := m.next
	if m.full {
		n = len(m.arrivals)
	}
	if limit <= 0 || limit > n {
		limit = n
	}

	out := make([]Arrival, 0, limit)
	for i := 0; i < limit; i++ {
		idx := (m.next - 1 - i + len(m.arrivals)) % len(m.arrivals)
		out = append(out, m.arrivals[idx])
	}
	return out
}

// Subscribe creates a new subscription and returns a channel for receiving updates.
//
// The returned channel has a buffer of 100 messages. If the buffer fills
// (slow consumer), new updates are dropped for this subscriber.
//
// Caller must call [MemoryStore.Unsubscribe] when done to prevent resource leaks.
func (m *MemoryStore) Subscribe() <-chan Update {
	ch := make(chan Update, subscriberBuffer)

	m.subMu.Lock()
	m.subscribers[ch] = struct{}{}
	m.subMu.Unlock()

	return ch
}

// Unsubscribe removes a subscription and closes its channel.
//
// Safe to call multiple times or with an unknown channel.
func (m *MemoryStore) Unsubscribe(ch <-chan Update) {
	m.subMu.Lock()
	defer m.subMu.Unlock()

	// find and delete the channel (need to convert to the right type)
	for subCh := range m.subscribers {
		if subCh == ch {
			delete(m.subscribers, subCh)
			close(subCh)
			break
		}
	}
}

// notifySubscribers sends the update to all active subscribers without
// blocking. A full subscriber buffer drops the message for that subscriber.
func (m *MemoryStore) notifySubscribers(u Update) {
	m.subMu.RLock()
	defer m.subMu.RUnlock()

	for ch := range m.subscribers {
		select {
		case ch <- u:
		default:
			// subscriber is slow, drop the message
		}
	}
}

func cloneStatus(s Status) Status {
	s.Metrics = maps.Clone(s.Metrics)
	for k, v := range s.Metrics {
		if v != nil {
			n := *v
			s.Metrics[k] = &n
		}
	}
	s.CustomFolders = slices.Clone(s.CustomFolders)
	s.SkippedMailboxes = slices.Clone(s.SkippedMailboxes)
	if s.CollectedAt != nil {
		t := *s.CollectedAt
		s.CollectedAt = &t
	}
	if s.LastError != nil {
		e := *s.LastError
		s.LastError = &e
	}
	return s
}
