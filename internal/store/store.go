package store

import "time"

// Freshness describes how current the stored metrics are.
type Freshness string

const (
	// FreshnessPending means no cycle has succeeded yet.
	FreshnessPending Freshness = "pending"

	// FreshnessFresh means the last cycle succeeded.
	FreshnessFresh Freshness = "fresh"

	// FreshnessStale means the metrics come from an earlier cycle because
	// the latest one failed.
	FreshnessStale Freshness = "stale"
)

// EventName is the event type attached to every arrival.
const EventName = "freescout_new_conversation"

// Status is the board state served by the REST API and SSE.
//
// Metrics is keyed by metric name. A nil value means the metric is
// disabled (my_tickets without an agent id) or not yet known.
type Status struct {
	Title               string          `json:"title"`
	Metrics             map[string]*int `json:"metrics"`
	CustomFolders       []string        `json:"custom_folders"`
	Freshness           Freshness       `json:"freshness"`
	CollectedAt         *time.Time      `json:"collected_at"`
	LastError           *string         `json:"last_error"`
	ConsecutiveFailures int             `json:"consecutive_failures"`
	SkippedMailboxes    []int           `json:"skipped_mailboxes"`
}

// Arrival is the storage representation of a new-conversation event.
type Arrival struct {
	Event          string    `json:"event"`
	ConversationID int       `json:"conversation_id"`
	Number         int       `json:"number"`
	Subject        string    `json:"subject"`
	Status         string    `json:"status"`
	MailboxID      int       `json:"mailbox_id"`
	AssigneeID     *int      `json:"assignee_id"`
	CreatedAt      string    `json:"created_at"`
	Preview        string    `json:"preview"`
	URL            string    `json:"url"`
	DetectedAt     time.Time `json:"detected_at"`
}

// UpdateType distinguishes the payloads carried by an [Update].
type UpdateType string

const (
	UpdateStatus  UpdateType = "status"
	UpdateArrival UpdateType = "arrival"
)

// Update is one message published to subscribers. Exactly one of Status
// and Arrival is set, matching Type.
type Update struct {
	Type    UpdateType `json:"type"`
	Status  *Status    `json:"status,omitempty"`
	Arrival *Arrival   `json:"arrival,omitempty"`
}

// Store defines the interface for storing and subscribing to board updates.
//
// Store implementations must be safe for concurrent access.
type Store interface {
	// RecordSuccess replaces the metrics and marks the board fresh.
	RecordSuccess(status Status)

	// RecordFailure keeps the current metrics and records the error. The
	// board goes stale, or stays pending when no cycle has succeeded yet.
	RecordFailure(errMsg string)

	// Status returns a copy of the current board state.
	Status() Status

	// AddArrivals appends events to the bounded history and publishes each.
	AddArrivals(arrivals []Arrival)

	// Arrivals returns up to limit events, newest first. A non-positive
	// limit returns the whole history.
	Arrivals(limit int) []Arrival

	// Subscribe returns a channel that receives updates.
	// The returned channel has a buffer; slow consumers may miss updates.
	// Caller must call Unsubscribe when done to prevent resource leaks.
	Subscribe() <-chan Update

	// Unsubscribe removes a subscription and closes the channel.
	// Safe to call with a channel that was already unsubscribed.
	Unsubscribe(ch <-chan Update)
}
