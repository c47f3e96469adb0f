package scoutboard

import (
	"maps"
	"strconv"
	"time"

	"github.com/jpalmerr/scoutboard/internal/engine"
	"github.com/jpalmerr/scoutboard/internal/store"
)

// EventName is the name of the event emitted once per new conversation.
const EventName = store.EventName

// Metric keys used by [Snapshot.Metrics], the REST API and the dashboard.
const (
	MetricOpen       = "open_tickets"
	MetricUnassigned = "unassigned_tickets"
	MetricPending    = "pending_tickets"
	MetricSnoozed    = "snoozed_tickets"
	MetricNew        = "new_tickets"
	MetricMine       = "my_tickets"

	// FolderMetricPrefix is prepended to a custom folder name.
	FolderMetricPrefix = "folder_"
)

// Snapshot is the complete set of metrics from one successful poll cycle.
//
// A Snapshot is never partial: a cycle that fails produces no Snapshot and
// the previous one stays current.
type Snapshot struct {
	// Open is the number of active conversations.
	Open int

	// Unassigned is the sum of active counts across unassigned folders.
	Unassigned int

	// Pending is the number of pending conversations.
	Pending int

	// Snoozed is the sum of active counts across snoozed folders.
	Snoozed int

	// New is the number of conversations first seen this cycle. Always 0
	// on the first cycle after start.
	New int

	// MyTickets is the number of active conversations assigned to the
	// configured agent, or nil when no agent is configured.
	MyTickets *int

	// Folders maps custom folder names to active counts.
	Folders map[string]int

	// CollectedAt is when the cycle finished.
	CollectedAt time.Time
}

// Metrics returns the snapshot keyed by metric name. my_tickets is present
// with a nil value when the agent feature is disabled.
func (s Snapshot) Metrics() map[string]*int {
	m := map[string]*int{
		MetricOpen:       intPtr(s.Open),
		MetricUnassigned: intPtr(s.Unassigned),
		MetricPending:    intPtr(s.Pending),
		MetricSnoozed:    intPtr(s.Snoozed),
		MetricNew:        intPtr(s.New),
		MetricMine:       nil,
	}
	if s.MyTickets != nil {
		m[MetricMine] = intPtr(*s.MyTickets)
	}
	for name, n := range s.Folders {
		m[FolderMetricPrefix+name] = intPtr(n)
	}
	return m
}

func (s Snapshot) clone() Snapshot {
	s.Folders = maps.Clone(s.Folders)
	if s.MyTickets != nil {
		s.MyTickets = intPtr(*s.MyTickets)
	}
	return s
}

// ConversationEvent reports one newly detected conversation.
type ConversationEvent struct {
	// Event is always [EventName].
	Event string

	ConversationID int
	Number         int
	Subject        string
	Status         string
	MailboxID      int

	// AssigneeID is nil when the conversation is unassigned.
	AssigneeID *int

	// CreatedAt is the conversation timestamp as reported by FreeScout.
	CreatedAt string

	// Preview is the raw HTML preview of the first thread.
	Preview string

	// URL links to the conversation in the FreeScout web UI.
	URL string

	// DetectedAt is when the poll cycle that found it finished.
	DetectedAt time.Time
}

func toSnapshot(s engine.Snapshot) Snapshot {
	out := Snapshot{
		Open:        s.Open,
		Unassigned:  s.Unassigned,
		Pending:     s.Pending,
		Snoozed:     s.Snoozed,
		New:         s.New,
		Folders:     maps.Clone(s.Folders),
		CollectedAt: s.CollectedAt,
	}
	if s.MyTickets != nil {
		out.MyTickets = intPtr(*s.MyTickets)
	}
	if out.Folders == nil {
		out.Folders = map[string]int{}
	}
	return out
}

func conversationURL(baseURL string, id int) string {
	return baseURL + "/conversation/" + strconv.Itoa(id)
}

func toEvents(baseURL string, arrivals []engine.Arrival, detectedAt time.Time) []ConversationEvent {
	events := make([]ConversationEvent, 0, len(arrivals))
	for _, a := range arrivals {
		ev := ConversationEvent{
			Event:          EventName,
			ConversationID: a.ConversationID,
			Number:         a.Number,
			Subject:        a.Subject,
			Status:         a.Status,
			MailboxID:      a.MailboxID,
			CreatedAt:      a.CreatedAt,
			Preview:        a.Preview,
			URL:            conversationURL(baseURL, a.ConversationID),
			DetectedAt:     detectedAt,
		}
		if a.AssigneeID != nil {
			ev.AssigneeID = intPtr(*a.AssigneeID)
		}
		events = append(events, ev)
	}
	return events
}

func (e ConversationEvent) toStore() store.Arrival {
	if e.AssigneeID != nil {
		e.AssigneeID = intPtr(*e.AssigneeID)
	}
	return store.Arrival{
		Event:          e.Event,
		ConversationID: e.ConversationID,
		Number:         e.Number,
		Subject:        e.Subject,
		Status:         e.Status,
		MailboxID:      e.MailboxID,
		AssigneeID:     e.AssigneeID,
		CreatedAt:      e.CreatedAt,
		Preview:        e.Preview,
		URL:            e.URL,
		DetectedAt:     e.DetectedAt,
	}
}

func intPtr(n int) *int { return &n }
