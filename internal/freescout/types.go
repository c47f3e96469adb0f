package freescout

import (
	"net/url"
	"strconv"
)

// FolderType classifies a mailbox folder. Values mirror the FreeScout PHP constants.
type FolderType int

const (
	// FolderTypeUnassigned holds active conversations with no assignee.
	FolderTypeUnassigned FolderType = 1

	// FolderTypeSnoozed holds conversations snoozed until a later time.
	FolderTypeSnoozed FolderType = 180

	// FolderTypeCustom is a named team queue created by an administrator.
	FolderTypeCustom FolderType = 185
)

// String returns a short name for known folder types.
func (t FolderType) String() string {
	switch t {
	case FolderTypeUnassigned:
		return "unassigned"
	case FolderTypeSnoozed:
		return "snoozed"
	case FolderTypeCustom:
		return "custom"
	default:
		return "other(" + strconv.Itoa(int(t)) + ")"
	}
}

// Conversation statuses accepted by the status query parameter.
const (
	StatusActive  = "active"
	StatusPending = "pending"
	StatusClosed  = "closed"
	StatusSpam    = "spam"
)

// PageInfo is the pagination metadata attached to every list response.
type PageInfo struct {
	Size          int `json:"size"`
	TotalElements int `json:"totalElements"`
	TotalPages    int `json:"totalPages"`
	Number        int `json:"number"`
}

// Mailbox is a top-level inbox container.
type Mailbox struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Folder is a queue within a mailbox.
type Folder struct {
	ID          int        `json:"id"`
	Type        FolderType `json:"type"`
	Name        string     `json:"name"`
	UserID      *int       `json:"userId"`
	ActiveCount int        `json:"activeCount"`
	TotalCount  int        `json:"totalCount"`
}

// User is the subset of a FreeScout user embedded in conversations.
type User struct {
	ID        int    `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
}

// Conversation is a single support ticket.
type Conversation struct {
	ID        int    `json:"id"`
	Number    int    `json:"number"`
	Subject   string `json:"subject"`
	Status    string `json:"status"`
	MailboxID int    `json:"mailboxId"`
	Assignee  *User  `json:"assignee"`
	CreatedAt string `json:"createdAt"`
	Preview   string `json:"preview"`
}

// AssigneeID returns the assignee's id, or nil when unassigned.
func (c Conversation) AssigneeID() *int {
	if c.Assignee == nil {
		return nil
	}
	id := c.Assignee.ID
	return &id
}

// MailboxPage is one page of GET /api/mailboxes.
type MailboxPage struct {
	Embedded struct {
		Mailboxes []Mailbox `json:"mailboxes"`
	} `json:"_embedded"`
	Page PageInfo `json:"page"`
}

// FolderPage is one page of GET /api/mailboxes/{id}/folders.
type FolderPage struct {
	Embedded struct {
		Folders []Folder `json:"folders"`
	} `json:"_embedded"`
	Page PageInfo `json:"page"`
}

// ConversationPage is one page of GET /api/conversations.
type ConversationPage struct {
	Embedded struct {
		Conversations []Conversation `json:"conversations"`
	} `json:"_embedded"`
	Page PageInfo `json:"page"`
}

// ConversationQuery holds the filters for GET /api/conversations.
// Zero values are omitted from the request.
type ConversationQuery struct {
	Status     string
	MailboxID  int
	AssignedTo int
	PerPage    int
	Page       int
}

// Values encodes the query as URL parameters.
func (q ConversationQuery) Values() url.Values {
	v := url.Values{}
	if q.Status != "" {
		v.Set("status", q.Status)
	}
	if q.MailboxID != 0 {
		v.Set("mailboxId", strconv.Itoa(q.MailboxID))
	}
	if q.AssignedTo != 0 {
		v.Set("assignedTo", strconv.Itoa(q.AssignedTo))
	}
	if q.PerPage != 0 {
		v.Set("perPage", strconv.Itoa(q.PerPage))
	}
	if q.Page != 0 {
		v.Set("page", strconv.Itoa(q.Page))
	}
	return v
}
