package engine

import (
	"errors"
	"fmt"
	"net/url"
	"slices"
	"time"

	"github.com/jpalmerr/scoutboard/internal/freescout"
)

const (
	// MinInterval is the shortest polling interval accepted.
	MinInterval = 10 * time.Second

	// DefaultInterval is used when no interval is configured.
	DefaultInterval = 60 * time.Second
)

// ErrIntervalTooShort is returned for polling intervals below [MinInterval].
var ErrIntervalTooShort = fmt.Errorf("polling interval must be at least %s", MinInterval)

// ErrImmutableField is returned by [Engine.Configure] when a field other than
// the mailbox filter or interval changes after construction.
var ErrImmutableField = errors.New("only the mailbox filter and interval can change after construction")

// Config is the engine configuration.
//
// An AgentID of 0 disables the my-tickets metric. An empty MailboxIDs filter
// means every mailbox the API key can see.
type Config struct {
	BaseURL    string
	APIKey     string
	AgentID    int
	MailboxIDs []int
	Interval   time.Duration
}

// Normalize strips the base URL, defaults the interval and de-duplicates the
// mailbox filter. Filter order is kept; it decides merge order for
// conversations that appear in more than one mailbox.
func (c Config) Normalize() Config {
	c.BaseURL = freescout.NormalizeBaseURL(c.BaseURL)
	if c.Interval == 0 {
		c.Interval = DefaultInterval
	}

	if len(c.MailboxIDs) > 0 {
		seen := make(map[int]struct{}, len(c.MailboxIDs))
		ids := make([]int, 0, len(c.MailboxIDs))
		for _, id := range c.MailboxIDs {
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
		c.MailboxIDs = ids
	}
	return c
}

// Validate checks a normalised config.
func (c Config) Validate() error {
	if c.BaseURL == "" {
		return errors.New("base url is required")
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("base url scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return errors.New("base url must include a host")
	}
	if c.APIKey == "" {
		return errors.New("api key is required")
	}
	if c.AgentID < 0 {
		return fmt.Errorf("agent id cannot be negative, got %d", c.AgentID)
	}
	for _, id := range c.MailboxIDs {
		if id <= 0 {
			return fmt.Errorf("mailbox ids must be positive, got %d", id)
		}
	}
	if c.Interval < MinInterval {
		return fmt.Errorf("%w, got %s", ErrIntervalTooShort, c.Interval)
	}
	return nil
}

// clone returns a copy that shares no slices with c.
func (c Config) clone() Config {
	c.MailboxIDs = slices.Clone(c.MailboxIDs)
	return c
}
