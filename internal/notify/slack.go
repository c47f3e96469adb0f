package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/jpalmerr/scoutboard/internal/htmlstrip"
	"github.com/jpalmerr/scoutboard/internal/store"
)

const (
	defaultSlackTimeout  = 10 * time.Second
	defaultRetryAttempts = 3
	previewRunes         = 280
)

// Slack posts one incoming-webhook message per arrival.
type Slack struct {
	webhookURL    string
	httpClient    *http.Client
	retryAttempts int
	backoff       func(attempt int) time.Duration
}

// SlackOption configures a [Slack] sink.
type SlackOption func(*Slack)

// WithSlackTimeout sets the per-request timeout.
func WithSlackTimeout(d time.Duration) SlackOption {
	return func(s *Slack) {
		if d > 0 {
			s.httpClient.Timeout = d
		}
	}
}

// WithRetryAttempts sets the number of delivery attempts per message.
func WithRetryAttempts(n int) SlackOption {
	return func(s *Slack) {
		if n > 0 {
			s.retryAttempts = n
		}
	}
}

// WithSlackHTTPClient replaces the HTTP client.
func WithSlackHTTPClient(hc *http.Client) SlackOption {
	return func(s *Slack) {
		if hc != nil {
			s.httpClient = hc
		}
	}
}

// slackMessage is the incoming-webhook payload.
type slackMessage struct {
	Text string `json:"text"`
}

// NewSlack creates a Slack sink for webhookURL.
func NewSlack(webhookURL string, opts ...SlackOption) *Slack {
	s := &Slack{
		webhookURL:    webhookURL,
		httpClient:    &http.Client{Timeout: defaultSlackTimeout},
		retryAttempts: defaultRetryAttempts,
		// quadratic: 1s, 4s, 9s...
		backoff: func(attempt int) time.Duration {
			return time.Duration(attempt*attempt) * time.Second
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name implements [Sink].
func (s *Slack) Name() string { return "slack" }

// Send posts each arrival. It stops at the first message that exhausts its
// retries or when ctx is done.
func (s *Slack) Send(ctx context.Context, arrivals []store.Arrival) error {
	for _, a := range arrivals {
		if err := s.post(ctx, FormatMessage(a)); err != nil {
			return fmt.Errorf("conversation %d: %w", a.ConversationID, err)
		}
	}
	return nil
}

// FormatMessage renders an arrival as Slack mrkdwn.
func FormatMessage(a store.Arrival) string {
	var b strings.Builder
	fmt.Fprintf(&b, ":incoming_envelope: New conversation <%s|#%d %s>", a.URL, conversationNumber(a), slackEscape(a.Subject))
	if a.MailboxID != 0 {
		fmt.Fprintf(&b, " in mailbox %d", a.MailboxID)
	}
	if preview := htmlstrip.Preview(a.Preview, previewRunes); preview != "" {
		b.WriteString("\n> ")
		b.WriteString(slackEscape(preview))
	}
	return b.String()
}

func conversationNumber(a store.Arrival) int {
	if a.Number != 0 {
		return a.Number
	}
	return a.ConversationID
}

// slackEscape escapes the three characters Slack treats as control
// sequences in mrkdwn.
func slackEscape(s string) string {
	return strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;").Replace(s)
}

func (s *Slack) post(ctx context.Context, text string) error {
	payload, err := json.Marshal(slackMessage{Text: text})
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt < s.retryAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(s.backoff(attempt)):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		lastErr = s.attempt(ctx, payload)
		if lastErr == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}

	return fmt.Errorf("failed after %d attempts: %w", s.retryAttempts, lastErr)
}

func (s *Slack) attempt(ctx context.Context, payload []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("slack webhook returned status %d", resp.StatusCode)
	}
	return nil
}
