package freescout

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// APIKeyHeader carries the static API key on every request.
const APIKeyHeader = "X-FreeScout-API-Key"

const maxResponseBodySize = 1 << 20 // 1MB

// DefaultTimeout bounds each individual request.
const DefaultTimeout = 10 * time.Second

// connection pooling limits; one cycle fans out one request per mailbox per query
const (
	defaultMaxIdleConns        = 100
	defaultMaxIdleConnsPerHost = 10
	defaultMaxConnsPerHost     = 10
	defaultIdleConnTimeout     = 60 * time.Second
)

// Client talks to a single FreeScout instance.
//
// Client uses per-request timeouts via context rather than a global timeout,
// so a paginated fetch gets a fresh budget for every page. Response bodies
// are limited to 1MB.
type Client struct {
	baseURL    string
	apiKey     string
	timeout    time.Duration
	httpClient *http.Client
}

// ClientOption configures a [Client].
type ClientOption func(*Client)

// WithHTTPClient replaces the pooled, instrumented default HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithTimeout sets the per-request timeout. Non-positive values are ignored.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// NewClient creates a [Client] for the instance at baseURL.
//
// A trailing slash on baseURL is stripped. The default transport is pooled
// (100 idle connections, 10 per host) and wrapped with otelhttp so requests
// join any trace carried by the caller's context.
func NewClient(baseURL, apiKey string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: NormalizeBaseURL(baseURL),
		apiKey:  apiKey,
		timeout: DefaultTimeout,
		httpClient: &http.Client{
			// no default timeout - we use per-request timeouts via context
			Transport: otelhttp.NewTransport(&http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConns:        defaultMaxIdleConns,
				MaxIdleConnsPerHost: defaultMaxIdleConnsPerHost,
				MaxConnsPerHost:     defaultMaxConnsPerHost,
				IdleConnTimeout:     defaultIdleConnTimeout,
			}),
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NormalizeBaseURL strips surrounding whitespace and trailing slashes.
func NormalizeBaseURL(raw string) string {
	return strings.TrimRight(strings.TrimSpace(raw), "/")
}

// BaseURL returns the normalised instance URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Mailboxes fetches one page of the mailbox list.
func (c *Client) Mailboxes(ctx context.Context, page int) (MailboxPage, error) {
	var out MailboxPage
	err := c.get(ctx, "/api/mailboxes", pageValues(page), &out)
	return out, err
}

// Folders fetches one page of a mailbox's folders.
func (c *Client) Folders(ctx context.Context, mailboxID, page int) (FolderPage, error) {
	var out FolderPage
	path := "/api/mailboxes/" + strconv.Itoa(mailboxID) + "/folders"
	err := c.get(ctx, path, pageValues(page), &out)
	return out, err
}

// Conversations runs a single conversation list query.
func (c *Client) Conversations(ctx context.Context, q ConversationQuery) (ConversationPage, error) {
	var out ConversationPage
	err := c.get(ctx, "/api/conversations", q.Values(), &out)
	return out, err
}

// Ping verifies the URL and API key with the cheapest authenticated call.
// Use [Classify] to turn the error into a user-facing problem.
func (c *Client) Ping(ctx context.Context) error {
	return c.get(ctx, "/api/conversations", ConversationQuery{PerPage: 1}.Values(), nil)
}

// Close closes all idle connections in the client's connection pool.
// Safe to call multiple times; the client remains usable afterwards.
func (c *Client) Close() {
	if c == nil || c.httpClient == nil {
		return
	}
	c.httpClient.CloseIdleConnections()
}

func pageValues(page int) url.Values {
	v := url.Values{}
	if page > 0 {
		v.Set("page", strconv.Itoa(page))
	}
	return v
}

// get performs an authenticated GET and decodes the JSON body into out.
// out may be nil when only the status matters.
func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return &TransportError{Path: path, Err: fmt.Errorf("failed to create request: %w", err)}
	}
	req.Header.Set(APIKeyHeader, c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &TransportError{Path: path, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodySize))
	if err != nil {
		return &TransportError{Path: path, Err: fmt.Errorf("failed to read response body: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return newAPIError(path, resp.StatusCode, body)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &APIError{
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("invalid response body: %v", err),
			Path:       path,
		}
	}
	return nil
}
