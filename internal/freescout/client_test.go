package freescout

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"net/http/httptrace"
	"strings"
	"testing"
	"time"
)

func TestNewClient_StripsTrailingSlash(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"https://support.example.com/", "https://support.example.com"},
		{"https://support.example.com///", "https://support.example.com"},
		{"  https://support.example.com  ", "https://support.example.com"},
		{"https://support.example.com/help/", "https://support.example.com/help"},
	}

	for _, tt := range tests {
		c := NewClient(tt.in, "key")
		if c.BaseURL() != tt.want {
			t.Errorf("NewClient(%q).BaseURL() = %q, want %q", tt.in, c.BaseURL(), tt.want)
		}
	}
}

func TestClient_SendsAPIKeyHeader(t *testing.T) {
	var gotKey, gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get(APIKeyHeader)
		gotPath = r.URL.Path
		_, _ = w.Write([]byte(`{"_embedded":{"mailboxes":[{"id":5,"name":"Support"}]},"page":{"totalPages":1}}`))
	}))
	defer server.Close()

	c := NewClient(server.URL+"/", "secret-key")
	page, err := c.Mailboxes(context.Background(), 1)
	if err != nil {
		t.Fatalf("Mailboxes() error = %v", err)
	}

	if gotKey != "secret-key" {
		t.Errorf("%s = %q, want %q", APIKeyHeader, gotKey, "secret-key")
	}
	if gotPath != "/api/mailboxes" {
		t.Errorf("path = %q, want /api/mailboxes", gotPath)
	}
	if len(page.Embedded.Mailboxes) != 1 || page.Embedded.Mailboxes[0].ID != 5 {
		t.Errorf("Mailboxes = %+v, want one mailbox with id 5", page.Embedded.Mailboxes)
	}
}

func TestClient_FoldersDecodesPage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/mailboxes/9/folders" {
			t.Errorf("path = %q, want /api/mailboxes/9/folders", r.URL.Path)
		}
		if r.URL.Query().Get("page") != "2" {
			t.Errorf("page = %q, want 2", r.URL.Query().Get("page"))
		}
		_, _ = w.Write([]byte(`{
			"_embedded": {"folders": [
				{"id": 1, "type": 1, "name": "Unassigned", "activeCount": 4},
				{"id": 2, "type": 185, "name": "ECU-Repair", "activeCount": 7}
			]},
			"page": {"size": 50, "totalElements": 52, "totalPages": 2, "number": 2}
		}`))
	}))
	defer server.Close()

	c := NewClient(server.URL, "key")
	page, err := c.Folders(context.Background(), 9, 2)
	if err != nil {
		t.Fatalf("Folders() error = %v", err)
	}

	folders := page.Embedded.Folders
	if len(folders) != 2 {
		t.Fatalf("len(folders) = %d, want 2", len(folders))
	}
	if folders[0].Type != FolderTypeUnassigned || folders[0].ActiveCount != 4 {
		t.Errorf("folders[0] = %+v, want unassigned with 4 active", folders[0])
	}
	if folders[1].Type != FolderTypeCustom || folders[1].Name != "ECU-Repair" {
		t.Errorf("folders[1] = %+v, want custom ECU-Repair", folders[1])
	}
	if page.Page.TotalPages != 2 {
		t.Errorf("TotalPages = %d, want 2", page.Page.TotalPages)
	}
}

func TestClient_ConversationsQuery(t *testing.T) {
	var query map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query = map[string]string{}
		for k := range r.URL.Query() {
			query[k] = r.URL.Query().Get(k)
		}
		_, _ = w.Write([]byte(`{
			"_embedded": {"conversations": [
				{"id": 101, "subject": "Broken dash", "status": "active", "mailboxId": 5,
				 "assignee": {"id": 3}, "createdAt": "2026-01-02T10:00:00Z", "preview": "hello"},
				{"id": 102, "subject": "Refund", "status": "active", "mailboxId": 5, "assignee": null}
			]},
			"page": {"totalElements": 2, "totalPages": 1}
		}`))
	}))
	defer server.Close()

	c := NewClient(server.URL, "key")
	page, err := c.Conversations(context.Background(), ConversationQuery{
		Status:     StatusActive,
		MailboxID:  5,
		AssignedTo: 3,
		PerPage:    1,
		Page:       1,
	})
	if err != nil {
		t.Fatalf("Conversations() error = %v", err)
	}

	want := map[string]string{"status": "active", "mailboxId": "5", "assignedTo": "3", "perPage": "1", "page": "1"}
	for k, v := range want {
		if query[k] != v {
			t.Errorf("query[%s] = %q, want %q", k, query[k], v)
		}
	}

	convs := page.Embedded.Conversations
	if len(convs) != 2 {
		t.Fatalf("len(conversations) = %d, want 2", len(convs))
	}
	if id := convs[0].AssigneeID(); id == nil || *id != 3 {
		t.Errorf("convs[0].AssigneeID() = %v, want 3", id)
	}
	if id := convs[1].AssigneeID(); id != nil {
		t.Errorf("convs[1].AssigneeID() = %v, want nil", *id)
	}
	if page.Page.TotalElements != 2 {
		t.Errorf("TotalElements = %d, want 2", page.Page.TotalElements)
	}
}

func TestConversationQuery_OmitsZeroValues(t *testing.T) {
	v := ConversationQuery{Status: StatusPending}.Values()
	if v.Encode() != "status=pending" {
		t.Errorf("Values().Encode() = %q, want %q", v.Encode(), "status=pending")
	}
}

func TestClient_APIError(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		wantMessage string
	}{
		{"json message", http.StatusUnauthorized, `{"message":"Invalid API key"}`, "Invalid API key"},
		{"plain body", http.StatusNotFound, `<html>not found</html>`, "Not Found"},
		{"empty body", http.StatusInternalServerError, ``, "Internal Server Error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			c := NewClient(server.URL, "key")
			_, err := c.Mailboxes(context.Background(), 1)

			var apiErr *APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("error = %v (%T), want *APIError", err, err)
			}
			if apiErr.StatusCode != tt.status {
				t.Errorf("StatusCode = %d, want %d", apiErr.StatusCode, tt.status)
			}
			if apiErr.Message != tt.wantMessage {
				t.Errorf("Message = %q, want %q", apiErr.Message, tt.wantMessage)
			}
		})
	}
}

func TestClient_InvalidJSONIsAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{not json`))
	}))
	defer server.Close()

	c := NewClient(server.URL, "key")
	_, err := c.Folders(context.Background(), 1, 1)

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error = %v (%T), want *APIError", err, err)
	}
	if !strings.Contains(apiErr.Message, "invalid response body") {
		t.Errorf("Message = %q, want to mention invalid response body", apiErr.Message)
	}
}

func TestClient_TransportError(t *testing.T) {
	// grab a free port, then close it so the connection is refused
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()
	_ = ln.Close()

	c := NewClient("http://"+addr, "key")
	_, err = c.Mailboxes(context.Background(), 1)

	var transportErr *TransportError
	if !errors.As(err, &transportErr) {
		t.Fatalf("error = %v (%T), want *TransportError", err, err)
	}
}

func TestClient_PerRequestTimeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	c := NewClient(server.URL, "key", WithTimeout(50*time.Millisecond))

	start := time.Now()
	_, err := c.Mailboxes(context.Background(), 1)
	if time.Since(start) > 2*time.Second {
		t.Fatalf("request took %v, want timeout near 50ms", time.Since(start))
	}

	var transportErr *TransportError
	if !errors.As(err, &transportErr) {
		t.Fatalf("error = %v (%T), want *TransportError", err, err)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("error = %v, want to wrap context.DeadlineExceeded", err)
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want SetupProblem
	}{
		{"nil", nil, SetupOK},
		{"unauthorized", &APIError{StatusCode: 401}, SetupInvalidAuth},
		{"not found", &APIError{StatusCode: 404}, SetupCannotConnect},
		{"server error", &APIError{StatusCode: 500}, SetupCannotConnect},
		{"transport", &TransportError{Err: errors.New("refused")}, SetupCannotConnect},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.err); got != tt.want {
				t.Errorf("Classify() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestClient_Ping(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get(APIKeyHeader) != "good" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if r.URL.Query().Get("perPage") != "1" {
			t.Errorf("perPage = %q, want 1", r.URL.Query().Get("perPage"))
		}
		_, _ = w.Write([]byte(`{"page":{"totalElements":0}}`))
	}))
	defer server.Close()

	if err := NewClient(server.URL, "good").Ping(context.Background()); err != nil {
		t.Errorf("Ping() with good key error = %v", err)
	}

	err := NewClient(server.URL, "bad").Ping(context.Background())
	if Classify(err) != SetupInvalidAuth {
		t.Errorf("Classify(Ping() with bad key) = %q, want %q", Classify(err), SetupInvalidAuth)
	}
}

// TestClient_ConnectionReuse verifies that the HTTP client reuses connections
// when making sequential requests to the same host.
func TestClient_ConnectionReuse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "key")

	var reusedCount int
	trace := &httptrace.ClientTrace{
		GotConn: func(info httptrace.GotConnInfo) {
			if info.Reused {
				reusedCount++
			}
		},
	}

	const numRequests = 5
	for i := 0; i < numRequests; i++ {
		ctx := httptrace.WithClientTrace(context.Background(), trace)
		if _, err := client.Mailboxes(ctx, 1); err != nil {
			t.Fatalf("request %d failed: %v", i, err)
		}
	}

	expectedMinReuse := numRequests - 2 // allow some tolerance
	if reusedCount < expectedMinReuse {
		t.Errorf("expected at least %d reused connections, got %d out of %d requests",
			expectedMinReuse, reusedCount, numRequests)
	}
}

// TestClient_Close verifies that Close is idempotent, nil-safe and leaves
// the client usable.
func TestClient_Close(t *testing.T) {
	var nilClient *Client
	nilClient.Close()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "key")
	client.Close()
	client.Close()

	if _, err := client.Mailboxes(context.Background(), 1); err != nil {
		t.Errorf("request after Close failed: %v", err)
	}
}
