package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"strings"
	"sync"
	"time"
)

// mockConversation is the subset of a FreeScout conversation the board reads.
type mockConversation struct {
	ID        int    `json:"id"`
	Number    int    `json:"number"`
	Subject   string `json:"subject"`
	Status    string `json:"status"`
	MailboxID int    `json:"mailboxId"`
	CreatedAt string `json:"createdAt"`
	Preview   string `json:"preview"`
}

var mockSubjects = []string{
	"Cannot log in",
	"Invoice missing VAT number",
	"Feature request: dark mode",
	"Order arrived damaged",
	"How do I export my data?",
}

// StartMockFreeScout runs a fake FreeScout API at addr that accepts apiKey
// and receives a new conversation every 20-60 seconds.
// Call this in a goroutine before creating the ScoutBoard.
func StartMockFreeScout(addr, apiKey string) {
	var (
		mu           sync.Mutex
		nextID       = 1000
		nextArrival  = time.Now().Add(20 * time.Second)
		conversations []mockConversation
	)

	add := func() {
		nextID++
		mailbox := 1 + rand.Intn(2)
		conversations = append([]mockConversation{{
			ID:        nextID,
			Number:    nextID,
			Subject:   mockSubjects[rand.Intn(len(mockSubjects))],
			Status:    "active",
			MailboxID: mailbox,
			CreatedAt: time.Now().UTC().Format(time.RFC3339),
			Preview:   "<p>Hello, I need some help with my account.</p>",
		}}, conversations...)
		if len(conversations) > 50 {
			conversations = conversations[:50]
		}
	}
	for i := 0; i < 8; i++ {
		add()
	}

	write := func(w http.ResponseWriter, key string, items any, total int) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"_embedded": map[string]any{key: items},
			"page":      map[string]int{"totalPages": 1, "totalElements": total, "number": 1},
		})
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-FreeScout-API-Key") != apiKey {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		// simulate small latency variance
		time.Sleep(time.Duration(20+rand.Intn(80)) * time.Millisecond)

		mu.Lock()
		defer mu.Unlock()
		if time.Now().After(nextArrival) {
			add()
			nextArrival = time.Now().Add(time.Duration(20+rand.Intn(41)) * time.Second)
			slog.Info("mock conversation created", "id", nextID)
		}

		q := r.URL.Query()
		switch {
		case r.URL.Path == "/api/mailboxes":
			write(w, "mailboxes", []map[string]any{
				{"id": 1, "name": "Support", "email": "support@example.com"},
				{"id": 2, "name": "Billing", "email": "billing@example.com"},
			}, 2)

		case strings.HasSuffix(r.URL.Path, "/folders"):
			write(w, "folders", []map[string]any{
				{"id": 1, "type": 1, "name": "Unassigned", "activeCount": rand.Intn(6)},
				{"id": 2, "type": 180, "name": "Snoozed", "activeCount": rand.Intn(3)},
				{"id": 3, "type": 185, "name": "Escalations", "activeCount": rand.Intn(4)},
			}, 3)

		case r.URL.Path == "/api/conversations" && q.Get("perPage") == "1":
			total := 0
			switch q.Get("status") {
			case "active":
				total = len(conversations)
				if q.Get("assignedTo") != "" {
					total /= 3
				}
			case "pending":
				total = 2
			}
			write(w, "conversations", []mockConversation{}, total)

		case r.URL.Path == "/api/conversations":
			var out []mockConversation
			for _, c := range conversations {
				if id := q.Get("mailboxId"); id != "" && id != fmt.Sprint(c.MailboxID) {
					continue
				}
				out = append(out, c)
			}
			write(w, "conversations", out, len(out))

		default:
			http.NotFound(w, r)
		}
	})

	if err := http.ListenAndServe(addr, mux); err != nil {
		slog.Error("mock server error", "error", err)
	}
}
