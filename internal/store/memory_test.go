package store

import (
	"slices"
	"sync"
	"testing"
	"time"
)

func intPtr(n int) *int { return &n }

func TestNewMemoryStore(t *testing.T) {
	store := NewMemoryStore("Support", 0)
	if store == nil {
		t.Fatal("NewMemoryStore() = nil")
	}

	st := store.Status()
	if st.Freshness != FreshnessPending {
		t.Errorf("Freshness = %q, want %q", st.Freshness, FreshnessPending)
	}
	if st.Title != "Support" {
		t.Errorf("Title = %q, want Support", st.Title)
	}
	if len(store.Arrivals(0)) != 0 {
		t.Errorf("Arrivals() = %v items, want 0", len(store.Arrivals(0)))
	}
}

func TestMemoryStore_RecordSuccess(t *testing.T) {
	store := NewMemoryStore("Support", 0)
	now := time.Now()

	store.RecordSuccess(Status{
		Title:            "ignored",
		Metrics:          map[string]*int{"open_tickets": intPtr(4), "my_tickets": nil},
		CustomFolders:    []string{"VIP"},
		CollectedAt:      &now,
		SkippedMailboxes: []int{9},
	})

	st := store.Status()
	if st.Freshness != FreshnessFresh {
		t.Errorf("Freshness = %q, want fresh", st.Freshness)
	}
	if st.Title != "Support" {
		t.Errorf("Title = %q, want Support", st.Title)
	}
	if got := st.Metrics["open_tickets"]; got == nil || *got != 4 {
		t.Errorf("open_tickets = %v, want 4", got)
	}
	if v, ok := st.Metrics["my_tickets"]; !ok || v != nil {
		t.Errorf("my_tickets = %v (present %v), want present and nil", v, ok)
	}
	if !slices.Equal(st.SkippedMailboxes, []int{9}) {
		t.Errorf("SkippedMailboxes = %v, want [9]", st.SkippedMailboxes)
	}
}

func TestMemoryStore_FailureKeepsMetrics(t *testing.T) {
	store := NewMemoryStore("", 0)

	store.RecordFailure("cannot connect")
	st := store.Status()
	if st.Freshness != FreshnessPending {
		t.Errorf("Freshness before any success = %q, want pending", st.Freshness)
	}
	if st.ConsecutiveFailures != 1 {
		t.Errorf("ConsecutiveFailures = %d, want 1", st.ConsecutiveFailures)
	}

	store.RecordSuccess(Status{Metrics: map[string]*int{"open_tickets": intPtr(3)}})
	store.RecordFailure("FreeScout API error 500")
	store.RecordFailure("FreeScout API error 502")

	st = store.Status()
	if st.Freshness != FreshnessStale {
		t.Errorf("Freshness = %q, want stale", st.Freshness)
	}
	if got := st.Metrics["open_tickets"]; got == nil || *got != 3 {
		t.Errorf("open_tickets = %v, want 3 kept from last success", got)
	}
	if st.LastError == nil || *st.LastError != "FreeScout API error 502" {
		t.Errorf("LastError = %v, want latest message", st.LastError)
	}
	if st.ConsecutiveFailures != 2 {
		t.Errorf("ConsecutiveFailures = %d, want 2", st.ConsecutiveFailures)
	}

	store.RecordSuccess(Status{Metrics: map[string]*int{"open_tickets": intPtr(5)}})
	st = store.Status()
	if st.Freshness != FreshnessFresh || st.LastError != nil || st.ConsecutiveFailures != 0 {
		t.Errorf("after recovery = %+v, want fresh with no error", st)
	}
}

func TestMemoryStore_StatusIsCopy(t *testing.T) {
	store := NewMemoryStore("", 0)
	store.RecordSuccess(Status{
		Metrics:       map[string]*int{"open_tickets": intPtr(1)},
		CustomFolders: []string{"VIP"},
	})

	st := store.Status()
	*st.Metrics["open_tickets"] = 99
	st.CustomFolders[0] = "changed"

	again := store.Status()
	if *again.Metrics["open_tickets"] != 1 {
		t.Errorf("open_tickets = %d, want 1", *again.Metrics["open_tickets"])
	}
	if again.CustomFolders[0] != "VIP" {
		t.Errorf("CustomFolders[0] = %q, want VIP", again.CustomFolders[0])
	}
}

func TestMemoryStore_ArrivalsNewestFirst(t *testing.T) {
	store := NewMemoryStore("", 0)
	store.AddArrivals([]Arrival{{ConversationID: 1}, {ConversationID: 2}})
	store.AddArrivals([]Arrival{{ConversationID: 3}})

	var ids []int
	for _, a := range store.Arrivals(0) {
		ids = append(ids, a.ConversationID)
	}
	if !slices.Equal(ids, []int{3, 2, 1}) {
		t.Errorf("Arrivals() ids = %v, want [3 2 1]", ids)
	}

	if got := store.Arrivals(2); len(got) != 2 || got[0].ConversationID != 3 {
		t.Errorf("Arrivals(2) = %+v, want the two newest", got)
	}
}

func TestMemoryStore_ArrivalRingBounded(t *testing.T) {
	store := NewMemoryStore("", 3)
	for i := 1; i <= 5; i++ {
		store.AddArrivals([]Arrival{{ConversationID: i}})
	}

	var ids []int
	for _, a := range store.Arrivals(10) {
		ids = append(ids, a.ConversationID)
	}
	if !slices.Equal(ids, []int{5, 4, 3}) {
		t.Errorf("Arrivals() ids = %v, want [5 4 3]", ids)
	}
}

func TestMemoryStore_Subscribe(t *testing.T) {
	store := NewMemoryStore("", 0)
	ch := store.Subscribe()
	defer store.Unsubscribe(ch)

	store.RecordSuccess(Status{Metrics: map[string]*int{"open_tickets": intPtr(2)}})
	store.AddArrivals([]Arrival{{ConversationID: 7}})

	select {
	case u := <-ch:
		if u.Type != UpdateStatus || u.Status == nil || u.Status.Freshness != FreshnessFresh {
			t.Errorf("first update = %+v, want fresh status", u)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for status update")
	}

	select {
	case u := <-ch:
		if u.Type != UpdateArrival || u.Arrival == nil || u.Arrival.ConversationID != 7 {
			t.Errorf("second update = %+v, want arrival 7", u)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for arrival update")
	}
}

func TestMemoryStore_MultipleSubscribers(t *testing.T) {
	store := NewMemoryStore("", 0)
	ch1 := store.Subscribe()
	ch2 := store.Subscribe()
	defer store.Unsubscribe(ch1)
	defer store.Unsubscribe(ch2)

	store.RecordFailure("down")

	for i, ch := range []<-chan Update{ch1, ch2} {
		select {
		case <-ch:
		case <-time.After(time.Second):
			t.Errorf("subscriber %d did not receive update", i+1)
		}
	}
}

func TestMemoryStore_Unsubscribe(t *testing.T) {
	store := NewMemoryStore("", 0)
	ch := store.Subscribe()
	store.Unsubscribe(ch)

	if _, ok := <-ch; ok {
		t.Error("channel should be closed after Unsubscribe")
	}

	// second unsubscribe must not panic
	store.Unsubscribe(ch)
}

func TestMemoryStore_SlowSubscriberDoesNotBlock(t *testing.T) {
	store := NewMemoryStore("", 0)

	// create a subscriber but don't read from it
	_ = store.Subscribe()

	done := make(chan bool)
	go func() {
		for i := 0; i < 200; i++ {
			store.AddArrivals([]Arrival{{ConversationID: i}})
		}
		done <- true
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Error("AddArrivals() blocked on slow subscriber")
	}
}

func TestMemoryStore_ConcurrentAccess(t *testing.T) {
	store := NewMemoryStore("", 10)

	var wg sync.WaitGroup
	numGoroutines := 10
	numUpdates := 100

	for i := 0; i < numGoroutines; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < numUpdates; j++ {
				if j%2 == 0 {
					store.RecordSuccess(Status{Metrics: map[string]*int{"open_tickets": intPtr(j)}})
				} else {
					store.RecordFailure("down")
				}
				store.AddArrivals([]Arrival{{ConversationID: id*numUpdates + j}})
			}
		}(i)
	}

	for i := 0; i < numGoroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < numUpdates; j++ {
				_ = store.Status()
				_ = store.Arrivals(5)
			}
		}()
	}

	for i := 0; i < numGoroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ch := store.Subscribe()
			time.Sleep(10 * time.Millisecond)
			store.Unsubscribe(ch)
		}()
	}

	wg.Wait()
}
