package store

import (
	"sync"
	"testing"
	"time"
)

func TestNewMemoryStore(t *testing.T) {
	store := NewMemoryStore()
	if store == nil {
		t.Fatal("NewMemoryStore() = nil")
	}

	// should start empty
	if len(store.GetAll()) != 0 {
		t.Errorf("GetAll() = %v items, want 0", len(store.GetAll()))
	}
}

func TestMemoryStore_Update(t *testing.T) {
	store := NewMemoryStore()

	summary := RaceSummary{
		RaceID:      "NZ-AUK-R1",
		MeetingID:   "NZ-AUK",
		MeetingName: "Auckland",
		Number:      1,
		Name:        "Auckland Race 1",
		Status:      "open",
		FeedHealth:  "ok",
		UpdatedAt:   time.Now(),
	}

	store.Update(summary)

	all := store.GetAll()
	if len(all) != 1 {
		t.Fatalf("GetAll() = %v items, want 1", len(all))
	}

	if all[0].RaceID != "NZ-AUK-R1" {
		t.Errorf("GetAll()[0].RaceID = %v, want %v", all[0].RaceID, "NZ-AUK-R1")
	}
	if all[0].Status != "open" {
		t.Errorf("GetAll()[0].Status = %v, want %v", all[0].Status, "open")
	}
}

func TestMemoryStore_UpdateOverwrites(t *testing.T) {
	store := NewMemoryStore()

	// first update
	store.Update(RaceSummary{
		RaceID: "NZ-AUK-R1",
		Status: "open",
	})

	// second update with same race ID should overwrite
	store.Update(RaceSummary{
		RaceID: "NZ-AUK-R1",
		Status: "closed",
	})

	all := store.GetAll()
	if len(all) != 1 {
		t.Fatalf("GetAll() = %v items, want 1", len(all))
	}

	if all[0].Status != "closed" {
		t.Errorf("GetAll()[0].Status = %v, want %v", all[0].Status, "closed")
	}
}

// TestMemoryStore_GetAllOrdered verifies that summaries come back grouped by
// meeting and ordered by race number within each meeting.
func TestMemoryStore_GetAllOrdered(t *testing.T) {
	store := NewMemoryStore()

	store.Update(RaceSummary{RaceID: "NZ-CHC-R1", MeetingID: "NZ-CHC", Number: 1})
	store.Update(RaceSummary{RaceID: "NZ-AUK-R2", MeetingID: "NZ-AUK", Number: 2})
	store.Update(RaceSummary{RaceID: "NZ-AUK-R1", MeetingID: "NZ-AUK", Number: 1})

	all := store.GetAll()
	if len(all) != 3 {
		t.Fatalf("GetAll() = %v items, want 3", len(all))
	}

	wantOrder := []string{"NZ-AUK-R1", "NZ-AUK-R2", "NZ-CHC-R1"}
	for i, want := range wantOrder {
		if all[i].RaceID != want {
			t.Errorf("GetAll()[%d].RaceID = %v, want %v", i, all[i].RaceID, want)
		}
	}
}

func TestMemoryStore_Subscribe(t *testing.T) {
	store := NewMemoryStore()

	ch := store.Subscribe()
	if ch == nil {
		t.Fatal("Subscribe() = nil")
	}

	// update should send to subscriber
	go func() {
		store.Update(RaceSummary{RaceID: "NZ-AUK-R1", Status: "open"})
	}()

	select {
	case summary := <-ch:
		if summary.RaceID != "NZ-AUK-R1" {
			t.Errorf("received RaceID = %v, want %v", summary.RaceID, "NZ-AUK-R1")
		}
	case <-time.After(1 * time.Second):
		t.Error("Subscribe() channel did not receive update")
	}
}

func TestMemoryStore_MultipleSubscribers(t *testing.T) {
	store := NewMemoryStore()

	ch1 := store.Subscribe()
	ch2 := store.Subscribe()
	ch3 := store.Subscribe()

	// update should fanout to all subscribers
	go func() {
		store.Update(RaceSummary{RaceID: "NZ-AUK-R1", Status: "open"})
	}()

	received := 0
	timeout := time.After(1 * time.Second)

	for received < 3 {
		select {
		case <-ch1:
			received++
		case <-ch2:
			received++
		case <-ch3:
			received++
		case <-timeout:
			t.Fatalf("received %d updates, want 3", received)
		}
	}
}

func TestMemoryStore_Unsubscribe(t *testing.T) {
	store := NewMemoryStore()

	ch := store.Subscribe()
	store.Unsubscribe(ch)

	// channel should be closed
	select {
	case _, ok := <-ch:
		if ok {
			t.Error("expected channel to be closed after Unsubscribe")
		}
	case <-time.After(1 * time.Second):
		t.Error("timeout waiting for channel close")
	}

	// updates after unsubscribe should not panic
	store.Update(RaceSummary{RaceID: "NZ-AUK-R1", Status: "open"})
}

// TestMemoryStore_SlowSubscriberDoesNotBlock verifies that a subscriber
// that never reads does not block Update.
func TestMemoryStore_SlowSubscriberDoesNotBlock(t *testing.T) {
	store := NewMemoryStore()

	// subscribe but never read
	_ = store.Subscribe()

	done := make(chan struct{})
	go func() {
		// more updates than the subscriber buffer holds
		for i := 0; i < 200; i++ {
			store.Update(RaceSummary{RaceID: "NZ-AUK-R1", Status: "open"})
		}
		close(done)
	}()

	select {
	case <-done:
		// success
	case <-time.After(2 * time.Second):
		t.Error("Update blocked on a slow subscriber")
	}
}

// TestMemoryStore_ConcurrentAccess verifies there are no data races between
// writers, readers, and subscribers. Run with: go test -race ./internal/store/...
func TestMemoryStore_ConcurrentAccess(t *testing.T) {
	store := NewMemoryStore()

	var wg sync.WaitGroup

	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				store.Update(RaceSummary{RaceID: "race", MeetingID: "m", Number: n})
			}
		}(i)
	}

	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_ = store.GetAll()
			}
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		ch := store.Subscribe()
		for j := 0; j < 50; j++ {
			select {
			case <-ch:
			case <-time.After(10 * time.Millisecond):
			}
		}
		store.Unsubscribe(ch)
	}()

	wg.Wait()
}
