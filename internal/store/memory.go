package store

import (
	"sort"
	"sync"
)

// MemoryStore is an in-memory implementation of [Store].
//
// MemoryStore provides thread-safe storage with a publish-subscribe
// mechanism for live updates. Race summaries are keyed by race ID, with
// new summaries replacing previous values.
//
// Subscribers receive updates via buffered channels (buffer size 100).
// Updates are sent non-blocking; if a subscriber's buffer is full, the
// update is dropped for that subscriber to prevent blocking the entire
// system.
type MemoryStore struct {
	mu          sync.RWMutex
	races       map[string]RaceSummary
	subscribers map[chan RaceSummary]struct{}
	subMu       sync.RWMutex
}

// NewMemoryStore creates a new in-memory [Store] implementation.
//
// The store is immediately ready for use. No cleanup is required when done.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		races:       make(map[string]RaceSummary),
		subscribers: make(map[chan RaceSummary]struct{}),
	}
}

// Update stores a [RaceSummary] and notifies all subscribers.
//
// The summary is stored using its RaceID as the key. Subsequent updates
// with the same race ID replace the previous value. All subscribers
// receive the update (unless their buffer is full).
func (m *MemoryStore) Update(summary RaceSummary) {
	m.mu.Lock()
	m.races[summary.RaceID] = summary
	m.mu.Unlock()

	m.notifySubscribers(summary)
}

// GetAll returns a snapshot of all currently stored race summaries.
//
// The returned slice is a copy; modifications do not affect the store.
// Races are ordered by meeting ID, then race number, matching how a race
// card is read.
func (m *MemoryStore) GetAll() []RaceSummary {
	m.mu.RLock()
	defer m.mu.RUnlock()

	summaries := make([]RaceSummary, 0, len(m.races))
	for _, summary := range m.races {
		summaries = append(summaries, summary)
	}
	sort.Slice(summaries, func(i, j int) bool {
		if summaries[i].MeetingID != summaries[j].MeetingID {
			return summaries[i].MeetingID < summaries[j].MeetingID
		}
		return summaries[i].Number < summaries[j].Number
	})
	return summaries
}

// Subscribe creates a new subscription and returns a channel for receiving
// updates.
//
// The returned channel has a buffer of 100 messages. If the buffer fills
// (slow consumer), new updates are dropped for this subscriber.
//
// Caller must call [MemoryStore.Unsubscribe] when done to prevent resource
// leaks.
func (m *MemoryStore) Subscribe() <-chan RaceSummary {
	ch := make(chan RaceSummary, 100)

	m.subMu.Lock()
	m.subscribers[ch] = struct{}{}
	m.subMu.Unlock()

	return ch
}

// Unsubscribe removes a subscription and closes its channel.
//
// After calling Unsubscribe, the channel will be closed and no further
// updates will be sent. Safe to call multiple times or with an unknown
// channel.
func (m *MemoryStore) Unsubscribe(ch <-chan RaceSummary) {
	m.subMu.Lock()
	defer m.subMu.Unlock()

	// find and delete the channel (need to convert to the right type)
	for subCh := range m.subscribers {
		if subCh == ch {
			delete(m.subscribers, subCh)
			close(subCh)
			break
		}
	}
}

// notifySubscribers sends the summary to all active subscribers.
//
// This is non-blocking: if a subscriber's channel buffer is full, the
// message is dropped for that subscriber rather than blocking the update
// path.
func (m *MemoryStore) notifySubscribers(summary RaceSummary) {
	m.subMu.RLock()
	defer m.subMu.RUnlock()

	for ch := range m.subscribers {
		select {
		case ch <- summary:
		default:
			// subscriber is slow, drop the message
		}
	}
}
