package store

import "time"

// RaceSummary is the current state of one race as held in storage.
//
// RaceSummary is the storage representation of a race for the live board,
// optimized for JSON serialization (used by the REST API and SSE). It is
// decoupled from the feed payload types to allow independent evolution.
type RaceSummary struct {
	// RaceID is the upstream race identifier and the storage key.
	RaceID string `json:"race_id"`

	// MeetingID identifies the meeting this race belongs to.
	MeetingID string `json:"meeting_id"`

	// MeetingName is the meeting's display name.
	MeetingName string `json:"meeting_name"`

	// Number is the race number within its meeting.
	Number int `json:"number"`

	// Name is the race's display name.
	Name string `json:"name"`

	// Status is the race status (open, closed, interim, final, abandoned).
	Status string `json:"status"`

	// AdvertisedStart is the scheduled start time of the race.
	AdvertisedStart time.Time `json:"advertised_start"`

	// FeedHealth is the health of the feed that produced this update.
	FeedHealth string `json:"feed_health"`

	// UpdatedAt is when this summary was last refreshed from a feed.
	UpdatedAt time.Time `json:"updated_at"`
}

// Store defines the interface for storing and subscribing to race updates.
//
// Store implementations must be safe for concurrent access. The pub/sub
// mechanism allows live updates to be pushed to connected clients
// (e.g., via Server-Sent Events).
type Store interface {
	// Update stores a race summary and notifies all subscribers.
	// The summary is keyed by RaceID, so subsequent updates replace
	// previous values.
	Update(summary RaceSummary)

	// GetAll returns all currently stored race summaries, ordered by
	// meeting and race number. The returned slice is a snapshot;
	// modifications do not affect the store.
	GetAll() []RaceSummary

	// Subscribe returns a channel that receives race updates.
	// The returned channel has a buffer; slow consumers may miss updates.
	// Caller must call Unsubscribe when done to prevent resource leaks.
	Subscribe() <-chan RaceSummary

	// Unsubscribe removes a subscription and closes the channel.
	// Safe to call with a channel that was already unsubscribed.
	Unsubscribe(ch <-chan RaceSummary)
}
