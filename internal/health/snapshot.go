package health

import "time"

// Level classifies the overall state of the polling loop.
type Level string

const (
	// LevelHealthy indicates polling is running within thresholds.
	LevelHealthy Level = "healthy"

	// LevelDegraded indicates elevated errors or schedule slippage.
	LevelDegraded Level = "degraded"

	// LevelCritical indicates sustained failures or severe slippage.
	LevelCritical Level = "critical"

	// LevelUnknown indicates no polls have been recorded yet.
	LevelUnknown Level = "unknown"
)

// String returns the string representation of the level.
func (l Level) String() string {
	return string(l)
}

// Totals aggregates request counts across all feeds.
type Totals struct {
	// Requests is the total number of poll attempts recorded.
	Requests int64 `json:"requests"`

	// Errors is the number of failed poll attempts.
	Errors int64 `json:"errors"`

	// ErrorRate is Errors/Requests, or 0 when no requests were recorded.
	ErrorRate float64 `json:"error_rate"`
}

// FeedStats holds per-feed polling statistics.
type FeedStats struct {
	// Name is the feed's display name.
	Name string `json:"name"`

	// URL is the feed's target URL.
	URL string `json:"url"`

	// Requests is the number of poll attempts for this feed.
	Requests int64 `json:"requests"`

	// Errors is the number of failed poll attempts for this feed.
	Errors int64 `json:"errors"`

	// ErrorRate is Errors/Requests for this feed.
	ErrorRate float64 `json:"error_rate"`

	// AvgLatencyMs is the mean request latency in milliseconds.
	AvgLatencyMs float64 `json:"avg_latency_ms"`

	// MaxLatencyMs is the highest request latency in milliseconds.
	MaxLatencyMs float64 `json:"max_latency_ms"`

	// LastHealth is the health string from the most recent poll.
	LastHealth string `json:"last_health"`

	// LastStatusCode is the HTTP status from the most recent poll.
	LastStatusCode int `json:"last_status_code"`

	// LastError is the most recent failure message, empty after a success.
	LastError string `json:"last_error,omitempty"`

	// LastPolledAt is when the feed was last polled.
	LastPolledAt time.Time `json:"last_polled_at"`
}

// Compliance reports how closely polls track their schedule.
type Compliance struct {
	// Scheduled is the number of polls that had a due time.
	Scheduled int64 `json:"scheduled"`

	// OnTime is the number of polls that started within the lateness
	// threshold of their due time.
	OnTime int64 `json:"on_time"`

	// Late is the number of polls that started after the threshold.
	Late int64 `json:"late"`

	// Rate is OnTime/Scheduled, or 0 when nothing was scheduled.
	Rate float64 `json:"rate"`
}

// Alert flags a condition that needs developer attention.
//
// Alerts are derived from the current statistics at snapshot time; their
// IDs are stable for a given feed and condition so consumers can
// deduplicate across snapshots.
type Alert struct {
	ID      string `json:"id"`
	Feed    string `json:"feed,omitempty"`
	Level   Level  `json:"level"`
	Message string `json:"message"`
}

// Event is an entry in the bounded polling event log.
type Event struct {
	ID      string    `json:"id"`
	At      time.Time `json:"at"`
	Feed    string    `json:"feed"`
	Message string    `json:"message"`
}

// Snapshot is an immutable rollup of polling metrics for display.
//
// A Snapshot is safe to serialize and hand to rendering code; it shares no
// state with the [Recorder] that produced it. An empty snapshot (no polls
// recorded) has Level [LevelUnknown], zero totals, and no feed entries.
type Snapshot struct {
	GeneratedAt time.Time   `json:"generated_at"`
	Level       Level       `json:"level"`
	Totals      Totals      `json:"totals"`
	Feeds       []FeedStats `json:"feeds"`
	Compliance  Compliance  `json:"compliance"`
	Alerts      []Alert     `json:"alerts"`
	Events      []Event     `json:"events"`
}
