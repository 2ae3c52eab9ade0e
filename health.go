package raceday

import "time"

// Health represents the observed state of a race-data feed.
//
// Health is a string type that can hold one of four predefined values:
// [HealthOK], [HealthDown], [HealthDegraded], or [HealthUnknown].
// Using a string type allows for easy JSON serialization and human-readable
// logging while maintaining type safety through the defined constants.
type Health string

const (
	// HealthOK indicates the feed is responding with fresh race data.
	HealthOK Health = "ok"

	// HealthDown indicates the feed is unreachable or returning errors.
	HealthDown Health = "down"

	// HealthDegraded indicates the feed is reachable but slow or serving
	// stale race data.
	HealthDegraded Health = "degraded"

	// HealthUnknown indicates the feed health could not be determined.
	// This typically occurs when a probe cannot parse the response.
	HealthUnknown Health = "unknown"
)

// String returns the string representation of the health value.
// This implements the fmt.Stringer interface.
func (h Health) String() string {
	return string(h)
}

// Probe is a function type that determines the [Health] of a feed from its
// HTTP response.
//
// A Probe is a pure function: the same inputs always produce the same
// output. This makes probes easy to test, compose, and reason about.
//
// Parameters:
//   - body: The HTTP response body as bytes
//   - statusCode: The HTTP status code (e.g., 200, 404, 500)
//
// Returns the determined [Health] value.
//
// Several built-in probes are provided: [HTTPStatusProbe], [JSONFieldProbe],
// [FreshnessProbe], and [FirstProbe] for composition.
//
// # Panic Safety
//
// Probe functions are called within a panic recovery boundary. If a probe
// panics, the feed's health is set to [HealthDown] with an error containing
// a correlation ID. The full stack trace is logged server-side for
// debugging. A misbehaving probe cannot crash the service.
type Probe func(body []byte, statusCode int) Health

// FeedResult holds the outcome of polling a single race-data feed.
//
// FeedResult is immutable after creation and contains all information about
// a poll attempt, including the determined health, latency metrics, timing
// relative to the polling schedule, and any error that occurred. The
// RawResponse field preserves the original race-card payload for custom
// processing.
type FeedResult struct {
	// FeedName is the display name of the polled feed.
	FeedName string

	// URL is the target URL that was polled.
	URL string

	// Health is the determined state of the feed.
	Health Health

	// Labels contains the key-value metadata associated with the feed.
	Labels map[string]string

	// Latency is the time taken to complete the HTTP request.
	Latency time.Duration

	// ScheduledAt is when the poll was due according to the feed's interval.
	ScheduledAt time.Time

	// CheckedAt is the timestamp when the poll completed.
	CheckedAt time.Time

	// Error contains any error that occurred during polling.
	// nil indicates the request completed successfully (though Health may
	// still be down, degraded, or unknown based on the response content).
	Error error

	// RawResponse contains the HTTP response body, limited to 1MB.
	RawResponse []byte

	// StatusCode is the HTTP status code returned by the feed.
	// Zero if the request failed before receiving a response.
	StatusCode int
}
