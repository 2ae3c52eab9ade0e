// Package raceapi defines the race-day data model and the HTTP client for
// the upstream race API.
//
// The types here are passive display records: a meeting, its races,
// entrants, pool totals, and results, plus the race-context payload served
// by the race-by-id endpoint. No invariants are enforced beyond
// optional-field presence; rendering layers handle missing data.
//
// [Client] fetches race contexts with exponential backoff retries on
// retryable status codes (5xx and 429). [ParseRaceCard] decodes the
// race-card payloads served by meeting feeds.
package raceapi
