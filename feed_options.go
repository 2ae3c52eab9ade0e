package raceday

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// feedConfig holds mutable state during feed construction.
type feedConfig struct {
	labels   map[string]string
	headers  map[string]string
	timeout  time.Duration
	probe    Probe
	method   string
	interval time.Duration
}

// FeedOption is a function that configures a [Feed] during construction.
//
// FeedOption implements the functional options pattern, allowing optional
// configuration to be passed to [NewFeed] in a type-safe, extensible way.
// Options return an error if validation fails.
//
// Built-in options: [WithLabels], [WithHeaders], [WithTimeout], [WithProbe],
// [WithMethod], [WithInterval].
type FeedOption func(*feedConfig) error

// WithLabels adds metadata labels to the feed for grouping and filtering.
//
// Labels are key-value pairs that appear in the dashboard and can be used
// to categorize feeds (e.g., by country, category, or provider).
//
// Accepts variadic key-value pairs. The number of arguments must be even.
//
// Example:
//
//	feed, err := raceday.NewFeed("NZ Harness", url,
//	    raceday.WithLabels("country", "NZ", "category", "harness"),
//	)
//
// Returns an error if an odd number of arguments is provided.
func WithLabels(keyValues ...string) FeedOption {
	return func(cfg *feedConfig) error {
		if len(keyValues)%2 != 0 {
			return errors.New("WithLabels requires an even number of arguments (key-value pairs)")
		}
		for i := 0; i < len(keyValues); i += 2 {
			cfg.labels[keyValues[i]] = keyValues[i+1]
		}
		return nil
	}
}

// WithHeaders adds custom HTTP headers sent with every poll request.
//
// Accepts variadic key-value pairs. The number of arguments must be even.
// Useful for authentication tokens or provider-specific headers.
//
// Example:
//
//	feed, err := raceday.NewFeed("TAB", url,
//	    raceday.WithHeaders("Authorization", "Bearer "+token),
//	)
//
// Returns an error if an odd number of arguments is provided.
func WithHeaders(keyValues ...string) FeedOption {
	return func(cfg *feedConfig) error {
		if len(keyValues)%2 != 0 {
			return errors.New("WithHeaders requires an even number of arguments (key-value pairs)")
		}
		for i := 0; i < len(keyValues); i += 2 {
			cfg.headers[keyValues[i]] = keyValues[i+1]
		}
		return nil
	}
}

// WithTimeout sets the per-request timeout for this feed.
//
// Defaults to 10 seconds if not specified. The timeout covers the entire
// request including connection, redirects, and reading the body.
//
// Returns an error if the timeout is not positive.
func WithTimeout(timeout time.Duration) FeedOption {
	return func(cfg *feedConfig) error {
		if timeout <= 0 {
			return fmt.Errorf("timeout must be positive, got %s", timeout)
		}
		cfg.timeout = timeout
		return nil
	}
}

// WithProbe sets a custom [Probe] for interpreting the feed's responses.
//
// When no probe is configured, the polling layer applies [DefaultProbe],
// which checks a top-level "status" payload field and falls back to the
// HTTP status code.
func WithProbe(probe Probe) FeedOption {
	return func(cfg *feedConfig) error {
		if probe == nil {
			return errors.New("probe cannot be nil")
		}
		cfg.probe = probe
		return nil
	}
}

// WithMethod sets the HTTP method for poll requests.
//
// Supported methods are GET, HEAD, and POST. Defaults to GET.
func WithMethod(method string) FeedOption {
	return func(cfg *feedConfig) error {
		switch method {
		case http.MethodGet, http.MethodHead, http.MethodPost:
			cfg.method = method
			return nil
		default:
			return fmt.Errorf("method must be GET, HEAD, or POST, got %q", method)
		}
	}
}

// WithInterval sets a custom polling interval for this feed, overriding
// the global interval configured via [WithPollingInterval].
//
// Race cards close to their advertised start are typically polled faster
// than idle meetings; per-feed intervals let both coexist on one board.
//
// The interval must be between 1 second and 1 hour.
func WithInterval(interval time.Duration) FeedOption {
	return func(cfg *feedConfig) error {
		if interval < time.Second {
			return fmt.Errorf("interval must be at least 1s, got %s", interval)
		}
		if interval > time.Hour {
			return fmt.Errorf("interval must not exceed 1h, got %s", interval)
		}
		cfg.interval = interval
		return nil
	}
}
