package raceday

import (
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// boardConfig holds mutable state during Board construction.
type boardConfig struct {
	title           string
	feeds           []Feed
	pollingInterval time.Duration
	port            int
	maxConcurrency  int
	dataDir         string
	upstreamURL     string
	upstreamTimeout time.Duration
	cacheSize       int
	freshFor        time.Duration
	logger          *slog.Logger
	resultCallbacks []func(FeedResult)
}

// Option is a function that configures a [Board] instance during construction.
//
// Option implements the functional options pattern, allowing optional
// configuration to be passed to [New] in a type-safe, extensible way.
// Options return an error if validation fails.
//
// Built-in options: [WithFeed], [WithFeeds], [WithPollingInterval],
// [WithPort], [WithMaxConcurrency], [WithDataDir], [WithUpstream],
// [WithTitle], [WithLogger], [WithResultCallback].
type Option func(*boardConfig) error

// WithFeed adds a single [Feed] to the polling list.
//
// Can be called multiple times to add multiple feeds. At least one feed
// must be configured for [New] to succeed.
func WithFeed(f Feed) Option {
	return func(cfg *boardConfig) error {
		cfg.feeds = append(cfg.feeds, f)
		return nil
	}
}

// WithFeeds adds multiple [Feed] values to the polling list.
//
// This is a convenience function for adding several feeds at once, such as
// the output of [NewFeedSet]. Equivalent to calling [WithFeed] multiple
// times.
func WithFeeds(feeds ...Feed) Option {
	return func(cfg *boardConfig) error {
		cfg.feeds = append(cfg.feeds, feeds...)
		return nil
	}
}

// WithPollingInterval sets the default time between poll cycles.
//
// Feeds with their own interval (via [WithInterval]) override this value.
// Defaults to 30 seconds. Must be at least 1 second.
func WithPollingInterval(interval time.Duration) Option {
	return func(cfg *boardConfig) error {
		if interval < time.Second {
			return fmt.Errorf("polling interval must be at least 1s, got %s", interval)
		}
		cfg.pollingInterval = interval
		return nil
	}
}

// WithPort sets the TCP port for the dashboard and API server.
//
// Defaults to 8080.
func WithPort(port int) Option {
	return func(cfg *boardConfig) error {
		cfg.port = port
		return nil
	}
}

// WithMaxConcurrency limits the number of concurrent feed requests.
//
// Defaults to 10. Must be at least 1.
func WithMaxConcurrency(n int) Option {
	return func(cfg *boardConfig) error {
		if n < 1 {
			return fmt.Errorf("max concurrency must be at least 1, got %d", n)
		}
		cfg.maxConcurrency = n
		return nil
	}
}

// WithDataDir enables the embedded document database and sets its data
// directory.
//
// When a data directory is configured, polled race cards are persisted as
// meeting and race documents, and the meeting race-list API is served from
// the database. Without it the board keeps race data in memory only.
func WithDataDir(dir string) Option {
	return func(cfg *boardConfig) error {
		if dir == "" {
			return errors.New("data dir cannot be empty")
		}
		cfg.dataDir = dir
		return nil
	}
}

// WithUpstream sets the base URL of the upstream race API used by the
// race-context loader.
//
// When configured, GET /api/races/{id} fetches the race context from
// <baseURL>/races/{id} with single-flight deduplication and caching.
// Without it the loader assembles race contexts from the embedded
// database, if one is configured via [WithDataDir].
func WithUpstream(baseURL string) Option {
	return func(cfg *boardConfig) error {
		if baseURL == "" {
			return errors.New("upstream base URL cannot be empty")
		}
		cfg.upstreamURL = baseURL
		return nil
	}
}

// WithUpstreamTimeout sets the request timeout for the upstream race API.
//
// Defaults to 10 seconds.
func WithUpstreamTimeout(d time.Duration) Option {
	return func(cfg *boardConfig) error {
		if d <= 0 {
			return fmt.Errorf("upstream timeout must be positive, got %s", d)
		}
		cfg.upstreamTimeout = d
		return nil
	}
}

// WithCache configures the race-context loader cache.
//
// size is the maximum number of race contexts held; freshFor is how long a
// cached context is served without a new upstream fetch. Defaults: 256
// entries, fresh for 15 seconds.
func WithCache(size int, freshFor time.Duration) Option {
	return func(cfg *boardConfig) error {
		if size < 1 {
			return fmt.Errorf("cache size must be at least 1, got %d", size)
		}
		if freshFor <= 0 {
			return fmt.Errorf("cache freshness window must be positive, got %s", freshFor)
		}
		cfg.cacheSize = size
		cfg.freshFor = freshFor
		return nil
	}
}

// WithTitle sets the dashboard title.
//
// Defaults to "Race Day" if not specified.
func WithTitle(title string) Option {
	return func(cfg *boardConfig) error {
		cfg.title = title
		return nil
	}
}

// WithLogger sets the logger used by the board and its components.
//
// Defaults to slog.Default() if not specified.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *boardConfig) error {
		if logger == nil {
			return errors.New("logger cannot be nil")
		}
		cfg.logger = logger
		return nil
	}
}

// WithResultCallback registers a callback invoked after each feed poll.
//
// Callbacks run on the result-consumer goroutine after the poll outcome
// has been recorded and stored. A panicking callback is recovered and
// logged; it cannot take down the board. Multiple callbacks may be
// registered and are invoked in registration order.
func WithResultCallback(cb func(FeedResult)) Option {
	return func(cfg *boardConfig) error {
		if cb == nil {
			return errors.New("result callback cannot be nil")
		}
		cfg.resultCallbacks = append(cfg.resultCallbacks, cb)
		return nil
	}
}
