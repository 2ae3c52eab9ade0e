// Package raceday provides a race-day data service and dashboard for
// horse, harness, and greyhound racing feeds.
//
// Raceday is designed as an SDK-first library, allowing developers to
// programmatically configure and deploy a race-data service as part of
// their applications. It polls upstream race-card feeds, persists race and
// meeting documents in an embedded document database, and serves a JSON
// API with Server-Sent Events for live race updates. A polling-health
// endpoint exposes aggregated request metrics and schedule compliance for
// the background refresh loop.
//
// # Quick Start
//
// Create feeds and start the board with graceful shutdown:
//
//	feed, _ := raceday.NewFeed("NZ Harness", "https://feeds.example.com/cards/NZ-HN")
//	board, _ := raceday.New(raceday.WithFeed(feed))
//
//	// Set up graceful shutdown on SIGINT/SIGTERM
//	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
//	defer stop()
//
//	board.Start(ctx) // blocks until context is cancelled
//
// # Configuration
//
// Raceday uses the functional options pattern for configuration:
//
//	board, err := raceday.New(
//	    raceday.WithFeed(feed1),
//	    raceday.WithFeed(feed2),
//	    raceday.WithPollingInterval(30 * time.Second),
//	    raceday.WithPort(9090),
//	    raceday.WithDataDir("./rd_data"),
//	    raceday.WithUpstream("https://api.example.com"),
//	)
//
// Feeds can also be configured with options:
//
//	feed, err := raceday.NewFeed("NZ Harness", "https://feeds.example.com/cards/NZ-HN",
//	    raceday.WithLabels("country", "NZ", "category", "harness"),
//	    raceday.WithHeaders("Authorization", "Bearer token"),
//	    raceday.WithTimeout(5 * time.Second),
//	    raceday.WithProbe(raceday.FreshnessProbe("generated_at", 90*time.Second)),
//	)
//
// # Feed Probes
//
// Probes determine how feed responses are interpreted as feed health.
// Several built-in probes are provided:
//
//   - [HTTPStatusProbe]: Maps HTTP status codes to health (2xx=ok, 4xx=degraded, 5xx=down)
//   - [JSONFieldProbe]: Reads a health value from a JSON field using dot notation
//   - [FreshnessProbe]: Classifies a payload as stale from an embedded timestamp
//   - [FirstProbe]: Tries multiple probes in order, returning the first conclusive result
//   - [DefaultProbe]: Tries the payload "status" field, then falls back to the HTTP status code
//
// Custom probes can be created by implementing the [Probe] function type.
//
// # Architecture
//
// Raceday consists of several internal packages (under internal/):
//
//   - internal/poller: Concurrent feed polling with worker pool
//   - internal/health: Polling metrics aggregation and classification
//   - internal/raceapi: Upstream race-context client with retries
//   - internal/loader: Single-flight race-context loader with LRU cache
//   - internal/racedb: Embedded document database for race records
//   - internal/store: In-memory race store with pub/sub for live updates
//   - internal/server: HTTP server with REST API and Server-Sent Events
//   - internal/display: Total formatting helpers for the health monitor
//   - dashboard: Embedded web UI assets
//
// The internal packages are not part of the public API and may change
// without notice. The library is designed for single-binary deployment
// using Go's embed directive for static assets.
package raceday
