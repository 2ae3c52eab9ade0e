// Package poller provides concurrent polling of race-card feeds.
//
// This package is internal to raceday and handles the periodic polling of
// upstream race-data endpoints. It implements a worker pool pattern for
// concurrent requests with configurable concurrency limits.
//
// The main components are:
//
//   - [Client]: HTTP client wrapper with timeout and size limits
//   - [Scheduler]: Manages periodic polling of feeds with a worker pool
//   - [FeedResult]: Result of polling a single feed, including the gap
//     between scheduled and actual poll time used by the health monitor
//   - [FeedInfo]: Configuration for a feed to poll
//
// Users of the raceday library should not need to interact with this
// package directly. Configuration is done through the main raceday package.
package poller
