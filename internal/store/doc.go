// Package store provides storage and pub/sub functionality for live race
// summaries.
//
// This package is internal to raceday and manages the in-memory state of
// the races currently on the board. It implements a publish-subscribe
// pattern for pushing updates to connected dashboard clients.
//
// The main components are:
//
//   - [Store]: Interface defining storage and subscription operations
//   - [MemoryStore]: In-memory implementation of Store with pub/sub
//   - [RaceSummary]: Storage representation of a race's current state
//
// The store is designed for concurrent access with proper synchronization.
// Subscribers receive updates via channels with non-blocking sends (slow
// subscribers will miss updates rather than block the system).
package store
