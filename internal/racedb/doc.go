// Package racedb stores meeting and race documents in an embedded
// PocketBase database.
//
// Polled race cards are upserted as one document per meeting and per race.
// Reads go through a relationship query (races filtered by meeting,
// ordered by race number); a failed query falls back to a full collection
// scan with client-side filtering and sorting before any error reaches the
// caller. The store also assembles full race-context payloads, making it a
// drop-in source for the race loader when no upstream API is configured.
package racedb
