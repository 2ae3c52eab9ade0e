// Package health aggregates feed-polling outcomes into the metrics
// snapshot behind the developer polling-health monitor.
//
// The [Recorder] consumes one [Sample] per poll and maintains request and
// error totals, per-feed latency statistics, schedule-compliance counters,
// and a bounded event log of health transitions and failures. [Snapshot]
// produces an immutable, display-ready rollup with a classified overall
// [Level] and derived [Alert] entries.
//
// The snapshot contract matters more than the arithmetic: a snapshot with
// no recorded polls is valid, carries [LevelUnknown], and renders without
// panicking anywhere downstream.
package health
