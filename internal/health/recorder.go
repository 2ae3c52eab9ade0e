package health

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// classification thresholds
const (
	degradedErrorRate = 0.2
	criticalErrorRate = 0.5

	degradedComplianceRate = 0.9
	criticalComplianceRate = 0.75

	// alertMinSamples avoids alerting on the first few polls of a feed.
	alertMinSamples = 5

	// eventLogCap bounds the event log; older entries are dropped.
	eventLogCap = 100
)

// Sample is one recorded poll outcome.
//
// Sample is the recorder-facing projection of a poll result, decoupled
// from the poller package to keep this package free of upward imports.
type Sample struct {
	// Feed is the feed's display name.
	Feed string

	// URL is the feed's target URL.
	URL string

	// Latency is the request duration.
	Latency time.Duration

	// StatusCode is the HTTP status code, zero if the request failed
	// before a response.
	StatusCode int

	// Health is the probed health string ("ok", "degraded", "down", ...).
	Health string

	// Err is the poll error, nil on success.
	Err error

	// ScheduledAt is when the poll was due; zero disables the compliance
	// accounting for this sample.
	ScheduledAt time.Time

	// CheckedAt is when the poll completed.
	CheckedAt time.Time
}

// failed reports whether the sample counts as an error.
func (s Sample) failed() bool {
	return s.Err != nil || s.StatusCode >= 400 || s.Health == "down"
}

// feedAcc accumulates per-feed statistics.
type feedAcc struct {
	url            string
	requests       int64
	errors         int64
	latencySum     time.Duration
	latencyMax     time.Duration
	lastHealth     string
	lastStatusCode int
	lastError      string
	lastPolledAt   time.Time
}

// Recorder aggregates poll outcomes into displayable metrics.
//
// Recorder is safe for concurrent use: Record may be called from the
// result-consumer goroutine while Snapshot is served to HTTP handlers.
// Snapshots are deep copies; mutating one never affects the recorder.
type Recorder struct {
	mu        sync.Mutex
	lateAfter time.Duration

	totals     Totals
	compliance Compliance
	feeds      map[string]*feedAcc
	events     []Event
}

// NewRecorder creates a [Recorder].
//
// lateAfter is the start-delay threshold beyond which a poll counts as
// late for schedule compliance. Non-positive values default to 2 seconds.
func NewRecorder(lateAfter time.Duration) *Recorder {
	if lateAfter <= 0 {
		lateAfter = 2 * time.Second
	}
	return &Recorder{
		lateAfter: lateAfter,
		feeds:     make(map[string]*feedAcc),
	}
}

// Record folds a poll outcome into the running statistics.
//
// Health transitions and failures are appended to the bounded event log.
func (r *Recorder) Record(s Sample) {
	r.mu.Lock()
	defer r.mu.Unlock()

	failed := s.failed()

	r.totals.Requests++
	if failed {
		r.totals.Errors++
	}

	if !s.ScheduledAt.IsZero() {
		r.compliance.Scheduled++
		startedAt := s.CheckedAt.Add(-s.Latency)
		if startedAt.Sub(s.ScheduledAt) > r.lateAfter {
			r.compliance.Late++
		} else {
			r.compliance.OnTime++
		}
	}

	acc, ok := r.feeds[s.Feed]
	if !ok {
		acc = &feedAcc{url: s.URL}
		r.feeds[s.Feed] = acc
	}

	acc.requests++
	if failed {
		acc.errors++
	}
	acc.latencySum += s.Latency
	if s.Latency > acc.latencyMax {
		acc.latencyMax = s.Latency
	}

	if acc.lastHealth != "" && acc.lastHealth != s.Health {
		r.appendEvent(s.Feed, s.CheckedAt,
			fmt.Sprintf("health changed from %s to %s", acc.lastHealth, s.Health))
	}
	if s.Err != nil {
		r.appendEvent(s.Feed, s.CheckedAt, "poll failed: "+s.Err.Error())
	}

	acc.lastHealth = s.Health
	acc.lastStatusCode = s.StatusCode
	if s.Err != nil {
		acc.lastError = s.Err.Error()
	} else {
		acc.lastError = ""
	}
	acc.lastPolledAt = s.CheckedAt
}

// appendEvent adds an event to the log, dropping the oldest entry when the
// log is full. Caller must hold r.mu.
func (r *Recorder) appendEvent(feed string, at time.Time, message string) {
	if at.IsZero() {
		at = time.Now()
	}
	r.events = append(r.events, Event{
		ID:      uuid.NewString(),
		At:      at,
		Feed:    feed,
		Message: message,
	})
	if len(r.events) > eventLogCap {
		r.events = r.events[len(r.events)-eventLogCap:]
	}
}

// Snapshot returns an immutable rollup of the current statistics.
//
// The snapshot is fully classified: overall level, per-feed stats sorted
// by name, schedule compliance, derived alerts, and a copy of the event
// log in chronological order. Calling Snapshot on a recorder with no
// recorded polls returns an empty snapshot with Level [LevelUnknown];
// it never panics.
func (r *Recorder) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	snap := Snapshot{
		GeneratedAt: time.Now(),
		Totals:      r.totals,
		Compliance:  r.compliance,
		Alerts:      []Alert{},
		Events:      append([]Event{}, r.events...),
	}

	if snap.Totals.Requests > 0 {
		snap.Totals.ErrorRate = float64(snap.Totals.Errors) / float64(snap.Totals.Requests)
	}
	if snap.Compliance.Scheduled > 0 {
		snap.Compliance.Rate = float64(snap.Compliance.OnTime) / float64(snap.Compliance.Scheduled)
	}

	names := make([]string, 0, len(r.feeds))
	for name := range r.feeds {
		names = append(names, name)
	}
	sort.Strings(names)

	snap.Feeds = make([]FeedStats, 0, len(names))
	for _, name := range names {
		acc := r.feeds[name]
		fs := FeedStats{
			Name:           name,
			URL:            acc.url,
			Requests:       acc.requests,
			Errors:         acc.errors,
			MaxLatencyMs:   float64(acc.latencyMax) / float64(time.Millisecond),
			LastHealth:     acc.lastHealth,
			LastStatusCode: acc.lastStatusCode,
			LastError:      acc.lastError,
			LastPolledAt:   acc.lastPolledAt,
		}
		if acc.requests > 0 {
			fs.ErrorRate = float64(acc.errors) / float64(acc.requests)
			fs.AvgLatencyMs = float64(acc.latencySum) / float64(acc.requests) / float64(time.Millisecond)
		}
		snap.Feeds = append(snap.Feeds, fs)

		if acc.requests >= alertMinSamples && fs.ErrorRate >= criticalErrorRate {
			snap.Alerts = append(snap.Alerts, Alert{
				ID:      "error-rate:" + name,
				Feed:    name,
				Level:   LevelCritical,
				Message: fmt.Sprintf("feed failing: %.0f%% of recent polls errored", fs.ErrorRate*100),
			})
		}
	}

	if snap.Compliance.Scheduled >= alertMinSamples && snap.Compliance.Rate < degradedComplianceRate {
		snap.Alerts = append(snap.Alerts, Alert{
			ID:      "schedule-compliance",
			Level:   LevelDegraded,
			Message: fmt.Sprintf("polling schedule slipping: %.0f%% of polls started on time", snap.Compliance.Rate*100),
		})
	}

	snap.Level = classify(snap.Totals, snap.Compliance)
	return snap
}

// classify derives the overall level from totals and compliance.
func classify(t Totals, c Compliance) Level {
	if t.Requests == 0 {
		return LevelUnknown
	}

	level := LevelHealthy
	if t.ErrorRate >= degradedErrorRate {
		level = LevelDegraded
	}
	if t.ErrorRate >= criticalErrorRate {
		return LevelCritical
	}

	if c.Scheduled > 0 {
		if c.Rate < criticalComplianceRate {
			return LevelCritical
		}
		if c.Rate < degradedComplianceRate && level == LevelHealthy {
			level = LevelDegraded
		}
	}

	return level
}
