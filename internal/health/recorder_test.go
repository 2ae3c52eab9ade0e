package health

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

func okSample(feed string) Sample {
	now := time.Now()
	return Sample{
		Feed:        feed,
		URL:         "http://example.com/card",
		Latency:     100 * time.Millisecond,
		StatusCode:  200,
		Health:      "ok",
		ScheduledAt: now.Add(-150 * time.Millisecond),
		CheckedAt:   now,
	}
}

func failedSample(feed string) Sample {
	s := okSample(feed)
	s.StatusCode = 0
	s.Health = "down"
	s.Err = errors.New("request failed: connection refused")
	return s
}

// TestRecorder_EmptySnapshot verifies that a recorder with no samples
// produces a well-formed snapshot with Level unknown and never panics.
func TestRecorder_EmptySnapshot(t *testing.T) {
	rec := NewRecorder(0)
	snap := rec.Snapshot()

	if snap.Level != LevelUnknown {
		t.Errorf("Level = %q, want %q", snap.Level, LevelUnknown)
	}
	if snap.Totals.Requests != 0 {
		t.Errorf("Totals.Requests = %d, want 0", snap.Totals.Requests)
	}
	if len(snap.Feeds) != 0 {
		t.Errorf("Feeds = %d entries, want 0", len(snap.Feeds))
	}
	if snap.Alerts == nil || snap.Events == nil {
		t.Error("Alerts and Events must be non-nil slices in an empty snapshot")
	}
}

func TestRecorder_Totals(t *testing.T) {
	rec := NewRecorder(0)
	rec.Record(okSample("a"))
	rec.Record(okSample("a"))
	rec.Record(failedSample("a"))

	snap := rec.Snapshot()
	if snap.Totals.Requests != 3 {
		t.Errorf("Totals.Requests = %d, want 3", snap.Totals.Requests)
	}
	if snap.Totals.Errors != 1 {
		t.Errorf("Totals.Errors = %d, want 1", snap.Totals.Errors)
	}
	if want := 1.0 / 3.0; snap.Totals.ErrorRate != want {
		t.Errorf("Totals.ErrorRate = %v, want %v", snap.Totals.ErrorRate, want)
	}
}

// TestRecorder_FailureCounting verifies the three failure conditions: a
// transport error, a 4xx/5xx status, and probed "down" health.
func TestRecorder_FailureCounting(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Sample)
	}{
		{"transport error", func(s *Sample) { s.Err = errors.New("timeout") }},
		{"http error status", func(s *Sample) { s.StatusCode = 503 }},
		{"down health", func(s *Sample) { s.Health = "down" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := NewRecorder(0)
			s := okSample("a")
			tt.mutate(&s)
			rec.Record(s)

			if snap := rec.Snapshot(); snap.Totals.Errors != 1 {
				t.Errorf("Totals.Errors = %d, want 1", snap.Totals.Errors)
			}
		})
	}
}

func TestRecorder_PerFeedStats(t *testing.T) {
	rec := NewRecorder(0)

	s1 := okSample("b-feed")
	s1.Latency = 100 * time.Millisecond
	rec.Record(s1)

	s2 := okSample("b-feed")
	s2.Latency = 300 * time.Millisecond
	rec.Record(s2)

	rec.Record(okSample("a-feed"))

	snap := rec.Snapshot()
	if len(snap.Feeds) != 2 {
		t.Fatalf("Feeds = %d entries, want 2", len(snap.Feeds))
	}

	// sorted by name
	if snap.Feeds[0].Name != "a-feed" || snap.Feeds[1].Name != "b-feed" {
		t.Errorf("feed order = [%s, %s], want [a-feed, b-feed]", snap.Feeds[0].Name, snap.Feeds[1].Name)
	}

	b := snap.Feeds[1]
	if b.Requests != 2 {
		t.Errorf("b-feed Requests = %d, want 2", b.Requests)
	}
	if b.AvgLatencyMs != 200 {
		t.Errorf("b-feed AvgLatencyMs = %v, want 200", b.AvgLatencyMs)
	}
	if b.MaxLatencyMs != 300 {
		t.Errorf("b-feed MaxLatencyMs = %v, want 300", b.MaxLatencyMs)
	}
}

// TestRecorder_ScheduleCompliance verifies that polls starting within the
// late threshold count as on time and later starts count as late.
func TestRecorder_ScheduleCompliance(t *testing.T) {
	rec := NewRecorder(time.Second)
	now := time.Now()

	// started 100ms after due: on time
	rec.Record(Sample{
		Feed:        "a",
		Latency:     50 * time.Millisecond,
		StatusCode:  200,
		Health:      "ok",
		ScheduledAt: now.Add(-150 * time.Millisecond),
		CheckedAt:   now,
	})

	// started 3s after due: late
	rec.Record(Sample{
		Feed:        "a",
		Latency:     50 * time.Millisecond,
		StatusCode:  200,
		Health:      "ok",
		ScheduledAt: now.Add(-3 * time.Second),
		CheckedAt:   now.Add(50 * time.Millisecond),
	})

	// zero ScheduledAt: excluded from compliance entirely
	rec.Record(Sample{
		Feed:       "a",
		Latency:    50 * time.Millisecond,
		StatusCode: 200,
		Health:     "ok",
		CheckedAt:  now,
	})

	snap := rec.Snapshot()
	if snap.Compliance.Scheduled != 2 {
		t.Errorf("Compliance.Scheduled = %d, want 2", snap.Compliance.Scheduled)
	}
	if snap.Compliance.OnTime != 1 {
		t.Errorf("Compliance.OnTime = %d, want 1", snap.Compliance.OnTime)
	}
	if snap.Compliance.Late != 1 {
		t.Errorf("Compliance.Late = %d, want 1", snap.Compliance.Late)
	}
	if snap.Compliance.Rate != 0.5 {
		t.Errorf("Compliance.Rate = %v, want 0.5", snap.Compliance.Rate)
	}
}

func TestRecorder_Classification(t *testing.T) {
	tests := []struct {
		name   string
		ok     int
		failed int
		want   Level
	}{
		{"all healthy", 10, 0, LevelHealthy},
		{"under degraded threshold", 9, 1, LevelHealthy},
		{"at degraded threshold", 8, 2, LevelDegraded},
		{"at critical threshold", 5, 5, LevelCritical},
		{"all failing", 0, 10, LevelCritical},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := NewRecorder(0)
			for i := 0; i < tt.ok; i++ {
				rec.Record(okSample("a"))
			}
			for i := 0; i < tt.failed; i++ {
				rec.Record(failedSample("a"))
			}

			if snap := rec.Snapshot(); snap.Level != tt.want {
				t.Errorf("Level = %q, want %q", snap.Level, tt.want)
			}
		})
	}
}

// TestRecorder_ErrorRateAlert verifies that a persistently failing feed
// raises a critical alert with a stable ID, and that short-lived feeds do not.
func TestRecorder_ErrorRateAlert(t *testing.T) {
	rec := NewRecorder(0)

	// below the sample minimum: no alert even though everything fails
	for i := 0; i < alertMinSamples-1; i++ {
		rec.Record(failedSample("flaky"))
	}
	if snap := rec.Snapshot(); len(snap.Alerts) != 0 {
		t.Fatalf("Alerts = %d before minimum samples, want 0", len(snap.Alerts))
	}

	rec.Record(failedSample("flaky"))
	snap := rec.Snapshot()
	if len(snap.Alerts) != 1 {
		t.Fatalf("Alerts = %d, want 1", len(snap.Alerts))
	}
	alert := snap.Alerts[0]
	if alert.ID != "error-rate:flaky" {
		t.Errorf("Alert.ID = %q, want %q", alert.ID, "error-rate:flaky")
	}
	if alert.Level != LevelCritical {
		t.Errorf("Alert.Level = %q, want %q", alert.Level, LevelCritical)
	}
}

// TestRecorder_Events verifies that health transitions and failures land in
// the event log, and that the log stays bounded.
func TestRecorder_Events(t *testing.T) {
	rec := NewRecorder(0)

	rec.Record(okSample("a"))

	s := okSample("a")
	s.Health = "degraded"
	rec.Record(s)

	snap := rec.Snapshot()
	if len(snap.Events) != 1 {
		t.Fatalf("Events = %d, want 1 transition event", len(snap.Events))
	}
	if want := "health changed from ok to degraded"; snap.Events[0].Message != want {
		t.Errorf("Events[0].Message = %q, want %q", snap.Events[0].Message, want)
	}

	// failures append events; the log is capped
	for i := 0; i < eventLogCap+50; i++ {
		f := failedSample("a")
		f.Err = fmt.Errorf("failure %d", i)
		rec.Record(f)
	}

	snap = rec.Snapshot()
	if len(snap.Events) != eventLogCap {
		t.Errorf("Events = %d, want capped at %d", len(snap.Events), eventLogCap)
	}
}

// TestRecorder_SnapshotIsolation verifies that mutating a snapshot does not
// affect subsequent snapshots.
func TestRecorder_SnapshotIsolation(t *testing.T) {
	rec := NewRecorder(0)
	rec.Record(okSample("a"))

	snap := rec.Snapshot()
	snap.Feeds[0].Name = "mutated"
	snap.Totals.Requests = 999

	fresh := rec.Snapshot()
	if fresh.Feeds[0].Name != "a" {
		t.Errorf("Feeds[0].Name = %q after external mutation, want %q", fresh.Feeds[0].Name, "a")
	}
	if fresh.Totals.Requests != 1 {
		t.Errorf("Totals.Requests = %d after external mutation, want 1", fresh.Totals.Requests)
	}
}
