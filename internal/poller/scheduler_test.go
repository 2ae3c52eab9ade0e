package poller

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
)

// testLogger returns a logger that discards all output for clean test output.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// TestScheduler_StopBeforeStart verifies that calling Stop() on a scheduler
// that was never started does not panic and is a safe no-op.
func TestScheduler_StopBeforeStart(t *testing.T) {
	feeds := []FeedInfo{
		{Name: "test", URL: "http://example.com", Timeout: time.Second},
	}

	scheduler := NewScheduler(feeds, time.Minute, 1, testLogger())

	// this must not panic
	scheduler.Stop()
}

// TestScheduler_StopTwice verifies that Stop() is idempotent and can be
// called multiple times without panic or deadlock.
func TestScheduler_StopTwice(t *testing.T) {
	feeds := []FeedInfo{
		{Name: "test", URL: "http://example.com", Timeout: time.Second},
	}

	scheduler := NewScheduler(feeds, time.Minute, 1, testLogger())
	scheduler.Start(context.Background())

	// both calls must complete without panic or deadlock
	scheduler.Stop()
	scheduler.Stop()
}

// TestScheduler_StopAfterStart verifies the normal lifecycle: Start followed
// by Stop results in clean shutdown with the results channel closed.
func TestScheduler_StopAfterStart(t *testing.T) {
	feeds := []FeedInfo{
		{Name: "test", URL: "http://example.com", Timeout: time.Second},
	}

	scheduler := NewScheduler(feeds, time.Minute, 1, testLogger())
	scheduler.Start(context.Background())

	// drain results channel to prevent blocking
	go func() {
		for range scheduler.Results() {
		}
	}()

	// give the scheduler a moment to start polling
	time.Sleep(50 * time.Millisecond)

	scheduler.Stop()

	// verify results channel is closed by reading from it
	select {
	case _, ok := <-scheduler.Results():
		if ok {
			t.Error("expected results channel to be closed after Stop()")
		}
	case <-time.After(time.Second):
		t.Error("timeout waiting for results channel to close")
	}
}

// TestScheduler_ConcurrentStartStop verifies that calling Start() and Stop()
// concurrently does not cause a race condition or panic.
// Run with: go test -race ./internal/poller/...
func TestScheduler_ConcurrentStartStop(t *testing.T) {
	feeds := []FeedInfo{
		{Name: "test", URL: "http://example.com", Timeout: time.Second},
	}

	// run multiple iterations to increase chance of catching races
	for i := 0; i < 100; i++ {
		scheduler := NewScheduler(feeds, time.Minute, 1, testLogger())

		var wg sync.WaitGroup
		wg.Add(2)

		go func() {
			defer wg.Done()
			scheduler.Start(context.Background())
		}()

		go func() {
			defer wg.Done()
			scheduler.Stop()
		}()

		wg.Wait()

		// drain any remaining results
		for range scheduler.Results() {
		}
	}
}

// TestScheduler_StartTwice verifies that Start() is idempotent and calling
// it multiple times does not spawn multiple polling goroutines.
func TestScheduler_StartTwice(t *testing.T) {
	feeds := []FeedInfo{
		{Name: "test", URL: "http://example.com", Timeout: time.Second},
	}

	scheduler := NewScheduler(feeds, time.Minute, 1, testLogger())

	scheduler.Start(context.Background())
	scheduler.Start(context.Background()) // second call should be no-op

	// drain results
	go func() {
		for range scheduler.Results() {
		}
	}()

	scheduler.Stop()
}

// TestScheduler_ContextCancellation verifies that cancelling the parent
// context stops the scheduler gracefully.
func TestScheduler_ContextCancellation(t *testing.T) {
	feeds := []FeedInfo{
		{Name: "test", URL: "http://example.com", Timeout: time.Second},
	}

	ctx, cancel := context.WithCancel(context.Background())
	scheduler := NewScheduler(feeds, time.Minute, 1, testLogger())
	scheduler.Start(ctx)

	// drain results
	go func() {
		for range scheduler.Results() {
		}
	}()

	// cancel parent context
	cancel()

	// stop should complete quickly since context is already cancelled
	done := make(chan struct{})
	go func() {
		scheduler.Stop()
		close(done)
	}()

	select {
	case <-done:
		// success
	case <-time.After(2 * time.Second):
		t.Error("Stop() did not complete after parent context cancellation")
	}
}

// TestScheduler_ProbePanicRecovery verifies that a panicking probe does not
// crash the scheduler. Instead, it should return "down" health with an error
// describing the panic.
func TestScheduler_ProbePanicRecovery(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status": "ok"}`))
	}))
	defer server.Close()

	panicProbe := func(body []byte, statusCode int) string {
		panic("probe panic: simulated failure")
	}

	feeds := []FeedInfo{{
		Name:    "Panic Test",
		URL:     server.URL,
		Probe:   panicProbe,
		Timeout: time.Second,
	}}

	scheduler := NewScheduler(feeds, time.Hour, 1, testLogger()) // long interval, we only want one poll
	scheduler.Start(context.Background())

	// collect the result
	var result FeedResult
	select {
	case result = <-scheduler.Results():
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for poll result")
	}

	scheduler.Stop()

	// verify panic was recovered and health is "down"
	if result.Health != "down" {
		t.Errorf("Health = %q, want %q", result.Health, "down")
	}

	// verify error contains panic info with correlation ID
	if result.Error == nil {
		t.Fatal("Error = nil, want error describing panic")
	}
	errMsg := result.Error.Error()
	if !strings.Contains(errMsg, "probe panic") {
		t.Errorf("Error = %q, want to contain 'probe panic'", errMsg)
	}
	if !strings.Contains(errMsg, "correlation_id") {
		t.Errorf("Error = %q, want to contain 'correlation_id'", errMsg)
	}
}

// TestScheduler_ResultCarriesPayloadAndSchedule verifies that a successful
// poll carries the response body, status code, and a ScheduledAt timestamp
// for the compliance metrics.
func TestScheduler_ResultCarriesPayloadAndSchedule(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"meeting": {"id": "NZ-AUK"}, "races": []}`))
	}))
	defer server.Close()

	feeds := []FeedInfo{{
		Name:    "Card Feed",
		URL:     server.URL,
		Timeout: time.Second,
	}}

	before := time.Now()
	scheduler := NewScheduler(feeds, time.Hour, 1, testLogger())
	scheduler.Start(context.Background())

	var result FeedResult
	select {
	case result = <-scheduler.Results():
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for poll result")
	}

	scheduler.Stop()

	if result.StatusCode != http.StatusOK {
		t.Errorf("StatusCode = %d, want 200", result.StatusCode)
	}
	if !strings.Contains(string(result.RawResponse), "NZ-AUK") {
		t.Errorf("RawResponse = %q, want the card payload", result.RawResponse)
	}
	if result.Health != "ok" {
		t.Errorf("Health = %q, want %q", result.Health, "ok")
	}
	if result.ScheduledAt.Before(before) {
		t.Errorf("ScheduledAt = %v, want no earlier than test start %v", result.ScheduledAt, before)
	}
	if result.CheckedAt.Before(result.ScheduledAt) {
		t.Errorf("CheckedAt %v precedes ScheduledAt %v", result.CheckedAt, result.ScheduledAt)
	}
}

// TestScheduler_PerFeedInterval verifies that a feed with a short custom
// interval is polled more often than the global interval alone would allow.
func TestScheduler_PerFeedInterval(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	feeds := []FeedInfo{{
		Name:     "fast",
		URL:      server.URL,
		Timeout:  time.Second,
		Interval: time.Second,
	}}

	// global interval much longer than the per-feed one
	scheduler := NewScheduler(feeds, time.Hour, 1, testLogger())
	scheduler.Start(context.Background())

	count := 0
	deadline := time.After(3500 * time.Millisecond)

collect:
	for {
		select {
		case <-scheduler.Results():
			count++
			if count >= 2 {
				break collect
			}
		case <-deadline:
			break collect
		}
	}

	scheduler.Stop()

	if count < 2 {
		t.Errorf("polled %d times in 3.5s with a 1s interval, want at least 2", count)
	}
}
