package poller

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"
)

// FeedResult holds the outcome of polling a single race-data feed.
//
// FeedResult contains the determined health, timing information relative
// to the polling schedule, the raw race-card payload, and any error that
// occurred.
type FeedResult struct {
	// FeedName is the display name of the polled feed.
	FeedName string

	// URL is the target URL that was polled.
	URL string

	// Health is the determined feed health as a string (e.g., "ok", "down").
	Health string

	// Labels contains the key-value metadata associated with the feed.
	Labels map[string]string

	// Latency is the time taken to complete the HTTP request.
	Latency time.Duration

	// ScheduledAt is when the poll became due according to the feed's
	// interval. The gap between ScheduledAt and CheckedAt feeds the
	// schedule-compliance metrics.
	ScheduledAt time.Time

	// CheckedAt is the timestamp when the poll completed.
	CheckedAt time.Time

	// Error contains any error that occurred during polling.
	Error error

	// RawResponse contains the race-card payload for downstream parsing.
	RawResponse []byte

	// StatusCode is the HTTP status code returned by the feed.
	StatusCode int
}

// Probe is a function that determines feed health from an HTTP response.
//
// This is the poller-internal version that returns a string rather than
// the raceday.Health type, avoiding circular dependencies.
type Probe func(body []byte, statusCode int) string

// FeedInfo contains the configuration needed to poll a single feed.
//
// This is the poller-internal representation of a feed, decoupled from
// the main raceday.Feed type to avoid circular dependencies.
type FeedInfo struct {
	// Name is the display name of the feed.
	Name string

	// URL is the target URL to poll.
	URL string

	// Labels contains key-value metadata for the feed.
	Labels map[string]string

	// Headers contains custom HTTP headers to send with requests.
	Headers map[string]string

	// Timeout is the per-request timeout duration.
	Timeout time.Duration

	// Probe determines how to interpret the response as feed health.
	// If nil, the default HTTP status code mapping is used.
	Probe Probe

	// Method is the HTTP method (GET, HEAD, POST). Empty defaults to GET.
	Method string

	// Interval is the custom polling interval for this feed.
	// If 0, the scheduler's global interval is used.
	Interval time.Duration
}

// Scheduler manages periodic polling of multiple race-data feeds.
//
// Scheduler implements a worker pool pattern, polling configured feeds at
// their respective intervals with configurable concurrency. Results are
// emitted to a channel that can be consumed by the caller.
//
// The scheduler polls all feeds immediately on start, then uses a
// tick-and-check pattern where it ticks at the GCD of all feed intervals
// and polls only feeds that are due.
//
// All lifecycle methods (Start, Stop) are safe for concurrent use.
type Scheduler struct {
	feeds          []FeedInfo
	interval       time.Duration // global default interval
	maxConcurrency int
	client         *Client
	results        chan FeedResult
	logger         *slog.Logger
	ctx            context.Context
	cancel         context.CancelFunc
	wg             sync.WaitGroup

	mu        sync.Mutex
	started   bool
	stopped   bool
	closeOnce sync.Once

	// per-feed timing for tick-and-check pattern
	lastPolledAt map[string]time.Time
	baseInterval time.Duration
}

// NewScheduler creates a new polling [Scheduler].
//
// Parameters:
//   - feeds: List of feeds to poll
//   - interval: Default time between polling cycles
//   - maxConcurrency: Maximum number of concurrent HTTP requests
//   - logger: Logger for scheduler events (panic recovery, etc.)
//
// The scheduler must be started with [Scheduler.Start] and stopped with
// [Scheduler.Stop]. Results are available via [Scheduler.Results].
func NewScheduler(feeds []FeedInfo, interval time.Duration, maxConcurrency int, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		feeds:          feeds,
		interval:       interval,
		maxConcurrency: maxConcurrency,
		client:         NewClient(),
		results:        make(chan FeedResult, len(feeds)),
		logger:         logger,
	}
}

// Results returns a receive-only channel that emits [FeedResult] values.
//
// The channel is closed when the scheduler stops. Consumers should read
// from this channel until it is closed to receive all poll results.
func (s *Scheduler) Results() <-chan FeedResult {
	return s.results
}

// calculateBaseInterval determines the tick interval for the scheduler.
// Uses the GCD of all feed intervals to ensure timely polling.
func (s *Scheduler) calculateBaseInterval() time.Duration {
	if len(s.feeds) == 0 {
		return s.interval
	}

	intervals := make([]time.Duration, 0, len(s.feeds))
	for _, f := range s.feeds {
		if f.Interval > 0 {
			intervals = append(intervals, f.Interval)
		} else {
			intervals = append(intervals, s.interval)
		}
	}

	result := intervals[0]
	for _, d := range intervals[1:] {
		result = gcdDuration(result, d)
	}

	// floor at 1 second to prevent CPU thrashing
	if result < time.Second {
		result = time.Second
	}

	return result
}

// gcdDuration calculates the greatest common divisor of two durations.
func gcdDuration(a, b time.Duration) time.Duration {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

// Start begins the polling loop in a background goroutine.
//
// Start is non-blocking and returns immediately. The scheduler will:
//  1. Poll all feeds immediately
//  2. Tick at the GCD of all feed intervals
//  3. Poll only feeds that are due on each tick
//  4. Continue until [Scheduler.Stop] is called or the context is cancelled
//
// If ctx is nil, context.Background() is used as the parent context.
// Start is idempotent; subsequent calls after the first are no-ops.
// If Stop was called before Start, Start is a no-op.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	if s.started || s.stopped {
		s.mu.Unlock()
		return
	}
	s.started = true
	s.lastPolledAt = make(map[string]time.Time, len(s.feeds))
	s.baseInterval = s.calculateBaseInterval()

	if ctx == nil {
		ctx = context.Background()
	}
	s.ctx, s.cancel = context.WithCancel(ctx)
	pollCtx := s.ctx // capture under lock to avoid race
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		defer s.closeOnce.Do(func() { close(s.results) })

		s.pollDueFeeds(pollCtx, true)

		ticker := time.NewTicker(s.baseInterval)
		defer ticker.Stop()

		for {
			select {
			case <-pollCtx.Done():
				return
			case <-ticker.C:
				s.pollDueFeeds(pollCtx, false)
			}
		}
	}()
}

// Stop halts the scheduler and waits for all goroutines to complete.
//
// Stop cancels the scheduler's context and blocks until:
//   - The polling loop exits
//   - All in-flight requests complete
//   - The results channel is closed
//
// Stop is idempotent and safe to call multiple times. Calling Stop before
// Start is a safe no-op.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.stopped {
		s.stopped = true
		if s.cancel != nil {
			s.cancel()
		}
	}
	s.mu.Unlock()

	s.wg.Wait()

	// clean up client connections after all goroutines complete
	if s.client != nil {
		s.client.Close()
	}

	// ensure channel is closed even if Start() was never called
	s.closeOnce.Do(func() { close(s.results) })
}

// dueFeed pairs a feed with the time its poll became due.
type dueFeed struct {
	info        FeedInfo
	scheduledAt time.Time
}

// pollDueFeeds polls only feeds that are due based on their intervals.
// If immediate is true, polls all feeds regardless of timing.
//
// TIMING SEMANTIC: lastPolledAt is updated when a poll STARTS, not when it
// completes. This prevents concurrent polls of the same feed but means
// effective interval = configured interval + poll duration for slow feeds.
func (s *Scheduler) pollDueFeeds(ctx context.Context, immediate bool) {
	now := time.Now()
	due := make([]dueFeed, 0, len(s.feeds))

	s.mu.Lock()
	for _, f := range s.feeds {
		if immediate {
			due = append(due, dueFeed{info: f, scheduledAt: now})
			s.lastPolledAt[f.Name] = now
			continue
		}

		interval := f.Interval
		if interval == 0 {
			interval = s.interval // use global default
		}

		lastPolled, exists := s.lastPolledAt[f.Name]
		if !exists || now.Sub(lastPolled) >= interval {
			scheduledAt := now
			if exists {
				// the poll became due one interval after the previous start;
				// the gap to now is schedule skew
				scheduledAt = lastPolled.Add(interval)
			}
			due = append(due, dueFeed{info: f, scheduledAt: scheduledAt})
			s.lastPolledAt[f.Name] = now
		}
	}
	s.mu.Unlock()

	if len(due) == 0 {
		return
	}

	s.pollFeeds(ctx, due)
}

// pollFeeds polls a subset of feeds concurrently, respecting maxConcurrency.
func (s *Scheduler) pollFeeds(ctx context.Context, feeds []dueFeed) {
	jobs := make(chan dueFeed, len(feeds))

	var wg sync.WaitGroup
	for i := 0; i < s.maxConcurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for f := range jobs {
				result := s.pollFeed(ctx, f)
				select {
				case s.results <- result:
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	for _, f := range feeds {
		select {
		case jobs <- f:
		case <-ctx.Done():
			close(jobs)
			wg.Wait()
			return
		}
	}
	close(jobs)

	wg.Wait()
}

// pollFeed polls a single feed and returns the result.
func (s *Scheduler) pollFeed(ctx context.Context, f dueFeed) FeedResult {
	resp := s.client.Fetch(ctx, f.info.Method, f.info.URL, f.info.Headers, f.info.Timeout)

	result := FeedResult{
		FeedName:    f.info.Name,
		URL:         f.info.URL,
		Labels:      f.info.Labels,
		Latency:     resp.Latency,
		ScheduledAt: f.scheduledAt,
		CheckedAt:   time.Now(),
		RawResponse: resp.Body,
		StatusCode:  resp.StatusCode,
		Error:       resp.Error,
	}

	if resp.Error != nil {
		result.Health = "down"
	} else if f.info.Probe != nil {
		health, err := s.safeProbe(f.info.Probe, resp.Body, resp.StatusCode)
		result.Health = health
		if err != nil {
			result.Error = err
		}
	} else {
		// default: use HTTP status code
		result.Health = httpStatusToHealth(resp.StatusCode)
	}

	return result
}

// safeProbe calls the probe with panic recovery.
// If the probe panics, it logs the full stack trace with a correlation ID
// and returns "down" health with a user-friendly error containing the ID.
func (s *Scheduler) safeProbe(probe Probe, body []byte, statusCode int) (health string, err error) {
	defer func() {
		if r := recover(); r != nil {
			correlationID := uuid.NewString()
			stack := debug.Stack()

			// log full context server-side for debugging
			s.logger.Error("probe panic",
				"correlation_id", correlationID,
				"panic", fmt.Sprintf("%v", r),
				"stack", string(stack),
			)

			health = "down"
			err = fmt.Errorf("probe panic (correlation_id: %s)", correlationID)
		}
	}()
	return probe(body, statusCode), nil
}

// httpStatusToHealth maps HTTP status codes to health strings.
func httpStatusToHealth(code int) string {
	switch {
	case code >= 200 && code < 300:
		return "ok"
	case code >= 400 && code < 500:
		return "degraded"
	default:
		return "down"
	}
}
