package raceday

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/WarrickSmith/raceday/dashboard"
	"github.com/WarrickSmith/raceday/internal/health"
	"github.com/WarrickSmith/raceday/internal/loader"
	"github.com/WarrickSmith/raceday/internal/poller"
	"github.com/WarrickSmith/raceday/internal/raceapi"
	"github.com/WarrickSmith/raceday/internal/racedb"
	"github.com/WarrickSmith/raceday/internal/server"
	"github.com/WarrickSmith/raceday/internal/store"
)

const (
	defaultPollingInterval = 30 * time.Second
	defaultPort            = 8080
	defaultMaxConcurrency  = 10
)

// Defaults for the race-context cache, applied when [WithCache] is not used.
// Exported so config layers can fill partially specified cache settings.
const (
	// DefaultCacheSize is the default maximum number of cached race contexts.
	DefaultCacheSize = 256

	// DefaultFreshFor is the default window during which a cached race
	// context is served without a new upstream fetch.
	DefaultFreshFor = 15 * time.Second
)

// Board is the main orchestrator for race-feed polling and dashboard serving.
//
// Board coordinates the polling of race-data feeds, parses and persists the
// race cards they return, tracks polling health, and serves a real-time
// dashboard and JSON API via HTTP. It is created using [New] with functional
// options and started with [Board.Start].
//
// The typical lifecycle is:
//
//	board, err := raceday.New(raceday.WithFeed(feed))
//	if err != nil {
//	    slog.Error("failed to create board", "error", err)
//	    os.Exit(1)
//	}
//
//	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
//	defer cancel()
//
//	board.Start(ctx) // blocks until context cancelled
//
// The caller controls the lifecycle via the context. Cancel the context to
// trigger graceful shutdown.
type Board struct {
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

// New creates a new [Board] instance with the given options.
//
// At least one feed must be configured via [WithFeed] or [WithFeeds].
// Other options have sensible defaults:
//   - Polling interval: 30 seconds
//   - Port: 8080
//   - Max concurrency: 10
//   - Race-context cache: 256 entries, fresh for 15 seconds
//
// Returns an error if no feeds are configured or if any option is invalid.
//
// Example:
//
//	board, err := raceday.New(
//	    raceday.WithFeed(feed),
//	    raceday.WithPollingInterval(30 * time.Second),
//	    raceday.WithDataDir("./racedata"),
//	)
func New(opts ...Option) (*Board, error) {
	cfg := &boardConfig{
		feeds:           []Feed{},
		pollingInterval: defaultPollingInterval,
		port:            defaultPort,
		maxConcurrency:  defaultMaxConcurrency,
		cacheSize:       DefaultCacheSize,
		freshFor:        DefaultFreshFor,
	}

	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	if len(cfg.feeds) == 0 {
		return nil, errors.New("at least one feed is required")
	}

	// validate feed name uniqueness (required for per-feed interval tracking)
	seen := make(map[string]bool, len(cfg.feeds))
	for _, f := range cfg.feeds {
		if seen[f.name] {
			return nil, fmt.Errorf("duplicate feed name: %q", f.name)
		}
		seen[f.name] = true
	}

	if cfg.port < 1 || cfg.port > 65535 {
		return nil, fmt.Errorf("port must be between 1 and 65535, got %d", cfg.port)
	}

	// default to slog.Default() if no logger provided
	logger := cfg.logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Board{
		title:           cfg.title,
		feeds:           cfg.feeds,
		pollingInterval: cfg.pollingInterval,
		port:            cfg.port,
		maxConcurrency:  cfg.maxConcurrency,
		dataDir:         cfg.dataDir,
		upstreamURL:     cfg.upstreamURL,
		upstreamTimeout: cfg.upstreamTimeout,
		cacheSize:       cfg.cacheSize,
		freshFor:        cfg.freshFor,
		logger:          logger,
		resultCallbacks: cfg.resultCallbacks,
	}, nil
}

// Start begins polling feeds and serving the dashboard.
//
// Start is a blocking call that runs until the provided context is cancelled.
// During execution:
//
//   - All configured feeds are polled immediately, then at the configured interval
//   - Race cards returned by feeds are persisted and published to subscribers
//   - Polling health statistics accumulate for the developer monitor
//   - The HTTP server starts on the configured port
//   - The dashboard is available at http://localhost:<port>
//
// The caller controls the lifecycle via context cancellation. For signal
// handling, use [signal.NotifyContext].
//
// Returns nil on graceful shutdown. Returns an error if the database or the
// HTTP server fails to start.
func (b *Board) Start(ctx context.Context) error {
	b.logger.Info("raceday starting", "feed_count", len(b.feeds))
	b.logger.Info("polling configured", "interval", b.pollingInterval.String())
	b.logger.Info("dashboard available", "url", fmt.Sprintf("http://localhost:%d", b.port))

	// check if context already cancelled
	if ctx.Err() != nil {
		return nil
	}

	// open the embedded race database when a data directory is configured
	var db *racedb.Store
	if b.dataDir != "" {
		var err error
		db, err = racedb.New(b.dataDir, b.logger)
		if err != nil {
			return fmt.Errorf("failed to open race database: %w", err)
		}
		defer func() {
			if err := db.Close(); err != nil {
				b.logger.Error("failed to close race database", "error", err)
			}
		}()
	}

	// the race-context loader reads from the upstream API when configured,
	// falling back to the local database otherwise
	var source loader.Source
	switch {
	case b.upstreamURL != "":
		clientOpts := []raceapi.ClientOption{raceapi.WithLogger(b.logger)}
		if b.upstreamTimeout > 0 {
			clientOpts = append(clientOpts, raceapi.WithTimeout(b.upstreamTimeout))
		}
		source = raceapi.NewClient(b.upstreamURL, clientOpts...)
	case db != nil:
		source = db
	}

	var raceLoader *loader.Loader
	if source != nil {
		var err error
		raceLoader, err = loader.New(source, b.cacheSize, b.freshFor, b.logger)
		if err != nil {
			return fmt.Errorf("failed to create race loader: %w", err)
		}
	}

	// create the store and the polling-health recorder
	raceStore := store.NewMemoryStore()
	recorder := health.NewRecorder(0)

	// start the polling scheduler
	scheduler := poller.NewScheduler(b.toPollerFeeds(), b.pollingInterval, b.maxConcurrency, b.logger)
	scheduler.Start(ctx)

	// track the results consumer goroutine to ensure clean shutdown
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for result := range scheduler.Results() {
			// health accounting first, then persistence, then callbacks
			recorder.Record(pollerResultToSample(result))
			b.ingestResult(db, raceStore, result)

			if len(b.resultCallbacks) > 0 {
				publicResult := pollerResultToPublicResult(result)
				for _, cb := range b.resultCallbacks {
					invokeCallbackSafe(cb, publicResult, b.logger)
				}
			}

			// log poll results (DEBUG level for success to reduce noise)
			logAttrs := []any{
				"health", result.Health,
				"feed", result.FeedName,
				"url", result.URL,
				"latency_ms", result.Latency.Milliseconds(),
			}
			if result.Error != nil {
				b.logger.Warn("poll completed with error", append(logAttrs, "error", result.Error.Error())...)
			} else {
				b.logger.Debug("poll completed", logAttrs...)
			}
		}
	}()

	// cleanup function ensures scheduler is stopped and all results are processed
	cleanup := func() {
		scheduler.Stop() // closes results channel
		wg.Wait()        // wait for all results to be processed
	}

	// start the HTTP server
	var lister server.RaceLister
	if db != nil {
		lister = db
	}
	var contextLoader server.ContextLoader
	if raceLoader != nil {
		contextLoader = raceLoader
	}
	httpServer := server.NewServer(raceStore, lister, contextLoader, recorder, b.port, dashboard.Assets, b.title, b.logger)
	if err := httpServer.Start(ctx); err != nil {
		cleanup()
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}

	<-ctx.Done()
	cleanup()
	b.logger.Info("raceday stopped")
	return nil
}

// ingestResult parses a poll's race-card payload, persists it, and publishes
// per-race summaries. Payloads that are not race cards (plain health
// endpoints) are skipped quietly.
func (b *Board) ingestResult(db *racedb.Store, raceStore store.Store, result poller.FeedResult) {
	if result.Error != nil || len(result.RawResponse) == 0 {
		return
	}

	card, err := raceapi.ParseRaceCard(result.RawResponse)
	if err != nil {
		if !errors.Is(err, raceapi.ErrNotRaceCard) {
			b.logger.Warn("failed to parse race card", "feed", result.FeedName, "error", err)
		}
		return
	}

	if db != nil {
		if err := db.UpsertCard(card); err != nil {
			b.logger.Error("failed to persist race card", "feed", result.FeedName, "error", err)
		}
	}

	for _, race := range card.Races {
		raceStore.Update(store.RaceSummary{
			RaceID:          race.ID,
			MeetingID:       card.Meeting.ID,
			MeetingName:     card.Meeting.Name,
			Number:          race.Number,
			Name:            race.Name,
			Status:          string(race.Status),
			AdvertisedStart: race.AdvertisedStart,
			FeedHealth:      result.Health,
			UpdatedAt:       result.CheckedAt,
		})
	}
}

// toPollerFeeds converts the Feed slice to poller.FeedInfo slice.
func (b *Board) toPollerFeeds() []poller.FeedInfo {
	result := make([]poller.FeedInfo, len(b.feeds))

	for i, f := range b.feeds {
		// wrap the raceday probe to return string
		boardProbe := f.probe
		if boardProbe == nil {
			boardProbe = DefaultProbe
		}
		probe := func(body []byte, statusCode int) string {
			return boardProbe(body, statusCode).String()
		}

		result[i] = poller.FeedInfo{
			Name:     f.name,
			URL:      f.url,
			Labels:   copyMap(f.labels),
			Headers:  copyMap(f.headers),
			Timeout:  f.timeout,
			Probe:    probe,
			Method:   f.method,
			Interval: f.interval,
		}
	}

	return result
}

// Feeds returns a copy of the configured feeds.
//
// The returned slice is a copy; modifying it does not affect the Board.
// Each [Feed] in the slice is immutable.
func (b *Board) Feeds() []Feed {
	cp := make([]Feed, len(b.feeds))
	copy(cp, b.feeds)
	return cp
}

// Port returns the configured HTTP port for the dashboard server.
func (b *Board) Port() int {
	return b.port
}

// PollingInterval returns the configured interval between polling cycles.
func (b *Board) PollingInterval() time.Duration {
	return b.pollingInterval
}

// pollerResultToSample converts a poller result to a health recorder sample.
func pollerResultToSample(pr poller.FeedResult) health.Sample {
	return health.Sample{
		Feed:        pr.FeedName,
		URL:         pr.URL,
		Latency:     pr.Latency,
		StatusCode:  pr.StatusCode,
		Health:      pr.Health,
		Err:         pr.Error,
		ScheduledAt: pr.ScheduledAt,
		CheckedAt:   pr.CheckedAt,
	}
}

// pollerResultToPublicResult converts internal poller result to public API type.
// Creates defensive copies of mutable fields to prevent data races.
func pollerResultToPublicResult(pr poller.FeedResult) FeedResult {
	return FeedResult{
		FeedName:    pr.FeedName,
		URL:         pr.URL,
		Health:      Health(pr.Health),
		Labels:      copyMap(pr.Labels),
		Latency:     pr.Latency,
		ScheduledAt: pr.ScheduledAt,
		CheckedAt:   pr.CheckedAt,
		Error:       pr.Error,
		RawResponse: copyBytes(pr.RawResponse),
		StatusCode:  pr.StatusCode,
	}
}

// copyBytes returns a copy of the byte slice, or nil if input is nil.
func copyBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	return append([]byte(nil), b...)
}

// invokeCallbackSafe calls a result callback with panic recovery.
// Panics are logged but do not propagate.
func invokeCallbackSafe(cb func(FeedResult), result FeedResult, logger *slog.Logger) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("result callback panicked",
				"panic", r,
				"feed", result.FeedName,
			)
		}
	}()
	cb(result)
}
