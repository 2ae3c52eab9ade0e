package loader

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"github.com/WarrickSmith/raceday/internal/raceapi"
)

// Source supplies race contexts by race ID.
//
// The upstream API client and the embedded database both implement Source;
// the loader does not care which is behind it.
type Source interface {
	RaceContext(ctx context.Context, raceID string) (*raceapi.RaceContext, error)
}

// Loader fetches race contexts with per-race single-flight deduplication
// and an LRU freshness cache.
//
// The core invariant: at most one fetch is in flight per race ID.
// Concurrent callers for the same ID join the in-flight fetch and observe
// the same outcome, success or failure. The in-flight entry is removed
// when the fetch completes, so a later call always starts a fresh request.
//
// Successful contexts are cached and served without a new fetch while
// within the freshness window. Failures are never cached; they are
// retained only as a human-readable message per race ID, retrievable via
// [Loader.LastError].
type Loader struct {
	source   Source
	freshFor time.Duration
	cache    *lru.Cache[string, *raceapi.RaceContext]
	group    singleflight.Group
	logger   *slog.Logger

	mu      sync.Mutex
	lastErr map[string]string
}

// New creates a [Loader] over the given source.
//
// cacheSize is the maximum number of race contexts held; freshFor is how
// long a cached context is served without a new fetch. Returns an error if
// the cache cannot be constructed (non-positive size).
func New(source Source, cacheSize int, freshFor time.Duration, logger *slog.Logger) (*Loader, error) {
	if source == nil {
		return nil, fmt.Errorf("source is required")
	}
	cache, err := lru.New[string, *raceapi.RaceContext](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("create cache: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{
		source:   source,
		freshFor: freshFor,
		cache:    cache,
		logger:   logger,
		lastErr:  make(map[string]string),
	}, nil
}

// Load returns the race context for raceID.
//
// A cached context within the freshness window is returned immediately.
// Otherwise Load fetches from the source, with concurrent calls for the
// same ID joined onto one fetch. The fetch runs under the context of the
// call that initiated it; joined callers share its outcome.
//
// On failure every joined caller receives the same error, its message
// phrased for display, and the message is retained for [Loader.LastError]
// until the next successful load of that race.
func (l *Loader) Load(ctx context.Context, raceID string) (*raceapi.RaceContext, error) {
	if rc, ok := l.cache.Get(raceID); ok && time.Since(rc.FetchedAt) < l.freshFor {
		return rc, nil
	}

	v, err, shared := l.group.Do(raceID, func() (interface{}, error) {
		rc, err := l.source.RaceContext(ctx, raceID)
		if err != nil {
			loadErr := fmt.Errorf("unable to load race %s: %w", raceID, err)

			l.mu.Lock()
			l.lastErr[raceID] = loadErr.Error()
			l.mu.Unlock()

			l.logger.Warn("race load failed", "race_id", raceID, "error", err)
			return nil, loadErr
		}

		if rc.FetchedAt.IsZero() {
			rc.FetchedAt = time.Now()
		}
		l.cache.Add(raceID, rc)

		l.mu.Lock()
		delete(l.lastErr, raceID)
		l.mu.Unlock()

		return rc, nil
	})
	if err != nil {
		return nil, err
	}

	if shared {
		l.logger.Debug("race load joined in-flight fetch", "race_id", raceID)
	}
	return v.(*raceapi.RaceContext), nil
}

// LastError returns the display message of the most recent failed load for
// raceID, or the empty string if the last load succeeded or none occurred.
func (l *Loader) LastError(raceID string) string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lastErr[raceID]
}

// Invalidate drops any cached context for raceID, forcing the next load to
// fetch from the source.
func (l *Loader) Invalidate(raceID string) {
	l.cache.Remove(raceID)
}
