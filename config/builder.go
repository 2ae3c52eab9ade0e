package config

import (
	"sort"

	"github.com/WarrickSmith/raceday"
)

// BuildFeeds converts parsed configuration into SDK Feed objects.
//
// It processes both direct feeds and meeting feed sets, returning a
// combined slice. Meeting feed sets expand their URL template over the
// configured meeting codes.
func BuildFeeds(cfg *Config) ([]raceday.Feed, error) {
	var feeds []raceday.Feed

	// convert direct feeds
	for _, fc := range cfg.Feeds {
		feed, err := buildFeed(fc)
		if err != nil {
			return nil, err
		}
		feeds = append(feeds, feed)
	}

	// convert meeting feed sets
	for _, mc := range cfg.MeetingFeeds {
		set, err := raceday.NewFeedSet(mc.Name, mc.URLTemplate, mc.Meetings, feedOptions(
			mc.Method, mc.Timeout, mc.Headers, mc.Labels, mc.Probe, mc.Interval)...)
		if err != nil {
			return nil, err
		}
		feeds = append(feeds, set...)
	}

	return feeds, nil
}

// BoardOptions converts parsed configuration into SDK Board options,
// feeds included.
func BoardOptions(cfg *Config) ([]raceday.Option, error) {
	feeds, err := BuildFeeds(cfg)
	if err != nil {
		return nil, err
	}

	opts := []raceday.Option{
		raceday.WithFeeds(feeds...),
		raceday.WithPort(cfg.Port),
		raceday.WithPollingInterval(cfg.PollInterval.Duration()),
	}

	if cfg.Title != "" {
		opts = append(opts, raceday.WithTitle(cfg.Title))
	}
	if cfg.DataDir != "" {
		opts = append(opts, raceday.WithDataDir(cfg.DataDir))
	}
	if cfg.Upstream.BaseURL != "" {
		opts = append(opts, raceday.WithUpstream(cfg.Upstream.BaseURL))
	}
	if cfg.Upstream.Timeout != 0 {
		opts = append(opts, raceday.WithUpstreamTimeout(cfg.Upstream.Timeout.Duration()))
	}
	if cfg.Cache.Size != 0 || cfg.Cache.FreshFor != 0 {
		// unset fields keep the SDK defaults so a partial cache block is valid
		size := cfg.Cache.Size
		if size == 0 {
			size = raceday.DefaultCacheSize
		}
		freshFor := cfg.Cache.FreshFor.Duration()
		if freshFor == 0 {
			freshFor = raceday.DefaultFreshFor
		}
		opts = append(opts, raceday.WithCache(size, freshFor))
	}

	return opts, nil
}

// buildFeed converts a single FeedConfig to an SDK Feed.
func buildFeed(fc FeedConfig) (raceday.Feed, error) {
	opts := feedOptions(fc.Method, fc.Timeout, fc.Headers, fc.Labels, fc.Probe, fc.Interval)
	return raceday.NewFeed(fc.Name, fc.URL, opts...)
}

// feedOptions assembles the shared option set of direct feeds and meeting
// feed sets.
func feedOptions(method string, timeout Duration, headers, labels map[string]string, probe ProbeConfig, interval Duration) []raceday.FeedOption {
	var opts []raceday.FeedOption

	if method != "" {
		opts = append(opts, raceday.WithMethod(method))
	}

	if timeout != 0 {
		opts = append(opts, raceday.WithTimeout(timeout.Duration()))
	}

	if len(headers) > 0 {
		opts = append(opts, raceday.WithHeaders(mapToKeyValuePairs(headers)...))
	}

	if len(labels) > 0 {
		opts = append(opts, raceday.WithLabels(mapToKeyValuePairs(labels)...))
	}

	if p := buildProbe(probe); p != nil {
		opts = append(opts, raceday.WithProbe(p))
	}

	if interval != 0 {
		opts = append(opts, raceday.WithInterval(interval.Duration()))
	}

	return opts
}

// mapToKeyValuePairs converts a map to a sorted slice of key-value pairs.
func mapToKeyValuePairs(m map[string]string) []string {
	// sort keys for deterministic ordering
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(m)*2)
	for _, k := range keys {
		pairs = append(pairs, k, m[k])
	}
	return pairs
}

// buildProbe converts ProbeConfig to a Probe function.
// Returns nil for default/empty probes (the SDK uses DefaultProbe).
func buildProbe(pc ProbeConfig) raceday.Probe {
	switch pc.Type {
	case "", "default":
		// nil signals the SDK to use DefaultProbe
		return nil
	case "http":
		return raceday.HTTPStatusProbe
	case "json":
		return raceday.JSONFieldProbe(pc.Path)
	case "freshness":
		return raceday.FreshnessProbe(pc.Path, pc.MaxAge.Duration())
	default:
		// validation should catch this, but return nil as fallback
		return nil
	}
}
