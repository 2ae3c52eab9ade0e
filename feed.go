package raceday

import (
	"bytes"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"text/template"
	"time"
)

const defaultFeedTimeout = 10 * time.Second

// Feed represents an upstream race-card endpoint to poll for race data.
//
// A feed typically serves the race card for one meeting: the meeting
// record, its races, entrants, pools, and results, plus a generation
// timestamp used for freshness checks.
//
// Feed is immutable after creation via [NewFeed]. All fields are private
// with getter methods that return copies of mutable data (maps), ensuring
// the feed cannot be modified after construction.
//
// Feeds are configured using the functional options pattern with
// [FeedOption] functions such as [WithLabels], [WithHeaders], [WithTimeout],
// [WithProbe], [WithMethod], and [WithInterval].
type Feed struct {
	name     string
	url      string
	labels   map[string]string
	headers  map[string]string
	timeout  time.Duration
	probe    Probe
	method   string
	interval time.Duration
}

// Name returns the feed's display name.
// The name is used for identification in the dashboard and logs.
func (f Feed) Name() string {
	return f.name
}

// URL returns the feed's target URL as a string.
func (f Feed) URL() string {
	return f.url
}

// Labels returns a copy of the feed's labels.
// Labels are key-value metadata used for grouping and filtering feeds
// in the dashboard. Returns nil if no labels are set.
func (f Feed) Labels() map[string]string {
	return copyMap(f.labels)
}

// Headers returns a copy of the feed's custom HTTP headers.
// These headers are sent with every poll request to this feed.
// Returns nil if no custom headers are set.
func (f Feed) Headers() map[string]string {
	return copyMap(f.headers)
}

// Timeout returns the feed's HTTP request timeout.
// Defaults to 10 seconds if not explicitly set via [WithTimeout].
func (f Feed) Timeout() time.Duration {
	return f.timeout
}

// Probe returns the feed's [Probe] function.
// Returns nil if no custom probe was specified. When nil, the polling
// layer applies [DefaultProbe].
func (f Feed) Probe() Probe {
	return f.probe
}

// Method returns the HTTP method for poll requests.
// Returns empty string if not explicitly set, which means GET will be used.
func (f Feed) Method() string {
	return f.method
}

// Interval returns the feed's custom polling interval.
// Returns 0 if no custom interval was specified, meaning the global
// polling interval configured via [WithPollingInterval] should be used.
func (f Feed) Interval() time.Duration {
	return f.interval
}

// NewFeed creates a [Feed] with the given name, URL, and options.
//
// The name parameter is a human-readable identifier displayed in the
// dashboard. The rawURL parameter must be a valid URL with a scheme
// (http:// or https://).
//
// Options are applied in order using the functional options pattern.
// See [WithLabels], [WithHeaders], [WithTimeout], and [WithProbe].
//
// Returns an error if the name is empty or the URL is invalid.
//
// Example:
//
//	feed, err := raceday.NewFeed("NZ Harness", "https://feeds.example.com/cards/NZ-HN",
//	    raceday.WithLabels("country", "NZ"),
//	    raceday.WithTimeout(5 * time.Second),
//	)
func NewFeed(name, rawURL string, opts ...FeedOption) (Feed, error) {
	if name == "" {
		return Feed{}, errors.New("feed name cannot be empty")
	}

	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return Feed{}, errors.New("invalid URL: " + err.Error())
	}
	if parsedURL.Scheme == "" {
		return Feed{}, errors.New("URL must have a scheme (http:// or https://)")
	}

	cfg := &feedConfig{
		labels:  make(map[string]string),
		headers: make(map[string]string),
		timeout: defaultFeedTimeout,
	}

	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return Feed{}, err
		}
	}

	return Feed{
		name:     name,
		url:      rawURL,
		labels:   cfg.labels,
		headers:  cfg.headers,
		timeout:  cfg.timeout,
		probe:    cfg.probe,
		method:   cfg.method,
		interval: cfg.interval,
	}, nil
}

// NewFeedSet expands a URL template over a list of meeting codes, creating
// one feed per meeting.
//
// The template uses Go's text/template syntax with a single {{.meeting}}
// variable. Meeting codes are URL-encoded before interpolation. Each feed
// is named "<baseName> <code>" and labelled with meeting=<code> in addition
// to any options applied.
//
// Example:
//
//	feeds, err := raceday.NewFeedSet("TAB",
//	    "https://feeds.example.com/cards/{{.meeting}}",
//	    []string{"NZ-AUK", "NZ-CHC"},
//	)
//	// Returns 2 feeds, usable with WithFeeds(feeds...)
func NewFeedSet(baseName, urlTemplate string, meetings []string, opts ...FeedOption) ([]Feed, error) {
	if strings.TrimSpace(baseName) == "" {
		return nil, errors.New("base name cannot be empty")
	}
	if urlTemplate == "" {
		return nil, errors.New("URL template required")
	}
	if len(meetings) == 0 {
		return nil, errors.New("at least one meeting code required")
	}

	seen := make(map[string]struct{}, len(meetings))
	for _, code := range meetings {
		if _, dup := seen[code]; dup {
			return nil, fmt.Errorf("duplicate meeting code %q", code)
		}
		seen[code] = struct{}{}
	}

	// missingkey=error fails fast on anything other than {{.meeting}}
	tmpl, err := template.New("url").Option("missingkey=error").Parse(urlTemplate)
	if err != nil {
		return nil, fmt.Errorf("invalid URL template: %w", err)
	}

	codes := append([]string(nil), meetings...)
	sort.Strings(codes)

	feeds := make([]Feed, 0, len(codes))
	for _, code := range codes {
		var buf bytes.Buffer
		if err := tmpl.Execute(&buf, map[string]string{"meeting": url.QueryEscape(code)}); err != nil {
			return nil, fmt.Errorf("feed set (%s) meeting %q: template execution failed: %w", baseName, code, err)
		}

		feedOpts := append([]FeedOption{WithLabels("meeting", code)}, opts...)
		feed, err := NewFeed(baseName+" "+code, buf.String(), feedOpts...)
		if err != nil {
			return nil, err
		}
		feeds = append(feeds, feed)
	}

	return feeds, nil
}

// copyMap returns a shallow copy of the map.
func copyMap(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	cp := make(map[string]string, len(m))
	for k, v := range m {
		cp[k] = v
	}
	return cp
}
