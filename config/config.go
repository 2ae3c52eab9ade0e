// Package config provides YAML configuration parsing for raceday.
//
// This package enables running raceday as a standalone binary with a
// configuration file, as an alternative to the programmatic SDK approach.
//
// Example configuration:
//
//	port: 8080
//	poll_interval: 30s
//	data_dir: ./racedata
//
//	upstream:
//	  base_url: https://api.example.com/racing
//	  timeout: 10s
//
//	feeds:
//	  - name: NZ Harness
//	    url: https://api.example.com/meetings/nz-harness/card
//	    timeout: 5s
//	    probe: freshness:generated_at:90s
//
//	meeting_feeds:
//	  - name: Metro
//	    url_template: "https://api.example.com/meetings/{{.meeting}}/card"
//	    meetings: [flemington, randwick]
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"regexp"
	"strings"
	"text/template"
	"time"

	"gopkg.in/yaml.v3"
)

// minPollInterval is the minimum allowed polling interval for production configs.
// This prevents accidental DoS of race-data feeds with overly aggressive polling.
const minPollInterval = 1 * time.Second

// Config is the root configuration structure for raceday.
//
// It maps directly to the YAML configuration file structure.
// Use [Load] or [Parse] to create a Config from YAML.
type Config struct {
	// Title is the dashboard title. Defaults to "Race Day" if not set.
	Title string `yaml:"title"`

	// Port is the HTTP server port. Defaults to 8080.
	Port int `yaml:"port"`

	// PollInterval is the time between feed polling cycles.
	// Accepts duration strings like "30s", "1m", "500ms".
	// Defaults to 30s.
	PollInterval Duration `yaml:"poll_interval"`

	// DataDir is the directory for the embedded race database.
	// Empty disables persistence; race-context lookups then require an
	// upstream.
	DataDir string `yaml:"data_dir"`

	// Upstream configures the hosted racing API used for race-context
	// lookups.
	Upstream UpstreamConfig `yaml:"upstream"`

	// Cache configures the race-context cache.
	Cache CacheConfig `yaml:"cache"`

	// Feeds defines individual race-data feeds.
	Feeds []FeedConfig `yaml:"feeds"`

	// MeetingFeeds defines feed sets that expand one URL template over a
	// list of meeting codes.
	MeetingFeeds []MeetingFeedConfig `yaml:"meeting_feeds"`
}

// UpstreamConfig configures the hosted racing API client.
type UpstreamConfig struct {
	// BaseURL is the API base URL.
	// Supports environment variable substitution: ${VAR} or ${VAR:-default}
	BaseURL string `yaml:"base_url"`

	// Timeout is the per-request timeout. Zero uses the client default.
	Timeout Duration `yaml:"timeout"`
}

// CacheConfig configures the race-context cache.
type CacheConfig struct {
	// Size is the maximum number of cached race contexts. Zero uses the
	// default.
	Size int `yaml:"size"`

	// FreshFor is how long a cached race context is served without a
	// refetch. Zero uses the default.
	FreshFor Duration `yaml:"fresh_for"`
}

// FeedConfig defines a single race-data feed.
type FeedConfig struct {
	// Name is the display name shown in the dashboard.
	Name string `yaml:"name"`

	// URL is the feed URL.
	// Supports environment variable substitution: ${VAR} or ${VAR:-default}
	URL string `yaml:"url"`

	// Method is the HTTP method (GET, HEAD, POST). Defaults to GET.
	Method string `yaml:"method"`

	// Timeout is the request timeout. Defaults to 10s.
	Timeout Duration `yaml:"timeout"`

	// Headers are custom HTTP headers sent with each request.
	// Values support environment variable substitution.
	Headers map[string]string `yaml:"headers"`

	// Labels are metadata key-value pairs for grouping/filtering.
	Labels map[string]string `yaml:"labels"`

	// Probe determines how to interpret the response as feed health.
	// Can be shorthand ("json:status", "freshness:generated_at:90s") or
	// structured.
	Probe ProbeConfig `yaml:"probe"`

	// Interval is the custom polling interval for this feed.
	// If not specified, uses the global poll_interval.
	// Must be between 1s and 1h.
	Interval Duration `yaml:"interval"`
}

// MeetingFeedConfig defines a feed set that expands a URL template over a
// list of meeting codes.
//
// For example, with meetings [flemington, randwick], the set expands to two
// feeds named "<name> flemington" and "<name> randwick".
type MeetingFeedConfig struct {
	// Name is the base name for generated feeds.
	Name string `yaml:"name"`

	// URLTemplate is a Go template for generating feed URLs. The meeting
	// code is available as {{.meeting}}.
	// Supports environment variable substitution in the template.
	URLTemplate string `yaml:"url_template"`

	// Meetings lists the meeting codes to expand over.
	Meetings []string `yaml:"meetings"`

	// Method is the HTTP method for all generated feeds.
	Method string `yaml:"method"`

	// Timeout is the request timeout for all generated feeds.
	Timeout Duration `yaml:"timeout"`

	// Headers are custom HTTP headers for all generated feeds.
	Headers map[string]string `yaml:"headers"`

	// Labels are additional labels applied to all generated feeds.
	// These are merged with the auto-generated meeting label.
	Labels map[string]string `yaml:"labels"`

	// Probe determines how to interpret responses for all generated feeds.
	Probe ProbeConfig `yaml:"probe"`

	// Interval is the custom polling interval for all generated feeds.
	// If not specified, uses the global poll_interval.
	// Must be between 1s and 1h.
	Interval Duration `yaml:"interval"`
}

// ProbeConfig specifies how to determine feed health from a response.
//
// It supports two formats in YAML:
//
// Shorthand string:
//
//	probe: json:status
//	probe: json:data.health.status
//	probe: freshness:generated_at:90s
//	probe: default
//
// Structured object:
//
//	probe:
//	  type: freshness
//	  path: generated_at
//	  max_age: 90s
type ProbeConfig struct {
	// Type is the probe type: "default", "http", "json", "freshness".
	Type string

	// Path is the JSON field path (for types json and freshness).
	Path string

	// MaxAge is the staleness threshold (for type freshness).
	MaxAge Duration
}

// Duration wraps time.Duration for YAML unmarshalling.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for Duration.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}

	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}

	*d = Duration(parsed)
	return nil
}

// Duration returns the underlying time.Duration value.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// UnmarshalYAML implements yaml.Unmarshaler for ProbeConfig.
func (p *ProbeConfig) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		var s string
		if err := node.Decode(&s); err != nil {
			return err
		}
		return p.parseShorthand(s)
	}

	if node.Kind == yaml.MappingNode {
		// temporary struct to avoid infinite recursion
		var raw struct {
			Type   string   `yaml:"type"`
			Path   string   `yaml:"path"`
			MaxAge Duration `yaml:"max_age"`
		}
		if err := node.Decode(&raw); err != nil {
			return err
		}
		p.Type = raw.Type
		p.Path = raw.Path
		p.MaxAge = raw.MaxAge
		return nil
	}

	return fmt.Errorf("probe must be a string or object, got %v", node.Kind)
}

// parseShorthand parses probe shorthand syntax.
//
// Supported formats:
//   - "default" → use default probe
//   - "http" → use HTTP status code only
//   - "json:path" → read health from a JSON field
//   - "freshness:path:90s" → check the age of a JSON timestamp field
func (p *ProbeConfig) parseShorthand(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}

	if idx := strings.Index(s, ":"); idx != -1 {
		p.Type = s[:idx]
		value := s[idx+1:]

		switch p.Type {
		case "json":
			p.Path = value
		case "freshness":
			path, ageStr, ok := strings.Cut(value, ":")
			if !ok {
				return fmt.Errorf("freshness probe requires 'freshness:path:max_age', got %q", s)
			}
			age, err := time.ParseDuration(ageStr)
			if err != nil {
				return fmt.Errorf("freshness probe: invalid max_age %q: %w", ageStr, err)
			}
			p.Path = path
			p.MaxAge = Duration(age)
		default:
			return fmt.Errorf("unknown probe type %q", p.Type)
		}
		return nil
	}

	switch s {
	case "default", "http":
		p.Type = s
	default:
		return fmt.Errorf("unknown probe %q (expected 'default', 'http', 'json:path', or 'freshness:path:max_age')", s)
	}
	return nil
}

// envVarPattern matches ${VAR} and ${VAR:-default} patterns.
// Group 1: variable name
// Group 2: the ":-default" part (if present, indicates a default was specified)
// Group 3: the default value (may be empty for ${VAR:-})
var envVarPattern = regexp.MustCompile(`\$\{([^}:]+)(:-([^}]*))?\}`)

// expandEnvVars replaces ${VAR} and ${VAR:-default} patterns with environment values.
func expandEnvVars(s string) (string, error) {
	var firstErr error

	result := envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		// already have an error, skip processing
		if firstErr != nil {
			return match
		}

		submatches := envVarPattern.FindStringSubmatch(match)
		if len(submatches) < 2 {
			return match
		}

		varName := submatches[1]
		// submatches[2] is ":-..." (non-empty if default syntax was used)
		// submatches[3] is the actual default value (may be empty for ${VAR:-})
		hasDefault := len(submatches) > 2 && submatches[2] != ""
		defaultVal := ""
		if hasDefault && len(submatches) > 3 {
			defaultVal = submatches[3]
		}

		value, exists := os.LookupEnv(varName)
		if !exists {
			if hasDefault {
				return defaultVal
			}
			firstErr = fmt.Errorf("environment variable %q is not set", varName)
			return match
		}
		return value
	})

	if firstErr != nil {
		return "", firstErr
	}
	return result, nil
}

// Load reads and parses a YAML configuration file.
//
// Environment variables in the file are expanded before parsing.
// Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse parses YAML configuration data.
//
// Environment variables are expanded in URL, URLTemplate, upstream base_url,
// and Header values. Defaults are applied for Port (8080) and PollInterval
// (30s).
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if cfg.Port == 0 {
		cfg.Port = 8080
	}
	if cfg.PollInterval == 0 {
		cfg.PollInterval = Duration(30 * time.Second)
	}

	if err := cfg.expandAndValidate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// expandAndValidate expands environment variables and validates the config.
func (c *Config) expandAndValidate() error {
	if c.PollInterval.Duration() < minPollInterval {
		return fmt.Errorf("poll_interval must be at least %s, got %s", minPollInterval, c.PollInterval.Duration())
	}

	if c.Upstream.BaseURL != "" {
		expanded, err := expandEnvVars(c.Upstream.BaseURL)
		if err != nil {
			return fmt.Errorf("upstream.base_url: %w", err)
		}
		c.Upstream.BaseURL = expanded

		if err := validateURL(c.Upstream.BaseURL); err != nil {
			return fmt.Errorf("upstream.base_url: %w", err)
		}
	}
	if c.Upstream.Timeout.Duration() < 0 {
		return fmt.Errorf("upstream.timeout cannot be negative, got %s", c.Upstream.Timeout.Duration())
	}

	if c.Cache.Size < 0 {
		return fmt.Errorf("cache.size cannot be negative, got %d", c.Cache.Size)
	}
	if c.Cache.FreshFor.Duration() < 0 {
		return fmt.Errorf("cache.fresh_for cannot be negative, got %s", c.Cache.FreshFor.Duration())
	}

	for i := range c.Feeds {
		f := &c.Feeds[i]

		if f.Name == "" {
			return fmt.Errorf("feeds[%d]: name is required", i)
		}

		if f.URL == "" {
			return fmt.Errorf("feeds[%d] (%s): url is required", i, f.Name)
		}
		expanded, err := expandEnvVars(f.URL)
		if err != nil {
			return fmt.Errorf("feeds[%d] (%s): url: %w", i, f.Name, err)
		}
		f.URL = expanded

		if err := validateURL(f.URL); err != nil {
			return fmt.Errorf("feeds[%d] (%s): %w", i, f.Name, err)
		}

		for k, v := range f.Headers {
			expanded, err := expandEnvVars(v)
			if err != nil {
				return fmt.Errorf("feeds[%d] (%s): headers[%s]: %w", i, f.Name, k, err)
			}
			f.Headers[k] = expanded
		}

		if f.Method != "" && f.Method != "GET" && f.Method != "HEAD" && f.Method != "POST" {
			return fmt.Errorf("feeds[%d] (%s): method must be GET, HEAD, or POST", i, f.Name)
		}

		if err := validateTiming(f.Timeout, f.Interval, fmt.Sprintf("feeds[%d] (%s)", i, f.Name)); err != nil {
			return err
		}

		if err := validateProbe(&f.Probe, fmt.Sprintf("feeds[%d] (%s)", i, f.Name)); err != nil {
			return err
		}
	}

	for i := range c.MeetingFeeds {
		mf := &c.MeetingFeeds[i]

		if mf.Name == "" {
			return fmt.Errorf("meeting_feeds[%d]: name is required", i)
		}

		if mf.URLTemplate == "" {
			return fmt.Errorf("meeting_feeds[%d] (%s): url_template is required", i, mf.Name)
		}
		expanded, err := expandEnvVars(mf.URLTemplate)
		if err != nil {
			return fmt.Errorf("meeting_feeds[%d] (%s): url_template: %w", i, mf.Name, err)
		}
		mf.URLTemplate = expanded

		// fail fast before the SDK tries to use an invalid template
		if _, err := template.New("").Parse(mf.URLTemplate); err != nil {
			return fmt.Errorf("meeting_feeds[%d] (%s): invalid url_template: %w", i, mf.Name, err)
		}

		if len(mf.Meetings) == 0 {
			return fmt.Errorf("meeting_feeds[%d] (%s): at least one meeting is required", i, mf.Name)
		}
		seen := make(map[string]struct{}, len(mf.Meetings))
		for _, m := range mf.Meetings {
			if m == "" {
				return fmt.Errorf("meeting_feeds[%d] (%s): meeting codes must not be empty", i, mf.Name)
			}
			if _, exists := seen[m]; exists {
				return fmt.Errorf("meeting_feeds[%d] (%s): duplicate meeting %q", i, mf.Name, m)
			}
			seen[m] = struct{}{}
		}

		for k, v := range mf.Headers {
			expanded, err := expandEnvVars(v)
			if err != nil {
				return fmt.Errorf("meeting_feeds[%d] (%s): headers[%s]: %w", i, mf.Name, k, err)
			}
			mf.Headers[k] = expanded
		}

		if mf.Method != "" && mf.Method != "GET" && mf.Method != "HEAD" && mf.Method != "POST" {
			return fmt.Errorf("meeting_feeds[%d] (%s): method must be GET, HEAD, or POST", i, mf.Name)
		}

		if err := validateTiming(mf.Timeout, mf.Interval, fmt.Sprintf("meeting_feeds[%d] (%s)", i, mf.Name)); err != nil {
			return err
		}

		if err := validateProbe(&mf.Probe, fmt.Sprintf("meeting_feeds[%d] (%s)", i, mf.Name)); err != nil {
			return err
		}
	}

	if len(c.Feeds) == 0 && len(c.MeetingFeeds) == 0 {
		return errors.New("at least one feed or meeting feed must be defined")
	}

	return nil
}

// validateURL checks that a URL parses and carries an http(s) scheme.
func validateURL(raw string) error {
	parsed, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid url: %w", err)
	}
	if parsed.Scheme == "" {
		return errors.New("url must have a scheme (http:// or https://)")
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("url scheme must be http or https, got %q", parsed.Scheme)
	}
	return nil
}

// validateTiming checks the shared timeout and interval constraints.
func validateTiming(timeout, interval Duration, context string) error {
	if timeout != 0 {
		if timeout.Duration() < 0 {
			return fmt.Errorf("%s: timeout cannot be negative, got %s", context, timeout.Duration())
		}
		if timeout.Duration() < time.Second {
			return fmt.Errorf("%s: timeout must be at least 1s if specified, got %s", context, timeout.Duration())
		}
	}

	if interval != 0 {
		if interval.Duration() < time.Second {
			return fmt.Errorf("%s: interval must be at least 1s, got %s", context, interval.Duration())
		}
		if interval.Duration() > time.Hour {
			return fmt.Errorf("%s: interval must not exceed 1h, got %s", context, interval.Duration())
		}
	}

	return nil
}

// validateProbe validates a probe configuration.
func validateProbe(p *ProbeConfig, context string) error {
	if p.Type == "" {
		return nil // empty means default, which is valid
	}

	switch p.Type {
	case "default", "http":
		// no additional validation needed
	case "json":
		if p.Path == "" {
			return fmt.Errorf("%s: probe type 'json' requires a path", context)
		}
	case "freshness":
		if p.Path == "" {
			return fmt.Errorf("%s: probe type 'freshness' requires a path", context)
		}
		if p.MaxAge.Duration() <= 0 {
			return fmt.Errorf("%s: probe type 'freshness' requires a positive max_age", context)
		}
	default:
		return fmt.Errorf("%s: unknown probe type %q", context, p.Type)
	}

	return nil
}
