package config

import (
	"testing"
	"time"

	"github.com/WarrickSmith/raceday"
)

func parseConfig(t *testing.T, yaml string) *Config {
	t.Helper()
	cfg, err := Parse([]byte(yaml))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	return cfg
}

func TestBuildFeeds_DirectFeeds(t *testing.T) {
	cfg := parseConfig(t, `
feeds:
  - name: NZ Harness
    url: https://api.example.com/meetings/nz-harness/card
    method: HEAD
    timeout: 5s
    interval: 10s
    headers:
      X-Api-Key: secret
    labels:
      country: NZ
`)

	feeds, err := BuildFeeds(cfg)
	if err != nil {
		t.Fatalf("BuildFeeds() error = %v", err)
	}
	if len(feeds) != 1 {
		t.Fatalf("BuildFeeds() returned %d feeds, want 1", len(feeds))
	}

	f := feeds[0]
	if f.Name() != "NZ Harness" {
		t.Errorf("Name() = %q, want NZ Harness", f.Name())
	}
	if f.Method() != "HEAD" {
		t.Errorf("Method() = %q, want HEAD", f.Method())
	}
	if f.Timeout() != 5*time.Second {
		t.Errorf("Timeout() = %v, want 5s", f.Timeout())
	}
	if f.Interval() != 10*time.Second {
		t.Errorf("Interval() = %v, want 10s", f.Interval())
	}
	if f.Headers()["X-Api-Key"] != "secret" {
		t.Errorf("Headers()[X-Api-Key] = %q, want secret", f.Headers()["X-Api-Key"])
	}
	if f.Labels()["country"] != "NZ" {
		t.Errorf("Labels()[country] = %q, want NZ", f.Labels()["country"])
	}
}

func TestBuildFeeds_MeetingFeeds(t *testing.T) {
	cfg := parseConfig(t, `
meeting_feeds:
  - name: Metro
    url_template: "https://api.example.com/meetings/{{.meeting}}/card"
    meetings: [randwick, flemington]
    labels:
      country: AU
`)

	feeds, err := BuildFeeds(cfg)
	if err != nil {
		t.Fatalf("BuildFeeds() error = %v", err)
	}
	if len(feeds) != 2 {
		t.Fatalf("BuildFeeds() returned %d feeds, want 2", len(feeds))
	}

	// meeting codes are expanded in sorted order
	if feeds[0].Name() != "Metro flemington" {
		t.Errorf("feeds[0].Name() = %q, want Metro flemington", feeds[0].Name())
	}
	if feeds[0].URL() != "https://api.example.com/meetings/flemington/card" {
		t.Errorf("feeds[0].URL() = %q", feeds[0].URL())
	}
	if feeds[0].Labels()["meeting"] != "flemington" {
		t.Errorf("Labels()[meeting] = %q, want flemington", feeds[0].Labels()["meeting"])
	}
	if feeds[0].Labels()["country"] != "AU" {
		t.Errorf("Labels()[country] = %q, want AU", feeds[0].Labels()["country"])
	}
	if feeds[1].Name() != "Metro randwick" {
		t.Errorf("feeds[1].Name() = %q, want Metro randwick", feeds[1].Name())
	}
}

func TestBuildFeeds_Combined(t *testing.T) {
	cfg := parseConfig(t, `
feeds:
  - name: NZ Harness
    url: https://api.example.com/meetings/nz-harness/card
meeting_feeds:
  - name: Metro
    url_template: "https://api.example.com/meetings/{{.meeting}}/card"
    meetings: [flemington, randwick]
`)

	feeds, err := BuildFeeds(cfg)
	if err != nil {
		t.Fatalf("BuildFeeds() error = %v", err)
	}
	if len(feeds) != 3 {
		t.Errorf("BuildFeeds() returned %d feeds, want 3", len(feeds))
	}
}

func TestBuildFeeds_ProbeMapping(t *testing.T) {
	tests := []struct {
		name       string
		probe      string
		body       string
		statusCode int
		wantNil    bool
		want       raceday.Health
	}{
		{"default is nil probe", "default", "", 0, true, ""},
		{"http probe", "http", `{"status": "down"}`, 200, false, raceday.HealthOK},
		{"json probe", "json:status", `{"status": "delayed"}`, 200, false, raceday.HealthDegraded},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := parseConfig(t, `
feeds:
  - name: Test
    url: https://api.example.com/card
    probe: "`+tt.probe+`"
`)
			feeds, err := BuildFeeds(cfg)
			if err != nil {
				t.Fatalf("BuildFeeds() error = %v", err)
			}

			probe := feeds[0].Probe()
			if tt.wantNil {
				if probe != nil {
					t.Error("Probe() should be nil so the SDK applies its default")
				}
				return
			}
			if probe == nil {
				t.Fatal("Probe() = nil, want a configured probe")
			}
			if got := probe([]byte(tt.body), tt.statusCode); got != tt.want {
				t.Errorf("probe(%s, %d) = %v, want %v", tt.body, tt.statusCode, got, tt.want)
			}
		})
	}
}

func TestBuildFeeds_FreshnessProbe(t *testing.T) {
	cfg := parseConfig(t, `
feeds:
  - name: Test
    url: https://api.example.com/card
    probe: freshness:generated_at:90s
`)
	feeds, err := BuildFeeds(cfg)
	if err != nil {
		t.Fatalf("BuildFeeds() error = %v", err)
	}

	probe := feeds[0].Probe()
	if probe == nil {
		t.Fatal("Probe() = nil, want a freshness probe")
	}

	fresh := `{"generated_at": "` + time.Now().Format(time.RFC3339) + `"}`
	if got := probe([]byte(fresh), 200); got != raceday.HealthOK {
		t.Errorf("probe(fresh card) = %v, want %v", got, raceday.HealthOK)
	}

	stale := `{"generated_at": "` + time.Now().Add(-10*time.Minute).Format(time.RFC3339) + `"}`
	if got := probe([]byte(stale), 200); got != raceday.HealthDegraded {
		t.Errorf("probe(stale card) = %v, want %v", got, raceday.HealthDegraded)
	}
}

func TestBoardOptions(t *testing.T) {
	cfg := parseConfig(t, `
title: Spring Carnival
port: 9090
poll_interval: 15s
feeds:
  - name: Test
    url: https://api.example.com/card
`)

	opts, err := BoardOptions(cfg)
	if err != nil {
		t.Fatalf("BoardOptions() error = %v", err)
	}

	board, err := raceday.New(opts...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if board.Port() != 9090 {
		t.Errorf("Port() = %d, want 9090", board.Port())
	}
	if board.PollingInterval() != 15*time.Second {
		t.Errorf("PollingInterval() = %v, want 15s", board.PollingInterval())
	}
	if len(board.Feeds()) != 1 {
		t.Errorf("Feeds() returned %d feeds, want 1", len(board.Feeds()))
	}
}

// TestBoardOptions_PartialCacheConfig verifies that a cache block with only
// one field set still produces a usable board: "Zero uses the default"
// applies per field, not to the block as a whole.
func TestBoardOptions_PartialCacheConfig(t *testing.T) {
	tests := []struct {
		name  string
		cache string
	}{
		{"fresh_for only", "cache:\n  fresh_for: 30s"},
		{"size only", "cache:\n  size: 64"},
		{"both fields", "cache:\n  size: 64\n  fresh_for: 30s"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := parseConfig(t, tt.cache+`
feeds:
  - name: Test
    url: https://api.example.com/card
`)

			opts, err := BoardOptions(cfg)
			if err != nil {
				t.Fatalf("BoardOptions() error = %v", err)
			}

			if _, err := raceday.New(opts...); err != nil {
				t.Errorf("New() error = %v, want a valid board from a partial cache block", err)
			}
		})
	}
}

func TestBoardOptions_DuplicateExpandedNames(t *testing.T) {
	// two sets expanding to the same feed name must be rejected by New
	cfg := parseConfig(t, `
meeting_feeds:
  - name: Metro
    url_template: "https://a.example.com/{{.meeting}}"
    meetings: [flemington]
feeds:
  - name: Metro flemington
    url: https://b.example.com/card
`)

	opts, err := BoardOptions(cfg)
	if err != nil {
		t.Fatalf("BoardOptions() error = %v", err)
	}

	if _, err := raceday.New(opts...); err == nil {
		t.Error("New() expected error for duplicate feed names, got nil")
	}
}
