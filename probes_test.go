package raceday

import (
	"fmt"
	"testing"
	"time"
)

func TestHTTPStatusProbe(t *testing.T) {
	tests := []struct {
		statusCode int
		want       Health
	}{
		{200, HealthOK},
		{204, HealthOK},
		{299, HealthOK},
		{301, HealthDown},
		{400, HealthDegraded},
		{404, HealthDegraded},
		{429, HealthDegraded},
		{500, HealthDown},
		{503, HealthDown},
		{0, HealthDown},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("status %d", tt.statusCode), func(t *testing.T) {
			got := HTTPStatusProbe(nil, tt.statusCode)
			if got != tt.want {
				t.Errorf("HTTPStatusProbe(nil, %d) = %v, want %v", tt.statusCode, got, tt.want)
			}
		})
	}
}

func TestJSONFieldProbe(t *testing.T) {
	tests := []struct {
		name string
		body string
		path string
		want Health
	}{
		{"top-level ok", `{"status": "ok"}`, "status", HealthOK},
		{"top-level open", `{"status": "open"}`, "status", HealthOK},
		{"nested path", `{"meta": {"status": "healthy"}}`, "meta.status", HealthOK},
		{"degraded", `{"status": "delayed"}`, "status", HealthDegraded},
		{"stale", `{"status": "stale"}`, "status", HealthDegraded},
		{"down", `{"status": "offline"}`, "status", HealthDown},
		{"boolean true", `{"live": true}`, "live", HealthOK},
		{"boolean false", `{"live": false}`, "live", HealthDown},
		{"numeric one", `{"live": 1}`, "live", HealthOK},
		{"missing field", `{"other": "ok"}`, "status", HealthUnknown},
		{"missing nested", `{"meta": {}}`, "meta.status", HealthUnknown},
		{"not an object", `["ok"]`, "status", HealthUnknown},
		{"invalid json", `{status`, "status", HealthUnknown},
		{"case insensitive", `{"status": "OK"}`, "status", HealthOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			probe := JSONFieldProbe(tt.path)
			got := probe([]byte(tt.body), 200)
			if got != tt.want {
				t.Errorf("JSONFieldProbe(%q)(%s) = %v, want %v", tt.path, tt.body, got, tt.want)
			}
		})
	}
}

func TestFreshnessProbe(t *testing.T) {
	fresh := time.Now().Add(-30 * time.Second).Format(time.RFC3339)
	stale := time.Now().Add(-5 * time.Minute).Format(time.RFC3339)

	tests := []struct {
		name       string
		body       string
		statusCode int
		want       Health
	}{
		{"fresh card", `{"generated_at": "` + fresh + `"}`, 200, HealthOK},
		{"stale card", `{"generated_at": "` + stale + `"}`, 200, HealthDegraded},
		{"missing timestamp", `{"status": "ok"}`, 200, HealthUnknown},
		{"unparseable timestamp", `{"generated_at": "yesterday"}`, 200, HealthUnknown},
		{"invalid json", `{`, 200, HealthUnknown},
		{"server error delegates to status", `{"generated_at": "` + fresh + `"}`, 503, HealthDown},
		{"client error delegates to status", ``, 404, HealthDegraded},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			probe := FreshnessProbe("generated_at", 90*time.Second)
			got := probe([]byte(tt.body), tt.statusCode)
			if got != tt.want {
				t.Errorf("FreshnessProbe()(%s, %d) = %v, want %v", tt.body, tt.statusCode, got, tt.want)
			}
		})
	}
}

func TestFreshnessProbe_NestedPath(t *testing.T) {
	fresh := time.Now().Format(time.RFC3339)
	probe := FreshnessProbe("meta.generated_at", time.Minute)

	got := probe([]byte(`{"meta": {"generated_at": "`+fresh+`"}}`), 200)
	if got != HealthOK {
		t.Errorf("FreshnessProbe(meta.generated_at) = %v, want %v", got, HealthOK)
	}
}

func TestFirstProbe(t *testing.T) {
	unknown := Probe(func([]byte, int) Health { return HealthUnknown })
	degraded := Probe(func([]byte, int) Health { return HealthDegraded })
	ok := Probe(func([]byte, int) Health { return HealthOK })

	tests := []struct {
		name   string
		probes []Probe
		want   Health
	}{
		{"first conclusive wins", []Probe{degraded, ok}, HealthDegraded},
		{"skips unknown", []Probe{unknown, ok}, HealthOK},
		{"all unknown", []Probe{unknown, unknown}, HealthUnknown},
		{"no probes", nil, HealthUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FirstProbe(tt.probes...)(nil, 200)
			if got != tt.want {
				t.Errorf("FirstProbe() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDefaultProbe(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		statusCode int
		want       Health
	}{
		{"status envelope wins", `{"status": "degraded"}`, 200, HealthDegraded},
		{"falls back to http status", `{"data": []}`, 200, HealthOK},
		{"http error without envelope", ``, 500, HealthDown},
		{"envelope overrides http success", `{"status": "closed"}`, 200, HealthDown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DefaultProbe([]byte(tt.body), tt.statusCode)
			if got != tt.want {
				t.Errorf("DefaultProbe(%s, %d) = %v, want %v", tt.body, tt.statusCode, got, tt.want)
			}
		})
	}
}
