package raceday

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// HTTPStatusProbe is a [Probe] that determines feed health from the HTTP
// status code alone, ignoring the response body.
//
// Health mapping:
//   - 2xx (200-299): [HealthOK]
//   - 4xx (400-499): [HealthDegraded]
//   - All other codes: [HealthDown]
//
// This is useful for feeds without a structured payload envelope.
var HTTPStatusProbe Probe = func(body []byte, statusCode int) Health {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return HealthOK
	case statusCode >= 400 && statusCode < 500:
		return HealthDegraded
	default:
		return HealthDown
	}
}

// JSONFieldProbe returns a [Probe] that reads feed health from a JSON
// field using dot notation to navigate nested objects.
//
// The path parameter specifies the field to extract. For example,
// "meta.status" navigates to {"meta": {"status": "ok"}}.
//
// The extracted value is mapped to a [Health] using common conventions:
//   - [HealthOK]: "ok", "healthy", "up", "active", "live", "open", "true", "operational"
//   - [HealthDegraded]: "degraded", "warning", "partial", "delayed", "stale"
//   - [HealthDown]: any other value
//   - [HealthUnknown]: if JSON parsing fails or the field doesn't exist
//
// Boolean and numeric values are converted: true/1 becomes "true",
// false/0 becomes "false".
func JSONFieldProbe(path string) Probe {
	parts := strings.Split(path, ".")

	return func(body []byte, statusCode int) Health {
		var data interface{}
		if err := json.Unmarshal(body, &data); err != nil {
			return HealthUnknown
		}

		value := walkJSONPath(data, parts)
		if value == "" {
			return HealthUnknown
		}

		return healthFromString(strings.ToLower(value))
	}
}

// FreshnessProbe returns a [Probe] that classifies a race-card payload by
// the age of its generation timestamp.
//
// The path parameter locates an RFC 3339 timestamp in the payload using
// dot notation (e.g., "generated_at" or "meta.generated_at"). A payload
// older than maxAge is reported as [HealthDegraded]: the feed is reachable
// but serving stale race data. A missing or unparseable timestamp yields
// [HealthUnknown]. Non-2xx responses are delegated to [HTTPStatusProbe]
// since a failing feed has no freshness to speak of.
//
// Example:
//
//	// Degraded when the card is more than 90 seconds old.
//	probe := raceday.FreshnessProbe("generated_at", 90*time.Second)
func FreshnessProbe(path string, maxAge time.Duration) Probe {
	parts := strings.Split(path, ".")

	return func(body []byte, statusCode int) Health {
		if statusCode < 200 || statusCode >= 300 {
			return HTTPStatusProbe(body, statusCode)
		}

		var data interface{}
		if err := json.Unmarshal(body, &data); err != nil {
			return HealthUnknown
		}

		raw := walkJSONPath(data, parts)
		if raw == "" {
			return HealthUnknown
		}

		generatedAt, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return HealthUnknown
		}

		if time.Since(generatedAt) > maxAge {
			return HealthDegraded
		}
		return HealthOK
	}
}

// walkJSONPath walks a JSON structure using dot notation parts.
func walkJSONPath(data interface{}, parts []string) string {
	current := data

	for _, part := range parts {
		obj, ok := current.(map[string]interface{})
		if !ok {
			return ""
		}
		current, ok = obj[part]
		if !ok {
			return ""
		}
	}

	switch v := current.(type) {
	case string:
		return v
	case bool:
		if v {
			return "true"
		}
		return "false"
	case float64:
		if v == 0 {
			return "false"
		}
		if v == 1 {
			return "true"
		}
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return ""
	}
}

// healthFromString maps common status strings to Health values.
func healthFromString(s string) Health {
	switch s {
	case "ok", "healthy", "up", "active", "live", "open", "true", "operational":
		return HealthOK
	case "degraded", "warning", "partial", "delayed", "stale":
		return HealthDegraded
	default:
		return HealthDown
	}
}

// FirstProbe returns a [Probe] that tries multiple probes in order,
// returning the first result that is not [HealthUnknown].
//
// This is useful for composing probes with fallback behavior. Each probe
// is tried in sequence until one returns a conclusive health value.
//
// If all probes return [HealthUnknown], FirstProbe returns [HealthUnknown].
//
// Example:
//
//	// Check payload freshness first, fall back to the HTTP status code.
//	probe := raceday.FirstProbe(
//	    raceday.FreshnessProbe("generated_at", time.Minute),
//	    raceday.HTTPStatusProbe,
//	)
func FirstProbe(probes ...Probe) Probe {
	return func(body []byte, statusCode int) Health {
		for _, probe := range probes {
			health := probe(body, statusCode)
			if health != HealthUnknown {
				return health
			}
		}
		return HealthUnknown
	}
}

// DefaultProbe is the [Probe] used when no probe is specified on a [Feed].
//
// DefaultProbe uses [FirstProbe] to try:
//  1. [JSONFieldProbe] with path "status" (for payloads with a status envelope)
//  2. [HTTPStatusProbe] (falls back to the HTTP status code)
var DefaultProbe = FirstProbe(
	JSONFieldProbe("status"),
	HTTPStatusProbe,
)
