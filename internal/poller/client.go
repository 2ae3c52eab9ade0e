package poller

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// maxCardBytes caps response bodies. Real race cards run to tens of
// kilobytes; a body past this limit is a misbehaving feed, and a truncated
// card would fail JSON parsing anyway, so oversized responses are rejected
// outright rather than clipped.
const maxCardBytes = 1 << 20

// connection pooling limits to prevent resource exhaustion when polling many feeds
const (
	defaultMaxIdleConns        = 100
	defaultMaxIdleConnsPerHost = 10
	defaultMaxConnsPerHost     = 10
	defaultIdleConnTimeout     = 60 * time.Second
)

// Response holds the outcome of one feed request.
type Response struct {
	// Body contains the race-card payload, at most maxCardBytes.
	Body []byte

	// StatusCode is the HTTP status code (e.g., 200, 404, 500).
	// Zero if the request failed before receiving a response.
	StatusCode int

	// Latency is the total time taken for the request.
	Latency time.Duration

	// Error contains any error that occurred during the request, including
	// an oversized body. nil indicates the request completed (though status
	// may indicate an error).
	Error error
}

// Client is an HTTP client wrapper for polling race-card feeds.
//
// Feeds are JSON APIs, so every request advertises Accept:
// application/json unless a feed header overrides it. Timeouts are applied
// per-request via context rather than globally, letting fast pre-race
// feeds and slow archive feeds share one client.
type Client struct {
	httpClient *http.Client
}

// NewClient creates a new polling [Client].
//
// The client is configured with connection pooling limits to prevent
// resource exhaustion when polling many feeds. Timeouts are applied
// per-request via the context parameter in [Client.Fetch], not as a global
// client timeout.
func NewClient() *Client {
	return &Client{
		httpClient: &http.Client{
			// no default timeout - we use per-request timeouts via context
			Transport: &http.Transport{
				MaxIdleConns:        defaultMaxIdleConns,
				MaxIdleConnsPerHost: defaultMaxIdleConnsPerHost,
				MaxConnsPerHost:     defaultMaxConnsPerHost,
				IdleConnTimeout:     defaultIdleConnTimeout,
				DisableKeepAlives:   false,
			},
		},
	}
}

// Fetch requests a race card and returns a structured [Response].
//
// If method is empty, GET is used. The feed's headers are applied after the
// default Accept header, so a feed may override it. A body larger than
// maxCardBytes is reported as an error, not silently truncated.
//
// Fetch always returns a Response; errors are captured in the Error field
// rather than returned separately. This simplifies handling in the
// scheduler, where a failed poll is a result like any other.
func (c *Client) Fetch(ctx context.Context, method, url string, headers map[string]string, timeout time.Duration) Response {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()

	if method == "" {
		method = http.MethodGet
	}

	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return Response{
			Latency: time.Since(start),
			Error:   fmt.Errorf("failed to create request: %w", err),
		}
	}

	req.Header.Set("Accept", "application/json")
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Response{
			Latency: time.Since(start),
			Error:   fmt.Errorf("request failed: %w", err),
		}
	}
	defer func() { _ = resp.Body.Close() }()

	// read one byte past the cap so an oversized card is detectable
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxCardBytes+1))
	if err != nil {
		return Response{
			StatusCode: resp.StatusCode,
			Latency:    time.Since(start),
			Error:      fmt.Errorf("failed to read response body: %w", err),
		}
	}
	if len(body) > maxCardBytes {
		return Response{
			StatusCode: resp.StatusCode,
			Latency:    time.Since(start),
			Error:      fmt.Errorf("response body exceeds %d byte limit", maxCardBytes),
		}
	}

	return Response{
		Body:       body,
		StatusCode: resp.StatusCode,
		Latency:    time.Since(start),
		Error:      nil,
	}
}

// Close closes all idle connections in the client's connection pool.
//
// Safe to call multiple times. After Close, the client remains usable but
// new connections will be established as needed.
func (c *Client) Close() {
	if c == nil || c.httpClient == nil {
		return
	}
	if transport, ok := c.httpClient.Transport.(*http.Transport); ok {
		transport.CloseIdleConnections()
	}
}
