package server

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/WarrickSmith/raceday/internal/display"
	"github.com/WarrickSmith/raceday/internal/health"
	"github.com/WarrickSmith/raceday/internal/raceapi"
	"github.com/WarrickSmith/raceday/internal/store"
)

const (
	// sseWriteTimeout is the maximum time allowed for a single SSE write
	// operation. This prevents goroutine leaks when clients are slow or
	// disconnected. Must be <= shutdown timeout to ensure clean shutdown.
	sseWriteTimeout = 5 * time.Second

	// defaultTitle is used when no custom title is configured.
	defaultTitle = "Race Day"

	// titlePlaceholder is the marker in HTML that gets replaced with the
	// actual title.
	titlePlaceholder = "{{.Title}}"
)

// RaceLister serves the races of a meeting, ordered by race number.
// Implemented by the embedded document database.
type RaceLister interface {
	RacesForMeeting(meetingID string) ([]raceapi.Race, error)
}

// ContextLoader serves full race-context payloads by race ID.
// Implemented by the single-flight loader.
type ContextLoader interface {
	Load(ctx context.Context, raceID string) (*raceapi.RaceContext, error)
	LastError(raceID string) string
}

// SnapshotSource serves polling-health snapshots.
// Implemented by the health recorder.
type SnapshotSource interface {
	Snapshot() health.Snapshot
}

// Server handles HTTP requests for the raceday dashboard and API.
//
// Server provides these endpoints:
//   - GET /: Serves the embedded dashboard HTML
//   - GET /api/status: Current race summaries as JSON
//   - GET /api/races/{id}: Full race context via the single-flight loader
//   - GET /api/meetings/{id}/races: Races of a meeting from the database
//   - GET /api/health/polling: Polling-health snapshot with rendered tables
//   - GET /api/sse: Server-Sent Events stream of race updates
//
// The server is designed for graceful shutdown via context cancellation.
type Server struct {
	store      store.Store
	races      RaceLister
	loader     ContextLoader
	healthSrc  SnapshotSource
	port       int
	httpServer *http.Server
	assets     fs.FS
	title      string
	logger     *slog.Logger
}

// NewServer creates a new HTTP [Server].
//
// races, loader, and healthSrc may be nil; the corresponding endpoints
// then respond with 503 Service Unavailable. The server is not started
// until [Server.Start] is called.
func NewServer(st store.Store, races RaceLister, loader ContextLoader, healthSrc SnapshotSource, port int, assets fs.FS, title string, logger *slog.Logger) *Server {
	return &Server{
		store:     st,
		races:     races,
		loader:    loader,
		healthSrc: healthSrc,
		port:      port,
		assets:    assets,
		title:     title,
		logger:    logger,
	}
}

// Start begins serving HTTP requests in a background goroutine.
//
// Start is non-blocking and returns immediately after confirming the
// server is listening. The server will continue running until the context
// is cancelled, at which point it initiates a graceful shutdown with a
// 5-second timeout.
//
// Returns an error if the server fails to bind to the configured port.
func (s *Server) Start(ctx context.Context) error {
	mux := http.NewServeMux()

	// API routes
	mux.HandleFunc("GET /api/status", s.handleStatus)
	mux.HandleFunc("GET /api/races/{id}", s.handleRaceContext)
	mux.HandleFunc("GET /api/meetings/{id}/races", s.handleMeetingRaces)
	mux.HandleFunc("GET /api/health/polling", s.handlePollingHealth)
	mux.HandleFunc("GET /api/sse", s.handleSSE)

	// serve dashboard assets
	if s.assets != nil {
		mux.HandleFunc("/", s.handleDashboard)
	}

	// create listener first to verify port availability synchronously
	addr := fmt.Sprintf(":%d", s.port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to bind to port %d: %w", s.port, err)
	}

	s.httpServer = &http.Server{
		Handler: mux,
		// BaseContext derives all request contexts from the server context.
		// When ctx is cancelled, all request contexts are also cancelled,
		// enabling graceful shutdown of long-running handlers like SSE.
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	go func() {
		if err := s.httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.logger.Error("http server error", "error", err)
		}
	}()

	// shutdown on context cancellation
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("http server shutdown error", "error", err)
		}
	}()

	return nil
}

// handleDashboard serves the main dashboard page.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	if s.assets == nil {
		http.Error(w, "Dashboard not found", http.StatusInternalServerError)
		return
	}

	content, err := fs.ReadFile(s.assets, "assets/index.html")
	if err != nil {
		http.Error(w, "Dashboard not found", http.StatusInternalServerError)
		return
	}

	// apply title substitution with HTML escaping to prevent XSS
	title := s.title
	if title == "" {
		title = defaultTitle
	}
	safeTitle := html.EscapeString(title)
	rendered := strings.ReplaceAll(string(content), titlePlaceholder, safeTitle)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err = w.Write([]byte(rendered)); err != nil {
		s.logger.Error("failed to write dashboard response", "error", err)
	}
}

// handleStatus returns all current race summaries as JSON.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	summaries := s.store.GetAll()

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")

	if err := json.NewEncoder(w).Encode(summaries); err != nil {
		s.logger.Error("failed to encode status response", "error", err)
	}
}

// handleRaceContext returns the full race context for a race ID.
//
// Load failures surface as JSON error payloads with the loader's
// human-readable message; every concurrent request for the same race
// observes the same outcome.
func (s *Server) handleRaceContext(w http.ResponseWriter, r *http.Request) {
	if s.loader == nil {
		s.writeError(w, http.StatusServiceUnavailable, "race loading is not configured")
		return
	}

	raceID := r.PathValue("id")
	if raceID == "" {
		s.writeError(w, http.StatusBadRequest, "race id is required")
		return
	}

	rc, err := s.loader.Load(r.Context(), raceID)
	if err != nil {
		s.writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	if err := json.NewEncoder(w).Encode(rc); err != nil {
		s.logger.Error("failed to encode race context", "race_id", raceID, "error", err)
	}
}

// handleMeetingRaces returns the races of a meeting ordered by race number.
func (s *Server) handleMeetingRaces(w http.ResponseWriter, r *http.Request) {
	if s.races == nil {
		s.writeError(w, http.StatusServiceUnavailable, "race database is not configured")
		return
	}

	meetingID := r.PathValue("id")
	if meetingID == "" {
		s.writeError(w, http.StatusBadRequest, "meeting id is required")
		return
	}

	races, err := s.races.RacesForMeeting(meetingID)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(races); err != nil {
		s.logger.Error("failed to encode meeting races", "meeting_id", meetingID, "error", err)
	}
}

// pollingHealthResponse is the payload of the developer monitor endpoint:
// the raw snapshot plus pre-rendered table rows.
type pollingHealthResponse struct {
	Snapshot        health.Snapshot `json:"snapshot"`
	FeedHeader      []string        `json:"feed_header"`
	FeedRows        [][]string      `json:"feed_rows"`
	ErrorRateHeader []string        `json:"error_rate_header"`
	ErrorRateRows   [][]string      `json:"error_rate_rows"`
}

// handlePollingHealth returns the polling-health snapshot with rendered
// monitor tables.
func (s *Server) handlePollingHealth(w http.ResponseWriter, r *http.Request) {
	if s.healthSrc == nil {
		s.writeError(w, http.StatusServiceUnavailable, "polling health is not configured")
		return
	}

	snap := s.healthSrc.Snapshot()
	resp := pollingHealthResponse{
		Snapshot:        snap,
		FeedHeader:      display.FeedTableHeader,
		FeedRows:        display.FeedRows(snap),
		ErrorRateHeader: display.ErrorRateTableHeader,
		ErrorRateRows:   display.ErrorRateRows(snap),
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.logger.Error("failed to encode polling health response", "error", err)
	}
}

// writeError writes a JSON error payload.
func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(map[string]string{"error": message}); err != nil {
		s.logger.Error("failed to encode error response", "error", err)
	}
}

// handleSSE streams race updates via Server-Sent Events.
//
// The handler uses write deadlines to prevent goroutine leaks when clients
// are slow or disconnected. Without deadlines, a blocked Fprintf call
// would prevent the handler from detecting context cancellation or channel
// closure.
func (s *Server) handleSSE(w http.ResponseWriter, r *http.Request) {
	// check if flushing is supported
	if _, ok := w.(http.Flusher); !ok {
		http.Error(w, "SSE not supported", http.StatusInternalServerError)
		return
	}

	// ResponseController provides deadline-aware write and flush operations.
	rc := http.NewResponseController(w)

	// track if write deadlines are supported (may not be for some
	// ResponseWriter impls)
	deadlinesSupported := true

	// writeAndFlush writes SSE data with a deadline to prevent blocking
	// forever. If the client is slow or disconnected, the write will
	// timeout rather than blocking indefinitely, allowing the handler to
	// detect shutdown signals.
	writeAndFlush := func(data []byte) error {
		if deadlinesSupported {
			if err := rc.SetWriteDeadline(time.Now().Add(sseWriteTimeout)); err != nil {
				// deadline not supported by underlying connection, continue without
				s.logger.Warn("sse write deadlines not supported", "error", err)
				deadlinesSupported = false
			}
		}

		if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
			return err
		}

		// ResponseController.Flush respects the write deadline
		return rc.Flush()
	}

	// set SSE headers
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	// subscribe to store updates
	ch := s.store.Subscribe()
	defer s.store.Unsubscribe(ch)

	// send current race card first (also protected by write deadline)
	for _, summary := range s.store.GetAll() {
		data, err := json.Marshal(summary)
		if err != nil {
			continue
		}
		if err := writeAndFlush(data); err != nil {
			return
		}
	}

	// stream updates
	for {
		select {
		case summary, ok := <-ch:
			if !ok {
				return
			}
			data, err := json.Marshal(summary)
			if err != nil {
				continue
			}
			if err := writeAndFlush(data); err != nil {
				return
			}

		case <-r.Context().Done():
			// request context is derived from server context via BaseContext,
			// so this fires on both client disconnect AND server shutdown
			return
		}
	}
}
