// Package mockapi serves a tiny in-memory racing API for the demos.
package mockapi

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"strings"
	"sync"
	"time"
)

// mockMeeting is a generated meeting with a handful of races whose status
// advances over time.
type mockMeeting struct {
	id       string
	name     string
	category string
	races    int
}

var mockMeetings = []mockMeeting{
	{id: "NZ-AUK", name: "Auckland", category: "thoroughbred", races: 4},
	{id: "NZ-CHC", name: "Christchurch", category: "harness", races: 3},
}

// Start runs a mock racing API on addr.
//
// It serves race cards at /meetings/{code}/card and full race contexts at
// /races/{id}. Races start at staggered times from server start; each race
// moves open -> closed -> interim -> final as its start time passes, and
// pool totals grow while betting is open.
// Call this in a goroutine before creating raceday feeds.
func Start(addr string) {
	startedAt := time.Now()
	var mu sync.Mutex

	mux := http.NewServeMux()
	mux.HandleFunc("GET /meetings/{code}/card", func(w http.ResponseWriter, r *http.Request) {
		code := r.PathValue("code")
		m, ok := findMeeting(code)
		if !ok {
			http.NotFound(w, r)
			return
		}

		// simulate small latency variance
		time.Sleep(time.Duration(30+rand.Intn(120)) * time.Millisecond)

		mu.Lock()
		card := buildCard(m, startedAt)
		mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(card); err != nil {
			slog.Error("failed to write card response", "error", err)
		}
	})

	mux.HandleFunc("GET /races/{id}", func(w http.ResponseWriter, r *http.Request) {
		raceID := r.PathValue("id")

		for _, m := range mockMeetings {
			if !strings.HasPrefix(raceID, m.id+"-R") {
				continue
			}
			mu.Lock()
			card := buildCard(m, startedAt)
			mu.Unlock()
			for i, race := range card["races"].([]map[string]any) {
				if race["id"] == raceID {
					writeRaceContext(w, card, i)
					return
				}
			}
		}
		http.NotFound(w, r)
	})

	if err := http.ListenAndServe(addr, mux); err != nil {
		slog.Error("mock server error", "error", err)
	}
}

func findMeeting(code string) (mockMeeting, bool) {
	for _, m := range mockMeetings {
		if m.id == code {
			return m, true
		}
	}
	return mockMeeting{}, false
}

// buildCard assembles the race card for a meeting. Races go off every two
// minutes starting one minute after server start.
func buildCard(m mockMeeting, startedAt time.Time) map[string]any {
	now := time.Now()
	races := make([]map[string]any, 0, m.races)

	for i := 1; i <= m.races; i++ {
		start := startedAt.Add(time.Duration(i*2-1) * time.Minute)
		status := raceStatus(start, now)

		race := map[string]any{
			"id":               fmt.Sprintf("%s-R%d", m.id, i),
			"meeting_id":       m.id,
			"number":           i,
			"name":             fmt.Sprintf("%s Race %d", m.name, i),
			"status":           status,
			"advertised_start": start.Format(time.RFC3339),
			"entrants":         buildEntrants(m.id, i),
			"pools":            buildPools(start, now),
		}
		if status == "interim" || status == "final" {
			race["results"] = buildResults(m.id, i, status)
		}
		races = append(races, race)
	}

	return map[string]any{
		"meeting": map[string]any{
			"id":       m.id,
			"name":     m.name,
			"country":  "NZ",
			"category": m.category,
			"date":     now.Format("2006-01-02"),
		},
		"races":        races,
		"generated_at": now.Format(time.RFC3339),
	}
}

func raceStatus(start, now time.Time) string {
	switch {
	case now.Before(start):
		return "open"
	case now.Before(start.Add(90 * time.Second)):
		return "closed"
	case now.Before(start.Add(3 * time.Minute)):
		return "interim"
	default:
		return "final"
	}
}

func buildEntrants(meetingID string, raceNum int) []map[string]any {
	entrants := make([]map[string]any, 0, 6)
	for n := 1; n <= 6; n++ {
		entrants = append(entrants, map[string]any{
			"id":         fmt.Sprintf("%s-R%d-E%d", meetingID, raceNum, n),
			"number":     n,
			"name":       fmt.Sprintf("Runner %d", n),
			"rider":      fmt.Sprintf("Rider %d", n),
			"scratched":  n == 5 && raceNum%2 == 0,
			"win_odds":   1.5 + rand.Float64()*12,
			"place_odds": 1.1 + rand.Float64()*3,
		})
	}
	return entrants
}

// buildPools grows pool totals while betting is open and freezes them once
// the race closes.
func buildPools(start, now time.Time) map[string]any {
	cutoff := now
	if !cutoff.Before(start) {
		cutoff = start
	}
	elapsed := cutoff.Sub(start.Add(-10 * time.Minute))
	if elapsed < 0 {
		elapsed = 0
	}
	base := int64(elapsed / time.Second)

	return map[string]any{
		"win_total":      150_000 + base*420,
		"place_total":    90_000 + base*250,
		"quinella_total": 40_000 + base*110,
		"trifecta_total": 25_000 + base*60,
		"currency":       "NZD",
	}
}

func buildResults(meetingID string, raceNum int, status string) map[string]any {
	// deterministic places so repeat polls agree
	first := (raceNum % 6) + 1
	second := (raceNum+1)%6 + 1
	third := (raceNum+2)%6 + 1

	return map[string]any{
		"status": status,
		"placings": []map[string]any{
			{"position": 1, "entrant_id": fmt.Sprintf("%s-R%d-E%d", meetingID, raceNum, first), "dividend": 4.20},
			{"position": 2, "entrant_id": fmt.Sprintf("%s-R%d-E%d", meetingID, raceNum, second), "dividend": 1.80},
			{"position": 3, "entrant_id": fmt.Sprintf("%s-R%d-E%d", meetingID, raceNum, third), "dividend": 1.40},
		},
	}
}

// writeRaceContext projects a card race into the /races/{id} payload shape.
func writeRaceContext(w http.ResponseWriter, card map[string]any, raceIdx int) {
	races := card["races"].([]map[string]any)
	race := races[raceIdx]

	nav := map[string]any{}
	if raceIdx > 0 {
		nav["previous_race_id"] = races[raceIdx-1]["id"]
	}
	if raceIdx < len(races)-1 {
		nav["next_race_id"] = races[raceIdx+1]["id"]
	}

	resp := map[string]any{
		"race":         race,
		"meeting":      card["meeting"],
		"entrants":     race["entrants"],
		"pools":        race["pools"],
		"navigation":   nav,
		"generated_at": card["generated_at"],
	}
	if results, ok := race["results"]; ok {
		resp["results"] = results
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to write race context", "error", err)
	}
}
