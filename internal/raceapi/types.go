package raceapi

import (
	"encoding/json"
	"errors"
	"time"
)

// Race status values as they appear in feed payloads.
const (
	RaceStatusOpen      = "open"
	RaceStatusClosed    = "closed"
	RaceStatusInterim   = "interim"
	RaceStatusFinal     = "final"
	RaceStatusAbandoned = "abandoned"
)

// Meeting is a racing event venue/day grouping multiple races.
type Meeting struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Country  string `json:"country,omitempty"`
	Category string `json:"category,omitempty"` // thoroughbred, harness, greyhound
	Date     string `json:"date,omitempty"`     // YYYY-MM-DD
}

// Entrant is a runner in a race.
type Entrant struct {
	ID        string  `json:"id"`
	Number    int     `json:"number"`
	Name      string  `json:"name"`
	Rider     string  `json:"rider,omitempty"` // jockey or driver
	Scratched bool    `json:"scratched,omitempty"`
	WinOdds   float64 `json:"win_odds,omitempty"`
	PlaceOdds float64 `json:"place_odds,omitempty"`
}

// Pools holds wagering-pool totals for a race, in cents.
type Pools struct {
	WinTotal      int64  `json:"win_total"`
	PlaceTotal    int64  `json:"place_total"`
	QuinellaTotal int64  `json:"quinella_total,omitempty"`
	TrifectaTotal int64  `json:"trifecta_total,omitempty"`
	Currency      string `json:"currency,omitempty"`
}

// Placing is a single finishing position in a race result.
type Placing struct {
	Position  int     `json:"position"`
	EntrantID string  `json:"entrant_id"`
	Dividend  float64 `json:"dividend,omitempty"`
}

// Results holds finishing-position data for a race.
type Results struct {
	Status   string    `json:"status,omitempty"` // interim or final
	Placings []Placing `json:"placings"`
}

// Race is a single scheduled race within a meeting.
type Race struct {
	ID              string     `json:"id"`
	MeetingID       string     `json:"meeting_id"`
	Number          int        `json:"number"`
	Name            string     `json:"name"`
	Status          string     `json:"status"`
	AdvertisedStart time.Time  `json:"advertised_start"`
	ActualStart     *time.Time `json:"actual_start,omitempty"`
	Entrants        []Entrant  `json:"entrants,omitempty"`
	Pools           *Pools     `json:"pools,omitempty"`
	Results         *Results   `json:"results,omitempty"`
}

// Navigation points at the neighbouring races of a meeting, by race ID.
type Navigation struct {
	PreviousRaceID string `json:"previous_race_id,omitempty"`
	NextRaceID     string `json:"next_race_id,omitempty"`
}

// RaceContext is the full payload for a single race view: the race, its
// meeting, entrants, pools, results, navigation, and freshness metadata.
type RaceContext struct {
	Race        Race       `json:"race"`
	Meeting     Meeting    `json:"meeting"`
	Entrants    []Entrant  `json:"entrants"`
	Pools       *Pools     `json:"pools,omitempty"`
	Results     *Results   `json:"results,omitempty"`
	Navigation  Navigation `json:"navigation"`
	GeneratedAt time.Time  `json:"generated_at"`
	FetchedAt   time.Time  `json:"fetched_at,omitempty"`
}

// RaceCard is the payload served by a meeting feed: the meeting record and
// its races, plus a generation timestamp used for freshness checks.
type RaceCard struct {
	Meeting     Meeting   `json:"meeting"`
	Races       []Race    `json:"races"`
	GeneratedAt time.Time `json:"generated_at"`
}

// ErrNotRaceCard is returned by [ParseRaceCard] when a payload decodes but
// does not carry a meeting race card.
var ErrNotRaceCard = errors.New("payload is not a race card")

// ParseRaceCard decodes a feed payload into a [RaceCard].
//
// Feeds may serve envelopes with additional fields; only the card fields
// are read. Returns [ErrNotRaceCard] if the payload lacks a meeting ID,
// so callers can distinguish non-card payloads (e.g. bare health bodies)
// from malformed JSON.
func ParseRaceCard(payload []byte) (*RaceCard, error) {
	var card RaceCard
	if err := json.Unmarshal(payload, &card); err != nil {
		return nil, err
	}
	if card.Meeting.ID == "" {
		return nil, ErrNotRaceCard
	}
	return &card, nil
}
