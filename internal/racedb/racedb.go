package racedb

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/pocketbase/dbx"
	"github.com/pocketbase/pocketbase"
	pbModels "github.com/pocketbase/pocketbase/models"
	"github.com/pocketbase/pocketbase/models/schema"

	"github.com/WarrickSmith/raceday/internal/raceapi"
)

const (
	meetingsCollection = "meetings"
	racesCollection    = "races"
)

// Store persists meeting and race documents in an embedded PocketBase
// database.
//
// Races are stored one document per race, keyed by the upstream race ID,
// with the owning meeting referenced by ID. The race list for a meeting is
// served by a relationship query ordered by race number; when that query
// fails the store falls back to an unfiltered collection scan with
// client-side filtering and sorting, and only if that also fails does the
// error propagate.
type Store struct {
	app    *pocketbase.PocketBase
	logger *slog.Logger
}

// New opens (or creates) the document database in dataDir.
func New(dataDir string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	app := pocketbase.NewWithConfig(pocketbase.Config{
		DefaultDataDir: dataDir,
	})

	if err := app.Bootstrap(); err != nil {
		return nil, fmt.Errorf("failed to bootstrap document database: %w", err)
	}

	if err := ensureCollections(app); err != nil {
		return nil, fmt.Errorf("failed to ensure collections exist: %w", err)
	}

	return &Store{app: app, logger: logger}, nil
}

// Close releases the database resources.
func (s *Store) Close() error {
	return s.app.ResetBootstrapState()
}

// ensureCollections creates the meetings and races collections when absent.
func ensureCollections(app *pocketbase.PocketBase) error {
	if _, err := app.Dao().FindCollectionByNameOrId(meetingsCollection); err != nil {
		collection := &pbModels.Collection{
			Name: meetingsCollection,
			Type: pbModels.CollectionTypeBase,
			Schema: schema.NewSchema(
				&schema.SchemaField{Name: "meeting_id", Type: schema.FieldTypeText, Required: true},
				&schema.SchemaField{Name: "name", Type: schema.FieldTypeText, Required: true},
				&schema.SchemaField{Name: "country", Type: schema.FieldTypeText},
				&schema.SchemaField{Name: "category", Type: schema.FieldTypeText},
				&schema.SchemaField{Name: "date", Type: schema.FieldTypeText},
			),
		}
		if err := app.Dao().SaveCollection(collection); err != nil {
			return fmt.Errorf("failed to save meetings collection: %w", err)
		}
	}

	if _, err := app.Dao().FindCollectionByNameOrId(racesCollection); err != nil {
		collection := &pbModels.Collection{
			Name: racesCollection,
			Type: pbModels.CollectionTypeBase,
			Schema: schema.NewSchema(
				&schema.SchemaField{Name: "race_id", Type: schema.FieldTypeText, Required: true},
				&schema.SchemaField{Name: "meeting", Type: schema.FieldTypeText, Required: true},
				&schema.SchemaField{Name: "number", Type: schema.FieldTypeNumber, Required: true},
				&schema.SchemaField{Name: "name", Type: schema.FieldTypeText},
				&schema.SchemaField{Name: "status", Type: schema.FieldTypeText},
				&schema.SchemaField{Name: "advertised_start", Type: schema.FieldTypeText},
				&schema.SchemaField{Name: "actual_start", Type: schema.FieldTypeText},
				&schema.SchemaField{Name: "entrants_json", Type: schema.FieldTypeText},
				&schema.SchemaField{Name: "pools_json", Type: schema.FieldTypeText},
				&schema.SchemaField{Name: "results_json", Type: schema.FieldTypeText},
			),
		}
		if err := app.Dao().SaveCollection(collection); err != nil {
			return fmt.Errorf("failed to save races collection: %w", err)
		}
	}

	return nil
}

// UpsertCard persists a polled race card: its meeting and every race.
func (s *Store) UpsertCard(card *raceapi.RaceCard) error {
	if err := s.UpsertMeeting(card.Meeting); err != nil {
		return err
	}
	for i := range card.Races {
		if err := s.UpsertRace(card.Races[i]); err != nil {
			return err
		}
	}
	return nil
}

// UpsertMeeting creates or updates a meeting document.
func (s *Store) UpsertMeeting(m raceapi.Meeting) error {
	record, err := s.app.Dao().FindFirstRecordByData(meetingsCollection, "meeting_id", m.ID)
	if err != nil {
		collection, err := s.app.Dao().FindCollectionByNameOrId(meetingsCollection)
		if err != nil {
			return fmt.Errorf("failed to find meetings collection: %w", err)
		}
		record = pbModels.NewRecord(collection)
	}

	record.Set("meeting_id", m.ID)
	record.Set("name", m.Name)
	record.Set("country", m.Country)
	record.Set("category", m.Category)
	record.Set("date", m.Date)

	if err := s.app.Dao().SaveRecord(record); err != nil {
		return fmt.Errorf("failed to save meeting %s: %w", m.ID, err)
	}
	return nil
}

// UpsertRace creates or updates a race document.
func (s *Store) UpsertRace(r raceapi.Race) error {
	record, err := s.app.Dao().FindFirstRecordByData(racesCollection, "race_id", r.ID)
	if err != nil {
		collection, err := s.app.Dao().FindCollectionByNameOrId(racesCollection)
		if err != nil {
			return fmt.Errorf("failed to find races collection: %w", err)
		}
		record = pbModels.NewRecord(collection)
	}

	record.Set("race_id", r.ID)
	record.Set("meeting", r.MeetingID)
	record.Set("number", r.Number)
	record.Set("name", r.Name)
	record.Set("status", r.Status)
	record.Set("advertised_start", r.AdvertisedStart.Format(time.RFC3339))
	if r.ActualStart != nil {
		record.Set("actual_start", r.ActualStart.Format(time.RFC3339))
	} else {
		record.Set("actual_start", "")
	}
	record.Set("entrants_json", marshalOrEmpty(r.Entrants))
	record.Set("pools_json", marshalOrEmpty(r.Pools))
	record.Set("results_json", marshalOrEmpty(r.Results))

	if err := s.app.Dao().SaveRecord(record); err != nil {
		return fmt.Errorf("failed to save race %s: %w", r.ID, err)
	}
	return nil
}

// GetMeeting returns a meeting document by meeting ID.
func (s *Store) GetMeeting(meetingID string) (*raceapi.Meeting, error) {
	record, err := s.app.Dao().FindFirstRecordByData(meetingsCollection, "meeting_id", meetingID)
	if err != nil {
		return nil, fmt.Errorf("meeting %s not found: %w", meetingID, err)
	}
	m := recordToMeeting(record)
	return &m, nil
}

// GetRace returns a race document by race ID.
func (s *Store) GetRace(raceID string) (*raceapi.Race, error) {
	record, err := s.app.Dao().FindFirstRecordByData(racesCollection, "race_id", raceID)
	if err != nil {
		return nil, fmt.Errorf("race %s not found: %w", raceID, err)
	}
	r := recordToRace(record)
	return &r, nil
}

// RacesForMeeting returns the races of a meeting ordered by race number.
//
// The primary path filters by the meeting reference and orders in the
// database. On failure it falls back to scanning the whole collection and
// filtering and sorting client-side; if that also fails, the error from
// both attempts propagates to the caller.
func (s *Store) RacesForMeeting(meetingID string) ([]raceapi.Race, error) {
	collection, err := s.app.Dao().FindCollectionByNameOrId(racesCollection)
	if err != nil {
		return nil, fmt.Errorf("failed to find races collection: %w", err)
	}

	var records []*pbModels.Record
	query := s.app.Dao().RecordQuery(collection).
		AndWhere(dbx.HashExp{"meeting": meetingID}).
		OrderBy("number ASC")

	if err := query.All(&records); err != nil {
		s.logger.Warn("meeting race query failed, falling back to collection scan",
			"meeting_id", meetingID,
			"error", err,
		)
		return s.racesForMeetingFallback(meetingID, err)
	}

	races := make([]raceapi.Race, len(records))
	for i, record := range records {
		races[i] = recordToRace(record)
	}
	return races, nil
}

// racesForMeetingFallback scans all race documents and filters client-side.
func (s *Store) racesForMeetingFallback(meetingID string, queryErr error) ([]raceapi.Race, error) {
	records, err := s.app.Dao().FindRecordsByExpr(racesCollection)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch races (query: %v): %w", queryErr, err)
	}

	all := make([]raceapi.Race, len(records))
	for i, record := range records {
		all[i] = recordToRace(record)
	}
	return filterAndSortRaces(all, meetingID), nil
}

// RaceContext assembles the full race-context payload for a race from the
// stored documents: the race, its meeting, and navigation to the
// neighbouring races of the same meeting by race number.
//
// RaceContext implements the loader source interface, so the board can
// serve race views entirely from the local database when no upstream API
// is configured.
func (s *Store) RaceContext(ctx context.Context, raceID string) (*raceapi.RaceContext, error) {
	race, err := s.GetRace(raceID)
	if err != nil {
		return nil, err
	}

	rc := &raceapi.RaceContext{
		Race:        *race,
		Entrants:    race.Entrants,
		Pools:       race.Pools,
		Results:     race.Results,
		GeneratedAt: time.Now(),
		FetchedAt:   time.Now(),
	}

	if meeting, err := s.GetMeeting(race.MeetingID); err == nil {
		rc.Meeting = *meeting
	}

	siblings, err := s.RacesForMeeting(race.MeetingID)
	if err != nil {
		// navigation is best-effort; the race itself already loaded
		s.logger.Warn("failed to load sibling races for navigation",
			"race_id", raceID,
			"error", err,
		)
		return rc, nil
	}
	for i := range siblings {
		if siblings[i].ID != raceID {
			continue
		}
		if i > 0 {
			rc.Navigation.PreviousRaceID = siblings[i-1].ID
		}
		if i < len(siblings)-1 {
			rc.Navigation.NextRaceID = siblings[i+1].ID
		}
		break
	}

	return rc, nil
}

// filterAndSortRaces keeps the races of one meeting, ordered by race
// number.
func filterAndSortRaces(races []raceapi.Race, meetingID string) []raceapi.Race {
	filtered := make([]raceapi.Race, 0, len(races))
	for _, r := range races {
		if r.MeetingID == meetingID {
			filtered = append(filtered, r)
		}
	}
	sort.Slice(filtered, func(i, j int) bool {
		return filtered[i].Number < filtered[j].Number
	})
	return filtered
}

// recordToMeeting maps a meeting document to the API type.
func recordToMeeting(record *pbModels.Record) raceapi.Meeting {
	return raceapi.Meeting{
		ID:       record.GetString("meeting_id"),
		Name:     record.GetString("name"),
		Country:  record.GetString("country"),
		Category: record.GetString("category"),
		Date:     record.GetString("date"),
	}
}

// recordToRace maps a race document to the API type.
func recordToRace(record *pbModels.Record) raceapi.Race {
	r := raceapi.Race{
		ID:        record.GetString("race_id"),
		MeetingID: record.GetString("meeting"),
		Number:    record.GetInt("number"),
		Name:      record.GetString("name"),
		Status:    record.GetString("status"),
	}

	if t, err := time.Parse(time.RFC3339, record.GetString("advertised_start")); err == nil {
		r.AdvertisedStart = t
	}
	if raw := record.GetString("actual_start"); raw != "" {
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			r.ActualStart = &t
		}
	}

	if raw := record.GetString("entrants_json"); raw != "" {
		_ = json.Unmarshal([]byte(raw), &r.Entrants)
	}
	if raw := record.GetString("pools_json"); raw != "" {
		_ = json.Unmarshal([]byte(raw), &r.Pools)
	}
	if raw := record.GetString("results_json"); raw != "" {
		_ = json.Unmarshal([]byte(raw), &r.Results)
	}

	return r
}

// marshalOrEmpty serializes v to JSON, returning "" for nil values.
func marshalOrEmpty(v any) string {
	if v == nil {
		return ""
	}
	data, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	if string(data) == "null" {
		return ""
	}
	return string(data)
}
