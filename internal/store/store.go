package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/viniciushammett/k8s-crashloop-monitor/internal/model"
)

// MaxEvents bounds the persisted event log; oldest entries are dropped.
const MaxEvents = 200

const (
	stateFile  = "state.json"
	eventsFile = "events.json"
)

// Store persists the alert state and the event log as two JSON documents
// under a data directory. Every save is a whole-document atomic replace
// (write tmp, rename), so concurrent readers see either the previous or
// the next version, never a torn one. The monitor loop is the only writer;
// the HTTP surface re-loads from disk on every request.
type Store struct {
	dir string
}

func New(dir string) *Store {
	return &Store{dir: dir}
}

// Ensure creates the data directory and an empty event log if absent.
// This is the one fatal startup step: everything after it degrades.
func (s *Store) Ensure() error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	if _, err := os.Stat(s.eventsPath()); os.IsNotExist(err) {
		if err := s.SaveEvents(nil); err != nil {
			return err
		}
	}
	return nil
}

// LoadState returns the persisted fingerprint -> last-sent map. Missing or
// corrupt files are recoverable: they read as empty, never as an error.
func (s *Store) LoadState() model.AlertState {
	var st model.AlertState
	if !loadJSON(s.statePath(), &st) || st == nil {
		return model.AlertState{}
	}
	return st
}

func (s *Store) SaveState(st model.AlertState) error {
	return saveJSON(s.statePath(), st)
}

// LoadEvents returns the persisted event log, oldest first. Missing or
// corrupt files read as empty.
func (s *Store) LoadEvents() []model.Event {
	var evs []model.Event
	if !loadJSON(s.eventsPath(), &evs) {
		return nil
	}
	return evs
}

// SaveEvents persists the log, keeping only the newest MaxEvents entries.
func (s *Store) SaveEvents(evs []model.Event) error {
	if len(evs) > MaxEvents {
		evs = evs[len(evs)-MaxEvents:]
	}
	if evs == nil {
		evs = []model.Event{}
	}
	return saveJSON(s.eventsPath(), evs)
}

func (s *Store) statePath() string  { return filepath.Join(s.dir, stateFile) }
func (s *Store) eventsPath() string { return filepath.Join(s.dir, eventsFile) }

func loadJSON(path string, v any) bool {
	b, err := os.ReadFile(path)
	if err != nil {
		return false
	}
	return json.Unmarshal(b, v) == nil
}

func saveJSON(path string, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", filepath.Base(path), err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(tmp), err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replace %s: %w", filepath.Base(path), err)
	}
	return nil
}
