// internal/store/notified.go

// Package store persists which item ids have already been alerted on, so a
// hot item triggers at most one notification per retention window.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"
)

// DefaultRetention is how long a notified id suppresses repeat alerts.
const DefaultRetention = 7 * 24 * time.Hour

// Store is a time-bounded, persisted set of notified item ids backed by one
// JSON file mapping item id to UNIX timestamp. It is single-writer by
// construction: only one scrape cycle runs at a time. Writes still go
// through a temp-file rename so a crash mid-write never corrupts the file.
type Store struct {
	path      string
	retention time.Duration
	now       func() time.Time
}

// New creates a Store persisting to path with the default retention.
func New(path string) *Store {
	return &Store{path: path, retention: DefaultRetention, now: time.Now}
}

// NewWithClock creates a Store with a custom retention and clock, for tests.
func NewWithClock(path string, retention time.Duration, now func() time.Time) *Store {
	return &Store{path: path, retention: retention, now: now}
}

// AlreadyNotified returns the set of item ids alerted on within the
// retention window. Stale entries are pruned on every load and the pruned
// mapping is rewritten immediately; the store is self-cleaning on access,
// no background sweep.
func (s *Store) AlreadyNotified() (map[string]bool, error) {
	entries, pruned, err := s.load()
	if err != nil {
		return nil, err
	}
	if pruned > 0 {
		if err := s.write(entries); err != nil {
			return nil, err
		}
		log.Debug().Int("pruned", pruned).Msg("Stale notified entries dropped")
	}

	ids := make(map[string]bool, len(entries))
	for id := range entries {
		ids[id] = true
	}
	return ids, nil
}

// Record marks ids as notified at the current time and rewrites the file.
func (s *Store) Record(ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	entries, _, err := s.load()
	if err != nil {
		return err
	}
	now := s.now().Unix()
	for _, id := range ids {
		entries[id] = now
	}
	if err := s.write(entries); err != nil {
		return err
	}
	log.Info().Int("recorded", len(ids)).Str("path", s.path).
		Msg("Notified items recorded")
	return nil
}

// load reads the mapping and drops entries past retention, reporting how
// many were pruned. A missing file is an empty store, not an error.
func (s *Store) load() (map[string]int64, int, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]int64{}, 0, nil
		}
		return nil, 0, fmt.Errorf("failed to read notified store: %w", err)
	}

	var entries map[string]int64
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, 0, fmt.Errorf("failed to parse notified store: %w", err)
	}
	if entries == nil {
		entries = map[string]int64{}
	}

	cutoff := s.now().Add(-s.retention).Unix()
	pruned := 0
	for id, ts := range entries {
		if ts < cutoff {
			delete(entries, id)
			pruned++
		}
	}
	return entries, pruned, nil
}

// write serializes the mapping to a sibling temp file and renames it over
// the store path.
func (s *Store) write(entries map[string]int64) error {
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("failed to create store dir: %w", err)
		}
	}

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize notified store: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("failed to write notified store: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed to replace notified store: %w", err)
	}
	return nil
}
