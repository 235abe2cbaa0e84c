// internal/store/notified_test.go
package store

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func storeAt(t *testing.T, now time.Time) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "notified_items.json")
	return NewWithClock(path, DefaultRetention, func() time.Time { return now })
}

func TestStore_MissingFileIsEmpty(t *testing.T) {
	s := storeAt(t, time.Now())

	ids, err := s.AlreadyNotified()
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestStore_RecordThenAlreadyNotified(t *testing.T) {
	s := storeAt(t, time.Now())

	require.NoError(t, s.Record([]string{"111", "222"}))

	ids, err := s.AlreadyNotified()
	require.NoError(t, err)
	assert.True(t, ids["111"])
	assert.True(t, ids["222"])
	assert.False(t, ids["333"])
}

func TestStore_PrunesEntriesPastRetention(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notified_items.json")
	clock := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	s := NewWithClock(path, DefaultRetention, func() time.Time { return clock })

	require.NoError(t, s.Record([]string{"old", "fresh"}))

	// Jump eight days ahead; "old" and "fresh" were both recorded then, so
	// re-record "fresh" six days in to keep it inside the window.
	clock = clock.Add(2 * 24 * time.Hour)
	require.NoError(t, s.Record([]string{"fresh"}))

	clock = clock.Add(6 * 24 * time.Hour)
	ids, err := s.AlreadyNotified()
	require.NoError(t, err)
	assert.False(t, ids["old"], "entry past retention should be pruned")
	assert.True(t, ids["fresh"])

	// The prune rewrites the file immediately.
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var entries map[string]int64
	require.NoError(t, json.Unmarshal(data, &entries))
	_, stillThere := entries["old"]
	assert.False(t, stillThere)
}

func TestStore_RecordEmptyIsNoop(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notified_items.json")
	s := New(path)

	require.NoError(t, s.Record(nil))

	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err), "no-op record should not create the file")
}

func TestStore_WriteLeavesNoTempFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notified_items.json")
	s := New(path)

	require.NoError(t, s.Record([]string{"1"}))

	_, err := os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestStore_CorruptFileReturnsError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notified_items.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))
	s := New(path)

	_, err := s.AlreadyNotified()
	assert.Error(t, err)
}
