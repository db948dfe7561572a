package sidecar

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldscope/fieldrec-api/internal/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store := NewStore(filepath.Join(t.TempDir(), "metadata.json"))
	require.NoError(t, store.Load())
	return store
}

func TestLoadMissingFileStartsEmpty(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "does-not-exist.json"))
	require.NoError(t, store.Load())
	assert.Empty(t, store.Fingerprints())
}

func TestLoadRejectsCorruptDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "metadata.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

	store := NewStore(path)
	assert.Error(t, store.Load())
}

func TestPutGetRoundTrip(t *testing.T) {
	store := newTestStore(t)

	end := 4.5
	entry := Entry{
		Path: "/library/marsh.wav",
		Tags: map[string]models.TagValue{
			"title":  models.String("Marsh at dusk"),
			"rating": models.Number(4),
		},
		Markers: []MarkerEntry{
			{UUID: "u-1", StartTime: 1.25, EndTime: &end, Label: "heron"},
		},
		View: &models.ViewState{ZoomStart: 0, ZoomEnd: 30, Position: 12},
	}

	require.NoError(t, store.Put("fp-marsh", entry))

	got, ok := store.Get("fp-marsh")
	require.True(t, ok)
	assert.Equal(t, entry, got)

	// A fresh store reading the same file sees the same entry
	reopened := NewStore(store.Path())
	require.NoError(t, reopened.Load())
	got, ok = reopened.Get("fp-marsh")
	require.True(t, ok)
	assert.Equal(t, entry, got)
}

func TestDocumentIsPrettyPrinted(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.Put("fp-1", Entry{Path: "/library/a.wav"}))

	data, err := os.ReadFile(store.Path())
	require.NoError(t, err)

	assert.True(t, strings.Contains(string(data), "\n  "), "document should be indented")

	var doc map[string]any
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.EqualValues(t, 1, doc["version"])
}

func TestSetTagsReplacesExisting(t *testing.T) {
	store := newTestStore(t)

	first := models.NewTagSet()
	first.Set("title", models.String("old"))
	first.Set("notes", models.String("wind from the north"))
	require.NoError(t, store.SetTags("fp-1", "/library/a.wav", first))

	second := models.NewTagSet()
	second.Set("title", models.String("new"))
	require.NoError(t, store.SetTags("fp-1", "", second))

	tags := store.Tags("fp-1")
	assert.Equal(t, 1, tags.Len())
	v, ok := tags.Get("title")
	require.True(t, ok)
	assert.Equal(t, "new", v.Str)

	// Path set on the first call survives the second
	entry, ok := store.Get("fp-1")
	require.True(t, ok)
	assert.Equal(t, "/library/a.wav", entry.Path)
}

func TestTagsForUnknownFingerprintIsEmpty(t *testing.T) {
	store := newTestStore(t)
	assert.Equal(t, 0, store.Tags("fp-missing").Len())
}

func TestSetViewZeroClearsState(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.SetView("fp-1", models.ViewState{ZoomStart: 2, ZoomEnd: 8, Position: 5}))
	entry, _ := store.Get("fp-1")
	require.NotNil(t, entry.View)
	assert.Equal(t, 8.0, entry.View.ZoomEnd)

	require.NoError(t, store.SetView("fp-1", models.ViewState{}))
	entry, _ = store.Get("fp-1")
	assert.Nil(t, entry.View)
}

func TestDelete(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.Put("fp-1", Entry{Path: "/library/a.wav"}))
	require.NoError(t, store.Delete("fp-1"))

	_, ok := store.Get("fp-1")
	assert.False(t, ok)

	// Deleting again is a no-op
	require.NoError(t, store.Delete("fp-1"))
}

func TestPersistLeavesNoTempFiles(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.Put("fp-1", Entry{Path: "/library/a.wav"}))

	entries, err := os.ReadDir(filepath.Dir(store.Path()))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, filepath.Base(store.Path()), entries[0].Name())
}

func TestMarkersFromModels(t *testing.T) {
	end := 7.0
	ms := []models.Marker{
		{UUID: "u-1", AssetFingerprint: "fp-1", StartTime: 3, EndTime: &end, Label: "frog", CueID: 2},
	}

	entries := MarkersFromModels(ms)
	require.Len(t, entries, 1)
	assert.Equal(t, "u-1", entries[0].UUID)
	assert.Equal(t, 3.0, entries[0].StartTime)
	require.NotNil(t, entries[0].EndTime)
	assert.Equal(t, 7.0, *entries[0].EndTime)
	assert.Equal(t, uint32(2), entries[0].CueID)
}
