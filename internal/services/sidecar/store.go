// Package sidecar persists per-asset metadata in a single JSON document next
// to the catalog. Entries are keyed by content fingerprint so they survive
// file renames, and every save replaces the document atomically.
package sidecar

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/fieldscope/fieldrec-api/internal/models"
)

const documentVersion = 1

// MarkerEntry is a marker as stored in the sidecar document
type MarkerEntry struct {
	UUID      string   `json:"uuid"`
	StartTime float64  `json:"start_time"`
	EndTime   *float64 `json:"end_time,omitempty"`
	Label     string   `json:"label,omitempty"`
	TagRefs   string   `json:"tag_refs,omitempty"`
	CueID     uint32   `json:"cue_id,omitempty"`
}

// Entry holds everything the sidecar remembers about one asset
type Entry struct {
	Path    string                     `json:"path"`
	Tags    map[string]models.TagValue `json:"tags,omitempty"`
	Markers []MarkerEntry              `json:"markers,omitempty"`
	View    *models.ViewState          `json:"view,omitempty"`
}

type document struct {
	Version int              `json:"version"`
	Assets  map[string]Entry `json:"assets"`
}

// Store reads and writes the sidecar document. Safe for concurrent use; every
// mutation is written through to disk before it returns.
type Store struct {
	path string

	mu     sync.RWMutex
	doc    document
	loaded bool
}

// NewStore creates a store backed by the given file path. The file is not
// touched until Load or the first mutation.
func NewStore(path string) *Store {
	return &Store{
		path: path,
		doc:  document{Version: documentVersion, Assets: make(map[string]Entry)},
	}
}

// Load reads the document from disk. A missing file is not an error; the
// store starts empty and the file appears on first save.
func (s *Store) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			s.loaded = true
			return nil
		}
		return fmt.Errorf("reading sidecar %s: %w", s.path, err)
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("parsing sidecar %s: %w", s.path, err)
	}
	if doc.Assets == nil {
		doc.Assets = make(map[string]Entry)
	}
	doc.Version = documentVersion

	s.doc = doc
	s.loaded = true
	return nil
}

// Path returns the document's location on disk
func (s *Store) Path() string {
	return s.path
}

// Get returns the entry for a fingerprint and whether it exists
func (s *Store) Get(fingerprint string) (Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.doc.Assets[fingerprint]
	return entry, ok
}

// Fingerprints returns every fingerprint present in the document
func (s *Store) Fingerprints() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]string, 0, len(s.doc.Assets))
	for fp := range s.doc.Assets {
		out = append(out, fp)
	}
	return out
}

// Put stores an entry and persists the document
func (s *Store) Put(fingerprint string, entry Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.doc.Assets[fingerprint] = entry
	return s.persistLocked()
}

// Delete removes an entry and persists the document. Deleting a fingerprint
// that is not present is a no-op.
func (s *Store) Delete(fingerprint string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.doc.Assets[fingerprint]; !ok {
		return nil
	}
	delete(s.doc.Assets, fingerprint)
	return s.persistLocked()
}

// Tags returns the stored tag set for a fingerprint, empty when absent
func (s *Store) Tags(fingerprint string) models.TagSet {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tags := models.NewTagSet()
	if entry, ok := s.doc.Assets[fingerprint]; ok {
		for k, v := range entry.Tags {
			tags.Values[k] = v
		}
	}
	return tags
}

// SetTags replaces the stored tags for a fingerprint and persists
func (s *Store) SetTags(fingerprint, path string, tags models.TagSet) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry := s.doc.Assets[fingerprint]
	if path != "" {
		entry.Path = path
	}
	entry.Tags = make(map[string]models.TagValue, tags.Len())
	for k, v := range tags.Values {
		entry.Tags[k] = v
	}
	s.doc.Assets[fingerprint] = entry
	return s.persistLocked()
}

// SetMarkers replaces the stored markers for a fingerprint and persists
func (s *Store) SetMarkers(fingerprint string, entries []MarkerEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry := s.doc.Assets[fingerprint]
	entry.Markers = entries
	s.doc.Assets[fingerprint] = entry
	return s.persistLocked()
}

// SetView replaces the stored view state for a fingerprint and persists
func (s *Store) SetView(fingerprint string, view models.ViewState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry := s.doc.Assets[fingerprint]
	if view.IsZero() {
		entry.View = nil
	} else {
		v := view
		entry.View = &v
	}
	s.doc.Assets[fingerprint] = entry
	return s.persistLocked()
}

// MarkersFromModels converts catalog markers into sidecar marker entries
func MarkersFromModels(ms []models.Marker) []MarkerEntry {
	out := make([]MarkerEntry, 0, len(ms))
	for _, m := range ms {
		out = append(out, MarkerEntry{
			UUID:      m.UUID,
			StartTime: m.StartTime,
			EndTime:   m.EndTime,
			Label:     m.Label,
			TagRefs:   m.TagRefs,
			CueID:     m.CueID,
		})
	}
	return out
}

// persistLocked writes the document to a temp file in the same directory and
// renames it over the target, so readers never observe a half-written file.
// Callers hold the write lock.
func (s *Store) persistLocked() error {
	if !s.loaded {
		s.loaded = true
	}

	data, err := json.MarshalIndent(&s.doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding sidecar: %w", err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating sidecar directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".sidecar-*.json")
	if err != nil {
		return fmt.Errorf("creating sidecar temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing sidecar temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("syncing sidecar temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing sidecar temp file: %w", err)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replacing sidecar: %w", err)
	}
	return nil
}
