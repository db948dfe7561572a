// Package tagstore keeps an asset's embedded tags and its sidecar metadata in
// agreement. Each store walks a fixed lifecycle: load the file, reconcile the
// two sources, accept edits, then save both sides atomically.
package tagstore

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"sync"

	"github.com/fieldscope/fieldrec-api/internal/models"
	"github.com/fieldscope/fieldrec-api/internal/services/sidecar"
	"github.com/fieldscope/fieldrec-api/internal/wavio"
	apperrors "github.com/fieldscope/fieldrec-api/pkg/errors"
)

// State is one step of the store lifecycle
type State int

const (
	StateUnloaded State = iota
	StateLoaded
	StateReconciled
	StateDirty
	StateSaving
)

func (s State) String() string {
	switch s {
	case StateUnloaded:
		return "unloaded"
	case StateLoaded:
		return "loaded"
	case StateReconciled:
		return "reconciled"
	case StateDirty:
		return "dirty"
	case StateSaving:
		return "saving"
	default:
		return "unknown"
	}
}

// EventType describes what happened to a store
type EventType int

const (
	EventLoaded EventType = iota
	EventReconciled
	EventTagChanged
	EventSaved
	EventStale
)

// Event is delivered to subscribers after every state transition or edit
type Event struct {
	Type        EventType
	Fingerprint string
	Path        string

	// Key is set for EventTagChanged
	Key string
}

// Fields whose embedded text form parses into a numeric tag value
var numericFields = map[string]bool{
	models.TagRating: true,
}

// Store synchronizes one asset's tags. All methods are safe for concurrent
// use; operations on the same asset serialize on the store's lock.
type Store struct {
	path    string
	media   Media
	sidecar *sidecar.Store

	mu          sync.Mutex
	state       State
	fingerprint string
	duration    float64
	embedded    models.TagSet
	tags        models.TagSet

	subMu  sync.Mutex
	subs   map[int]chan Event
	nextID int
}

// NewStore creates a store for the file at path
func NewStore(path string, media Media, sc *sidecar.Store) *Store {
	return &Store{
		path:     path,
		media:    media,
		sidecar:  sc,
		embedded: models.NewTagSet(),
		tags:     models.NewTagSet(),
		subs:     make(map[int]chan Event),
	}
}

// State returns the current lifecycle state
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Fingerprint returns the content fingerprint captured at load
func (s *Store) Fingerprint() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fingerprint
}

// Path returns the asset's file path
func (s *Store) Path() string {
	return s.path
}

// Subscribe registers for store events. The returned function removes the
// subscription and closes the channel. Slow consumers drop events instead of
// stalling the store.
func (s *Store) Subscribe() (<-chan Event, func()) {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	id := s.nextID
	s.nextID++
	ch := make(chan Event, 16)
	s.subs[id] = ch

	return ch, func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		if existing, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(existing)
		}
	}
}

func (s *Store) publish(ev Event) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	for _, ch := range s.subs {
		select {
		case ch <- ev:
		default:
			// Subscriber is not keeping up
		}
	}
}

// Load reads the file's embedded tags and fingerprint. Loading again resets
// any unsaved edits.
func (s *Store) Load(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	info, err := s.media.ReadInfo(s.path)
	if err != nil {
		return fmt.Errorf("loading %s: %w", s.path, err)
	}

	s.mu.Lock()
	s.fingerprint = info.Fingerprint
	s.duration = info.Duration
	s.embedded = tagSetFromInfo(info.Tags)
	s.tags = s.embedded.Clone()
	s.state = StateLoaded
	fp := s.fingerprint
	s.mu.Unlock()

	s.publish(Event{Type: EventLoaded, Fingerprint: fp, Path: s.path})
	return nil
}

// Reconcile merges the sidecar's tags into the embedded ones. For fields the
// application edits the sidecar value wins; embedded-only fields are
// imported; foreign recorder keys keep their embedded value verbatim.
func (s *Store) Reconcile() error {
	s.mu.Lock()

	if s.state == StateUnloaded {
		s.mu.Unlock()
		return ErrNotLoaded
	}
	if s.state == StateSaving {
		s.mu.Unlock()
		return ErrSaveInProgress
	}

	merged := s.sidecar.Tags(s.fingerprint)
	for _, key := range s.embedded.Keys() {
		embeddedValue, _ := s.embedded.Get(key)
		if !models.IsEditableField(key) {
			// Foreign keys always reflect what is in the file
			merged.Set(key, embeddedValue)
			continue
		}
		if _, ok := merged.Get(key); !ok {
			merged.Set(key, embeddedValue)
		}
	}

	s.tags = merged
	s.state = StateReconciled
	fp := s.fingerprint
	s.mu.Unlock()

	s.publish(Event{Type: EventReconciled, Fingerprint: fp, Path: s.path})
	return nil
}

// Tags returns a snapshot of the current working tag set
func (s *Store) Tags() models.TagSet {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tags.Clone()
}

// SetTag records an edit and marks the store dirty. Setting a tag to the
// value it already holds is a no-op and does not dirty the store.
func (s *Store) SetTag(key string, value models.TagValue) error {
	s.mu.Lock()

	switch s.state {
	case StateUnloaded, StateLoaded:
		s.mu.Unlock()
		return ErrNotReconciled
	case StateSaving:
		s.mu.Unlock()
		return ErrSaveInProgress
	}

	if existing, ok := s.tags.Get(key); ok && existing.Equal(value) {
		s.mu.Unlock()
		return nil
	}

	s.tags.Set(key, value)
	s.state = StateDirty
	fp := s.fingerprint
	s.mu.Unlock()

	s.publish(Event{Type: EventTagChanged, Fingerprint: fp, Path: s.path, Key: key})
	return nil
}

// DeleteTag removes a tag and marks the store dirty
func (s *Store) DeleteTag(key string) error {
	s.mu.Lock()

	switch s.state {
	case StateUnloaded, StateLoaded:
		s.mu.Unlock()
		return ErrNotReconciled
	case StateSaving:
		s.mu.Unlock()
		return ErrSaveInProgress
	}

	if _, ok := s.tags.Get(key); !ok {
		s.mu.Unlock()
		return nil
	}

	s.tags.Delete(key)
	s.state = StateDirty
	fp := s.fingerprint
	s.mu.Unlock()

	s.publish(Event{Type: EventTagChanged, Fingerprint: fp, Path: s.path, Key: key})
	return nil
}

// Save writes the working tag set to both the sidecar and the file's
// embedded chunk. Before touching anything it re-reads the file fingerprint;
// if the content changed since load the save is refused with ErrStaleAsset
// and the store stays dirty.
func (s *Store) Save(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	switch s.state {
	case StateUnloaded, StateLoaded:
		s.mu.Unlock()
		return ErrNotReconciled
	case StateSaving:
		s.mu.Unlock()
		return ErrSaveInProgress
	case StateReconciled:
		// No edits pending. The first save still seeds the sidecar so
		// embedded-only assets gain an entry without a file rewrite.
		if _, ok := s.sidecar.Get(s.fingerprint); ok {
			s.mu.Unlock()
			return nil
		}
		seedFP := s.fingerprint
		seed := s.tags.Clone()
		s.mu.Unlock()

		if err := s.sidecar.SetTags(seedFP, s.path, seed); err != nil {
			return fmt.Errorf("seeding sidecar for %s: %w", s.path, err)
		}
		s.publish(Event{Type: EventSaved, Fingerprint: seedFP, Path: s.path})
		return nil
	}
	s.state = StateSaving
	fp := s.fingerprint
	snapshot := s.tags.Clone()
	s.mu.Unlock()

	current, err := s.media.Fingerprint(s.path)
	if err != nil {
		s.setState(StateDirty)
		return fmt.Errorf("checking %s before save: %w", s.path, err)
	}
	if current != fp {
		s.setState(StateDirty)
		s.publish(Event{Type: EventStale, Fingerprint: fp, Path: s.path})
		return fmt.Errorf("%w: %s", ErrStaleAsset, s.path)
	}

	if err := s.sidecar.SetTags(fp, s.path, snapshot); err != nil {
		s.setState(StateDirty)
		return fmt.Errorf("saving sidecar for %s: %w", s.path, err)
	}

	if err := s.media.WriteInfo(s.path, infoFromTagSet(snapshot)); err != nil {
		s.setState(StateDirty)
		return apperrors.Wrap(err, apperrors.ErrCodeWriteFailed, "writing tags to "+s.path)
	}

	s.mu.Lock()
	s.embedded = snapshot
	s.tags = snapshot.Clone()
	s.state = StateLoaded
	s.mu.Unlock()

	log.Printf("[DEBUG] Saved %d tag(s) for %s", snapshot.Len(), s.path)
	s.publish(Event{Type: EventSaved, Fingerprint: fp, Path: s.path})
	return nil
}

func (s *Store) setState(state State) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

// tagSetFromInfo converts embedded LIST-INFO tags into a typed tag set
func tagSetFromInfo(tags []wavio.InfoTag) models.TagSet {
	set := models.NewTagSet()
	for _, tag := range tags {
		key := models.FieldForInfoID(tag.ID)
		if numericFields[key] {
			if n, err := strconv.ParseFloat(tag.Value, 64); err == nil {
				set.Set(key, models.Number(n))
				continue
			}
		}
		set.Set(key, models.String(tag.Value))
	}
	return set
}

// infoFromTagSet converts a tag set back into LIST-INFO tags, in the set's
// deterministic key order
func infoFromTagSet(set models.TagSet) []wavio.InfoTag {
	out := make([]wavio.InfoTag, 0, set.Len())
	for _, key := range set.Keys() {
		value, _ := set.Get(key)
		out = append(out, wavio.InfoTag{
			ID:    models.InfoIDForField(key),
			Value: value.Text(),
		})
	}
	return out
}
