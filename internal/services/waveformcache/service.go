// Package waveformcache keeps waveform pyramids resident in memory under a
// byte budget, with a sqlite-backed second level so a pyramid survives
// process restarts without a rebuild.
package waveformcache

import (
	"context"
	"log"
	"strings"
	"sync"

	"github.com/fieldscope/fieldrec-api/internal/models"
	"github.com/fieldscope/fieldrec-api/internal/pyramid"
)

// EventType describes what happened inside the cache
type EventType int

const (
	EventBuilt EventType = iota
	EventEvicted
	EventInvalidated
)

// Event is delivered to subscribers on cache activity
type Event struct {
	Type        EventType
	Fingerprint string
}

type entry struct {
	p       *pyramid.Pyramid
	size    int64
	pins    int
	lastUse uint64
}

type build struct {
	done chan struct{}
	p    *pyramid.Pyramid
	err  error
}

// ServiceImpl implements Service
type ServiceImpl struct {
	builder *pyramid.Builder
	repo    Repository
	budget  int64

	mu       sync.Mutex
	entries  map[string]*entry
	inflight map[string]*build
	used     int64
	seq      uint64

	subMu  sync.Mutex
	subs   map[int]chan Event
	nextID int
}

// NewService creates a cache with the given memory budget in bytes. A budget
// of zero or less disables eviction.
func NewService(builder *pyramid.Builder, repo Repository, budgetBytes int64) *ServiceImpl {
	return &ServiceImpl{
		builder:  builder,
		repo:     repo,
		budget:   budgetBytes,
		entries:  make(map[string]*entry),
		inflight: make(map[string]*build),
		subs:     make(map[int]chan Event),
	}
}

// GetOrBuild returns the pyramid for src's asset. Concurrent callers for the
// same fingerprint share one build; later callers block until it finishes.
func (s *ServiceImpl) GetOrBuild(ctx context.Context, src pyramid.FrameSource) (*pyramid.Pyramid, error) {
	fingerprint := src.Fingerprint()
	if fingerprint == "" {
		return nil, ErrInvalidFingerprint
	}

	s.mu.Lock()
	if e, ok := s.entries[fingerprint]; ok {
		s.touchLocked(e)
		s.mu.Unlock()
		return e.p, nil
	}
	if b, ok := s.inflight[fingerprint]; ok {
		s.mu.Unlock()
		select {
		case <-b.done:
			return b.p, b.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	b := &build{done: make(chan struct{})}
	s.inflight[fingerprint] = b
	s.mu.Unlock()

	p, err := s.load(ctx, src, fingerprint)

	var evicted []string
	s.mu.Lock()
	delete(s.inflight, fingerprint)
	if err == nil {
		evicted = s.insertLocked(fingerprint, p)
	}
	s.mu.Unlock()

	b.p, b.err = p, err
	close(b.done)

	for _, fp := range evicted {
		s.publish(Event{Type: EventEvicted, Fingerprint: fp})
	}
	if err == nil {
		s.publish(Event{Type: EventBuilt, Fingerprint: fingerprint})
	}
	return p, err
}

// load checks durable storage first and only reads samples on a miss
func (s *ServiceImpl) load(ctx context.Context, src pyramid.FrameSource, fingerprint string) (*pyramid.Pyramid, error) {
	if record, err := s.repo.GetByFingerprint(ctx, fingerprint); err == nil {
		if p, decodeErr := pyramid.Decode(record.LevelData, fingerprint); decodeErr == nil {
			log.Printf("[DEBUG] Loaded persisted pyramid for %s", fingerprint)
			return p, nil
		}
		log.Printf("[DEBUG] Persisted pyramid for %s is corrupt, rebuilding", fingerprint)
	}

	p, err := s.builder.Build(ctx, src)
	if err != nil {
		return nil, err
	}

	s.persist(ctx, p)
	return p, nil
}

// persist stores the encoded pyramid; a failure here costs a rebuild later,
// never the request
func (s *ServiceImpl) persist(ctx context.Context, p *pyramid.Pyramid) {
	blob, err := pyramid.Encode(p)
	if err != nil {
		log.Printf("[DEBUG] Failed to encode pyramid for %s: %v", p.Fingerprint, err)
		return
	}

	record := &models.WaveformRecord{
		AssetFingerprint: p.Fingerprint,
		LevelData:        blob,
		BaseFactor:       p.BaseFactor,
		LevelMultiplier:  p.Multiplier,
		LevelCount:       len(p.Levels),
		TotalFrames:      p.TotalFrames,
		SampleRate:       p.SampleRate,
		Channels:         p.Channels,
	}

	if err := s.repo.Create(ctx, record); err != nil {
		// Another worker may have won the race on the unique fingerprint
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			if existing, getErr := s.repo.GetByFingerprint(ctx, p.Fingerprint); getErr == nil {
				existing.LevelData = blob
				if updateErr := s.repo.Update(ctx, existing); updateErr != nil {
					log.Printf("[DEBUG] Failed to update persisted pyramid for %s: %v", p.Fingerprint, updateErr)
				}
				return
			}
		}
		log.Printf("[DEBUG] Failed to persist pyramid for %s: %v", p.Fingerprint, err)
	}
}

// Peek returns a resident pyramid without building
func (s *ServiceImpl) Peek(fingerprint string) (*pyramid.Pyramid, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[fingerprint]
	if !ok {
		return nil, false
	}
	s.touchLocked(e)
	return e.p, true
}

// Pin protects a resident pyramid from eviction until Unpin
func (s *ServiceImpl) Pin(fingerprint string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[fingerprint]
	if !ok {
		return ErrNotCached
	}
	e.pins++
	return nil
}

// Unpin releases a pin. Unpinning below zero is clamped.
func (s *ServiceImpl) Unpin(fingerprint string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.entries[fingerprint]; ok && e.pins > 0 {
		e.pins--
	}
}

// Invalidate drops an asset's pyramid everywhere, for when the file content
// changed and the fingerprint no longer describes it.
func (s *ServiceImpl) Invalidate(ctx context.Context, fingerprint string) error {
	s.mu.Lock()
	if e, ok := s.entries[fingerprint]; ok {
		s.used -= e.size
		delete(s.entries, fingerprint)
	}
	s.mu.Unlock()

	if err := s.repo.Delete(ctx, fingerprint); err != nil && err != ErrRecordNotFound {
		return err
	}

	s.publish(Event{Type: EventInvalidated, Fingerprint: fingerprint})
	return nil
}

// Resolve renders a viewport from the resident pyramid
func (s *ServiceImpl) Resolve(fingerprint string, startSec, endSec float64, width int) ([]pyramid.Peak, error) {
	p, ok := s.Peek(fingerprint)
	if !ok {
		return nil, ErrNotCached
	}
	return pyramid.Resolve(p, startSec, endSec, width)
}

// MemUsed reports the bytes currently held by resident pyramids
func (s *ServiceImpl) MemUsed() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.used
}

// Subscribe registers for cache events. Slow consumers drop events.
func (s *ServiceImpl) Subscribe() (<-chan Event, func()) {
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

func (s *ServiceImpl) publish(ev Event) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	for _, ch := range s.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

func (s *ServiceImpl) touchLocked(e *entry) {
	s.seq++
	e.lastUse = s.seq
}

// insertLocked adds the pyramid and evicts least recently used unpinned
// entries until the budget holds. Returns evicted fingerprints.
func (s *ServiceImpl) insertLocked(fingerprint string, p *pyramid.Pyramid) []string {
	e := &entry{p: p, size: p.MemSize()}
	s.touchLocked(e)
	s.entries[fingerprint] = e
	s.used += e.size

	if s.budget <= 0 {
		return nil
	}

	var evicted []string
	for s.used > s.budget {
		victimFP := ""
		var victim *entry
		for fp, candidate := range s.entries {
			if candidate.pins > 0 || fp == fingerprint {
				continue
			}
			if victim == nil || candidate.lastUse < victim.lastUse {
				victimFP, victim = fp, candidate
			}
		}
		if victim == nil {
			// Everything left is pinned or the newcomer itself
			break
		}
		s.used -= victim.size
		delete(s.entries, victimFP)
		evicted = append(evicted, victimFP)
	}
	return evicted
}
