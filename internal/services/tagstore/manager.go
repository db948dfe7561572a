package tagstore

import (
	"context"
	"sync"

	"github.com/fieldscope/fieldrec-api/internal/models"
	"github.com/fieldscope/fieldrec-api/internal/services/sidecar"
)

// Manager hands out one store per asset path, so concurrent callers working
// on the same file share a single serialized lifecycle.
type Manager struct {
	media   Media
	sidecar *sidecar.Store

	mu     sync.Mutex
	stores map[string]*Store
}

// NewManager creates a manager backed by the given media and sidecar store
func NewManager(media Media, sc *sidecar.Store) *Manager {
	return &Manager{
		media:   media,
		sidecar: sc,
		stores:  make(map[string]*Store),
	}
}

// ForAsset returns the store for a path, creating it on first use
func (m *Manager) ForAsset(path string) *Store {
	m.mu.Lock()
	defer m.mu.Unlock()

	if store, ok := m.stores[path]; ok {
		return store
	}
	store := NewStore(path, m.media, m.sidecar)
	m.stores[path] = store
	return store
}

// Release drops the cached store for a path. Any unsaved edits are lost.
func (m *Manager) Release(path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.stores, path)
}

// GetReconciledTagSet loads and reconciles an asset and returns a snapshot of
// its tags, leaving the store ready for edits.
func (m *Manager) GetReconciledTagSet(ctx context.Context, path string) (models.TagSet, error) {
	store := m.ForAsset(path)

	if store.State() == StateUnloaded {
		if err := store.Load(ctx); err != nil {
			return models.TagSet{}, err
		}
	}
	if store.State() == StateLoaded {
		if err := store.Reconcile(); err != nil {
			return models.TagSet{}, err
		}
	}

	return store.Tags(), nil
}

// SidecarTags returns the sidecar's tags for a fingerprint without touching
// the file. This is what remains knowable when the file is unreadable.
func (m *Manager) SidecarTags(fingerprint string) models.TagSet {
	return m.sidecar.Tags(fingerprint)
}
