// Package library keeps the asset catalog in step with the recordings on
// disk. A scan walks the library root, fingerprints every container it can
// parse and imports embedded cue points as markers.
package library

import (
	"context"
	"io/fs"
	"log"
	"path/filepath"
	"strings"
	"time"

	"github.com/h2non/filetype"
	"github.com/h2non/filetype/matchers"

	"github.com/fieldscope/fieldrec-api/internal/models"
	"github.com/fieldscope/fieldrec-api/internal/services/sidecar"
	"github.com/fieldscope/fieldrec-api/internal/wavio"
)

// Options configures a library service
type Options struct {
	Root       string
	Extensions []string
	Recursive  bool

	// DefaultTags are written to the sidecar for assets seen for the
	// first time
	DefaultTags map[string]string
}

// ServiceImpl implements the Service interface
type ServiceImpl struct {
	repo        Repository
	importer    CueImporter
	invalidator Invalidator
	sidecar     *sidecar.Store

	root        string
	extensions  map[string]bool
	recursive   bool
	defaultTags map[string]string
}

// NewService creates a library service. The importer, invalidator and
// sidecar store may be nil when the caller does not need those couplings.
func NewService(repo Repository, importer CueImporter, invalidator Invalidator, sc *sidecar.Store, opts Options) *ServiceImpl {
	extensions := make(map[string]bool)
	for _, ext := range opts.Extensions {
		extensions[strings.ToLower(ext)] = true
	}
	if len(extensions) == 0 {
		extensions[".wav"] = true
	}

	return &ServiceImpl{
		repo:        repo,
		importer:    importer,
		invalidator: invalidator,
		sidecar:     sc,
		root:        opts.Root,
		extensions:  extensions,
		recursive:   opts.Recursive,
		defaultTags: opts.DefaultTags,
	}
}

// Scan walks the library root and refreshes the catalog
func (s *ServiceImpl) Scan(ctx context.Context) (*ScanResult, error) {
	result := &ScanResult{}

	err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		if d.IsDir() {
			if !s.recursive && path != s.root {
				return fs.SkipDir
			}
			return nil
		}

		if !s.extensions[strings.ToLower(filepath.Ext(path))] {
			return nil
		}

		result.Scanned++
		if err := s.scanFile(ctx, path, result); err != nil {
			// One bad file must not abort the whole scan
			log.Printf("[DEBUG] Skipping %s: %v", path, err)
			result.Skipped++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("Scan of %s: %d scanned, %d added, %d updated, %d unchanged, %d skipped",
		s.root, result.Scanned, result.Added, result.Updated, result.Unchanged, result.Skipped)
	return result, nil
}

func (s *ServiceImpl) scanFile(ctx context.Context, path string, result *ScanResult) error {
	// Sniff the container before paying for a full parse; the extension
	// alone proves nothing about field recorder dumps
	kind, err := filetype.MatchFile(path)
	if err != nil {
		return err
	}
	if kind != matchers.TypeWav {
		return wavio.ErrUnsupportedFormat
	}

	r, err := wavio.Open(path)
	if err != nil {
		return err
	}
	defer r.Close()

	asset := r.Asset()
	asset.LastScannedAt = time.Now().UTC()

	previous, err := s.repo.GetByPath(ctx, path)
	switch {
	case err == nil && previous.Fingerprint == asset.Fingerprint:
		result.Unchanged++
	case err == nil:
		// Same path, new content: the old fingerprint no longer describes
		// anything on disk
		if deleteErr := s.repo.DeleteByFingerprint(ctx, previous.Fingerprint); deleteErr != nil {
			log.Printf("[DEBUG] Failed to drop replaced asset %s: %v", previous.Fingerprint, deleteErr)
		}
		if s.invalidator != nil {
			if invErr := s.invalidator.Invalidate(ctx, previous.Fingerprint); invErr != nil {
				log.Printf("[DEBUG] Failed to invalidate waveform for %s: %v", previous.Fingerprint, invErr)
			}
		}
		result.Updated++
	default:
		// New path; a known fingerprint means the file was renamed
		if _, fpErr := s.repo.GetByFingerprint(ctx, asset.Fingerprint); fpErr == nil {
			result.Updated++
		} else {
			result.Added++
			s.applyDefaultTags(asset.Fingerprint, path)
		}
	}

	if err := s.repo.UpsertAsset(ctx, &asset); err != nil {
		return err
	}

	if s.importer != nil {
		if cues := r.Cues(); len(cues) > 0 {
			imported, impErr := s.importer.ImportCuePoints(ctx, asset.Fingerprint, asset.SampleRate, asset.Duration(), cues)
			if impErr != nil {
				log.Printf("[DEBUG] Cue import failed for %s: %v", path, impErr)
			}
			result.Cues += imported
		}
	}

	return nil
}

// applyDefaultTags seeds the sidecar for a first-seen asset
func (s *ServiceImpl) applyDefaultTags(fingerprint, path string) {
	if s.sidecar == nil || len(s.defaultTags) == 0 {
		return
	}
	if s.sidecar.Tags(fingerprint).Len() > 0 {
		return
	}

	tags := models.NewTagSet()
	for key, value := range s.defaultTags {
		tags.Set(key, models.String(value))
	}
	if err := s.sidecar.SetTags(fingerprint, path, tags); err != nil {
		log.Printf("[DEBUG] Failed to seed default tags for %s: %v", path, err)
	}
}

// GetAsset retrieves a catalog entry by fingerprint
func (s *ServiceImpl) GetAsset(ctx context.Context, fingerprint string) (*models.Asset, error) {
	return s.repo.GetByFingerprint(ctx, fingerprint)
}

// ListAssets retrieves every catalog entry
func (s *ServiceImpl) ListAssets(ctx context.Context) ([]models.Asset, error) {
	return s.repo.ListAssets(ctx)
}

// RecentAssets retrieves the most recently scanned entries
func (s *ServiceImpl) RecentAssets(ctx context.Context, limit int) ([]models.Asset, error) {
	return s.repo.ListRecent(ctx, limit)
}
