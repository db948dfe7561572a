package library

import (
	"context"

	"github.com/fieldscope/fieldrec-api/internal/models"
	"github.com/fieldscope/fieldrec-api/internal/wavio"
)

// Repository defines the interface for asset catalog data access
type Repository interface {
	// Upsert operations
	UpsertAsset(ctx context.Context, asset *models.Asset) error

	// Read operations
	GetByFingerprint(ctx context.Context, fingerprint string) (*models.Asset, error)
	GetByPath(ctx context.Context, path string) (*models.Asset, error)
	ListAssets(ctx context.Context) ([]models.Asset, error)
	ListRecent(ctx context.Context, limit int) ([]models.Asset, error)

	// Delete operations
	DeleteByFingerprint(ctx context.Context, fingerprint string) error
}

// Invalidator is the slice of the waveform cache the scanner needs when a
// file's content changed
type Invalidator interface {
	Invalidate(ctx context.Context, fingerprint string) error
}

// CueImporter is the slice of the marker service the scanner needs
type CueImporter interface {
	ImportCuePoints(ctx context.Context, fingerprint string, sampleRate int, duration float64, cues []wavio.CuePoint) (int, error)
}

// ScanResult summarizes one pass over the library root
type ScanResult struct {
	Scanned   int `json:"scanned"`
	Added     int `json:"added"`
	Updated   int `json:"updated"`
	Unchanged int `json:"unchanged"`
	Skipped   int `json:"skipped"`
	Cues      int `json:"cues_imported"`
}

// Service defines the interface for library operations
type Service interface {
	// Scan walks the library root and refreshes the catalog
	Scan(ctx context.Context) (*ScanResult, error)

	// GetAsset retrieves a catalog entry by fingerprint
	GetAsset(ctx context.Context, fingerprint string) (*models.Asset, error)

	// ListAssets retrieves every catalog entry
	ListAssets(ctx context.Context) ([]models.Asset, error)

	// RecentAssets retrieves the most recently scanned entries
	RecentAssets(ctx context.Context, limit int) ([]models.Asset, error)
}
