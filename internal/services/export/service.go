// Package export assembles the reconciled view of the library for external
// consumers: catalog entry, merged tags and markers per asset.
package export

import (
	"context"
	"fmt"
	"log"

	"github.com/fieldscope/fieldrec-api/internal/models"
	"github.com/fieldscope/fieldrec-api/internal/services/tagstore"
)

// AssetLookup is the slice of the library service the exporter needs
type AssetLookup interface {
	GetAsset(ctx context.Context, fingerprint string) (*models.Asset, error)
	ListAssets(ctx context.Context) ([]models.Asset, error)
}

// MarkerLookup is the slice of the marker service the exporter needs
type MarkerLookup interface {
	GetMarkersByFingerprint(ctx context.Context, fingerprint string) ([]models.Marker, error)
}

// AssetExport is one asset with everything known about it
type AssetExport struct {
	Asset   models.Asset    `json:"asset"`
	Tags    models.TagSet   `json:"tags"`
	Markers []models.Marker `json:"markers"`
}

// Service defines the interface for export operations
type Service interface {
	// GetReconciledTagSet returns the merged tags for one asset
	GetReconciledTagSet(ctx context.Context, fingerprint string) (models.TagSet, error)

	// ListAssetsWithTags returns every asset with its merged tags and
	// markers
	ListAssetsWithTags(ctx context.Context) ([]AssetExport, error)
}

// ServiceImpl implements the Service interface
type ServiceImpl struct {
	assets  AssetLookup
	markers MarkerLookup
	tags    *tagstore.Manager
}

// NewService creates an export service
func NewService(assets AssetLookup, markers MarkerLookup, tags *tagstore.Manager) *ServiceImpl {
	return &ServiceImpl{
		assets:  assets,
		markers: markers,
		tags:    tags,
	}
}

// GetReconciledTagSet returns the merged tags for one asset
func (s *ServiceImpl) GetReconciledTagSet(ctx context.Context, fingerprint string) (models.TagSet, error) {
	asset, err := s.assets.GetAsset(ctx, fingerprint)
	if err != nil {
		return models.TagSet{}, err
	}
	return s.tags.GetReconciledTagSet(ctx, asset.Path)
}

// ListAssetsWithTags returns every asset with its merged tags and markers.
// Assets whose file cannot be read anymore are exported with whatever the
// catalog and sidecar still know.
func (s *ServiceImpl) ListAssetsWithTags(ctx context.Context) ([]AssetExport, error) {
	assets, err := s.assets.ListAssets(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing assets for export: %w", err)
	}

	out := make([]AssetExport, 0, len(assets))
	for i := range assets {
		asset := assets[i]

		tags, err := s.tags.GetReconciledTagSet(ctx, asset.Path)
		if err != nil {
			log.Printf("[DEBUG] Exporting %s without file tags: %v", asset.Path, err)
			tags = s.tags.SidecarTags(asset.Fingerprint)
		}

		ms, err := s.markers.GetMarkersByFingerprint(ctx, asset.Fingerprint)
		if err != nil {
			return nil, err
		}

		out = append(out, AssetExport{
			Asset:   asset,
			Tags:    tags,
			Markers: ms,
		})
	}
	return out, nil
}
