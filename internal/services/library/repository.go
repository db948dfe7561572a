package library

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/fieldscope/fieldrec-api/internal/models"
)

// RepositoryImpl implements the Repository interface
type RepositoryImpl struct {
	db *gorm.DB
}

// NewRepository creates a new asset repository
func NewRepository(db *gorm.DB) Repository {
	return &RepositoryImpl{db: db}
}

// UpsertAsset creates the catalog entry or refreshes it when the fingerprint
// is already known
func (r *RepositoryImpl) UpsertAsset(ctx context.Context, asset *models.Asset) error {
	var existing models.Asset
	err := r.db.WithContext(ctx).
		Where("fingerprint = ?", asset.Fingerprint).
		First(&existing).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		if err := r.db.WithContext(ctx).Create(asset).Error; err != nil {
			return fmt.Errorf("creating asset: %w", err)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("looking up asset: %w", err)
	}

	asset.ID = existing.ID
	asset.CreatedAt = existing.CreatedAt
	if err := r.db.WithContext(ctx).Save(asset).Error; err != nil {
		return fmt.Errorf("updating asset: %w", err)
	}
	return nil
}

// GetByFingerprint retrieves a catalog entry by fingerprint
func (r *RepositoryImpl) GetByFingerprint(ctx context.Context, fingerprint string) (*models.Asset, error) {
	var asset models.Asset
	if err := r.db.WithContext(ctx).Where("fingerprint = ?", fingerprint).First(&asset).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAssetNotFound
		}
		return nil, fmt.Errorf("getting asset: %w", err)
	}
	return &asset, nil
}

// GetByPath retrieves a catalog entry by file path
func (r *RepositoryImpl) GetByPath(ctx context.Context, path string) (*models.Asset, error) {
	var asset models.Asset
	if err := r.db.WithContext(ctx).Where("path = ?", path).First(&asset).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAssetNotFound
		}
		return nil, fmt.Errorf("getting asset by path: %w", err)
	}
	return &asset, nil
}

// ListAssets retrieves every catalog entry ordered by path
func (r *RepositoryImpl) ListAssets(ctx context.Context) ([]models.Asset, error) {
	var assets []models.Asset
	if err := r.db.WithContext(ctx).Order("path ASC").Find(&assets).Error; err != nil {
		return nil, fmt.Errorf("listing assets: %w", err)
	}
	return assets, nil
}

// ListRecent retrieves the most recently scanned entries
func (r *RepositoryImpl) ListRecent(ctx context.Context, limit int) ([]models.Asset, error) {
	if limit <= 0 {
		limit = 20
	}
	var assets []models.Asset
	if err := r.db.WithContext(ctx).
		Order("last_scanned_at DESC").
		Limit(limit).
		Find(&assets).Error; err != nil {
		return nil, fmt.Errorf("listing recent assets: %w", err)
	}
	return assets, nil
}

// DeleteByFingerprint removes a catalog entry
func (r *RepositoryImpl) DeleteByFingerprint(ctx context.Context, fingerprint string) error {
	result := r.db.WithContext(ctx).Where("fingerprint = ?", fingerprint).Delete(&models.Asset{})
	if result.Error != nil {
		return fmt.Errorf("deleting asset: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrAssetNotFound
	}
	return nil
}
