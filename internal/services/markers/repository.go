package markers

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

// NewRepository creates a new marker repository
func NewRepository(db *gorm.DB) Repository {
	return &RepositoryImpl{db: db}
}

// CreateMarker creates a new marker in the database
func (r *RepositoryImpl) CreateMarker(ctx context.Context, marker *models.Marker) error {
	if err := r.db.WithContext(ctx).Create(marker).Error; err != nil {
		return fmt.Errorf("creating marker: %w", err)
	}
	return nil
}

// GetMarkerByUUID retrieves a marker by its UUID
func (r *RepositoryImpl) GetMarkerByUUID(ctx context.Context, uuid string) (*models.Marker, error) {
	var marker models.Marker
	if err := r.db.WithContext(ctx).Where("uuid = ?", uuid).First(&marker).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMarkerNotFound
		}
		return nil, fmt.Errorf("getting marker: %w", err)
	}
	return &marker, nil
}

// GetMarkersByFingerprint retrieves all markers for one asset, ordered by
// start time with insertion order breaking ties.
func (r *RepositoryImpl) GetMarkersByFingerprint(ctx context.Context, fingerprint string) ([]models.Marker, error) {
	var result []models.Marker
	if err := r.db.WithContext(ctx).
		Where("asset_fingerprint = ?", fingerprint).
		Order("start_time ASC, id ASC").
		Find(&result).Error; err != nil {
		return nil, fmt.Errorf("getting markers for asset: %w", err)
	}
	return result, nil
}

// ExistingCueIDs returns the set of embedded cue identifiers already imported
// for one asset. Markers created by hand carry cue ID zero and are excluded.
func (r *RepositoryImpl) ExistingCueIDs(ctx context.Context, fingerprint string) (map[uint32]bool, error) {
	var ids []uint32
	if err := r.db.WithContext(ctx).Model(&models.Marker{}).
		Where("asset_fingerprint = ? AND cue_id > 0", fingerprint).
		Pluck("cue_id", &ids).Error; err != nil {
		return nil, fmt.Errorf("getting cue ids for asset: %w", err)
	}

	set := make(map[uint32]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set, nil
}

// UpdateMarker updates an existing marker
func (r *RepositoryImpl) UpdateMarker(ctx context.Context, marker *models.Marker) error {
	result := r.db.WithContext(ctx).Save(marker)
	if result.Error != nil {
		return fmt.Errorf("updating marker: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrMarkerNotFound
	}
	return nil
}

// DeleteMarkerByUUID deletes a marker by its UUID
func (r *RepositoryImpl) DeleteMarkerByUUID(ctx context.Context, uuid string) error {
	result := r.db.WithContext(ctx).Where("uuid = ?", uuid).Delete(&models.Marker{})
	if result.Error != nil {
		return fmt.Errorf("deleting marker: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrMarkerNotFound
	}
	return nil
}
