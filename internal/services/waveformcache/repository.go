package waveformcache

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/fieldscope/fieldrec-api/internal/models"
)

// repository implements Repository
type repository struct {
	db *gorm.DB
}

// NewRepository creates a new waveform record repository
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

// GetByFingerprint retrieves the encoded pyramid for an asset
func (r *repository) GetByFingerprint(ctx context.Context, fingerprint string) (*models.WaveformRecord, error) {
	var record models.WaveformRecord
	err := r.db.WithContext(ctx).
		Where("asset_fingerprint = ?", fingerprint).
		First(&record).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}

	return &record, nil
}

// Create saves a new waveform record
func (r *repository) Create(ctx context.Context, record *models.WaveformRecord) error {
	return r.db.WithContext(ctx).Create(record).Error
}

// Update modifies an existing waveform record
func (r *repository) Update(ctx context.Context, record *models.WaveformRecord) error {
	return r.db.WithContext(ctx).Save(record).Error
}

// Delete removes a waveform record by fingerprint
func (r *repository) Delete(ctx context.Context, fingerprint string) error {
	result := r.db.WithContext(ctx).
		Where("asset_fingerprint = ?", fingerprint).
		Delete(&models.WaveformRecord{})

	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		return ErrRecordNotFound
	}

	return nil
}

// Exists checks if a waveform record exists for an asset
func (r *repository) Exists(ctx context.Context, fingerprint string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.WaveformRecord{}).
		Where("asset_fingerprint = ?", fingerprint).
		Count(&count).Error

	if err != nil {
		return false, err
	}

	return count > 0, nil
}
