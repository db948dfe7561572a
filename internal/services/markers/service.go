package markers

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"

	"github.com/fieldscope/fieldrec-api/internal/models"
	"github.com/fieldscope/fieldrec-api/internal/wavio"
)

// ServiceImpl implements the Service interface
type ServiceImpl struct {
	repository Repository
}

// NewService creates a new marker service
func NewService(repository Repository) Service {
	return &ServiceImpl{
		repository: repository,
	}
}

// CreateMarker creates a new marker with validation. Duration is the asset
// length in seconds; pass zero to skip the upper bound check.
func (s *ServiceImpl) CreateMarker(ctx context.Context, marker *models.Marker, duration float64) error {
	if marker.AssetFingerprint == "" {
		return fmt.Errorf("asset fingerprint is required")
	}
	if err := validateRange(marker.StartTime, marker.EndTime, duration); err != nil {
		return err
	}

	// Generate UUID if not provided
	if marker.UUID == "" {
		marker.UUID = uuid.New().String()
	}

	return s.repository.CreateMarker(ctx, marker)
}

// GetMarkerByUUID retrieves a marker by its UUID
func (s *ServiceImpl) GetMarkerByUUID(ctx context.Context, uuid string) (*models.Marker, error) {
	return s.repository.GetMarkerByUUID(ctx, uuid)
}

// GetMarkersByFingerprint retrieves all markers for a specific asset
func (s *ServiceImpl) GetMarkersByFingerprint(ctx context.Context, fingerprint string) ([]models.Marker, error) {
	return s.repository.GetMarkersByFingerprint(ctx, fingerprint)
}

// UpdateMarker updates an existing marker
func (s *ServiceImpl) UpdateMarker(ctx context.Context, markerUUID string, label string, startTime float64, endTime *float64, duration float64) (*models.Marker, error) {
	if err := validateRange(startTime, endTime, duration); err != nil {
		return nil, err
	}

	marker, err := s.repository.GetMarkerByUUID(ctx, markerUUID)
	if err != nil {
		return nil, err
	}

	marker.Label = label
	marker.StartTime = startTime
	marker.EndTime = endTime

	if err := s.repository.UpdateMarker(ctx, marker); err != nil {
		return nil, err
	}

	return marker, nil
}

// DeleteMarkerByUUID deletes a marker by its UUID
func (s *ServiceImpl) DeleteMarkerByUUID(ctx context.Context, uuid string) error {
	return s.repository.DeleteMarkerByUUID(ctx, uuid)
}

// ImportCuePoints turns a file's embedded cue points into markers. Cue IDs
// imported on a previous scan are skipped, so re-scanning an unchanged file
// is a no-op. Returns the number of markers created.
func (s *ServiceImpl) ImportCuePoints(ctx context.Context, fingerprint string, sampleRate int, duration float64, cues []wavio.CuePoint) (int, error) {
	if sampleRate <= 0 {
		return 0, fmt.Errorf("invalid sample rate: %d", sampleRate)
	}

	existing, err := s.repository.ExistingCueIDs(ctx, fingerprint)
	if err != nil {
		return 0, err
	}

	created := 0
	for _, cue := range cues {
		if existing[cue.ID] {
			continue
		}

		startTime := float64(cue.SampleOffset) / float64(sampleRate)
		if duration > 0 && startTime >= duration {
			log.Printf("[DEBUG] Skipping cue %d past end of asset %s", cue.ID, fingerprint)
			continue
		}

		marker := &models.Marker{
			UUID:             uuid.New().String(),
			AssetFingerprint: fingerprint,
			StartTime:        startTime,
			Label:            cue.Label,
			CueID:            cue.ID,
		}
		if err := s.repository.CreateMarker(ctx, marker); err != nil {
			return created, err
		}
		created++
	}

	return created, nil
}

// validateRange enforces 0 <= start < duration and, for range markers,
// end > start.
func validateRange(startTime float64, endTime *float64, duration float64) error {
	if startTime < 0 {
		return fmt.Errorf("%w: start time %f is negative", ErrInvalidRange, startTime)
	}
	if duration > 0 && startTime >= duration {
		return fmt.Errorf("%w: start time %f is past the asset duration %f", ErrInvalidRange, startTime, duration)
	}
	if endTime != nil {
		if *endTime <= startTime {
			return fmt.Errorf("%w: end time %f is not after start time %f", ErrInvalidRange, *endTime, startTime)
		}
		if duration > 0 && *endTime > duration {
			return fmt.Errorf("%w: end time %f is past the asset duration %f", ErrInvalidRange, *endTime, duration)
		}
	}
	return nil
}
