package markers

import (
	"context"

	"github.com/fieldscope/fieldrec-api/internal/models"
	"github.com/fieldscope/fieldrec-api/internal/wavio"
)

// Repository defines the interface for marker data access
type Repository interface {
	// Create operations
	CreateMarker(ctx context.Context, marker *models.Marker) error

	// Read operations
	GetMarkerByUUID(ctx context.Context, uuid string) (*models.Marker, error)
	GetMarkersByFingerprint(ctx context.Context, fingerprint string) ([]models.Marker, error)
	ExistingCueIDs(ctx context.Context, fingerprint string) (map[uint32]bool, error)

	// Update operations
	UpdateMarker(ctx context.Context, marker *models.Marker) error

	// Delete operations
	DeleteMarkerByUUID(ctx context.Context, uuid string) error
}

// Service defines the interface for marker business logic
type Service interface {
	// Create operations
	CreateMarker(ctx context.Context, marker *models.Marker, duration float64) error

	// Read operations
	GetMarkerByUUID(ctx context.Context, uuid string) (*models.Marker, error)
	GetMarkersByFingerprint(ctx context.Context, fingerprint string) ([]models.Marker, error)

	// Update operations
	UpdateMarker(ctx context.Context, uuid string, label string, startTime float64, endTime *float64, duration float64) (*models.Marker, error)

	// Delete operations
	DeleteMarkerByUUID(ctx context.Context, uuid string) error

	// Import operations
	ImportCuePoints(ctx context.Context, fingerprint string, sampleRate int, duration float64, cues []wavio.CuePoint) (int, error)
}
