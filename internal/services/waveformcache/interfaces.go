package waveformcache

import (
	"context"

	"github.com/fieldscope/fieldrec-api/internal/models"
	"github.com/fieldscope/fieldrec-api/internal/pyramid"
)

// Repository defines the interface for persisted pyramid data access
type Repository interface {
	// GetByFingerprint retrieves the encoded pyramid for an asset
	GetByFingerprint(ctx context.Context, fingerprint string) (*models.WaveformRecord, error)

	// Create saves a new waveform record
	Create(ctx context.Context, record *models.WaveformRecord) error

	// Update modifies an existing waveform record
	Update(ctx context.Context, record *models.WaveformRecord) error

	// Delete removes a waveform record by fingerprint
	Delete(ctx context.Context, fingerprint string) error

	// Exists checks if a waveform record exists for an asset
	Exists(ctx context.Context, fingerprint string) (bool, error)
}

// Service defines the interface for the in-memory pyramid cache
type Service interface {
	// GetOrBuild returns the asset's pyramid, building it at most once no
	// matter how many callers ask concurrently
	GetOrBuild(ctx context.Context, src pyramid.FrameSource) (*pyramid.Pyramid, error)

	// Peek returns a resident pyramid without building
	Peek(fingerprint string) (*pyramid.Pyramid, bool)

	// Pin protects a resident pyramid from eviction
	Pin(fingerprint string) error

	// Unpin releases a pin
	Unpin(fingerprint string)

	// Invalidate drops an asset's pyramid from memory and durable storage
	Invalidate(ctx context.Context, fingerprint string) error

	// Resolve renders a viewport from the asset's resident pyramid
	Resolve(fingerprint string, startSec, endSec float64, width int) ([]pyramid.Peak, error)

	// Subscribe registers for cache events
	Subscribe() (<-chan Event, func())

	// MemUsed reports the bytes currently held by resident pyramids
	MemUsed() int64
}
