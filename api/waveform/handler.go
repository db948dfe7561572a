package waveform

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/fieldscope/fieldrec-api/api/types"
	"github.com/fieldscope/fieldrec-api/internal/models"
	"github.com/fieldscope/fieldrec-api/internal/pyramid"
	"github.com/fieldscope/fieldrec-api/internal/services/library"
	"github.com/fieldscope/fieldrec-api/internal/services/waveformcache"
	"github.com/fieldscope/fieldrec-api/internal/services/workers"
	"github.com/fieldscope/fieldrec-api/internal/wavio"
	apperrors "github.com/fieldscope/fieldrec-api/pkg/errors"
)

const maxViewportWidth = 8192

// GetWaveform resolves a viewport of an asset's waveform. When the pyramid
// is not resident yet a build is queued and the client gets 202 to poll.
func GetWaveform(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		asset, ok := lookupAsset(c, deps)
		if !ok {
			return
		}

		if deps.WaveformService == nil {
			types.SendInternalError(c, "Waveform service not available")
			return
		}

		width, ok := types.ParseQueryInt(c, "width", 800)
		if !ok {
			return
		}
		if width <= 0 || width > maxViewportWidth {
			types.SendAppError(c, apperrors.InvalidRangeError("width", fmt.Sprintf("must be between 1 and %d", maxViewportWidth)))
			return
		}

		start, ok := types.ParseQueryFloat(c, "start", 0)
		if !ok {
			return
		}
		end, ok := types.ParseQueryFloat(c, "end", asset.Duration())
		if !ok {
			return
		}

		peaks, err := deps.WaveformService.Resolve(asset.Fingerprint, start, end, width)
		if err != nil {
			switch {
			case errors.Is(err, waveformcache.ErrNotCached):
				queueBuild(c, deps, asset)
			case errors.Is(err, pyramid.ErrInvalidViewport):
				types.SendAppError(c, apperrors.InvalidRangeError("viewport", "start must precede end within the asset duration"))
			default:
				types.SendInternalError(c, "Failed to resolve waveform")
			}
			return
		}

		response := types.WaveformResponse{
			Fingerprint: asset.Fingerprint,
			Start:       start,
			End:         end,
			Width:       width,
			Duration:    asset.Duration(),
			SampleRate:  asset.SampleRate,
			Mins:        make([]float32, len(peaks)),
			Maxs:        make([]float32, len(peaks)),
		}
		for i, p := range peaks {
			response.Mins[i] = p.Min
			response.Maxs[i] = p.Max
		}

		c.JSON(http.StatusOK, response)
	}
}

// GetWaveformStatus reports whether an asset's pyramid is resident, queued
// or absent
func GetWaveformStatus(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		asset, ok := lookupAsset(c, deps)
		if !ok {
			return
		}

		if deps.WaveformService == nil {
			types.SendInternalError(c, "Waveform service not available")
			return
		}

		if _, resident := deps.WaveformService.Peek(asset.Fingerprint); resident {
			c.JSON(http.StatusOK, gin.H{
				"fingerprint": asset.Fingerprint,
				"status":      "ready",
			})
			return
		}

		if deps.WorkerPool != nil && deps.WorkerPool.Pending(buildKey(asset.Fingerprint)) {
			c.JSON(http.StatusOK, gin.H{
				"fingerprint": asset.Fingerprint,
				"status":      "building",
			})
			return
		}

		c.JSON(http.StatusNotFound, gin.H{
			"fingerprint": asset.Fingerprint,
			"status":      "not_built",
		})
	}
}

// DeleteWaveform drops an asset's pyramid from memory and durable storage
func DeleteWaveform(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		asset, ok := lookupAsset(c, deps)
		if !ok {
			return
		}

		if deps.WaveformService == nil {
			types.SendInternalError(c, "Waveform service not available")
			return
		}

		if deps.WorkerPool != nil {
			deps.WorkerPool.Cancel(buildKey(asset.Fingerprint))
		}

		if err := deps.WaveformService.Invalidate(c.Request.Context(), asset.Fingerprint); err != nil {
			types.SendInternalError(c, "Failed to invalidate waveform")
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "Waveform invalidated"})
	}
}

func lookupAsset(c *gin.Context, deps *types.Dependencies) (*models.Asset, bool) {
	fingerprint, ok := types.RequireFingerprint(c)
	if !ok {
		return nil, false
	}

	if deps.LibraryService == nil {
		types.SendInternalError(c, "Library service not available")
		return nil, false
	}

	asset, err := deps.LibraryService.GetAsset(c.Request.Context(), fingerprint)
	if err != nil {
		if errors.Is(err, library.ErrAssetNotFound) {
			types.SendNotFound(c, "Asset not found")
		} else {
			types.SendInternalError(c, "Failed to retrieve asset")
		}
		return nil, false
	}
	return asset, true
}

// queueBuild submits a background pyramid build and answers 202. A build
// already queued for the asset counts as success.
func queueBuild(c *gin.Context, deps *types.Dependencies, asset *models.Asset) {
	if deps.WorkerPool == nil {
		types.SendInternalError(c, "Worker pool not available")
		return
	}

	path := asset.Path
	service := deps.WaveformService
	err := deps.WorkerPool.Submit(workers.Task{
		Key: buildKey(asset.Fingerprint),
		Run: func(ctx context.Context) error {
			r, err := wavio.Open(path)
			if err != nil {
				return err
			}
			defer r.Close()

			_, err = service.GetOrBuild(ctx, r)
			return err
		},
	})

	switch {
	case err == nil, errors.Is(err, workers.ErrAlreadyQueued):
		c.JSON(http.StatusAccepted, gin.H{
			"fingerprint": asset.Fingerprint,
			"status":      types.StatusQueued,
		})
	case errors.Is(err, workers.ErrQueueFull):
		types.SendAppError(c, apperrors.New(apperrors.ErrCodeResourceExhaust, "Build queue is full, try again later"))
	default:
		types.SendInternalError(c, "Failed to queue waveform build")
	}
}

func buildKey(fingerprint string) string {
	return "waveform:" + fingerprint
}
