package markers

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/fieldscope/fieldrec-api/api/types"
	"github.com/fieldscope/fieldrec-api/internal/models"
	"github.com/fieldscope/fieldrec-api/internal/services/library"
	"github.com/fieldscope/fieldrec-api/internal/services/markers"
	"github.com/fieldscope/fieldrec-api/internal/services/sidecar"
	apperrors "github.com/fieldscope/fieldrec-api/pkg/errors"
)

// CreateMarker creates a new marker on an asset
func CreateMarker(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		asset, ok := lookupAsset(c, deps)
		if !ok {
			return
		}

		var marker models.Marker
		if !types.BindJSONOrError(c, &marker) {
			return
		}

		marker.AssetFingerprint = asset.Fingerprint

		if err := deps.MarkerService.CreateMarker(c.Request.Context(), &marker, asset.Duration()); err != nil {
			if errors.Is(err, markers.ErrInvalidRange) {
				types.SendAppError(c, apperrors.InvalidRangeError("marker", err.Error()))
			} else {
				types.SendInternalError(c, "Failed to create marker")
			}
			return
		}

		mirrorToSidecar(c, deps, asset.Fingerprint)

		types.SendCreated(c, marker)
	}
}

// GetMarkers retrieves all markers for an asset ordered by start time
func GetMarkers(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		asset, ok := lookupAsset(c, deps)
		if !ok {
			return
		}

		items, err := deps.MarkerService.GetMarkersByFingerprint(c.Request.Context(), asset.Fingerprint)
		if err != nil {
			types.SendInternalError(c, "Failed to retrieve markers")
			return
		}

		c.JSON(http.StatusOK, gin.H{"markers": items, "count": len(items)})
	}
}

// UpdateMarker updates an existing marker's label or time range
func UpdateMarker(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		markerUUID := c.Param("uuid")

		var updateData models.Marker
		if !types.BindJSONOrError(c, &updateData) {
			return
		}

		existing, err := deps.MarkerService.GetMarkerByUUID(c.Request.Context(), markerUUID)
		if err != nil {
			if errors.Is(err, markers.ErrMarkerNotFound) {
				types.SendNotFound(c, "Marker not found")
			} else {
				types.SendInternalError(c, "Failed to retrieve marker")
			}
			return
		}

		// The asset bounds the marker's time range
		duration := 0.0
		if deps.LibraryService != nil {
			if asset, err := deps.LibraryService.GetAsset(c.Request.Context(), existing.AssetFingerprint); err == nil {
				duration = asset.Duration()
			}
		}

		marker, err := deps.MarkerService.UpdateMarker(
			c.Request.Context(),
			markerUUID,
			updateData.Label,
			updateData.StartTime,
			updateData.EndTime,
			duration,
		)
		if err != nil {
			if errors.Is(err, markers.ErrInvalidRange) {
				types.SendAppError(c, apperrors.InvalidRangeError("marker", err.Error()))
			} else if errors.Is(err, markers.ErrMarkerNotFound) {
				types.SendNotFound(c, "Marker not found")
			} else {
				types.SendInternalError(c, "Failed to update marker")
			}
			return
		}

		mirrorToSidecar(c, deps, marker.AssetFingerprint)

		c.JSON(http.StatusOK, marker)
	}
}

// DeleteMarker deletes a marker
func DeleteMarker(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		markerUUID := c.Param("uuid")

		existing, err := deps.MarkerService.GetMarkerByUUID(c.Request.Context(), markerUUID)
		if err != nil {
			if errors.Is(err, markers.ErrMarkerNotFound) {
				types.SendNotFound(c, "Marker not found")
			} else {
				types.SendInternalError(c, "Failed to retrieve marker")
			}
			return
		}

		if err := deps.MarkerService.DeleteMarkerByUUID(c.Request.Context(), markerUUID); err != nil {
			types.SendInternalError(c, "Failed to delete marker")
			return
		}

		mirrorToSidecar(c, deps, existing.AssetFingerprint)

		c.JSON(http.StatusOK, gin.H{"message": "Marker deleted successfully"})
	}
}

func lookupAsset(c *gin.Context, deps *types.Dependencies) (*models.Asset, bool) {
	fingerprint, ok := types.RequireFingerprint(c)
	if !ok {
		return nil, false
	}

	if deps.LibraryService == nil || deps.MarkerService == nil {
		types.SendInternalError(c, "Marker service not available")
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

// mirrorToSidecar keeps the sidecar's marker list in step with the catalog.
// Failures are logged, the catalog row is already committed.
func mirrorToSidecar(c *gin.Context, deps *types.Dependencies, fingerprint string) {
	if deps.Sidecar == nil {
		return
	}

	items, err := deps.MarkerService.GetMarkersByFingerprint(c.Request.Context(), fingerprint)
	if err != nil {
		log.Printf("[DEBUG] Failed to read markers for sidecar mirror: %v", err)
		return
	}
	if err := deps.Sidecar.SetMarkers(fingerprint, sidecar.MarkersFromModels(items)); err != nil {
		log.Printf("[DEBUG] Failed to mirror markers to sidecar: %v", err)
	}
}
