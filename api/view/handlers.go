package view

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/fieldscope/fieldrec-api/api/types"
	"github.com/fieldscope/fieldrec-api/internal/models"
	"github.com/fieldscope/fieldrec-api/internal/services/library"
	apperrors "github.com/fieldscope/fieldrec-api/pkg/errors"
)

// GetView returns the remembered view state for an asset. An asset that was
// never viewed gets the zero state.
func GetView(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		asset, ok := lookupAsset(c, deps)
		if !ok {
			return
		}

		var state models.ViewState
		if entry, exists := deps.Sidecar.Get(asset.Fingerprint); exists && entry.View != nil {
			state = *entry.View
		}

		c.JSON(http.StatusOK, gin.H{
			"fingerprint": asset.Fingerprint,
			"view":        state,
		})
	}
}

// PutView stores the view state for an asset. Sending the zero state clears
// the remembered view.
func PutView(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		asset, ok := lookupAsset(c, deps)
		if !ok {
			return
		}

		var state models.ViewState
		if !types.BindJSONOrError(c, &state) {
			return
		}

		if state.ZoomStart < 0 || state.Position < 0 {
			types.SendAppError(c, apperrors.ValidationError("view", "positions must not be negative"))
			return
		}
		// A zero zoom range means "full duration"; anything else must be
		// a forward range
		if state.ZoomEnd < state.ZoomStart || (state.ZoomEnd == state.ZoomStart && state.ZoomStart != 0) {
			types.SendAppError(c, apperrors.ValidationError("view", "zoom end must be after zoom start"))
			return
		}

		if err := deps.Sidecar.SetView(asset.Fingerprint, state); err != nil {
			types.SendInternalError(c, "Failed to store view state")
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"fingerprint": asset.Fingerprint,
			"view":        state,
		})
	}
}

func lookupAsset(c *gin.Context, deps *types.Dependencies) (*models.Asset, bool) {
	fingerprint, ok := types.RequireFingerprint(c)
	if !ok {
		return nil, false
	}

	if deps.LibraryService == nil || deps.Sidecar == nil {
		types.SendInternalError(c, "View service not available")
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
