package assets

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/fieldscope/fieldrec-api/api/types"
	"github.com/fieldscope/fieldrec-api/internal/services/library"
	"github.com/fieldscope/fieldrec-api/pkg/config"
	apperrors "github.com/fieldscope/fieldrec-api/pkg/errors"
)

// ListAssets returns every catalog entry ordered by path
func ListAssets(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		if deps.LibraryService == nil {
			types.SendInternalError(c, "Library service not available")
			return
		}

		items, err := deps.LibraryService.ListAssets(c.Request.Context())
		if err != nil {
			types.SendInternalError(c, "Failed to list assets")
			return
		}

		c.JSON(http.StatusOK, types.AssetsResponse{Assets: items, Count: len(items)})
	}
}

// RecentAssets returns the most recently scanned catalog entries
func RecentAssets(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		if deps.LibraryService == nil {
			types.SendInternalError(c, "Library service not available")
			return
		}

		fallback := 20
		if config.IsInitialized() {
			if v := config.GetInt("library.recent_limit"); v > 0 {
				fallback = v
			}
		}

		limit, ok := types.ParseQueryInt(c, "limit", fallback)
		if !ok {
			return
		}
		if limit <= 0 || limit > 100 {
			types.SendBadRequest(c, "Limit must be between 1 and 100")
			return
		}

		items, err := deps.LibraryService.RecentAssets(c.Request.Context(), limit)
		if err != nil {
			types.SendInternalError(c, "Failed to list recent assets")
			return
		}

		c.JSON(http.StatusOK, types.AssetsResponse{Assets: items, Count: len(items)})
	}
}

// GetAsset returns one catalog entry by fingerprint
func GetAsset(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		fingerprint, ok := types.RequireFingerprint(c)
		if !ok {
			return
		}

		if deps.LibraryService == nil {
			types.SendInternalError(c, "Library service not available")
			return
		}

		asset, err := deps.LibraryService.GetAsset(c.Request.Context(), fingerprint)
		if err != nil {
			if errors.Is(err, library.ErrAssetNotFound) {
				types.SendAppError(c, apperrors.NotFound("asset", fingerprint))
				return
			}
			types.SendInternalError(c, "Failed to retrieve asset")
			return
		}

		c.JSON(http.StatusOK, asset)
	}
}
