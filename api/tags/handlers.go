package tags

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/fieldscope/fieldrec-api/api/types"
	"github.com/fieldscope/fieldrec-api/internal/models"
	"github.com/fieldscope/fieldrec-api/internal/services/library"
	"github.com/fieldscope/fieldrec-api/internal/services/tagstore"
	"github.com/fieldscope/fieldrec-api/internal/wavio"
	apperrors "github.com/fieldscope/fieldrec-api/pkg/errors"
)

// UpdateTagsRequest sets and deletes tag keys in one call. Set values may be
// JSON strings or numbers.
type UpdateTagsRequest struct {
	Set    map[string]interface{} `json:"set"`
	Delete []string               `json:"delete"`
}

// BatchApplyRequest applies the same tag values across many assets
type BatchApplyRequest struct {
	Fingerprints []string               `json:"fingerprints" binding:"required"`
	Set          map[string]interface{} `json:"set" binding:"required"`
}

// BatchAssetResult is the per-asset outcome of a batch apply
type BatchAssetResult struct {
	Fingerprint string `json:"fingerprint"`
	Status      string `json:"status"`
	Error       string `json:"error,omitempty"`
}

// GetTags returns the reconciled tag set for an asset
func GetTags(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		asset, store, ok := reconciledStore(c, deps)
		if !ok {
			return
		}

		sendTagState(c, asset.Fingerprint, store)
	}
}

// UpdateTags applies tag edits to an asset's working copy. Edits stay in
// memory until the save endpoint is called.
func UpdateTags(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		var request UpdateTagsRequest
		if !types.BindJSONOrError(c, &request) {
			return
		}

		values := make(map[string]models.TagValue, len(request.Set))
		for key, raw := range request.Set {
			value, ok := tagValueFromJSON(raw)
			if !ok {
				types.SendBadRequest(c, "Tag values must be strings or numbers")
				return
			}
			values[key] = value
		}

		asset, store, ok := reconciledStore(c, deps)
		if !ok {
			return
		}

		for key, value := range values {
			if err := store.SetTag(key, value); err != nil {
				types.SendInternalError(c, "Failed to set tag")
				return
			}
		}
		for _, key := range request.Delete {
			if err := store.DeleteTag(key); err != nil {
				types.SendInternalError(c, "Failed to delete tag")
				return
			}
		}

		sendTagState(c, asset.Fingerprint, store)
	}
}

// SaveTags writes an asset's pending tag edits to the sidecar and the file
func SaveTags(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		asset, store, ok := reconciledStore(c, deps)
		if !ok {
			return
		}

		if err := store.Save(c.Request.Context()); err != nil {
			if errors.Is(err, tagstore.ErrStaleAsset) {
				types.SendAppError(c, apperrors.StaleAssetError(asset.Path))
			} else {
				types.SendInternalError(c, "Failed to save tags")
			}
			return
		}

		sendTagState(c, asset.Fingerprint, store)
	}
}

// BatchApply sets the same tags on many assets and saves each one
func BatchApply(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		var request BatchApplyRequest
		if !types.BindJSONOrError(c, &request) {
			return
		}
		if len(request.Fingerprints) == 0 {
			types.SendBadRequest(c, "No fingerprints given")
			return
		}

		values := make(map[string]models.TagValue, len(request.Set))
		for key, raw := range request.Set {
			value, ok := tagValueFromJSON(raw)
			if !ok {
				types.SendBadRequest(c, "Tag values must be strings or numbers")
				return
			}
			values[key] = value
		}

		if deps.LibraryService == nil || deps.TagManager == nil {
			types.SendInternalError(c, "Tag service not available")
			return
		}

		results := make([]BatchAssetResult, 0, len(request.Fingerprints))
		saved := 0
		for _, fingerprint := range request.Fingerprints {
			result := applyToAsset(c, deps, fingerprint, values)
			if result.Status == "saved" {
				saved++
			}
			results = append(results, result)
		}

		c.JSON(http.StatusOK, gin.H{
			"results": results,
			"saved":   saved,
		})
	}
}

func applyToAsset(c *gin.Context, deps *types.Dependencies, fingerprint string, values map[string]models.TagValue) BatchAssetResult {
	result := BatchAssetResult{Fingerprint: fingerprint}

	asset, err := deps.LibraryService.GetAsset(c.Request.Context(), fingerprint)
	if err != nil {
		result.Status = "error"
		result.Error = "asset not found"
		return result
	}

	store := deps.TagManager.ForAsset(asset.Path)
	if err := ensureReconciled(c, store); err != nil {
		result.Status = "error"
		result.Error = err.Error()
		return result
	}

	for key, value := range values {
		if err := store.SetTag(key, value); err != nil {
			result.Status = "error"
			result.Error = err.Error()
			return result
		}
	}

	if err := store.Save(c.Request.Context()); err != nil {
		if errors.Is(err, tagstore.ErrStaleAsset) {
			result.Status = "stale"
		} else {
			result.Status = "error"
		}
		result.Error = err.Error()
		return result
	}

	result.Status = "saved"
	return result
}

// reconciledStore resolves the asset and brings its tag store to a state
// where reads and edits are allowed
func reconciledStore(c *gin.Context, deps *types.Dependencies) (*models.Asset, *tagstore.Store, bool) {
	fingerprint, ok := types.RequireFingerprint(c)
	if !ok {
		return nil, nil, false
	}

	if deps.LibraryService == nil || deps.TagManager == nil {
		types.SendInternalError(c, "Tag service not available")
		return nil, nil, false
	}

	asset, err := deps.LibraryService.GetAsset(c.Request.Context(), fingerprint)
	if err != nil {
		if errors.Is(err, library.ErrAssetNotFound) {
			types.SendNotFound(c, "Asset not found")
		} else {
			types.SendInternalError(c, "Failed to retrieve asset")
		}
		return nil, nil, false
	}

	store := deps.TagManager.ForAsset(asset.Path)
	if err := ensureReconciled(c, store); err != nil {
		switch {
		case errors.Is(err, tagstore.ErrSaveInProgress):
			types.SendConflict(c, "A save is in progress for this asset")
		case errors.Is(err, wavio.ErrUnsupportedFormat):
			types.SendAppError(c, apperrors.Wrap(err, apperrors.ErrCodeUnsupportedFormat, "Audio format not supported"))
		case errors.Is(err, wavio.ErrTruncated):
			types.SendAppError(c, apperrors.Wrap(err, apperrors.ErrCodeTruncated, "Audio file is truncated"))
		default:
			types.SendAppError(c, apperrors.IOError(asset.Path, err))
		}
		return nil, nil, false
	}

	return asset, store, true
}

func ensureReconciled(c *gin.Context, store *tagstore.Store) error {
	switch store.State() {
	case tagstore.StateUnloaded:
		if err := store.Load(c.Request.Context()); err != nil {
			return err
		}
		return store.Reconcile()
	case tagstore.StateLoaded:
		return store.Reconcile()
	case tagstore.StateSaving:
		return tagstore.ErrSaveInProgress
	default:
		return nil
	}
}

func sendTagState(c *gin.Context, fingerprint string, store *tagstore.Store) {
	c.JSON(http.StatusOK, gin.H{
		"fingerprint": fingerprint,
		"state":       store.State().String(),
		"tags":        store.Tags().Values,
	})
}

func tagValueFromJSON(raw interface{}) (models.TagValue, bool) {
	switch v := raw.(type) {
	case string:
		return models.String(v), true
	case float64:
		return models.Number(v), true
	default:
		return models.TagValue{}, false
	}
}
