package export

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/fieldscope/fieldrec-api/api/types"
)

// ListExport returns every cataloged asset with its reconciled tags and
// markers, the payload a dataset or archive tool consumes
func ListExport(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		if deps.ExportService == nil {
			types.SendInternalError(c, "Export service not available")
			return
		}

		items, err := deps.ExportService.ListAssetsWithTags(c.Request.Context())
		if err != nil {
			types.SendInternalError(c, "Failed to export assets")
			return
		}

		c.JSON(http.StatusOK, gin.H{"assets": items, "count": len(items)})
	}
}
