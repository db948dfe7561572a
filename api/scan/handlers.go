package scan

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/fieldscope/fieldrec-api/api/types"
)

// Scan walks the library root and refreshes the catalog. The walk runs on
// the request context, so a dropped connection stops it.
func Scan(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		if deps.LibraryService == nil {
			types.SendInternalError(c, "Library service not available")
			return
		}

		result, err := deps.LibraryService.Scan(c.Request.Context())
		if err != nil {
			types.SendInternalError(c, "Scan failed: "+err.Error())
			return
		}

		c.JSON(http.StatusOK, result)
	}
}
