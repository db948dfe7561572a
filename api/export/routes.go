package export

import (
	"github.com/gin-gonic/gin"

	"github.com/fieldscope/fieldrec-api/api/types"
)

// RegisterRoutes registers export routes
func RegisterRoutes(router *gin.RouterGroup, deps *types.Dependencies) {
	router.GET("", ListExport(deps))
}
