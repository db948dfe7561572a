package tags

import (
	"github.com/gin-gonic/gin"

	"github.com/fieldscope/fieldrec-api/api/types"
)

// RegisterRoutes registers asset-scoped tag routes
func RegisterRoutes(router *gin.RouterGroup, deps *types.Dependencies) {
	router.GET("/:fingerprint/tags", GetTags(deps))
	router.PATCH("/:fingerprint/tags", UpdateTags(deps))
	router.POST("/:fingerprint/tags/save", SaveTags(deps))
}

// RegisterBatchRoutes registers tag routes that span many assets
func RegisterBatchRoutes(router *gin.RouterGroup, deps *types.Dependencies) {
	router.POST("/apply", BatchApply(deps))
}
