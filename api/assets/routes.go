package assets

import (
	"github.com/gin-gonic/gin"

	"github.com/fieldscope/fieldrec-api/api/types"
)

// RegisterRoutes registers asset catalog routes
func RegisterRoutes(router *gin.RouterGroup, deps *types.Dependencies) {
	router.GET("", ListAssets(deps))
	router.GET("/recent", RecentAssets(deps))
	router.GET("/:fingerprint", GetAsset(deps))
}
