package markers

import (
	"github.com/gin-gonic/gin"

	"github.com/fieldscope/fieldrec-api/api/types"
)

// RegisterRoutes registers asset-scoped marker routes
func RegisterRoutes(router *gin.RouterGroup, deps *types.Dependencies) {
	router.POST("/:fingerprint/markers", CreateMarker(deps))
	router.GET("/:fingerprint/markers", GetMarkers(deps))
}

// RegisterDirectRoutes registers marker routes addressed by marker UUID
func RegisterDirectRoutes(router *gin.RouterGroup, deps *types.Dependencies) {
	router.PUT("/:uuid", UpdateMarker(deps))
	router.DELETE("/:uuid", DeleteMarker(deps))
}
