package view

import (
	"github.com/gin-gonic/gin"

	"github.com/fieldscope/fieldrec-api/api/types"
)

// RegisterRoutes registers view state routes
func RegisterRoutes(router *gin.RouterGroup, deps *types.Dependencies) {
	router.GET("/:fingerprint/view", GetView(deps))
	router.PUT("/:fingerprint/view", PutView(deps))
}
