package waveform

import (
	"github.com/gin-gonic/gin"

	"github.com/fieldscope/fieldrec-api/api/types"
)

// RegisterRoutes registers all waveform-related routes
func RegisterRoutes(router *gin.RouterGroup, deps *types.Dependencies) {
	router.GET("/:fingerprint/waveform", GetWaveform(deps))
	router.GET("/:fingerprint/waveform/status", GetWaveformStatus(deps))
	router.DELETE("/:fingerprint/waveform", DeleteWaveform(deps))
}
