package api

import (
	"fmt"
	"sync"

	"github.com/gin-gonic/gin"

	"github.com/fieldscope/fieldrec-api/api/assets"
	"github.com/fieldscope/fieldrec-api/api/export"
	"github.com/fieldscope/fieldrec-api/api/health"
	"github.com/fieldscope/fieldrec-api/api/markers"
	"github.com/fieldscope/fieldrec-api/api/scan"
	"github.com/fieldscope/fieldrec-api/api/tags"
	"github.com/fieldscope/fieldrec-api/api/types"
	"github.com/fieldscope/fieldrec-api/api/version"
	"github.com/fieldscope/fieldrec-api/api/view"
	"github.com/fieldscope/fieldrec-api/api/waveform"
	"github.com/fieldscope/fieldrec-api/internal/pyramid"
	exportService "github.com/fieldscope/fieldrec-api/internal/services/export"
	libraryService "github.com/fieldscope/fieldrec-api/internal/services/library"
	markerService "github.com/fieldscope/fieldrec-api/internal/services/markers"
	"github.com/fieldscope/fieldrec-api/internal/services/sidecar"
	"github.com/fieldscope/fieldrec-api/internal/services/tagstore"
	"github.com/fieldscope/fieldrec-api/internal/services/waveformcache"
	"github.com/fieldscope/fieldrec-api/pkg/config"
)

// RegisterRoutes registers all API routes
func RegisterRoutes(engine *gin.Engine, deps *types.Dependencies, rateLimiters *sync.Map, cleanupStop chan struct{}, cleanupInitialized *sync.Once) error {
	// Register public routes (no rate limiting)
	health.RegisterRoutes(engine, deps)
	version.RegisterRoutes(engine, deps)

	// Setup 404 handler
	engine.NoRoute(NotFoundHandler())

	// Load config for API routes
	cfg, err := config.GetConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if cfg == nil {
		return fmt.Errorf("config is nil")
	}

	// Initialize services if not already set
	if deps == nil {
		deps = &types.Dependencies{}
	}

	if deps.DB != nil && deps.DB.DB != nil {
		if err := initializeServices(deps, cfg); err != nil {
			return err
		}
	}

	// API v1 routes
	v1 := engine.Group("/api/v1")

	limit := func(name string, fallback int) gin.HandlerFunc {
		rps, burst := limitFor(cfg, name, fallback)
		return PerClientRateLimit(rateLimiters, cleanupStop, cleanupInitialized, rps, burst)
	}

	// Catalog routes with the default rate limit
	assetGroup := v1.Group("/assets")
	if cfg.RateLimiting.Enabled {
		assetGroup.Use(limit("default", 120))
	}
	assets.RegisterRoutes(assetGroup, deps)
	markers.RegisterRoutes(assetGroup, deps)
	tags.RegisterRoutes(assetGroup, deps)
	view.RegisterRoutes(assetGroup, deps)

	// Waveform resolution is CPU bound, so it gets its own limit
	waveformGroup := v1.Group("/assets")
	if cfg.RateLimiting.Enabled {
		waveformGroup.Use(limit("waveform", 100))
	}
	waveform.RegisterRoutes(waveformGroup, deps)

	// Marker mutations addressed by marker UUID rather than asset
	markerGroup := v1.Group("/markers")
	if cfg.RateLimiting.Enabled {
		markerGroup.Use(limit("default", 120))
	}
	markers.RegisterDirectRoutes(markerGroup, deps)

	// Batch tag application across many assets
	tagGroup := v1.Group("/tags")
	if cfg.RateLimiting.Enabled {
		tagGroup.Use(limit("default", 120))
	}
	tags.RegisterBatchRoutes(tagGroup, deps)

	// Export of reconciled metadata
	exportGroup := v1.Group("/export")
	if cfg.RateLimiting.Enabled {
		exportGroup.Use(limit("default", 120))
	}
	export.RegisterRoutes(exportGroup, deps)

	// Library scans walk the whole tree, so they get a tight limit
	scanGroup := v1.Group("/scan")
	if cfg.RateLimiting.Enabled {
		scanGroup.Use(limit("scan", 10))
	}
	scan.RegisterRoutes(scanGroup, deps)

	return nil
}

// limitFor converts a per-minute endpoint budget into the per-second rate
// and burst the limiter middleware takes
func limitFor(cfg *config.Config, name string, fallback int) (int, int) {
	perMinute := fallback
	if v, ok := cfg.RateLimiting.Endpoints[name]; ok && v > 0 {
		perMinute = v
	}
	rps := perMinute / 60
	if rps < 1 {
		rps = 1
	}
	return rps, rps * 2
}

// initializeServices wires the service graph from the database connection
// and configuration, leaving any dependency the caller already set alone
func initializeServices(deps *types.Dependencies, cfg *config.Config) error {
	if deps.Sidecar == nil {
		sc := sidecar.NewStore(cfg.Library.SidecarPath)
		if err := sc.Load(); err != nil {
			return fmt.Errorf("failed to load sidecar: %w", err)
		}
		deps.Sidecar = sc
	}

	if deps.MarkerService == nil {
		deps.MarkerService = markerService.NewService(markerService.NewRepository(deps.DB.DB))
	}

	if deps.WaveformService == nil {
		builder := pyramid.NewBuilder(cfg.Engine.BaseFactor, cfg.Engine.LevelMultiplier)
		repo := waveformcache.NewRepository(deps.DB.DB)
		budget := int64(cfg.Engine.CacheBudgetMB) * 1024 * 1024
		deps.WaveformService = waveformcache.NewService(builder, repo, budget)
	}

	if deps.TagManager == nil {
		deps.TagManager = tagstore.NewManager(tagstore.NewWavMedia(), deps.Sidecar)
	}

	if deps.LibraryService == nil {
		deps.LibraryService = libraryService.NewService(
			libraryService.NewRepository(deps.DB.DB),
			deps.MarkerService,
			deps.WaveformService,
			deps.Sidecar,
			libraryService.Options{
				Root:        cfg.Library.Root,
				Extensions:  cfg.Library.Extensions,
				Recursive:   cfg.Library.Recursive,
				DefaultTags: cfg.Tags.Defaults,
			},
		)
	}

	if deps.ExportService == nil {
		deps.ExportService = exportService.NewService(deps.LibraryService, deps.MarkerService, deps.TagManager)
	}

	return nil
}

// NotFoundHandler handles 404 errors
func NotFoundHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(404, gin.H{
			"status":  "error",
			"message": "The requested endpoint was not found",
			"path":    c.Request.URL.Path,
		})
	}
}
