package types

import (
	"github.com/fieldscope/fieldrec-api/internal/database"
	"github.com/fieldscope/fieldrec-api/internal/services/export"
	"github.com/fieldscope/fieldrec-api/internal/services/library"
	"github.com/fieldscope/fieldrec-api/internal/services/markers"
	"github.com/fieldscope/fieldrec-api/internal/services/sidecar"
	"github.com/fieldscope/fieldrec-api/internal/services/tagstore"
	"github.com/fieldscope/fieldrec-api/internal/services/waveformcache"
	"github.com/fieldscope/fieldrec-api/internal/services/workers"
)

// Dependencies holds all the dependencies needed by handlers
type Dependencies struct {
	DB              *database.DB
	Sidecar         *sidecar.Store
	LibraryService  library.Service
	MarkerService   markers.Service
	WaveformService waveformcache.Service
	TagManager      *tagstore.Manager
	ExportService   export.Service
	WorkerPool      *workers.Pool
}
