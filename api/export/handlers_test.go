package export_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apiexport "github.com/fieldscope/fieldrec-api/api/export"
	"github.com/fieldscope/fieldrec-api/api/types"
	"github.com/fieldscope/fieldrec-api/internal/database"
	"github.com/fieldscope/fieldrec-api/internal/models"
	"github.com/fieldscope/fieldrec-api/internal/services/export"
	"github.com/fieldscope/fieldrec-api/internal/services/library"
	"github.com/fieldscope/fieldrec-api/internal/services/markers"
	"github.com/fieldscope/fieldrec-api/internal/services/sidecar"
	"github.com/fieldscope/fieldrec-api/internal/services/tagstore"
	"github.com/fieldscope/fieldrec-api/internal/wavio"
)

// stubMedia stands in for real files so reconciliation can run
type stubMedia struct {
	fingerprints map[string]string
}

func (m stubMedia) ReadInfo(path string) (*tagstore.AssetInfo, error) {
	return &tagstore.AssetInfo{
		Fingerprint: m.fingerprints[path],
		Duration:    20,
		SampleRate:  48000,
	}, nil
}

func (m stubMedia) Fingerprint(path string) (string, error) {
	return m.fingerprints[path], nil
}

func (m stubMedia) WriteInfo(path string, tags []wavio.InfoTag) error {
	return nil
}

func TestListExport(t *testing.T) {
	gin.SetMode(gin.TestMode)

	db, err := database.Initialize(":memory:", false)
	require.NoError(t, err)
	require.NoError(t, db.Migrate())
	t.Cleanup(func() { db.Close() })

	sc := sidecar.NewStore(filepath.Join(t.TempDir(), "metadata.json"))
	require.NoError(t, sc.Load())

	asset := models.Asset{
		Fingerprint:   "fp-marsh",
		Path:          "/rec/marsh.wav",
		SampleRate:    48000,
		Channels:      2,
		BitDepth:      24,
		TotalFrames:   960000,
		LastScannedAt: time.Now().UTC(),
	}
	require.NoError(t, db.DB.Create(&asset).Error)

	// Sidecar holds the edited tags; reconciliation merges them over the
	// (empty) embedded tags
	tagSet := models.NewTagSet()
	tagSet.Set("title", models.String("Marsh at dusk"))
	require.NoError(t, sc.SetTags("fp-marsh", "/rec/marsh.wav", tagSet))

	markerService := markers.NewService(markers.NewRepository(db.DB))
	end := 4.0
	marker := models.Marker{
		AssetFingerprint: "fp-marsh",
		StartTime:        1.0,
		EndTime:          &end,
		Label:            "Frogs",
	}
	require.NoError(t, markerService.CreateMarker(context.Background(), &marker, 20.0))

	libraryService := library.NewService(library.NewRepository(db.DB), nil, nil, sc, library.Options{})
	deps := &types.Dependencies{
		DB:             db,
		Sidecar:        sc,
		LibraryService: libraryService,
		MarkerService:  markerService,
	}
	manager := tagstore.NewManager(stubMedia{fingerprints: map[string]string{"/rec/marsh.wav": "fp-marsh"}}, sc)
	deps.ExportService = export.NewService(libraryService, markerService, manager)

	router := gin.New()
	apiexport.RegisterRoutes(router.Group("/export"), deps)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/export", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response struct {
		Assets []export.AssetExport `json:"assets"`
		Count  int                  `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	require.Equal(t, 1, response.Count)

	got := response.Assets[0]
	assert.Equal(t, "fp-marsh", got.Asset.Fingerprint)
	require.Len(t, got.Markers, 1)
	assert.Equal(t, "Frogs", got.Markers[0].Label)

	value, ok := got.Tags.Get("title")
	require.True(t, ok)
	assert.Equal(t, models.String("Marsh at dusk"), value)
}
