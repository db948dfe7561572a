package library_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	apiassets "github.com/fieldscope/fieldrec-api/api/assets"
	apiexport "github.com/fieldscope/fieldrec-api/api/export"
	apimarkers "github.com/fieldscope/fieldrec-api/api/markers"
	apiscan "github.com/fieldscope/fieldrec-api/api/scan"
	apitags "github.com/fieldscope/fieldrec-api/api/tags"
	apiwaveform "github.com/fieldscope/fieldrec-api/api/waveform"
	"github.com/fieldscope/fieldrec-api/api/types"
	"github.com/fieldscope/fieldrec-api/internal/database"
	"github.com/fieldscope/fieldrec-api/internal/models"
	"github.com/fieldscope/fieldrec-api/internal/pyramid"
	"github.com/fieldscope/fieldrec-api/internal/services/export"
	"github.com/fieldscope/fieldrec-api/internal/services/library"
	"github.com/fieldscope/fieldrec-api/internal/services/markers"
	"github.com/fieldscope/fieldrec-api/internal/services/sidecar"
	"github.com/fieldscope/fieldrec-api/internal/services/tagstore"
	"github.com/fieldscope/fieldrec-api/internal/services/waveformcache"
	"github.com/fieldscope/fieldrec-api/internal/services/workers"
)

// PipelineSuite drives the whole flow through the HTTP surface: scan a
// library root, resolve waveforms, attach markers and tags, export.
type PipelineSuite struct {
	t        *testing.T
	root     string
	deps     *types.Dependencies
	waveform waveformcache.Service
	router   *gin.Engine
}

func setupPipelineSuite(t *testing.T) *PipelineSuite {
	gin.SetMode(gin.TestMode)

	db, err := database.Initialize(":memory:", false)
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	if err := db.Migrate(); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	root := t.TempDir()
	writePipelineWav(t, filepath.Join(root, "creek.wav"), 44100, 1)
	writePipelineWav(t, filepath.Join(root, "dawn.wav"), 22050, 2)

	sc := sidecar.NewStore(filepath.Join(t.TempDir(), "metadata.json"))
	if err := sc.Load(); err != nil {
		t.Fatalf("Failed to load sidecar: %v", err)
	}

	markerService := markers.NewService(markers.NewRepository(db.DB))

	builder := pyramid.NewBuilder(100, 4)
	waveformService := waveformcache.NewService(builder, waveformcache.NewRepository(db.DB), 0)

	tagManager := tagstore.NewManager(tagstore.NewWavMedia(), sc)

	libraryService := library.NewService(
		library.NewRepository(db.DB),
		markerService,
		waveformService,
		sc,
		library.Options{Root: root, Extensions: []string{".wav"}, Recursive: true},
	)

	pool := workers.NewPool(1, 10)
	if err := pool.Start(context.Background()); err != nil {
		t.Fatalf("Failed to start worker pool: %v", err)
	}
	t.Cleanup(pool.Stop)

	deps := &types.Dependencies{
		DB:              db,
		Sidecar:         sc,
		LibraryService:  libraryService,
		MarkerService:   markerService,
		WaveformService: waveformService,
		TagManager:      tagManager,
		WorkerPool:      pool,
	}
	deps.ExportService = export.NewService(libraryService, markerService, tagManager)

	router := gin.New()
	v1 := router.Group("/api/v1")

	assetGroup := v1.Group("/assets")
	apiassets.RegisterRoutes(assetGroup, deps)
	apimarkers.RegisterRoutes(assetGroup, deps)
	apitags.RegisterRoutes(assetGroup, deps)
	apiwaveform.RegisterRoutes(v1.Group("/assets"), deps)
	apimarkers.RegisterDirectRoutes(v1.Group("/markers"), deps)
	apiexport.RegisterRoutes(v1.Group("/export"), deps)
	apiscan.RegisterRoutes(v1.Group("/scan"), deps)

	return &PipelineSuite{
		t:        t,
		root:     root,
		deps:     deps,
		waveform: waveformService,
		router:   router,
	}
}

func writePipelineWav(t *testing.T, path string, frames, seed int) {
	t.Helper()

	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("Failed to create %s: %v", path, err)
	}

	enc := wav.NewEncoder(f, 44100, 16, 1, 1)
	data := make([]int, frames)
	for i := range data {
		data[i] = (i*131 + seed*7919) % 32768
	}
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: 44100},
		Data:           data,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		t.Fatalf("Failed to write samples: %v", err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("Failed to finalize wav: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("Failed to close file: %v", err)
	}
}

func (suite *PipelineSuite) do(method, path string, body interface{}) *httptest.ResponseRecorder {
	suite.t.Helper()

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			suite.t.Fatalf("Failed to marshal request body: %v", err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)
	return w
}

func (suite *PipelineSuite) decode(w *httptest.ResponseRecorder, out interface{}) {
	suite.t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), out); err != nil {
		suite.t.Fatalf("Failed to decode response %q: %v", w.Body.String(), err)
	}
}

func (suite *PipelineSuite) scan() {
	suite.t.Helper()

	w := suite.do(http.MethodPost, "/api/v1/scan", nil)
	if w.Code != http.StatusOK {
		suite.t.Fatalf("Scan returned %d: %s", w.Code, w.Body.String())
	}

	var result library.ScanResult
	suite.decode(w, &result)
	if result.Added != 2 {
		suite.t.Fatalf("Expected 2 assets added, got %+v", result)
	}
}

func (suite *PipelineSuite) listAssets() []models.Asset {
	suite.t.Helper()

	w := suite.do(http.MethodGet, "/api/v1/assets", nil)
	if w.Code != http.StatusOK {
		suite.t.Fatalf("List assets returned %d: %s", w.Code, w.Body.String())
	}

	var listing struct {
		Assets []models.Asset `json:"assets"`
		Count  int            `json:"count"`
	}
	suite.decode(w, &listing)
	if listing.Count != len(listing.Assets) {
		suite.t.Fatalf("Count %d does not match %d assets", listing.Count, len(listing.Assets))
	}
	return listing.Assets
}

func TestScanThenWaveformResolution(t *testing.T) {
	suite := setupPipelineSuite(t)
	suite.scan()

	assets := suite.listAssets()
	if len(assets) != 2 {
		t.Fatalf("Expected 2 assets after scan, got %d", len(assets))
	}
	fp := assets[0].Fingerprint

	// First request queues a build
	w := suite.do(http.MethodGet, "/api/v1/assets/"+fp+"/waveform?width=150", nil)
	if w.Code != http.StatusAccepted {
		t.Fatalf("Expected 202 on cold cache, got %d: %s", w.Code, w.Body.String())
	}

	deadline := time.Now().Add(5 * time.Second)
	for {
		if _, ok := suite.waveform.Peek(fp); ok {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("Pyramid never became resident")
		}
		time.Sleep(10 * time.Millisecond)
	}

	w = suite.do(http.MethodGet, "/api/v1/assets/"+fp+"/waveform?width=150", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200 once built, got %d: %s", w.Code, w.Body.String())
	}

	var resolved types.WaveformResponse
	suite.decode(w, &resolved)
	if len(resolved.Mins) != 150 || len(resolved.Maxs) != 150 {
		t.Errorf("Expected 150 columns, got %d mins / %d maxs", len(resolved.Mins), len(resolved.Maxs))
	}
	if resolved.SampleRate != 44100 {
		t.Errorf("Expected sample rate 44100, got %d", resolved.SampleRate)
	}

	w = suite.do(http.MethodGet, "/api/v1/assets/"+fp+"/waveform/status", nil)
	if w.Code != http.StatusOK {
		t.Errorf("Expected 200 from status once built, got %d", w.Code)
	}
}

func TestMarkerTagExportFlow(t *testing.T) {
	suite := setupPipelineSuite(t)
	suite.scan()

	assets := suite.listAssets()
	fp := assets[0].Fingerprint

	// Attach a marker
	end := 0.8
	w := suite.do(http.MethodPost, "/api/v1/assets/"+fp+"/markers", models.Marker{
		StartTime: 0.2,
		EndTime:   &end,
		Label:     "dawn chorus",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected 201 creating marker, got %d: %s", w.Code, w.Body.String())
	}

	// Stage tag edits, then persist them
	w = suite.do(http.MethodPatch, "/api/v1/assets/"+fp+"/tags", map[string]interface{}{
		"set": map[string]interface{}{"title": "Creek at dawn", "rating": 4},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200 staging tags, got %d: %s", w.Code, w.Body.String())
	}

	var staged struct {
		State string `json:"state"`
	}
	suite.decode(w, &staged)
	if staged.State != "dirty" {
		t.Errorf("Expected dirty state after edits, got %q", staged.State)
	}

	w = suite.do(http.MethodPost, "/api/v1/assets/"+fp+"/tags/save", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200 saving tags, got %d: %s", w.Code, w.Body.String())
	}

	// Reconciled view reflects the saved edits
	w = suite.do(http.MethodGet, "/api/v1/assets/"+fp+"/tags", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200 reading tags, got %d: %s", w.Code, w.Body.String())
	}

	var reconciled struct {
		State string                     `json:"state"`
		Tags  map[string]models.TagValue `json:"tags"`
	}
	suite.decode(w, &reconciled)
	if reconciled.State != "reconciled" {
		t.Errorf("Expected reconciled state, got %q", reconciled.State)
	}
	if got := reconciled.Tags["title"]; got.Str != "Creek at dawn" {
		t.Errorf("Expected saved title to survive reconciliation, got %+v", got)
	}

	// Export carries assets, merged tags and markers together
	w = suite.do(http.MethodGet, "/api/v1/export", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200 from export, got %d: %s", w.Code, w.Body.String())
	}

	var exported struct {
		Assets []export.AssetExport `json:"assets"`
		Count  int                  `json:"count"`
	}
	suite.decode(w, &exported)
	if exported.Count != 2 {
		t.Fatalf("Expected 2 exported assets, got %d", exported.Count)
	}

	var tagged *export.AssetExport
	for i := range exported.Assets {
		if exported.Assets[i].Asset.Fingerprint == fp {
			tagged = &exported.Assets[i]
		}
	}
	if tagged == nil {
		t.Fatalf("Tagged asset %s missing from export", fp)
	}
	if len(tagged.Markers) != 1 || tagged.Markers[0].Label != "dawn chorus" {
		t.Errorf("Expected the dawn chorus marker in export, got %+v", tagged.Markers)
	}
	if got := tagged.Tags.Values["title"]; got.Str != "Creek at dawn" {
		t.Errorf("Expected exported title tag, got %+v", got)
	}
}
