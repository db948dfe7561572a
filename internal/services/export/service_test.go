package export

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/fieldscope/fieldrec-api/internal/models"
	"github.com/fieldscope/fieldrec-api/internal/services/sidecar"
	"github.com/fieldscope/fieldrec-api/internal/services/tagstore"
	"github.com/fieldscope/fieldrec-api/internal/wavio"
)

// MockAssets is a mock implementation of the AssetLookup interface
type MockAssets struct {
	mock.Mock
}

func (m *MockAssets) GetAsset(ctx context.Context, fingerprint string) (*models.Asset, error) {
	args := m.Called(ctx, fingerprint)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Asset), args.Error(1)
}

func (m *MockAssets) ListAssets(ctx context.Context) ([]models.Asset, error) {
	args := m.Called(ctx)
	return args.Get(0).([]models.Asset), args.Error(1)
}

// MockMarkers is a mock implementation of the MarkerLookup interface
type MockMarkers struct {
	mock.Mock
}

func (m *MockMarkers) GetMarkersByFingerprint(ctx context.Context, fingerprint string) ([]models.Marker, error) {
	args := m.Called(ctx, fingerprint)
	return args.Get(0).([]models.Marker), args.Error(1)
}

// fingerprintMedia serves fixed tags per path
type fingerprintMedia struct {
	fingerprints map[string]string
	tags         map[string][]wavio.InfoTag
}

func (f *fingerprintMedia) ReadInfo(path string) (*tagstore.AssetInfo, error) {
	return &tagstore.AssetInfo{
		Fingerprint: f.fingerprints[path],
		Tags:        f.tags[path],
		Duration:    10,
		SampleRate:  44100,
	}, nil
}

func (f *fingerprintMedia) Fingerprint(path string) (string, error) {
	return f.fingerprints[path], nil
}

func (f *fingerprintMedia) WriteInfo(path string, tags []wavio.InfoTag) error {
	return nil
}

func newTagManager(t *testing.T, media tagstore.Media) *tagstore.Manager {
	t.Helper()
	sc := sidecar.NewStore(filepath.Join(t.TempDir(), "metadata.json"))
	require.NoError(t, sc.Load())
	return tagstore.NewManager(media, sc)
}

func TestGetReconciledTagSet(t *testing.T) {
	ctx := context.Background()

	media := &fingerprintMedia{
		fingerprints: map[string]string{"/library/a.wav": "fp-a"},
		tags: map[string][]wavio.InfoTag{
			"/library/a.wav": {{ID: "INAM", Value: "Creek"}},
		},
	}

	assets := new(MockAssets)
	assets.On("GetAsset", ctx, "fp-a").Return(&models.Asset{
		Fingerprint: "fp-a",
		Path:        "/library/a.wav",
	}, nil)

	service := NewService(assets, new(MockMarkers), newTagManager(t, media))

	tags, err := service.GetReconciledTagSet(ctx, "fp-a")
	require.NoError(t, err)

	title, ok := tags.Get(models.TagTitle)
	require.True(t, ok)
	assert.Equal(t, "Creek", title.Str)
}

func TestGetReconciledTagSetUnknownAsset(t *testing.T) {
	ctx := context.Background()

	assets := new(MockAssets)
	assets.On("GetAsset", ctx, "fp-missing").Return(nil, assert.AnError)

	service := NewService(assets, new(MockMarkers), newTagManager(t, &fingerprintMedia{}))

	_, err := service.GetReconciledTagSet(ctx, "fp-missing")
	assert.Error(t, err)
}

func TestListAssetsWithTags(t *testing.T) {
	ctx := context.Background()

	media := &fingerprintMedia{
		fingerprints: map[string]string{
			"/library/a.wav": "fp-a",
			"/library/b.wav": "fp-b",
		},
		tags: map[string][]wavio.InfoTag{
			"/library/a.wav": {{ID: "INAM", Value: "Creek"}},
			"/library/b.wav": {{ID: "IART", Value: "J. Field"}},
		},
	}

	catalog := []models.Asset{
		{Fingerprint: "fp-a", Path: "/library/a.wav"},
		{Fingerprint: "fp-b", Path: "/library/b.wav"},
	}

	assets := new(MockAssets)
	assets.On("ListAssets", ctx).Return(catalog, nil)

	markers := new(MockMarkers)
	markers.On("GetMarkersByFingerprint", ctx, "fp-a").Return([]models.Marker{
		{UUID: "u-1", AssetFingerprint: "fp-a", StartTime: 2, Label: "heron"},
	}, nil)
	markers.On("GetMarkersByFingerprint", ctx, "fp-b").Return([]models.Marker{}, nil)

	service := NewService(assets, markers, newTagManager(t, media))

	exports, err := service.ListAssetsWithTags(ctx)
	require.NoError(t, err)
	require.Len(t, exports, 2)

	assert.Equal(t, "fp-a", exports[0].Asset.Fingerprint)
	title, ok := exports[0].Tags.Get(models.TagTitle)
	require.True(t, ok)
	assert.Equal(t, "Creek", title.Str)
	require.Len(t, exports[0].Markers, 1)
	assert.Equal(t, "heron", exports[0].Markers[0].Label)

	artist, ok := exports[1].Tags.Get(models.TagArtist)
	require.True(t, ok)
	assert.Equal(t, "J. Field", artist.Str)
	assert.Empty(t, exports[1].Markers)

	assets.AssertExpectations(t)
	markers.AssertExpectations(t)
}

func TestListAssetsWithTagsUnreadableFileFallsBackToSidecar(t *testing.T) {
	ctx := context.Background()

	sc := sidecar.NewStore(filepath.Join(t.TempDir(), "metadata.json"))
	require.NoError(t, sc.Load())

	saved := models.NewTagSet()
	saved.Set(models.TagLocation, models.String("Lake X"))
	require.NoError(t, sc.SetTags("fp-gone", "/library/gone.wav", saved))

	assets := new(MockAssets)
	assets.On("ListAssets", ctx).Return([]models.Asset{
		{Fingerprint: "fp-gone", Path: "/library/gone.wav"},
	}, nil)

	markers := new(MockMarkers)
	markers.On("GetMarkersByFingerprint", ctx, "fp-gone").Return([]models.Marker{}, nil)

	// Real media against a path that does not exist
	service := NewService(assets, markers, tagstore.NewManager(tagstore.NewWavMedia(), sc))

	exports, err := service.ListAssetsWithTags(ctx)
	require.NoError(t, err)
	require.Len(t, exports, 1)

	location, ok := exports[0].Tags.Get(models.TagLocation)
	require.True(t, ok)
	assert.Equal(t, "Lake X", location.Str)
}
