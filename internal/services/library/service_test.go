package library

import (
	"context"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldscope/fieldrec-api/internal/database"
	"github.com/fieldscope/fieldrec-api/internal/services/markers"
	"github.com/fieldscope/fieldrec-api/internal/services/sidecar"
)

func newTestDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.Initialize(":memory:", false)
	require.NoError(t, err)
	require.NoError(t, db.Migrate())
	t.Cleanup(func() { db.Close() })
	return db
}

// writeWav creates a small mono 16-bit PCM file whose samples derive from
// seed, so different seeds produce different fingerprints.
func writeWav(t *testing.T, path string, frames, seed int) {
	t.Helper()

	f, err := os.Create(path)
	require.NoError(t, err)

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
	require.NoError(t, enc.Write(buf))
	require.NoError(t, enc.Close())
	require.NoError(t, f.Close())
}

// appendCueChunk appends a cue chunk with one point and patches the RIFF size
func appendCueChunk(t *testing.T, path string, cueID, sampleOffset uint32) {
	t.Helper()

	chunk := make([]byte, 0, 36)
	chunk = append(chunk, 'c', 'u', 'e', ' ')
	chunk = binary.LittleEndian.AppendUint32(chunk, 28) // 4 count + one 24-byte record
	chunk = binary.LittleEndian.AppendUint32(chunk, 1)
	chunk = binary.LittleEndian.AppendUint32(chunk, cueID)
	chunk = binary.LittleEndian.AppendUint32(chunk, sampleOffset)
	chunk = append(chunk, 'd', 'a', 't', 'a')
	chunk = binary.LittleEndian.AppendUint32(chunk, 0)
	chunk = binary.LittleEndian.AppendUint32(chunk, 0)
	chunk = binary.LittleEndian.AppendUint32(chunk, sampleOffset)

	f, err := os.OpenFile(path, os.O_RDWR, 0)
	require.NoError(t, err)
	defer f.Close()

	info, err := f.Stat()
	require.NoError(t, err)
	_, err = f.WriteAt(chunk, info.Size())
	require.NoError(t, err)

	var size [4]byte
	binary.LittleEndian.PutUint32(size[:], uint32(info.Size())+uint32(len(chunk))-8)
	_, err = f.WriteAt(size[:], 4)
	require.NoError(t, err)
}

type recordingInvalidator struct {
	fingerprints []string
}

func (r *recordingInvalidator) Invalidate(ctx context.Context, fingerprint string) error {
	r.fingerprints = append(r.fingerprints, fingerprint)
	return nil
}

func newTestService(t *testing.T, root string, opts Options) (*ServiceImpl, *database.DB, *recordingInvalidator) {
	t.Helper()
	db := newTestDB(t)

	sc := sidecar.NewStore(filepath.Join(t.TempDir(), "metadata.json"))
	require.NoError(t, sc.Load())

	markerService := markers.NewService(markers.NewRepository(db.DB))
	invalidator := &recordingInvalidator{}

	opts.Root = root
	service := NewService(NewRepository(db.DB), markerService, invalidator, sc, opts)
	return service, db, invalidator
}

func TestScanAddsAssets(t *testing.T) {
	root := t.TempDir()
	writeWav(t, filepath.Join(root, "a.wav"), 2000, 1)
	writeWav(t, filepath.Join(root, "b.wav"), 2000, 2)
	require.NoError(t, os.WriteFile(filepath.Join(root, "notes.txt"), []byte("session notes"), 0644))

	service, _, _ := newTestService(t, root, Options{Recursive: true})

	result, err := service.Scan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, result.Scanned)
	assert.Equal(t, 2, result.Added)
	assert.Equal(t, 0, result.Skipped)

	assets, err := service.ListAssets(context.Background())
	require.NoError(t, err)
	require.Len(t, assets, 2)
	assert.Equal(t, 44100, assets[0].SampleRate)
	assert.Equal(t, int64(2000), assets[0].TotalFrames)
	assert.NotEqual(t, assets[0].Fingerprint, assets[1].Fingerprint)
}

func TestRescanIsUnchanged(t *testing.T) {
	root := t.TempDir()
	writeWav(t, filepath.Join(root, "a.wav"), 2000, 1)

	service, _, _ := newTestService(t, root, Options{Recursive: true})

	_, err := service.Scan(context.Background())
	require.NoError(t, err)

	result, err := service.Scan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, result.Added)
	assert.Equal(t, 1, result.Unchanged)

	assets, err := service.ListAssets(context.Background())
	require.NoError(t, err)
	assert.Len(t, assets, 1)
}

func TestScanSkipsMasqueradingFiles(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "fake.wav"), []byte("not audio at all"), 0644))

	service, _, _ := newTestService(t, root, Options{Recursive: true})

	result, err := service.Scan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Scanned)
	assert.Equal(t, 1, result.Skipped)
	assert.Equal(t, 0, result.Added)
}

func TestScanNonRecursiveIgnoresSubdirs(t *testing.T) {
	root := t.TempDir()
	writeWav(t, filepath.Join(root, "top.wav"), 1000, 1)
	sub := filepath.Join(root, "nested")
	require.NoError(t, os.MkdirAll(sub, 0755))
	writeWav(t, filepath.Join(sub, "deep.wav"), 1000, 2)

	service, _, _ := newTestService(t, root, Options{Recursive: false})

	result, err := service.Scan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Scanned)
	assert.Equal(t, 1, result.Added)
}

func TestScanImportsCuePoints(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "cued.wav")
	writeWav(t, path, 44100, 1)
	appendCueChunk(t, path, 1, 22050)

	service, db, _ := newTestService(t, root, Options{Recursive: true})

	result, err := service.Scan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Cues)

	assets, err := service.ListAssets(context.Background())
	require.NoError(t, err)
	require.Len(t, assets, 1)

	markerService := markers.NewService(markers.NewRepository(db.DB))
	ms, err := markerService.GetMarkersByFingerprint(context.Background(), assets[0].Fingerprint)
	require.NoError(t, err)
	require.Len(t, ms, 1)
	assert.InDelta(t, 0.5, ms[0].StartTime, 1e-9)
	assert.Equal(t, uint32(1), ms[0].CueID)

	// Rescanning must not duplicate the marker
	result, err = service.Scan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, result.Cues)

	ms, err = markerService.GetMarkersByFingerprint(context.Background(), assets[0].Fingerprint)
	require.NoError(t, err)
	assert.Len(t, ms, 1)
}

func TestScanDetectsReplacedContent(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "a.wav")
	writeWav(t, path, 2000, 1)

	service, _, invalidator := newTestService(t, root, Options{Recursive: true})

	_, err := service.Scan(context.Background())
	require.NoError(t, err)

	assets, err := service.ListAssets(context.Background())
	require.NoError(t, err)
	oldFingerprint := assets[0].Fingerprint

	// Re-record the file in place
	writeWav(t, path, 2000, 99)

	result, err := service.Scan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Updated)

	assets, err = service.ListAssets(context.Background())
	require.NoError(t, err)
	require.Len(t, assets, 1)
	assert.NotEqual(t, oldFingerprint, assets[0].Fingerprint)

	assert.Equal(t, []string{oldFingerprint}, invalidator.fingerprints)

	// The replaced fingerprint is gone from the catalog
	_, err = service.GetAsset(context.Background(), oldFingerprint)
	assert.ErrorIs(t, err, ErrAssetNotFound)
}

func TestScanSeedsDefaultTags(t *testing.T) {
	root := t.TempDir()
	writeWav(t, filepath.Join(root, "a.wav"), 2000, 1)

	db := newTestDB(t)
	sc := sidecar.NewStore(filepath.Join(t.TempDir(), "metadata.json"))
	require.NoError(t, sc.Load())

	service := NewService(NewRepository(db.DB), nil, nil, sc, Options{
		Root:        root,
		Recursive:   true,
		DefaultTags: map[string]string{"engineer": "R. Alvarez"},
	})

	_, err := service.Scan(context.Background())
	require.NoError(t, err)

	assets, err := service.ListAssets(context.Background())
	require.NoError(t, err)
	require.Len(t, assets, 1)

	tags := sc.Tags(assets[0].Fingerprint)
	engineer, ok := tags.Get("engineer")
	require.True(t, ok)
	assert.Equal(t, "R. Alvarez", engineer.Str)

	// A rescan does not reapply defaults over later edits
	_, err = service.Scan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, sc.Tags(assets[0].Fingerprint).Len())
}

func TestRenamedFileKeepsIdentity(t *testing.T) {
	root := t.TempDir()
	oldPath := filepath.Join(root, "old.wav")
	writeWav(t, oldPath, 2000, 1)

	service, _, invalidator := newTestService(t, root, Options{Recursive: true})

	_, err := service.Scan(context.Background())
	require.NoError(t, err)

	assets, err := service.ListAssets(context.Background())
	require.NoError(t, err)
	fingerprint := assets[0].Fingerprint

	require.NoError(t, os.Rename(oldPath, filepath.Join(root, "new.wav")))

	result, err := service.Scan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Updated)
	assert.Empty(t, invalidator.fingerprints)

	asset, err := service.GetAsset(context.Background(), fingerprint)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "new.wav"), asset.Path)
}
