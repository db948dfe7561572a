package tagstore

import (
	"github.com/fieldscope/fieldrec-api/internal/wavio"
)

// AssetInfo is what the store needs to know about a file on disk
type AssetInfo struct {
	Fingerprint string
	Tags        []wavio.InfoTag
	Duration    float64
	SampleRate  int
}

// Media abstracts the audio file operations the store performs, so tests can
// run without real WAV files on disk.
type Media interface {
	// ReadInfo opens the file and returns its fingerprint and embedded tags
	ReadInfo(path string) (*AssetInfo, error)

	// Fingerprint recomputes just the content fingerprint
	Fingerprint(path string) (string, error)

	// WriteInfo atomically replaces the file's embedded tag chunk
	WriteInfo(path string, tags []wavio.InfoTag) error
}

// wavMedia is the production Media backed by the wavio package
type wavMedia struct{}

// NewWavMedia returns a Media that reads and writes real WAV files
func NewWavMedia() Media {
	return wavMedia{}
}

func (wavMedia) ReadInfo(path string) (*AssetInfo, error) {
	r, err := wavio.Open(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	return &AssetInfo{
		Fingerprint: r.Fingerprint(),
		Tags:        r.Metadata(),
		Duration:    r.Duration(),
		SampleRate:  r.SampleRate(),
	}, nil
}

func (wavMedia) Fingerprint(path string) (string, error) {
	r, err := wavio.Open(path)
	if err != nil {
		return "", err
	}
	defer r.Close()
	return r.Fingerprint(), nil
}

func (wavMedia) WriteInfo(path string, tags []wavio.InfoTag) error {
	return wavio.RewriteInfo(path, tags)
}
