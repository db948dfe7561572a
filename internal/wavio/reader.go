package wavio

import (
	"crypto/sha1"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"io"
	"math"
	"os"
	"time"

	"github.com/go-audio/riff"

	"github.com/fieldscope/fieldrec-api/internal/models"
)

// Audio formats accepted in the fmt chunk
const (
	formatPCM       = 0x0001
	formatIEEEFloat = 0x0003
)

// fingerprintSampleBytes is how much of the data chunk goes into the content
// fingerprint alongside the fmt chunk and the data length
const fingerprintSampleBytes = 64 * 1024

// Reader provides random access to the PCM frames and metadata chunks of a
// WAV file. Frame reads go through ReadAt so concurrent readers never share
// a cursor.
type Reader struct {
	f    *os.File
	path string

	audioFormat   uint16
	sampleRate    int
	channels      int
	bitsPerSample int

	dataOffset int64
	dataSize   int64

	fmtRaw      []byte
	info        []InfoTag
	cues        []CuePoint
	bextDesc    string
	fingerprint string

	fileSize    int64
	fileModTime time.Time
}

// offsetReader counts consumed bytes so chunk payload positions can be
// recorded while the riff parser walks the file.
type offsetReader struct {
	r io.Reader
	n int64
}

func (o *offsetReader) Read(p []byte) (int, error) {
	n, err := o.r.Read(p)
	o.n += int64(n)
	return n, err
}

// Open parses the container of a WAV file and returns a Reader for it. The
// audio data itself is not loaded; only chunk positions and metadata are.
func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}

	stat, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}

	r := &Reader{
		f:           f,
		path:        path,
		fileSize:    stat.Size(),
		fileModTime: stat.ModTime(),
	}

	if err := r.parseChunks(); err != nil {
		f.Close()
		return nil, err
	}

	if r.dataOffset+r.dataSize > r.fileSize {
		f.Close()
		return nil, fmt.Errorf("%w: declared %d data bytes at offset %d in a %d byte file",
			ErrTruncated, r.dataSize, r.dataOffset, r.fileSize)
	}

	if err := r.computeFingerprint(); err != nil {
		f.Close()
		return nil, err
	}

	return r, nil
}

// parseChunks walks the RIFF structure once, recording the data chunk
// position and decoding the metadata chunks the engine understands.
func (r *Reader) parseChunks() error {
	counting := &offsetReader{r: r.f}
	parser := riff.New(counting)

	if err := parser.ParseHeaders(); err != nil {
		return fmt.Errorf("%w: %v", ErrNotRIFF, err)
	}
	if parser.Format != riff.WavFormatID {
		return ErrNotRIFF
	}

	var adtlLabels map[uint32]string

	for {
		chunk, err := parser.NextChunk()
		if err == io.EOF {
			break
		}
		if err != nil {
			// A short trailing chunk header means the file was cut off
			if err == io.ErrUnexpectedEOF {
				return ErrTruncated
			}
			return fmt.Errorf("reading chunks of %s: %w", r.path, err)
		}

		payloadStart := counting.n

		switch chunk.ID {
		case riff.FmtID:
			raw := make([]byte, chunk.Size)
			if _, err := io.ReadFull(chunk, raw); err != nil {
				return fmt.Errorf("reading fmt chunk: %w", err)
			}
			r.fmtRaw = raw
			if err := r.parseFmt(raw); err != nil {
				return err
			}

		case riff.DataFormatID:
			r.dataOffset = payloadStart
			r.dataSize = int64(chunk.Size)
			// Seek past the samples instead of draining them through the
			// parser; metadata chunks may still follow the data chunk.
			skip := r.dataSize
			if skip%2 == 1 {
				skip++
			}
			if _, err := r.f.Seek(payloadStart+skip, io.SeekStart); err != nil {
				return fmt.Errorf("seeking past data chunk: %w", err)
			}
			counting.n = payloadStart + skip
			continue

		case [4]byte{'L', 'I', 'S', 'T'}:
			raw := make([]byte, chunk.Size)
			if _, err := io.ReadFull(chunk, raw); err != nil {
				return fmt.Errorf("reading LIST chunk: %w", err)
			}
			if len(raw) >= 4 {
				switch string(raw[:4]) {
				case "INFO":
					r.info = parseListInfo(raw[4:])
				case "adtl":
					adtlLabels = parseAdtlLabels(raw[4:])
				}
			}

		case [4]byte{'c', 'u', 'e', ' '}:
			raw := make([]byte, chunk.Size)
			if _, err := io.ReadFull(chunk, raw); err != nil {
				return fmt.Errorf("reading cue chunk: %w", err)
			}
			r.cues = parseCueChunk(raw)

		case [4]byte{'b', 'e', 'x', 't'}:
			raw := make([]byte, chunk.Size)
			if _, err := io.ReadFull(chunk, raw); err != nil {
				return fmt.Errorf("reading bext chunk: %w", err)
			}
			r.bextDesc = parseBextDescription(raw)
		}

		chunk.Done()
	}

	if r.fmtRaw == nil {
		return fmt.Errorf("%w: missing fmt chunk", ErrNotRIFF)
	}
	if r.dataOffset == 0 {
		return fmt.Errorf("%w: missing data chunk", ErrNotRIFF)
	}

	// Attach labels to their cue points
	for i := range r.cues {
		r.cues[i].Label = adtlLabels[r.cues[i].ID]
	}

	return nil
}

// parseFmt validates the audio format against what the engine supports
func (r *Reader) parseFmt(data []byte) error {
	if len(data) < 16 {
		return fmt.Errorf("%w: fmt chunk too short", ErrNotRIFF)
	}

	r.audioFormat = binary.LittleEndian.Uint16(data[0:2])
	r.channels = int(binary.LittleEndian.Uint16(data[2:4]))
	r.sampleRate = int(binary.LittleEndian.Uint32(data[4:8]))
	r.bitsPerSample = int(binary.LittleEndian.Uint16(data[14:16]))

	if r.channels < 1 || r.sampleRate < 1 {
		return fmt.Errorf("%w: %d channels at %d Hz", ErrUnsupportedFormat, r.channels, r.sampleRate)
	}

	switch r.audioFormat {
	case formatPCM:
		switch r.bitsPerSample {
		case 16, 24, 32:
		default:
			return fmt.Errorf("%w: %d-bit PCM", ErrUnsupportedFormat, r.bitsPerSample)
		}
	case formatIEEEFloat:
		if r.bitsPerSample != 32 {
			return fmt.Errorf("%w: %d-bit float", ErrUnsupportedFormat, r.bitsPerSample)
		}
	default:
		return fmt.Errorf("%w: audio format 0x%04X", ErrUnsupportedFormat, r.audioFormat)
	}

	return nil
}

// computeFingerprint hashes the fmt chunk, the data length and the first
// 64 KiB of sample data. The result identifies the content, not the path.
func (r *Reader) computeFingerprint() error {
	h := sha1.New()
	h.Write(r.fmtRaw)

	var sizeBuf [8]byte
	binary.LittleEndian.PutUint64(sizeBuf[:], uint64(r.dataSize))
	h.Write(sizeBuf[:])

	sampleLen := r.dataSize
	if sampleLen > fingerprintSampleBytes {
		sampleLen = fingerprintSampleBytes
	}
	if sampleLen > 0 {
		buf := make([]byte, sampleLen)
		if _, err := r.f.ReadAt(buf, r.dataOffset); err != nil {
			return fmt.Errorf("fingerprinting %s: %w", r.path, err)
		}
		h.Write(buf)
	}

	r.fingerprint = hex.EncodeToString(h.Sum(nil))
	return nil
}

// Path returns the path the reader was opened with
func (r *Reader) Path() string { return r.path }

// SampleRate returns the sample rate in Hz
func (r *Reader) SampleRate() int { return r.sampleRate }

// Channels returns the channel count
func (r *Reader) Channels() int { return r.channels }

// BitDepth returns the bits per sample as stored
func (r *Reader) BitDepth() int { return r.bitsPerSample }

// Fingerprint returns the content fingerprint of the file
func (r *Reader) Fingerprint() string { return r.fingerprint }

// BextDescription returns the BWF description field, if present
func (r *Reader) BextDescription() string { return r.bextDesc }

// bytesPerSample returns the stored size of one sample of one channel
func (r *Reader) bytesPerSample() int { return r.bitsPerSample / 8 }

// TotalFrames returns the number of sample frames in the data chunk
func (r *Reader) TotalFrames() int64 {
	frameSize := int64(r.bytesPerSample() * r.channels)
	if frameSize == 0 {
		return 0
	}
	return r.dataSize / frameSize
}

// Duration returns the audio length in seconds
func (r *Reader) Duration() float64 {
	if r.sampleRate == 0 {
		return 0
	}
	return float64(r.TotalFrames()) / float64(r.sampleRate)
}

// Metadata returns the tags of the embedded LIST-INFO chunk in file order,
// including identifiers the application does not recognize.
func (r *Reader) Metadata() []InfoTag {
	out := make([]InfoTag, len(r.info))
	copy(out, r.info)
	return out
}

// Cues returns the cue points of the file with their adtl labels attached
func (r *Reader) Cues() []CuePoint {
	out := make([]CuePoint, len(r.cues))
	copy(out, r.cues)
	return out
}

// Asset returns the catalog model for the opened file
func (r *Reader) Asset() models.Asset {
	return models.Asset{
		Fingerprint:     r.fingerprint,
		Path:            r.path,
		SampleRate:      r.sampleRate,
		Channels:        r.channels,
		BitDepth:        r.bitsPerSample,
		TotalFrames:     r.TotalFrames(),
		FileSize:        r.fileSize,
		FileModTime:     r.fileModTime,
		BextDescription: r.bextDesc,
	}
}

// ReadFrames reads up to frameCount frames starting at startFrame and
// decodes them into one float32 slice per channel, amplitudes in [-1, 1).
// Fewer frames than requested are returned at the end of the file.
func (r *Reader) ReadFrames(startFrame int64, frameCount int) ([][]float32, error) {
	total := r.TotalFrames()
	if startFrame < 0 || startFrame > total {
		return nil, fmt.Errorf("%w: frame %d of %d", ErrReadOutOfBounds, startFrame, total)
	}
	if remaining := total - startFrame; int64(frameCount) > remaining {
		frameCount = int(remaining)
	}
	if frameCount <= 0 {
		out := make([][]float32, r.channels)
		return out, nil
	}

	frameSize := r.bytesPerSample() * r.channels
	raw := make([]byte, frameCount*frameSize)
	offset := r.dataOffset + startFrame*int64(frameSize)

	if _, err := r.f.ReadAt(raw, offset); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return nil, fmt.Errorf("%w: data chunk shorter than declared", ErrTruncated)
		}
		return nil, fmt.Errorf("reading frames of %s: %w", r.path, err)
	}

	out := make([][]float32, r.channels)
	for ch := range out {
		out[ch] = make([]float32, frameCount)
	}

	bps := r.bytesPerSample()
	for i := 0; i < frameCount; i++ {
		base := i * frameSize
		for ch := 0; ch < r.channels; ch++ {
			out[ch][i] = decodeSample(raw[base+ch*bps:base+(ch+1)*bps], r.audioFormat)
		}
	}

	return out, nil
}

// decodeSample converts one stored sample to a float32 amplitude
func decodeSample(b []byte, audioFormat uint16) float32 {
	switch len(b) {
	case 2:
		v := int16(binary.LittleEndian.Uint16(b))
		return float32(v) / 32768.0
	case 3:
		v := int32(b[0]) | int32(b[1])<<8 | int32(b[2])<<16
		// Sign extend from 24 bits
		if v&0x800000 != 0 {
			v |= ^0xFFFFFF
		}
		return float32(v) / 8388608.0
	case 4:
		u := binary.LittleEndian.Uint32(b)
		if audioFormat == formatIEEEFloat {
			return math.Float32frombits(u)
		}
		return float32(int32(u)) / 2147483648.0
	default:
		return 0
	}
}

// Close releases the underlying file handle
func (r *Reader) Close() error {
	return r.f.Close()
}
