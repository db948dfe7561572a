package pyramid

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
)

// Binary encoding of a pyramid for durable storage. The layout is fixed and
// little-endian so encoding the same pyramid twice yields identical bytes.
const (
	encodingMagic   = "FPYR"
	encodingVersion = uint16(1)
)

// Encode serializes the pyramid's level data to a compact binary blob
func Encode(p *Pyramid) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(encodingMagic)

	write := func(v interface{}) {
		binary.Write(&buf, binary.LittleEndian, v)
	}

	write(encodingVersion)
	write(uint32(p.SampleRate))
	write(uint16(p.Channels))
	write(uint64(p.TotalFrames))
	write(uint32(p.BaseFactor))
	write(uint16(p.Multiplier))
	write(uint16(len(p.Levels)))

	for i := range p.Levels {
		level := &p.Levels[i]
		write(uint32(level.Factor))
		write(uint32(level.BucketCount()))
		for _, ch := range level.Channels {
			for _, peak := range ch {
				write(math.Float32bits(peak.Min))
				write(math.Float32bits(peak.Max))
			}
		}
	}

	return buf.Bytes(), nil
}

// Decode reconstructs a pyramid from its binary encoding. The fingerprint is
// not part of the blob; the caller supplies it from the storage key.
func Decode(data []byte, fingerprint string) (*Pyramid, error) {
	r := bytes.NewReader(data)

	magic := make([]byte, 4)
	if _, err := r.Read(magic); err != nil || string(magic) != encodingMagic {
		return nil, fmt.Errorf("%w: bad magic", ErrCorruptEncoding)
	}

	var (
		version     uint16
		sampleRate  uint32
		channels    uint16
		totalFrames uint64
		baseFactor  uint32
		multiplier  uint16
		levelCount  uint16
	)
	read := func(v interface{}) error {
		return binary.Read(r, binary.LittleEndian, v)
	}

	for _, v := range []interface{}{&version, &sampleRate, &channels, &totalFrames, &baseFactor, &multiplier, &levelCount} {
		if err := read(v); err != nil {
			return nil, fmt.Errorf("%w: short header", ErrCorruptEncoding)
		}
	}
	if version != encodingVersion {
		return nil, fmt.Errorf("%w: unknown version %d", ErrCorruptEncoding, version)
	}
	if channels == 0 {
		return nil, fmt.Errorf("%w: zero channels", ErrCorruptEncoding)
	}

	p := &Pyramid{
		Fingerprint: fingerprint,
		SampleRate:  int(sampleRate),
		Channels:    int(channels),
		TotalFrames: int64(totalFrames),
		BaseFactor:  int(baseFactor),
		Multiplier:  int(multiplier),
		Levels:      make([]Level, 0, levelCount),
	}

	for li := 0; li < int(levelCount); li++ {
		var factor, bucketCount uint32
		if err := read(&factor); err != nil {
			return nil, fmt.Errorf("%w: short level header", ErrCorruptEncoding)
		}
		if err := read(&bucketCount); err != nil {
			return nil, fmt.Errorf("%w: short level header", ErrCorruptEncoding)
		}

		// A corrupt count must fail before it drives an allocation; the
		// remaining bytes bound what the level can legitimately hold
		needed := uint64(bucketCount) * uint64(channels) * 8
		if needed > uint64(r.Len()) {
			return nil, fmt.Errorf("%w: level %d declares %d buckets but %d bytes remain",
				ErrCorruptEncoding, li, bucketCount, r.Len())
		}

		level := Level{Factor: int(factor), Channels: make([][]Peak, channels)}
		for ch := 0; ch < int(channels); ch++ {
			buckets := make([]Peak, bucketCount)
			for i := range buckets {
				var minBits, maxBits uint32
				if err := read(&minBits); err != nil {
					return nil, fmt.Errorf("%w: short bucket data", ErrCorruptEncoding)
				}
				if err := read(&maxBits); err != nil {
					return nil, fmt.Errorf("%w: short bucket data", ErrCorruptEncoding)
				}
				buckets[i] = Peak{Min: math.Float32frombits(minBits), Max: math.Float32frombits(maxBits)}
			}
			level.Channels[ch] = buckets
		}
		p.Levels = append(p.Levels, level)
	}

	return p, nil
}
