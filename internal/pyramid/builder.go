package pyramid

import (
	"context"
	"fmt"
	"math"
)

// Default build parameters. A block is the unit of streaming and of
// cancellation: it is kept a multiple of the base factor so level 0 buckets
// never straddle block boundaries.
const (
	DefaultBaseFactor  = 256
	DefaultMultiplier  = 4
	defaultBlockFrames = 65536
)

// FrameSource is the slice of the sample source the builder needs. It must
// support arbitrary-offset reads; the builder never assumes a cursor.
type FrameSource interface {
	SampleRate() int
	Channels() int
	TotalFrames() int64
	Fingerprint() string
	ReadFrames(startFrame int64, frameCount int) ([][]float32, error)
}

// Builder streams an asset's frames once and produces its pyramid
type Builder struct {
	baseFactor  int
	multiplier  int
	blockFrames int
}

// NewBuilder creates a builder. Non-positive arguments fall back to the
// defaults.
func NewBuilder(baseFactor, multiplier int) *Builder {
	if baseFactor <= 0 {
		baseFactor = DefaultBaseFactor
	}
	if multiplier < 2 {
		multiplier = DefaultMultiplier
	}

	blockFrames := defaultBlockFrames
	if blockFrames%baseFactor != 0 {
		blockFrames = (blockFrames/baseFactor + 1) * baseFactor
	}

	return &Builder{
		baseFactor:  baseFactor,
		multiplier:  multiplier,
		blockFrames: blockFrames,
	}
}

// Build produces the full pyramid for src in O(total frames) time without
// materializing the raw samples. Cancellation is checked at every block
// boundary; a cancelled build returns ErrBuildCancelled and no pyramid.
func (b *Builder) Build(ctx context.Context, src FrameSource) (*Pyramid, error) {
	channels := src.Channels()
	totalFrames := src.TotalFrames()

	p := &Pyramid{
		Fingerprint: src.Fingerprint(),
		SampleRate:  src.SampleRate(),
		Channels:    channels,
		TotalFrames: totalFrames,
		BaseFactor:  b.baseFactor,
		Multiplier:  b.multiplier,
	}

	base, err := b.buildBaseLevel(ctx, src)
	if err != nil {
		return nil, err
	}
	p.Levels = append(p.Levels, base)

	// Each level is derived from the buckets of the one below it; raw
	// samples are never read again.
	for p.Levels[len(p.Levels)-1].BucketCount() > 1 {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBuildCancelled, err)
		}
		p.Levels = append(p.Levels, b.deriveLevel(&p.Levels[len(p.Levels)-1]))
	}

	return p, nil
}

// buildBaseLevel reduces every baseFactor consecutive frames to a (min, max)
// pair per channel in a single linear scan over the file.
func (b *Builder) buildBaseLevel(ctx context.Context, src FrameSource) (Level, error) {
	channels := src.Channels()
	totalFrames := src.TotalFrames()
	bucketCount := int(ceilDiv(totalFrames, int64(b.baseFactor)))

	level := Level{Factor: b.baseFactor, Channels: make([][]Peak, channels)}
	for ch := range level.Channels {
		level.Channels[ch] = make([]Peak, 0, bucketCount)
	}

	for blockStart := int64(0); blockStart < totalFrames; blockStart += int64(b.blockFrames) {
		if err := ctx.Err(); err != nil {
			return Level{}, fmt.Errorf("%w: %v", ErrBuildCancelled, err)
		}

		count := b.blockFrames
		if remaining := totalFrames - blockStart; int64(count) > remaining {
			count = int(remaining)
		}

		frames, err := src.ReadFrames(blockStart, count)
		if err != nil {
			return Level{}, err
		}

		for ch := 0; ch < channels; ch++ {
			samples := frames[ch]
			for off := 0; off < len(samples); off += b.baseFactor {
				end := off + b.baseFactor
				if end > len(samples) {
					end = len(samples) // Final bucket may be partial
				}
				level.Channels[ch] = append(level.Channels[ch], reduce(samples[off:end]))
			}
		}
	}

	// Zero-length files still get an empty, well-formed level
	return level, nil
}

// deriveLevel folds every multiplier consecutive buckets of the lower level
// into one bucket of the next level.
func (b *Builder) deriveLevel(lower *Level) Level {
	lowerCount := lower.BucketCount()
	bucketCount := (lowerCount + b.multiplier - 1) / b.multiplier

	level := Level{Factor: lower.Factor * b.multiplier, Channels: make([][]Peak, len(lower.Channels))}
	for ch := range lower.Channels {
		buckets := make([]Peak, bucketCount)
		for i := 0; i < bucketCount; i++ {
			start := i * b.multiplier
			end := start + b.multiplier
			if end > lowerCount {
				end = lowerCount
			}
			buckets[i] = mergePeaks(lower.Channels[ch][start:end])
		}
		level.Channels[ch] = buckets
	}

	return level
}

// reduce computes the peak pair of a run of samples
func reduce(samples []float32) Peak {
	p := Peak{Min: float32(math.Inf(1)), Max: float32(math.Inf(-1))}
	for _, s := range samples {
		if s < p.Min {
			p.Min = s
		}
		if s > p.Max {
			p.Max = s
		}
	}
	if len(samples) == 0 {
		return Peak{}
	}
	return p
}

// mergePeaks folds a run of peak pairs into one
func mergePeaks(peaks []Peak) Peak {
	if len(peaks) == 0 {
		return Peak{}
	}
	out := peaks[0]
	for _, p := range peaks[1:] {
		if p.Min < out.Min {
			out.Min = p.Min
		}
		if p.Max > out.Max {
			out.Max = p.Max
		}
	}
	return out
}

func ceilDiv(a, b int64) int64 {
	return (a + b - 1) / b
}
