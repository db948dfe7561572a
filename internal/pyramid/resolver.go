package pyramid

import (
	"fmt"
)

// Resolve maps a time range and pixel width onto peak pairs, one per pixel,
// merged across channels. Portions of the range outside the asset's duration
// come back as silent zero pairs rather than an error. The output depends
// only on the arguments, so identical calls return identical slices.
func Resolve(p *Pyramid, startSec, endSec float64, width int) ([]Peak, error) {
	perChannel, err := resolveLevels(p, startSec, endSec, width)
	if err != nil {
		return nil, err
	}

	out := make([]Peak, width)
	for i := range out {
		merged := perChannel[0][i]
		for ch := 1; ch < len(perChannel); ch++ {
			px := perChannel[ch][i]
			if px.Min < merged.Min {
				merged.Min = px.Min
			}
			if px.Max > merged.Max {
				merged.Max = px.Max
			}
		}
		out[i] = merged
	}
	return out, nil
}

// ResolveChannels is Resolve without the cross-channel merge, for renderers
// that draw each channel in its own lane.
func ResolveChannels(p *Pyramid, startSec, endSec float64, width int) ([][]Peak, error) {
	return resolveLevels(p, startSec, endSec, width)
}

func resolveLevels(p *Pyramid, startSec, endSec float64, width int) ([][]Peak, error) {
	if width <= 0 {
		return nil, fmt.Errorf("%w: pixel width %d", ErrInvalidViewport, width)
	}
	if endSec <= startSec {
		return nil, fmt.Errorf("%w: time range [%f, %f)", ErrInvalidViewport, startSec, endSec)
	}
	if len(p.Levels) == 0 || p.Channels == 0 {
		return nil, fmt.Errorf("%w: empty pyramid", ErrInvalidViewport)
	}

	startFrame := startSec * float64(p.SampleRate)
	endFrame := endSec * float64(p.SampleRate)
	samplesPerPixel := (endFrame - startFrame) / float64(width)

	level := p.levelFor(samplesPerPixel)
	factor := float64(level.Factor)
	bucketCount := level.BucketCount()

	out := make([][]Peak, p.Channels)
	for ch := range out {
		out[ch] = make([]Peak, width)
	}

	for i := 0; i < width; i++ {
		pixelStart := startFrame + samplesPerPixel*float64(i)
		pixelEnd := pixelStart + samplesPerPixel

		// Out-of-range pixels render as silence
		if pixelEnd <= 0 || pixelStart >= float64(p.TotalFrames) {
			continue
		}

		firstBucket := int(pixelStart / factor)
		lastBucket := int(ceilFloat(pixelEnd / factor))
		if firstBucket < 0 {
			firstBucket = 0
		}
		if lastBucket > bucketCount {
			lastBucket = bucketCount
		}

		for ch := 0; ch < p.Channels; ch++ {
			buckets := level.Channels[ch]
			merged, found := Peak{}, false

			// A bucket belongs to the pixel that contains its midpoint;
			// buckets spanning a pixel boundary are merged into that pixel.
			for bi := firstBucket; bi < lastBucket; bi++ {
				mid := (float64(bi) + 0.5) * factor
				if mid < pixelStart || mid >= pixelEnd {
					continue
				}
				if !found {
					merged, found = buckets[bi], true
					continue
				}
				if buckets[bi].Min < merged.Min {
					merged.Min = buckets[bi].Min
				}
				if buckets[bi].Max > merged.Max {
					merged.Max = buckets[bi].Max
				}
			}

			// Deep zoom: no bucket midpoint falls inside this pixel, so use
			// the bucket covering the pixel's own midpoint.
			if !found {
				bi := int((pixelStart + pixelEnd) / 2 / factor)
				if bi >= 0 && bi < bucketCount {
					merged = buckets[bi]
				}
			}

			out[ch][i] = merged
		}
	}

	return out, nil
}

func ceilFloat(v float64) float64 {
	iv := float64(int64(v))
	if v > iv {
		return iv + 1
	}
	return iv
}
