// Package pyramid builds and serves multi-resolution peak envelopes of PCM
// audio. A pyramid holds progressively coarser (min, max) summaries so a
// viewport of any zoom level can be resolved by scanning O(pixel width)
// buckets instead of raw samples.
package pyramid

// Peak is one summarized bucket: the smallest and largest amplitude over the
// frames the bucket covers.
type Peak struct {
	Min float32
	Max float32
}

// Level is one resolution of the pyramid. Factor is the number of raw frames
// summarized per bucket; Channels holds one bucket slice per audio channel,
// all the same length.
type Level struct {
	Factor   int
	Channels [][]Peak
}

// BucketCount returns the number of buckets per channel
func (l *Level) BucketCount() int {
	if len(l.Channels) == 0 {
		return 0
	}
	return len(l.Channels[0])
}

// Pyramid is the full level hierarchy for one audio asset. Levels are sorted
// by increasing decimation factor and each factor is Multiplier times the
// previous one, so a covering level always exists. Immutable once built.
type Pyramid struct {
	Fingerprint string
	SampleRate  int
	Channels    int
	TotalFrames int64
	BaseFactor  int
	Multiplier  int
	Levels      []Level
}

// MemSize approximates the heap bytes held by the pyramid's bucket data,
// used for the waveform cache's memory budget.
func (p *Pyramid) MemSize() int64 {
	const peakBytes = 8
	var total int64
	for i := range p.Levels {
		for _, ch := range p.Levels[i].Channels {
			total += int64(len(ch)) * peakBytes
		}
	}
	return total
}

// Duration returns the asset length in seconds
func (p *Pyramid) Duration() float64 {
	if p.SampleRate == 0 {
		return 0
	}
	return float64(p.TotalFrames) / float64(p.SampleRate)
}

// levelFor returns the coarsest level whose decimation factor still fits
// within the given samples-per-pixel density. When the view is zoomed in
// past the base factor the finest level is returned.
func (p *Pyramid) levelFor(samplesPerPixel float64) *Level {
	chosen := &p.Levels[0]
	for i := 1; i < len(p.Levels); i++ {
		if float64(p.Levels[i].Factor) <= samplesPerPixel {
			chosen = &p.Levels[i]
		}
	}
	return chosen
}
