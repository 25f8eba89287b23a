package audio

import (
	"math"
	"time"
)

// CompressConfig controls block-splicing time compression.
type CompressConfig struct {
	// Ratio is the target duration ratio; output length is about input/Ratio.
	Ratio float64
	// BlockSize is the length of audio kept from each chunk.
	BlockSize time.Duration
	// Crossfade is the overlap used to blend each splice point.
	Crossfade time.Duration
}

// DefaultCompressConfig returns the settings used for exclamations.
func DefaultCompressConfig() CompressConfig {
	return CompressConfig{
		Ratio:     1.3,
		BlockSize: 150 * time.Millisecond,
		Crossfade: 25 * time.Millisecond,
	}
}

// TimeCompress shortens the buffer by about cfg.Ratio without changing pitch.
// The input is cut into chunks of block+removed frames; each chunk but the
// last drops part of its tail and is blended into the next with an
// equal-power crossfade. Ratios at or below 1, and inputs too short to yield
// two chunks, are returned unchanged.
func TimeCompress(b *Buffer, cfg CompressConfig) *Buffer {
	if cfg.Ratio <= 1 || b.Channels <= 0 || b.SampleRate <= 0 {
		return b.Clone()
	}

	block := DurationToFrames(cfg.BlockSize, b.SampleRate)
	atk := 1.0 / cfg.Ratio
	var removed int
	if cfg.Ratio < 2 {
		removed = int(float64(block) * (1 - atk) / atk)
	} else {
		removed = block
		block = int(atk * float64(block) / (1 - atk))
	}
	if block <= 0 || removed <= 0 {
		return b.Clone()
	}

	xf := min(DurationToFrames(cfg.Crossfade, b.SampleRate), removed-1)
	xf = max(xf, 0)

	chunkLen := block + removed
	frames := b.Frames()
	ch := b.Channels
	var chunks [][]float64
	for start := 0; start < frames; start += chunkLen {
		end := min(start+chunkLen, frames)
		chunks = append(chunks, b.Samples[start*ch:end*ch])
	}
	if len(chunks) < 2 {
		return b.Clone()
	}

	trim := removed - xf
	last := chunks[len(chunks)-1]
	body := chunks[:len(chunks)-1]

	out := make([]float64, 0, len(b.Samples))
	out = append(out, body[0][:len(body[0])-trim*ch]...)
	for _, c := range body[1:] {
		out = crossfadeAppend(out, c[:len(c)-trim*ch], xf, ch)
	}
	out = append(out, last...)

	return b.withSamples(out)
}

// crossfadeAppend blends the last xf frames of dst with the first xf frames
// of src using an equal-power curve, then appends the rest of src.
func crossfadeAppend(dst, src []float64, xf, channels int) []float64 {
	xf = min(xf, len(dst)/channels, len(src)/channels)
	if xf <= 0 {
		return append(dst, src...)
	}

	base := len(dst) - xf*channels
	for i := range xf {
		theta := (float64(i) + 0.5) / float64(xf) * math.Pi / 2
		fadeOut, fadeIn := math.Cos(theta), math.Sin(theta)
		for c := range channels {
			j := i*channels + c
			dst[base+j] = dst[base+j]*fadeOut + src[j]*fadeIn
		}
	}
	return append(dst, src[xf*channels:]...)
}
