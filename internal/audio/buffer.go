// Package audio holds the sample buffer type and the signal operations the
// prosody pipeline applies to synthesized speech: dynamic-range scaling,
// band-limited length changes, gain, block-splicing time compression, and
// format reconciliation between buffers.
package audio

import (
	"fmt"
	"math"
	"time"
)

// Format describes the sample rate and channel layout of a buffer.
type Format struct {
	SampleRate int
	Channels   int
}

// String returns a human-readable form such as "22050Hz mono".
func (f Format) String() string {
	ch := "mono"
	if f.Channels == 2 {
		ch = "stereo"
	} else if f.Channels > 2 {
		ch = fmt.Sprintf("%dch", f.Channels)
	}
	return fmt.Sprintf("%dHz %s", f.SampleRate, ch)
}

// Valid reports whether both fields are positive.
func (f Format) Valid() bool {
	return f.SampleRate > 0 && f.Channels > 0
}

// Buffer is a block of interleaved float samples in the nominal range [-1, 1].
// Operations in this package never modify their input buffer.
type Buffer struct {
	Samples    []float64
	Channels   int
	SampleRate int
}

// NewBuffer creates a buffer over samples. samples is not copied.
func NewBuffer(samples []float64, sampleRate, channels int) *Buffer {
	return &Buffer{Samples: samples, Channels: channels, SampleRate: sampleRate}
}

// Format returns the buffer's sample rate and channel count.
func (b *Buffer) Format() Format {
	return Format{SampleRate: b.SampleRate, Channels: b.Channels}
}

// Frames returns the number of sample frames (samples per channel).
func (b *Buffer) Frames() int {
	if b.Channels <= 0 {
		return 0
	}
	return len(b.Samples) / b.Channels
}

// Duration returns the playback length at the nominal sample rate.
func (b *Buffer) Duration() time.Duration {
	if b.SampleRate <= 0 {
		return 0
	}
	return time.Duration(float64(b.Frames()) / float64(b.SampleRate) * float64(time.Second))
}

// Compatible reports whether b and other can be concatenated without conversion.
func (b *Buffer) Compatible(other *Buffer) bool {
	return b.Format() == other.Format()
}

// Clone returns a deep copy of the buffer.
func (b *Buffer) Clone() *Buffer {
	out := make([]float64, len(b.Samples))
	copy(out, b.Samples)
	return &Buffer{Samples: out, Channels: b.Channels, SampleRate: b.SampleRate}
}

// withSamples returns a buffer in b's format over samples.
func (b *Buffer) withSamples(samples []float64) *Buffer {
	return &Buffer{Samples: samples, Channels: b.Channels, SampleRate: b.SampleRate}
}

// channel extracts one channel as a contiguous slice.
func (b *Buffer) channel(c int) []float64 {
	frames := b.Frames()
	out := make([]float64, frames)
	for i := range frames {
		out[i] = b.Samples[i*b.Channels+c]
	}
	return out
}

// interleave packs per-channel slices of equal length into one slice.
func interleave(chans [][]float64) []float64 {
	if len(chans) == 0 {
		return nil
	}
	n := len(chans)
	frames := len(chans[0])
	out := make([]float64, frames*n)
	for c, ch := range chans {
		for i, v := range ch {
			out[i*n+c] = v
		}
	}
	return out
}

// ToPCM16 converts the samples to int16 with clipping.
func (b *Buffer) ToPCM16() []int16 {
	out := make([]int16, len(b.Samples))
	for i, v := range b.Samples {
		out[i] = floatToInt16(v)
	}
	return out
}

// ToPCM16Bytes converts the samples to little-endian int16 PCM bytes.
func (b *Buffer) ToPCM16Bytes() []byte {
	out := make([]byte, len(b.Samples)*2)
	for i, v := range b.Samples {
		s := floatToInt16(v)
		out[i*2] = byte(s)
		out[i*2+1] = byte(uint16(s) >> 8)
	}
	return out
}

// FromPCM16 builds a buffer from int16 samples.
func FromPCM16(samples []int16, sampleRate, channels int) *Buffer {
	out := make([]float64, len(samples))
	for i, s := range samples {
		out[i] = float64(s) / 32768
	}
	return NewBuffer(out, sampleRate, channels)
}

func floatToInt16(v float64) int16 {
	s := math.Round(v * 32768)
	if s > math.MaxInt16 {
		return math.MaxInt16
	}
	if s < math.MinInt16 {
		return math.MinInt16
	}
	return int16(s)
}

// DurationToFrames converts a duration to a frame count at sampleRate.
func DurationToFrames(d time.Duration, sampleRate int) int {
	return int(math.Round(d.Seconds() * float64(sampleRate)))
}
