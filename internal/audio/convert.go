package audio

import (
	"errors"
	"fmt"
)

// ErrCodecFailed is returned when audio cannot be decoded, encoded, or
// converted between formats.
var ErrCodecFailed = errors.New("codec failure")

// ConvertFormat returns a copy of the buffer at the target sample rate and
// channel count. Channel conversion supports mono to N (duplicate), N to mono
// (average), and equal counts; other layouts fail with ErrCodecFailed.
func ConvertFormat(b *Buffer, target Format) (*Buffer, error) {
	if !target.Valid() {
		return nil, fmt.Errorf("%w: invalid target format %s", ErrCodecFailed, target)
	}
	if !b.Format().Valid() {
		return nil, fmt.Errorf("%w: invalid source format %s", ErrCodecFailed, b.Format())
	}
	if b.Format() == target {
		return b.Clone(), nil
	}

	out := b
	if b.SampleRate != target.SampleRate {
		out = ResampleRate(b, target.SampleRate)
	}

	switch {
	case out.Channels == target.Channels:
		if out == b {
			out = b.Clone()
		}
		return out, nil
	case out.Channels == 1:
		return upmix(out, target.Channels), nil
	case target.Channels == 1:
		return downmix(out), nil
	default:
		return nil, fmt.Errorf("%w: cannot convert %d channels to %d", ErrCodecFailed, out.Channels, target.Channels)
	}
}

func upmix(b *Buffer, channels int) *Buffer {
	frames := b.Frames()
	out := make([]float64, frames*channels)
	for i := range frames {
		for c := range channels {
			out[i*channels+c] = b.Samples[i]
		}
	}
	return &Buffer{Samples: out, Channels: channels, SampleRate: b.SampleRate}
}

func downmix(b *Buffer) *Buffer {
	frames := b.Frames()
	out := make([]float64, frames)
	for i := range frames {
		var sum float64
		for c := range b.Channels {
			sum += b.Samples[i*b.Channels+c]
		}
		out[i] = sum / float64(b.Channels)
	}
	return &Buffer{Samples: out, Channels: 1, SampleRate: b.SampleRate}
}

// Append concatenates src onto b in place, with no gap between them.
// The buffers must be compatible.
func (b *Buffer) Append(src *Buffer) error {
	if !b.Compatible(src) {
		return fmt.Errorf("%w: cannot append %s to %s", ErrCodecFailed, src.Format(), b.Format())
	}
	b.Samples = append(b.Samples, src.Samples...)
	return nil
}

// Concat joins compatible buffers end to end into a new buffer.
func Concat(bufs ...*Buffer) (*Buffer, error) {
	if len(bufs) == 0 {
		return nil, fmt.Errorf("%w: nothing to concatenate", ErrCodecFailed)
	}

	total := 0
	for _, b := range bufs {
		total += len(b.Samples)
	}
	out := &Buffer{
		Samples:    make([]float64, 0, total),
		Channels:   bufs[0].Channels,
		SampleRate: bufs[0].SampleRate,
	}
	for _, b := range bufs {
		if err := out.Append(b); err != nil {
			return nil, err
		}
	}
	return out, nil
}
