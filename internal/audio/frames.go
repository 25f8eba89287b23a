package audio

import "io"

const (
	// DiscordSampleRate is the required sample rate for Discord voice.
	DiscordSampleRate = 48000
	// DiscordChannels is the required number of channels for Discord voice.
	DiscordChannels = 2
	// DiscordFrameSize is the number of samples per channel in one 20ms frame.
	DiscordFrameSize = 960
	// DiscordFrameBytes is the size of one stereo 16-bit frame in bytes.
	DiscordFrameBytes = DiscordFrameSize * DiscordChannels * 2
)

// DiscordFormat is the PCM layout Discord voice expects.
var DiscordFormat = Format{SampleRate: DiscordSampleRate, Channels: DiscordChannels}

// FrameReader hands out fixed-size frames of interleaved int16 samples.
// A short final frame is padded with silence.
type FrameReader struct {
	samples  []int16
	frameLen int
	offset   int
}

// NewFrameReader creates a reader returning frameLen samples per frame.
func NewFrameReader(samples []int16, frameLen int) *FrameReader {
	return &FrameReader{samples: samples, frameLen: frameLen}
}

// NewDiscordFrameReader converts the buffer to 48kHz stereo and returns a
// reader of 20ms frames ready for Opus encoding.
func NewDiscordFrameReader(b *Buffer) (*FrameReader, error) {
	conv, err := ConvertFormat(b, DiscordFormat)
	if err != nil {
		return nil, err
	}
	return NewFrameReader(conv.ToPCM16(), DiscordFrameSize*DiscordChannels), nil
}

// ReadFrame returns the next frame, or io.EOF when all samples are consumed.
func (r *FrameReader) ReadFrame() ([]int16, error) {
	if r.offset >= len(r.samples) {
		return nil, io.EOF
	}

	end := r.offset + r.frameLen
	if end <= len(r.samples) {
		frame := r.samples[r.offset:end]
		r.offset = end
		return frame, nil
	}

	frame := make([]int16, r.frameLen)
	copy(frame, r.samples[r.offset:])
	r.offset = len(r.samples)
	return frame, nil
}

// Reset rewinds the reader to the first frame.
func (r *FrameReader) Reset() {
	r.offset = 0
}

// Remaining returns the number of samples not yet read.
func (r *FrameReader) Remaining() int {
	return len(r.samples) - r.offset
}
