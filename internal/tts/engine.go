// Package tts defines the speech synthesis collaborator and its engines.
package tts

import (
	"context"
	"errors"
)

// ErrSynthesisFailed is returned when an engine cannot produce audio.
var ErrSynthesisFailed = errors.New("TTS synthesis failed")

// SynthesizeRequest contains parameters for TTS synthesis.
type SynthesizeRequest struct {
	Text string
	// Language is a BCP-47 style code such as "mr". Engines that bind the
	// language to a model ignore it.
	Language string
	Voice    string
}

// AudioResult represents synthesized audio output.
type AudioResult struct {
	// Data holds the encoded audio in the container named by Format.
	Data []byte
	// Format is the container, e.g. "wav" or "mp3".
	Format string
	// SampleRate is the nominal sample rate in Hz, 0 if unknown.
	SampleRate int
	// Channels is the nominal channel count, 0 if unknown.
	Channels int
}

// Engine is the interface for text-to-speech synthesis.
type Engine interface {
	// Synthesize converts text to audio. Failures wrap ErrSynthesisFailed
	// unless the context was cancelled.
	Synthesize(ctx context.Context, req SynthesizeRequest) (*AudioResult, error)
	// Name returns the engine identifier.
	Name() string
}
