package pipeline

import (
	"context"
	"errors"

	"github.com/dgnsrekt/prosodic-go/internal/audio"
	"github.com/dgnsrekt/prosodic-go/internal/tts"
)

// Error kinds. Every error returned by Pipeline matches exactly one of these
// with errors.Is, or is a context error.
var (
	// ErrInvalidInput covers empty text, unknown dialects or emotions, and
	// playing before anything was generated.
	ErrInvalidInput = errors.New("invalid input")
	// ErrSynthesisFailure is the speech engine's failure kind.
	ErrSynthesisFailure = tts.ErrSynthesisFailed
	// ErrCodecFailure is the decode, encode and format conversion kind.
	ErrCodecFailure = audio.ErrCodecFailed
	// ErrIOFailure covers temporary artifacts and save paths.
	ErrIOFailure = errors.New("io failure")
	// ErrPlayback is returned when the playback device fails or is missing.
	ErrPlayback = errors.New("playback failure")
)

var (
	// ErrNoResult is joined with a kind when an operation needs a generated
	// result and there is none.
	ErrNoResult = errors.New("no generated result")
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("pipeline closed")

	errNoSegments = errors.New("no segments")
	errEmptyAudio = errors.New("engine returned no audio")
	errNoPlayer   = errors.New("no playback device configured")
)

// Kind classifies an error for metrics and HTTP status mapping.
func Kind(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, ErrSynthesisFailure):
		return "synthesis"
	case errors.Is(err, ErrCodecFailure):
		return "codec"
	case errors.Is(err, ErrIOFailure):
		return "io"
	case errors.Is(err, ErrPlayback):
		return "playback"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "unknown"
	}
}
