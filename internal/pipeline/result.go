package pipeline

import (
	"time"

	"github.com/dgnsrekt/prosodic-go/internal/audio"
	"github.com/dgnsrekt/prosodic-go/internal/dialect"
	"github.com/dgnsrekt/prosodic-go/internal/emotion"
)

// Mode names the generation path that produced a result.
type Mode string

// Generation modes.
const (
	ModeBasic      Mode = "basic"
	ModePunctuated Mode = "punctuated"
)

// Request asks for one generation. Emotion Punctuation selects the
// punctuated mode.
type Request struct {
	Text    string
	Dialect dialect.Dialect
	Emotion emotion.Emotion
}

// Result is a successful generation. Buffer must not be modified.
type Result struct {
	ID         string
	Buffer     *audio.Buffer
	SampleRate int
	// Artifact is the WAV file backing the result; nil without a store.
	Artifact  Artifact
	Mode      Mode
	Dialect   dialect.Dialect
	Emotion   emotion.Emotion
	Segments  int
	CreatedAt time.Time
}

// Duration returns the result's playback length.
func (r *Result) Duration() time.Duration {
	return r.Buffer.Duration()
}
