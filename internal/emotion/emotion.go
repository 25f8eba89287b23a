// Package emotion maps a closed set of emotions to buffer transforms.
package emotion

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/dgnsrekt/prosodic-go/internal/audio"
)

var (
	// ErrUnknown is returned for an emotion key or value outside the closed set.
	ErrUnknown = errors.New("unknown emotion")
	// ErrNotTransform is returned when the punctuation mode marker is used as
	// a buffer transform.
	ErrNotTransform = errors.New("emotion is a mode marker, not a transform")
)

// Emotion identifies an emotion profile.
type Emotion int

// Supported emotions. Punctuation selects punctuation-driven generation
// instead of a whole-buffer transform.
const (
	Neutral Emotion = iota
	Happy
	Angry
	Sad
	Punctuation
)

// Profile is the parameter tuple for an emotion.
type Profile struct {
	// Intensity scales dynamic range around the mean.
	Intensity float64
	// SpeedFactor is a direct speed multiplier when positive and the
	// reciprocal of its magnitude otherwise. See EffectiveSpeed.
	SpeedFactor float64
	// VolumeGain is a linear amplitude multiplier applied last.
	VolumeGain float64
	// PauseLength is carried for reference and not applied to audio.
	PauseLength float64
}

type entry struct {
	key         string
	name        string
	description string
	profile     Profile
}

// Angry keeps its negative speed factor as defined: through the reciprocal
// rule it resolves to 1/1.13, which lengthens the audio.
var table = [...]entry{
	Neutral: {
		key:         "neutral",
		name:        "न्यूट्रल",
		description: "न्यूट्रल - सामान्य वेग आणि आवाज",
		profile:     Profile{Intensity: 1.0, SpeedFactor: 1.0, VolumeGain: 0.9, PauseLength: 1.0},
	},
	Happy: {
		key:         "happy",
		name:        "आनंदी",
		description: "आनंदी - थोडा जास्त वेग आणि जास्त आवाज",
		profile:     Profile{Intensity: 1.15, SpeedFactor: 1.1, VolumeGain: 1.1, PauseLength: 0.8},
	},
	Angry: {
		key:         "angry",
		name:        "रागीट",
		description: "रागीट - थोडा कमी वेग आणि जास्त आवाज",
		profile:     Profile{Intensity: 1.8, SpeedFactor: -1.13, VolumeGain: 1.8, PauseLength: 0.25},
	},
	Sad: {
		key:         "sad",
		name:        "दुःखी",
		description: "दुःखी - कमी वेग आणि कमी आवाज",
		profile:     Profile{Intensity: 0.8, SpeedFactor: 0.89, VolumeGain: 0.7, PauseLength: 1.4},
	},
	Punctuation: {
		key:         "punctuation",
		name:        "विरामचिन्हे",
		description: "विरामचिन्हे - प्रश्नचिन्हांसाठी जास्त आवाज, उद्गारचिन्हांसाठी जास्त वेग",
		profile:     Profile{Intensity: 1.0, SpeedFactor: 1.2, VolumeGain: 1.7, PauseLength: 1.0},
	},
}

// All returns every emotion in declaration order, including the
// punctuation mode marker.
func All() []Emotion {
	out := make([]Emotion, len(table))
	for i := range table {
		out[i] = Emotion(i)
	}
	return out
}

// Parse returns the emotion for a lower-case key such as "happy".
func Parse(key string) (Emotion, error) {
	k := strings.ToLower(strings.TrimSpace(key))
	for i, e := range table {
		if e.key == k {
			return Emotion(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknown, key)
}

// Valid reports whether e is one of the defined emotions.
func (e Emotion) Valid() bool {
	return e >= 0 && int(e) < len(table)
}

// String returns the emotion's key.
func (e Emotion) String() string {
	if !e.Valid() {
		return fmt.Sprintf("emotion(%d)", int(e))
	}
	return table[e].key
}

// Name returns the Marathi display name.
func (e Emotion) Name() string {
	if !e.Valid() {
		return e.String()
	}
	return table[e].name
}

// Description returns a one-line Marathi summary of the emotion's effect.
func (e Emotion) Description() string {
	if !e.Valid() {
		return ""
	}
	return table[e].description
}

// IsPunctuationMode reports whether e selects punctuation-driven generation.
func (e Emotion) IsPunctuationMode() bool {
	return e == Punctuation
}

// Profile returns the emotion's parameter tuple.
func (e Emotion) Profile() (Profile, error) {
	if !e.Valid() {
		return Profile{}, fmt.Errorf("%w: %d", ErrUnknown, int(e))
	}
	return table[e].profile, nil
}

// Apply transforms the buffer with the emotion's profile.
func (e Emotion) Apply(b *audio.Buffer) (*audio.Buffer, error) {
	p, err := e.Profile()
	if err != nil {
		return nil, err
	}
	if e.IsPunctuationMode() {
		return nil, fmt.Errorf("%w: %s", ErrNotTransform, e)
	}
	return Transform(b, p), nil
}

// EffectiveSpeed resolves a signed speed factor. Positive values are used
// directly; zero and negative values become 1/|f|. A non-positive or
// non-finite result is clamped to 1.
func EffectiveSpeed(speedFactor float64) float64 {
	var s float64
	if speedFactor > 0 {
		s = speedFactor
	} else {
		s = 1 / math.Abs(speedFactor)
	}
	if s <= 0 || math.IsInf(s, 0) || math.IsNaN(s) {
		return 1.0
	}
	return s
}

// Transform applies intensity scaling, then a rhythm change at the effective
// speed, then the volume gain. Steps whose parameter is 1 are skipped.
// PauseLength is ignored.
func Transform(b *audio.Buffer, p Profile) *audio.Buffer {
	out := b
	if p.Intensity != 1.0 {
		out = audio.IntensityScale(out, p.Intensity)
	}
	if p.SpeedFactor != 1.0 {
		out = audio.RhythmChange(out, EffectiveSpeed(p.SpeedFactor))
	}
	return audio.Gain(out, p.VolumeGain)
}

// MarshalText implements encoding.TextMarshaler.
func (e Emotion) MarshalText() ([]byte, error) {
	if !e.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknown, int(e))
	}
	return []byte(table[e].key), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (e *Emotion) UnmarshalText(b []byte) error {
	v, err := Parse(string(b))
	if err != nil {
		return err
	}
	*e = v
	return nil
}
