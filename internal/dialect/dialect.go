// Package dialect rewrites Marathi text into one of a fixed set of regional
// variants and carries each variant's rhythm and articulation multipliers.
package dialect

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknown is returned for a dialect key or value outside the closed set.
var ErrUnknown = errors.New("unknown dialect")

// Dialect identifies a regional variant.
type Dialect int

// Supported dialects.
const (
	Standard Dialect = iota
	Varhadi
	Ahirani
	Malwani
	Nagpuri
	Konkani
)

// Substitution replaces every occurrence of Pattern with Replacement.
type Substitution struct {
	Pattern     string
	Replacement string
}

// Profile is the immutable description of a dialect.
type Profile struct {
	// Name is the dialect's Marathi display name.
	Name string
	// Substitutions are applied strictly in order.
	Substitutions []Substitution
	// RhythmFactor speeds up (>1) or slows down (<1) the synthesized audio.
	RhythmFactor float64
	// ArticulationFactor scales dynamic range around the mean.
	ArticulationFactor float64
}

var keys = [...]string{
	Standard: "standard",
	Varhadi:  "varhadi",
	Ahirani:  "ahirani",
	Malwani:  "malwani",
	Nagpuri:  "nagpuri",
	Konkani:  "konkani",
}

// Identity pairs are kept; the tables are never deduplicated or reordered.
var profiles = [...]Profile{
	Standard: {
		Name:               "मानक मराठी",
		RhythmFactor:       1.0,
		ArticulationFactor: 1.0,
	},
	Varhadi: {
		Name: "वरहाडी",
		Substitutions: []Substitution{
			{"गा", "मा"},
			{"ळ", "ल"},
			{"आहे", "आय"},
			{"नाही", "नाय"},
			{"काय", "काय"},
			{"मी", "म्ही"},
			{"तू", "तु"},
			{"आपण", "आपुण"},
			{"झाला", "झाला"},
			{"पाहिजे", "पाहिजे"},
			{"बोलतो", "बोलतो"},
		},
		RhythmFactor:       1.1,
		ArticulationFactor: 1.15,
	},
	Ahirani: {
		Name: "अहिराणी",
		Substitutions: []Substitution{
			{"आहे", "हाय"},
			{"नाही", "नाय"},
			{"मला", "म्हाला"},
			{"तुला", "तुला"},
			{"झाला", "झालं"},
			{"काय", "काय"},
			{"कसं", "कसं"},
			{"पाहिजे", "पायजे"},
			{"जातो", "जातो"},
		},
		RhythmFactor:       1.12,
		ArticulationFactor: 1.2,
	},
	Malwani: {
		Name: "मालवणी",
		Substitutions: []Substitution{
			{"व", "व्ह"},
			{"च", "च"},
			{"झ", "झ"},
			{"आहे", "आस"},
			{"नाही", "नाय"},
			{"काय", "काय"},
			{"कसं", "कसं"},
			{"तुला", "तुज्जा"},
			{"मला", "मज्जा"},
			{"पाहिजे", "पायजे"},
		},
		RhythmFactor:       0.92,
		ArticulationFactor: 0.9,
	},
	Nagpuri: {
		Name: "नागपुरी",
		Substitutions: []Substitution{
			{"आहे", "हाय"},
			{"नाही", "नाय"},
			{"मला", "म्हाला"},
			{"तुला", "तुला"},
			{"आपण", "आपुण"},
			{"काय", "काय"},
			{"करतो", "करतो"},
			{"बोलतो", "बोलतो"},
		},
		RhythmFactor:       1.12,
		ArticulationFactor: 1.2,
	},
	Konkani: {
		Name: "कोकणी",
		Substitutions: []Substitution{
			{"आहे", "आसा"},
			{"नाही", "ना"},
			{"काय", "कितं"},
			{"कसं", "कसं"},
			{"तुला", "तुका"},
			{"मला", "माका"},
			{"पाहिजे", "जाय"},
		},
		RhythmFactor:       0.95,
		ArticulationFactor: 0.93,
	},
}

// All returns every dialect in declaration order.
func All() []Dialect {
	out := make([]Dialect, len(keys))
	for i := range keys {
		out[i] = Dialect(i)
	}
	return out
}

// Parse returns the dialect for a lower-case key such as "varhadi".
func Parse(key string) (Dialect, error) {
	k := strings.ToLower(strings.TrimSpace(key))
	for i, name := range keys {
		if name == k {
			return Dialect(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknown, key)
}

// Valid reports whether d is one of the defined dialects.
func (d Dialect) Valid() bool {
	return d >= 0 && int(d) < len(keys)
}

// String returns the dialect's key.
func (d Dialect) String() string {
	if !d.Valid() {
		return fmt.Sprintf("dialect(%d)", int(d))
	}
	return keys[d]
}

// Profile returns the dialect's profile. The substitution slice is shared
// and must not be modified.
func (d Dialect) Profile() (Profile, error) {
	if !d.Valid() {
		return Profile{}, fmt.Errorf("%w: %d", ErrUnknown, int(d))
	}
	return profiles[d], nil
}

// Apply rewrites text with the dialect's substitution table.
func (d Dialect) Apply(text string) (string, error) {
	p, err := d.Profile()
	if err != nil {
		return "", err
	}
	return Substitute(text, p.Substitutions), nil
}

// Substitute applies each pair in order to the text produced by the previous
// pair, so a later pattern may match an earlier replacement. Matching is
// exact and case-sensitive.
func Substitute(text string, table []Substitution) string {
	for _, s := range table {
		if s.Pattern == "" {
			continue
		}
		text = strings.ReplaceAll(text, s.Pattern, s.Replacement)
	}
	return text
}

// MarshalText implements encoding.TextMarshaler.
func (d Dialect) MarshalText() ([]byte, error) {
	if !d.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknown, int(d))
	}
	return []byte(keys[d]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Dialect) UnmarshalText(b []byte) error {
	v, err := Parse(string(b))
	if err != nil {
		return err
	}
	*d = v
	return nil
}
