// Package segment splits text into sentence-like spans ending in terminal
// punctuation.
package segment

import (
	"strings"
	"unicode"
)

// Segment is one span of input text.
type Segment struct {
	// Index is the segment's position in the returned slice.
	Index int
	// Text is the trimmed span, including its trailing punctuation run.
	Text string
	// Terminal is the last punctuation mark of the span, or 0 if none.
	Terminal rune
}

// HasTerminal reports whether the segment ended in punctuation.
func (s Segment) HasTerminal() bool {
	return s.Terminal != 0
}

// IsTerminal reports whether r ends a segment: the danda, ASCII sentence
// and clause punctuation, and straight quotes.
func IsTerminal(r rune) bool {
	switch r {
	case '।', '?', '!', '.', ',', ';', ':', '"', '\'':
		return true
	}
	return false
}

// Split scans text greedily. Each segment is a run of non-terminal characters
// followed by one or more terminal marks, kept together. Text after the last
// terminal run is dropped, and so are stray marks with no text before them.
// Text with no terminal marks at all is returned whole as a single segment.
// Segments with no speakable content are skipped, so a mark run preceded
// only by whitespace, such as the " !" in "नमस्कार. !", yields nothing.
func Split(text string) []Segment {
	if !strings.ContainsFunc(text, IsTerminal) {
		t := strings.TrimSpace(text)
		if t == "" {
			return nil
		}
		return []Segment{{Index: 0, Text: t}}
	}

	var (
		segments []Segment
		body     strings.Builder
		marks    strings.Builder
	)

	flush := func() {
		if marks.Len() == 0 {
			return
		}
		if strings.TrimFunc(body.String(), unicode.IsSpace) != "" {
			t := strings.TrimSpace(body.String() + marks.String())
			last := []rune(t)[len([]rune(t))-1]
			seg := Segment{Index: len(segments), Text: t}
			if IsTerminal(last) {
				seg.Terminal = last
			}
			segments = append(segments, seg)
		}
		body.Reset()
		marks.Reset()
	}

	for _, r := range text {
		if IsTerminal(r) {
			if body.Len() == 0 {
				continue
			}
			marks.WriteRune(r)
			continue
		}
		if marks.Len() > 0 {
			flush()
		}
		body.WriteRune(r)
	}
	flush()

	return segments
}
