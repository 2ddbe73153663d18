// Package composer shapes outgoing replies with the personality profile:
// cultural references, reflection questions, verbal quirks, and the
// readability transforms from the safeguard policy.
package composer

import (
	"strings"
	"unicode/utf8"

	"github.com/bernatferragut/bernatbot/internal/profile"
	"github.com/bernatferragut/bernatbot/internal/safeguard"
)

// chunkThreshold is the segment length, in characters, above which chunking
// inserts paragraph breaks.
const chunkThreshold = 200

// ReflectionQuestions are appended to replies when the profile enables them.
var ReflectionQuestions = []string{
	"What are your thoughts on this?",
	"How does this resonate with your experiences?",
	"What would you do differently?",
	"How can we apply this in our daily lives?",
}

// Formatter applies the personality transforms to a raw reply.
type Formatter struct {
	picker Picker
}

// New returns a Formatter drawing random choices from picker. A nil picker
// uses a time-seeded source.
func New(picker Picker) *Formatter {
	if picker == nil {
		picker = NewPicker(0)
	}
	return &Formatter{picker: picker}
}

// Format builds the outgoing text: an optional cultural reference, the core
// content with quirk substitutions, and an optional reflection question.
// Long segments are chunked and segments are separated by the configured
// visual break. Empty segments are dropped.
func (f *Formatter) Format(raw string, p profile.Profile, cl safeguard.CognitiveLoad) string {
	rf := p.ResponseMechanics.ResponseFormat

	core := raw
	if rf.VerbalQuirks {
		core = ApplyQuirks(core, p.CoreIdentity.VerbalQuirks)
	}

	var segments []string
	if rf.CulturalReference {
		segments = append(segments, f.culturalReference(p))
	}
	segments = append(segments, core)
	if rf.ReflectionQuestion {
		segments = append(segments, f.reflectionQuestion())
	}

	out := segments[:0]
	for _, s := range segments {
		if cl.Chunking {
			s = Chunk(s)
		}
		if strings.TrimSpace(s) == "" {
			continue
		}
		out = append(out, s)
	}

	if sep := strings.TrimSpace(cl.VisualBreaks); sep != "" && len(out) > 1 {
		withBreaks := make([]string, 0, 2*len(out)-1)
		for i, s := range out {
			if i > 0 {
				withBreaks = append(withBreaks, sep)
			}
			withBreaks = append(withBreaks, s)
		}
		out = withBreaks
	}
	return strings.Join(out, "\n\n")
}

func (f *Formatter) culturalReference(p profile.Profile) string {
	sayings := p.CulturalContext.BarcelonaInfluence.LocalSayings
	if len(sayings) == 0 {
		return ""
	}
	saying := strings.TrimSpace(sayings[f.picker.IntN(len(sayings))])
	if saying == "" {
		return ""
	}
	return "As we say in Barcelona: " + saying
}

func (f *Formatter) reflectionQuestion() string {
	return ReflectionQuestions[f.picker.IntN(len(ReflectionQuestions))]
}

// Chunk inserts paragraph breaks after sentence endings in segments longer
// than chunkThreshold characters. Shorter segments are returned unchanged.
func Chunk(s string) string {
	if utf8.RuneCountInString(s) <= chunkThreshold {
		return s
	}
	s = strings.ReplaceAll(s, ". ", ".\n\n")
	return strings.ReplaceAll(s, "? ", "?\n\n")
}
