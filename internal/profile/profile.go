package profile

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// greetingPrefix is stripped from configured greetings; older profile
// documents carried it as a narration marker.
const greetingPrefix = "Bernat thinks that... "

// Default returns the built-in profile used when no document is available.
func Default() Document {
	return Document{Profile: Profile{
		InitialGreeting: "Hi! Ask me anything about Bernat.",
		CoreIdentity: CoreIdentity{
			Archetype:          "curious creative technologist from Barcelona",
			CommunicationStyle: "warm, thoughtful and concise",
			VerbalQuirks: []string{
				"uses gardening metaphors for ideas and problems",
				"ends with an open question",
			},
		},
		CulturalContext: CulturalContext{BarcelonaInfluence: BarcelonaInfluence{
			LocalSayings: []string{
				"Poc a poc s'arriba lluny.",
				"Qui no arrisca, no pisca.",
				"A poc a poc i bona lletra.",
			},
			ArchitectureReferences: []string{"Gaudí's Sagrada Família", "the Eixample grid"},
			CulturalValues:         []string{"craftsmanship", "community", "seny i rauxa"},
		}},
		ResponseMechanics: ResponseMechanics{
			Tone: "friendly",
			LanguagePreferences: LanguagePreferences{
				Primary:   "English",
				Secondary: []string{"Catalan", "Spanish"},
			},
			ResponseFormat: ResponseFormat{
				CulturalReference:  true,
				ReflectionQuestion: true,
				VerbalQuirks:       true,
			},
		},
	}}
}

// Greeting returns the opening line shown to a new conversation.
func Greeting(p Profile) string {
	g := strings.TrimPrefix(p.InitialGreeting, greetingPrefix)
	if strings.TrimSpace(g) == "" {
		return Default().Profile.InitialGreeting
	}
	return g
}

// maxSystemMessageChars keeps the persona prompt under ~500 tokens (4 chars/token).
const maxSystemMessageChars = 2000

// SystemMessage renders the persona instructions sent to the hosted model.
// Empty sections are omitted.
func SystemMessage(p Profile) string {
	var parts []string

	id := p.CoreIdentity
	if id.Archetype != "" {
		parts = append(parts, fmt.Sprintf("You are a %s.", id.Archetype))
	}
	if id.CommunicationStyle != "" {
		parts = append(parts, fmt.Sprintf("Your communication style is %s.", id.CommunicationStyle))
	}
	if len(id.VerbalQuirks) > 0 {
		parts = append(parts, fmt.Sprintf("You frequently use these verbal quirks: %s.", strings.Join(id.VerbalQuirks, ", ")))
	}

	bcn := p.CulturalContext.BarcelonaInfluence
	if len(bcn.ArchitectureReferences) > 0 {
		parts = append(parts, fmt.Sprintf("Your cultural influences include: %s.", strings.Join(bcn.ArchitectureReferences, ", ")))
	}
	if len(bcn.CulturalValues) > 0 {
		parts = append(parts, fmt.Sprintf("You value %s.", strings.Join(bcn.CulturalValues, ", ")))
	}

	lang := p.ResponseMechanics.LanguagePreferences
	switch {
	case lang.Primary != "" && len(lang.Secondary) > 0:
		parts = append(parts, fmt.Sprintf("You speak %s primarily, and also %s.", lang.Primary, strings.Join(lang.Secondary, ", ")))
	case lang.Primary != "":
		parts = append(parts, fmt.Sprintf("You speak %s.", lang.Primary))
	}

	if len(parts) == 0 {
		return "You are a helpful assistant that answers questions about Bernat Ferragut."
	}
	return truncate(strings.Join(parts, " "), maxSystemMessageChars)
}

// truncate cuts s to at most n bytes on a word boundary without splitting a
// multi-byte rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	end := n
	for end > 0 && !utf8.RuneStart(s[end]) {
		end--
	}
	if idx := strings.LastIndex(s[:end], " "); idx > 0 {
		return s[:idx]
	}
	return s[:end]
}
