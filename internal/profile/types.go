package profile

// Document is the root of the personality JSON file.
type Document struct {
	Profile Profile `json:"personality_profile"`
}

// Profile describes who the assistant speaks as and how replies are shaped.
type Profile struct {
	InitialGreeting   string            `json:"initial_greeting"`
	CoreIdentity      CoreIdentity      `json:"core_identity"`
	CulturalContext   CulturalContext   `json:"cultural_context"`
	ResponseMechanics ResponseMechanics `json:"response_mechanics"`
}

type CoreIdentity struct {
	Archetype          string   `json:"archetype"`
	CommunicationStyle string   `json:"communication_style"`
	VerbalQuirks       []string `json:"verbal_quirks"`
}

type CulturalContext struct {
	BarcelonaInfluence BarcelonaInfluence `json:"barcelona_influence"`
}

type BarcelonaInfluence struct {
	LocalSayings           []string `json:"local_sayings"`
	ArchitectureReferences []string `json:"architecture_references"`
	CulturalValues         []string `json:"cultural_values"`
}

type ResponseMechanics struct {
	Tone                string              `json:"tone"`
	LanguagePreferences LanguagePreferences `json:"language_preferences"`
	ResponseFormat      ResponseFormat      `json:"response_format"`
}

type LanguagePreferences struct {
	Primary   string   `json:"primary"`
	Secondary []string `json:"secondary"`
}

// ResponseFormat toggles the stylistic steps applied to replies.
type ResponseFormat struct {
	CulturalReference  bool `json:"cultural_reference"`
	ReflectionQuestion bool `json:"reflection_question"`
	VerbalQuirks       bool `json:"verbal_quirks"`
}
