package safeguard

// Policy is the content-safety document: what to block, how to answer, and
// the accessibility settings applied to outgoing text.
type Policy struct {
	ProhibitedContent ProhibitedContent   `json:"prohibited_content"`
	ResponseHandling  map[string]Handling `json:"response_handling"`
	SafetyProtocols   SafetyProtocols     `json:"safety_protocols"`
}

// ProhibitedContent lists blocked words (per language code), phrases and
// regular expressions.
type ProhibitedContent struct {
	Words    map[string][]string `json:"words"`
	Phrases  []string            `json:"phrases"`
	Patterns []string            `json:"patterns"`
}

// Handling describes how a category of unsafe content is answered.
type Handling struct {
	Action    string   `json:"action"` // "warn" or "redirect"
	Message   string   `json:"message"`
	Resources []string `json:"resources,omitempty"`
}

type SafetyProtocols struct {
	ContentModeration     ContentModeration     `json:"content_moderation"`
	AccessibilityFeatures AccessibilityFeatures `json:"accessibility_features"`
}

type ContentModeration struct {
	ResponseStrategy ResponseStrategy `json:"response_strategy"`
}

// ResponseStrategy holds the escalation messages and the violation threshold.
type ResponseStrategy struct {
	InitialWarning    string         `json:"initial_warning"`
	SecondaryResponse string         `json:"secondary_response"`
	FinalAction       string         `json:"final_action"`
	EscalationPath    EscalationPath `json:"escalation_path"`
}

type EscalationPath struct {
	Threshold int `json:"threshold"`
}

type AccessibilityFeatures struct {
	CognitiveLoadManagement CognitiveLoad `json:"cognitive_load_management"`
}

// CognitiveLoad controls readability transforms on replies.
type CognitiveLoad struct {
	Chunking     bool   `json:"chunking"`
	VisualBreaks string `json:"visual_breaks"`
}

const (
	ActionWarn     = "warn"
	ActionRedirect = "redirect"
)

// DefaultPolicy returns the built-in policy used when no document is available.
func DefaultPolicy() Policy {
	return Policy{
		ProhibitedContent: ProhibitedContent{
			Words: map[string][]string{
				"english": {},
				"spanish": {},
				"catalan": {},
			},
			Phrases:  []string{},
			Patterns: []string{},
		},
		ResponseHandling: map[string]Handling{
			handlingKey(CategoryAbusive): {
				Action:  ActionWarn,
				Message: "Please refrain from using inappropriate language",
			},
			handlingKey(CategorySensitive): {
				Action:    ActionRedirect,
				Message:   "This topic may be sensitive",
				Resources: []string{},
			},
		},
		SafetyProtocols: SafetyProtocols{
			ContentModeration: ContentModeration{
				ResponseStrategy: defaultStrategy(),
			},
			AccessibilityFeatures: AccessibilityFeatures{
				CognitiveLoadManagement: CognitiveLoad{
					Chunking:     true,
					VisualBreaks: "\n---\n",
				},
			},
		},
	}
}

func defaultStrategy() ResponseStrategy {
	return ResponseStrategy{
		InitialWarning:    "Please be respectful",
		SecondaryResponse: "This is your second warning",
		FinalAction:       "Conversation ended due to policy violations",
		EscalationPath:    EscalationPath{Threshold: 3},
	}
}

// Normalize enforces the policy invariants: a threshold of at least 1 and
// non-empty escalation messages.
func (p *Policy) Normalize() {
	rs := &p.SafetyProtocols.ContentModeration.ResponseStrategy
	def := defaultStrategy()
	if rs.EscalationPath.Threshold < 1 {
		rs.EscalationPath.Threshold = 1
	}
	if rs.InitialWarning == "" {
		rs.InitialWarning = def.InitialWarning
	}
	if rs.SecondaryResponse == "" {
		rs.SecondaryResponse = def.SecondaryResponse
	}
	if rs.FinalAction == "" {
		rs.FinalAction = def.FinalAction
	}
}

// Strategy returns the escalation settings.
func (p *Policy) Strategy() ResponseStrategy {
	return p.SafetyProtocols.ContentModeration.ResponseStrategy
}

// Accessibility returns the readability settings.
func (p *Policy) Accessibility() CognitiveLoad {
	return p.SafetyProtocols.AccessibilityFeatures.CognitiveLoadManagement
}

// HandlingFor returns the response handling configured for c.
func (p *Policy) HandlingFor(c Category) (Handling, bool) {
	h, ok := p.ResponseHandling[handlingKey(c)]
	return h, ok
}

func handlingKey(c Category) string {
	return string(c) + "_content"
}
