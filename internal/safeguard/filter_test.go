package safeguard

import (
	"errors"
	"regexp/syntax"
	"testing"
)

func testContent() ProhibitedContent {
	return ProhibitedContent{
		Words: map[string][]string{
			"english": {"badword"},
			"catalan": {"merda"},
		},
		Phrases:  []string{"Self Harm"},
		Patterns: []string{`\bkill\s+myself\b`, `([unclosed`},
	}
}

func TestClassify_WholeWordAbusive(t *testing.T) {
	f := NewFilter(testContent(), nil)

	abusive := []string{
		"you are a badword",
		"BADWORD!",
		"(badword)",
		"well...badword, really",
		"quina merda.",
	}
	for _, msg := range abusive {
		if got := f.Classify(msg); got != CategoryAbusive {
			t.Errorf("Classify(%q) = %q, want abusive", msg, got)
		}
	}

	clean := []string{"badwords are bad", "notabadword", "hello there"}
	for _, msg := range clean {
		if got := f.Classify(msg); got != CategoryClean {
			t.Errorf("Classify(%q) = %q, want clean", msg, got)
		}
	}
}

func TestClassify_WholeWordNonASCII(t *testing.T) {
	f := NewFilter(ProhibitedContent{Words: map[string][]string{
		"catalan": {"cabró"},
		"spanish": {"ñoño"},
		"english": {"a$$"},
	}}, nil)

	tests := []struct {
		msg  string
		want Category
	}{
		{"ets un cabró", CategoryAbusive},
		{"ets un cabró!", CategoryAbusive},
		{"CABRÓ", CategoryAbusive},
		{"qué ñoño eres", CategoryAbusive},
		{"¿ñoño?", CategoryAbusive},
		{"what an a$$.", CategoryAbusive},
		{"cabrón", CategoryClean},
		{"acabró", CategoryClean},
		{"ñoños", CategoryClean},
		{"a$$et", CategoryClean},
		{"cabr", CategoryClean},
	}
	for _, tt := range tests {
		if got := f.Classify(tt.msg); got != tt.want {
			t.Errorf("Classify(%q) = %q, want %q", tt.msg, got, tt.want)
		}
	}
}

func TestClassify_Sensitive(t *testing.T) {
	f := NewFilter(testContent(), nil)

	tests := []string{
		"let's talk about self harm",
		"I want to KILL   myself",
	}
	for _, msg := range tests {
		if got := f.Classify(msg); got != CategorySensitive {
			t.Errorf("Classify(%q) = %q, want sensitive", msg, got)
		}
	}
}

func TestClassify_WordsBeforePhrases(t *testing.T) {
	f := NewFilter(testContent(), nil)
	if got := f.Classify("badword and self harm"); got != CategoryAbusive {
		t.Errorf("Classify = %q, want abusive (words are checked first)", got)
	}
}

func TestClassify_InvalidPatternFailsOpen(t *testing.T) {
	f := NewFilter(testContent(), nil)

	invalid := f.InvalidPatterns()
	if len(invalid) != 1 {
		t.Fatalf("InvalidPatterns = %d, want 1", len(invalid))
	}
	if invalid[0].Pattern != `([unclosed` {
		t.Errorf("Pattern = %q", invalid[0].Pattern)
	}
	var syntaxErr *syntax.Error
	if !errors.As(invalid[0], &syntaxErr) {
		t.Errorf("expected wrapped *syntax.Error, got %T", invalid[0].Err)
	}

	// Other patterns keep working.
	if got := f.Classify("kill myself"); got != CategorySensitive {
		t.Errorf("Classify = %q, want sensitive", got)
	}
	if got := f.Classify("([unclosed"); got != CategoryClean {
		t.Errorf("Classify = %q, want clean", got)
	}
}

func TestClassify_RegexMetaInWords(t *testing.T) {
	f := NewFilter(ProhibitedContent{Words: map[string][]string{"english": {"a.b"}}}, nil)
	if got := f.Classify("axb"); got != CategoryClean {
		t.Errorf("Classify(axb) = %q, want clean (words are literal)", got)
	}
	if got := f.Classify("say a.b now"); got != CategoryAbusive {
		t.Errorf("Classify(a.b) = %q, want abusive", got)
	}
}

func TestClassify_DefaultPolicyIsClean(t *testing.T) {
	p := DefaultPolicy()
	for _, msg := range []string{"", "anything", "what is bernat's job"} {
		if got := Classify(msg, p); got != CategoryClean {
			t.Errorf("Classify(%q) = %q, want clean", msg, got)
		}
	}
}

func TestClassify_Idempotent(t *testing.T) {
	f := NewFilter(testContent(), nil)
	for _, msg := range []string{"badword", "self harm", "hi"} {
		if a, b := f.Classify(msg), f.Classify(msg); a != b {
			t.Errorf("Classify(%q) changed between calls: %q vs %q", msg, a, b)
		}
	}
}

func TestPolicy_Normalize(t *testing.T) {
	var p Policy
	p.Normalize()
	rs := p.Strategy()
	if rs.EscalationPath.Threshold != 1 {
		t.Errorf("Threshold = %d, want 1", rs.EscalationPath.Threshold)
	}
	if rs.InitialWarning == "" || rs.SecondaryResponse == "" || rs.FinalAction == "" {
		t.Errorf("empty messages after Normalize: %+v", rs)
	}
}

func TestPolicy_HandlingFor(t *testing.T) {
	p := DefaultPolicy()
	h, ok := p.HandlingFor(CategorySensitive)
	if !ok {
		t.Fatal("expected sensitive handling")
	}
	if h.Action != ActionRedirect {
		t.Errorf("Action = %q, want %q", h.Action, ActionRedirect)
	}
	if _, ok := p.HandlingFor(CategoryClean); ok {
		t.Error("clean should have no handling")
	}
}
