package composer

import (
	"strings"
	"testing"

	"github.com/bernatferragut/bernatbot/internal/profile"
	"github.com/bernatferragut/bernatbot/internal/safeguard"
)

// fixedPicker always returns the same index, clamped to n.
type fixedPicker int

func (p fixedPicker) IntN(n int) int {
	if int(p) >= n {
		return n - 1
	}
	return int(p)
}

func plainProfile() profile.Profile {
	return profile.Profile{}
}

func TestFormat_NoTransforms(t *testing.T) {
	f := New(fixedPicker(0))
	got := f.Format("Bernat builds tools.", plainProfile(), safeguard.CognitiveLoad{})
	if got != "Bernat builds tools." {
		t.Errorf("Format = %q", got)
	}
}

func TestFormat_AllSegments(t *testing.T) {
	p := profile.Profile{
		CulturalContext: profile.CulturalContext{
			BarcelonaInfluence: profile.BarcelonaInfluence{LocalSayings: []string{"Poc a poc", "Qui no plora no mama"}},
		},
		ResponseMechanics: profile.ResponseMechanics{
			ResponseFormat: profile.ResponseFormat{CulturalReference: true, ReflectionQuestion: true},
		},
	}
	f := New(fixedPicker(1))
	got := f.Format("Core answer.", p, safeguard.CognitiveLoad{VisualBreaks: "\n---\n"})

	want := "As we say in Barcelona: Qui no plora no mama\n\n---\n\nCore answer.\n\n---\n\nHow does this resonate with your experiences?"
	if got != want {
		t.Errorf("Format =\n%q\nwant\n%q", got, want)
	}
}

func TestFormat_NoTrailingBreak(t *testing.T) {
	got := New(fixedPicker(0)).Format("Only core.", plainProfile(), safeguard.CognitiveLoad{VisualBreaks: "---"})
	if got != "Only core." {
		t.Errorf("Format = %q, want no separator around a single segment", got)
	}
}

func TestFormat_DropsEmptySegments(t *testing.T) {
	p := profile.Profile{
		ResponseMechanics: profile.ResponseMechanics{
			ResponseFormat: profile.ResponseFormat{CulturalReference: true},
		},
	}
	got := New(fixedPicker(0)).Format("Core.", p, safeguard.CognitiveLoad{VisualBreaks: "---"})
	if got != "Core." {
		t.Errorf("Format = %q, want cultural reference skipped without sayings", got)
	}
}

func TestFormat_QuirksOnlyTouchCore(t *testing.T) {
	p := profile.Profile{
		CoreIdentity: profile.CoreIdentity{VerbalQuirks: []string{"Uses gardening metaphors"}},
		ResponseMechanics: profile.ResponseMechanics{
			ResponseFormat: profile.ResponseFormat{VerbalQuirks: true, ReflectionQuestion: true},
		},
	}
	got := New(fixedPicker(0)).Format("Solutions to every problem.", p, safeguard.CognitiveLoad{})
	if !strings.HasPrefix(got, "Seeds to every weed.") {
		t.Errorf("Format = %q, want gardening substitutions", got)
	}
	if !strings.HasSuffix(got, ReflectionQuestions[0]) {
		t.Errorf("Format = %q, want reflection question untouched", got)
	}
}

func TestApplyQuirks(t *testing.T) {
	garden := []string{"talks like a gardener"}
	tests := []struct {
		in     string
		quirks []string
		want   string
	}{
		{"a problem and a solution", garden, "a weed and a seed"},
		{"Problems, Solutions", garden, "Weeds, Seeds"},
		{"problematic resolution", garden, "problematic resolution"},
		{"el problemà and a problem", garden, "el problemà and a weed"},
		{"àproblem, problem_x, problem.", garden, "àproblem, problem_x, weed."},
		{"problem problem", garden, "weed weed"},
		{"¡Problem!", garden, "¡Weed!"},
		{"a problem", []string{"speaks fast"}, "a problem"},
		{"a problem", nil, "a problem"},
	}
	for _, tt := range tests {
		if got := ApplyQuirks(tt.in, tt.quirks); got != tt.want {
			t.Errorf("ApplyQuirks(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestChunk(t *testing.T) {
	short := "One. Two? Three."
	if got := Chunk(short); got != short {
		t.Errorf("Chunk(short) = %q, want unchanged", got)
	}

	long := strings.Repeat("word ", 40) + "end. Next? Last."
	got := Chunk(long)
	if !strings.Contains(got, "end.\n\nNext?\n\nLast.") {
		t.Errorf("Chunk(long) = %q, want paragraph breaks", got)
	}
}

func TestFormat_PreservesCoreModuloWhitespace(t *testing.T) {
	core := strings.Repeat("Bernat likes building things. Does he sleep? ", 8)
	p := profile.Profile{
		CulturalContext: profile.CulturalContext{
			BarcelonaInfluence: profile.BarcelonaInfluence{LocalSayings: []string{"Poc a poc"}},
		},
		ResponseMechanics: profile.ResponseMechanics{
			ResponseFormat: profile.ResponseFormat{CulturalReference: true, ReflectionQuestion: true},
		},
	}
	got := New(NewPicker(42)).Format(core, p, safeguard.CognitiveLoad{Chunking: true, VisualBreaks: "\n---\n"})

	if !strings.Contains(collapse(got), collapse(core)) {
		t.Errorf("formatted output lost core content:\n%s", got)
	}
	if strings.HasSuffix(got, "---") {
		t.Error("output ends with a visual break")
	}
}

func TestNewPicker_Deterministic(t *testing.T) {
	a, b := NewPicker(7), NewPicker(7)
	for i := 0; i < 20; i++ {
		if x, y := a.IntN(100), b.IntN(100); x != y {
			t.Fatalf("draw %d: %d != %d", i, x, y)
		}
	}
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
