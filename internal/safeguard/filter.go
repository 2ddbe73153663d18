package safeguard

import (
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strings"
)

// Category is the safety classification of an incoming message.
type Category string

const (
	CategoryClean     Category = "clean"
	CategoryAbusive   Category = "abusive"
	CategorySensitive Category = "sensitive"
)

// Unsafe reports whether c triggers escalation.
func (c Category) Unsafe() bool {
	return c == CategoryAbusive || c == CategorySensitive
}

// InvalidPatternError reports a policy pattern that does not compile.
type InvalidPatternError struct {
	Pattern string
	Err     error
}

func (e *InvalidPatternError) Error() string {
	return fmt.Sprintf("invalid prohibited pattern %q: %v", e.Pattern, e.Err)
}

func (e *InvalidPatternError) Unwrap() error { return e.Err }

// Filter classifies messages against a compiled ProhibitedContent list.
// It is immutable after construction and safe for concurrent use.
type Filter struct {
	words    []*regexp.Regexp
	phrases  []string
	patterns []*regexp.Regexp
	invalid  []*InvalidPatternError
}

// NewFilter compiles pc. Patterns that fail to compile are logged and
// skipped; they never match.
func NewFilter(pc ProhibitedContent, logger *slog.Logger) *Filter {
	if logger == nil {
		logger = slog.Default()
	}
	f := &Filter{}

	// Sort languages so the first hit is deterministic.
	langs := make([]string, 0, len(pc.Words))
	for lang := range pc.Words {
		langs = append(langs, lang)
	}
	sort.Strings(langs)
	for _, lang := range langs {
		for _, w := range pc.Words[lang] {
			w = strings.TrimSpace(w)
			if w == "" {
				continue
			}
			f.words = append(f.words, wholeWord(w))
		}
	}

	for _, p := range pc.Phrases {
		if p == "" {
			continue
		}
		f.phrases = append(f.phrases, strings.ToLower(p))
	}

	for _, p := range pc.Patterns {
		if p == "" {
			continue
		}
		re, err := regexp.Compile("(?i)" + p)
		if err != nil {
			perr := &InvalidPatternError{Pattern: p, Err: err}
			logger.Warn("skipping prohibited pattern", "error", perr)
			f.invalid = append(f.invalid, perr)
			continue
		}
		f.patterns = append(f.patterns, re)
	}
	return f
}

// wordBoundary matches one non-word rune. Word runes are Unicode letters,
// digits and underscore, as in knowledge.Tokenize; \b is ASCII-only.
const wordBoundary = `[^\p{L}\p{N}_]`

// wholeWord matches w case-insensitively when it is not embedded in a longer
// word.
func wholeWord(w string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)(?:^|` + wordBoundary + `)` + regexp.QuoteMeta(w) + `(?:$|` + wordBoundary + `)`)
}

// Classify checks words, then phrases, then patterns; the first hit decides.
func (f *Filter) Classify(message string) Category {
	for _, re := range f.words {
		if re.MatchString(message) {
			return CategoryAbusive
		}
	}

	lower := strings.ToLower(message)
	for _, p := range f.phrases {
		if strings.Contains(lower, p) {
			return CategorySensitive
		}
	}

	for _, re := range f.patterns {
		if re.MatchString(message) {
			return CategorySensitive
		}
	}
	return CategoryClean
}

// InvalidPatterns returns the patterns that were skipped at construction.
func (f *Filter) InvalidPatterns() []*InvalidPatternError {
	return f.invalid
}

// Classify is a convenience for one-off checks against a policy.
func Classify(message string, p Policy) Category {
	return NewFilter(p.ProhibitedContent, nil).Classify(message)
}
