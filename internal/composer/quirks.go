package composer

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

type substitution struct {
	re   *regexp.Regexp
	with string
}

// quirkTheme is enabled when any profile quirk mentions keyword.
type quirkTheme struct {
	keyword string
	subs    []substitution
}

var quirkThemes = []quirkTheme{
	{
		keyword: "garden",
		subs: []substitution{
			word("solutions", "seeds"),
			word("solution", "seed"),
			word("problems", "weeds"),
			word("problem", "weed"),
		},
	},
}

func word(from, to string) substitution {
	return substitution{re: regexp.MustCompile(`(?i)` + regexp.QuoteMeta(from)), with: to}
}

// isWordRune reports whether r can be part of a word: a Unicode letter, digit
// or underscore.
func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
}

// replaceWholeWords replaces every match of sub that is not embedded in a
// longer word.
func replaceWholeWords(text string, sub substitution) string {
	locs := sub.re.FindAllStringIndex(text, -1)
	if locs == nil {
		return text
	}
	var b strings.Builder
	last := 0
	for _, loc := range locs {
		start, end := loc[0], loc[1]
		if before, _ := utf8.DecodeLastRuneInString(text[:start]); start > 0 && isWordRune(before) {
			continue
		}
		if after, _ := utf8.DecodeRuneInString(text[end:]); end < len(text) && isWordRune(after) {
			continue
		}
		b.WriteString(text[last:start])
		b.WriteString(matchCase(text[start:end], sub.with))
		last = end
	}
	b.WriteString(text[last:])
	return b.String()
}

// ApplyQuirks rewrites text with the word substitutions of every theme the
// quirks refer to. Matching is whole-word and case-insensitive; a leading
// capital is preserved.
func ApplyQuirks(text string, quirks []string) string {
	for _, theme := range quirkThemes {
		if !mentions(quirks, theme.keyword) {
			continue
		}
		for _, sub := range theme.subs {
			text = replaceWholeWords(text, sub)
		}
	}
	return text
}

func mentions(quirks []string, keyword string) bool {
	for _, q := range quirks {
		if strings.Contains(strings.ToLower(q), keyword) {
			return true
		}
	}
	return false
}

func matchCase(orig, repl string) string {
	r, _ := utf8.DecodeRuneInString(orig)
	if !unicode.IsUpper(r) {
		return repl
	}
	first, size := utf8.DecodeRuneInString(repl)
	return string(unicode.ToUpper(first)) + repl[size:]
}
