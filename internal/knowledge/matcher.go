package knowledge

import (
	"fmt"
	"strings"
	"unicode"
)

// MinOverlap is the smallest overlap score a candidate needs to be accepted.
const MinOverlap = 2

// FactMatchPolicy selects how facts and triggers are compared with a message.
// FAQs are always scored by token overlap.
type FactMatchPolicy string

const (
	// PolicyOverlap scores fact and trigger keys exactly like FAQ questions.
	PolicyOverlap FactMatchPolicy = "overlap"
	// PolicySubstring accepts the first key contained in the lower-cased message.
	PolicySubstring FactMatchPolicy = "substring"
)

// ParseFactMatchPolicy validates a policy name. The empty string selects
// PolicyOverlap.
func ParseFactMatchPolicy(s string) (FactMatchPolicy, error) {
	switch FactMatchPolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", PolicyOverlap:
		return PolicyOverlap, nil
	case PolicySubstring:
		return PolicySubstring, nil
	}
	return "", fmt.Errorf("unknown fact match policy %q (want %q or %q)", s, PolicyOverlap, PolicySubstring)
}

// SourceKind identifies which part of the knowledge base produced a match.
type SourceKind string

const (
	SourceFAQ     SourceKind = "faq"
	SourceFact    SourceKind = "fact"
	SourceTrigger SourceKind = "trigger"
)

// Match is the best local answer for a message.
type Match struct {
	Answer string
	// Score is the token overlap with the message and is at least MinOverlap
	// for overlap matches. Under PolicySubstring a fact or trigger match has
	// no overlap threshold and Score is the number of tokens in Key, which
	// may be 0 or 1.
	Score int
	Kind   SourceKind
	Key    string // FAQ question or fact/trigger key
}

// Matcher finds local answers by lexical overlap. It holds no mutable state
// and is safe for concurrent use.
type Matcher struct {
	policy FactMatchPolicy
}

// NewMatcher returns a Matcher using the given fact policy. An unknown policy
// falls back to PolicyOverlap.
func NewMatcher(policy FactMatchPolicy) *Matcher {
	if policy != PolicySubstring {
		policy = PolicyOverlap
	}
	return &Matcher{policy: policy}
}

// Policy returns the fact policy in use.
func (m *Matcher) Policy() FactMatchPolicy {
	return m.policy
}

// Match returns the best candidate for message, or false when nothing in kb
// qualifies. A qualifying FAQ always wins over facts and triggers.
func (m *Matcher) Match(message string, kb *Base) (Match, bool) {
	if kb == nil {
		return Match{}, false
	}
	tokens := Tokenize(message)
	if len(tokens) == 0 {
		return Match{}, false
	}

	var best Match
	for _, faq := range kb.FAQs {
		consider(&best, tokens, faq.Question, faq.Answer, SourceFAQ)
	}
	if best.Score > 0 {
		return best, true
	}

	if m.policy == PolicySubstring {
		return matchSubstring(message, kb)
	}

	for _, f := range kb.Facts {
		consider(&best, tokens, f.Key, f.Answer, SourceFact)
	}
	for _, t := range kb.Triggers {
		consider(&best, tokens, t.Key, t.Answer, SourceTrigger)
	}
	if best.Score > 0 {
		return best, true
	}
	return Match{}, false
}

// consider replaces best only on a strictly greater qualifying score, so the
// first candidate seen wins ties.
func consider(best *Match, tokens []string, text, answer string, kind SourceKind) {
	score := Overlap(tokens, text)
	if score < MinOverlap || score <= best.Score {
		return
	}
	*best = Match{Answer: answer, Score: score, Kind: kind, Key: text}
}

func matchSubstring(message string, kb *Base) (Match, bool) {
	lower := strings.ToLower(message)
	for _, src := range []struct {
		entries Entries
		kind    SourceKind
	}{{kb.Facts, SourceFact}, {kb.Triggers, SourceTrigger}} {
		for _, e := range src.entries {
			key := strings.ToLower(e.Key)
			if key == "" || !strings.Contains(lower, key) {
				continue
			}
			return Match{Answer: e.Answer, Score: len(Tokenize(e.Key)), Kind: src.kind, Key: e.Key}, true
		}
	}
	return Match{}, false
}

// Tokenize lower-cases s, drops every rune that is not a letter, digit,
// underscore or whitespace, and splits on whitespace. Duplicates are kept.
func Tokenize(s string) []string {
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r), r == '_':
			return unicode.ToLower(r)
		case unicode.IsSpace(r):
			return ' '
		}
		return -1
	}, s)
	return strings.Fields(cleaned)
}

// Overlap counts the message tokens that also appear in text's token set.
func Overlap(tokens []string, text string) int {
	set := make(map[string]struct{})
	for _, t := range Tokenize(text) {
		set[t] = struct{}{}
	}
	n := 0
	for _, t := range tokens {
		if _, ok := set[t]; ok {
			n++
		}
	}
	return n
}
