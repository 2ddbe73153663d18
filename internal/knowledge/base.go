package knowledge

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Base is the local knowledge document: free-text facts, FAQs, and trigger
// phrases, each mapping to a canned answer.
type Base struct {
	Facts    Entries `json:"facts"`
	FAQs     []FAQ   `json:"faqs"`
	Triggers Entries `json:"triggers"`
}

// FAQ is a question/answer pair.
type FAQ struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// Entry is one key/answer pair of a facts or triggers object.
type Entry struct {
	Key    string
	Answer string
}

// Entries is a JSON object decoded in document order. Order matters because
// the matcher keeps the first candidate seen on ties.
type Entries []Entry

// Len reports the total number of entries across all sources.
func (b *Base) Len() int {
	return len(b.Facts) + len(b.FAQs) + len(b.Triggers)
}

// Lookup returns the answer stored under key, if present.
func (e Entries) Lookup(key string) (string, bool) {
	for _, entry := range e {
		if entry.Key == key {
			return entry.Answer, true
		}
	}
	return "", false
}

func (e *Entries) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*e = nil
		return nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("expected object, got %v", tok)
	}

	var out Entries
	seen := make(map[string]int)
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("expected string key, got %v", keyTok)
		}

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("decoding value for %q: %w", key, err)
		}
		answer, err := answerText(raw)
		if err != nil {
			return fmt.Errorf("decoding value for %q: %w", key, err)
		}

		// Duplicate keys behave like a map: the last value wins, the first
		// position is kept.
		if i, dup := seen[key]; dup {
			out[i].Answer = answer
			continue
		}
		seen[key] = len(out)
		out = append(out, Entry{Key: key, Answer: answer})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*e = out
	return nil
}

func (e Entries) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, entry := range e {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(entry.Key)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(entry.Answer)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// answerText returns string values as-is and any other JSON value as compact text.
func answerText(raw json.RawMessage) (string, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, nil
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return "", err
	}
	return buf.String(), nil
}
