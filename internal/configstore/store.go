// Package configstore loads the knowledge base, safeguard policy and
// personality documents once at startup. Every document has a built-in
// default, so a Store is always usable even when sources are missing or
// malformed.
package configstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/bernatferragut/bernatbot/internal/knowledge"
	"github.com/bernatferragut/bernatbot/internal/profile"
	"github.com/bernatferragut/bernatbot/internal/safeguard"
)

// Document names used in LoadError.
const (
	DocKnowledgeBase = "knowledge_base"
	DocSafeguards    = "safeguards"
	DocPersonality   = "personality"
)

const maxDocumentBytes = 8 << 20

// Sources names where each document lives: a file path or an http(s) URL.
// An empty source means the default is used without trying to load.
type Sources struct {
	KnowledgeBase string
	Safeguards    string
	Personality   string
}

// LoadError reports a document that could not be loaded. The default was
// used in its place.
type LoadError struct {
	Document string
	Source   string
	Err      error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("loading %s from %s: %v", e.Document, e.Source, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// Store holds the three documents. It is immutable after Load.
type Store struct {
	kb      knowledge.Base
	policy  safeguard.Policy
	profile profile.Document
	sources Sources
}

// New builds a Store from already-decoded documents. The policy is
// normalized.
func New(kb knowledge.Base, policy safeguard.Policy, doc profile.Document) *Store {
	policy.Normalize()
	return &Store{kb: kb, policy: policy, profile: doc}
}

// Default returns a Store holding only the built-in defaults.
func Default() *Store {
	return New(knowledge.Base{}, safeguard.DefaultPolicy(), profile.Default())
}

// Option configures Load.
type Option func(*loader)

type loader struct {
	client *http.Client
}

// WithHTTPClient sets the client used for http(s) sources.
func WithHTTPClient(c *http.Client) Option {
	return func(l *loader) { l.client = c }
}

// Load reads all three documents concurrently. The returned Store is never
// nil. The error, when non-nil, joins one *LoadError per document that fell
// back to its default and is meant for logging.
func Load(ctx context.Context, src Sources, opts ...Option) (*Store, error) {
	l := &loader{client: &http.Client{Timeout: 10 * time.Second}}
	for _, o := range opts {
		o(l)
	}

	kb := knowledge.Base{}
	policy := safeguard.DefaultPolicy()
	doc := profile.Default()

	// Each goroutine records its own error and never fails the group, so a
	// bad document cannot cancel the others.
	var errs [3]error
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var loaded knowledge.Base
		if err := l.decode(gctx, src.KnowledgeBase, &loaded); err != nil {
			errs[0] = loadErr(DocKnowledgeBase, src.KnowledgeBase, err)
			return nil
		}
		kb = loaded
		return nil
	})
	g.Go(func() error {
		loaded := safeguard.DefaultPolicy()
		if err := l.decode(gctx, src.Safeguards, &loaded); err != nil {
			errs[1] = loadErr(DocSafeguards, src.Safeguards, err)
			return nil
		}
		policy = loaded
		return nil
	})
	g.Go(func() error {
		loaded := profile.Default()
		if err := l.decode(gctx, src.Personality, &loaded); err != nil {
			errs[2] = loadErr(DocPersonality, src.Personality, err)
			return nil
		}
		doc = loaded
		return nil
	})
	_ = g.Wait()

	s := New(kb, policy, doc)
	s.sources = src
	return s, errors.Join(errs[:]...)
}

var errNoSource = errors.New("no source configured")

func loadErr(doc, source string, err error) error {
	if errors.Is(err, errNoSource) {
		return nil
	}
	return &LoadError{Document: doc, Source: source, Err: err}
}

// decode reads source and unmarshals it over v, so fields absent from the
// document keep the values v already holds.
func (l *loader) decode(ctx context.Context, source string, v any) error {
	if strings.TrimSpace(source) == "" {
		return errNoSource
	}
	data, err := l.read(ctx, source)
	if err != nil {
		return err
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return errors.New("empty document")
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decoding JSON: %w", err)
	}
	return nil
}

func (l *loader) read(ctx context.Context, source string) ([]byte, error) {
	if !strings.HasPrefix(source, "http://") && !strings.HasPrefix(source, "https://") {
		return os.ReadFile(source)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching: HTTP %d", resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxDocumentBytes))
}

// KnowledgeBase returns the loaded knowledge base.
func (s *Store) KnowledgeBase() *knowledge.Base { return &s.kb }

// Policy returns the normalized safeguard policy.
func (s *Store) Policy() *safeguard.Policy { return &s.policy }

// Profile returns the personality profile.
func (s *Store) Profile() profile.Profile { return s.profile.Profile }

// Document returns the full personality document.
func (s *Store) Document() profile.Document { return s.profile }

// Sources returns where the documents were loaded from.
func (s *Store) Sources() Sources { return s.sources }
