// Package pipeline turns an incoming message into a reply: safety
// classification, escalation, local knowledge lookup, model fallback and
// personality formatting.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/bernatferragut/bernatbot/internal/composer"
	"github.com/bernatferragut/bernatbot/internal/configstore"
	"github.com/bernatferragut/bernatbot/internal/knowledge"
	"github.com/bernatferragut/bernatbot/internal/profile"
	"github.com/bernatferragut/bernatbot/internal/safeguard"
	"github.com/bernatferragut/bernatbot/internal/session"
	"github.com/bernatferragut/bernatbot/internal/upstream"
)

const (
	// FallbackReply is sent when the model cannot be reached.
	FallbackReply = "I'm having trouble connecting to the chat service. Please try again later."
	// EmptyModelReply replaces a blank answer from the model.
	EmptyModelReply = "I'm not sure how to respond to that."

	defaultModelTimeout = 10 * time.Second
)

// ErrMalformedRequest is returned for a missing or blank message. It is the
// only error Respond returns.
var ErrMalformedRequest = errors.New("message must not be empty")

// Source says which stage produced a reply.
type Source string

const (
	SourceSafeguard Source = "safeguard"
	SourceKnowledge Source = "knowledge"
	SourceModel     Source = "model"
	SourceFallback  Source = "fallback"
)

// Reply is the outcome of one message.
type Reply struct {
	Text         string
	Source       Source
	Category     safeguard.Category
	Stage        safeguard.Stage
	WarningCount int
	Resources    []string
	// Match is set when the reply came from the knowledge base.
	Match *knowledge.Match
}

// ModelClient is the hosted language model.
type ModelClient interface {
	Complete(ctx context.Context, msgs []upstream.Message, temperature float64) (string, error)
}

// Options tunes a Pipeline. Zero values select the defaults.
type Options struct {
	FactMatchPolicy     knowledge.FactMatchPolicy
	FormatKnowledgeHits bool
	Temperature         float64
	ModelTimeout        time.Duration
	Logger              *slog.Logger
}

// Pipeline resolves replies against an immutable Store. It is safe for
// concurrent use; per-conversation state is passed into Respond.
type Pipeline struct {
	store     *configstore.Store
	filter    *safeguard.Filter
	escalator *safeguard.Escalator
	matcher   *knowledge.Matcher
	model     ModelClient
	formatter *composer.Formatter
	opts      Options
	logger    *slog.Logger
}

// New wires a Pipeline. A nil model makes every local miss fall back to
// FallbackReply; a nil formatter uses a time-seeded one.
func New(store *configstore.Store, model ModelClient, formatter *composer.Formatter, opts Options) *Pipeline {
	if store == nil {
		store = configstore.Default()
	}
	if formatter == nil {
		formatter = composer.New(nil)
	}
	if opts.Temperature <= 0 {
		opts.Temperature = upstream.DefaultTemperature
	}
	if opts.ModelTimeout <= 0 {
		opts.ModelTimeout = defaultModelTimeout
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	policy := store.Policy()
	return &Pipeline{
		store:     store,
		filter:    safeguard.NewFilter(policy.ProhibitedContent, logger),
		escalator: safeguard.NewEscalator(policy.Strategy()),
		matcher:   knowledge.NewMatcher(opts.FactMatchPolicy),
		model:     model,
		formatter: formatter,
		opts:      opts,
		logger:    logger,
	}
}

// Store returns the documents the pipeline answers from.
func (p *Pipeline) Store() *configstore.Store { return p.store }

// Classify runs only the safety filter.
func (p *Pipeline) Classify(message string) safeguard.Category {
	return p.filter.Classify(message)
}

// Respond produces the reply to message and updates state. Unsafe messages
// increment the warning count and are answered by the escalation policy
// without consulting the knowledge base or the model. Once a conversation is
// terminated every message receives the final action text.
func (p *Pipeline) Respond(ctx context.Context, state *session.State, message string) (Reply, error) {
	msg := strings.TrimSpace(message)
	if msg == "" {
		return Reply{}, ErrMalformedRequest
	}
	if state == nil {
		state = &session.State{}
	}

	category := p.filter.Classify(msg)
	if category.Unsafe() {
		return p.escalate(state, category), nil
	}

	if stage := p.escalator.StageFor(state.WarningCount); stage == safeguard.StageTerminated {
		return Reply{
			Text:         p.escalator.Message(stage),
			Source:       SourceSafeguard,
			Category:     category,
			Stage:        stage,
			WarningCount: state.WarningCount,
		}, nil
	}

	reply := Reply{
		Category:     category,
		Stage:        p.escalator.StageFor(state.WarningCount),
		WarningCount: state.WarningCount,
	}

	if m, ok := p.matcher.Match(msg, p.store.KnowledgeBase()); ok {
		p.logger.Debug("knowledge hit", "kind", m.Kind, "key", m.Key, "score", m.Score)
		reply.Source = SourceKnowledge
		reply.Match = &m
		reply.Text = m.Answer
		if p.opts.FormatKnowledgeHits {
			reply.Text = p.format(m.Answer)
		}
		return reply, nil
	}

	text, err := p.askModel(ctx, msg)
	if err != nil {
		p.logger.Warn("model request failed, sending fallback reply", "error", err)
		reply.Source = SourceFallback
		reply.Text = FallbackReply
		return reply, nil
	}
	reply.Source = SourceModel
	reply.Text = p.format(text)
	return reply, nil
}

func (p *Pipeline) escalate(state *session.State, category safeguard.Category) Reply {
	count, stage, text := p.escalator.Escalate(state.WarningCount)
	state.WarningCount = count

	reply := Reply{
		Text:         text,
		Source:       SourceSafeguard,
		Category:     category,
		Stage:        stage,
		WarningCount: count,
	}
	if h, ok := p.store.Policy().HandlingFor(category); ok && h.Action == safeguard.ActionRedirect {
		reply.Resources = h.Resources
	}
	p.logger.Debug("unsafe message", "category", category, "stage", stage, "warning_count", count)
	return reply
}

func (p *Pipeline) askModel(ctx context.Context, msg string) (string, error) {
	if p.model == nil {
		return "", &upstream.TransportError{Err: errors.New("no model client configured")}
	}

	ctx, cancel := context.WithTimeout(ctx, p.opts.ModelTimeout)
	defer cancel()

	text, err := p.model.Complete(ctx, []upstream.Message{
		{Role: upstream.RoleSystem, Content: profile.SystemMessage(p.store.Profile())},
		{Role: upstream.RoleUser, Content: msg},
	}, p.opts.Temperature)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(text) == "" {
		return EmptyModelReply, nil
	}
	return text, nil
}

func (p *Pipeline) format(raw string) string {
	return p.formatter.Format(raw, p.store.Profile(), p.store.Policy().Accessibility())
}
