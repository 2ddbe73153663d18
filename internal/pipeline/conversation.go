package pipeline

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/bernatferragut/bernatbot/internal/session"
	"github.com/bernatferragut/bernatbot/internal/storage"
)

// InteractionSaver persists the interaction log.
type InteractionSaver interface {
	SaveInteraction(i storage.Interaction) error
}

// Turn is a Reply bound to the conversation it belongs to.
type Turn struct {
	ConversationID string
	Reply
}

// Conversations runs the pipeline for conversations tracked in a session
// registry and optionally records each exchange.
type Conversations struct {
	pipeline *Pipeline
	sessions *session.Registry
	saver    InteractionSaver
	logger   *slog.Logger
}

// NewConversations wires the pipeline to a registry. saver may be nil.
func NewConversations(p *Pipeline, sessions *session.Registry, saver InteractionSaver) *Conversations {
	return &Conversations{
		pipeline: p,
		sessions: sessions,
		saver:    saver,
		logger:   p.logger,
	}
}

// Pipeline returns the underlying pipeline.
func (c *Conversations) Pipeline() *Pipeline { return c.pipeline }

// Sessions returns the session registry.
func (c *Conversations) Sessions() *session.Registry { return c.sessions }

// Send answers message within the conversation conversationID, starting a new
// conversation when the id is empty. Messages of one conversation are
// processed in arrival order.
func (c *Conversations) Send(ctx context.Context, conversationID, message string) (Turn, error) {
	if strings.TrimSpace(message) == "" {
		return Turn{ConversationID: conversationID}, ErrMalformedRequest
	}

	conv, release := c.sessions.Acquire(conversationID)
	defer release()

	reply, err := c.pipeline.Respond(ctx, &conv.State, message)
	if err != nil {
		return Turn{ConversationID: conv.ID}, err
	}

	if c.saver != nil {
		rec := storage.Interaction{
			ID:             uuid.New().String(),
			ConversationID: conv.ID,
			CreatedAt:      time.Now().UTC(),
			UserMessage:    message,
			Reply:          reply.Text,
			Source:         string(reply.Source),
			Category:       string(reply.Category),
			Stage:          reply.Stage.String(),
			WarningCount:   reply.WarningCount,
		}
		if err := c.saver.SaveInteraction(rec); err != nil {
			c.logger.Warn("failed to record interaction", "conversation_id", conv.ID, "error", err)
		}
	}

	return Turn{ConversationID: conv.ID, Reply: reply}, nil
}

// End forgets a conversation's escalation state.
func (c *Conversations) End(conversationID string) bool {
	return c.sessions.End(conversationID)
}
