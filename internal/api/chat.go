package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/bernatferragut/bernatbot/internal/pipeline"
	"github.com/bernatferragut/bernatbot/internal/profile"
)

const (
	maxRequestBodySize   = 64 << 10
	maxConversationIDLen = 128
)

// ChatRequest is the body of POST /api/chat. Messages is accepted for
// clients that send the whole transcript; the last user entry is answered.
type ChatRequest struct {
	ConversationID string        `json:"conversation_id,omitempty"`
	Message        string        `json:"message"`
	Messages       []chatMessage `json:"messages,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatResponse is the body returned by POST /api/chat.
type ChatResponse struct {
	ConversationID string   `json:"conversation_id"`
	Reply          string   `json:"reply"`
	Source         string   `json:"source"`
	Category       string   `json:"category"`
	Stage          string   `json:"stage"`
	WarningCount   int      `json:"warning_count"`
	Resources      []string `json:"resources,omitempty"`
}

// NewChatHandler returns the public chat API, to be mounted under /api.
// limiter may be nil.
func NewChatHandler(conv *pipeline.Conversations, limiter *ClientRateLimiter) http.Handler {
	r := chi.NewRouter()

	r.Get("/health", handleHealth)
	r.Get("/greeting", handleGreeting(conv))
	r.Group(func(r chi.Router) {
		if limiter != nil {
			r.Use(limiter.Middleware)
		}
		r.Post("/chat", handleChat(conv))
	})
	r.Delete("/conversations/{id}", handleEndConversation(conv))

	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func handleGreeting(conv *pipeline.Conversations) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p := conv.Pipeline().Store().Profile()
		writeJSON(w, http.StatusOK, map[string]string{"greeting": profile.Greeting(p)})
	}
}

func handleChat(conv *pipeline.Conversations) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req ChatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		if len(req.ConversationID) > maxConversationIDLen {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "conversation_id must be at most %d characters", maxConversationIDLen)
			return
		}

		message := req.Message
		if strings.TrimSpace(message) == "" {
			message = lastUserMessage(req.Messages)
		}

		turn, err := conv.Send(r.Context(), req.ConversationID, message)
		if errors.Is(err, pipeline.ErrMalformedRequest) {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "message is required and must not be empty")
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to process message: %v", err)
			return
		}

		writeJSON(w, http.StatusOK, ChatResponse{
			ConversationID: turn.ConversationID,
			Reply:          turn.Text,
			Source:         string(turn.Source),
			Category:       string(turn.Category),
			Stage:          turn.Stage.String(),
			WarningCount:   turn.WarningCount,
			Resources:      turn.Resources,
		})
	}
}

func handleEndConversation(conv *pipeline.Conversations) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if !conv.End(id) {
			httpError(w, http.StatusNotFound, "not_found", "conversation not found")
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ended"})
	}
}

func lastUserMessage(msgs []chatMessage) string {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == "user" {
			return msgs[i].Content
		}
	}
	return ""
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func httpError(w http.ResponseWriter, code int, errType string, format string, args ...any) {
	writeJSON(w, code, map[string]any{
		"error": map[string]any{
			"message": fmt.Sprintf(format, args...),
			"type":    errType,
		},
	})
}
