package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/bernatferragut/bernatbot/internal/configstore"
	"github.com/bernatferragut/bernatbot/internal/knowledge"
	"github.com/bernatferragut/bernatbot/internal/storage"
)

// InteractionStore is the part of the interaction log the admin API reads.
type InteractionStore interface {
	GetInteraction(id string) (storage.Interaction, error)
	GetRecentInteractions(limit int) ([]storage.Interaction, error)
	ListConversation(conversationID string, limit int) ([]storage.Interaction, error)
	DeleteConversation(conversationID string) (int64, error)
}

type AdminDeps struct {
	Store     InteractionStore
	Documents *configstore.Store
	Token     string
}

// NewAdminHandler returns the bearer-protected admin API, to be mounted
// under /admin.
func NewAdminHandler(deps AdminDeps) http.Handler {
	r := chi.NewRouter()
	r.Use(BearerAuth(deps.Token))

	r.Get("/interactions", handleRecentInteractions(deps))
	r.Get("/interactions/{id}", handleGetInteraction(deps))
	r.Get("/conversations/{id}/interactions", handleConversationInteractions(deps))
	r.Delete("/conversations/{id}/interactions", handleDeleteConversation(deps))
	r.Get("/documents", handleDocuments(deps))
	r.Get("/documents/facts/{key}", handleKnowledgeEntry(deps, func(kb *knowledge.Base) knowledge.Entries { return kb.Facts }))
	r.Get("/documents/triggers/{key}", handleKnowledgeEntry(deps, func(kb *knowledge.Base) knowledge.Entries { return kb.Triggers }))

	return r
}

func handleRecentInteractions(deps AdminDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := parseIntParam(r, "limit", 20, 200)
		items, err := deps.Store.GetRecentInteractions(limit)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to list interactions: %v", err)
			return
		}
		if items == nil {
			items = []storage.Interaction{}
		}
		writeJSON(w, http.StatusOK, items)
	}
}

func handleGetInteraction(deps AdminDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		item, err := deps.Store.GetInteraction(chi.URLParam(r, "id"))
		if errors.Is(err, storage.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found", "interaction not found")
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to get interaction: %v", err)
			return
		}
		writeJSON(w, http.StatusOK, item)
	}
}

func handleConversationInteractions(deps AdminDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := parseIntParam(r, "limit", 100, 1000)
		items, err := deps.Store.ListConversation(chi.URLParam(r, "id"), limit)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to list conversation: %v", err)
			return
		}
		if items == nil {
			items = []storage.Interaction{}
		}
		writeJSON(w, http.StatusOK, items)
	}
}

func handleDeleteConversation(deps AdminDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		n, err := deps.Store.DeleteConversation(chi.URLParam(r, "id"))
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to delete conversation: %v", err)
			return
		}
		if n == 0 {
			httpError(w, http.StatusNotFound, "not_found", "conversation not found")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"status": "deleted", "deleted": n})
	}
}

func handleDocuments(deps AdminDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		docs := deps.Documents
		src := docs.Sources()
		writeJSON(w, http.StatusOK, map[string]any{
			"knowledge_base": docs.KnowledgeBase(),
			"safeguards":     docs.Policy(),
			"personality":    docs.Document(),
			"sources": map[string]string{
				"knowledge_base": src.KnowledgeBase,
				"safeguards":     src.Safeguards,
				"personality":    src.Personality,
			},
		})
	}
}

// handleKnowledgeEntry returns the answer stored under one fact or trigger
// key of the live knowledge base. Keys match exactly.
func handleKnowledgeEntry(deps AdminDeps, entries func(*knowledge.Base) knowledge.Entries) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := chi.URLParam(r, "key")
		answer, ok := entries(deps.Documents.KnowledgeBase()).Lookup(key)
		if !ok {
			httpError(w, http.StatusNotFound, "not_found", "no entry for key %q", key)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"key": key, "answer": answer})
	}
}

func parseIntParam(r *http.Request, key string, defaultVal, maxVal int) int {
	s := r.URL.Query().Get(key)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil || v <= 0 {
		return defaultVal
	}
	if maxVal > 0 && v > maxVal {
		return maxVal
	}
	return v
}
