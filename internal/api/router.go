package api

import (
	"log/slog"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/bernatferragut/bernatbot/internal/pipeline"
)

// Deps wires the HTTP surface.
type Deps struct {
	Conversations *pipeline.Conversations
	Interactions  InteractionStore // nil disables the admin API
	AdminToken    string           // empty disables the admin API
	StaticDir     string           // empty disables static file serving
	RateLimit     float64          // per-client requests per second on /api/chat; <= 0 disables
	RateBurst     int
	Logger        *slog.Logger
}

// NewRouter assembles the public API, the admin API and the static site.
func NewRouter(deps Deps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(logger))

	var limiter *ClientRateLimiter
	if deps.RateLimit > 0 {
		limiter = NewClientRateLimiter(deps.RateLimit, deps.RateBurst)
	}
	r.Mount("/api", NewChatHandler(deps.Conversations, limiter))

	if deps.AdminToken != "" && deps.Interactions != nil {
		r.Mount("/admin", NewAdminHandler(AdminDeps{
			Store:     deps.Interactions,
			Documents: deps.Conversations.Pipeline().Store(),
			Token:     deps.AdminToken,
		}))
	}

	if deps.StaticDir != "" {
		r.Handle("/*", spaHandler(deps.StaticDir))
	}

	return r
}

func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			logger.Debug("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"duration_ms", time.Since(start).Milliseconds(),
			)
		})
	}
}

// spaHandler serves files from dir and falls back to index.html for paths
// that do not name a file.
func spaHandler(dir string) http.Handler {
	files := http.FileServer(http.Dir(dir))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			httpError(w, http.StatusMethodNotAllowed, "invalid_request_error", "method not allowed")
			return
		}
		clean := path.Clean("/" + r.URL.Path)
		if strings.HasPrefix(clean, "/api/") || strings.HasPrefix(clean, "/admin/") {
			httpError(w, http.StatusNotFound, "not_found", "not found")
			return
		}
		if info, err := os.Stat(filepath.Join(dir, filepath.FromSlash(clean))); err == nil && !info.IsDir() {
			files.ServeHTTP(w, r)
			return
		}
		http.ServeFile(w, r, filepath.Join(dir, "index.html"))
	})
}
