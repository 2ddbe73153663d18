package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/bernatferragut/bernatbot/internal/api"
	"github.com/bernatferragut/bernatbot/internal/composer"
	"github.com/bernatferragut/bernatbot/internal/config"
	"github.com/bernatferragut/bernatbot/internal/configstore"
	"github.com/bernatferragut/bernatbot/internal/knowledge"
	"github.com/bernatferragut/bernatbot/internal/pipeline"
	"github.com/bernatferragut/bernatbot/internal/session"
	"github.com/bernatferragut/bernatbot/internal/storage"
	"github.com/bernatferragut/bernatbot/internal/upstream"
)

const sessionSweepInterval = time.Minute

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the chat server (foreground)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer()
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show server status",
	RunE: func(cmd *cobra.Command, args []string) error {
		return showStatus(cmd.Context())
	},
}

// app is everything serve and mcp share: the loaded documents, the pipeline
// and the interaction log.
type app struct {
	cfg           config.Config
	logger        *slog.Logger
	store         *storage.Store
	conversations *pipeline.Conversations
}

func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger := newLogger(cfg.Log.Level)
	slog.SetDefault(logger)

	docs, err := configstore.Load(ctx, configstore.Sources{
		KnowledgeBase: cfg.Documents.KnowledgeBase,
		Safeguards:    cfg.Documents.Safeguards,
		Personality:   cfg.Documents.Personality,
	})
	if err != nil {
		logger.Warn("using built-in defaults for documents that failed to load", "error", err)
	}
	logger.Info("documents loaded",
		"knowledge_entries", docs.KnowledgeBase().Len(),
		"violation_threshold", docs.Policy().Strategy().EscalationPath.Threshold,
	)

	if cfg.Upstream.APIKey == "" {
		logger.Warn("no model API key configured; questions outside the knowledge base get the fallback reply")
	}
	model := upstream.NewClient(cfg.Upstream.APIKey,
		upstream.WithBaseURL(cfg.Upstream.BaseURL),
		upstream.WithModel(cfg.Upstream.Model),
		upstream.WithTimeout(cfg.Upstream.Timeout),
		upstream.WithRateLimit(cfg.Upstream.RateLimit, 1),
	)

	policy, err := knowledge.ParseFactMatchPolicy(cfg.Pipeline.FactMatchPolicy)
	if err != nil {
		return nil, err
	}
	p := pipeline.New(docs, model, composer.New(composer.NewPicker(uint64(cfg.Pipeline.Seed))), pipeline.Options{
		FactMatchPolicy:     policy,
		FormatKnowledgeHits: cfg.Pipeline.FormatKnowledgeHits,
		Temperature:         cfg.Upstream.Temperature,
		ModelTimeout:        cfg.Upstream.Timeout,
		Logger:              logger,
	})

	store, err := storage.Open(cfg.Storage.DataDir)
	if err != nil {
		return nil, fmt.Errorf("opening storage: %w", err)
	}

	sessions := session.NewRegistry(cfg.Session.IdleTTL, session.WithLogger(logger))
	go sessions.Run(ctx, sessionSweepInterval)

	return &app{
		cfg:           cfg,
		logger:        logger,
		store:         store,
		conversations: pipeline.NewConversations(p, sessions, store),
	}, nil
}

func (a *app) close() {
	if err := a.store.Close(); err != nil {
		a.logger.Warn("closing storage", "error", err)
	}
}

func runServer() error {
	fmt.Fprintf(os.Stderr, "bernatbot version %s\n", version)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	if a.cfg.Server.AdminToken == "" {
		a.logger.Info("admin API disabled; set BERNATBOT_ADMIN_TOKEN to enable it")
	}

	handler := api.NewRouter(api.Deps{
		Conversations: a.conversations,
		Interactions:  a.store,
		AdminToken:    a.cfg.Server.AdminToken,
		StaticDir:     a.cfg.Server.StaticDir,
		RateLimit:     a.cfg.Server.RateLimit,
		RateBurst:     a.cfg.Server.RateBurst,
		Logger:        a.logger,
	})

	addr := a.cfg.Addr()
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("bernatbot listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		fmt.Fprintln(os.Stderr, "shutting down...")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func showStatus(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		printError("config error: %v", err)
		return nil
	}

	client := &apiClient{
		baseURL:    cfg.BaseURL(),
		token:      cfg.Server.AdminToken,
		httpClient: &http.Client{Timeout: 2 * time.Second},
	}

	var health struct {
		Status    string `json:"status"`
		Timestamp string `json:"timestamp"`
	}
	resp, err := client.get(ctx, "/api/health")
	running := false
	if err != nil {
		printStatus("Server", "stopped")
	} else if err := decodeJSON(resp, &health); err != nil {
		printStatus("Server", "error (%v)", err)
	} else {
		running = true
		printStatus("Server", "running at %s (%s)", cfg.BaseURL(), health.Status)
	}

	printStatus("Model", "%s at %s", cfg.Upstream.Model, cfg.Upstream.BaseURL)
	if cfg.Upstream.APIKey == "" {
		printWarning("no model API key set; only knowledge-base answers are available")
	}
	printStatus("Knowledge base", "%s", cfg.Documents.KnowledgeBase)
	printStatus("Safeguards", "%s", cfg.Documents.Safeguards)
	printStatus("Personality", "%s", cfg.Documents.Personality)

	if running && cfg.Server.AdminToken != "" {
		if resp, err := client.get(ctx, "/admin/interactions?limit=100"); err == nil {
			var items []struct{}
			if decodeJSON(resp, &items) == nil {
				printStatus("Interactions", "%s", countLabel(len(items), 100))
			}
		}
	}

	printStatus("Data dir", "%s", cfg.Storage.DataDir)
	return nil
}

func countLabel(count, limit int) string {
	if count >= limit {
		return fmt.Sprintf("%d+", count)
	}
	return fmt.Sprintf("%d", count)
}
