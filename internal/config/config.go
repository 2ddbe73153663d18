package config

import (
	"fmt"
	"time"

	"github.com/bernatferragut/bernatbot/internal/knowledge"
)

type Config struct {
	Server    ServerConfig
	Upstream  UpstreamConfig
	Documents DocumentsConfig
	Pipeline  PipelineConfig
	Session   SessionConfig
	Storage   StorageConfig
	Log       LogConfig
}

type ServerConfig struct {
	Host       string
	Port       int
	StaticDir  string
	RateLimit  float64 // requests per second per client on /api/chat
	RateBurst  int
	AdminToken string
}

type UpstreamConfig struct {
	BaseURL     string
	Model       string
	APIKey      string
	Temperature float64
	Timeout     time.Duration
	RateLimit   float64 // requests per second to the model API
}

// DocumentsConfig locates the three configuration documents. Each value is a
// file path or an http(s) URL.
type DocumentsConfig struct {
	KnowledgeBase string
	Safeguards    string
	Personality   string
}

type PipelineConfig struct {
	FactMatchPolicy     string
	FormatKnowledgeHits bool
	Seed                int // 0 seeds from the clock
}

type SessionConfig struct {
	IdleTTL time.Duration
}

type StorageConfig struct {
	DataDir string
}

type LogConfig struct {
	Level string
}

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Host:      "127.0.0.1",
			Port:      3001,
			RateLimit: 2,
			RateBurst: 5,
		},
		Upstream: UpstreamConfig{
			BaseURL:     "https://api.deepseek.com",
			Model:       "deepseek-chat",
			Temperature: 0.7,
			Timeout:     10 * time.Second,
			RateLimit:   5,
		},
		Documents: DocumentsConfig{
			KnowledgeBase: "assets/data/knowledge-base.json",
			Safeguards:    "assets/data/chat-safeguards.json",
			Personality:   "assets/data/chat-personality.json",
		},
		Pipeline: PipelineConfig{
			FactMatchPolicy: string(knowledge.PolicyOverlap),
		},
		Session: SessionConfig{
			IdleTTL: 30 * time.Minute,
		},
		Storage: StorageConfig{
			DataDir: defaultDataDir(),
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from the JSON file at $XDG_CONFIG_HOME/bernatbot/config.json
// and applies BERNATBOT_* environment overrides. Secrets (the model API key and
// the admin token) are read from the environment only.
//
// A missing API key is not an error: the server still answers from the
// knowledge base and replies with an apology when the model is needed.
func Load() (Config, error) {
	return loadWith(NewFileBackend(FilePath()))
}

func loadWith(b Backend) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}
	applyEnvOverrides(&cfg)

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid config: server.port %d out of range", c.Server.Port)
	}
	if _, err := knowledge.ParseFactMatchPolicy(c.Pipeline.FactMatchPolicy); err != nil {
		return fmt.Errorf("invalid config: pipeline.fact_match_policy: %w", err)
	}
	if c.Upstream.Temperature < 0 || c.Upstream.Temperature > 2 {
		return fmt.Errorf("invalid config: upstream.temperature %v must be within [0, 2]", c.Upstream.Temperature)
	}
	if c.Upstream.Timeout <= 0 {
		return fmt.Errorf("invalid config: upstream.timeout must be positive")
	}
	return nil
}

// Addr returns the listen address for the HTTP server.
func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// BaseURL returns the URL clients use to reach the local server.
func (c Config) BaseURL() string {
	host := c.Server.Host
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "127.0.0.1"
	}
	return fmt.Sprintf("http://%s:%d", host, c.Server.Port)
}
