package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"
)

type keyType int

const (
	kString keyType = iota
	kInt
	kBool
	kFloat
	kDuration
)

type keySpec struct {
	key     string
	typ     keyType
	env     string
	alias   string // secondary env var, consulted when env is unset
	secret  bool
	apply   func(cfg *Config, v any)
	extract func(cfg Config) any
}

var specs = []keySpec{
	{
		key: "server.host", typ: kString, env: "BERNATBOT_SERVER_HOST",
		apply:   func(cfg *Config, v any) { cfg.Server.Host = v.(string) },
		extract: func(cfg Config) any { return cfg.Server.Host },
	},
	{
		key: "server.port", typ: kInt, env: "BERNATBOT_SERVER_PORT", alias: "PORT",
		apply:   func(cfg *Config, v any) { cfg.Server.Port = v.(int) },
		extract: func(cfg Config) any { return cfg.Server.Port },
	},
	{
		key: "server.static_dir", typ: kString, env: "BERNATBOT_SERVER_STATIC_DIR",
		apply:   func(cfg *Config, v any) { cfg.Server.StaticDir = v.(string) },
		extract: func(cfg Config) any { return cfg.Server.StaticDir },
	},
	{
		key: "server.rate_limit", typ: kFloat, env: "BERNATBOT_SERVER_RATE_LIMIT",
		apply:   func(cfg *Config, v any) { cfg.Server.RateLimit = v.(float64) },
		extract: func(cfg Config) any { return cfg.Server.RateLimit },
	},
	{
		key: "server.rate_burst", typ: kInt, env: "BERNATBOT_SERVER_RATE_BURST",
		apply:   func(cfg *Config, v any) { cfg.Server.RateBurst = v.(int) },
		extract: func(cfg Config) any { return cfg.Server.RateBurst },
	},
	{
		key: "server.admin_token", typ: kString, env: "BERNATBOT_ADMIN_TOKEN",
		secret:  true,
		apply:   func(cfg *Config, v any) { cfg.Server.AdminToken = v.(string) },
		extract: func(cfg Config) any { return cfg.Server.AdminToken },
	},
	{
		key: "upstream.base_url", typ: kString, env: "BERNATBOT_UPSTREAM_BASE_URL", alias: "API_BASE_URL",
		apply:   func(cfg *Config, v any) { cfg.Upstream.BaseURL = v.(string) },
		extract: func(cfg Config) any { return cfg.Upstream.BaseURL },
	},
	{
		key: "upstream.model", typ: kString, env: "BERNATBOT_UPSTREAM_MODEL",
		apply:   func(cfg *Config, v any) { cfg.Upstream.Model = v.(string) },
		extract: func(cfg Config) any { return cfg.Upstream.Model },
	},
	{
		key: "upstream.api_key", typ: kString, env: "BERNATBOT_UPSTREAM_API_KEY", alias: "DEEPSEEK_API_KEY",
		secret:  true,
		apply:   func(cfg *Config, v any) { cfg.Upstream.APIKey = v.(string) },
		extract: func(cfg Config) any { return cfg.Upstream.APIKey },
	},
	{
		key: "upstream.temperature", typ: kFloat, env: "BERNATBOT_UPSTREAM_TEMPERATURE",
		apply:   func(cfg *Config, v any) { cfg.Upstream.Temperature = v.(float64) },
		extract: func(cfg Config) any { return cfg.Upstream.Temperature },
	},
	{
		key: "upstream.timeout", typ: kDuration, env: "BERNATBOT_UPSTREAM_TIMEOUT",
		apply:   func(cfg *Config, v any) { cfg.Upstream.Timeout = v.(time.Duration) },
		extract: func(cfg Config) any { return cfg.Upstream.Timeout },
	},
	{
		key: "upstream.rate_limit", typ: kFloat, env: "BERNATBOT_UPSTREAM_RATE_LIMIT",
		apply:   func(cfg *Config, v any) { cfg.Upstream.RateLimit = v.(float64) },
		extract: func(cfg Config) any { return cfg.Upstream.RateLimit },
	},
	{
		key: "documents.knowledge_base", typ: kString, env: "BERNATBOT_DOCUMENTS_KNOWLEDGE_BASE",
		apply:   func(cfg *Config, v any) { cfg.Documents.KnowledgeBase = v.(string) },
		extract: func(cfg Config) any { return cfg.Documents.KnowledgeBase },
	},
	{
		key: "documents.safeguards", typ: kString, env: "BERNATBOT_DOCUMENTS_SAFEGUARDS",
		apply:   func(cfg *Config, v any) { cfg.Documents.Safeguards = v.(string) },
		extract: func(cfg Config) any { return cfg.Documents.Safeguards },
	},
	{
		key: "documents.personality", typ: kString, env: "BERNATBOT_DOCUMENTS_PERSONALITY",
		apply:   func(cfg *Config, v any) { cfg.Documents.Personality = v.(string) },
		extract: func(cfg Config) any { return cfg.Documents.Personality },
	},
	{
		key: "pipeline.fact_match_policy", typ: kString, env: "BERNATBOT_PIPELINE_FACT_MATCH_POLICY",
		apply:   func(cfg *Config, v any) { cfg.Pipeline.FactMatchPolicy = v.(string) },
		extract: func(cfg Config) any { return cfg.Pipeline.FactMatchPolicy },
	},
	{
		key: "pipeline.format_knowledge_hits", typ: kBool, env: "BERNATBOT_PIPELINE_FORMAT_KNOWLEDGE_HITS",
		apply:   func(cfg *Config, v any) { cfg.Pipeline.FormatKnowledgeHits = v.(bool) },
		extract: func(cfg Config) any { return cfg.Pipeline.FormatKnowledgeHits },
	},
	{
		key: "pipeline.seed", typ: kInt, env: "BERNATBOT_PIPELINE_SEED",
		apply:   func(cfg *Config, v any) { cfg.Pipeline.Seed = v.(int) },
		extract: func(cfg Config) any { return cfg.Pipeline.Seed },
	},
	{
		key: "session.idle_ttl", typ: kDuration, env: "BERNATBOT_SESSION_IDLE_TTL",
		apply:   func(cfg *Config, v any) { cfg.Session.IdleTTL = v.(time.Duration) },
		extract: func(cfg Config) any { return cfg.Session.IdleTTL },
	},
	{
		key: "storage.data_dir", typ: kString, env: "BERNATBOT_STORAGE_DATA_DIR",
		apply:   func(cfg *Config, v any) { cfg.Storage.DataDir = v.(string) },
		extract: func(cfg Config) any { return cfg.Storage.DataDir },
	},
	{
		key: "log.level", typ: kString, env: "BERNATBOT_LOG_LEVEL",
		apply:   func(cfg *Config, v any) { cfg.Log.Level = v.(string) },
		extract: func(cfg Config) any { return cfg.Log.Level },
	},
}

// parseValue converts raw text into the Go value for typ.
func parseValue(typ keyType, raw string) (any, error) {
	switch typ {
	case kInt:
		return strconv.Atoi(raw)
	case kBool:
		return strconv.ParseBool(raw)
	case kFloat:
		return strconv.ParseFloat(raw, 64)
	case kDuration:
		return time.ParseDuration(raw)
	}
	return raw, nil
}

func applyBackend(cfg *Config, b Backend) error {
	for _, s := range specs {
		if s.secret {
			continue
		}
		if s.typ == kInt {
			v, ok, err := b.GetInt(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
			continue
		}

		raw, ok, err := b.GetString(s.key)
		if err != nil {
			return fmt.Errorf("reading %s: %w", s.key, err)
		}
		if !ok || (raw == "" && s.typ != kString) {
			continue
		}
		v, err := parseValue(s.typ, raw)
		if err != nil {
			slog.Warn("could not parse config value, using default", "key", s.key, "value", raw, "error", err)
			continue
		}
		s.apply(cfg, v)
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	for _, s := range specs {
		name, raw := s.env, os.Getenv(s.env)
		if raw == "" && s.alias != "" {
			name, raw = s.alias, os.Getenv(s.alias)
		}
		if raw == "" {
			continue
		}
		v, err := parseValue(s.typ, raw)
		if err != nil {
			slog.Warn("could not parse environment variable, using default", "env", name, "value", raw, "error", err)
			continue
		}
		s.apply(cfg, v)
	}
}
