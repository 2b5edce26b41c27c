package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// ConfigBackend persists the non-secret keys. Keys are "section.name",
// matching the Config sections; values are read back as text and parsed
// by the key's type.
type ConfigBackend interface {
	Get(key string) (val string, ok bool, err error)
	Set(key string, val any) error
	Delete(key string) error
}

type keyType int

const (
	kString keyType = iota
	kInt
	kBool
	kFloat
)

type keySpec struct {
	key     string
	typ     keyType
	env     string
	secret  bool
	apply   func(cfg *Config, v any)
	extract func(cfg Config) any
}

var specs = []keySpec{
	{
		key: "server.host", typ: kString, env: "PSYCHTREND_SERVER_HOST",
		apply:   func(cfg *Config, v any) { cfg.Server.Host = v.(string) },
		extract: func(cfg Config) any { return cfg.Server.Host },
	},
	{
		key: "server.port", typ: kInt, env: "PSYCHTREND_SERVER_PORT",
		apply:   func(cfg *Config, v any) { cfg.Server.Port = v.(int) },
		extract: func(cfg Config) any { return cfg.Server.Port },
	},
	{
		key: "server.mcp_stdio", typ: kBool, env: "PSYCHTREND_SERVER_MCP_STDIO",
		apply:   func(cfg *Config, v any) { cfg.Server.MCPStdio = v.(bool) },
		extract: func(cfg Config) any { return cfg.Server.MCPStdio },
	},
	{
		key: "server.allowed_origins", typ: kString, env: "PSYCHTREND_SERVER_ALLOWED_ORIGINS",
		apply:   func(cfg *Config, v any) { cfg.Server.AllowedOrigins = v.(string) },
		extract: func(cfg Config) any { return cfg.Server.AllowedOrigins },
	},
	{
		key: "llm.backend", typ: kString, env: "PSYCHTREND_LLM_BACKEND",
		apply:   func(cfg *Config, v any) { cfg.LLM.Backend = v.(string) },
		extract: func(cfg Config) any { return cfg.LLM.Backend },
	},
	{
		key: "llm.ollama_base_url", typ: kString, env: "PSYCHTREND_LLM_OLLAMA_BASE_URL",
		apply:   func(cfg *Config, v any) { cfg.LLM.OllamaBaseURL = v.(string) },
		extract: func(cfg Config) any { return cfg.LLM.OllamaBaseURL },
	},
	{
		key: "llm.openai_base_url", typ: kString, env: "PSYCHTREND_LLM_OPENAI_BASE_URL",
		apply:   func(cfg *Config, v any) { cfg.LLM.OpenAIBaseURL = v.(string) },
		extract: func(cfg Config) any { return cfg.LLM.OpenAIBaseURL },
	},
	{
		key: "llm.openai_api_key", typ: kString, env: "PSYCHTREND_LLM_OPENAI_API_KEY",
		secret:  true,
		apply:   func(cfg *Config, v any) { cfg.LLM.OpenAIAPIKey = v.(string) },
		extract: func(cfg Config) any { return cfg.LLM.OpenAIAPIKey },
	},
	{
		key: "llm.model", typ: kString, env: "PSYCHTREND_LLM_MODEL",
		apply:   func(cfg *Config, v any) { cfg.LLM.Model = v.(string) },
		extract: func(cfg Config) any { return cfg.LLM.Model },
	},
	{
		key: "llm.pull_model", typ: kBool, env: "PSYCHTREND_LLM_PULL_MODEL",
		apply:   func(cfg *Config, v any) { cfg.LLM.PullModel = v.(bool) },
		extract: func(cfg Config) any { return cfg.LLM.PullModel },
	},
	{
		key: "storage.data_dir", typ: kString, env: "PSYCHTREND_STORAGE_DATA_DIR",
		apply:   func(cfg *Config, v any) { cfg.Storage.DataDir = v.(string) },
		extract: func(cfg Config) any { return cfg.Storage.DataDir },
	},
	{
		key: "log.level", typ: kString, env: "PSYCHTREND_LOG_LEVEL",
		apply:   func(cfg *Config, v any) { cfg.Log.Level = v.(string) },
		extract: func(cfg Config) any { return cfg.Log.Level },
	},
	{
		key: "analysis.min_responses", typ: kInt, env: "PSYCHTREND_ANALYSIS_MIN_RESPONSES",
		apply:   func(cfg *Config, v any) { cfg.Analysis.MinResponses = v.(int) },
		extract: func(cfg Config) any { return cfg.Analysis.MinResponses },
	},
	{
		key: "analysis.follow_up_rate", typ: kFloat, env: "PSYCHTREND_ANALYSIS_FOLLOW_UP_RATE",
		apply:   func(cfg *Config, v any) { cfg.Analysis.FollowUpRate = v.(float64) },
		extract: func(cfg Config) any { return cfg.Analysis.FollowUpRate },
	},
	{
		key: "analysis.seed", typ: kInt, env: "PSYCHTREND_ANALYSIS_SEED",
		apply:   func(cfg *Config, v any) { cfg.Analysis.Seed = v.(int) },
		extract: func(cfg Config) any { return cfg.Analysis.Seed },
	},
	{
		key: "analysis.background_enhance", typ: kBool, env: "PSYCHTREND_ANALYSIS_BACKGROUND_ENHANCE",
		apply:   func(cfg *Config, v any) { cfg.Analysis.BackgroundEnhance = v.(bool) },
		extract: func(cfg Config) any { return cfg.Analysis.BackgroundEnhance },
	},
	{
		key: "humanizer.enabled", typ: kBool, env: "PSYCHTREND_HUMANIZER_ENABLED",
		apply:   func(cfg *Config, v any) { cfg.Humanizer.Enabled = v.(bool) },
		extract: func(cfg Config) any { return cfg.Humanizer.Enabled },
	},
	{
		key: "humanizer.timeout", typ: kString, env: "PSYCHTREND_HUMANIZER_TIMEOUT",
		apply:   func(cfg *Config, v any) { cfg.Humanizer.Timeout = v.(string) },
		extract: func(cfg Config) any { return cfg.Humanizer.Timeout },
	},
	{
		key: "humanizer.retries", typ: kInt, env: "PSYCHTREND_HUMANIZER_RETRIES",
		apply:   func(cfg *Config, v any) { cfg.Humanizer.Retries = v.(int) },
		extract: func(cfg Config) any { return cfg.Humanizer.Retries },
	},
	{
		key: "humanizer.parallelism", typ: kInt, env: "PSYCHTREND_HUMANIZER_PARALLELISM",
		apply:   func(cfg *Config, v any) { cfg.Humanizer.Parallelism = v.(int) },
		extract: func(cfg Config) any { return cfg.Humanizer.Parallelism },
	},
	{
		key: "humanizer.normalize_input", typ: kBool, env: "PSYCHTREND_HUMANIZER_NORMALIZE_INPUT",
		apply:   func(cfg *Config, v any) { cfg.Humanizer.NormalizeInput = v.(bool) },
		extract: func(cfg Config) any { return cfg.Humanizer.NormalizeInput },
	},
	{
		key: "humanizer.rephrase_questions", typ: kBool, env: "PSYCHTREND_HUMANIZER_REPHRASE_QUESTIONS",
		apply:   func(cfg *Config, v any) { cfg.Humanizer.RephraseQuestions = v.(bool) },
		extract: func(cfg Config) any { return cfg.Humanizer.RephraseQuestions },
	},
}

// splitKey breaks a key into its Config section and field name.
func splitKey(key string) (section, name string, err error) {
	section, name, ok := strings.Cut(key, ".")
	if !ok || section == "" || name == "" {
		return "", "", fmt.Errorf("malformed config key %q", key)
	}
	return section, name, nil
}

func (s keySpec) parse(raw string) (any, error) {
	switch s.typ {
	case kInt:
		i, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil {
			return nil, fmt.Errorf("want an integer: %w", err)
		}
		return i, nil
	case kBool:
		b, err := strconv.ParseBool(strings.TrimSpace(raw))
		if err != nil {
			return nil, fmt.Errorf("want a bool: %w", err)
		}
		return b, nil
	case kFloat:
		f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return nil, fmt.Errorf("want a number: %w", err)
		}
		return f, nil
	default:
		return raw, nil
	}
}

func lookupSpec(key string) (keySpec, bool) {
	for _, s := range specs {
		if s.key == key {
			return s, true
		}
	}
	return keySpec{}, false
}

// applyBackend fails on a stored value that does not parse, since the
// user wrote it through SetKey or by hand and should hear about it.
func applyBackend(cfg *Config, b ConfigBackend) error {
	for _, s := range specs {
		if s.secret {
			continue
		}
		raw, ok, err := b.Get(s.key)
		if err != nil {
			return fmt.Errorf("reading %s: %w", s.key, err)
		}
		if !ok {
			continue
		}
		v, err := s.parse(raw)
		if err != nil {
			return fmt.Errorf("config key %s=%q: %w", s.key, raw, err)
		}
		s.apply(cfg, v)
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	for _, s := range specs {
		if s.env == "" {
			continue
		}
		raw := os.Getenv(s.env)
		if raw == "" {
			continue
		}
		v, err := s.parse(raw)
		if err != nil {
			fmt.Fprintf(os.Stderr, "[WARN] could not parse env var %s=%q: %v. Using default value.\n", s.env, raw, err)
			continue
		}
		s.apply(cfg, v)
	}
}
