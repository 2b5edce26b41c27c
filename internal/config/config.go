package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server    ServerConfig
	LLM       LLMConfig
	Storage   StorageConfig
	Log       LogConfig
	Analysis  AnalysisConfig
	Humanizer HumanizerConfig
}

type ServerConfig struct {
	Host           string
	Port           int
	MCPStdio       bool
	AllowedOrigins string // comma-separated; empty allows all
}

type LLMConfig struct {
	Backend       string // auto, ollama or openai
	OllamaBaseURL string
	OpenAIBaseURL string
	OpenAIAPIKey  string
	Model         string
	PullModel     bool
}

type StorageConfig struct {
	DataDir string
}

type LogConfig struct {
	Level string
}

type AnalysisConfig struct {
	MinResponses      int
	FollowUpRate      float64
	Seed              int
	BackgroundEnhance bool
}

type HumanizerConfig struct {
	Enabled           bool
	Timeout           string
	Retries           int
	Parallelism       int
	NormalizeInput    bool
	RephraseQuestions bool
}

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Host: "127.0.0.1",
			Port: 8000,
		},
		LLM: LLMConfig{
			Backend:       "auto",
			OllamaBaseURL: "http://localhost:11434",
			OpenAIBaseURL: "http://localhost:1234/v1",
			Model:         "llama3.2:3b",
			PullModel:     true,
		},
		Storage: StorageConfig{
			DataDir: defaultDataDir(),
		},
		Log: LogConfig{
			Level: "info",
		},
		Analysis: AnalysisConfig{
			MinResponses:      3,
			FollowUpRate:      0.3,
			BackgroundEnhance: true,
		},
		Humanizer: HumanizerConfig{
			Enabled:     true,
			Timeout:     "60s",
			Retries:     2,
			Parallelism: 3,
		},
	}
}

// Load reads configuration from the platform-native backend, a .env file,
// environment variables and the platform secret store.
//
// On macOS the backend is UserDefaults (domain: com.psychtrend.app) and
// secrets live in the Keychain.
// On Linux the backend is a JSON file at $XDG_CONFIG_HOME/psychtrend/config.json
// and secrets live in $XDG_DATA_HOME/psychtrend/secrets.json.
//
// Values from ./.env are loaded into the environment without replacing
// variables that are already set. Environment variables (PSYCHTREND_*)
// override backend values on all platforms.
func Load() (Config, error) {
	loadDotEnv(".env")
	return loadWith(newPlatformBackend(), platformKeychain{})
}

func loadDotEnv(path string) {
	if _, err := os.Stat(path); err != nil {
		return
	}
	if err := godotenv.Load(path); err != nil {
		fmt.Fprintf(os.Stderr, "[WARN] could not load %s: %v\n", path, err)
	}
}

// keychain abstracts secret storage for testing.
type keychain interface {
	Get(service, account string) (string, error)
}

func loadWith(b ConfigBackend, kc keychain) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}

	applyEnvOverrides(&cfg)

	if cfg.LLM.OpenAIAPIKey == "" {
		if key, err := kc.Get(secretService, openAIKeyAccount); err == nil && key != "" {
			cfg.LLM.OpenAIAPIKey = key
		}
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.LLM.Backend {
	case "auto", "ollama", "openai":
	default:
		return fmt.Errorf("invalid llm.backend %q: want auto, ollama or openai", c.LLM.Backend)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port %d", c.Server.Port)
	}
	if c.Analysis.FollowUpRate < 0 || c.Analysis.FollowUpRate > 1 {
		return fmt.Errorf("analysis.follow_up_rate must be within [0,1], got %v", c.Analysis.FollowUpRate)
	}
	if _, err := time.ParseDuration(c.Humanizer.Timeout); err != nil {
		return fmt.Errorf("invalid humanizer.timeout %q: %w", c.Humanizer.Timeout, err)
	}
	return nil
}

// Addr is the listen address of the HTTP API.
func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// Origins splits the CORS origin list.
func (c Config) Origins() []string {
	var out []string
	for _, o := range strings.Split(c.Server.AllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

// HumanizerTimeout is the parsed per-call LLM timeout.
func (c Config) HumanizerTimeout() time.Duration {
	d, _ := time.ParseDuration(c.Humanizer.Timeout)
	return d
}
