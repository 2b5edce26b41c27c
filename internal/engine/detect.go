package engine

import (
	"context"
	"fmt"
)

// Backend names accepted by Detect.
const (
	BackendAuto   = "auto"
	BackendOllama = "ollama"
	BackendOpenAI = "openai"
)

// DetectConfig holds parameters for backend detection.
type DetectConfig struct {
	Backend       string
	OllamaBaseURL string
	OpenAIBaseURL string
	OpenAIAPIKey  string
}

// Detect returns the configured backend. With "auto" it prefers a reachable
// Ollama, then a reachable OpenAI-compatible server, then Ollama anyway so
// that health checks report it as down.
func Detect(ctx context.Context, cfg DetectConfig) (Engine, error) {
	switch cfg.Backend {
	case BackendOllama:
		return NewOllamaEngine(cfg.OllamaBaseURL), nil
	case BackendOpenAI:
		if cfg.OpenAIBaseURL == "" {
			return nil, fmt.Errorf("openai backend requires a base URL")
		}
		return NewOpenAIEngine(cfg.OpenAIBaseURL, cfg.OpenAIAPIKey), nil
	case BackendAuto, "":
		ollamaEng := NewOllamaEngine(cfg.OllamaBaseURL)
		if ollamaEng.IsRunning(ctx) || cfg.OpenAIBaseURL == "" {
			return ollamaEng, nil
		}
		if openaiEng := NewOpenAIEngine(cfg.OpenAIBaseURL, cfg.OpenAIAPIKey); openaiEng.IsRunning(ctx) {
			return openaiEng, nil
		}
		return ollamaEng, nil
	default:
		return nil, fmt.Errorf("unknown inference backend %q", cfg.Backend)
	}
}
