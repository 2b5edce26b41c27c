package engine

import (
	"context"
	"errors"
)

// ErrPullUnsupported is returned by backends that cannot download models.
var ErrPullUnsupported = errors.New("backend does not support pulling models")

// Engine abstracts a local inference backend (Ollama or any OpenAI-compatible
// server). The humanizer and the health endpoints use this interface instead
// of depending on a concrete client.
type Engine interface {
	// Name identifies the backend in logs and health output.
	Name() string

	// Chat sends messages to the given model and returns the assistant's response.
	// When schema is non-nil, structured JSON output is requested.
	Chat(ctx context.Context, model string, messages []Message, schema *Schema, opts ChatOptions) (string, error)

	// IsRunning reports whether the inference backend is reachable.
	IsRunning(ctx context.Context) bool

	// ListModels returns the names of all locally available models.
	ListModels(ctx context.Context) ([]string, error)

	// HasModel reports whether the given model name is available locally.
	HasModel(ctx context.Context, name string) bool

	// PullModel downloads a model. The optional callback receives progress updates.
	PullModel(ctx context.Context, name string, onProgress func(PullProgress)) error
}
