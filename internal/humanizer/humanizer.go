// Package humanizer rewrites deterministic report text with a local LLM.
// Every operation can fail; callers fall back to the templated text.
package humanizer

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/kalambet/psychtrend/internal/engine"
)

// Defaults for Options.
const (
	DefaultTimeout         = 60 * time.Second
	DefaultRetries         = 2
	DefaultBackoff         = time.Second
	DefaultMaxBackoff      = 5 * time.Second
	DefaultAvailabilityTTL = 60 * time.Second
	DefaultParallelism     = 3
)

// Clock returns the current time.
type Clock func() time.Time

// Options tune a Humanizer. Zero fields take the defaults.
type Options struct {
	Timeout         time.Duration // per attempt
	Retries         int           // extra attempts after a timeout or connection error; negative disables
	Backoff         time.Duration
	MaxBackoff      time.Duration
	AvailabilityTTL time.Duration
	Parallelism     int
	Clock           Clock
}

func (o Options) withDefaults() Options {
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	switch {
	case o.Retries == 0:
		o.Retries = DefaultRetries
	case o.Retries < 0:
		o.Retries = 0
	}
	if o.Backoff <= 0 {
		o.Backoff = DefaultBackoff
	}
	if o.MaxBackoff <= 0 {
		o.MaxBackoff = DefaultMaxBackoff
	}
	if o.AvailabilityTTL <= 0 {
		o.AvailabilityTTL = DefaultAvailabilityTTL
	}
	if o.Parallelism <= 0 {
		o.Parallelism = DefaultParallelism
	}
	if o.Clock == nil {
		o.Clock = time.Now
	}
	return o
}

// Humanizer rewrites text through an engine.Engine. A nil engine makes every
// operation fail with KindUnavailable.
type Humanizer struct {
	engine engine.Engine
	model  string
	opts   Options

	mu        sync.Mutex
	available bool
	checkedAt time.Time
}

// New creates a Humanizer using the given engine and model name.
func New(e engine.Engine, model string, opts Options) *Humanizer {
	return &Humanizer{engine: e, model: model, opts: opts.withDefaults()}
}

// Model returns the model name used for generation.
func (h *Humanizer) Model() string {
	return h.model
}

// Available reports whether the backend is running and has the model. The
// answer is cached for Options.AvailabilityTTL.
func (h *Humanizer) Available(ctx context.Context) bool {
	if h == nil || h.engine == nil {
		return false
	}
	now := h.opts.Clock()

	h.mu.Lock()
	if !h.checkedAt.IsZero() && now.Sub(h.checkedAt) < h.opts.AvailabilityTTL {
		ok := h.available
		h.mu.Unlock()
		return ok
	}
	h.mu.Unlock()

	ok := h.engine.IsRunning(ctx) && h.engine.HasModel(ctx, h.model)

	h.mu.Lock()
	h.available, h.checkedAt = ok, now
	h.mu.Unlock()
	return ok
}

// markUnavailable forgets a positive availability answer after a connection
// failure.
func (h *Humanizer) markUnavailable() {
	h.mu.Lock()
	h.available, h.checkedAt = false, h.opts.Clock()
	h.mu.Unlock()
}

type call struct {
	op     string
	system string
	prompt string
	schema *engine.Schema
	opts   engine.ChatOptions
}

// generate runs one call with per-attempt timeouts and exponential backoff.
func (h *Humanizer) generate(ctx context.Context, c call) (string, error) {
	if !h.Available(ctx) {
		return "", &LLMError{Op: c.op, Kind: KindUnavailable}
	}

	messages := []engine.Message{
		{Role: engine.RoleSystem, Content: c.system},
		{Role: engine.RoleUser, Content: c.prompt},
	}

	delay := h.opts.Backoff
	var lastErr error
	for attempt := 0; attempt <= h.opts.Retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return "", &LLMError{Op: c.op, Kind: KindTimeout, Err: ctx.Err()}
			case <-time.After(delay):
			}
			delay = min(delay*2, h.opts.MaxBackoff)
		}

		start := time.Now()
		attemptCtx, cancel := context.WithTimeout(ctx, h.opts.Timeout)
		raw, err := h.engine.Chat(attemptCtx, h.model, messages, c.schema, c.opts)
		cancel()
		if err == nil {
			slog.Debug("humanizer call", "op", c.op, "attempt", attempt+1, "elapsed", time.Since(start))
			return strings.TrimSpace(raw), nil
		}

		kind := classify(err)
		lastErr = &LLMError{Op: c.op, Kind: kind, Err: err}
		if ctx.Err() != nil || !retryable(kind) {
			break
		}
		slog.Debug("humanizer call failed, retrying", "op", c.op, "attempt", attempt+1, "error", err)
	}

	if IsKind(lastErr, KindUnavailable) {
		h.markUnavailable()
	}
	return "", lastErr
}

// text runs a free-text call and screens the result. Results shorter than
// minLen count as malformed.
func (h *Humanizer) text(ctx context.Context, c call, minLen int) (string, error) {
	out, err := h.generate(ctx, c)
	if err != nil {
		return "", err
	}
	out, found := screen(out)
	if len(found) > 0 {
		slog.Warn("sanitized generated text", "op", c.op, "terms", found)
	}
	if len(out) <= minLen {
		return "", &LLMError{Op: c.op, Kind: KindMalformed}
	}
	return out, nil
}
