package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/schollz/progressbar/v3"
)

// EnsureReady checks that the Engine is reachable and the model is
// available. A missing model is pulled with a progress bar written to w,
// then warmed up so the first report does not pay the cold-load penalty.
func EnsureReady(ctx context.Context, e Engine, model string, w io.Writer) error {
	if !e.IsRunning(ctx) {
		return fmt.Errorf("local inference engine %s is not running; please ensure the backend is started", e.Name())
	}
	if model == "" {
		return nil
	}

	if !e.HasModel(ctx, model) {
		fmt.Fprintf(w, "model %s: pulling...\n", model)
		if err := pullWithProgress(ctx, e, model, w); err != nil {
			if errors.Is(err, ErrPullUnsupported) {
				return fmt.Errorf("model %s is not loaded on the %s backend", model, e.Name())
			}
			return fmt.Errorf("pulling model %s: %w", model, err)
		}
	}
	fmt.Fprintf(w, "model %s: ready\n", model)

	warmCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if _, err := e.Chat(warmCtx, model, []Message{{Role: RoleUser, Content: "ping"}}, nil, ChatOptions{MaxTokens: 1}); err != nil {
		fmt.Fprintf(w, "model %s: warm-up failed (non-fatal): %v\n", model, err)
	}
	return nil
}

func pullWithProgress(ctx context.Context, e Engine, model string, w io.Writer) error {
	var bar *progressbar.ProgressBar
	err := e.PullModel(ctx, model, func(p PullProgress) {
		if p.Total <= 0 {
			return
		}
		if bar == nil {
			bar = progressbar.NewOptions64(p.Total,
				progressbar.OptionSetWriter(w),
				progressbar.OptionSetDescription(p.Status),
				progressbar.OptionShowBytes(true),
			)
		}
		bar.Set64(p.Completed)
	})
	if bar != nil {
		bar.Finish()
		fmt.Fprintln(w)
	}
	return err
}
