package humanizer

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kalambet/psychtrend/internal/report"
)

// Enhance layers generated prose over a deterministic report. Each piece
// falls back to its templated text on its own; LLMEnhanced is set only when
// the full markdown report was generated.
func (h *Humanizer) Enhance(ctx context.Context, a report.Analysis, r report.Report) report.Enhanced {
	e := report.Fallback(r)
	if !h.Available(ctx) {
		slog.Warn("llm unavailable, serving templated report", "session_id", r.SessionID)
		return e
	}
	start := time.Now()

	var (
		summary      string
		full         string
		explanations = make([]string, len(report.TrendOrder))
		strengths    = make([]string, len(r.Strengths))
		growth       = make([]string, len(r.GrowthOpportunities))
	)

	// Every task swallows its own error so one failure never cancels the rest.
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(h.opts.Parallelism)

	keep := func(op string, err error) {
		if err != nil {
			slog.Warn("humanizer fallback", "op", op, "session_id", r.SessionID, "error", err)
		}
	}

	g.Go(func() error {
		s, err := h.ExecutiveSummary(gctx, a, r)
		keep("executive_summary", err)
		summary = s
		return nil
	})
	for i, key := range report.TrendOrder {
		g.Go(func() error {
			s, err := h.ExplainTrend(gctx, report.TrendNames[key], r.TrendAnalysis[key])
			keep("explain_trend", err)
			explanations[i] = s
			return nil
		})
	}
	for i, s := range r.Strengths {
		g.Go(func() error {
			out, err := h.HumanizeStrength(gctx, s, r.UserName)
			keep("humanize_strength", err)
			strengths[i] = out
			return nil
		})
	}
	for i, s := range r.GrowthOpportunities {
		g.Go(func() error {
			out, err := h.HumanizeGrowthArea(gctx, s, r.UserName)
			keep("humanize_growth_area", err)
			growth[i] = out
			return nil
		})
	}
	g.Go(func() error {
		s, err := h.FullReport(gctx, a, r)
		keep("full_report", err)
		full = s
		return nil
	})
	_ = g.Wait()

	if summary != "" {
		e.ExecutiveSummary = summary
	}
	for i, key := range report.TrendOrder {
		if explanations[i] != "" {
			e.TrendExplanations[key] = explanations[i]
		}
	}
	e.Strengths = merge(r.Strengths, strengths)
	e.GrowthOpportunities = merge(r.GrowthOpportunities, growth)

	if full != "" {
		e.FullReportMarkdown = full
		e.LLMEnhanced = true
		e.Model = h.model
	} else {
		e.FullReportMarkdown = report.Markdown(e)
	}

	slog.Debug("report enhanced", "session_id", r.SessionID, "llm_enhanced", e.LLMEnhanced, "elapsed", time.Since(start))
	return e
}

// merge returns generated items where present and the originals elsewhere.
func merge(orig, generated []string) []string {
	out := make([]string, len(orig))
	for i := range orig {
		out[i] = orig[i]
		if generated[i] != "" {
			out[i] = generated[i]
		}
	}
	return out
}
