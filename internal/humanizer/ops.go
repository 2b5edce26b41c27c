package humanizer

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/kalambet/psychtrend/internal/engine"
	"github.com/kalambet/psychtrend/internal/report"
)

// Input quality labels returned by NormalizeInput.
const (
	QualityHigh   = "high"
	QualityMedium = "medium"
	QualityLow    = "low"
)

const diagnosisNote = "Note: This is not a medical or psychological diagnosis."

// Normalized is a user answer restated as a clear sentence.
type Normalized struct {
	Original       string `json:"original"`
	Normalized     string `json:"normalized"`
	Quality        string `json:"quality"`
	UsedLLM        bool   `json:"used_llm"`
	FallbackReason string `json:"fallback_reason,omitempty"`
}

type normalizeOutput struct {
	Normalized string `json:"normalized" jsonschema:"description=Clear restatement of the answer or an empty string if it is too vague"`
	Quality    string `json:"quality" jsonschema:"enum=high,enum=medium,enum=low"`
}

var normalizeSchema = engine.MustSchemaFor[normalizeOutput]("normalized_input", "A user answer restated as a neutral sentence")

// NormalizeInput restates a terse answer. Answers of at least five words and
// thirty characters are returned as they are. On error the returned value
// holds a word-count quality estimate and the error says why.
func (h *Humanizer) NormalizeInput(ctx context.Context, input, category string) (Normalized, error) {
	trimmed := strings.TrimSpace(input)
	if len(strings.Fields(trimmed)) >= 5 && len(trimmed) >= 30 {
		return Normalized{Original: input, Normalized: input, Quality: QualityHigh}, nil
	}

	fallback := func(reason string) Normalized {
		return Normalized{Original: input, Normalized: input, Quality: EstimateQuality(input), FallbackReason: reason}
	}

	raw, err := h.generate(ctx, call{
		op:     "normalize_input",
		system: normalizeSystem,
		prompt: normalizePrompt(input, category),
		schema: normalizeSchema,
		opts:   engine.ChatOptions{Temperature: 0.1},
	})
	if err != nil {
		return fallback("llm " + string(kindOf(err))), err
	}

	var out normalizeOutput
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return fallback("llm output malformed"), &LLMError{Op: "normalize_input", Kind: KindMalformed, Err: err}
	}
	n := Normalized{Original: input, Normalized: input, Quality: out.Quality, UsedLLM: true}
	if s := strings.TrimSpace(out.Normalized); s != "" {
		n.Normalized, _ = screen(s)
	}
	switch n.Quality {
	case QualityHigh, QualityMedium, QualityLow:
	default:
		n.Quality = QualityMedium
	}
	return n, nil
}

// EstimateQuality grades an answer by length alone.
func EstimateQuality(text string) string {
	trimmed := strings.TrimSpace(text)
	words := len(strings.Fields(trimmed))
	switch {
	case len(trimmed) < 3 || words < 3:
		return QualityLow
	case words < 8:
		return QualityMedium
	default:
		return QualityHigh
	}
}

// EnhanceQuestion rephrases a follow-up question around the user's answer.
// The result always ends with a question mark.
func (h *Humanizer) EnhanceQuestion(ctx context.Context, answer, category, previous string) (string, error) {
	q, err := h.text(ctx, call{
		op:     "enhance_question",
		system: questionSystem,
		prompt: questionPrompt(answer, category, previous),
		opts:   engine.ChatOptions{Temperature: 0.3, MaxTokens: 150},
	}, 10)
	if err != nil {
		return "", err
	}
	if !strings.HasSuffix(q, "?") {
		q += "?"
	}
	return q, nil
}

// ExplainTrend explains one trend in two or three sentences.
func (h *Humanizer) ExplainTrend(ctx context.Context, name string, t report.TrendSummary) (string, error) {
	return h.text(ctx, call{
		op:     "explain_trend",
		system: insightSystem,
		prompt: insightPrompt(name, t),
		opts:   engine.ChatOptions{Temperature: 0.2, MaxTokens: 200},
	}, 20)
}

// ExecutiveSummary writes the report's opening paragraph. The result always
// carries the non-diagnosis note.
func (h *Humanizer) ExecutiveSummary(ctx context.Context, a report.Analysis, r report.Report) (string, error) {
	s, err := h.text(ctx, call{
		op:     "executive_summary",
		system: reportSystem,
		prompt: summaryPrompt(a, r),
		opts:   engine.ChatOptions{Temperature: 0.2, MaxTokens: 400},
	}, 50)
	if err != nil {
		return "", err
	}
	lower := strings.ToLower(s)
	if !strings.Contains(lower, "not a medical") && !strings.Contains(lower, "not a psychological") {
		s += "\n\n" + diagnosisNote
	}
	return s, nil
}

// FullReport writes the whole report as markdown.
func (h *Humanizer) FullReport(ctx context.Context, a report.Analysis, r report.Report) (string, error) {
	return h.text(ctx, call{
		op:     "full_report",
		system: reportSystem,
		prompt: fullReportPrompt(a, r),
		opts:   engine.ChatOptions{Temperature: 0.25, MaxTokens: 1800},
	}, 100)
}

// HumanizeStrength rewrites a strength as one personal sentence.
func (h *Humanizer) HumanizeStrength(ctx context.Context, strength, userName string) (string, error) {
	return h.text(ctx, call{
		op:     "humanize_strength",
		system: baseSystem,
		prompt: strengthPrompt(strength, userName),
		opts:   engine.ChatOptions{Temperature: 0.3, MaxTokens: 100},
	}, 10)
}

// HumanizeGrowthArea rewrites a growth area as one supportive sentence.
func (h *Humanizer) HumanizeGrowthArea(ctx context.Context, area, userName string) (string, error) {
	return h.text(ctx, call{
		op:     "humanize_growth_area",
		system: baseSystem,
		prompt: growthPrompt(area, userName),
		opts:   engine.ChatOptions{Temperature: 0.3, MaxTokens: 100},
	}, 10)
}

func kindOf(err error) Kind {
	var le *LLMError
	if errors.As(err, &le) {
		return le.Kind
	}
	return KindUpstream
}
