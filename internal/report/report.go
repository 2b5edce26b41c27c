package report

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/kalambet/psychtrend/internal/clustering"
	"github.com/kalambet/psychtrend/internal/gate"
)

// Disclaimer is attached to every report.
const Disclaimer = "IMPORTANT DISCLAIMER: This report provides behavioral insights based on self-reported experiences. " +
	"It is NOT a medical, clinical, or psychological diagnosis. For professional guidance on mental health or " +
	"personal development, please consult a qualified professional."

// Trend keys as they appear in a report.
const (
	KeyMotivation     = "motivation"
	KeyConsistency    = "consistency"
	KeyGrowth         = "growth_orientation"
	KeyStressResponse = "stress_response"
)

// TrendSummary is the report view of one trend.
type TrendSummary struct {
	Score       float64 `json:"score"`
	Direction   string  `json:"direction,omitempty"`
	Pattern     string  `json:"pattern,omitempty"`
	Description string  `json:"description"`
	ScoreCapped bool    `json:"score_capped"`
}

// BehavioralProfile is the report view of clustering.
type BehavioralProfile struct {
	Primary           *clustering.Affinity                `json:"primary_archetype"`
	Secondary         []clustering.Affinity               `json:"secondary_archetypes"`
	CategoryBreakdown map[string]clustering.CategoryStats `json:"category_breakdown"`
}

// PredictionSummary is the report view of a prediction. Probability is nil
// for the risk assessment.
type PredictionSummary struct {
	Type        string   `json:"type"`
	Probability *float64 `json:"probability"`
	Confidence  string   `json:"confidence"`
	Explanation string   `json:"explanation"`
	Factors     []string `json:"factors"`
	RiskLevel   string   `json:"risk_level,omitempty"`
}

// Report is the rendered, deterministic report.
type Report struct {
	SessionID           string                  `json:"session_id"`
	UserName            string                  `json:"user_name"`
	GeneratedAt         time.Time               `json:"generated_at"`
	ResponseCount       int                     `json:"response_count"`
	ExecutiveSummary    string                  `json:"executive_summary"`
	TrendAnalysis       map[string]TrendSummary `json:"trend_analysis"`
	BehavioralProfile   BehavioralProfile       `json:"behavioral_profile"`
	Predictions         []PredictionSummary     `json:"predictions"`
	Strengths           []string                `json:"strengths"`
	GrowthOpportunities []string                `json:"growth_opportunities"`
	AttentionAreas      []string                `json:"attention_areas"`
	Disclaimer          string                  `json:"disclaimer"`
}

// Enhanced is a report with optional generated prose layered on top. When
// LLMEnhanced is false every text field holds the deterministic fallback.
type Enhanced struct {
	Report
	FullReportMarkdown string            `json:"full_report_markdown"`
	TrendExplanations  map[string]string `json:"trend_explanations"`
	LLMEnhanced        bool              `json:"llm_enhanced"`
	Model              string            `json:"model,omitempty"`
}

// Build renders an analysis as a report.
func Build(a Analysis, now time.Time) Report {
	name := a.UserName
	if name == "" {
		name = "User"
	}

	r := Report{
		SessionID:     a.SessionID,
		UserName:      name,
		GeneratedAt:   now.UTC(),
		ResponseCount: a.ResponseCount,
		TrendAnalysis: map[string]TrendSummary{
			KeyMotivation:     trendSummary(a.Trends.Motivation.Score, a.Trends.Motivation.Direction, "", a.Trends.Motivation.Description, a.Trends.Motivation.ScoreCapped),
			KeyConsistency:    trendSummary(a.Trends.Consistency.Score, a.Trends.Consistency.Direction, "", a.Trends.Consistency.Description, a.Trends.Consistency.ScoreCapped),
			KeyGrowth:         trendSummary(a.Trends.Growth.Score, a.Trends.Growth.Direction, "", a.Trends.Growth.Description, a.Trends.Growth.ScoreCapped),
			KeyStressResponse: trendSummary(a.Trends.StressResponse.Score, "", a.Trends.StressResponse.Pattern, a.Trends.StressResponse.Description, a.Trends.StressResponse.ScoreCapped),
		},
		BehavioralProfile: BehavioralProfile{
			Secondary:         []clustering.Affinity{},
			CategoryBreakdown: a.Clusters.CategoryAnalysis,
		},
		Strengths:           a.Strengths,
		GrowthOpportunities: a.GrowthAreas,
		AttentionAreas:      a.AttentionAreas,
		Disclaimer:          Disclaimer,
	}
	r.ExecutiveSummary = Summary(a)

	if primary, ok := a.PrimaryArchetype(); ok {
		r.BehavioralProfile.Primary = &primary
		r.BehavioralProfile.Secondary = append(r.BehavioralProfile.Secondary, a.Clusters.Archetypes[1:]...)
	}

	for _, p := range a.Predictions {
		ps := PredictionSummary{
			Type:        p.Type,
			Confidence:  p.Confidence,
			Explanation: p.Explanation,
			Factors:     p.Factors,
			RiskLevel:   p.RiskLevel,
		}
		if p.RiskLevel == "" {
			prob := p.Probability
			ps.Probability = &prob
		}
		r.Predictions = append(r.Predictions, ps)
	}
	return r
}

func trendSummary(score float64, dir, pattern, desc string, capped bool) TrendSummary {
	return TrendSummary{Score: score, Direction: dir, Pattern: pattern, Description: desc, ScoreCapped: capped}
}

// Summary is the deterministic executive summary.
func Summary(a Analysis) string {
	name := a.UserName
	if name == "" {
		name = "User"
	}
	primary, ok := a.PrimaryArchetype()
	if !ok {
		return fmt.Sprintf("Analysis of %d responses from %s shows a balanced behavioral profile with varied patterns across categories.",
			a.ResponseCount, name)
	}

	overall := a.Aggregate.OverallSentiment
	polarity := "neutral"
	switch {
	case overall > 0:
		polarity = "positive"
	case overall < 0:
		polarity = "negative"
	}
	return fmt.Sprintf("Based on %d responses from %s, the analysis reveals a primarily '%s' behavioral profile. %s. Overall sentiment tendency is %.2f (%s).",
		a.ResponseCount, name, Title(primary.Name), primary.Description, overall, polarity)
}

// Title upper-cases the first letter of every word.
func Title(s string) string {
	prev := ' '
	return strings.Map(func(r rune) rune {
		defer func() { prev = r }()
		if unicode.IsSpace(prev) || prev == '-' {
			return unicode.ToUpper(r)
		}
		return r
	}, s)
}

// TrendFallback is the templated explanation used when no generated text is
// available for a trend.
func TrendFallback(name string, t TrendSummary) string {
	dir := t.Direction
	if dir == "" {
		dir = "stable"
	}
	return fmt.Sprintf("Your %s score is %.2f, showing a %s trend. %s", strings.ToLower(name), t.Score, dir, t.Description)
}

// TrendNames maps report trend keys to display names.
var TrendNames = map[string]string{
	KeyMotivation:     "Motivation Trend",
	KeyConsistency:    "Consistency Score",
	KeyGrowth:         "Growth Orientation",
	KeyStressResponse: "Stress Response",
}

// TrendOrder is the display order of report trend keys.
var TrendOrder = []string{KeyMotivation, KeyConsistency, KeyGrowth, KeyStressResponse}

// Fallback wraps a report with deterministic prose only.
func Fallback(r Report) Enhanced {
	e := Enhanced{
		Report:            r,
		TrendExplanations: make(map[string]string, len(r.TrendAnalysis)),
	}
	e.ExecutiveSummary = r.ExecutiveSummary + " Note: This is not a medical or psychological diagnosis."
	for _, key := range TrendOrder {
		e.TrendExplanations[key] = TrendFallback(TrendNames[key], r.TrendAnalysis[key])
	}
	e.FullReportMarkdown = Markdown(e)
	return e
}

// Markdown renders a report as a markdown document.
func Markdown(e Enhanced) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Behavioral Insight Report for %s\n\n", e.UserName)
	fmt.Fprintf(&b, "## Executive Summary\n\n%s\n\n", e.ExecutiveSummary)

	b.WriteString("## Behavioral Trends\n\n")
	for _, key := range TrendOrder {
		t := e.TrendAnalysis[key]
		fmt.Fprintf(&b, "### %s (%.2f)\n\n", TrendNames[key], t.Score)
		if text, ok := e.TrendExplanations[key]; ok && text != "" {
			fmt.Fprintf(&b, "%s\n\n", text)
		} else {
			fmt.Fprintf(&b, "%s\n\n", t.Description)
		}
	}

	if p := e.BehavioralProfile.Primary; p != nil {
		fmt.Fprintf(&b, "## Behavioral Profile\n\n**%s**: %s\n\n", Title(p.Name), p.Description)
	}

	writeList(&b, "Strengths", e.Strengths)
	writeList(&b, "Growth Opportunities", e.GrowthOpportunities)
	if len(e.AttentionAreas) > 0 {
		writeList(&b, "Areas to Watch", e.AttentionAreas)
	}

	b.WriteString("## Outlook\n\n")
	for _, p := range e.Predictions {
		fmt.Fprintf(&b, "- **%s**: %s\n", p.Type, p.Explanation)
	}
	fmt.Fprintf(&b, "\n---\n\n%s\n", e.Disclaimer)
	return b.String()
}

func writeList(b *strings.Builder, title string, items []string) {
	fmt.Fprintf(b, "## %s\n\n", title)
	for _, item := range items {
		fmt.Fprintf(b, "- %s\n", item)
	}
	b.WriteString("\n")
}

// ToneGuidance is the cautious-language guidance for generated prose about
// this analysis.
func (a Analysis) ToneGuidance() string {
	return gate.ToneGuidance(a.Context)
}
