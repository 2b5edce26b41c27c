package predictor

import (
	"strings"

	"github.com/kalambet/psychtrend/internal/record"
	"github.com/kalambet/psychtrend/internal/stats"
)

const (
	maxStrengths   = 5
	maxGrowthAreas = 4
)

var strengthByTheme = []struct{ theme, text string }{
	{"achievement", "Goal-oriented with strong achievement drive"},
	{"growth", "Natural inclination toward personal growth"},
	{"resilience", "Demonstrated resilience in facing challenges"},
	{"leadership", "Leadership qualities and initiative"},
	{"creativity", "Creative and innovative thinking"},
	{"teamwork", "Strong collaborative and interpersonal skills"},
	{"adaptation", "Adaptability and flexibility"},
	{"self-improvement", "Commitment to self-improvement"},
	{"passion", "Passionate engagement with interests"},
}

// Strengths lists up to five strengths suggested by keyword themes and
// overall sentiment.
func Strengths(responses []record.Response) []string {
	if len(responses) == 0 {
		return []string{"Unable to identify strengths from limited data"}
	}

	kw := record.KeywordCounts(responses)
	var out []string
	for _, s := range strengthByTheme {
		if kw[s.theme] > 0 {
			out = append(out, s.text)
		}
	}
	if stats.Mean(record.Scores(responses)) > 0.3 {
		out = append(out, "Positive outlook and optimistic perspective")
	}
	if len(out) == 0 {
		return []string{"Willingness to self-reflect and share experiences"}
	}
	if len(out) > maxStrengths {
		out = out[:maxStrengths]
	}
	return out
}

// GrowthAreas lists up to four development suggestions.
func GrowthAreas(responses []record.Response) []string {
	if len(responses) == 0 {
		return []string{"More data needed to identify growth areas"}
	}

	text := record.CombinedText(responses)
	scores := record.Scores(responses)
	has := func(s string) bool { return strings.Contains(text, s) }

	var out []string
	if has("stress") || has("overwhelm") {
		out = append(out, "Developing stress management techniques")
	}
	if has("balance") || has("too much work") {
		out = append(out, "Improving work-life balance")
	}
	if has("confidence") && (has("lack") || has("low")) {
		out = append(out, "Building self-confidence")
	}
	if len(scores) > 1 && stats.Std(scores) > 0.4 {
		out = append(out, "Developing emotional regulation strategies")
	}
	if stats.Mean(scores) < 0 {
		out = append(out, "Cultivating a more positive perspective")
	}
	if has("procrastin") {
		out = append(out, "Overcoming procrastination tendencies")
	}
	if len(out) == 0 {
		return []string{"Continue building on existing strengths"}
	}
	if len(out) > maxGrowthAreas {
		out = out[:maxGrowthAreas]
	}
	return out
}
