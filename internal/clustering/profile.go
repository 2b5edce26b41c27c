package clustering

import (
	"cmp"
	"slices"
	"strings"

	"github.com/kalambet/psychtrend/internal/gate"
	"github.com/kalambet/psychtrend/internal/record"
	"github.com/kalambet/psychtrend/internal/stats"
)

// CategoryStats summarizes the answers given in one conversation category.
type CategoryStats struct {
	ResponseCount int      `json:"response_count"`
	AvgSentiment  float64  `json:"avg_sentiment"`
	TopKeywords   []string `json:"top_keywords"`
}

// Profile bundles everything clustering reports for a session.
type Profile struct {
	Archetypes       []Affinity               `json:"archetypes"`
	CategoryAnalysis map[string]CategoryStats `json:"category_analysis"`
	FeatureVector    []float64                `json:"feature_vector"`
}

// Build runs archetype scoring, category analysis and feature extraction
// against the same context.
func Build(responses []record.Response, ctx gate.Context) Profile {
	return Profile{
		Archetypes:       Affinities(responses, ctx),
		CategoryAnalysis: Categories(responses),
		FeatureVector:    Features(responses),
	}
}

// Categories groups responses by category with their mean sentiment and
// three most frequent keywords.
func Categories(responses []record.Response) map[string]CategoryStats {
	groups := map[string][]record.Response{}
	for _, r := range responses {
		cat := r.Category
		if cat == "" {
			cat = "unknown"
		}
		groups[cat] = append(groups[cat], r)
	}

	out := make(map[string]CategoryStats, len(groups))
	for cat, rs := range groups {
		out[cat] = CategoryStats{
			ResponseCount: len(rs),
			AvgSentiment:  stats.Round(stats.Mean(record.Scores(rs)), 2),
			TopKeywords:   topKeywords(rs, 3),
		}
	}
	return out
}

// topKeywords orders by count, breaking ties by first appearance.
func topKeywords(rs []record.Response, n int) []string {
	counts := map[string]int{}
	var order []string
	for _, r := range rs {
		for _, kw := range r.Keywords {
			if counts[kw] == 0 {
				order = append(order, kw)
			}
			counts[kw]++
		}
	}
	slices.SortStableFunc(order, func(a, b string) int {
		return cmp.Compare(counts[b], counts[a])
	})
	if len(order) > n {
		order = order[:n]
	}
	if order == nil {
		order = []string{}
	}
	return order
}

var featureSets = [][]string{
	{"learn", "grow", "improve", "develop", "progress", "better"},
	{"challenge", "difficult", "hard", "struggle", "overcome", "face"},
	{"team", "people", "together", "help", "family", "friend", "support"},
	{"achieve", "success", "accomplish", "win", "complete", "goal"},
}

// Features is a six-value behavioral vector: normalized mean sentiment,
// sentiment spread, then growth, challenge, social and achievement word
// density. An empty session yields an empty vector.
func Features(responses []record.Response) []float64 {
	if len(responses) == 0 {
		return []float64{}
	}

	scores := record.Scores(responses)
	text := record.CombinedText(responses)
	out := []float64{
		stats.Round((stats.Mean(scores)+1)/2, 3),
		stats.Round(min(1, stats.Std(scores)), 3),
	}
	for _, set := range featureSets {
		var n int
		for _, w := range set {
			n += strings.Count(text, w)
		}
		out = append(out, stats.Round(min(1, float64(n)/5), 3))
	}
	return out
}
