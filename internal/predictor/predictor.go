// Package predictor turns session features into explainable,
// probability-style behavioral estimates. Nothing here is a clinical
// assessment and the wording stays behavioral.
package predictor

import (
	"fmt"
	"strings"

	"github.com/kalambet/psychtrend/internal/record"
	"github.com/kalambet/psychtrend/internal/stats"
)

// Confidence buckets.
const (
	High   = "high"
	Medium = "medium"
	Low    = "low"
)

// Risk levels.
const (
	RiskLow      = "low"
	RiskModerate = "moderate"
	RiskElevated = "elevated"
)

const (
	minProbability = 0.1
	maxProbability = 0.95
	lowQuality     = 0.5
	qualityBoost   = 1.2
)

// Prediction is one estimate with the factors that drove it. RiskLevel is
// only set on the risk assessment, which carries no probability.
type Prediction struct {
	Type        string   `json:"prediction_type"`
	Probability float64  `json:"probability,omitempty"`
	Confidence  string   `json:"confidence"`
	Explanation string   `json:"explanation"`
	Factors     []string `json:"contributing_factors"`
	RiskLevel   string   `json:"risk_level,omitempty"`
}

// All extracts features once and runs every estimate.
func All(responses []record.Response) []Prediction {
	f := ExtractFeatures(responses)
	return []Prediction{
		Consistency(f),
		Adaptability(f),
		GrowthPotential(f),
		Risk(f, responses),
	}
}

// finalize applies the low-quality penalty and bounds the probability.
func finalize(score float64, f Features) float64 {
	if f.AvgQuality < lowQuality {
		score *= f.AvgQuality * qualityBoost
	}
	return stats.Round(stats.Clamp(score, minProbability, maxProbability), 2)
}

func confidence(p float64) string {
	switch {
	case p > 0.7:
		return High
	case p > 0.4:
		return Medium
	default:
		return Low
	}
}

func percent(p float64) int {
	return int(p*100 + 1e-9)
}

// Consistency estimates how likely current behavior patterns are to hold.
func Consistency(f Features) Prediction {
	score := 0.3
	score += min(0.2, float64(f.RoutineMentions)*0.05)
	score += min(0.15, float64(f.HabitMentions)*0.04)
	score += f.SentimentStability * 0.2
	score += min(0.15, float64(f.DisciplineKeywords)*0.07)
	p := finalize(score, f)

	var factors []string
	if f.RoutineMentions > 1 {
		factors = append(factors, "Established routines")
	}
	if f.SentimentStability > 0.6 {
		factors = append(factors, "Emotional stability")
	}
	if f.HabitMentions > 1 {
		factors = append(factors, "Strong habit formation")
	}
	if len(factors) == 0 {
		factors = []string{"General behavioral patterns"}
	}

	return Prediction{
		Type:        "Consistency Likelihood",
		Probability: p,
		Confidence:  confidence(p),
		Explanation: fmt.Sprintf("Based on your responses, there is a %d%% likelihood of maintaining consistent behavior patterns.", percent(p)),
		Factors:     factors,
	}
}

// Adaptability estimates comfort with change.
func Adaptability(f Features) Prediction {
	score := 0.3
	score += min(0.2, float64(f.ChangeMentions)*0.06)
	score += min(0.2, float64(f.OvercomeKeywords)*0.1)
	score += min(0.15, float64(f.FlexibilityKeywords)*0.07)
	score += (f.AvgSentiment + 1) / 10
	p := finalize(score, f)

	var factors []string
	if f.ChangeMentions > 0 {
		factors = append(factors, "Experience with transitions")
	}
	if f.OvercomeKeywords > 0 {
		factors = append(factors, "Demonstrated resilience")
	}
	if f.AvgSentiment > 0.2 {
		factors = append(factors, "Positive outlook")
	}
	if len(factors) == 0 {
		factors = []string{"General adaptability indicators"}
	}

	return Prediction{
		Type:        "Adaptability to Change",
		Probability: p,
		Confidence:  confidence(p),
		Explanation: fmt.Sprintf("Analysis suggests %d%% adaptability potential in new situations.", percent(p)),
		Factors:     factors,
	}
}

// GrowthPotential estimates orientation toward learning.
func GrowthPotential(f Features) Prediction {
	score := 0.35
	score += min(0.2, float64(f.LearningKeywords)*0.1)
	score += min(0.15, float64(f.ImprovementMentions)*0.04)
	score += min(0.15, float64(f.GoalOrientation)*0.07)
	score += max(0, f.SentimentTrend*0.15)
	p := finalize(score, f)

	var factors []string
	if f.LearningKeywords > 0 {
		factors = append(factors, "Learning orientation")
	}
	if f.GoalOrientation > 0 {
		factors = append(factors, "Goal-driven mindset")
	}
	if f.ImprovementMentions > 0 {
		factors = append(factors, "Focus on improvement")
	}
	if len(factors) == 0 {
		factors = []string{"Baseline growth indicators"}
	}

	return Prediction{
		Type:        "Growth & Learning Potential",
		Probability: p,
		Confidence:  confidence(p),
		Explanation: fmt.Sprintf("Indicates %d%% potential for continued growth and learning.", percent(p)),
		Factors:     factors,
	}
}

// Risk derives a categorical attention level. It never produces a
// probability and its indicators are behavioral observations only.
func Risk(f Features, responses []record.Response) Prediction {
	level := RiskLow
	var indicators []string

	switch {
	case f.AvgQuality < 0.3:
		indicators = append(indicators, "Very low engagement in responses")
		level = RiskElevated
	case f.LowQualityRatio > 0.5:
		indicators = append(indicators, "Majority of responses show minimal engagement")
		level = RiskModerate
	}

	if f.AvgSentiment < -0.3 {
		indicators = append(indicators, "Tendency toward negative self-reflection")
		if level == RiskLow {
			level = RiskModerate
		}
	}
	if f.SentimentStability < 0.3 {
		indicators = append(indicators, "High emotional variability in responses")
		if level == RiskModerate {
			level = RiskElevated
		}
	}
	if f.PositiveRatio < 0.3 {
		indicators = append(indicators, "Low frequency of positive experiences mentioned")
		if level == RiskLow {
			level = RiskModerate
		}
	}

	text := record.CombinedText(responses)
	if strings.Contains(text, "avoid") || strings.Contains(text, "give up") || strings.Contains(text, "can't") {
		indicators = append(indicators, "Possible avoidance tendencies")
	}
	if len(indicators) == 0 {
		indicators = []string{"No significant behavioral concerns identified"}
	}

	return Prediction{
		Type:        "Behavioral Attention Areas",
		Confidence:  Medium,
		Explanation: fmt.Sprintf("Risk assessment level: %s. This is not a clinical assessment.", level),
		Factors:     indicators,
		RiskLevel:   level,
	}
}
